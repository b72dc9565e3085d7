package conformance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ddexnet/dsrf"
	"github.com/ddexnet/dsrf/internal/xsd"
)

// profileNodeTags are the structural tags that become nodes of the tree.
var profileNodeTags = []string{"choice", "sequence", "element"}

// ProfileParser compiles a profile's content model out of the
// sales-reporting XSD.
type ProfileParser struct {
	DSRFXSDFileName string

	complexElements map[string]*xsd.Element
}

// NewProfileParser returns a parser over the given XSD document.
func NewProfileParser(dsrfXSDFileName string) *ProfileParser {
	return &ProfileParser{
		DSRFXSDFileName: dsrfXSDFileName,
		complexElements: make(map[string]*xsd.Element),
	}
}

func (p *ProfileParser) schemaError(detail string) error {
	return &dsrf.XSDParsingFailure{XSDFileName: p.DSRFXSDFileName, Detail: detail}
}

func isProfileNodeTag(e *xsd.Element) bool {
	for _, tag := range profileNodeTags {
		if e.Is(tag) {
			return true
		}
	}
	return false
}

func (p *ProfileParser) occursNumber(occursType, occursStr string) (int, error) {
	n, err := strconv.Atoi(occursStr)
	if err != nil {
		return 0, p.schemaError(fmt.Sprintf(
			`The value "%s" is invalid as a %s. Expected an integer/"unbounded".`,
			occursStr, occursType))
	}
	return n, nil
}

func (p *ProfileParser) maxOccurs(element *xsd.Element) (int, error) {
	maxOccurs := element.MaxOccurs
	if maxOccurs == "" {
		maxOccurs = "1"
	}
	if maxOccurs == "unbounded" {
		return Unbounded, nil
	}
	return p.occursNumber("maxOccurs", maxOccurs)
}

func (p *ProfileParser) minOccurs(element *xsd.Element) (int, error) {
	minOccurs := element.MinOccurs
	if minOccurs == "" {
		minOccurs = "1"
	}
	return p.occursNumber("minOccurs", minOccurs)
}

// createNode builds the node of one structural element: a leaf when its type
// names a row type, an implicit sequence when it names another composite
// declaration, or a container over its own sequence/choice/element children.
func (p *ProfileParser) createNode(element *xsd.Element) (*Node, error) {
	minOccurs, err := p.minOccurs(element)
	if err != nil {
		return nil, err
	}
	maxOccurs, err := p.maxOccurs(element)
	if err != nil {
		return nil, err
	}
	node := NewNode(minOccurs, maxOccurs, element.Is("sequence"), element.Is("choice"))
	nodeType := element.Type
	if nodeType != "" && !strings.HasPrefix(nodeType, dsrf.TypePrefix) {
		return nil, p.schemaError(fmt.Sprintf(
			`The element "%s" with type "%s" does not have the "%s" prefix. `+
				`This is likely caused by the type of the parent element not `+
				`being recognized as a valid row type. Please ensure that all `+
				`row types in the XSD start with the prefix "%s".`,
			element.Name, nodeType, dsrf.TypePrefix, dsrf.RowTypePrefix))
	}
	nodeType = nodeType[strings.LastIndex(nodeType, ":")+1:]
	if nodeType != "" {
		if dsrf.IsRowType(nodeType) {
			node.RowType = nodeType[len(dsrf.RowTypePrefix):]
			return node, nil
		}
		if composite, ok := p.complexElements[nodeType]; ok {
			// All composite declarations are sequences.
			node.IsSequence = true
			for i := range composite.Children {
				child := &composite.Children[i]
				if !isProfileNodeTag(child) {
					continue
				}
				childNode, err := p.createNode(child)
				if err != nil {
					return nil, err
				}
				node.AddChild(childNode)
			}
			return node, nil
		}
		return nil, p.schemaError(fmt.Sprintf(
			`The element "%s" with type "%s" does not exist in the dsrf xsd file "%s".`,
			element.Name, nodeType, p.DSRFXSDFileName))
	}
	for i := range element.Children {
		child := &element.Children[i]
		if !isProfileNodeTag(child) {
			continue
		}
		childNode, err := p.createNode(child)
		if err != nil {
			return nil, err
		}
		node.AddChild(childNode)
	}
	return node, nil
}

// createProfileNode wraps the profile declaration's structural children in
// the single root node.
func (p *ProfileParser) createProfileNode(profileElement *xsd.Element) (*Node, error) {
	root := NewNode(1, 1, false, false)
	for i := range profileElement.Children {
		child := &profileElement.Children[i]
		if !isProfileNodeTag(child) {
			continue
		}
		childNode, err := p.createNode(child)
		if err != nil {
			return nil, err
		}
		root.AddChild(childNode)
	}
	return root, nil
}

// isProfileOrBlock reports whether a complex type is a profile or block
// declaration, that is any composite that is not a row definition.
func isProfileOrBlock(element *xsd.Element) bool {
	return element.Is("complexType") && !dsrf.IsRowType(element.Name)
}

func isProfile(element *xsd.Element) bool {
	return isProfileOrBlock(element) &&
		strings.HasSuffix(strings.ToLower(element.Name), "profile") &&
		!strings.HasPrefix(element.Name, "ResourceIdentificationGroupingFor")
}

// parseElements walks the top-level declarations. The first pass records
// every composite declaration so later references resolve out of order; the
// second pass locates the profile block declaration and collects the valid
// profile names for diagnostics.
func (p *ProfileParser) parseElements(root *xsd.Element, profileName string, parseComplexTypes, parseProfile bool) (*Node, []string, error) {
	var profileNode *Node
	var profileNames []string
	for i := range root.Children {
		element := &root.Children[i]
		if !isProfileOrBlock(element) {
			continue
		}
		if element.Name == "" {
			return nil, nil, p.schemaError(fmt.Sprintf(
				"Unexpected complexType without a name: %v", element.XMLName))
		}
		if parseProfile && isProfile(element) {
			profileNames = append(profileNames, element.Name)
		}
		if strings.EqualFold(element.Name, profileName+"Block") {
			if parseProfile {
				node, err := p.createProfileNode(element)
				if err != nil {
					return nil, nil, err
				}
				profileNode = node
			}
		} else if parseComplexTypes {
			p.complexElements[element.Name] = element
		}
	}
	return profileNode, profileNames, nil
}

// ParseProfile compiles the content model of the named profile. A profile
// that produces no grammar declaration yields a nil node together with the
// valid profile names found in the document; that is not itself an error and
// callers must check for it.
func (p *ProfileParser) ParseProfile(profileName string) (*Node, []string, error) {
	root, err := xsd.ParseFile(p.DSRFXSDFileName)
	if err != nil {
		return nil, nil, p.schemaError(err.Error())
	}
	// First scan the document for composite declarations so the profile may
	// reference declarations defined further down.
	if _, _, err := p.parseElements(root, profileName, true, false); err != nil {
		return nil, nil, err
	}
	return p.parseElements(root, profileName, false, true)
}
