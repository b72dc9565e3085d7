// Package schema compiles the sales-reporting XSD and the AVS
// (allowed-value-sets) XSD into executable row schemas: one ordered list of
// cell validators per row type, plus the enumeration table the fixed-string
// validators draw from. Compiled schemas are immutable and shared read-only
// by the block reader.
package schema

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ddexnet/dsrf"
	"github.com/ddexnet/dsrf/cells"
	"github.com/ddexnet/dsrf/internal/xsd"
)

// primitiveKinds maps the XSD primitive cell types to validator kinds.
var primitiveKinds = map[string]cells.Kind{
	"xs:integer":  cells.Integer,
	"xs:string":   cells.String,
	"xs:decimal":  cells.Decimal,
	"xs:boolean":  cells.Boolean,
	"xs:duration": cells.Duration,
	"xs:dateTime": cells.DateTime,
}

// RowSchemas maps a row type code to its cell validators. The list order is
// positional and matches the physical cell order in the file.
type RowSchemas map[string][]*cells.Validator

// RowTypes returns the known row type codes, for diagnostics.
func (r RowSchemas) RowTypes() []string {
	types := make([]string, 0, len(r))
	for t := range r {
		types = append(types, t)
	}
	return types
}

// EnumerationTable maps an enumeration type name to its allowed values,
// including values contributed transitively by union types.
type EnumerationTable map[string][]string

// LocateXSD returns the path of the sales-reporting XSD for a format version
// under the schemas directory.
func LocateXSD(schemaDir, version string) string {
	return filepath.Join(schemaDir, version, "sales-reporting-flat.xsd")
}

// LocateAVS returns the path of the allowed-value-sets XSD for an AVS version
// under the schemas directory.
func LocateAVS(schemaDir, version string) string {
	return filepath.Join(schemaDir, "avs", version, "allowed-value-sets.xsd")
}

// Parser compiles the two schema documents. When the AVS path is empty it is
// located through the xs:import of the AVS namespace in the main document.
type Parser struct {
	AVSXSDPath  string
	DSRFXSDPath string

	// SchemaDir resolves an AVS document referenced by import when no
	// explicit AVS path was given.
	SchemaDir string

	fixedStrings EnumerationTable
	simpleTypes  map[string]*xsd.Element
}

// NewParser returns a parser over the given documents. avsXSDPath may be
// empty; it is then resolved from the main document's AVS import.
func NewParser(avsXSDPath, dsrfXSDPath string) *Parser {
	return &Parser{AVSXSDPath: avsXSDPath, DSRFXSDPath: dsrfXSDPath}
}

func (p *Parser) schemaError(detail string) error {
	return &dsrf.XSDParsingFailure{
		XSDFileName: filepath.Base(p.DSRFXSDPath),
		Detail:      detail,
	}
}

// ParseXSDFile compiles the documents into row schemas. Malformed row type
// declarations are logged and omitted; document-level failures abort
// compilation.
func (p *Parser) ParseXSDFile(log *dsrf.Logger) (RowSchemas, error) {
	root, err := xsd.ParseFile(p.DSRFXSDPath)
	if err != nil {
		return nil, p.schemaError(err.Error())
	}
	if p.AVSXSDPath == "" {
		avsPath, err := p.avsLocationFromRoot(root)
		if err != nil {
			return nil, err
		}
		p.AVSXSDPath = avsPath
	}
	p.fixedStrings, err = ParseFixedStrings(p.AVSXSDPath)
	if err != nil {
		return nil, err
	}
	p.parseSimpleTypes(root)
	rows, err := p.parseComplexTypes(root, log)
	if err != nil {
		return nil, err
	}
	if err := log.Finalize(); err != nil {
		return nil, err
	}
	return rows, nil
}

// avsLocationFromRoot inspects the xs:import declarations for the AVS
// namespace and derives the AVS document path from its schemaLocation.
func (p *Parser) avsLocationFromRoot(root *xsd.Element) (string, error) {
	for i := range root.Children {
		child := &root.Children[i]
		if !child.Is("import") || child.Namespace != dsrf.AVSNamespace {
			continue
		}
		// The location ends in <...>/<avs version>/<file>; the version
		// selects the local AVS document.
		avsVersion := path.Base(path.Dir(child.SchemaLocation))
		return LocateAVS(p.SchemaDir, avsVersion), nil
	}
	return "", p.schemaError(
		fmt.Sprintf("No AVS import found (namespace = %s).", dsrf.AVSNamespace))
}

func (p *Parser) parseSimpleTypes(root *xsd.Element) {
	p.simpleTypes = make(map[string]*xsd.Element)
	for i := range root.Children {
		child := &root.Children[i]
		if child.Is("simpleType") {
			p.simpleTypes[child.Name] = child
		}
	}
}

// parseComplexTypes compiles every row type declaration into its validator
// list. A malformed declaration is logged and skipped so the remaining rows
// still compile.
func (p *Parser) parseComplexTypes(root *xsd.Element, log *dsrf.Logger) (RowSchemas, error) {
	rows := make(RowSchemas)
	for i := range root.Children {
		element := &root.Children[i]
		if !element.Is("complexType") || !dsrf.IsRowType(element.Name) {
			continue
		}
		rowType := element.Name[len(dsrf.RowTypePrefix):]
		rowCells, err := p.rowCells(element)
		if err != nil {
			if ferr := log.Error(err); ferr != nil {
				return nil, ferr
			}
			continue
		}
		rows[rowType] = rowCells
	}
	return rows, nil
}

// rowCells extracts the cell validators of one row type declaration in
// document order.
func (p *Parser) rowCells(row *xsd.Element) ([]*cells.Validator, error) {
	var validators []*cells.Validator
	for i := range row.Children {
		seq := &row.Children[i]
		if !seq.Is("sequence") {
			continue
		}
		for j := range seq.Children {
			element := &seq.Children[j]
			if !element.Is("element") {
				continue
			}
			v, err := p.cellValidator(element)
			if err != nil {
				return nil, err
			}
			validators = append(validators, v)
		}
	}
	return validators, nil
}

func (p *Parser) cellValidator(element *xsd.Element) (*cells.Validator, error) {
	cellName := element.Name
	required, err := p.isRequired(element)
	if err != nil {
		return nil, err
	}
	repeated := isRepeated(element)
	if element.Type == "" {
		// No type attribute: an inline declaration, valid only as a pattern
		// restriction.
		if pattern := inlinePattern(element); pattern != "" {
			return cells.NewPattern(pattern, cellName, required, repeated)
		}
		return nil, p.schemaError(
			fmt.Sprintf("Unexpected complexType %s", cellName))
	}
	return p.namedCellValidator(cellName, element.Type, required, repeated)
}

// namedCellValidator resolves a type reference: primitive kinds first, then
// the document's own simple types (pattern restrictions), then the
// enumeration table.
func (p *Parser) namedCellValidator(cellName, cellType string, required, repeated bool) (*cells.Validator, error) {
	if kind, ok := primitiveKinds[cellType]; ok {
		return cells.New(kind, cellName, required, repeated), nil
	}
	if strings.HasPrefix(cellType, dsrf.TypePrefix) {
		cellType = cellType[strings.LastIndex(cellType, ":")+1:]
	}
	if st, ok := p.simpleTypes[cellType]; ok {
		if pattern := restrictionPattern(st); pattern != "" {
			return cells.NewPattern(pattern, cellName, required, repeated)
		}
	}
	cellType = strings.Replace(cellType, dsrf.FixedStringPrefix, "", 1)
	if values, ok := p.fixedStrings[cellType]; ok {
		return cells.NewFixedString(values, cellName, required, repeated), nil
	}
	return nil, p.schemaError(fmt.Sprintf(
		"The cell type %s does not exist in the provided configuration files. "+
			"Please make sure you use the right files and version.", cellType))
}

func (p *Parser) isRequired(element *xsd.Element) (bool, error) {
	minOccurs := element.MinOccurs
	if minOccurs == "" {
		minOccurs = "1"
	}
	n, err := strconv.Atoi(minOccurs)
	if err != nil {
		return false, p.schemaError(fmt.Sprintf(
			`The value "%s" is invalid as a minOccurs. Expected an integer/"unbounded".`,
			element.MinOccurs))
	}
	return n == 1, nil
}

func isRepeated(element *xsd.Element) bool {
	return strings.ToLower(element.MaxOccurs) == "unbounded"
}

// restrictionPattern returns the pattern facet of a top-level simple type, or
// "" when the type is not a pattern restriction.
func restrictionPattern(simpleType *xsd.Element) string {
	if restriction := simpleType.Child("restriction"); restriction != nil {
		if pattern := restriction.Child("pattern"); pattern != nil {
			return pattern.Value
		}
	}
	return ""
}

// inlinePattern returns the pattern facet of an inline simpleType child, or
// "".
func inlinePattern(element *xsd.Element) string {
	if st := element.Child("simpleType"); st != nil {
		return restrictionPattern(st)
	}
	return ""
}
