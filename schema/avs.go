package schema

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ddexnet/dsrf"
	"github.com/ddexnet/dsrf/internal/xsd"
)

// ParseFixedStrings reads the allowed-value-sets document into an
// EnumerationTable. Literal enumerations are collected first; union types
// then concatenate the values of their member types, repeating until no
// union is left unresolved.
func ParseFixedStrings(avsXSDPath string) (EnumerationTable, error) {
	root, err := xsd.ParseFile(avsXSDPath)
	if err != nil {
		return nil, &dsrf.XSDParsingFailure{
			XSDFileName: filepath.Base(avsXSDPath),
			Detail:      err.Error(),
		}
	}
	table, unions, err := fixedStringValues(root, avsXSDPath)
	if err != nil {
		return nil, err
	}
	if err := resolveUnions(table, unions, avsXSDPath); err != nil {
		return nil, err
	}
	return table, nil
}

// fixedStringValues collects the literal enumerations and records the union
// declarations for the second pass.
func fixedStringValues(root *xsd.Element, avsXSDPath string) (EnumerationTable, map[string][]string, error) {
	table := make(EnumerationTable)
	unions := make(map[string][]string)
	for i := range root.Children {
		element := &root.Children[i]
		if !element.Is("simpleType") {
			continue
		}
		name := element.Name
		if union := element.Child("union"); union != nil {
			members := strings.Fields(
				strings.ReplaceAll(union.MemberTypes, dsrf.FixedStringPrefix, ""))
			unions[name] = members
			table[name] = nil
			continue
		}
		restriction := element.Child("restriction")
		if restriction == nil {
			return nil, nil, malformedAVS(avsXSDPath, name)
		}
		values := []string{}
		for j := range restriction.Children {
			child := &restriction.Children[j]
			if !child.Is("enumeration") {
				continue
			}
			if child.Value == "" {
				return nil, nil, malformedAVS(avsXSDPath, name)
			}
			values = append(values, child.Value)
		}
		table[name] = values
	}
	return table, unions, nil
}

// resolveUnions expands union types until fixpoint. A member naming neither
// a literal enumeration nor an already-resolved union is a schema error.
func resolveUnions(table EnumerationTable, unions map[string][]string, avsXSDPath string) error {
	for len(unions) > 0 {
		progress := false
		for name, members := range unions {
			resolved := true
			for _, member := range members {
				if _, pending := unions[member]; pending {
					resolved = false
					break
				}
				if _, ok := table[member]; !ok {
					return &dsrf.XSDParsingFailure{
						XSDFileName: filepath.Base(avsXSDPath),
						Detail: fmt.Sprintf(
							"The union type %s references an undeclared member type %s.",
							name, member),
					}
				}
			}
			if !resolved {
				continue
			}
			for _, member := range members {
				table[name] = append(table[name], table[member]...)
			}
			delete(unions, name)
			progress = true
		}
		if !progress {
			pending := make([]string, 0, len(unions))
			for name := range unions {
				pending = append(pending, name)
			}
			return &dsrf.XSDParsingFailure{
				XSDFileName: filepath.Base(avsXSDPath),
				Detail: fmt.Sprintf(
					"Circular union member types could not be resolved: %v.", pending),
			}
		}
	}
	return nil
}

func malformedAVS(avsXSDPath, name string) error {
	return &dsrf.XSDParsingFailure{
		XSDFileName: filepath.Base(avsXSDPath),
		Detail:      fmt.Sprintf("Malformed AVS xsd element: %s.", name),
	}
}
