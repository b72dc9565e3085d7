// Package xsd reads the XSD-dialect schema documents into a raw element
// tree. It is deliberately not a schema validator: the compiler packages walk
// the tree and interpret only the handful of shapes the DSRF documents use.
package xsd

import (
	"encoding/xml"
	"io"
	"os"
)

// Namespace is the W3C XML Schema namespace the structural tags live in.
const Namespace = "http://www.w3.org/2001/XMLSchema"

// Element is one node of the parsed document. Only the attributes the DSRF
// documents use are retained.
type Element struct {
	XMLName xml.Name

	Name           string `xml:"name,attr"`
	Type           string `xml:"type,attr"`
	MinOccurs      string `xml:"minOccurs,attr"`
	MaxOccurs      string `xml:"maxOccurs,attr"`
	Value          string `xml:"value,attr"`
	MemberTypes    string `xml:"memberTypes,attr"`
	Namespace      string `xml:"namespace,attr"`
	SchemaLocation string `xml:"schemaLocation,attr"`

	Children []Element `xml:",any"`
}

// Is reports whether the element is the named XML Schema tag.
func (e *Element) Is(local string) bool {
	return e.XMLName.Space == Namespace && e.XMLName.Local == local
}

// Child returns the first direct child with the given XML Schema tag, or nil.
func (e *Element) Child(local string) *Element {
	for i := range e.Children {
		if e.Children[i].Is(local) {
			return &e.Children[i]
		}
	}
	return nil
}

// Parse reads a schema document into its root element.
func Parse(r io.Reader) (*Element, error) {
	var root Element
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// ParseFile reads the schema document at path into its root element.
func ParseFile(path string) (*Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}
