// Package conformance verifies that the rows of a body block conform to the
// profile's content model. The model is a tree of nodes compiled from the
// sales-reporting XSD; matching is greedy and does not backtrack across
// alternatives, exactly as the block diagnostics expect.
package conformance

import (
	"math"
	"strings"
)

// Unbounded is the MaxOccurs value of an "unbounded" declaration.
const Unbounded = math.MaxInt

// QuantifierLegend explains the rendering symbols appended to conformance
// diagnostics.
const QuantifierLegend = "\n\nQuantifiers:\n" +
	"\t* Zero or more occurrences\n" +
	"\t+ One or more occurrences\n" +
	"\t? Zero or one occurrences\n"

// Node is one node of the content-model tree: the root, a sequence, a choice
// or a row-type leaf. Nodes are immutable after the profile is parsed.
type Node struct {
	MinOccurs  int
	MaxOccurs  int
	IsSequence bool
	IsChoice   bool
	RowType    string
	Children   []*Node
}

// NewNode returns a node with the given occurrence bounds and shape. The root
// node is a NewNode(1, 1, false, false) holding a single child.
func NewNode(minOccurs, maxOccurs int, isSequence, isChoice bool) *Node {
	return &Node{
		MinOccurs:  minOccurs,
		MaxOccurs:  maxOccurs,
		IsSequence: isSequence,
		IsChoice:   isChoice,
	}
}

// AddChild appends a child node.
func (n *Node) AddChild(child *Node) { n.Children = append(n.Children, child) }

// Quantification summarizes the occurrence bounds in a quantifier symbol:
// "?" for zero-or-one, "*" for zero-or-more, "+" for one-or-more and ""
// otherwise. Bound combinations outside these shapes also render as "".
func (n *Node) Quantification() string {
	if n.MinOccurs == 0 {
		if n.MaxOccurs == 1 {
			return "?"
		}
		return "*"
	}
	if n.MinOccurs == 1 && n.MaxOccurs > 1 {
		return "+"
	}
	return ""
}

// String renders the node as the expected-structure text of conformance
// diagnostics.
func (n *Node) String() string {
	var s string
	switch {
	case n.IsSequence:
		parts := make([]string, len(n.Children))
		for i, child := range n.Children {
			parts[i] = child.String()
		}
		s = "Sequence (" + strings.Join(parts, " and ") + ")"
	case n.IsChoice:
		parts := make([]string, len(n.Children))
		for i, child := range n.Children {
			parts[i] = child.String()
		}
		s = "[" + strings.Join(parts, " or ") + "]"
	case n.RowType != "":
		s = n.RowType
	default:
		s = n.Children[0].String()
	}
	return s + n.Quantification()
}
