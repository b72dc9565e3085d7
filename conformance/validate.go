package conformance

import (
	"fmt"

	"github.com/ddexnet/dsrf"
)

// BlockConformanceFailure reports a body block whose row sequence is not
// generated by the profile grammar. It carries the full structural context:
// where the match stopped, the rendered expected grammar and the actual row
// type sequence.
type BlockConformanceFailure struct {
	// RowNumber is the source line of the first unmatched row.
	RowNumber     int
	RowsValidated int
	BlockNumber   int
	FileNumber    int
	Node          *Node
	Rows          []dsrf.Row
}

func (e *BlockConformanceFailure) Error() string {
	types := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		types[i] = r.Type
	}
	return fmt.Sprintf(
		"Block %d starting on row %d in file number %d is non-conformant.\n"+
			"Expected structure:\n%s\nActual structure:\n%v",
		e.BlockNumber, e.RowNumber, e.FileNumber, e.Node, types)
}

func isRowMatching(rows []dsrf.Row, index int, rowType string) bool {
	return index < len(rows) && rowType == rows[index].Type
}

// singleChoice matches one repetition of a choice: the first child that
// consumes any rows wins; children are never compared for a better match.
func singleChoice(children []*Node, rows []dsrf.Row, index int) int {
	for _, child := range children {
		if validated := matchNode(child, rows, index); validated > 0 {
			return validated
		}
	}
	return 0
}

// singleSequence matches one repetition of a sequence, bailing at the first
// required child that consumed nothing.
func singleSequence(children []*Node, rows []dsrf.Row, index int) int {
	total := 0
	for _, child := range children {
		validated := matchNode(child, rows, index)
		index += validated
		if validated == 0 && child.MinOccurs > 0 {
			return 0
		}
		total += validated
	}
	return total
}

// matchNode returns the number of rows from rows[index:] consumed by the
// node, greedily. Zero consumed signals failure upward.
func matchNode(node *Node, rows []dsrf.Row, index int) int {
	// Leaf: consume consecutive rows of the node's type.
	if len(node.Children) == 0 {
		occurs := 0
		for occurs < node.MaxOccurs {
			if !isRowMatching(rows, index, node.RowType) {
				if occurs < node.MinOccurs {
					return 0
				}
				return occurs
			}
			index++
			occurs++
		}
		return occurs
	}
	if node.IsChoice {
		occurs := 0
		validated := 0
		for occurs < node.MaxOccurs {
			n := singleChoice(node.Children, rows, index)
			validated += n
			if n == 0 {
				if occurs < node.MinOccurs {
					return 0
				}
				return validated
			}
			index += n
			occurs++
		}
		return validated
	}
	if node.IsSequence {
		occurs := 0
		validated := 0
		for occurs < node.MaxOccurs {
			n := singleSequence(node.Children, rows, index)
			if n == 0 {
				if occurs < node.MinOccurs {
					return 0
				}
				return validated
			}
			occurs++
			index += n
			validated += n
		}
		return validated
	}
	// Root: the single child must consume the whole block.
	return matchNode(node.Children[0], rows, index)
}

// ValidateNode matches the block's rows against the profile tree rooted at
// node and returns the number of rows validated. A partial match raises a
// BlockConformanceFailure; whether that aborts the run or just the block is
// the caller's decision.
func ValidateNode(node *Node, rows []dsrf.Row, blockNumber, fileNumber int) (int, error) {
	validated := matchNode(node, rows, 0)
	if len(rows) > 0 && validated != len(rows) {
		unmatched := validated
		if unmatched >= len(rows) {
			unmatched = len(rows) - 1
		}
		return 0, &BlockConformanceFailure{
			RowNumber:     rows[unmatched].RowNumber,
			RowsValidated: validated,
			BlockNumber:   blockNumber,
			FileNumber:    fileNumber,
			Node:          node,
			Rows:          rows,
		}
	}
	return validated, nil
}
