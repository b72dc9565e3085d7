package conformance

import (
	"io"

	"github.com/ddexnet/dsrf"
)

// BlockSource is a pull-based sequence of decoded blocks. Next returns
// io.EOF once the sequence is exhausted.
type BlockSource interface {
	Next() (*dsrf.Block, error)
}

// Processor validates every body block pulled from a source against one
// profile content model. Header and footer blocks are passed over; only body
// blocks carry profile semantics.
type Processor struct {
	node *Node
}

// NewProcessor returns a processor over the given profile tree.
func NewProcessor(node *Node) *Processor { return &Processor{node: node} }

// ProcessBlock validates a single block and returns the number of rows
// validated. Non-body blocks validate trivially.
func (p *Processor) ProcessBlock(block *dsrf.Block) (int, error) {
	if block.Type != dsrf.BodyBlock {
		return 0, nil
	}
	return ValidateNode(p.node, block.Rows, block.Number, block.FileNumber)
}

// ProcessReport drains the source, validating each block, and returns how
// many blocks and rows validated. The first non-conformant block aborts with
// its BlockConformanceFailure.
func (p *Processor) ProcessReport(source BlockSource) (blocks, rows int, err error) {
	for {
		block, err := source.Next()
		if err == io.EOF {
			return blocks, rows, nil
		}
		if err != nil {
			return blocks, rows, err
		}
		n, err := p.ProcessBlock(block)
		if err != nil {
			return blocks, rows, err
		}
		rows += n
		blocks++
	}
}
