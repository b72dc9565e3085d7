// Package report orchestrates the parsing of all files of one DSRF report:
// it drives the per-file block readers, enforces report-wide block number
// uniqueness, and hands every decoded block to a sink for the downstream
// consumer.
package report

import (
	"io"

	json "github.com/goccy/go-json"

	"github.com/ddexnet/dsrf"
)

// Sink receives the decoded blocks of a report in file order. A write
// failure is a transport failure and aborts the whole run.
type Sink interface {
	Write(block *dsrf.Block) error
}

// JSONLinesSink encodes each block as one JSON document per line.
type JSONLinesSink struct {
	enc *json.Encoder
}

// NewJSONLinesSink returns a sink writing JSON lines to w.
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(w)}
}

// Write encodes the block followed by a newline.
func (s *JSONLinesSink) Write(block *dsrf.Block) error {
	return s.enc.Encode(block)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(block *dsrf.Block) error

// Write calls f.
func (f SinkFunc) Write(block *dsrf.Block) error { return f(block) }
