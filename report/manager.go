package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/ddexnet/dsrf"
	"github.com/ddexnet/dsrf/reader"
	"github.com/ddexnet/dsrf/schema"
)

// File is one constituent file of a report, with its position within the
// report (eg. "3of4" -> 3).
type File struct {
	Path   string
	Number int
}

// Manager parses a whole report. It compiles the schema once when an XSD is
// supplied, parses each file in turn, validates that body block numbers are
// unique within the file as well as across the report, and writes every
// block to the sink.
type Manager struct {
	log  *dsrf.Logger
	cfg  reader.Config
	sink Sink

	// WriteHead controls whether HEAD blocks are written to the sink.
	WriteHead bool
}

// NewManager returns a manager writing decoded blocks to sink.
func NewManager(log *dsrf.Logger, cfg reader.Config, sink Sink) *Manager {
	return &Manager{log: log, cfg: cfg, sink: sink, WriteHead: true}
}

// ParseReport parses every file of the report. Validation failures are
// accumulated on the logger; the returned error is the end-of-run summary
// failure, or a fatal resource/transport failure.
func (m *Manager) ParseReport(files []File) error {
	if m.cfg.Rows == nil && m.cfg.DSRFXSDPath != "" {
		parser := schema.NewParser(m.cfg.AVSXSDPath, m.cfg.DSRFXSDPath)
		parser.SchemaDir = m.cfg.SchemaDir
		rows, err := parser.ParseXSDFile(m.log)
		if err != nil {
			return err
		}
		m.cfg.Rows = rows
	}
	// Body block numbers seen so far, per file number.
	seen := make(map[int]map[int]struct{})
	for _, file := range files {
		if err := m.parseFile(file, seen); err != nil {
			return err
		}
	}
	return m.log.Finalize()
}

func (m *Manager) parseFile(file File, seen map[int]map[int]struct{}) error {
	m.log.Infof("Start parsing file number %d.", file.Number)
	stream, err := reader.NewFileReader(m.log, m.cfg, file.Path).Parse(file.Number)
	if err != nil {
		return err
	}
	defer stream.Close()
	for {
		block, err := stream.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if block.Type == dsrf.BodyBlock {
			if ferr := m.checkBlockNumber(block, seen); ferr != nil {
				return ferr
			}
		}
		if block.Type == dsrf.HeadBlock && !m.WriteHead {
			continue
		}
		if err := m.sink.Write(block); err != nil {
			return fmt.Errorf("dsrf: write block to sink: %w", err)
		}
	}
}

// checkBlockNumber flags a body block number that already appeared, in this
// file or in any other file of the report.
func (m *Manager) checkBlockNumber(block *dsrf.Block, seen map[int]map[int]struct{}) error {
	for _, fileNumber := range sortedFileNumbers(seen) {
		if _, dup := seen[fileNumber][block.Number]; dup {
			err := &dsrf.ReportValidationFailure{Detail: fmt.Sprintf(
				"The block number %d in file number %d already exists in file number %d.",
				block.Number, block.FileNumber, fileNumber)}
			if ferr := m.log.Error(err); ferr != nil {
				return ferr
			}
			return nil
		}
	}
	if seen[block.FileNumber] == nil {
		seen[block.FileNumber] = make(map[int]struct{})
	}
	seen[block.FileNumber][block.Number] = struct{}{}
	return nil
}

// sortedFileNumbers keeps the duplicate diagnostic deterministic.
func sortedFileNumbers(seen map[int]map[int]struct{}) []int {
	numbers := make([]int, 0, len(seen))
	for n := range seen {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}
