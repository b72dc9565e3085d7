package reader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/ddexnet/dsrf"
	"github.com/ddexnet/dsrf/internal/tsv"
	"github.com/ddexnet/dsrf/schema"
)

// BlockStream is the lazy, forward-only sequence of a file's blocks. The
// consumer controls pacing by pulling one block at a time; no more than the
// in-progress block's rows are buffered. The stream closes its file handle
// when exhausted, on fatal error, or through Close.
type BlockStream struct {
	r          *FileReader
	file       io.Closer
	gz         *gzip.Reader
	scanner    *bufio.Scanner
	fileNumber int

	rows        schema.RowSchemas
	rowNumber   int
	blockNumber int
	current     *dsrf.Block
	done        bool
}

func newBlockStream(r *FileReader, file io.Closer, gz *gzip.Reader, src io.Reader, fileNumber int) *BlockStream {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &BlockStream{
		r:          r,
		file:       file,
		gz:         gz,
		scanner:    scanner,
		fileNumber: fileNumber,
		rows:       r.cfg.Rows,
		current:    &dsrf.Block{FileNumber: fileNumber},
	}
}

// Close releases the underlying file. It is safe to call more than once and
// after the stream is exhausted.
func (s *BlockStream) Close() error {
	if s.file == nil {
		return nil
	}
	if s.gz != nil {
		_ = s.gz.Close()
		s.gz = nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *BlockStream) fail(err error) (*dsrf.Block, error) {
	s.done = true
	_ = s.Close()
	return nil, err
}

// Next returns the next completed block, or io.EOF once the file is
// exhausted. End of input flushes whatever block is currently open. Row and
// cell failures are logged and never end the stream; schema resolution and
// I/O failures do.
func (s *BlockStream) Next() (*dsrf.Block, error) {
	if s.done {
		return nil, io.EOF
	}
	for s.scanner.Scan() {
		s.rowNumber++
		fields := tsv.Split(s.scanner.Text())
		if len(fields) > 0 && strings.HasPrefix(fields[0], dsrf.CommentSign) {
			continue
		}
		completed, err := s.processLine(fields)
		if err != nil {
			return s.fail(err)
		}
		if completed != nil {
			return completed, nil
		}
	}
	if err := s.scanner.Err(); err != nil {
		return s.fail(fmt.Errorf("dsrf: read report file %s: %w", s.r.fileName, err))
	}
	s.done = true
	_ = s.Close()
	final := s.current
	s.current = nil
	return final, nil
}

// processLine advances the block state machine by one record. It returns the
// block the record completed, if any. A non-nil error is fatal for the
// stream; row-local failures are logged and swallowed here.
func (s *BlockStream) processLine(fields []string) (*dsrf.Block, error) {
	rowType, rerr := s.rowType(fields)
	if rerr != nil {
		if ferr := s.r.log.Error(rerr); ferr != nil {
			return nil, ferr
		}
		return nil, nil
	}

	var completed *dsrf.Block
	end, eerr := s.isEndOfBlock(fields, rowType)
	if eerr != nil {
		if ferr := s.r.log.Error(eerr); ferr != nil {
			return nil, ferr
		}
		return nil, nil
	}
	if end {
		completed = s.current
		s.current = &dsrf.Block{FileNumber: s.fileNumber}
	}

	if dsrf.HeaderRowPattern.MatchString(rowType) || dsrf.IsFootRow(rowType) {
		s.current.Type = dsrf.HeadBlock
		if dsrf.IsFootRow(rowType) {
			s.r.log.Infof("Start parsing the FOOT block in file number %d.", s.fileNumber)
			s.current.Type = dsrf.FootBlock
		}
		if rowType == "HEAD" {
			if err := s.resolveSchema(fields); err != nil {
				return completed, err
			}
			if len(fields) > 1 {
				s.current.Version = fields[1]
			}
			s.current.FileName = s.r.fileName
		}
		row, err := s.rowObject(fields, rowType, s.blockNumber)
		if err != nil {
			return completed, err
		}
		s.current.Rows = append(s.current.Rows, *row)
		return completed, nil
	}

	blockNumber, berr := s.getBlockNumber(fields)
	if berr != nil {
		if ferr := s.r.log.Error(berr); ferr != nil {
			return completed, ferr
		}
		return completed, nil
	}
	s.blockNumber = blockNumber
	row, err := s.rowObject(fields, rowType, blockNumber)
	if err != nil {
		return completed, err
	}
	if s.current.Type == dsrf.HeadBlock && len(s.current.Rows) == 0 {
		// First row of a fresh block: this run is a body block.
		s.current.Type = dsrf.BodyBlock
		s.current.Number = blockNumber
		s.r.log.Infof("Start parsing block number %d in file number %d.",
			blockNumber, s.fileNumber)
	}
	s.current.Rows = append(s.current.Rows, *row)
	return completed, nil
}

// rowType extracts and normalizes the record's row type code.
func (s *BlockStream) rowType(fields []string) (string, error) {
	if len(fields) == 0 {
		return "", &dsrf.RowValidationFailure{
			RowNumber: s.rowNumber,
			FileName:  s.r.fileName,
			Detail:    "It is not permissible to include empty Records.",
		}
	}
	rowType := dsrf.NormalizeRowType(fields[0])
	if s.rows != nil {
		if _, ok := s.rows[rowType]; !ok {
			return "", &dsrf.RowValidationFailure{
				RowNumber: s.rowNumber,
				FileName:  s.r.fileName,
				Detail: fmt.Sprintf(
					"Row type %s does not exist in the XSD. Valid row types are: %v. ",
					rowType, s.rows.RowTypes()),
			}
		}
	}
	return rowType, nil
}

// isEndOfBlock decides whether the record closes the currently open block.
func (s *BlockStream) isEndOfBlock(fields []string, rowType string) (bool, error) {
	switch s.current.Type {
	case dsrf.HeadBlock:
		// Covers both the open header block and a fresh, still untyped one.
		return !dsrf.HeaderRowPattern.MatchString(rowType), nil
	case dsrf.FootBlock:
		if !dsrf.IsFootRow(rowType) {
			// The footer must be the terminal block of the file.
			if ferr := s.r.log.Error(&dsrf.RowValidationFailure{
				RowNumber: s.rowNumber,
				FileName:  s.r.fileName,
				Detail: fmt.Sprintf(
					"Row type %s appears after the FOOT block; the FOOT block must terminate the file.",
					rowType),
			}); ferr != nil {
				return false, ferr
			}
			return true, nil
		}
		return false, nil
	default:
		if dsrf.IsFootRow(rowType) {
			return true, nil
		}
		blockNumber, err := s.getBlockNumber(fields)
		if err != nil {
			return false, err
		}
		return s.current.Number != blockNumber, nil
	}
}

// getBlockNumber parses the record's explicit block id cell.
func (s *BlockStream) getBlockNumber(fields []string) (int, error) {
	var raw string
	if len(fields) > 1 {
		raw = fields[1]
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &dsrf.RowValidationFailure{
			RowNumber: s.rowNumber,
			FileName:  s.r.fileName,
			Detail: fmt.Sprintf(
				"The block id %q in line number %d was expected to be an integer.",
				strings.ToUpper(raw), s.rowNumber),
		}
	}
	return n, nil
}

// resolveSchema runs the schema compiler the first time the literal HEAD row
// is seen, unless row schemas were supplied up front. This must complete
// before any body row is validated.
func (s *BlockStream) resolveSchema(fields []string) error {
	if s.rows != nil {
		return nil
	}
	xsdPath := s.r.cfg.DSRFXSDPath
	if xsdPath == "" {
		if len(fields) < 4 {
			return &dsrf.RowValidationFailure{
				RowNumber: s.rowNumber,
				FileName:  s.r.fileName,
				Detail:    "The HEAD row does not carry a profile name and version.",
			}
		}
		profileName, profileVersion := fields[2], fields[3]
		s.r.log.Infof("Detected profile and version from HEAD: %s (%s)",
			profileName, profileVersion)
		xsdPath = schema.LocateXSD(s.r.cfg.SchemaDir, profileVersion)
	}
	s.r.log.Infof("XSD file location: %s", xsdPath)
	parser := schema.NewParser(s.r.cfg.AVSXSDPath, xsdPath)
	parser.SchemaDir = s.r.cfg.SchemaDir
	rows, err := parser.ParseXSDFile(s.r.log)
	if err != nil {
		return err
	}
	s.rows = rows
	return nil
}

// rowObject zips the record's cells positionally against the row schema and
// assembles the decoded row. Cells that failed validation or were empty and
// optional are omitted.
func (s *BlockStream) rowObject(fields []string, rowType string, blockNumber int) (*dsrf.Row, error) {
	if s.rows == nil {
		return nil, &dsrf.ReportValidationFailure{
			Detail: fmt.Sprintf(
				"Schema parsing was unsuccessful. Please check the log file at %s",
				s.r.log.LogPath()),
		}
	}
	row := &dsrf.Row{Type: rowType, RowNumber: s.rowNumber}
	for i, validator := range s.rows[rowType] {
		if i >= len(fields) {
			break
		}
		if validator == nil {
			continue
		}
		cell, ferr := validator.ValidateValue(
			fields[i], s.rowNumber, s.r.fileName, blockNumber, s.r.log)
		if ferr != nil {
			return nil, ferr
		}
		if cell != nil {
			row.Cells = append(row.Cells, *cell)
		}
	}
	return row, nil
}
