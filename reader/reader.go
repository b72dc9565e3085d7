// Package reader streams one flat file of a DSRF report into typed blocks.
// The file is tokenized line by line, rows are validated against the
// compiled row schemas, and maximal runs of header, body and footer rows are
// assembled into Block records handed out through a lazy pull stream.
package reader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/ddexnet/dsrf"
	"github.com/ddexnet/dsrf/schema"
)

// Config carries the schema sources of a parse run. When Rows is nil and the
// XSD path is empty, the schema is resolved from the profile name and
// version embedded in the HEAD row, looked up under SchemaDir.
type Config struct {
	DSRFXSDPath string
	AVSXSDPath  string
	SchemaDir   string
	Rows        schema.RowSchemas
}

// FileReader parses a single file of a DSRF report.
type FileReader struct {
	log      *dsrf.Logger
	cfg      Config
	filePath string
	fileName string
}

// NewFileReader returns a reader over the file at filePath.
func NewFileReader(log *dsrf.Logger, cfg Config, filePath string) *FileReader {
	return &FileReader{
		log:      log,
		cfg:      cfg,
		filePath: filePath,
		fileName: filepath.Base(filePath),
	}
}

// IsCompressed reports whether the file carries the gzip suffix.
func (r *FileReader) IsCompressed() bool {
	return strings.HasSuffix(r.fileName, dsrf.GzipSuffix)
}

// Parse opens the file and returns the stream of its blocks. fileNumber is
// the position of the file within the report (eg. "3of4" -> 3).
func (r *FileReader) Parse(fileNumber int) (*BlockStream, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("dsrf: open report file: %w", err)
	}
	var src io.Reader = f
	var gz *gzip.Reader
	if r.IsCompressed() {
		gz, err = gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("dsrf: open compressed report file: %w", err)
		}
		src = gz
	}
	r.log.Infof("Start parsing the HEAD block in file number %d.", fileNumber)
	return newBlockStream(r, f, gz, src, fileNumber), nil
}
