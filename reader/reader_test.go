package reader

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/ddexnet/dsrf"
	"github.com/ddexnet/dsrf/cells"
	"github.com/ddexnet/dsrf/schema"
)

// testSchemas compiles nothing: the row schemas are assembled by hand so the
// reader tests do not depend on schema fixtures.
func testSchemas() schema.RowSchemas {
	return schema.RowSchemas{
		"HEAD": {
			cells.New(cells.String, "RecordType", true, false),
			cells.New(cells.String, "Version", true, false),
			cells.New(cells.String, "Profile", true, false),
			cells.New(cells.String, "ProfileVersion", false, false),
		},
		"SY02": {
			cells.New(cells.String, "RecordType", true, false),
			cells.New(cells.Integer, "SummaryRecordId", true, false),
		},
		"AS01": {
			cells.New(cells.String, "RecordType", true, false),
			cells.New(cells.String, "BlockId", true, false),
			cells.New(cells.String, "Title", true, false),
			cells.New(cells.String, "Artists", false, true),
		},
		"MW01": {
			cells.New(cells.String, "RecordType", true, false),
			cells.New(cells.String, "BlockId", true, false),
			cells.New(cells.String, "WorkTitle", false, false),
		},
		"FOOT": {
			cells.New(cells.String, "RecordType", true, false),
			cells.New(cells.Integer, "LineCount", true, false),
		},
	}
}

const reportBody = "HEAD\t3.0\tUgcProfile\t1.2\n" +
	"SY02\t1\n" +
	"# comment records are skipped entirely\n" +
	"AS01\t1\tMy Song\tann|ben\n" +
	"MW01\t1\tMy Work\n" +
	"AS01\t2\tOther Song\n" +
	"FOOT\t6\n"

func writeReport(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func writeCompressedReport(t *testing.T, name, body string) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func collectBlocks(t *testing.T, stream *BlockStream) []dsrf.Block {
	t.Helper()
	var blocks []dsrf.Block
	for {
		block, err := stream.Next()
		if err == io.EOF {
			return blocks
		}
		require.NoError(t, err)
		if block != nil {
			blocks = append(blocks, *block)
		}
	}
}

func TestParseBlocks(t *testing.T) {
	log := dsrf.NewNopLogger(false)
	r := NewFileReader(log, Config{Rows: testSchemas()}, writeReport(t, "report.tsv", reportBody))
	stream, err := r.Parse(1)
	require.NoError(t, err)
	defer stream.Close()

	blocks := collectBlocks(t, stream)
	require.Len(t, blocks, 4)

	head := blocks[0]
	require.Equal(t, dsrf.HeadBlock, head.Type)
	require.Equal(t, "3.0", head.Version)
	require.Equal(t, "report.tsv", head.FileName)
	require.Equal(t, 1, head.FileNumber)
	require.Equal(t, []string{"HEAD", "SY02"}, head.RowTypes())

	require.Equal(t, dsrf.BodyBlock, blocks[1].Type)
	require.Equal(t, 1, blocks[1].Number)
	require.Equal(t, []string{"AS01", "MW01"}, blocks[1].RowTypes())
	// Row numbers are physical line numbers; the comment line still counts.
	require.Equal(t, 4, blocks[1].Rows[0].RowNumber)
	require.Equal(t, 5, blocks[1].Rows[1].RowNumber)

	require.Equal(t, dsrf.BodyBlock, blocks[2].Type)
	require.Equal(t, 2, blocks[2].Number)
	require.Equal(t, []string{"AS01"}, blocks[2].RowTypes())

	foot := blocks[3]
	require.Equal(t, dsrf.FootBlock, foot.Type)
	require.Equal(t, []string{"FOOT"}, foot.RowTypes())

	errs, warns := log.Counts()
	require.Zero(t, errs)
	require.Zero(t, warns)
}

func TestParseDecodesCells(t *testing.T) {
	log := dsrf.NewNopLogger(false)
	r := NewFileReader(log, Config{Rows: testSchemas()}, writeReport(t, "report.tsv", reportBody))
	stream, err := r.Parse(1)
	require.NoError(t, err)
	defer stream.Close()
	blocks := collectBlocks(t, stream)

	as01 := blocks[1].Rows[0]
	require.Equal(t, "Title", as01.Cells[2].Name)
	require.Equal(t, []string{"My Song"}, as01.Cells[2].StringValues)
	require.Equal(t, []string{"ann", "ben"}, as01.Cells[3].StringValues)

	foot := blocks[3].Rows[0]
	require.Equal(t, []int64{6}, foot.Cells[1].IntegerValues)
}

func TestParseGzipMatchesPlain(t *testing.T) {
	parse := func(path string) []dsrf.Block {
		log := dsrf.NewNopLogger(false)
		stream, err := NewFileReader(log, Config{Rows: testSchemas()}, path).Parse(1)
		require.NoError(t, err)
		defer stream.Close()
		return collectBlocks(t, stream)
	}
	plain := parse(writeReport(t, "report.tsv", reportBody))
	compressed := parse(writeCompressedReport(t, "report.tsv.gz", reportBody))

	// The file name recorded on the HEAD block is the only expected
	// difference.
	for i := range plain {
		plain[i].FileName = ""
		compressed[i].FileName = ""
	}
	if diff := cmp.Diff(plain, compressed); diff != "" {
		t.Errorf("plain and gzip block streams differ (-plain +gzip):\n%s", diff)
	}
}

func TestIsCompressed(t *testing.T) {
	log := dsrf.NewNopLogger(false)
	require.True(t, NewFileReader(log, Config{}, "x/report.tsv.gz").IsCompressed())
	require.False(t, NewFileReader(log, Config{}, "x/report.tsv").IsCompressed())
}

func TestUnknownRowTypeIsLoggedAndSkipped(t *testing.T) {
	body := "HEAD\t3.0\tUgcProfile\t1.2\n" +
		"XX99\t1\tbogus\n" +
		"AS01\t1\tMy Song\n" +
		"FOOT\t3\n"
	log := dsrf.NewNopLogger(false)
	stream, err := NewFileReader(log, Config{Rows: testSchemas()}, writeReport(t, "report.tsv", body)).Parse(1)
	require.NoError(t, err)
	defer stream.Close()

	blocks := collectBlocks(t, stream)
	require.Len(t, blocks, 3)
	require.Equal(t, []string{"AS01"}, blocks[1].RowTypes())

	errs, _ := log.Counts()
	require.Equal(t, 1, errs)
	require.Contains(t, log.FirstError().Error(), "Row type XX99 does not exist in the XSD.")
}

func TestEmptyRecordIsLogged(t *testing.T) {
	body := "HEAD\t3.0\tUgcProfile\t1.2\n" +
		"\n" +
		"FOOT\t2\n"
	log := dsrf.NewNopLogger(false)
	stream, err := NewFileReader(log, Config{Rows: testSchemas()}, writeReport(t, "report.tsv", body)).Parse(1)
	require.NoError(t, err)
	defer stream.Close()

	collectBlocks(t, stream)
	require.Equal(t, 1, loggedErrors(log))
	require.Contains(t, log.FirstError().Error(),
		"It is not permissible to include empty Records.")
}

func TestInvalidBlockIDIsLogged(t *testing.T) {
	body := "HEAD\t3.0\tUgcProfile\t1.2\n" +
		"AS01\tBL1\tMy Song\n" +
		"FOOT\t2\n"
	log := dsrf.NewNopLogger(false)
	stream, err := NewFileReader(log, Config{Rows: testSchemas()}, writeReport(t, "report.tsv", body)).Parse(1)
	require.NoError(t, err)
	defer stream.Close()

	blocks := collectBlocks(t, stream)
	// The HEAD block still completes; the unparseable body row is dropped.
	require.Equal(t, dsrf.HeadBlock, blocks[0].Type)
	require.Contains(t, log.FirstError().Error(),
		`The block id "BL1" in line number 2 was expected to be an integer.`)
}

func TestRowAfterFootIsLogged(t *testing.T) {
	body := "HEAD\t3.0\tUgcProfile\t1.2\n" +
		"FOOT\t2\n" +
		"AS01\t1\tMy Song\n"
	log := dsrf.NewNopLogger(false)
	stream, err := NewFileReader(log, Config{Rows: testSchemas()}, writeReport(t, "report.tsv", body)).Parse(1)
	require.NoError(t, err)
	defer stream.Close()

	blocks := collectBlocks(t, stream)
	require.Equal(t, dsrf.FootBlock, blocks[1].Type)
	require.Contains(t, log.FirstError().Error(),
		"Row type AS01 appears after the FOOT block")
}

func TestFailFastAbortsStream(t *testing.T) {
	body := "HEAD\t3.0\tUgcProfile\t1.2\n" +
		"XX99\t1\tbogus\n"
	log := dsrf.NewNopLogger(true)
	stream, err := NewFileReader(log, Config{Rows: testSchemas()}, writeReport(t, "report.tsv", body)).Parse(1)
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next()
	var failure *dsrf.RowValidationFailure
	require.ErrorAs(t, err, &failure)

	_, err = stream.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestCloseIsIdempotent(t *testing.T) {
	log := dsrf.NewNopLogger(false)
	stream, err := NewFileReader(log, Config{Rows: testSchemas()}, writeReport(t, "report.tsv", reportBody)).Parse(1)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
}

func loggedErrors(log *dsrf.Logger) int {
	errs, _ := log.Counts()
	return errs
}

const readerAVSDoc = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:avs="http://ddex.net/xml/avs/avs">
  <xs:simpleType name="UseType">
    <xs:restriction base="xs:string">
      <xs:enumeration value="Stream"/>
      <xs:enumeration value="Download"/>
    </xs:restriction>
  </xs:simpleType>
</xs:schema>
`

const readerXSDDoc = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:dsrf="http://ddex.net/xml/dsrf/30"
           xmlns:avs="http://ddex.net/xml/avs/avs">
  <xs:import namespace="http://ddex.net/xml/avs/avs"
             schemaLocation="../avs/4/allowed-value-sets.xsd"/>
  <xs:complexType name="RecordType-HEAD">
    <xs:sequence>
      <xs:element name="RecordType" type="xs:string"/>
      <xs:element name="Version" type="xs:string"/>
      <xs:element name="Profile" type="xs:string"/>
      <xs:element name="ProfileVersion" type="xs:string" minOccurs="0"/>
    </xs:sequence>
  </xs:complexType>
  <xs:complexType name="RecordType-AS01">
    <xs:sequence>
      <xs:element name="RecordType" type="xs:string"/>
      <xs:element name="BlockId" type="xs:string"/>
      <xs:element name="UseType" type="avs:UseType" minOccurs="0"/>
    </xs:sequence>
  </xs:complexType>
  <xs:complexType name="RecordType-FOOT">
    <xs:sequence>
      <xs:element name="RecordType" type="xs:string"/>
      <xs:element name="LineCount" type="xs:integer"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>
`

// TestHeadDrivenSchemaResolution exercises the path where no schema is given
// up front: the HEAD row names the profile and version, and the XSD is
// located and compiled mid-stream before any body row is validated.
func TestHeadDrivenSchemaResolution(t *testing.T) {
	dir := t.TempDir()
	for path, doc := range map[string]string{
		schema.LocateXSD(dir, "1.2"): readerXSDDoc,
		schema.LocateAVS(dir, "4"):   readerAVSDoc,
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	}

	body := "HEAD\t3.0\tUgcProfile\t1.2\n" +
		"AS01\t1\tstream\n" +
		"FOOT\t2\n"
	log := dsrf.NewNopLogger(false)
	stream, err := NewFileReader(log, Config{SchemaDir: dir}, writeReport(t, "report.tsv", body)).Parse(1)
	require.NoError(t, err)
	defer stream.Close()

	blocks := collectBlocks(t, stream)
	require.Len(t, blocks, 3)
	require.Equal(t, dsrf.BodyBlock, blocks[1].Type)
	as01 := blocks[1].Rows[0]
	require.Equal(t, "UseType", as01.Cells[2].Name)
	require.Equal(t, []string{"STREAM"}, as01.Cells[2].StringValues)
}

func TestMissingSchemaIsFatal(t *testing.T) {
	body := "HEAD\t3.0\tUgcProfile\t9.9\n"
	log := dsrf.NewNopLogger(false)
	stream, err := NewFileReader(log, Config{SchemaDir: t.TempDir()}, writeReport(t, "report.tsv", body)).Parse(1)
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next()
	require.Error(t, err)
	require.NotErrorIs(t, err, io.EOF)
}
