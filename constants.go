package dsrf

import (
	"regexp"
	"strings"
)

// Format constants of the DSRF flat file and its schema documents.
const (
	// FileDelimiter separates cells within a record.
	FileDelimiter = '\t'

	// RepeatedValueDelimiter separates sub-values of a repeated cell.
	RepeatedValueDelimiter = "|"

	// Escaper escapes delimiters inside cell values.
	Escaper = '\\'

	// CommentSign starts a comment record.
	CommentSign = "#"

	// RowTypePrefix is the prefix every row type declaration in the XSD
	// carries on its complexType name.
	RowTypePrefix = "RecordType-"

	// FixedStringPrefix qualifies allowed-value-set (enum) cell types.
	FixedStringPrefix = "avs:"

	// TypePrefix qualifies simple cell types declared in the dsrf namespace.
	TypePrefix = "dsrf:"

	// GzipSuffix marks a gzip-compressed report file.
	GzipSuffix = ".tsv.gz"

	// AVSNamespace is the namespace the sales-reporting XSD imports the
	// allowed-value-sets document under.
	AVSNamespace = "http://ddex.net/xml/avs/avs"

	// DefaultVersion is the library default format version.
	DefaultVersion = "3.0"
)

// FootRows are the row types that form a FOOT block. A FOOT block is always
// the terminal block of a file.
var FootRows = []string{"FOOT", "FFOO"}

var (
	// VersionedRowTypePattern matches dotted "major.minor" row type codes in
	// the flat file (eg. "SY02.01"); the dot is removed during normalization.
	VersionedRowTypePattern = regexp.MustCompile(`^[A-Z]{2}\d{2}\.\d{2}$`)

	// HeaderRowPattern matches row types that belong to the header block:
	// summary rows and the file/message header codes.
	HeaderRowPattern = regexp.MustCompile(`^(SY[0-9]{2,4}$|HEAD|FHEA)`)

	// BlockIDPattern matches a block id cell.
	BlockIDPattern = regexp.MustCompile(`BL[0-9]+`)

	// DurationPattern is the anchored xs:duration shape. A bare "P" with no
	// components also matches the regex and is rejected separately by the
	// duration validator.
	DurationPattern = regexp.MustCompile(
		`^[+-]?P` +
			`([0-9]+([,.][0-9]+)?Y)?` +
			`([0-9]+([,.][0-9]+)?M)?` +
			`([0-9]+([,.][0-9]+)?W)?` +
			`([0-9]+([,.][0-9]+)?D)?` +
			`(T([0-9]+([,.][0-9]+)?H)?` +
			`([0-9]+([,.][0-9]+)?M)?` +
			`([0-9]+([,.][0-9]+)?S)?)?$`)

	// DateTimePattern is the anchored xs:dateTime shape.
	DateTimePattern = regexp.MustCompile(
		`^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}` +
			`(Z|([-+][0-9]{2}:?[0-9]{2}))$`)
)

// IsRowType reports whether an XSD complexType name declares a row type.
func IsRowType(name string) bool {
	return strings.HasPrefix(name, RowTypePrefix)
}

// IsFootRow reports whether the row type belongs to the FOOT block.
func IsFootRow(rowType string) bool {
	for _, ft := range FootRows {
		if rowType == ft {
			return true
		}
	}
	return false
}

// NormalizeRowType upper-cases a raw row type and collapses dotted versioned
// codes ("SY02.01" becomes "SY0201").
func NormalizeRowType(raw string) string {
	rowType := strings.ToUpper(raw)
	if VersionedRowTypePattern.MatchString(rowType) {
		rowType = strings.Replace(rowType, ".", "", 1)
	}
	return rowType
}
