package dsrf

// CellType enumerates the declared kinds a cell value can carry.
type CellType int

const (
	StringCell CellType = iota
	IntegerCell
	DecimalCell
	BooleanCell
)

// String returns the lowercase name of the cell type.
func (t CellType) String() string {
	switch t {
	case StringCell:
		return "string"
	case IntegerCell:
		return "integer"
	case DecimalCell:
		return "decimal"
	case BooleanCell:
		return "boolean"
	default:
		return "unknown"
	}
}

// Cell is a named, typed value decoded from one field position of a record.
// A repeated cell carries several sub-values in the slice matching its type;
// the other slices stay empty. Cells are read-only once yielded.
type Cell struct {
	Name string   `json:"name"`
	Type CellType `json:"type"`

	StringValues  []string  `json:"string_values,omitempty"`
	IntegerValues []int64   `json:"integer_values,omitempty"`
	DecimalValues []float64 `json:"decimal_values,omitempty"`
	BooleanValues []bool    `json:"boolean_values,omitempty"`
}

// Row is one decoded record: a row type code, the 1-based line number in the
// source file and the cells that validated. Cells that failed validation or
// were empty and optional are omitted, never null-filled.
type Row struct {
	Type      string `json:"type"`
	RowNumber int    `json:"row_number"`
	Cells     []Cell `json:"cells"`
}

// BlockType partitions the rows of a file into header, body and footer runs.
type BlockType int

const (
	// HeadBlock is the zero value: a fresh block belongs to the header until
	// the first non-header row arrives.
	HeadBlock BlockType = iota
	BodyBlock
	FootBlock
)

// String returns the block type name as it appears in diagnostics.
func (t BlockType) String() string {
	switch t {
	case HeadBlock:
		return "HEAD"
	case BodyBlock:
		return "BODY"
	case FootBlock:
		return "FOOT"
	default:
		return "unknown"
	}
}

// Block is a maximal run of rows of one kind. HEAD blocks carry the document
// version and, once the schema is resolved, the originating file name. BODY
// blocks carry a block number unique within the whole report. FOOT blocks are
// always the terminal block of a file.
type Block struct {
	Type       BlockType `json:"type"`
	Number     int       `json:"number,omitempty"`
	FileNumber int       `json:"file_number"`
	Version    string    `json:"version,omitempty"`
	FileName   string    `json:"file_name,omitempty"`
	Rows       []Row     `json:"rows"`
}

// RowTypes returns the ordered row type codes of the block, as rendered in
// conformance diagnostics.
func (b *Block) RowTypes() []string {
	types := make([]string, len(b.Rows))
	for i, r := range b.Rows {
		types[i] = r.Type
	}
	return types
}
