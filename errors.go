package dsrf

import "fmt"

// The error taxonomy of the library. Schema-compile failures are fatal; cell
// and row failures are local to one record and are logged rather than
// propagated; ReportValidationFailure summarizes a run that logged errors.

// XSDParsingFailure reports a malformed or inconsistent schema document.
// It always aborts compilation; no partial schema is usable.
type XSDParsingFailure struct {
	XSDFileName string
	Detail      string
}

func (e *XSDParsingFailure) Error() string {
	return fmt.Sprintf(
		"Unexpected error while parsing the xsd file %s (error = %s).",
		e.XSDFileName, e.Detail)
}

// RowValidationFailure reports a structurally invalid record (unparseable
// block id, unknown row type, empty record). The row is skipped and parsing
// continues.
type RowValidationFailure struct {
	RowNumber int
	FileName  string
	Detail    string
}

func (e *RowValidationFailure) Error() string {
	return fmt.Sprintf("Row number %d (file=%s) is invalid (error=%s).",
		e.RowNumber, e.FileName, e.Detail)
}

// CellValidationFailure reports a cell value that does not fit its declared
// kind. The cell is omitted from the row and parsing continues.
type CellValidationFailure struct {
	CellName    string
	RowNumber   int
	FileName    string
	BlockNumber int
	CellValue   string
	Expected    string
}

func (e *CellValidationFailure) blockString() string {
	// Block number is not populated for HEAD/FOOT rows.
	if e.BlockNumber != 0 {
		return fmt.Sprintf("Block: %d, ", e.BlockNumber)
	}
	return ""
}

func (e *CellValidationFailure) Error() string {
	return fmt.Sprintf(
		`Cell "%s" contains invalid value "%s". Value was expected to be %s. [%sRow: %d, file=%s].`,
		e.CellName, e.CellValue, e.Expected, e.blockString(), e.RowNumber,
		e.FileName)
}

// BadUnicodeError reports a cell value that was not valid UTF-8.
type BadUnicodeError struct {
	CellValidationFailure
	Detail string
}

func (e *BadUnicodeError) Error() string {
	return fmt.Sprintf(
		`Cell "%s" contained a non-utf8 string: %q. Error detail: "%s". [%sRow: %d, file=%s].`,
		e.CellName, e.CellValue, e.Detail, e.blockString(), e.RowNumber,
		e.FileName)
}

// RequiredCellMissing reports an empty value in a required cell.
type RequiredCellMissing struct {
	CellValidationFailure
}

func (e *RequiredCellMissing) Error() string {
	return fmt.Sprintf(
		`Cell "%s" is required. Value was expected to be %s. [%sRow: %d, file=%s].`,
		e.CellName, e.Expected, e.blockString(), e.RowNumber, e.FileName)
}

// ReportValidationFailure reports a report-level validation failure, such as
// the end-of-run summary when any error was logged, or a duplicate body
// block number.
type ReportValidationFailure struct {
	Detail string
}

func (e *ReportValidationFailure) Error() string { return e.Detail }
