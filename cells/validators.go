// Package cells validates the cells in a flat file against their declared
// kinds. The validator kinds are a closed set dispatched by switch; the
// schema compiler instantiates one ordered validator list per row type.
package cells

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ddexnet/dsrf"
)

// Kind enumerates the validator kinds.
type Kind int

const (
	String Kind = iota
	Integer
	Decimal
	Boolean
	Pattern
	FixedString
	Duration
	DateTime
)

// Validator validates and coerces one raw cell value. A required validator
// rejects empty values; a repeated one splits the value on the secondary
// delimiter and validates each part independently.
type Validator struct {
	Name     string
	Kind     Kind
	Required bool
	Repeated bool

	pattern     *regexp.Regexp
	patternText string
	allowed     map[string]struct{}
	allowedList []string
}

// New returns a validator for one of the non-parameterized kinds. Pattern and
// FixedString validators are built with NewPattern and NewFixedString.
func New(kind Kind, name string, required, repeated bool) *Validator {
	v := &Validator{Name: name, Kind: kind, Required: required, Repeated: repeated}
	switch kind {
	case Duration:
		v.pattern = dsrf.DurationPattern
	case DateTime:
		v.pattern = dsrf.DateTimePattern
	}
	return v
}

// NewPattern returns a validator matching the full value against the given
// regular expression.
func NewPattern(pattern, name string, required, repeated bool) (*Validator, error) {
	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return nil, err
	}
	return &Validator{
		Name:        name,
		Kind:        Pattern,
		Required:    required,
		Repeated:    repeated,
		pattern:     re,
		patternText: pattern,
	}, nil
}

// NewFixedString returns a validator accepting, case-insensitively, one of
// the given allowed values. The canonical upper-cased value is stored in the
// cell.
func NewFixedString(validValues []string, name string, required, repeated bool) *Validator {
	allowed := make(map[string]struct{}, len(validValues))
	for _, vv := range validValues {
		allowed[strings.ToUpper(vv)] = struct{}{}
	}
	return &Validator{
		Name:        name,
		Kind:        FixedString,
		Required:    required,
		Repeated:    repeated,
		allowed:     allowed,
		allowedList: validValues,
	}
}

// CellType returns the cell type the validator produces. Pattern-shaped and
// fixed-string kinds all carry string values.
func (v *Validator) CellType() dsrf.CellType {
	switch v.Kind {
	case Integer:
		return dsrf.IntegerCell
	case Decimal:
		return dsrf.DecimalCell
	case Boolean:
		return dsrf.BooleanCell
	default:
		return dsrf.StringCell
	}
}

func (v *Validator) expected() string {
	switch v.Kind {
	case String:
		return "a string"
	case Integer:
		return "an integer"
	case Decimal:
		return "a decimal"
	case Boolean:
		return "a boolean"
	case Pattern:
		return fmt.Sprintf("of the form %q.", v.patternText)
	case FixedString:
		return fmt.Sprintf("one of the following: %v", v.allowedList)
	case Duration:
		return "ISO 8601 duration"
	case DateTime:
		return "ISO 8601 dateTime"
	default:
		return ""
	}
}

func (v *Validator) failure(value string, rowNumber int, fileName string, blockNumber int) error {
	return &dsrf.CellValidationFailure{
		CellName:    v.Name,
		RowNumber:   rowNumber,
		FileName:    fileName,
		BlockNumber: blockNumber,
		CellValue:   value,
		Expected:    v.expected(),
	}
}

// ValidateValue validates the raw value and returns the decoded cell, or nil
// when the value was empty-and-optional or failed validation. Failures are
// logged, never propagated; the returned error is non-nil only under
// fail-fast.
func (v *Validator) ValidateValue(value string, rowNumber int, fileName string, blockNumber int, log *dsrf.Logger) (*dsrf.Cell, error) {
	cell, err := v.validate(value, rowNumber, fileName, blockNumber, log)
	if err != nil {
		if ferr := log.Error(err); ferr != nil {
			return nil, ferr
		}
		return nil, nil
	}
	return cell, nil
}

func (v *Validator) validate(value string, rowNumber int, fileName string, blockNumber int, log *dsrf.Logger) (*dsrf.Cell, error) {
	if value == "" {
		if v.Required {
			return nil, &dsrf.RequiredCellMissing{
				CellValidationFailure: dsrf.CellValidationFailure{
					CellName:    v.Name,
					RowNumber:   rowNumber,
					FileName:    fileName,
					BlockNumber: blockNumber,
					Expected:    v.expected(),
				},
			}
		}
		return nil, nil
	}
	cell := &dsrf.Cell{Name: v.Name, Type: v.CellType()}
	if !v.Repeated {
		if err := v.validateSingle(value, rowNumber, fileName, blockNumber, cell, log); err != nil {
			return nil, err
		}
		return cell, nil
	}
	for _, part := range strings.Split(value, dsrf.RepeatedValueDelimiter) {
		if err := v.validateSingle(part, rowNumber, fileName, blockNumber, cell, log); err != nil {
			return nil, err
		}
	}
	return cell, nil
}

// validateSingle checks one sub-value and appends the typed result to cell.
func (v *Validator) validateSingle(value string, rowNumber int, fileName string, blockNumber int, cell *dsrf.Cell, log *dsrf.Logger) error {
	switch v.Kind {
	case String:
		if !utf8.ValidString(value) {
			return &dsrf.BadUnicodeError{
				CellValidationFailure: dsrf.CellValidationFailure{
					CellName:    v.Name,
					RowNumber:   rowNumber,
					FileName:    fileName,
					BlockNumber: blockNumber,
					CellValue:   value,
				},
				Detail: "invalid UTF-8 encoding",
			}
		}
		cell.StringValues = append(cell.StringValues, value)
		return nil

	case Integer:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f != math.Trunc(f) {
			return v.failure(value, rowNumber, fileName, blockNumber)
		}
		if strings.Contains(value, ".") {
			log.Warningf(
				"The cell %s in line number %d (file=%s) is a decimal (%s), but expected to be an integer.",
				v.Name, rowNumber, fileName, value)
		}
		cell.IntegerValues = append(cell.IntegerValues, int64(f))
		return nil

	case Decimal:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return v.failure(value, rowNumber, fileName, blockNumber)
		}
		cell.DecimalValues = append(cell.DecimalValues, f)
		return nil

	case Boolean:
		switch strings.ToLower(value) {
		case "true":
			cell.BooleanValues = append(cell.BooleanValues, true)
		case "false":
			cell.BooleanValues = append(cell.BooleanValues, false)
		default:
			return v.failure(value, rowNumber, fileName, blockNumber)
		}
		return nil

	case Pattern, Duration, DateTime:
		if v.Kind == Duration && strings.TrimLeft(value, "+-") == "P" {
			// "P" with no components slips through the regex.
			return v.failure(value, rowNumber, fileName, blockNumber)
		}
		if !v.pattern.MatchString(value) {
			return v.failure(value, rowNumber, fileName, blockNumber)
		}
		cell.StringValues = append(cell.StringValues, value)
		return nil

	case FixedString:
		upper := strings.ToUpper(value)
		if _, ok := v.allowed[upper]; !ok {
			return v.failure(value, rowNumber, fileName, blockNumber)
		}
		cell.StringValues = append(cell.StringValues, upper)
		return nil

	default:
		return v.failure(value, rowNumber, fileName, blockNumber)
	}
}
