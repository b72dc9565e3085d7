// Package tsv splits flat-file records into cells. The dialect is plain
// tab-separated values with no quoting and a backslash escape character,
// which encoding/csv cannot express.
package tsv

import "strings"

const (
	delimiter = '\t'
	escaper   = '\\'
)

// Split tokenizes one record line into its cells. A backslash escapes the
// following character (including tabs and backslashes) and is removed from
// the output. An empty line yields no cells.
func Split(line string) []string {
	if line == "" {
		return nil
	}
	cells := make([]string, 0, 8)
	var b strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == escaper:
			escaped = true
		case r == delimiter:
			cells = append(cells, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		// Trailing escaper with nothing to escape is kept literally.
		b.WriteRune(escaper)
	}
	return append(cells, b.String())
}
