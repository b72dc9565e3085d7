package tsv

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"AS01", []string{"AS01"}},
		{"AS01\t1\ttitle", []string{"AS01", "1", "title"}},
		{"AS01\t\t", []string{"AS01", "", ""}},
		// Escaped delimiter stays inside the cell.
		{`AS01\	still one cell`, []string{"AS01\tstill one cell"}},
		{`a\\b`, []string{`a\b`}},
		{`trailing\`, []string{`trailing\`}},
	}
	for _, tc := range cases {
		if got := Split(tc.line); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Split(%q) = %#v, want %#v", tc.line, got, tc.want)
		}
	}
}
