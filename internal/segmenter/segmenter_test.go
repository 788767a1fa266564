package segmenter

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		texts []string
	}{
		{
			name:  "paragraphs",
			in:    "Article 1\nDefinitions.\n\nArticle 2\nTerm.\n\n\nArticle 3",
			texts: []string{"Article 1\nDefinitions.", "Article 2\nTerm.", "Article 3"},
		},
		{
			name:  "blank line with spaces",
			in:    "First.\n   \nSecond.",
			texts: []string{"First.", "Second."},
		},
		{
			name:  "falls back to lines",
			in:    "Line one\nLine two\n\nonly",
			texts: []string{"Line one\nLine two", "only"},
		},
		{
			name:  "single paragraph multi line",
			in:    "Line one\nLine two\nLine three",
			texts: []string{"Line one", "Line two", "Line three"},
		},
		{
			name:  "crlf",
			in:    "A\r\n\r\nB",
			texts: []string{"A", "B"},
		},
		{
			name:  "single unit",
			in:    "  The whole agreement.  ",
			texts: []string{"The whole agreement."},
		},
		{
			name:  "empty",
			in:    "",
			texts: []string{""},
		},
		{
			name:  "whitespace only",
			in:    "\n\n  \n",
			texts: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := Split(tt.in)
			got := make([]string, len(units))
			for i, u := range units {
				got[i] = u.Text
				if u.Seq != i+1 {
					t.Fatalf("unit %d has seq %d", i, u.Seq)
				}
				if u.Key == "" {
					t.Fatalf("unit %d has empty key", i)
				}
			}
			if !reflect.DeepEqual(got, tt.texts) {
				t.Fatalf("texts = %q, want %q", got, tt.texts)
			}
		})
	}
}

func TestSplit_KeysStable(t *testing.T) {
	text := "Clause 1.\n\nClause 2.\n\nClause 3."
	a, b := Keys(Split(text)), Keys(Split(text))
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("keys differ across runs: %v vs %v", a, b)
	}

	edited := Keys(Split("Clause 1.\n\nClause 2 amended.\n\nClause 3."))
	if edited[0] != a[0] || edited[2] != a[2] {
		t.Fatalf("untouched paragraphs changed key: %v vs %v", edited, a)
	}
	if edited[1] == a[1] {
		t.Fatalf("edited paragraph kept its key")
	}
}
