// Package segmenter splits a version's canonical text into ordered,
// stably keyed translation units.
package segmenter

import (
	"regexp"
	"strings"

	"legaldocs/pkg/contenthash"
)

// Unit is one translatable fragment of source text.
type Unit struct {
	Seq  int    `json:"seq"`
	Key  string `json:"key"`
	Text string `json:"text"`
}

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

// Split breaks text into paragraphs, falling back to lines and then to the
// whole text. The result is never empty: empty input yields one empty unit.
func Split(text string) []Unit {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	fragments := nonEmpty(blankLine.Split(text, -1))
	if len(fragments) <= 1 {
		fragments = nonEmpty(strings.Split(text, "\n"))
	}
	if len(fragments) == 0 {
		fragments = []string{""}
	}

	units := make([]Unit, 0, len(fragments))
	for i, f := range fragments {
		seq := i + 1
		units = append(units, Unit{
			Seq:  seq,
			Key:  contenthash.SegmentKey(f, seq),
			Text: f,
		})
	}
	return units
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Keys returns the key sequence of units, handy when diffing two versions.
func Keys(units []Unit) []string {
	keys := make([]string, len(units))
	for i, u := range units {
		keys[i] = u.Key
	}
	return keys
}
