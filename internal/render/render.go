// Package render draws highlight spans onto text for a terminal, a browser or
// a machine reader.
package render

import (
	"sort"

	"github.com/zjrosen/defluff/internal/scan"
)

// segment is a run of text, highlighted when span is non-nil.
type segment struct {
	text string
	span *scan.Span
}

// segments splits text at span boundaries. Spans are sorted by start;
// spans outside the text, empty spans and spans overlapping an earlier one
// are dropped.
func segments(text string, spans []scan.Span) []segment {
	sorted := make([]scan.Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 || s.End > len(text) || s.End <= s.Start {
			continue
		}
		sorted = append(sorted, s)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []segment
	pos := 0
	for i := range sorted {
		s := sorted[i]
		if s.Start < pos {
			continue
		}
		if s.Start > pos {
			out = append(out, segment{text: text[pos:s.Start]})
		}
		out = append(out, segment{text: text[s.Start:s.End], span: &sorted[i]})
		pos = s.End
	}
	if pos < len(text) {
		out = append(out, segment{text: text[pos:]})
	}
	return out
}
