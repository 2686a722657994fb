package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/zjrosen/defluff/internal/rules"
	"github.com/zjrosen/defluff/internal/scan"
)

// Finding is one highlighted phrase located in a document.
type Finding struct {
	Line          int            `json:"line"`           // 1-based
	Column        int            `json:"column"`         // 1-based, in grapheme clusters
	DisplayColumn int            `json:"display_column"` // 1-based, in terminal cells
	Start         int            `json:"start"`          // byte offset
	End           int            `json:"end"`            // byte offset, exclusive
	Text          string         `json:"text"`
	Category      rules.Category `json:"category"`
}

// Report is the JSON document written by WriteJSON.
type Report struct {
	Path     string         `json:"path,omitempty"`
	Findings []Finding      `json:"findings"`
	Counts   map[string]int `json:"counts"`
}

// Findings locates each span in text.
func Findings(text string, spans []scan.Span) []Finding {
	starts := lineStarts(text)
	out := make([]Finding, 0, len(spans))
	for _, seg := range segments(text, spans) {
		if seg.span == nil {
			continue
		}
		s := *seg.span
		line := sort.Search(len(starts), func(i int) bool { return starts[i] > s.Start }) - 1
		prefix := text[starts[line]:s.Start]
		out = append(out, Finding{
			Line:          line + 1,
			Column:        uniseg.GraphemeClusterCount(prefix) + 1,
			DisplayColumn: runewidth.StringWidth(prefix) + 1,
			Start:         s.Start,
			End:           s.End,
			Text:          seg.text,
			Category:      s.Category,
		})
	}
	return out
}

// NewReport builds a report with per-category counts.
func NewReport(path string, findings []Finding) Report {
	counts := make(map[string]int)
	for _, f := range findings {
		counts[f.Category.String()]++
	}
	if findings == nil {
		findings = []Finding{}
	}
	return Report{Path: path, Findings: findings, Counts: counts}
}

// WriteJSON writes v, a Report or a slice of them, as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// FormatFinding renders f as "path:line:col: category: text".
func FormatFinding(path string, f Finding) string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", path, f.Line, f.Column, f.Category, strings.TrimSpace(f.Text))
}

func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
