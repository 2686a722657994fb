// Package scan turns raw pattern matches inside visible regions into the
// highlight spans a renderer draws.
package scan

import (
	"github.com/zjrosen/defluff/internal/exclusion"
	"github.com/zjrosen/defluff/internal/log"
	"github.com/zjrosen/defluff/internal/pattern"
	"github.com/zjrosen/defluff/internal/rules"
)

// Region is a visible byte range [Start, End) of the document.
type Region struct {
	Start int
	End   int
}

// Span is a highlighted byte range [Start, End) and the category of the rule
// that produced it.
type Span struct {
	Start    int
	End      int
	Category rules.Category
}

// Resolver maps matched text back to its rule.
type Resolver interface {
	Resolve(matched string) (rules.Rule, error)
}

// Stats counts what a scan saw.
type Stats struct {
	Matches    int // raw pattern matches
	Emitted    int // spans returned
	Excluded   int // matches starting inside an excluded range
	Unresolved int // matches with no rule
}

// Scanner produces highlight spans. The zero value is disabled.
type Scanner struct {
	Enabled bool
}

// Scan returns the highlight spans for text within regions. Spans are ordered
// by region, then by position; regions are not deduplicated against each other.
func (s Scanner) Scan(regions []Region, text string, p *pattern.Pattern, r Resolver, excl *exclusion.Index) []Span {
	spans, _ := s.ScanWithStats(regions, text, p, r, excl)
	return spans
}

// ScanWithStats is Scan that also reports counts.
func (s Scanner) ScanWithStats(regions []Region, text string, p *pattern.Pattern, r Resolver, excl *exclusion.Index) ([]Span, Stats) {
	var st Stats
	if !s.Enabled || p == nil || r == nil {
		return nil, st
	}

	var spans []Span
	for _, reg := range regions {
		from, to := clamp(reg, len(text))
		if from >= to {
			continue
		}

		for _, m := range p.FindAll(text[from:to]) {
			st.Matches++

			rule, err := r.Resolve(m.Text)
			if err != nil {
				st.Unresolved++
				log.Warn(log.CatScan, "no rule for match", "text", m.Text, "error", err)
				continue
			}

			lo, hi, ok := rule.Bounds(m.Text)
			if !ok {
				st.Unresolved++
				log.Warn(log.CatScan, "empty highlight window", "text", m.Text, "rule", rule.Match)
				continue
			}

			start := from + m.Start + lo
			if excl.Contains(start) {
				st.Excluded++
				continue
			}

			spans = append(spans, Span{
				Start:    start,
				End:      from + m.Start + hi,
				Category: rule.Category,
			})
		}
	}

	st.Emitted = len(spans)
	return spans, st
}

// clamp bounds a region to [0, n].
func clamp(reg Region, n int) (int, int) {
	from, to := reg.Start, reg.End
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	return from, to
}
