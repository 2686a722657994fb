// Package exclusion indexes the document ranges (code, comments, links, URLs)
// whose phrase matches must never be highlighted.
package exclusion

import (
	"sort"
	"strings"
)

// Node is one structural element reported by a Classifier.
// Start and End are absolute byte offsets; End is exclusive as reported.
type Node struct {
	Name  string
	Start int
	End   int
}

// Classifier reports the structural nodes intersecting [start, end).
type Classifier interface {
	Classify(start, end int) []Node
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(start, end int) []Node

// Classify implements Classifier.
func (f ClassifierFunc) Classify(start, end int) []Node {
	return f(start, end)
}

// excludedKinds are the substrings that mark a node name as excluded.
var excludedKinds = []string{"code", "comment", "link", "url"}

// Excluded reports whether a node name denotes an excluded region.
func Excluded(name string) bool {
	name = strings.ToLower(name)
	for _, kind := range excludedKinds {
		if strings.Contains(name, kind) {
			return true
		}
	}
	return false
}

// Range is an excluded byte range. Contains treats both ends as inclusive.
type Range struct {
	Start int
	End   int
}

// Index is the set of excluded ranges for one scan. It is rebuilt on each
// document or viewport change and never updated incrementally.
// A nil Index contains nothing.
type Index struct {
	ranges []Range
}

// Build returns an index of the excluded nodes in [start, end).
func Build(c Classifier, start, end int) *Index {
	idx := &Index{}
	idx.Add(c, start, end)
	return idx
}

// Add appends the excluded nodes of another region.
func (x *Index) Add(c Classifier, start, end int) {
	if c == nil || end <= start {
		return
	}
	for _, n := range c.Classify(start, end) {
		if Excluded(n.Name) {
			x.ranges = append(x.ranges, Range{Start: n.Start, End: n.End})
		}
	}
}

// Contains reports whether offset lies within any range, inclusive of both ends.
func (x *Index) Contains(offset int) bool {
	if x == nil {
		return false
	}
	for _, r := range x.ranges {
		if offset >= r.Start && offset <= r.End {
			return true
		}
	}
	return false
}

// Ranges returns a copy of the ranges ordered by start.
func (x *Index) Ranges() []Range {
	if x == nil || len(x.ranges) == 0 {
		return nil
	}
	out := make([]Range, len(x.ranges))
	copy(out, x.ranges)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Len returns the number of recorded ranges.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.ranges)
}
