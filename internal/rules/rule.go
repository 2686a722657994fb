package rules

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidRule is returned when a rule's highlight window does not fit its phrase.
var ErrInvalidRule = errors.New("invalid rule")

// Rule describes one matchable phrase. Rules are values and are never mutated
// after construction.
type Rule struct {
	// Category is the kind of fluff this phrase represents.
	Category Category

	// Match is the lowercase literal the pattern searches for.
	Match string

	// HighlightOffset is the number of characters to skip from the start of
	// the raw match before highlighting begins.
	HighlightOffset int

	// HighlightLength, when set, is the highlighted length in characters
	// measured from the raw match start (the offset is subtracted from it).
	// When nil the highlight runs to the end of the match.
	HighlightLength *int
}

// NewRule builds a rule, lowercasing the phrase and checking that the highlight
// window stays inside it.
func NewRule(category Category, match string, offset int, length *int) (Rule, error) {
	match = strings.ToLower(strings.TrimSpace(match))
	if match == "" {
		return Rule{}, fmt.Errorf("%w: empty match", ErrInvalidRule)
	}

	n := utf8.RuneCountInString(match)
	if offset < 0 || offset >= n {
		return Rule{}, fmt.Errorf("%w: %q: offset %d outside phrase of %d characters", ErrInvalidRule, match, offset, n)
	}
	if length != nil {
		if *length <= offset || *length > n {
			return Rule{}, fmt.Errorf("%w: %q: length %d must be in (%d, %d]", ErrInvalidRule, match, *length, offset, n)
		}
		l := *length
		length = &l
	}

	return Rule{
		Category:        category,
		Match:           match,
		HighlightOffset: offset,
		HighlightLength: length,
	}, nil
}

// NewCustomRule returns a rule that highlights the whole phrase.
func NewCustomRule(match string) (Rule, error) {
	return NewRule(Custom, match, 0, nil)
}

// Bounds returns the byte range [start, end) of the highlight within matched,
// the raw text the pattern found for this rule. Offsets and lengths are counted
// in characters, so the conversion walks matched rather than Match: the two may
// differ in case and therefore in byte width.
//
// ok is false when the window is empty, which can only happen when matched is
// shorter than the rule's phrase.
func (r Rule) Bounds(matched string) (start, end int, ok bool) {
	start = byteIndexOfRune(matched, r.HighlightOffset)
	end = len(matched)
	if r.HighlightLength != nil {
		end = byteIndexOfRune(matched, *r.HighlightLength)
	}
	return start, end, end > start
}

// byteIndexOfRune returns the byte offset of the n-th rune in s, clamped to len(s).
func byteIndexOfRune(s string, n int) int {
	if n <= 0 {
		return 0
	}
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}

// intPtr is a helper for ruleset literals.
func intPtr(v int) *int {
	return &v
}
