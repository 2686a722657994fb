// Package pattern compiles a list of literal phrases into a single
// case-insensitive matcher with word-boundary anchoring.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zjrosen/defluff/internal/log"
)

// ErrInvalidPattern is returned when the combined expression cannot be compiled,
// for example when a very large word list exceeds the engine's program size limit.
var ErrInvalidPattern = errors.New("invalid pattern")

// Match is one non-overlapping occurrence found by a Pattern.
// Start and End are byte offsets into the searched text.
type Match struct {
	Start int
	End   int
	Text  string
}

// Pattern matches any of its phrases, ignoring case, bounded by word edges.
// A Pattern is immutable and safe for concurrent use.
type Pattern struct {
	re      *regexp.Regexp
	phrases int
}

// Compile builds a Pattern from literal phrases. Phrases are tried in the given
// order at each position, so callers pass them longest first when one phrase
// is a prefix of another. Compile returns a nil Pattern for an empty list; a nil
// Pattern matches nothing.
func Compile(phrases []string) (*Pattern, error) {
	alts := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p == "" {
			continue
		}
		alts = append(alts, alternative(p))
	}
	if len(alts) == 0 {
		return nil, nil
	}

	expr := "(?i)(?:" + strings.Join(alts, "|") + ")"
	re, err := regexp.Compile(expr)
	if err != nil {
		log.ErrorErr(log.CatPattern, "compile failed", err, "phrases", len(alts))
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	log.Debug(log.CatPattern, "compiled", "phrases", len(alts), "bytes", len(expr))
	return &Pattern{re: re, phrases: len(alts)}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(phrases []string) *Pattern {
	p, err := Compile(phrases)
	if err != nil {
		panic(err)
	}
	return p
}

// alternative quotes p and anchors each edge that is a word character.
// A phrase ending in punctuation, like "it's (complicated)", cannot require a
// word boundary after ")" since a following space is not a word character either.
func alternative(p string) string {
	var b strings.Builder
	if isWordByte(p[0]) {
		b.WriteString(`\b`)
	}
	b.WriteString(regexp.QuoteMeta(p))
	if isWordByte(p[len(p)-1]) {
		b.WriteString(`\b`)
	}
	return b.String()
}

// isWordByte reports whether c is in \w for RE2: ASCII letters, digits and underscore.
func isWordByte(c byte) bool {
	return c == '_' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}

// FindAll returns every non-overlapping match in s, left to right.
// RE2's \b only knows ASCII word characters, so a match touching a letter
// such as "ß" or "ü" is rejected here and the search resumes one rune later.
func (p *Pattern) FindAll(s string) []Match {
	if p == nil || s == "" {
		return nil
	}
	var matches []Match
	for pos := 0; pos < len(s); {
		loc := p.re.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if start == end || !wordBounded(s, start, end) {
			_, size := utf8.DecodeRuneInString(s[start:])
			pos = start + max(size, 1)
			continue
		}
		matches = append(matches, Match{Start: start, End: end, Text: s[start:end]})
		pos = end
	}
	return matches
}

// wordBounded reports whether s[start:end] neither starts nor ends inside a
// word. Only edges that are themselves word characters are checked.
func wordBounded(s string, start, end int) bool {
	first, _ := utf8.DecodeRuneInString(s[start:end])
	if start > 0 && isWordRune(first) {
		prev, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(prev) {
			return false
		}
	}
	last, _ := utf8.DecodeLastRuneInString(s[start:end])
	if end < len(s) && isWordRune(last) {
		next, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(next) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// Len returns the number of phrases compiled into the pattern.
func (p *Pattern) Len() int {
	if p == nil {
		return 0
	}
	return p.phrases
}

// String returns the compiled expression.
func (p *Pattern) String() string {
	if p == nil {
		return ""
	}
	return p.re.String()
}
