// Package rules holds the phrase rules that defluff matches against text and
// the catalog that selects which of them are active.
package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Category classifies a rule.
type Category int

const (
	WeakQualifier Category = iota
	FillerWord
	WeaselWord
	Jargon
	Complexity
	Redundancy
	Custom
)

// BuiltinCategories lists every category a ruleset file may use, in display order.
var BuiltinCategories = []Category{
	WeakQualifier,
	FillerWord,
	WeaselWord,
	Jargon,
	Complexity,
	Redundancy,
}

// ErrUnknownCategory is returned when a category name cannot be parsed.
var ErrUnknownCategory = errors.New("unknown category")

// String returns the kebab-case name used in ruleset files and CSS classes.
func (c Category) String() string {
	switch c {
	case WeakQualifier:
		return "weak-qualifier"
	case FillerWord:
		return "filler-word"
	case WeaselWord:
		return "weasel-word"
	case Jargon:
		return "jargon"
	case Complexity:
		return "complexity"
	case Redundancy:
		return "redundancy"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

// Title returns a human readable label.
func (c Category) Title() string {
	switch c {
	case WeakQualifier:
		return "Weak qualifier"
	case FillerWord:
		return "Filler word"
	case WeaselWord:
		return "Weasel word"
	case Jargon:
		return "Jargon"
	case Complexity:
		return "Complexity"
	case Redundancy:
		return "Redundancy"
	case Custom:
		return "Custom"
	default:
		return "Unknown"
	}
}

// ClassName returns the style class a render sink attaches to spans of this category.
func (c Category) ClassName() string {
	return "fluff-" + c.String()
}

// ParseCategory parses a category name. Underscores, spaces and case are ignored,
// so "weak_qualifier", "Weak Qualifier" and "weak-qualifier" are equivalent.
func ParseCategory(s string) (Category, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	switch norm {
	case "weak-qualifier", "weakqualifier":
		return WeakQualifier, nil
	case "filler-word", "fillerword", "filler":
		return FillerWord, nil
	case "weasel-word", "weaselword", "weasel":
		return WeaselWord, nil
	case "jargon":
		return Jargon, nil
	case "complexity":
		return Complexity, nil
	case "redundancy":
		return Redundancy, nil
	case "custom":
		return Custom, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Language selects which built-in ruleset a catalog is constructed with.
type Language string

const (
	English Language = "en"
	German  Language = "de"
)

// Languages lists the languages with an embedded ruleset.
var Languages = []Language{English, German}

// ErrUnknownLanguage is returned for a language without an embedded ruleset.
var ErrUnknownLanguage = errors.New("unknown language")

// ParseLanguage accepts a language code or its English name.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "english":
		return English, nil
	case "de", "german", "deutsch":
		return German, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
}
