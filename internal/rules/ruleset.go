package rules

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rulesets/*.yaml
var embedded embed.FS

// Entry is a single rule as written in a ruleset file.
type Entry struct {
	Category string `yaml:"category"`
	Match    string `yaml:"match"`
	Offset   int    `yaml:"offset,omitempty"`
	Length   *int   `yaml:"length,omitempty"`
}

// Ruleset is the structure of a ruleset file.
type Ruleset struct {
	Language Language `yaml:"language"`
	Entries  []Entry  `yaml:"rules"`
}

// LoadRuleset reads and validates a ruleset file.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is a user-supplied ruleset
	if err != nil {
		return nil, fmt.Errorf("failed to read ruleset file: %w", err)
	}
	return ParseRuleset(data)
}

// ParseRuleset parses and validates ruleset YAML.
func ParseRuleset(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse ruleset yaml: %w", err)
	}
	if _, err := rs.Rules(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Builtin returns the embedded ruleset for lang.
func Builtin(lang Language) (*Ruleset, error) {
	data, err := embedded.ReadFile("rulesets/" + string(lang) + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	rs, err := ParseRuleset(data)
	if err != nil {
		return nil, fmt.Errorf("builtin ruleset %s: %w", lang, err)
	}
	if rs.Language == "" {
		rs.Language = lang
	}
	return rs, nil
}

// Rules converts the entries into rules, in file order. The first invalid entry
// fails the whole ruleset.
func (rs *Ruleset) Rules() ([]Rule, error) {
	out := make([]Rule, 0, len(rs.Entries))
	for i, e := range rs.Entries {
		if e.Category == "" || e.Match == "" {
			return nil, fmt.Errorf("invalid entry %d: category and match are required", i)
		}
		cat, err := ParseCategory(e.Category)
		if err != nil {
			return nil, fmt.Errorf("invalid entry %d: %w", i, err)
		}
		if cat == Custom {
			return nil, fmt.Errorf("invalid entry %d (%s): custom rules come from the word list, not rulesets", i, e.Match)
		}
		var length *int
		if e.Length != nil {
			length = intPtr(*e.Length)
		}
		r, err := NewRule(cat, e.Match, e.Offset, length)
		if err != nil {
			return nil, fmt.Errorf("invalid entry %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}
