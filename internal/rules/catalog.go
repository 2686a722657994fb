package rules

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/zjrosen/defluff/internal/log"
)

// ErrUnknownMatch is returned by Resolve when matched text has no rule. It means
// the compiled pattern and the catalog are out of sync.
var ErrUnknownMatch = errors.New("unknown match")

// Catalog owns the built-in rules for one language plus the user's custom rules.
// Built-in rules are fixed at construction; custom rules are replaced wholesale
// by SetCustomRules.
type Catalog struct {
	lang    Language
	builtin map[string]Rule
	order   []string // builtin keys in registration order
	custom  map[string]Rule
}

// NewCatalog builds a catalog from the embedded ruleset for lang.
func NewCatalog(lang Language) (*Catalog, error) {
	rs, err := Builtin(lang)
	if err != nil {
		return nil, err
	}
	return NewCatalogFromRuleset(rs)
}

// NewCatalogFromRuleset builds a catalog from an already loaded ruleset.
func NewCatalogFromRuleset(rs *Ruleset) (*Catalog, error) {
	list, err := rs.Rules()
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		lang:    rs.Language,
		builtin: make(map[string]Rule, len(list)),
		custom:  make(map[string]Rule),
	}
	for _, r := range list {
		c.add(r)
	}

	log.Debug(log.CatRules, "catalog built", "language", c.lang, "rules", len(c.builtin))
	return c, nil
}

// add registers a built-in rule. A later rule with the same phrase replaces the
// earlier one.
func (c *Catalog) add(r Rule) {
	if _, exists := c.builtin[r.Match]; exists {
		log.Debug(log.CatRules, "duplicate rule overwritten", "match", r.Match)
	} else {
		c.order = append(c.order, r.Match)
	}
	c.builtin[r.Match] = r
}

// Language returns the language the built-in rules were loaded for.
func (c *Catalog) Language() Language {
	return c.lang
}

// Len returns the number of built-in plus custom rules.
func (c *Catalog) Len() int {
	return len(c.builtin) + len(c.custom)
}

// Rules returns the built-in rules in registration order followed by the custom
// rules sorted by phrase.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, 0, c.Len())
	for _, key := range c.order {
		out = append(out, c.builtin[key])
	}
	custom := make([]string, 0, len(c.custom))
	for key := range c.custom {
		custom = append(custom, key)
	}
	sort.Strings(custom)
	for _, key := range custom {
		out = append(out, c.custom[key])
	}
	return out
}

// SelectActive returns the phrases to compile: every built-in rule whose
// category is enabled and whose phrase is not excluded, plus every custom
// phrase. The result is sorted longest first so that an alternation tries
// "paradigm shift" before "paradigm".
func (c *Catalog) SelectActive(categories []Category, exclusions []string) []string {
	excluded := make(map[string]struct{}, len(exclusions))
	for _, e := range exclusions {
		excluded[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}

	out := make([]string, 0, len(c.builtin)+len(c.custom))
	for _, key := range c.order {
		r := c.builtin[key]
		if !slices.Contains(categories, r.Category) {
			continue
		}
		if _, skip := excluded[key]; skip {
			continue
		}
		out = append(out, key)
	}
	for key := range c.custom {
		if _, dup := c.builtin[key]; dup && slices.Contains(out, key) {
			continue
		}
		out = append(out, key)
	}

	SortLongestFirst(out)
	return out
}

// SortLongestFirst orders phrases by descending character count, alphabetically
// within a length.
func SortLongestFirst(phrases []string) {
	sort.SliceStable(phrases, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(phrases[i]), utf8.RuneCountInString(phrases[j])
		if li != lj {
			return li > lj
		}
		return phrases[i] < phrases[j]
	})
}

// Resolve finds the rule for text the pattern matched. Built-in rules win over
// custom rules with the same phrase.
func (c *Catalog) Resolve(matched string) (Rule, error) {
	key := strings.ToLower(matched)
	if r, ok := c.builtin[key]; ok {
		return r, nil
	}
	if r, ok := c.custom[key]; ok {
		return r, nil
	}
	return Rule{}, fmt.Errorf("%w: %q", ErrUnknownMatch, matched)
}

// SetCustomRules discards all custom rules and rebuilds them from lines. Lines
// starting with "-" name phrases to exclude for this compilation; they are
// returned rather than stored and must be passed to SelectActive.
func (c *Catalog) SetCustomRules(lines []string) (exclusions []string) {
	c.custom = make(map[string]Rule)

	phrases, exclusions := parseLines(lines)
	for _, p := range phrases {
		r, err := NewCustomRule(p)
		if err != nil {
			log.Warn(log.CatRules, "skipping custom rule", "line", p, "error", err)
			continue
		}
		c.custom[r.Match] = r
	}

	log.Debug(log.CatRules, "custom rules rebuilt", "rules", len(c.custom), "exclusions", len(exclusions))
	return exclusions
}
