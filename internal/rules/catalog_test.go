package rules

import (
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(English)
	require.NoError(t, err)
	return c
}

func TestNewCatalog_Builtins(t *testing.T) {
	for _, lang := range Languages {
		c, err := NewCatalog(lang)
		require.NoError(t, err, "embedded %s ruleset must load", lang)
		require.Equal(t, lang, c.Language())
		require.NotZero(t, c.Len())

		seen := make(map[Category]bool)
		for _, r := range c.Rules() {
			seen[r.Category] = true
		}
		for _, cat := range BuiltinCategories {
			require.True(t, seen[cat], "%s ruleset has no %s rules", lang, cat)
		}
	}
}

func TestNewCatalog_UnknownLanguage(t *testing.T) {
	_, err := NewCatalog(Language("xx"))
	require.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestCatalog_Resolve(t *testing.T) {
	c := newTestCatalog(t)

	r, err := c.Resolve("Combine Together")
	require.NoError(t, err)
	require.Equal(t, Redundancy, r.Category)
	require.Equal(t, 7, r.HighlightOffset)

	r, err = c.Resolve("EACH AND EVERY")
	require.NoError(t, err)
	require.NotNil(t, r.HighlightLength)
	require.Equal(t, 9, *r.HighlightLength)

	_, err = c.Resolve("zebra")
	require.ErrorIs(t, err, ErrUnknownMatch)
}

func TestCatalog_Resolve_BuiltinWinsOverCustom(t *testing.T) {
	c := newTestCatalog(t)
	c.SetCustomRules([]string{"paradigm"})

	r, err := c.Resolve("paradigm")
	require.NoError(t, err)
	require.Equal(t, Jargon, r.Category)
}

func TestCatalog_SelectActive_FiltersCategories(t *testing.T) {
	c := newTestCatalog(t)

	got := c.SelectActive([]Category{Redundancy}, nil)
	require.Contains(t, got, "combine together")
	require.NotContains(t, got, "paradigm")
	for _, m := range got {
		r, err := c.Resolve(m)
		require.NoError(t, err)
		require.Equal(t, Redundancy, r.Category)
	}
}

func TestCatalog_SelectActive_Exclusions(t *testing.T) {
	c := newTestCatalog(t)

	got := c.SelectActive([]Category{WeakQualifier}, []string{"just", "Very"})
	require.NotContains(t, got, "just")
	require.NotContains(t, got, "very")
	require.Contains(t, got, "basically")
}

func TestCatalog_SelectActive_CustomNeverExcluded(t *testing.T) {
	c := newTestCatalog(t)
	exclusions := c.SetCustomRules([]string{"synergy", "-synergy"})
	require.Equal(t, []string{"synergy"}, exclusions)

	got := c.SelectActive(nil, exclusions)
	require.Equal(t, []string{"synergy"}, got)
}

func TestCatalog_SelectActive_NoDuplicateForCustomBuiltinCollision(t *testing.T) {
	c := newTestCatalog(t)
	c.SetCustomRules([]string{"Paradigm"})

	got := c.SelectActive([]Category{Jargon}, nil)
	count := 0
	for _, m := range got {
		if m == "paradigm" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestCatalog_SelectActive_Empty(t *testing.T) {
	c := newTestCatalog(t)
	require.Empty(t, c.SelectActive(nil, nil))
}

func TestCatalog_SelectActive_LongestFirst(t *testing.T) {
	c := newTestCatalog(t)
	got := c.SelectActive([]Category{Jargon}, nil)

	require.Less(t, indexOf(got, "paradigm shift"), indexOf(got, "paradigm"))
}

func TestCatalog_SetCustomRules_ReplacesWholesale(t *testing.T) {
	c := newTestCatalog(t)
	builtin := c.Len()

	c.SetCustomRules([]string{"foo", "bar"})
	require.Equal(t, builtin+2, c.Len())

	c.SetCustomRules([]string{"baz"})
	require.Equal(t, builtin+1, c.Len())
	_, err := c.Resolve("foo")
	require.ErrorIs(t, err, ErrUnknownMatch, "stale custom rules must be discarded")

	r, err := c.Resolve("BAZ")
	require.NoError(t, err)
	require.Equal(t, Custom, r.Category)
	require.Zero(t, r.HighlightOffset)
	require.Nil(t, r.HighlightLength)
}

func TestCatalog_FromRulesetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
language: en
rules:
  - category: jargon
    match: Synergy
  - category: redundancy
    match: "past history"
    offset: 5
  - category: jargon
    match: synergy
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rs, err := LoadRuleset(path)
	require.NoError(t, err)

	c, err := NewCatalogFromRuleset(rs)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len(), "duplicate phrase overwrites")

	r, err := c.Resolve("past history")
	require.NoError(t, err)
	require.Equal(t, 5, r.HighlightOffset)
}

func TestParseRuleset_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		errContains string
	}{
		{
			name:        "invalid yaml",
			yaml:        "rules: [",
			errContains: "failed to parse ruleset yaml",
		},
		{
			name:        "missing match",
			yaml:        "rules:\n  - category: jargon\n",
			errContains: "invalid entry 0: category and match are required",
		},
		{
			name:        "unknown category",
			yaml:        "rules:\n  - category: adverb\n    match: very\n",
			errContains: "unknown category",
		},
		{
			name:        "custom category",
			yaml:        "rules:\n  - category: custom\n    match: very\n",
			errContains: "custom rules come from the word list",
		},
		{
			name:        "offset too large",
			yaml:        "rules:\n  - category: jargon\n    match: ok\n  - category: redundancy\n    match: very\n    offset: 4\n",
			errContains: "invalid entry 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRuleset([]byte(tt.yaml))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestLoadRuleset_MissingFile(t *testing.T) {
	_, err := LoadRuleset(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read ruleset file")
}

func TestProperty_SelectActiveSortedByLength(t *testing.T) {
	c := newTestCatalog(t)

	rapid.Check(t, func(rt *rapid.T) {
		cats := rapid.SliceOfDistinct(rapid.SampledFrom(BuiltinCategories), func(c Category) Category { return c }).Draw(rt, "categories")
		custom := rapid.SliceOf(rapid.StringMatching(`[a-z]{1,6}( [a-z]{1,6}){0,2}`)).Draw(rt, "custom")
		exclusions := c.SetCustomRules(custom)

		got := c.SelectActive(cats, exclusions)
		for i := 1; i < len(got); i++ {
			prev, cur := utf8.RuneCountInString(got[i-1]), utf8.RuneCountInString(got[i])
			if prev < cur {
				rt.Fatalf("not longest first at %d: %q (%d) before %q (%d)", i, got[i-1], prev, got[i], cur)
			}
		}
	})
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
