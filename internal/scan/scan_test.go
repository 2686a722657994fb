package scan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/defluff/internal/exclusion"
	"github.com/zjrosen/defluff/internal/pattern"
	"github.com/zjrosen/defluff/internal/rules"
)

func setup(t *testing.T, cats []rules.Category, custom ...string) (*rules.Catalog, *pattern.Pattern) {
	t.Helper()
	c, err := rules.NewCatalog(rules.English)
	require.NoError(t, err)
	exclusions := c.SetCustomRules(custom)
	p, err := pattern.Compile(c.SelectActive(cats, exclusions))
	require.NoError(t, err)
	return c, p
}

func whole(text string) []Region {
	return []Region{{Start: 0, End: len(text)}}
}

func spanText(text string, spans []Span) []string {
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, text[s.Start:s.End])
	}
	return out
}

func TestScan_OffsetRule(t *testing.T) {
	c, p := setup(t, []rules.Category{rules.Redundancy})
	text := "We combine together the parts."

	spans := Scanner{Enabled: true}.Scan(whole(text), text, p, c, nil)
	require.Len(t, spans, 1)
	// Seven characters into the match is the space before "together".
	require.Equal(t, " together", text[spans[0].Start:spans[0].End])
	require.Equal(t, rules.Redundancy, spans[0].Category)
	require.Equal(t, 10, spans[0].Start)
}

func TestScan_LengthRule(t *testing.T) {
	c, p := setup(t, []rules.Category{rules.Redundancy})
	text := "Each and every item"

	spans := Scanner{Enabled: true}.Scan(whole(text), text, p, c, nil)
	require.Equal(t, []string{"Each and "}, spanText(text, spans))
}

func TestScan_LongestMatchPrecedence(t *testing.T) {
	c, p := setup(t, []rules.Category{rules.Jargon})
	text := "This is a paradigm shift."

	spans := Scanner{Enabled: true}.Scan(whole(text), text, p, c, nil)
	require.Equal(t, []string{"paradigm shift"}, spanText(text, spans))
}

func TestScan_RegionOffsets(t *testing.T) {
	c, p := setup(t, []rules.Category{rules.WeakQualifier})
	text := "basically fine\nit is basically fine"
	second := strings.Index(text, "\n") + 1

	spans := Scanner{Enabled: true}.Scan([]Region{{Start: second, End: len(text)}}, text, p, c, nil)
	require.Len(t, spans, 1)
	require.Equal(t, second+6, spans[0].Start)
	require.Equal(t, "basically", text[spans[0].Start:spans[0].End])
}

func TestScan_ExclusionContainment(t *testing.T) {
	c, p := setup(t, []rules.Category{rules.WeakQualifier})
	text := "basically `basically` basically"
	code := strings.Index(text, "`")
	excl := exclusion.Build(exclusion.ClassifierFunc(func(int, int) []exclusion.Node {
		return []exclusion.Node{{Name: "inline-code", Start: code, End: code + len("`basically`")}}
	}), 0, len(text))

	spans, st := Scanner{Enabled: true}.ScanWithStats(whole(text), text, p, c, excl)
	require.Len(t, spans, 2)
	require.Equal(t, 0, spans[0].Start)
	require.Equal(t, len(text)-len("basically"), spans[1].Start)
	require.Equal(t, Stats{Matches: 3, Emitted: 2, Excluded: 1}, st)
}

func TestScan_ExclusionUsesAdjustedStart(t *testing.T) {
	c, p := setup(t, []rules.Category{rules.Redundancy})
	text := "combine together"
	// Only "combine" is excluded; the highlight starts after it.
	excl := exclusion.Build(exclusion.ClassifierFunc(func(int, int) []exclusion.Node {
		return []exclusion.Node{{Name: "link", Start: 0, End: 6}}
	}), 0, len(text))

	spans := Scanner{Enabled: true}.Scan(whole(text), text, p, c, excl)
	require.Equal(t, []string{" together"}, spanText(text, spans))
}

func TestScan_EmptyPattern(t *testing.T) {
	c, p := setup(t, nil)
	require.Nil(t, p)

	text := "basically a paradigm shift"
	require.Empty(t, Scanner{Enabled: true}.Scan(whole(text), text, p, c, nil))
}

func TestScan_Disabled(t *testing.T) {
	c, p := setup(t, rules.BuiltinCategories)
	text := "basically a paradigm shift"
	require.Empty(t, Scanner{}.Scan(whole(text), text, p, c, nil))
}

func TestScan_UnresolvedSkipped(t *testing.T) {
	c, _ := setup(t, nil)
	p := pattern.MustCompile([]string{"zebra", "basically"})
	text := "zebra basically"

	spans, st := Scanner{Enabled: true}.ScanWithStats(whole(text), text, p, c, nil)
	require.Equal(t, []string{"basically"}, spanText(text, spans))
	require.Equal(t, 1, st.Unresolved)
}

func TestScan_CustomRule(t *testing.T) {
	c, p := setup(t, nil, "foo", "-bar", "baz qux")
	text := "Foo and BAZ QUX, not bar"

	spans := Scanner{Enabled: true}.Scan(whole(text), text, p, c, nil)
	require.Equal(t, []string{"Foo", "BAZ QUX"}, spanText(text, spans))
	for _, s := range spans {
		require.Equal(t, rules.Custom, s.Category)
	}
}

func TestScan_ClampsRegions(t *testing.T) {
	c, p := setup(t, []rules.Category{rules.WeakQualifier})
	text := "basically"

	spans := Scanner{Enabled: true}.Scan([]Region{{Start: -10, End: 500}, {Start: 40, End: 50}}, text, p, c, nil)
	require.Equal(t, []string{"basically"}, spanText(text, spans))
}

func TestScan_NonASCIIOffset(t *testing.T) {
	c, err := rules.NewCatalog(rules.German)
	require.NoError(t, err)
	p, err := pattern.Compile(c.SelectActive([]rules.Category{rules.Redundancy}, nil))
	require.NoError(t, err)

	text := "Das ist bereits schon erledigt."
	spans := Scanner{Enabled: true}.Scan(whole(text), text, p, c, nil)
	require.Equal(t, []string{"schon"}, spanText(text, spans))
}

func TestProperty_ScanIdempotent(t *testing.T) {
	c, p := setup(t, rules.BuiltinCategories)
	words := []string{"basically", "just", "very", "paradigm", "shift", "combine", "together", "the", "`code`", "\n"}

	rapid.Check(t, func(rt *rapid.T) {
		parts := rapid.SliceOfN(rapid.SampledFrom(words), 0, 40).Draw(rt, "words")
		text := strings.Join(parts, " ")
		start := rapid.IntRange(0, len(text)).Draw(rt, "start")
		end := rapid.IntRange(start, len(text)).Draw(rt, "end")
		regions := []Region{{Start: start, End: end}}

		s := Scanner{Enabled: true}
		first := s.Scan(regions, text, p, c, nil)
		second := s.Scan(regions, text, p, c, nil)
		if len(first) != len(second) {
			rt.Fatalf("scan not idempotent: %v vs %v", first, second)
		}
		for i := range first {
			if first[i] != second[i] {
				rt.Fatalf("span %d differs: %v vs %v", i, first[i], second[i])
			}
			if first[i].End <= first[i].Start || first[i].Start < start || first[i].End > end {
				rt.Fatalf("span %v outside region [%d,%d)", first[i], start, end)
			}
		}
	})
}
