package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/defluff/internal/config"
	"github.com/zjrosen/defluff/internal/exclusion"
	"github.com/zjrosen/defluff/internal/pattern"
	"github.com/zjrosen/defluff/internal/rules"
	"github.com/zjrosen/defluff/internal/scan"
	"github.com/zjrosen/defluff/internal/tracing"
)

func newEngine(t *testing.T, s config.Settings, opts ...Option) *Engine {
	t.Helper()
	e, err := New(s, opts...)
	require.NoError(t, err)
	return e
}

func all(text string) []scan.Region {
	return []scan.Region{{Start: 0, End: len(text)}}
}

func highlighted(text string, spans []scan.Span) []string {
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, text[s.Start:s.End])
	}
	return out
}

func TestNew_AppliesSettings(t *testing.T) {
	e := newEngine(t, config.Defaults())

	require.Equal(t, uint64(1), e.Generation())
	require.NotNil(t, e.Pattern())
	require.Equal(t, rules.English, e.Catalog().Language())
	require.True(t, e.NeedsUpdate(Update{}), "first highlight is forced")
}

func TestNew_UnknownLanguage(t *testing.T) {
	s := config.Defaults()
	s.Language = "xx"
	_, err := New(s)
	require.ErrorIs(t, err, rules.ErrUnknownLanguage)
}

func TestHighlight_ClearsDirtyFlag(t *testing.T) {
	e := newEngine(t, config.Defaults())
	text := "It is basically done."

	spans := e.Highlight(context.Background(), text, all(text), nil)
	require.Equal(t, []string{"basically"}, highlighted(text, spans))

	require.False(t, e.NeedsUpdate(Update{}))
	require.True(t, e.NeedsUpdate(Update{DocChanged: true}))
	require.True(t, e.NeedsUpdate(Update{ViewportChanged: true}))
}

func TestApply_SetsDirtyAndBumpsGeneration(t *testing.T) {
	e := newEngine(t, config.Defaults())
	e.Highlight(context.Background(), "", nil, nil)
	require.False(t, e.NeedsUpdate(Update{}))

	s := e.Settings()
	s.Categories = s.Categories.Set(rules.WeakQualifier, false)
	require.NoError(t, e.Apply(s))

	require.Equal(t, uint64(2), e.Generation())
	require.True(t, e.NeedsUpdate(Update{}))
	require.NotContains(t, e.ActiveMatches(), "basically")
}

func TestApply_LanguageSwitchBuildsNewCatalog(t *testing.T) {
	e := newEngine(t, config.Defaults())
	before := e.Catalog()

	s := e.Settings()
	s.CustomWordList = "synergize"
	require.NoError(t, e.Apply(s))
	require.Same(t, before, e.Catalog(), "same language reuses the catalog")

	s.Language = rules.German
	require.NoError(t, e.Apply(s))
	require.NotSame(t, before, e.Catalog())
	require.Equal(t, rules.German, e.Catalog().Language())

	text := "Das ist bereits schon synergize."
	spans := e.Highlight(context.Background(), text, all(text), nil)
	require.Equal(t, []string{"schon", "synergize"}, highlighted(text, spans))
}

func TestApply_FailedLanguageKeepsPreviousState(t *testing.T) {
	e := newEngine(t, config.Defaults())
	gen := e.Generation()

	s := e.Settings()
	s.Language = "xx"
	require.Error(t, e.Apply(s))
	require.Equal(t, gen, e.Generation())
	require.Equal(t, rules.English, e.Settings().Language)
}

func TestApply_CustomWordList(t *testing.T) {
	s := config.Defaults()
	s.CustomWordList = "foo\n-basically\nbaz qux"
	e := newEngine(t, s)

	active := e.ActiveMatches()
	require.Contains(t, active, "foo")
	require.Contains(t, active, "baz qux")
	require.NotContains(t, active, "basically")

	text := "Foo, basically, Baz Qux."
	spans := e.Highlight(context.Background(), text, all(text), nil)
	require.Equal(t, []string{"Foo", "Baz Qux"}, highlighted(text, spans))
	for _, sp := range spans {
		require.Equal(t, rules.Custom, sp.Category)
	}
}

func TestApply_NothingActive(t *testing.T) {
	s := config.Defaults()
	s.Categories = config.CategoryToggles{}
	e := newEngine(t, s)

	require.Nil(t, e.Pattern())
	require.Empty(t, e.ActiveMatches())
	text := "basically a paradigm shift"
	require.Empty(t, e.Highlight(context.Background(), text, all(text), nil))
}

func TestApply_CompileFailureLeavesNoPattern(t *testing.T) {
	e := newEngine(t, config.Defaults())
	gen := e.Generation()

	compile = func([]string) (*pattern.Pattern, error) {
		return nil, fmt.Errorf("%w: program too large", pattern.ErrInvalidPattern)
	}
	t.Cleanup(func() { compile = pattern.Compile })

	require.NoError(t, e.Apply(e.Settings()), "a bad pattern is not an Apply error")
	require.Nil(t, e.Pattern())
	require.Equal(t, gen+1, e.Generation())
	require.True(t, e.NeedsUpdate(Update{}))

	text := "It is basically done."
	require.Empty(t, e.Highlight(context.Background(), text, all(text), nil))
	require.NotEmpty(t, e.ActiveMatches(), "active phrases are kept for the next compile")

	compile = pattern.Compile
	require.NoError(t, e.Apply(e.Settings()))
	require.NotNil(t, e.Pattern())
	require.Equal(t, []string{"basically"}, highlighted(text, e.Highlight(context.Background(), text, all(text), nil)))
}

func TestHighlight_Disabled(t *testing.T) {
	s := config.Defaults()
	s.Enabled = false
	e := newEngine(t, s)

	text := "basically"
	require.Empty(t, e.Highlight(context.Background(), text, all(text), nil))
	require.False(t, e.NeedsUpdate(Update{}))
}

func TestToggle(t *testing.T) {
	e := newEngine(t, config.Defaults())
	text := "basically"

	s := e.Toggle()
	require.False(t, s.Enabled)
	require.True(t, e.NeedsUpdate(Update{}), "toggling forces a refresh")
	require.Empty(t, e.Highlight(context.Background(), text, all(text), nil))

	s = e.Toggle()
	require.True(t, s.Enabled)
	require.Len(t, e.Highlight(context.Background(), text, all(text), nil), 1)
	require.Equal(t, uint64(3), e.Generation())
}

func TestHighlight_UsesClassifierPerRegion(t *testing.T) {
	e := newEngine(t, config.Defaults())
	text := "basically `basically` basically"
	code := strings.Index(text, "`")

	var calls [][2]int
	c := exclusion.ClassifierFunc(func(start, end int) []exclusion.Node {
		calls = append(calls, [2]int{start, end})
		return []exclusion.Node{{Name: "inline-code", Start: code, End: code + len("`basically`")}}
	})

	regions := []scan.Region{{Start: 0, End: 10}, {Start: 10, End: len(text)}}
	spans := e.Highlight(context.Background(), text, regions, c)
	require.Equal(t, []string{"basically", "basically"}, highlighted(text, spans))
	require.Equal(t, [][2]int{{0, 10}, {10, len(text)}}, calls)
	require.Equal(t, 1, e.Stats().Excluded)
}

func TestActiveMatches_ReturnsCopy(t *testing.T) {
	e := newEngine(t, config.Defaults())
	got := e.ActiveMatches()
	got[0] = "mutated"
	require.NotEqual(t, "mutated", e.ActiveMatches()[0])
}

func TestWithTracer_RecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	e := newEngine(t, config.Defaults(), WithTracer(tp.Tracer("test")))
	text := "basically"
	e.Highlight(context.Background(), text, all(text), nil)

	ended := rec.Ended()
	require.Len(t, ended, 2)
	require.Equal(t, tracing.SpanApply, ended[0].Name())
	require.Equal(t, tracing.SpanHighlight, ended[1].Name())

	attrs := make(map[string]int64)
	for _, kv := range ended[1].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInt64()
	}
	require.Equal(t, int64(1), attrs[tracing.AttrSpans])
	require.Equal(t, int64(1), attrs[tracing.AttrMatches])
}
