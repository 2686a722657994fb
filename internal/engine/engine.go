// Package engine owns the derived highlighting state: the rule catalog, the
// active phrase list and the compiled pattern. Apply is its single writer; all
// other methods only read that state.
package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/defluff/internal/config"
	"github.com/zjrosen/defluff/internal/exclusion"
	"github.com/zjrosen/defluff/internal/log"
	"github.com/zjrosen/defluff/internal/pattern"
	"github.com/zjrosen/defluff/internal/rules"
	"github.com/zjrosen/defluff/internal/scan"
	"github.com/zjrosen/defluff/internal/tracing"
)

// compile is replaced in tests to exercise the no-pattern fallback.
var compile = pattern.Compile

// Update describes what changed in the host since the last highlight.
type Update struct {
	DocChanged      bool
	ViewportChanged bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTracer records Apply and Highlight as spans on t.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// Engine is not safe for concurrent use; the owner drives it from one goroutine.
type Engine struct {
	settings config.Settings
	catalog  *rules.Catalog
	active   []string
	pattern  *pattern.Pattern

	// generation counts applied settings; dirty forces the next refresh after
	// an Apply and is cleared by Highlight.
	generation uint64
	dirty      bool

	tracer trace.Tracer
	stats  scan.Stats
}

// New builds an engine and applies s.
func New(s config.Settings, opts ...Option) (*Engine, error) {
	e := &Engine{tracer: noop.NewTracerProvider().Tracer("noop")}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.Apply(s); err != nil {
		return nil, err
	}
	return e, nil
}

// Apply derives the catalog, active phrases and pattern from s. A new catalog
// is built only when the language changes. A pattern that fails to compile
// leaves the engine with no pattern, so nothing is highlighted until the next
// Apply. The only error is a language with no ruleset, in which case the
// previous settings stay in effect.
func (e *Engine) Apply(s config.Settings) error {
	_, span := e.tracer.Start(context.Background(), tracing.SpanApply)
	defer span.End()

	if e.catalog == nil || e.catalog.Language() != s.Language {
		c, err := rules.NewCatalog(s.Language)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("building catalog: %w", err)
		}
		e.catalog = c
		span.AddEvent(tracing.EventCatalogBuilt)
	}

	exclusions := e.catalog.SetCustomRules(rules.SplitWordList(s.CustomWordList))
	e.active = e.catalog.SelectActive(s.Categories.Active(), exclusions)

	p, err := compile(e.active)
	if err != nil {
		log.Warn(log.CatEngine, "pattern compile failed, highlighting paused", "phrases", len(e.active), "error", err)
		span.AddEvent(tracing.EventPatternFailed)
		p = nil
	}
	e.pattern = p

	e.settings = s
	e.generation++
	e.dirty = true

	span.SetAttributes(
		attribute.Int64(tracing.AttrGeneration, int64(e.generation)),
		attribute.String(tracing.AttrLanguage, string(s.Language)),
		attribute.Int(tracing.AttrActiveRules, len(e.active)),
	)
	log.Debug(log.CatEngine, "settings applied",
		"generation", e.generation,
		"language", s.Language,
		"active", len(e.active),
		"enabled", s.Enabled)
	return nil
}

// NeedsUpdate reports whether the host must call Highlight again.
func (e *Engine) NeedsUpdate(u Update) bool {
	return u.DocChanged || u.ViewportChanged || e.dirty
}

// Highlight scans the visible regions of text and returns the spans to draw.
// Exclusions are rebuilt from c on every call. It clears the forced-refresh flag.
func (e *Engine) Highlight(ctx context.Context, text string, regions []scan.Region, c exclusion.Classifier) []scan.Span {
	_, span := e.tracer.Start(ctx, tracing.SpanHighlight)
	defer span.End()

	e.dirty = false

	idx := &exclusion.Index{}
	if e.settings.Enabled && e.pattern != nil {
		for _, r := range regions {
			idx.Add(c, r.Start, r.End)
		}
	}

	spans, st := scan.Scanner{Enabled: e.settings.Enabled}.ScanWithStats(regions, text, e.pattern, e.catalog, idx)
	e.stats = st

	span.SetAttributes(
		attribute.Int64(tracing.AttrGeneration, int64(e.generation)),
		attribute.Int(tracing.AttrRegions, len(regions)),
		attribute.Int(tracing.AttrTextBytes, len(text)),
		attribute.Int(tracing.AttrExcluded, idx.Len()),
		attribute.Int(tracing.AttrMatches, st.Matches),
		attribute.Int(tracing.AttrSpans, st.Emitted),
		attribute.Int(tracing.AttrSkipped, st.Excluded),
		attribute.Int(tracing.AttrUnresolved, st.Unresolved),
	)
	return spans
}

// Toggle flips Enabled and applies the result.
func (e *Engine) Toggle() config.Settings {
	s := e.settings
	s.Enabled = !s.Enabled
	// Same language, so the catalog is reused and Apply cannot fail.
	_ = e.Apply(s)
	return e.settings
}

// Settings returns the settings last applied.
func (e *Engine) Settings() config.Settings {
	return e.settings
}

// Generation returns the number of successful Apply calls.
func (e *Engine) Generation() uint64 {
	return e.generation
}

// ActiveMatches returns the phrases compiled into the current pattern, longest first.
func (e *Engine) ActiveMatches() []string {
	out := make([]string, len(e.active))
	copy(out, e.active)
	return out
}

// Catalog returns the current catalog.
func (e *Engine) Catalog() *rules.Catalog {
	return e.catalog
}

// Pattern returns the compiled pattern, or nil when nothing is active.
func (e *Engine) Pattern() *pattern.Pattern {
	return e.pattern
}

// Stats returns the counts from the last Highlight.
func (e *Engine) Stats() scan.Stats {
	return e.stats
}
