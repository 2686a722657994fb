package tracing

// Span names.
const (
	SpanHighlight = "engine.highlight"
	SpanApply     = "engine.apply"
	SpanCheck     = "cmd.check"
)

// Span attribute keys.
const (
	AttrGeneration  = "defluff.generation"
	AttrLanguage    = "defluff.language"
	AttrActiveRules = "defluff.rules.active"
	AttrRegions     = "scan.regions"
	AttrTextBytes   = "scan.text_bytes"
	AttrExcluded    = "scan.excluded_ranges"
	AttrMatches     = "scan.matches"
	AttrSpans       = "scan.spans"
	AttrSkipped     = "scan.skipped"
	AttrUnresolved  = "scan.unresolved"
	AttrPath        = "file.path"
)

// Event names.
const (
	EventPatternFailed = "pattern.failed"
	EventCatalogBuilt  = "catalog.built"
)
