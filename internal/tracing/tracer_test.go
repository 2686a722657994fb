package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/defluff/internal/config"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.False(t, p.Enabled())
	require.NotNil(t, p.Tracer())

	_, span := p.Tracer().Start(context.Background(), SpanHighlight)
	span.End()
	require.False(t, span.SpanContext().IsValid(), "no-op spans carry no context")
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_NoneExporter(t *testing.T) {
	p, err := NewProvider(config.TracingConfig{Enabled: true, Exporter: "none", SampleRate: 1})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), SpanApply)
	require.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_UnsupportedExporter(t *testing.T) {
	_, err := NewProvider(config.TracingConfig{Enabled: true, Exporter: "kafka"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported exporter type")
}

func TestNewProvider_FileExporterWritesSpans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "traces.jsonl")
	p, err := NewProvider(config.TracingConfig{Enabled: true, Exporter: "file", FilePath: path, SampleRate: 1})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), SpanHighlight)
	span.SetAttributes(attribute.Int(AttrSpans, 3))
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	records := readRecords(t, path)
	require.Len(t, records, 1)
	require.Equal(t, SpanHighlight, records[0].Name)
	require.EqualValues(t, 3, records[0].Attributes[AttrSpans])
}

func TestFileExporter_Record(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	exp, err := NewFileExporter(path)
	require.NoError(t, err)

	start := time.Now()
	stub := tracetest.SpanStub{
		Name:       SpanCheck,
		StartTime:  start,
		EndTime:    start.Add(250 * time.Millisecond),
		Status:     sdktrace.Status{Code: codes.Error, Description: "boom"},
		Attributes: []attribute.KeyValue{attribute.String(AttrPath, "notes.md")},
		Events:     []sdktrace.Event{{Name: EventPatternFailed, Time: start}},
	}
	require.NoError(t, exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, exp.Shutdown(context.Background()))

	records := readRecords(t, path)
	require.Len(t, records, 1)
	r := records[0]
	require.Equal(t, "ERROR", r.Status)
	require.Equal(t, "boom", r.StatusMsg)
	require.InDelta(t, 250.0, r.DurationMs, 0.001)
	require.Equal(t, "notes.md", r.Attributes[AttrPath])
	require.Equal(t, []string{EventPatternFailed}, r.Events)
}

func TestFileExporter_AfterShutdown(t *testing.T) {
	exp, err := NewFileExporter(filepath.Join(t.TempDir(), "traces.jsonl"))
	require.NoError(t, err)
	require.NoError(t, exp.Shutdown(context.Background()))
	require.NoError(t, exp.Shutdown(context.Background()), "second shutdown is a no-op")

	stub := tracetest.SpanStub{Name: "late"}
	require.Error(t, exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
}

func TestFileExporter_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"existing"}`+"\n"), 0o600))

	exp, err := NewFileExporter(path)
	require.NoError(t, err)
	stub := tracetest.SpanStub{Name: "next"}
	require.NoError(t, exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, exp.Shutdown(context.Background()))

	records := readRecords(t, path)
	require.Len(t, records, 2)
	require.Equal(t, "existing", records[0].Name)
	require.Equal(t, "next", records[1].Name)
}

func readRecords(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var out []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		out = append(out, r)
	}
	require.NoError(t, sc.Err())
	return out
}
