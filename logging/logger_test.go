package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", line, err)
	}
	return m
}

func TestTraceHandlerInjectsIDs(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Service: "capvol", Module: "test", Level: "info"}, &buf)

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "strip")
	defer span.End()

	l.With("snapshot_id", "s1").InfoContext(ctx, "stripped")

	m := decodeLine(t, &buf)
	if m["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want %s", m["trace_id"], span.SpanContext().TraceID())
	}
	if m["span_id"] != span.SpanContext().SpanID().String() {
		t.Errorf("span_id = %v", m["span_id"])
	}
	if m["service"] != "capvol" || m["module"] != "test" || m["snapshot_id"] != "s1" {
		t.Errorf("missing attrs: %v", m)
	}
	if _, ok := m["timestamp"]; !ok {
		t.Errorf("time key must be renamed to timestamp: %v", m)
	}
}

func TestNoTraceWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "info"}, &buf)
	l.InfoContext(context.Background(), "plain")

	if _, ok := decodeLine(t, &buf)["trace_id"]; ok {
		t.Errorf("trace_id must be absent without an active span")
	}
}

func TestSetLevel(t *testing.T) {
	defer SetLevel("info")

	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "info"}, &buf)

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug must be filtered at info level")
	}

	SetLevel("debug")
	if Level() != slog.LevelDebug {
		t.Fatalf("level = %v, want debug", Level())
	}
	l.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug must pass after SetLevel(debug)")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	l := newLogger(Config{Service: "capvol"}, &a, &b)
	l.Warn("both")

	if !strings.Contains(a.String(), "both") || !strings.Contains(b.String(), "both") {
		t.Errorf("record must reach every writer: %q / %q", a.String(), b.String())
	}
}
