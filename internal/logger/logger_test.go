package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"
)

func TestNew(t *testing.T) {
	t.Run("production", func(t *testing.T) {
		l := New("production")
		if l == nil {
			t.Fatal("expected logger to be non-nil")
		}
	})

	t.Run("development", func(t *testing.T) {
		l := New("development")
		if l == nil {
			t.Fatal("expected logger to be non-nil")
		}
	})
}

func TestNewWithWriter(t *testing.T) {
	t.Run("production writes JSON at info", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewWithWriter("production", &buf)
		l.Debug("hidden")
		l.Info("menu extracted", "dishes", 12)

		out := strings.TrimSpace(buf.String())
		if strings.Contains(out, "hidden") {
			t.Errorf("debug record leaked into production output: %s", out)
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(out), &rec); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", out, err)
		}
		if rec["msg"] != "menu extracted" || rec["dishes"] != float64(12) {
			t.Errorf("unexpected record: %v", rec)
		}
	})

	t.Run("development writes debug text", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewWithWriter("development", &buf).With("session_id", "s-1")
		l.Debug("batch revealed")

		out := buf.String()
		if !strings.Contains(out, "batch revealed") || !strings.Contains(out, "session_id=s-1") {
			t.Errorf("unexpected text output: %s", out)
		}
	})
}

func TestToOTelValue(t *testing.T) {
	if got := toOTelValue(slog.IntValue(3)); got.Kind() != otellog.KindInt64 || got.AsInt64() != 3 {
		t.Errorf("int value mapped to %v", got)
	}
	if got := toOTelValue(slog.GroupValue(slog.String("a", "b"))); got.Kind() != otellog.KindMap {
		t.Errorf("group value mapped to %v", got.Kind())
	}
	if got := toOTelValue(slog.AnyValue([]int{1})); got.Kind() != otellog.KindString {
		t.Errorf("any value mapped to %v", got.Kind())
	}
}

type mockSpan struct {
	trace.Span
	sc trace.SpanContext
}

func (s mockSpan) SpanContext() trace.SpanContext {
	return s.sc
}

func TestWithTraceContext(t *testing.T) {
	t.Run("valid span", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
		spanID, _ := trace.SpanIDFromHex("0102030405060708")
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: traceID,
			SpanID:  spanID,
		})
		ctx := trace.ContextWithSpan(context.Background(), mockSpan{sc: sc})

		attr := WithTraceContext(ctx)
		if attr.Key != "trace" {
			t.Errorf("expected key 'trace', got %s", attr.Key)
		}

		group := attr.Value.Group()
		if len(group) != 2 {
			t.Errorf("expected 2 attributes in group, got %d", len(group))
		}

		foundTraceID := false
		foundSpanID := false
		for _, a := range group {
			if a.Key == "trace_id" && a.Value.String() == "0102030405060708090a0b0c0d0e0f10" {
				foundTraceID = true
			}
			if a.Key == "span_id" && a.Value.String() == "0102030405060708" {
				foundSpanID = true
			}
		}

		if !foundTraceID {
			t.Error("trace_id not found or incorrect")
		}
		if !foundSpanID {
			t.Error("span_id not found or incorrect")
		}
	})

	t.Run("invalid span", func(t *testing.T) {
		ctx := context.Background()
		attr := WithTraceContext(ctx)
		if !attr.Equal(slog.Attr{}) {
			t.Errorf("expected empty attribute for invalid span, got %+v", attr)
		}
	})
}
