package observability

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), DefaultTracingConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("disabled tracing produced a recording span")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Error(err)
	}
}

func TestInitTracingExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Writer = &buf

	shutdown, err := InitTracing(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer InitTracing(context.Background(), DefaultTracingConfig(), testLogger())

	_, span := otel.Tracer("test").Start(context.Background(), "catalog.fetch")
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown, testLogger())

	if !strings.Contains(buf.String(), "catalog.fetch") {
		t.Errorf("exported spans missing catalog.fetch: %q", buf.String())
	}
}

func TestInitTracingRejectsBadConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Exporter = "zipkin"
	if _, err := InitTracing(context.Background(), cfg, testLogger()); err == nil {
		t.Error("unsupported exporter accepted")
	}

	cfg = DefaultTracingConfig()
	cfg.Enabled = true
	cfg.SampleRatio = 2
	if _, err := InitTracing(context.Background(), cfg, testLogger()); err == nil {
		t.Error("sample ratio above 1 accepted")
	}
}
