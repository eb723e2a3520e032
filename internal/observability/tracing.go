// Package observability sets up OpenTelemetry tracing.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracingConfig governs how tracing is initialised.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string // stdout | stderr
	SampleRatio float64
	Writer      io.Writer // overrides Exporter; used by tests
}

// DefaultTracingConfig returns tracing disabled with full sampling once on.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "orbitsim",
		Exporter:    "stdout",
		SampleRatio: 1.0,
	}
}

// InitTracing wires a tracer provider, exporter, propagators, and sampler based
// on the provided configuration. It returns a shutdown function to flush spans.
func InitTracing(ctx context.Context, cfg TracingConfig, logger *slog.Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		logger.Debug("tracing disabled; using noop tracer provider")
		return func(context.Context) error { return nil }, nil
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		return nil, fmt.Errorf("tracing sample ratio %v outside [0, 1]", cfg.SampleRatio)
	}

	exp, err := exporterFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.namespace", "orbitsim"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	logger.Info("tracing enabled",
		"exporter", cfg.Exporter,
		"service_name", cfg.ServiceName,
		"sampler", fmt.Sprintf("parentbased_traceidratio_%0.2f", cfg.SampleRatio),
	)

	return tp.Shutdown, nil
}

func exporterFromConfig(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	w := cfg.Writer
	if w == nil {
		switch strings.ToLower(cfg.Exporter) {
		case "stdout", "":
			w = os.Stdout
		case "stderr":
			w = os.Stderr
		default:
			return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
		}
	}
	return stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithoutTimestamps(),
	)
}

// ShutdownWithTimeout invokes the provided shutdown function with a bounded
// timeout, logging rather than returning errors.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, logger *slog.Logger) {
	if shutdown == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("tracing shutdown failed", "error", err)
	}
}
