// Package telemetry initializes OpenTelemetry tracing for graphrat.
//
// The simulator creates spans through the global tracer provider; Init
// installs an SDK provider behind it when an exporter is configured. With
// the "none" exporter the global no-op provider stays in place and spans
// cost nothing.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrNilContext is returned by Init when ctx is nil.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned by Init for an unrecognized exporter name.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter type")
)

// Config controls telemetry behavior.
type Config struct {
	// ServiceName identifies this process in exported spans.
	ServiceName string

	// ServiceVersion is the version string for this process.
	ServiceVersion string

	// Exporter selects the trace exporter: "stdout" or "none".
	Exporter string

	// Writer receives stdout spans. Nil means os.Stderr, so spans never mix
	// with simulation output on stdout.
	Writer io.Writer
}

// Shutdown flushes and stops whatever Init installed.
type Shutdown func(context.Context) error

// Init installs a global tracer provider for cfg.Exporter and returns the
// function that flushes it. The returned Shutdown is never nil.
func Init(ctx context.Context, cfg Config) (Shutdown, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "", "none":
		return func(context.Context) error { return nil }, nil
	case "stdout":
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.Exporter)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown tracer provider: %w", err)
		}
		return nil
	}, nil
}

// LoggerWithTrace returns logger annotated with the trace and span IDs of
// the span in ctx, or logger unchanged when there is none.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		return logger
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
