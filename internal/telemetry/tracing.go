package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is an alias for trace.Tracer, used for Guardian's
// session/approval spans. Callers that don't wire tracing (tracing
// disabled in config) are handed a no-op implementation.
type Tracer = trace.Tracer

// NewTracerProvider builds an SDK tracer provider that exports spans to
// w (typically os.Stderr in dev mode) using the stdout exporter. Call
// Shutdown on the returned provider when the session ends.
func NewTracerProvider(ctx context.Context, w io.Writer, serverName string) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", "mcp-guardian"),
			attribute.String("service.instance.id", serverName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

// NoopTracer returns a Tracer that creates no-op spans, used when
// tracing is disabled in configuration.
func NoopTracer() Tracer {
	return otel.GetTracerProvider().Tracer("mcp-guardian/noop")
}
