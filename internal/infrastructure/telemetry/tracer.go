package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StartServiceSpan starts an internal span named service.operation.
func StartServiceSpan(ctx context.Context, tracer trace.Tracer, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("%s.%s", service, operation)
	attrs = append(attrs,
		attribute.String("service.name", service),
		attribute.String("service.operation", operation),
		attribute.String("component", "service"),
	)
	return tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
}

// StartCacheSpan starts a client span for a cache operation.
func StartCacheSpan(ctx context.Context, tracer trace.Tracer, operation, key string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "cache."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.operation", operation),
			attribute.String("cache.key", key),
			attribute.String("db.system", "redis"),
		),
	)
}
