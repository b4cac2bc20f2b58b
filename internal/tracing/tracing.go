// SPDX-License-Identifier: Apache-2.0

// Package tracing exports one span per arena cycle of the command line
// tools.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"

	arena "github.com/wundergraph/go-region-arena"
)

const service = "primefactor"

// NewProvider returns a tracer provider batching spans to the jaeger
// collector at endpoint, e.g. http://localhost:14268/api/traces.
func NewProvider(endpoint string) (*tracesdk.TracerProvider, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return nil, err
	}
	return tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(service),
		)),
	), nil
}

// StartCycle opens the span of one transient cycle.
func StartCycle(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndCycle records the arena usage reached during the cycle and the
// cycle's error, then ends span. Call it before resetting the arena.
func EndCycle(span trace.Span, stats arena.Stats, err error) {
	span.SetAttributes(
		attribute.Int64("arena.cycle", int64(stats.Cycles)),
		attribute.Int("arena.transient.used", stats.Transient.Used),
		attribute.Int("arena.transient.peak", stats.Transient.Peak),
		attribute.Int("arena.transient.allocations", int(stats.Transient.Allocations)),
		attribute.Int("arena.permanent.used", stats.Permanent.Used),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
