package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// NewTracerProvider builds an in-process OTel tracer provider identified
// by serviceName. No exporter is wired: spans are created and ended for
// their timing/attribute side effects (visible to anything registered as
// a SpanProcessor later) without shipping to a collector, since no OTLP
// exporter dependency is carried.
func NewTracerProvider(serviceName string) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	return tp
}

// Tracer wraps the otel global tracer for agentrt's own span names, the
// way the teacher's internal/observability.Tracer wraps its vendor's
// OTel SDK.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer drawing spans from name's tracer.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// StartSpan starts and returns a span along with its context, mirroring
// the teacher's start-span-defer-end call convention.
func (t *Tracer) StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, spanName)
}
