package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the tracer name used when none is supplied.
const InstrumentationName = "github.com/GoCodeAlone/redishandles"

// CommandTracer starts spans for registry builds and dispatched commands.
type CommandTracer struct {
	tracer trace.Tracer
}

// NewCommandTracer creates a CommandTracer. A nil tracer falls back to the
// global provider.
func NewCommandTracer(tracer trace.Tracer) *CommandTracer {
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer(InstrumentationName)
	}
	return &CommandTracer{tracer: tracer}
}

// StartBuild begins a span around a registry build over the named
// interfaces.
func (c *CommandTracer) StartBuild(ctx context.Context, interfaces []string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "registry.build",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.StringSlice("registry.interfaces", interfaces),
		),
	)
}

// StartCommand begins a client span for one dispatched command.
func (c *CommandTracer) StartCommand(ctx context.Context, signature, method, declaring string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "redis."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemRedis,
			attribute.String("db.operation.name", method),
			attribute.String("redis.signature", signature),
			attribute.String("redis.interface", declaring),
		),
	)
}

// RecordError records err on span and marks it failed. A nil err is a no-op.
func (c *CommandTracer) RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks span as successful.
func (c *CommandTracer) SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
