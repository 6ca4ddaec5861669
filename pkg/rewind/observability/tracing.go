package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("rewind")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartMoveSpan starts a span for one engine move.
	StartMoveSpan(ctx context.Context, engineID, direction string, from int) (context.Context, trace.Span)

	// EndMoveSpan records where the move ended and the steps it ran, then
	// completes the span.
	EndMoveSpan(span trace.Span, to int, steps int64, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartMoveSpan starts a span named rewind.<direction>.
func (m *otelSpanManager) StartMoveSpan(ctx context.Context, engineID, direction string, from int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "rewind."+direction,
		trace.WithAttributes(
			attribute.String("engine.id", engineID),
			attribute.Int("move.from", from),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndMoveSpan sets move.to and move.steps and completes the span.
func (m *otelSpanManager) EndMoveSpan(span trace.Span, to int, steps int64, err error) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("move.to", to),
		attribute.Int64("move.steps", steps),
	)
	EndSpanWithError(span, err)
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
