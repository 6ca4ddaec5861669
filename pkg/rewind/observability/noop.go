package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

// RecordMove does nothing.
func (NoopMetrics) RecordMove(_ context.Context, _ string, _ int64, _ time.Duration, _ error) {}

// RecordPlan does nothing.
func (NoopMetrics) RecordPlan(_ context.Context, _, _ int, _ int64) {}

// RecordCheckpoints does nothing.
func (NoopMetrics) RecordCheckpoints(_ context.Context, _ int) {}

// RecordPending does nothing.
func (NoopMetrics) RecordPending(_ context.Context, _ string) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartMoveSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartMoveSpan(ctx context.Context, _, _ string, _ int) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndMoveSpan does nothing.
func (NoopSpanManager) EndMoveSpan(_ trace.Span, _ int, _ int64, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
