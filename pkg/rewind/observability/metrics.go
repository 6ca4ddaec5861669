package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records rewind metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordMove records a finished move: its direction, the step
	// invocations it spent and whether it failed.
	RecordMove(ctx context.Context, direction string, steps int64, duration time.Duration, err error)

	// RecordPlan records a plan build.
	RecordPlan(ctx context.Context, length, budget int, total int64)

	// RecordCheckpoints records the table size after a move.
	RecordCheckpoints(ctx context.Context, count int)

	// RecordPending records a deamortized call that ran out of budget.
	RecordPending(ctx context.Context, direction string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	moves       metric.Int64Counter
	moveSteps   metric.Int64Histogram
	moveLatency metric.Float64Histogram
	moveErrors  metric.Int64Counter
	plans       metric.Int64Counter
	planCost    metric.Int64Histogram
	checkpoints metric.Int64Histogram
	pending     metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("rewind")

	moves, err := meter.Int64Counter("rewind.moves",
		metric.WithDescription("Number of committed or failed moves"),
	)
	if err != nil {
		return nil, err
	}

	moveSteps, err := meter.Int64Histogram("rewind.move.steps",
		metric.WithDescription("Step invocations spent per move"),
	)
	if err != nil {
		return nil, err
	}

	moveLatency, err := meter.Float64Histogram("rewind.move.latency_ms",
		metric.WithDescription("Move latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	moveErrors, err := meter.Int64Counter("rewind.move.errors",
		metric.WithDescription("Number of failed moves"),
	)
	if err != nil {
		return nil, err
	}

	plans, err := meter.Int64Counter("rewind.plans",
		metric.WithDescription("Number of checkpoint plans built"),
	)
	if err != nil {
		return nil, err
	}

	planCost, err := meter.Int64Histogram("rewind.plan.total_cost",
		metric.WithDescription("Replay steps of a full backward traversal under the plan"),
	)
	if err != nil {
		return nil, err
	}

	checkpoints, err := meter.Int64Histogram("rewind.checkpoints",
		metric.WithDescription("Checkpoints held after a move"),
	)
	if err != nil {
		return nil, err
	}

	pending, err := meter.Int64Counter("rewind.pending",
		metric.WithDescription("Deamortized calls returning before their move committed"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		moves:       moves,
		moveSteps:   moveSteps,
		moveLatency: moveLatency,
		moveErrors:  moveErrors,
		plans:       plans,
		planCost:    planCost,
		checkpoints: checkpoints,
		pending:     pending,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordMove records a move.
func (m *otelMetrics) RecordMove(ctx context.Context, direction string, steps int64, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("direction", direction))

	m.moves.Add(ctx, 1, attrs)
	m.moveSteps.Record(ctx, steps, attrs)
	m.moveLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)

	if err != nil {
		m.moveErrors.Add(ctx, 1, attrs)
	}
}

// RecordPlan records a plan build.
func (m *otelMetrics) RecordPlan(ctx context.Context, length, budget int, total int64) {
	attrs := metric.WithAttributes(
		attribute.Int("length", length),
		attribute.Int("budget", budget),
	)
	m.plans.Add(ctx, 1, attrs)
	m.planCost.Record(ctx, total, attrs)
}

// RecordCheckpoints records the table size.
func (m *otelMetrics) RecordCheckpoints(ctx context.Context, count int) {
	m.checkpoints.Record(ctx, int64(count))
}

// RecordPending records a pending deamortized call.
func (m *otelMetrics) RecordPending(ctx context.Context, direction string) {
	m.pending.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", direction)))
}
