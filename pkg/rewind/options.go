package rewind

import (
	"log/slog"

	"github.com/randalmurphal/rewind/pkg/rewind/costmodel"
	"github.com/randalmurphal/rewind/pkg/rewind/observability"
)

// DefaultBudget is the number of checkpoints used without WithBudget.
const DefaultBudget = 8

// engineConfig holds configuration for an engine.
type engineConfig struct {
	budget  int
	length  int // 0 means unknown
	growth  int
	model   *costmodel.Model
	id      string
	clone   any
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		budget:  DefaultBudget,
		growth:  costmodel.DefaultGrowth,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// privateModel returns a model whose cache belongs to one engine.
func privateModel() *costmodel.Model {
	return costmodel.NewModel(costmodel.WithCache(costmodel.NewCache()))
}

// Option configures an engine.
type Option func(*engineConfig)

// WithBudget sets k, the number of checkpoints kept besides the initial state.
// Default: DefaultBudget. Negative values make New fail with ErrInvalidBudget.
func WithBudget(k int) Option {
	return func(c *engineConfig) {
		c.budget = k
	}
}

// WithLength declares the sequence length n. Without it the length is
// discovered when the step function returns ErrEndOfSequence.
// Values below 1 make New fail with ErrInvalidBudget.
func WithLength(n int) Option {
	return func(c *engineConfig) {
		c.length = n
		if n <= 0 {
			c.length = -1
		}
	}
}

// WithGrowth sets the initial working extent for sequences of unknown
// length. The extent doubles each time the cursor crosses it.
// Default: costmodel.DefaultGrowth.
func WithGrowth(hint int) Option {
	return func(c *engineConfig) {
		if hint >= 2 {
			c.growth = hint
		}
	}
}

// WithModel sets the cost model, typically to share a Cache with a
// persistent store or a custom cell bound. Without it each engine gets a
// private cache that Close releases; tables are shared between engines
// only through a model passed here.
func WithModel(m *costmodel.Model) Option {
	return func(c *engineConfig) {
		if m != nil {
			c.model = m
		}
	}
}

// WithID sets the engine ID used in logs and spans. Default: a random UUID.
func WithID(id string) Option {
	return func(c *engineConfig) {
		c.id = id
	}
}

// WithClone sets the function used to copy states before they are stored
// as checkpoints. Needed when S holds references the caller later mutates.
// The type parameter must match the engine's state type.
func WithClone[S any](fn func(S) S) Option {
	return func(c *engineConfig) {
		c.clone = fn
	}
}

// WithLogger sets the logger. Default: no logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter provider.
func WithMetrics(enabled bool) Option {
	return func(c *engineConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables OpenTelemetry spans through the global tracer provider.
func WithTracing(enabled bool) Option {
	return func(c *engineConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithMetricsRecorder sets a custom metrics recorder.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *engineConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpanManager sets a custom span manager.
func WithSpanManager(s observability.SpanManager) Option {
	return func(c *engineConfig) {
		if s != nil {
			c.spans = s
		}
	}
}
