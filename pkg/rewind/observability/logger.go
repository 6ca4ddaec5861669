// Package observability provides structured logging, metrics, and tracing
// for rewind engines.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every logging helper accepts a nil logger and then does nothing.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds engine context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "3f2a...")
//	enriched.Info("walking") // includes engine_id
func EnrichLogger(logger *slog.Logger, engineID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("engine_id", engineID))
}

// LogPlanBuilt logs a new checkpoint plan.
func LogPlanBuilt(logger *slog.Logger, extent string, budget int, total, perStep int64, placements int) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint plan built",
		slog.String("extent", extent),
		slog.Int("budget", budget),
		slog.Int64("total_cost", total),
		slog.Int64("per_step", perStep),
		slog.Int("placements", placements),
	)
}

// LogReplan logs a plan replaced because the working extent grew.
func LogReplan(logger *slog.Logger, oldLen, newLen int, stale int) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint plan replaced",
		slog.Int("old_length", oldLen),
		slog.Int("new_length", newLen),
		slog.Int("stale_checkpoints", stale),
	)
}

// LogMove logs a committed move.
func LogMove(logger *slog.Logger, direction string, from, to int, steps int64, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("move committed",
		slog.String("direction", direction),
		slog.Int("from", from),
		slog.Int("to", to),
		slog.Int64("steps", steps),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogMoveError logs a failed move. Boundary hits are not logged here.
func LogMoveError(logger *slog.Logger, direction string, pos int, err error) {
	if logger == nil {
		return
	}
	logger.Warn("move failed",
		slog.String("direction", direction),
		slog.Int("position", pos),
		slog.String("error", err.Error()),
	)
}

// LogBoundary logs a move rejected at either end of the sequence.
func LogBoundary(logger *slog.Logger, direction string, pos int) {
	if logger == nil {
		return
	}
	logger.Debug("sequence boundary reached",
		slog.String("direction", direction),
		slog.Int("position", pos),
	)
}

// LogReplay logs the start of a replay from a stored checkpoint.
func LogReplay(logger *slog.Logger, from, to int, chain []int) {
	if logger == nil {
		return
	}
	logger.Debug("replaying",
		slog.Int("from", from),
		slog.Int("to", to),
		slog.Int("steps", to-from),
		slog.Any("chain", chain),
	)
}

// LogEviction logs a checkpoint evicted to make room for another.
func LogEviction(logger *slog.Logger, position int, stale bool) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint evicted",
		slog.Int("position", position),
		slog.Bool("stale", stale),
	)
}

// LogPending logs a deamortized move that ran out of budget.
func LogPending(logger *slog.Logger, direction string, target int, done, remaining int64) {
	if logger == nil {
		return
	}
	logger.Debug("move pending",
		slog.String("direction", direction),
		slog.Int("target", target),
		slog.Int64("steps_done", done),
		slog.Int64("steps_remaining", remaining),
	)
}

// LogLengthDiscovered logs the end of a sequence of unknown length.
func LogLengthDiscovered(logger *slog.Logger, length int) {
	if logger == nil {
		return
	}
	logger.Info("sequence length discovered",
		slog.Int("length", length),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
