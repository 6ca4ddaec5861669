package rewind

import (
	"context"
	"errors"

	"github.com/randalmurphal/rewind/pkg/rewind/observability"
)

// DefaultSlack multiplies the plan's per-step cost to give the deamortizer's
// per-call step budget.
const DefaultSlack = 2

// Deamortizer bounds the step calls any single move makes.
//
// Each call runs at most Budget() steps. A move that needs more returns
// ErrPending; calling the same move again continues it. Work left over
// after a backward move is spent preparing the next one.
//
// A pending move is dropped when a different move is requested, when the
// engine moves by other means, on Cancel, and when its context is done.
// Dropping a move leaves the engine as it was before the move started.
type Deamortizer[S any] struct {
	engine *Engine[S]
	slack  int64

	job     *job[S]
	pending bool

	stats DeamortizerStats
}

// DeamortizerStats are cumulative deamortizer counters.
type DeamortizerStats struct {
	Calls int64
	// Pending counts calls that returned ErrPending.
	Pending int64
	// Prefetched counts backward moves started ahead of their call.
	Prefetched int64
	// Discarded counts jobs dropped before commit.
	Discarded int64
	// MaxCallSteps is the largest number of steps one call ran.
	MaxCallSteps int64
}

type deamortizerConfig struct {
	slack int
}

// DeamortizerOption configures a Deamortizer.
type DeamortizerOption func(*deamortizerConfig)

// WithSlack sets the budget multiplier. Values below 1 are ignored.
// Default: DefaultSlack.
func WithSlack(n int) DeamortizerOption {
	return func(c *deamortizerConfig) {
		if n >= 1 {
			c.slack = n
		}
	}
}

// NewDeamortizer wraps e. The engine should not be moved directly while
// a move is pending; doing so drops it.
func NewDeamortizer[S any](e *Engine[S], opts ...DeamortizerOption) *Deamortizer[S] {
	cfg := deamortizerConfig{slack: DefaultSlack}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Deamortizer[S]{
		engine: e,
		slack:  int64(cfg.slack),
	}
}

// Engine returns the wrapped engine.
func (d *Deamortizer[S]) Engine() *Engine[S] {
	return d.engine
}

// Budget returns the per-call step budget: slack times the plan's per-step
// cost. It follows the plan as a growing sequence is replanned.
func (d *Deamortizer[S]) Budget() int64 {
	p := d.engine.Plan()
	if p == nil {
		return 0
	}
	return d.slack * p.PerStep
}

// Pending reports whether a move returned ErrPending and has not finished.
func (d *Deamortizer[S]) Pending() bool {
	return d.pending
}

// Stats returns cumulative counters.
func (d *Deamortizer[S]) Stats() DeamortizerStats {
	return d.stats
}

// Forward moves forward by one, within the call budget.
func (d *Deamortizer[S]) Forward(ctx context.Context) error {
	return d.run(ctx, moveForward, d.engine.pos+1)
}

// Backward moves back by one, within the call budget.
func (d *Deamortizer[S]) Backward(ctx context.Context) error {
	return d.run(ctx, moveBackward, d.engine.pos-1)
}

// Seek moves to p, within the call budget.
func (d *Deamortizer[S]) Seek(ctx context.Context, p int) error {
	return d.run(ctx, moveSeek, p)
}

// Cancel drops the pending or prefetched move, if any.
func (d *Deamortizer[S]) Cancel() {
	d.discard()
}

func (d *Deamortizer[S]) run(ctx context.Context, kind moveKind, target int) (err error) {
	e := d.engine
	if err := e.usable(ctx); err != nil {
		d.discard()
		return err
	}
	d.stats.Calls++

	if j := d.job; j != nil && (j.kind != kind || j.target != target || j.gen != e.gen) {
		d.discard()
	}
	if d.job == nil && kind == moveSeek && target == e.pos {
		e.stats.Seeks++
		return nil
	}

	var steps int64
	ctx, span := e.spans.StartMoveSpan(ctx, e.id, kind.String(), e.pos)
	defer func() {
		e.spans.EndMoveSpan(span, e.pos, steps, err)
	}()

	if d.job == nil {
		j, err := e.prepare(ctx, kind, target)
		if err != nil {
			return err
		}
		d.job = j
	}

	j := d.job
	budget := d.Budget()
	before := j.spent
	done, err := e.advance(ctx, j, budget)
	steps = j.spent - before
	if err != nil {
		d.job, d.pending = nil, false
		d.record(j.spent - before)
		return e.abort(ctx, j, err)
	}
	if !done {
		d.pending = true
		d.stats.Pending++
		d.record(j.spent - before)
		e.status = StatusReplaying
		observability.LogPending(e.logger, kind.String(), target, j.spent, int64(j.target-j.base))
		e.metrics.RecordPending(ctx, kind.String())
		observability.AddSpanEvent(ctx, "pending")
		return ErrPending
	}

	d.job, d.pending = nil, false
	if err := e.commit(ctx, j); err != nil {
		d.record(j.spent - before)
		return err
	}
	used := j.spent - before

	if j.backward && e.pos > 0 && used < budget {
		used += d.prefetch(ctx, budget-used)
	}
	steps = used
	d.record(used)
	return nil
}

// prefetch starts the next backward move with the remaining budget and
// returns the steps it ran.
func (d *Deamortizer[S]) prefetch(ctx context.Context, limit int64) int64 {
	e := d.engine
	j, err := e.prepare(ctx, moveBackward, e.pos-1)
	if err != nil {
		return 0
	}
	if _, err := e.advance(ctx, j, limit); err != nil {
		return j.spent
	}
	d.job = j
	d.stats.Prefetched++
	return j.spent
}

func (d *Deamortizer[S]) record(steps int64) {
	if steps > d.stats.MaxCallSteps {
		d.stats.MaxCallSteps = steps
	}
}

func (d *Deamortizer[S]) discard() {
	if d.job == nil {
		return
	}
	if d.pending && d.engine.status == StatusReplaying {
		d.engine.status = d.job.prev
	}
	d.job, d.pending = nil, false
	d.stats.Discarded++
}

// Await repeats move until it returns something other than ErrPending.
// It is the blocking form of a deamortized move:
//
//	err := rewind.Await(ctx, d.Backward)
func Await(ctx context.Context, move func(context.Context) error) error {
	for {
		err := move(ctx)
		if !errors.Is(err, ErrPending) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
