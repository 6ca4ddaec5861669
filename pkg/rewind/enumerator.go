package rewind

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/randalmurphal/rewind/pkg/rewind/checkpoint"
	"github.com/randalmurphal/rewind/pkg/rewind/costmodel"
	"github.com/randalmurphal/rewind/pkg/rewind/observability"
)

// StepFunc produces the state at position i+1 from the state at position i.
//
// It must be deterministic: replays feed it the same inputs again and
// expect the same outputs. Non-deterministic steps yield undefined states.
// Return ErrEndOfSequence when the input is the last element of a sequence
// whose length was not declared with WithLength.
type StepFunc[S any] func(S) (S, error)

// Engine is a cursor over a sequence that can move both ways while holding
// at most k saved states besides the initial one.
//
// An Engine has a single owner and is not safe for concurrent use.
// Use Clone for a second independent cursor.
type Engine[S any] struct {
	id    string
	step  StepFunc[S]
	clone func(S) S
	model *costmodel.Model
	// ownsModel is set when model was created for this engine alone.
	ownsModel bool
	budget    int
	sched     *checkpoint.Scheduler[S]

	pos    int
	state  S
	length int // -1 while unknown
	status Status

	// gen changes on every commit and replan. Jobs prepared under an older
	// generation are discarded.
	gen uint64

	baseLogger *slog.Logger
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager

	stats Stats
}

// New creates an engine positioned at 0 holding initial.
//
// The checkpoint plan is computed here, so New fails with ErrInvalidBudget
// for a negative budget or a non-positive length, and with ErrTableTooLarge
// if the model's cache cannot hold the cost table.
//
// Example:
//
//	e, err := rewind.New(ctx, next, seed, rewind.WithLength(1000), rewind.WithBudget(10))
//	for e.Forward(ctx) == nil {
//	}
//	for e.Backward(ctx) == nil {
//	    use(e.State())
//	}
func New[S any](ctx context.Context, step StepFunc[S], initial S, opts ...Option) (*Engine[S], error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if step == nil {
		return nil, ErrNilStep
	}

	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.length < 0 {
		return nil, fmt.Errorf("%w: length must be positive", ErrInvalidBudget)
	}
	if cfg.budget < 0 {
		return nil, fmt.Errorf("%w: budget %d", ErrInvalidBudget, cfg.budget)
	}

	clone := func(s S) S { return s }
	if cfg.clone != nil {
		fn, ok := cfg.clone.(func(S) S)
		if !ok {
			return nil, fmt.Errorf("%w: clone function %T does not match state type %T", ErrInvalidOption, cfg.clone, initial)
		}
		clone = fn
	}

	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}

	ext, length := costmodel.Growing(cfg.growth), -1
	if cfg.length > 0 {
		ext, length = costmodel.Fixed(cfg.length), cfg.length
	}

	model, owned := cfg.model, false
	if model == nil {
		model, owned = privateModel(), true
	}

	e := &Engine[S]{
		id:         id,
		step:       step,
		clone:      clone,
		model:      model,
		ownsModel:  owned,
		budget:     cfg.budget,
		state:      initial,
		length:     length,
		status:     StatusReady,
		baseLogger: cfg.logger,
		logger:     observability.EnrichLogger(cfg.logger, id),
		metrics:    cfg.metrics,
		spans:      cfg.spans,
	}

	plan, err := e.buildPlan(ctx, ext)
	if err != nil {
		return nil, err
	}
	e.sched = checkpoint.NewScheduler(plan, clone(initial))
	return e, nil
}

// Forward moves one position forward.
// At the last position it returns a *RangeError, leaves the cursor alone
// and sets StatusExhausted. Exhausted is not terminal: a later Backward or
// Seek to a valid position moves the cursor and restores StatusReady.
func (e *Engine[S]) Forward(ctx context.Context) error {
	return e.run(ctx, moveForward, e.pos+1)
}

// Backward moves one position back, restoring a checkpoint or replaying
// from the nearest earlier one. At position 0 it returns a *RangeError and
// sets StatusExhausted; a later Forward resumes from position 0.
func (e *Engine[S]) Backward(ctx context.Context) error {
	return e.run(ctx, moveBackward, e.pos-1)
}

// Seek moves to position p in either direction.
// Seeking to the current position does no work.
func (e *Engine[S]) Seek(ctx context.Context, p int) error {
	return e.run(ctx, moveSeek, p)
}

// run performs a whole move within one call.
func (e *Engine[S]) run(ctx context.Context, kind moveKind, target int) (err error) {
	if err := e.usable(ctx); err != nil {
		return err
	}
	if kind == moveSeek && target == e.pos {
		e.stats.Seeks++
		return nil
	}

	var steps int64
	ctx, span := e.spans.StartMoveSpan(ctx, e.id, kind.String(), e.pos)
	defer func() {
		e.spans.EndMoveSpan(span, e.pos, steps, err)
	}()

	j, err := e.prepare(ctx, kind, target)
	if err != nil {
		return err
	}
	e.status = StatusReplaying
	_, err = e.advance(ctx, j, -1)
	steps = j.spent
	if err != nil {
		return e.abort(ctx, j, err)
	}
	return e.commit(ctx, j)
}

func (e *Engine[S]) usable(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if e.status == StatusIdle {
		return ErrClosed
	}
	return nil
}

// buildPlan computes a plan for ext and reports it.
func (e *Engine[S]) buildPlan(ctx context.Context, ext costmodel.Extent) (*costmodel.Plan, error) {
	p, err := e.model.Plan(ctx, ext, e.budget)
	if err != nil {
		return nil, err
	}
	e.planBuilt(ctx, p)
	return p, nil
}

// growTo doubles a growing plan until it covers target.
func (e *Engine[S]) growTo(ctx context.Context, p *costmodel.Plan, target int) (*costmodel.Plan, error) {
	for p.Growing() && target > p.Length-1 {
		grown, err := e.model.Grow(ctx, p)
		if err != nil {
			return nil, err
		}
		e.planBuilt(ctx, grown)
		p = grown
	}
	return p, nil
}

func (e *Engine[S]) planBuilt(ctx context.Context, p *costmodel.Plan) {
	observability.LogPlanBuilt(e.logger, p.Extent.String(), p.Budget, p.Total, p.PerStep, len(p.Placements))
	e.metrics.RecordPlan(ctx, p.Length, p.Budget, p.Total)
}

// replan installs p on the table. Entries p does not designate go stale.
func (e *Engine[S]) replan(p *costmodel.Plan) {
	old := e.sched.Plan()
	evicted := e.sched.Replan(p)
	for _, ev := range evicted {
		observability.LogEviction(e.logger, ev.Position, ev.Stale)
	}

	stale := 0
	for _, cp := range e.sched.Entries() {
		if cp.Stale {
			stale++
		}
	}
	observability.LogReplan(e.logger, old.Length, p.Length, stale)
	e.gen++
}

// discover records the end of a sequence found by the step function and
// replans for the exact length.
func (e *Engine[S]) discover(ctx context.Context, j *job[S]) error {
	e.length = j.base + 1
	observability.LogLengthDiscovered(e.logger, e.length)

	if e.sched.Plan().Growing() {
		p, err := e.buildPlan(ctx, costmodel.Fixed(e.length))
		if err != nil {
			// The growing plan stays installed; it still covers the sequence.
			observability.LogMoveError(e.logger, j.kind.String(), e.pos, fmt.Errorf("replan for length %d: %w", e.length, err))
			e.stats.ReplanErrors++
		} else {
			e.replan(p)
		}
	}
	return e.boundary(ctx, j.kind, j.target, ErrEndOfSequence)
}

// boundary rejects a move past either end.
func (e *Engine[S]) boundary(ctx context.Context, kind moveKind, target int, cause error) error {
	e.status = StatusExhausted
	err := &RangeError{
		Direction: kind.String(),
		Position:  e.pos,
		Target:    target,
		Length:    e.length,
		Cause:     cause,
	}
	observability.LogBoundary(e.logger, kind.String(), e.pos)
	e.metrics.RecordMove(ctx, kind.String(), 0, 0, err)
	return err
}

// Position returns the cursor position.
func (e *Engine[S]) Position() int {
	return e.pos
}

// State returns the state at the cursor.
func (e *Engine[S]) State() S {
	return e.state
}

// Status returns the lifecycle status.
func (e *Engine[S]) Status() Status {
	return e.status
}

// ID returns the engine ID.
func (e *Engine[S]) ID() string {
	return e.id
}

// Budget returns k.
func (e *Engine[S]) Budget() int {
	return e.budget
}

// Length returns the sequence length and whether it is known.
func (e *Engine[S]) Length() (int, bool) {
	return e.length, e.length >= 0
}

// Plan returns the installed plan, or nil after Close.
func (e *Engine[S]) Plan() *costmodel.Plan {
	if e.sched == nil {
		return nil
	}
	return e.sched.Plan()
}

// Checkpoints returns the checkpointed positions, ascending, anchor excluded.
func (e *Engine[S]) Checkpoints() []int {
	if e.sched == nil {
		return nil
	}
	return e.sched.Positions()
}

// Stats returns cumulative counters.
func (e *Engine[S]) Stats() Stats {
	s := e.stats
	if e.sched != nil {
		s.Checkpoints = e.sched.Len()
	}
	return s
}

// Clone returns an independent engine at the same position with a deep
// copy of the checkpoint table. States are copied with the WithClone
// function. The clone gets a new ID and fresh counters.
func (e *Engine[S]) Clone() (*Engine[S], error) {
	if e.status == StatusIdle {
		return nil, ErrClosed
	}
	c := *e
	c.id = uuid.NewString()
	c.logger = observability.EnrichLogger(e.baseLogger, c.id)
	c.sched = e.sched.Clone(e.clone)
	c.state = e.clone(e.state)
	c.gen = 0
	c.stats = Stats{}
	if e.ownsModel {
		c.model = privateModel()
	}
	if c.status == StatusReplaying {
		c.status = StatusReady
	}
	return &c, nil
}

// Close drops the checkpoint table and plan, and the cached cost tables
// when the engine was created without WithModel. Further moves return
// ErrClosed.
func (e *Engine[S]) Close() error {
	if e.status == StatusIdle {
		return nil
	}
	e.sched.Reset()
	e.sched = nil
	if e.ownsModel {
		e.model.Cache().Purge()
	}
	e.status = StatusIdle
	e.gen++
	return nil
}
