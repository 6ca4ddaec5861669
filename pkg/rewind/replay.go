package rewind

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/rewind/pkg/rewind/costmodel"
	"github.com/randalmurphal/rewind/pkg/rewind/observability"
)

type moveKind int

const (
	moveForward moveKind = iota
	moveBackward
	moveSeek
)

func (k moveKind) String() string {
	switch k {
	case moveForward:
		return "forward"
	case moveBackward:
		return "backward"
	default:
		return "seek"
	}
}

// staged is a checkpoint produced by a job and applied at commit.
type staged[S any] struct {
	pos   int
	state S
}

// job is one move in progress. It runs from the state at base toward
// target and touches nothing on the engine until commit.
type job[S any] struct {
	kind     moveKind
	from     int
	target   int
	gen      uint64
	prev     Status
	started  time.Time
	plan     *costmodel.Plan
	backward bool
	restore  bool

	base  int
	state S

	// chain lists the replay positions to checkpoint, ascending.
	chain []int
	next  int

	staged []staged[S]
	spent  int64
}

func (j *job[S]) done() bool {
	return j.base >= j.target
}

// prepare validates a move and sets up its job.
func (e *Engine[S]) prepare(ctx context.Context, kind moveKind, target int) (*job[S], error) {
	if target < 0 || e.length >= 0 && target >= e.length {
		return nil, e.boundary(ctx, kind, target, nil)
	}

	j := &job[S]{
		kind:    kind,
		from:    e.pos,
		target:  target,
		gen:     e.gen,
		prev:    e.status,
		started: time.Now(),
	}

	if target > e.pos {
		p, err := e.growTo(ctx, e.sched.Plan(), target)
		if err != nil {
			return nil, err
		}
		j.plan = p
		j.base, j.state = e.pos, e.state
		return j, nil
	}

	j.plan = e.sched.Plan()
	j.backward = true

	if cp, ok := e.sched.Lookup(target); ok {
		j.base, j.state = target, cp.State
		j.restore = true
		return j, nil
	}

	anc, path, err := e.sched.NearestAncestor(target)
	if err != nil {
		return nil, &InvariantError{Op: "backward", Err: err}
	}
	j.base, j.state = anc.Position, anc.State
	j.chain = j.plan.ReplayChain(anc.Position, target, e.sched.FreeAt(target))
	observability.LogReplay(e.logger, path.From, path.To, j.chain)
	return j, nil
}

// advance runs up to limit steps of j (no limit when negative) and reports
// whether j reached its target.
func (e *Engine[S]) advance(ctx context.Context, j *job[S], limit int64) (bool, error) {
	var n int64
	for !j.done() {
		if limit >= 0 && n >= limit {
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}

		next, err := e.invoke(j.base, j.state, j.backward)
		n++
		j.spent++
		e.stats.Steps++
		if j.backward {
			e.stats.ReplaySteps++
		}
		if err != nil {
			return false, err
		}

		j.base++
		j.state = next

		if j.backward {
			if j.next < len(j.chain) && j.chain[j.next] == j.base {
				j.staged = append(j.staged, staged[S]{pos: j.base, state: e.clone(next)})
				j.next++
			}
		} else if j.plan.Designated(j.base) {
			j.staged = append(j.staged, staged[S]{pos: j.base, state: e.clone(next)})
		}
	}
	return true, nil
}

// invoke calls the step function, turning panics and failures into typed
// errors. ErrEndOfSequence is passed through on forward runs.
func (e *Engine[S]) invoke(pos int, s S, replay bool) (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Position: pos,
				Value:    r,
				Stack:    string(debug.Stack()),
			}
		}
	}()

	next, err = e.step(s)
	if err != nil {
		if !replay && errors.Is(err, ErrEndOfSequence) {
			return next, err
		}
		return next, &StepError{Position: pos, Replay: replay, Err: err}
	}
	return next, nil
}

// commit applies a finished job to the table and the cursor.
func (e *Engine[S]) commit(ctx context.Context, j *job[S]) error {
	if j.gen != e.gen {
		return &InvariantError{Op: "commit", Err: errStaleJob}
	}

	if j.plan != e.sched.Plan() {
		e.replan(j.plan)
	}

	if j.backward {
		e.sched.Retreat(j.target)
		for _, s := range j.staged {
			if err := e.sched.Insert(s.pos, s.state); err != nil {
				return &InvariantError{Op: "replay", Err: err}
			}
		}
	} else {
		for _, s := range j.staged {
			if ev, ok := e.sched.OnAdvance(s.pos, s.state); ok {
				observability.LogEviction(e.logger, ev.Position, ev.Stale)
			}
		}
	}

	state := j.state
	if j.restore {
		state = e.clone(state)
	}
	e.pos, e.state = j.target, state
	e.status = StatusReady
	e.gen++

	switch j.kind {
	case moveForward:
		e.stats.Forwards++
	case moveBackward:
		e.stats.Backwards++
	case moveSeek:
		e.stats.Seeks++
	}
	if j.restore {
		e.stats.Restores++
	}
	e.stats.LastMoveSteps = j.spent
	if j.spent > e.stats.MaxMoveSteps {
		e.stats.MaxMoveSteps = j.spent
	}

	duration := time.Since(j.started)
	observability.LogMove(e.logger, j.kind.String(), j.from, j.target, j.spent, float64(duration.Microseconds())/1000)
	e.metrics.RecordMove(ctx, j.kind.String(), j.spent, duration, nil)
	e.metrics.RecordCheckpoints(ctx, e.sched.Len())
	return nil
}

// abort drops a job that failed while advancing. The table and cursor are
// untouched.
func (e *Engine[S]) abort(ctx context.Context, j *job[S], err error) error {
	e.status = j.prev
	if errors.Is(err, ErrEndOfSequence) {
		return e.discover(ctx, j)
	}
	observability.LogMoveError(e.logger, j.kind.String(), e.pos, err)
	e.metrics.RecordMove(ctx, j.kind.String(), j.spent, time.Since(j.started), err)
	return err
}

var errStaleJob = errors.New("job prepared under an older table")
