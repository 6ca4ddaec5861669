package checkpoint

import (
	"fmt"
	"sort"

	"github.com/randalmurphal/rewind/pkg/rewind/costmodel"
)

// Scheduler owns the checkpoint table of one cursor.
// It is not safe for concurrent use.
type Scheduler[S any] struct {
	plan *costmodel.Plan

	anchor    S
	hasAnchor bool

	// entries is sorted by position and never holds position 0.
	entries []Checkpoint[S]
}

// NewScheduler creates a scheduler for plan seeded with the anchor state.
func NewScheduler[S any](plan *costmodel.Plan, anchor S) *Scheduler[S] {
	return &Scheduler[S]{
		plan:      plan,
		anchor:    anchor,
		hasAnchor: true,
	}
}

// Plan returns the installed plan.
func (s *Scheduler[S]) Plan() *costmodel.Plan {
	return s.plan
}

// Budget returns the number of slots, the anchor excluded.
func (s *Scheduler[S]) Budget() int {
	return s.plan.Budget
}

// Len returns the number of stored checkpoints, the anchor excluded.
func (s *Scheduler[S]) Len() int {
	return len(s.entries)
}

// Free returns the number of unused slots.
func (s *Scheduler[S]) Free() int {
	return s.plan.Budget - len(s.entries)
}

// FreeAt returns the slots that would be free once every entry above pos
// is dropped.
func (s *Scheduler[S]) FreeAt(pos int) int {
	return s.plan.Budget - s.search(pos+1)
}

// Designated reports whether the plan places a checkpoint at pos.
func (s *Scheduler[S]) Designated(pos int) bool {
	return s.plan.Designated(pos)
}

// Anchor returns the anchor checkpoint.
func (s *Scheduler[S]) Anchor() (Checkpoint[S], bool) {
	return Checkpoint[S]{Position: 0, State: s.anchor}, s.hasAnchor
}

// Lookup returns the checkpoint at pos. Position 0 is the anchor.
func (s *Scheduler[S]) Lookup(pos int) (Checkpoint[S], bool) {
	if pos == 0 {
		return s.Anchor()
	}
	i := s.search(pos)
	if i < len(s.entries) && s.entries[i].Position == pos {
		return s.entries[i], true
	}
	return Checkpoint[S]{}, false
}

// Positions returns the stored positions, ascending, anchor excluded.
func (s *Scheduler[S]) Positions() []int {
	out := make([]int, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Position
	}
	return out
}

// Entries returns a copy of the stored checkpoints, ascending.
func (s *Scheduler[S]) Entries() []Checkpoint[S] {
	out := make([]Checkpoint[S], len(s.entries))
	copy(out, s.entries)
	return out
}

// NearestAncestor returns the checkpoint with the largest position <= pos
// (the anchor if none is stored) and the path replaying from it to pos.
func (s *Scheduler[S]) NearestAncestor(pos int) (Checkpoint[S], Path, error) {
	if pos < 0 {
		return Checkpoint[S]{}, Path{}, fmt.Errorf("%w: %d", ErrInvalidPosition, pos)
	}
	if i := s.search(pos + 1); i > 0 {
		cp := s.entries[i-1]
		return cp, Path{From: cp.Position, To: pos}, nil
	}
	if !s.hasAnchor {
		return Checkpoint[S]{}, Path{}, fmt.Errorf("%w: looking up %d", ErrNoAnchor, pos)
	}
	return Checkpoint[S]{Position: 0, State: s.anchor}, Path{From: 0, To: pos}, nil
}

// OnAdvance is called on every forward arrival at pos.
//
// A designated position not yet stored is inserted. On a full table a
// victim makes room: stale entries first, then entries the plan does not
// designate, choosing the one whose removal leaves the smallest gap between
// its neighbours. If nothing is evictable the insertion is skipped.
// The returned bool reports whether an eviction happened.
func (s *Scheduler[S]) OnAdvance(pos int, state S) (Eviction, bool) {
	if pos <= 0 || !s.plan.Designated(pos) {
		return Eviction{}, false
	}
	if _, ok := s.Lookup(pos); ok {
		return Eviction{}, false
	}

	var ev Eviction
	evicted := false
	if len(s.entries) >= s.plan.Budget {
		i, ok := s.victim(pos)
		if !ok {
			return Eviction{}, false
		}
		ev = s.remove(i)
		evicted = true
	}
	s.insert(Checkpoint[S]{Position: pos, State: state, Designated: true})
	return ev, evicted
}

// Insert stores a replay-chain checkpoint. It needs a free slot.
// Inserting an already stored position replaces its state.
func (s *Scheduler[S]) Insert(pos int, state S) error {
	if pos <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPosition, pos)
	}
	i := s.search(pos)
	if i < len(s.entries) && s.entries[i].Position == pos {
		s.entries[i].State = state
		return nil
	}
	if len(s.entries) >= s.plan.Budget {
		return fmt.Errorf("%w: inserting %d with %d/%d slots used", ErrTableFull, pos, len(s.entries), s.plan.Budget)
	}
	s.insert(Checkpoint[S]{Position: pos, State: state, Designated: s.plan.Designated(pos)})
	return nil
}

// Retreat drops every entry above pos and returns how many were dropped.
func (s *Scheduler[S]) Retreat(pos int) int {
	i := s.search(pos + 1)
	dropped := len(s.entries) - i
	for j := i; j < len(s.entries); j++ {
		s.entries[j] = Checkpoint[S]{}
	}
	s.entries = s.entries[:i]
	return dropped
}

// Replan installs plan. Entries it does not designate become stale. If the
// new budget is smaller than the table, victims are evicted until it fits.
func (s *Scheduler[S]) Replan(plan *costmodel.Plan) []Eviction {
	s.plan = plan
	for i := range s.entries {
		d := plan.Designated(s.entries[i].Position)
		s.entries[i].Designated = d
		s.entries[i].Stale = !d
	}

	var evicted []Eviction
	for len(s.entries) > plan.Budget {
		i, ok := s.victim(-1)
		if !ok {
			// Only designated entries remain; drop the highest.
			i = len(s.entries) - 1
		}
		evicted = append(evicted, s.remove(i))
	}
	return evicted
}

// Reset drops the table and the anchor.
func (s *Scheduler[S]) Reset() {
	var zero S
	s.entries = nil
	s.anchor = zero
	s.hasAnchor = false
}

// Clone returns an independent scheduler sharing the immutable plan.
// cloneFn copies states; nil shares them.
func (s *Scheduler[S]) Clone(cloneFn func(S) S) *Scheduler[S] {
	if cloneFn == nil {
		cloneFn = func(v S) S { return v }
	}
	c := &Scheduler[S]{
		plan:      s.plan,
		hasAnchor: s.hasAnchor,
		entries:   make([]Checkpoint[S], len(s.entries)),
	}
	if s.hasAnchor {
		c.anchor = cloneFn(s.anchor)
	}
	for i, e := range s.entries {
		e.State = cloneFn(e.State)
		c.entries[i] = e
	}
	return c
}

// search returns the index of the first entry with position >= pos.
func (s *Scheduler[S]) search(pos int) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Position >= pos
	})
}

func (s *Scheduler[S]) insert(cp Checkpoint[S]) {
	i := s.search(cp.Position)
	s.entries = append(s.entries, Checkpoint[S]{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = cp
}

func (s *Scheduler[S]) remove(i int) Eviction {
	e := s.entries[i]
	copy(s.entries[i:], s.entries[i+1:])
	s.entries[len(s.entries)-1] = Checkpoint[S]{}
	s.entries = s.entries[:len(s.entries)-1]
	return Eviction{Position: e.Position, Designated: e.Designated, Stale: e.Stale}
}

// victim picks the entry to evict for an insertion at incoming, or for a
// shrink when incoming < 0. Stale entries win over non-designated ones;
// within a class the smallest merged gap wins, lowest position on ties.
func (s *Scheduler[S]) victim(incoming int) (int, bool) {
	best, bestGap, bestClass := -1, 0, 0
	for i, e := range s.entries {
		class := 0
		switch {
		case e.Stale:
			class = 2
		case !e.Designated:
			class = 1
		default:
			continue
		}

		lo := 0
		if i > 0 {
			lo = s.entries[i-1].Position
		}
		hi := incoming
		if i+1 < len(s.entries) {
			hi = s.entries[i+1].Position
		} else if incoming < 0 {
			hi = e.Position
		}
		gap := hi - lo

		if best < 0 || class > bestClass || class == bestClass && gap < bestGap {
			best, bestGap, bestClass = i, gap, class
		}
	}
	return best, best >= 0
}
