// Package checkpoint holds the bounded table of saved states an enumerator
// restores from when walking backward.
//
// A Scheduler keeps the anchor (position 0, the initial state) outside its
// budget and at most Plan.Budget further checkpoints. Entries enter through
// forward arrivals at designated positions (OnAdvance) and through replay
// chains (Insert). They leave when the cursor retreats below them, when an
// insertion on a full table evicts them, or when a replan marks them stale
// and a later insertion takes their slot.
//
// States are stored as given. Callers that need copies clone before handing
// states over.
package checkpoint

import (
	"errors"
	"fmt"
)

// Sentinel errors for checkpoint operations.
var (
	// ErrNoAnchor indicates the anchor is missing so no replay can start.
	ErrNoAnchor = errors.New("no anchor checkpoint")

	// ErrTableFull indicates an insertion found no free slot.
	ErrTableFull = errors.New("checkpoint table full")

	// ErrInvalidPosition indicates a position that cannot hold a checkpoint.
	ErrInvalidPosition = errors.New("invalid checkpoint position")
)

// Checkpoint is a saved state at a position.
type Checkpoint[S any] struct {
	Position int
	State    S

	// Designated is true for forward placements of the current plan.
	Designated bool

	// Stale is true for entries a replan no longer designates. Stale
	// entries are evicted before any other.
	Stale bool
}

// Path is the stretch of positions a replay covers: it starts at the state
// held for From and ends at To.
type Path struct {
	From int
	To   int
}

// Len returns the number of steps to replay.
func (p Path) Len() int {
	if p.To < p.From {
		return 0
	}
	return p.To - p.From
}

// Positions lists the positions produced by the replay, From+1 through To.
func (p Path) Positions() []int {
	out := make([]int, 0, p.Len())
	for pos := p.From + 1; pos <= p.To; pos++ {
		out = append(out, pos)
	}
	return out
}

// String returns "from->to".
func (p Path) String() string {
	return fmt.Sprintf("%d->%d", p.From, p.To)
}

// Eviction describes a checkpoint removed to make room for another.
type Eviction struct {
	Position   int
	Designated bool
	Stale      bool
}
