package costmodel

import (
	"context"
	"fmt"
	"math"
)

// Table holds the memoized cold and warm cost tables for every segment
// length up to MaxLen and every budget up to MaxBudget.
// A Table is immutable once computed.
type Table struct {
	maxLen    int
	maxBudget int

	cold      []int64
	coldSplit []int32
	warm      []int64
	warmSplit []int32
}

// Cells returns the number of cells a table for (maxLen, budget) occupies.
// Budgets above maxLen are capped, so they cost nothing extra.
func Cells(maxLen, budget int) int64 {
	if maxLen < 0 || budget < 0 {
		return 0
	}
	return int64(maxLen+1) * int64(capBudget(maxLen, budget)+1)
}

func capBudget(maxLen, budget int) int {
	if budget > maxLen {
		return maxLen
	}
	return budget
}

// Compute fills the tables bottom-up for segment lengths 0..maxLen and
// budgets 0..min(budget, maxLen).
//
// The computation is O(maxLen^2 * budget). ctx is checked once per budget
// column so long builds can be abandoned.
func Compute(ctx context.Context, maxLen, budget int) (*Table, error) {
	if maxLen < 0 || budget < 0 {
		return nil, fmt.Errorf("%w: length=%d budget=%d", ErrInvalidBudget, maxLen, budget)
	}

	f := capBudget(maxLen, budget)
	cells := (maxLen + 1) * (f + 1)
	t := &Table{
		maxLen:    maxLen,
		maxBudget: f,
		cold:      make([]int64, cells),
		coldSplit: make([]int32, cells),
		warm:      make([]int64, cells),
		warmSplit: make([]int32, cells),
	}

	for b := 0; b <= f; b++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for m := 2; m <= maxLen; m++ {
			t.fill(m, b)
		}
	}
	return t, nil
}

// fill computes cell (m, f). Cells with m <= 1 stay zero.
func (t *Table) fill(m, f int) {
	i := t.index(m, f)

	if f == 0 {
		c := int64(m) * int64(m-1) / 2
		t.cold[i] = c
		t.warm[i] = c
		return
	}

	// Enough slots to store every position on the way: one replay of m-1
	// steps, split at 1 each time.
	if f >= m-2 {
		t.cold[i] = int64(m - 1)
		t.coldSplit[i] = 1
	} else {
		best, arg := int64(math.MaxInt64), 0
		for x := 1; x < m; x++ {
			v := int64(x) + t.cold[t.index(m-x, f-1)] + t.cold[t.index(x, f)]
			if v < best {
				best, arg = v, x
			}
		}
		t.cold[i] = best
		t.coldSplit[i] = int32(arg)
	}

	if f >= m-1 {
		t.warm[i] = 0
		t.warmSplit[i] = 1
		return
	}
	best, arg := int64(math.MaxInt64), 0
	for x := 1; x < m; x++ {
		v := t.warm[t.index(m-x, f-1)] + t.cold[t.index(x, f)]
		if v < best {
			best, arg = v, x
		}
	}
	t.warm[i] = best
	t.warmSplit[i] = int32(arg)
}

func (t *Table) index(m, f int) int {
	return f*(t.maxLen+1) + m
}

func (t *Table) clamp(f int) int {
	if f > t.maxBudget {
		return t.maxBudget
	}
	return f
}

// MaxLen returns the largest segment length covered.
func (t *Table) MaxLen() int { return t.maxLen }

// MaxBudget returns the largest budget column stored.
// Larger budgets are answered by this column.
func (t *Table) MaxBudget() int { return t.maxBudget }

// Cells returns the number of cells held.
func (t *Table) Cells() int64 { return int64(len(t.cold)) }

// Covers reports whether the table answers every query for (maxLen, budget).
func (t *Table) Covers(maxLen, budget int) bool {
	return t.maxLen >= maxLen && t.maxBudget >= capBudget(maxLen, budget)
}

// Cold returns R(m, f). m must be in [0, MaxLen].
func (t *Table) Cold(m, f int) int64 {
	return t.cold[t.index(m, t.clamp(f))]
}

// ColdSplit returns the optimal first checkpoint offset for R(m, f),
// or 0 when no checkpoint is placed (m <= 1 or f == 0).
func (t *Table) ColdSplit(m, f int) int {
	return int(t.coldSplit[t.index(m, t.clamp(f))])
}

// Warm returns P(m, f). m must be in [0, MaxLen].
func (t *Table) Warm(m, f int) int64 {
	return t.warm[t.index(m, t.clamp(f))]
}

// WarmSplit returns the optimal first forward placement offset for P(m, f),
// or 0 when no checkpoint is placed.
func (t *Table) WarmSplit(m, f int) int {
	return int(t.warmSplit[t.index(m, t.clamp(f))])
}

// Total returns T(n, k), the replay work of a full forward-then-backward
// traversal of n elements with k checkpoints. n must be in [0, MaxLen+1].
// T(n, 0) is (n-1)(n-2)/2, the sum of every backward move's distance from
// the initial state.
func (t *Table) Total(n, k int) int64 {
	if n <= 1 {
		return 0
	}
	return t.Warm(n-1, k)
}
