package costmodel

import (
	"fmt"
	"sort"
)

// ExtentKind distinguishes sequences of known length from lazily discovered ones.
type ExtentKind int

const (
	// KindFixed is a sequence whose length n is known up front.
	KindFixed ExtentKind = iota

	// KindGrowing is a sequence of unknown length. The plan covers a
	// working extent that doubles whenever the cursor crosses it.
	KindGrowing
)

// DefaultGrowth is the initial working extent for growing sequences.
const DefaultGrowth = 64

// Extent describes how much of the sequence a plan covers.
type Extent struct {
	Kind ExtentKind
	// N is the sequence length for KindFixed and the current working
	// extent for KindGrowing.
	N int
}

// Fixed returns the extent of a sequence with exactly n elements.
func Fixed(n int) Extent {
	return Extent{Kind: KindFixed, N: n}
}

// Growing returns the extent of a sequence of unknown length, planned
// initially for hint elements. Hints below 2 use DefaultGrowth.
func Growing(hint int) Extent {
	if hint < 2 {
		hint = DefaultGrowth
	}
	return Extent{Kind: KindGrowing, N: hint}
}

// String returns "fixed(n)" or "growing(n)".
func (e Extent) String() string {
	if e.Kind == KindGrowing {
		return fmt.Sprintf("growing(%d)", e.N)
	}
	return fmt.Sprintf("fixed(%d)", e.N)
}

// Plan is the checkpoint layout for one extent and budget.
// Plans are immutable; a new extent or budget means a new Plan.
type Plan struct {
	// Extent is the extent this plan was computed for.
	Extent Extent

	// Length is the number of positions the plan covers.
	Length int

	// Budget is the number of checkpoint slots, the anchor excluded.
	Budget int

	// Placements are the positions stored while moving forward,
	// ascending. len(Placements) <= Budget.
	Placements []int

	// Total is T(Length, Budget): replay work of a full forward-then-backward
	// traversal.
	Total int64

	// PerStep is W = max(1, ceil(Total / (Length-1))), the per-backward-step
	// cost the deamortizer budgets against.
	PerStep int64

	table *Table
}

func newPlan(ext Extent, k int, t *Table) *Plan {
	p := &Plan{
		Extent:  ext,
		Length:  ext.N,
		Budget:  k,
		Total:   t.Total(ext.N, k),
		PerStep: 1,
		table:   t,
	}
	if p.Length >= 2 {
		steps := int64(p.Length - 1)
		if w := (p.Total + steps - 1) / steps; w > 1 {
			p.PerStep = w
		}
	}
	p.Placements = p.forwardChain()
	return p
}

// forwardChain walks the warm table: the cursor ends at Length-1 and the
// Length-1 positions below it are reversed.
func (p *Plan) forwardChain() []int {
	var chain []int
	base, m, f := 0, p.Length-1, p.Budget
	for f > 0 && m >= 2 {
		x := p.table.WarmSplit(m, f)
		if x <= 0 {
			break
		}
		base += x
		m -= x
		f--
		chain = append(chain, base)
	}
	return chain
}

// Growing reports whether the plan covers a sequence of unknown length.
func (p *Plan) Growing() bool {
	return p.Extent.Kind == KindGrowing
}

// Designated reports whether pos is a forward placement of this plan.
func (p *Plan) Designated(pos int) bool {
	i := sort.SearchInts(p.Placements, pos)
	return i < len(p.Placements) && p.Placements[i] == pos
}

// SegmentCost returns R(m, f) for a segment inside this plan's extent.
func (p *Plan) SegmentCost(m, f int) int64 {
	if m > p.table.MaxLen() {
		c, _ := ClosedForm(m, f)
		return c
	}
	return p.table.Cold(m, f)
}

// ReplayChain returns the positions to checkpoint while replaying from the
// checkpoint at anchor up to target with free slots available, ascending.
//
// The first position splits the segment [anchor, target] optimally; each
// next one splits the remaining upper part with one slot fewer. The chain
// may end at target itself.
func (p *Plan) ReplayChain(anchor, target, free int) []int {
	if free > p.Budget {
		free = p.Budget
	}
	var chain []int
	base, m, f := anchor, target-anchor+1, free
	for f > 0 && m >= 2 {
		var x int
		if m <= p.table.MaxLen() {
			x = p.table.ColdSplit(m, f)
		} else {
			x = m / 2
		}
		if x <= 0 {
			break
		}
		base += x
		m -= x
		f--
		chain = append(chain, base)
	}
	return chain
}

// Table returns the cost table backing this plan.
func (p *Plan) Table() *Table {
	return p.table
}

// String summarizes the plan for logs.
func (p *Plan) String() string {
	return fmt.Sprintf("plan{%s k=%d total=%d per_step=%d placements=%v}",
		p.Extent, p.Budget, p.Total, p.PerStep, p.Placements)
}
