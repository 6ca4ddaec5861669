package costmodel

import (
	"context"
	"fmt"
)

// Model produces Plans. It is a pure function of (extent, budget); the only
// state it carries is the optional cache of tables it reads through.
type Model struct {
	cache *Cache
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithCache makes the model read tables through c.
// The cache may be shared by any number of models and goroutines.
func WithCache(c *Cache) ModelOption {
	return func(m *Model) {
		m.cache = c
	}
}

// NewModel creates a Model. Without WithCache every Plan call computes
// its table from scratch.
func NewModel(opts ...ModelOption) *Model {
	m := &Model{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cache returns the cache the model reads through, or nil.
func (m *Model) Cache() *Cache {
	return m.cache
}

// Plan returns the optimal layout for ext with k checkpoint slots.
//
// Returns ErrInvalidBudget if the extent length or k is negative, and
// ErrTableTooLarge if the table would exceed the cache's cell bound.
func (m *Model) Plan(ctx context.Context, ext Extent, k int) (*Plan, error) {
	if ext.N < 0 || k < 0 {
		return nil, fmt.Errorf("%w: n=%d k=%d", ErrInvalidBudget, ext.N, k)
	}
	t, err := m.table(ctx, ext.N, k)
	if err != nil {
		return nil, err
	}
	return newPlan(ext, k, t), nil
}

// Grow returns the plan for a growing sequence whose working extent is
// doubled. Fixed plans are returned unchanged.
func (m *Model) Grow(ctx context.Context, p *Plan) (*Plan, error) {
	if !p.Growing() {
		return p, nil
	}
	return m.Plan(ctx, Extent{Kind: KindGrowing, N: 2 * p.Length}, p.Budget)
}

// Cost returns T(n, k) for a sequence of n elements and k checkpoints.
func (m *Model) Cost(ctx context.Context, n, k int) (int64, error) {
	p, err := m.Plan(ctx, Fixed(n), k)
	if err != nil {
		return 0, err
	}
	return p.Total, nil
}

func (m *Model) table(ctx context.Context, n, k int) (*Table, error) {
	if m.cache != nil {
		return m.cache.Get(ctx, TableKey{Length: n, Budget: k})
	}
	return Compute(ctx, n, k)
}
