package costmodel_test

import (
	"context"
	"testing"

	"github.com/randalmurphal/rewind/pkg/rewind/costmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_KnownValues(t *testing.T) {
	tbl, err := costmodel.Compute(context.Background(), 8, 2)
	require.NoError(t, err)

	tests := []struct {
		m, f      int
		cold      int64
		coldSplit int
	}{
		{m: 0, f: 0, cold: 0},
		{m: 1, f: 2, cold: 0},
		{m: 4, f: 0, cold: 6},
		{m: 7, f: 0, cold: 21},
		{m: 3, f: 1, cold: 2, coldSplit: 1},
		{m: 4, f: 1, cold: 4, coldSplit: 1},
		{m: 5, f: 1, cold: 6, coldSplit: 2},
		{m: 6, f: 1, cold: 8, coldSplit: 3},
		{m: 7, f: 1, cold: 11},
		{m: 5, f: 2, cold: 5, coldSplit: 1},
		{m: 6, f: 2, cold: 7, coldSplit: 1},
		{m: 7, f: 2, cold: 9},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.cold, tbl.Cold(tt.m, tt.f), "R(%d,%d)", tt.m, tt.f)
		if tt.coldSplit > 0 {
			assert.Equal(t, tt.coldSplit, tbl.ColdSplit(tt.m, tt.f), "split R(%d,%d)", tt.m, tt.f)
		}
	}

	// Warm table for the n=8, k=2 walk-through.
	assert.Equal(t, int64(1), tbl.Warm(3, 1))
	assert.Equal(t, int64(2), tbl.Warm(4, 1))
	assert.Equal(t, int64(3), tbl.Warm(5, 1))
	assert.Equal(t, 3, tbl.WarmSplit(5, 1))
	assert.Equal(t, int64(4), tbl.Warm(7, 2))
	assert.Equal(t, 2, tbl.WarmSplit(7, 2), "ties resolve to the smallest split")
	assert.Equal(t, int64(4), tbl.Total(8, 2))
}

func TestCompute_NoSlots(t *testing.T) {
	tbl, err := costmodel.Compute(context.Background(), 50, 0)
	require.NoError(t, err)

	for n := 0; n <= 51; n++ {
		want := int64(0)
		if n >= 2 {
			want = int64(n-1) * int64(n-2) / 2
		}
		assert.Equal(t, want, tbl.Total(n, 0), "T(%d,0)", n)
		if n == 5 {
			assert.Equal(t, int64(3+2+1+0), tbl.Total(n, 0), "sum of backward distances")
		}
		if n <= 50 {
			assert.Zero(t, tbl.ColdSplit(n, 0))
		}
	}
}

func TestCompute_Invalid(t *testing.T) {
	_, err := costmodel.Compute(context.Background(), -1, 2)
	assert.ErrorIs(t, err, costmodel.ErrInvalidBudget)

	_, err = costmodel.Compute(context.Background(), 10, -1)
	assert.ErrorIs(t, err, costmodel.ErrInvalidBudget)
}

func TestCompute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := costmodel.Compute(ctx, 100, 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompute_BudgetCapped(t *testing.T) {
	tbl, err := costmodel.Compute(context.Background(), 10, 1000)
	require.NoError(t, err)

	assert.Equal(t, 10, tbl.MaxBudget())
	assert.Equal(t, int64(11*11), tbl.Cells())
	assert.Equal(t, costmodel.Cells(10, 1000), tbl.Cells())
	assert.True(t, tbl.Covers(10, 5000))
	assert.True(t, tbl.Covers(6, 3))
	assert.False(t, tbl.Covers(11, 3))

	// Budgets past the cap answer as the cap.
	assert.Equal(t, tbl.Cold(10, 10), tbl.Cold(10, 99))
	assert.Zero(t, tbl.Total(10, 99))
}

func TestCompute_MatchesClosedForm(t *testing.T) {
	const maxLen, maxBudget = 80, 7

	tbl, err := costmodel.Compute(context.Background(), maxLen, maxBudget)
	require.NoError(t, err)

	for f := 0; f <= maxBudget; f++ {
		for m := 0; m <= maxLen; m++ {
			want, err := costmodel.ClosedForm(m, f)
			require.NoError(t, err)
			require.Equal(t, want, tbl.Cold(m, f), "R(%d,%d)", m, f)
		}
	}
}

func TestCompute_Monotone(t *testing.T) {
	const maxLen, maxBudget = 60, 8

	tbl, err := costmodel.Compute(context.Background(), maxLen, maxBudget)
	require.NoError(t, err)

	for k := 0; k <= maxBudget; k++ {
		for n := 1; n <= maxLen; n++ {
			assert.LessOrEqual(t, tbl.Total(n, k), tbl.Total(n+1, k), "T non-decreasing in n (n=%d k=%d)", n, k)
			if k > 0 {
				assert.LessOrEqual(t, tbl.Total(n, k), tbl.Total(n, k-1), "T non-increasing in k (n=%d k=%d)", n, k)
			}
			// Forward placement is never worse than starting cold.
			assert.LessOrEqual(t, tbl.Warm(n, k), tbl.Cold(n, k))
		}
	}
}
