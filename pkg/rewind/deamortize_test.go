package rewind

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPendingSetup returns a deamortizer at position 99 of a 100 item
// sequence with no checkpoints and a budget of 49 steps per call, so the
// first backward move needs two calls.
func newPendingSetup(t *testing.T) (*Deamortizer[item], *counter) {
	t.Helper()
	c := &counter{}
	e, err := New(testCtx(), c.step, item{}, WithLength(100), WithBudget(0))
	require.NoError(t, err)
	require.ErrorIs(t, toEnd(e), ErrOutOfRange)

	d := NewDeamortizer(e, WithSlack(1))
	require.Equal(t, int64(49), d.Budget())
	return d, c
}

// TestDeamortizer_CallsStayWithinBudget walks back checking every call's step count.
func TestDeamortizer_CallsStayWithinBudget(t *testing.T) {
	for _, k := range []int{1, 3, 6} {
		const n = 200
		want := expected(n)
		c := &counter{}
		e, err := New(testCtx(), c.step, item{}, WithLength(n), WithBudget(k))
		require.NoError(t, err)
		require.ErrorIs(t, toEnd(e), ErrOutOfRange)

		d := NewDeamortizer(e)
		budget := d.Budget()
		require.Equal(t, DefaultSlack*e.Plan().PerStep, budget)

		for {
			before := c.calls
			err := d.Backward(testCtx())
			require.LessOrEqual(t, c.calls-before, budget, "k=%d position %d", k, e.Position())
			if errors.Is(err, ErrPending) {
				continue
			}
			if err != nil {
				require.ErrorIs(t, err, ErrOutOfRange)
				break
			}
			require.Equal(t, want[e.Position()], e.State())
		}

		assert.Equal(t, 0, e.Position())
		assert.LessOrEqual(t, d.Stats().MaxCallSteps, budget)
		assert.Positive(t, d.Stats().Prefetched)
		assert.Zero(t, d.Stats().Discarded)
		assert.Equal(t, e.Plan().Total, e.Stats().ReplaySteps)
	}
}

func TestDeamortizer_Pending(t *testing.T) {
	d, c := newPendingSetup(t)
	e := d.Engine()
	before := c.calls

	err := d.Backward(testCtx())
	require.ErrorIs(t, err, ErrPending)
	assert.True(t, IsRecoverable(err))
	assert.True(t, d.Pending())
	assert.Equal(t, StatusReplaying, e.Status())
	assert.Equal(t, 99, e.Position())
	assert.Equal(t, int64(49), c.calls-before)

	require.NoError(t, d.Backward(testCtx()))
	assert.False(t, d.Pending())
	assert.Equal(t, 98, e.Position())
	assert.Equal(t, expected(100)[98], e.State())
	assert.Equal(t, StatusReady, e.Status())
	assert.Equal(t, int64(98), c.calls-before)
	assert.Equal(t, int64(98), e.Stats().LastMoveSteps)
	assert.Equal(t, int64(1), d.Stats().Pending)
}

// TestDeamortizer_Cancel tests that dropping a pending move leaves the engine untouched.
func TestDeamortizer_Cancel(t *testing.T) {
	d, _ := newPendingSetup(t)
	e := d.Engine()

	require.ErrorIs(t, d.Backward(testCtx()), ErrPending)
	d.Cancel()

	assert.False(t, d.Pending())
	assert.Equal(t, StatusExhausted, e.Status())
	assert.Equal(t, 99, e.Position())
	assert.Empty(t, e.Checkpoints())
	assert.Equal(t, int64(1), d.Stats().Discarded)

	// The move starts over.
	require.ErrorIs(t, d.Backward(testCtx()), ErrPending)
	require.NoError(t, d.Backward(testCtx()))
	assert.Equal(t, 98, e.Position())
}

func TestDeamortizer_DifferentMoveDiscards(t *testing.T) {
	d, _ := newPendingSetup(t)
	e := d.Engine()

	require.ErrorIs(t, d.Backward(testCtx()), ErrPending)

	err := d.Seek(testCtx(), 50)
	require.ErrorIs(t, err, ErrPending)
	assert.Equal(t, int64(1), d.Stats().Discarded)

	require.NoError(t, Await(testCtx(), func(ctx context.Context) error {
		return d.Seek(ctx, 50)
	}))
	assert.Equal(t, 50, e.Position())
	assert.Equal(t, expected(100)[50], e.State())
}

func TestDeamortizer_ContextCancelled(t *testing.T) {
	d, _ := newPendingSetup(t)
	e := d.Engine()

	require.ErrorIs(t, d.Backward(testCtx()), ErrPending)

	ctx, cancel := context.WithCancel(testCtx())
	cancel()
	err := d.Backward(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, d.Pending())
	assert.Equal(t, 99, e.Position())
	assert.Equal(t, expected(100)[99], e.State())
	assert.NotEqual(t, StatusReplaying, e.Status())
}

// TestDeamortizer_EngineMovedDirectly tests that a direct move invalidates a pending one.
func TestDeamortizer_EngineMovedDirectly(t *testing.T) {
	d, _ := newPendingSetup(t)
	e := d.Engine()

	require.ErrorIs(t, d.Backward(testCtx()), ErrPending)
	require.NoError(t, e.Seek(testCtx(), 10))

	require.NoError(t, Await(testCtx(), d.Backward))
	assert.Equal(t, 9, e.Position())
	assert.Equal(t, expected(100)[9], e.State())
	assert.Equal(t, int64(1), d.Stats().Discarded)
}

func TestDeamortizer_ForwardSeek(t *testing.T) {
	const n = 1000
	c := &counter{}
	e, err := New(testCtx(), c.step, item{}, WithLength(n), WithBudget(4))
	require.NoError(t, err)

	d := NewDeamortizer(e)
	budget := d.Budget()
	calls := 0
	err = Await(testCtx(), func(ctx context.Context) error {
		calls++
		before := c.calls
		err := d.Seek(ctx, n-1)
		assert.LessOrEqual(t, c.calls-before, budget)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, n-1, e.Position())
	assert.Equal(t, expected(n)[n-1], e.State())
	assert.Greater(t, calls, 1)
	assert.LessOrEqual(t, len(e.Checkpoints()), 4)
}

func TestDeamortizer_Forward(t *testing.T) {
	e, err := New(testCtx(), nextItem, item{}, WithLength(5))
	require.NoError(t, err)
	d := NewDeamortizer(e)

	for i := 1; i < 5; i++ {
		require.NoError(t, d.Forward(testCtx()))
	}
	assert.ErrorIs(t, d.Forward(testCtx()), ErrOutOfRange)
	assert.Equal(t, 4, e.Position())
}

func TestDeamortizer_Closed(t *testing.T) {
	e, err := New(testCtx(), nextItem, item{}, WithLength(5))
	require.NoError(t, err)
	d := NewDeamortizer(e)
	require.NoError(t, e.Close())

	assert.ErrorIs(t, d.Backward(testCtx()), ErrClosed)
	assert.Zero(t, d.Budget())
}

func TestDeamortizer_RecordsPending(t *testing.T) {
	metrics := &recordingMetrics{}
	e, err := New(testCtx(), nextItem, item{}, WithLength(100), WithBudget(0), WithMetricsRecorder(metrics))
	require.NoError(t, err)
	require.ErrorIs(t, toEnd(e), ErrOutOfRange)

	d := NewDeamortizer(e, WithSlack(1))
	require.ErrorIs(t, d.Backward(testCtx()), ErrPending)
	require.NoError(t, d.Backward(testCtx()))

	assert.Equal(t, 1, metrics.pending)
}

func TestAwait(t *testing.T) {
	t.Run("retries while pending", func(t *testing.T) {
		calls := 0
		err := Await(testCtx(), func(context.Context) error {
			calls++
			if calls < 3 {
				return ErrPending
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(testCtx())
		cancel()
		err := Await(ctx, func(context.Context) error { return ErrPending })
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("returns other errors", func(t *testing.T) {
		err := Await(testCtx(), func(context.Context) error { return errBoom })
		assert.ErrorIs(t, err, errBoom)
	})
}
