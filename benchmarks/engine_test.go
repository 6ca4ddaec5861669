package benchmarks

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"testing"

	"github.com/randalmurphal/rewind/pkg/rewind"
	"github.com/randalmurphal/rewind/pkg/rewind/costmodel"
)

// link is a hash-chain element, a realistic step cost.
type link struct {
	Hash [sha256.Size]byte
}

func nextLink(l link) (link, error) {
	return link{Hash: sha256.Sum256(l.Hash[:])}, nil
}

// sharedModel keeps table construction out of traversal timings.
var sharedModel = costmodel.NewModel(costmodel.WithCache(costmodel.NewCache()))

// BenchmarkTraversal measures a full forward-then-backward walk.
func BenchmarkTraversal(b *testing.B) {
	for _, tc := range []struct{ n, k int }{
		{1000, 4}, {1000, 16}, {10000, 8}, {10000, 32},
	} {
		b.Run(fmt.Sprintf("n=%d/k=%d", tc.n, tc.k), func(b *testing.B) {
			ctx := context.Background()
			for i := 0; i < b.N; i++ {
				e, err := rewind.New(ctx, nextLink, link{},
					rewind.WithLength(tc.n), rewind.WithBudget(tc.k), rewind.WithModel(sharedModel))
				if err != nil {
					b.Fatal(err)
				}
				traverse(b, e.Forward, e.Backward)
				b.ReportMetric(float64(e.Stats().ReplaySteps)/float64(tc.n), "replays/elem")
			}
		})
	}
}

// BenchmarkTraversal_Deamortized measures the same walk with bounded moves.
func BenchmarkTraversal_Deamortized(b *testing.B) {
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		e, err := rewind.New(ctx, nextLink, link{},
			rewind.WithLength(10000), rewind.WithBudget(8), rewind.WithModel(sharedModel))
		if err != nil {
			b.Fatal(err)
		}
		d := rewind.NewDeamortizer(e)
		traverse(b,
			func(ctx context.Context) error { return rewind.Await(ctx, d.Forward) },
			func(ctx context.Context) error { return rewind.Await(ctx, d.Backward) },
		)
		b.ReportMetric(float64(d.Stats().MaxCallSteps), "max-steps/call")
	}
}

// BenchmarkTraversal_UnknownLength measures a walk that discovers its end.
func BenchmarkTraversal_UnknownLength(b *testing.B) {
	const n = 5000
	ctx := context.Background()
	step := func(l indexed) (indexed, error) {
		if l.Index == n-1 {
			return l, rewind.ErrEndOfSequence
		}
		return indexed{Index: l.Index + 1, Hash: sha256.Sum256(l.Hash[:])}, nil
	}
	for i := 0; i < b.N; i++ {
		e, err := rewind.New(ctx, step, indexed{}, rewind.WithBudget(8), rewind.WithModel(sharedModel))
		if err != nil {
			b.Fatal(err)
		}
		traverse(b, e.Forward, e.Backward)
	}
}

type indexed struct {
	Index int
	Hash  [sha256.Size]byte
}

func traverse(b *testing.B, forward, backward func(context.Context) error) {
	b.Helper()
	ctx := context.Background()
	for _, move := range []func(context.Context) error{forward, backward} {
		for {
			err := move(ctx)
			if errors.Is(err, rewind.ErrOutOfRange) {
				break
			}
			if err != nil {
				b.Fatal(err)
			}
		}
	}
}
