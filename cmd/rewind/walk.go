package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"text/tabwriter"

	"github.com/randalmurphal/rewind/pkg/rewind"
	"github.com/randalmurphal/rewind/pkg/rewind/config"
	"github.com/randalmurphal/rewind/pkg/rewind/costmodel"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

// link is one element of a SHA-256 hash chain.
type link struct {
	Index int
	Hash  [sha256.Size]byte
}

func nextLink(l link) (link, error) {
	return link{Index: l.Index + 1, Hash: sha256.Sum256(l.Hash[:])}, nil
}

func seedLink(walker int) link {
	return link{Hash: sha256.Sum256([]byte(fmt.Sprintf("rewind walker %d", walker)))}
}

// spanCounter counts ended spans.
type spanCounter struct {
	ended atomic.Int64
}

var _ sdktrace.SpanProcessor = (*spanCounter)(nil)

func (c *spanCounter) OnStart(context.Context, sdktrace.ReadWriteSpan) {}
func (c *spanCounter) OnEnd(sdktrace.ReadOnlySpan)                     { c.ended.Add(1) }
func (c *spanCounter) Shutdown(context.Context) error                  { return nil }
func (c *spanCounter) ForceFlush(context.Context) error                { return nil }

// walkResult summarizes one walker.
type walkResult struct {
	walker    int
	length    int
	stats     rewind.Stats
	total     int64
	pending   int64
	maxCall   int64
	budget    int64
	deamort   bool
	verified  int
	finalHash [sha256.Size]byte
}

func newWalkCmd(opts *options) *cobra.Command {
	var withMetrics, withTracing bool
	cmd := &cobra.Command{
		Use:   "walk",
		Short: "Walk a SHA-256 hash chain to its end and back, verifying every link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.settings(cmd)
			if err != nil {
				return err
			}
			if s.Length < 2 {
				return errors.New("walk needs --n >= 2")
			}

			var reader *sdkmetric.ManualReader
			if withMetrics {
				reader = sdkmetric.NewManualReader()
				mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
				defer mp.Shutdown(context.Background())
				otel.SetMeterProvider(mp)
			}
			var spans *spanCounter
			if withTracing {
				spans = &spanCounter{}
				tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
				defer tp.Shutdown(context.Background())
				otel.SetTracerProvider(tp)
			}

			model, closeStore, err := s.Model()
			if err != nil {
				return err
			}
			defer closeStore()

			results := make([]walkResult, s.Walkers)
			g, ctx := errgroup.WithContext(cmd.Context())
			for i := range s.Walkers {
				g.Go(func() error {
					r, err := walk(ctx, s, model, i, opts, cmd.ErrOrStderr(), withMetrics, withTracing)
					if err != nil {
						return fmt.Errorf("walker %d: %w", i, err)
					}
					results[i] = r
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printResults(out, results)
			if reader != nil {
				if err := printMetrics(cmd.Context(), out, reader); err != nil {
					return err
				}
			}
			if spans != nil {
				fmt.Fprintf(out, "spans recorded: %d\n", spans.ended.Load())
			}
			return nil
		},
	}
	cmd.Flags().Int("n", 0, "chain length")
	cmd.Flags().Int("k", 0, "checkpoint budget")
	cmd.Flags().Int("slack", rewind.DefaultSlack, "deamortizer budget multiplier")
	cmd.Flags().Int("walkers", 1, "independent walkers to run concurrently")
	cmd.Flags().Bool("deamortize", false, "bound the steps of every move")
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "collect and print OpenTelemetry metrics")
	cmd.Flags().BoolVar(&withTracing, "trace", false, "record one span per move and print the count")
	return cmd
}

// walk runs one walker forward to the end and back to the start. Each
// backward state is checked against the state after it: hashing it must
// give the hash already seen one position later.
func walk(ctx context.Context, s config.Settings, model *costmodel.Model, walker int, opts *options, logOut io.Writer, withMetrics, withTracing bool) (walkResult, error) {
	engineOpts := append(s.EngineOptions(model),
		rewind.WithID(fmt.Sprintf("walker-%d", walker)),
		rewind.WithLogger(opts.logger(logOut)),
		rewind.WithMetrics(withMetrics),
		rewind.WithTracing(withTracing),
	)
	e, err := rewind.New(ctx, nextLink, seedLink(walker), engineOpts...)
	if err != nil {
		return walkResult{}, err
	}
	defer e.Close()

	var d *rewind.Deamortizer[link]
	forward, backward := e.Forward, e.Backward
	if s.Deamortize {
		d = rewind.NewDeamortizer(e, s.DeamortizerOptions()...)
		forward, backward = d.Forward, d.Backward
	}

	for {
		err := rewind.Await(ctx, forward)
		if errors.Is(err, rewind.ErrOutOfRange) {
			break
		}
		if err != nil {
			return walkResult{}, err
		}
	}
	r := walkResult{
		walker:    walker,
		length:    e.Position() + 1,
		finalHash: e.State().Hash,
		deamort:   s.Deamortize,
	}

	later := e.State()
	for {
		err := rewind.Await(ctx, backward)
		if errors.Is(err, rewind.ErrOutOfRange) {
			break
		}
		if err != nil {
			return walkResult{}, err
		}
		cur := e.State()
		want := sha256.Sum256(cur.Hash[:])
		if cur.Index != e.Position() || !bytes.Equal(want[:], later.Hash[:]) {
			return walkResult{}, fmt.Errorf("link %d does not hash to link %d", e.Position(), later.Index)
		}
		r.verified++
		later = cur
	}
	if later.Hash != seedLink(walker).Hash {
		return walkResult{}, errors.New("walk did not return to the seed")
	}

	r.stats = e.Stats()
	r.total = e.Plan().Total
	if d != nil {
		ds := d.Stats()
		r.pending, r.maxCall, r.budget = ds.Pending, ds.MaxCallSteps, d.Budget()
	}
	return r, nil
}

func printResults(w io.Writer, results []walkResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WALKER\tLENGTH\tVERIFIED\tREPLAY\tOPTIMAL\tMAX MOVE\tPENDING\tMAX CALL\tFINAL")
	for _, r := range results {
		pending, maxCall := "-", "-"
		if r.deamort {
			pending = fmt.Sprint(r.pending)
			maxCall = fmt.Sprintf("%d/%d", r.maxCall, r.budget)
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%s\t%s\t%x\n",
			r.walker, r.length, r.verified, r.stats.ReplaySteps, r.total,
			r.stats.MaxMoveSteps, pending, maxCall, r.finalHash[:6])
	}
	tw.Flush()
}

func printMetrics(ctx context.Context, w io.Writer, reader *sdkmetric.ManualReader) error {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				fmt.Fprintf(w, "%s\t%d\n", m.Name, total)
			case metricdata.Histogram[int64]:
				var count uint64
				var sum int64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				fmt.Fprintf(w, "%s\tcount=%d sum=%d\n", m.Name, count, sum)
			case metricdata.Histogram[float64]:
				var count uint64
				for _, dp := range data.DataPoints {
					count += dp.Count
				}
				fmt.Fprintf(w, "%s\tcount=%d\n", m.Name, count)
			}
		}
	}
	return nil
}
