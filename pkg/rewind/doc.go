/*
Package rewind provides a bidirectional cursor over sequences that can only
be computed forward.

# Overview

Some sequences are cheap to walk forward and impossible to walk back: hash
chains, simulation states, one-way key derivations, PRNG streams. Storing
every element makes reversal free but costs memory linear in the length.
rewind keeps at most k saved states (checkpoints) besides the initial one
and replays forward from the nearest checkpoint whenever the cursor moves
back.

Where checkpoints go is decided by an optimal cost table: for a sequence of
n elements and k checkpoints, a full forward-then-backward traversal makes
exactly T(n, k) replay steps, the minimum any k-checkpoint strategy can
achieve.

# Basic Usage

Define a deterministic step function and walk:

	type State struct {
	    Index int
	    Hash  [32]byte
	}

	func next(s State) (State, error) {
	    return State{Index: s.Index + 1, Hash: sha256.Sum256(s.Hash[:])}, nil
	}

	func main() {
	    ctx := context.Background()
	    e, err := rewind.New(ctx, next, State{}, rewind.WithLength(10000), rewind.WithBudget(12))
	    if err != nil {
	        log.Fatal(err)
	    }
	    defer e.Close()

	    for e.Forward(ctx) == nil {
	    }
	    for e.Backward(ctx) == nil {
	        fmt.Println(e.Position(), hex.EncodeToString(e.State().Hash[:]))
	    }
	}

Forward at the last position and Backward at position 0 return a
*RangeError wrapping ErrOutOfRange. The cursor is left where it was.

# Unknown Length

Without WithLength the engine plans for a working extent (WithGrowth,
default 64) and doubles it each time the cursor crosses it. The step
function reports the end by returning ErrEndOfSequence; from then on the
length is fixed and the plan is recomputed for it.

# Bounded Latency

A plain backward move may replay many steps. Wrap the engine in a
Deamortizer to cap the steps any single call runs:

	d := rewind.NewDeamortizer(e)
	for {
	    err := d.Backward(ctx)
	    if errors.Is(err, rewind.ErrPending) {
	        continue // do other work, then call again
	    }
	    if err != nil {
	        break
	    }
	}

The cap is a small multiple of the plan's average per-step cost.
Await turns a deamortized move back into a blocking one.

# State Ownership

Checkpoints hold the values the step function returned. If S contains
slices, maps or pointers that the caller mutates, supply WithClone so
stored states are copied:

	rewind.WithClone(func(s Buf) Buf { return Buf{Data: slices.Clone(s.Data)} })

# Error Handling

Step failures are wrapped in *StepError and panics in *PanicError; both
leave the cursor and checkpoint table as they were. Categorize tells the
caller whether the engine is still usable:

	if rewind.IsRecoverable(err) {
	    // boundary, pending or cancelled move
	}

# Observability

Moves log through log/slog (WithLogger), record OpenTelemetry metrics
(WithMetrics) and open one span per move (WithTracing).

# Thread Safety

An Engine is owned by one goroutine. Use Clone to hand an independent
cursor to another goroutine. Each engine keeps its cost tables in a
private cache unless WithModel supplies a shared one; a costmodel.Cache is
safe to share across engines and goroutines.
*/
package rewind
