package rewind

import (
	"context"
	"errors"
	"fmt"

	"github.com/randalmurphal/rewind/pkg/rewind/checkpoint"
	"github.com/randalmurphal/rewind/pkg/rewind/costmodel"
)

// Sentinel errors for construction.
var (
	// ErrNilStep indicates New was called without a step function.
	ErrNilStep = errors.New("step function cannot be nil")

	// ErrNilContext indicates a nil context was passed.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrInvalidOption indicates an option value that cannot be applied,
	// such as a clone function for a different state type.
	ErrInvalidOption = errors.New("invalid option")

	// ErrInvalidBudget indicates a negative budget or non-positive length.
	ErrInvalidBudget = costmodel.ErrInvalidBudget

	// ErrTableTooLarge indicates the cost table would exceed the cache's cell bound.
	ErrTableTooLarge = costmodel.ErrTableTooLarge
)

// Sentinel errors for moves.
var (
	// ErrOutOfRange indicates a move past either end of the sequence.
	ErrOutOfRange = errors.New("position out of range")

	// ErrPending indicates a deamortized move ran out of budget.
	// Repeat the same call to continue it.
	ErrPending = errors.New("move pending")

	// ErrEndOfSequence is returned by a step function when its input is the
	// last element of a sequence of unknown length.
	ErrEndOfSequence = errors.New("end of sequence")

	// ErrClosed indicates the engine was closed.
	ErrClosed = errors.New("enumerator closed")

	// ErrNoAnchor indicates the anchor checkpoint is missing.
	ErrNoAnchor = checkpoint.ErrNoAnchor
)

// RangeError reports a move rejected at a boundary.
// The cursor is unchanged.
type RangeError struct {
	// Direction is "forward", "backward" or "seek".
	Direction string
	// Position is the cursor position when the move was attempted.
	Position int
	// Target is the requested position.
	Target int
	// Length is the sequence length, or -1 while unknown.
	Length int
	// Cause is set when the boundary was discovered by the step function.
	Cause error
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	length := "unknown"
	if e.Length >= 0 {
		length = fmt.Sprint(e.Length)
	}
	return fmt.Sprintf("%s from %d to %d: %v (length %s)", e.Direction, e.Position, e.Target, ErrOutOfRange, length)
}

// Unwrap returns ErrOutOfRange and the cause for errors.Is support.
func (e *RangeError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrOutOfRange, e.Cause}
	}
	return []error{ErrOutOfRange}
}

// StepError wraps an error returned by the step function.
type StepError struct {
	// Position is the position of the state the step was applied to.
	Position int
	// Replay is true if the step ran while replaying toward a backward target.
	Replay bool
	// Err is the step's error.
	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.Replay {
		return fmt.Sprintf("step from %d during replay: %v", e.Position, e.Err)
	}
	return fmt.Sprintf("step from %d: %v", e.Position, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StepError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised by the step function.
type PanicError struct {
	// Position is the position of the state the step was applied to.
	Position int
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("step from %d panicked: %v", e.Position, e.Value)
}

// InvariantError reports internal bookkeeping that went wrong. It means a
// bug in rewind or a step function that is not deterministic.
type InvariantError struct {
	// Op is the operation that found the violation.
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *InvariantError) Unwrap() error {
	return e.Err
}

// Category represents how an error should be handled.
type Category int

const (
	// CategoryRecoverable indicates the engine is intact and the caller may
	// continue: boundaries, pending moves, cancellation.
	CategoryRecoverable Category = iota

	// CategoryFatal indicates the operation cannot succeed as asked:
	// invalid budgets, oversized tables, failing step functions.
	CategoryFatal

	// CategoryInvariant indicates broken internal state.
	CategoryInvariant
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryRecoverable:
		return "recoverable"
	case CategoryFatal:
		return "fatal"
	case CategoryInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryFatal // shouldn't happen, fail safe
	}

	var invErr *InvariantError
	if errors.As(err, &invErr) || errors.Is(err, ErrNoAnchor) {
		return CategoryInvariant
	}

	var stepErr *StepError
	var panicErr *PanicError
	if errors.As(err, &stepErr) || errors.As(err, &panicErr) {
		return CategoryFatal
	}

	if errors.Is(err, ErrOutOfRange) || errors.Is(err, ErrPending) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryRecoverable
	}
	return CategoryFatal
}

// IsRecoverable reports whether the engine can keep being used after err.
func IsRecoverable(err error) bool {
	return Categorize(err) == CategoryRecoverable
}
