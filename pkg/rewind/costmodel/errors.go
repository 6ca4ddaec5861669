package costmodel

import "errors"

// Sentinel errors for cost computation.
var (
	// ErrInvalidBudget indicates a negative sequence length or checkpoint budget.
	ErrInvalidBudget = errors.New("invalid budget")

	// ErrTableTooLarge indicates a table would exceed the configured cell bound.
	ErrTableTooLarge = errors.New("cost table exceeds cell bound")

	// ErrCorruptTable indicates an encoded table failed validation.
	ErrCorruptTable = errors.New("corrupt cost table")
)

// Sentinel errors for table stores.
var (
	// ErrNotFound indicates a table doesn't exist in the store.
	ErrNotFound = errors.New("cost table not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("cost table store closed")
)
