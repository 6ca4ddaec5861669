package costmodel

import (
	"encoding/json"
	"fmt"
	"time"
)

// TableKey identifies a cost table by the segment length and budget it
// was computed for.
type TableKey struct {
	Length int
	Budget int
}

// String returns "len=<n>/budget=<k>".
func (k TableKey) String() string {
	return fmt.Sprintf("len=%d/budget=%d", k.Length, k.Budget)
}

// Cells returns the number of cells the table for this key occupies.
func (k TableKey) Cells() int64 {
	return Cells(k.Length, k.Budget)
}

// Store persists encoded cost tables so they survive process restarts.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores the encoded table for key, replacing any previous one.
	Save(key TableKey, data []byte) error

	// Load retrieves an encoded table.
	// Returns ErrNotFound if no table is stored for key.
	Load(key TableKey) ([]byte, error)

	// List returns metadata for every stored table, ordered by length
	// then budget. Returns an empty slice (not error) if the store is empty.
	List() ([]Info, error)

	// Delete removes a table. Returns nil if it doesn't exist.
	Delete(key TableKey) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading the table.
type Info struct {
	Key       TableKey
	Timestamp time.Time
	Size      int64
}

// Version is the current table encoding version.
// Increment when making breaking changes to encodedTable.
const Version = 1

// encodedTable is the persisted form of a Table.
type encodedTable struct {
	Version   int     `json:"version"`
	MaxLen    int     `json:"max_len"`
	MaxBudget int     `json:"max_budget"`
	Cold      []int64 `json:"cold"`
	ColdSplit []int32 `json:"cold_split"`
	Warm      []int64 `json:"warm"`
	WarmSplit []int32 `json:"warm_split"`
}

// Marshal serializes a table to JSON.
func (t *Table) Marshal() ([]byte, error) {
	return json.Marshal(encodedTable{
		Version:   Version,
		MaxLen:    t.maxLen,
		MaxBudget: t.maxBudget,
		Cold:      t.cold,
		ColdSplit: t.coldSplit,
		Warm:      t.warm,
		WarmSplit: t.warmSplit,
	})
}

// UnmarshalTable deserializes a table produced by Marshal.
// Returns ErrCorruptTable if the version or dimensions don't match.
func UnmarshalTable(data []byte) (*Table, error) {
	var e encodedTable
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptTable, err)
	}
	if e.Version != Version {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrCorruptTable, e.Version, Version)
	}
	if e.MaxLen < 0 || e.MaxBudget < 0 || e.MaxBudget > e.MaxLen {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrCorruptTable, e.MaxLen, e.MaxBudget)
	}
	cells := (e.MaxLen + 1) * (e.MaxBudget + 1)
	if len(e.Cold) != cells || len(e.ColdSplit) != cells || len(e.Warm) != cells || len(e.WarmSplit) != cells {
		return nil, fmt.Errorf("%w: expected %d cells", ErrCorruptTable, cells)
	}
	return &Table{
		maxLen:    e.MaxLen,
		maxBudget: e.MaxBudget,
		cold:      e.Cold,
		coldSplit: e.ColdSplit,
		warm:      e.Warm,
		warmSplit: e.WarmSplit,
	}, nil
}
