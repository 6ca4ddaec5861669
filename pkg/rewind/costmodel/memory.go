package costmodel

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory table store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[TableKey]storedTable
	closed bool
}

type storedTable struct {
	data      []byte
	timestamp time.Time
}

// NewMemoryStore creates a new in-memory table store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[TableKey]storedTable),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(key TableKey, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	// Copy data to avoid retaining caller's slice
	stored := make([]byte, len(data))
	copy(stored, data)

	m.data[key] = storedTable{
		data:      stored,
		timestamp: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(key TableKey) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	st, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}

	result := make([]byte, len(st.data))
	copy(result, st.data)
	return result, nil
}

// List implements Store.
func (m *MemoryStore) List() ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.data))
	for key, st := range m.data {
		infos = append(infos, Info{
			Key:       key,
			Timestamp: st.timestamp,
			Size:      int64(len(st.data)),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Key.Length != infos[j].Key.Length {
			return infos[i].Key.Length < infos[j].Key.Length
		}
		return infos[i].Key.Budget < infos[j].Key.Budget
	})
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(key TableKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, key)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of stored tables.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
