package costmodel

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxCells bounds the cells a Cache keeps when WithMaxCells is not
// given. One cell is 24 bytes across the four tables.
const DefaultMaxCells int64 = 1 << 22

// CacheStats reports cache activity.
type CacheStats struct {
	Hits        int64
	Misses      int64
	Builds      int64
	StoreLoads  int64
	StoreErrors int64
	Evictions   int64
	Cells       int64
}

// Cache keeps recently used tables, bounded by total cell count.
//
// A cached table also answers any smaller key it covers. Concurrent misses
// for the same key share one build. A Cache is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	maxCells int64
	entries  map[TableKey]*list.Element
	lru      *list.List // front is most recently used
	cells    int64
	stats    CacheStats

	group singleflight.Group
	store Store
}

type cacheEntry struct {
	key   TableKey
	table *Table
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithMaxCells bounds the total cells kept. Values <= 0 use DefaultMaxCells.
func WithMaxCells(n int64) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.maxCells = n
		}
	}
}

// WithStore backs the cache with a persistent store. Tables are loaded from
// it before building and saved to it after building.
func WithStore(s Store) CacheOption {
	return func(c *Cache) {
		c.store = s
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		maxCells: DefaultMaxCells,
		entries:  make(map[TableKey]*list.Element),
		lru:      list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a table covering key, building it if needed.
//
// Returns ErrTableTooLarge if key needs more cells than the cache may hold.
// Store failures are counted in Stats and otherwise ignored.
func (c *Cache) Get(ctx context.Context, key TableKey) (*Table, error) {
	if key.Length < 0 || key.Budget < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBudget, key)
	}
	key.Budget = capBudget(key.Length, key.Budget)

	if t := c.lookup(key, true); t != nil {
		return t, nil
	}

	if cells := key.Cells(); cells > c.maxCells {
		return nil, fmt.Errorf("%w: %s needs %d cells, limit %d", ErrTableTooLarge, key, cells, c.maxCells)
	}

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		// A concurrent build may have finished between lookup and Do.
		if t := c.lookup(key, false); t != nil {
			return t, nil
		}
		t, err := c.build(ctx, key)
		if err != nil {
			return nil, err
		}
		c.add(key, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

// lookup finds a cached table covering key. Only the first lookup of a
// Get call is counted.
func (c *Cache) lookup(key TableKey, record bool) *Table {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		for e := c.lru.Front(); e != nil; e = e.Next() {
			if e.Value.(*cacheEntry).table.Covers(key.Length, key.Budget) {
				el, ok = e, true
				break
			}
		}
	}
	if !ok {
		if record {
			c.stats.Misses++
		}
		return nil
	}
	c.lru.MoveToFront(el)
	if record {
		c.stats.Hits++
	}
	return el.Value.(*cacheEntry).table
}

func (c *Cache) build(ctx context.Context, key TableKey) (*Table, error) {
	if c.store != nil {
		data, err := c.store.Load(key)
		switch {
		case err == nil:
			t, derr := UnmarshalTable(data)
			if derr == nil && t.Covers(key.Length, key.Budget) {
				c.count(func(s *CacheStats) { s.StoreLoads++ })
				return t, nil
			}
			c.count(func(s *CacheStats) { s.StoreErrors++ })
		case !errors.Is(err, ErrNotFound):
			c.count(func(s *CacheStats) { s.StoreErrors++ })
		}
	}

	t, err := Compute(ctx, key.Length, key.Budget)
	if err != nil {
		return nil, err
	}
	c.count(func(s *CacheStats) { s.Builds++ })

	if c.store != nil {
		data, err := t.Marshal()
		if err == nil {
			err = c.store.Save(key, data)
		}
		if err != nil {
			c.count(func(s *CacheStats) { s.StoreErrors++ })
		}
	}
	return t, nil
}

func (c *Cache) add(key TableKey, t *Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry{key: key, table: t})
	c.cells += t.Cells()

	for c.cells > c.maxCells && c.lru.Len() > 1 {
		el := c.lru.Back()
		e := el.Value.(*cacheEntry)
		c.lru.Remove(el)
		delete(c.entries, e.key)
		c.cells -= e.table.Cells()
		c.stats.Evictions++
	}
}

func (c *Cache) count(fn func(*CacheStats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Cells = c.cells
	return s
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge drops every cached table. The backing store is left alone.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[TableKey]*list.Element)
	c.lru.Init()
	c.cells = 0
}

// Store returns the backing store, or nil.
func (c *Cache) Store() Store {
	return c.store
}
