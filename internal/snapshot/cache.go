// Package snapshot caches the latest known server state per logical key and
// drives its refresh cadence. Polling is the correctness floor; push events
// only trigger the same refresh earlier.
package snapshot

import (
	"context"
	"sync"
)

// Cell caches the most recently completed fetch for one logical key (for
// example "orders for table 3" or "items for order 12"). The key can be
// repointed while a fetch is in flight; responses for a superseded key are
// discarded on arrival. For a still-current key, last completed wins — the
// poller makes no ordering promise between overlapping requests.
type Cell[T any] struct {
	name  string
	fetch func(ctx context.Context, key string) (T, error)

	mu       sync.Mutex
	key      string
	gen      uint64
	value    T
	loaded   bool
	inflight int
}

// NewCell builds a cell around a keyed fetch function. The cell stays idle
// until a key is assigned.
func NewCell[T any](name string, fetch func(ctx context.Context, key string) (T, error)) *Cell[T] {
	return &Cell[T]{name: name, fetch: fetch}
}

// Name identifies the cell in logs and metrics.
func (c *Cell[T]) Name() string {
	return c.name
}

// SetKey repoints the cell. Changing the key drops the cached value and
// marks every in-flight fetch stale. An empty key parks the cell.
// Reports whether the key actually changed.
func (c *Cell[T]) SetKey(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == key {
		return false
	}
	c.key = key
	c.gen++
	var zero T
	c.value = zero
	c.loaded = false
	return true
}

// Key returns the current key.
func (c *Cell[T]) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Refresh fetches the current key and stores the result, unless the key
// changed while the fetch was in flight (the response is then dropped
// silently). A failed fetch keeps the previous value.
func (c *Cell[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	key := c.key
	gen := c.gen
	if key == "" {
		c.mu.Unlock()
		return nil
	}
	c.inflight++
	c.mu.Unlock()

	value, err := c.fetch(ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if gen != c.gen {
		// Response for a key that no longer exists; not an error.
		return nil
	}
	if err != nil {
		return err
	}
	c.value = value
	c.loaded = true
	return nil
}

// Get returns the cached value and whether any fetch has completed for the
// current key.
func (c *Cell[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.loaded
}

// Fetching reports whether a fetch for the current key is in flight.
func (c *Cell[T]) Fetching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// Loaded reports whether the cell holds a completed snapshot for the
// current key.
func (c *Cell[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}
