// Package cache provides a weight-bounded read-through cache.
//
// Values are produced by a Loader on miss, at most once per key at a time,
// on the calling goroutine. Loaders that also implement Reloader support
// out-of-band refresh: the stale value stays visible until the replacement
// is installed, and a failed or abandoned refresh leaves it in place.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"
)

// Loader produces the value for a key. Load runs on the caller's goroutine
// and its error is returned verbatim from Get; errors are not cached.
type Loader[K ~string, V any] interface {
	Load(ctx context.Context, key K) (V, error)
}

// Reloader refreshes an existing entry out of band. Reload must not block:
// completion, if any, is reported through install. An implementation that
// cannot run the refresh may call install with prev or not at all.
type Reloader[K ~string, V any] interface {
	Reload(key K, prev V, install func(V))
}

// Weigher estimates the cost of one entry. Results below 1 count as 1.
type Weigher[K ~string, V any] func(key K, value V) int

// Cache is a read-through cache with LRU eviction bounded by total weight.
type Cache[K ~string, V any] struct {
	loader  Loader[K, V]
	weigher Weigher[K, V]
	group   singleflight.Group

	mu        sync.Mutex
	lru       *simplelru.LRU[K, V]
	weights   map[K]int
	weight    int
	maxWeight int
}

// New creates a cache holding at most maxWeight total weight.
func New[K ~string, V any](maxWeight int, weigher Weigher[K, V], loader Loader[K, V]) (*Cache[K, V], error) {
	if maxWeight <= 0 {
		return nil, fmt.Errorf("cache: maxWeight must be positive, got %d", maxWeight)
	}

	c := &Cache[K, V]{
		loader:    loader,
		weigher:   weigher,
		weights:   make(map[K]int),
		maxWeight: maxWeight,
	}
	// Every entry weighs at least 1, so maxWeight also bounds the entry
	// count and the LRU's own size cap never fires first.
	lru, err := simplelru.NewLRU[K, V](maxWeight, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	c.lru = lru
	return c, nil
}

// Get returns the cached value for key, loading it on miss. Concurrent
// misses for the same key share one load.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, error) {
	if v, ok := c.GetIfPresent(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(string(key), func() (interface{}, error) {
		// A racing flight may have installed the value already.
		if v, ok := c.GetIfPresent(key); ok {
			return v, nil
		}
		v, err := c.loader.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		c.add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// GetIfPresent returns the cached value without loading. A hit counts as an
// access for eviction ordering.
func (c *Cache[K, V]) GetIfPresent(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Refresh asks the loader to rebuild the entry for key out of band. Absent
// keys and loaders without reload support are ignored. The replacement is
// installed only if the entry is still cached when the reload completes.
func (c *Cache[K, V]) Refresh(key K) {
	rl, ok := c.loader.(Reloader[K, V])
	if !ok {
		return
	}
	prev, ok := c.GetIfPresent(key)
	if !ok {
		return
	}
	rl.Reload(key, prev, func(v V) {
		c.replaceIfPresent(key, v)
	})
}

// Invalidate drops the entry for key, if any.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Weight returns the current total weight, for monitoring.
func (c *Cache[K, V]) Weight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

func (c *Cache[K, V]) add(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, v)
}

// replaceIfPresent installs v under key unless the entry was evicted while
// the reload ran; a dead key must not be resurrected behind the LRU's back.
func (c *Cache[K, V]) replaceIfPresent(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lru.Contains(key) {
		return
	}
	c.put(key, v)
}

// put stores v and evicts oldest entries until the weight bound holds.
// Callers hold c.mu.
func (c *Cache[K, V]) put(key K, v V) {
	w := c.weigher(key, v)
	if w < 1 {
		w = 1
	}

	if old, ok := c.weights[key]; ok {
		c.weight -= old
	}
	c.weights[key] = w
	c.weight += w
	c.lru.Add(key, v)

	for c.weight > c.maxWeight && c.lru.Len() > 0 {
		c.lru.RemoveOldest()
	}
}

// onEvict keeps the weight accounting in step with the LRU. Called by the
// LRU under c.mu.
func (c *Cache[K, V]) onEvict(key K, _ V) {
	c.weight -= c.weights[key]
	delete(c.weights, key)
}
