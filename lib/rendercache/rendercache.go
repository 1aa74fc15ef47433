// Package rendercache memoizes expensive render outputs by content addressed keys.
//
// A Cache is safe for concurrent use. It does not deduplicate concurrent misses: two
// goroutines that miss on the same key both compute and the last write wins. Values must
// be pure functions of their key for that to be harmless.
package rendercache

import (
	"context"
	"sync"
	"sync/atomic"

	"oss.terrastruct.com/mathtext/lib/syncmap"
)

type Cache[V any] struct {
	// MaxEntries bounds the number of entries. Arbitrary entries are evicted once it is
	// exceeded. Zero means unbounded.
	MaxEntries int

	mu      sync.Mutex
	entries syncmap.SyncMap[string, V]
	n       int

	hits   atomic.Int64
	misses atomic.Int64
}

type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

func New[V any](maxEntries int) *Cache[V] {
	return &Cache[V]{
		MaxEntries: maxEntries,
		entries:    syncmap.New[string, V](),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	v, ok := c.entries.Lookup(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries.Lookup(key); !ok {
		c.n++
	}
	c.entries.Set(key, v)
	c.evictLocked(key)
}

// GetOrCompute returns the cached value for key or calls compute and stores its result.
// Errors from compute are returned as is and nothing is stored.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries.Lookup(key); ok {
		c.entries.Delete(key)
		c.n--
	}
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Clear()
	c.n = 0
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func (c *Cache[V]) Stats() Stats {
	return Stats{
		Entries: c.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// evictLocked drops entries other than keep until the cache fits MaxEntries.
func (c *Cache[V]) evictLocked(keep string) {
	if c.MaxEntries <= 0 || c.n <= c.MaxEntries {
		return
	}
	c.entries.Range(func(k string, _ V) bool {
		if k != keep {
			c.entries.Delete(k)
			c.n--
		}
		return c.n > c.MaxEntries
	})
}
