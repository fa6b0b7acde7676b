// Package querycache keeps fetched query results under hierarchical keys
// ("proofs/2024-01"). Invalidating a key drops it and every key below it.
package querycache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fitchallenge/internal/metrics"
)

const Sep = "/"

// Key joins parts into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, Sep)
}

type entry struct {
	value     any
	fetchedAt time.Time
	staleTime time.Duration
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
	now     func() time.Time

	epoch       uint64
	invalidated map[string]uint64 // prefix -> epoch of last invalidation
}

func New() *Cache {
	return &Cache{
		entries:     make(map[string]*entry),
		now:         time.Now,
		invalidated: make(map[string]uint64),
	}
}

// Matches reports whether key equals prefix or lies below it.
func Matches(prefix, key string) bool {
	return key == prefix || strings.HasPrefix(key, prefix+Sep)
}

// Get returns the cached value for key, fetching it when absent or older than
// staleTime. A zero staleTime keeps the value until it is invalidated.
// Concurrent callers for the same cold key share one fetch.
func (c *Cache) Get(ctx context.Context, key string, staleTime time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if e.staleTime <= 0 || c.now().Sub(e.fetchedAt) < e.staleTime {
			c.mu.Unlock()
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return e.value, nil
		}
		metrics.CacheLookups.WithLabelValues("stale").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (any, error) {
		c.mu.Lock()
		start := c.epoch
		c.mu.Unlock()

		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.invalidatedSince(key, start) {
			c.entries[key] = &entry{value: v, fetchedAt: c.now(), staleTime: staleTime}
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// invalidatedSince must be called with c.mu held.
func (c *Cache) invalidatedSince(key string, epoch uint64) bool {
	for prefix, at := range c.invalidated {
		if at > epoch && Matches(prefix, key) {
			return true
		}
	}
	return false
}

// Invalidate drops every entry under each prefix and returns how many went.
// A fetch already in flight for an invalidated key is not stored.
func (c *Cache) Invalidate(prefixes ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	n := 0
	for _, prefix := range prefixes {
		c.invalidated[prefix] = c.epoch
		for key := range c.entries {
			if Matches(prefix, key) {
				delete(c.entries, key)
				n++
			}
		}
	}
	metrics.CacheInvalidations.Add(float64(n))
	return n
}

// Peek returns the cached value without fetching.
func (c *Cache) Peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Fetch is Get with a typed result.
func Fetch[T any](ctx context.Context, c *Cache, key string, staleTime time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.Get(ctx, key, staleTime, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
