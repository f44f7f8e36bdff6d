// Package readcache is the client-side read-through cache: it keeps list
// views close to current truth without a network round-trip per render.
// One Cache per client session.
package readcache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL      = 30 * time.Second
	DefaultDebounce = 300 * time.Millisecond

	refreshTimeout = 10 * time.Second
)

// FetchFunc loads the current value for a query key.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	value     any
	fetchedAt time.Time
	fetch     FetchFunc
}

// Cache maps query keys to values with a freshness window. Concurrent
// fetches for one key are collapsed into a single in-flight request; all
// callers share its result.
type Cache struct {
	ttl      time.Duration
	debounce time.Duration

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry
	timer   *time.Timer
	closed  bool
}

func New(ttl, debounce time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Cache{
		ttl:      ttl,
		debounce: debounce,
		entries:  make(map[string]entry),
	}
}

// Get returns the cached value for key when it is still fresh, otherwise
// fetches. The fetch func is remembered so background refreshes can reuse it.
func (c *Cache) Get(ctx context.Context, key string, fetch FetchFunc) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Since(e.fetchedAt) < c.ttl {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	return c.fetchThrough(ctx, key, fetch)
}

func (c *Cache) fetchThrough(ctx context.Context, key string, fetch FetchFunc) (any, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		// A caller that queued behind the in-flight fetch may find the entry
		// already fresh.
		c.mu.Lock()
		if e, ok := c.entries[key]; ok && time.Since(e.fetchedAt) < c.ttl {
			c.mu.Unlock()
			return e.value, nil
		}
		c.mu.Unlock()

		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if !c.closed {
			c.entries[key] = entry{value: value, fetchedAt: time.Now(), fetch: fetch}
		}
		c.mu.Unlock()
		return value, nil
	})
	return v, err
}

// Invalidate drops everything. Called after the session's own successful
// writes; tracking exactly which queries a write touched isn't worth it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// OnExternalChange signals that a bus event arrived. Bursts within the
// debounce window coalesce into one background refresh; reads keep serving
// the previous value until the refresh lands.
func (c *Cache) OnExternalChange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.timer == nil {
		c.timer = time.AfterFunc(c.debounce, c.refreshAll)
		return
	}
	c.timer.Reset(c.debounce)
}

// Close stops any pending refresh. A closed cache still serves Get by
// fetching directly.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Cache) refreshAll() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	fetches := make(map[string]FetchFunc, len(c.entries))
	for key, e := range c.entries {
		fetches[key] = e.fetch
	}
	c.mu.Unlock()

	for key, fetch := range fetches {
		go func(key string, fetch FetchFunc) {
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			c.group.Do(key, func() (any, error) {
				value, err := fetch(ctx)
				if err != nil {
					// Stale value stays; next Get past the TTL retries.
					return nil, err
				}
				c.mu.Lock()
				if !c.closed {
					c.entries[key] = entry{value: value, fetchedAt: time.Now(), fetch: fetch}
				}
				c.mu.Unlock()
				return value, nil
			})
		}(key, fetch)
	}
}
