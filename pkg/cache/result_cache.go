package cache

import (
	"container/list"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ResultCache memoizes expensive computations keyed by a request
// fingerprint. Concurrent callers sharing a fingerprint are coalesced into a
// single computation, successful results are kept for a TTL window and
// evicted least-recently-used above capacity. Failures are never stored, the
// next caller retries immediately.
type ResultCache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
	lru     *list.List // front = most recently used, values are keys

	ttl     time.Duration
	maxSize int

	group singleflight.Group
}

type entry[V any] struct {
	value     V
	createdAt time.Time
	elem      *list.Element
}

func New[V any](ttl time.Duration, maxSize int) *ResultCache[V] {
	return &ResultCache[V]{
		entries: make(map[string]*entry[V]),
		lru:     list.New(),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// GetOrCompute returns the cached value for key if still fresh, otherwise
// runs compute exactly once for all concurrent callers of this key and
// stores the result. All coalesced callers observe the same value or the
// same error.
func (c *ResultCache[V]) GetOrCompute(key string, compute func() (V, error)) (V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// a coalesced caller may arrive right after the winner stored
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		value, err := compute()
		if err != nil {
			return nil, err
		}
		c.store(key, value)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// lookup treats an entry past its TTL as absent, removing it on read rather
// than waiting for an eviction sweep.
func (c *ResultCache[V]) lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if time.Since(e.createdAt) >= c.ttl {
		c.removeLocked(key, e)
		var zero V
		return zero, false
	}

	c.lru.MoveToFront(e.elem)
	return e.value, true
}

func (c *ResultCache[V]) store(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.removeLocked(key, old)
	}

	e := &entry[V]{
		value:     value,
		createdAt: time.Now(),
	}
	e.elem = c.lru.PushFront(key)
	c.entries[key] = e

	for len(c.entries) > c.maxSize {
		back := c.lru.Back()
		if back == nil {
			break
		}
		oldestKey := back.Value.(string)
		c.removeLocked(oldestKey, c.entries[oldestKey])
	}
}

func (c *ResultCache[V]) removeLocked(key string, e *entry[V]) {
	c.lru.Remove(e.elem)
	delete(c.entries, key)
}

func (c *ResultCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
