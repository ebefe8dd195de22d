// Package cache provides a generic, thread-safe cache combining LRU
// eviction with per-entry TTL expiry.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a generic thread-safe TTL+LRU cache with built-in metrics.
// Entries expire ttl after creation and are never returned once expired;
// when the cache is full the least recently used entry is evicted.
// A ttl of zero disables time-based expiry.
type Cache[K comparable, V any] struct {
	mu       sync.RWMutex
	items    map[K]*entry[K, V]
	order    *list.List
	capacity int
	ttl      time.Duration

	// Metrics (lock-free using atomics)
	hits    atomic.Uint64
	misses  atomic.Uint64
	evicts  atomic.Uint64
	expires atomic.Uint64
	sets    atomic.Uint64

	// now is swappable for expiry tests
	now func() time.Time
}

// entry holds a cached value, its LRU position, and bookkeeping the
// health report uses.
type entry[K comparable, V any] struct {
	key        K
	value      V
	element    *list.Element
	createdAt  time.Time
	lastAccess time.Time
	hitCount   uint64
	size       int
}

// New creates a Cache with the given capacity and TTL.
func New[K comparable, V any](capacity int, ttl time.Duration) *Cache[K, V] {
	if capacity <= 0 {
		capacity = 100
	}
	return &Cache[K, V]{
		items:    make(map[K]*entry[K, V], capacity),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// expired reports whether e is past its TTL. Must be called with mu held
// at least for reading.
func (c *Cache[K, V]) expired(e *entry[K, V]) bool {
	return c.ttl > 0 && c.now().Sub(e.createdAt) >= c.ttl
}

// Get retrieves a value from the cache. Expired entries count as misses
// and are removed. Accessing an entry moves it to the front of the LRU
// list and bumps its hit count.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}

	if c.expired(e) {
		c.removeLocked(e)
		c.expires.Add(1)
		c.misses.Add(1)
		var zero V
		return zero, false
	}

	c.hits.Add(1)
	e.hitCount++
	e.lastAccess = c.now()
	c.order.MoveToFront(e.element)
	return e.value, true
}

// Set adds or updates a value. Updating resets the entry's TTL clock.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetSized(key, value, 1)
}

// SetSized adds or updates a value with an explicit size estimate, used
// by the health report to approximate memory pressure.
func (c *Cache[K, V]) SetSized(key K, value V, size int) {
	c.sets.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		e.createdAt = c.now()
		e.lastAccess = e.createdAt
		e.size = size
		c.order.MoveToFront(e.element)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictOldest()
	}

	now := c.now()
	element := c.order.PushFront(key)
	c.items[key] = &entry[K, V]{
		key:        key,
		value:      value,
		element:    element,
		createdAt:  now,
		lastAccess: now,
		size:       size,
	}
}

// GetOrCompute returns the cached value for key if present and fresh.
// Otherwise it calls fn, stores the result, and returns it. Concurrent
// callers for the same missing key serialize on the write lock so only
// one compute wins; the rest read the stored value.
func (c *Cache[K, V]) GetOrCompute(key K, fn func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring the write lock
	if e, ok := c.items[key]; ok && !c.expired(e) {
		c.order.MoveToFront(e.element)
		e.hitCount++
		e.lastAccess = c.now()
		return e.value, nil
	}

	value, err := fn()
	if err != nil {
		var zero V
		return zero, err
	}

	if e, ok := c.items[key]; ok {
		c.removeLocked(e)
	}
	if len(c.items) >= c.capacity {
		c.evictOldest()
	}

	now := c.now()
	element := c.order.PushFront(key)
	c.items[key] = &entry[K, V]{
		key:        key,
		value:      value,
		element:    element,
		createdAt:  now,
		lastAccess: now,
		size:       1,
	}
	c.sets.Add(1)

	return value, nil
}

// evictOldest removes the least recently used entry. Must be called with
// mu held.
func (c *Cache[K, V]) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}

	key := oldest.Value.(K)
	delete(c.items, key)
	c.order.Remove(oldest)
	c.evicts.Add(1)
}

// removeLocked removes an entry. Must be called with mu held.
func (c *Cache[K, V]) removeLocked(e *entry[K, V]) {
	delete(c.items, e.key)
	c.order.Remove(e.element)
}

// Delete removes an entry from the cache.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.removeLocked(e)
	}
}

// Cleanup removes all expired entries and returns how many were purged.
// The background sweep calls this on an interval; correctness does not
// depend on it since Get never returns expired entries.
func (c *Cache[K, V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ttl <= 0 {
		return 0
	}

	purged := 0
	for _, e := range c.items {
		if c.expired(e) {
			c.removeLocked(e)
			purged++
		}
	}
	if purged > 0 {
		c.expires.Add(uint64(purged))
	}
	return purged
}

// Len returns the current number of entries, including any not yet
// swept expired ones.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all entries from the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*entry[K, V], c.capacity)
	c.order.Init()
}

// Keys returns all keys in the cache (in no particular order).
func (c *Cache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]K, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}
