package cache

import "sync"

// Cache is a generic LRU cache with a soft limit.
// When the cache exceeds softLimit, least recently used entries are evicted.
//
// Cache is safe for concurrent use.
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*node[K, V]
	recency   ring[K, V]
	softLimit int
	onEvict   func(K, V)

	hits      uint64
	misses    uint64
	evictions uint64
}

// evicted is a value that left the cache and awaits its callback.
type evicted[K comparable, V any] struct {
	key   K
	value V
}

// New creates a new cache with the given soft limit.
// A softLimit of 0 means unlimited. onEvict may be nil.
func New[K comparable, V any](softLimit int, onEvict func(K, V)) *Cache[K, V] {
	c := &Cache[K, V]{
		entries:   make(map[K]*node[K, V]),
		softLimit: softLimit,
		onEvict:   onEvict,
	}
	c.recency.init()
	return c
}

// Get retrieves a value from the cache and marks it most recently used.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.recency.touch(n)
	return n.value, true
}

// Set stores a value in the cache. A value previously stored under key
// is handed to the eviction callback. If the cache exceeds softLimit
// after insertion, least recently used entries are evicted.
func (c *Cache[K, V]) Set(key K, value V) {
	var out []evicted[K, V]

	c.mu.Lock()
	if n, ok := c.entries[key]; ok {
		out = append(out, evicted[K, V]{key: key, value: n.value})
		n.value = value
		c.recency.touch(n)
	} else {
		n := &node[K, V]{key: key, value: value}
		c.entries[key] = n
		c.recency.pushFront(n)
	}
	out = c.evictOverLimitLocked(out)
	c.mu.Unlock()

	c.notify(out)
}

// Delete removes an entry from the cache, handing its value to the
// eviction callback. Returns true if the entry was found and removed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	n, ok := c.entries[key]
	if ok {
		c.recency.unlink(n)
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if ok {
		c.notify([]evicted[K, V]{{key: key, value: n.value}})
	}
	return ok
}

// Clear removes all entries from the cache, least recently used first.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	out := make([]evicted[K, V], 0, len(c.entries))
	for n := c.recency.back(); n != nil; n = c.recency.back() {
		c.recency.unlink(n)
		out = append(out, evicted[K, V]{key: n.key, value: n.value})
	}
	clear(c.entries)
	c.mu.Unlock()

	c.notify(out)
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the soft limit.
func (c *Cache[K, V]) Capacity() int {
	return c.softLimit
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Len:       len(c.entries),
		Capacity:  c.softLimit,
		Hits:      c.hits,
		Misses:    c.misses,
		HitRate:   hitRate,
		Evictions: c.evictions,
	}
}

// evictOverLimitLocked removes least recently used entries until the
// cache is within its soft limit. Caller must hold c.mu.
func (c *Cache[K, V]) evictOverLimitLocked(out []evicted[K, V]) []evicted[K, V] {
	if c.softLimit <= 0 {
		return out
	}
	for len(c.entries) > c.softLimit {
		n := c.recency.back()
		if n == nil {
			break
		}
		c.recency.unlink(n)
		delete(c.entries, n.key)
		c.evictions++
		out = append(out, evicted[K, V]{key: n.key, value: n.value})
	}
	return out
}

// notify runs the eviction callback. Caller must not hold c.mu.
func (c *Cache[K, V]) notify(out []evicted[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range out {
		c.onEvict(e.key, e.value)
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the soft limit.
	Capacity int
	// Hits is the number of Get calls that found a value.
	Hits uint64
	// Misses is the number of Get calls that found nothing.
	Misses uint64
	// HitRate is the cache hit rate 0.0 to 1.0.
	HitRate float64
	// Evictions is the number of entries evicted by the soft limit.
	Evictions uint64
}
