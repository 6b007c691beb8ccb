// Package cache provides a generic LRU cache with an eviction callback.
//
// The callback runs for every value that leaves the cache (eviction,
// replacement, Delete, Clear), outside the cache lock, so it may safely
// call back into code that uses the cache.
//
//	c := cache.New[string, *Resource](64, func(_ string, r *Resource) {
//	    r.Release()
//	})
//	c.Set("key", res)
//	value, ok := c.Get("key")
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
