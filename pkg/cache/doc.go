// Package cache provides a generic, thread-safe bounded cache with
// per-entry TTL and insertion-order (FIFO) eviction.
//
// Expiry is lazy: entries past their TTL are treated as absent by Get
// and Has and removed when observed, or in bulk via Prune. There is no
// background sweeper. When the cache is full, inserting a new key
// evicts the entry that was inserted earliest.
//
// The eviction policy is deliberately FIFO rather than LRU: TTL is the
// primary control and capacity eviction is a safety valve, so access
// recency is not tracked.
//
//	c := cache.NewFIFOCache[string, *User](1000)
//	c.Set("user::id::42", u, 5*time.Minute)
//	if u, ok := c.Get("user::id::42"); ok {
//		// fresh hit
//	}
package cache
