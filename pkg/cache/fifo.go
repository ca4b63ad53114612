package cache

import (
	"container/list"
	"sync"
	"time"
)

type fifoEntry[K comparable, V any] struct {
	key       K
	value     V
	createdAt time.Time
	ttl       time.Duration
}

func (e *fifoEntry[K, V]) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.createdAt) > e.ttl
}

// Stats is a snapshot of cache occupancy.
type Stats struct {
	Size    int
	MaxSize int
}

// FIFOCache is a thread-safe bounded cache with per-entry TTL.
// When the cache reaches its capacity, the entry inserted earliest is
// evicted. Eviction is strictly insertion-ordered; reads do not refresh
// an entry's position. TTL is the primary eviction mechanism, capacity
// eviction is a safety valve.
type FIFOCache[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List
	mu       sync.Mutex
	now      func() time.Time // overridable for tests
}

// NewFIFOCache creates a new FIFO cache with the specified capacity.
// The capacity must be positive, otherwise it panics.
func NewFIFOCache[K comparable, V any](capacity int) *FIFOCache[K, V] {
	if capacity <= 0 {
		panic("FIFO cache capacity must be positive")
	}
	return &FIFOCache[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get retrieves a value from the cache. Entries past their TTL are
// treated as absent and removed as a side effect of being observed
// expired. Returns the value and true if found and fresh.
func (c *FIFOCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}

	entry := elem.Value.(*fifoEntry[K, V])
	if entry.expired(c.now()) {
		c.removeElement(elem)
		return zero, false
	}
	return entry.value, true
}

// Set inserts or overwrites a value with the given TTL. A ttl of zero
// means the entry never expires by time. If the cache is at capacity
// and the key is new, the insertion-oldest resident entry is evicted.
// Overwriting an existing key resets its insertion position.
func (c *FIFOCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}

	entry := &fifoEntry[K, V]{key: key, value: value, createdAt: c.now(), ttl: ttl}
	c.items[key] = c.order.PushFront(entry)
}

// Delete removes an entry, reporting whether it was resident.
func (c *FIFOCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	return true
}

// Has reports whether a fresh entry exists for key. It shares Get's
// expiry semantics, including opportunistic removal.
func (c *FIFOCache[K, V]) Has(key K) bool {
	_, ok := c.Get(key)
	return ok
}

// Keys returns all resident keys, including entries that have expired
// but have not been pruned yet. Order is insertion order, oldest first.
func (c *FIFOCache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.order.Len())
	for elem := c.order.Back(); elem != nil; elem = elem.Prev() {
		keys = append(keys, elem.Value.(*fifoEntry[K, V]).key)
	}
	return keys
}

// Prune removes all expired entries and returns how many were removed.
func (c *FIFOCache[K, V]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*fifoEntry[K, V]).expired(now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

// Len returns the number of resident entries, expired or not.
func (c *FIFOCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes all entries.
func (c *FIFOCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element)
	c.order.Init()
}

// Stats returns current occupancy and the configured capacity.
func (c *FIFOCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: c.order.Len(), MaxSize: c.capacity}
}

// Must be called with lock held.
func (c *FIFOCache[K, V]) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*fifoEntry[K, V]).key)
}
