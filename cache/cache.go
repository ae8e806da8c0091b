// Package cache implements the Validation Cache: a bounded,
// insertion-ordered mapping from a signature fingerprint to a cached
// validation verdict, owned exclusively by a single node. Eviction is
// oldest-insertion-first, deliberately not LRU — a Get never refreshes a
// key's position, and hit-rate figures in tests depend on this exact policy.
package cache

import "sync"

// Stats is the snapshot returned by ValidationCache.Stats.
type Stats struct {
	Hits       int64
	Misses     int64
	HitRatePct float64
	Size       int
}

// ValidationCache is a single-writer, bounded fingerprint -> verdict cache.
type ValidationCache struct {
	mu       sync.Mutex
	maxSize  int
	verdicts map[string]bool
	order    []string // insertion order, oldest first
	hits     int64
	misses   int64
}

// New builds an empty cache bounded at maxSize entries (default 100).
func New(maxSize int) *ValidationCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &ValidationCache{
		maxSize:  maxSize,
		verdicts: make(map[string]bool, maxSize),
	}
}

// Get looks up fingerprint, recording a hit or miss. It does not affect
// insertion order — recency has no bearing on eviction here.
func (c *ValidationCache) Get(fingerprint string) (verdict bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.verdicts[fingerprint]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// Put inserts fingerprint -> verdict, evicting the oldest insertion if the
// cache is already at capacity. Re-inserting an existing fingerprint does
// not change its position in the eviction order.
func (c *ValidationCache) Put(fingerprint string, verdict bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.verdicts[fingerprint]; exists {
		c.verdicts[fingerprint] = verdict
		return
	}
	if len(c.order) >= c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.verdicts, oldest)
	}
	c.verdicts[fingerprint] = verdict
	c.order = append(c.order, fingerprint)
}

// Stats reports hit/miss counters, hit-rate percent (0 when both are zero),
// and current size.
func (c *ValidationCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	var rate float64
	if total > 0 {
		rate = 100 * float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:       c.hits,
		Misses:     c.misses,
		HitRatePct: rate,
		Size:       len(c.order),
	}
}

// Clear empties the cache and zeroes hit/miss counters, used on detector
// retrain.
func (c *ValidationCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verdicts = make(map[string]bool, c.maxSize)
	c.order = nil
	c.hits = 0
	c.misses = 0
}

// Len returns the current number of entries.
func (c *ValidationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}
