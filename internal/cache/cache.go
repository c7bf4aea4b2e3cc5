package cache

import (
	"sync"
	"time"
)

// Cache is the bounded per-organization model table.
type Cache struct {
	cfg Config

	mu            sync.RWMutex
	entries       map[string]*entry
	usedBytes     int64
	hits          int64
	misses        int64
	evictions     int64
	lastCleanupAt time.Time

	runMu  sync.Mutex
	cancel func()
	wg     sync.WaitGroup
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Contains reports whether an entry exists without touching access
// statistics.
func (c *Cache) Contains(orgID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[orgID]
	return ok
}

// Organizations lists the cached organization keys in no particular order.
func (c *Cache) Organizations() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for org := range c.entries {
		out = append(out, org)
	}
	return out
}

// MemoryUsedBytes reports the summed entry estimates.
func (c *Cache) MemoryUsedBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.usedBytes
}

// memoryPercentLocked computes usage against the configured budget.
// extra accounts for an entry about to be inserted.
func (c *Cache) memoryPercentLocked(extra int64) float64 {
	return float64(c.usedBytes+extra) / float64(c.cfg.MaxMemoryBytes) * 100
}

// Close stops the background loops and releases every session.
func (c *Cache) Close() {
	c.Stop()

	c.mu.Lock()
	victims := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		victims = append(victims, e)
	}
	c.entries = make(map[string]*entry)
	c.usedBytes = 0
	c.mu.Unlock()

	for _, e := range victims {
		e.closeSession(c.cfg.Log)
	}
}
