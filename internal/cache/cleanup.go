package cache

import "time"

// Cleanup evicts entries one at a time, in eviction order, until memory
// usage is at or below targetPercent or the cache is empty. At or below
// the target it is a no-op. Either way the pass is stamped.
func (c *Cache) Cleanup(targetPercent float64) {
	if targetPercent <= 0 {
		targetPercent = c.cfg.CleanupTargetPercent
	}

	c.mu.Lock()
	released := c.cleanupLocked(targetPercent)
	c.mu.Unlock()

	for _, e := range released {
		e.closeSession(c.cfg.Log)
	}
	if len(released) > 0 {
		c.cfg.Log.Info().Int("evicted", len(released)).Float64("target_percent", targetPercent).Msg("cache cleanup")
	}
}

func (c *Cache) cleanupLocked(targetPercent float64) []*entry {
	c.lastCleanupAt = time.Now()
	var released []*entry
	for c.memoryPercentLocked(0) > targetPercent && len(c.entries) > 0 {
		key, victim := c.victimLocked()
		if victim == nil {
			break
		}
		c.evictLocked(key, victim)
		released = append(released, victim)
	}
	return released
}

// victimLocked picks the next entry to evict. Preloaded entries that were
// never accessed go first regardless of recency; after that, plain LRU by
// LastAccessed. Ties break by key so eviction is deterministic.
func (c *Cache) victimLocked() (string, *entry) {
	var bestKey string
	var best *entry
	for key, e := range c.entries {
		if best == nil || evictsBefore(e, key, best, bestKey) {
			bestKey, best = key, e
		}
	}
	return bestKey, best
}

func evictsBefore(a *entry, aKey string, b *entry, bKey string) bool {
	aIdle := a.preloaded && a.accessCount == 0
	bIdle := b.preloaded && b.accessCount == 0
	if aIdle != bIdle {
		return aIdle
	}
	if !a.lastAccessed.Equal(b.lastAccessed) {
		return a.lastAccessed.Before(b.lastAccessed)
	}
	return aKey < bKey
}

// evictLocked removes the entry and counts the eviction. The caller closes
// the session after releasing the lock.
func (c *Cache) evictLocked(key string, e *entry) {
	delete(c.entries, key)
	c.usedBytes -= e.memoryBytes
	if c.usedBytes < 0 {
		c.usedBytes = 0
	}
	c.evictions++
	c.cfg.Metrics.ObserveEviction()
}

// removeLocked removes the entry without counting it as an eviction.
func (c *Cache) removeLocked(key string, e *entry) {
	delete(c.entries, key)
	c.usedBytes -= e.memoryBytes
	if c.usedBytes < 0 {
		c.usedBytes = 0
	}
}
