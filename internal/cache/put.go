package cache

import "time"

// Put inserts or replaces the entry for orgID. The footprint is estimated
// up front; inserting a new key at capacity evicts exactly one victim, and
// an insertion that would cross the cleanup threshold runs a cleanup to
// the configured target before it lands. Replacement resets the access
// statistics (HotSwap is the operation that preserves them).
func (c *Cache) Put(orgID string, model CachedModel, preloaded bool) {
	model.OrganizationID = orgID
	size := estimateMemoryBytes(model)
	now := time.Now()

	var released []*entry

	c.mu.Lock()
	_, exists := c.entries[orgID]
	if !exists && len(c.entries) >= c.cfg.MaxEntries {
		if key, victim := c.victimLocked(); victim != nil {
			c.evictLocked(key, victim)
			released = append(released, victim)
		}
	}
	if c.memoryPercentLocked(size) > c.cfg.CleanupThresholdPercent {
		released = append(released, c.cleanupLocked(c.cfg.CleanupTargetPercent)...)
	}

	if old, ok := c.entries[orgID]; ok {
		c.usedBytes -= old.memoryBytes
		released = append(released, old)
	}
	e := &entry{
		model:        model,
		memoryBytes:  size,
		loadedAt:     now,
		lastAccessed: now,
		preloaded:    preloaded,
	}
	if !preloaded {
		e.accessCount = 1
	}
	c.entries[orgID] = e
	c.usedBytes += size

	// The ceiling is re-checked with the entry resident; an oversized
	// insert may be cleaned straight back out.
	if c.memoryPercentLocked(0) > c.cfg.CleanupThresholdPercent {
		released = append(released, c.cleanupLocked(c.cfg.CleanupTargetPercent)...)
	}
	c.mu.Unlock()

	for _, e := range released {
		e.closeSession(c.cfg.Log)
	}
}
