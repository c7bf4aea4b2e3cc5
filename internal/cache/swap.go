package cache

import "time"

// Remove deletes the entry and closes its session, reporting whether one
// existed. Explicit removal is not an eviction; the eviction counter does
// not move.
func (c *Cache) Remove(orgID string) bool {
	c.mu.Lock()
	e, ok := c.entries[orgID]
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.removeLocked(orgID, e)
	c.mu.Unlock()

	e.closeSession(c.cfg.Log)
	return true
}

// HotSwap replaces the model behind orgID while preserving the entry's
// LastAccessed, AccessCount and Preloaded flag, so a rolling deployment
// does not reset warm-cache statistics. At no point does the key map to
// nothing, and the outgoing session is closed only after the new model is
// in place. Swapping an absent key inserts a fresh entry with default
// statistics; that insertion obeys the same capacity eviction and
// memory-ceiling checks as Put. In-place replacement performs no sweep of
// its own; the background monitor and the next insertion absorb the drift.
func (c *Cache) HotSwap(orgID string, model CachedModel) {
	model.OrganizationID = orgID
	size := estimateMemoryBytes(model)
	now := time.Now()

	var released []*entry

	c.mu.Lock()
	e := &entry{
		model:        model,
		memoryBytes:  size,
		loadedAt:     now,
		lastAccessed: now,
	}
	old, ok := c.entries[orgID]
	if ok {
		e.lastAccessed = old.lastAccessed
		e.accessCount = old.accessCount
		e.preloaded = old.preloaded
		c.usedBytes -= old.memoryBytes
		released = append(released, old)
	} else {
		if len(c.entries) >= c.cfg.MaxEntries {
			if key, victim := c.victimLocked(); victim != nil {
				c.evictLocked(key, victim)
				released = append(released, victim)
			}
		}
		if c.memoryPercentLocked(size) > c.cfg.CleanupThresholdPercent {
			released = append(released, c.cleanupLocked(c.cfg.CleanupTargetPercent)...)
		}
	}
	c.entries[orgID] = e
	c.usedBytes += size
	if !ok && c.memoryPercentLocked(0) > c.cfg.CleanupThresholdPercent {
		released = append(released, c.cleanupLocked(c.cfg.CleanupTargetPercent)...)
	}
	c.mu.Unlock()

	for _, r := range released {
		r.closeSession(c.cfg.Log)
	}
	c.cfg.Log.Info().Str("org_id", orgID).Str("version", model.Version()).Bool("existed", ok).Msg("model hot-swapped")
}
