package cache

import "time"

// Get is the counting lookup used by the prediction path. A hit advances
// LastAccessed, the access count, and the hit counter; a miss only counts.
// Loading on miss is the caller's responsibility.
func (c *Cache) Get(orgID string) (CachedModel, bool) {
	now := time.Now()

	c.mu.Lock()
	e, ok := c.entries[orgID]
	if !ok {
		c.misses++
		c.mu.Unlock()
		c.cfg.Metrics.ObserveCacheLookup(false)
		return CachedModel{}, false
	}
	e.lastAccessed = now
	e.accessCount++
	e.model.Metadata.LastUsedAt = now
	e.model.Metadata.UsageCount++
	c.hits++
	model := e.model
	c.mu.Unlock()

	c.cfg.Metrics.ObserveCacheLookup(true)
	return model, true
}

// Peek returns the entry without counting it as traffic. Health probes and
// read-only surfaces use it so they cannot promote an idle entry out of
// eviction candidacy.
func (c *Cache) Peek(orgID string) (CachedModel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[orgID]
	if !ok {
		return CachedModel{}, false
	}
	return e.model, true
}
