package cache

import (
	"sort"

	"predictd/pkg/types"
)

// Stats returns a point-in-time snapshot. ActiveEntries counts entries
// that are either organic or preloaded-and-since-accessed, separating
// warmed models from merely prefetched ones.
func (c *Cache) Stats() types.CacheStatistics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := types.CacheStatistics{
		TotalEntries:       len(c.entries),
		MemoryUsedBytes:    c.usedBytes,
		MemoryTotalBytes:   c.cfg.MaxMemoryBytes,
		MemoryPercent:      c.memoryPercentLocked(0),
		EvictionCount:      c.evictions,
		KnownOrganizations: make([]string, 0, len(c.entries)),
		LastCleanupAt:      c.lastCleanupAt,
	}
	for org, e := range c.entries {
		if !e.preloaded || e.accessCount >= 1 {
			stats.ActiveEntries++
		}
		stats.KnownOrganizations = append(stats.KnownOrganizations, org)
	}
	sort.Strings(stats.KnownOrganizations)

	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total) * 100
		stats.MissRate = 100 - stats.HitRate
	}
	return stats
}
