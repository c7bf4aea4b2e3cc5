// Package cache provides the bounded in-memory model table that serves
// per-organization prediction models. It is structured into small files by
// concern:
//
//   - cache.go: core Cache type, constructor, simple getters.
//   - config.go: Config and package defaults; New applies defaults.
//   - entry.go: CachedModel, the internal entry wrapper, memory estimation.
//   - lookup.go: Get (counting lookup) and Peek (non-counting).
//   - put.go: Put with capacity eviction and threshold-driven cleanup.
//   - swap.go: Remove and HotSwap.
//   - cleanup.go: Cleanup and the eviction ordering.
//   - preload.go: PreloadActive batch warming.
//   - stats.go: Stats snapshot.
//   - monitor.go: background memory monitor and preload scheduler.
//
// The table is the only shared mutable state; one RWMutex guards it and
// every mutation is applied atomically under it. Model loading and
// inference always run outside the lock. Two concurrent misses for the
// same organization may both load; the last Put wins.
package cache
