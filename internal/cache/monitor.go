package cache

import (
	"context"
	"time"
)

// Start launches the background loops: the memory monitor, and the
// preload scheduler when a Loader and an ActiveOrgs source are wired.
// Start is idempotent until Stop is called.
func (c *Cache) Start() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go c.memoryMonitor(ctx)
	if c.cfg.Loader != nil && c.cfg.ActiveOrgs != nil {
		c.wg.Add(1)
		go c.preloadScheduler(ctx)
	}
}

// Stop cancels the background loops and waits for them to exit.
func (c *Cache) Stop() {
	c.runMu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
}

// memoryMonitor samples usage every interval, publishes the gauges, and
// forces a cleanup once usage crosses the hard ceiling.
func (c *Cache) memoryMonitor(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			entries := len(c.entries)
			used := c.usedBytes
			percent := c.memoryPercentLocked(0)
			c.mu.RUnlock()

			c.cfg.Metrics.SetCacheUsage(entries, used)
			if percent > c.cfg.HardLimitPercent {
				c.cfg.Log.Warn().Float64("percent", percent).Float64("ceiling", c.cfg.HardLimitPercent).Msg("memory over hard ceiling")
				c.Cleanup(c.cfg.CleanupTargetPercent)
			}
		}
	}
}

// preloadScheduler re-runs PreloadActive every interval over the orgs the
// activity source reports, independent of cache pressure.
func (c *Cache) preloadScheduler(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.PreloadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			orgs, err := c.cfg.ActiveOrgs(ctx)
			if err != nil {
				c.cfg.Log.Warn().Err(err).Msg("active org lookup failed")
				continue
			}
			resp := c.PreloadActive(ctx, orgs, c.cfg.Loader)
			if resp.Loaded > 0 {
				c.cfg.Log.Info().Int("loaded", resp.Loaded).Int("skipped", resp.Skipped).Msg("preload pass")
			}
		}
	}
}
