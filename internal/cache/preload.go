package cache

import (
	"context"

	"predictd/pkg/types"
)

// PreloadActive warms the cache for organizations with recent activity.
// Already-cached orgs are skipped, the batch is capped to a fraction of
// total capacity so organic traffic always has room, and the pass stops
// once memory usage sits past the cleanup threshold. A failed load for one
// org never aborts the rest.
func (c *Cache) PreloadActive(ctx context.Context, orgIDs []string, loader Loader) types.PreloadResponse {
	resp := types.PreloadResponse{Requested: len(orgIDs)}
	if loader == nil {
		resp.Skipped = len(orgIDs)
		return resp
	}
	batchCap := int(float64(c.cfg.MaxEntries) * c.cfg.PreloadCapFraction)
	if batchCap < 1 {
		batchCap = 1
	}

	for i, orgID := range orgIDs {
		if ctx.Err() != nil {
			resp.Skipped += len(orgIDs) - i
			break
		}
		c.mu.RLock()
		overThreshold := c.memoryPercentLocked(0) > c.cfg.CleanupThresholdPercent
		c.mu.RUnlock()
		if overThreshold {
			resp.Skipped += len(orgIDs) - i
			c.cfg.Log.Debug().Int("remaining", len(orgIDs)-i).Msg("preload stopped at memory threshold")
			break
		}
		if resp.Loaded >= batchCap {
			resp.Skipped += len(orgIDs) - i
			break
		}
		if c.Contains(orgID) {
			resp.Skipped++
			continue
		}

		model, err := loader.Load(ctx, orgID, "")
		if err != nil {
			resp.Skipped++
			c.cfg.Log.Warn().Err(err).Str("org_id", orgID).Msg("preload failed")
			continue
		}
		c.Put(orgID, model, true)
		resp.Loaded++
	}
	return resp
}
