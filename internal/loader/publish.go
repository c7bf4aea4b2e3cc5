package loader

import (
	"context"
	"fmt"
	"time"

	"predictd/internal/audit"
	"predictd/internal/persist"
	"predictd/pkg/types"
)

// Publish writes a new model version: the artifact goes to blob storage
// first, then the configuration row flips to point at it, so a concurrent
// load never resolves a config whose artifact is missing. Training metrics
// are optional. The cached config is invalidated so the next load (or a
// hot-swap) picks up the new version.
func (l *ModelLoader) Publish(ctx context.Context, cfg types.ModelConfig, artifact []byte, trained *persist.MetricsRecord, requestingUser string) error {
	start := time.Now()
	err := l.publish(ctx, cfg, artifact, trained)

	rec := audit.Record{
		OrgID:          cfg.OrganizationID,
		Action:         audit.ActionModelPublish,
		RequestingUser: requestingUser,
		Duration:       time.Since(start),
	}
	if err != nil {
		rec.Outcome = audit.OutcomeFailure
		rec.Detail = err.Error()
		l.cfg.Audit.Record(rec)
		return err
	}
	rec.Outcome = audit.OutcomeSuccess
	rec.Detail = "version " + cfg.Version
	l.cfg.Audit.Record(rec)
	l.cfg.Log.Info().Str("org_id", cfg.OrganizationID).Str("version", cfg.Version).Msg("model published")
	return nil
}

func (l *ModelLoader) publish(ctx context.Context, cfg types.ModelConfig, artifact []byte, trained *persist.MetricsRecord) error {
	// Validate the artifact before anything durable changes.
	sess, err := l.cfg.Runtime.Open(artifact)
	if err != nil {
		return ErrModelCorrupt(cfg.OrganizationID, err.Error())
	}
	width := sess.FeatureCount()
	_ = sess.Close()
	if want := len(cfg.FeatureNames); width != want {
		return ErrModelCorrupt(cfg.OrganizationID,
			fmt.Sprintf("artifact expects %d features, config names %d", width, want))
	}

	if err := l.cfg.Store.Put(ctx, cfg.ModelPath, artifact); err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}
	if err := l.cfg.DB.UpsertModelConfig(ctx, cfg); err != nil {
		return fmt.Errorf("upsert model config: %w", err)
	}
	if trained != nil {
		trained.OrgID = cfg.OrganizationID
		trained.Version = cfg.Version
		if err := l.cfg.DB.UpsertModelMetrics(ctx, *trained); err != nil {
			return fmt.Errorf("upsert model metrics: %w", err)
		}
	}
	l.InvalidateConfig(cfg.OrganizationID)
	return nil
}
