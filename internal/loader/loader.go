// Package loader resolves an organization's model configuration, fetches
// the artifact from blob storage, and opens it into a ready-to-serve
// session. Integrity failures from the store pass through untouched; every
// other failure mode is wrapped in the package's error taxonomy.
//
// Legacy unencrypted artifacts need no special handling here: when sealing
// is enabled, store.SealedStore serves blobs without the sealed magic
// prefix as plaintext, so one Fetch covers both formats.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"predictd/internal/audit"
	"predictd/internal/cache"
	"predictd/internal/metrics"
	"predictd/internal/persist"
	"predictd/internal/runtime"
	"predictd/internal/store"
	"predictd/pkg/types"
)

// Metadata defaults applied when the training pipeline has not recorded
// scores for a model version.
const (
	defaultAccuracy  = 0.8
	defaultPrecision = 0.75
	defaultRecall    = 0.75
	defaultAUC       = 0.8
)

const (
	defaultConfigTTL       = 5 * time.Minute
	defaultConfigCacheSize = 256
)

// Config wires the loader's collaborators.
type Config struct {
	Store   store.Store
	DB      *persist.Store
	Runtime runtime.Runtime

	// ConfigTTL bounds how long a resolved ModelConfig is reused before
	// persistence is consulted again; ConfigCacheSize bounds how many
	// organizations' configs are held at once.
	ConfigTTL       time.Duration
	ConfigCacheSize int

	Audit   audit.Sink
	Metrics metrics.Sink
	Log     zerolog.Logger
}

// ModelLoader implements cache.Loader. It never touches cache state;
// inserting the returned model is the caller's job.
type ModelLoader struct {
	cfg     Config
	configs *expirable.LRU[string, types.ModelConfig]
}

// New constructs a ModelLoader, applying defaults for unset fields.
func New(cfg Config) *ModelLoader {
	if cfg.ConfigTTL <= 0 {
		cfg.ConfigTTL = defaultConfigTTL
	}
	if cfg.ConfigCacheSize <= 0 {
		cfg.ConfigCacheSize = defaultConfigCacheSize
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NewNoopSink()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopSink()
	}
	return &ModelLoader{
		cfg:     cfg,
		configs: expirable.NewLRU[string, types.ModelConfig](cfg.ConfigCacheSize, nil, cfg.ConfigTTL),
	}
}

// Load produces a ready-to-serve model for orgID. Every attempt, success
// or failure, emits exactly one audit record and one load-latency sample.
func (l *ModelLoader) Load(ctx context.Context, orgID, requestingUser string) (cache.CachedModel, error) {
	start := time.Now()
	model, err := l.load(ctx, orgID)
	elapsed := time.Since(start)
	l.cfg.Metrics.ObserveModelLoad(elapsed, err)

	rec := audit.Record{
		OrgID:          orgID,
		Action:         audit.ActionModelLoad,
		RequestingUser: requestingUser,
		Duration:       elapsed,
	}
	if err != nil {
		rec.Outcome = audit.OutcomeFailure
		rec.Detail = err.Error()
		l.cfg.Audit.Record(rec)
		l.cfg.Log.Warn().Err(err).Str("org_id", orgID).Msg("model load failed")
		return cache.CachedModel{}, err
	}
	rec.Outcome = audit.OutcomeSuccess
	rec.Detail = "version " + model.Version()
	l.cfg.Audit.Record(rec)
	l.cfg.Log.Info().Str("org_id", orgID).Str("version", model.Version()).Dur("elapsed", elapsed).Msg("model loaded")
	return model, nil
}

func (l *ModelLoader) load(ctx context.Context, orgID string) (cache.CachedModel, error) {
	cfg, err := l.modelConfig(ctx, orgID)
	if err != nil {
		return cache.CachedModel{}, err
	}

	raw, err := l.cfg.Store.Fetch(ctx, cfg.ModelPath)
	if err != nil {
		if store.IsIntegrity(err) {
			return cache.CachedModel{}, err
		}
		return cache.CachedModel{}, ErrModelUnavailable(orgID, err)
	}

	sess, err := l.cfg.Runtime.Open(raw)
	if err != nil {
		return cache.CachedModel{}, ErrModelCorrupt(orgID, err.Error())
	}
	if want := len(cfg.FeatureNames); sess.FeatureCount() != want {
		sess.Close()
		return cache.CachedModel{}, ErrModelCorrupt(orgID,
			fmt.Sprintf("artifact expects %d features, config names %d", sess.FeatureCount(), want))
	}

	return cache.CachedModel{
		OrganizationID: orgID,
		Config:         cfg,
		Metadata:       l.metadata(ctx, cfg),
		Session:        sess,
	}, nil
}

// modelConfig resolves through the TTL cache first so steady-state loads
// do not touch persistence.
func (l *ModelLoader) modelConfig(ctx context.Context, orgID string) (types.ModelConfig, error) {
	if cfg, ok := l.configs.Get(orgID); ok {
		return cfg, nil
	}
	cfg, ok, err := l.cfg.DB.GetModelConfig(ctx, orgID)
	if err != nil {
		return types.ModelConfig{}, fmt.Errorf("read model config: %w", err)
	}
	if !ok {
		return types.ModelConfig{}, ErrConfigNotFound(orgID)
	}
	l.configs.Add(orgID, cfg)
	return cfg, nil
}

// InvalidateConfig drops the cached configuration so the next load sees
// fresh persistence state. Hot-swap goes through here before reloading.
func (l *ModelLoader) InvalidateConfig(orgID string) {
	l.configs.Remove(orgID)
}

// metadata merges recorded training metrics over the defaults. A metrics
// lookup failure is not a load failure.
func (l *ModelLoader) metadata(ctx context.Context, cfg types.ModelConfig) types.ModelMetadata {
	md := types.ModelMetadata{
		Accuracy:  defaultAccuracy,
		Precision: defaultPrecision,
		Recall:    defaultRecall,
		AUC:       defaultAUC,
		CreatedAt: time.Now(),
	}
	rec, ok, err := l.cfg.DB.GetModelMetrics(ctx, cfg.OrganizationID, cfg.Version)
	if err != nil {
		l.cfg.Log.Warn().Err(err).Str("org_id", cfg.OrganizationID).Msg("metrics lookup failed, using defaults")
		return md
	}
	if !ok {
		return md
	}
	if rec.Accuracy != nil {
		md.Accuracy = *rec.Accuracy
	}
	if rec.Precision != nil {
		md.Precision = *rec.Precision
	}
	if rec.Recall != nil {
		md.Recall = *rec.Recall
	}
	if rec.AUC != nil {
		md.AUC = *rec.AUC
	}
	md.TrainingTime = time.Duration(rec.TrainingSeconds * float64(time.Second))
	md.DataPoints = rec.DataPoints
	if !rec.CreatedAt.IsZero() {
		md.CreatedAt = rec.CreatedAt
	}
	return md
}
