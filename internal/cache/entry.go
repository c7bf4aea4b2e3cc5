package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/runtime"
	"predictd/pkg/types"
)

// CachedModel is a ready-to-serve model: its session plus the
// configuration and metadata it was loaded with. The session is owned by
// the cache entry holding it and is closed when that entry goes away.
type CachedModel struct {
	OrganizationID string
	Config         types.ModelConfig
	Metadata       types.ModelMetadata
	Session        runtime.Session
}

// Version returns the model version the entry serves.
func (m CachedModel) Version() string { return m.Config.Version }

// Loader produces ready-to-serve models for the cache. Implementations
// must not touch cache state; insertion is the caller's job.
type Loader interface {
	Load(ctx context.Context, orgID, requestingUser string) (CachedModel, error)
}

// Memory estimate terms. The estimate is deliberately coarse: a fixed base
// per session, a per-feature term, and a capped contribution from the
// training-data volume.
const (
	baseModelBytes         = int64(10) << 20  // per-session fixed cost
	perFeatureBytes        = int64(256) << 10 // per input feature
	perDataPointBytes      = int64(128)       // training-volume term
	trainingVolumeCapBytes = int64(64) << 20  // cap on that term
)

func estimateMemoryBytes(m CachedModel) int64 {
	b := baseModelBytes + int64(len(m.Config.FeatureNames))*perFeatureBytes
	vol := int64(m.Metadata.DataPoints) * perDataPointBytes
	if vol > trainingVolumeCapBytes {
		vol = trainingVolumeCapBytes
	}
	if vol > 0 {
		b += vol
	}
	return b
}

// entry wraps a CachedModel with the bookkeeping the cache mutates on
// every lookup. All fields are guarded by the cache mutex.
type entry struct {
	model        CachedModel
	memoryBytes  int64
	loadedAt     time.Time
	lastAccessed time.Time
	accessCount  int64
	preloaded    bool
}

func (e *entry) closeSession(log zerolog.Logger) {
	if e.model.Session == nil {
		return
	}
	if err := e.model.Session.Close(); err != nil {
		log.Warn().Err(err).Str("org_id", e.model.OrganizationID).Msg("session close failed")
	}
}
