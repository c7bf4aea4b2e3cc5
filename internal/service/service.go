// Package service composes the cache, loader, engine and health monitor
// into the operational surface the HTTP layer exposes.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/audit"
	"predictd/internal/cache"
	"predictd/internal/engine"
	"predictd/internal/health"
	"predictd/internal/persist"
	"predictd/pkg/types"
)

const (
	defaultActiveWindow   = 24 * time.Hour
	defaultActiveOrgLimit = 100
)

// ModelLoader is the loader surface the service needs: producing models
// and dropping stale cached configuration before a hot-swap reload.
type ModelLoader interface {
	cache.Loader
	InvalidateConfig(orgID string)
}

// Config wires the service's collaborators.
type Config struct {
	Cache  *cache.Cache
	Loader ModelLoader
	Engine *engine.Engine
	Health *health.Monitor
	DB     *persist.Store

	// ActiveWindow bounds how far back org activity counts as recent for
	// a preload pass; ActiveOrgLimit caps the candidate list.
	ActiveWindow   time.Duration
	ActiveOrgLimit int

	Audit audit.Sink
	Log   zerolog.Logger
}

// Service implements the operational contract consumed by the HTTP layer.
type Service struct {
	cfg Config
}

// New constructs a Service, applying defaults for unset fields.
func New(cfg Config) *Service {
	if cfg.ActiveWindow <= 0 {
		cfg.ActiveWindow = defaultActiveWindow
	}
	if cfg.ActiveOrgLimit <= 0 {
		cfg.ActiveOrgLimit = defaultActiveOrgLimit
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NewNoopSink()
	}
	return &Service{cfg: cfg}
}

// Predict serves one prediction. It never returns an error; failures
// degrade to the engine's fallback result.
func (s *Service) Predict(ctx context.Context, req types.PredictRequest) types.PredictionResult {
	return s.cfg.Engine.Predict(ctx, req)
}

// CacheStats snapshots the model cache.
func (s *Service) CacheStats() types.CacheStatistics {
	return s.cfg.Cache.Stats()
}

// ForceCleanup evicts down to targetPercent and reports the state after
// the pass. A non-positive target falls back to the configured one.
func (s *Service) ForceCleanup(targetPercent float64) types.CacheStatistics {
	s.cfg.Cache.Cleanup(targetPercent)
	return s.cfg.Cache.Stats()
}

// Preload warms the cache for recently active organizations.
func (s *Service) Preload(ctx context.Context) (types.PreloadResponse, error) {
	since := time.Now().Add(-s.cfg.ActiveWindow)
	orgs, err := s.cfg.DB.RecentlyActiveOrgs(ctx, since, s.cfg.ActiveOrgLimit)
	if err != nil {
		return types.PreloadResponse{}, err
	}
	return s.cfg.Cache.PreloadActive(ctx, orgs, s.cfg.Loader), nil
}

// Swap reloads the organization's model from fresh configuration and
// replaces it in place, keeping the entry's warm-cache statistics. A
// non-empty requested version must match what the configuration resolves
// to, so a deployment racing a reconfiguration fails loudly instead of
// silently serving the wrong weights.
func (s *Service) Swap(ctx context.Context, orgID string, req types.SwapRequest) (string, error) {
	s.cfg.Loader.InvalidateConfig(orgID)
	model, err := s.cfg.Loader.Load(ctx, orgID, req.RequestingUser)
	if err != nil {
		s.auditSwap(orgID, req.RequestingUser, audit.OutcomeFailure, err.Error())
		return "", err
	}
	if req.Version != "" && model.Version() != req.Version {
		if model.Session != nil {
			_ = model.Session.Close()
		}
		err := ErrVersionMismatch(orgID, req.Version, model.Version())
		s.auditSwap(orgID, req.RequestingUser, audit.OutcomeFailure, err.Error())
		return "", err
	}

	s.cfg.Cache.HotSwap(orgID, model)
	s.auditSwap(orgID, req.RequestingUser, audit.OutcomeSuccess, "version "+model.Version())
	return model.Version(), nil
}

func (s *Service) auditSwap(orgID, user, outcome, detail string) {
	s.cfg.Audit.Record(audit.Record{
		OrgID:          orgID,
		Action:         audit.ActionModelSwap,
		Outcome:        outcome,
		Detail:         detail,
		RequestingUser: user,
	})
}

// Remove evicts the organization's model from the cache, reporting whether
// one was resident. The next prediction forces a fresh load.
func (s *Service) Remove(orgID, requestingUser string) bool {
	existed := s.cfg.Cache.Remove(orgID)
	if existed {
		s.cfg.Audit.Record(audit.Record{
			OrgID:          orgID,
			Action:         audit.ActionModelRemove,
			Outcome:        audit.OutcomeSuccess,
			Detail:         "removed by operator",
			RequestingUser: requestingUser,
		})
	}
	return existed
}

// ModelHealth probes the organization's cached model.
func (s *Service) ModelHealth(ctx context.Context, orgID string) types.ModelHealthResponse {
	healthy, cached := s.cfg.Health.Probe(ctx, orgID)
	return types.ModelHealthResponse{
		OrganizationID: orgID,
		Cached:         cached,
		Healthy:        healthy,
	}
}

// Ready reports whether the system of record is reachable.
func (s *Service) Ready() bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cfg.DB.Ping(ctx); err != nil {
		s.cfg.Log.Warn().Err(err).Msg("readiness probe failed")
		return false
	}
	return true
}
