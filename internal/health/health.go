// Package health probes cached models and evicts the ones that can no
// longer produce output, so the next prediction forces a fresh load.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/audit"
	"predictd/internal/cache"
)

const (
	defaultInterval     = time.Minute
	defaultProbeTimeout = 2 * time.Second

	// Recorded as the acting identity when the sweep evicts a model.
	sweepIdentity = "system:health-monitor"
)

// Config wires the monitor's collaborators.
type Config struct {
	Cache *cache.Cache

	// Interval between sweeps; ProbeTimeout bounds one probe inference.
	Interval     time.Duration
	ProbeTimeout time.Duration

	Audit audit.Sink
	Log   zerolog.Logger
}

// Monitor owns the periodic health sweep.
type Monitor struct {
	cfg Config

	runMu  sync.Mutex
	cancel func()
	wg     sync.WaitGroup
}

// New constructs a Monitor, applying defaults for unset fields.
func New(cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NewNoopSink()
	}
	return &Monitor{cfg: cfg}
}

// Probe runs one inference over an all-zero vector sized to the model's
// expected width. The model is healthy iff the session returns at least
// one named output without error. The lookup does not touch access
// statistics, so probing cannot promote an idle entry out of eviction
// candidacy.
func (m *Monitor) Probe(ctx context.Context, orgID string) (healthy, cached bool) {
	model, ok := m.cfg.Cache.Peek(orgID)
	if !ok {
		return false, false
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	vector := make([]float64, model.Session.FeatureCount())
	outputs, err := model.Session.Infer(ctx, vector)
	if err != nil {
		m.cfg.Log.Warn().Err(err).Str("org_id", orgID).Msg("health probe errored")
		return false, true
	}
	for _, vals := range outputs {
		if len(vals) > 0 {
			return true, true
		}
	}
	return false, true
}

// Start launches the periodic sweep. Idempotent until Stop is called.
func (m *Monitor) Start() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.run(ctx)
}

// Stop cancels the sweep and waits for it to exit.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep probes every cached organization and removes the unhealthy ones.
// One bad model never stops the rest of the pass.
func (m *Monitor) Sweep(ctx context.Context) {
	for _, orgID := range m.cfg.Cache.Organizations() {
		if ctx.Err() != nil {
			return
		}
		healthy, cached := m.Probe(ctx, orgID)
		if !cached || healthy {
			continue
		}
		m.cfg.Cache.Remove(orgID)
		m.cfg.Log.Warn().Str("org_id", orgID).Msg("unhealthy model evicted")
		m.cfg.Audit.Record(audit.Record{
			OrgID:          orgID,
			Action:         audit.ActionModelRemove,
			Outcome:        audit.OutcomeSuccess,
			Detail:         "health probe failed",
			RequestingUser: sweepIdentity,
		})
	}
}
