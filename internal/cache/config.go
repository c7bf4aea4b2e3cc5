package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/metrics"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxEntries              = 50
	defaultMaxMemoryBytes          = int64(1) << 30
	defaultCleanupThresholdPercent = 80.0
	defaultCleanupTargetPercent    = 70.0
	defaultHardLimitPercent        = 90.0
	defaultMonitorInterval         = 30 * time.Second
	defaultPreloadInterval         = 5 * time.Minute
	defaultPreloadCapFraction      = 0.7
)

// ActiveOrgsFunc supplies organizations with recent telemetry activity,
// busiest first. The preload scheduler calls it every interval.
type ActiveOrgsFunc func(ctx context.Context) ([]string, error)

// Config encapsulates all tunables for Cache construction.
type Config struct {
	MaxEntries     int
	MaxMemoryBytes int64
	// CleanupThresholdPercent triggers a cleanup before an insertion would
	// cross it; CleanupTargetPercent is where that cleanup stops.
	CleanupThresholdPercent float64
	CleanupTargetPercent    float64
	// HardLimitPercent is the ceiling the background monitor reacts to.
	HardLimitPercent   float64
	MonitorInterval    time.Duration
	PreloadInterval    time.Duration
	PreloadCapFraction float64

	// Loader and ActiveOrgs feed the preload scheduler; with either unset
	// the scheduler idles.
	Loader     Loader
	ActiveOrgs ActiveOrgsFunc

	Metrics metrics.Sink
	Log     zerolog.Logger
}

// New constructs a Cache from Config, applying defaults for unset fields.
func New(cfg Config) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.MaxMemoryBytes <= 0 {
		cfg.MaxMemoryBytes = defaultMaxMemoryBytes
	}
	if cfg.CleanupThresholdPercent <= 0 {
		cfg.CleanupThresholdPercent = defaultCleanupThresholdPercent
	}
	if cfg.CleanupTargetPercent <= 0 {
		cfg.CleanupTargetPercent = defaultCleanupTargetPercent
	}
	if cfg.HardLimitPercent <= 0 {
		cfg.HardLimitPercent = defaultHardLimitPercent
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = defaultMonitorInterval
	}
	if cfg.PreloadInterval <= 0 {
		cfg.PreloadInterval = defaultPreloadInterval
	}
	if cfg.PreloadCapFraction <= 0 || cfg.PreloadCapFraction > 1 {
		cfg.PreloadCapFraction = defaultPreloadCapFraction
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopSink()
	}
	return &Cache{
		cfg:     cfg,
		entries: make(map[string]*entry),
	}
}
