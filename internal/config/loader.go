package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Values resolve in three layers: built-in defaults, then an optional
// config file, then PREDICTD_* environment variables.
type Config struct {
	Addr     string        `json:"addr" yaml:"addr" toml:"addr" envconfig:"ADDR"`
	LogLevel string        `json:"log_level" yaml:"log_level" toml:"log_level" envconfig:"LOG_LEVEL"`
	DBPath   string        `json:"db_path" yaml:"db_path" toml:"db_path" envconfig:"DB_PATH"`
	Storage  StorageConfig `json:"storage" yaml:"storage" toml:"storage" envconfig:"STORAGE"`
	Cache    CacheConfig   `json:"cache" yaml:"cache" toml:"cache" envconfig:"CACHE"`
	Health   HealthConfig  `json:"health" yaml:"health" toml:"health" envconfig:"HEALTH"`
	Predict  PredictConfig `json:"predict" yaml:"predict" toml:"predict" envconfig:"PREDICT"`
}

// StorageConfig selects and parameterizes the model artifact backend.
type StorageConfig struct {
	// Backend is "fs" or "gcs".
	Backend   string `json:"backend" yaml:"backend" toml:"backend" envconfig:"BACKEND"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir" envconfig:"MODELS_DIR"`
	Bucket    string `json:"bucket" yaml:"bucket" toml:"bucket" envconfig:"BUCKET"`
	// KeyFile points at a 64-char hex file holding the artifact cipher key.
	// Empty disables encryption and stores artifacts as plaintext.
	KeyFile string `json:"key_file" yaml:"key_file" toml:"key_file" envconfig:"KEY_FILE"`
}

// CacheConfig tunes the in-memory model cache and its background monitors.
type CacheConfig struct {
	MaxEntries              int     `json:"max_entries" yaml:"max_entries" toml:"max_entries" envconfig:"MAX_ENTRIES"`
	MaxMemoryMB             int64   `json:"max_memory_mb" yaml:"max_memory_mb" toml:"max_memory_mb" envconfig:"MAX_MEMORY_MB"`
	CleanupThresholdPercent float64 `json:"cleanup_threshold_percent" yaml:"cleanup_threshold_percent" toml:"cleanup_threshold_percent" envconfig:"CLEANUP_THRESHOLD_PERCENT"`
	CleanupTargetPercent    float64 `json:"cleanup_target_percent" yaml:"cleanup_target_percent" toml:"cleanup_target_percent" envconfig:"CLEANUP_TARGET_PERCENT"`
	HardLimitPercent        float64 `json:"hard_limit_percent" yaml:"hard_limit_percent" toml:"hard_limit_percent" envconfig:"HARD_LIMIT_PERCENT"`
	MonitorIntervalSeconds  int     `json:"monitor_interval_seconds" yaml:"monitor_interval_seconds" toml:"monitor_interval_seconds" envconfig:"MONITOR_INTERVAL_SECONDS"`
	PreloadIntervalMinutes  int     `json:"preload_interval_minutes" yaml:"preload_interval_minutes" toml:"preload_interval_minutes" envconfig:"PRELOAD_INTERVAL_MINUTES"`
	ActiveWindowHours       int     `json:"active_window_hours" yaml:"active_window_hours" toml:"active_window_hours" envconfig:"ACTIVE_WINDOW_HOURS"`
}

// HealthConfig tunes the model health sweeper.
type HealthConfig struct {
	IntervalSeconds int `json:"interval_seconds" yaml:"interval_seconds" toml:"interval_seconds" envconfig:"INTERVAL_SECONDS"`
}

// PredictConfig tunes the prediction path.
type PredictConfig struct {
	TimeoutMillis    int `json:"timeout_millis" yaml:"timeout_millis" toml:"timeout_millis" envconfig:"TIMEOUT_MILLIS"`
	ConfigTTLSeconds int `json:"config_ttl_seconds" yaml:"config_ttl_seconds" toml:"config_ttl_seconds" envconfig:"CONFIG_TTL_SECONDS"`
	ConfigCacheSize  int `json:"config_cache_size" yaml:"config_cache_size" toml:"config_cache_size" envconfig:"CONFIG_CACHE_SIZE"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		DBPath:   "predictd.db",
		Storage: StorageConfig{
			Backend:   "fs",
			ModelsDir: "models",
		},
		Cache: CacheConfig{
			MaxEntries:              50,
			MaxMemoryMB:             1024,
			CleanupThresholdPercent: 80,
			CleanupTargetPercent:    70,
			HardLimitPercent:        90,
			MonitorIntervalSeconds:  30,
			PreloadIntervalMinutes:  5,
			ActiveWindowHours:       24,
		},
		Health: HealthConfig{
			IntervalSeconds: 60,
		},
		Predict: PredictConfig{
			TimeoutMillis:    5000,
			ConfigTTLSeconds: 300,
			ConfigCacheSize:  256,
		},
	}
}

// Load resolves the configuration. A non-empty path is read as a file
// based on its extension (.yaml/.yml, .json, .toml); an empty path skips
// the file layer. PREDICTD_* environment variables override both.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, err
			}
		case ".json":
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, err
			}
		case ".toml":
			if err := toml.Unmarshal(b, &cfg); err != nil {
				return cfg, err
			}
		default:
			return cfg, fmt.Errorf("unsupported config extension: %s", ext)
		}
	}
	if err := envconfig.Process("PREDICTD", &cfg); err != nil {
		return cfg, fmt.Errorf("process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case "fs":
		if c.Storage.ModelsDir == "" {
			return fmt.Errorf("storage.models_dir is required for the fs backend")
		}
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.MaxMemoryMB <= 0 {
		return fmt.Errorf("cache.max_memory_mb must be positive, got %d", c.Cache.MaxMemoryMB)
	}
	if c.Cache.CleanupTargetPercent <= 0 ||
		c.Cache.CleanupTargetPercent >= c.Cache.CleanupThresholdPercent ||
		c.Cache.CleanupThresholdPercent > c.Cache.HardLimitPercent ||
		c.Cache.HardLimitPercent > 100 {
		return fmt.Errorf("cache percents must satisfy 0 < target < threshold <= hard_limit <= 100, got target=%.1f threshold=%.1f hard_limit=%.1f",
			c.Cache.CleanupTargetPercent, c.Cache.CleanupThresholdPercent, c.Cache.HardLimitPercent)
	}
	if c.Cache.MonitorIntervalSeconds <= 0 || c.Cache.PreloadIntervalMinutes <= 0 || c.Cache.ActiveWindowHours <= 0 {
		return fmt.Errorf("cache intervals must be positive")
	}
	if c.Health.IntervalSeconds <= 0 {
		return fmt.Errorf("health.interval_seconds must be positive, got %d", c.Health.IntervalSeconds)
	}
	if c.Predict.TimeoutMillis <= 0 {
		return fmt.Errorf("predict.timeout_millis must be positive, got %d", c.Predict.TimeoutMillis)
	}
	if c.Predict.ConfigTTLSeconds <= 0 || c.Predict.ConfigCacheSize <= 0 {
		return fmt.Errorf("predict config cache settings must be positive")
	}
	return nil
}

// MaxMemoryBytes converts the configured megabyte budget to bytes.
func (c CacheConfig) MaxMemoryBytes() int64 { return c.MaxMemoryMB * 1024 * 1024 }

// MonitorInterval returns the memory monitor period.
func (c CacheConfig) MonitorInterval() time.Duration {
	return time.Duration(c.MonitorIntervalSeconds) * time.Second
}

// PreloadInterval returns the preload sweep period.
func (c CacheConfig) PreloadInterval() time.Duration {
	return time.Duration(c.PreloadIntervalMinutes) * time.Minute
}

// ActiveWindow returns how far back org activity counts as recent.
func (c CacheConfig) ActiveWindow() time.Duration {
	return time.Duration(c.ActiveWindowHours) * time.Hour
}

// Interval returns the health sweep period.
func (c HealthConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Timeout returns the per-prediction deadline.
func (c PredictConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// ConfigTTL returns how long loaded model configs stay fresh.
func (c PredictConfig) ConfigTTL() time.Duration {
	return time.Duration(c.ConfigTTLSeconds) * time.Second
}
