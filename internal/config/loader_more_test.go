package config

import (
	"strings"
	"testing"
)

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.yaml", "addr: :8080\n: broken\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.json", `{ "addr": ":8080", "db_path": }`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected JSON unmarshal error")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.toml", "addr=:8080\ndb_path\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected TOML unmarshal error")
	}
}

func TestValidate_Backend(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "s3"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "unknown storage backend") {
		t.Fatalf("expected backend error, got %v", err)
	}
	cfg.Storage.Backend = "gcs"
	cfg.Storage.Bucket = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "bucket") {
		t.Fatalf("expected bucket error, got %v", err)
	}
	cfg.Storage.Backend = "fs"
	cfg.Storage.ModelsDir = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "models_dir") {
		t.Fatalf("expected models_dir error, got %v", err)
	}
}

func TestValidate_Percents(t *testing.T) {
	cfg := Default()
	cfg.Cache.CleanupTargetPercent = 85 // above the threshold
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected percent ordering error")
	}
	cfg = Default()
	cfg.Cache.HardLimitPercent = 120
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected hard limit range error")
	}
	cfg = Default()
	cfg.Cache.CleanupThresholdPercent = 95 // above the hard limit
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected threshold ordering error")
	}
}

func TestValidate_Positives(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.Cache.MaxEntries = 0 },
		func(c *Config) { c.Cache.MaxMemoryMB = -1 },
		func(c *Config) { c.Cache.MonitorIntervalSeconds = 0 },
		func(c *Config) { c.Health.IntervalSeconds = 0 },
		func(c *Config) { c.Predict.TimeoutMillis = 0 },
		func(c *Config) { c.Predict.ConfigCacheSize = 0 },
	} {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected validation error for %+v", cfg)
		}
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	if cfg.Cache.MaxMemoryBytes() != 1024*1024*1024 {
		t.Fatalf("unexpected memory bytes: %d", cfg.Cache.MaxMemoryBytes())
	}
	if cfg.Cache.MonitorInterval().Seconds() != 30 {
		t.Fatalf("unexpected monitor interval: %v", cfg.Cache.MonitorInterval())
	}
	if cfg.Cache.PreloadInterval().Minutes() != 5 {
		t.Fatalf("unexpected preload interval: %v", cfg.Cache.PreloadInterval())
	}
	if cfg.Predict.Timeout().Milliseconds() != 5000 {
		t.Fatalf("unexpected predict timeout: %v", cfg.Predict.Timeout())
	}
}
