package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\ndb_path: /tmp/p.db\nstorage:\n  backend: fs\n  models_dir: /tmp/models\ncache:\n  max_entries: 7\n  max_memory_mb: 64\n")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":9999" || cfg.DBPath != "/tmp/p.db" || cfg.Storage.ModelsDir != "/tmp/models" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Cache.MaxEntries != 7 || cfg.Cache.MaxMemoryMB != 64 {
		t.Fatalf("unexpected cache cfg: %+v", cfg.Cache)
	}
	// Unset fields keep their defaults.
	if cfg.Cache.CleanupThresholdPercent != 80 || cfg.Health.IntervalSeconds != 60 {
		t.Fatalf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","storage":{"backend":"gcs","bucket":"org-models"},"predict":{"timeout_millis":250}}`)
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":7070" || cfg.Storage.Backend != "gcs" || cfg.Storage.Bucket != "org-models" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Predict.TimeoutMillis != 250 {
		t.Fatalf("unexpected predict cfg: %+v", cfg.Predict)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\n[storage]\nbackend=\"fs\"\nmodels_dir=\"/x\"\n[cache]\nmax_entries=3\n")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":8081" || cfg.Storage.ModelsDir != "/x" || cfg.Cache.MaxEntries != 3 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil { t.Fatalf("load: %v", err) }
	def := Default()
	if cfg.Addr != def.Addr || cfg.Cache.MaxEntries != def.Cache.MaxEntries {
		t.Fatalf("expected defaults, got: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PREDICTD_ADDR", ":4040")
	t.Setenv("PREDICTD_CACHE_MAX_ENTRIES", "5")
	t.Setenv("PREDICTD_STORAGE_BACKEND", "gcs")
	t.Setenv("PREDICTD_STORAGE_BUCKET", "env-bucket")
	cfg, err := Load("")
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Addr != ":4040" || cfg.Cache.MaxEntries != 5 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Storage.Backend != "gcs" || cfg.Storage.Bucket != "env-bucket" {
		t.Fatalf("env storage overrides not applied: %+v", cfg.Storage)
	}
}

func TestLoadErrors(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil { t.Fatalf("expected unsupported extension error") }
}
