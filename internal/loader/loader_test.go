package loader

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"predictd/internal/audit"
	"predictd/internal/persist"
	"predictd/internal/runtime"
	"predictd/internal/store"
	"predictd/pkg/types"
)

func testDB(t *testing.T) *persist.Store {
	t.Helper()
	db, err := persist.Open(filepath.Join(t.TempDir(), "loader.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testFS(t *testing.T) (*store.FSStore, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatalf("fs store: %v", err)
	}
	return fs, dir
}

func testArtifact(t *testing.T, featureCount int) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"schema":        "linear/v1",
		"type":          "logistic",
		"feature_count": featureCount,
		"weights":       make([]float64, featureCount),
		"bias":          0.0,
	})
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	return raw
}

func seedConfig(t *testing.T, db *persist.Store, orgID, version string, features []string) types.ModelConfig {
	t.Helper()
	cfg := types.ModelConfig{
		OrganizationID:              orgID,
		ModelPath:                   orgID + "/" + version + "/model.json",
		Version:                     version,
		FeatureNames:                features,
		FailureProbabilityThreshold: 0.7,
		ConfidenceThreshold:         0.6,
		ComponentMapping:            map[string]string{"0": "None", "1": "Bearing"},
		TimeToFailureWindowMinutes:  60,
	}
	if err := db.UpsertModelConfig(context.Background(), cfg); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	return cfg
}

func TestLoadServesReadyModel(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	fs, _ := testFS(t)
	cfg := seedConfig(t, db, "org-1", "v3", []string{"temperature", "vibration"})
	if err := fs.Put(ctx, cfg.ModelPath, testArtifact(t, 2)); err != nil {
		t.Fatalf("put artifact: %v", err)
	}
	acc := 0.91
	if err := db.UpsertModelMetrics(ctx, persist.MetricsRecord{
		OrgID: "org-1", Version: "v3", Accuracy: &acc, TrainingSeconds: 12.5, DataPoints: 4000,
	}); err != nil {
		t.Fatalf("seed metrics: %v", err)
	}

	sink := audit.NewMemorySink()
	l := New(Config{Store: fs, DB: db, Runtime: runtime.NewLinearRuntime(), Audit: sink})

	model, err := l.Load(ctx, "org-1", "ops@corp")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if model.Version() != "v3" || model.OrganizationID != "org-1" {
		t.Fatalf("wrong model identity: %q/%q", model.OrganizationID, model.Version())
	}
	if model.Session == nil || model.Session.FeatureCount() != 2 {
		t.Fatalf("session not ready")
	}
	if model.Metadata.Accuracy != 0.91 {
		t.Fatalf("recorded accuracy not applied: %v", model.Metadata.Accuracy)
	}
	if model.Metadata.Precision != 0.75 || model.Metadata.Recall != 0.75 || model.Metadata.AUC != 0.8 {
		t.Fatalf("defaults not applied: %+v", model.Metadata)
	}
	if model.Metadata.DataPoints != 4000 {
		t.Fatalf("data points = %d, want 4000", model.Metadata.DataPoints)
	}

	recs := sink.Records()
	if len(recs) != 1 {
		t.Fatalf("audit records = %d, want 1", len(recs))
	}
	r := recs[0]
	if r.Action != audit.ActionModelLoad || r.Outcome != audit.OutcomeSuccess {
		t.Fatalf("unexpected audit record: %+v", r)
	}
	if r.RequestingUser != "ops@corp" || r.OrgID != "org-1" {
		t.Fatalf("caller identity not recorded: %+v", r)
	}
}

func TestLoadMetadataDefaultsWithoutMetricsRow(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	fs, _ := testFS(t)
	cfg := seedConfig(t, db, "org-1", "v1", []string{"temperature"})
	if err := fs.Put(ctx, cfg.ModelPath, testArtifact(t, 1)); err != nil {
		t.Fatalf("put artifact: %v", err)
	}

	l := New(Config{Store: fs, DB: db, Runtime: runtime.NewLinearRuntime()})
	model, err := l.Load(ctx, "org-1", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	md := model.Metadata
	if md.Accuracy != 0.8 || md.Precision != 0.75 || md.Recall != 0.75 || md.AUC != 0.8 {
		t.Fatalf("defaults not applied: %+v", md)
	}
	if md.CreatedAt.IsZero() {
		t.Fatalf("created-at not defaulted")
	}
}

func TestLoadConfigNotFound(t *testing.T) {
	db := testDB(t)
	fs, _ := testFS(t)
	sink := audit.NewMemorySink()
	l := New(Config{Store: fs, DB: db, Runtime: runtime.NewLinearRuntime(), Audit: sink})

	_, err := l.Load(context.Background(), "org-unknown", "ops@corp")
	if !IsConfigNotFound(err) {
		t.Fatalf("expected config-not-found, got %v", err)
	}

	recs := sink.Records()
	if len(recs) != 1 || recs[0].Outcome != audit.OutcomeFailure {
		t.Fatalf("failed attempt not audited: %+v", recs)
	}
	if recs[0].Detail == "" {
		t.Fatalf("failure reason missing from audit detail")
	}
}

func TestLoadArtifactMissing(t *testing.T) {
	db := testDB(t)
	fs, _ := testFS(t)
	seedConfig(t, db, "org-1", "v1", []string{"temperature"})

	l := New(Config{Store: fs, DB: db, Runtime: runtime.NewLinearRuntime()})
	_, err := l.Load(context.Background(), "org-1", "")
	if !IsModelUnavailable(err) {
		t.Fatalf("expected model-unavailable, got %v", err)
	}
	if !store.IsNotFound(err) {
		t.Fatalf("underlying cause lost: %v", err)
	}
}

func TestLoadArtifactCorrupt(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	fs, _ := testFS(t)
	cfg := seedConfig(t, db, "org-1", "v1", []string{"temperature"})
	if err := fs.Put(ctx, cfg.ModelPath, []byte("not a weight file")); err != nil {
		t.Fatalf("put artifact: %v", err)
	}

	l := New(Config{Store: fs, DB: db, Runtime: runtime.NewLinearRuntime()})
	_, err := l.Load(ctx, "org-1", "")
	if !IsModelCorrupt(err) {
		t.Fatalf("expected model-corrupt, got %v", err)
	}
}

func TestLoadFeatureWidthMismatch(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	fs, _ := testFS(t)
	cfg := seedConfig(t, db, "org-1", "v1", []string{"temperature", "vibration"})
	if err := fs.Put(ctx, cfg.ModelPath, testArtifact(t, 3)); err != nil {
		t.Fatalf("put artifact: %v", err)
	}

	l := New(Config{Store: fs, DB: db, Runtime: runtime.NewLinearRuntime()})
	_, err := l.Load(ctx, "org-1", "")
	if !IsModelCorrupt(err) {
		t.Fatalf("expected model-corrupt for width mismatch, got %v", err)
	}
}

func TestLoadIntegrityFailurePassesThrough(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	fs, dir := testFS(t)
	key := make([]byte, 32)
	sealed, err := store.NewSealedStore(fs, key)
	if err != nil {
		t.Fatalf("sealed store: %v", err)
	}
	cfg := seedConfig(t, db, "org-1", "v1", []string{"temperature"})
	if err := sealed.Put(ctx, cfg.ModelPath, testArtifact(t, 1)); err != nil {
		t.Fatalf("put artifact: %v", err)
	}

	// Flip one byte of the sealed envelope on disk.
	onDisk := filepath.Join(dir, filepath.FromSlash(cfg.ModelPath))
	raw, err := os.ReadFile(onDisk)
	if err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	raw[len(raw)-1] ^= 0xff
	if err := os.WriteFile(onDisk, raw, 0o644); err != nil {
		t.Fatalf("write envelope: %v", err)
	}

	l := New(Config{Store: sealed, DB: db, Runtime: runtime.NewLinearRuntime()})
	_, err = l.Load(ctx, "org-1", "")
	if !store.IsIntegrity(err) {
		t.Fatalf("expected integrity error, got %v", err)
	}
	if IsModelUnavailable(err) {
		t.Fatalf("integrity failure must not be rewrapped")
	}
}

func TestConfigCacheReuseAndInvalidate(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	fs, _ := testFS(t)
	cfg := seedConfig(t, db, "org-1", "v1", []string{"temperature"})
	if err := fs.Put(ctx, cfg.ModelPath, testArtifact(t, 1)); err != nil {
		t.Fatalf("put v1 artifact: %v", err)
	}

	l := New(Config{Store: fs, DB: db, Runtime: runtime.NewLinearRuntime()})
	first, err := l.Load(ctx, "org-1", "")
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.Version() != "v1" {
		t.Fatalf("first load version = %q", first.Version())
	}

	// Re-point the org at v2. The cached config keeps serving v1 until it
	// is invalidated.
	cfg2 := seedConfig(t, db, "org-1", "v2", []string{"temperature"})
	if err := fs.Put(ctx, cfg2.ModelPath, testArtifact(t, 1)); err != nil {
		t.Fatalf("put v2 artifact: %v", err)
	}

	stale, err := l.Load(ctx, "org-1", "")
	if err != nil {
		t.Fatalf("stale load: %v", err)
	}
	if stale.Version() != "v1" {
		t.Fatalf("config cache bypassed: got %q", stale.Version())
	}

	l.InvalidateConfig("org-1")
	fresh, err := l.Load(ctx, "org-1", "")
	if err != nil {
		t.Fatalf("fresh load: %v", err)
	}
	if fresh.Version() != "v2" {
		t.Fatalf("invalidation did not take: got %q", fresh.Version())
	}
}
