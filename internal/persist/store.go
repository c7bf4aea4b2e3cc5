package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"predictd/pkg/types"
)

// Store wraps the service database. It keeps per-org model configuration,
// training metrics, the audit trail, and the org activity feed.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable. Readiness probes use it.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS model_configs (
  org_id TEXT PRIMARY KEY,
  version TEXT NOT NULL,
  model_path TEXT NOT NULL,
  feature_names TEXT NOT NULL DEFAULT '[]',
  failure_threshold REAL NOT NULL DEFAULT 0.5,
  confidence_threshold REAL NOT NULL DEFAULT 0.0,
  component_mapping TEXT NOT NULL DEFAULT '{}',
  ttf_window_minutes INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS model_metrics (
  org_id TEXT NOT NULL,
  version TEXT NOT NULL,
  accuracy REAL,
  precision REAL,
  recall REAL,
  auc REAL,
  training_seconds REAL NOT NULL DEFAULT 0,
  data_points INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL,
  PRIMARY KEY (org_id, version)
);

CREATE TABLE IF NOT EXISTS audit_log (
  id TEXT PRIMARY KEY,
  org_id TEXT NOT NULL,
  action TEXT NOT NULL,
  outcome TEXT NOT NULL,
  detail TEXT NOT NULL DEFAULT '',
  requesting_user TEXT NOT NULL DEFAULT '',
  duration_ms INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_org_time ON audit_log(org_id, created_at DESC);

CREATE TABLE IF NOT EXISTS org_activity (
  org_id TEXT PRIMARY KEY,
  last_seen_at DATETIME NOT NULL,
  request_count INTEGER NOT NULL DEFAULT 0
);
`)
	return err
}

// GetModelConfig returns the stored config for an org, or ok=false when the
// org has no model configured.
func (s *Store) GetModelConfig(ctx context.Context, orgID string) (types.ModelConfig, bool, error) {
	if s.db == nil {
		return types.ModelConfig{}, false, nil
	}
	row := s.db.QueryRowContext(ctx, `
SELECT org_id, version, model_path, feature_names, failure_threshold, confidence_threshold, component_mapping, ttf_window_minutes
FROM model_configs WHERE org_id=?;
`, orgID)

	var cfg types.ModelConfig
	var features, mapping string
	err := row.Scan(&cfg.OrganizationID, &cfg.Version, &cfg.ModelPath, &features,
		&cfg.FailureProbabilityThreshold, &cfg.ConfidenceThreshold, &mapping, &cfg.TimeToFailureWindowMinutes)
	if err == sql.ErrNoRows {
		return types.ModelConfig{}, false, nil
	}
	if err != nil {
		return types.ModelConfig{}, false, err
	}
	if err := json.Unmarshal([]byte(features), &cfg.FeatureNames); err != nil {
		return types.ModelConfig{}, false, fmt.Errorf("decode feature_names for %s: %w", orgID, err)
	}
	if err := json.Unmarshal([]byte(mapping), &cfg.ComponentMapping); err != nil {
		return types.ModelConfig{}, false, fmt.Errorf("decode component_mapping for %s: %w", orgID, err)
	}
	return cfg, true, nil
}

// UpsertModelConfig writes the config row for cfg.OrganizationID, replacing
// any previous version.
func (s *Store) UpsertModelConfig(ctx context.Context, cfg types.ModelConfig) error {
	if s.db == nil {
		return nil
	}
	features, err := json.Marshal(cfg.FeatureNames)
	if err != nil {
		return err
	}
	mapping, err := json.Marshal(cfg.ComponentMapping)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO model_configs(org_id, version, model_path, feature_names, failure_threshold, confidence_threshold, component_mapping, ttf_window_minutes, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(org_id) DO UPDATE SET
  version=excluded.version,
  model_path=excluded.model_path,
  feature_names=excluded.feature_names,
  failure_threshold=excluded.failure_threshold,
  confidence_threshold=excluded.confidence_threshold,
  component_mapping=excluded.component_mapping,
  ttf_window_minutes=excluded.ttf_window_minutes,
  updated_at=excluded.updated_at;
`, cfg.OrganizationID, cfg.Version, cfg.ModelPath, string(features),
		cfg.FailureProbabilityThreshold, cfg.ConfidenceThreshold, string(mapping),
		cfg.TimeToFailureWindowMinutes, time.Now().UTC())
	return err
}

// MetricsRecord is one row of training metrics for a model version.
// Nullable columns come back as pointers so absent scores can fall back to
// documented defaults at load time.
type MetricsRecord struct {
	OrgID           string
	Version         string
	Accuracy        *float64
	Precision       *float64
	Recall          *float64
	AUC             *float64
	TrainingSeconds float64
	DataPoints      int
	CreatedAt       time.Time
}

func (s *Store) GetModelMetrics(ctx context.Context, orgID, version string) (MetricsRecord, bool, error) {
	if s.db == nil {
		return MetricsRecord{}, false, nil
	}
	row := s.db.QueryRowContext(ctx, `
SELECT org_id, version, accuracy, precision, recall, auc, training_seconds, data_points, created_at
FROM model_metrics WHERE org_id=? AND version=?;
`, orgID, version)
	var r MetricsRecord
	err := row.Scan(&r.OrgID, &r.Version, &r.Accuracy, &r.Precision, &r.Recall, &r.AUC,
		&r.TrainingSeconds, &r.DataPoints, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return MetricsRecord{}, false, nil
	}
	if err != nil {
		return MetricsRecord{}, false, err
	}
	return r, true, nil
}

func (s *Store) UpsertModelMetrics(ctx context.Context, r MetricsRecord) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO model_metrics(org_id, version, accuracy, precision, recall, auc, training_seconds, data_points, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(org_id, version) DO UPDATE SET
  accuracy=excluded.accuracy,
  precision=excluded.precision,
  recall=excluded.recall,
  auc=excluded.auc,
  training_seconds=excluded.training_seconds,
  data_points=excluded.data_points,
  created_at=excluded.created_at;
`, r.OrgID, r.Version, r.Accuracy, r.Precision, r.Recall, r.AUC,
		r.TrainingSeconds, r.DataPoints, r.CreatedAt)
	return err
}

// AuditRow is one persisted audit event.
type AuditRow struct {
	ID             string
	OrgID          string
	Action         string
	Outcome        string
	Detail         string
	RequestingUser string
	DurationMillis int64
	CreatedAt      time.Time
}

func (s *Store) InsertAudit(ctx context.Context, r AuditRow) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO audit_log(id, org_id, action, outcome, detail, requesting_user, duration_ms, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?);
`, r.ID, r.OrgID, r.Action, r.Outcome, r.Detail, r.RequestingUser, r.DurationMillis, r.CreatedAt)
	return err
}

// RecentAudits lists the newest audit rows for one org, newest first.
func (s *Store) RecentAudits(ctx context.Context, orgID string, limit int) ([]AuditRow, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, org_id, action, outcome, detail, requesting_user, duration_ms, created_at
FROM audit_log WHERE org_id=? ORDER BY created_at DESC LIMIT ?;
`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		if err := rows.Scan(&r.ID, &r.OrgID, &r.Action, &r.Outcome, &r.Detail,
			&r.RequestingUser, &r.DurationMillis, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TouchOrgActivity bumps the request counter and last-seen time for an org.
func (s *Store) TouchOrgActivity(ctx context.Context, orgID string, at time.Time) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO org_activity(org_id, last_seen_at, request_count)
VALUES(?, ?, 1)
ON CONFLICT(org_id) DO UPDATE SET
  last_seen_at=excluded.last_seen_at,
  request_count=org_activity.request_count+1;
`, orgID, at.UTC())
	return err
}

// RecentlyActiveOrgs returns orgs seen since the cutoff, busiest first.
func (s *Store) RecentlyActiveOrgs(ctx context.Context, since time.Time, limit int) ([]string, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT org_id FROM org_activity
WHERE last_seen_at >= ?
ORDER BY request_count DESC, last_seen_at DESC
LIMIT ?;
`, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var org string
		if err := rows.Scan(&org); err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}
