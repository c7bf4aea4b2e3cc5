package types

import "time"

// ModelConfig describes how predictions are produced for one organization.
// It is resolved once per version by the loader; reconfiguring an
// organization replaces the whole value, fields are never patched in place.
type ModelConfig struct {
	// Organization this configuration belongs to.
	// example: org-7f3a
	OrganizationID string `json:"organization_id" yaml:"organization_id"`
	// Storage path of the serialized model blob.
	// example: org-7f3a/v12/model.bin
	ModelPath string `json:"model_path" yaml:"model_path"`
	// Model version tag.
	// example: v12
	Version string `json:"version" yaml:"version"`
	// Feature names in the exact order the model expects them.
	FeatureNames []string `json:"feature_names" yaml:"feature_names"`
	// Probability above which a failure alarm is considered actionable.
	// example: 0.7
	FailureProbabilityThreshold float64 `json:"failure_probability_threshold" yaml:"failure_probability_threshold"`
	// Minimum confidence for downstream consumers to trust the prediction.
	// example: 0.6
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// Maps model output classes to component labels, e.g. "1" -> "Bearing".
	ComponentMapping map[string]string `json:"component_mapping" yaml:"component_mapping"`
	// Width of the time-to-failure window in minutes.
	// example: 60
	TimeToFailureWindowMinutes int `json:"time_to_failure_window_minutes" yaml:"time_to_failure_window_minutes"`
}

// ModelMetadata carries training metrics and usage accounting for a loaded
// model. LastUsedAt and UsageCount are the only mutable fields.
type ModelMetadata struct {
	Accuracy     float64   `json:"accuracy"`
	Precision    float64   `json:"precision"`
	Recall       float64   `json:"recall"`
	AUC          float64   `json:"auc"`
	TrainingTime time.Duration `json:"training_time"`
	DataPoints   int       `json:"data_points"`
	CreatedAt    time.Time `json:"created_at"`
	LastUsedAt   time.Time `json:"last_used_at"`
	UsageCount   int64     `json:"usage_count"`
}

// FeatureVector is a named feature set as delivered by feature engineering.
// Ordering is applied by the prediction engine, not by the producer.
type FeatureVector map[string]float64

// PredictionResult is what callers of the prediction engine always receive,
// including on the degraded fallback path.
type PredictionResult struct {
	// Organization the prediction was computed for.
	// example: org-7f3a
	OrganizationID string `json:"organization_id"`
	// Failure probability in [0,1].
	// example: 0.83
	Probability float64 `json:"probability"`
	// Distance from the decision boundary rescaled to [0,1].
	// example: 0.66
	Confidence float64 `json:"confidence"`
	// Component label predicted to fail.
	// example: Bearing
	PredictedComponent string `json:"predicted_component"`
	// Estimated minutes until failure, never below 1.
	// example: 11
	TimeToFailureMinutes int `json:"time_to_failure_minutes"`
	// Version of the model that produced the result, or "fallback".
	// example: v12
	ModelVersion string `json:"model_version"`
	// When the prediction was produced.
	Timestamp time.Time `json:"timestamp"`
	// Features that were actually fed to the model, in model order.
	FeaturesUsed []string `json:"features_used"`
	// Execution details for observability.
	Metadata ResultMetadata `json:"metadata"`
}

// ResultMetadata describes how a prediction was produced.
type ResultMetadata struct {
	// Total processing time in milliseconds.
	// example: 14
	ProcessingTimeMs int64 `json:"processing_time_ms"`
	// Portion spent loading the model (0 on a cache hit).
	// example: 9
	ModelLoadTimeMs int64 `json:"model_load_time_ms"`
	// Number of features in the input vector.
	// example: 24
	FeatureCount int `json:"feature_count"`
	// "ok" on the normal path, "failed" when the fallback was used.
	// example: ok
	Health string `json:"health"`
	// True when the degraded fallback result was returned.
	// example: false
	UsedFallback bool `json:"used_fallback"`
}

// CacheStatistics is a point-in-time snapshot of the model cache.
type CacheStatistics struct {
	// Entries currently resident.
	// example: 12
	TotalEntries int `json:"total_entries"`
	// Entries that are warmed: not preloaded, or accessed at least once.
	// example: 9
	ActiveEntries int `json:"active_entries"`
	// Estimated memory used by resident models, in bytes.
	// example: 734003200
	MemoryUsedBytes int64 `json:"memory_used_bytes"`
	// Configured memory budget in bytes.
	// example: 1073741824
	MemoryTotalBytes int64 `json:"memory_total_bytes"`
	// Used memory as a percentage of the budget.
	// example: 68.4
	MemoryPercent float64 `json:"memory_percent"`
	// Fraction of lookups that were hits, in percent.
	// example: 92.5
	HitRate float64 `json:"hit_rate"`
	// Fraction of lookups that were misses, in percent.
	// example: 7.5
	MissRate float64 `json:"miss_rate"`
	// Evictions performed since construction.
	// example: 3
	EvictionCount int64 `json:"eviction_count"`
	// Organizations currently resident, sorted.
	KnownOrganizations []string `json:"known_organizations"`
	// When the last cleanup pass ran; zero if never.
	LastCleanupAt time.Time `json:"last_cleanup_at"`
}
