package types

// PredictRequest is the payload for POST /predict.
type PredictRequest struct {
	// Organization to predict for.
	// example: org-7f3a
	OrganizationID string `json:"organization_id" example:"org-7f3a"`
	// Feature vector from the feature-engineering pipeline.
	Features FeatureVector `json:"features"`
	// Optional identity of the caller, recorded in the audit trail.
	// example: scada-ingest
	RequestingUser string `json:"requesting_user,omitempty" example:"scada-ingest"`
}

// CleanupRequest is the payload for POST /cache/cleanup.
type CleanupRequest struct {
	// Memory percentage to clean down to. Zero uses the configured target.
	// example: 70
	TargetPercent float64 `json:"target_percent,omitempty" example:"70"`
}

// PreloadResponse reports the outcome of a preload pass.
type PreloadResponse struct {
	// Organizations considered by the pass.
	// example: 5
	Requested int `json:"requested" example:"5"`
	// Organizations actually loaded.
	// example: 3
	Loaded int `json:"loaded" example:"3"`
	// Organizations skipped (already cached, over budget, or failed).
	// example: 2
	Skipped int `json:"skipped" example:"2"`
}

// SwapRequest is the payload for POST /models/{org}/swap.
type SwapRequest struct {
	// Version to swap in. Empty resolves the organization's current config.
	// example: v13
	Version string `json:"version,omitempty" example:"v13"`
	// Optional identity of the caller, recorded in the audit trail.
	// example: deploy-bot
	RequestingUser string `json:"requesting_user,omitempty" example:"deploy-bot"`
}

// ModelHealthResponse is returned by GET /models/{org}/health.
type ModelHealthResponse struct {
	// Organization probed.
	// example: org-7f3a
	OrganizationID string `json:"organization_id" example:"org-7f3a"`
	// Whether the org's model is resident in the cache.
	// example: true
	Cached bool `json:"cached" example:"true"`
	// Probe outcome; false when not cached or the probe failed.
	// example: true
	Healthy bool `json:"healthy" example:"true"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model configuration not found
	Error string `json:"error" example:"model configuration not found"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
