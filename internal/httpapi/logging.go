package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"predictd/pkg/types"
)

// zlog is an optional structured logger. Handlers stay quiet if unset.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("PREDICTD_HTTP_LOG_LEVEL"))

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logPredict emits one structured line per served prediction.
func logPredict(r *http.Request, res types.PredictionResult, elapsed time.Duration) {
	if zlog == nil {
		return
	}
	zlog.Info().
		Str("org_id", res.OrganizationID).
		Str("model_version", res.ModelVersion).
		Float64("probability", res.Probability).
		Bool("fallback", res.Metadata.UsedFallback).
		Dur("elapsed", elapsed).
		Str("remote", r.RemoteAddr).
		Msg("prediction served")
}
