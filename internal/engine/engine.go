// Package engine is the prediction entry point. Predict always returns a
// structurally valid result; every failure inside the pipeline degrades to
// a fixed fallback instead of surfacing an error.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/cache"
	"predictd/internal/metrics"
	"predictd/internal/persist"
	"predictd/internal/runtime"
	"predictd/pkg/types"
)

// Fallback result shape, fixed so downstream consumers can rely on it.
const (
	fallbackComponent  = "Unknown (Fallback)"
	fallbackVersion    = "fallback"
	fallbackTTFMinutes = 10

	unknownComponent = "Unknown Component"

	healthOK     = "ok"
	healthFailed = "failed"
)

const defaultTimeout = 5 * time.Second

// Config wires the engine's collaborators.
type Config struct {
	Cache  *cache.Cache
	Loader cache.Loader

	// DB, when set, receives fire-and-forget activity touches that feed
	// the preload scheduler's candidate list.
	DB *persist.Store

	// Timeout bounds one prediction end to end, loading included.
	Timeout time.Duration

	Metrics metrics.Sink
	Log     zerolog.Logger
}

// Engine serves predictions from cached models with a guaranteed fallback.
type Engine struct {
	cfg       Config
	activity  chan string
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// New constructs an Engine and starts its activity drain when persistence
// is wired.
func New(cfg Config) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopSink()
	}
	e := &Engine{
		cfg:      cfg,
		activity: make(chan string, 256),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	if cfg.DB != nil {
		go e.drainActivity()
	} else {
		close(e.stopped)
	}
	return e
}

// Close stops the activity drain. Safe to call once the HTTP surface has
// stopped handing out predictions.
func (e *Engine) Close() {
	e.closeOnce.Do(func() { close(e.done) })
	<-e.stopped
}

// Predict runs the full pipeline for one request. It never returns an
// error: any failure yields the fallback result with degraded-health
// metadata. One latency sample is emitted per call, plus an error count
// when the fallback path was taken.
func (e *Engine) Predict(ctx context.Context, req types.PredictRequest) types.PredictionResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	res, err := e.predict(ctx, req)
	elapsed := time.Since(start)
	e.cfg.Metrics.ObservePrediction(elapsed, err != nil)
	if err != nil {
		e.cfg.Log.Warn().Err(err).Str("org_id", req.OrganizationID).Msg("prediction degraded to fallback")
		loadMs := res.Metadata.ModelLoadTimeMs
		res = fallbackResult(req)
		res.Metadata.ModelLoadTimeMs = loadMs
	}
	res.Metadata.ProcessingTimeMs = elapsed.Milliseconds()
	e.touchActivity(req.OrganizationID)
	return res
}

// predict carries ModelLoadTimeMs in the partial result even on error so
// the fallback can report how long the failed load took.
func (e *Engine) predict(ctx context.Context, req types.PredictRequest) (types.PredictionResult, error) {
	var res types.PredictionResult

	model, ok := e.cfg.Cache.Get(req.OrganizationID)
	if !ok {
		loadStart := time.Now()
		loaded, err := e.cfg.Loader.Load(ctx, req.OrganizationID, req.RequestingUser)
		res.Metadata.ModelLoadTimeMs = time.Since(loadStart).Milliseconds()
		if err != nil {
			return res, err
		}
		e.cfg.Cache.Put(req.OrganizationID, loaded, false)
		model = loaded
	}

	vector := orderedVector(model.Config.FeatureNames, req.Features)
	outputs, err := model.Session.Infer(ctx, vector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return res, ErrTimeout(req.OrganizationID)
		}
		return res, ErrInferenceFailure(req.OrganizationID, err)
	}
	p, err := failureProbability(outputs)
	if err != nil {
		return res, ErrInferenceFailure(req.OrganizationID, err)
	}

	res.OrganizationID = req.OrganizationID
	res.Probability = p
	res.Confidence = math.Abs(p-0.5) * 2
	res.PredictedComponent = predictedComponent(model.Config.ComponentMapping, p)
	res.TimeToFailureMinutes = timeToFailure(model.Config.TimeToFailureWindowMinutes, p)
	res.ModelVersion = model.Version()
	res.Timestamp = time.Now().UTC()
	res.FeaturesUsed = model.Config.FeatureNames
	res.Metadata.FeatureCount = len(vector)
	res.Metadata.Health = healthOK
	return res, nil
}

// orderedVector lays out the named features in model order, substituting
// zero for anything the producer did not send.
func orderedVector(names []string, features types.FeatureVector) []float64 {
	vector := make([]float64, len(names))
	for i, name := range names {
		vector[i] = features[name]
	}
	return vector
}

// failureProbability interprets the session output: a two-value output is
// [negative, positive] and the second value wins; a single value is the
// probability itself.
func failureProbability(outputs runtime.Outputs) (float64, error) {
	vals, ok := outputs.Primary()
	if !ok {
		return 0, errors.New("no usable output")
	}
	var p float64
	switch len(vals) {
	case 1:
		p = vals[0]
	case 2:
		p = vals[1]
	default:
		return 0, fmt.Errorf("output has %d values, want 1 or 2", len(vals))
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("probability out of range: %v", p)
	}
	return p, nil
}

func predictedComponent(mapping map[string]string, p float64) string {
	class := "0"
	if p > 0.5 {
		class = "1"
	}
	if label, ok := mapping[class]; ok {
		return label
	}
	return unknownComponent
}

// timeToFailure compresses the configured window by the failure
// probability, floored at one minute.
func timeToFailure(windowMinutes int, p float64) int {
	ttf := int(math.Round(float64(windowMinutes) * (1 - p)))
	if ttf < 1 {
		ttf = 1
	}
	return ttf
}

func fallbackResult(req types.PredictRequest) types.PredictionResult {
	return types.PredictionResult{
		OrganizationID:       req.OrganizationID,
		Probability:          0,
		Confidence:           0,
		PredictedComponent:   fallbackComponent,
		TimeToFailureMinutes: fallbackTTFMinutes,
		ModelVersion:         fallbackVersion,
		Timestamp:            time.Now().UTC(),
		Metadata: types.ResultMetadata{
			FeatureCount: len(req.Features),
			Health:       healthFailed,
			UsedFallback: true,
		},
	}
}

// touchActivity submits without blocking; a full buffer drops the touch.
func (e *Engine) touchActivity(orgID string) {
	if e.cfg.DB == nil {
		return
	}
	select {
	case e.activity <- orgID:
	default:
	}
}

func (e *Engine) drainActivity() {
	defer close(e.stopped)
	for {
		select {
		case <-e.done:
			return
		case orgID := <-e.activity:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := e.cfg.DB.TouchOrgActivity(ctx, orgID, time.Now())
			cancel()
			if err != nil {
				e.cfg.Log.Debug().Err(err).Str("org_id", orgID).Msg("activity touch failed")
			}
		}
	}
}
