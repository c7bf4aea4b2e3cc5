package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus metrics for the serving path. It
// implements both Sink and prometheus.Collector; register it once in main.
type Collector struct {
	PredictionsTotal   *prometheus.CounterVec
	PredictionDuration prometheus.Histogram
	PredictionErrors   prometheus.Counter

	ModelLoadsTotal   *prometheus.CounterVec
	ModelLoadDuration prometheus.Histogram

	CacheLookups     *prometheus.CounterVec
	CacheEvictions   prometheus.Counter
	CacheEntries     prometheus.Gauge
	CacheMemoryBytes prometheus.Gauge
}

func NewCollector() *Collector {
	return &Collector{
		PredictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "predictd",
				Name:      "predictions_total",
				Help:      "Total predictions served, by outcome",
			},
			[]string{"outcome"}, // served, fallback
		),
		PredictionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "predictd",
				Name:      "prediction_duration_seconds",
				Help:      "End-to-end prediction latency",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~8s
			},
		),
		PredictionErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "predictd",
				Name:      "prediction_errors_total",
				Help:      "Predictions that fell back after an internal failure",
			},
		),
		ModelLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "predictd",
				Name:      "model_loads_total",
				Help:      "Model load attempts, by outcome",
			},
			[]string{"outcome"}, // success, failure
		),
		ModelLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "predictd",
				Name:      "model_load_duration_seconds",
				Help:      "Time to fetch, verify and open a model",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
			},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "predictd",
				Name:      "cache_lookups_total",
				Help:      "Model cache lookups, by result",
			},
			[]string{"result"}, // hit, miss
		),
		CacheEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "predictd",
				Name:      "cache_evictions_total",
				Help:      "Entries evicted from the model cache",
			},
		),
		CacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "predictd",
				Name:      "cache_entries",
				Help:      "Models currently cached",
			},
		),
		CacheMemoryBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "predictd",
				Name:      "cache_memory_bytes",
				Help:      "Estimated memory held by cached models",
			},
		),
	}
}

func (c *Collector) ObservePrediction(d time.Duration, fallback bool) {
	outcome := "served"
	if fallback {
		outcome = "fallback"
		c.PredictionErrors.Inc()
	}
	c.PredictionsTotal.WithLabelValues(outcome).Inc()
	c.PredictionDuration.Observe(d.Seconds())
}

func (c *Collector) ObserveModelLoad(d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.ModelLoadsTotal.WithLabelValues(outcome).Inc()
	c.ModelLoadDuration.Observe(d.Seconds())
}

func (c *Collector) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveEviction() {
	c.CacheEvictions.Inc()
}

func (c *Collector) SetCacheUsage(entries int, memoryBytes int64) {
	c.CacheEntries.Set(float64(entries))
	c.CacheMemoryBytes.Set(float64(memoryBytes))
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.PredictionsTotal.Describe(ch)
	c.PredictionDuration.Describe(ch)
	c.PredictionErrors.Describe(ch)
	c.ModelLoadsTotal.Describe(ch)
	c.ModelLoadDuration.Describe(ch)
	c.CacheLookups.Describe(ch)
	c.CacheEvictions.Describe(ch)
	c.CacheEntries.Describe(ch)
	c.CacheMemoryBytes.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.PredictionsTotal.Collect(ch)
	c.PredictionDuration.Collect(ch)
	c.PredictionErrors.Collect(ch)
	c.ModelLoadsTotal.Collect(ch)
	c.ModelLoadDuration.Collect(ch)
	c.CacheLookups.Collect(ch)
	c.CacheEvictions.Collect(ch)
	c.CacheEntries.Collect(ch)
	c.CacheMemoryBytes.Collect(ch)
}
