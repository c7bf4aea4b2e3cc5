package metrics

import "time"

// Sink receives measurements from the serving path. Implementations must
// be lightweight; the engine calls ObservePrediction on every request.
type Sink interface {
	// ObservePrediction records one served prediction, fallback or not.
	ObservePrediction(d time.Duration, fallback bool)
	// ObserveModelLoad records one load attempt and its outcome.
	ObserveModelLoad(d time.Duration, err error)
	// ObserveCacheLookup records a cache hit or miss.
	ObserveCacheLookup(hit bool)
	// ObserveEviction records one evicted cache entry.
	ObserveEviction()
	// SetCacheUsage publishes current cache occupancy.
	SetCacheUsage(entries int, memoryBytes int64)
}

// noopSink is the default; it drops measurements.
type noopSink struct{}

func (noopSink) ObservePrediction(time.Duration, bool) {}
func (noopSink) ObserveModelLoad(time.Duration, error) {}
func (noopSink) ObserveCacheLookup(bool)               {}
func (noopSink) ObserveEviction()                      {}
func (noopSink) SetCacheUsage(int, int64)              {}

// NewNoopSink returns a sink that discards everything.
func NewNoopSink() Sink { return noopSink{} }
