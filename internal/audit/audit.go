package audit

import "time"

// Actions recorded in the trail.
const (
	ActionModelLoad    = "model_load"
	ActionModelSwap    = "model_swap"
	ActionModelRemove  = "model_remove"
	ActionModelPublish = "model_publish"
)

// Outcomes recorded in the trail.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Record is one model lifecycle event. Failed attempts are recorded the
// same as successes, with the failure reason in Detail.
type Record struct {
	OrgID          string
	Action         string
	Outcome        string
	Detail         string
	RequestingUser string
	Duration       time.Duration
	At             time.Time
}

// Sink receives audit records. Implementations should be lightweight and
// non-blocking; Record must not panic, and delivery failures stay inside
// the sink so callers never fail because of auditing.
type Sink interface {
	Record(Record)
}

// noopSink is the default; it drops records.
type noopSink struct{}

func (noopSink) Record(Record) {}

// NewNoopSink returns a sink that discards everything.
func NewNoopSink() Sink { return noopSink{} }
