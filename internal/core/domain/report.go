package domain

import "time"

// Trigger records what started a refresh cycle.
type Trigger string

// Available triggers.
const (
	TriggerMidnight  Trigger = "midnight"
	TriggerAfternoon Trigger = "afternoon"
	TriggerManual    Trigger = "manual"
	TriggerLogin     Trigger = "login"
)

// FetchOutcome is the settled result of one gateway call.
type FetchOutcome struct {
	// Kind is the data kind that was fetched.
	Kind DataKind `json:"kind"`

	// Err is the failure, if any. Not persisted; see Error.
	Err error `json:"-"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`

	// Duration is how long the call took.
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the call completed without error.
func (o FetchOutcome) Succeeded() bool {
	return o.Err == nil && o.Error == ""
}

// RefreshReport represents the outcome of a full refresh cycle.
type RefreshReport struct {
	// ID uniquely identifies the cycle.
	ID string

	// Trigger records what started the cycle.
	Trigger Trigger

	// StartedAt is when the cycle started.
	StartedAt time.Time

	// EndedAt is when every call had settled.
	EndedAt time.Time

	// Outcomes holds one entry per data kind.
	Outcomes []FetchOutcome
}

// Outcome returns the outcome for kind.
func (r *RefreshReport) Outcome(kind DataKind) (FetchOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			return o, true
		}
	}
	return FetchOutcome{}, false
}

// Succeeded reports whether the call for kind completed without error.
func (r *RefreshReport) Succeeded(kind DataKind) bool {
	o, ok := r.Outcome(kind)
	return ok && o.Succeeded()
}

// Failures returns the outcomes that failed.
func (r *RefreshReport) Failures() []FetchOutcome {
	var failed []FetchOutcome
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}
	return failed
}

// SuccessCount returns the number of successful calls.
func (r *RefreshReport) SuccessCount() int {
	return len(r.Outcomes) - len(r.Failures())
}
