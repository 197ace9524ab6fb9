package domain

import (
	"fmt"
	"time"
)

// ScheduleType names one of the two daily refresh windows.
type ScheduleType string

// Available schedule types.
const (
	ScheduleNone      ScheduleType = "none"
	ScheduleMidnight  ScheduleType = "midnight"
	ScheduleAfternoon ScheduleType = "afternoon"
)

// Window bounds. The tolerance absorbs jitter from both the foreground
// poll and the imprecise timing of background invocations.
const (
	MidnightHour    = 0
	AfternoonHour   = 17
	WindowTolerance = 30 // minutes
)

// ScheduleTypes lists the schedule types that have a window.
func ScheduleTypes() []ScheduleType {
	return []ScheduleType{ScheduleMidnight, ScheduleAfternoon}
}

// WindowAt returns the refresh window that contains now, or ScheduleNone.
func WindowAt(now time.Time) ScheduleType {
	switch {
	case now.Hour() == MidnightHour && now.Minute() <= WindowTolerance:
		return ScheduleMidnight
	case now.Hour() == AfternoonHour && now.Minute() <= WindowTolerance:
		return ScheduleAfternoon
	default:
		return ScheduleNone
	}
}

// String returns the string representation.
func (s ScheduleType) String() string {
	return string(s)
}

// Trigger returns the refresh trigger matching the schedule type.
func (s ScheduleType) Trigger() Trigger {
	switch s {
	case ScheduleMidnight:
		return TriggerMidnight
	case ScheduleAfternoon:
		return TriggerAfternoon
	default:
		return TriggerManual
	}
}

// Date is a calendar date in the local timezone, formatted YYYY-MM-DD.
// Ordering of Date values matches chronological order.
type Date string

// DateLayout is the layout used to render and parse Date values.
const DateLayout = "2006-01-02"

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: date %q", ErrInvalidInput, s)
	}
	return DateOf(t), nil
}

// AddDays returns the date n days after d. Invalid dates are returned unchanged.
func (d Date) AddDays(n int) Date {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}

// String returns the string representation.
func (d Date) String() string {
	return string(d)
}

// RefreshMarker records the calendar date a scheduled refresh last ran.
type RefreshMarker struct {
	ScheduleType ScheduleType `json:"schedule_type"`
	LastRunDate  Date         `json:"last_run_date"`
}

// RanOn reports whether the marker records a run on date.
func (m RefreshMarker) RanOn(date Date) bool {
	return m.LastRunDate != "" && m.LastRunDate == date
}

// RefreshOutcome describes what a MaybeRefresh call did.
type RefreshOutcome string

// Possible refresh outcomes.
const (
	// OutcomeOutsideWindow means now is outside both windows.
	OutcomeOutsideWindow RefreshOutcome = "outside_window"
	// OutcomeAlreadyRan means the window's refresh already ran (or is running) today.
	OutcomeAlreadyRan RefreshOutcome = "already_ran"
	// OutcomeRefreshed means this call ran the refresh body.
	OutcomeRefreshed RefreshOutcome = "refreshed"
)

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// PollInterval is how often the foreground scheduler checks the windows.
	PollInterval time.Duration

	// BackgroundInterval is how often the background task is invoked.
	BackgroundInterval time.Duration

	// GatewayTimeout bounds each remote call of a refresh cycle.
	GatewayTimeout time.Duration
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PollInterval:       5 * time.Minute,
		BackgroundInterval: 15 * time.Minute,
		GatewayTimeout:     20 * time.Second,
	}
}

// Task IDs for background tasks.
const (
	TaskIDScheduledRefresh = "scheduled-refresh"
)
