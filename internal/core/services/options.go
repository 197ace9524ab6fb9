package services

import "time"

// Option configures a core service.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now. Used by tests to pin the calendar.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
