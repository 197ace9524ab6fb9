package domain

import (
	"encoding/json"
	"time"
)

// CacheTTL is the maximum age of a cache entry before it reads as a miss.
const CacheTTL = 24 * time.Hour

// DataKind identifies one of the payloads fetched from the portal.
type DataKind string

// Available data kinds.
const (
	KindAttendance   DataKind = "attendance"
	KindExamSchedule DataKind = "exam_schedule"
	KindInternals    DataKind = "internals"
	KindCGPA         DataKind = "cgpa"
	KindGreeting     DataKind = "greeting"
)

// AllKinds lists every data kind in refresh order.
func AllKinds() []DataKind {
	return []DataKind{KindAttendance, KindExamSchedule, KindInternals, KindCGPA, KindGreeting}
}

// IsValid returns true if the kind is recognised.
func (k DataKind) IsValid() bool {
	switch k {
	case KindAttendance, KindExamSchedule, KindInternals, KindCGPA, KindGreeting:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k DataKind) String() string {
	return string(k)
}

// CacheEntry is a fetched payload together with the time it was fetched.
type CacheEntry struct {
	// Kind is the data kind the payload belongs to.
	Kind DataKind `json:"kind"`
	// FetchedAt is when the payload was written.
	FetchedAt time.Time `json:"fetched_at"`
	// Payload is the JSON-encoded record set.
	Payload json.RawMessage `json:"payload"`
}

// Valid reports whether the entry is younger than CacheTTL at now.
func (e *CacheEntry) Valid(now time.Time) bool {
	return now.Sub(e.FetchedAt) < CacheTTL
}

// Age returns how old the entry is at now.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// KindStatus summarises one kind for cache introspection.
type KindStatus struct {
	Present   bool
	Valid     bool
	FetchedAt time.Time
}

// CacheStatus is the cache introspection view exposed to the CLI.
type CacheStatus struct {
	// LastUpdate is the time of the most recent successful write. Zero if none.
	LastUpdate time.Time
	// Stale is true if LastUpdate is older than CacheTTL or missing.
	Stale bool
	// Kinds holds per-kind validity.
	Kinds map[DataKind]KindStatus
}
