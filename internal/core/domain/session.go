package domain

import "time"

// SessionPhase is the lifecycle phase of the user's session.
type SessionPhase string

// Session phases.
const (
	PhaseUninitialized   SessionPhase = "uninitialized"
	PhaseLoading         SessionPhase = "loading"
	PhaseAuthenticated   SessionPhase = "authenticated"
	PhaseUnauthenticated SessionPhase = "unauthenticated"
)

// String returns the string representation.
func (p SessionPhase) String() string {
	return string(p)
}

// CanTransition reports whether the state machine allows p -> next.
func (p SessionPhase) CanTransition(next SessionPhase) bool {
	switch p {
	case PhaseUninitialized:
		return next == PhaseLoading
	case PhaseLoading:
		return next == PhaseAuthenticated || next == PhaseUnauthenticated
	case PhaseAuthenticated, PhaseUnauthenticated:
		return next == PhaseLoading
	default:
		return false
	}
}

// SessionState is the observable session snapshot.
type SessionState struct {
	Phase SessionPhase
	// UserID is set while authenticated.
	UserID string
	// LastLoginTime is zero if unknown.
	LastLoginTime time.Time
}

// IsAuthenticated reports whether the session is authenticated.
func (s SessionState) IsAuthenticated() bool {
	return s.Phase == PhaseAuthenticated
}
