package driving

import (
	"context"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

// SessionService is the top-level controller used by the CLI.
type SessionService interface {
	// Initialize restores the session from persisted credentials.
	// It never contacts the portal.
	Initialize(ctx context.Context) error

	// Login stores credentials, warms the cache and starts scheduled refreshes.
	Login(ctx context.Context, creds domain.Credentials) error

	// Logout stops scheduled refreshes and clears the cache and credentials.
	Logout(ctx context.Context) error

	// Shutdown stops scheduled refreshes without logging out.
	Shutdown() error

	// State returns the current session snapshot.
	State() domain.SessionState

	// Subscribe registers fn for every state transition.
	// The returned function removes the subscription.
	Subscribe(fn func(domain.SessionState)) (unsubscribe func())

	// ForceRefresh runs a full refresh, bypassing windows and markers.
	ForceRefresh(ctx context.Context) (*domain.RefreshReport, error)

	// CacheStatus reports cache freshness.
	CacheStatus(ctx context.Context) (*domain.CacheStatus, error)

	// RecentReports returns recent refresh reports, newest first.
	RecentReports(ctx context.Context, limit int) ([]domain.RefreshReport, error)

	PortalData
}

// PortalData reads portal data through the cache. A valid cache entry is
// returned as is; a missing or expired one is fetched from the portal and
// cached. All methods return domain.ErrNotAuthenticated when logged out.
type PortalData interface {
	Attendance(ctx context.Context) ([]domain.Course, error)
	ExamSchedule(ctx context.Context) ([]domain.Exam, error)
	Internals(ctx context.Context) ([]domain.InternalMark, error)
	CGPA(ctx context.Context) (*domain.CGPA, error)
	Greeting(ctx context.Context) (*domain.Greeting, error)
}

// NotificationService exposes notification history management.
type NotificationService interface {
	// ResetHistory clears every dedup marker so alerts may fire again.
	ResetHistory(ctx context.Context) (int, error)
}
