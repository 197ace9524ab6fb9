package driven

import (
	"context"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

// Gateway wraps the five read operations of the remote portal.
// Every call is idempotent. Failures are network errors (domain.ErrNetwork),
// status errors (*domain.HTTPStatusError) or decode errors (domain.ErrDecodePayload).
type Gateway interface {
	// FetchAttendance returns the attendance report, one Course per row.
	FetchAttendance(ctx context.Context, creds domain.Credentials) ([]domain.Course, error)

	// FetchExamSchedule returns upcoming exams.
	FetchExamSchedule(ctx context.Context, creds domain.Credentials) ([]domain.Exam, error)

	// FetchInternals returns internal assessment marks.
	FetchInternals(ctx context.Context, creds domain.Credentials) ([]domain.InternalMark, error)

	// FetchCGPA returns the cumulative grade summary.
	FetchCGPA(ctx context.Context, creds domain.Credentials) (*domain.CGPA, error)

	// FetchGreeting returns the user-info greeting.
	FetchGreeting(ctx context.Context, creds domain.Credentials) (*domain.Greeting, error)
}
