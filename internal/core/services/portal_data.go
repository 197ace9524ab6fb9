package services

import (
	"context"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

// Attendance returns the attendance report, fetching it on a cache miss.
func (m *SessionManager) Attendance(ctx context.Context) ([]domain.Course, error) {
	return readThrough(ctx, m, domain.KindAttendance, m.gateway.FetchAttendance)
}

// ExamSchedule returns upcoming exams, fetching them on a cache miss.
func (m *SessionManager) ExamSchedule(ctx context.Context) ([]domain.Exam, error) {
	return readThrough(ctx, m, domain.KindExamSchedule, m.gateway.FetchExamSchedule)
}

// Internals returns internal assessment marks, fetching them on a cache miss.
func (m *SessionManager) Internals(ctx context.Context) ([]domain.InternalMark, error) {
	return readThrough(ctx, m, domain.KindInternals, m.gateway.FetchInternals)
}

// CGPA returns the grade summary, fetching it on a cache miss.
func (m *SessionManager) CGPA(ctx context.Context) (*domain.CGPA, error) {
	return readThrough(ctx, m, domain.KindCGPA, m.gateway.FetchCGPA)
}

// Greeting returns the user greeting, fetching it on a cache miss.
func (m *SessionManager) Greeting(ctx context.Context) (*domain.Greeting, error) {
	return readThrough(ctx, m, domain.KindGreeting, m.gateway.FetchGreeting)
}

// readThrough serves kind from the cache and falls back to the gateway with
// the stored credentials. Gateway errors are returned unchanged.
func readThrough[T any](
	ctx context.Context,
	m *SessionManager,
	kind domain.DataKind,
	fetch func(ctx context.Context, creds domain.Credentials) (T, error),
) (T, error) {
	var zero T
	if !m.State().IsAuthenticated() {
		return zero, domain.ErrNotAuthenticated
	}
	return GetOrFetch(ctx, m.cache, kind, func(ctx context.Context) (T, error) {
		creds, err := m.vault.Load(ctx)
		if err != nil {
			return zero, err
		}
		sessionLog.Debug("%s not cached, fetching", kind)
		return fetch(ctx, *creds)
	})
}
