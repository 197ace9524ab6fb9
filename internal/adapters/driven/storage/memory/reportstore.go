package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
)

// Ensure ReportStore implements the interface.
var _ driven.ReportStore = (*ReportStore)(nil)

// ReportStore is an in-memory implementation of driven.ReportStore.
type ReportStore struct {
	mu      sync.RWMutex
	reports []domain.RefreshReport
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{}
}

// RecordReport stores a copy of report.
func (s *ReportStore) RecordReport(_ context.Context, report *domain.RefreshReport) error {
	if report == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *report
	cp.Outcomes = append([]domain.FetchOutcome(nil), report.Outcomes...)
	s.reports = append(s.reports, cp)
	return nil
}

// History returns the most recent reports, newest first.
func (s *ReportStore) History(_ context.Context, limit int) ([]domain.RefreshReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := append([]domain.RefreshReport(nil), s.reports...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.After(sorted[j].StartedAt)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// Prune keeps only the most recent 'keep' reports.
func (s *ReportStore) Prune(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.reports) <= keep {
		return nil
	}
	sort.SliceStable(s.reports, func(i, j int) bool {
		return s.reports[i].StartedAt.Before(s.reports[j].StartedAt)
	})
	s.reports = append([]domain.RefreshReport(nil), s.reports[len(s.reports)-keep:]...)
	return nil
}
