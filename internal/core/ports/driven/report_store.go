package driven

import (
	"context"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

// ReportStore persists refresh report history.
type ReportStore interface {
	// RecordReport stores a completed refresh report.
	RecordReport(ctx context.Context, report *domain.RefreshReport) error

	// History returns the most recent reports, newest first.
	History(ctx context.Context, limit int) ([]domain.RefreshReport, error)

	// Prune removes old reports, keeping the most recent 'keep'.
	Prune(ctx context.Context, keep int) error
}
