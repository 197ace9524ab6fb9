package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
)

// timeLayout is fixed width so stored timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// reportStore implements driven.ReportStore.
type reportStore struct {
	store *Store
}

var _ driven.ReportStore = (*reportStore)(nil)

// RecordReport stores a refresh report.
func (s *reportStore) RecordReport(ctx context.Context, report *domain.RefreshReport) error {
	if report == nil || report.ID == "" {
		return domain.ErrInvalidInput
	}

	outcomes, err := json.Marshal(report.Outcomes)
	if err != nil {
		return fmt.Errorf("marshalling outcomes: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO refresh_reports (id, trigger_name, started_at, ended_at, success_count, outcomes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			trigger_name = excluded.trigger_name,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			success_count = excluded.success_count,
			outcomes = excluded.outcomes
	`, report.ID,
		string(report.Trigger),
		report.StartedAt.UTC().Format(timeLayout),
		report.EndedAt.UTC().Format(timeLayout),
		report.SuccessCount(),
		string(outcomes))

	if err != nil {
		return fmt.Errorf("recording refresh report: %w", err)
	}
	return nil
}

// History returns recent reports, most recent first.
func (s *reportStore) History(ctx context.Context, limit int) ([]domain.RefreshReport, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, trigger_name, started_at, ended_at, outcomes
		FROM refresh_reports
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying refresh history: %w", err)
	}
	defer rows.Close()

	var reports []domain.RefreshReport //nolint:prealloc // size unknown from query
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating refresh history: %w", err)
	}

	return reports, nil
}

// Prune removes old reports beyond the retention limit.
func (s *reportStore) Prune(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM refresh_reports
		WHERE id NOT IN (
			SELECT id FROM refresh_reports ORDER BY started_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning refresh history: %w", err)
	}
	return nil
}

// scanReport scans a refresh report from *sql.Rows.
func scanReport(rows *sql.Rows) (*domain.RefreshReport, error) {
	var report domain.RefreshReport
	var trigger, startedAt, endedAt, outcomes string

	if err := rows.Scan(&report.ID, &trigger, &startedAt, &endedAt, &outcomes); err != nil {
		return nil, fmt.Errorf("scanning refresh report: %w", err)
	}

	report.Trigger = domain.Trigger(trigger)
	if t, err := time.Parse(timeLayout, startedAt); err == nil {
		report.StartedAt = t
	}
	if t, err := time.Parse(timeLayout, endedAt); err == nil {
		report.EndedAt = t
	}
	if err := json.Unmarshal([]byte(outcomes), &report.Outcomes); err != nil {
		return nil, fmt.Errorf("unmarshalling outcomes of %s: %w", report.ID, err)
	}

	return &report, nil
}
