package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
	"github.com/custodia-labs/portal-sync/internal/logger"
)

const refreshMarkerPrefix = "refresh:marker:"

var triggerLog = logger.For("refresh")

// RefreshRunner runs a full refresh cycle.
type RefreshRunner interface {
	RunFullRefresh(ctx context.Context, trigger domain.Trigger) (*domain.RefreshReport, error)
}

// RefreshTrigger decides whether a scheduled refresh is due and runs it at most
// once per window per calendar day. The foreground and background schedulers
// share one trigger through the key-value store.
type RefreshTrigger struct {
	store  driven.KVStore
	runner RefreshRunner
}

// NewRefreshTrigger creates a trigger that runs refreshes through runner.
func NewRefreshTrigger(store driven.KVStore, runner RefreshRunner) *RefreshTrigger {
	return &RefreshTrigger{
		store:  store,
		runner: runner,
	}
}

func markerKey(st domain.ScheduleType) string {
	return refreshMarkerPrefix + string(st)
}

func encodeMarker(st domain.ScheduleType, date domain.Date) []byte {
	data, _ := json.Marshal(domain.RefreshMarker{ScheduleType: st, LastRunDate: date})
	return data
}

// readMarker returns the decoded marker and its raw bytes.
// raw is nil if the marker does not exist.
func (t *RefreshTrigger) readMarker(ctx context.Context, st domain.ScheduleType) (domain.RefreshMarker, []byte, error) {
	marker := domain.RefreshMarker{ScheduleType: st}

	raw, err := t.store.Get(ctx, markerKey(st))
	if errors.Is(err, domain.ErrNotFound) {
		return marker, nil, nil
	}
	if err != nil {
		return marker, nil, fmt.Errorf("read %s marker: %w", st, err)
	}
	if raw == nil {
		raw = []byte{}
	}
	if err := json.Unmarshal(raw, &marker); err != nil {
		// An unreadable marker never blocks a run; the swap below replaces it.
		triggerLog.Warn("ignoring unreadable %s marker: %v", st, err)
		return domain.RefreshMarker{ScheduleType: st}, raw, nil
	}
	return marker, raw, nil
}

// Marker returns the stored marker for st. A missing marker has an empty LastRunDate.
func (t *RefreshTrigger) Marker(ctx context.Context, st domain.ScheduleType) (domain.RefreshMarker, error) {
	marker, _, err := t.readMarker(ctx, st)
	return marker, err
}

// AlreadyRanToday reports whether the refresh for st already ran on now's calendar date.
func (t *RefreshTrigger) AlreadyRanToday(ctx context.Context, st domain.ScheduleType, now time.Time) (bool, error) {
	marker, err := t.Marker(ctx, st)
	if err != nil {
		return false, err
	}
	return marker.RanOn(domain.DateOf(now)), nil
}

// MaybeRefresh runs a full refresh if now is inside a window whose refresh has
// not run today. The marker is claimed with a compare-and-swap before the
// refresh starts, so concurrent callers run the body at most once.
//
// If the refresh fails because no credentials are stored, or ctx ends before
// the cycle completes, the claim is released so a later check can retry. Any
// other outcome, including partial fetch failures, keeps the window marked as
// done.
func (t *RefreshTrigger) MaybeRefresh(ctx context.Context, now time.Time) (domain.RefreshOutcome, *domain.RefreshReport, error) {
	st := domain.WindowAt(now)
	if st == domain.ScheduleNone {
		return domain.OutcomeOutsideWindow, nil, nil
	}

	today := domain.DateOf(now)
	marker, prev, err := t.readMarker(ctx, st)
	if err != nil {
		return "", nil, err
	}
	if marker.RanOn(today) {
		return domain.OutcomeAlreadyRan, nil, nil
	}

	claim := encodeMarker(st, today)
	won, err := t.store.CompareAndSwap(ctx, markerKey(st), prev, claim)
	if err != nil {
		return "", nil, fmt.Errorf("claim %s marker: %w", st, err)
	}
	if !won {
		triggerLog.Debug("%s refresh claimed by another context", st)
		return domain.OutcomeAlreadyRan, nil, nil
	}

	triggerLog.Info("running %s refresh for %s", st, today)
	report, err := t.runner.RunFullRefresh(ctx, st.Trigger())
	if err != nil {
		if errors.Is(err, domain.ErrCredentialsMissing) {
			t.release(ctx, st, claim, prev)
		}
		return "", nil, fmt.Errorf("%s refresh: %w", st, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		t.release(ctx, st, claim, prev)
		return "", report, fmt.Errorf("%s refresh interrupted: %w", st, ctxErr)
	}
	return domain.OutcomeRefreshed, report, nil
}

// release restores the marker that was in place before claim.
func (t *RefreshTrigger) release(ctx context.Context, st domain.ScheduleType, claim, prev []byte) {
	restore := prev
	if len(restore) == 0 {
		restore = encodeMarker(st, "")
	}
	ok, err := t.store.CompareAndSwap(context.WithoutCancel(ctx), markerKey(st), claim, restore)
	switch {
	case err != nil:
		triggerLog.Warn("could not release %s marker: %v", st, err)
	case !ok:
		triggerLog.Warn("%s marker changed while refreshing, not released", st)
	default:
		triggerLog.Debug("released %s marker", st)
	}
}
