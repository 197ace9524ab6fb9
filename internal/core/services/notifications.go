package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driving"
	"github.com/custodia-labs/portal-sync/internal/logger"
)

var notifyLog = logger.For("notify")

// dedupClaimValue is stored under a claimed dedup key.
var dedupClaimValue = []byte("1")

// PreferenceReader provides the notification switches.
type PreferenceReader interface {
	NotificationPreferences() (domain.NotificationPreferences, error)
}

// EvaluationResult summarises one evaluation pass.
type EvaluationResult struct {
	// Sent holds every notification accepted by the notifier.
	Sent []domain.Notification

	// Failed counts notifications the notifier rejected.
	Failed int

	// Suppressed counts alerts skipped because their dedup key was already claimed.
	Suppressed int
}

// Ensure NotificationEngine implements the interfaces.
var (
	_ Evaluator                   = (*NotificationEngine)(nil)
	_ driving.NotificationService = (*NotificationEngine)(nil)
)

// NotificationEngine derives alerts from fresh data and sends each at most once.
//
// Low-attendance and exam-reminder alerts are deduplicated per category per
// day, so one alert batch fires per day however many courses qualify.
// Exam-day alerts are deduplicated per exam.
type NotificationEngine struct {
	store    driven.KVStore
	notifier driven.Notifier
	prefs    PreferenceReader
}

// NewNotificationEngine creates an engine.
func NewNotificationEngine(store driven.KVStore, notifier driven.Notifier, prefs PreferenceReader) *NotificationEngine {
	return &NotificationEngine{
		store:    store,
		notifier: notifier,
		prefs:    prefs,
	}
}

// Evaluate checks fresh data against the preferences and sends due alerts.
// A nil field in fresh skips that data kind. Preferences are read before
// anything else; if they cannot be read nothing is sent.
func (n *NotificationEngine) Evaluate(ctx context.Context, now time.Time, fresh domain.FreshData) (*EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluate notifications: %w", err)
	}
	prefs, err := n.prefs.NotificationPreferences()
	if err != nil {
		return nil, fmt.Errorf("evaluate notifications: %w", err)
	}

	result := &EvaluationResult{}
	today := domain.DateOf(now)

	if prefs.AttendanceEnabled && fresh.Attendance != nil {
		n.lowAttendance(ctx, today, fresh.Attendance, prefs.AttendanceThreshold, result)
	}
	if prefs.ExamEnabled && fresh.Exams != nil {
		n.examReminders(ctx, today, fresh.Exams, result)
		n.examDay(ctx, today, fresh.Exams, result)
	}

	if len(result.Sent) > 0 || result.Failed > 0 {
		notifyLog.Info("sent %d, failed %d, suppressed %d", len(result.Sent), result.Failed, result.Suppressed)
	}
	return result, nil
}

func (n *NotificationEngine) lowAttendance(
	ctx context.Context,
	today domain.Date,
	courses []domain.Course,
	threshold float64,
	result *EvaluationResult,
) {
	var low []domain.Course
	for _, c := range courses {
		if c.BelowThreshold(threshold) {
			low = append(low, c)
		}
	}
	if len(low) == 0 {
		return
	}
	if !n.claim(ctx, domain.LowAttendanceKey(today), result) {
		return
	}

	for _, c := range low {
		n.send(ctx, domain.Notification{
			Category: domain.CategoryLowAttendance,
			Title:    "Low attendance: " + courseLabel(c.Code, c.Name),
			Body:     fmt.Sprintf("Attendance is %.1f%%, below the required %.0f%%.", c.Percentage, threshold),
			Priority: domain.PriorityDefault,
		}, result)
	}
}

func (n *NotificationEngine) examReminders(ctx context.Context, today domain.Date, exams []domain.Exam, result *EvaluationResult) {
	tomorrow := today.AddDays(1)
	due := examsOn(exams, tomorrow)
	if len(due) == 0 {
		return
	}
	if !n.claim(ctx, domain.ExamReminderKey(today), result) {
		return
	}

	for _, e := range due {
		n.send(ctx, domain.Notification{
			Category: domain.CategoryExamReminder,
			Title:    "Exam tomorrow: " + e.DisplayName(),
			Body:     examBody(e),
			Priority: domain.PriorityDefault,
		}, result)
	}
}

func (n *NotificationEngine) examDay(ctx context.Context, today domain.Date, exams []domain.Exam, result *EvaluationResult) {
	for _, e := range examsOn(exams, today) {
		if !n.claim(ctx, domain.ExamDayKey(e.CourseCode, e.Date), result) {
			continue
		}
		n.send(ctx, domain.Notification{
			Category: domain.CategoryExamDay,
			Title:    "Exam today: " + e.DisplayName(),
			Body:     examBody(e),
			Priority: domain.PriorityHigh,
		}, result)
	}
}

// claim atomically records key. Returns false if it was already recorded or
// the store failed; a store failure skips the alert rather than risk a duplicate.
// Nothing is claimed once ctx is done, since the send would fail.
func (n *NotificationEngine) claim(ctx context.Context, key domain.DedupKey, result *EvaluationResult) bool {
	if ctx.Err() != nil {
		notifyLog.Debug("skipping %s: %v", key.StorageKey(), ctx.Err())
		return false
	}
	won, err := n.store.CompareAndSwap(ctx, key.StorageKey(), nil, dedupClaimValue)
	if err != nil {
		notifyLog.Warn("skipping %s: could not record dedup key: %v", key.StorageKey(), err)
		return false
	}
	if !won {
		result.Suppressed++
		notifyLog.Debug("already sent %s", key.StorageKey())
	}
	return won
}

func (n *NotificationEngine) send(ctx context.Context, note domain.Notification, result *EvaluationResult) {
	if err := n.notifier.ScheduleImmediate(ctx, note); err != nil {
		result.Failed++
		notifyLog.Warn("failed to send %q: %v", note.Title, err)
		return
	}
	result.Sent = append(result.Sent, note)
}

// ResetHistory removes every dedup key so alerts can fire again.
// Returns the number of keys removed.
func (n *NotificationEngine) ResetHistory(ctx context.Context) (int, error) {
	keys, err := n.store.Keys(ctx, domain.DedupKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("list notification history: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := n.store.DeleteMany(ctx, keys); err != nil {
		return 0, fmt.Errorf("reset notification history: %w", err)
	}
	notifyLog.Info("cleared %d dedup keys", len(keys))
	return len(keys), nil
}

// examsOn returns the exams dated date, ordered by course code.
func examsOn(exams []domain.Exam, date domain.Date) []domain.Exam {
	var out []domain.Exam
	for _, e := range exams {
		if e.Date == date {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CourseCode < out[j].CourseCode
	})
	return out
}

func courseLabel(code, name string) string {
	if name == "" {
		return code
	}
	return name + " (" + code + ")"
}

func examBody(e domain.Exam) string {
	parts := []string{courseLabel(e.CourseCode, e.CourseName), string(e.Date)}
	if e.Session != "" {
		parts = append(parts, e.Session)
	}
	if e.Venue != "" {
		parts = append(parts, e.Venue)
	}
	return strings.Join(parts, " · ")
}
