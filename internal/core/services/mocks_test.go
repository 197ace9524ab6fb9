package services

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
)

// testClock is a settable clock for WithClock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// localAt returns a time on 2026-03-10 in the local timezone.
func localAt(hour, minute int) time.Time {
	return time.Date(2026, time.March, 10, hour, minute, 0, 0, time.Local)
}

// mockKVStore implements driven.KVStore for testing.
type mockKVStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
	delErr error
	casErr error

	// setFailKeys makes Set fail for keys with any of these prefixes.
	setFailKeys []string
	casCalls    int
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: make(map[string][]byte)}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *mockKVStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	for _, prefix := range m.setFailKeys {
		if strings.HasPrefix(key, prefix) {
			return domain.ErrNetwork
		}
	}
	m.data[key] = bytes.Clone(value)
	return nil
}

func (m *mockKVStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, key)
	return nil
}

func (m *mockKVStore) DeleteMany(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mockKVStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *mockKVStore) CompareAndSwap(_ context.Context, key string, oldValue, newValue []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	if m.casErr != nil {
		return false, m.casErr
	}
	current, exists := m.data[key]
	if oldValue == nil {
		if exists {
			return false, nil
		}
	} else if !exists || !bytes.Equal(current, oldValue) {
		return false, nil
	}
	m.data[key] = bytes.Clone(newValue)
	return true, nil
}

func (m *mockKVStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func (m *mockKVStore) keysWithPrefix(prefix string) []string {
	keys, _ := m.Keys(context.Background(), prefix)
	return keys
}

// mockGateway implements driven.Gateway for testing.
type mockGateway struct {
	mu    sync.Mutex
	calls map[domain.DataKind]int

	attendance []domain.Course
	exams      []domain.Exam
	internals  []domain.InternalMark
	cgpa       *domain.CGPA
	greeting   *domain.Greeting

	errs  map[domain.DataKind]error
	delay map[domain.DataKind]time.Duration
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		calls:      make(map[domain.DataKind]int),
		errs:       make(map[domain.DataKind]error),
		delay:      make(map[domain.DataKind]time.Duration),
		attendance: []domain.Course{{Code: "CS101", Name: "Data Structures", Total: 40, Present: 36, Percentage: 90}},
		exams:      []domain.Exam{},
		internals:  []domain.InternalMark{{CourseCode: "CS101", Component: "CAT1", Obtained: 42, Maximum: 50}},
		cgpa:       &domain.CGPA{Value: 8.7, Credits: 96},
		greeting:   &domain.Greeting{Name: "Asha"},
	}
}

func (m *mockGateway) call(ctx context.Context, kind domain.DataKind) error {
	m.mu.Lock()
	m.calls[kind]++
	err := m.errs[kind]
	delay := m.delay[kind]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *mockGateway) callCount(kind domain.DataKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[kind]
}

func (m *mockGateway) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *mockGateway) FetchAttendance(ctx context.Context, _ domain.Credentials) ([]domain.Course, error) {
	if err := m.call(ctx, domain.KindAttendance); err != nil {
		return nil, err
	}
	return m.attendance, nil
}

func (m *mockGateway) FetchExamSchedule(ctx context.Context, _ domain.Credentials) ([]domain.Exam, error) {
	if err := m.call(ctx, domain.KindExamSchedule); err != nil {
		return nil, err
	}
	return m.exams, nil
}

func (m *mockGateway) FetchInternals(ctx context.Context, _ domain.Credentials) ([]domain.InternalMark, error) {
	if err := m.call(ctx, domain.KindInternals); err != nil {
		return nil, err
	}
	return m.internals, nil
}

func (m *mockGateway) FetchCGPA(ctx context.Context, _ domain.Credentials) (*domain.CGPA, error) {
	if err := m.call(ctx, domain.KindCGPA); err != nil {
		return nil, err
	}
	return m.cgpa, nil
}

func (m *mockGateway) FetchGreeting(ctx context.Context, _ domain.Credentials) (*domain.Greeting, error) {
	if err := m.call(ctx, domain.KindGreeting); err != nil {
		return nil, err
	}
	return m.greeting, nil
}

// mockNotifier implements driven.Notifier for testing.
type mockNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (m *mockNotifier) ScheduleImmediate(_ context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) byCategory(category domain.NotificationCategory) []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.sent {
		if n.Category == category {
			out = append(out, n)
		}
	}
	return out
}

// mockReportStore implements driven.ReportStore for testing.
type mockReportStore struct {
	mu        sync.Mutex
	reports   []domain.RefreshReport
	recordErr error
	pruneErr  error
	pruned    int
}

func (m *mockReportStore) RecordReport(_ context.Context, report *domain.RefreshReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.reports = append(m.reports, *report)
	return nil
}

func (m *mockReportStore) History(_ context.Context, limit int) ([]domain.RefreshReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RefreshReport, 0, len(m.reports))
	for i := len(m.reports) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.reports[i])
	}
	return out, nil
}

func (m *mockReportStore) Prune(_ context.Context, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned++
	return m.pruneErr
}

func (m *mockReportStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

// mockPreferences implements PreferenceReader for testing.
type mockPreferences struct {
	prefs domain.NotificationPreferences
	err   error
}

func (m *mockPreferences) NotificationPreferences() (domain.NotificationPreferences, error) {
	return m.prefs, m.err
}

func allEnabled() *mockPreferences {
	return &mockPreferences{prefs: domain.NotificationPreferences{
		AttendanceEnabled:   true,
		ExamEnabled:         true,
		AttendanceThreshold: domain.DefaultAttendanceThreshold,
	}}
}

// mockRunner implements RefreshRunner for testing.
type mockRunner struct {
	mu       sync.Mutex
	triggers []domain.Trigger
	err      error
	delay    time.Duration
}

func (m *mockRunner) RunFullRefresh(_ context.Context, trigger domain.Trigger) (*domain.RefreshReport, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers = append(m.triggers, trigger)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.RefreshReport{Trigger: trigger}, nil
}

func (m *mockRunner) runs() []domain.Trigger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Trigger(nil), m.triggers...)
}

// Ensure mocks implement interfaces
var (
	_ driven.KVStore     = (*mockKVStore)(nil)
	_ driven.Gateway     = (*mockGateway)(nil)
	_ driven.Notifier    = (*mockNotifier)(nil)
	_ driven.ReportStore = (*mockReportStore)(nil)
	_ PreferenceReader   = (*mockPreferences)(nil)
	_ RefreshRunner      = (*mockRunner)(nil)
)
