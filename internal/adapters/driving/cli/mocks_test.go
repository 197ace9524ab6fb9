package cli

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driving"
)

// mockSession implements driving.SessionService for testing.
type mockSession struct {
	mu sync.Mutex

	state      domain.SessionState
	initErr    error
	loginErr   error
	logoutErr  error
	report     *domain.RefreshReport
	refreshErr error
	status     *domain.CacheStatus
	reports    []domain.RefreshReport

	attendance []domain.Course
	exams      []domain.Exam
	internals  []domain.InternalMark
	cgpa       *domain.CGPA
	greeting   *domain.Greeting
	dataErr    error
	dataReads  int

	loggedIn  *domain.Credentials
	shutdowns int
}

var _ driving.SessionService = (*mockSession)(nil)

func (m *mockSession) Initialize(_ context.Context) error {
	return m.initErr
}

func (m *mockSession) Login(_ context.Context, creds domain.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	if m.loginErr != nil {
		return m.loginErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loggedIn = &creds
	m.state = domain.SessionState{Phase: domain.PhaseAuthenticated, UserID: creds.UserID}
	return nil
}

func (m *mockSession) Logout(_ context.Context) error {
	if m.logoutErr != nil {
		return m.logoutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.IsAuthenticated() {
		return domain.ErrNotAuthenticated
	}
	m.state = domain.SessionState{Phase: domain.PhaseUnauthenticated}
	return nil
}

func (m *mockSession) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdowns++
	return nil
}

func (m *mockSession) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockSession) Subscribe(_ func(domain.SessionState)) func() {
	return func() {}
}

func (m *mockSession) ForceRefresh(_ context.Context) (*domain.RefreshReport, error) {
	if !m.State().IsAuthenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	return m.report, m.refreshErr
}

func (m *mockSession) CacheStatus(_ context.Context) (*domain.CacheStatus, error) {
	if m.status == nil {
		return &domain.CacheStatus{Stale: true, Kinds: map[domain.DataKind]domain.KindStatus{}}, nil
	}
	return m.status, nil
}

func (m *mockSession) RecentReports(_ context.Context, limit int) ([]domain.RefreshReport, error) {
	if limit < len(m.reports) {
		return m.reports[:limit], nil
	}
	return m.reports, nil
}

// read mimics the session's read-through: logged-out reads fail.
func (m *mockSession) read() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dataReads++
	if !m.state.IsAuthenticated() {
		return domain.ErrNotAuthenticated
	}
	return m.dataErr
}

func (m *mockSession) Attendance(_ context.Context) ([]domain.Course, error) {
	if err := m.read(); err != nil {
		return nil, err
	}
	return m.attendance, nil
}

func (m *mockSession) ExamSchedule(_ context.Context) ([]domain.Exam, error) {
	if err := m.read(); err != nil {
		return nil, err
	}
	return m.exams, nil
}

func (m *mockSession) Internals(_ context.Context) ([]domain.InternalMark, error) {
	if err := m.read(); err != nil {
		return nil, err
	}
	return m.internals, nil
}

func (m *mockSession) CGPA(_ context.Context) (*domain.CGPA, error) {
	if err := m.read(); err != nil {
		return nil, err
	}
	return m.cgpa, nil
}

func (m *mockSession) Greeting(_ context.Context) (*domain.Greeting, error) {
	if err := m.read(); err != nil {
		return nil, err
	}
	return m.greeting, nil
}

func authenticated(userID string) domain.SessionState {
	return domain.SessionState{
		Phase:         domain.PhaseAuthenticated,
		UserID:        userID,
		LastLoginTime: time.Date(2026, time.March, 9, 9, 0, 0, 0, time.Local),
	}
}

// mockSettings implements driving.SettingsService for testing.
type mockSettings struct {
	settings domain.AppSettings
	prefsErr error
	setErr   error
	values   map[string]string
}

var _ driving.SettingsService = (*mockSettings)(nil)

func newMockSettings() *mockSettings {
	return &mockSettings{settings: domain.DefaultAppSettings(), values: make(map[string]string)}
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettings) NotificationPreferences() (domain.NotificationPreferences, error) {
	return m.settings.Notifications, m.prefsErr
}

func (m *mockSettings) SetNotificationPreferences(prefs domain.NotificationPreferences) error {
	m.settings.Notifications = prefs
	return nil
}

func (m *mockSettings) SetValue(key, raw string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = raw
	return nil
}

func (m *mockSettings) Keys() []string {
	return []string{"notifications.attendance_threshold", "storage.backend"}
}

func (m *mockSettings) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettings) ConfigPath() string {
	return "/tmp/portalsync/config.toml"
}

// mockNotifications implements driving.NotificationService for testing.
type mockNotifications struct {
	cleared int
	err     error
}

var _ driving.NotificationService = (*mockNotifications)(nil)

func (m *mockNotifications) ResetHistory(_ context.Context) (int, error) {
	return m.cleared, m.err
}

// setupTestServices installs mocks and returns a cleanup function.
func setupTestServices(session *mockSession, settings *mockSettings, notifications *mockNotifications) func() {
	oldSession, oldSettings, oldNotifications := sessionService, settingsService, notificationService
	oldLifecycle, oldWatcher := lifecycle, configWatcher

	SetServices(Services{})
	if session != nil {
		sessionService = session
	}
	if settings != nil {
		settingsService = settings
	}
	if notifications != nil {
		notificationService = notifications
	}

	return func() {
		sessionService, settingsService, notificationService = oldSession, oldSettings, oldNotifications
		lifecycle, configWatcher = oldLifecycle, oldWatcher
	}
}
