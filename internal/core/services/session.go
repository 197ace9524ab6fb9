package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driving"
	"github.com/custodia-labs/portal-sync/internal/logger"
)

var sessionLog = logger.For("session")

// Ensure SessionManager implements the interface.
var _ driving.SessionService = (*SessionManager)(nil)

// SessionManager owns the session state machine and the lifetime of both
// schedulers. Transitions are serialised; subscribers are notified after
// every transition, outside the lock.
type SessionManager struct {
	vault      *CredentialVault
	cache      *CacheService
	gateway    driven.Gateway
	runner     RefreshRunner
	reports    driven.ReportStore
	foreground driving.Scheduler
	background driving.Scheduler
	appVersion string
	now        func() time.Time

	// transition serialises Initialize, Login and Logout.
	transition sync.Mutex

	mu           sync.RWMutex
	state        domain.SessionState
	subscribers  map[int]func(domain.SessionState)
	nextSubID    int
	inBackground bool
	cancelSched  context.CancelFunc
}

// NewSessionManager creates a session manager in the uninitialized phase.
// gateway serves cache misses of the data reads. reports, foreground and
// background may be nil.
func NewSessionManager(
	vault *CredentialVault,
	cache *CacheService,
	gateway driven.Gateway,
	runner RefreshRunner,
	reports driven.ReportStore,
	foreground driving.Scheduler,
	background driving.Scheduler,
	appVersion string,
	opts ...Option,
) *SessionManager {
	o := applyOptions(opts)
	return &SessionManager{
		vault:       vault,
		cache:       cache,
		gateway:     gateway,
		runner:      runner,
		reports:     reports,
		foreground:  foreground,
		background:  background,
		appVersion:  appVersion,
		now:         o.now,
		state:       domain.SessionState{Phase: domain.PhaseUninitialized},
		subscribers: make(map[int]func(domain.SessionState)),
	}
}

// State returns the current session snapshot.
func (m *SessionManager) State() domain.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe registers fn for every state transition.
func (m *SessionManager) Subscribe(fn func(domain.SessionState)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// setState applies a transition and notifies subscribers.
func (m *SessionManager) setState(next domain.SessionState) error {
	m.mu.Lock()
	if !m.state.Phase.CanTransition(next.Phase) {
		from := m.state.Phase
		m.mu.Unlock()
		return fmt.Errorf("%w: session %s -> %s", domain.ErrInvalidInput, from, next.Phase)
	}
	m.state = next
	subs := make([]func(domain.SessionState), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	sessionLog.Debug("phase %s", next.Phase)
	for _, fn := range subs {
		fn(next)
	}
	return nil
}

// Initialize restores the session from persisted credentials without
// contacting the portal. A version change clears the cache first.
func (m *SessionManager) Initialize(ctx context.Context) error {
	m.transition.Lock()
	defer m.transition.Unlock()

	if m.State().Phase != domain.PhaseUninitialized {
		return nil
	}
	if err := m.setState(domain.SessionState{Phase: domain.PhaseLoading}); err != nil {
		return err
	}

	if cleared, err := m.cache.EnsureVersion(ctx, m.appVersion); err != nil {
		sessionLog.Warn("version check failed: %v", err)
	} else if cleared {
		sessionLog.Info("cache cleared after upgrade to %s", m.appVersion)
	}

	creds, err := m.vault.Load(ctx)
	if errors.Is(err, domain.ErrCredentialsMissing) {
		return m.setState(domain.SessionState{Phase: domain.PhaseUnauthenticated})
	}
	if err != nil {
		_ = m.setState(domain.SessionState{Phase: domain.PhaseUnauthenticated})
		return fmt.Errorf("initialize session: %w", err)
	}

	if err := m.startSchedulers(ctx); err != nil {
		sessionLog.Warn("failed to start schedulers: %v", err)
	}
	return m.setState(domain.SessionState{
		Phase:         domain.PhaseAuthenticated,
		UserID:        creds.UserID,
		LastLoginTime: m.vault.LastLogin(ctx),
	})
}

// Login stores credentials, warms the cache and starts scheduled refreshes.
// A failed warm-up refresh does not fail the login.
func (m *SessionManager) Login(ctx context.Context, creds domain.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	m.transition.Lock()
	defer m.transition.Unlock()

	switch m.State().Phase {
	case domain.PhaseAuthenticated:
		return domain.ErrAlreadyAuthenticated
	case domain.PhaseUninitialized:
		return fmt.Errorf("%w: session not initialized", domain.ErrInvalidInput)
	}

	if err := m.setState(domain.SessionState{Phase: domain.PhaseLoading}); err != nil {
		return err
	}

	loginTime := m.now()
	creds.SavedAt = loginTime
	if err := m.vault.Save(ctx, creds); err != nil {
		_ = m.setState(domain.SessionState{Phase: domain.PhaseUnauthenticated})
		return fmt.Errorf("login: %w", err)
	}
	if err := m.vault.RecordLogin(ctx, loginTime); err != nil {
		sessionLog.Warn("failed to record login time: %v", err)
	}

	if report, err := m.runner.RunFullRefresh(ctx, domain.TriggerLogin); err != nil {
		sessionLog.Warn("initial refresh failed: %v", err)
	} else {
		sessionLog.Info("initial refresh: %d/%d succeeded", report.SuccessCount(), len(report.Outcomes))
	}

	if err := m.startSchedulers(ctx); err != nil {
		sessionLog.Warn("failed to start schedulers: %v", err)
	}

	return m.setState(domain.SessionState{
		Phase:         domain.PhaseAuthenticated,
		UserID:        creds.UserID,
		LastLoginTime: loginTime,
	})
}

// Logout stops scheduled refreshes and clears the cache and credentials.
// Every step runs even if an earlier one fails; the session always ends
// unauthenticated and the failures are returned joined.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.transition.Lock()
	defer m.transition.Unlock()

	if !m.State().IsAuthenticated() {
		return domain.ErrNotAuthenticated
	}
	if err := m.setState(domain.SessionState{Phase: domain.PhaseLoading}); err != nil {
		return err
	}

	var errs []error
	if err := m.stopSchedulers(); err != nil {
		errs = append(errs, err)
	}
	if err := m.cache.ClearAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.vault.Clear(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := m.setState(domain.SessionState{Phase: domain.PhaseUnauthenticated}); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Shutdown stops scheduled refreshes without logging out.
func (m *SessionManager) Shutdown() error {
	m.transition.Lock()
	defer m.transition.Unlock()
	return m.stopSchedulers()
}

// EnterBackground pauses the foreground scheduler. The background task keeps running.
func (m *SessionManager) EnterBackground() error {
	m.mu.Lock()
	m.inBackground = true
	m.mu.Unlock()

	if m.foreground == nil {
		return nil
	}
	return m.foreground.Stop()
}

// EnterForeground resumes the foreground scheduler if the session is authenticated.
func (m *SessionManager) EnterForeground(ctx context.Context) error {
	m.mu.Lock()
	m.inBackground = false
	m.mu.Unlock()

	if m.foreground == nil || !m.State().IsAuthenticated() {
		return nil
	}
	return m.foreground.Start(m.schedulerContext(ctx))
}

// ForceRefresh runs a full refresh, bypassing windows and markers.
func (m *SessionManager) ForceRefresh(ctx context.Context) (*domain.RefreshReport, error) {
	if !m.State().IsAuthenticated() {
		return nil, domain.ErrNotAuthenticated
	}
	return m.runner.RunFullRefresh(ctx, domain.TriggerManual)
}

// CacheStatus reports cache freshness.
func (m *SessionManager) CacheStatus(ctx context.Context) (*domain.CacheStatus, error) {
	return m.cache.Status(ctx)
}

// RecentReports returns recent refresh reports, newest first.
func (m *SessionManager) RecentReports(ctx context.Context, limit int) ([]domain.RefreshReport, error) {
	if m.reports == nil {
		return nil, nil
	}
	return m.reports.History(ctx, limit)
}

// schedulerContext returns a context that outlives the caller's request and
// is cancelled by stopSchedulers.
func (m *SessionManager) schedulerContext(ctx context.Context) context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelSched != nil {
		m.cancelSched()
	}
	schedCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancelSched = cancel
	return schedCtx
}

func (m *SessionManager) startSchedulers(ctx context.Context) error {
	schedCtx := m.schedulerContext(ctx)

	m.mu.RLock()
	inBackground := m.inBackground
	m.mu.RUnlock()

	var errs []error
	if m.foreground != nil && !inBackground {
		if err := m.foreground.Start(schedCtx); err != nil {
			errs = append(errs, fmt.Errorf("foreground scheduler: %w", err))
		}
	}
	if m.background != nil {
		if err := m.background.Start(schedCtx); err != nil {
			errs = append(errs, fmt.Errorf("background task: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (m *SessionManager) stopSchedulers() error {
	var errs []error
	if m.foreground != nil {
		if err := m.foreground.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("foreground scheduler: %w", err))
		}
	}
	if m.background != nil {
		if err := m.background.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("background task: %w", err))
		}
	}

	m.mu.Lock()
	if m.cancelSched != nil {
		m.cancelSched()
		m.cancelSched = nil
	}
	m.mu.Unlock()

	return errors.Join(errs...)
}
