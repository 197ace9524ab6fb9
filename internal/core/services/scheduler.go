package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driving"
	"github.com/custodia-labs/portal-sync/internal/logger"
)

var schedulerLog = logger.For("scheduler")

// Ensure ForegroundScheduler implements the interface.
var _ driving.Scheduler = (*ForegroundScheduler)(nil)

// ForegroundScheduler polls the refresh trigger on a fixed interval while
// the process is in the foreground.
type ForegroundScheduler struct {
	config  domain.SchedulerConfig
	trigger *RefreshTrigger
	now     func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewForegroundScheduler creates a scheduler with configuration.
func NewForegroundScheduler(
	config domain.SchedulerConfig,
	trigger *RefreshTrigger,
	opts ...Option,
) *ForegroundScheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = domain.DefaultSchedulerConfig().PollInterval
	}
	o := applyOptions(opts)
	return &ForegroundScheduler{
		config:  config,
		trigger: trigger,
		now:     o.now,
	}
}

// Start begins the polling loop and returns immediately.
// The first check runs right away.
func (s *ForegroundScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.run(ctx, s.stopCh)

	schedulerLog.Debug("foreground polling every %s", s.config.PollInterval)
	return nil
}

// Stop gracefully shuts down the scheduler and waits for an in-flight check.
func (s *ForegroundScheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()

	return nil
}

// Running reports whether the polling loop is active.
func (s *ForegroundScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// run is the main scheduler loop.
func (s *ForegroundScheduler) run(ctx context.Context, stopCh chan struct{}) {
	defer s.wg.Done()

	// Check immediately on startup
	s.check(ctx)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.stopCh == stopCh && s.running {
				s.running = false
				close(stopCh)
			}
			s.mu.Unlock()
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// check asks the trigger whether a refresh is due.
func (s *ForegroundScheduler) check(ctx context.Context) {
	outcome, report, err := s.trigger.MaybeRefresh(ctx, s.now())
	if err != nil {
		schedulerLog.Warn("scheduled refresh failed: %v", err)
		return
	}
	if outcome == domain.OutcomeRefreshed {
		schedulerLog.Info("scheduled refresh %s: %d/%d succeeded",
			report.Trigger, report.SuccessCount(), len(report.Outcomes))
	}
}
