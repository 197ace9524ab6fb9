package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
	"github.com/custodia-labs/portal-sync/internal/logger"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = 15 * time.Minute

var backgroundLog = logger.For("background")

// Verify interface compliance.
var _ driven.BackgroundScheduler = (*Scheduler)(nil)

// Scheduler runs registered tasks on a fixed interval.
type Scheduler struct {
	scheduler gocron.Scheduler
	interval  time.Duration
	immediate bool

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]gocron.Job // task ID -> job
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStartImmediately runs a task as soon as it is registered.
func WithStartImmediately() Option {
	return func(s *Scheduler) {
		s.immediate = true
	}
}

// NewScheduler creates and starts a scheduler running tasks every interval.
func NewScheduler(interval time.Duration, opts ...Option) (*Scheduler, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	gs, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		scheduler: gs,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(map[string]gocron.Job),
	}
	for _, opt := range opts {
		opt(s)
	}

	gs.Start()
	return s, nil
}

// Register schedules fn under taskID, replacing any previous registration.
func (s *Scheduler) Register(taskID string, fn driven.BackgroundTaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.removeLocked(taskID); err != nil {
		return err
	}

	jobOpts := []gocron.JobOption{
		gocron.WithName(taskID),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if s.immediate {
		jobOpts = append(jobOpts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			s.execute(taskID, fn)
		}),
		jobOpts...,
	)
	if err != nil {
		return fmt.Errorf("register %s: %w", taskID, err)
	}

	s.jobs[taskID] = job
	backgroundLog.Debug("registered %s every %s", taskID, s.interval)
	return nil
}

// Unregister removes taskID.
func (s *Scheduler) Unregister(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(taskID)
}

func (s *Scheduler) removeLocked(taskID string) error {
	job, ok := s.jobs[taskID]
	if !ok {
		return nil
	}
	if err := s.scheduler.RemoveJob(job.ID()); err != nil {
		return fmt.Errorf("unregister %s: %w", taskID, err)
	}
	delete(s.jobs, taskID)
	backgroundLog.Debug("unregistered %s", taskID)
	return nil
}

// Registered reports whether taskID is scheduled.
func (s *Scheduler) Registered(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[taskID]
	return ok
}

// Close cancels running tasks and shuts the scheduler down.
func (s *Scheduler) Close() error {
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}

func (s *Scheduler) execute(taskID string, fn driven.BackgroundTaskFunc) {
	if err := fn(s.ctx); err != nil {
		backgroundLog.Error("task %s failed: %v", taskID, err)
	}
}
