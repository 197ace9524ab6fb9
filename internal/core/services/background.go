package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driving"
)

// Ensure BackgroundTask implements the interface.
var _ driving.Scheduler = (*BackgroundTask)(nil)

// BackgroundTask registers the scheduled-refresh check with the platform's
// background scheduler. Invocations may arrive late or not at all; the
// refresh trigger makes every invocation safe.
type BackgroundTask struct {
	scheduler driven.BackgroundScheduler
	trigger   *RefreshTrigger
	now       func() time.Time

	mu         sync.Mutex
	registered bool
}

// NewBackgroundTask creates a task. A nil scheduler makes Start and Stop no-ops.
func NewBackgroundTask(scheduler driven.BackgroundScheduler, trigger *RefreshTrigger, opts ...Option) *BackgroundTask {
	o := applyOptions(opts)
	return &BackgroundTask{
		scheduler: scheduler,
		trigger:   trigger,
		now:       o.now,
	}
}

// Start registers the task. Registering twice is a no-op.
func (b *BackgroundTask) Start(_ context.Context) error {
	if b.scheduler == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.registered {
		return nil
	}
	if err := b.scheduler.Register(domain.TaskIDScheduledRefresh, b.Run); err != nil {
		return err
	}
	b.registered = true
	schedulerLog.Debug("background task %s registered", domain.TaskIDScheduledRefresh)
	return nil
}

// Stop unregisters the task.
func (b *BackgroundTask) Stop() error {
	if b.scheduler == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.registered {
		return nil
	}
	b.registered = false
	return b.scheduler.Unregister(domain.TaskIDScheduledRefresh)
}

// Run is one background invocation.
func (b *BackgroundTask) Run(ctx context.Context) error {
	outcome, _, err := b.trigger.MaybeRefresh(ctx, b.now())
	if err != nil {
		schedulerLog.Warn("background refresh failed: %v", err)
		return err
	}
	schedulerLog.Debug("background check: %s", outcome)
	return nil
}
