package driving

import "context"

// Scheduler drives refresh checks from one execution context.
// The foreground timer and the background task both implement it and feed
// the same refresh trigger.
type Scheduler interface {
	// Start begins driving refresh checks and returns once running.
	// Starting a running scheduler is a no-op.
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler and waits for an in-flight check.
	Stop() error
}
