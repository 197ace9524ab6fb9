package driven

import "context"

// BackgroundTaskFunc is invoked by the background scheduler.
type BackgroundTaskFunc func(ctx context.Context) error

// BackgroundScheduler invokes registered tasks opportunistically,
// independently of the foreground scheduler.
type BackgroundScheduler interface {
	// Register schedules fn under taskID, replacing any previous registration.
	Register(taskID string, fn BackgroundTaskFunc) error

	// Unregister removes taskID. Unregistering an unknown task is not an error.
	Unregister(taskID string) error
}
