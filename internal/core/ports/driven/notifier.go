package driven

import (
	"context"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

// Notifier requests immediate delivery of a local notification.
// Delivery is fire-and-forget: a nil error only means the request was accepted.
type Notifier interface {
	ScheduleImmediate(ctx context.Context, n domain.Notification) error
}
