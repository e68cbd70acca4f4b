package notification

import (
	"context"

	"slothold/models"
)

// TypeHolderNotify is the asynq task type for holder outcome notifications.
const TypeHolderNotify = "notify:holder"

// Dispatcher delivers reservation and conflict outcomes to holders. It is a
// fire-and-forget collaborator: callers log failures and never let them
// change an already-decided result.
type Dispatcher interface {
	Notify(ctx context.Context, holder models.HolderIdentity, outcome, reason string, metadata map[string]string) error
}
