package conflict

import (
	"context"
	"time"

	"slothold/models"
	"slothold/services/availability"
	"slothold/services/notification"
	"slothold/services/realtime"
	"slothold/services/reservation"

	"github.com/go-redis/redis/v8"
)

// ConflictResolver validates a detected conflict is still live and applies a
// deterministic strategy to pick exactly one winner, then triggers
// best-effort side effects.
type ConflictResolver interface {
	Resolve(ctx context.Context, slot models.SlotKey, conflictType string, contenders []models.Contender, strategy models.ResolutionStrategy) (*models.ResolveResult, error)
	History(ctx context.Context, limit int64) ([]models.ConflictRecord, error)
}

// DefaultConflictResolver implements ConflictResolver. Like the reservation
// engine it is stateless; conflict records and the audit history live in
// Redis.
type DefaultConflictResolver struct {
	Client       *redis.Client
	Engine       reservation.ReservationEngine
	Dispatcher   notification.Dispatcher // optional, fire-and-forget
	Broadcaster  realtime.Broadcaster    // optional, fire-and-forget
	Alternatives availability.Lookup     // optional, fire-and-forget

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func (r *DefaultConflictResolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
