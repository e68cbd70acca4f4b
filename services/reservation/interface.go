package reservation

import (
	"context"
	"time"

	"slothold/models"
	"slothold/services/realtime"

	"github.com/go-redis/redis/v8"
)

// ReservationEngine creates, extends, inspects, releases and converts
// time-bounded holds on bookable slots. It is stateless; all durable state
// lives in the Redis store, so any number of concurrent callers (including
// other processes) may use one engine safely.
type ReservationEngine interface {
	Reserve(ctx context.Context, slot models.SlotKey, holder models.HolderIdentity, estimatedDurationMinutes int, metadata map[string]string) (*models.ReserveResult, error)
	Extend(ctx context.Context, reservationID string, holder models.HolderIdentity, reason string) (*models.ExtendResult, error)
	Status(ctx context.Context, reservationID string) (*models.StatusResult, error)
	ConvertToBooking(ctx context.Context, reservationID, bookingID string) (bool, error)
	Release(ctx context.Context, reservationID string, holder models.HolderIdentity) (bool, error)
	IsSlotAvailable(ctx context.Context, slot models.SlotKey) (bool, error)
	GetByHolder(ctx context.Context, holder models.HolderIdentity) (*models.Reservation, error)
	Get(ctx context.Context, reservationID string) (*models.Reservation, error)
}

// DefaultReservationEngine implements ReservationEngine on Redis.
type DefaultReservationEngine struct {
	Client      *redis.Client
	Broadcaster realtime.Broadcaster // optional, fire-and-forget

	// HoldTTL and ExtensionTTL default to the values in utils/constants.go
	// when zero.
	HoldTTL      time.Duration
	ExtensionTTL time.Duration

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}
