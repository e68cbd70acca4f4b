package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"slothold/models"
	"slothold/utils"

	"github.com/go-redis/redis/v8"
)

// SlotUpdatesChannel carries slot availability updates to websocket
// gateways and other subscribed consumers.
const SlotUpdatesChannel = "slots:updates"

// viewerCountTTL keeps the per-slot viewer counters short-lived; a viewer
// that stops polling drops out of the count within this window.
const viewerCountTTL = 30 * time.Second

// Broadcaster pushes slot availability changes to interested viewers.
// Implementations are fire-and-forget collaborators: callers log failures
// and never let them affect reservation outcomes.
type Broadcaster interface {
	BroadcastSlotUpdate(ctx context.Context, slot models.SlotKey, available bool, winningReservationID string) error
}

// RedisBroadcaster publishes slot updates over Redis pub/sub.
type RedisBroadcaster struct {
	Client *redis.Client
}

func (b *RedisBroadcaster) BroadcastSlotUpdate(ctx context.Context, slot models.SlotKey, available bool, winningReservationID string) error {
	viewers, err := b.Client.Get(ctx, utils.SlotViewersPrefix+slot.String()).Int64()
	if err != nil && err != redis.Nil {
		viewers = 0
	}

	update := models.SlotUpdate{
		Slot:                 slot,
		Available:            available,
		WinningReservationID: winningReservationID,
		ViewerCount:          viewers,
		UpdatedAt:            time.Now(),
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal slot update: %w", err)
	}
	if err := b.Client.Publish(ctx, SlotUpdatesChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish slot update: %w", err)
	}
	return nil
}

// TrackViewer bumps the short-lived viewer counter for a slot and returns
// the current count. Fed into the viewerCount field of broadcasts.
func (b *RedisBroadcaster) TrackViewer(ctx context.Context, slot models.SlotKey) (int64, error) {
	key := utils.SlotViewersPrefix + slot.String()
	pipe := b.Client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, viewerCountTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to track slot viewer: %w", err)
	}
	return incr.Val(), nil
}
