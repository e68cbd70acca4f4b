package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"slothold/models"
	"slothold/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroadcaster(t *testing.T) (*RedisBroadcaster, *redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return &RedisBroadcaster{Client: client}, client, mr
}

func testSlot() models.SlotKey {
	return models.SlotKey{
		DateTime:    time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC),
		ServiceType: "Cleaning",
	}
}

func TestBroadcastSlotUpdate(t *testing.T) {
	broadcaster, client, _ := newTestBroadcaster(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, SlotUpdatesChannel)
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	// Two tracked viewers should show up in the published update.
	_, err = broadcaster.TrackViewer(ctx, testSlot())
	require.NoError(t, err)
	count, err := broadcaster.TrackViewer(ctx, testSlot())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	err = broadcaster.BroadcastSlotUpdate(ctx, testSlot(), false, "res-1")
	require.NoError(t, err)

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(recvCtx)
	require.NoError(t, err)

	var update models.SlotUpdate
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &update))
	assert.Equal(t, testSlot().String(), update.Slot.String())
	assert.False(t, update.Available)
	assert.Equal(t, "res-1", update.WinningReservationID)
	assert.Equal(t, int64(2), update.ViewerCount)
}

func TestTrackViewer(t *testing.T) {
	broadcaster, _, mr := newTestBroadcaster(t)
	ctx := context.Background()

	count, err := broadcaster.TrackViewer(ctx, testSlot())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The counter is short-lived so idle viewers age out of the count.
	key := utils.SlotViewersPrefix + testSlot().String()
	assert.Equal(t, viewerCountTTL, mr.TTL(key))

	mr.FastForward(viewerCountTTL + time.Second)
	count, err = broadcaster.TrackViewer(ctx, testSlot())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
