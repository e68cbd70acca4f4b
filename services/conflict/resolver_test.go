package conflict

import (
	"context"
	"sync"
	"testing"
	"time"

	"slothold/models"
	"slothold/services/reservation"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifyCall struct {
	holder  models.HolderIdentity
	outcome string
	reason  string
}

// fakeDispatcher records notifications so the detached side effects can be
// asserted on.
type fakeDispatcher struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (f *fakeDispatcher) Notify(ctx context.Context, holder models.HolderIdentity, outcome, reason string, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifyCall{holder: holder, outcome: outcome, reason: reason})
	return nil
}

func (f *fakeDispatcher) snapshot() []notifyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifyCall(nil), f.calls...)
}

type slotUpdate struct {
	slot      models.SlotKey
	available bool
	winningID string
}

// fakeBroadcaster records slot updates published by the resolution side
// effects.
type fakeBroadcaster struct {
	mu      sync.Mutex
	updates []slotUpdate
}

func (f *fakeBroadcaster) BroadcastSlotUpdate(ctx context.Context, slot models.SlotKey, available bool, winningReservationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, slotUpdate{slot: slot, available: available, winningID: winningReservationID})
	return nil
}

func (f *fakeBroadcaster) snapshot() []slotUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]slotUpdate(nil), f.updates...)
}

func newTestResolver(t *testing.T) (*DefaultConflictResolver, *reservation.DefaultReservationEngine, *fakeDispatcher, *fakeBroadcaster) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	engine := &reservation.DefaultReservationEngine{Client: client, Now: clock}
	dispatcher := &fakeDispatcher{}
	broadcaster := &fakeBroadcaster{}
	resolver := &DefaultConflictResolver{
		Client:      client,
		Engine:      engine,
		Dispatcher:  dispatcher,
		Broadcaster: broadcaster,
		Now:         clock,
	}
	return resolver, engine, dispatcher, broadcaster
}

func conflictSlot() models.SlotKey {
	return models.SlotKey{
		DateTime:    time.Date(2026, 9, 3, 10, 0, 0, 0, time.UTC),
		ServiceType: "Cleaning",
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	holderA := models.HolderIdentity{UserID: "user-a"}
	holderB := models.HolderIdentity{UserID: "user-b"}

	t.Run("resolves a live conflict and persists the record", func(t *testing.T) {
		resolver, engine, dispatcher, broadcaster := newTestResolver(t)

		reserved, err := engine.Reserve(ctx, conflictSlot(), holderA, 60, nil)
		require.NoError(t, err)
		require.True(t, reserved.Success)

		contenders := []models.Contender{
			{Holder: holderB, ClaimedAt: time.Date(2026, 9, 1, 8, 59, 0, 0, time.UTC)},
			{Holder: holderA, ClaimedAt: time.Date(2026, 9, 1, 8, 58, 0, 0, time.UTC)},
		}
		result, err := resolver.Resolve(ctx, conflictSlot(), "double_claim", contenders, models.StrategyFirstComeFirstServed)
		require.NoError(t, err)
		require.True(t, result.Success)
		require.NotNil(t, result.Conflict)
		assert.Equal(t, models.ConflictResolved, result.Conflict.Status)

		require.NotNil(t, result.Conflict.Result)
		require.NotNil(t, result.Conflict.Result.Winner)
		assert.Equal(t, holderA, result.Conflict.Result.Winner.Holder)
		assert.Equal(t, reserved.Reservation.ID, result.Conflict.Result.WinningReservationID)
		require.Len(t, result.Conflict.Result.Losers, 1)
		assert.Equal(t, holderB, result.Conflict.Result.Losers[0].Holder)

		history, err := resolver.History(ctx, 50)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, result.Conflict.ID, history[0].ID)

		// Notifications run detached; wait for both outcomes to land.
		require.Eventually(t, func() bool {
			return len(dispatcher.snapshot()) == 2
		}, 2*time.Second, 10*time.Millisecond)
		outcomes := make(map[string]string)
		for _, call := range dispatcher.snapshot() {
			outcomes[call.holder.String()] = call.outcome
		}
		assert.Equal(t, "won", outcomes[holderA.String()])
		assert.Equal(t, "lost", outcomes[holderB.String()])

		// The winner keeps the slot, so the broadcast reports it unavailable.
		require.Eventually(t, func() bool {
			return len(broadcaster.snapshot()) >= 1
		}, 2*time.Second, 10*time.Millisecond)
		updates := broadcaster.snapshot()
		last := updates[len(updates)-1]
		assert.False(t, last.available)
		assert.Equal(t, reserved.Reservation.ID, last.winningID)
	})

	t.Run("short-circuits when the slot is free", func(t *testing.T) {
		resolver, _, _, _ := newTestResolver(t)

		contenders := []models.Contender{{Holder: holderA, ClaimedAt: time.Now()}}
		result, err := resolver.Resolve(ctx, conflictSlot(), "double_claim", contenders, models.StrategyFirstComeFirstServed)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, reservation.CodeStaleConflict, result.Code)
		assert.Equal(t, "already resolved by another process", result.Message)
	})

	t.Run("short-circuits when no contender holds the slot", func(t *testing.T) {
		resolver, engine, _, _ := newTestResolver(t)

		// The slot is locked, but by someone outside the contender list.
		outsider := models.HolderIdentity{UserID: "outsider"}
		_, err := engine.Reserve(ctx, conflictSlot(), outsider, 60, nil)
		require.NoError(t, err)

		contenders := []models.Contender{{Holder: holderA, ClaimedAt: time.Now()}}
		result, err := resolver.Resolve(ctx, conflictSlot(), "double_claim", contenders, models.StrategyFirstComeFirstServed)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, reservation.CodeStaleConflict, result.Code)
	})

	t.Run("manual strategy parks the conflict for review", func(t *testing.T) {
		resolver, engine, _, broadcaster := newTestResolver(t)

		_, err := engine.Reserve(ctx, conflictSlot(), holderA, 60, nil)
		require.NoError(t, err)

		contenders := []models.Contender{
			{Holder: holderA, ClaimedAt: time.Now()},
			{Holder: holderB, ClaimedAt: time.Now()},
		}
		result, err := resolver.Resolve(ctx, conflictSlot(), "double_claim", contenders, models.StrategyManual)
		require.NoError(t, err)
		require.True(t, result.Success)
		assert.Equal(t, models.ConflictPendingManual, result.Conflict.Status)
		assert.Nil(t, result.Conflict.Result.Winner)
		assert.Empty(t, result.Conflict.Result.WinningReservationID)
		assert.Len(t, result.Conflict.Result.Losers, 2)

		// The contested hold stays in place during review, so the broadcast
		// must not announce the slot as free.
		require.Eventually(t, func() bool {
			return len(broadcaster.snapshot()) >= 1
		}, 2*time.Second, 10*time.Millisecond)
		updates := broadcaster.snapshot()
		assert.False(t, updates[len(updates)-1].available)
		assert.Empty(t, updates[len(updates)-1].winningID)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		resolver, _, _, _ := newTestResolver(t)

		_, err := resolver.Resolve(ctx, models.SlotKey{}, "double_claim",
			[]models.Contender{{Holder: holderA}}, models.StrategyFirstComeFirstServed)
		require.Error(t, err)

		_, err = resolver.Resolve(ctx, conflictSlot(), "double_claim", nil, models.StrategyFirstComeFirstServed)
		require.Error(t, err)

		_, err = resolver.Resolve(ctx, conflictSlot(), "double_claim",
			[]models.Contender{{Holder: holderA}}, "coin_flip")
		require.Error(t, err)

		_, err = resolver.Resolve(ctx, conflictSlot(), "double_claim",
			[]models.Contender{{Holder: holderA, Priority: 11}}, models.StrategyFirstComeFirstServed)
		require.Error(t, err)
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("returns newest resolutions first", func(t *testing.T) {
		resolver, engine, _, _ := newTestResolver(t)
		holder := models.HolderIdentity{UserID: "repeat"}

		var ids []string
		for hour := 10; hour < 13; hour++ {
			slot := models.SlotKey{
				DateTime:    time.Date(2026, 9, 3, hour, 0, 0, 0, time.UTC),
				ServiceType: "Cleaning",
			}
			_, err := engine.Reserve(ctx, slot, holder, 60, nil)
			require.NoError(t, err)

			result, err := resolver.Resolve(ctx, slot, "double_claim",
				[]models.Contender{{Holder: holder, ClaimedAt: time.Now()}},
				models.StrategyFirstComeFirstServed)
			require.NoError(t, err)
			require.True(t, result.Success)
			ids = append(ids, result.Conflict.ID)
		}

		history, err := resolver.History(ctx, 50)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, ids[2], history[0].ID)
		assert.Equal(t, ids[0], history[2].ID)
	})

	t.Run("clamps an out-of-range limit", func(t *testing.T) {
		resolver, _, _, _ := newTestResolver(t)

		history, err := resolver.History(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, history)

		history, err = resolver.History(ctx, 1_000_000)
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}
