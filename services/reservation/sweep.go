package reservation

import (
	"context"
	"encoding/json"
	"time"

	"slothold/models"
	"slothold/utils"

	"go.uber.org/zap"
)

// StartSweep launches the periodic bookkeeping sweep over reservation keys.
// The sweep is advisory only: Redis TTL expiry is what actually ends holds,
// so nothing here is load-bearing for correctness. It exists for gauge-style
// visibility into how many holds are live and how many are about to lapse.
func (e *DefaultReservationEngine) StartSweep(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			active, expiringSoon, err := e.sweepOnce(ctx)
			cancel()
			if err != nil {
				utils.GetLogger().Warn("reservation sweep failed", zap.Error(err))
				continue
			}
			utils.GetLogger().Info("reservation sweep",
				zap.Int("activeHolds", active),
				zap.Int("expiringSoon", expiringSoon))
		}
	}()
}

func (e *DefaultReservationEngine) sweepOnce(ctx context.Context) (active, expiringSoon int, err error) {
	now := e.now()
	var cursor uint64
	for {
		keys, next, err := e.Client.Scan(ctx, cursor, utils.ReservationPrefix+"*", 100).Result()
		if err != nil {
			return 0, 0, NewStoreError(err)
		}
		for _, key := range keys {
			data, err := e.Client.Get(ctx, key).Bytes()
			if err != nil {
				continue // expired between scan and read
			}
			var res models.Reservation
			if err := json.Unmarshal(data, &res); err != nil {
				continue
			}
			if res.ActiveAt(now) {
				active++
				if res.ExpiresAt.Sub(now) <= utils.WarningZone {
					expiringSoon++
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return active, expiringSoon, nil
		}
	}
}
