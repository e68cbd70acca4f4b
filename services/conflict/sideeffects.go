package conflict

import (
	"context"
	"time"

	"slothold/models"
	"slothold/utils"

	"go.uber.org/zap"
)

const sideEffectTimeout = 10 * time.Second

// fireSideEffects runs the post-resolution collaborator calls as detached,
// independently-failing tasks. None of them can alter or delay the
// already-computed resolution.
func (r *DefaultConflictResolver) fireSideEffects(rec *models.ConflictRecord) {
	runDetached("notify holders", func(ctx context.Context) { r.notifyOutcomes(ctx, rec) })
	runDetached("broadcast resolution", func(ctx context.Context) { r.broadcastResolution(ctx, rec) })
	runDetached("suggest alternatives", func(ctx context.Context) { r.suggestAlternatives(ctx, rec) })
}

func runDetached(name string, fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				utils.GetLogger().Error("conflict side effect panicked",
					zap.String("effect", name), zap.Any("error", rec))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (r *DefaultConflictResolver) notifyOutcomes(ctx context.Context, rec *models.ConflictRecord) {
	if r.Dispatcher == nil || rec.Result == nil {
		return
	}
	logger := utils.GetLogger()

	if winner := rec.Result.Winner; winner != nil {
		if err := r.Dispatcher.Notify(ctx, winner.Holder, "won",
			"your claim on the slot was confirmed", winner.Metadata); err != nil {
			logger.Warn("winner notification failed",
				zap.String("conflict", rec.ID), zap.Error(err))
		}
	}
	for _, loser := range rec.Result.Losers {
		if err := r.Dispatcher.Notify(ctx, loser.Holder, "lost", loser.Reason,
			contenderMetadata(rec.Contenders, loser.Holder)); err != nil {
			logger.Warn("loser notification failed",
				zap.String("conflict", rec.ID),
				zap.String("holder", loser.Holder.String()),
				zap.Error(err))
		}
	}
}

func (r *DefaultConflictResolver) broadcastResolution(ctx context.Context, rec *models.ConflictRecord) {
	if r.Broadcaster == nil || rec.Result == nil {
		return
	}
	// A resolved conflict leaves the winner holding the slot, and a
	// manual-review park leaves the contested hold in place, so either way
	// the slot stays unavailable.
	winningID := rec.Result.WinningReservationID
	available := winningID == "" && rec.Status != models.ConflictPendingManual
	if err := r.Broadcaster.BroadcastSlotUpdate(ctx, rec.Slot, available, winningID); err != nil {
		utils.GetLogger().Warn("resolution broadcast failed",
			zap.String("conflict", rec.ID), zap.Error(err))
	}
}

func (r *DefaultConflictResolver) suggestAlternatives(ctx context.Context, rec *models.ConflictRecord) {
	if r.Alternatives == nil || rec.Result == nil || len(rec.Result.Losers) == 0 {
		return
	}
	losers := make([]models.HolderIdentity, 0, len(rec.Result.Losers))
	for _, l := range rec.Result.Losers {
		losers = append(losers, l.Holder)
	}
	if _, err := r.Alternatives.SuggestAlternatives(ctx, rec.Slot, losers); err != nil {
		utils.GetLogger().Warn("alternative slot lookup failed",
			zap.String("conflict", rec.ID), zap.Error(err))
	}
}

// contenderMetadata finds the metadata of the contender matching a holder so
// loser notifications carry the same delivery hints the claim arrived with.
func contenderMetadata(contenders []models.Contender, holder models.HolderIdentity) map[string]string {
	for _, c := range contenders {
		if c.Holder.Matches(holder) {
			return c.Metadata
		}
	}
	return nil
}
