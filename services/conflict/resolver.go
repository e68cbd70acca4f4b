package conflict

import (
	"context"
	"encoding/json"
	"fmt"

	"slothold/models"
	"slothold/services/reservation"
	"slothold/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Resolve runs one conflict through DETECTED → VALIDATING → RESOLVING and
// persists the terminal state. A second concurrent invocation for the same
// conflict finds no live contention during VALIDATING and short-circuits, so
// double-resolution is safe.
func (r *DefaultConflictResolver) Resolve(ctx context.Context, slot models.SlotKey, conflictType string, contenders []models.Contender, strategy models.ResolutionStrategy) (*models.ResolveResult, error) {
	if slot.IsZero() || slot.DateTime.IsZero() || slot.ServiceType == "" {
		return nil, reservation.NewValidationError("a valid slot (datetime and service type) is required")
	}
	if len(contenders) == 0 {
		return nil, reservation.NewValidationError("at least one contender is required")
	}
	if _, err := models.ParseStrategy(string(strategy)); err != nil {
		return nil, reservation.NewValidationError(err.Error())
	}
	for _, c := range contenders {
		if c.Holder.IsZero() {
			return nil, reservation.NewValidationError("every contender needs a holder identity")
		}
		if c.Priority < 0 || c.Priority > 10 {
			return nil, reservation.NewValidationError("contender priority must be between 0 and 10")
		}
	}

	logger := utils.GetLogger()
	rec := &models.ConflictRecord{
		ID:           uuid.New().String(),
		Slot:         slot,
		ConflictType: conflictType,
		Contenders:   contenders,
		Strategy:     strategy,
		Status:       models.ConflictDetected,
		CreatedAt:    r.now(),
	}

	// VALIDATING: the conflict is only live while the slot is still locked
	// and at least one contender still holds an active reservation on it.
	rec.Status = models.ConflictValidating
	available, err := r.Engine.IsSlotAvailable(ctx, slot)
	if err != nil {
		return nil, err
	}
	activeReservations := make(map[string]string, len(contenders))
	for _, c := range contenders {
		res, err := r.Engine.GetByHolder(ctx, c.Holder)
		if err != nil {
			return nil, err
		}
		if res != nil && res.Slot.String() == slot.String() {
			activeReservations[c.Holder.String()] = res.ID
		}
	}
	if available || len(activeReservations) == 0 {
		logger.Info("stale conflict short-circuited",
			zap.String("slot", slot.String()),
			zap.Bool("slotAvailable", available),
			zap.Int("activeContenders", len(activeReservations)))
		return &models.ResolveResult{
			Success: false,
			Code:    reservation.CodeStaleConflict,
			Message: "already resolved by another process",
		}, nil
	}

	// RESOLVING: strategies are pure functions of the contender list and the
	// active-holder set, so resolution is deterministic for fixed input.
	rec.Status = models.ConflictResolving
	active := make(map[string]bool, len(activeReservations))
	for holder := range activeReservations {
		active[holder] = true
	}
	out, err := resolveWithStrategy(strategy, contenders, active)
	if err != nil {
		return nil, reservation.NewValidationError(err.Error())
	}

	resolution := &models.Resolution{
		Winner:     out.winner,
		Losers:     out.losers,
		ResolvedAt: r.now(),
	}
	if out.winner != nil {
		resolution.WinningReservationID = activeReservations[out.winner.Holder.String()]
		rec.Status = models.ConflictResolved
	} else {
		rec.Status = models.ConflictPendingManual
	}
	rec.Result = resolution

	if err := r.persist(ctx, rec); err != nil {
		return nil, err
	}

	if out.winner != nil {
		logger.Info("conflict resolved",
			zap.String("conflict", rec.ID),
			zap.String("slot", slot.String()),
			zap.String("strategy", string(strategy)),
			zap.String("winner", out.winner.Holder.String()),
			zap.Int("losers", len(out.losers)))
	} else {
		logger.Info("conflict flagged for manual review",
			zap.String("conflict", rec.ID),
			zap.String("slot", slot.String()),
			zap.Int("contenders", len(contenders)))
	}

	r.fireSideEffects(rec)

	message := "conflict resolved"
	if out.winner == nil {
		message = "conflict flagged for manual review"
	}
	return &models.ResolveResult{
		Success:  true,
		Conflict: rec,
		Message:  message,
	}, nil
}

// persist writes the conflict record and appends it to the bounded audit
// history in one pipeline.
func (r *DefaultConflictResolver) persist(ctx context.Context, rec *models.ConflictRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return reservation.NewStoreError(err)
	}
	pipe := r.Client.TxPipeline()
	pipe.Set(ctx, utils.ConflictPrefix+rec.ID, payload, utils.ConflictRecordTTL)
	pipe.LPush(ctx, utils.ConflictHistoryKey, payload)
	pipe.LTrim(ctx, utils.ConflictHistoryKey, 0, utils.ConflictHistoryLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return reservation.NewStoreError(err)
	}
	return nil
}

// History returns the most recent resolutions, newest first.
func (r *DefaultConflictResolver) History(ctx context.Context, limit int64) ([]models.ConflictRecord, error) {
	if limit <= 0 || limit > utils.ConflictHistoryLimit {
		limit = utils.ConflictHistoryLimit
	}
	entries, err := r.Client.LRange(ctx, utils.ConflictHistoryKey, 0, limit-1).Result()
	if err != nil {
		return nil, reservation.NewStoreError(err)
	}
	records := make([]models.ConflictRecord, 0, len(entries))
	for _, entry := range entries {
		var rec models.ConflictRecord
		if err := json.Unmarshal([]byte(entry), &rec); err != nil {
			return nil, reservation.NewStoreError(fmt.Errorf("corrupt history entry: %w", err))
		}
		records = append(records, rec)
	}
	return records, nil
}
