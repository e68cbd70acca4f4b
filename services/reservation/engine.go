package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slothold/models"
	"slothold/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// reserveScript is the atomic check-then-write for a slot claim. A separate
// GET followed by SET would reopen the exact race this engine exists to
// close, so the lock check, the reservation record and the holder index
// entries are written in one server-side script sharing one TTL.
//
// KEYS[1] slot lock, KEYS[2] reservation record, KEYS[3..] holder index.
// ARGV[1] reservation id, ARGV[2] reservation JSON, ARGV[3] TTL millis.
// Returns the current lock value on conflict, "" on success.
var reserveScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
	return current
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
for i = 3, #KEYS do
	redis.call("SET", KEYS[i], ARGV[1], "PX", ARGV[3])
end
return ""
`)

// releaseScript deletes the reservation record unconditionally and the lock
// and index keys only while they still point at this reservation, so a late
// release cannot clobber a newer holder's lock.
//
// KEYS[1] reservation record, KEYS[2..] lock and holder index.
// ARGV[1] reservation id.
var releaseScript = redis.NewScript(`
redis.call("DEL", KEYS[1])
for i = 2, #KEYS do
	if redis.call("GET", KEYS[i]) == ARGV[1] then
		redis.call("DEL", KEYS[i])
	end
end
return 1
`)

func (e *DefaultReservationEngine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *DefaultReservationEngine) holdTTL() time.Duration {
	if e.HoldTTL > 0 {
		return e.HoldTTL
	}
	return utils.DefaultHoldTTL
}

func (e *DefaultReservationEngine) extensionTTL() time.Duration {
	if e.ExtensionTTL > 0 {
		return e.ExtensionTTL
	}
	return utils.ExtensionTTL
}

// Reserve places a time-bounded exclusive hold on the slot. A prior active
// hold by the same holder on another slot is superseded first; a repeat call
// for the same slot is an idempotent success. A slot held by a different
// holder yields a structured conflict result, not an error.
func (e *DefaultReservationEngine) Reserve(ctx context.Context, slot models.SlotKey, holder models.HolderIdentity, estimatedDurationMinutes int, metadata map[string]string) (*models.ReserveResult, error) {
	if slot.IsZero() || slot.DateTime.IsZero() || slot.ServiceType == "" {
		return nil, NewValidationError("a valid slot (datetime and service type) is required")
	}
	if holder.IsZero() {
		return nil, NewValidationError("holder identity (user id or email) is required")
	}
	if estimatedDurationMinutes < utils.MinDurationMinutes || estimatedDurationMinutes > utils.MaxDurationMinutes {
		return nil, NewValidationError(fmt.Sprintf(
			"estimated duration must be between %d and %d minutes", utils.MinDurationMinutes, utils.MaxDurationMinutes))
	}

	logger := utils.GetLogger()

	// Holder index pre-check: same-slot retries are a no-op success, a hold
	// elsewhere is superseded before any new write.
	existing, err := e.GetByHolder(ctx, holder)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Slot.String() == slot.String() {
			return &models.ReserveResult{
				Success:     true,
				Reservation: existing,
				Message:     "you already hold this slot",
			}, nil
		}
		logger.Info("superseding prior hold",
			zap.String("holder", holder.String()),
			zap.String("previousReservation", existing.ID),
			zap.String("newSlot", slot.String()))
		if _, err := e.Release(ctx, existing.ID, holder); err != nil {
			return nil, err
		}
	}

	now := e.now()
	ttl := e.holdTTL()
	res := &models.Reservation{
		ID:                       uuid.New().String(),
		Slot:                     slot,
		Holder:                   holder,
		EstimatedDurationMinutes: estimatedDurationMinutes,
		ReservedAt:               now,
		ExpiresAt:                now.Add(ttl),
		Metadata:                 metadata,
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, NewStoreError(err)
	}

	keys := append([]string{slotLockKey(slot), reservationKey(res.ID)}, holderKeys(holder)...)
	out, err := reserveScript.Run(ctx, e.Client, keys, res.ID, payload, ttl.Milliseconds()).Text()
	if err != nil {
		// Fail closed: an unverifiable write is reported as not reserved.
		return nil, NewStoreError(err)
	}
	if out != "" {
		result := &models.ReserveResult{
			Success: false,
			Code:    CodeConflict,
			Message: "this slot was just taken by another customer",
		}
		if conflicting, err := e.Get(ctx, out); err == nil && conflicting != nil {
			result.ConflictingHolder = &conflicting.Holder
		}
		logger.Info("reserve conflict",
			zap.String("slot", slot.String()),
			zap.String("holder", holder.String()))
		return result, nil
	}

	logger.Info("slot reserved",
		zap.String("reservation", res.ID),
		zap.String("slot", slot.String()),
		zap.String("holder", holder.String()),
		zap.Time("expiresAt", res.ExpiresAt))
	e.broadcast(slot, false, res.ID)

	return &models.ReserveResult{
		Success:     true,
		Reservation: res,
		Message:     fmt.Sprintf("slot held for %d minutes", int(ttl.Minutes())),
	}, nil
}

// Extend grants the single allowed extension, rewriting all TTL-bearing
// entries with a fresh extension TTL. An extend racing natural expiry is
// treated as "not found" rather than resurrecting the hold.
func (e *DefaultReservationEngine) Extend(ctx context.Context, reservationID string, holder models.HolderIdentity, reason string) (*models.ExtendResult, error) {
	if reservationID == "" {
		return nil, NewValidationError("reservation id is required")
	}
	if holder.IsZero() {
		return nil, NewValidationError("holder identity is required")
	}

	logger := utils.GetLogger()
	resKey := reservationKey(reservationID)
	var updated *models.Reservation

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, resKey).Bytes()
		if err == redis.Nil {
			return errNotFound
		}
		if err != nil {
			return NewStoreError(err)
		}
		var res models.Reservation
		if err := json.Unmarshal(data, &res); err != nil {
			return NewStoreError(err)
		}

		now := e.now()
		if !res.ActiveAt(now) {
			return errNotFound
		}
		if !res.Holder.Matches(holder) {
			return errOwnership
		}
		if res.ExtensionCount >= utils.MaxExtensions {
			return errMaxExtensions
		}

		ttl := e.extensionTTL()
		res.Extended = true
		res.ExtensionCount++
		res.ExpiresAt = now.Add(ttl)
		payload, err := json.Marshal(&res)
		if err != nil {
			return NewStoreError(err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, resKey, payload, ttl)
			pipe.Set(ctx, slotLockKey(res.Slot), res.ID, ttl)
			for _, k := range holderKeys(res.Holder) {
				pipe.Set(ctx, k, res.ID, ttl)
			}
			return nil
		})
		if err != nil {
			return NewStoreError(err)
		}
		updated = &res
		return nil
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = e.Client.Watch(ctx, txf, resKey)
		if err != redis.TxFailedErr {
			break
		}
	}

	switch {
	case err == nil:
		logger.Info("hold extended",
			zap.String("reservation", reservationID),
			zap.String("holder", holder.String()),
			zap.String("reason", reason),
			zap.Time("expiresAt", updated.ExpiresAt))
		return &models.ExtendResult{
			Success:     true,
			Reservation: updated,
			Message:     fmt.Sprintf("hold extended by %d minutes", int(e.extensionTTL().Minutes())),
		}, nil
	case errors.Is(err, errNotFound):
		return &models.ExtendResult{Success: false, Code: CodeNotFound, Message: errNotFound.Message}, nil
	case errors.Is(err, errOwnership):
		// Potential abuse signal: someone asked to extend a hold they do not own.
		logger.Warn("extend denied for non-holder",
			zap.String("reservation", reservationID),
			zap.String("caller", holder.String()))
		return &models.ExtendResult{Success: false, Code: CodeOwnership, Message: errOwnership.Message}, nil
	case errors.Is(err, errMaxExtensions):
		return &models.ExtendResult{Success: false, Code: CodeMaxExtensions, Message: errMaxExtensions.Message}, nil
	default:
		return nil, wrapStoreErr(err)
	}
}

// Status derives the remaining lifetime purely from the stored expiry; it
// never mutates state.
func (e *DefaultReservationEngine) Status(ctx context.Context, reservationID string) (*models.StatusResult, error) {
	res, err := e.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &models.StatusResult{Active: false}, nil
	}
	remaining := res.ExpiresAt.Sub(e.now())
	if remaining <= 0 {
		return &models.StatusResult{Active: false}, nil
	}
	return &models.StatusResult{
		Active:               true,
		TimeRemainingSeconds: int(remaining.Seconds()),
		WarningZone:          remaining <= utils.WarningZone,
		CanExtend:            res.ExtensionCount < utils.MaxExtensions,
	}, nil
}

// ConvertToBooking links the hold to a persisted booking id without touching
// its TTL. Conversion after natural expiry returns false (logged, never an
// error) since the relational store, not this engine, owns finished bookings.
func (e *DefaultReservationEngine) ConvertToBooking(ctx context.Context, reservationID, bookingID string) (bool, error) {
	if reservationID == "" || bookingID == "" {
		return false, NewValidationError("reservation id and booking id are required")
	}

	logger := utils.GetLogger()
	resKey := reservationKey(reservationID)
	converted := false

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, resKey).Bytes()
		if err == redis.Nil {
			logger.Info("convert on missing or expired reservation",
				zap.String("reservation", reservationID),
				zap.String("booking", bookingID))
			return nil
		}
		if err != nil {
			return NewStoreError(err)
		}
		var res models.Reservation
		if err := json.Unmarshal(data, &res); err != nil {
			return NewStoreError(err)
		}
		if !res.ActiveAt(e.now()) {
			logger.Info("convert on expired reservation",
				zap.String("reservation", reservationID),
				zap.String("booking", bookingID))
			return nil
		}
		if res.LinkedBookingID != "" {
			// linkedBookingId is immutable once set.
			converted = res.LinkedBookingID == bookingID
			if !converted {
				logger.Warn("convert rejected, reservation already linked",
					zap.String("reservation", reservationID),
					zap.String("linkedBooking", res.LinkedBookingID),
					zap.String("booking", bookingID))
			}
			return nil
		}

		res.LinkedBookingID = bookingID
		payload, err := json.Marshal(&res)
		if err != nil {
			return NewStoreError(err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, resKey, payload, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return NewStoreError(err)
		}
		converted = true
		return nil
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = e.Client.Watch(ctx, txf, resKey)
		if err != redis.TxFailedErr {
			break
		}
	}
	if err != nil {
		return false, wrapStoreErr(err)
	}
	if converted {
		logger.Info("reservation linked to booking",
			zap.String("reservation", reservationID),
			zap.String("booking", bookingID))
	}
	return converted, nil
}

// Release deletes every entry tied to the reservation. Only the holder may
// release; releasing an already-gone reservation is a success, so it races
// harmlessly with natural expiry.
func (e *DefaultReservationEngine) Release(ctx context.Context, reservationID string, holder models.HolderIdentity) (bool, error) {
	if reservationID == "" {
		return false, NewValidationError("reservation id is required")
	}
	if holder.IsZero() {
		return false, NewValidationError("holder identity (user id or email) is required")
	}

	res, err := e.Get(ctx, reservationID)
	if err != nil {
		return false, err
	}
	if res == nil {
		return true, nil
	}
	if !res.Holder.Matches(holder) {
		utils.GetLogger().Warn("release denied for non-holder",
			zap.String("reservation", reservationID),
			zap.String("caller", holder.String()))
		return false, errOwnership
	}

	keys := append([]string{reservationKey(reservationID), slotLockKey(res.Slot)}, holderKeys(res.Holder)...)
	if err := releaseScript.Run(ctx, e.Client, keys, reservationID).Err(); err != nil {
		return false, NewStoreError(err)
	}

	utils.GetLogger().Info("reservation released",
		zap.String("reservation", reservationID),
		zap.String("slot", res.Slot.String()))
	e.broadcast(res.Slot, true, "")
	return true, nil
}

// IsSlotAvailable reports whether a slot can currently be claimed. The
// stored expiry, not mere key presence, decides liveness.
func (e *DefaultReservationEngine) IsSlotAvailable(ctx context.Context, slot models.SlotKey) (bool, error) {
	id, err := e.Client.Get(ctx, slotLockKey(slot)).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		// Fail closed: an unreachable store means "not available".
		return false, NewStoreError(err)
	}
	res, err := e.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return res == nil || !res.ActiveAt(e.now()), nil
}

// GetByHolder returns the holder's single active reservation, if any.
func (e *DefaultReservationEngine) GetByHolder(ctx context.Context, holder models.HolderIdentity) (*models.Reservation, error) {
	for _, key := range holderKeys(holder) {
		id, err := e.Client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, NewStoreError(err)
		}
		res, err := e.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if res != nil && res.ActiveAt(e.now()) {
			return res, nil
		}
	}
	return nil, nil
}

// Get fetches a reservation record by id, expired or not. Returns nil when
// the store no longer has it.
func (e *DefaultReservationEngine) Get(ctx context.Context, reservationID string) (*models.Reservation, error) {
	data, err := e.Client.Get(ctx, reservationKey(reservationID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, NewStoreError(err)
	}
	var res models.Reservation
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, NewStoreError(err)
	}
	return &res, nil
}

// broadcast pushes a slot availability update to the realtime notifier in a
// detached goroutine. Failures are logged and never reach the caller.
func (e *DefaultReservationEngine) broadcast(slot models.SlotKey, available bool, winningReservationID string) {
	if e.Broadcaster == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				utils.GetLogger().Error("slot update broadcast panicked", zap.Any("error", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Broadcaster.BroadcastSlotUpdate(ctx, slot, available, winningReservationID); err != nil {
			utils.GetLogger().Warn("slot update broadcast failed",
				zap.String("slot", slot.String()), zap.Error(err))
		}
	}()
}
