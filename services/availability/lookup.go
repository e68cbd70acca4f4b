package availability

import (
	"context"
	"time"

	"slothold/models"
	"slothold/services/reservation"
	"slothold/utils"

	"go.uber.org/zap"
)

// Lookup suggests alternative slots for holders who lost a conflict.
// Best-effort: callers invoke it in a detached goroutine and only log
// failures.
type Lookup interface {
	SuggestAlternatives(ctx context.Context, slot models.SlotKey, losers []models.HolderIdentity) ([]models.SlotKey, error)
}

// probeOffsets are tried in order of how acceptable the alternative usually
// is to a customer who wanted the original time.
var probeOffsets = []time.Duration{
	time.Hour, -time.Hour,
	2 * time.Hour, -2 * time.Hour,
	3 * time.Hour,
	24 * time.Hour,
}

// EngineBackedLookup probes nearby times for the same service type against
// the reservation engine's availability view.
type EngineBackedLookup struct {
	Engine         reservation.ReservationEngine
	MaxSuggestions int // defaults to 3
}

func (l *EngineBackedLookup) maxSuggestions() int {
	if l.MaxSuggestions > 0 {
		return l.MaxSuggestions
	}
	return 3
}

func (l *EngineBackedLookup) SuggestAlternatives(ctx context.Context, slot models.SlotKey, losers []models.HolderIdentity) ([]models.SlotKey, error) {
	var suggestions []models.SlotKey
	now := time.Now()

	for _, offset := range probeOffsets {
		candidate := models.SlotKey{
			DateTime:    slot.DateTime.Add(offset),
			ServiceType: slot.ServiceType,
		}
		if candidate.DateTime.Before(now) {
			continue
		}
		available, err := l.Engine.IsSlotAvailable(ctx, candidate)
		if err != nil {
			// Best-effort: skip the probe rather than failing the lookup.
			utils.GetLogger().Debug("alternative slot probe failed",
				zap.String("slot", candidate.String()), zap.Error(err))
			continue
		}
		if available {
			suggestions = append(suggestions, candidate)
			if len(suggestions) >= l.maxSuggestions() {
				break
			}
		}
	}

	utils.GetLogger().Info("alternative slots suggested",
		zap.String("slot", slot.String()),
		zap.Int("losers", len(losers)),
		zap.Int("suggestions", len(suggestions)))
	return suggestions, nil
}
