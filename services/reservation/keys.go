package reservation

import (
	"strings"

	"slothold/models"
	"slothold/utils"
)

// slotLockKey is the exclusivity lock for one bookable slot. Its value is
// the id of the reservation currently holding the slot.
func slotLockKey(slot models.SlotKey) string {
	return utils.SlotLockPrefix + slot.String()
}

// reservationKey holds the reservation JSON record.
func reservationKey(id string) string {
	return utils.ReservationPrefix + id
}

// holderKeys returns the holder index keys for an identity. A holder with
// both a user id and an email gets two index entries so either route finds
// the same active reservation.
func holderKeys(h models.HolderIdentity) []string {
	var keys []string
	if h.UserID != "" {
		keys = append(keys, utils.HolderUserPrefix+h.UserID)
	}
	if h.Email != "" {
		keys = append(keys, utils.HolderEmailPrefix+strings.ToLower(h.Email))
	}
	return keys
}
