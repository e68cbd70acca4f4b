package models

import "time"

// HolderNotifyPayload is the payload of an async notification task telling a
// holder the outcome of a reservation or conflict resolution.
type HolderNotifyPayload struct {
	Holder   HolderIdentity    `json:"holder"`
	Outcome  string            `json:"outcome"` // e.g., "won", "lost", "released"
	Reason   string            `json:"reason"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SlotUpdate is broadcast over the realtime channel whenever a slot's
// availability changes.
type SlotUpdate struct {
	Slot                 SlotKey   `json:"slot"`
	Available            bool      `json:"available"`
	WinningReservationID string    `json:"winningReservationId,omitempty"`
	ViewerCount          int64     `json:"viewerCount"`
	UpdatedAt            time.Time `json:"updatedAt"`
}
