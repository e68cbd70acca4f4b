package models

import "time"

// Booking is the final booking record written to the relational store once
// checkout completes. The reservation engine never writes these directly;
// the checkout flow persists the booking and then links the hold to it.
type Booking struct {
	ID                       string         `bson:"id" json:"id"`
	ReservationID            string         `bson:"reservation_id" json:"reservationId"`
	ServiceType              string         `bson:"service_type" json:"serviceType"`
	SlotDateTime             time.Time      `bson:"slot_datetime" json:"slotDateTime"`
	Holder                   HolderIdentity `bson:"holder" json:"holder"`
	EstimatedDurationMinutes int            `bson:"estimated_duration_minutes" json:"estimatedDurationMinutes"`
	Status                   string         `bson:"status" json:"status"` // e.g., "Confirmed"
	Notes                    string         `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt                time.Time      `bson:"created_at" json:"createdAt"`
}
