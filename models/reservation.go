package models

import (
	"fmt"
	"strings"
	"time"
)

// SlotKey identifies one bookable resource unit: a service type at a
// specific start time. Immutable once formed.
type SlotKey struct {
	DateTime    time.Time `json:"dateTime"`
	ServiceType string    `json:"serviceType"`
}

// NewSlotKey validates and builds a SlotKey. The datetime is normalized to UTC.
func NewSlotKey(dateTime time.Time, serviceType string) (SlotKey, error) {
	serviceType = strings.TrimSpace(serviceType)
	if dateTime.IsZero() {
		return SlotKey{}, fmt.Errorf("slot datetime is required")
	}
	if serviceType == "" {
		return SlotKey{}, fmt.Errorf("slot service type is required")
	}
	return SlotKey{DateTime: dateTime.UTC(), ServiceType: serviceType}, nil
}

// String renders the canonical form used in Redis keys and log lines.
func (s SlotKey) String() string {
	return s.ServiceType + ":" + s.DateTime.UTC().Format(time.RFC3339)
}

// IsZero reports whether the key was never formed.
func (s SlotKey) IsZero() bool {
	return s.DateTime.IsZero() && s.ServiceType == ""
}

// HolderIdentity is the party owning a reservation: a registered user,
// a guest identified by email, or both.
type HolderIdentity struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
}

// IsZero reports whether no identity information is present.
func (h HolderIdentity) IsZero() bool {
	return h.UserID == "" && h.Email == ""
}

// Matches reports whether two identities refer to the same holder.
// Either a shared user id or a shared email (case-insensitive) matches.
func (h HolderIdentity) Matches(other HolderIdentity) bool {
	if h.UserID != "" && h.UserID == other.UserID {
		return true
	}
	if h.Email != "" && strings.EqualFold(h.Email, other.Email) {
		return true
	}
	return false
}

// String renders the identity for log lines and conflict messages.
func (h HolderIdentity) String() string {
	if h.UserID != "" {
		return h.UserID
	}
	return strings.ToLower(h.Email)
}

// Reservation is a time-bounded exclusive hold on a slot. All durable state
// lives in Redis; this struct is the JSON payload of the reservation key.
type Reservation struct {
	ID                       string            `json:"id"`
	Slot                     SlotKey           `json:"slot"`
	Holder                   HolderIdentity    `json:"holder"`
	EstimatedDurationMinutes int               `json:"estimatedDurationMinutes"`
	ReservedAt               time.Time         `json:"reservedAt"`
	ExpiresAt                time.Time         `json:"expiresAt"`
	Extended                 bool              `json:"extended"`
	ExtensionCount           int               `json:"extensionCount"`
	LinkedBookingID          string            `json:"linkedBookingId,omitempty"`
	Metadata                 map[string]string `json:"metadata,omitempty"`
}

// ActiveAt reports whether the reservation is still live at the given
// instant. Staleness is judged solely against the stored expiry; the Redis
// TTL is the enforcement mechanism, not the source of truth for reads.
func (r *Reservation) ActiveAt(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// ReserveResult is the structured outcome of a reserve call. A conflict with
// another holder is an expected outcome, not an error.
type ReserveResult struct {
	Success           bool            `json:"success"`
	Reservation       *Reservation    `json:"reservation,omitempty"`
	ConflictingHolder *HolderIdentity `json:"conflictingHolder,omitempty"`
	Code              string          `json:"code,omitempty"`
	Message           string          `json:"message"`
}

// ExtendResult is the structured outcome of an extend call.
type ExtendResult struct {
	Success     bool         `json:"success"`
	Reservation *Reservation `json:"reservation,omitempty"`
	Code        string       `json:"code,omitempty"`
	Message     string       `json:"message"`
}

// StatusResult describes the remaining lifetime of a reservation.
type StatusResult struct {
	Active               bool `json:"active"`
	TimeRemainingSeconds int  `json:"timeRemainingSeconds"`
	WarningZone          bool `json:"warningZone"`
	CanExtend            bool `json:"canExtend"`
}
