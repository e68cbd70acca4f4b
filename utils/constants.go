package utils

import "time"

// Redis key prefixes for reservation state. Slot locks, reservation records
// and holder index entries always share one TTL so they expire together.
const (
	SlotLockPrefix    = "slotlock:"
	ReservationPrefix = "reservation:"
	HolderUserPrefix  = "holder:user:"
	HolderEmailPrefix = "holder:email:"
	ConflictPrefix    = "conflict:"
	SlotViewersPrefix = "slotviewers:"
)

// ConflictHistoryKey is the bounded audit list of past resolutions.
const ConflictHistoryKey = "conflict:history"

const (
	// DefaultHoldTTL is the lifetime of a fresh hold.
	DefaultHoldTTL = 15 * time.Minute
	// ExtensionTTL is the lifetime granted by the single allowed extension.
	ExtensionTTL = 5 * time.Minute
	// WarningZone marks the remaining time under which clients should warn
	// the customer their hold is about to lapse.
	WarningZone = 5 * time.Minute

	// MinDurationMinutes and MaxDurationMinutes bound the estimated service
	// duration a caller may reserve for.
	MinDurationMinutes = 15
	MaxDurationMinutes = 180

	// MaxExtensions caps how often a hold may be extended.
	MaxExtensions = 1

	// ConflictHistoryLimit bounds the audit history list.
	ConflictHistoryLimit = 1000

	// ConflictRecordTTL keeps resolved conflict records around for
	// diagnostics without growing the store forever.
	ConflictRecordTTL = 7 * 24 * time.Hour
)
