package models

import (
	"fmt"
	"time"
)

// ResolutionStrategy selects how a conflict picks its winner. The set is
// closed; each value maps to a pure resolution function.
type ResolutionStrategy string

const (
	StrategyFirstComeFirstServed  ResolutionStrategy = "first_come_first_served"
	StrategyPriorityBased         ResolutionStrategy = "priority_based"
	StrategyPaymentIntentPriority ResolutionStrategy = "payment_intent_priority"
	StrategyReturningCustomer     ResolutionStrategy = "returning_customer_priority"
	StrategyManual                ResolutionStrategy = "manual"
)

// ParseStrategy validates a caller-supplied strategy name.
func ParseStrategy(s string) (ResolutionStrategy, error) {
	switch ResolutionStrategy(s) {
	case StrategyFirstComeFirstServed, StrategyPriorityBased,
		StrategyPaymentIntentPriority, StrategyReturningCustomer, StrategyManual:
		return ResolutionStrategy(s), nil
	}
	return "", fmt.Errorf("unknown resolution strategy %q", s)
}

// ConflictStatus tracks a conflict through its lifecycle.
type ConflictStatus string

const (
	ConflictDetected      ConflictStatus = "detected"
	ConflictValidating    ConflictStatus = "validating"
	ConflictResolving     ConflictStatus = "resolving"
	ConflictResolved      ConflictStatus = "resolved"
	ConflictPendingManual ConflictStatus = "pending_manual_review"
)

// Contender is one claim competing for a slot during a conflict.
type Contender struct {
	Holder              HolderIdentity    `json:"holder"`
	ClaimedAt           time.Time         `json:"claimedAt"`
	Priority            int               `json:"priority"` // 0-10
	HasPaymentIntent    bool              `json:"hasPaymentIntent"`
	IsReturningCustomer bool              `json:"isReturningCustomer"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// LoserOutcome annotates one losing contender with its individual reason.
type LoserOutcome struct {
	Holder HolderIdentity `json:"holder"`
	Reason string         `json:"reason"`
}

// Resolution is the computed outcome of a conflict: exactly one winner
// (none for manual review) plus annotated losers.
type Resolution struct {
	Winner               *Contender     `json:"winner,omitempty"`
	WinningReservationID string         `json:"winningReservationId,omitempty"`
	Losers               []LoserOutcome `json:"losers"`
	ResolvedAt           time.Time      `json:"resolvedAt"`
}

// ConflictRecord is the persisted record of one detected conflict.
type ConflictRecord struct {
	ID           string             `json:"id"`
	Slot         SlotKey            `json:"slot"`
	ConflictType string             `json:"conflictType"`
	Contenders   []Contender        `json:"contenders"`
	Strategy     ResolutionStrategy `json:"strategy"`
	Status       ConflictStatus     `json:"status"`
	Result       *Resolution        `json:"result,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// ResolveResult is the structured outcome returned to the caller of
// resolveConflict. A stale conflict yields Success=false, never an error.
type ResolveResult struct {
	Success  bool            `json:"success"`
	Conflict *ConflictRecord `json:"conflict,omitempty"`
	Code     string          `json:"code,omitempty"`
	Message  string          `json:"message"`
}
