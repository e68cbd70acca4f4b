package reservation

import (
	"errors"
	"fmt"
)

// Reason codes surfaced in structured results and carried by EngineError.
const (
	CodeValidation       = "validation_error"
	CodeConflict         = "slot_conflict"
	CodeOwnership        = "ownership_error"
	CodeNotFound         = "not_found"
	CodeMaxExtensions    = "max_extensions"
	CodeStoreUnavailable = "store_unavailable"
	CodeStaleConflict    = "stale_conflict"
)

// EngineError is a typed engine failure with a machine reason code.
type EngineError struct {
	Code    string
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError reports malformed input; never retried.
func NewValidationError(msg string) error {
	return &EngineError{Code: CodeValidation, Message: msg}
}

// NewStoreError wraps a store-level failure. Operations fail closed on it.
func NewStoreError(err error) error {
	return &EngineError{Code: CodeStoreUnavailable, Message: fmt.Sprintf("reservation store unavailable: %v", err)}
}

// wrapStoreErr keeps an already-typed engine error intact and wraps
// anything else as a store failure.
func wrapStoreErr(err error) error {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee
	}
	return NewStoreError(err)
}

// Sentinel outcomes used inside optimistic transactions.
var (
	errNotFound      = &EngineError{Code: CodeNotFound, Message: "reservation not found or expired"}
	errOwnership     = &EngineError{Code: CodeOwnership, Message: "reservation is held by a different customer"}
	errMaxExtensions = &EngineError{Code: CodeMaxExtensions, Message: "maximum extensions reached"}
)
