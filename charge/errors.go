/*
errors.go - Centralized error types for the charge engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is and the helpers at the bottom.

ERROR CATEGORIES:
  1. Validation errors - Rejected calculation input
  2. Lifecycle errors - Illegal charge state transitions
  3. Store errors - Missing or conflicting records

USAGE:
  HTTP handlers map classifications to status codes:

    if charge.IsValidation(err) {
        // 422
    }
    if charge.IsNotFound(err) {
        // 404
    }

SEE ALSO:
  - engine.go: Returns ValidationError for bad input
  - store.go: Store methods return the not-found and duplicate sentinels
*/
package charge

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is the root of every calculation validation failure.
	// ValidationError wraps it with field-level context.
	ErrInvalidInput = errors.New("invalid calculation input")

	// ErrInvalidPeriod is returned when a period is malformed (start after end).
	ErrInvalidPeriod = errors.New("invalid period: start after end")

	// ErrStaffNotFound is returned when a referenced staff member doesn't exist.
	ErrStaffNotFound = errors.New("staff member not found")

	// ErrChargeNotFound is returned when a referenced charge doesn't exist.
	ErrChargeNotFound = errors.New("charge not found")

	// ErrScheduleNotFound is returned when a referenced schedule doesn't exist.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrDuplicateCharge is returned when a schedule already produced a charge
	// for the same billing month. This is what makes scheduler runs idempotent.
	ErrDuplicateCharge = errors.New("duplicate scheduled charge for month")

	// ErrChargeVoided is returned when voiding a charge that is already void.
	ErrChargeVoided = errors.New("charge already voided")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a single rejected input field. The engine returns
// it instead of computing with defaulted or silently zeroed values.
type ValidationError struct {
	Field  string // e.g. "period", "baseAmount", "occupantCount"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// DuplicateChargeError provides details about a scheduler dedup conflict.
type DuplicateChargeError struct {
	ScheduleID ScheduleID
	Month      string // "2006-01"
	ExistingID ChargeID
}

func (e *DuplicateChargeError) Error() string {
	return fmt.Sprintf("schedule %s already billed %s (charge: %s)",
		e.ScheduleID, e.Month, e.ExistingID)
}

func (e *DuplicateChargeError) Unwrap() error {
	return ErrDuplicateCharge
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the error is a rejected-input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStaffNotFound) ||
		errors.Is(err, ErrChargeNotFound) ||
		errors.Is(err, ErrScheduleNotFound)
}

// IsClientError returns true if the error is due to invalid client input
// rather than a server-side failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrDuplicateCharge) ||
		errors.Is(err, ErrChargeVoided)
}
