/*
errors.go - Error taxonomy for the payroll core

PURPOSE:
  All error types in one place. Every failure is returned to the caller;
  nothing is swallowed and nothing is retried.

ERROR CATEGORIES:
  1. Not found      - employee or per-month table missing
  2. Integrity      - guard rejections (write never attempted or aborted)
  3. Client input   - bad ranges, indexes, field values, transitions
  4. Storage        - transport failure (re-exported from package document)

USAGE:
  if errors.Is(err, payroll.ErrCorruptDocument) {
      // nothing was uploaded; operator must inspect the document
  }

SEE ALSO:
  - guard.go: produces ErrCorruptDocument / ErrIntegrityViolation
  - document/errors.go: ErrTableNotFound, ErrStorageUnavailable
*/
package payroll

import (
	"errors"
	"fmt"

	"github.com/warp/payroll-engine/document"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when the name is not in the master table.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrCorruptDocument is returned by pre-validation: the master table is
	// missing or has no data rows. No write is attempted.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrIntegrityViolation is returned by post-validation of a composed
	// document. The write is aborted.
	ErrIntegrityViolation = errors.New("integrity violation")

	// ErrInvalidRange is returned when an absence starts after it ends or
	// has no day inside its ledger month.
	ErrInvalidRange = errors.New("invalid range")

	// ErrIndexOutOfRange is returned by positional deletion.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidValue is returned when a field value or enum cannot be parsed.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidTransition is returned for status changes the model forbids
	// (a terminated employee cannot become active again).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateEmployee is returned when registering a name that exists.
	ErrDuplicateEmployee = errors.New("employee already registered")

	// ErrNoMinimumWage is returned when no minimum wage is configured for a
	// year (or any earlier year).
	ErrNoMinimumWage = errors.New("no minimum wage configured")

	// Re-exported so callers only need this package.
	ErrTableNotFound      = document.ErrTableNotFound
	ErrStorageUnavailable = document.ErrStorageUnavailable
	ErrDocumentNotFound   = document.ErrDocumentNotFound
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// IntegrityError details a guard rejection.
type IntegrityError struct {
	Phase      string // "pre" or "post"
	DocumentID string
	Table      string
	Reason     string
	Before     int
	After      int
}

func (e *IntegrityError) Error() string {
	if e.Phase == "pre" {
		return fmt.Sprintf("corrupt document %s: %s", e.DocumentID, e.Reason)
	}
	return fmt.Sprintf("integrity violation on %s/%s: %s (rows %d -> %d)",
		e.DocumentID, e.Table, e.Reason, e.Before, e.After)
}

func (e *IntegrityError) Unwrap() error {
	if e.Phase == "pre" {
		return ErrCorruptDocument
	}
	return ErrIntegrityViolation
}

// FieldError reports a value that could not be applied to a field or column.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("field %s: invalid value %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("field %s: invalid value %q", e.Field, e.Value)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidValue
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrIndexOutOfRange) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateEmployee)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrTableNotFound)
}

// IsIntegrity returns true if the guard rejected the write.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrCorruptDocument) || errors.Is(err, ErrIntegrityViolation)
}
