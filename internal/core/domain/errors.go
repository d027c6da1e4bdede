// Package domain defines the core domain models for statekeep.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
//
// Codes use the format SK-<AREA>-<NNNN>. The area groups related failures
// and the number loosely follows HTTP status semantics.
type DomainError struct {
	Code    string // Error code (e.g., "SK-STATE-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
// Two domain errors match when their codes match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// State Errors (STATE)
// Raised by the transactional mapping, the edit-page log and the object space.
// ============================================================================

var (
	// ErrNotFound indicates a key or identifier is absent on a required lookup or delete.
	ErrNotFound = NewDomainError("SK-STATE-4040", "not found")

	// ErrAlreadyExists indicates a duplicate key on a strict add.
	ErrAlreadyExists = NewDomainError("SK-STATE-4090", "already exists")

	// ErrUnknownKind indicates an index descriptor could not be resolved to a concrete kind.
	ErrUnknownKind = NewDomainError("SK-STATE-4220", "unknown kind")

	// ErrNotSupported indicates an operation a scoped view structurally cannot support,
	// such as committing through a per-entity writer.
	ErrNotSupported = NewDomainError("SK-STATE-4050", "operation not supported")

	// ErrContractViolation indicates the caller broke a sequencing rule
	// (out-of-order snapshot commit, overlapping save lifecycles).
	ErrContractViolation = NewDomainError("SK-STATE-4091", "sequencing contract violated")

	// ErrInvalidDescriptor indicates an index record could not be decoded.
	ErrInvalidDescriptor = NewDomainError("SK-STATE-4000", "invalid descriptor")
)

// ============================================================================
// Storage Errors (STOR)
// Raised by the backing stores.
// ============================================================================

var (
	// ErrItemNotFound indicates the requested category/key is absent in the store.
	ErrItemNotFound = NewDomainError("SK-STOR-4040", "item not found")

	// ErrWriterClosed indicates a checkpoint writer was used after commit or rollback.
	ErrWriterClosed = NewDomainError("SK-STOR-4000", "checkpoint writer closed")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = NewDomainError("SK-STOR-5030", "store closed")

	// ErrStorageError indicates a backend failure.
	ErrStorageError = NewDomainError("SK-STOR-5000", "storage error")

	// ErrDecryptionFailed indicates a sealed item could not be opened.
	ErrDecryptionFailed = NewDomainError("SK-STOR-4220", "decryption failed")

	// ErrCheckpointTooLarge indicates a checkpoint exceeds what the backend
	// can commit in one transaction. Retrying the same checkpoint cannot succeed.
	ErrCheckpointTooLarge = NewDomainError("SK-STOR-4130", "checkpoint too large")
)

// ============================================================================
// Checkpoint Errors (CKPT)
// Raised by the checkpoint driver.
// ============================================================================

var (
	// ErrThrottled indicates a checkpoint was refused by the rate limiter.
	ErrThrottled = NewDomainError("SK-CKPT-4290", "checkpoint throttled")

	// ErrCheckpointerStopped indicates the checkpointer has been stopped.
	ErrCheckpointerStopped = NewDomainError("SK-CKPT-5030", "checkpointer stopped")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("SK-ARG-1001", "invalid argument")
)
