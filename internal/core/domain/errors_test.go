package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("SK-TEST-1000", "test message"),
			expected: "[SK-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("SK-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[SK-TEST-1001] test message: extra info",
		},
		{
			name:     "error with formatted details",
			err:      ErrNotFound.WithDetailsf("key %q", "x"),
			expected: `[SK-STATE-4040] not found: key "x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("SK-TEST-1000", "message 1")
	err2 := NewDomainError("SK-TEST-1000", "message 2")
	err3 := NewDomainError("SK-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewDomainError("SK-TEST-1000", "wrapper").WithCause(cause)

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := NewDomainError("SK-TEST-1000", "no cause")
	if errors.Unwrap(errNoCause) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_CopiesDoNotMutateOriginal(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := ErrUnknownKind.WithDetails("kind: widget").WithCause(cause)

	if ErrUnknownKind.Details != "" || ErrUnknownKind.Cause != nil {
		t.Fatal("sentinel error was modified")
	}
	if err.Details != "kind: widget" {
		t.Errorf("Details = %q", err.Details)
	}
	if err.Cause != cause {
		t.Error("Cause should be preserved")
	}
	if !errors.Is(err, ErrUnknownKind) {
		t.Error("errors.Is should work after chaining")
	}
}

func TestIsDomainError(t *testing.T) {
	if !IsDomainError(ErrNotSupported, "SK-STATE-4050") {
		t.Error("IsDomainError should return true for matching code")
	}
	if IsDomainError(ErrNotSupported, "SK-STATE-9999") {
		t.Error("IsDomainError should return false for non-matching code")
	}
	if !IsDomainError(ErrNotSupported, "") {
		t.Error("IsDomainError with empty code should match any DomainError")
	}
	if IsDomainError(fmt.Errorf("regular error"), "SK-STATE-4050") {
		t.Error("IsDomainError should return false for non-DomainError")
	}

	wrapped := fmt.Errorf("wrapped: %w", ErrNotSupported)
	if !IsDomainError(wrapped, "SK-STATE-4050") {
		t.Error("IsDomainError should work with wrapped errors")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrAlreadyExists, "SK-STATE-4090"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrItemNotFound), "SK-STOR-4040"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err  *DomainError
		code string
	}{
		{ErrNotFound, "SK-STATE-4040"},
		{ErrAlreadyExists, "SK-STATE-4090"},
		{ErrUnknownKind, "SK-STATE-4220"},
		{ErrNotSupported, "SK-STATE-4050"},
		{ErrContractViolation, "SK-STATE-4091"},
		{ErrInvalidDescriptor, "SK-STATE-4000"},
		{ErrItemNotFound, "SK-STOR-4040"},
		{ErrWriterClosed, "SK-STOR-4000"},
		{ErrStoreClosed, "SK-STOR-5030"},
		{ErrStorageError, "SK-STOR-5000"},
		{ErrDecryptionFailed, "SK-STOR-4220"},
		{ErrCheckpointTooLarge, "SK-STOR-4130"},
		{ErrThrottled, "SK-CKPT-4290"},
		{ErrCheckpointerStopped, "SK-CKPT-5030"},
		{ErrInvalidArgument, "SK-ARG-1001"},
	}

	seen := make(map[string]bool)
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Error code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Error message should not be empty")
			}
			if seen[tt.code] {
				t.Errorf("duplicate code %s", tt.code)
			}
			seen[tt.code] = true
		})
	}
}
