// Package domain defines the core domain models for statekeep.
//
// The package holds the error taxonomy shared by every layer:
//
//   - STATE errors: raised by the transactional mapping, the edit-page log and
//     the object space (not found, already exists, unknown kind, not supported,
//     contract violation).
//   - STOR errors: raised by the checkpoint stores.
//   - ARG errors: invalid input.
//
// Every error is a *DomainError compared by code, so callers test with
// errors.Is(err, domain.ErrNotFound) regardless of added details or causes.
package domain
