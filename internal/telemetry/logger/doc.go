// Package logger provides structured logging for statekeep.
//
// It wraps log/slog with a process-wide level that can change at runtime,
// JSON or text output, and redaction of secret-bearing attributes such as
// the store encryption key and passphrase.
//
//   - logger.go: construction, levels and the default logger
//   - context.go: carrying a logger and checkpoint id through a context
//   - redact.go: secret redaction applied to every record
package logger
