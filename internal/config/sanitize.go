package config

import "github.com/yndnr/statekeep/internal/telemetry/logger"

// Sanitize returns a copy of cfg with secrets masked, for logging.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	if out.Security.EncryptionKey != "" {
		out.Security.EncryptionKey = logger.Mask(out.Security.EncryptionKey)
	}
	if out.Security.Passphrase != "" {
		out.Security.Passphrase = logger.Mask(out.Security.Passphrase)
	}
	return &out
}
