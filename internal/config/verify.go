package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/statekeep/internal/storage"
	"github.com/yndnr/statekeep/internal/telemetry/logger"
	"github.com/yndnr/statekeep/pkg/crypto/adaptive"
)

// Verify validates the configuration. It reports every problem at once.
func Verify(cfg *Config) error {
	return errors.Join(
		verifyStorage(&cfg.Storage),
		verifyCheckpoint(&cfg.Checkpoint),
		verifySecurity(&cfg.Security),
		verifyMetrics(&cfg.Metrics),
		verifyLog(&cfg.Log),
	)
}

func verifyStorage(s *StorageSection) error {
	switch strings.ToLower(s.Engine) {
	case storage.EngineMemory:
		return nil
	case storage.EngineBadger, storage.EngineBolt:
	default:
		return fmt.Errorf("storage.engine: unknown engine %q", s.Engine)
	}

	var errs []error
	if s.Dir == "" {
		errs = append(errs, errors.New("storage.dir is required"))
	}
	if t := s.Badger.GCThreshold; t <= 0 || t >= 1 {
		errs = append(errs, fmt.Errorf("storage.badger.gc_threshold must be in (0, 1), got %v", t))
	}
	return errors.Join(errs...)
}

func verifyCheckpoint(c *CheckpointSection) error {
	var errs []error
	if c.Interval < 0 || c.MinGap < 0 || c.Timeout < 0 || c.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("checkpoint durations must not be negative"))
	}
	if c.FullEvery < 0 {
		errs = append(errs, errors.New("checkpoint.full_every must not be negative"))
	}
	if c.Burst < 1 {
		errs = append(errs, errors.New("checkpoint.burst must be at least 1"))
	}
	return errors.Join(errs...)
}

func verifySecurity(s *SecuritySection) error {
	var errs []error
	if _, err := adaptive.ParseCipherType(s.Cipher); err != nil {
		errs = append(errs, fmt.Errorf("security.cipher: %w", err))
	}
	switch {
	case s.EncryptionKey != "" && s.Passphrase != "":
		errs = append(errs, errors.New("security.encryption_key and security.passphrase are mutually exclusive"))
	case s.EncryptionKey != "":
		if _, err := adaptive.DecodeKey(s.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("security.encryption_key: %w", err))
		}
	case s.Passphrase != "":
		if len(s.Passphrase) < adaptive.MinPassphraseLength {
			errs = append(errs, fmt.Errorf("security.passphrase: %w", adaptive.ErrPassphraseTooWeak))
		}
		salt, err := adaptive.DecodeKey(s.Salt)
		if err != nil || len(salt) != adaptive.SaltLength {
			errs = append(errs, fmt.Errorf("security.salt: %w", adaptive.ErrBadSalt))
		}
	}
	return errors.Join(errs...)
}

func verifyMetrics(m *MetricsSection) error {
	if !m.Enabled {
		return nil
	}
	if m.Addr == "" {
		return errors.New("metrics.addr is required when metrics are enabled")
	}
	if !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", m.Path)
	}
	return nil
}

func verifyLog(l *LogSection) error {
	if _, err := logger.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(l.Format) {
	case "json", "text", "console", "":
		return nil
	default:
		return fmt.Errorf("log.format: unknown format %q", l.Format)
	}
}
