package config

import (
	"fmt"
	"log/slog"

	"github.com/yndnr/statekeep/internal/checkpoint"
	"github.com/yndnr/statekeep/internal/storage"
	"github.com/yndnr/statekeep/internal/telemetry/logger"
	"github.com/yndnr/statekeep/internal/telemetry/metric"
	"github.com/yndnr/statekeep/pkg/crypto/adaptive"
)

// storageKeyInfo binds the store key to its purpose.
const storageKeyInfo = "statekeep/storage/v1"

// Cipher builds the item cipher, or returns nil when encryption is off.
// The store key is an HKDF subkey of the configured or derived master key.
func (s SecuritySection) Cipher() (adaptive.Cipher, error) {
	var master []byte
	switch {
	case s.EncryptionKey != "":
		key, err := adaptive.DecodeKey(s.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("decode encryption key: %w", err)
		}
		master = key
	case s.Passphrase != "":
		salt, err := adaptive.DecodeKey(s.Salt)
		if err != nil {
			return nil, fmt.Errorf("decode salt: %w", err)
		}
		key, err := adaptive.DeriveKey([]byte(s.Passphrase), salt, adaptive.KeyParams{
			Time:      s.KDF.Time,
			MemoryKiB: s.KDF.MemoryKiB,
			Threads:   s.KDF.Threads,
		})
		if err != nil {
			return nil, fmt.Errorf("derive key: %w", err)
		}
		master = key
	default:
		return nil, nil
	}
	defer adaptive.Zero(master)

	typ, err := adaptive.ParseCipherType(s.Cipher)
	if err != nil {
		return nil, err
	}
	key, err := adaptive.DeriveSubkey(master, storageKeyInfo, adaptive.KeyLength)
	if err != nil {
		return nil, err
	}
	defer adaptive.Zero(key)
	return adaptive.NewWithType(key, typ)
}

// StoreConfig returns the storage configuration.
func (c *Config) StoreConfig(log *slog.Logger) (storage.Config, error) {
	cipher, err := c.Security.Cipher()
	if err != nil {
		return storage.Config{}, err
	}

	sc := storage.DefaultConfig(c.Storage.Dir)
	sc.Engine = c.Storage.Engine
	sc.Badger.GCInterval = c.Storage.Badger.GCInterval
	sc.Badger.GCThreshold = c.Storage.Badger.GCThreshold
	sc.Badger.CacheSize = c.Storage.Badger.CacheSize
	sc.Badger.ValueLogFileSize = c.Storage.Badger.ValueLogFileSize
	sc.Badger.SyncWrites = c.Storage.Badger.SyncWrites
	sc.Bolt.FileName = c.Storage.Bolt.FileName
	sc.Bolt.Timeout = c.Storage.Bolt.Timeout
	sc.Bolt.NoSync = c.Storage.Bolt.NoSync
	sc.Cipher = cipher
	sc.Logger = log
	return sc, nil
}

// CheckpointConfig returns the checkpointer configuration.
func (c *Config) CheckpointConfig(reg *metric.Registry, log *slog.Logger) checkpoint.Config {
	return checkpoint.Config{
		Interval:  c.Checkpoint.Interval,
		FullEvery: c.Checkpoint.FullEvery,
		MinGap:    c.Checkpoint.MinGap,
		Burst:     c.Checkpoint.Burst,
		Timeout:   c.Checkpoint.Timeout,
		Metrics:   reg,
		Logger:    log,
	}
}

// LoggerConfig returns the logger configuration.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:     c.Log.Level,
		Format:    c.Log.Format,
		AddSource: c.Log.AddSource,
	}
}
