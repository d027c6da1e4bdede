package config

import (
	"time"

	"github.com/yndnr/statekeep/internal/checkpoint"
	"github.com/yndnr/statekeep/internal/storage"
	"github.com/yndnr/statekeep/pkg/crypto/adaptive"
)

// Default configuration values.
const (
	DefaultDataDir         = "/var/lib/statekeep"
	DefaultShutdownTimeout = 30 * time.Second

	DefaultMetricsAddr = "127.0.0.1:9464"
	DefaultMetricsPath = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default configuration.
func Default() *Config {
	badger := storage.DefaultBadgerConfig()
	bolt := storage.DefaultBoltConfig()
	kdf := adaptive.DefaultKeyParams()

	return &Config{
		Storage: StorageSection{
			Engine: storage.EngineBadger,
			Dir:    DefaultDataDir,
			Badger: BadgerSection{
				GCInterval:       badger.GCInterval,
				GCThreshold:      badger.GCThreshold,
				CacheSize:        badger.CacheSize,
				ValueLogFileSize: badger.ValueLogFileSize,
				SyncWrites:       badger.SyncWrites,
			},
			Bolt: BoltSection{
				FileName: bolt.FileName,
				Timeout:  bolt.Timeout,
			},
		},
		Checkpoint: CheckpointSection{
			Interval:        checkpoint.DefaultInterval,
			FullEvery:       checkpoint.DefaultFullEvery,
			MinGap:          checkpoint.DefaultMinGap,
			Burst:           1,
			Timeout:         checkpoint.DefaultTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Security: SecuritySection{
			Cipher: "auto",
			KDF: KDFSection{
				Time:      kdf.Time,
				MemoryKiB: kdf.MemoryKiB,
				Threads:   kdf.Threads,
			},
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
			Path: DefaultMetricsPath,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
