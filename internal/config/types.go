package config

import "time"

// Config is the root configuration of statekeep.
type Config struct {
	Storage    StorageSection    `koanf:"storage"`
	Checkpoint CheckpointSection `koanf:"checkpoint"`
	Security   SecuritySection   `koanf:"security"`
	Metrics    MetricsSection    `koanf:"metrics"`
	Log        LogSection        `koanf:"log"`
}

// StorageSection selects and tunes the checkpoint store.
type StorageSection struct {
	// Engine is one of "memory", "badger", "bolt".
	Engine string `koanf:"engine"`
	// Dir holds the store files.
	Dir    string        `koanf:"dir"`
	Badger BadgerSection `koanf:"badger"`
	Bolt   BoltSection   `koanf:"bolt"`
}

// BadgerSection tunes the badger engine.
type BadgerSection struct {
	GCInterval       time.Duration `koanf:"gc_interval"`
	GCThreshold      float64       `koanf:"gc_threshold"`
	CacheSize        int64         `koanf:"cache_size"`
	ValueLogFileSize int64         `koanf:"value_log_file_size"`
	SyncWrites       bool          `koanf:"sync_writes"`
}

// BoltSection tunes the bbolt engine.
type BoltSection struct {
	FileName string        `koanf:"file_name"`
	Timeout  time.Duration `koanf:"timeout"`
	NoSync   bool          `koanf:"no_sync"`
}

// CheckpointSection configures the checkpointer.
type CheckpointSection struct {
	Interval  time.Duration `koanf:"interval"`
	FullEvery int           `koanf:"full_every"`
	MinGap    time.Duration `koanf:"min_gap"`
	Burst     int           `koanf:"burst"`
	Timeout   time.Duration `koanf:"timeout"`

	// ShutdownTimeout bounds the final checkpoint and store close.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecuritySection configures encryption at rest. At most one of
// EncryptionKey and Passphrase may be set; with neither, items are stored
// in the clear.
type SecuritySection struct {
	// EncryptionKey is a hex or base64 master key.
	EncryptionKey string `koanf:"encryption_key"`

	// Passphrase is stretched with Argon2id using Salt.
	Passphrase string `koanf:"passphrase"`

	// Salt is the hex or base64 Argon2id salt.
	Salt string `koanf:"salt"`

	// Cipher is "auto", "aes-gcm" or "chacha20-poly1305".
	Cipher string     `koanf:"cipher"`
	KDF    KDFSection `koanf:"kdf"`
}

// KDFSection tunes Argon2id.
type KDFSection struct {
	Time      uint32 `koanf:"time"`
	MemoryKiB uint32 `koanf:"memory_kib"`
	Threads   uint8  `koanf:"threads"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	Path    string `koanf:"path"`
}

// LogSection configures logging.
type LogSection struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	AddSource bool   `koanf:"add_source"`
}
