package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/yndnr/statekeep/internal/core/domain"
	"github.com/yndnr/statekeep/pkg/crypto/adaptive"
)

// Engine names accepted by Open.
const (
	EngineMemory = "memory"
	EngineBadger = "badger"
	EngineBolt   = "bolt"
)

// CheckpointKind tells entities whether a checkpoint carries a full image of
// outstanding state or only what changed since the previous checkpoint.
type CheckpointKind uint8

const (
	KindDifferential CheckpointKind = iota
	KindFull
)

func (k CheckpointKind) String() string {
	switch k {
	case KindDifferential:
		return "differential"
	case KindFull:
		return "full"
	default:
		return fmt.Sprintf("CheckpointKind(%d)", uint8(k))
	}
}

// ProgressFunc receives commit progress as applied and total staged operations.
type ProgressFunc func(applied, total int)

// Reader reads committed items.
type Reader interface {
	// ListCategories returns every category holding at least one item, sorted.
	ListCategories(ctx context.Context) ([]string, error)

	// ListKeys returns the keys of a category, sorted. An unknown category
	// yields an empty list.
	ListKeys(ctx context.Context, category string) ([]string, error)

	// OpenItem opens an item for reading.
	// Returns domain.ErrItemNotFound if the item does not exist.
	OpenItem(ctx context.Context, category, key string) (io.ReadCloser, error)
}

// Writer stages the operations of one checkpoint.
//
// Nothing is visible to readers until Commit succeeds. After Commit or
// Rollback the writer is closed and further calls return
// domain.ErrWriterClosed.
type Writer interface {
	// ID identifies the checkpoint (a ULID).
	ID() string

	// Kind reports whether this is a full or differential checkpoint.
	Kind() CheckpointKind

	// OpenItemForWrite returns a sink for an item's new content. The write
	// is staged when the sink is closed.
	OpenItemForWrite(ctx context.Context, category, key string) (io.WriteCloser, error)

	// DeleteItem stages the removal of an item. Deleting a missing item is
	// not an error.
	DeleteItem(ctx context.Context, category, key string) error

	// DeleteCategories stages the removal of every item whose category
	// starts with prefix.
	DeleteCategories(ctx context.Context, prefix string) error

	// Commit applies every staged operation atomically. If ctx is done
	// before the backend transaction starts, nothing is applied.
	Commit(ctx context.Context, progress ProgressFunc) error

	// Rollback discards every staged operation. It is safe to call after
	// Commit and more than once.
	Rollback() error
}

// Store is a checkpoint store.
type Store interface {
	Reader

	// Begin starts a checkpoint of the given kind.
	Begin(kind CheckpointKind) (Writer, error)

	// Engine returns the engine name.
	Engine() string

	// Close releases the store.
	Close() error
}

// Config configures a checkpoint store.
type Config struct {
	// Engine is one of "memory", "badger", "bolt".
	// Default: "badger"
	Engine string

	// Dir is the storage directory (unused by the memory engine).
	Dir string

	// Badger-specific configuration
	Badger BadgerConfig

	// Bolt-specific configuration
	Bolt BoltConfig

	// Cipher seals item values when set.
	Cipher adaptive.Cipher

	// Logger is the structured logger.
	Logger *slog.Logger
}

// BadgerConfig contains Badger-specific tuning parameters.
//
// A checkpoint commits in a single Badger transaction, which Badger caps at
// a fraction of the memtable size (about 10MB of writes with the defaults).
// A larger checkpoint fails with domain.ErrCheckpointTooLarge on every
// retry; it only commits after the backlog is split by checkpointing more
// often or the engine is switched to bolt.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	// Default: 2
	NumMemtables int

	// NumLevelZeroTables is the number of Level 0 tables before compaction.
	// Default: 5
	NumLevelZeroTables int

	// NumLevelZeroTablesStall is the number of Level 0 tables that triggers write stall.
	// Default: 10
	NumLevelZeroTablesStall int

	// SyncWrites fsyncs every commit. Checkpoints are only acknowledged
	// after Commit returns, so this defaults to true.
	SyncWrites bool
}

// BoltConfig contains bbolt-specific parameters.
type BoltConfig struct {
	// FileName is the database file inside Dir.
	// Default: "checkpoints.db"
	FileName string

	// Timeout is how long Open waits for the file lock.
	// Default: 1s
	Timeout time.Duration

	// NoSync skips fsync on commit. Only for tests.
	NoSync bool
}

// DefaultConfig returns the default store configuration.
func DefaultConfig(dir string) Config {
	return Config{
		Engine: EngineBadger,
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
		Bolt:   DefaultBoltConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:              10 * time.Minute,
		GCThreshold:             0.5,
		CacheSize:               64 << 20,  // 64MB
		ValueLogFileSize:        256 << 20, // 256MB
		NumMemtables:            2,
		NumLevelZeroTables:      5,
		NumLevelZeroTablesStall: 10,
		SyncWrites:              true,
	}
}

// DefaultBoltConfig returns the default bbolt configuration.
func DefaultBoltConfig() BoltConfig {
	return BoltConfig{
		FileName: "checkpoints.db",
		Timeout:  time.Second,
	}
}

// Open opens the store selected by cfg.Engine.
func Open(cfg Config) (Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	switch strings.ToLower(cfg.Engine) {
	case EngineMemory:
		return NewMemoryStore(cfg.Cipher), nil
	case EngineBadger, "":
		return NewBadgerStore(cfg)
	case EngineBolt:
		return NewBoltStore(cfg)
	default:
		return nil, domain.ErrInvalidArgument.WithDetailsf("unknown storage engine %q", cfg.Engine)
	}
}

// ReadItem reads a whole item.
func ReadItem(ctx context.Context, r Reader, category, key string) ([]byte, error) {
	rc, err := r.OpenItem(ctx, category, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// WriteItem stages a whole item.
func WriteItem(ctx context.Context, w Writer, category, key string, value []byte) error {
	wc, err := w.OpenItemForWrite(ctx, category, key)
	if err != nil {
		return err
	}
	if _, err := wc.Write(value); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}
