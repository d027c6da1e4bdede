package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/statekeep/internal/core/domain"
)

// BadgerStore implements Store using Badger v3.
//
// Items live in one flat key space as "<category>\x00<key>".
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	sealer *sealer
	logger *slog.Logger

	lastGCTime       atomic.Int64  // Unix milliseconds
	gcBytesReclaimed atomic.Uint64 // Total bytes reclaimed by GC

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCRuns       prometheus.Counter

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerStore opens a Badger-backed store in cfg.Dir.
func NewBadgerStore(cfg Config) (*BadgerStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bcfg := cfg.Badger
	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}
	if bcfg.CacheSize > 0 {
		opts.BlockCacheSize = bcfg.CacheSize
	}
	if bcfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = bcfg.ValueLogFileSize
	}
	if bcfg.NumMemtables > 0 {
		opts.NumMemtables = bcfg.NumMemtables
	}
	if bcfg.NumLevelZeroTables > 0 {
		opts.NumLevelZeroTables = bcfg.NumLevelZeroTables
	}
	if bcfg.NumLevelZeroTablesStall > 0 {
		opts.NumLevelZeroTablesStall = bcfg.NumLevelZeroTablesStall
	}
	opts.SyncWrites = bcfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    bcfg,
		sealer: newSealer(cfg.Cipher),
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go s.gcLoop()

	logger.Info("badger store opened",
		"dir", cfg.Dir,
		"cache_size", bcfg.CacheSize,
		"gc_interval", bcfg.GCInterval,
		"sealed", cfg.Cipher != nil)

	return s, nil
}

func (s *BadgerStore) Engine() string { return EngineBadger }

// ListCategories scans keys only and collapses runs of the same category.
func (s *BadgerStore) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		last := ""
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			category, _, ok := decodeKey(it.Item().Key())
			if !ok || category == last {
				continue
			}
			categories = append(categories, category)
			last = category
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *BadgerStore) ListKeys(ctx context.Context, category string) ([]string, error) {
	prefix := []byte(category + keySeparator)
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *BadgerStore) OpenItem(ctx context.Context, category, key string) (io.ReadCloser, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(category, key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrItemNotFound.WithDetailsf("%s/%s", category, key)
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	plain, err := s.sealer.open(category, key, value)
	if err != nil {
		return nil, err
	}
	return itemReader(plain), nil
}

func (s *BadgerStore) Begin(kind CheckpointKind) (Writer, error) {
	if s.db.IsClosed() {
		return nil, domain.ErrStoreClosed
	}
	return newStagedWriter(kind, s.sealer, s.apply), nil
}

// apply runs every staged operation in a single read-write transaction.
func (s *BadgerStore) apply(ctx context.Context, ops []stagedOp, progress ProgressFunc) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for i, op := range ops {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch op.typ {
			case opPut:
				if err := txn.Set(encodeKey(op.category, op.key), op.value); err != nil {
					return err
				}
			case opDelete:
				if err := txn.Delete(encodeKey(op.category, op.key)); err != nil {
					return err
				}
			case opDeletePrefix:
				if err := deletePrefix(txn, []byte(op.category)); err != nil {
					return err
				}
			}
			progress(i+1, len(ops))
		}
		return nil
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return domain.ErrCheckpointTooLarge.WithDetailsf("%d operations exceed the badger transaction limit", len(ops)).WithCause(err)
	}
	return err
}

// deletePrefix collects matching keys first; the iterator must not observe
// its own transaction's deletes.
func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// GC runs value log garbage collection until nothing is left to rewrite.
func (s *BadgerStore) GC(ctx context.Context) (int, error) {
	startTime := time.Now()

	runs := 0
	for {
		if err := ctx.Err(); err != nil {
			return runs, err
		}
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return runs, fmt.Errorf("gc: %w", err)
		}
		runs++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	if s.metricsGCRuns != nil {
		s.metricsGCRuns.Add(float64(runs))
	}

	s.logger.Debug("badger gc completed",
		"rewrites", runs,
		"elapsed", time.Since(startTime))

	return runs, nil
}

// Size returns the LSM tree and value log sizes in bytes.
func (s *BadgerStore) Size() (lsm, vlog int64) {
	return s.db.Size()
}

// Close stops background work and closes the database.
func (s *BadgerStore) Close() error {
	s.logger.Info("closing badger store")

	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// RegisterMetrics registers Badger metrics with Prometheus and starts a
// background updater. It returns the store for chaining.
func (s *BadgerStore) RegisterMetrics(registry prometheus.Registerer) *BadgerStore {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "statekeep",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})
	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "statekeep",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})
	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "statekeep",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})
	s.metricsGCRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "statekeep",
		Subsystem: "badger",
		Name:      "gc_rewrites_total",
		Help:      "Value log files rewritten by Badger garbage collection",
	})

	registry.MustRegister(
		s.metricsLSMSize,
		s.metricsValueLogSize,
		s.metricsLastGCTime,
		s.metricsGCRuns,
	)

	s.updateMetrics()
	go s.metricsUpdateLoop()
	return s
}

func (s *BadgerStore) updateMetrics() {
	lsm, vlog := s.db.Size()
	s.metricsLSMSize.Set(float64(lsm))
	s.metricsValueLogSize.Set(float64(vlog))
	if t := s.lastGCTime.Load(); t > 0 {
		s.metricsLastGCTime.Set(float64(t) / 1000.0)
	}
}

func (s *BadgerStore) metricsUpdateLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateMetrics()
		case <-s.stopCh:
			return
		}
	}
}

func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	interval := s.cfg.GCInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
			cancel()

		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
