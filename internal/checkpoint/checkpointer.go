package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/statekeep/internal/core/domain"
	"github.com/yndnr/statekeep/internal/state/objspace"
	"github.com/yndnr/statekeep/internal/storage"
	"github.com/yndnr/statekeep/internal/telemetry/metric"
)

// Default configuration values.
const (
	DefaultInterval  = 30 * time.Second
	DefaultFullEvery = 10
	DefaultMinGap    = time.Second
	DefaultTimeout   = 30 * time.Second
)

// Config configures a Checkpointer.
type Config struct {
	// Interval between background checkpoints. Zero disables the loop.
	Interval time.Duration

	// FullEvery makes every N-th committed checkpoint full. Zero means
	// only failures force a full checkpoint.
	FullEvery int

	// MinGap is the minimum spacing of checkpoints requested through
	// Checkpoint. Zero disables throttling.
	MinGap time.Duration

	// Burst is the number of checkpoints allowed back to back.
	// Default: 1
	Burst int

	// Timeout bounds a single checkpoint. Zero means no bound beyond the
	// caller's context.
	Timeout time.Duration

	// Metrics receives checkpoint metrics. Nil means metric.Global().
	Metrics *metric.Registry

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultConfig returns the default checkpointer configuration.
func DefaultConfig() Config {
	return Config{
		Interval:  DefaultInterval,
		FullEvery: DefaultFullEvery,
		MinGap:    DefaultMinGap,
		Burst:     1,
		Timeout:   DefaultTimeout,
	}
}

// Result describes one checkpoint attempt.
type Result struct {
	ID         string
	Kind       storage.CheckpointKind
	Stats      objspace.SaveStats
	Operations int
	Elapsed    time.Duration

	// Skipped is set when the space had nothing to save.
	Skipped bool
}

// Checkpointer saves an object space to a store.
type Checkpointer struct {
	cfg     Config
	space   *objspace.Space
	store   storage.Store
	limiter *rate.Limiter
	metrics *metric.Registry
	logger  *slog.Logger

	// mu serializes save lifecycles.
	mu        sync.Mutex
	forceFull bool
	committed uint64
	stopped   bool

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates a checkpointer. It does not load anything; call Recover first
// when the store may hold a previous checkpoint.
func New(space *objspace.Space, store storage.Store, cfg Config) *Checkpointer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metric.Global()
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	limit := rate.Inf
	if cfg.MinGap > 0 {
		limit = rate.Every(cfg.MinGap)
	}

	return &Checkpointer{
		cfg:     cfg,
		space:   space,
		store:   store,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Recover loads every entity recorded in the store into the space.
func (c *Checkpointer) Recover(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	c.logger.Info("recovery started", "engine", c.store.Engine())

	n, err := c.space.Load(ctx, c.store)
	if err != nil {
		c.metrics.RecordRecovery(metric.ResultFailure, 0)
		return fmt.Errorf("recover object space: %w", err)
	}

	c.metrics.RecordRecovery(metric.ResultSuccess, n)
	c.logger.Info("recovery completed",
		"entities", n,
		"elapsed", time.Since(start))
	return nil
}

// Checkpoint saves the space once.
//
// Returns domain.ErrThrottled if called more often than MinGap allows and
// domain.ErrCheckpointerStopped after Stop. A clean space yields a skipped
// Result and no error.
func (c *Checkpointer) Checkpoint(ctx context.Context) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return Result{}, domain.ErrCheckpointerStopped
	}
	return c.run(ctx, true)
}

// NextKind reports the kind the next checkpoint will use.
func (c *Checkpointer) NextKind() storage.CheckpointKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextKind()
}

func (c *Checkpointer) nextKind() storage.CheckpointKind {
	if c.forceFull {
		return storage.KindFull
	}
	if n := uint64(c.cfg.FullEvery); n > 0 && (c.committed+1)%n == 0 {
		return storage.KindFull
	}
	return storage.KindDifferential
}

func (c *Checkpointer) run(ctx context.Context, throttle bool) (Result, error) {
	kind := c.nextKind()
	res := Result{Kind: kind}

	if !c.space.NeedsSave() {
		res.Skipped = true
		c.metrics.RecordCheckpoint(kind.String(), metric.ResultSkipped, 0)
		return res, nil
	}
	if throttle && !c.limiter.Allow() {
		c.metrics.RecordCheckpoint(kind.String(), metric.ResultThrottle, 0)
		return res, domain.ErrThrottled
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	w, err := c.store.Begin(kind)
	if err != nil {
		c.metrics.RecordCheckpoint(kind.String(), metric.ResultFailure, time.Since(start))
		return res, fmt.Errorf("begin checkpoint: %w", err)
	}
	res.ID = w.ID()

	res.Stats, err = c.space.Save(ctx, w)
	if err == nil {
		err = w.Commit(ctx, func(applied, total int) { res.Operations = total })
	}
	res.Elapsed = time.Since(start)

	if err != nil {
		c.fail(w, kind, res, err)
		return res, fmt.Errorf("checkpoint %s: %w", res.ID, err)
	}

	c.space.OnSaved()
	c.committed++
	c.forceFull = false

	c.metrics.RecordCheckpoint(kind.String(), metric.ResultSuccess, res.Elapsed)
	c.metrics.AddSaveStats(res.Stats.Saved, res.Stats.Skipped, res.Stats.Deleted)
	c.metrics.AddCommitOperations(res.Operations)
	c.logger.Info("checkpoint committed",
		"id", res.ID,
		"kind", kind.String(),
		"saved", res.Stats.Saved,
		"skipped", res.Stats.Skipped,
		"deleted", res.Stats.Deleted,
		"operations", res.Operations,
		"elapsed", res.Elapsed)
	return res, nil
}

// fail rolls back w and forces the next checkpoint to be full.
func (c *Checkpointer) fail(w storage.Writer, kind storage.CheckpointKind, res Result, err error) {
	if rbErr := w.Rollback(); rbErr != nil {
		c.logger.Warn("rollback failed", "id", res.ID, "error", rbErr)
	}
	c.forceFull = true
	if errors.Is(err, domain.ErrCheckpointTooLarge) {
		c.metrics.RecordCheckpoint(kind.String(), metric.ResultTooLarge, res.Elapsed)
		c.logger.Error("checkpoint exceeds the store transaction limit",
			"id", res.ID,
			"kind", kind.String(),
			"operations", res.Operations,
			"error", err)
		return
	}
	c.metrics.RecordCheckpoint(kind.String(), metric.ResultFailure, res.Elapsed)
	c.logger.Error("checkpoint failed",
		"id", res.ID,
		"kind", kind.String(),
		"elapsed", res.Elapsed,
		"error", err)
}

// Start launches the background loop. It does nothing when Interval is zero
// or when called again.
func (c *Checkpointer) Start() {
	c.startOnce.Do(func() {
		if c.cfg.Interval <= 0 {
			close(c.doneCh)
			return
		}
		go c.backgroundLoop()
	})
}

// backgroundLoop runs periodic checkpoints.
func (c *Checkpointer) backgroundLoop() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, err := c.Checkpoint(context.Background())
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrThrottled):
				c.logger.Debug("periodic checkpoint throttled")
			case errors.Is(err, domain.ErrCheckpointerStopped):
				return
			default:
				c.logger.Error("periodic checkpoint failed", "error", err)
			}

		case <-c.stopCh:
			return
		}
	}
}

// Stop ends the background loop and writes a final checkpoint if the space
// still has unsaved state. Later calls to Checkpoint fail with
// domain.ErrCheckpointerStopped. Stop does not close the store.
func (c *Checkpointer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		c.logger.Info("stopping checkpointer")

		c.startOnce.Do(func() { close(c.doneCh) })
		close(c.stopCh)
		<-c.doneCh

		c.mu.Lock()
		defer c.mu.Unlock()
		c.stopped = true

		if _, err = c.run(ctx, false); err != nil {
			c.logger.Error("final checkpoint failed", "error", err)
			return
		}
		c.logger.Info("checkpointer stopped")
	})
	return err
}
