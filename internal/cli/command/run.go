package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statekeep/internal/checkpoint"
	"github.com/yndnr/statekeep/internal/config"
	"github.com/yndnr/statekeep/internal/infra/buildinfo"
	"github.com/yndnr/statekeep/internal/infra/confloader"
	"github.com/yndnr/statekeep/internal/infra/shutdown"
	"github.com/yndnr/statekeep/internal/state/collections"
	"github.com/yndnr/statekeep/internal/state/objspace"
	"github.com/yndnr/statekeep/internal/storage"
	"github.com/yndnr/statekeep/internal/telemetry/logger"
	"github.com/yndnr/statekeep/internal/telemetry/metric"
)

// RunCommand returns the run command.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "mutate a demo population and checkpoint it periodically",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "stop after this long (0 runs until interrupted)",
			},
			&cli.DurationFlag{
				Name:  "tick",
				Usage: "interval between workload steps",
				Value: 100 * time.Millisecond,
			},
			&cli.IntFlag{
				Name:  "keys",
				Usage: "number of distinct dictionary keys",
				Value: 64,
			},
			&cli.IntFlag{
				Name:  "retain",
				Usage: "journal records to keep (0 keeps all)",
				Value: 256,
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "workload random seed (0 uses the clock)",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	log := e.log
	logger.SetDefault(log)
	ctx := logger.WithLogger(c.Context, log)

	log.Info("starting statekeep",
		"version", buildinfo.Get().Version,
		"engine", e.cfg.Storage.Engine,
		"dir", e.cfg.Storage.Dir)
	log.Debug("effective configuration", "config", fmt.Sprintf("%+v", *config.Sanitize(e.cfg)))

	store, err := e.openStore()
	if err != nil {
		return err
	}

	reg := metric.NewRegistry()
	if bs, ok := store.(*storage.BadgerStore); ok {
		bs.RegisterMetrics(reg.Registerer())
	}

	kinds := objspace.NewKinds()
	if err := collections.Register(kinds); err != nil {
		store.Close()
		return err
	}
	space := objspace.New(kinds, objspace.WithLogger(log.Slog()))
	if err := reg.WatchSpace(space); err != nil {
		store.Close()
		return err
	}

	cp := checkpoint.New(space, store, e.cfg.CheckpointConfig(reg, log.Slog()))
	if err := cp.Recover(ctx); err != nil {
		store.Close()
		return err
	}

	seed := c.Uint64("seed")
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	wl, err := newWorkload(space, c.Int("keys"), c.Int("retain"), seed)
	if err != nil {
		store.Close()
		return err
	}

	h := shutdown.NewHandler(e.cfg.Checkpoint.ShutdownTimeout, shutdown.WithLogger(log.Slog()))

	// Hooks run last-registered first.
	h.OnShutdown("store", func(context.Context) error { return store.Close() })
	h.OnShutdown("checkpointer", cp.Stop)

	if e.cfg.Metrics.Enabled {
		srv := serveMetrics(e.cfg.Metrics, reg, log)
		h.OnShutdown("metrics", srv.Shutdown)
	}

	if path := c.String("config"); path != "" {
		w, err := watchConfig(path, overrides(c), log)
		if err != nil {
			log.Warn("configuration reload disabled", "error", err)
		} else {
			h.OnShutdown("config watcher", func(context.Context) error { return w.Stop() })
		}
	}

	stopWorkload := startWorkload(wl, c.Duration("tick"), log)
	h.OnShutdown("workload", func(context.Context) error {
		stopWorkload()
		return nil
	})

	cp.Start()
	log.Info("statekeep running",
		"entities", space.Len(),
		"checkpoint_interval", e.cfg.Checkpoint.Interval)

	if d := c.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return h.Wait(ctx)
}

// startWorkload steps wl every tick until the returned function is called.
func startWorkload(wl *workload, tick time.Duration, log logger.Logger) func() {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if step, err := wl.Step(); err != nil {
					log.Error("workload step failed", "step", step, "error", err)
				}
			case <-stop:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}
}

func serveMetrics(m config.MetricsSection, reg *metric.Registry, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(m.Path, reg.Handler())
	srv := &http.Server{
		Addr:              m.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics listening", "addr", m.Addr, "path", m.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()
	return srv
}

// watchConfig follows the log level in the configuration file.
func watchConfig(path string, flags map[string]any, log logger.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		cfg, err := config.Load(path, flags)
		if err != nil {
			log.Warn("configuration reload rejected", "error", err)
			return
		}
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			log.Warn("configuration reload rejected", "error", err)
			return
		}
		log.Info("configuration reloaded", "log_level", logger.GetLevel())
	})
	w.StartAsync()
	return w, nil
}
