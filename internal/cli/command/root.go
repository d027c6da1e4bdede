package command

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statekeep/internal/cli/output"
	"github.com/yndnr/statekeep/internal/config"
	"github.com/yndnr/statekeep/internal/infra/buildinfo"
	"github.com/yndnr/statekeep/internal/storage"
	"github.com/yndnr/statekeep/internal/telemetry/logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "statekeep",
		Usage:                "checkpoint an object space to a local store",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			RunCommand(),
			InspectCommand(),
			IndexCommand(),
			GCCommand(),
			KeygenCommand(),
			VersionCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a YAML configuration file",
			EnvVars: []string{"STATEKEEP_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "engine",
			Usage: "storage engine: memory, badger or bolt",
		},
		&cli.StringFlag{
			Name:  "dir",
			Usage: "storage directory",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level: debug, info, warn or error",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json or yaml",
			Value:   string(output.FormatTable),
		},
	}
}

// overrides maps explicitly set global flags to configuration keys.
func overrides(c *cli.Context) map[string]any {
	flagKeys := map[string]string{
		"engine":    "storage.engine",
		"dir":       "storage.dir",
		"log-level": "log.level",
	}
	out := make(map[string]any)
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			out[key] = c.String(flag)
		}
	}
	return out
}

// env is what every command needs after parsing flags.
type env struct {
	cfg    *config.Config
	log    logger.Logger
	format output.Formatter
	out    io.Writer
}

func setup(c *cli.Context) (*env, error) {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(c.String("config"), overrides(c))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	lc := cfg.LoggerConfig()
	lc.Output = c.App.ErrWriter
	log, err := logger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	return &env{
		cfg:    cfg,
		log:    log,
		format: output.NewFormatter(format),
		out:    c.App.Writer,
	}, nil
}

func (e *env) print(data any) error {
	return e.format.Format(e.out, data)
}

func (e *env) openStore() (storage.Store, error) {
	sc, err := e.cfg.StoreConfig(e.log.Slog())
	if err != nil {
		return nil, fmt.Errorf("build store config: %w", err)
	}
	store, err := storage.Open(sc)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", sc.Engine, err)
	}
	return store, nil
}
