package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/logger"
	"github.com/born-ml/prim/internal/parallel"
)

const envMaxISA = "PRIM_MAX_CPU_ISA"

// Config represents the prim configuration file (~/.config/prim/config.yaml).
type Config struct {
	MaxISA    string `yaml:"max_isa"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Workers   *int64 `yaml:"workers"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "prim", "config.yaml")
}

// loadConfig reads path, or the default location when path is empty. Only
// an explicitly named file must exist.
func loadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, errors.Wrap(err, "read config")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// applyConfig applies config file defaults to the global flag variables when
// the corresponding flag was not explicitly set. The ISA cap comes from the
// flag, then the environment, then the file.
func applyConfig(c *cli.Command, cfg Config) {
	if !c.IsSet("max-isa") {
		if env := strings.TrimSpace(os.Getenv(envMaxISA)); env != "" {
			maxISA = env
		} else if cfg.MaxISA != "" {
			maxISA = cfg.MaxISA
		}
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if cfg.Workers != nil && !c.IsSet("workers") {
		workers = *cfg.Workers
	}
}

// setup resolves configuration, installs the logger in ctx and creates the
// CPU engine every command runs on.
func setup(ctx context.Context, c *cli.Command) (context.Context, *engine.Engine, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return ctx, nil, cli.Exit(err.Error(), 1)
	}
	applyConfig(c, cfg)

	log, err := logger.Build(logFormat, logger.ParseLevel(logLevel), errWriter(c))
	if err != nil {
		return ctx, nil, cli.Exit(err.Error(), 1)
	}
	ctx = logger.WithContext(ctx, log)

	opts := []engine.Option{engine.WithLogger(log)}
	if maxISA != "" {
		isa, err := engine.ParseISA(maxISA)
		if err != nil {
			return ctx, nil, cli.Exit(err.Error(), 1)
		}
		opts = append(opts, engine.WithMaxISA(isa))
	}
	if workers > 0 {
		par := parallel.DefaultConfig()
		par.NumWorkers = int(workers)
		par.Enabled = workers > 1
		opts = append(opts, engine.WithParallel(par))
	}
	eng, err := engine.New(engine.CPU, 0, opts...)
	if err != nil {
		return ctx, nil, cli.Exit(err.Error(), 1)
	}
	log.Debug("engine ready", "isa", eng.ISA().String(), "id", eng.ID().String())
	return ctx, eng, nil
}
