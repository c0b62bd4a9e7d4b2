package main

import "github.com/urfave/cli/v3"

var (
	configFile string
	logLevel   string
	logFormat  string
	maxISA     string
	workers    int64
	jsonOutput bool
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config file (default $XDG_CONFIG_HOME/prim/config.yaml)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.StringFlag{
			Name:        "max-isa",
			Usage:       "highest instruction set to dispatch to (e.g. avx2, asimd); overrides " + envMaxISA,
			Destination: &maxISA,
		},
		&cli.Int64Flag{
			Name:        "workers",
			Usage:       "goroutines per kernel (0 = one per CPU)",
			Destination: &workers,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print results as JSON",
			Destination: &jsonOutput,
		},
	}
}
