package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/prim/internal/logger"
	"github.com/born-ml/prim/internal/validate"
)

func suiteCmd() *cli.Command {
	var (
		jobs    int64
		outPath string
	)

	return &cli.Command{
		Name:      "suite",
		Usage:     "Run a YAML validation suite",
		ArgsUsage: "<suite.yaml>",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "jobs", Aliases: []string{"j"}, Usage: "cases in flight (0 = GOMAXPROCS)", Destination: &jobs},
			&cli.StringFlag{Name: "report", Aliases: []string{"o"}, Usage: "write the JSON report to this file", Destination: &outPath},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("error: suite file required", 1)
			}
			ctx, eng, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			log := logger.FromContext(ctx)

			s, err := validate.LoadSuite(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Info("running suite", "suite", s.Name, "cases", len(s.Cases), "isa", eng.ISA().String())

			rep, err := validate.RunSuite(ctx, eng, s, int(jobs))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			w := writer(cmd)
			if jsonOutput {
				if err := rep.WriteJSON(w); err != nil {
					return cli.Exit(err.Error(), 1)
				}
			} else {
				for _, c := range rep.Cases {
					_, _ = fmt.Fprintf(w, "%-40s %-8s %6dms %s\n", c.Name, c.Status, c.Duration, c.Error)
				}
				_, _ = fmt.Fprintf(w, "passed %d, failed %d, skipped %d\n", rep.Passed, rep.Failed, rep.Skipped)
			}

			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: create report: %v", err), 1)
				}
				werr := rep.WriteJSON(f)
				if err := f.Close(); werr == nil {
					werr = err
				}
				if werr != nil {
					return cli.Exit(fmt.Sprintf("error: write report: %v", werr), 1)
				}
				log.Info("report written", "path", outPath)
			}

			if !rep.OK() {
				return cli.Exit(fmt.Sprintf("%d case(s) failed", rep.Failed), 1)
			}
			return nil
		},
	}
}
