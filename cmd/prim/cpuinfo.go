package main

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/prim/internal/engine"
)

func cpuinfoCmd() *cli.Command {
	return &cli.Command{
		Name:  "cpuinfo",
		Usage: "Print detected CPU features and the dispatch ISA",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, eng, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			w := writer(cmd)
			isa := eng.ISA()
			_, _ = fmt.Fprintf(w, "arch:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
			_, _ = fmt.Fprintf(w, "detected:   %s\n", engine.DetectISA())
			_, _ = fmt.Fprintf(w, "dispatch:   %s\n", isa)
			_, _ = fmt.Fprintf(w, "int8:       %t\n", isa.Int8())
			_, _ = fmt.Fprintf(w, "f16:        %t\n", isa.F16())
			_, _ = fmt.Fprintf(w, "block size: %d\n", isa.BlockSize())

			features := engine.Features()
			names := make([]string, 0, len(features))
			for name := range features {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				_, _ = fmt.Fprintf(w, "  %-12s %t\n", name, features[name])
			}
			return nil
		},
	}
}
