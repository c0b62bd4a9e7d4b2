package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/prim/internal/validate"
)

func sumCmd() *cli.Command {
	var (
		p      validate.SumParams
		dims   string
		scales string
	)

	return &cli.Command{
		Name:  "sum",
		Usage: "Validate one n-ary scaled sum",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "data type of sources and destination", Value: "f32", Destination: &p.DataType},
			&cli.StringSliceFlag{Name: "src-format", Usage: "format of each source (repeat per source)", Value: []string{"nchw", "nchw"}, Destination: &p.SrcFormats},
			&cli.StringFlag{Name: "dst-format", Usage: "destination format (empty = any)", Destination: &p.DstFormat},
			&cli.StringFlag{Name: "dims", Usage: "logical dims, comma separated", Value: "2,16,3,4", Destination: &dims},
			&cli.StringFlag{Name: "scales", Usage: "one scale per source, comma separated", Value: "2,3", Destination: &scales},
			&cli.BoolFlag{Name: "omit-output", Usage: "let the primitive pick the destination descriptor", Destination: &p.OmitOutput},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var err error
			if p.Dims, err = parseInts(dims); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if p.Scales, err = parseFloats(scales); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			ctx, eng, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			name := fmt.Sprintf("sum %s %v %s", p.DataType, p.SrcFormats, dims)
			res, err := validate.RunSum(ctx, eng, p)
			return report(cmd, name, res, err)
		},
	}
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.Wrapf(err, "parse %q", s)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float32, error) {
	var out []float32
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %q", s)
		}
		out = append(out, float32(v))
	}
	return out, nil
}
