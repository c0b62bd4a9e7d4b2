package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/prim/internal/validate"
)

func convCmd() *cli.Command {
	var (
		p     validate.ConvParams
		shape [11]int64
		scale float64
	)
	names := [11]string{"mb", "ic", "ih", "iw", "oc", "kh", "kw", "sh", "sw", "ph", "pw"}
	defaults := [11]int64{2, 16, 13, 13, 32, 3, 3, 1, 1, 1, 1}

	flags := []cli.Flag{
		&cli.StringFlag{Name: "src-type", Usage: "u8, s8 or f32", Value: "u8", Destination: &p.SrcType},
		&cli.StringFlag{Name: "dst-type", Usage: "destination type (empty = source type)", Destination: &p.DstType},
		&cli.BoolFlag{Name: "per-channel", Usage: "use per-output-channel scales", Destination: &p.PerChannel},
		&cli.Float64Flag{Name: "scale", Usage: "common output scale (0 = none)", Destination: &scale},
		&cli.BoolFlag{Name: "sum", Usage: "fuse a sum post-op", Destination: &p.Sum},
		&cli.BoolFlag{Name: "relu", Usage: "fuse a ReLU post-op", Destination: &p.Relu},
	}
	for i, name := range names {
		flags = append(flags, &cli.Int64Flag{Name: name, Value: defaults[i], Destination: &shape[i]})
	}

	return &cli.Command{
		Name:  "conv",
		Usage: "Validate one forward convolution",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, eng, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			s := shape
			p.MB, p.IC, p.IH, p.IW, p.OC = int(s[0]), int(s[1]), int(s[2]), int(s[3]), int(s[4])
			p.KH, p.KW, p.SH, p.SW, p.PH, p.PW = int(s[5]), int(s[6]), int(s[7]), int(s[8]), int(s[9]), int(s[10])
			p.Scale = float32(scale)

			name := fmt.Sprintf("conv %s mb%dic%dih%diw%doc%dkh%dkw%d", p.SrcType, p.MB, p.IC, p.IH, p.IW, p.OC, p.KH, p.KW)
			res, err := validate.RunConv(ctx, eng, p)
			return report(cmd, name, res, err)
		},
	}
}
