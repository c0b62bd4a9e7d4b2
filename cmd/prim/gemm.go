package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/born-ml/prim/internal/validate"
)

func gemmCmd() *cli.Command {
	var (
		p                   validate.GemmParams
		m, n, k             int64
		lda, ldb, ldc       int64
		offA, offB, offC    int64
		alpha, beta         float64
		zeroOA, zeroOB, zoc bool
	)

	return &cli.Command{
		Name:  "gemm",
		Usage: "Validate one GEMM problem (column-major, C = alpha*op(A)*op(B) + beta*C)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "types", Usage: "f32, f16, s8s8s32 or s8u8s32", Value: "f32", Destination: &p.Types},
			&cli.StringFlag{Name: "trans-a", Usage: "N or T", Value: "N", Destination: &p.TransA},
			&cli.StringFlag{Name: "trans-b", Usage: "N or T", Value: "N", Destination: &p.TransB},
			&cli.Int64Flag{Name: "m", Value: 64, Destination: &m},
			&cli.Int64Flag{Name: "n", Value: 64, Destination: &n},
			&cli.Int64Flag{Name: "k", Value: 64, Destination: &k},
			&cli.Float64Flag{Name: "alpha", Value: 1, Destination: &alpha},
			&cli.Float64Flag{Name: "beta", Value: 0, Destination: &beta},
			&cli.Int64Flag{Name: "lda", Usage: "leading dimension of A (0 = packed)", Destination: &lda},
			&cli.Int64Flag{Name: "ldb", Usage: "leading dimension of B (0 = packed)", Destination: &ldb},
			&cli.Int64Flag{Name: "ldc", Usage: "leading dimension of C (0 = packed)", Destination: &ldc},
			&cli.Int64Flag{Name: "off-a", Usage: "element offset of A in its buffer", Destination: &offA},
			&cli.Int64Flag{Name: "off-b", Usage: "element offset of B in its buffer", Destination: &offB},
			&cli.Int64Flag{Name: "off-c", Usage: "element offset of C in its buffer", Destination: &offC},
			&cli.StringFlag{Name: "offset-c", Usage: "integer C offset mode: F, R, C or N", Value: "F", Destination: &p.IGemm.OffsetC},
			&cli.BoolFlag{Name: "zero-oa", Usage: "use zero point 0 for A", Destination: &zeroOA},
			&cli.BoolFlag{Name: "zero-ob", Usage: "use zero point 0 for B", Destination: &zeroOB},
			&cli.BoolFlag{Name: "zero-oc", Usage: "use a zero C offset vector", Destination: &zoc},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, eng, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			p.M, p.N, p.K = int(m), int(n), int(k)
			p.LDA, p.LDB, p.LDC = int(lda), int(ldb), int(ldc)
			p.Off = validate.GemmOffsets{A: int(offA), B: int(offB), C: int(offC)}
			p.Alpha, p.Beta = float32(alpha), float32(beta)
			p.IGemm.ZeroOA, p.IGemm.ZeroOB, p.IGemm.ZeroOC = zeroOA, zeroOB, zoc

			name := fmt.Sprintf("gemm %s %s%s m%d n%d k%d", p.Types, p.TransA, p.TransB, p.M, p.N, p.K)
			res, err := validate.RunGemm(ctx, eng, p)
			return report(cmd, name, res, err)
		},
	}
}
