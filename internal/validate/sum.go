package validate

import (
	"context"

	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/parallel"
	"github.com/born-ml/prim/internal/primitive"
	"github.com/born-ml/prim/internal/reference"
	"github.com/born-ml/prim/internal/status"
)

// SumParams is one n-ary sum validation case. Every source and the
// destination share DataType.
type SumParams struct {
	DataType   string    `json:"data_type" yaml:"data_type"`
	SrcFormats []string  `json:"src_formats" yaml:"src_formats"`
	DstFormat  string    `json:"dst_format,omitempty" yaml:"dst_format"`
	Dims       []int     `json:"dims" yaml:"dims"`
	Scales     []float32 `json:"scales" yaml:"scales"`
	OmitOutput bool      `json:"omit_output,omitempty" yaml:"omit_output"`
}

// sumPrefill is written to dst before execution so untouched elements show.
const sumPrefill = -32

// mantissaDigits is the float precision kept in sum sources so that the
// weighted sums are exact.
const mantissaDigits = 3

// RunSum validates one sum case. The destination must equal the per-step
// clamped reference exactly.
func RunSum(ctx context.Context, eng *engine.Engine, p SumParams) (Result, error) {
	dt := memory.F32
	if p.DataType != "" {
		var err error
		if dt, err = memory.ParseDataType(p.DataType); err != nil {
			return Result{}, err
		}
	}
	if len(p.SrcFormats) == 0 {
		return Result{}, status.Invalidf("sum", "no source formats")
	}

	srcs := make([]*memory.Buffer, len(p.SrcFormats))
	mds := make([]memory.Desc, len(p.SrcFormats))
	for i, name := range p.SrcFormats {
		tag, err := memory.ParseFormatTag(name)
		if err != nil {
			return Result{}, err
		}
		if mds[i], err = memory.NewDesc(p.Dims, dt, tag); err != nil {
			return Result{}, err
		}
		if srcs[i], err = memory.NewBuffer(mds[i], eng); err != nil {
			return Result{}, err
		}
		FillData(srcs[i], mds[i].PhysicalElements())
		truncateMantissa(srcs[i], mantissaDigits)
	}

	var dstMD *memory.Desc
	if !p.OmitOutput {
		tag := memory.Any
		if p.DstFormat != "" {
			var err error
			if tag, err = memory.ParseFormatTag(p.DstFormat); err != nil {
				return Result{}, err
			}
		}
		md, err := memory.NewDesc(p.Dims, dt, tag)
		if err != nil {
			return Result{}, err
		}
		dstMD = &md
	}

	pd, err := primitive.NewSumDesc(eng, dstMD, p.Scales, mds)
	if err != nil {
		return Result{}, err
	}
	dst, err := memory.NewBuffer(pd.Query(primitive.ArgDst), eng)
	if err != nil {
		return Result{}, err
	}
	dst.Fill(sumPrefill)

	args := primitive.Args{primitive.ArgDst: dst}
	for i, s := range srcs {
		args[primitive.ArgMultipleSrc+primitive.Arg(i)] = s
	}
	if err := execute(ctx, eng, pd, args); err != nil {
		return Result{}, err
	}

	dims := dst.Desc().Dims()
	if dims.NumElements() == 0 {
		return Result{}, nil
	}
	col := &collector{tol: Exact}
	parallel.ForND(dims, func(idx []int) {
		values := make([]float64, len(srcs))
		for i, s := range srcs {
			values[i] = s.At(idx...)
		}
		want := memory.Quantize(dt, reference.Sum(values, p.Scales, dt))
		col.check(idx, dst.At(idx...), want)
	}, eng.Parallel())
	return col.res, nil
}
