package validate

import (
	"context"

	"github.com/born-ml/prim/internal/attr"
	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/parallel"
	"github.com/born-ml/prim/internal/primitive"
	"github.com/born-ml/prim/internal/problem"
	"github.com/born-ml/prim/internal/reference"
)

// ConvParams is one forward convolution validation case. Operand formats
// are left to the primitive.
type ConvParams struct {
	SrcType  string `json:"src_type" yaml:"src_type"`
	DstType  string `json:"dst_type" yaml:"dst_type"`
	BiasType string `json:"bias_type,omitempty" yaml:"bias_type"`

	MB int `json:"mb" yaml:"mb"`
	IC int `json:"ic" yaml:"ic"`
	IH int `json:"ih" yaml:"ih"`
	IW int `json:"iw" yaml:"iw"`
	OC int `json:"oc" yaml:"oc"`
	KH int `json:"kh" yaml:"kh"`
	KW int `json:"kw" yaml:"kw"`
	SH int `json:"sh" yaml:"sh"`
	SW int `json:"sw" yaml:"sw"`
	PH int `json:"ph" yaml:"ph"`
	PW int `json:"pw" yaml:"pw"`

	// PerChannel uses one scale per output channel: 0.3 for the first
	// half and 0.8 for the rest. Otherwise Scale applies to every element.
	PerChannel bool    `json:"per_channel,omitempty" yaml:"per_channel"`
	Scale      float32 `json:"scale,omitempty" yaml:"scale"`
	Sum        bool    `json:"sum,omitempty" yaml:"sum"`
	Relu       bool    `json:"relu,omitempty" yaml:"relu"`
}

func (p ConvParams) types() (src, wei, bias, dst memory.DataType, err error) {
	parse := func(name string, def memory.DataType) (memory.DataType, error) {
		if name == "" {
			return def, nil
		}
		return memory.ParseDataType(name)
	}
	if src, err = parse(p.SrcType, memory.U8); err != nil {
		return
	}
	wei, bias = memory.S8, memory.S32
	if src == memory.F32 {
		wei, bias = memory.F32, memory.F32
	}
	if bias, err = parse(p.BiasType, bias); err != nil {
		return
	}
	dst, err = parse(p.DstType, src)
	return
}

// Attr builds the output scales and post-ops of the case.
func (p ConvParams) Attr() (attr.Attr, error) {
	var opts []attr.Option
	if p.PerChannel {
		scales := make([]float32, p.OC)
		for i := range scales {
			scales[i] = 0.3
			if i >= p.OC/2 {
				scales[i] = 0.8
			}
		}
		opts = append(opts, attr.WithOutputScales(1<<1, scales))
	} else if p.Scale != 0 {
		opts = append(opts, attr.WithOutputScales(0, []float32{p.Scale}))
	}
	var ops attr.PostOps
	if p.Sum {
		ops.AppendSum(1)
	}
	if p.Relu {
		ops.AppendEltwise(1, attr.EltwiseRelu, 0, 0)
	}
	opts = append(opts, attr.WithPostOps(ops))
	return attr.New(opts...)
}

// Config builds the primitive configuration with every format set to Any.
func (p ConvParams) Config() (primitive.ConvConfig, error) {
	st, wt, bt, dt, err := p.types()
	if err != nil {
		return primitive.ConvConfig{}, err
	}
	sh, sw := max(p.SH, 1), max(p.SW, 1)
	oh := problem.OutDim(p.IH, p.KH, sh, p.PH, p.PH)
	ow := problem.OutDim(p.IW, p.KW, sw, p.PW, p.PW)

	cfg := primitive.ConvConfig{
		Strides: [2]int{sh, sw},
		PadL:    [2]int{p.PH, p.PW},
		PadR:    [2]int{p.PH, p.PW},
	}
	if cfg.Src, err = memory.NewDesc(memory.Dims{p.MB, p.IC, p.IH, p.IW}, st, memory.Any); err != nil {
		return cfg, err
	}
	if cfg.Weights, err = memory.NewDesc(memory.Dims{p.OC, p.IC, p.KH, p.KW}, wt, memory.Any); err != nil {
		return cfg, err
	}
	if cfg.Bias, err = memory.NewDesc(memory.Dims{p.OC}, bt, memory.Any); err != nil {
		return cfg, err
	}
	if cfg.Dst, err = memory.NewDesc(memory.Dims{p.MB, p.OC, oh, ow}, dt, memory.Any); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// RunConv validates one convolution case against the float64 reference.
// Integer destinations may differ by one from rounding of the f32 epilogue.
func RunConv(ctx context.Context, eng *engine.Engine, p ConvParams) (Result, error) {
	cfg, err := p.Config()
	if err != nil {
		return Result{}, err
	}
	a, err := p.Attr()
	if err != nil {
		return Result{}, err
	}
	pd, err := primitive.NewConvDesc(eng, cfg, a)
	if err != nil {
		return Result{}, err
	}

	args := primitive.Args{}
	for _, arg := range []primitive.Arg{primitive.ArgSrc, primitive.ArgWeights, primitive.ArgBias, primitive.ArgDst} {
		if args[arg], err = memory.NewBuffer(pd.Query(arg), eng); err != nil {
			return Result{}, err
		}
		FillData(args[arg], pd.Query(arg).PhysicalElements())
	}
	want, err := memory.NewBuffer(pd.Query(primitive.ArgDst), eng)
	if err != nil {
		return Result{}, err
	}
	copy(want.Data(), args[primitive.ArgDst].Data())
	reference.Conv(pd.Problem(), args[primitive.ArgSrc], args[primitive.ArgWeights], args[primitive.ArgBias], a, want, eng.Parallel())

	if err := execute(ctx, eng, pd, args); err != nil {
		return Result{}, err
	}

	dst := args[primitive.ArgDst]
	dims := dst.Desc().Dims()
	tol := Tolerance{Abs: 1}
	if !dst.Desc().DataType().IsInteger() {
		tol = Tolerance{Rel: 1e-4}
	}
	col := &collector{tol: tol}
	if dims.NumElements() == 0 {
		return col.res, nil
	}
	parallel.ForND(dims, func(idx []int) {
		col.check(idx, dst.At(idx...), want.At(idx...))
	}, eng.Parallel())
	return col.res, nil
}
