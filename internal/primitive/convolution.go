package primitive

import (
	"github.com/pkg/errors"

	"github.com/born-ml/prim/internal/attr"
	"github.com/born-ml/prim/internal/backend/cpu"
	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/problem"
	"github.com/born-ml/prim/internal/status"
)

// ConvConfig describes a forward inference convolution. Bias is optional:
// leave it zero for none. Any operand may use format memory.Any.
type ConvConfig struct {
	Src, Weights, Bias, Dst memory.Desc

	// Strides, PadL and PadR are (height, width).
	Strides    [2]int
	PadL, PadR [2]int
}

// ConvDesc is a resolved convolution.
type ConvDesc struct {
	base
	prob    problem.Conv
	scales  []float32
	postOps attr.PostOps
	run     cpu.ConvKernel
}

// NewConvDesc validates cfg and a against the engine and selects a kernel.
func NewConvDesc(eng *engine.Engine, cfg ConvConfig, a attr.Attr) (*ConvDesc, error) {
	const op = "convolution"
	if err := checkEngine(op, eng); err != nil {
		return nil, err
	}
	if cfg.Src.IsZero() || cfg.Weights.IsZero() || cfg.Dst.IsZero() {
		return nil, status.Invalidf(op, "src, weights and dst are required")
	}
	p, err := problem.NewConv(cfg.Src.Dims(), cfg.Weights.Dims(), cfg.Dst.Dims(), cfg.Strides, cfg.PadL, cfg.PadR)
	if err != nil {
		return nil, err
	}
	hasBias := !cfg.Bias.IsZero()
	if hasBias && (cfg.Bias.NDims() != 1 || cfg.Bias.Dim(0) != p.OC) {
		return nil, status.Invalidf(op, "bias %v must be {%d}", cfg.Bias.Dims(), p.OC)
	}

	types := cpu.ConvTypes{
		Src:     cfg.Src.DataType(),
		Weights: cfg.Weights.DataType(),
		Dst:     cfg.Dst.DataType(),
	}
	if hasBias {
		types.Bias = cfg.Bias.DataType()
	}
	if err := checkConvAttr(op, a, cfg.Dst.Dims()); err != nil {
		return nil, err
	}

	mds, err := resolveConvFormats(cfg, hasBias, eng.ISA())
	if err != nil {
		return nil, errors.Wrapf(err, "%s: resolve formats", op)
	}

	impl, ok := cpu.LookupConvIm2col(mds[ArgSrc], mds[ArgWeights], mds[ArgDst], eng.ISA())
	if !ok {
		impl, ok = cpu.LookupConv(types, eng.ISA())
	}
	if !ok {
		return nil, status.Unimplementedf(op, "no %s kernel for %s/%s/%s/%s", eng.ISA(), types.Src, types.Weights, types.Bias, types.Dst)
	}

	d := &ConvDesc{
		base:    base{kind: KindConvolution, impl: impl.Name, eng: eng, attr: a, mds: mds},
		prob:    p,
		scales:  a.Scales(),
		postOps: a.PostOps(),
		run:     impl.Run,
	}
	d.logCreated()
	return d, nil
}

// checkConvAttr accepts a common scale or one per output channel, and the
// post-op chains [], [eltwise], [sum] and [sum, eltwise].
func checkConvAttr(op string, a attr.Attr, dst memory.Dims) error {
	if err := a.ValidateFor(dst); err != nil {
		return err
	}
	if m := a.Mask(); m != 0 && m != 1<<1 {
		return status.Unimplementedf(op, "output scale mask %#b", m)
	}
	kinds := a.PostOps().Kinds()
	switch len(kinds) {
	case 0, 1:
		return nil
	case 2:
		if kinds[0] == attr.PostOpSum && kinds[1] == attr.PostOpEltwise {
			return nil
		}
	}
	return status.Unimplementedf(op, "post-op chain %v", kinds)
}

// resolveConvFormats replaces Any with the layouts the kernels prefer on isa:
// integer activations go channels-last, float activations channel-blocked,
// and weights output-channel-blocked.
func resolveConvFormats(cfg ConvConfig, hasBias bool, isa engine.ISA) (map[Arg]memory.Desc, error) {
	src, wei, dst := memory.NHWC, memory.Oihw8o, memory.NHWC
	if isa.BlockSize() == 16 {
		wei = memory.Oihw16o
	}
	if !cfg.Src.DataType().IsInteger() {
		src, dst = memory.NChw8c, memory.NChw8c
		if isa.BlockSize() == 16 {
			src, dst = memory.NChw16c, memory.NChw16c
		}
	}

	pick := func(d memory.Desc, tag memory.FormatTag) (memory.Desc, error) {
		if !d.IsAny() {
			return d, nil
		}
		return d.WithFormat(tag)
	}
	mds := make(map[Arg]memory.Desc, 4)
	var err error
	if mds[ArgSrc], err = pick(cfg.Src, src); err != nil {
		return nil, err
	}
	if mds[ArgWeights], err = pick(cfg.Weights, wei); err != nil {
		return nil, err
	}
	if mds[ArgDst], err = pick(cfg.Dst, dst); err != nil {
		return nil, err
	}
	if hasBias {
		if mds[ArgBias], err = pick(cfg.Bias, memory.X); err != nil {
			return nil, err
		}
	}
	return mds, nil
}

// Problem returns the convolution shape.
func (d *ConvDesc) Problem() problem.Conv { return d.prob }

func (d *ConvDesc) bind(args Args) (func() error, error) {
	src, err := d.buffer(args, ArgSrc)
	if err != nil {
		return nil, err
	}
	wei, err := d.buffer(args, ArgWeights)
	if err != nil {
		return nil, err
	}
	dst, err := d.buffer(args, ArgDst)
	if err != nil {
		return nil, err
	}
	var bias *memory.Buffer
	if _, ok := d.mds[ArgBias]; ok {
		if bias, err = d.buffer(args, ArgBias); err != nil {
			return nil, err
		}
	}

	ca := cpu.ConvArgs{Src: src, Weights: wei, Bias: bias, Dst: dst, Scales: d.scales, PostOps: d.postOps}
	par := d.eng.Parallel()
	return func() error {
		d.run(d.prob, ca, par)
		return nil
	}, nil
}
