package primitive

import (
	"github.com/born-ml/prim/internal/attr"
	"github.com/born-ml/prim/internal/backend/cpu"
	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/problem"
	"github.com/born-ml/prim/internal/status"
)

// GemmConfig is a column-major GEMM C = alpha*op(A)*op(B) + beta*C (+ oc)
// with its element types. Zero points and the C offset apply to integer
// problems only.
type GemmConfig struct {
	problem.Gemm
	AType, BType, CType memory.DataType
}

// GemmDesc is a resolved GEMM. Arguments are one-dimensional buffers:
// ArgSrc is A, ArgWeights is B, ArgDst is C and ArgBias the C offset vector.
type GemmDesc struct {
	base
	prob problem.Gemm
	run  cpu.GemmKernel
}

// NewGemmDesc validates cfg and selects the kernel for its type triple.
func NewGemmDesc(eng *engine.Engine, cfg GemmConfig) (*GemmDesc, error) {
	const op = "gemm"
	if err := checkEngine(op, eng); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	integer := cfg.CType == memory.S32
	if !integer && (cfg.ZeroPointA != 0 || cfg.ZeroPointB != 0 || cfg.OffsetC != problem.OffsetNone) {
		return nil, status.Invalidf(op, "zero points and C offsets need an integer problem")
	}

	types := cpu.GemmTypes{A: cfg.AType, B: cfg.BType, C: cfg.CType}
	impl, ok := cpu.LookupGemm(types, eng.ISA())
	if !ok {
		return nil, status.Unimplementedf(op, "no %s kernel for %s/%s/%s", eng.ISA(), cfg.AType, cfg.BType, cfg.CType)
	}

	vec := func(n int, dt memory.DataType) memory.Desc {
		return memory.MustDesc(memory.Dims{n}, dt, memory.X)
	}
	mds := map[Arg]memory.Desc{
		ArgSrc:     vec(cfg.OffA+cfg.SizeA(), cfg.AType),
		ArgWeights: vec(cfg.OffB+cfg.SizeB(), cfg.BType),
		ArgDst:     vec(cfg.OffC+cfg.SizeC(), cfg.CType),
	}
	if integer && cfg.OffsetC != problem.OffsetNone {
		mds[ArgBias] = vec(cfg.SizeOffsetC(), memory.S32)
	}

	d := &GemmDesc{
		base: base{kind: KindGemm, impl: impl.Name, eng: eng, attr: attr.Default(), mds: mds},
		prob: cfg.Gemm,
		run:  impl.Run,
	}
	d.eng.Logger().Debug("primitive created", "kind", d.kind.String(), "impl", d.impl, "problem", d.prob.String())
	return d, nil
}

// Problem returns the GEMM shape.
func (d *GemmDesc) Problem() problem.Gemm { return d.prob }

func (d *GemmDesc) bind(args Args) (func() error, error) {
	a, err := d.vector(args, ArgSrc)
	if err != nil {
		return nil, err
	}
	b, err := d.vector(args, ArgWeights)
	if err != nil {
		return nil, err
	}
	c, err := d.vector(args, ArgDst)
	if err != nil {
		return nil, err
	}
	var oc *memory.Buffer
	if _, ok := d.mds[ArgBias]; ok {
		if oc, err = d.vector(args, ArgBias); err != nil {
			return nil, err
		}
	}
	ga := cpu.GemmArgs{A: a, B: b, C: c, OffsetC: oc}
	par := d.eng.Parallel()
	return func() error {
		d.run(d.prob, ga, par)
		return nil
	}, nil
}

// vector accepts any one-dimensional buffer of the right type that is at
// least as long as the problem addresses.
func (d *GemmDesc) vector(args Args, arg Arg) (*memory.Buffer, error) {
	buf, ok := args[arg]
	if !ok || buf == nil {
		return nil, status.Invalidf("gemm", "missing argument %s", arg)
	}
	want := d.mds[arg]
	got := buf.Desc()
	if got.Format() != memory.X || got.DataType() != want.DataType() || got.Dim(0) < want.Dim(0) {
		return nil, status.Invalidf("gemm", "argument %s is %s, need at least %s", arg, got, want)
	}
	if buf.Engine() != d.eng {
		return nil, status.Invalidf("gemm", "argument %s belongs to engine %s, expected %s", arg, buf.Engine(), d.eng)
	}
	return buf, nil
}
