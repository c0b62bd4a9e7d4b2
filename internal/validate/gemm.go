package validate

import (
	"cmp"
	"context"

	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/parallel"
	"github.com/born-ml/prim/internal/primitive"
	"github.com/born-ml/prim/internal/problem"
	"github.com/born-ml/prim/internal/reference"
	"github.com/born-ml/prim/internal/sampler"
	"github.com/born-ml/prim/internal/status"
)

// Zero points used by integer GEMM cases unless zeroed.
const (
	DefaultZeroPointA int8 = 4
	DefaultZeroPointB int8 = 3
)

// IGemmParams are the integer-only GEMM settings.
type IGemmParams struct {
	// OffsetC is F, R or C; empty means F.
	OffsetC string `json:"offset_c,omitempty" yaml:"offset_c"`
	ZeroOA  bool   `json:"zero_oa,omitempty" yaml:"zero_oa"`
	ZeroOB  bool   `json:"zero_ob,omitempty" yaml:"zero_ob"`
	ZeroOC  bool   `json:"zero_oc,omitempty" yaml:"zero_oc"`
}

// GemmOffsets are element offsets into the A, B and C buffers.
type GemmOffsets struct {
	A int `json:"a,omitempty" yaml:"a"`
	B int `json:"b,omitempty" yaml:"b"`
	C int `json:"c,omitempty" yaml:"c"`
}

// GemmParams is one GEMM validation case. Types is one of f32, f16,
// s8s8s32 or s8u8s32. Leading dimensions left at zero are packed.
type GemmParams struct {
	Types  string      `json:"types" yaml:"types"`
	TransA string      `json:"trans_a" yaml:"trans_a"`
	TransB string      `json:"trans_b" yaml:"trans_b"`
	M      int         `json:"m" yaml:"m"`
	N      int         `json:"n" yaml:"n"`
	K      int         `json:"k" yaml:"k"`
	Alpha  float32     `json:"alpha" yaml:"alpha"`
	Beta   float32     `json:"beta" yaml:"beta"`
	LDA    int         `json:"lda" yaml:"lda"`
	LDB    int         `json:"ldb" yaml:"ldb"`
	LDC    int         `json:"ldc" yaml:"ldc"`
	IGemm  IGemmParams `json:"igemm" yaml:"igemm"`
	Off    GemmOffsets `json:"off" yaml:"off"`
}

// GemmTypes splits a type name into its A, B and C element types.
func GemmTypes(name string) (a, b, c memory.DataType, err error) {
	switch name {
	case "f32", "":
		return memory.F32, memory.F32, memory.F32, nil
	case "f16":
		return memory.F16, memory.F16, memory.F16, nil
	case "s8s8s32":
		return memory.S8, memory.S8, memory.S32, nil
	case "s8u8s32":
		return memory.S8, memory.U8, memory.S32, nil
	default:
		return 0, 0, 0, status.Invalidf("gemm", "unknown type combination %q", name)
	}
}

// Config converts the case into a primitive configuration.
func (p GemmParams) Config() (primitive.GemmConfig, error) {
	at, bt, ct, err := GemmTypes(p.Types)
	if err != nil {
		return primitive.GemmConfig{}, err
	}
	ta, err := problem.ParseTrans(cmp.Or(p.TransA, "N"))
	if err != nil {
		return primitive.GemmConfig{}, err
	}
	tb, err := problem.ParseTrans(cmp.Or(p.TransB, "N"))
	if err != nil {
		return primitive.GemmConfig{}, err
	}
	g := problem.Gemm{
		TransA: ta, TransB: tb,
		M: p.M, N: p.N, K: p.K,
		Alpha: p.Alpha, Beta: p.Beta,
		LDA: p.LDA, LDB: p.LDB, LDC: p.LDC,
		OffA: p.Off.A, OffB: p.Off.B, OffC: p.Off.C,
	}
	// zero leading dimensions mean tightly packed storage
	if g.LDA == 0 {
		g.LDA = max(1, p.M)
		if ta {
			g.LDA = max(1, p.K)
		}
	}
	if g.LDB == 0 {
		g.LDB = max(1, p.K)
		if tb {
			g.LDB = max(1, p.N)
		}
	}
	if g.LDC == 0 {
		g.LDC = max(1, p.M)
	}
	if ct == memory.S32 {
		mode := p.IGemm.OffsetC
		if mode == "" {
			mode = "F"
		}
		if g.OffsetC, err = problem.ParseOffsetMode(mode); err != nil {
			return primitive.GemmConfig{}, err
		}
		if !p.IGemm.ZeroOA {
			g.ZeroPointA = DefaultZeroPointA
		}
		if !p.IGemm.ZeroOB {
			g.ZeroPointB = DefaultZeroPointB
		}
	}
	return primitive.GemmConfig{Gemm: g, AType: at, BType: bt, CType: ct}, nil
}

// GemmTolerance returns the per-element bound for a GEMM case.
func GemmTolerance(cfg primitive.GemmConfig) Tolerance {
	switch cfg.CType {
	case memory.F16:
		return Tolerance{Rel: 1e-3 * float64(cfg.K)}
	case memory.F32:
		return Tolerance{Rel: 1e-4}
	}
	if cfg.Alpha == 1 {
		return Tolerance{Abs: 1}
	}
	if cfg.BType == memory.U8 {
		return Tolerance{Abs: float64(cfg.K/700 + 1)}
	}
	return Tolerance{Abs: float64(cfg.K/350 + 1)}
}

// RunGemm validates one GEMM case. A and B are built so that rows of A
// beyond sampler.MTestMax and columns of B beyond sampler.NTestMax alias
// earlier ones; the reference then only evaluates the reduced block and the
// expected C is expanded with the same mappers.
func RunGemm(ctx context.Context, eng *engine.Engine, p GemmParams) (Result, error) {
	cfg, err := p.Config()
	if err != nil {
		return Result{}, err
	}
	pd, err := primitive.NewGemmDesc(eng, cfg)
	if err != nil {
		return Result{}, err
	}

	args := primitive.Args{}
	for _, arg := range []primitive.Arg{primitive.ArgSrc, primitive.ArgWeights, primitive.ArgDst, primitive.ArgBias} {
		md := pd.Query(arg)
		if md.IsZero() {
			continue
		}
		if args[arg], err = memory.NewBuffer(md, eng); err != nil {
			return Result{}, err
		}
	}
	cRef, err := memory.NewBuffer(pd.Query(primitive.ArgDst), eng)
	if err != nil {
		return Result{}, err
	}

	g := cfg.Gemm
	run := gemmRun{
		g:   g,
		mm:  sampler.NewMapper(g.M, sampler.MTestMax),
		mn:  sampler.NewMapper(g.N, sampler.NTestMax),
		par: eng.Parallel(),
	}
	a, b, c, oc := args[primitive.ArgSrc], args[primitive.ArgWeights], args[primitive.ArgDst], args[primitive.ArgBias]

	switch p.Types {
	case "f16":
		run.fill16(a, b, c, cRef)
	case "s8s8s32":
		fillInt[int8](run, a, b, c, cRef, oc, p.IGemm.ZeroOC)
	case "s8u8s32":
		fillInt[uint8](run, a, b, c, cRef, oc, p.IGemm.ZeroOC)
	default:
		run.fill32(a, b, c, cRef)
	}

	if err := execute(ctx, eng, pd, args); err != nil {
		return Result{}, err
	}

	mt, nt := run.mm.DimTest(), run.mn.DimTest()
	switch p.Types {
	case "f16":
		reference.GemmF16(g, mt, nt, a.Float16(), b.Float16(), cRef.Float16(), run.par)
		sampler.Extend(cRef.Float16(), g.OffC, g.M, g.N, g.LDC, run.mm, run.mn, run.par)
	case "s8s8s32":
		reference.GemmInt8(g, mt, nt, a.Int8(), b.Int8(), cRef.Int32(), offsets(oc), run.par)
		sampler.Extend(cRef.Int32(), g.OffC, g.M, g.N, g.LDC, run.mm, run.mn, run.par)
	case "s8u8s32":
		reference.GemmInt8(g, mt, nt, a.Int8(), b.Uint8(), cRef.Int32(), offsets(oc), run.par)
		sampler.Extend(cRef.Int32(), g.OffC, g.M, g.N, g.LDC, run.mm, run.mn, run.par)
	default:
		reference.GemmF32(g, mt, nt, a.Float32(), b.Float32(), cRef.Float32(), run.par)
		sampler.Extend(cRef.Float32(), g.OffC, g.M, g.N, g.LDC, run.mm, run.mn, run.par)
	}

	// every stored element of C is compared, the ldc padding rows included
	col := &collector{tol: GemmTolerance(cfg)}
	parallel.For2D(g.N, g.LDC, func(n, m int) {
		off := g.OffC + n*g.LDC + m
		col.check([]int{m, n}, c.Load(off), cRef.Load(off))
	}, run.par)
	return col.res, nil
}

func offsets(oc *memory.Buffer) []int32 {
	if oc == nil {
		return nil
	}
	return oc.Int32()
}

type gemmRun struct {
	g      problem.Gemm
	mm, mn *sampler.Mapper
	par    parallel.Config
}

// layouts returns the storage order of A and B relative to their mapped
// axes (M for A, N for B).
func (r gemmRun) layouts() (a, b sampler.Layout) {
	a, b = sampler.ColMajor, sampler.RowMajor
	if r.g.TransA {
		a = sampler.RowMajor
	}
	if r.g.TransB {
		b = sampler.ColMajor
	}
	return a, b
}

// prepare fills A and B through the mappers. C gets FillData over its whole
// buffer, is expanded in place and copied into cRef.
func prepare[A, B, C element](r gemmRun, a []A, b []B, c, cRef []C, mean, dev float64, adt, bdt, cdt memory.DataType, cMean, cDev float64) {
	la, lb := r.layouts()
	sampler.PrepareMatrix(a, r.g.OffA, la, r.g.M, r.g.K, r.g.LDA, r.mm, func(pos int) A {
		return cast[A](SetValue(adt, pos, mean, dev, 1))
	}, r.par)
	sampler.PrepareMatrix(b, r.g.OffB, lb, r.g.N, r.g.K, r.g.LDB, r.mn, func(pos int) B {
		return cast[B](SetValue(bdt, pos, mean, dev, 1))
	}, r.par)

	n := r.g.OffC + r.g.SizeC()
	for i := 0; i < n; i++ {
		c[i] = cast[C](SetValue(cdt, i, cMean, cDev, 1))
	}
	sampler.Extend(c, r.g.OffC, r.g.M, r.g.N, r.g.LDC, r.mm, r.mn, r.par)
	copy(cRef[r.g.OffC:n], c[r.g.OffC:n])
}

func (r gemmRun) fill32(a, b, c, cRef *memory.Buffer) {
	cm, cd := FillDefaults(memory.F32)
	prepare(r, a.Float32(), b.Float32(), c.Float32(), cRef.Float32(), 1, 0.2, memory.F32, memory.F32, memory.F32, cm, cd)
}

func (r gemmRun) fill16(a, b, c, cRef *memory.Buffer) {
	cm, cd := FillDefaults(memory.F16)
	prepare(r, a.Float16(), b.Float16(), c.Float16(), cRef.Float16(), 1, 0.2, memory.F16, memory.F16, memory.F16, cm, cd)
}

func fillInt[B int8 | uint8](r gemmRun, a, b, c, cRef, oc *memory.Buffer, zeroOC bool) {
	bdt := b.Desc().DataType()
	cm, cd := FillDefaults(memory.S32)
	prepare(r, a.Int8(), view[B](b), c.Int32(), cRef.Int32(), 4, 3, memory.S8, bdt, memory.S32, cm, cd)

	if oc == nil {
		return
	}
	ocs := oc.Int32()
	if zeroOC {
		clear(ocs)
		return
	}
	for i := range ocs {
		ocs[i] = cast[int32](SetValue(memory.S32, i, 1, 0, 1))
	}
	switch r.g.OffsetC {
	case problem.OffsetRow:
		sampler.ExtendCols(ocs, 0, 1, r.g.N, 1, r.mn, r.par)
	case problem.OffsetColumn:
		sampler.ExtendRows(ocs, 0, r.g.M, 1, r.g.M, r.mm, r.par)
	}
}

// view returns the typed elements of an s8 or u8 buffer.
func view[B int8 | uint8](buf *memory.Buffer) []B {
	var zero B
	switch any(zero).(type) {
	case int8:
		return any(buf.Int8()).([]B)
	default:
		return any(buf.Uint8()).([]B)
	}
}

// execute runs one primitive on a fresh stream and waits for it.
func execute(ctx context.Context, eng *engine.Engine, pd primitive.Desc, args primitive.Args) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := primitive.New(pd)
	if err != nil {
		return err
	}
	s, err := engine.NewStream(eng)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := p.Execute(s, args); err != nil {
		return err
	}
	return s.Wait()
}
