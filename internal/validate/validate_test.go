package validate

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/status"
)

func newEngine(t *testing.T, isa engine.ISA) *engine.Engine {
	t.Helper()
	eng, err := engine.New(engine.CPU, 0, engine.WithISA(isa))
	require.NoError(t, err)
	return eng
}

func requirePassed(t *testing.T, res Result, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.True(t, res.Passed())
}

func TestSetValue(t *testing.T) {
	assert.Equal(t, 0.0, SetValue(memory.S8, 0, 0, 10, 1))
	assert.Equal(t, 14.0, SetValue(memory.U8, 1, 8, 8, 1))
	assert.Equal(t, 127.0, SetValue(memory.S8, 0, 300, 0, 1))
	assert.InDelta(t, 1+0.2*math.Sin(5), SetValue(memory.F32, 5, 1, 0.2, 1), 1e-12)
	assert.Equal(t, 5.0, SetValue(memory.F32, 37, 5, 1, 1))

	assert.Equal(t, 0.0, SetValue(memory.F32, 3, 1, 0, 0))
	// with half density only one element per pair survives
	assert.Equal(t, 1.0, SetValue(memory.F32, 0, 1, 0, 0.5))
	assert.Equal(t, 0.0, SetValue(memory.F32, 1, 1, 0, 0.5))
	assert.Equal(t, 0.0, SetValue(memory.F32, 2, 1, 0, 0.5))
	assert.Equal(t, 1.0, SetValue(memory.F32, 3, 1, 0, 0.5))
}

func TestTruncateMantissa(t *testing.T) {
	eng := newEngine(t, engine.AVX2)
	b, err := memory.NewBuffer(memory.MustDesc(memory.Dims{3}, memory.F32, memory.X), eng)
	require.NoError(t, err)
	copy(b.Float32(), []float32{1.2, 1.0, -3.3})
	truncateMantissa(b, 3)
	assert.Equal(t, []float32{1.0, 1.0, -3.0}, b.Float32())
}

func TestTolerance_Check(t *testing.T) {
	_, ok := Exact.Check(3, 3)
	assert.True(t, ok)
	_, ok = Exact.Check(3, 3.5)
	assert.False(t, ok)

	abs := Tolerance{Abs: 1}
	e, ok := abs.Check(3, 2)
	assert.True(t, ok)
	assert.Equal(t, 1.0, e)
	_, ok = abs.Check(4, 2)
	assert.False(t, ok)

	rel := Tolerance{Rel: 1e-3}
	e, ok = rel.Check(1000.5, 1000)
	assert.True(t, ok)
	assert.InDelta(t, 5e-4, e, 1e-12)
	_, ok = rel.Check(1002, 1000)
	assert.False(t, ok)
	// below the threshold the error is absolute
	_, ok = rel.Check(5e-4, 1e-4)
	assert.True(t, ok)

	_, ok = rel.Check(math.NaN(), math.NaN())
	assert.True(t, ok)
	_, ok = rel.Check(math.NaN(), 1)
	assert.False(t, ok)
}

func TestResult_Err(t *testing.T) {
	col := &collector{tol: Exact}
	col.check([]int{0, 2}, 1, 1)
	col.check([]int{1, 0}, 5, 4)
	col.check([]int{0, 1}, 7, 4)
	res := col.res

	assert.False(t, res.Passed())
	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 3.0, res.MaxError)
	require.NotNil(t, res.First)
	assert.Equal(t, []int{0, 1}, res.First.Index)
	assert.Contains(t, res.Err().Error(), "2 of 3 elements")
}

func TestCheckExpected(t *testing.T) {
	invalid := status.Invalidf("gemm", "bad lda")

	assert.NoError(t, CheckExpected(nil, false, status.Success))
	assert.Equal(t, invalid, CheckExpected(invalid, false, status.Success))
	assert.NoError(t, CheckExpected(invalid, true, status.InvalidArguments))
	assert.Error(t, CheckExpected(nil, true, status.InvalidArguments))
	assert.Error(t, CheckExpected(invalid, true, status.Unimplemented))
}

func TestRunGemm_Float(t *testing.T) {
	eng := newEngine(t, engine.AVX512Core)
	cases := map[string]GemmParams{
		"nn":         {Types: "f32", TransA: "N", TransB: "N", M: 30, N: 20, K: 10, Alpha: 1, LDA: 30, LDB: 10, LDC: 30},
		"tn_beta":    {Types: "f32", TransA: "T", TransB: "N", M: 16, N: 8, K: 24, Alpha: 0.5, Beta: 2, LDA: 24, LDB: 24, LDC: 20},
		"tt_offsets": {Types: "f32", TransA: "T", TransB: "T", M: 12, N: 9, K: 7, Alpha: 2, Beta: 1.5, LDA: 8, LDB: 10, LDC: 14, Off: GemmOffsets{A: 3, B: 5, C: 2}},
		"sampled":    {Types: "f32", TransA: "N", TransB: "T", M: 100, N: 120, K: 16, Alpha: 1, Beta: 1, LDA: 100, LDB: 120, LDC: 104},
		"f16_nt":     {Types: "f16", TransA: "N", TransB: "T", M: 20, N: 18, K: 16, Alpha: 1, Beta: 0.5, LDA: 20, LDB: 18, LDC: 20},
		"empty_k":    {Types: "f32", TransA: "N", TransB: "N", M: 4, N: 4, K: 0, Alpha: 1, Beta: 1, LDA: 4, LDB: 1, LDC: 4},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := RunGemm(context.Background(), eng, p)
			requirePassed(t, res, err)
			assert.Equal(t, p.N*p.LDC, res.Checked)
		})
	}
}

func TestRunGemm_Int(t *testing.T) {
	eng := newEngine(t, engine.AVX512Core)
	base := GemmParams{Types: "s8s8s32", TransA: "N", TransB: "N", M: 20, N: 15, K: 40, Alpha: 1, Beta: 1, LDA: 20, LDB: 40, LDC: 24}
	cases := map[string]func(p *GemmParams){
		"fixed":        func(p *GemmParams) {},
		"row":          func(p *GemmParams) { p.IGemm.OffsetC = "R" },
		"column":       func(p *GemmParams) { p.IGemm.OffsetC = "C" },
		"no_offsets":   func(p *GemmParams) { p.IGemm = IGemmParams{OffsetC: "N", ZeroOA: true, ZeroOB: true} },
		"zero_oc":      func(p *GemmParams) { p.IGemm = IGemmParams{OffsetC: "R", ZeroOC: true} },
		"u8_scaled":    func(p *GemmParams) { p.Types, p.Alpha, p.Beta = "s8u8s32", 0.25, 0 },
		"u8_trans":     func(p *GemmParams) { p.Types, p.TransA, p.TransB, p.LDA, p.LDB = "s8u8s32", "T", "T", 40, 15 },
		"sampled_rows": func(p *GemmParams) { p.M, p.N, p.LDA, p.LDC, p.IGemm.OffsetC = 90, 70, 90, 90, "C" },
	}
	for name, mod := range cases {
		t.Run(name, func(t *testing.T) {
			p := base
			mod(&p)
			res, err := RunGemm(context.Background(), eng, p)
			requirePassed(t, res, err)
		})
	}
}

func TestRunGemm_Errors(t *testing.T) {
	ctx := context.Background()
	avx2 := newEngine(t, engine.AVX2)

	_, err := RunGemm(ctx, avx2, GemmParams{Types: "f16", TransA: "N", TransB: "N", M: 2, N: 2, K: 2, Alpha: 1, LDA: 2, LDB: 2, LDC: 2})
	assert.True(t, status.Is(err, status.Unimplemented))

	_, err = RunGemm(ctx, avx2, GemmParams{Types: "f32", TransA: "N", TransB: "N", M: 4, N: 2, K: 2, Alpha: 1, LDA: 2, LDB: 2, LDC: 4})
	assert.True(t, status.Is(err, status.InvalidArguments))

	_, err = RunGemm(ctx, avx2, GemmParams{Types: "u8u8s32"})
	assert.True(t, status.Is(err, status.InvalidArguments))

	_, err = RunGemm(ctx, avx2, GemmParams{Types: "s8s8s32", TransA: "X"})
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = RunGemm(cancelled, avx2, GemmParams{Types: "f32", TransA: "N", TransB: "N", M: 2, N: 2, K: 2, Alpha: 1, LDA: 2, LDB: 2, LDC: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGemmTolerance(t *testing.T) {
	cfg, err := GemmParams{Types: "s8u8s32", TransA: "N", TransB: "N", M: 1, N: 1, K: 1400, Alpha: 2, LDA: 1, LDB: 1400, LDC: 1}.Config()
	require.NoError(t, err)
	assert.Equal(t, Tolerance{Abs: 3}, GemmTolerance(cfg))

	cfg.BType = memory.S8
	assert.Equal(t, Tolerance{Abs: 5}, GemmTolerance(cfg))

	cfg.Alpha = 1
	assert.Equal(t, Tolerance{Abs: 1}, GemmTolerance(cfg))

	cfg, err = GemmParams{Types: "f16", TransA: "N", TransB: "N", M: 1, N: 1, K: 10, Alpha: 1, LDA: 1, LDB: 10, LDC: 1}.Config()
	require.NoError(t, err)
	assert.InDelta(t, 1e-2, GemmTolerance(cfg).Rel, 1e-12)
}

func TestGemmParams_ConfigDefaults(t *testing.T) {
	cfg, err := GemmParams{Types: "s8s8s32", TransA: "N", TransB: "N", M: 1, N: 1, K: 1, Alpha: 1, LDA: 1, LDB: 1, LDC: 1}.Config()
	require.NoError(t, err)
	assert.Equal(t, DefaultZeroPointA, cfg.ZeroPointA)
	assert.Equal(t, DefaultZeroPointB, cfg.ZeroPointB)
	assert.Equal(t, "F", cfg.OffsetC.String())

	cfg, err = GemmParams{Types: "f32", TransA: "N", TransB: "N", M: 1, N: 1, K: 1, Alpha: 1, LDA: 1, LDB: 1, LDC: 1}.Config()
	require.NoError(t, err)
	assert.Zero(t, cfg.ZeroPointA)
	assert.Equal(t, memory.F32, cfg.CType)

	cfg, err = GemmParams{TransA: "T", TransB: "T", M: 5, N: 6, K: 7}.Config()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.LDA)
	assert.Equal(t, 6, cfg.LDB)
	assert.Equal(t, 5, cfg.LDC)

	cfg, err = GemmParams{TransA: "N", TransB: "N", M: 5, N: 6, K: 0}.Config()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.LDA)
	assert.Equal(t, 1, cfg.LDB)
}

func TestRunSum(t *testing.T) {
	eng := newEngine(t, engine.AVX512Core)
	formats := [][]string{{"nchw", "nchw"}, {"nChw8c", "nChw8c"}, {"nChw16c", "nChw16c"}, {"nchw", "nChw16c"}}
	shapes := [][]int{{0, 7, 4, 4}, {1, 0, 4, 4}, {1, 8, 0, 4}, {2, 8, 2, 2}, {2, 16, 3, 4}, {5, 8, 3, 3}, {32, 32, 13, 14}}

	for _, dt := range []string{"f32", "s32", "s8", "u8"} {
		for _, fmts := range formats {
			for _, dims := range shapes {
				for _, omit := range []bool{false, true} {
					p := SumParams{DataType: dt, SrcFormats: fmts, DstFormat: fmts[0], Dims: dims, Scales: []float32{2, 3}, OmitOutput: omit}
					res, err := RunSum(context.Background(), eng, p)
					requirePassed(t, res, err)
					n := 1
					for _, d := range dims {
						n *= d
					}
					assert.Equal(t, n, res.Checked, "%s %v %v", dt, fmts, dims)
				}
			}
		}
	}
}

func TestRunSum_ThreeSourcesAnyDst(t *testing.T) {
	eng := newEngine(t, engine.AVX2)
	p := SumParams{
		DataType:   "f32",
		SrcFormats: []string{"nchw", "nChw8c", "nhwc"},
		Dims:       []int{2, 8, 3, 3},
		Scales:     []float32{1, 0.5, 2},
	}
	res, err := RunSum(context.Background(), eng, p)
	requirePassed(t, res, err)
}

func TestRunSum_Large(t *testing.T) {
	if testing.Short() {
		t.Skip("large sum in short mode")
	}
	eng := newEngine(t, engine.AVX512Core)
	p := SumParams{DataType: "f32", SrcFormats: []string{"nChw16c", "nChw16c"}, DstFormat: "nChw16c", Dims: []int{1, 1024, 38, 50}, Scales: []float32{1, 1}}
	res, err := RunSum(context.Background(), eng, p)
	requirePassed(t, res, err)
}

func TestRunSum_Errors(t *testing.T) {
	eng := newEngine(t, engine.AVX2)
	ctx := context.Background()
	cases := map[string]SumParams{
		"one_scale":     {SrcFormats: []string{"nchw", "nchw"}, Dims: []int{2, 8, 4, 4}, Scales: []float32{1.0}},
		"small_scale":   {SrcFormats: []string{"nchw", "nchw"}, Dims: []int{2, 8, 4, 4}, Scales: []float32{0.1}},
		"negative_dims": {SrcFormats: []string{"nchw", "nchw"}, Dims: []int{-1, 8, 4, 4}, Scales: []float32{1, 1}},
		"no_sources":    {Dims: []int{2, 8, 4, 4}},
		"bad_format":    {SrcFormats: []string{"nchw", "hwio"}, Dims: []int{2, 8, 4, 4}, Scales: []float32{1, 1}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := RunSum(ctx, eng, p)
			assert.True(t, status.Is(err, status.InvalidArguments), "got %v", err)
		})
	}
}

func TestRunConv(t *testing.T) {
	shape := ConvParams{MB: 2, IC: 8, IH: 6, IW: 7, OC: 16, KH: 3, KW: 3, SH: 1, SW: 1, PH: 1, PW: 1}
	cases := map[string]func(p *ConvParams){
		"u8_plain":        func(p *ConvParams) {},
		"u8_relu_channel": func(p *ConvParams) { p.PerChannel, p.Relu = true, true },
		"u8_sum_relu":     func(p *ConvParams) { p.Scale, p.Sum, p.Relu = 0.5, true, true },
		"s8_to_s32":       func(p *ConvParams) { p.SrcType, p.DstType = "s8", "s32" },
		"u8_to_f32":       func(p *ConvParams) { p.DstType, p.PerChannel = "f32", true },
		"f32":             func(p *ConvParams) { p.SrcType = "f32" },
		"f32_strided":     func(p *ConvParams) { p.SrcType, p.SH, p.SW, p.PH, p.PW, p.Relu = "f32", 2, 2, 0, 0, true },
		"empty_batch":     func(p *ConvParams) { p.MB = 0 },
	}
	for _, isa := range []engine.ISA{engine.AVX2, engine.AVX512CoreVNNI} {
		eng := newEngine(t, isa)
		for name, mod := range cases {
			t.Run(isa.String()+"/"+name, func(t *testing.T) {
				p := shape
				mod(&p)
				res, err := RunConv(context.Background(), eng, p)
				requirePassed(t, res, err)
			})
		}
	}
}

func TestRunConv_Unimplemented(t *testing.T) {
	eng := newEngine(t, engine.Generic)
	_, err := RunConv(context.Background(), eng, ConvParams{MB: 1, IC: 4, IH: 4, IW: 4, OC: 4, KH: 1, KW: 1})
	assert.True(t, status.Is(err, status.Unimplemented), "got %v", err)
}

func TestParseSuite(t *testing.T) {
	s, err := ParseSuite([]byte(`
name: tiny
cases:
  - gemm: {types: f32, trans_a: N, trans_b: N, m: 2, n: 2, k: 2, alpha: 1, lda: 2, ldb: 2, ldc: 2}
  - name: bad
    sum: {src_formats: [nchw], dims: [1, 1, 1, 1], scales: [1]}
    expect_fail: true
    expected_status: invalid_arguments
`))
	require.NoError(t, err)
	assert.Equal(t, "tiny", s.Name)
	require.Len(t, s.Cases, 2)
	assert.Equal(t, "gemm", s.Cases[0].Name)
	assert.Equal(t, "sum", s.Cases[1].Kind())

	_, err = ParseSuite([]byte("cases:\n  - name: none\n"))
	assert.Error(t, err)

	_, err = ParseSuite([]byte("cases:\n  - sum: {dims: [1]}\n    expect_fail: true\n    expected_status: nope\n"))
	assert.Error(t, err)

	_, err = ParseSuite([]byte("cases: ["))
	assert.Error(t, err)
}

func TestRunSuite_Smoke(t *testing.T) {
	s, err := LoadSuite("testdata/smoke.yaml")
	require.NoError(t, err)
	assert.Equal(t, "smoke", s.Name)

	eng := newEngine(t, engine.AVX512Core)
	rep, err := RunSuite(context.Background(), eng, s, 3)
	require.NoError(t, err)

	for _, c := range rep.Cases {
		assert.Equal(t, CasePassed, c.Status, "%s: %s", c.Name, c.Error)
	}
	assert.True(t, rep.OK())
	assert.Equal(t, len(s.Cases), rep.Passed)
	assert.Equal(t, "avx512_core", rep.ISA)
	assert.Equal(t, eng.ID().String(), rep.Engine)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteJSON(&buf))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "smoke", decoded["suite"])
	assert.EqualValues(t, len(s.Cases), decoded["passed"])
	assert.Len(t, decoded["cases"], len(s.Cases))
}

func TestRunSuite_SkipsUnimplemented(t *testing.T) {
	s := &Suite{Name: "mixed", Cases: []Case{
		{Name: "f16", Gemm: &GemmParams{Types: "f16", TransA: "N", TransB: "N", M: 2, N: 2, K: 2, Alpha: 1, LDA: 2, LDB: 2, LDC: 2}},
		{Name: "expected", Gemm: &GemmParams{Types: "f16", TransA: "N", TransB: "N", M: 2, N: 2, K: 2, Alpha: 1, LDA: 2, LDB: 2, LDC: 2},
			ExpectFail: true, ExpectedStatus: "unimplemented"},
		{Name: "wrong_status", Sum: &SumParams{SrcFormats: []string{"nchw"}, Dims: []int{1, 1, 1, 1}, Scales: []float32{1, 2}},
			ExpectFail: true, ExpectedStatus: "unimplemented"},
	}}
	rep, err := RunSuite(context.Background(), newEngine(t, engine.AVX2), s, 0)
	require.NoError(t, err)

	assert.Equal(t, CaseSkipped, rep.Cases[0].Status)
	assert.Equal(t, CasePassed, rep.Cases[1].Status)
	assert.Equal(t, CaseFailed, rep.Cases[2].Status)
	assert.Equal(t, 1, rep.Passed)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Skipped)
	assert.False(t, rep.OK())
}

func TestRunSuite_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &Suite{Cases: []Case{{Sum: &SumParams{SrcFormats: []string{"nchw"}, Dims: []int{1, 1, 1, 1}, Scales: []float32{1}}}}}
	_, err := RunSuite(ctx, newEngine(t, engine.AVX2), s, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
