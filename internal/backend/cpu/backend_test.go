package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/prim/internal/attr"
	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/parallel"
	"github.com/born-ml/prim/internal/problem"
)

var testPar = parallel.Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1}

func newBuf(t *testing.T, dims memory.Dims, dt memory.DataType, tag memory.FormatTag) *memory.Buffer {
	t.Helper()
	eng, err := engine.New(engine.CPU, 0)
	require.NoError(t, err)
	b, err := memory.NewBuffer(memory.MustDesc(dims, dt, tag), eng)
	require.NoError(t, err)
	return b
}

func TestLookupGemm(t *testing.T) {
	_, ok := LookupGemm(GemmTypes{memory.F32, memory.F32, memory.F32}, engine.Generic)
	assert.True(t, ok)

	_, ok = LookupGemm(GemmTypes{memory.S8, memory.U8, memory.S32}, engine.Generic)
	assert.False(t, ok, "int8 needs an int8-capable ISA")

	impl, ok := LookupGemm(GemmTypes{memory.S8, memory.U8, memory.S32}, engine.AVX2)
	require.True(t, ok)
	assert.Equal(t, "gemm_s8u8s32:avx2", impl.Name)

	_, ok = LookupGemm(GemmTypes{memory.F16, memory.F16, memory.F16}, engine.AVX2)
	assert.False(t, ok)

	_, ok = LookupGemm(GemmTypes{memory.U8, memory.S8, memory.S32}, engine.AVX512CoreVNNI)
	assert.False(t, ok)
}

func TestSgemm_ColumnMajor(t *testing.T) {
	// A = [1 2; 3 4], B = [5 6; 7 8] stored column-major.
	g := problem.Gemm{M: 2, N: 2, K: 2, Alpha: 1, LDA: 2, LDB: 2, LDC: 2}
	a := newBuf(t, memory.Dims{4}, memory.F32, memory.X)
	b := newBuf(t, memory.Dims{4}, memory.F32, memory.X)
	c := newBuf(t, memory.Dims{4}, memory.F32, memory.X)
	copy(a.Float32(), []float32{1, 3, 2, 4})
	copy(b.Float32(), []float32{5, 7, 6, 8})
	c.Fill(100)

	sgemm(g, GemmArgs{A: a, B: b, C: c}, testPar)
	assert.Equal(t, []float32{19, 43, 22, 50}, c.Float32())

	g.TransA = true
	g.Beta = 1
	c.Fill(1)
	sgemm(g, GemmArgs{A: a, B: b, C: c}, testPar)
	// A^T = [1 3; 2 4]
	assert.Equal(t, []float32{27, 39, 31, 45}, c.Float32())
}

func TestIgemm_IdentityScaled(t *testing.T) {
	const n = 4
	g := problem.Gemm{M: n, N: n, K: n, Alpha: 1, LDA: n, LDB: n, LDC: n, OffsetC: problem.OffsetFixed}
	a := newBuf(t, memory.Dims{n * n}, memory.S8, memory.X)
	b := newBuf(t, memory.Dims{n * n}, memory.S8, memory.X)
	c := newBuf(t, memory.Dims{n * n}, memory.S32, memory.X)
	oc := newBuf(t, memory.Dims{1}, memory.S32, memory.X)
	for i := 0; i < n; i++ {
		a.Int8()[i*n+i] = 2
		b.Int8()[i*n+i] = 3
	}
	c.Fill(-7)

	igemm[int8](g, GemmArgs{A: a, B: b, C: c, OffsetC: oc}, testPar)
	for m := 0; m < n; m++ {
		for j := 0; j < n; j++ {
			want := int32(0)
			if m == j {
				want = 6
			}
			assert.Equal(t, want, c.Int32()[j*n+m], "C(%d,%d)", m, j)
		}
	}
}

func TestIgemm_ZeroPointsAndRowOffset(t *testing.T) {
	g := problem.Gemm{
		M: 1, N: 2, K: 2, Alpha: 1, LDA: 1, LDB: 2, LDC: 1,
		ZeroPointA: 4, ZeroPointB: 3, OffsetC: problem.OffsetRow,
	}
	a := newBuf(t, memory.Dims{2}, memory.S8, memory.X)
	b := newBuf(t, memory.Dims{4}, memory.U8, memory.X)
	c := newBuf(t, memory.Dims{2}, memory.S32, memory.X)
	oc := newBuf(t, memory.Dims{2}, memory.S32, memory.X)
	copy(a.Int8(), []int8{1, -1})
	copy(b.Uint8(), []uint8{2, 5, 0, 1})
	copy(oc.Int32(), []int32{10, 20})

	igemm[uint8](g, GemmArgs{A: a, B: b, C: c, OffsetC: oc}, testPar)
	// column 0: (1+4)(2+3) + (-1+4)(5+3) + 10 = 25 + 24 + 10
	// column 1: (1+4)(0+3) + (-1+4)(1+3) + 20 = 15 + 12 + 20
	assert.Equal(t, []int32{59, 47}, c.Int32())
}

func TestIgemm_Saturates(t *testing.T) {
	g := problem.Gemm{M: 1, N: 1, K: 1, Alpha: 1, Beta: 1, LDA: 1, LDB: 1, LDC: 1}
	a := newBuf(t, memory.Dims{1}, memory.S8, memory.X)
	b := newBuf(t, memory.Dims{1}, memory.S8, memory.X)
	c := newBuf(t, memory.Dims{1}, memory.S32, memory.X)
	a.Int8()[0], b.Int8()[0] = 127, 127
	c.Int32()[0] = math.MaxInt32 - 5

	igemm[int8](g, GemmArgs{A: a, B: b, C: c}, testPar)
	assert.Equal(t, int32(math.MaxInt32), c.Int32()[0])
}

func TestHgemm(t *testing.T) {
	g := problem.Gemm{M: 1, N: 1, K: 3, Alpha: 0.5, LDA: 1, LDB: 3, LDC: 1}
	a := newBuf(t, memory.Dims{3}, memory.F16, memory.X)
	b := newBuf(t, memory.Dims{3}, memory.F16, memory.X)
	c := newBuf(t, memory.Dims{1}, memory.F16, memory.X)
	for i := 0; i < 3; i++ {
		a.Set(float64(i+1), i)
		b.Set(2, i)
	}
	hgemm(g, GemmArgs{A: a, B: b, C: c}, testPar)
	assert.Equal(t, 6.0, c.At(0))
}

func TestConvDirect_MatchesIm2col(t *testing.T) {
	p, err := problem.NewConv(
		[]int{2, 3, 5, 5}, []int{4, 3, 3, 3}, []int{2, 4, 3, 3},
		[2]int{2, 2}, [2]int{1, 1}, [2]int{1, 1})
	require.NoError(t, err)

	src := newBuf(t, memory.Dims{2, 3, 5, 5}, memory.F32, memory.NCHW)
	wei := newBuf(t, memory.Dims{4, 3, 3, 3}, memory.F32, memory.OIHW)
	bias := newBuf(t, memory.Dims{4}, memory.F32, memory.X)
	for i := range src.Float32() {
		src.Float32()[i] = float32(i%7) - 3
	}
	for i := range wei.Float32() {
		wei.Float32()[i] = float32(i%5) * 0.5
	}
	copy(bias.Float32(), []float32{1, -1, 0.5, 0})

	var ops attr.PostOps
	ops.AppendEltwise(1, attr.EltwiseRelu, 0, 0)

	want := newBuf(t, memory.Dims{2, 4, 3, 3}, memory.F32, memory.NCHW)
	convIm2col(p, ConvArgs{Src: src, Weights: wei, Bias: bias, Dst: want, Scales: []float32{2}, PostOps: ops}, testPar)

	blockedSrc := newBuf(t, memory.Dims{2, 3, 5, 5}, memory.F32, memory.NChw8c)
	reorderAny(src, blockedSrc, attr.Default(), testPar)
	blockedWei := newBuf(t, memory.Dims{4, 3, 3, 3}, memory.F32, memory.Oihw8o)
	reorderAny(wei, blockedWei, attr.Default(), testPar)
	got := newBuf(t, memory.Dims{2, 4, 3, 3}, memory.F32, memory.NChw8c)

	convDirect[float32, float32, float32](p,
		ConvArgs{Src: blockedSrc, Weights: blockedWei, Bias: bias, Dst: got, Scales: []float32{2}, PostOps: ops}, testPar)
	assert.True(t, want.Equal(got))

	for _, v := range want.Float32() {
		assert.GreaterOrEqual(t, v, float32(0))
	}
}

func TestConvDirect_Int8PerChannelScales(t *testing.T) {
	// 1x1 convolution: dst[oc] = scale[oc] * (sum_ic src[ic]*w[oc][ic] + bias[oc])
	p, err := problem.NewConv(
		[]int{1, 2, 1, 1}, []int{2, 2, 1, 1}, []int{1, 2, 1, 1},
		[2]int{1, 1}, [2]int{0, 0}, [2]int{0, 0})
	require.NoError(t, err)

	src := newBuf(t, memory.Dims{1, 2, 1, 1}, memory.U8, memory.NHWC)
	wei := newBuf(t, memory.Dims{2, 2, 1, 1}, memory.S8, memory.Oihw8o)
	bias := newBuf(t, memory.Dims{2}, memory.S32, memory.X)
	dst := newBuf(t, memory.Dims{1, 2, 1, 1}, memory.U8, memory.NHWC)
	src.Set(200, 0, 0, 0, 0)
	src.Set(10, 0, 1, 0, 0)
	wei.Set(1, 0, 0, 0, 0)
	wei.Set(2, 0, 1, 0, 0)
	wei.Set(-1, 1, 0, 0, 0)
	wei.Set(1, 1, 1, 0, 0)
	copy(bias.Int32(), []int32{5, 0})

	kernel, ok := LookupConv(ConvTypes{memory.U8, memory.S8, memory.S32, memory.U8}, engine.AVX2)
	require.True(t, ok)
	kernel.Run(p, ConvArgs{Src: src, Weights: wei, Bias: bias, Dst: dst, Scales: []float32{0.5, 1}}, testPar)

	// oc0: (200 + 20 + 5) * 0.5 = 112.5 -> 112 (half to even)
	// oc1: (-200 + 10) -> saturates to 0 in u8
	assert.Equal(t, 112.0, dst.At(0, 0, 0, 0))
	assert.Equal(t, 0.0, dst.At(0, 1, 0, 0))
}

func TestLookupConv_Int8NeedsISA(t *testing.T) {
	_, ok := LookupConv(ConvTypes{memory.U8, memory.S8, memory.Undef, memory.S8}, engine.Generic)
	assert.False(t, ok)
	_, ok = LookupConv(ConvTypes{memory.F32, memory.F32, memory.Undef, memory.F32}, engine.Generic)
	assert.True(t, ok)
	_, ok = LookupConv(ConvTypes{memory.F32, memory.S8, memory.Undef, memory.F32}, engine.AVX2)
	assert.False(t, ok)
}

func TestReorder_QuantizeBlocked(t *testing.T) {
	src := newBuf(t, memory.Dims{1, 10, 1, 1}, memory.F32, memory.NCHW)
	for c := 0; c < 10; c++ {
		src.Set(float64(c)*30, 0, c, 0, 0)
	}
	dst := newBuf(t, memory.Dims{1, 10, 1, 1}, memory.S8, memory.NChw8c)

	a, err := attr.New(attr.WithOutputScales(0, []float32{0.5}))
	require.NoError(t, err)
	impl := LookupReorder(src.Desc(), dst.Desc(), a)
	assert.Equal(t, "simple:any", impl.Name)
	impl.Run(src, dst, a, testPar)

	for c := 0; c < 10; c++ {
		assert.Equal(t, memory.Quantize(memory.S8, float64(c)*15), dst.At(0, c, 0, 0), "c=%d", c)
	}
	assert.Equal(t, 127.0, dst.At(0, 9, 0, 0))
}

func TestReorder_Copy(t *testing.T) {
	src := newBuf(t, memory.Dims{2, 3}, memory.S32, memory.NC)
	copy(src.Int32(), []int32{1, 2, 3, 4, 5, 6})
	dst := newBuf(t, memory.Dims{2, 3}, memory.S32, memory.NC)

	impl := LookupReorder(src.Desc(), dst.Desc(), attr.Default())
	assert.Equal(t, "simple:copy", impl.Name)
	impl.Run(src, dst, attr.Default(), testPar)
	assert.Equal(t, src.Int32(), dst.Int32())
}

func TestSum_ConstantSources(t *testing.T) {
	a := newBuf(t, memory.Dims{2, 8, 2, 2}, memory.F32, memory.NCHW)
	b := newBuf(t, memory.Dims{2, 8, 2, 2}, memory.F32, memory.NChw8c)
	dst := newBuf(t, memory.Dims{2, 8, 2, 2}, memory.F32, memory.NCHW)
	a.Fill(1)
	b.Fill(1)
	dst.Fill(-32)

	impl := LookupSum([]memory.Desc{a.Desc(), b.Desc()}, dst.Desc())
	impl.Run([]*memory.Buffer{a, b}, []float32{2, 3}, dst, testPar)
	for _, v := range dst.Float32() {
		assert.Equal(t, float32(5), v)
	}
}

func TestSum_PerStepClamp(t *testing.T) {
	// 100 + 100 clamps to 127 before -100 is added: 27, not 100.
	srcs := make([]*memory.Buffer, 3)
	for i, v := range []float64{100, 100, -100} {
		srcs[i] = newBuf(t, memory.Dims{4}, memory.S8, memory.X)
		srcs[i].Fill(v)
	}
	dst := newBuf(t, memory.Dims{4}, memory.S8, memory.X)

	sumFlat(srcs, []float32{1, 1, 1}, dst, testPar)
	assert.Equal(t, []int8{27, 27, 27, 27}, dst.Int8())
}

func TestEltwise(t *testing.T) {
	_, ok := LookupEltwise(memory.S8, attr.EltwiseTanh)
	assert.False(t, ok)

	impl, ok := LookupEltwise(memory.S8, attr.EltwiseRelu)
	require.True(t, ok)
	src := newBuf(t, memory.Dims{4}, memory.S8, memory.X)
	dst := newBuf(t, memory.Dims{4}, memory.S8, memory.X)
	copy(src.Int8(), []int8{-5, 5, -128, 127})
	impl.Run(src, dst, attr.EltwiseRelu, 0, 0, testPar)
	assert.Equal(t, []int8{0, 5, 0, 127}, dst.Int8())

	impl, ok = LookupEltwise(memory.F32, attr.EltwiseBoundedRelu)
	require.True(t, ok)
	fs := newBuf(t, memory.Dims{1, 3, 1, 1}, memory.F32, memory.NCHW)
	fd := newBuf(t, memory.Dims{1, 3, 1, 1}, memory.F32, memory.NChw8c)
	copy(fs.Float32(), []float32{-1, 3, 9})
	impl.Run(fs, fd, attr.EltwiseBoundedRelu, 6, 0, testPar)
	assert.Equal(t, 0.0, fd.At(0, 0, 0, 0))
	assert.Equal(t, 3.0, fd.At(0, 1, 0, 0))
	assert.Equal(t, 6.0, fd.At(0, 2, 0, 0))
}
