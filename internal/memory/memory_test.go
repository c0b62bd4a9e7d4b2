package memory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/status"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.New(engine.CPU, 0)
	require.NoError(t, err)
	return eng
}

func TestDataType(t *testing.T) {
	assert.Equal(t, 1, S8.Size())
	assert.Equal(t, 2, F16.Size())
	assert.Equal(t, 4, S32.Size())
	assert.True(t, U8.IsInteger())
	assert.False(t, F32.IsInteger())

	for _, dt := range []DataType{S8, U8, S32, F16, F32} {
		got, err := ParseDataType(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, got)
	}
	_, err := ParseDataType("bf16")
	assert.True(t, status.Is(err, status.InvalidArguments))
}

func TestFormatTag_Parse(t *testing.T) {
	for tag := Any; tag <= Oihw16o; tag++ {
		got, err := ParseFormatTag(tag.String())
		require.NoError(t, err)
		assert.Equal(t, tag, got)
	}
	_, err := ParseFormatTag("nCdhw8c")
	assert.Error(t, err)
}

func TestNewDesc_NegativeDim(t *testing.T) {
	_, err := NewDesc(Dims{-1, 8, 4, 4}, F32, NCHW)
	assert.True(t, status.Is(err, status.InvalidArguments), "got %v", err)
}

func TestNewDesc_WrongRank(t *testing.T) {
	_, err := NewDesc(Dims{2, 3}, F32, NCHW)
	assert.True(t, status.Is(err, status.InvalidArguments))
}

func TestNewDesc_ZeroDims(t *testing.T) {
	for _, dims := range []Dims{{0, 7, 4, 4}, {1, 0, 4, 4}, {1, 8, 0, 4}} {
		d, err := NewDesc(dims, F32, NChw8c)
		require.NoError(t, err)
		assert.Equal(t, 0, d.Size())
		assert.Equal(t, 0, d.NumElements())
	}
}

func TestDesc_PlainOffsets(t *testing.T) {
	d := MustDesc(Dims{2, 3, 4, 5}, F32, NCHW)
	assert.Equal(t, 2*3*4*5*4, d.Size())
	assert.Equal(t, 0, d.Offset([]int{0, 0, 0, 0}))
	assert.Equal(t, 1*60+2*20+3*5+4, d.Offset([]int{1, 2, 3, 4}))

	nhwc := MustDesc(Dims{2, 3, 4, 5}, F32, NHWC)
	// n*H*W*C + h*W*C + w*C + c
	assert.Equal(t, 1*60+3*15+4*3+2, nhwc.Offset([]int{1, 2, 3, 4}))
}

func TestDesc_BlockedOffsets(t *testing.T) {
	d := MustDesc(Dims{1, 10, 2, 2}, F32, NChw8c)
	// channels padded to 16: two blocks of 8 each holding 2*2 pixels
	assert.Equal(t, 16*2*2, d.PhysicalElements())

	// c=9 lives in block 1 at lane 1
	assert.Equal(t, 1*(2*2*8)+(1*2+1)*8+1, d.Offset([]int{0, 9, 1, 1}))

	w := MustDesc(Dims{20, 3, 1, 1}, S8, Oihw16o)
	assert.Equal(t, 32*3, w.PhysicalElements())
	assert.Equal(t, 1*(3*16)+2*16+3, w.Offset([]int{19, 2, 0, 0}))
}

func TestDesc_OffsetsAreUnique(t *testing.T) {
	for _, tag := range []FormatTag{NCHW, NHWC, NChw8c, NChw16c} {
		d := MustDesc(Dims{2, 19, 3, 5}, U8, tag)
		seen := map[int]bool{}
		for i := 0; i < d.NumElements(); i++ {
			off := d.OffL(i)
			assert.False(t, seen[off], "%s: duplicate offset %d", tag, off)
			assert.Less(t, off, d.PhysicalElements())
			seen[off] = true
		}
	}
}

func TestDesc_Equal(t *testing.T) {
	a := MustDesc(Dims{2, 1, 4, 4}, F32, NCHW)
	b := MustDesc(Dims{2, 1, 4, 4}, F32, NHWC)
	assert.True(t, a.Equal(b), "single-channel nchw and nhwc share placement")

	c := MustDesc(Dims{2, 3, 4, 4}, F32, NCHW)
	e := MustDesc(Dims{2, 3, 4, 4}, F32, NHWC)
	assert.False(t, c.Equal(e))

	oihw := MustDesc(Dims{2, 3, 4, 4}, F32, OIHW)
	assert.True(t, c.Equal(oihw))

	u8 := MustDesc(Dims{2, 3, 4, 4}, U8, NCHW)
	assert.False(t, c.Equal(u8))
}

func TestDesc_Any(t *testing.T) {
	d := MustDesc(Dims{8, 256, 13, 13}, U8, Any)
	assert.True(t, d.IsAny())
	_, err := NewBuffer(d, testEngine(t))
	assert.True(t, status.Is(err, status.InvalidArguments))

	r, err := d.WithFormat(NHWC)
	require.NoError(t, err)
	assert.False(t, r.IsAny())
	assert.Equal(t, "u8:nhwc:8x256x13x13", r.String())
}

func TestQuantize_Saturation(t *testing.T) {
	assert.Equal(t, 127.0, Quantize(S8, 1e9))
	assert.Equal(t, -128.0, Quantize(S8, -300.7))
	assert.Equal(t, 255.0, Quantize(U8, 255.6))
	assert.Equal(t, 0.0, Quantize(U8, -3))
	assert.Equal(t, float64(math.MaxInt32), Quantize(S32, 1e12))
	assert.Equal(t, float64(math.MinInt32), Quantize(S32, -1e12))
	assert.Equal(t, 0.0, Quantize(S8, math.NaN()))
}

func TestQuantize_RoundHalfEven(t *testing.T) {
	assert.Equal(t, 2.0, Quantize(S8, 2.5))
	assert.Equal(t, 4.0, Quantize(S8, 3.5))
	assert.Equal(t, -2.0, Quantize(S8, -2.5))
	assert.Equal(t, 1.0, Quantize(U8, 0.51))
}

func TestBuffer_TypedViews(t *testing.T) {
	eng := testEngine(t)
	b, err := NewBuffer(MustDesc(Dims{2, 3}, S32, NC), eng)
	require.NoError(t, err)
	assert.Same(t, eng, b.Engine())

	data := b.Int32()
	require.Len(t, data, 6)
	data[4] = 42
	assert.Equal(t, 42.0, b.At(1, 1))

	assert.Panics(t, func() { b.Float32() })
}

func TestBuffer_StoreSaturates(t *testing.T) {
	b, err := NewBuffer(MustDesc(Dims{4}, S8, X), testEngine(t))
	require.NoError(t, err)

	b.Store(0, 200)
	b.Store(1, -200)
	b.Store(2, 1.5)
	b.Store(3, -0.4)
	assert.Equal(t, []int8{127, -128, 2, 0}, b.Int8())
}

func TestBuffer_Float16(t *testing.T) {
	b, err := NewBuffer(MustDesc(Dims{3}, F16, X), testEngine(t))
	require.NoError(t, err)

	b.Set(1.5, 0)
	b.Set(-2, 1)
	b.Set(1e6, 2)
	assert.Equal(t, 1.5, b.At(0))
	assert.Equal(t, -2.0, b.At(1))
	assert.True(t, math.IsInf(b.At(2), 1))
}

func TestBuffer_FillAndEqual(t *testing.T) {
	eng := testEngine(t)
	a, err := NewBuffer(MustDesc(Dims{1, 10, 2, 2}, F32, NCHW), eng)
	require.NoError(t, err)
	b, err := NewBuffer(MustDesc(Dims{1, 10, 2, 2}, F32, NChw8c), eng)
	require.NoError(t, err)

	a.Fill(-32)
	b.Fill(-32)
	assert.True(t, a.Equal(b))

	b.Set(1, 0, 9, 1, 1)
	assert.False(t, a.Equal(b))
}

func TestBuffer_Empty(t *testing.T) {
	b, err := NewBuffer(MustDesc(Dims{1, 0, 4, 4}, F32, NCHW), testEngine(t))
	require.NoError(t, err)
	assert.Empty(t, b.Float32())
	assert.Empty(t, b.Data())
	b.Fill(1)
}
