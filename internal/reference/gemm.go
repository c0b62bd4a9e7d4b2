// Package reference holds brute-force implementations used only to check
// kernel results. Nothing in the execution path calls into it.
//
// Every routine works on plain slices in the same column-major convention as
// problem.Gemm and fans out over independent output cells.
package reference

import (
	"math"

	"github.com/x448/float16"

	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/parallel"
	"github.com/born-ml/prim/internal/problem"
)

// GemmF32 computes the top-left m x n block of C = alpha*op(A)*op(B) + beta*C.
// m and n may be smaller than g.M and g.N to evaluate a sampled subproblem.
func GemmF32(g problem.Gemm, m, n int, a, b, c []float32, par parallel.Config) {
	parallel.For2D(m, n, func(im, in int) {
		var v float32
		if g.Beta != 0 {
			v = c[g.IndexC(im, in)] * g.Beta
		}
		for k := 0; k < g.K; k++ {
			v += g.Alpha * a[g.IndexA(im, k)] * b[g.IndexB(k, in)]
		}
		c[g.IndexC(im, in)] = v
	}, par)
}

// GemmF16 is GemmF32 over half-precision storage with f32 accumulation.
func GemmF16(g problem.Gemm, m, n int, a, b, c []float16.Float16, par parallel.Config) {
	parallel.For2D(m, n, func(im, in int) {
		var v float32
		if g.Beta != 0 {
			v = c[g.IndexC(im, in)].Float32() * g.Beta
		}
		for k := 0; k < g.K; k++ {
			v += g.Alpha * a[g.IndexA(im, k)].Float32() * b[g.IndexB(k, in)].Float32()
		}
		c[g.IndexC(im, in)] = float16.Fromfloat32(v)
	}, par)
}

// GemmInt8 is the integer reference: each A and B element is widened to
// float64 and shifted by its zero point before the product, the C offset
// term is selected by the offset mode, and the sum is saturated to int32
// and rounded to nearest.
func GemmInt8[B int8 | uint8](g problem.Gemm, m, n int, a []int8, b []B, c, oc []int32, par parallel.Config) {
	oa, ob := float64(g.ZeroPointA), float64(g.ZeroPointB)
	parallel.For2D(m, n, func(im, in int) {
		var acc float64
		for k := 0; k < g.K; k++ {
			acc += (float64(a[g.IndexA(im, k)]) + oa) * (float64(b[g.IndexB(k, in)]) + ob)
		}
		var coffset float64
		if len(oc) > 0 {
			coffset = float64(oc[g.OffsetIndex(im, in)])
		}
		var v float64
		if g.Beta != 0 {
			v = float64(g.Beta) * float64(c[g.IndexC(im, in)])
		}
		v += float64(g.Alpha)*acc + coffset
		c[g.IndexC(im, in)] = int32(math.RoundToEven(memory.Saturate(memory.S32, v)))
	}, par)
}
