package cpu

import (
	"github.com/x448/float16"

	"github.com/born-ml/prim/internal/engine"
	"github.com/born-ml/prim/internal/memory"
	"github.com/born-ml/prim/internal/parallel"
	"github.com/born-ml/prim/internal/problem"
)

// GemmArgs are the GEMM operands. OffsetC is the integer C offset vector and
// may be nil when the offset mode is none.
type GemmArgs struct {
	A, B, C, OffsetC *memory.Buffer
}

// GemmKernel computes C = alpha*op(A)*op(B) + beta*C for one problem.
type GemmKernel func(g problem.Gemm, a GemmArgs, par parallel.Config)

// GemmTypes keys the GEMM table.
type GemmTypes struct {
	A, B, C memory.DataType
}

type gemmEntry struct {
	family string
	run    GemmKernel
	needs  func(engine.ISA) bool
}

func always(engine.ISA) bool { return true }

var gemmKernels = map[GemmTypes]gemmEntry{
	{memory.F32, memory.F32, memory.F32}: {"sgemm", sgemm, always},
	{memory.F16, memory.F16, memory.F16}: {"hgemm", hgemm, engine.ISA.F16},
	{memory.S8, memory.S8, memory.S32}:   {"gemm_s8s8s32", igemm[int8], engine.ISA.Int8},
	{memory.S8, memory.U8, memory.S32}:   {"gemm_s8u8s32", igemm[uint8], engine.ISA.Int8},
}

// LookupGemm returns the kernel for an A, B, C type triple if the ISA
// supports it.
func LookupGemm(types GemmTypes, isa engine.ISA) (Impl[GemmKernel], bool) {
	e, ok := gemmKernels[types]
	if !ok || !e.needs(isa) {
		return Impl[GemmKernel]{}, false
	}
	return Impl[GemmKernel]{Name: implName(e.family, isa), Run: e.run}, true
}

// sgemm is the f32 kernel. Columns of C are independent units of work.
func sgemm(g problem.Gemm, a GemmArgs, par parallel.Config) {
	if g.M == 0 || g.N == 0 {
		return
	}
	A, B, C := a.A.Float32(), a.B.Float32(), a.C.Float32()

	parallel.For(g.N, func(n int) {
		for m := 0; m < g.M; m++ {
			sum := float32(0)
			for k := 0; k < g.K; k++ {
				sum += A[g.IndexA(m, k)] * B[g.IndexB(k, n)]
			}
			ci := g.IndexC(m, n)
			if g.Beta == 0 {
				C[ci] = g.Alpha * sum
			} else {
				C[ci] = g.Alpha*sum + g.Beta*C[ci]
			}
		}
	}, par)
}

// hgemm is the f16 kernel; products accumulate in f32.
func hgemm(g problem.Gemm, a GemmArgs, par parallel.Config) {
	if g.M == 0 || g.N == 0 {
		return
	}
	A, B, C := a.A.Float16(), a.B.Float16(), a.C.Float16()

	parallel.For(g.N, func(n int) {
		for m := 0; m < g.M; m++ {
			sum := float32(0)
			for k := 0; k < g.K; k++ {
				sum += A[g.IndexA(m, k)].Float32() * B[g.IndexB(k, n)].Float32()
			}
			ci := g.IndexC(m, n)
			v := g.Alpha * sum
			if g.Beta != 0 {
				v += g.Beta * C[ci].Float32()
			}
			C[ci] = float16.Fromfloat32(v)
		}
	}, par)
}

// igemm is the integer kernel: A is s8, B is s8 or u8, C is s32.
// Operands are shifted by their zero points, products accumulate exactly in
// 64 bits, and the scaled result plus the C offset is rounded and saturated.
func igemm[BT int8 | uint8](g problem.Gemm, a GemmArgs, par parallel.Config) {
	if g.M == 0 || g.N == 0 {
		return
	}
	A := a.A.Int8()
	B := view[BT](a.B.Data())
	C := a.C.Int32()
	var oc []int32
	if a.OffsetC != nil && g.OffsetC != problem.OffsetNone {
		oc = a.OffsetC.Int32()
	}
	oa, ob := int64(g.ZeroPointA), int64(g.ZeroPointB)
	alpha, beta := float64(g.Alpha), float64(g.Beta)

	parallel.For(g.N, func(n int) {
		for m := 0; m < g.M; m++ {
			var acc int64
			for k := 0; k < g.K; k++ {
				acc += (int64(A[g.IndexA(m, k)]) + oa) * (int64(B[g.IndexB(k, n)]) + ob)
			}
			ci := g.IndexC(m, n)
			v := alpha * float64(acc)
			if beta != 0 {
				v += beta * float64(C[ci])
			}
			if oc != nil {
				v += float64(oc[g.OffsetIndex(m, n)])
			}
			C[ci] = int32(memory.Quantize(memory.S32, v))
		}
	}, par)
}
