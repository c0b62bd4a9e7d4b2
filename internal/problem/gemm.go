// Package problem holds the shape descriptions shared by CPU kernels and the
// reference engine: column-major GEMM and direct 2-D convolution.
package problem

import (
	"fmt"

	"github.com/born-ml/prim/internal/status"
)

// OffsetMode selects how the C offset vector of an integer GEMM is indexed.
type OffsetMode byte

// Offset modes. OffsetNone adds nothing; OffsetFixed adds oc[0] everywhere;
// OffsetRow adds oc[n] to column n; OffsetColumn adds oc[m] to row m.
const (
	OffsetNone   OffsetMode = 0
	OffsetFixed  OffsetMode = 'F'
	OffsetRow    OffsetMode = 'R'
	OffsetColumn OffsetMode = 'C'
)

// String returns the single-letter mode name.
func (o OffsetMode) String() string {
	if o == OffsetNone {
		return "N"
	}
	return string(rune(o))
}

// ParseOffsetMode accepts F, R, C or N in either case.
func ParseOffsetMode(s string) (OffsetMode, error) {
	if len(s) != 1 {
		return OffsetNone, status.Invalidf("gemm", "invalid offset mode %q", s)
	}
	switch s[0] {
	case 'F', 'f':
		return OffsetFixed, nil
	case 'R', 'r':
		return OffsetRow, nil
	case 'C', 'c':
		return OffsetColumn, nil
	case 'N', 'n':
		return OffsetNone, nil
	default:
		return OffsetNone, status.Invalidf("gemm", "invalid offset mode %q", s)
	}
}

// ParseTrans accepts N or T in either case.
func ParseTrans(s string) (bool, error) {
	switch s {
	case "N", "n":
		return false, nil
	case "T", "t":
		return true, nil
	default:
		return false, status.Invalidf("gemm", "invalid transpose flag %q", s)
	}
}

// Gemm describes C = alpha*op(A)*op(B) + beta*C in column-major storage.
//
// Element (i, j) of a matrix X with leading dimension ld lives at
// OffX + j*ld + i. op(A) is M x K and op(B) is K x N.
type Gemm struct {
	TransA, TransB bool
	M, N, K        int
	Alpha, Beta    float32
	LDA, LDB, LDC  int
	OffA, OffB     int
	OffC           int
	ZeroPointA     int8
	ZeroPointB     int8
	OffsetC        OffsetMode
}

// Validate checks extents, leading dimensions and offsets.
func (g Gemm) Validate() error {
	if g.M < 0 || g.N < 0 || g.K < 0 {
		return status.Invalidf("gemm", "negative size M=%d N=%d K=%d", g.M, g.N, g.K)
	}
	if g.OffA < 0 || g.OffB < 0 || g.OffC < 0 {
		return status.Invalidf("gemm", "negative buffer offset")
	}
	rowsA, rowsB := g.M, g.K
	if g.TransA {
		rowsA = g.K
	}
	if g.TransB {
		rowsB = g.N
	}
	if g.LDA < max(1, rowsA) {
		return status.Invalidf("gemm", "lda %d < %d", g.LDA, max(1, rowsA))
	}
	if g.LDB < max(1, rowsB) {
		return status.Invalidf("gemm", "ldb %d < %d", g.LDB, max(1, rowsB))
	}
	if g.LDC < max(1, g.M) {
		return status.Invalidf("gemm", "ldc %d < %d", g.LDC, max(1, g.M))
	}
	switch g.OffsetC {
	case OffsetNone, OffsetFixed, OffsetRow, OffsetColumn:
	default:
		return status.Invalidf("gemm", "invalid offset mode %q", byte(g.OffsetC))
	}
	return nil
}

// SizeA returns the number of A elements addressed after OffA.
func (g Gemm) SizeA() int {
	if g.TransA {
		return g.LDA * g.M
	}
	return g.LDA * g.K
}

// SizeB returns the number of B elements addressed after OffB.
func (g Gemm) SizeB() int {
	if g.TransB {
		return g.LDB * g.K
	}
	return g.LDB * g.N
}

// SizeC returns the number of C elements addressed after OffC.
func (g Gemm) SizeC() int { return g.LDC * g.N }

// SizeOffsetC returns the length of the C offset vector.
func (g Gemm) SizeOffsetC() int {
	switch g.OffsetC {
	case OffsetRow:
		return g.N
	case OffsetColumn:
		return g.M
	case OffsetFixed:
		return 1
	default:
		return 0
	}
}

// IndexA returns the position of op(A)(m, k).
func (g Gemm) IndexA(m, k int) int {
	if g.TransA {
		return g.OffA + m*g.LDA + k
	}
	return g.OffA + k*g.LDA + m
}

// IndexB returns the position of op(B)(k, n).
func (g Gemm) IndexB(k, n int) int {
	if g.TransB {
		return g.OffB + k*g.LDB + n
	}
	return g.OffB + n*g.LDB + k
}

// IndexC returns the position of C(m, n).
func (g Gemm) IndexC(m, n int) int {
	return g.OffC + n*g.LDC + m
}

// OffsetIndex returns which entry of the offset vector C(m, n) reads.
func (g Gemm) OffsetIndex(m, n int) int {
	switch g.OffsetC {
	case OffsetRow:
		return n
	case OffsetColumn:
		return m
	default:
		return 0
	}
}

// String formats the problem the way benchmark drivers print it.
func (g Gemm) String() string {
	t := func(b bool) string {
		if b {
			return "T"
		}
		return "N"
	}
	return fmt.Sprintf("%s%s m=%d n=%d k=%d alpha=%g beta=%g lda=%d ldb=%d ldc=%d",
		t(g.TransA), t(g.TransB), g.M, g.N, g.K, g.Alpha, g.Beta, g.LDA, g.LDB, g.LDC)
}
