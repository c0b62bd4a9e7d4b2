// Package sampler shrinks large problem dimensions to a bounded test size so
// that exhaustive reference checks stay tractable.
//
// A Mapper is a surjection of [0, dim) onto [0, dimTest) with
// dimTest = min(dim, cap). It is the identity below dimTest; every index at
// or beyond dimTest aliases one of the first dimTest indices, chosen by a
// multiplicative recurrence. Matrices built so that aliased rows or columns
// are literal copies produce aliased outputs under any linear operation, so
// a reference computed on the reduced problem expands to the full one.
package sampler

// Caps for the M and N axes of GEMM validation. Both are primes near 50 so
// that the recurrence does not fall into short periods.
const (
	MTestMax = 47
	NTestMax = 53
)

// Default recurrence constants.
const (
	DefaultGen      = 7
	DefaultGenStart = 13
)

// Mapper is a deterministic surjection from [0, Dim) onto [0, DimTest).
type Mapper struct {
	dim     int
	dimTest int
	m       []int
}

// NewMapper builds a mapper with the default generator.
func NewMapper(dim, limit int) *Mapper {
	return NewMapperWithGenerator(dim, limit, DefaultGen, DefaultGenStart)
}

// NewMapperWithGenerator builds a mapper whose overflow indices follow
// g <- g*gen mod dimTest starting at genStart mod dimTest.
func NewMapperWithGenerator(dim, limit, gen, genStart int) *Mapper {
	dim = max(dim, 0)
	mp := &Mapper{dim: dim, dimTest: min(dim, max(limit, 1)), m: make([]int, dim)}
	for d := 0; d < mp.dimTest; d++ {
		mp.m[d] = d
	}
	if mp.dimTest == 0 {
		return mp
	}
	g := genStart % mp.dimTest
	for d := mp.dimTest; d < dim; d++ {
		mp.m[d] = mp.m[g]
		g = g * gen % mp.dimTest
	}
	return mp
}

// Dim returns the full dimension.
func (mp *Mapper) Dim() int { return mp.dim }

// DimTest returns the reduced dimension.
func (mp *Mapper) DimTest() int { return mp.dimTest }

// At returns the reduced index of d.
func (mp *Mapper) At(d int) int { return mp.m[d] }

// Reduced reports whether the mapper shrinks its dimension.
func (mp *Mapper) Reduced() bool { return mp.dimTest < mp.dim }
