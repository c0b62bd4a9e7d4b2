package sampler

import "github.com/born-ml/prim/internal/parallel"

// Layout is the storage order of a matrix relative to its mapped axis.
type Layout int

// Layouts. In ColMajor the mapped rows are contiguous within a column; in
// RowMajor the columns are contiguous within a mapped row.
const (
	ColMajor Layout = iota
	RowMajor
)

// String returns the layout name.
func (l Layout) String() string {
	if l == RowMajor {
		return "row_major"
	}
	return "col_major"
}

// PrepareMatrix fills a rows x cols matrix stored at m[off:] with leading
// dimension ld. Rows below mp.DimTest() get fresh values from gen, which
// receives the element position relative to off; the remaining rows copy
// the row they alias. rows must equal mp.Dim().
func PrepareMatrix[T any](m []T, off int, layout Layout, rows, cols, ld int, mp *Mapper, gen func(pos int) T, par parallel.Config) {
	rTest := mp.DimTest()
	pos := func(r, c int) int {
		if layout == ColMajor {
			return c*ld + r
		}
		return r*ld + c
	}

	parallel.For2D(rTest, cols, func(r, c int) {
		p := pos(r, c)
		m[off+p] = gen(p)
	}, par)
	if rows > rTest {
		parallel.For2D(rows-rTest, cols, func(r, c int) {
			r += rTest
			m[off+pos(r, c)] = m[off+pos(mp.At(r), c)]
		}, par)
	}
}

// ExtendCols copies every aliased column c >= DimTest from column mp.At(c)
// in a column-major matrix. cols must equal mp.Dim().
func ExtendCols[T any](m []T, off, rows, cols, ld int, mp *Mapper, par parallel.Config) {
	cTest := mp.DimTest()
	if cTest == cols {
		return
	}
	parallel.For(cols-cTest, func(i int) {
		c := cTest + i
		c0 := mp.At(c)
		copy(m[off+c*ld:off+c*ld+rows], m[off+c0*ld:off+c0*ld+rows])
	}, par)
}

// ExtendRows copies every aliased row r >= DimTest from row mp.At(r) in a
// column-major matrix. rows must equal mp.Dim().
func ExtendRows[T any](m []T, off, rows, cols, ld int, mp *Mapper, par parallel.Config) {
	rTest := mp.DimTest()
	if rTest == rows {
		return
	}
	parallel.For2D(cols, rows-rTest, func(c, i int) {
		r := rTest + i
		m[off+c*ld+r] = m[off+c*ld+mp.At(r)]
	}, par)
}

// Extend applies ExtendRows with mr and then ExtendCols with mc.
func Extend[T any](m []T, off, rows, cols, ld int, mr, mc *Mapper, par parallel.Config) {
	ExtendRows(m, off, rows, cols, ld, mr, par)
	ExtendCols(m, off, rows, cols, ld, mc, par)
}
