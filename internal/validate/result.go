package validate

import (
	"fmt"
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/born-ml/prim/internal/status"
)

// Tolerance bounds the error of one element. With Rel > 0 the error is
// relative once |want| exceeds Rel and absolute below; otherwise the
// absolute difference must not exceed Abs.
type Tolerance struct {
	Abs float64 `json:"abs,omitempty" yaml:"abs"`
	Rel float64 `json:"rel,omitempty" yaml:"rel"`
}

// Exact accepts only equal values.
var Exact = Tolerance{}

// Check returns the measured error and whether it is within bounds.
func (t Tolerance) Check(got, want float64) (float64, bool) {
	diff := got - want
	if math.IsNaN(got) || math.IsNaN(want) {
		return math.Inf(1), math.IsNaN(got) && math.IsNaN(want)
	}
	if t.Rel > 0 {
		e := diff
		if math.Abs(want) > t.Rel {
			e = diff / want
		}
		return math.Abs(e), math.Abs(e) <= t.Rel
	}
	return math.Abs(diff), math.Abs(diff) <= t.Abs
}

// Mismatch locates an element outside tolerance. Index holds the logical
// coordinates: (row, col) for GEMM, (n, c, h, w) for tensors.
type Mismatch struct {
	Index []int   `json:"index"`
	Got   float64 `json:"got"`
	Want  float64 `json:"want"`
}

// String formats the mismatch.
func (m Mismatch) String() string {
	return fmt.Sprintf("at %v: got %g, want %g", m.Index, m.Got, m.Want)
}

// Result summarizes one comparison.
type Result struct {
	Checked  int       `json:"checked"`
	Failed   int       `json:"failed"`
	MaxError float64   `json:"max_error"`
	First    *Mismatch `json:"first_mismatch,omitempty"`
}

// Passed reports whether every checked element was within tolerance.
func (r Result) Passed() bool { return r.Failed == 0 }

// Err converts a failed comparison into an error.
func (r Result) Err() error {
	if r.Passed() {
		return nil
	}
	return errors.Errorf("%d of %d elements outside tolerance, first %s", r.Failed, r.Checked, r.First)
}

// collector accumulates a Result from concurrent comparisons. The first
// mismatch kept is the one with the smallest index in visiting order.
type collector struct {
	mu  sync.Mutex
	tol Tolerance
	res Result
}

func (c *collector) check(idx []int, got, want float64) {
	e, ok := c.tol.Check(got, want)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.res.Checked++
	if !math.IsInf(e, 0) && e > c.res.MaxError {
		c.res.MaxError = e
	}
	if ok {
		return
	}
	c.res.Failed++
	if c.res.First == nil || less(idx, c.res.First.Index) {
		c.res.First = &Mismatch{Index: append([]int(nil), idx...), Got: got, Want: want}
	}
}

func less(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// CheckExpected interprets the outcome of a case. A case that must fail
// passes only when err carries the wanted status.
func CheckExpected(err error, expectFail bool, want status.Status) error {
	if !expectFail {
		return err
	}
	if err == nil {
		return errors.Errorf("expected failure with %s, got success", want)
	}
	if got := status.Of(err); got != want {
		return errors.Wrapf(err, "expected %s, got %s", want, got)
	}
	return nil
}
