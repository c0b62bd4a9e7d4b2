package attr

import (
	"math"

	"github.com/born-ml/prim/internal/status"
)

// Alg is an elementwise algorithm.
type Alg int

// Elementwise algorithms.
const (
	EltwiseRelu Alg = iota
	EltwiseTanh
	EltwiseElu
	EltwiseSquare
	EltwiseAbs
	EltwiseSqrt
	EltwiseLinear
	EltwiseBoundedRelu
	EltwiseSoftRelu
	EltwiseLogistic
)

var algNames = [...]string{
	EltwiseRelu:        "relu",
	EltwiseTanh:        "tanh",
	EltwiseElu:         "elu",
	EltwiseSquare:      "square",
	EltwiseAbs:         "abs",
	EltwiseSqrt:        "sqrt",
	EltwiseLinear:      "linear",
	EltwiseBoundedRelu: "bounded_relu",
	EltwiseSoftRelu:    "soft_relu",
	EltwiseLogistic:    "logistic",
}

// String returns the algorithm name.
func (a Alg) String() string {
	if a >= 0 && int(a) < len(algNames) {
		return algNames[a]
	}
	return "unknown"
}

// ParseAlg converts an algorithm name back to an Alg.
func ParseAlg(name string) (Alg, error) {
	for i, s := range algNames {
		if s == name {
			return Alg(i), nil
		}
	}
	return 0, status.Invalidf("attr", "unknown eltwise algorithm %q", name)
}

// Valid reports whether a is a known algorithm.
func (a Alg) Valid() bool {
	return a >= 0 && int(a) < len(algNames)
}

// Apply computes the algorithm on x with parameters alpha and beta.
//
//	relu:         x > 0 ? x : alpha*x
//	elu:          x > 0 ? x : alpha*(e^x - 1)
//	linear:       alpha*x + beta
//	bounded_relu: min(alpha, max(0, x))
//	soft_relu:    log(1 + e^x)
//	logistic:     1 / (1 + e^-x)
func (a Alg) Apply(x, alpha, beta float64) float64 {
	switch a {
	case EltwiseRelu:
		if x > 0 {
			return x
		}
		return alpha * x
	case EltwiseTanh:
		return math.Tanh(x)
	case EltwiseElu:
		if x > 0 {
			return x
		}
		return alpha * math.Expm1(x)
	case EltwiseSquare:
		return x * x
	case EltwiseAbs:
		return math.Abs(x)
	case EltwiseSqrt:
		return math.Sqrt(x)
	case EltwiseLinear:
		return alpha*x + beta
	case EltwiseBoundedRelu:
		return math.Min(alpha, math.Max(0, x))
	case EltwiseSoftRelu:
		if x > 20 {
			return x
		}
		return math.Log1p(math.Exp(x))
	case EltwiseLogistic:
		return 1 / (1 + math.Exp(-x))
	default:
		return x
	}
}

// PostOpKind tags a fused post-operation.
type PostOpKind int

// Post-operation kinds.
const (
	PostOpEltwise PostOpKind = iota
	PostOpSum
)

// String returns the kind name.
func (k PostOpKind) String() string {
	switch k {
	case PostOpEltwise:
		return "eltwise"
	case PostOpSum:
		return "sum"
	default:
		return "unknown"
	}
}

// PostOp is one fused operation applied after output scaling.
//
// An eltwise op replaces the value with Scale*Alg(x, Alpha, Beta). A sum op
// adds Scale times the value previously stored in the destination.
type PostOp struct {
	Kind  PostOpKind
	Scale float32
	Alg   Alg
	Alpha float32
	Beta  float32
}

// Apply runs the post-op on x. prev is the destination value before the
// primitive ran and is read only by sum.
func (p PostOp) Apply(x, prev float64) float64 {
	if p.Kind == PostOpSum {
		return x + float64(p.Scale)*prev
	}
	return float64(p.Scale) * p.Alg.Apply(x, float64(p.Alpha), float64(p.Beta))
}

// PostOps is an ordered list of post-operations.
type PostOps struct {
	ops []PostOp
}

// AppendEltwise adds an elementwise op.
func (p *PostOps) AppendEltwise(scale float32, alg Alg, alpha, beta float32) {
	p.ops = append(p.ops, PostOp{Kind: PostOpEltwise, Scale: scale, Alg: alg, Alpha: alpha, Beta: beta})
}

// AppendSum adds an accumulation into the existing destination.
func (p *PostOps) AppendSum(scale float32) {
	p.ops = append(p.ops, PostOp{Kind: PostOpSum, Scale: scale})
}

// Len returns the number of ops.
func (p PostOps) Len() int { return len(p.ops) }

// At returns the i-th op.
func (p PostOps) At(i int) PostOp { return p.ops[i] }

// Kinds returns the op kinds in order.
func (p PostOps) Kinds() []PostOpKind {
	kinds := make([]PostOpKind, len(p.ops))
	for i, op := range p.ops {
		kinds[i] = op.Kind
	}
	return kinds
}

// HasSum reports whether any op reads the previous destination.
func (p PostOps) HasSum() bool {
	for _, op := range p.ops {
		if op.Kind == PostOpSum {
			return true
		}
	}
	return false
}

// Apply runs the whole chain on x.
func (p PostOps) Apply(x, prev float64) float64 {
	for _, op := range p.ops {
		x = op.Apply(x, prev)
	}
	return x
}

func (p PostOps) clone() PostOps {
	return PostOps{ops: append([]PostOp(nil), p.ops...)}
}
