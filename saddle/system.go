// Package saddle solves 2x2 block saddle-point systems (velocity/pressure
// splits) with a block-preconditioned MINRES. The block-11 matrix lives on
// the gather view of a shared-DOF range set; the block-21 operator is kept
// unassembled as a stride-3 sparse contraction, with block-12 its transpose.
package saddle

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/flowsolve/gosles/parallel"
	"github.com/flowsolve/gosles/sparse"
)

// System is a transient view over one 2-block linear system. It does not own
// the matrix or the right-hand sides; it is built per solve and discarded.
//
// Vectors over the whole system use a unified layout: the x1 block occupies
// [0, X1Size) of a slice padded to MaxX1Size, the x2 block follows at offset
// MaxX1Size. MaxX1Size >= X1Size lets several ranks share one workspace
// shape.
type System struct {
	Name string

	// block-11: scalar matrix on the gather view of the x1 DOFs
	M11  *sparse.Matrix
	RSet *parallel.RangeSet // scalar-entry range set over the x1 block

	// block-21, unassembled: row i2 couples x2[i2] to the x1 blocks listed
	// in M21Ids[M21Idx[i2]:M21Idx[i2+1]], three reals per adjacency entry:
	// M21Vals[3*jj+k] multiplies x1[3*M21Ids[jj]+k].
	M21Idx  []int
	M21Ids  []int
	M21Vals []float64

	RHS1, RHS2 []float64

	X1Size    int
	X2Size    int
	MaxX1Size int

	Comm parallel.Comm

	// scratch vectors for the fused operator, carrying the range set so
	// the layout conversions stay tied to the right metadata
	buf, mbuf *parallel.DistVector
}

// Size returns the unified workspace length.
func (sys *System) Size() int { return sys.MaxX1Size + sys.X2Size }

// Validate panics on an inconsistent view. Called once at solve start.
func (sys *System) Validate() {
	if sys.Comm == nil {
		sys.Comm = parallel.SelfComm{}
	}
	if sys.RSet == nil {
		sys.RSet = parallel.IdentityRangeSet(sys.X1Size, sys.Comm)
	}
	if sys.MaxX1Size < sys.X1Size {
		panic(fmt.Sprintf("saddle system %q: padded x1 size %d < x1 size %d",
			sys.Name, sys.MaxX1Size, sys.X1Size))
	}
	if len(sys.RHS1) < sys.X1Size || len(sys.RHS2) < sys.X2Size {
		panic(fmt.Sprintf("saddle system %q: right-hand side shorter than the block sizes",
			sys.Name))
	}
	if len(sys.M21Idx) != sys.X2Size+1 {
		panic(fmt.Sprintf("saddle system %q: block-21 index length %d, want %d",
			sys.Name, len(sys.M21Idx), sys.X2Size+1))
	}
	if 3*len(sys.M21Ids) != len(sys.M21Vals) {
		panic(fmt.Sprintf("saddle system %q: block-21 values not stride-3",
			sys.Name))
	}
}

// MatVec computes mx = M.x for the full block operator with one fused pass:
// the block-11 product through a gather/apply/scatter cycle, the block-12
// transpose contribution with an interface sum for shared DOFs, and the
// block-21 contraction. x and mx use the unified layout and must not alias.
func (sys *System) MatVec(x, mx []float64) {
	var (
		n1 = sys.X1Size
		o2 = sys.MaxX1Size
		x1 = x[:n1]
		x2 = x[o2 : o2+sys.X2Size]
	)
	if sys.buf == nil {
		sys.buf = parallel.NewDistVector(sys.RSet)
		sys.mbuf = parallel.NewDistVector(sys.RSet)
	}
	w, mw := sys.buf, sys.mbuf

	// block-11: compact to the gather view, apply, re-expand
	copy(w.Data, x1)
	w.Gather()
	sys.M11.VectorMultiply(w.Data, mw.Data)
	mw.Scatter()
	copy(mx[:n1], mw.Data)

	// block-12 = block-21^T, accumulated on the scatter view then made
	// consistent across shared copies
	w.Zero()
	for i2 := 0; i2 < sys.X2Size; i2++ {
		xv := x2[i2]
		if xv == 0 {
			continue
		}
		for jj := sys.M21Idx[i2]; jj < sys.M21Idx[i2+1]; jj++ {
			id3 := 3 * sys.M21Ids[jj]
			w.Data[id3] += sys.M21Vals[3*jj] * xv
			w.Data[id3+1] += sys.M21Vals[3*jj+1] * xv
			w.Data[id3+2] += sys.M21Vals[3*jj+2] * xv
		}
	}
	w.InterfaceSum()
	floats.Add(mx[:n1], w.Data)

	// block-21 contraction
	for i2 := 0; i2 < sys.X2Size; i2++ {
		sum := 0.
		for jj := sys.M21Idx[i2]; jj < sys.M21Idx[i2+1]; jj++ {
			id3 := 3 * sys.M21Ids[jj]
			sum += sys.M21Vals[3*jj]*x1[id3] +
				sys.M21Vals[3*jj+1]*x1[id3+1] +
				sys.M21Vals[3*jj+2]*x1[id3+2]
		}
		mx[o2+i2] = sum
	}
}

// Residual computes r = b - M.x and returns its global norm.
func (sys *System) Residual(x, r []float64) float64 {
	sys.MatVec(x, r)
	for i, b1 := range sys.RHS1[:sys.X1Size] {
		r[i] = b1 - r[i]
	}
	o2 := sys.MaxX1Size
	for i, b2 := range sys.RHS2[:sys.X2Size] {
		r[o2+i] = b2 - r[o2+i]
	}
	return sys.Norm(r)
}

// Dot is the global inner product over the unified layout: shared x1 DOFs
// are counted once through the range set's gather view.
func (sys *System) Dot(a, b []float64) float64 {
	var (
		o2 = sys.MaxX1Size
		dp = sys.RSet.DotGather(a[:sys.X1Size], b[:sys.X1Size])
		d2 = floats.Dot(a[o2:o2+sys.X2Size], b[o2:o2+sys.X2Size])
	)
	if sys.Comm.Size() > 1 {
		d2 = sys.Comm.AllreduceSum(d2)
	}
	return dp + d2
}

// Norm is the global Euclidean norm over the unified layout.
func (sys *System) Norm(a []float64) float64 {
	return math.Sqrt(sys.Dot(a, a))
}

// RHSNorm returns the global norm of the combined right-hand side, the
// default residual normalization.
func (sys *System) RHSNorm() float64 {
	b := make([]float64, sys.Size())
	copy(b[:sys.X1Size], sys.RHS1)
	copy(b[sys.MaxX1Size:], sys.RHS2[:sys.X2Size])
	return sys.Norm(b)
}
