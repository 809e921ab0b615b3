package model_problems

import (
	"github.com/flowsolve/gosles/parallel"
	"github.com/flowsolve/gosles/saddle"
	"github.com/flowsolve/gosles/sparse"
)

// Channel builds a 1D channel-flow saddle-point system: nc pressure cells
// and nc+1 velocity faces carrying 3 components each. Block-11 is an SPD
// face-coupling operator, block-21 the per-cell divergence over the face
// x-components. The returned exact solution uses the unified layout; the
// right-hand sides are assembled so the system solves exactly to it.
func Channel(nc int) (sys *saddle.System, xExact []float64) {
	var (
		nf     = nc + 1
		x1Size = 3 * nf
		comm   = parallel.SelfComm{}
	)

	// block-11: per-component diffusion between adjacent faces
	var (
		diag  = make([]float64, x1Size)
		edgeI []int
		edgeJ []int
		vals  []float64
	)
	for i := range diag {
		diag[i] = 4
	}
	for f := 0; f < nf-1; f++ {
		for k := 0; k < 3; k++ {
			edgeI = append(edgeI, 3*f+k)
			edgeJ = append(edgeJ, 3*(f+1)+k)
			vals = append(vals, -1)
		}
	}
	m11 := sparse.NewNative(x1Size, sparse.FillScalarSym, diag, edgeI, edgeJ, vals)

	// block-21: divergence of the face x-components over each cell
	var (
		idx = make([]int, nc+1)
		ids []int
		bv  []float64
	)
	for c := 0; c < nc; c++ {
		ids = append(ids, c, c+1)
		bv = append(bv, -1, 0, 0, 1, 0, 0)
		idx[c+1] = len(ids)
	}

	sys = &saddle.System{
		Name:      "channel",
		M11:       m11,
		RSet:      parallel.IdentityRangeSet(x1Size, comm),
		M21Idx:    idx,
		M21Ids:    ids,
		M21Vals:   bv,
		X1Size:    x1Size,
		X2Size:    nc,
		MaxX1Size: x1Size,
		Comm:      comm,
	}

	// exact solution: a smooth velocity ramp and alternating pressure
	xExact = make([]float64, sys.Size())
	for f := 0; f < nf; f++ {
		xExact[3*f] = 1 + 0.1*float64(f)
		xExact[3*f+1] = 0.5
		xExact[3*f+2] = -0.25
	}
	for c := 0; c < nc; c++ {
		xExact[x1Size+c] = float64(1 - 2*(c%2))
	}

	b := make([]float64, sys.Size())
	sys.RHS1 = make([]float64, x1Size)
	sys.RHS2 = make([]float64, nc)
	sys.MatVec(xExact, b)
	copy(sys.RHS1, b[:x1Size])
	copy(sys.RHS2, b[x1Size:])
	return
}
