package saddle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowsolve/gosles/native"
	"github.com/flowsolve/gosles/parallel"
	"github.com/flowsolve/gosles/sles"
	"github.com/flowsolve/gosles/sparse"
	"github.com/flowsolve/gosles/utils"
)

// channelSystem builds a small channel-flow saddle system with a known
// solution: nc pressure cells, nc+1 velocity faces with 3 components.
func channelSystem(nc int) (sys *System, xExact []float64) {
	var (
		nf     = nc + 1
		x1Size = 3 * nf
	)
	var (
		diag  = make([]float64, x1Size)
		edgeI []int
		edgeJ []int
		ev    []float64
	)
	for i := range diag {
		diag[i] = 4
	}
	for f := 0; f < nf-1; f++ {
		for k := 0; k < 3; k++ {
			edgeI = append(edgeI, 3*f+k)
			edgeJ = append(edgeJ, 3*(f+1)+k)
			ev = append(ev, -1)
		}
	}
	m11 := sparse.NewNative(x1Size, sparse.FillScalarSym, diag, edgeI, edgeJ, ev)

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

	sys = &System{
		Name:      "test-channel",
		M11:       m11,
		M21Idx:    idx,
		M21Ids:    ids,
		M21Vals:   bv,
		X1Size:    x1Size,
		X2Size:    nc,
		MaxX1Size: x1Size,
		Comm:      parallel.SelfComm{},
	}
	sys.RSet = parallel.IdentityRangeSet(x1Size, sys.Comm)

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

func TestMatVecSymmetry(t *testing.T) {
	sys, _ := channelSystem(6)
	var (
		n  = sys.Size()
		a  = make([]float64, n)
		b  = make([]float64, n)
		ma = make([]float64, n)
		mb = make([]float64, n)
	)
	for i := 0; i < n; i++ {
		a[i] = math.Sin(float64(i))
		b[i] = math.Cos(float64(2 * i))
	}
	sys.MatVec(a, ma)
	sys.MatVec(b, mb)
	// <Ma, b> == <a, Mb> for the symmetric block operator
	assert.InDelta(t, sys.Dot(ma, b), sys.Dot(a, mb), 1.e-10)
}

func TestMINRESConvergence(t *testing.T) {
	cvg := sles.CvgParam{NMaxIter: 1000, Atol: 1.e-14, Rtol: 1.e-10, Dtol: 0}

	{ // unpreconditioned
		sys, xExact := channelSystem(20)
		x := make([]float64, sys.Size())
		res := Solve(sys, nil, Options{Cvg: cvg}, x)
		assert.Equal(t, sles.Converged, res.State)
		assert.True(t, res.NIter < cvg.NMaxIter)
		assert.False(t, utils.IsNan(x))
		for i := range x {
			assert.InDelta(t, xExact[i], x[i], 1.e-6)
		}
	}
	{ // block-diagonal preconditioning with an inner CG on block-11
		sysB, xExact := channelSystem(20)
		slesp := sles.Create(0, "m11")
		slesp.Solver = sles.SolverCG
		slesp.Cvg.Rtol = 1.e-8
		slesp.Cvg.NMaxIter = 200
		inner := native.New(slesp, nil)
		assert.NoError(t, inner.Setup(slesp, sysB.M11))

		pc := &BlockPrecond{M11Solver: inner, M11Rtol: 1.e-8}
		xB := make([]float64, sysB.Size())
		res := Solve(sysB, pc, Options{Cvg: cvg}, xB)
		assert.Equal(t, sles.Converged, res.State)
		assert.True(t, res.NInnerIter > 0)
		for i := range xB {
			assert.InDelta(t, xExact[i], xB[i], 1.e-6)
		}
	}
	{ // the true-residual safeguard does not break convergence
		sys, xExact := channelSystem(12)
		x := make([]float64, sys.Size())
		res := Solve(sys, nil, Options{Cvg: cvg, TrueResEvery: 5}, x)
		assert.Equal(t, sles.Converged, res.State)
		for i := range x {
			assert.InDelta(t, xExact[i], x[i], 1.e-6)
		}
	}
	{ // mass-diagonal scaling path
		sys, xExact := channelSystem(12)
		mass := make([]float64, sys.X2Size)
		for i := range mass {
			mass[i] = 1
		}
		pc := &BlockPrecond{MassDiag: mass}
		x := make([]float64, sys.Size())
		res := Solve(sys, pc, Options{Cvg: cvg}, x)
		assert.Equal(t, sles.Converged, res.State)
		for i := range x {
			assert.InDelta(t, xExact[i], x[i], 1.e-6)
		}
	}
}

func TestMINRESZeroRHS(t *testing.T) {
	sys, _ := channelSystem(5)
	for i := range sys.RHS1 {
		sys.RHS1[i] = 0
	}
	for i := range sys.RHS2 {
		sys.RHS2[i] = 0
	}
	x := make([]float64, sys.Size())
	res := Solve(sys, nil, Options{
		Cvg: sles.CvgParam{NMaxIter: 10, Atol: 1.e-14, Rtol: 1.e-10},
	}, x)
	assert.Equal(t, sles.Converged, res.State)
	assert.Equal(t, 0, res.NIter)
}

func TestSaddleCheck(t *testing.T) {
	sys, xExact := channelSystem(8)
	res1, res2 := Check(sys, xExact)
	assert.InDelta(t, 0, res1, 1.e-10)
	assert.InDelta(t, 0, res2, 1.e-10)
}

func TestPaddedLayout(t *testing.T) {
	// a padded x1 block must behave identically to the tight layout
	sysT, xT := channelSystem(10)

	sysP, _ := channelSystem(10)
	pad := 7
	sysP.MaxX1Size = sysP.X1Size + pad

	cvg := sles.CvgParam{NMaxIter: 1000, Atol: 1.e-14, Rtol: 1.e-10}
	var (
		xa = make([]float64, sysT.Size())
		xb = make([]float64, sysP.Size())
	)
	ra := Solve(sysT, nil, Options{Cvg: cvg}, xa)
	rb := Solve(sysP, nil, Options{Cvg: cvg}, xb)
	assert.Equal(t, sles.Converged, ra.State)
	assert.Equal(t, sles.Converged, rb.State)

	for i := 0; i < sysT.X1Size; i++ {
		assert.InDelta(t, xT[i], xb[i], 1.e-6)
	}
	for i := 0; i < sysT.X2Size; i++ {
		assert.InDelta(t, xT[sysT.X1Size+i], xb[sysP.MaxX1Size+i], 1.e-6)
	}
}
