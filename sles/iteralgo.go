package sles

import (
	"fmt"
	"math"
)

// ConvergenceState is the status of an iterative algorithm.
type ConvergenceState uint8

const (
	Iterating ConvergenceState = iota
	Converged
	MaxIteration
	Diverged
	Breakdown
)

var cvgStateNames = map[ConvergenceState]string{
	Iterating:    "iterating",
	Converged:    "converged",
	MaxIteration: "max-iteration",
	Diverged:     "diverged",
	Breakdown:    "breakdown",
}

func (s ConvergenceState) String() string { return cvgStateNames[s] }

const bigResidual = 1e30

// IterAlgo carries the convergence bookkeeping of an outer iterative
// algorithm, possibly wrapping inner solves whose iteration counts are
// accumulated for monitoring.
type IterAlgo struct {
	Verbosity int

	NMaxIter int
	Atol     float64
	Rtol     float64
	Dtol     float64 // divergence factor on the residual growth; unused if <= 0

	Cvg  ConvergenceState
	Res  float64 // current residual
	Res0 float64 // initial residual
	Tol  float64 // max(atol, rtol*res0), computed at each test

	NIter         int // outer iterations
	NInnerIter    int // cumulated inner iterations
	LastInnerIter int

	prevRes float64 // residual at the previous UpdateResidual call
}

// NewIterAlgo creates the convergence bookkeeping for an iterative
// algorithm.
func NewIterAlgo(verbosity, nMaxIter int, atol, rtol, dtol float64) (ia *IterAlgo) {
	ia = &IterAlgo{
		Verbosity: verbosity,
		NMaxIter:  nMaxIter,
		Atol:      atol,
		Rtol:      rtol,
		Dtol:      dtol,
	}
	ia.Reset()
	return
}

// Reset prepares the state for a new solve.
func (ia *IterAlgo) Reset() {
	ia.Cvg = Iterating
	ia.Res = bigResidual
	ia.prevRes = bigResidual
	ia.NIter = 0
	ia.NInnerIter = 0
	ia.LastInnerIter = 0
}

// SetInitialResidual records the residual of the initial guess, from which
// the relative tolerance is derived.
func (ia *IterAlgo) SetInitialResidual(res0 float64) {
	ia.Res0 = res0
	ia.Res = res0
}

// AddInnerIterations accumulates the iteration count of an inner solve.
func (ia *IterAlgo) AddInnerIterations(n int) {
	ia.LastInnerIter = n
	ia.NInnerIter += n
}

// CvgTest advances the state machine by one outer iteration: the iteration
// counter is incremented, the tolerance recomputed, and the state set to
// Converged, MaxIteration, Diverged or left Iterating. The divergence test
// compares the residual against Dtol times its previous value.
func (ia *IterAlgo) CvgTest() ConvergenceState {
	ia.NIter++

	ia.Tol = math.Max(ia.Rtol*ia.Res0, ia.Atol)

	switch {
	case ia.Res < ia.Tol:
		ia.Cvg = Converged
	case ia.NIter >= ia.NMaxIter:
		ia.Cvg = MaxIteration
	case ia.Dtol > 0 && ia.Res > ia.Dtol*ia.prevRes:
		ia.Cvg = Diverged
	default:
		ia.Cvg = Iterating
	}

	if ia.Verbosity > 0 {
		fmt.Printf("<Krylov.It%02d> res %5.3e | %4d %6d %s | fit.eps %5.3e\n",
			ia.NIter, ia.Res, ia.LastInnerIter, ia.NInnerIter, ia.Cvg, ia.Tol)
	}
	return ia.Cvg
}

// UpdateResidual sets the residual used by the next CvgTest, keeping the
// previous value for the divergence test.
func (ia *IterAlgo) UpdateResidual(res float64) {
	ia.prevRes = ia.Res
	ia.Res = res
}
