package saddle

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/flowsolve/gosles/dispatch"
	"github.com/flowsolve/gosles/sles"
)

// BlockPrecond is the block-diagonal preconditioner of the saddle solver:
// an optional inner solve on block-11 and a Schur-complement approximation
// on block-22, scaled by a diagonal mass-like factor. Either part defaults
// to the identity when not configured. Lifetime is one outer solve.
type BlockPrecond struct {
	// M11Solver approximately inverts block-11 on the gather view. Nil
	// means identity.
	M11Solver dispatch.Solver
	M11Rtol   float64

	// SchurSolver approximately inverts the Schur-complement surrogate.
	// Nil means the diagonal scaling alone.
	SchurSolver  dispatch.Solver
	SchurRtol    float64
	SchurScaling float64
	// MassDiag is the diagonal mass-like factor applied to the block-22
	// residual. Nil means identity.
	MassDiag []float64

	gbuf []float64 // gather-view scratch for the block-11 solve
}

// Apply computes z = P^{-1}.r on the unified layout and returns the number
// of inner iterations spent in the sub-solves.
func (pc *BlockPrecond) Apply(sys *System, r, z []float64) (nInner int) {
	var (
		n1 = sys.X1Size
		o2 = sys.MaxX1Size
		r2 = r[o2 : o2+sys.X2Size]
		z2 = z[o2 : o2+sys.X2Size]
	)

	// block-11
	if pc.M11Solver == nil {
		copy(z[:n1], r[:n1])
	} else {
		nG := sys.RSet.NGather()
		if len(pc.gbuf) < nG {
			pc.gbuf = make([]float64, nG)
		}
		g := pc.gbuf[:nG]
		copy(z[:n1], r[:n1])
		sys.RSet.Gather(1, z[:n1])
		copy(g, z[:nG])

		rhsNorm := floats.Dot(g, g)
		if sys.Comm.Size() > 1 {
			rhsNorm = sys.Comm.AllreduceSum(rhsNorm)
		}
		rhsNorm = math.Sqrt(rhsNorm)
		for i := range z[:nG] {
			z[i] = 0
		}
		ni, _, state := pc.M11Solver.Solve(pc.M11Rtol, rhsNorm, g, z[:nG])
		if state == sles.Breakdown {
			// fall back to the unpreconditioned direction
			copy(z[:nG], g)
		}
		nInner += ni
		sys.RSet.Scatter(1, z[:n1])
	}

	// block-22: Schur approximation then mass scaling
	if pc.SchurSolver != nil {
		for i := range z2 {
			z2[i] = 0
		}
		ni, _, state := pc.SchurSolver.Solve(pc.SchurRtol, 1, r2, z2)
		if state == sles.Breakdown {
			copy(z2, r2)
		}
		nInner += ni
		scale := pc.SchurScaling
		if scale == 0 {
			scale = 1
		}
		if pc.MassDiag != nil {
			for i := range z2 {
				z2[i] = scale*z2[i] + pc.MassDiag[i]*r2[i]
			}
		} else {
			for i := range z2 {
				z2[i] = scale * z2[i]
			}
		}
	} else if pc.MassDiag != nil {
		for i := range z2 {
			z2[i] = pc.MassDiag[i] * r2[i]
		}
	} else {
		copy(z2, r2)
	}
	return
}
