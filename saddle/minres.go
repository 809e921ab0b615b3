package saddle

import (
	"fmt"
	"math"

	"github.com/flowsolve/gosles/sles"
)

// Options configures one saddle solve.
type Options struct {
	Verbosity int
	Cvg       sles.CvgParam

	// TrueResEvery > 0 recomputes the true residual every that many
	// iterations, replacing the recurrence estimate. The recurrence can
	// drift from the true residual under ill-conditioning; the safeguard
	// is off by default since it costs one extra operator application.
	TrueResEvery int
}

// Result reports the outcome of a saddle solve.
type Result struct {
	NIter      int
	NInnerIter int
	Residual   float64
	Residual0  float64
	State      sles.ConvergenceState
}

// Solve runs the block-preconditioned MINRES on sys, updating x in place.
// x uses the unified layout (x1 in [0, X1Size), x2 at offset MaxX1Size).
// pc may be nil for an unpreconditioned solve. Convergence non-achievement
// (max-iteration, diverged) is reported in the result state, not as an
// error; a numerical precondition violation inside the recurrence panics.
func Solve(sys *System, pc *BlockPrecond, opt Options, x []float64) (res Result) {
	sys.Validate()
	if pc == nil {
		pc = &BlockPrecond{}
	}

	var (
		ssize = sys.Size()
		v     = make([]float64, ssize)
		vold  = make([]float64, ssize)
		w     = make([]float64, ssize)
		wold  = make([]float64, ssize)
		z     = make([]float64, ssize)
		zold  = make([]float64, ssize)
		mz    = make([]float64, ssize)
	)

	ia := sles.NewIterAlgo(opt.Verbosity, opt.Cvg.NMaxIter, opt.Cvg.Atol,
		opt.Cvg.Rtol, opt.Cvg.Dtol)

	// v <- b - M.x, z <- P^{-1}.v
	res0 := sys.Residual(x, v)
	ia.AddInnerIterations(pc.Apply(sys, v, z))

	var (
		dp      = sys.Dot(v, z)
		beta    = math.Sqrt(math.Abs(dp))
		betaold = 1.
		eta     = beta
		c, cold = 1., 1.
		s, sold = 0., 0.
	)

	// The residual recurrence starts from the true residual norm; beta only
	// coincides with it under identity preconditioning.
	ia.SetInitialResidual(res0)
	res.Residual0 = res0
	if res0 == 0 {
		ia.Cvg = sles.Converged
		res.State = sles.Converged
		return
	}

	residual := res0

	for ia.Cvg == sles.Iterating {
		if !(math.Abs(beta) > 0) {
			panic(fmt.Sprintf("saddle system %q: Lanczos coefficient beta = %g at iteration %d",
				sys.Name, beta, ia.NIter))
		}
		ibeta := 1. / beta
		for i := range z {
			z[i] *= ibeta
		}

		sys.MatVec(z, mz)
		alpha := sys.Dot(z, mz)

		// three-term Lanczos recurrence for the Krylov vector
		a1 := alpha * ibeta
		a2 := beta / betaold
		for i := range v {
			t := mz[i] - a1*v[i] - a2*vold[i]
			vold[i] = v[i]
			v[i] = t
		}

		copy(zold, z)
		ia.AddInnerIterations(pc.Apply(sys, v, z))

		betaold = beta
		beta = math.Sqrt(math.Abs(sys.Dot(v, z)))

		// Givens rotation keeping the recurrence upper-triangular
		rho0 := c*alpha - cold*s*betaold
		rho1 := math.Sqrt(rho0*rho0 + beta*beta)
		if !(rho1 > 0) {
			panic(fmt.Sprintf("saddle system %q: rotation normalizer rho1 = %g at iteration %d",
				sys.Name, rho1, ia.NIter))
		}
		rho2 := s*alpha + cold*c*betaold
		rho3 := sold * betaold
		cold, sold = c, s
		c, s = rho0/rho1, beta/rho1

		irho1 := 1. / rho1
		for i := range w {
			t := (zold[i] - rho2*w[i] - rho3*wold[i]) * irho1
			wold[i] = w[i]
			w[i] = t
		}

		ceta := c * eta
		for i := 0; i < sys.X1Size; i++ {
			x[i] += ceta * w[i]
		}
		for i := sys.MaxX1Size; i < ssize; i++ {
			x[i] += ceta * w[i]
		}

		residual *= math.Abs(s)
		eta = -s * eta

		if opt.TrueResEvery > 0 && (ia.NIter+1)%opt.TrueResEvery == 0 {
			residual = sys.Residual(x, mz)
		}

		ia.UpdateResidual(residual)
		ia.CvgTest()
	}

	res.NIter = ia.NIter
	res.NInnerIter = ia.NInnerIter
	res.Residual = ia.Res
	res.State = ia.Cvg
	return
}

// Check prints the true per-block residual norms of a candidate solution, a
// diagnostic for the recurrence-based residual estimate.
func Check(sys *System, x []float64) (res1, res2 float64) {
	sys.Validate()
	r := make([]float64, sys.Size())
	sys.Residual(x, r)

	res1 = math.Sqrt(sys.RSet.DotGather(r[:sys.X1Size], r[:sys.X1Size]))
	var (
		o2 = sys.MaxX1Size
		d2 = 0.
	)
	for _, ri := range r[o2 : o2+sys.X2Size] {
		d2 += ri * ri
	}
	if sys.Comm.Size() > 1 {
		d2 = sys.Comm.AllreduceSum(d2)
	}
	res2 = math.Sqrt(d2)

	fmt.Printf("# %s | saddle check: ||r1|| %5.3e, ||r2|| %5.3e\n",
		sys.Name, res1, res2)
	return
}
