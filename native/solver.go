package native

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/flowsolve/gosles/parallel"
	"github.com/flowsolve/gosles/sles"
	"github.com/flowsolve/gosles/sparse"
)

// Solver is a configured in-house solver bound to one linear system. It is
// built once from the system's settings, set up against a matrix, and then
// driven through Solve, possibly many times with evolving tolerances.
type Solver struct {
	name     string
	algo     sles.SolverType
	restart  int
	flexible bool
	cvg      sles.CvgParam

	verbosity int

	m    *sparse.Matrix
	pc   Preconditioner
	comm parallel.Comm

	direct *directSolver // only for the direct algorithm
}

// New builds a solver from validated settings. The matrix is attached later
// by Setup, which also builds the preconditioner.
func New(slesp *sles.Params, comm parallel.Comm) (s *Solver) {
	if comm == nil {
		comm = parallel.SelfComm{}
	}
	s = &Solver{
		name:      slesp.Name,
		algo:      slesp.Solver,
		restart:   slesp.Restart,
		flexible:  slesp.Flexible || slesp.Solver == sles.SolverFGMRES,
		cvg:       slesp.Cvg,
		verbosity: slesp.Verbosity,
		comm:      comm,
	}
	switch s.algo {
	case sles.SolverCG, sles.SolverGCR, sles.SolverGMRES, sles.SolverFGMRES,
		sles.SolverJacobi, sles.SolverMUMPS:
	default:
		panic(fmt.Sprintf("system %q: solver %s is not provided by the in-house family",
			slesp.Name, s.algo.Name()))
	}
	if s.algo == sles.SolverMUMPS {
		opts, _ := slesp.Context.(*sles.DirectOpts)
		s.direct = newDirectSolver(opts)
		return
	}
	return
}

// Setup binds the solver to a matrix and builds the preconditioner or, for
// the direct algorithm, the factorization.
func (s *Solver) Setup(slesp *sles.Params, m *sparse.Matrix) (err error) {
	s.m = m
	if s.direct != nil {
		err = s.direct.Factorize(m)
		return
	}
	s.pc = newPreconditioner(slesp, m)
	return
}

// SetConvergenceCriteria refreshes the stopping thresholds without touching
// the preconditioner stack.
func (s *Solver) SetConvergenceCriteria(rtol, atol, dtol float64, nMaxIter int) {
	s.cvg.Rtol = rtol
	s.cvg.Atol = atol
	s.cvg.Dtol = dtol
	s.cvg.NMaxIter = nMaxIter
}

// SetRestartInterval retunes the restart window of a live restarted method
// (GCR, GMRES variants). Intervals below 2 are ignored; the other
// algorithms never read the interval.
func (s *Solver) SetRestartInterval(restart int) {
	if restart >= 2 {
		s.restart = restart
	}
}

// RestartInterval reports the active restart window.
func (s *Solver) RestartInterval() int { return s.restart }

// Solve runs the configured algorithm on b, updating x in place. rtol
// overrides the stored relative tolerance for this call; rhsNorm is the
// residual normalization (1 disables normalization). It returns the
// iteration count, the final normalized residual and the convergence state.
func (s *Solver) Solve(rtol, rhsNorm float64, b, x []float64) (nIter int, resNorm float64, state sles.ConvergenceState) {
	if s.m == nil && s.direct == nil {
		panic(fmt.Sprintf("system %q: Solve called before Setup", s.name))
	}
	if rhsNorm <= 0 {
		rhsNorm = 1
	}

	if s.direct != nil {
		err := s.direct.Solve(b, x)
		if err != nil {
			return 0, math.Inf(1), sles.Breakdown
		}
		return 1, 0, sles.Converged
	}

	ia := sles.NewIterAlgo(s.verbosity-1, s.cvg.NMaxIter, s.cvg.Atol, rtol,
		s.cvg.Dtol)

	switch s.algo {
	case sles.SolverCG:
		s.cg(ia, rhsNorm, b, x)
	case sles.SolverGCR:
		s.gcr(ia, rhsNorm, b, x)
	case sles.SolverGMRES, sles.SolverFGMRES:
		s.gmres(ia, rhsNorm, b, x)
	case sles.SolverJacobi:
		s.jacobi(ia, rhsNorm, b, x)
	}

	if s.verbosity > 0 {
		fmt.Printf("# %s | %s: %d iterations, residual %5.3e (%s)\n",
			s.name, s.algo.Name(), ia.NIter, ia.Res, ia.Cvg)
	}
	return ia.NIter, ia.Res, ia.Cvg
}

// dot is a global inner product: local dot plus an all-reduce when the
// vector is partitioned across ranks.
func (s *Solver) dot(a, b []float64) float64 {
	d := floats.Dot(a, b)
	if s.comm.Size() > 1 {
		d = s.comm.AllreduceSum(d)
	}
	return d
}

func (s *Solver) norm(a []float64) float64 {
	return math.Sqrt(s.dot(a, a))
}

// residual computes r = b - A.x and returns its global norm.
func (s *Solver) residual(b, x, r []float64) float64 {
	s.m.VectorMultiply(x, r)
	for i := range r {
		r[i] = b[i] - r[i]
	}
	return s.norm(r)
}
