package dispatch

import (
	"fmt"
	"sync"

	"github.com/flowsolve/gosles/parallel"
	"github.com/flowsolve/gosles/sles"
	"github.com/flowsolve/gosles/sparse"
)

// Binding ties one named linear system to its settings and, after the first
// setup, to a backend solver. Vector-field systems solved with diagonal
// block preconditioning carry one sub-binding per component, sharing the
// top-level convergence criteria.
type Binding struct {
	Params *sles.Params
	comm   parallel.Comm
	nComp  int

	solver    Solver
	sub       []*Binding
	finalized bool

	NSolves      int
	LastNIter    int
	LastResidual float64
}

var (
	bindingsMu sync.Mutex
	bindings   = map[string]*Binding{}

	defaultComm parallel.Comm = parallel.SelfComm{}
)

// SetDefaultComm sets the communicator given to bindings created afterwards.
func SetDefaultComm(c parallel.Comm) {
	if c == nil {
		c = parallel.SelfComm{}
	}
	defaultComm = c
}

// Define registers a linear system under a unique name with default
// settings. nComp is 1 for scalar fields, 3 for vector fields. Defining the
// same name twice returns the existing binding.
func Define(fieldID int, name string, nComp int) (bd *Binding) {
	bindingsMu.Lock()
	defer bindingsMu.Unlock()
	if bd = bindings[name]; bd != nil {
		return
	}
	if nComp < 1 {
		nComp = 1
	}
	bd = &Binding{
		Params: sles.Create(fieldID, name),
		comm:   defaultComm,
		nComp:  nComp,
	}
	bindings[name] = bd
	return
}

// Find returns the binding for a system name, or nil.
func Find(name string) *Binding {
	bindingsMu.Lock()
	defer bindingsMu.Unlock()
	return bindings[name]
}

// Clear drops all bindings. Test helper.
func Clear() {
	bindingsMu.Lock()
	defer bindingsMu.Unlock()
	bindings = map[string]*Binding{}
}

// Finalize runs the settings layering: the algorithm recipe, then the
// explicit overrides, then the user hook, which always has the last word.
// The result is validated and repaired (class substitution, parallel
// preconditioner substitution, AMG consistency) before any backend setup.
func (bd *Binding) Finalize(opts map[string]string) (err error) {
	slesp := bd.Params

	applyRecipe(slesp)
	if err = ApplyOptions(slesp, opts); err != nil {
		return
	}
	if userHook != nil {
		userHook(slesp)
	}

	slesp.CheckSettings()
	ret := sles.CheckClass(slesp.Class)
	if ret == sles.NClasses {
		panic(fmt.Sprintf("system %q: solver class %s is not available with this installation",
			slesp.Name, slesp.Class.Name()))
	}
	slesp.Class = ret
	slesp.CheckAMG()
	bd.substituteParallelPrecond()

	if bd.nComp > 1 && slesp.BlockPrecond == sles.BlockPrecondDiag {
		bd.splitComponents()
	}

	bd.finalized = true
	slesp.SetupDone = false
	if slesp.Verbosity > 1 {
		slesp.Log()
	}
	return
}

// substituteParallelPrecond replaces preconditioners whose couplings cross
// rank boundaries with their block-Jacobi restriction when running on more
// than one rank.
func (bd *Binding) substituteParallelPrecond() {
	if bd.comm.Size() < 2 {
		return
	}
	slesp := bd.Params
	switch slesp.Precond {
	case sles.PrecondSSOR:
		fmt.Printf("Warning: system %q: SSOR is rank-local only; switching to block-Jacobi (SSOR)\n",
			slesp.Name)
		slesp.Precond = sles.PrecondBlockJacobiSSOR
	case sles.PrecondICC0, sles.PrecondILU0:
		fmt.Printf("Warning: system %q: %s is rank-local only; switching to block-Jacobi (ILU0)\n",
			slesp.Name, slesp.Precond.Name())
		slesp.Precond = sles.PrecondBlockJacobiILU0
	}
}

// splitComponents creates the per-component sub-bindings of a vector field.
// Each sub-system copies the parent settings, drops the block
// preconditioning, and shares the parent convergence criteria.
func (bd *Binding) splitComponents() {
	var suffixes = [...]string{"_x", "_y", "_z"}

	bd.sub = make([]*Binding, bd.nComp)
	for c := 0; c < bd.nComp; c++ {
		suffix := fmt.Sprintf("_c%d", c)
		if c < len(suffixes) {
			suffix = suffixes[c]
		}
		sp := sles.Create(bd.Params.FieldID, bd.Params.Name+suffix)
		sp.CopyFrom(bd.Params)
		sp.BlockPrecond = sles.BlockPrecondNone
		sp.SetupDone = false
		bd.sub[c] = &Binding{
			Params:    sp,
			comm:      bd.comm,
			nComp:     1,
			finalized: true,
		}
	}
}

// setup builds (or rebuilds) the backend solver for the current matrix.
func (bd *Binding) setup(m *sparse.Matrix) (err error) {
	if !bd.finalized {
		if err = bd.Finalize(nil); err != nil {
			return
		}
	}
	if bd.sub != nil {
		for _, sb := range bd.sub {
			if err = sb.setup(m); err != nil {
				return
			}
		}
		bd.Params.SetupDone = true
		return
	}
	if bd.solver == nil {
		bd.solver = backendFor(bd.Params.Class).NewSolver(bd.Params, bd.comm)
	}
	if err = bd.solver.Setup(bd.Params, m); err != nil {
		return
	}
	bd.Params.SetupDone = true
	return
}

// MarkResetup forces a solver rebuild at the next Solve, to be called when
// the matrix coefficients change.
func (bd *Binding) MarkResetup() {
	bd.Params.SetupDone = false
	for _, sb := range bd.sub {
		sb.Params.SetupDone = false
	}
}

// Solve solves m.x = b for this system, normalizing residuals by rhsNorm
// (pass 0 or 1 to disable). Vector-field systems with per-component
// sub-bindings run one sub-solve per component against the shared operator;
// the reported iteration count and residual are the worst over components.
func (bd *Binding) Solve(m *sparse.Matrix, rhsNorm float64, b, x []float64) (nIter int, resNorm float64, state sles.ConvergenceState, err error) {
	if !bd.Params.SetupDone {
		if err = bd.setup(m); err != nil {
			return
		}
	}

	if bd.sub == nil {
		nIter, resNorm, state = bd.solver.Solve(bd.Params.Cvg.Rtol, rhsNorm, b, x)
	} else {
		nIter, resNorm, state, err = bd.solveSplit(m, rhsNorm, b, x)
		if err != nil {
			return
		}
	}

	bd.NSolves++
	bd.LastNIter = nIter
	bd.LastResidual = resNorm

	if state == sles.Breakdown {
		err = fmt.Errorf("system %q: solver breakdown after %d iterations (residual %g)",
			bd.Params.Name, nIter, resNorm)
	}
	return
}

// solveSplit de-interleaves the component-wise vectors, solves each
// component and re-interleaves the solution.
func (bd *Binding) solveSplit(m *sparse.Matrix, rhsNorm float64, b, x []float64) (nIter int, resNorm float64, state sles.ConvergenceState, err error) {
	var (
		nc = bd.nComp
		n  = len(b) / nc
		bc = make([]float64, n)
		xc = make([]float64, n)
	)
	state = sles.Converged
	for c := 0; c < nc; c++ {
		for i := 0; i < n; i++ {
			bc[i] = b[nc*i+c]
			xc[i] = x[nc*i+c]
		}
		ni, res, st, serr := bd.sub[c].Solve(m, rhsNorm, bc, xc)
		if serr != nil {
			err = serr
			return
		}
		for i := 0; i < n; i++ {
			x[nc*i+c] = xc[i]
		}
		if ni > nIter {
			nIter = ni
		}
		if res > resNorm {
			resNorm = res
		}
		if st > state {
			state = st
		}
	}
	return
}

// UpdateCvg retunes the convergence criteria of a live system, propagating
// to the per-component sub-systems, without rebuilding the solver. For
// restarted methods the current Params.Restart is pushed to the live solver
// as well, so a retuned restart window takes effect at the next Solve.
func (bd *Binding) UpdateCvg(cvg sles.CvgParam) {
	bd.Params.UpdateCvgSettings(cvg)
	if bd.solver != nil {
		bd.solver.SetConvergenceCriteria(cvg.Rtol, cvg.Atol, cvg.Dtol, cvg.NMaxIter)
		if bd.Params.Solver.IsRestarted() {
			if rs, ok := bd.solver.(interface{ SetRestartInterval(int) }); ok {
				rs.SetRestartInterval(bd.Params.Restart)
			}
		}
	}
	for _, sb := range bd.sub {
		sb.Params.Restart = bd.Params.Restart
		sb.UpdateCvg(cvg)
	}
}
