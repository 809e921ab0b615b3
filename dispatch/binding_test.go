package dispatch_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowsolve/gosles/dispatch"
	"github.com/flowsolve/gosles/model_problems"
	"github.com/flowsolve/gosles/native"
	"github.com/flowsolve/gosles/sles"
)

// twoRankComm reports a two-rank world but runs alone; reductions are
// identities. Enough to trigger the rank-count-dependent substitutions.
type twoRankComm struct{}

func (twoRankComm) Rank() int                      { return 0 }
func (twoRankComm) Size() int                      { return 2 }
func (twoRankComm) AllreduceSum(v float64) float64 { return v }
func (twoRankComm) AllreduceMax(v float64) float64 { return v }
func (twoRankComm) AllreduceSumSlice(v []float64)  {}
func (twoRankComm) AllreduceMaxSlice(v []float64)  {}

func TestLayeredSettings(t *testing.T) {
	defer dispatch.Clear()
	defer dispatch.SetUserHook(nil)

	{ // explicit overrides beat the defaults, hook beats overrides
		dispatch.SetUserHook(func(slesp *sles.Params) {
			slesp.Cvg.NMaxIter = 123
		})
		bd := dispatch.Define(-1, "layered", 1)
		err := bd.Finalize(map[string]string{
			"solver":   "cg",
			"precond":  "poly1",
			"rtol":     "1e-9",
			"max_iter": "50",
		})
		assert.NoError(t, err)
		assert.Equal(t, sles.SolverCG, bd.Params.Solver)
		assert.Equal(t, sles.PrecondPoly1, bd.Params.Precond)
		assert.Equal(t, 1.e-9, bd.Params.Cvg.Rtol)
		assert.Equal(t, 123, bd.Params.Cvg.NMaxIter) // hook wins
	}
	{ // the MUMPS recipe attaches direct sub-parameters
		dispatch.SetUserHook(nil)
		bd := dispatch.Define(-1, "direct", 1)
		bd.Params.Solver = sles.SolverMUMPS
		assert.NoError(t, bd.Finalize(nil))
		_, ok := bd.Params.Context.(*sles.DirectOpts)
		assert.True(t, ok)
		assert.Equal(t, sles.ClassMUMPS, bd.Params.Class)
	}
	{ // unknown keys are reported
		bd := dispatch.Define(-1, "typo", 1)
		assert.Error(t, bd.Finalize(map[string]string{"solvr": "cg"}))
	}
	{ // an unavailable family is fatal at configuration time, not at solve
		bd := dispatch.Define(-1, "no_petsc", 1)
		assert.Panics(t, func() {
			_ = bd.Finalize(map[string]string{"family": "petsc"})
		})
	}
}

func TestParallelPrecondSubstitution(t *testing.T) {
	defer dispatch.Clear()
	defer dispatch.SetDefaultComm(nil)

	{ // SSOR under two ranks becomes block-Jacobi SSOR, not an error
		dispatch.SetDefaultComm(twoRankComm{})
		bd := dispatch.Define(-1, "par_ssor", 1)
		assert.NoError(t, bd.Finalize(map[string]string{"precond": "ssor"}))
		assert.Equal(t, sles.PrecondBlockJacobiSSOR, bd.Params.Precond)
	}
	{ // ILU0 likewise
		bd := dispatch.Define(-1, "par_ilu", 1)
		assert.NoError(t, bd.Finalize(map[string]string{"precond": "ilu0"}))
		assert.Equal(t, sles.PrecondBlockJacobiILU0, bd.Params.Precond)
	}
	{ // on a single rank SSOR is kept
		dispatch.SetDefaultComm(nil)
		bd := dispatch.Define(-1, "ser_ssor", 1)
		assert.NoError(t, bd.Finalize(map[string]string{"precond": "ssor"}))
		assert.Equal(t, sles.PrecondSSOR, bd.Params.Precond)
	}
}

func TestSolveScalar(t *testing.T) {
	defer dispatch.Clear()

	m := model_problems.Poisson2DCSR(12, 12)
	bd := dispatch.Define(-1, "pressure", 1)
	assert.NoError(t, bd.Finalize(map[string]string{
		"solver": "gcr", "precond": "jacobi", "rtol": "1e-10",
	}))

	var (
		n = m.NRows()
		b = model_problems.RandomRHS(n, 7)
		x = make([]float64, n)
	)
	nIter, res, state, err := bd.Solve(m, 1, b, x)
	assert.NoError(t, err)
	assert.Equal(t, sles.Converged, state)
	assert.True(t, nIter > 0)
	assert.True(t, res < 1.e-8)
	assert.Equal(t, 1, bd.NSolves)

	// the solution satisfies the system
	r := make([]float64, n)
	m.VectorMultiply(x, r)
	rn := 0.
	for i := range r {
		d := b[i] - r[i]
		rn += d * d
	}
	assert.Less(t, math.Sqrt(rn), 1.e-6)
}

func TestSolveVectorSplit(t *testing.T) {
	defer dispatch.Clear()

	m := model_problems.Poisson2DCSR(8, 8)
	bd := dispatch.Define(-1, "velocity", 3)
	assert.NoError(t, bd.Finalize(map[string]string{
		"solver": "cg", "block_precond": "diag", "rtol": "1e-10",
	}))

	// per-component sub-systems share the convergence criteria
	sub := dispatch.Find("velocity").Sub()
	assert.Equal(t, 3, len(sub))
	assert.Equal(t, "velocity_x", sub[0].Params.Name)
	assert.Equal(t, "velocity_y", sub[1].Params.Name)
	assert.Equal(t, "velocity_z", sub[2].Params.Name)
	for _, sb := range sub {
		assert.Equal(t, 1.e-10, sb.Params.Cvg.Rtol)
		assert.Equal(t, sles.BlockPrecondNone, sb.Params.BlockPrecond)
	}

	var (
		n = m.NRows()
		b = model_problems.RandomRHS(3*n, 3)
		x = make([]float64, 3*n)
	)
	_, _, state, err := bd.Solve(m, 1, b, x)
	assert.NoError(t, err)
	assert.Equal(t, sles.Converged, state)

	// each interleaved component satisfies the shared operator
	var (
		bc = make([]float64, n)
		xc = make([]float64, n)
		r  = make([]float64, n)
	)
	for c := 0; c < 3; c++ {
		for i := 0; i < n; i++ {
			bc[i] = b[3*i+c]
			xc[i] = x[3*i+c]
		}
		m.VectorMultiply(xc, r)
		for i := range r {
			assert.InDelta(t, bc[i], r[i], 1.e-6)
		}
	}
}

func TestUpdateCvg(t *testing.T) {
	defer dispatch.Clear()

	m := model_problems.Poisson2DCSR(8, 8)
	bd := dispatch.Define(-1, "retune", 1)
	assert.NoError(t, bd.Finalize(map[string]string{"solver": "cg"}))

	var (
		n = m.NRows()
		b = model_problems.RandomRHS(n, 1)
		x = make([]float64, n)
	)
	_, _, _, err := bd.Solve(m, 1, b, x)
	assert.NoError(t, err)

	// tighten the cap without rebuilding; next solve hits max-iteration
	bd.UpdateCvg(sles.CvgParam{NMaxIter: 1, Atol: 1.e-15, Rtol: 1.e-14})
	for i := range x {
		x[i] = 0
	}
	nIter, _, state, err := bd.Solve(m, 1, b, x)
	assert.NoError(t, err)
	assert.Equal(t, sles.MaxIteration, state)
	assert.Equal(t, 1, nIter)
}

func TestUpdateCvgRestart(t *testing.T) {
	defer dispatch.Clear()

	m := model_problems.Poisson2DCSR(8, 8)
	bd := dispatch.Define(-1, "retune_restart", 1)
	assert.NoError(t, bd.Finalize(map[string]string{
		"solver": "gmres", "restart": "30",
	}))

	var (
		n = m.NRows()
		b = model_problems.RandomRHS(n, 2)
		x = make([]float64, n)
	)
	_, _, _, err := bd.Solve(m, 1, b, x)
	assert.NoError(t, err)
	assert.Equal(t, 30, bd.BackendSolver().(*native.Solver).RestartInterval())

	// a retuned restart window reaches the live solver without a rebuild
	bd.Params.Restart = 5
	bd.UpdateCvg(bd.Params.Cvg)
	assert.Equal(t, 5, bd.BackendSolver().(*native.Solver).RestartInterval())

	for i := range x {
		x[i] = 0
	}
	_, _, state, err := bd.Solve(m, 1, b, x)
	assert.NoError(t, err)
	assert.Equal(t, sles.Converged, state)
}

func TestSetupDoneLifecycle(t *testing.T) {
	defer dispatch.Clear()

	m := model_problems.Poisson2DCSR(6, 6)
	bd := dispatch.Define(-1, "lifecycle", 1)
	assert.NoError(t, bd.Finalize(map[string]string{"solver": "cg"}))
	assert.False(t, bd.Params.SetupDone)

	var (
		n = m.NRows()
		b = model_problems.RandomRHS(n, 4)
		x = make([]float64, n)
	)
	_, _, _, err := bd.Solve(m, 1, b, x)
	assert.NoError(t, err)
	assert.True(t, bd.Params.SetupDone)

	// changed coefficients force a re-setup at the next solve
	bd.MarkResetup()
	assert.False(t, bd.Params.SetupDone)
	_, _, _, err = bd.Solve(m, 1, b, x)
	assert.NoError(t, err)
	assert.True(t, bd.Params.SetupDone)
}
