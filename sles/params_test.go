package sles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateDefaults(t *testing.T) {
	slesp := Create(3, "pressure")
	assert.Equal(t, "pressure", slesp.Name)
	assert.Equal(t, 3, slesp.FieldID)
	assert.Equal(t, ClassSaturne, slesp.Class)
	assert.Equal(t, SolverGCR, slesp.Solver)
	assert.Equal(t, 15, slesp.Restart)
	assert.Equal(t, PrecondDiag, slesp.Precond)
	assert.Equal(t, ResnormFilteredRHS, slesp.Resnorm)
	assert.Equal(t, 10000, slesp.Cvg.NMaxIter)
	assert.Equal(t, 1.e-15, slesp.Cvg.Atol)
	assert.Equal(t, 1.e-6, slesp.Cvg.Rtol)
	assert.Equal(t, 1.e3, slesp.Cvg.Dtol)
	assert.Nil(t, slesp.Context)
}

func TestCopyFrom(t *testing.T) {
	{ // scalar fields and matching context are deep-copied
		src := Create(0, "momentum")
		src.Solver = SolverMUMPS
		src.Verbosity = 2
		src.Cvg.Rtol = 1.e-9
		src.SetDirect(&DirectOpts{Facto: FactoLDLTSPD, MemCoef: 35})

		dst := Create(1, "momentum_copy")
		dst.CopyFrom(src)

		assert.Equal(t, "momentum_copy", dst.Name) // identity is preserved
		assert.Equal(t, 1, dst.FieldID)
		assert.Equal(t, SolverMUMPS, dst.Solver)
		assert.Equal(t, 2, dst.Verbosity)
		assert.Equal(t, 1.e-9, dst.Cvg.Rtol)

		opts, ok := dst.Context.(*DirectOpts)
		assert.True(t, ok)
		assert.Equal(t, FactoLDLTSPD, opts.Facto)
		assert.Equal(t, 35., opts.MemCoef)
		// deep copy, not aliased
		opts.MemCoef = 99
		assert.Equal(t, 35., src.Context.(*DirectOpts).MemCoef)
	}
	{ // a context that does not match the destination choice is not copied
		src := Create(0, "a")
		src.Solver = SolverMUMPS
		src.SetDirect(nil)

		dst := Create(1, "b")
		dst.CopyFrom(src)
		assert.Equal(t, SolverMUMPS, dst.Solver)
		dst2 := Create(2, "c")
		src.Solver = SolverCG // now the direct context is orphaned in src
		src.Precond = PrecondDiag
		dst2.CopyFrom(src)
		assert.Nil(t, dst2.Context)
	}
	{ // Boomer context follows only a Boomer AMG destination
		src := Create(0, "p")
		src.Precond = PrecondAMG
		src.SetBoomerAMG(AMGBoomerV, nil)

		dst := Create(1, "p2")
		dst.CopyFrom(src)
		opts, ok := dst.Context.(*BoomerOpts)
		assert.True(t, ok)
		assert.Equal(t, BoomerCoarsenHMIS, opts.CoarsenAlgo)
		opts.MaxLevels = 3
		assert.Equal(t, 25, src.Context.(*BoomerOpts).MaxLevels)
	}
}

func TestCheckSettings(t *testing.T) {
	{ // restart too small is fatal
		slesp := Create(0, "p")
		slesp.Solver = SolverGMRES
		slesp.Restart = 1
		assert.Panics(t, func() { slesp.CheckSettings() })
	}
	{ // MUMPS class without a direct solver is inconsistent
		slesp := Create(0, "p")
		slesp.Class = ClassMUMPS
		slesp.Solver = SolverCG
		assert.Panics(t, func() { slesp.CheckSettings() })
	}
	{ // valid defaults pass
		slesp := Create(0, "p")
		assert.NotPanics(t, func() { slesp.CheckSettings() })
	}
	{ // mismatched context is fatal
		slesp := Create(0, "p")
		slesp.Context = DefaultDirectOpts()
		assert.Panics(t, func() { slesp.CheckSettings() })
	}
}

func TestCheckClass(t *testing.T) {
	defer func() {
		SetClassAvailable(ClassPETSc, false)
		SetClassAvailable(ClassHYPRE, false)
		SetPETScBridges(false, false)
	}()

	{ // the in-house class is always available
		assert.Equal(t, ClassSaturne, CheckClass(ClassSaturne))
	}
	{ // HYPRE unavailable, no PETSc: sentinel
		assert.Equal(t, NClasses, CheckClass(ClassHYPRE))
	}
	{ // HYPRE reachable through a PETSc built with HYPRE support
		SetClassAvailable(ClassPETSc, true)
		SetPETScBridges(true, false)
		assert.Equal(t, ClassHYPRE, CheckClass(ClassHYPRE))
	}
	{ // PETSc without HYPRE support substitutes PETSc itself
		SetPETScBridges(false, false)
		assert.Equal(t, ClassPETSc, CheckClass(ClassHYPRE))
	}
	{ // MUMPS reachable only through PETSc
		SetPETScBridges(false, true)
		assert.Equal(t, ClassPETSc, CheckClass(ClassMUMPS))
		SetPETScBridges(false, false)
		assert.Equal(t, NClasses, CheckClass(ClassMUMPS))
	}
}

func TestCheckAMG(t *testing.T) {
	defer func() {
		SetClassAvailable(ClassPETSc, false)
		SetPETScBridges(false, false)
	}()
	SetClassAvailable(ClassPETSc, true)

	{ // BoomerAMG without HYPRE support falls back to GAMG, dropping the
		// Boomer sub-parameters
		slesp := Create(0, "p")
		slesp.Class = ClassPETSc
		slesp.Precond = PrecondAMG
		slesp.SetBoomerAMG(AMGBoomerV, nil)
		slesp.CheckAMG()
		assert.Equal(t, AMGPETScGAMGV, slesp.AMGType)
		assert.Nil(t, slesp.Context)
	}
	{ // in-house AMG type under PETSc becomes GAMG
		slesp := Create(0, "p")
		slesp.Class = ClassPETSc
		slesp.Solver = SolverAMG
		slesp.AMGType = AMGHouseK
		slesp.CheckAMG()
		assert.Equal(t, AMGPETScGAMGV, slesp.AMGType)
	}
	{ // external AMG type under the in-house class becomes the K-cycle
		slesp := Create(0, "p")
		slesp.Precond = PrecondAMG
		slesp.AMGType = AMGPETScGAMGW
		slesp.CheckAMG()
		assert.Equal(t, AMGHouseK, slesp.AMGType)
	}
}
