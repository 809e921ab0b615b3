// Package sles holds the per-equation configuration model for sparse linear
// equation solvers: solver family, algorithm, preconditioner, convergence
// thresholds and algorithm-specific sub-parameters, together with the
// convergence bookkeeping shared by the iterative algorithms.
package sles

import "fmt"

// Class identifies a family of solver implementations.
type Class uint8

const (
	ClassSaturne Class = iota // in-house solvers
	ClassHYPRE
	ClassMUMPS
	ClassPETSc
	NClasses // sentinel: no class available
)

var classNames = [NClasses]string{"saturne", "HYPRE", "MUMPS", "PETSc"}

func (c Class) Name() string {
	if c >= NClasses {
		return "none"
	}
	return classNames[c]
}

// SolverType enumerates the iterative and direct algorithms.
type SolverType uint8

const (
	SolverNone SolverType = iota
	SolverAMG
	SolverBiCGStab
	SolverCG
	SolverFCG
	SolverGaussSeidel
	SolverGCR
	SolverGMRES
	SolverFGMRES
	SolverJacobi
	SolverMINRES
	SolverMUMPS // sparse direct
	SolverSymGaussSeidel
	SolverUserDefined
)

var solverNames = map[SolverType]string{
	SolverNone:           "none",
	SolverAMG:            "AMG",
	SolverBiCGStab:       "BiCGStab",
	SolverCG:             "CG",
	SolverFCG:            "FCG",
	SolverGaussSeidel:    "Gauss-Seidel",
	SolverGCR:            "GCR",
	SolverGMRES:          "GMRES",
	SolverFGMRES:         "FGMRES",
	SolverJacobi:         "Jacobi",
	SolverMINRES:         "MINRES",
	SolverMUMPS:          "MUMPS",
	SolverSymGaussSeidel: "sym. Gauss-Seidel",
	SolverUserDefined:    "user-defined",
}

func (s SolverType) Name() string { return solverNames[s] }

// IsRestarted reports whether the solver builds a restarted Krylov subspace
// and therefore needs a valid restart interval.
func (s SolverType) IsRestarted() bool {
	return s == SolverGMRES || s == SolverFGMRES || s == SolverGCR
}

// PrecondType enumerates preconditioners.
type PrecondType uint8

const (
	PrecondNone PrecondType = iota
	PrecondDiag
	PrecondAMG
	PrecondBlockJacobiILU0
	PrecondBlockJacobiSSOR
	PrecondICC0
	PrecondILU0
	PrecondMUMPS
	PrecondPoly1
	PrecondPoly2
	PrecondSSOR
)

var precondNames = map[PrecondType]string{
	PrecondNone:            "none",
	PrecondDiag:            "diagonal",
	PrecondAMG:             "AMG",
	PrecondBlockJacobiILU0: "block-Jacobi (ILU0)",
	PrecondBlockJacobiSSOR: "block-Jacobi (SSOR)",
	PrecondICC0:            "ICC0",
	PrecondILU0:            "ILU0",
	PrecondMUMPS:           "MUMPS",
	PrecondPoly1:           "poly.1",
	PrecondPoly2:           "poly.2",
	PrecondSSOR:            "SSOR",
}

func (p PrecondType) Name() string { return precondNames[p] }

// AMGType enumerates algebraic multigrid flavors across families.
type AMGType uint8

const (
	AMGNone AMGType = iota
	AMGHouseV
	AMGHouseK
	AMGPETScPCMG
	AMGPETScGAMGV
	AMGPETScGAMGW
	AMGBoomerV
	AMGBoomerW
)

var amgNames = map[AMGType]string{
	AMGNone:       "none",
	AMGHouseV:     "in-house (V-cycle)",
	AMGHouseK:     "in-house (K-cycle)",
	AMGPETScPCMG:  "PETSc (PCMG)",
	AMGPETScGAMGV: "PETSc (GAMG V-cycle)",
	AMGPETScGAMGW: "PETSc (GAMG W-cycle)",
	AMGBoomerV:    "HYPRE BoomerAMG (V-cycle)",
	AMGBoomerW:    "HYPRE BoomerAMG (W-cycle)",
}

func (a AMGType) Name() string { return amgNames[a] }

// IsBoomer reports whether the AMG type requires HYPRE's BoomerAMG.
func (a AMGType) IsBoomer() bool { return a == AMGBoomerV || a == AMGBoomerW }

// BlockPrecondType describes how a vector-field system is split into
// per-component sub-solves.
type BlockPrecondType uint8

const (
	BlockPrecondNone BlockPrecondType = iota
	BlockPrecondDiag
	BlockPrecondLowerTriangular
	BlockPrecondUpperTriangular
	BlockPrecondSymGaussSeidel
)

var blockPrecondNames = map[BlockPrecondType]string{
	BlockPrecondNone:            "none",
	BlockPrecondDiag:            "diagonal blocks",
	BlockPrecondLowerTriangular: "lower triangular blocks",
	BlockPrecondUpperTriangular: "upper triangular blocks",
	BlockPrecondSymGaussSeidel:  "sym. Gauss-Seidel blocks",
}

func (b BlockPrecondType) Name() string { return blockPrecondNames[b] }

// ResnormType selects the residual normalization policy.
type ResnormType uint8

const (
	ResnormNone ResnormType = iota
	ResnormNorm2RHS
	ResnormWeightedRHS
	ResnormFilteredRHS
)

var resnormNames = map[ResnormType]string{
	ResnormNone:        "none",
	ResnormNorm2RHS:    "Euclidean norm of the RHS",
	ResnormWeightedRHS: "weighted Euclidean norm of the RHS",
	ResnormFilteredRHS: "filtered Euclidean norm of the RHS",
}

// CvgParam gathers the convergence thresholds for one linear system.
type CvgParam struct {
	NMaxIter int
	Atol     float64 // absolute tolerance
	Rtol     float64 // relative tolerance
	Dtol     float64 // divergence detection threshold
}

// Params describes how one named linear system is solved. One instance
// exists per equation; it is created with defaults at equation registration,
// mutated by configuration calls and consumed at the first solve.
type Params struct {
	Name      string
	FieldID   int
	Verbosity int
	SetupDone bool

	Class        Class
	Solver       SolverType
	Precond      PrecondType
	Flexible     bool
	Restart      int
	AMGType      AMGType
	BlockPrecond BlockPrecondType
	Resnorm      ResnormType

	Cvg CvgParam

	// Context holds algorithm-specific sub-parameters. Its concrete type
	// must match the solver/preconditioner choice: DirectOpts only with a
	// MUMPS solver or preconditioner, BoomerOpts only when a BoomerAMG
	// type is selected.
	Context ContextParam
}

// Create returns the parameters for a new linear system with the documented
// defaults.
func Create(fieldID int, name string) (slesp *Params) {
	slesp = &Params{
		Name:      name,
		FieldID:   fieldID,
		Verbosity: 0,
		SetupDone: false,

		Class:        ClassSaturne,
		Solver:       SolverGCR,
		Precond:      PrecondDiag,
		Flexible:     false,
		Restart:      15,
		AMGType:      AMGNone,
		BlockPrecond: BlockPrecondNone,
		Resnorm:      ResnormFilteredRHS,

		Cvg: CvgParam{
			NMaxIter: 10000,
			Atol:     1e-15,
			Rtol:     1e-6,
			Dtol:     1e3,
		},
	}
	return
}

// CopyFrom copies every scalar field of src into slesp. The sub-parameter
// context is deep-copied only when the destination's solver/preconditioner
// choice implies that context type, so a copy can never leave an orphaned
// context behind.
func (slesp *Params) CopyFrom(src *Params) {
	if src == nil {
		return
	}
	// Name and FieldID identify the destination system and are managed at
	// creation.
	slesp.SetupDone = src.SetupDone
	slesp.Verbosity = src.Verbosity

	slesp.Class = src.Class
	slesp.Solver = src.Solver
	slesp.Precond = src.Precond
	slesp.Flexible = src.Flexible
	slesp.Restart = src.Restart
	slesp.AMGType = src.AMGType
	slesp.BlockPrecond = src.BlockPrecond
	slesp.Resnorm = src.Resnorm

	slesp.Cvg = src.Cvg

	slesp.Context = nil
	if slesp.Solver == SolverMUMPS || slesp.Precond == PrecondMUMPS {
		if opts, ok := src.Context.(*DirectOpts); ok {
			slesp.Context = opts.Copy()
		}
	} else if boomerIsNeeded(slesp.Solver, slesp.Precond, slesp.AMGType) {
		if opts, ok := src.Context.(*BoomerOpts); ok {
			slesp.Context = opts.Copy()
		}
	}
}

func boomerIsNeeded(solver SolverType, precond PrecondType, amg AMGType) bool {
	if solver != SolverAMG && precond != PrecondAMG {
		return false
	}
	return amg.IsBoomer()
}

// UpdateCvgSettings applies only the convergence-related fields. This is the
// live-tuning path used between nonlinear outer iterations: the backend
// convergence criteria are refreshed without rebuilding the preconditioner
// stack (see dispatch.UpdateCvg).
func (slesp *Params) UpdateCvgSettings(cvg CvgParam) {
	slesp.Cvg = cvg
}

// CheckSettings validates internal consistency before any backend setup.
// Invalid combinations are fatal: the original aborts on them and a solve
// must never start from a misconfigured state.
func (slesp *Params) CheckSettings() {
	if slesp.Solver == SolverMUMPS {
		ret := CheckClass(ClassMUMPS)
		if ret == NClasses {
			panic(fmt.Sprintf(
				"system %q: MUMPS is not available with this installation",
				slesp.Name))
		}
		slesp.Class = ret
	} else if slesp.Class == ClassMUMPS {
		panic(fmt.Sprintf(
			"system %q: MUMPS class is not consistent with solver %s",
			slesp.Name, slesp.Solver.Name()))
	}

	if slesp.Solver.IsRestarted() && slesp.Restart < 2 {
		panic(fmt.Sprintf(
			"system %q: restart interval %d is not big enough",
			slesp.Name, slesp.Restart))
	}

	if slesp.Context != nil {
		slesp.Context.validFor(slesp)
	}
}

// Log dumps the settings in a human-readable form.
func (slesp *Params) Log() {
	fmt.Printf("\n### %s | Linear algebra settings\n", slesp.Name)
	fmt.Printf("  * %s | Family:            %s\n", slesp.Name, slesp.Class.Name())
	fmt.Printf("  * %s | Verbosity:         %d\n", slesp.Name, slesp.Verbosity)
	fmt.Printf("  * %s | Field id:          %d\n", slesp.Name, slesp.FieldID)
	fmt.Printf("  * %s | Solver.Name:       %s\n", slesp.Name, slesp.Solver.Name())

	if slesp.Solver == SolverMUMPS {
		if opts, ok := slesp.Context.(*DirectOpts); ok {
			opts.Log(slesp.Name)
		}
		return
	}

	if slesp.Solver == SolverAMG || slesp.Precond == PrecondAMG {
		fmt.Printf("  * %s | AMG.Type:          %s\n", slesp.Name, slesp.AMGType.Name())
		if opts, ok := slesp.Context.(*BoomerOpts); ok {
			opts.Log(slesp.Name)
		}
	}

	fmt.Printf("  * %s | Solver.Precond:    %s\n", slesp.Name, slesp.Precond.Name())
	fmt.Printf("  * %s | Block.Precond:     %s\n", slesp.Name, slesp.BlockPrecond.Name())
	fmt.Printf("  * %s | Solver.MaxIter:    %d\n", slesp.Name, slesp.Cvg.NMaxIter)
	fmt.Printf("  * %s | Solver.Rtol:      % -10.6e\n", slesp.Name, slesp.Cvg.Rtol)
	fmt.Printf("  * %s | Solver.Atol:      % -10.6e\n", slesp.Name, slesp.Cvg.Atol)
	if slesp.Solver.IsRestarted() {
		fmt.Printf("  * %s | Solver.Restart:    %d\n", slesp.Name, slesp.Restart)
	}
	fmt.Printf("  * %s | Normalization:     %s\n", slesp.Name,
		resnormNames[slesp.Resnorm])
}
