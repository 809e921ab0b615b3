package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flowsolve/gosles/sles"
)

// Keyword tables for the string-valued configuration surface. Keys follow
// the configuration-file vocabulary, lower-case with underscores.
var (
	solverKeywords = map[string]sles.SolverType{
		"amg":              sles.SolverAMG,
		"bicgstab":         sles.SolverBiCGStab,
		"cg":               sles.SolverCG,
		"fcg":              sles.SolverFCG,
		"gauss_seidel":     sles.SolverGaussSeidel,
		"gcr":              sles.SolverGCR,
		"gmres":            sles.SolverGMRES,
		"fgmres":           sles.SolverFGMRES,
		"jacobi":           sles.SolverJacobi,
		"minres":           sles.SolverMINRES,
		"mumps":            sles.SolverMUMPS,
		"sym_gauss_seidel": sles.SolverSymGaussSeidel,
		"none":             sles.SolverNone,
	}

	precondKeywords = map[string]sles.PrecondType{
		"none":              sles.PrecondNone,
		"jacobi":            sles.PrecondDiag,
		"diag":              sles.PrecondDiag,
		"amg":               sles.PrecondAMG,
		"block_jacobi_ilu0": sles.PrecondBlockJacobiILU0,
		"block_jacobi_ssor": sles.PrecondBlockJacobiSSOR,
		"icc0":              sles.PrecondICC0,
		"ilu0":              sles.PrecondILU0,
		"mumps":             sles.PrecondMUMPS,
		"poly1":             sles.PrecondPoly1,
		"poly2":             sles.PrecondPoly2,
		"ssor":              sles.PrecondSSOR,
	}

	classKeywords = map[string]sles.Class{
		"saturne": sles.ClassSaturne,
		"hypre":   sles.ClassHYPRE,
		"mumps":   sles.ClassMUMPS,
		"petsc":   sles.ClassPETSc,
	}

	amgKeywords = map[string]sles.AMGType{
		"none":     sles.AMGNone,
		"v_cycle":  sles.AMGHouseV,
		"k_cycle":  sles.AMGHouseK,
		"pcmg":     sles.AMGPETScPCMG,
		"gamg":     sles.AMGPETScGAMGV,
		"gamg_w":   sles.AMGPETScGAMGW,
		"boomer":   sles.AMGBoomerV,
		"boomer_w": sles.AMGBoomerW,
		"bamg":     sles.AMGBoomerV,
	}

	resnormKeywords = map[string]sles.ResnormType{
		"none":         sles.ResnormNone,
		"rhs":          sles.ResnormNorm2RHS,
		"weighted_rhs": sles.ResnormWeightedRHS,
		"filtered_rhs": sles.ResnormFilteredRHS,
	}

	blockPrecondKeywords = map[string]sles.BlockPrecondType{
		"none":             sles.BlockPrecondNone,
		"diag":             sles.BlockPrecondDiag,
		"lower":            sles.BlockPrecondLowerTriangular,
		"upper":            sles.BlockPrecondUpperTriangular,
		"sym_gauss_seidel": sles.BlockPrecondSymGaussSeidel,
	}
)

// ApplyOption sets one settings field from its keyword form. Unknown keys or
// values are reported rather than ignored, so configuration typos surface at
// startup.
func ApplyOption(slesp *sles.Params, key, value string) (err error) {
	value = strings.ToLower(strings.TrimSpace(value))

	switch strings.ToLower(strings.TrimSpace(key)) {
	case "solver":
		v, ok := solverKeywords[value]
		if !ok {
			err = fmt.Errorf("system %q: unknown solver %q", slesp.Name, value)
			return
		}
		slesp.Solver = v
	case "solver_family", "family":
		v, ok := classKeywords[value]
		if !ok {
			err = fmt.Errorf("system %q: unknown solver family %q", slesp.Name, value)
			return
		}
		slesp.Class = v
	case "precond", "preconditioner":
		v, ok := precondKeywords[value]
		if !ok {
			err = fmt.Errorf("system %q: unknown preconditioner %q", slesp.Name, value)
			return
		}
		slesp.Precond = v
	case "amg_type":
		v, ok := amgKeywords[value]
		if !ok {
			err = fmt.Errorf("system %q: unknown AMG type %q", slesp.Name, value)
			return
		}
		slesp.AMGType = v
	case "block_precond":
		v, ok := blockPrecondKeywords[value]
		if !ok {
			err = fmt.Errorf("system %q: unknown block preconditioning %q", slesp.Name, value)
			return
		}
		slesp.BlockPrecond = v
	case "resnorm", "resnorm_type":
		v, ok := resnormKeywords[value]
		if !ok {
			err = fmt.Errorf("system %q: unknown residual normalization %q", slesp.Name, value)
			return
		}
		slesp.Resnorm = v
	case "restart":
		var n int
		if n, err = strconv.Atoi(value); err != nil {
			err = fmt.Errorf("system %q: restart: %v", slesp.Name, err)
			return
		}
		slesp.Restart = n
	case "max_iter", "n_max_iter":
		var n int
		if n, err = strconv.Atoi(value); err != nil {
			err = fmt.Errorf("system %q: max_iter: %v", slesp.Name, err)
			return
		}
		slesp.Cvg.NMaxIter = n
	case "rtol", "eps":
		if slesp.Cvg.Rtol, err = strconv.ParseFloat(value, 64); err != nil {
			err = fmt.Errorf("system %q: rtol: %v", slesp.Name, err)
			return
		}
	case "atol":
		if slesp.Cvg.Atol, err = strconv.ParseFloat(value, 64); err != nil {
			err = fmt.Errorf("system %q: atol: %v", slesp.Name, err)
			return
		}
	case "dtol":
		if slesp.Cvg.Dtol, err = strconv.ParseFloat(value, 64); err != nil {
			err = fmt.Errorf("system %q: dtol: %v", slesp.Name, err)
			return
		}
	case "verbosity":
		var n int
		if n, err = strconv.Atoi(value); err != nil {
			err = fmt.Errorf("system %q: verbosity: %v", slesp.Name, err)
			return
		}
		slesp.Verbosity = n
	case "flexible":
		slesp.Flexible = value == "true" || value == "yes" || value == "1"
	default:
		err = fmt.Errorf("system %q: unknown setting key %q", slesp.Name, key)
	}
	return
}

// ApplyOptions applies a whole key/value set, stopping at the first error.
func ApplyOptions(slesp *sles.Params, opts map[string]string) (err error) {
	for k, v := range opts {
		if err = ApplyOption(slesp, k, v); err != nil {
			return
		}
	}
	return
}

// applyRecipe attaches the predefined sub-parameter recipe implied by the
// algorithm choice when the user supplied none. This is the second settings
// layer, between the family defaults and the explicit overrides.
func applyRecipe(slesp *sles.Params) {
	if slesp.Context != nil {
		return
	}
	switch {
	case slesp.Solver == sles.SolverMUMPS || slesp.Precond == sles.PrecondMUMPS:
		slesp.Context = sles.DefaultDirectOpts()
	case (slesp.Solver == sles.SolverAMG || slesp.Precond == sles.PrecondAMG) &&
		slesp.AMGType.IsBoomer():
		slesp.Context = sles.DefaultBoomerOpts()
	}
}

// SetupHook is the user-defined settings hook, applied last so it can
// override every other layer.
type SetupHook func(slesp *sles.Params)

var userHook SetupHook

// SetUserHook installs (or clears, with nil) the hook run at the end of
// every settings layering pass.
func SetUserHook(h SetupHook) { userHook = h }
