package sles

import "fmt"

// ContextParam is the algorithm-specific sub-parameter block attached to a
// Params. It is a closed sum over the option sets below; the active
// solver/preconditioner choice determines which concrete type is valid.
type ContextParam interface {
	Copy() ContextParam
	validFor(slesp *Params)
}

// BoomerCoarsenType selects the BoomerAMG coarsening algorithm.
type BoomerCoarsenType uint8

const (
	BoomerCoarsenFalgout BoomerCoarsenType = iota
	BoomerCoarsenPMIS
	BoomerCoarsenHMIS
	BoomerCoarsenCGC
	BoomerCoarsenCGCE
)

// BoomerSmootherType selects the BoomerAMG down/up/coarse smoothers.
type BoomerSmootherType uint8

const (
	BoomerSmootherJacobi BoomerSmootherType = iota
	BoomerSmootherForwardGS
	BoomerSmootherBackwardGS
	BoomerSmootherHybridSSOR
	BoomerSmootherL1GaussSeidel
	BoomerSmootherGaussElim // coarsest level only
)

// BoomerOpts carries the BoomerAMG smoother schedule and coarsening
// settings.
type BoomerOpts struct {
	CoarsenAlgo      BoomerCoarsenType
	DownSmoother     BoomerSmootherType
	UpSmoother       BoomerSmootherType
	CoarseSolver     BoomerSmootherType
	NDownIter        int
	NUpIter          int
	MaxLevels        int
	InterpAlgo       int
	PMax             int // max elements per row for interpolation
	AggressiveLevels int
	StrongThreshold  float64
}

// DefaultBoomerOpts mirrors the predefined recipe applied when BoomerAMG is
// selected without explicit settings.
func DefaultBoomerOpts() *BoomerOpts {
	return &BoomerOpts{
		CoarsenAlgo:      BoomerCoarsenHMIS,
		DownSmoother:     BoomerSmootherHybridSSOR,
		UpSmoother:       BoomerSmootherHybridSSOR,
		CoarseSolver:     BoomerSmootherGaussElim,
		NDownIter:        1,
		NUpIter:          1,
		MaxLevels:        25,
		InterpAlgo:       6, // extended+i
		PMax:             4,
		AggressiveLevels: 2,
		StrongThreshold:  0.5,
	}
}

func (o *BoomerOpts) Copy() ContextParam {
	cp := *o
	return &cp
}

func (o *BoomerOpts) validFor(slesp *Params) {
	if !boomerIsNeeded(slesp.Solver, slesp.Precond, slesp.AMGType) {
		panic(fmt.Sprintf(
			"system %q: BoomerAMG sub-parameters attached without a BoomerAMG solver or preconditioner",
			slesp.Name))
	}
}

func (o *BoomerOpts) Log(name string) {
	fmt.Printf("  * %s | Boomer.Coarsen:    %d\n", name, o.CoarsenAlgo)
	fmt.Printf("  * %s | Boomer.Smoothers:  down %d (x%d) | up %d (x%d) | coarse %d\n",
		name, o.DownSmoother, o.NDownIter, o.UpSmoother, o.NUpIter,
		o.CoarseSolver)
	fmt.Printf("  * %s | Boomer.MaxLevels:  %d\n", name, o.MaxLevels)
	fmt.Printf("  * %s | Boomer.Threshold:  %g\n", name, o.StrongThreshold)
}

// FactoType selects the direct factorization.
type FactoType uint8

const (
	FactoLU FactoType = iota
	FactoLDLTSPD
	FactoLDLTSym
)

// DirectOpts carries the sparse-direct (MUMPS family) options.
type DirectOpts struct {
	Facto          FactoType
	Symmetrized    bool    // pre-symmetrize an asymmetric system
	MemCoef        float64 // workspace over-allocation percentage
	BlockAnalysis  bool    // block low-rank analysis
	AdvancedOptims bool
}

func DefaultDirectOpts() *DirectOpts {
	return &DirectOpts{
		Facto:   FactoLU,
		MemCoef: 20,
	}
}

func (o *DirectOpts) Copy() ContextParam {
	cp := *o
	return &cp
}

func (o *DirectOpts) validFor(slesp *Params) {
	if slesp.Solver != SolverMUMPS && slesp.Precond != PrecondMUMPS {
		panic(fmt.Sprintf(
			"system %q: direct-factorization sub-parameters attached without a direct solver or preconditioner",
			slesp.Name))
	}
}

func (o *DirectOpts) Log(name string) {
	facto := map[FactoType]string{
		FactoLU:      "LU",
		FactoLDLTSPD: "LDLt (SPD)",
		FactoLDLTSym: "LDLt (sym.)",
	}
	fmt.Printf("  * %s | Direct.Facto:      %s\n", name, facto[o.Facto])
	fmt.Printf("  * %s | Direct.Symmetrize: %v\n", name, o.Symmetrized)
	fmt.Printf("  * %s | Direct.MemCoef:    %g\n", name, o.MemCoef)
}

// SetBoomerAMG attaches (or replaces) BoomerAMG sub-parameters.
func (slesp *Params) SetBoomerAMG(cycle AMGType, opts *BoomerOpts) {
	if !cycle.IsBoomer() {
		panic(fmt.Sprintf("system %q: %s is not a BoomerAMG cycle",
			slesp.Name, cycle.Name()))
	}
	slesp.AMGType = cycle
	if opts == nil {
		opts = DefaultBoomerOpts()
	}
	slesp.Context = opts.Copy()
}

// SetDirect attaches (or replaces) direct-factorization sub-parameters and
// switches the solver to the direct family.
func (slesp *Params) SetDirect(opts *DirectOpts) {
	slesp.Solver = SolverMUMPS
	if opts == nil {
		opts = DefaultDirectOpts()
	}
	slesp.Context = opts.Copy()
}
