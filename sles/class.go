package sles

import "fmt"

// Availability of solver classes is registered at startup by the backend
// packages that are compiled in. The in-house class is always present.
var (
	classAvailable = [NClasses]bool{ClassSaturne: true}
	// hypreViaPETSc marks a PETSc installation built with HYPRE support, so
	// the HYPRE class is reachable transitively.
	hypreViaPETSc bool
	// mumpsViaPETSc marks a PETSc installation built with MUMPS support.
	mumpsViaPETSc bool
)

// SetClassAvailable declares a solver class usable. Called by backend
// packages at registration.
func SetClassAvailable(c Class, available bool) {
	if c >= NClasses {
		return
	}
	classAvailable[c] = available
}

// SetPETScBridges declares which external classes a PETSc build can reach.
func SetPETScBridges(hypre, mumps bool) {
	hypreViaPETSc = hypre
	mumpsViaPETSc = mumps
}

// IsClassAvailable reports whether a class can be used directly.
func IsClassAvailable(c Class) bool {
	return c < NClasses && classAvailable[c]
}

// HypreFromPETSc reports whether HYPRE is reachable through PETSc.
func HypreFromPETSc() bool {
	return classAvailable[ClassPETSc] && hypreViaPETSc
}

// CheckClass checks the availability of a solver class and returns the
// requested one if possible, an alternative reachable through a documented
// equivalence path, or the NClasses sentinel when no substitute exists.
// Callers must treat the sentinel as a fatal configuration error.
func CheckClass(wanted Class) Class {
	switch wanted {

	case ClassSaturne:
		return ClassSaturne

	case ClassHYPRE:
		if classAvailable[ClassHYPRE] {
			return ClassHYPRE
		}
		if classAvailable[ClassPETSc] {
			if hypreViaPETSc {
				return ClassHYPRE
			}
			fmt.Printf("Warning: switch to the PETSc library since HYPRE is not available\n")
			return ClassPETSc
		}
		return NClasses

	case ClassPETSc:
		if classAvailable[ClassPETSc] {
			return ClassPETSc
		}
		return NClasses

	case ClassMUMPS:
		if classAvailable[ClassMUMPS] {
			return ClassMUMPS
		}
		if classAvailable[ClassPETSc] && mumpsViaPETSc {
			fmt.Printf("Warning: switch to the PETSc library since MUMPS is not available as a stand-alone library\n")
			return ClassPETSc
		}
		return NClasses

	default:
		return NClasses
	}
}

// CheckAMG repairs an AMG type inconsistent with the solver class, falling
// back to the nearest option. An unavailable BoomerAMG under PETSc becomes
// GAMG with a warning; an in-house AMG type under an external class becomes
// the class's own multigrid.
func (slesp *Params) CheckAMG() {
	if slesp.Precond != PrecondAMG && slesp.Solver != SolverAMG {
		return
	}

	switch slesp.Class {

	case ClassPETSc:
		if !classAvailable[ClassPETSc] {
			panic(fmt.Sprintf("system %q: PETSc is not available", slesp.Name))
		}
		if slesp.AMGType == AMGHouseV || slesp.AMGType == AMGHouseK {
			slesp.AMGType = AMGPETScGAMGV
		}
		if !HypreFromPETSc() {
			switch slesp.AMGType {
			case AMGBoomerV:
				fmt.Printf("Warning: system %q: BoomerAMG is not available; switch to GAMG (V-cycle)\n",
					slesp.Name)
				slesp.AMGType = AMGPETScGAMGV
				slesp.Context = nil // Boomer options no longer apply
			case AMGBoomerW:
				fmt.Printf("Warning: system %q: BoomerAMG is not available; switch to GAMG (W-cycle)\n",
					slesp.Name)
				slesp.AMGType = AMGPETScGAMGW
				slesp.Context = nil
			}
		}

	case ClassHYPRE:
		if classAvailable[ClassHYPRE] || HypreFromPETSc() {
			switch slesp.AMGType {
			case AMGHouseV, AMGHouseK, AMGPETScPCMG, AMGPETScGAMGV:
				slesp.AMGType = AMGBoomerV
			case AMGPETScGAMGW:
				slesp.AMGType = AMGBoomerW
			}
		} else {
			panic(fmt.Sprintf("system %q: HYPRE and PETSc are not available",
				slesp.Name))
		}

	case ClassSaturne:
		switch slesp.AMGType {
		case AMGPETScPCMG, AMGPETScGAMGV, AMGPETScGAMGW, AMGBoomerV, AMGBoomerW:
			slesp.AMGType = AMGHouseK
		}

	default:
		panic(fmt.Sprintf("system %q: incompatible solver class for AMG",
			slesp.Name))
	}
}
