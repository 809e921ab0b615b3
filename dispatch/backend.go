// Package dispatch binds named linear systems to solver backends: it owns
// the registry of equation settings, layers defaults, recipes, option
// overrides and the user hook into each system's parameters, and routes
// solves to the backend implementing the selected family.
package dispatch

import (
	"fmt"

	"github.com/flowsolve/gosles/native"
	"github.com/flowsolve/gosles/parallel"
	"github.com/flowsolve/gosles/sles"
	"github.com/flowsolve/gosles/sparse"
)

// Solver is the per-system solve handle a backend returns. Setup may be
// called again when the matrix changes; SetConvergenceCriteria retunes the
// thresholds between solves without rebuilding the preconditioner stack.
type Solver interface {
	Setup(slesp *sles.Params, m *sparse.Matrix) error
	Solve(rtol, rhsNorm float64, b, x []float64) (nIter int, resNorm float64, state sles.ConvergenceState)
	SetConvergenceCriteria(rtol, atol, dtol float64, nMaxIter int)
}

// Backend creates solvers for one family.
type Backend interface {
	Class() sles.Class
	NewSolver(slesp *sles.Params, comm parallel.Comm) Solver
}

var backends [sles.NClasses]Backend

// RegisterBackend installs a backend for its class and marks the class
// available to the substitution logic.
func RegisterBackend(b Backend) {
	backends[b.Class()] = b
	sles.SetClassAvailable(b.Class(), true)
}

func backendFor(c sles.Class) Backend {
	if c >= sles.NClasses || backends[c] == nil {
		panic(fmt.Sprintf("no backend registered for solver class %s", c.Name()))
	}
	return backends[c]
}

// saturneBackend wires the in-house solvers as the always-present family.
type saturneBackend struct{}

func (saturneBackend) Class() sles.Class { return sles.ClassSaturne }

func (saturneBackend) NewSolver(slesp *sles.Params, comm parallel.Comm) Solver {
	return native.New(slesp, comm)
}

// directBackend serves the sparse-direct class with the in-process dense
// factorization. Registering it makes the class reachable, so direct
// requests are honored instead of substituted away.
type directBackend struct{}

func (directBackend) Class() sles.Class { return sles.ClassMUMPS }

func (directBackend) NewSolver(slesp *sles.Params, comm parallel.Comm) Solver {
	return native.New(slesp, comm)
}

func init() {
	RegisterBackend(saturneBackend{})
	RegisterBackend(directBackend{})
}
