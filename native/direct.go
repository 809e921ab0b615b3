package native

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/flowsolve/gosles/sles"
	"github.com/flowsolve/gosles/sparse"
)

// directSolver is the in-process stand-in for the sparse-direct family: the
// system is densified and factorized with gonum. It honors the direct-solver
// option surface (factorization kind, pre-symmetrization) and is meant for
// the moderate-size Schur and coarse systems where a direct solve is asked
// for.
type directSolver struct {
	opts *sles.DirectOpts
	n    int

	lu   *mat.LU
	chol *mat.Cholesky
}

func newDirectSolver(opts *sles.DirectOpts) *directSolver {
	if opts == nil {
		opts = sles.DefaultDirectOpts()
	}
	return &directSolver{opts: opts}
}

// Factorize densifies the matrix and computes the factorization selected by
// the options.
func (d *directSolver) Factorize(m *sparse.Matrix) (err error) {
	if m.DiagBlockSize() != 1 {
		err = fmt.Errorf("direct solver: block fill %s is not supported",
			m.FillType().Name())
		return
	}
	d.n = m.NRows()

	dense := mat.NewDense(d.n, d.n, nil)
	m.EachEntry(func(i, j int, v float64) {
		dense.Set(i, j, dense.At(i, j)+v)
	})
	if d.opts.Symmetrized {
		for i := 0; i < d.n; i++ {
			for j := i + 1; j < d.n; j++ {
				h := 0.5 * (dense.At(i, j) + dense.At(j, i))
				dense.Set(i, j, h)
				dense.Set(j, i, h)
			}
		}
	}

	switch d.opts.Facto {
	case sles.FactoLDLTSPD:
		sym := mat.NewSymDense(d.n, nil)
		for i := 0; i < d.n; i++ {
			for j := i; j < d.n; j++ {
				sym.SetSym(i, j, dense.At(i, j))
			}
		}
		d.chol = new(mat.Cholesky)
		if ok := d.chol.Factorize(sym); !ok {
			err = fmt.Errorf("direct solver: matrix is not positive definite")
			d.chol = nil
		}
	default:
		d.lu = new(mat.LU)
		d.lu.Factorize(dense)
		if d.lu.Cond() > 1/condTolerance {
			err = fmt.Errorf("direct solver: matrix is singular to working precision (cond %g)",
				d.lu.Cond())
			d.lu = nil
		}
	}
	return
}

const condTolerance = 1e-16

// Solve applies the factorization: x = A^{-1} b.
func (d *directSolver) Solve(b, x []float64) (err error) {
	var (
		rhs = mat.NewVecDense(d.n, b)
		sol = mat.NewVecDense(d.n, x)
	)
	switch {
	case d.chol != nil:
		err = d.chol.SolveVecTo(sol, rhs)
	case d.lu != nil:
		err = d.lu.SolveVecTo(sol, false, rhs)
	default:
		err = fmt.Errorf("direct solver: Solve called before Factorize")
	}
	return
}
