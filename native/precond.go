// Package native implements the in-house sparse linear solvers: the Krylov
// methods (CG, GCR, GMRES), Jacobi relaxation and a dense LU fallback for
// the direct family, with the single-level preconditioners they share.
package native

import (
	"fmt"

	"github.com/flowsolve/gosles/sles"
	"github.com/flowsolve/gosles/sparse"
)

// Preconditioner applies z = M^{-1}.r for an approximation M of the system
// matrix. Implementations must not alias z and r.
type Preconditioner interface {
	Name() string
	Apply(z, r []float64)
}

type identityPC struct{}

func (identityPC) Name() string { return "none" }
func (identityPC) Apply(z, r []float64) {
	copy(z, r)
}

// diagPC is the Jacobi (diagonal) preconditioner.
type diagPC struct {
	invDiag []float64
}

func newDiagPC(m *sparse.Matrix) (pc *diagPC) {
	var (
		diag = m.Diag()
		inv  = make([]float64, len(diag))
	)
	for i, d := range diag {
		if d != 0 {
			inv[i] = 1. / d
		} else {
			inv[i] = 1.
		}
	}
	return &diagPC{invDiag: inv}
}

func (pc *diagPC) Name() string { return "diagonal" }
func (pc *diagPC) Apply(z, r []float64) {
	for i, ri := range r {
		z[i] = pc.invDiag[i] * ri
	}
}

// polyPC is the truncated Neumann-series polynomial preconditioner of
// degree 1 or 2:
//  z = (I + G + G^2 + ...) D^{-1} r,  G = -D^{-1} (A - D)
type polyPC struct {
	m       *sparse.Matrix
	invDiag []float64
	degree  int
	work    []float64
}

func newPolyPC(m *sparse.Matrix, degree int) (pc *polyPC) {
	d := newDiagPC(m)
	pc = &polyPC{
		m:       m,
		invDiag: d.invDiag,
		degree:  degree,
		work:    make([]float64, m.NCols()*m.DiagBlockSize()),
	}
	return
}

func (pc *polyPC) Name() string { return fmt.Sprintf("poly.%d", pc.degree) }

func (pc *polyPC) Apply(z, r []float64) {
	for i, ri := range r {
		z[i] = pc.invDiag[i] * ri
	}
	for deg := 0; deg < pc.degree; deg++ {
		// work = (A-D).z ; z = D^{-1}(r - work)
		pc.m.VectorMultiplyPartial(sparse.SpMVSubDiag, z, pc.work)
		for i, ri := range r {
			z[i] = pc.invDiag[i] * (ri - pc.work[i])
		}
	}
}

// ssorPC is the symmetric successive over-relaxation preconditioner. The
// triangular sweeps need row-ordered access, so it requires CSR storage.
type ssorPC struct {
	m     *sparse.Matrix
	omega float64
}

func newSSORPC(m *sparse.Matrix) (pc *ssorPC) {
	if m.Storage() != sparse.CSR {
		return nil
	}
	return &ssorPC{m: m, omega: 1.0}
}

func (pc *ssorPC) Name() string { return "SSOR" }

func (pc *ssorPC) Apply(z, r []float64) {
	var (
		raw  = pc.m.CSRRaw()
		diag = pc.m.Diag()
		n    = pc.m.NRows()
	)
	// Forward sweep: (D/w + L) z = r
	for i := 0; i < n; i++ {
		sum := r[i]
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			j := raw.Ind[jj]
			if j < i {
				sum -= raw.Data[jj] * z[j]
			}
		}
		z[i] = pc.omega * sum / diag[i]
	}
	// Backward sweep: (D/w + U) z' = D z
	for i := n - 1; i >= 0; i-- {
		sum := diag[i] * z[i]
		for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
			j := raw.Ind[jj]
			if j > i {
				sum -= raw.Data[jj] * z[j]
			}
		}
		z[i] = pc.omega * sum / diag[i]
	}
}

// newPreconditioner builds the preconditioner requested by the settings,
// falling back to the diagonal when the storage cannot support the request.
func newPreconditioner(slesp *sles.Params, m *sparse.Matrix) Preconditioner {
	switch slesp.Precond {
	case sles.PrecondNone:
		return identityPC{}
	case sles.PrecondDiag:
		return newDiagPC(m)
	case sles.PrecondPoly1:
		return newPolyPC(m, 1)
	case sles.PrecondPoly2:
		return newPolyPC(m, 2)
	case sles.PrecondSSOR, sles.PrecondBlockJacobiSSOR:
		if pc := newSSORPC(m); pc != nil {
			return pc
		}
		fmt.Printf("Warning: system %q: SSOR needs CSR storage; using the diagonal preconditioner\n",
			slesp.Name)
		return newDiagPC(m)
	default:
		fmt.Printf("Warning: system %q: preconditioner %s not provided by the in-house family; using the diagonal\n",
			slesp.Name, slesp.Precond.Name())
		return newDiagPC(m)
	}
}
