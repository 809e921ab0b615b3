package native

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/flowsolve/gosles/sles"
	"github.com/flowsolve/gosles/sparse"
)

// cg runs the preconditioned conjugate gradient. The matrix must be
// symmetric positive definite; an indefinite system shows up as a breakdown
// of the p.Ap curvature term.
func (s *Solver) cg(ia *sles.IterAlgo, rhsNorm float64, b, x []float64) {
	var (
		n = len(b)
		r = make([]float64, n)
		z = make([]float64, n)
		p = make([]float64, n)
		q = make([]float64, n)
	)

	res := s.residual(b, x, r) / rhsNorm
	ia.SetInitialResidual(res)
	if res == 0 {
		ia.Cvg = sles.Converged
		return
	}

	s.pc.Apply(z, r)
	copy(p, z)
	rz := s.dot(r, z)

	for ia.Cvg == sles.Iterating {
		s.m.VectorMultiply(p, q)
		pq := s.dot(p, q)
		if pq == 0 {
			ia.Cvg = sles.Breakdown
			return
		}
		alpha := rz / pq
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, q)

		ia.UpdateResidual(s.norm(r) / rhsNorm)
		if ia.CvgTest() != sles.Iterating {
			return
		}

		s.pc.Apply(z, r)
		rzNew := s.dot(r, z)
		if rz == 0 {
			ia.Cvg = sles.Breakdown
			return
		}
		beta := rzNew / rz
		rz = rzNew
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
	}
}

// gcr runs the generalized conjugate residual method with restarts. The
// search directions are re-orthonormalized by modified Gram-Schmidt inside
// each restart window, so the method tolerates asymmetric systems and is
// the robust default.
func (s *Solver) gcr(ia *sles.IterAlgo, rhsNorm float64, b, x []float64) {
	var (
		n = len(b)
		r = make([]float64, n)
		z = make([][]float64, s.restart)
		c = make([][]float64, s.restart)
	)
	for k := range z {
		z[k] = make([]float64, n)
		c[k] = make([]float64, n)
	}

	res := s.residual(b, x, r) / rhsNorm
	ia.SetInitialResidual(res)
	if res == 0 {
		ia.Cvg = sles.Converged
		return
	}

	for ia.Cvg == sles.Iterating {
		for k := 0; k < s.restart && ia.Cvg == sles.Iterating; k++ {
			s.pc.Apply(z[k], r)
			s.m.VectorMultiply(z[k], c[k])

			for j := 0; j < k; j++ {
				beta := s.dot(c[k], c[j])
				floats.AddScaled(c[k], -beta, c[j])
				floats.AddScaled(z[k], -beta, z[j])
			}
			nrm := s.norm(c[k])
			if nrm == 0 {
				ia.Cvg = sles.Breakdown
				return
			}
			floats.Scale(1/nrm, c[k])
			floats.Scale(1/nrm, z[k])

			alpha := s.dot(c[k], r)
			floats.AddScaled(x, alpha, z[k])
			floats.AddScaled(r, -alpha, c[k])

			ia.UpdateResidual(s.norm(r) / rhsNorm)
			ia.CvgTest()
		}
		// restart: recompute the true residual to flush accumulated drift
		if ia.Cvg == sles.Iterating {
			ia.UpdateResidual(s.residual(b, x, r) / rhsNorm)
		}
	}
}

// gmres runs right-preconditioned restarted GMRES. In the flexible variant
// the preconditioned directions are stored alongside the Arnoldi basis, so
// the preconditioner may vary between applications; the fixed variant keeps
// a single scratch direction and applies the preconditioner once per
// restart cycle when updating the solution.
func (s *Solver) gmres(ia *sles.IterAlgo, rhsNorm float64, b, x []float64) {
	var (
		n  = len(b)
		kr = s.restart
		r  = make([]float64, n)
		w  = make([]float64, n)
		z  = make([]float64, n)
		v  = make([][]float64, kr+1)
		zz [][]float64
		h  = make([][]float64, kr+1)
		cs = make([]float64, kr)
		sn = make([]float64, kr)
		g  = make([]float64, kr+1)
		y  = make([]float64, kr)
	)
	for i := range v {
		v[i] = make([]float64, n)
		h[i] = make([]float64, kr)
	}
	if s.flexible {
		zz = make([][]float64, kr)
		for i := range zz {
			zz[i] = make([]float64, n)
		}
	}

	res := s.residual(b, x, r) / rhsNorm
	ia.SetInitialResidual(res)
	if res == 0 {
		ia.Cvg = sles.Converged
		return
	}

	for ia.Cvg == sles.Iterating {
		beta := s.norm(r)
		if beta == 0 {
			ia.Cvg = sles.Converged
			return
		}
		for i := range g {
			g[i] = 0
		}
		g[0] = beta
		for i := range r {
			v[0][i] = r[i] / beta
		}

		var j int
		for j = 0; j < kr; j++ {
			if s.flexible {
				s.pc.Apply(zz[j], v[j])
				s.m.VectorMultiply(zz[j], w)
			} else {
				s.pc.Apply(z, v[j])
				s.m.VectorMultiply(z, w)
			}

			// Arnoldi step, modified Gram-Schmidt
			for i := 0; i <= j; i++ {
				h[i][j] = s.dot(w, v[i])
				floats.AddScaled(w, -h[i][j], v[i])
			}
			h[j+1][j] = s.norm(w)
			if h[j+1][j] != 0 {
				for i := range w {
					v[j+1][i] = w[i] / h[j+1][j]
				}
			}

			// apply the accumulated Givens rotations to the new column
			for i := 0; i < j; i++ {
				h[i][j], h[i+1][j] =
					cs[i]*h[i][j]+sn[i]*h[i+1][j],
					-sn[i]*h[i][j]+cs[i]*h[i+1][j]
			}
			den := math.Hypot(h[j][j], h[j+1][j])
			if den == 0 {
				ia.Cvg = sles.Breakdown
				return
			}
			cs[j], sn[j] = h[j][j]/den, h[j+1][j]/den
			h[j][j] = den
			h[j+1][j] = 0
			g[j+1] = -sn[j] * g[j]
			g[j] *= cs[j]

			ia.UpdateResidual(math.Abs(g[j+1]) / rhsNorm)
			if ia.CvgTest() != sles.Iterating {
				j++
				break
			}
		}

		// back-substitute, then update the solution. The flexible variant
		// sums the stored preconditioned directions; the fixed one forms
		// V.y first and preconditions the combination once.
		for i := j - 1; i >= 0; i-- {
			y[i] = g[i]
			for k := i + 1; k < j; k++ {
				y[i] -= h[i][k] * y[k]
			}
			y[i] /= h[i][i]
		}
		if s.flexible {
			for i := 0; i < j; i++ {
				floats.AddScaled(x, y[i], zz[i])
			}
		} else {
			for i := range w {
				w[i] = 0
			}
			for i := 0; i < j; i++ {
				floats.AddScaled(w, y[i], v[i])
			}
			s.pc.Apply(z, w)
			floats.Add(x, z)
		}

		if ia.Cvg == sles.Iterating {
			ia.UpdateResidual(s.residual(b, x, r) / rhsNorm)
		} else {
			// recompute the true residual for reporting
			ia.Res = s.residual(b, x, r) / rhsNorm
		}
	}
}

// jacobi runs the damped-free Jacobi relaxation: x += D^{-1} (b - A.x),
// with the extra-diagonal product taken through the (A-D) kernel.
func (s *Solver) jacobi(ia *sles.IterAlgo, rhsNorm float64, b, x []float64) {
	var (
		n    = len(b)
		xNew = make([]float64, n)
		r    = make([]float64, n)
		diag = s.m.Diag()
	)

	res := s.residual(b, x, r) / rhsNorm
	ia.SetInitialResidual(res)
	if res == 0 {
		ia.Cvg = sles.Converged
		return
	}

	for ia.Cvg == sles.Iterating {
		s.m.VectorMultiplyPartial(sparse.SpMVSubDiag, x, xNew)
		for i := 0; i < n; i++ {
			d := diag[i]
			if d == 0 {
				d = 1
			}
			xNew[i] = (b[i] - xNew[i]) / d
		}
		copy(x, xNew)

		ia.UpdateResidual(s.residual(b, x, r) / rhsNorm)
		ia.CvgTest()
	}
}
