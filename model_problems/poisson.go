// Package model_problems builds the synthetic linear systems used by the
// command-line demos and the solver tests: finite-volume Poisson operators
// in both storage layouts and a channel-flow saddle-point system with a
// known solution.
package model_problems

import (
	"math/rand"

	"github.com/flowsolve/gosles/sparse"
)

// Poisson1DNative builds the 1D Laplacian (diag 2, off-diag -1) of dimension
// n in the edge-based layout with symmetric fill.
func Poisson1DNative(n int) (m *sparse.Matrix) {
	var (
		diag  = make([]float64, n)
		edgeI = make([]int, n-1)
		edgeJ = make([]int, n-1)
		vals  = make([]float64, n-1)
	)
	for i := range diag {
		diag[i] = 2
	}
	for e := 0; e < n-1; e++ {
		edgeI[e] = e
		edgeJ[e] = e + 1
		vals[e] = -1
	}
	return sparse.NewNative(n, sparse.FillScalarSym, diag, edgeI, edgeJ, vals)
}

// Poisson2DCSR builds the 5-point Laplacian on an nx by ny grid in
// compressed-row storage.
func Poisson2DCSR(nx, ny int) (m *sparse.Matrix) {
	var (
		n    = nx * ny
		rows []int
		cols []int
		vals []float64
	)
	add := func(i, j int, v float64) {
		rows = append(rows, i)
		cols = append(cols, j)
		vals = append(vals, v)
	}
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			i := iy*nx + ix
			add(i, i, 4)
			if ix > 0 {
				add(i, i-1, -1)
			}
			if ix < nx-1 {
				add(i, i+1, -1)
			}
			if iy > 0 {
				add(i, i-nx, -1)
			}
			if iy < ny-1 {
				add(i, i+nx, -1)
			}
		}
	}
	return sparse.NewCSR(n, sparse.FillScalar, rows, cols, vals)
}

// RandomRHS returns a reproducible right-hand side with entries in [-1, 1).
func RandomRHS(n int, seed int64) (b []float64) {
	rng := rand.New(rand.NewSource(seed))
	b = make([]float64, n)
	for i := range b {
		b[i] = 2*rng.Float64() - 1
	}
	return
}
