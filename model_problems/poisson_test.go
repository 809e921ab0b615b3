package model_problems

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowsolve/gosles/saddle"
)

func TestPoissonOperators(t *testing.T) {
	{ // 1D native: constant vector maps to zero away from the boundary
		m := Poisson1DNative(10)
		var (
			x = make([]float64, 10)
			y = make([]float64, 10)
		)
		for i := range x {
			x[i] = 1
		}
		m.VectorMultiply(x, y)
		for i := 1; i < 9; i++ {
			assert.InDelta(t, 0, y[i], 1.e-14)
		}
		assert.InDelta(t, 1, y[0], 1.e-14)
		assert.InDelta(t, 1, y[9], 1.e-14)
	}
	{ // 2D CSR: same property for the 5-point stencil
		m := Poisson2DCSR(5, 5)
		var (
			x = make([]float64, 25)
			y = make([]float64, 25)
		)
		for i := range x {
			x[i] = 1
		}
		m.VectorMultiply(x, y)
		assert.InDelta(t, 0, y[12], 1.e-14) // interior point
		assert.InDelta(t, 2, y[0], 1.e-14)  // corner
	}
}

func TestChannelExactness(t *testing.T) {
	sys, xExact := Channel(16)
	r := make([]float64, sys.Size())
	norm := sys.Residual(xExact, r)
	assert.InDelta(t, 0, norm, 1.e-10)

	res1, res2 := saddle.Check(sys, xExact)
	assert.InDelta(t, 0, res1, 1.e-10)
	assert.InDelta(t, 0, res2, 1.e-10)
}
