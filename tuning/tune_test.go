package tuning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowsolve/gosles/sparse"
)

func testCSRMatrix(n int) *sparse.Matrix {
	var (
		rows, cols []int
		vals       []float64
	)
	for i := 0; i < n; i++ {
		rows = append(rows, i)
		cols = append(cols, i)
		vals = append(vals, 2)
		if i < n-1 {
			rows = append(rows, i)
			cols = append(cols, i+1)
			vals = append(vals, -1)
		}
	}
	return sparse.NewCSR(n, sparse.FillScalarSym, rows, cols, vals)
}

func testBlock33Matrix(n int) *sparse.Matrix {
	diagBlocks := make([]float64, 9*n)
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			diagBlocks[9*i+4*k] = 2
		}
	}
	var (
		edgeI = make([]int, n-1)
		edgeJ = make([]int, n-1)
		ev    = make([]float64, n-1)
	)
	for e := range edgeI {
		edgeI[e] = e
		edgeJ[e] = e + 1
		ev[e] = -1
	}
	return sparse.NewNativeBlock33(n, diagBlocks, edgeI, edgeJ, ev)
}

func TestSelectVariants(t *testing.T) {
	var (
		m        = testCSRMatrix(16)
		variants = sparse.BuildVariantList(m)
		nOps     = int(sparse.SpMVNTypes)
	)
	assert.True(t, len(variants) >= 3)

	{ // identical costs keep the first-registered variant for both operations
		costs := make([]float64, len(variants)*nOps)
		for i := range costs {
			costs[i] = 1.0
		}
		// csr_u4 registers no (A-D).x kernel
		for i, v := range variants {
			for j := 0; j < nOps; j++ {
				if v.Kernels[j] == nil {
					costs[i*nOps+j] = -1
				}
			}
		}
		tuned := selectVariants(m, variants, 1, costs, 0)
		assert.Equal(t, 1, len(tuned))
		for j := sparse.SpMVType(0); j < sparse.SpMVNTypes; j++ {
			assert.Equal(t, variants[0].Names[j], tuned[0].Names[j])
		}
	}
	{ // the cheapest variant wins per operation independently
		costs := make([]float64, len(variants)*nOps)
		for i := range costs {
			costs[i] = 1.0
		}
		costs[1*nOps+0] = 0.5 // variant 1 fastest for y <= A.x
		costs[0*nOps+1] = 0.2 // variant 0 fastest for y <= (A-D).x
		for i, v := range variants {
			for j := 0; j < nOps; j++ {
				if v.Kernels[j] == nil {
					costs[i*nOps+j] = -1
				}
			}
		}
		tuned := selectVariants(m, variants, 1, costs, 0)
		assert.Equal(t, variants[1].Names[0], tuned[0].Names[0])
		assert.Equal(t, variants[0].Names[1], tuned[0].Names[1])
	}
}

func TestSelectVariantsDeviceClass(t *testing.T) {
	// synthetic host and device candidates: the combined slot must take the
	// faster class per operation
	var (
		m    = testCSRMatrix(8)
		nOps = int(sparse.SpMVNTypes)
		noop = func(m *sparse.Matrix, x, y []float64) {}
	)
	mk := func(name string, loc sparse.Location) *sparse.Variant {
		v := &sparse.Variant{Fill: m.FillType()}
		for op := sparse.SpMVType(0); op < sparse.SpMVNTypes; op++ {
			v.Names[op] = name
			v.Kernels[op] = noop
			v.Locs[op] = loc
		}
		return v
	}
	variants := []*sparse.Variant{
		mk("h0", sparse.Host),
		mk("h1", sparse.Host),
		mk("d0", sparse.Device),
	}
	costs := []float64{
		1.0, 1.0, // h0
		2.0, 2.0, // h1
		0.5, 3.0, // d0: faster full product, slower (A-D).x
	}

	tuned := selectVariants(m, variants, 3, costs, 0)
	assert.Equal(t, 3, len(tuned))

	// combined class mixes locations per operation
	assert.Equal(t, "d0", tuned[0].Names[0])
	assert.Equal(t, sparse.Device, tuned[0].Locs[0])
	assert.Equal(t, "h0", tuned[0].Names[1])
	assert.Equal(t, sparse.Host, tuned[0].Locs[1])

	// host-only and device-only classes keep their own winners
	for j := 0; j < nOps; j++ {
		assert.Equal(t, "h0", tuned[1].Names[j])
		assert.Equal(t, "d0", tuned[2].Names[j])
	}
}

func TestSingleVariantShortcut(t *testing.T) {
	var (
		m        = testBlock33Matrix(8)
		variants = sparse.BuildVariantList(m)
	)
	assert.Equal(t, 1, len(variants))

	sink := testSum
	tuned := TunedVariants(m, Options{NMeasure: 1000000})
	assert.Equal(t, 1, len(tuned))
	assert.Equal(t, variants[0].Names, tuned[0].Names)
	// no timed run happened: the dead-code sink is untouched
	assert.Equal(t, sink, testSum)
}

func TestTunedVariantsEndToEnd(t *testing.T) {
	m := testCSRMatrix(200)
	tuned := TunedVariants(m, Options{NMeasure: 2})
	assert.Equal(t, 1, len(tuned))
	assert.NotNil(t, tuned[0].Kernels[sparse.SpMVFull])
	assert.NotNil(t, tuned[0].Kernels[sparse.SpMVSubDiag])

	// applying the tuned variant keeps the product correct
	var (
		n    = m.NRows()
		x    = make([]float64, n)
		want = make([]float64, n)
		got  = make([]float64, n)
	)
	for i := range x {
		x[i] = float64(i % 5)
	}
	m.VectorMultiply(x, want)
	m.ApplyVariant(tuned[0])
	m.VectorMultiply(x, got)
	for i := range got {
		assert.InDelta(t, want[i], got[i], 1.e-12)
	}
}
