package sparse

import (
	"fmt"
	"runtime"

	jbsparse "github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"

	"github.com/flowsolve/gosles/parallel"
)

// Kernel computes one SpMV operation for a matrix. Kernels never allocate
// and never mutate the matrix, so candidate kernels can be benchmarked
// against a live matrix without copying it.
type Kernel func(m *Matrix, x, y []float64)

// nativeStorage is the edge-based (MSR-like) representation: the diagonal
// is stored separately, the extra-diagonal terms as an edge list. For
// symmetric fill each edge carries both (i,j) and (j,i) contributions.
type nativeStorage struct {
	edgeI, edgeJ []int
	edgeVals     []float64
	// 3x3 diagonal blocks for FillBlockDiag33, row-major, 9 per DOF
	diagBlocks []float64
}

// csrStorage wraps a james-bowman CSR matrix; kernels work on the raw
// index/data arrays. The row partition for the threaded kernel variant is
// resolved once at construction.
type csrStorage struct {
	M  *jbsparse.CSR
	pm *parallel.PartitionMap
}

// Matrix is the opaque sparse-matrix handle consumed by the solvers and the
// tuning engine. Exactly one kernel per (operation, location) slot is active
// at a time; the slots are resolved from the registry at construction.
type Matrix struct {
	nRows, nCols int
	fill         FillType
	storage      StorageType
	allocMode    Location

	diag []float64 // scalar diagonal (per-DOF for scalar fills)

	native *nativeStorage
	csr    *csrStorage

	kernels  [SpMVNTypes]Kernel // host slots
	kernelsD [SpMVNTypes]Kernel // device slots, unset on host-only builds
}

func (m *Matrix) NRows() int           { return m.nRows }
func (m *Matrix) NCols() int           { return m.nCols }
func (m *Matrix) FillType() FillType   { return m.fill }
func (m *Matrix) Storage() StorageType { return m.storage }
func (m *Matrix) AllocMode() Location  { return m.allocMode }
func (m *Matrix) DiagBlockSize() int   { return m.fill.DiagBlockSize() }

func (m *Matrix) TypeName() string {
	return fmt.Sprintf("%s/%s", m.storage.Name(), m.fill.Name())
}

// Diag returns the scalar diagonal. For block fill types the scalar diagonal
// holds the block traces' per-component entries and DiagBlocks holds the
// full blocks.
func (m *Matrix) Diag() []float64 { return m.diag }

func (m *Matrix) DiagBlocks() []float64 {
	if m.native == nil {
		return nil
	}
	return m.native.diagBlocks
}

// CSRRaw exposes the compressed-row arrays for row-ordered traversals
// (triangular preconditioner sweeps). Nil for non-CSR storage.
func (m *Matrix) CSRRaw() *blas.SparseMatrix {
	if m.csr == nil {
		return nil
	}
	return m.csr.M.RawMatrix()
}

// VectorMultiply computes y = A.x using the active kernel.
func (m *Matrix) VectorMultiply(x, y []float64) {
	m.VectorMultiplyPartial(SpMVFull, x, y)
}

// VectorMultiplyPartial computes the requested operator form using the
// active kernel for that slot.
func (m *Matrix) VectorMultiplyPartial(op SpMVType, x, y []float64) {
	k := m.kernels[op]
	if k == nil {
		panic(fmt.Sprintf("no kernel registered for %s on matrix type %s",
			op.Name(), m.TypeName()))
	}
	k(m, x, y)
}

// ApplyVariant installs the kernels selected by a tuning pass.
func (m *Matrix) ApplyVariant(v *Variant) {
	for op := SpMVType(0); op < SpMVNTypes; op++ {
		if v.Kernels[op] == nil {
			continue
		}
		if v.Locs[op] == Device {
			m.kernelsD[op] = v.Kernels[op]
		} else {
			m.kernels[op] = v.Kernels[op]
		}
	}
}

// NewNative builds an edge-based matrix of dimension n with scalar fill.
// The edge lists hold the extra-diagonal coefficients; for FillScalarSym
// each edge (i,j,v) contributes v to both (i,j) and (j,i). Block fill goes
// through NewNativeBlock33, which also carries the full diagonal blocks.
func NewNative(n int, fill FillType, diag []float64,
	edgeI, edgeJ []int, edgeVals []float64) (m *Matrix) {
	if fill == FillBlockDiag33 {
		panic("block diagonal fill requires NewNativeBlock33")
	}
	if len(edgeI) != len(edgeJ) || len(edgeI) != len(edgeVals) {
		panic("mismatched edge array lengths")
	}
	if len(diag) != n*fill.DiagBlockSize() {
		panic("diagonal length does not match matrix dimension")
	}
	m = &Matrix{
		nRows:     n,
		nCols:     n,
		fill:      fill,
		storage:   Native,
		allocMode: Host,
		diag:      diag,
		native: &nativeStorage{
			edgeI:    edgeI,
			edgeJ:    edgeJ,
			edgeVals: edgeVals,
		},
	}
	m.resolveKernels()
	return
}

// NewNativeBlock33 builds an edge-based matrix with 3x3 diagonal blocks
// (row-major, 9 reals per DOF) and scalar extra-diagonal coefficients.
func NewNativeBlock33(n int, diagBlocks []float64,
	edgeI, edgeJ []int, edgeVals []float64) (m *Matrix) {
	if len(diagBlocks) != 9*n {
		panic("block diagonal length must be 9*n")
	}
	if len(edgeI) != len(edgeJ) || len(edgeI) != len(edgeVals) {
		panic("mismatched edge array lengths")
	}
	diag := make([]float64, 3*n)
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			diag[3*i+k] = diagBlocks[9*i+4*k] // block diagonal entries
		}
	}
	m = &Matrix{
		nRows:     n,
		nCols:     n,
		fill:      FillBlockDiag33,
		storage:   Native,
		allocMode: Host,
		diag:      diag,
		native: &nativeStorage{
			edgeI:      edgeI,
			edgeJ:      edgeJ,
			edgeVals:   edgeVals,
			diagBlocks: diagBlocks,
		},
	}
	m.resolveKernels()
	return
}

// NewCSR builds a compressed-row matrix from triplets.
func NewCSR(n int, fill FillType, rows, cols []int, vals []float64) (m *Matrix) {
	if fill == FillBlockDiag33 {
		panic("block fill is only supported by native storage")
	}
	dok := jbsparse.NewDOK(n, n)
	diag := make([]float64, n)
	for k := range vals {
		i, j := rows[k], cols[k]
		dok.Set(i, j, vals[k])
		if i == j {
			diag[i] = vals[k]
		}
		if fill == FillScalarSym && i != j {
			dok.Set(j, i, vals[k])
		}
	}
	m = &Matrix{
		nRows:     n,
		nCols:     n,
		fill:      fill,
		storage:   CSR,
		allocMode: Host,
		diag:      diag,
		csr: &csrStorage{
			M:  dok.ToCSR(),
			pm: parallel.NewPartitionMap(runtime.NumCPU(), n),
		},
	}
	m.resolveKernels()
	return
}

// EachEntry visits every stored coefficient, diagonal first, then the
// extra-diagonal terms (both orientations for symmetric fill). Only scalar
// fill types are supported.
func (m *Matrix) EachEntry(fn func(i, j int, v float64)) {
	if m.fill == FillBlockDiag33 {
		panic("entry iteration is not supported for block fill")
	}
	switch m.storage {
	case Native:
		for i, d := range m.diag {
			fn(i, i, d)
		}
		ns := m.native
		for e := range ns.edgeVals {
			fn(ns.edgeI[e], ns.edgeJ[e], ns.edgeVals[e])
			if m.fill == FillScalarSym {
				fn(ns.edgeJ[e], ns.edgeI[e], ns.edgeVals[e])
			}
		}
	case CSR:
		raw := m.csr.M.RawMatrix()
		for i := 0; i < raw.I; i++ {
			for jj := raw.Indptr[i]; jj < raw.Indptr[i+1]; jj++ {
				fn(i, raw.Ind[jj], raw.Data[jj])
			}
		}
	}
}

// resolveKernels installs the first registered kernel for every operation
// slot of this matrix's storage and fill type.
func (m *Matrix) resolveKernels() {
	for op := SpMVType(0); op < SpMVNTypes; op++ {
		ks := lookupKernels(m.storage, m.fill, op, Host)
		if len(ks) > 0 {
			m.kernels[op] = ks[0].Fn
		}
		kd := lookupKernels(m.storage, m.fill, op, Device)
		if len(kd) > 0 {
			m.kernelsD[op] = kd[0].Fn
		}
	}
	if m.kernels[SpMVFull] == nil {
		panic(fmt.Sprintf("no y <= A.x kernel registered for matrix type %s",
			m.TypeName()))
	}
}
