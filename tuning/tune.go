// Package tuning benchmarks the registered SpMV kernel variants of a matrix
// and selects the fastest per operation type, separately for host and device
// execution. The selection is process-wide consistent: per-variant costs are
// reduced with a max across ranks before comparison, so stragglers dominate
// and every rank picks the same winner.
package tuning

import (
	"fmt"
	"time"

	"github.com/flowsolve/gosles/parallel"
	"github.com/flowsolve/gosles/sparse"
)

type Options struct {
	Verbosity int
	NMeasure  int // minimum number of timed runs per kernel
	Comm      parallel.Comm
	// HaveDevice widens the result to 3 variants: combined, host-only and
	// device-only.
	HaveDevice bool
}

// testSum is a package-level sink so the timed SpMV calls cannot be
// eliminated as dead code.
var testSum float64

// measure times every (variant, operation) pair and fills costs with the
// per-call wall-clock cost, -1 marking unmeasured slots. The caller's matrix
// is never mutated: candidate kernels are invoked directly.
func measure(m *sparse.Matrix, variants []*sparse.Variant,
	nMeasure int, comm parallel.Comm) (costs []float64) {
	var (
		nRuns = nMeasure
		bSize = m.DiagBlockSize()
		n     = m.NCols() * bSize
	)
	if nRuns < 1 {
		nRuns = 1
	}

	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = 1.0
	}

	costs = make([]float64, len(variants)*int(sparse.SpMVNTypes))
	for i := range costs {
		costs[i] = -1
	}

	for vID, v := range variants {
		for op := sparse.SpMVType(0); op < sparse.SpMVNTypes; op++ {
			kernel := v.Kernels[op]
			if kernel == nil {
				continue
			}
			if v.Locs[op] != m.AllocMode() {
				continue
			}

			// Untimed first run absorbs any lazy initialization cost
			kernel(m, x, y)

			t0 := time.Now()
			for run := 0; run < nRuns; run++ {
				kernel(m, x, y)
				testSum += y[n-1]
			}
			elapsed := time.Since(t0).Seconds()

			if comm.Size() > 1 {
				elapsed = comm.AllreduceMax(elapsed)
			}
			costs[vID*int(sparse.SpMVNTypes)+int(op)] = elapsed / float64(nRuns)
		}
	}
	return
}

// selectVariants picks, per operation type and per location class
// (0=combined, 1=host, 2=device), the variant with the lowest measured cost.
// Ties keep the first variant in scan order. The combined class takes the
// faster of the host and device winners.
func selectVariants(m *sparse.Matrix, variants []*sparse.Variant,
	nRVariants int, costs []float64, verbosity int) (tuned []*sparse.Variant) {
	var (
		nOps = int(sparse.SpMVNTypes)
		minC [3][2]int
	)
	for k := 0; k < 3; k++ {
		for j := 0; j < nOps; j++ {
			minC[k][j] = -1
		}
	}

	for i, v := range variants {
		for j := 0; j < nOps; j++ {
			c := costs[i*nOps+j]
			if c <= 0 {
				continue
			}
			k := 1
			if v.Locs[j] == sparse.Device {
				k = 2
			}
			if minC[k][j] < 0 || c < costs[minC[k][j]*nOps+j] {
				minC[k][j] = i
			}
		}
	}

	for j := 0; j < nOps; j++ {
		if minC[1][j] > -1 {
			minC[0][j] = minC[1][j]
		}
		if minC[2][j] > -1 {
			if minC[0][j] > -1 {
				if costs[minC[2][j]*nOps+j] < costs[minC[0][j]*nOps+j] {
					minC[0][j] = minC[2][j]
				}
			} else {
				minC[0][j] = minC[2][j]
			}
		}
	}

	tuned = make([]*sparse.Variant, nRVariants)
	for k := 0; k < nRVariants; k++ {
		out := &sparse.Variant{Fill: m.FillType()}
		for j := 0; j < nOps; j++ {
			if minC[k][j] > -1 {
				src := variants[minC[k][j]]
				out.Names[j] = src.Names[j]
				out.Kernels[j] = src.Kernels[j]
				out.Locs[j] = src.Locs[j]
			}
		}
		tuned[k] = out
	}

	if verbosity > 0 {
		hdType := []string{"", "host ", "device "}
		for k := 0; k < nRVariants; k++ {
			fmt.Printf("\nSelected %sSpMV variant for matrix of type %s:\n",
				hdType[k], m.TypeName())
			for j := sparse.SpMVType(0); j < sparse.SpMVNTypes; j++ {
				if minC[k][j] > -1 {
					speedup := costs[int(j)] /
						costs[minC[k][j]*nOps+int(j)]
					fmt.Printf("  %32s for %s (speedup: %6.2f)\n",
						tuned[k].Names[j], j.Name(), speedup)
				}
			}
		}
	}
	return
}

// TunedVariants benchmarks all registered kernel variants for the matrix and
// returns the best performers: one variant on host-only builds, three
// (combined, host-only, device-only) when a device is present. A matrix with
// fewer than two candidates is returned verbatim, without any timed run.
func TunedVariants(m *sparse.Matrix, opts Options) (tuned []*sparse.Variant) {
	if opts.Comm == nil {
		opts.Comm = parallel.SelfComm{}
	}
	nRVariants := 1
	if opts.HaveDevice {
		nRVariants = 3
	}

	variants := sparse.BuildVariantList(m)
	if len(variants) < 2 {
		return variants
	}

	if opts.Verbosity > 0 {
		fmt.Printf("\nTuning for matrices of type %s\n"+
			"===========================\n", m.TypeName())
	}

	costs := measure(m, variants, opts.NMeasure, opts.Comm)
	tuned = selectVariants(m, variants, nRVariants, costs, opts.Verbosity)

	// A single profiled run of the winning y <= A.x kernel gives the
	// hardware-counter context for the wall-clock numbers above.
	if opts.Verbosity > 1 && tuned[0].Kernels[sparse.SpMVFull] != nil {
		logHWCounters(m, tuned[0])
	}
	if opts.Verbosity > 0 {
		fmt.Printf("\n")
	}
	return
}
