//go:build linux

package tuning

import (
	"fmt"
	"os"

	perf "github.com/hodgesds/perf-utils"

	"github.com/flowsolve/gosles/sparse"
)

// logHWCounters runs the variant's full SpMV kernel once under hardware
// performance counters and prints the cycle and instruction counts. Device
// variants are skipped: the CPU counters would only see the launch overhead.
func logHWCounters(m *sparse.Matrix, v *sparse.Variant) {
	if v.Loc() == sparse.Device {
		return
	}
	profiler, err := perf.NewHardwareProfiler(os.Getpid(), -1,
		perf.AllHardwareProfilers)
	if err != nil && !profiler.HasProfilers() {
		return
	}
	defer profiler.Close()

	n := m.NCols() * m.DiagBlockSize()
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = 1.0
	}

	if err = profiler.Start(); err != nil {
		return
	}
	v.Kernels[sparse.SpMVFull](m, x, y)
	testSum += y[n-1]

	profile := &perf.HardwareProfile{}
	if err = profiler.Profile(profile); err != nil {
		return
	}
	profiler.Stop()

	if profile.CPUCycles != nil && profile.Instructions != nil {
		fmt.Printf("  %32s hw counters: %d cycles, %d instructions\n",
			v.Names[sparse.SpMVFull], *profile.CPUCycles,
			*profile.Instructions)
	}
}
