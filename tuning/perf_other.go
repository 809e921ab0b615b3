//go:build !linux

package tuning

import "github.com/flowsolve/gosles/sparse"

// Hardware counters are only wired on Linux.
func logHWCounters(m *sparse.Matrix, v *sparse.Variant) {}
