package dispatch

// Test-only accessors for the external test package; the fields themselves
// stay unexported.

func (bd *Binding) Sub() []*Binding { return bd.sub }

func (bd *Binding) BackendSolver() Solver { return bd.solver }
