package sparse

// The kernel registry maps (storage, fill, operation) capability tags to the
// list of candidate kernels for that slot, in registration order. The first
// registered kernel is the default installed at matrix construction; the
// tuning engine may later select a faster one.

type RegisteredKernel struct {
	Name string
	Loc  Location
	Fn   Kernel
}

type registryKey struct {
	st StorageType
	ft FillType
	op SpMVType
}

var kernelRegistry = map[registryKey][]RegisteredKernel{}

// RegisterKernel adds a candidate kernel for the given capability tags.
// Registration happens at package initialization; the registry is read-only
// afterwards.
func RegisterKernel(st StorageType, ft FillType, op SpMVType,
	name string, loc Location, fn Kernel) {
	key := registryKey{st, ft, op}
	kernelRegistry[key] = append(kernelRegistry[key], RegisteredKernel{
		Name: name,
		Loc:  loc,
		Fn:   fn,
	})
}

func lookupKernels(st StorageType, ft FillType, op SpMVType,
	loc Location) (out []RegisteredKernel) {
	for _, rk := range kernelRegistry[registryKey{st, ft, op}] {
		if rk.Loc == loc {
			out = append(out, rk)
		}
	}
	return
}

func init() {
	for _, ft := range []FillType{FillScalar, FillScalarSym} {
		RegisterKernel(Native, ft, SpMVFull, "native", Host, nativeSpMV)
		RegisterKernel(Native, ft, SpMVSubDiag, "native", Host, nativeSpMVSubDiag)
		RegisterKernel(Native, ft, SpMVFull, "native_u2", Host, nativeSpMVU2)
		RegisterKernel(Native, ft, SpMVSubDiag, "native_u2", Host, nativeSpMVSubDiagU2)

		RegisterKernel(CSR, ft, SpMVFull, "csr", Host, csrSpMV)
		RegisterKernel(CSR, ft, SpMVSubDiag, "csr", Host, csrSpMVSubDiag)
		RegisterKernel(CSR, ft, SpMVFull, "csr_u4", Host, csrSpMVU4)
		RegisterKernel(CSR, ft, SpMVFull, "csr_parallel", Host, csrSpMVParallel)
		RegisterKernel(CSR, ft, SpMVSubDiag, "csr_parallel", Host, csrSpMVSubDiagParallel)
		RegisterKernel(CSR, ft, SpMVFull, "csr_threads", Host, csrSpMVThreads)
		RegisterKernel(CSR, ft, SpMVSubDiag, "csr_threads", Host, csrSpMVSubDiagThreads)
	}

	// Block fill has a single native variant; tuning takes the
	// single-variant shortcut for these matrices.
	RegisterKernel(Native, FillBlockDiag33, SpMVFull, "native_b33", Host,
		nativeBlock33SpMV)
	RegisterKernel(Native, FillBlockDiag33, SpMVSubDiag, "native_b33", Host,
		nativeBlock33SpMVSubDiag)
}
