package sparse

// Variant is a named candidate set of SpMV kernels, one per operation type.
// Variants are built in a list for the tuning engine and discarded after the
// best performers are copied into the returned tuned variants.
type Variant struct {
	Names   [SpMVNTypes]string
	Kernels [SpMVNTypes]Kernel
	Locs    [SpMVNTypes]Location // per-operation host/device tag
	Fill    FillType
}

// Loc returns the variant's location when all set slots agree, defaulting
// to Host. Tuned "combined" variants may mix locations per operation.
func (v *Variant) Loc() Location {
	for op := SpMVType(0); op < SpMVNTypes; op++ {
		if v.Kernels[op] != nil && v.Locs[op] == Device {
			return Device
		}
	}
	return Host
}

// BuildVariantList enumerates the registered kernel variants applicable to
// the matrix. Kernels sharing a name across operation types are grouped into
// one variant; a variant may leave an operation slot unset.
func BuildVariantList(m *Matrix) (variants []*Variant) {
	var (
		index = make(map[string]*Variant)
		order []string
	)
	for op := SpMVType(0); op < SpMVNTypes; op++ {
		for _, loc := range []Location{Host, Device} {
			for _, rk := range lookupKernels(m.storage, m.fill, op, loc) {
				key := rk.Name + string(rk.Loc)
				v, ok := index[key]
				if !ok {
					v = &Variant{Fill: m.fill}
					index[key] = v
					order = append(order, key)
				}
				v.Names[op] = rk.Name
				v.Kernels[op] = rk.Fn
				v.Locs[op] = rk.Loc
			}
		}
	}
	for _, key := range order {
		variants = append(variants, index[key])
	}
	return
}
