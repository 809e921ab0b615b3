package parallel

// RangeSet converts vectors between the mesh-local "scatter" layout, where
// degrees of freedom shared between ranks appear once per sharing rank, and
// the deduplicated "gather" layout used for algebraic operations and global
// reductions.
//
// GatherIndex maps every scatter position to its gather slot. The first
// scatter position mapping to a slot is the owner; Gather compacts owner
// values to the front of the array, Scatter re-expands them. Both operate
// in place so a single buffer can hold either view, which is the layout the
// saddle-point solver relies on.
type RangeSet struct {
	GatherIndex []int // len = NScatter, values in [0, NGather)
	nGather     int
	owner       []int   // gather slot -> owning scatter position
	shared      [][]int // gather slot -> all scatter positions (only for slots with > 1)
	Comm        Comm
}

func NewRangeSet(gatherIndex []int, comm Comm) (rs *RangeSet) {
	if comm == nil {
		comm = SelfComm{}
	}
	rs = &RangeSet{
		GatherIndex: gatherIndex,
		Comm:        comm,
	}
	nG := 0
	for _, g := range gatherIndex {
		if g+1 > nG {
			nG = g + 1
		}
	}
	rs.nGather = nG
	rs.owner = make([]int, nG)
	for i := range rs.owner {
		rs.owner[i] = -1
	}
	members := make([][]int, nG)
	for i, g := range gatherIndex {
		if rs.owner[g] == -1 {
			rs.owner[g] = i
		}
		members[g] = append(members[g], i)
	}
	rs.shared = members
	for g, o := range rs.owner {
		if o < g {
			// Slot numbering must follow first-occurrence order so that the
			// gather view occupies a prefix of the scatter view.
			panic("range set: gather slots not numbered in first-occurrence order")
		}
	}
	return
}

// IdentityRangeSet builds the trivial range set where scatter and gather
// views coincide (no shared DOFs).
func IdentityRangeSet(n int, comm Comm) (rs *RangeSet) {
	gi := make([]int, n)
	for i := range gi {
		gi[i] = i
	}
	return NewRangeSet(gi, comm)
}

func (rs *RangeSet) NScatter() int { return len(rs.GatherIndex) }
func (rs *RangeSet) NGather() int  { return rs.nGather }

// Gather compacts v from the scatter view into the gather view in place.
// Only the owner copy of each shared DOF survives. stride is the number of
// interlaced components per DOF.
func (rs *RangeSet) Gather(stride int, v []float64) {
	if len(v) < rs.NScatter()*stride {
		panic("gather: vector shorter than scatter view")
	}
	for g := 0; g < rs.nGather; g++ {
		src := rs.owner[g]
		if src == g {
			continue
		}
		copy(v[g*stride:(g+1)*stride], v[src*stride:(src+1)*stride])
	}
}

// Scatter expands v from the gather view back to the scatter view in place,
// duplicating shared DOF values into every copy. Gather positions are a
// prefix of scatter positions, so the expansion runs backwards to avoid
// overwriting unread slots.
func (rs *RangeSet) Scatter(stride int, v []float64) {
	if len(v) < rs.NScatter()*stride {
		panic("scatter: vector shorter than scatter view")
	}
	for i := rs.NScatter() - 1; i >= 0; i-- {
		g := rs.GatherIndex[i]
		if g == i {
			continue
		}
		copy(v[i*stride:(i+1)*stride], v[g*stride:(g+1)*stride])
	}
}

// InterfaceSum accumulates the duplicated copies of every shared DOF and
// writes the sum back into each copy (the parallel assembly step after an
// unsynchronized matrix-vector product on the scatter view).
func (rs *RangeSet) InterfaceSum(stride int, v []float64) {
	for g := 0; g < rs.nGather; g++ {
		m := rs.shared[g]
		if len(m) < 2 {
			continue
		}
		for s := 0; s < stride; s++ {
			sum := 0.
			for _, i := range m {
				sum += v[i*stride+s]
			}
			for _, i := range m {
				v[i*stride+s] = sum
			}
		}
	}
}

// DotGather computes the dot product of x and y over the gather view and
// reduces it across ranks. x and y are given in scatter view and are left
// unchanged.
func (rs *RangeSet) DotGather(x, y []float64) (dp float64) {
	for g := 0; g < rs.nGather; g++ {
		i := rs.owner[g]
		dp += x[i] * y[i]
	}
	dp = rs.Comm.AllreduceSum(dp)
	return
}
