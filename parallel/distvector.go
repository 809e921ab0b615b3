package parallel

import "math"

// DistVector couples a scatter-view vector with the RangeSet describing its
// shared DOFs, so that reductions and layout conversions cannot be applied
// with mismatched metadata.
type DistVector struct {
	Data []float64
	RSet *RangeSet
}

func NewDistVector(rs *RangeSet) (dv *DistVector) {
	dv = &DistVector{
		Data: make([]float64, rs.NScatter()),
		RSet: rs,
	}
	return
}

// Gather compacts the vector to the gather view in place; Scatter re-expands
// it, duplicating owned values into the shared copies.
func (dv *DistVector) Gather()  { dv.RSet.Gather(1, dv.Data) }
func (dv *DistVector) Scatter() { dv.RSet.Scatter(1, dv.Data) }

// InterfaceSum accumulates the partial values of shared DOFs so every copy
// holds the full sum.
func (dv *DistVector) InterfaceSum() { dv.RSet.InterfaceSum(1, dv.Data) }

// Zero clears the scatter view.
func (dv *DistVector) Zero() {
	for i := range dv.Data {
		dv.Data[i] = 0
	}
}

func (dv *DistVector) Dot(other *DistVector) float64 {
	if dv.RSet != other.RSet {
		panic("dot product across different range sets")
	}
	return dv.RSet.DotGather(dv.Data, other.Data)
}

func (dv *DistVector) Norm() float64 {
	return math.Sqrt(dv.RSet.DotGather(dv.Data, dv.Data))
}
