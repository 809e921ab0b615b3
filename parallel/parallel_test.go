package parallel

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeSet(t *testing.T) {
	{ // Gather / Scatter round trip on a set with shared DOFs
		// scatter positions 0..5; positions 2 and 4 share slot 2, 3 and 5
		// share slot 3
		rs := NewRangeSet([]int{0, 1, 2, 3, 2, 3}, nil)
		assert.Equal(t, 6, rs.NScatter())
		assert.Equal(t, 4, rs.NGather())

		v := []float64{10, 11, 12, 13, 99, 98}
		rs.Gather(1, v)
		assert.Equal(t, []float64{10, 11, 12, 13}, v[:4])

		rs.Scatter(1, v)
		assert.Equal(t, []float64{10, 11, 12, 13, 12, 13}, v)
	}
	{ // InterfaceSum accumulates duplicates into every copy
		rs := NewRangeSet([]int{0, 1, 2, 1}, nil)
		v := []float64{1, 2, 3, 5}
		rs.InterfaceSum(1, v)
		assert.Equal(t, []float64{1, 7, 3, 7}, v)
	}
	{ // DotGather counts each shared DOF once
		rs := NewRangeSet([]int{0, 1, 1}, nil)
		x := []float64{2, 3, 3}
		y := []float64{4, 5, 5}
		assert.InDelta(t, 2*4+3*5, rs.DotGather(x, y), 1.e-14)
	}
	{ // Strided gather/scatter
		rs := NewRangeSet([]int{0, 1, 0}, nil)
		v := []float64{1, 2, 3, 4, -1, -2}
		rs.Gather(2, v)
		assert.Equal(t, []float64{1, 2, 3, 4}, v[:4])
		rs.Scatter(2, v)
		assert.Equal(t, []float64{1, 2, 3, 4, 1, 2}, v)
	}
	{ // Out-of-order slot numbering is rejected
		assert.Panics(t, func() { NewRangeSet([]int{1, 0}, nil) })
	}
}

func TestDistVector(t *testing.T) {
	rs := NewRangeSet([]int{0, 1, 1}, nil)
	a := &DistVector{Data: []float64{1, 2, 2}, RSet: rs}
	b := &DistVector{Data: []float64{3, 4, 4}, RSet: rs}
	assert.InDelta(t, 1*3+2*4, a.Dot(b), 1.e-14)
	assert.InDelta(t, math.Sqrt(5), a.Norm(), 1.e-14)

	{ // layout conversions carry the vector's own range set
		dv := NewDistVector(rs)
		copy(dv.Data, []float64{7, 8, -1})
		dv.Gather()
		assert.Equal(t, []float64{7, 8}, dv.Data[:2])
		dv.Scatter()
		assert.Equal(t, []float64{7, 8, 8}, dv.Data)

		copy(dv.Data, []float64{1, 2, 5})
		dv.InterfaceSum()
		assert.Equal(t, []float64{1, 7, 7}, dv.Data)

		dv.Zero()
		assert.Equal(t, []float64{0, 0, 0}, dv.Data)
	}
}

func TestThreadComm(t *testing.T) {
	var (
		np = 4
		tc = NewThreadComm(np)
	)
	{ // Scalar allreduce sum and max across np goroutines
		var (
			wg   sync.WaitGroup
			sums = make([]float64, np)
			maxs = make([]float64, np)
		)
		for r := 0; r < np; r++ {
			wg.Add(1)
			go func(rank int) {
				defer wg.Done()
				c := tc.RankComm(rank)
				sums[rank] = c.AllreduceSum(float64(rank + 1))
				maxs[rank] = c.AllreduceMax(float64(rank + 1))
			}(r)
		}
		wg.Wait()
		for r := 0; r < np; r++ {
			assert.InDelta(t, 10., sums[r], 1.e-14) // 1+2+3+4
			assert.InDelta(t, 4., maxs[r], 1.e-14)
		}
	}
	{ // Slice allreduce matches the serial reduction
		var (
			wg  sync.WaitGroup
			out = make([][]float64, np)
		)
		for r := 0; r < np; r++ {
			wg.Add(1)
			go func(rank int) {
				defer wg.Done()
				c := tc.RankComm(rank)
				v := []float64{float64(rank), float64(2 * rank)}
				c.AllreduceSumSlice(v)
				out[rank] = v
			}(r)
		}
		wg.Wait()
		for r := 0; r < np; r++ {
			assert.Equal(t, []float64{6, 12}, out[r]) // 0+1+2+3, 0+2+4+6
		}
	}
}

func TestPartitionMap(t *testing.T) {
	pm := NewPartitionMap(4, 10)
	total := 0
	for np := 0; np < pm.ParallelDegree; np++ {
		total += pm.GetBucketDimension(np)
	}
	assert.Equal(t, 10, total)
	for k := 0; k < 10; k++ {
		bn, min, max := pm.GetBucket(k)
		mmin, mmax := pm.GetBucketRange(bn)
		assert.True(t, k >= min && k < max && min == mmin && max == mmax)
	}
}
