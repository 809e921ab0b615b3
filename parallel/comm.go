package parallel

import (
	"math"
	"sync"
)

// Comm is the per-rank handle used for collective reductions. Every solver
// routine that needs a global dot product, norm or max goes through one of
// these. All collectives are synchronous: each rank must reach the same call
// the same number of times.
type Comm interface {
	Rank() int
	Size() int
	AllreduceSum(v float64) float64
	AllreduceMax(v float64) float64
	AllreduceSumSlice(v []float64)
	AllreduceMaxSlice(v []float64)
}

// SelfComm is the single-rank communicator. All reductions are identities.
type SelfComm struct{}

func (SelfComm) Rank() int                      { return 0 }
func (SelfComm) Size() int                      { return 1 }
func (SelfComm) AllreduceSum(v float64) float64 { return v }
func (SelfComm) AllreduceMax(v float64) float64 { return v }
func (SelfComm) AllreduceSumSlice(v []float64)  {}
func (SelfComm) AllreduceMaxSlice(v []float64)  {}

// barrier is a reusable sense-reversing barrier for NP in-process ranks.
type barrier struct {
	mu    sync.Mutex
	cond  *sync.Cond
	np    int
	count int
	phase int
}

func newBarrier(np int) (b *barrier) {
	b = &barrier{np: np}
	b.cond = sync.NewCond(&b.mu)
	return
}

func (b *barrier) wait() {
	b.mu.Lock()
	phase := b.phase
	b.count++
	if b.count == b.np {
		b.count = 0
		b.phase++
		b.cond.Broadcast()
	} else {
		for phase == b.phase {
			b.cond.Wait()
		}
	}
	b.mu.Unlock()
}

// ThreadComm implements collective reductions across NP goroutine "ranks"
// within one process. Each participating goroutine holds its own RankComm
// handle obtained from RankComm(n).
type ThreadComm struct {
	NP  int
	mu  sync.Mutex
	bar *barrier

	accScalar float64
	accSlice  []float64
	nPending  int
}

func NewThreadComm(NP int) (tc *ThreadComm) {
	if NP < 1 {
		panic("ThreadComm requires at least one rank")
	}
	tc = &ThreadComm{
		NP:  NP,
		bar: newBarrier(NP),
	}
	return
}

// RankComm returns the communicator handle for rank n.
func (tc *ThreadComm) RankComm(n int) Comm {
	if n < 0 || n >= tc.NP {
		panic("rank out of range")
	}
	return &rankComm{rank: n, tc: tc}
}

type rankComm struct {
	rank int
	tc   *ThreadComm
}

func (rc *rankComm) Rank() int { return rc.rank }
func (rc *rankComm) Size() int { return rc.tc.NP }

func (rc *rankComm) allreduce(v float64, op func(a, b float64) float64) float64 {
	tc := rc.tc
	tc.mu.Lock()
	if tc.nPending == 0 {
		tc.accScalar = v
	} else {
		tc.accScalar = op(tc.accScalar, v)
	}
	tc.nPending++
	tc.mu.Unlock()
	tc.bar.wait()
	res := tc.accScalar
	if rc.rank == 0 {
		tc.nPending = 0
	}
	tc.bar.wait()
	return res
}

func (rc *rankComm) AllreduceSum(v float64) float64 {
	return rc.allreduce(v, func(a, b float64) float64 { return a + b })
}

func (rc *rankComm) AllreduceMax(v float64) float64 {
	return rc.allreduce(v, math.Max)
}

func (rc *rankComm) allreduceSlice(v []float64, op func(a, b float64) float64) {
	tc := rc.tc
	tc.mu.Lock()
	if tc.nPending == 0 {
		tc.accSlice = append(tc.accSlice[:0], v...)
	} else {
		if len(tc.accSlice) != len(v) {
			tc.mu.Unlock()
			panic("mismatched slice lengths in collective reduction")
		}
		for i, val := range v {
			tc.accSlice[i] = op(tc.accSlice[i], val)
		}
	}
	tc.nPending++
	tc.mu.Unlock()
	tc.bar.wait()
	copy(v, tc.accSlice)
	if rc.rank == 0 {
		tc.nPending = 0
	}
	tc.bar.wait()
}

func (rc *rankComm) AllreduceSumSlice(v []float64) {
	rc.allreduceSlice(v, func(a, b float64) float64 { return a + b })
}

func (rc *rankComm) AllreduceMaxSlice(v []float64) {
	rc.allreduceSlice(v, math.Max)
}
