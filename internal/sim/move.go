package sim

import (
	"sync/atomic"
)

// Fallback records a move selection whose random target was not covered by
// the cumulative weights of the rat's neighbors. It can only happen through
// floating-point round-off; the rat then stays on its own node, which is
// always the first entry of its neighbor list.
type Fallback struct {
	Rat    int
	Node   int
	Degree int
	Target float64
	Total  float64
	Limit  float64
}

// chooseMove draws rat r's next node by inverse-CDF over its neighbor list,
// weighting each neighbor by its committed occupancy. It reads shared state
// only; the rat's own random stream is the single value it mutates.
func (s *State) chooseMove(r int) (int32, *Fallback) {
	node := s.positions[r]
	nbrs := s.g.Neighbors(int(node))

	total := s.weights.SumWeight(nbrs, s.counts)
	target := s.streams[r].NextFloat(total)

	acc := 0.0
	for _, n := range nbrs {
		acc += s.weights.At(s.counts[n])
		if target < acc {
			return n, nil
		}
	}
	return nbrs[0], &Fallback{
		Rat:    r,
		Node:   int(node),
		Degree: len(nbrs),
		Target: target,
		Total:  total,
		Limit:  acc,
	}
}

// commit applies the chosen moves of rats [lo, hi). With shared set, count
// updates are atomic so disjoint ranges can commit concurrently.
func (s *State) commit(lo, hi int, shared bool) {
	for r := lo; r < hi; r++ {
		from, to := s.positions[r], s.next[r]
		if from == to {
			continue
		}
		if shared {
			atomic.AddInt32(&s.counts[from], -1)
			atomic.AddInt32(&s.counts[to], 1)
		} else {
			s.counts[from]--
			s.counts[to]++
		}
		s.positions[r] = to
	}
}
