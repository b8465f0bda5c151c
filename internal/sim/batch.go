package sim

import (
	"golang.org/x/sync/errgroup"
)

// parallelThreshold is the smallest batch split across workers. Smaller
// batches run on the calling goroutine.
const parallelThreshold = 256

// pool splits index ranges across a bounded set of goroutines.
type pool struct {
	threads int
}

// parallel reports whether a range of n items is split across workers.
func (p pool) parallel(n int) bool {
	return p.threads > 1 && n >= parallelThreshold
}

// each calls fn on contiguous, disjoint sub-ranges covering [lo, hi) and
// returns once every call has finished.
func (p pool) each(lo, hi int, fn func(lo, hi int)) {
	n := hi - lo
	if !p.parallel(n) {
		fn(lo, hi)
		return
	}
	chunks := min(p.threads, n)
	size := (n + chunks - 1) / chunks

	var g errgroup.Group
	g.SetLimit(p.threads)
	for start := lo; start < hi; start += size {
		end := min(start+size, hi)
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
}
