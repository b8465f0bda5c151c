// Package rng implements the small deterministic random stream each rat
// carries. The generator is a Lehmer-style congruential generator over the
// prime 2^31-1 whose state fits in 32 bits, so a stream is a plain value
// that can live in a slice without sharing.
package rng

// Generator parameters. GroupSize is prime; MVal and VVal are the
// minstd_rand multipliers.
const (
	GroupSize = 2147483647
	MVal      = 48271
	VVal      = 16807

	// InitSeed is the state every Reseed starts from.
	InitSeed = 418

	// DefaultSeed is the global seed used when none is configured.
	DefaultSeed = 618
)

// Stream is a pseudo-random stream. The zero value is not seeded; use New
// or Reseed. A Stream must not be shared between goroutines.
type Stream struct {
	state uint32
}

// New returns a stream reseeded from seeds.
func New(seeds ...uint32) Stream {
	var s Stream
	s.Reseed(seeds...)
	return s
}

// State returns the current internal state.
func (s *Stream) State() uint32 { return s.state }

// next folds x into the state and returns the new state.
func (s *Stream) next(x uint32) uint32 {
	v := ((uint64(x)+1)*VVal + uint64(s.state)*MVal) % GroupSize
	s.state = uint32(v)
	return s.state
}

// Reseed resets the stream to InitSeed and folds each seed through the
// transition in order. Equal seed lists always yield equal streams.
func (s *Stream) Reseed(seeds ...uint32) {
	s.state = InitSeed
	for _, x := range seeds {
		s.next(x)
	}
}

// NextFloat advances the stream and returns a value in [0, upper).
func (s *Stream) NextFloat(upper float64) float64 {
	v := s.next(0)
	return (float64(v) / float64(GroupSize)) * upper
}

// NextInt returns an integer uniformly drawn from [lower, upper].
func (s *Stream) NextInt(lower, upper int) int {
	return lower + int(s.NextFloat(1.0)*float64(upper+1-lower))
}

// Permute returns the indices 0..n-1 in random order (Fisher-Yates from
// the top).
func (s *Stream) Permute(n int) []int {
	a := make([]int, n)
	for i := range a {
		a[i] = i
	}
	for k := n; k > 1; k-- {
		idx := s.NextInt(0, k-1)
		a[idx], a[k-1] = a[k-1], a[idx]
	}
	return a
}
