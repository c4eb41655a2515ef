// Package rng provides the explicit, instance-owned random sources the
// engine and its parallel drivers need: one stream per engine, one
// sub-stream per worker thread or distributed peer. No stream is ever
// shared across goroutines, so none of the Source methods are
// synchronized.
package rng

import "math/rand"

// Source is a single, non-shared uniform random stream. Exactly one
// goroutine may call its methods at a time.
type Source struct {
	r *rand.Rand
}

// New returns a Source seeded deterministically from seed.
func New(seed int64) *Source {
	return &Source{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a uniform sample in [0, 1).
func (s *Source) Float64() float64 {
	return s.r.Float64()
}

// Uniform returns a uniform sample in [lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	return lo + s.r.Float64()*(hi-lo)
}

// IntN returns a uniform sample in [0, n).
func (s *Source) IntN(n int) int {
	return s.r.Intn(n)
}

// Perm returns a random permutation of [0, n).
func (s *Source) Perm(n int) []int {
	return s.r.Perm(n)
}

// Fork derives an independent sub-stream for worker/peer streamID,
// mixing the parent's seed material with the stream id via a splitmix64
// step so sibling streams do not share state or overlapping sequences.
// This is what lets the shared-memory driver give each worker thread
// its own stream without any of them touching a shared RNG. (The
// distributed driver does not use Fork: it draws each peer's seed from
// a master Source with IntN.)
func (s *Source) Fork(streamID int) *Source {
	mixed := splitmix64(uint64(s.r.Int63())^uint64(streamID)*0x9E3779B97F4A7C15 + 1)
	return New(int64(mixed))
}

// splitmix64 is a fast, well-distributed integer mixer used only to
// derive child seeds; it is not used as a generator in its own right.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}
