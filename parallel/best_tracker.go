package parallel

import (
	"sync"

	"ica/atomic_float"
)

// bestTracker merges concurrent candidate (position, fitness) updates
// by argmin, matching spec §4.4's "per-thread reductions that merge by
// taking the argmin of fitness."
//
// A naive CAS-loop-only design has a real race: two concurrent
// improving candidates' fitness and position writes can interleave,
// letting a later, worse candidate's position overwrite an earlier,
// better candidate's already-published fitness. bestTracker instead
// uses an atomic_float.AtomicFloat64 purely as a fast-path read cache
// for early rejection of non-improving candidates, with a
// mutex-protected (fitness, position) pair as the single source of
// truth; the cache is republished under the same lock that updates
// the pair, so the two never disagree.
type bestTracker struct {
	cache *atomic_float.AtomicFloat64

	mu       sync.Mutex
	fitness  float64
	position []float64
}

func newBestTracker(fitness float64, position []float64) *bestTracker {
	return &bestTracker{
		cache:    atomic_float.NewAtomicFloat64(fitness),
		fitness:  fitness,
		position: append([]float64(nil), position...),
	}
}

// TryImprove records (position, fitness) as the new best if it beats
// the current one. Safe for concurrent use by any number of workers.
func (t *bestTracker) TryImprove(position []float64, fitness float64) {
	if fitness >= t.cache.AtomicRead() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if fitness < t.fitness {
		t.fitness = fitness
		t.position = append([]float64(nil), position...)
		t.cache.AtomicSet(fitness)
	}
}

// Best returns the current best (fitness, position) pair.
func (t *bestTracker) Best() (float64, []float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fitness, append([]float64(nil), t.position...)
}
