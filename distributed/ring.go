// Package distributed implements the P-peer ring driver (spec §4.5):
// each peer runs its own engine and periodically exchanges its best
// solution with its ring successor/predecessor.
//
// The spec's own wire format for the migration message is "a
// single-element-type channel of float64" (spec §6) — already a Go
// channel, not a network protocol — so peers here are goroutines
// linked by buffered chan []float64, not OS processes or MPI ranks.
// Barriers are sync.WaitGroup-style rendezvous implemented as
// errgroup.Wait() after each collective step, mirroring
// pica_mp.cpp's MPI_Barrier before and after every migration cycle.
package distributed

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"ica"
	"ica/config"
	"ica/objective"
	"ica/rng"
	"ica/snapshot"
)

// ErrPeerFailed reports that one peer's engine failed during a
// collective step (spec §7 class 3: communication error, fatal to the
// collective, surfaced where possible at rank 0's caller).
type ErrPeerFailed struct {
	Rank int
	Err  error
}

func (e *ErrPeerFailed) Error() string {
	return fmt.Sprintf("distributed: peer %d failed: %v", e.Rank, e.Err)
}

func (e *ErrPeerFailed) Unwrap() error {
	return e.Err
}

// Result is the collective outcome of a ring run: the global best
// point/fitness (reduction, spec §4.5 step 4) and, in visual mode,
// every peer's phase history (gather, spec §4.5 step 5).
type Result struct {
	BestFitness  float64
	BestSolution []float64
	Histories    []snapshot.History
}

// Ring is a P-peer unidirectional ring of independent engines (spec
// §4.5). Peer r sends to r+1 mod P and receives from r-1 mod P.
type Ring struct {
	engines   []*ica.Engine
	recorders []*snapshot.Recorder
	visual    bool
}

// NewRing constructs peers independent engines, each with identical
// hyperparameters but its own seed and population (spec §4.5 step 1).
// Setup is run for every peer before NewRing returns.
func NewRing(params config.Hyperparameters, obj objective.Func, peers int, masterSeed int64, visual bool) (*Ring, error) {
	if peers < 1 {
		return nil, fmt.Errorf("distributed: peers must be >= 1, got %d", peers)
	}

	master := rng.New(masterSeed)
	engines := make([]*ica.Engine, peers)
	var recorders []*snapshot.Recorder
	if visual {
		recorders = make([]*snapshot.Recorder, peers)
	}

	for r := 0; r < peers; r++ {
		seed := int64(master.IntN(1 << 62))

		var e *ica.Engine
		var err error
		if visual {
			var rec *snapshot.Recorder
			e, rec, err = ica.NewVisual(params, obj, seed)
			recorders[r] = rec
		} else {
			e, err = ica.New(params, obj, seed)
		}
		if err != nil {
			return nil, err
		}
		if err := e.Setup(); err != nil {
			return nil, err
		}
		engines[r] = e
	}

	return &Ring{engines: engines, recorders: recorders, visual: visual}, nil
}

// Run executes the initial T iterations on every peer, then
// migrationCycles rounds of ring-exchange followed by
// iterationsPerCycle local iterations each (spec §4.5 steps 2-3),
// then reduces to a global best and, in visual mode, gathers every
// peer's history (spec §4.5 steps 4-5).
func (r *Ring) Run(ctx context.Context, migrationCycles, iterationsPerCycle int) (Result, error) {
	if err := r.runAll(ctx); err != nil {
		return Result{}, err
	}

	for k := 0; k < migrationCycles; k++ {
		if err := r.migrationCycle(ctx, iterationsPerCycle); err != nil {
			return Result{}, err
		}
	}

	return r.reduceAndGather(), nil
}

// runAll runs every peer's engine concurrently for its currently
// configured MaxIter iterations under a single errgroup. One peer's
// objective failure is returned as the group's error once every peer
// has returned; the other peers' runs are not interrupted (spec §4.5
// failure model).
func (r *Ring) runAll(ctx context.Context) error {
	group, _ := errgroup.WithContext(ctx)
	for rank := range r.engines {
		rank := rank
		group.Go(func() error {
			if err := r.engines[rank].Run(); err != nil {
				return &ErrPeerFailed{Rank: rank, Err: err}
			}
			return nil
		})
	}
	return group.Wait()
}

// migrationCycle runs one barrier-synchronized round of ring exchange
// (spec §4.5 step 3): every peer sends its best solution to its
// successor, receives its predecessor's, applies migrate_best, then
// runs iterationsPerCycle more local iterations. Sends and receives
// are paired symmetrically within one collective so no peer can block
// on an unposted send (spec §4.5 failure model).
func (r *Ring) migrationCycle(ctx context.Context, iterationsPerCycle int) error {
	peers := len(r.engines)
	links := make([]chan []float64, peers)
	for i := range links {
		links[i] = make(chan []float64, 1)
	}

	group, gctx := errgroup.WithContext(ctx)
	for rank := range r.engines {
		rank := rank
		group.Go(func() error {
			select {
			case links[rank] <- r.engines[rank].BestSolution():
			case <-gctx.Done():
				return gctx.Err()
			}

			predecessor := (rank - 1 + peers) % peers
			var elite []float64
			select {
			case elite = <-links[predecessor]:
			case <-gctx.Done():
				return gctx.Err()
			}

			e := r.engines[rank]
			if err := e.MigrateBest(elite, e.Objective()); err != nil {
				return &ErrPeerFailed{Rank: rank, Err: err}
			}
			if err := e.SetMaxIter(iterationsPerCycle); err != nil {
				return &ErrPeerFailed{Rank: rank, Err: err}
			}
			if err := e.Run(); err != nil {
				return &ErrPeerFailed{Rank: rank, Err: err}
			}
			return nil
		})
	}
	return group.Wait()
}

// reduceAndGather implements spec §4.5 steps 4-5: peer 0 collects
// every peer's (best_fitness, best_solution) and keeps the argmin,
// breaking ties toward the lowest rank (original_source's
// all_fitnesses/best_index scan, preserved per SPEC_FULL.md); in
// visual mode it also encodes and decodes every peer's history, as a
// stand-in for the gather's cross-peer serialization round-trip.
func (r *Ring) reduceAndGather() Result {
	best := 0
	for rank := 1; rank < len(r.engines); rank++ {
		if r.engines[rank].BestFitness() < r.engines[best].BestFitness() {
			best = rank
		}
	}

	result := Result{
		BestFitness:  r.engines[best].BestFitness(),
		BestSolution: r.engines[best].BestSolution(),
	}

	if r.visual {
		result.Histories = make([]snapshot.History, len(r.recorders))
		for rank, rec := range r.recorders {
			buf := snapshot.Encode(rec.History)
			h, err := snapshot.Decode(buf)
			if err != nil {
				// Encode always produces a well-formed buffer for a
				// History built only through Recorder.Append; a decode
				// failure here means the arena and recorder raced, an
				// invariant violation rather than a wire error.
				panic(fmt.Sprintf("distributed: peer %d history failed to round-trip: %v", rank, err))
			}
			result.Histories[rank] = h
		}
	}

	return result
}
