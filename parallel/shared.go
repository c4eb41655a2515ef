// Package parallel implements the shared-memory driver (spec §4.4):
// a fixed worker pool that parallelizes per-country and per-empire
// operators over a single ica.Engine's live state.
package parallel

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	channerics "github.com/niceyeti/channerics/channels"

	"ica"
	"ica/country"
	"ica/rng"
)

// Driver parallelizes one Engine's operators across a fixed number of
// worker goroutines, per spec §4.4.
type Driver struct {
	engine  *ica.Engine
	workers int
}

// NewDriver returns a Driver over e using workers goroutines. workers
// must be >= 1; the driver itself clamps it to the size of whatever
// it's partitioning (e.g. population size) when workers would exceed
// the work available.
func NewDriver(e *ica.Engine, workers int) (*Driver, error) {
	if e == nil {
		return nil, fmt.Errorf("parallel: engine must not be nil")
	}
	if workers < 1 {
		return nil, fmt.Errorf("parallel: workers must be >= 1, got %d", workers)
	}
	return &Driver{engine: e, workers: workers}, nil
}

// Run executes the engine's main loop with every per-Country and
// per-empire operator restructured for the worker pool, per spec
// §4.4. The operator sequence itself — fitness, assimilation,
// revolution, mutiny, imperial war — remains strictly serialized
// within one iteration; only the work inside each operator is
// data-parallel.
func (d *Driver) Run(ctx context.Context) error {
	params := d.engine.Params()

	for iter := 0; iter < params.MaxIter; iter++ {
		if err := d.calculateFitness(ctx); err != nil {
			return err
		}

		if err := d.assimilation(ctx); err != nil {
			return err
		}
		d.engine.Sink().PhaseComplete("Assimilation", d.engine.Arena(), d.engine.Arena().All())

		if err := d.revolution(ctx); err != nil {
			return err
		}
		d.engine.Sink().PhaseComplete("Revolution", d.engine.Arena(), d.engine.Arena().All())

		if err := d.mutiny(ctx); err != nil {
			return err
		}
		d.engine.Sink().PhaseComplete("Mutiny", d.engine.Arena(), d.engine.Arena().All())

		d.engine.ImperialWar()
		d.engine.Sink().PhaseComplete("Imperial War", d.engine.Arena(), d.engine.Arena().All())

		if d.engine.NumEmpires() == 1 {
			break
		}
	}
	return nil
}

type chunkRange struct {
	start, end int
}

// chunkRanges statically splits n items into workers even chunks, with
// the remainder (n mod workers) distributed to the first chunks, per
// spec §4.4.
func chunkRanges(n, workers int) []chunkRange {
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	base := n / workers
	rem := n % workers

	ranges := make([]chunkRange, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		ranges = append(ranges, chunkRange{start: start, end: start + size})
		start += size
	}
	return ranges
}

// forkStreams derives n independent RNG sub-streams from the engine's
// own stream, one per worker (spec §4.4's "independent streams per
// thread"). Forking is done sequentially, before any worker goroutine
// starts, since rng.Source.Fork mutates the parent stream and the
// parent is not safe for concurrent use.
func (d *Driver) forkStreams(n int) []*rng.Source {
	streams := make([]*rng.Source, n)
	for i := range streams {
		streams[i] = d.engine.RNG().Fork(i)
	}
	return streams
}

// calculateFitness evaluates every country in parallel and merges the
// best-seen point by argmin (spec §4.4).
func (d *Driver) calculateFitness(ctx context.Context) error {
	all := d.engine.Arena().All()
	parts := chunkRanges(len(all), d.workers)
	tracker := newBestTracker(d.engine.BestFitness(), d.engine.BestSolution())

	group, gctx := errgroup.WithContext(ctx)
	for _, part := range parts {
		part := part
		group.Go(func() error {
			for _, h := range all[part.start:part.end] {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				c := d.engine.Arena().Get(h)
				fit, err := d.engine.Objective()(c.Position)
				if err != nil {
					return err
				}
				c.Fitness = fit
				tracker.TryImprove(c.Position, fit)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	fit, pos := tracker.Best()
	d.engine.SetBest(pos, fit)
	return nil
}

// assimilation applies assimilation_of_empire as a parallel for over
// empire indices (spec §4.4).
func (d *Driver) assimilation(ctx context.Context) error {
	empires := d.engine.Empires()
	parts := chunkRanges(len(empires), d.workers)
	streams := d.forkStreams(len(parts))
	beta := d.engine.Params().Beta
	arena := d.engine.Arena()

	group, gctx := errgroup.WithContext(ctx)
	for wi, part := range parts {
		wi, part := wi, part
		group.Go(func() error {
			for _, emp := range empires[part.start:part.end] {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				empirePos := arena.Get(emp).Position
				for _, v := range arena.Get(emp).Vassals {
					ica.AssimilateColony(arena.Get(v), empirePos, beta, streams[wi])
				}
			}
			return nil
		})
	}
	return group.Wait()
}

// revolution applies revolution_of_empire as a parallel for over
// empire indices (spec §4.4). Positions are not re-clipped, matching
// the sequential engine's documented behavior.
func (d *Driver) revolution(ctx context.Context) error {
	empires := d.engine.Empires()
	parts := chunkRanges(len(empires), d.workers)
	streams := d.forkStreams(len(parts))
	gamma := d.engine.Params().Gamma
	arena := d.engine.Arena()

	group, gctx := errgroup.WithContext(ctx)
	for wi, part := range parts {
		wi, part := wi, part
		group.Go(func() error {
			for _, emp := range empires[part.start:part.end] {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				for _, v := range arena.Get(emp).Vassals {
					c := arena.Get(v)
					for i := range c.Position {
						c.Position[i] += streams[wi].Uniform(-gamma, gamma)
					}
				}
			}
			return nil
		})
	}
	return group.Wait()
}

// mutinyDecision is one colony's phase-A read-only mutiny computation:
// which empires-list slot it is nearest to, and whether it would stage
// a coup there.
type mutinyDecision struct {
	colony     country.Handle
	nearestIdx int
	coup       bool
}

// mutiny implements the two-phase parallel mutiny of spec §4.4: phase
// A computes every colony's decision concurrently and read-only, and is
// drained completely before phase B starts; phase B, serialized,
// applies them in the order they arrived off the merged channel, since
// detach/attach/coup all mutate the shared arena.
func (d *Driver) mutiny(ctx context.Context) error {
	arena := d.engine.Arena()

	var colonies []country.Handle
	for _, h := range arena.All() {
		if !arena.Get(h).IsEmpire() {
			colonies = append(colonies, h)
		}
	}

	var decisions []mutinyDecision
	for dec := range d.mutinyDecisions(ctx, colonies) {
		decisions = append(decisions, dec)
	}

	for _, dec := range decisions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		current := arena.Get(dec.colony).EmpireOf
		nearest := d.engine.Empires()[dec.nearestIdx]

		if nearest != current {
			arena.Detach(current, dec.colony)
		}
		if arena.Get(dec.colony).Fitness < arena.Get(nearest).Fitness {
			d.engine.ReplaceEmpireAt(dec.nearestIdx, dec.colony)
			arena.Coup(nearest, dec.colony)
		} else if nearest != current {
			arena.Attach(nearest, dec.colony)
		}
	}
	return nil
}

// mutinyDecisions runs phase A: each worker scans its chunk of
// colonies, computing (nearest_empire, swap_flag) and skipping records
// that would be no-ops (same empire, no coup), then the per-worker
// channels are fanned into one, matching the teacher's episode-worker
// fan-in (reinforcement.alphaMonteCarloVanillaTrain).
func (d *Driver) mutinyDecisions(ctx context.Context, colonies []country.Handle) <-chan mutinyDecision {
	done := ctx.Done()
	arena := d.engine.Arena()
	parts := chunkRanges(len(colonies), d.workers)

	workerChans := make([]<-chan mutinyDecision, 0, len(parts))
	for _, part := range parts {
		part := part
		ch := make(chan mutinyDecision)
		go func() {
			defer close(ch)
			for _, c := range colonies[part.start:part.end] {
				nearestIdx := d.engine.NearestEmpireIndex(c)
				nearest := d.engine.Empires()[nearestIdx]
				current := arena.Get(c).EmpireOf
				coup := arena.Get(c).Fitness < arena.Get(nearest).Fitness
				if nearest == current && !coup {
					continue
				}

				select {
				case ch <- mutinyDecision{colony: c, nearestIdx: nearestIdx, coup: coup}:
				case <-done:
					return
				}
			}
		}()
		workerChans = append(workerChans, ch)
	}

	return channerics.Merge(done, workerChans...)
}
