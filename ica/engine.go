// Package ica implements the sequential Imperialist Competitive
// Algorithm engine: population initialization, empire/colony
// formation, and the four per-iteration operators, per spec §4.1.
package ica

import (
	"fmt"
	"math"
	"sort"

	"ica/config"
	"ica/country"
	"ica/objective"
	"ica/rng"
)

// Engine is the sequential ICA optimizer. The zero value is not
// usable; construct one with New.
type Engine struct {
	params config.Hyperparameters
	obj    objective.Func
	rng    *rng.Source
	sink   Sink

	arena   *country.Arena
	empires []country.Handle

	bestPosition []float64
	bestFitness  float64
	setupDone    bool
}

// New stores the engine's parameters and objective. No work is done
// until Setup is called. Returns ErrInvalidConfig if the parameters
// are outside their admissible ranges (spec §6).
func New(params config.Hyperparameters, obj objective.Func, seed int64) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, &ErrInvalidConfig{Reason: err.Error()}
	}
	if obj == nil {
		return nil, &ErrInvalidConfig{Reason: "objective function must not be nil"}
	}
	return &Engine{
		params:      params,
		obj:         obj,
		rng:         rng.New(seed),
		sink:        NoopSink{},
		bestFitness: math.Inf(1),
	}, nil
}

// SetSink installs the visualization capability sink. Must be called
// before Setup; a nil sink is treated as NoopSink.
func (e *Engine) SetSink(s Sink) {
	if s == nil {
		s = NoopSink{}
	}
	e.sink = s
}

// Setup constructs the population and initial empire partition (spec
// §4.1 "Setup algorithm"). Must be called exactly once, before Run.
func (e *Engine) Setup() error {
	if e.setupDone {
		return ErrAlreadySetup
	}

	n := e.params.PopSize
	d := e.params.Dim
	e.arena = country.NewArena(n)

	// 1. Sample N positions uniformly in [lb, ub]^d.
	handles := make([]country.Handle, n)
	for i := 0; i < n; i++ {
		pos := make([]float64, d)
		for j := 0; j < d; j++ {
			pos[j] = e.rng.Uniform(e.params.Lb, e.params.Ub)
		}
		handles[i] = e.arena.Add(pos)
	}

	// 2. Evaluate fitness of all countries; update best.
	for _, h := range handles {
		if err := e.evaluate(h); err != nil {
			return err
		}
	}

	// 3. Sort population by ascending fitness.
	sort.SliceStable(handles, func(i, j int) bool {
		return e.arena.Get(handles[i]).Fitness < e.arena.Get(handles[j]).Fitness
	})

	// 4. Take the first floor(0.1*N) (at least 1) as Empires.
	numEmpires := int(0.1 * float64(n))
	if numEmpires < 1 {
		numEmpires = 1
	}
	empires := append([]country.Handle(nil), handles[:numEmpires]...)
	colonies := append([]country.Handle(nil), handles[numEmpires:]...)
	e.empires = empires

	// 5. Allocate colonies to empires by power.
	e.allocateColonies(empires, colonies)

	e.sink.ColorEmpires(e.arena, e.empires)
	e.setupDone = true
	return nil
}

// allocateColonies implements spec §4.1 setup step 5: power-weighted
// allocation with residual distributed in descending-power order, then
// a random permutation scan assigning colonies in empire order.
func (e *Engine) allocateColonies(empires, colonies []country.Handle) {
	if len(colonies) == 0 {
		return
	}

	powers := make([]float64, len(empires))
	sumAbs := 0.0
	for i, h := range empires {
		powers[i] = math.Abs(e.arena.Get(h).Fitness)
		sumAbs += powers[i]
	}
	if sumAbs == 0 {
		sumAbs = 1
	}
	for i := range powers {
		powers[i] /= sumAbs
	}

	allocated := make([]int, len(empires))
	total := 0
	for i := range empires {
		allocated[i] = int(powers[i] * float64(len(colonies)))
		total += allocated[i]
	}

	order := make([]int, len(empires))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return powers[order[a]] > powers[order[b]] })

	k := len(colonies) - total
	for _, idx := range order {
		if k <= 0 {
			break
		}
		add := int(math.Ceil(powers[idx] * float64(k)))
		if add > k {
			add = k
		}
		allocated[idx] += add
		k -= add
	}

	perm := e.rng.Perm(len(colonies))
	cursor := 0
	for i, h := range empires {
		count := allocated[i]
		for c := 0; c < count && cursor < len(perm); c++ {
			colony := colonies[perm[cursor]]
			cursor++
			e.arena.Attach(h, colony)
		}
	}
	// Any colonies left unassigned due to rounding go to the strongest
	// empire (first in descending-power order), so every colony always
	// has an empire (spec §3: every Colony has a non-null empire_of).
	if cursor < len(perm) {
		strongest := empires[order[0]]
		for ; cursor < len(perm); cursor++ {
			e.arena.Attach(strongest, colonies[perm[cursor]])
		}
	}
}

// evaluate runs the objective on h's position, records fitness, and
// updates the engine's best-seen point if it improves.
func (e *Engine) evaluate(h country.Handle) error {
	c := e.arena.Get(h)
	fit, err := e.obj(c.Position)
	if err != nil {
		return err
	}
	c.Fitness = fit
	if fit < e.bestFitness {
		e.bestFitness = fit
		e.bestPosition = append([]float64(nil), c.Position...)
	}
	return nil
}

// Run executes at most MaxIter iterations of the main loop, stopping
// early if the number of empires drops to 1 (spec §4.1).
func (e *Engine) Run() error {
	if !e.setupDone {
		return ErrNotSetup
	}

	for iter := 0; iter < e.params.MaxIter; iter++ {
		if err := e.calculateFitness(); err != nil {
			return err
		}

		e.assimilation()
		e.sink.PhaseComplete("Assimilation", e.arena, e.arena.All())

		e.revolution()
		e.sink.PhaseComplete("Revolution", e.arena, e.arena.All())

		e.mutiny()
		e.sink.PhaseComplete("Mutiny", e.arena, e.arena.All())

		e.imperialWar()
		e.sink.PhaseComplete("Imperial War", e.arena, e.arena.All())

		if len(e.empires) == 1 {
			break
		}
	}
	return nil
}

// calculateFitness evaluates f on every country and updates the best
// seen point (spec §4.1 main loop step 1).
func (e *Engine) calculateFitness() error {
	for _, h := range e.arena.All() {
		if err := e.evaluate(h); err != nil {
			return err
		}
	}
	return nil
}

// assimilation moves each colony a uniform fraction of up to β of the
// way toward its empire (spec §4.1 step 2).
func (e *Engine) assimilation() {
	for _, emp := range e.empires {
		empirePos := e.arena.Get(emp).Position
		for _, v := range e.arena.Get(emp).Vassals {
			assimilateOne(e.arena.Get(v), empirePos, e.params.Beta, e.rng)
		}
	}
}

// AssimilateColony applies one assimilation step to c in place, given
// its empire's position. Exported for reuse by the shared-memory
// driver, which parallelizes this per empire with its own per-worker
// RNG stream instead of the engine's.
func AssimilateColony(c *country.Country, empirePos []float64, beta float64, r *rng.Source) {
	assimilateOne(c, empirePos, beta, r)
}

func assimilateOne(c *country.Country, empirePos []float64, beta float64, r *rng.Source) {
	delta := make([]float64, len(c.Position))
	sumSq := 0.0
	for i := range delta {
		delta[i] = empirePos[i] - c.Position[i]
		sumSq += delta[i] * delta[i]
	}
	dist := math.Sqrt(sumSq)
	if dist <= 0 {
		return
	}
	u := r.Float64()
	for i := range c.Position {
		c.Position[i] += u * beta * delta[i]
	}
}

// revolution adds independent U(-γ, γ) noise to each colony's
// coordinates (spec §4.1 step 3). Positions are not re-clipped to
// [lb, ub], matching the source's documented (non-clipping) behavior.
func (e *Engine) revolution() {
	for _, emp := range e.empires {
		for _, v := range e.arena.Get(emp).Vassals {
			c := e.arena.Get(v)
			for i := range c.Position {
				c.Position[i] += e.rng.Uniform(-e.params.Gamma, e.params.Gamma)
			}
		}
	}
}

// mutiny lets every colony check whether a different empire is now
// nearer, relocating it and potentially staging a coup (spec §4.1 step
// 4). It iterates every colony from index 0 — the source's off-by-one
// loop (starting at index 1) is treated as a bug, per the design
// notes, not preserved here.
func (e *Engine) mutiny() {
	// Snapshot the colony list before any coup can change which
	// countries are colonies mid-scan.
	var colonies []country.Handle
	for _, h := range e.arena.All() {
		if !e.arena.Get(h).IsEmpire() {
			colonies = append(colonies, h)
		}
	}

	for _, c := range colonies {
		if e.arena.Get(c).IsEmpire() {
			// A prior coup in this same pass promoted c to an empire;
			// it no longer has a mutiny decision to make.
			continue
		}

		nearestIdx := e.nearestEmpireIndex(c)
		nearest := e.empires[nearestIdx]
		current := e.arena.Get(c).EmpireOf

		if nearest != current {
			e.arena.Detach(current, c)
		}

		if e.arena.Get(c).Fitness < e.arena.Get(nearest).Fitness {
			e.empires[nearestIdx] = c
			e.arena.Coup(nearest, c)
		} else if nearest != current {
			e.arena.Attach(nearest, c)
		}
	}
}

// nearestEmpireIndex returns the index into e.empires of the empire
// nearest to c by squared Euclidean distance, ties broken by first
// occurrence (spec §4.1 step 4a).
func (e *Engine) nearestEmpireIndex(c country.Handle) int {
	pos := e.arena.Get(c).Position
	best := -1
	bestDist := math.Inf(1)
	for i, emp := range e.empires {
		d := squaredDist(pos, e.arena.Get(emp).Position)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func squaredDist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// imperialWar computes each empire's total power, derives a weakest
// (w) and strongest (s) empire via spec §4.1 step 5's D_i scoring, and
// transfers a vassal — or the weakest empire itself — from w to s.
func (e *Engine) imperialWar() {
	if len(e.empires) < 2 {
		return
	}

	power := make([]float64, len(e.empires))
	for i, emp := range e.empires {
		c := e.arena.Get(emp)
		p := c.Fitness
		for _, v := range c.Vassals {
			p += e.params.Eta * e.arena.Get(v).Fitness
		}
		power[i] = p
	}

	maxP := power[0]
	for _, p := range power[1:] {
		if p > maxP {
			maxP = p
		}
	}

	normalized := make([]float64, len(power))
	sum := 0.0
	for i, p := range power {
		normalized[i] = p - maxP
		sum += normalized[i]
	}
	if sum == 0 {
		sum = -1
	}

	d := make([]float64, len(power))
	for i := range d {
		d[i] = normalized[i]/sum - e.rng.Float64()
	}

	w, s := 0, 0
	for i := 1; i < len(d); i++ {
		if d[i] < d[w] {
			w = i
		}
		if d[i] > d[s] {
			s = i
		}
	}
	if w == s {
		return
	}

	weakEmpire := e.empires[w]
	strongEmpire := e.empires[s]
	vassals := e.arena.Get(weakEmpire).Vassals

	if len(vassals) > 0 {
		weakestVassal := vassals[0]
		for _, v := range vassals[1:] {
			if e.arena.Get(v).Fitness > e.arena.Get(weakestVassal).Fitness {
				weakestVassal = v
			}
		}
		e.arena.Detach(weakEmpire, weakestVassal)
		e.arena.Attach(strongEmpire, weakestVassal)
		return
	}

	// Empire w has no vassals: it becomes a vassal of s itself and is
	// removed from the empires list.
	e.arena.Attach(strongEmpire, weakEmpire)
	e.empires = append(e.empires[:w], e.empires[w+1:]...)
}

// BestSolution returns the point of minimum fitness observed so far.
func (e *Engine) BestSolution() []float64 {
	return append([]float64(nil), e.bestPosition...)
}

// BestFitness returns the minimum fitness observed so far.
func (e *Engine) BestFitness() float64 {
	return e.bestFitness
}

// MigrateBest replaces the current highest-fitness (worst) country's
// position with p and re-evaluates its fitness with f, preserving its
// memberships (spec §4.1).
func (e *Engine) MigrateBest(p []float64, f objective.Func) error {
	if !e.setupDone {
		return ErrNotSetup
	}
	if len(p) != e.params.Dim {
		return &ErrInvalidConfig{Reason: fmt.Sprintf("migrate_best: position has dim %d, want %d", len(p), e.params.Dim)}
	}

	all := e.arena.All()
	worst := all[0]
	for _, h := range all[1:] {
		if e.arena.Get(h).Fitness > e.arena.Get(worst).Fitness {
			worst = h
		}
	}

	fit, err := f(p)
	if err != nil {
		return err
	}
	c := e.arena.Get(worst)
	c.Position = append([]float64(nil), p...)
	c.Fitness = fit
	if fit < e.bestFitness {
		e.bestFitness = fit
		e.bestPosition = append([]float64(nil), p...)
	}
	return nil
}

// SetMaxIter rewrites T; affects the next Run.
func (e *Engine) SetMaxIter(t int) error {
	if t < 1 {
		return &ErrInvalidConfig{Reason: fmt.Sprintf("maxIter must be >= 1, got %d", t)}
	}
	e.params.MaxIter = t
	return nil
}

// Check audits the §3 data-model invariants and returns an
// *country.InvariantError naming the first violation found, tagged
// with rank for the caller's convenience (distributed callers pass
// their peer rank; sequential callers may pass 0). This supplements
// spec.md with the original's `ICA::check` auditor (see SPEC_FULL.md).
func (e *Engine) Check(rank int) error {
	if !e.setupDone {
		return ErrNotSetup
	}

	empireSet := make(map[country.Handle]bool, len(e.empires))
	for _, h := range e.empires {
		empireSet[h] = true
	}

	for _, h := range e.arena.All() {
		c := e.arena.Get(h)
		isEmpire := empireSet[h]
		if isEmpire != c.IsEmpire() {
			return &country.InvariantError{Msg: fmt.Sprintf("rank %d: handle %d empire-set membership disagrees with empire_of", rank, h)}
		}
		if !isEmpire {
			owner := e.arena.Get(c.EmpireOf)
			if !contains(owner.Vassals, h) {
				return &country.InvariantError{Msg: fmt.Sprintf("rank %d: colony %d not listed among empire %d's vassals", rank, h, c.EmpireOf)}
			}
		} else {
			for _, v := range c.Vassals {
				if e.arena.Get(v).EmpireOf != h {
					return &country.InvariantError{Msg: fmt.Sprintf("rank %d: vassal %d of empire %d has mismatched empire_of", rank, v, h)}
				}
			}
		}
	}
	return nil
}

func contains(hs []country.Handle, target country.Handle) bool {
	for _, h := range hs {
		if h == target {
			return true
		}
	}
	return false
}

// NumEmpires reports the current number of empires, used by the
// shared-memory driver to decide whether a run has already collapsed
// to one empire.
func (e *Engine) NumEmpires() int {
	return len(e.empires)
}

// Arena exposes the underlying country arena, read-only in practice
// but not enforced, for drivers and sinks that need direct access
// (e.g. the shared-memory driver's parallel operators).
func (e *Engine) Arena() *country.Arena {
	return e.arena
}

// Empires returns the current empires list.
func (e *Engine) Empires() []country.Handle {
	return e.empires
}

// Params returns the engine's hyperparameters.
func (e *Engine) Params() config.Hyperparameters {
	return e.params
}

// RNG returns the engine's owned random source, for drivers that fork
// per-worker sub-streams from it.
func (e *Engine) RNG() *rng.Source {
	return e.rng
}

// Objective returns the engine's objective function, for drivers that
// evaluate countries directly rather than through Run.
func (e *Engine) Objective() objective.Func {
	return e.obj
}

// Sink returns the engine's installed visualization sink.
func (e *Engine) Sink() Sink {
	return e.sink
}

// NearestEmpireIndex exposes mutiny's nearest-empire search (spec
// §4.1 step 4a) for reuse by drivers that replay the mutiny decision
// phase outside the sequential main loop.
func (e *Engine) NearestEmpireIndex(c country.Handle) int {
	return e.nearestEmpireIndex(c)
}

// ImperialWar runs one sequential imperial-war step (spec §4.1 step
// 5). Exported so the shared-memory driver, which parallelizes every
// other operator, can still run this one sequentially against the
// engine's live empires list.
func (e *Engine) ImperialWar() {
	e.imperialWar()
}

// ReplaceEmpireAt overwrites the empires-list slot at idx with h, the
// arena-handle rendition of a coup's "same slot in the empires list"
// requirement (spec §4.1 step 4c).
func (e *Engine) ReplaceEmpireAt(idx int, h country.Handle) {
	e.empires[idx] = h
}

// RemoveEmpireAt deletes the empires-list slot at idx, used when an
// empire is fully absorbed by imperial war (spec §4.1 step 5f).
func (e *Engine) RemoveEmpireAt(idx int) {
	e.empires = append(e.empires[:idx], e.empires[idx+1:]...)
}

// SetBest overwrites the engine's best-seen point and fitness when
// fitness is lower than the current best; otherwise it does nothing.
// Drivers that perform their own parallel-reduction of
// per-worker bests call this once, after determining the true global
// minimum, rather than letting the engine race to update it itself.
func (e *Engine) SetBest(position []float64, fitness float64) {
	if fitness < e.bestFitness {
		e.bestFitness = fitness
		e.bestPosition = append([]float64(nil), position...)
	}
}
