// Package objective adapts a user-supplied function of a numeric vector
// into the callable the engine evaluates countries with.
package objective

// Func is the callable form the engine evaluates: given a position, it
// returns a fitness value or an error if evaluation failed. The error
// return is the Go-idiomatic rendition of the "objective error" class
// (spec §7 item 2): the engine never recovers from it, it propagates
// out of the operator that triggered the evaluation unchanged.
type Func func(position []float64) (float64, error)

// Pure is a referentially-transparent, panic-free objective with no
// error path — the common case for benchmark functions like sphere or
// Rastrigin.
type Pure func(position []float64) float64

// FromPure adapts a Pure function into a Func. The input position is
// copied before the call so f can retain no reference to the engine's
// internal slice past its return, per the adapter's contract (spec
// §4.6): the engine reuses and mutates its position slices between
// evaluations, so any retained alias would observe stale or corrupted
// data.
func FromPure(f Pure) Func {
	return func(position []float64) (float64, error) {
		cp := make([]float64, len(position))
		copy(cp, position)
		return f(cp), nil
	}
}
