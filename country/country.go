// Package country implements the Country/Empire/Colony data model as an
// arena of values addressed by handles, rather than a pointer graph.
package country

import "fmt"

// Handle addresses a Country within an Arena. Handles are arena indices
// starting at 0; use NoEmpire for "this country is itself an empire".
type Handle int

// NoEmpire is the sentinel empire_of value for a country that is itself
// an empire (a "seat" in the empires list).
const NoEmpire Handle = -1

// Country is a single candidate solution point, plus its membership
// link and, if it is an empire, its vassals. Color is an optional field
// (composition over a Colored-Country subtype, per the design notes):
// non-visual engines simply never populate it.
type Country struct {
	Position []float64
	Fitness  float64

	// EmpireOf is NoEmpire if this country is an empire, otherwise the
	// handle of the empire it is a vassal of.
	EmpireOf Handle

	// Vassals holds the handles of this country's colonies. Only
	// meaningful when EmpireOf == NoEmpire.
	Vassals []Handle

	// Color is set by a visualization sink; zero value otherwise.
	Color [3]float64
}

// IsEmpire reports whether c is currently an empire seat.
func (c *Country) IsEmpire() bool {
	return c.EmpireOf == NoEmpire
}

// Arena owns all Country values for one engine. Countries are never
// deleted except at teardown (dropping the Arena), per spec §3's
// ownership rule.
type Arena struct {
	countries []Country
}

// NewArena returns an empty arena with room for n countries.
func NewArena(n int) *Arena {
	return &Arena{countries: make([]Country, 0, n)}
}

// Add appends a new country and returns its handle.
func (a *Arena) Add(position []float64) Handle {
	a.countries = append(a.countries, Country{
		Position: position,
		EmpireOf: NoEmpire,
	})
	return Handle(len(a.countries) - 1)
}

// Get returns a pointer to the country addressed by h. The pointer is
// valid only until the next Add call, since Add may reallocate the
// backing array.
func (a *Arena) Get(h Handle) *Country {
	return &a.countries[h]
}

// Len returns the number of countries ever added to the arena.
func (a *Arena) Len() int {
	return len(a.countries)
}

// All returns the handles of every country in the arena, in arena
// order.
func (a *Arena) All() []Handle {
	out := make([]Handle, len(a.countries))
	for i := range a.countries {
		out[i] = Handle(i)
	}
	return out
}

// Detach removes victim from owner's vassal list. It is a no-op if
// victim is not currently a vassal of owner. O(len(owner.Vassals)).
func (a *Arena) Detach(owner, victim Handle) {
	vassals := a.Get(owner).Vassals
	for i, v := range vassals {
		if v == victim {
			a.Get(owner).Vassals = append(vassals[:i], vassals[i+1:]...)
			return
		}
	}
}

// Attach makes victim a vassal of owner, setting both sides of the
// relation and propagating owner's color onto victim, matching
// visual_country.cpp's add_vassal (spec §3: color is inherited by any
// country joining an empire via assimilation, mutiny acquisition, or
// coup; Attach is the shared code path for initial colony allocation,
// mutiny acquisition and imperial war, Coup for the last).
func (a *Arena) Attach(owner, victim Handle) {
	a.Get(owner).Vassals = append(a.Get(owner).Vassals, victim)
	a.Get(victim).EmpireOf = owner
	a.Get(victim).Color = a.Get(owner).Color
}

// Coup replaces oldEmpire with newSeat in place: newSeat inherits
// oldEmpire's vassals and color, oldEmpire becomes one of newSeat's
// vassals, and newSeat itself becomes an empire (EmpireOf = NoEmpire).
// This is the non-recursive, arena-handle rendition of the coup
// operator described in the design notes: color is copied once, then
// the base relation is rewired, with no self-recursive call.
func (a *Arena) Coup(oldEmpire, newSeat Handle) {
	old := a.Get(oldEmpire)
	color := old.Color

	// newSeat may already be listed among old's vassals (it was, until
	// this moment, one of them); exclude it so it does not end up a
	// vassal of itself once it becomes the seat.
	inherited := make([]Handle, 0, len(old.Vassals))
	for _, v := range old.Vassals {
		if v != newSeat {
			inherited = append(inherited, v)
		}
	}

	newCountry := a.Get(newSeat)
	newCountry.EmpireOf = NoEmpire
	newCountry.Color = color
	newCountry.Vassals = inherited

	old.Vassals = nil
	old.Color = color

	for _, v := range newCountry.Vassals {
		a.Get(v).EmpireOf = newSeat
	}
	a.Attach(newSeat, oldEmpire)
}

// InvariantError reports a broken §3 data-model invariant, which
// indicates a bug in the engine rather than a recoverable condition.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("country: invariant violated: %s", e.Msg)
}
