// Package snapshot records per-phase engine state for post-hoc playback
// and serializes it to the flat float64 wire format used across the
// distributed boundary (spec §4.3).
package snapshot

import (
	"fmt"

	"ica/country"
	"ica/rng"
)

// CountryRecord is one country's state within a single phase snapshot:
// its position, its color (zero value if untracked), and whether it
// was an empire at the time of the snapshot.
type CountryRecord struct {
	Position []float64
	Color    [3]float64
	IsEmpire bool
}

// Phase is one named step of a run (one of "Assimilation", "Revolution",
// "Mutiny", "Imperial War") paired with every country's state at that
// point.
type Phase struct {
	Name      string
	Countries []CountryRecord
}

// History is an ordered, append-only sequence of Phases. The zero value
// is an empty history ready to record.
type History struct {
	Phases []Phase
}

// Append adds a new phase to the end of the history. History is never
// reordered: phases always appear in the order they were recorded.
func (h *History) Append(name string, countries []CountryRecord) {
	h.Phases = append(h.Phases, Phase{Name: name, Countries: countries})
}

// Encode serializes h into the flat float64 buffer described by spec
// §4.3:
//
//	[num_phases,
//	   for each phase:
//	     phase_name_len, phase_name_bytes,
//	     num_countries,
//	     for each country:
//	       dim, position[0..dim-1],
//	       is_empire_flag, color_r, color_g, color_b]
func Encode(h History) []float64 {
	buf := make([]float64, 0, 64)
	buf = append(buf, float64(len(h.Phases)))

	for _, phase := range h.Phases {
		buf = append(buf, float64(len(phase.Name)))
		for _, b := range []byte(phase.Name) {
			buf = append(buf, float64(b))
		}

		buf = append(buf, float64(len(phase.Countries)))
		for _, c := range phase.Countries {
			buf = append(buf, float64(len(c.Position)))
			buf = append(buf, c.Position...)

			flag := 0.0
			if c.IsEmpire {
				flag = 1.0
			}
			buf = append(buf, flag, c.Color[0], c.Color[1], c.Color[2])
		}
	}
	return buf
}

// Decode is the exact inverse of Encode: it round-trips byte-for-byte
// on positions/colors/flags, and exactly on phase names (bytes are
// recovered via round-to-nearest-integer cast, as spec §4.3 requires).
func Decode(buf []float64) (History, error) {
	var h History
	idx := 0

	readOne := func() (float64, error) {
		if idx >= len(buf) {
			return 0, fmt.Errorf("snapshot: truncated buffer at offset %d", idx)
		}
		v := buf[idx]
		idx++
		return v, nil
	}

	numPhases, err := readOne()
	if err != nil {
		return h, err
	}

	for p := 0; p < int(numPhases); p++ {
		nameLen, err := readOne()
		if err != nil {
			return h, err
		}
		nameBytes := make([]byte, int(nameLen))
		for i := range nameBytes {
			v, err := readOne()
			if err != nil {
				return h, err
			}
			nameBytes[i] = byte(roundToInt(v))
		}

		numCountries, err := readOne()
		if err != nil {
			return h, err
		}
		countries := make([]CountryRecord, 0, int(numCountries))
		for c := 0; c < int(numCountries); c++ {
			dim, err := readOne()
			if err != nil {
				return h, err
			}
			pos := make([]float64, int(dim))
			for i := range pos {
				v, err := readOne()
				if err != nil {
					return h, err
				}
				pos[i] = v
			}

			flag, err := readOne()
			if err != nil {
				return h, err
			}
			r, err := readOne()
			if err != nil {
				return h, err
			}
			g, err := readOne()
			if err != nil {
				return h, err
			}
			b, err := readOne()
			if err != nil {
				return h, err
			}

			countries = append(countries, CountryRecord{
				Position: pos,
				Color:    [3]float64{r, g, b},
				IsEmpire: flag > 0.5,
			})
		}

		h.Phases = append(h.Phases, Phase{Name: string(nameBytes), Countries: countries})
	}

	return h, nil
}

func roundToInt(v float64) int64 {
	if v >= 0 {
		return int64(v + 0.5)
	}
	return int64(v - 0.5)
}

// Recorder is a History plus the random source it uses to color newly
// formed empires. It structurally satisfies ica.Sink (ColorEmpires,
// PhaseComplete) without importing the ica package, avoiding an import
// cycle: ica imports snapshot (for NewVisual), so snapshot depends only
// on country and rng and never on ica.
type Recorder struct {
	History
	rng *rng.Source
}

// NewRecorder returns an empty Recorder whose empire colors are drawn
// from a fresh stream seeded by seed.
func NewRecorder(seed int64) *Recorder {
	return &Recorder{rng: rng.New(seed)}
}

// ColorEmpires assigns each empire a fresh uniform-random color in
// [0,1]^3 (spec §4.2) and copies it onto the empire's current vassals.
// From then on country.Arena.Attach and country.Arena.Coup propagate it
// onto colonies as they join or inherit an empire.
func (r *Recorder) ColorEmpires(a *country.Arena, empires []country.Handle) {
	for _, h := range empires {
		c := a.Get(h)
		c.Color = [3]float64{r.rng.Float64(), r.rng.Float64(), r.rng.Float64()}
		for _, v := range c.Vassals {
			a.Get(v).Color = c.Color
		}
	}
}

// PhaseComplete appends a new Phase built from every country's current
// state (spec §4.2).
func (r *Recorder) PhaseComplete(phase string, a *country.Arena, all []country.Handle) {
	records := make([]CountryRecord, len(all))
	for i, h := range all {
		c := a.Get(h)
		records[i] = CountryRecord{
			Position: append([]float64(nil), c.Position...),
			Color:    c.Color,
			IsEmpire: c.IsEmpire(),
		}
	}
	r.Append(phase, records)
}
