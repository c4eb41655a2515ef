package snapshot

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRoundTrip(t *testing.T) {
	Convey("Given a history with several phases", t, func() {
		var h History
		h.Append("Assimilation", []CountryRecord{
			{Position: []float64{1, 2}, Color: [3]float64{0.1, 0.2, 0.3}, IsEmpire: true},
			{Position: []float64{3, 4}, Color: [3]float64{0.4, 0.5, 0.6}, IsEmpire: false},
		})
		h.Append("Revolution", []CountryRecord{
			{Position: []float64{5, 6}, IsEmpire: false},
		})

		Convey("Encode then Decode reproduces it byte-for-byte", func() {
			buf := Encode(h)
			got, err := Decode(buf)
			So(err, ShouldBeNil)
			So(len(got.Phases), ShouldEqual, len(h.Phases))
			for i := range h.Phases {
				So(got.Phases[i].Name, ShouldEqual, h.Phases[i].Name)
				So(got.Phases[i].Countries, ShouldResemble, h.Phases[i].Countries)
			}
		})

		Convey("History is append-only and keeps phase order", func() {
			So(h.Phases[0].Name, ShouldEqual, "Assimilation")
			So(h.Phases[1].Name, ShouldEqual, "Revolution")
		})
	})

	Convey("Decode rejects a truncated buffer", t, func() {
		_, err := Decode([]float64{2, 5})
		So(err, ShouldNotBeNil)
	})

	Convey("An empty history encodes and decodes to zero phases", t, func() {
		buf := Encode(History{})
		got, err := Decode(buf)
		So(err, ShouldBeNil)
		So(got.Phases, ShouldBeEmpty)
	})
}
