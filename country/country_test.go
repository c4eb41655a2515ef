package country

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestArena(t *testing.T) {
	Convey("Given a fresh arena", t, func() {
		a := NewArena(4)
		empire := a.Add([]float64{0, 0})
		colonyA := a.Add([]float64{1, 1})
		colonyB := a.Add([]float64{2, 2})

		Convey("new countries default to empires", func() {
			So(a.Get(empire).IsEmpire(), ShouldBeTrue)
			So(a.Get(colonyA).IsEmpire(), ShouldBeTrue)
		})

		Convey("Attach makes a country a vassal and propagates its empire's color", func() {
			a.Get(empire).Color = [3]float64{0.7, 0.8, 0.9}
			a.Attach(empire, colonyA)
			So(a.Get(colonyA).IsEmpire(), ShouldBeFalse)
			So(a.Get(colonyA).EmpireOf, ShouldEqual, empire)
			So(a.Get(empire).Vassals, ShouldResemble, []Handle{colonyA})
			So(a.Get(colonyA).Color, ShouldResemble, a.Get(empire).Color)

			Convey("Detach removes the vassal link", func() {
				a.Detach(empire, colonyA)
				So(a.Get(empire).Vassals, ShouldBeEmpty)
			})
		})

		Convey("Coup swaps seats and preserves vassals and color", func() {
			a.Attach(empire, colonyA)
			a.Attach(empire, colonyB)
			a.Get(empire).Color = [3]float64{0.1, 0.2, 0.3}

			a.Coup(empire, colonyA)

			So(a.Get(colonyA).IsEmpire(), ShouldBeTrue)
			So(a.Get(colonyA).Color, ShouldResemble, [3]float64{0.1, 0.2, 0.3})
			So(a.Get(empire).IsEmpire(), ShouldBeFalse)
			So(a.Get(empire).EmpireOf, ShouldEqual, colonyA)
			So(a.Get(empire).Color, ShouldResemble, [3]float64{0.1, 0.2, 0.3})

			// colonyB remains a vassal, now of colonyA
			So(a.Get(colonyB).EmpireOf, ShouldEqual, colonyA)

			vassals := a.Get(colonyA).Vassals
			So(vassals, ShouldContain, colonyB)
			So(vassals, ShouldContain, empire)
		})
	})
}
