package rng

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSource(t *testing.T) {
	Convey("Given a seeded source", t, func() {
		s := New(42)

		Convey("Float64 stays in [0,1)", func() {
			for i := 0; i < 1000; i++ {
				v := s.Float64()
				So(v, ShouldBeGreaterThanOrEqualTo, 0.0)
				So(v, ShouldBeLessThan, 1.0)
			}
		})

		Convey("Uniform respects its bounds", func() {
			for i := 0; i < 1000; i++ {
				v := s.Uniform(-2, 3)
				So(v, ShouldBeGreaterThanOrEqualTo, -2.0)
				So(v, ShouldBeLessThan, 3.0)
			}
		})

		Convey("Fork produces deterministic, distinct sub-streams", func() {
			childA := s.Fork(0)
			childB := s.Fork(1)
			a := New(42).Fork(0)

			So(childA.Float64(), ShouldEqual, a.Float64())
			So(childA.Float64(), ShouldNotEqual, childB.Float64())
		})
	})
}
