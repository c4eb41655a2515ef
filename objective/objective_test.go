package objective

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFromPure(t *testing.T) {
	Convey("Given a pure sphere objective adapted to Func", t, func() {
		f := FromPure(Sphere)

		Convey("it evaluates correctly and without error", func() {
			val, err := f([]float64{3, 4})
			So(err, ShouldBeNil)
			So(val, ShouldEqual, 25.0)
		})

		Convey("it does not retain the caller's slice", func() {
			var seen []float64
			g := FromPure(func(x []float64) float64 {
				seen = x
				return Sphere(x)
			})
			position := []float64{1, 1}
			_, _ = g(position)
			position[0] = 999
			So(seen[0], ShouldEqual, 1.0)
			val, _ := f([]float64{1, 1})
			So(val, ShouldEqual, 2.0)
		})
	})
}

func TestBenchmarks(t *testing.T) {
	Convey("Benchmark functions evaluate at known points", t, func() {
		So(Sphere([]float64{0, 0}), ShouldEqual, 0.0)
		So(Rastrigin([]float64{0, 0}), ShouldEqual, 0.0)
		So(Rosenbrock([]float64{1, 1, 1}), ShouldEqual, 0.0)
	})
}
