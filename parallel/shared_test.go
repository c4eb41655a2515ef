package parallel

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ica"
	"ica/config"
	"ica/objective"
)

func sphereParams(popSize, dim, maxIter int) config.Hyperparameters {
	return config.Hyperparameters{
		PopSize: popSize,
		Dim:     dim,
		MaxIter: maxIter,
		Beta:    2.0,
		Gamma:   0.1,
		Eta:     0.1,
		Lb:      -5,
		Ub:      5,
	}
}

func TestNewDriver(t *testing.T) {
	Convey("NewDriver rejects a nil engine", t, func() {
		_, err := NewDriver(nil, 4)
		So(err, ShouldNotBeNil)
	})

	Convey("NewDriver rejects zero workers", t, func() {
		e, _ := ica.New(sphereParams(10, 2, 5), objective.FromPure(objective.Sphere), 1)
		_, err := NewDriver(e, 0)
		So(err, ShouldNotBeNil)
	})
}

func TestChunkRanges(t *testing.T) {
	Convey("chunk ranges cover every index exactly once", t, func() {
		for _, tc := range []struct{ n, workers int }{{10, 3}, {7, 8}, {1, 4}, {100, 7}} {
			ranges := chunkRanges(tc.n, tc.workers)
			covered := make([]bool, tc.n)
			for _, r := range ranges {
				for i := r.start; i < r.end; i++ {
					So(covered[i], ShouldBeFalse)
					covered[i] = true
				}
			}
			for _, c := range covered {
				So(c, ShouldBeTrue)
			}
		}
	})
}

func TestSharedMemoryInvariantsAcrossWorkerCounts(t *testing.T) {
	Convey("post-run invariants hold for several worker counts on sphere", t, func() {
		for _, workers := range []int{1, 2, 4, 8} {
			e, err := ica.New(sphereParams(100, 4, 30), objective.FromPure(objective.Sphere), int64(workers))
			So(err, ShouldBeNil)
			So(e.Setup(), ShouldBeNil)

			driver, err := NewDriver(e, workers)
			So(err, ShouldBeNil)
			So(driver.Run(context.Background()), ShouldBeNil)

			So(e.Check(0), ShouldBeNil)
			So(e.BestFitness(), ShouldBeLessThan, 50.0)
		}
	})
}

func TestSharedMemoryMatchesSequentialWithinTolerance(t *testing.T) {
	Convey("a single-worker parallel run stays close to a sequential run", t, func() {
		seq, _ := ica.New(sphereParams(100, 4, 30), objective.FromPure(objective.Sphere), 99)
		So(seq.Setup(), ShouldBeNil)
		So(seq.Run(), ShouldBeNil)

		par, _ := ica.New(sphereParams(100, 4, 30), objective.FromPure(objective.Sphere), 99)
		So(par.Setup(), ShouldBeNil)
		driver, _ := NewDriver(par, 1)
		So(driver.Run(context.Background()), ShouldBeNil)

		So(par.BestFitness(), ShouldBeLessThan, seq.BestFitness()+50.0)
	})
}
