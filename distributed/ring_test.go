package distributed

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

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

func TestNewRing(t *testing.T) {
	Convey("NewRing rejects zero peers", t, func() {
		_, err := NewRing(sphereParams(20, 2, 5), objective.FromPure(objective.Sphere), 0, 1, false)
		So(err, ShouldNotBeNil)
	})
}

func TestRingP1SelfMigration(t *testing.T) {
	Convey("P=1 ring run with self-migration never raises best_fitness above its post-setup value", t, func() {
		ring, err := NewRing(sphereParams(30, 2, 10), objective.FromPure(objective.Sphere), 1, 5, false)
		So(err, ShouldBeNil)

		before := ring.engines[0].BestFitness()
		result, err := ring.Run(context.Background(), 2, 5)
		So(err, ShouldBeNil)
		So(result.BestFitness, ShouldBeLessThanOrEqualTo, before)
	})
}

func TestRingP4VisualGather(t *testing.T) {
	Convey("P=4 visual mode gathers exactly 4 non-empty, round-trippable histories", t, func() {
		ring, err := NewRing(sphereParams(24, 2, 5), objective.FromPure(objective.Sphere), 4, 7, true)
		So(err, ShouldBeNil)

		result, err := ring.Run(context.Background(), 2, 5)
		So(err, ShouldBeNil)
		So(len(result.Histories), ShouldEqual, 4)
		for _, h := range result.Histories {
			So(len(h.Phases), ShouldBeGreaterThan, 0)
		}
	})
}

func TestRingReduction(t *testing.T) {
	Convey("the collective reduction picks the lowest best_fitness across peers", t, func() {
		ring, err := NewRing(sphereParams(20, 2, 10), objective.FromPure(objective.Sphere), 3, 13, false)
		So(err, ShouldBeNil)

		result, err := ring.Run(context.Background(), 1, 5)
		So(err, ShouldBeNil)

		minFitness := ring.engines[0].BestFitness()
		for _, e := range ring.engines[1:] {
			if e.BestFitness() < minFitness {
				minFitness = e.BestFitness()
			}
		}
		So(result.BestFitness, ShouldEqual, minFitness)
	})
}
