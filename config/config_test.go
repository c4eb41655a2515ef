package config

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const sampleYAML = `
kind: ica
def:
  popSize: 40
  dim: 2
  maxIter: 100
  beta: 2.0
  gamma: 0.1
  eta: 0.1
  lb: -5.0
  ub: 5.0
`

func TestFromYAML(t *testing.T) {
	Convey("Given a config file on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "ica.yaml")
		So(os.WriteFile(path, []byte(sampleYAML), 0o644), ShouldBeNil)

		Convey("FromYAML decodes the nested hyperparameters", func() {
			hp, err := FromYAML(path)
			So(err, ShouldBeNil)
			So(hp.PopSize, ShouldEqual, 40)
			So(hp.Dim, ShouldEqual, 2)
			So(hp.Beta, ShouldEqual, 2.0)
			So(hp.Lb, ShouldEqual, -5.0)
			So(hp.Ub, ShouldEqual, 5.0)
		})
	})

	Convey("Given invalid hyperparameters", t, func() {
		Convey("Validate rejects lb >= ub", func() {
			hp := Hyperparameters{PopSize: 2, Dim: 1, MaxIter: 1, Beta: 1, Gamma: 1, Eta: 0.5, Lb: 1, Ub: 1}
			So(hp.Validate(), ShouldNotBeNil)
		})
		Convey("Validate rejects popSize < 2", func() {
			hp := Hyperparameters{PopSize: 1, Dim: 1, MaxIter: 1, Beta: 1, Gamma: 1, Eta: 0.5, Lb: 0, Ub: 1}
			So(hp.Validate(), ShouldNotBeNil)
		})
		Convey("Validate accepts a well-formed set", func() {
			hp := Hyperparameters{PopSize: 2, Dim: 1, MaxIter: 1, Beta: 1, Gamma: 1, Eta: 0.5, Lb: 0, Ub: 1}
			So(hp.Validate(), ShouldBeNil)
		})
	})
}
