// Package config loads ICA hyperparameters from YAML, grounded on the
// teacher's reinforcement.TrainingConfig: the same outer/inner,
// viper-then-yaml.v3 decode, to tolerate config files that nest the
// algorithm's parameters under a "def" key alongside sibling config for
// other concerns (deadlines, worker counts) that don't belong on
// Hyperparameters itself.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Hyperparameters are spec §3/§6's fixed ICA parameters, all but
// MaxIter immutable for the lifetime of one engine instance. The yaml
// tags are lower-case because viper lower-cases every key it reads, so
// "popSize" in a file reaches the yaml.v3 decode as "popsize".
type Hyperparameters struct {
	PopSize int     `yaml:"popsize"`
	Dim     int     `yaml:"dim"`
	MaxIter int     `yaml:"maxiter"`
	Beta    float64 `yaml:"beta"`
	Gamma   float64 `yaml:"gamma"`
	Eta     float64 `yaml:"eta"`
	Lb      float64 `yaml:"lb"`
	Ub      float64 `yaml:"ub"`
}

// Validate checks the admissibility rules of spec §6. It returns a
// descriptive error naming the first offending field, rather than
// clamping or silently correcting anything, per spec §7's policy.
func (h Hyperparameters) Validate() error {
	switch {
	case h.PopSize < 2:
		return fmt.Errorf("config: popSize must be >= 2, got %d", h.PopSize)
	case h.Dim < 1:
		return fmt.Errorf("config: dim must be >= 1, got %d", h.Dim)
	case h.MaxIter < 1:
		return fmt.Errorf("config: maxIter must be >= 1, got %d", h.MaxIter)
	case h.Beta <= 0:
		return fmt.Errorf("config: beta must be > 0, got %f", h.Beta)
	case h.Gamma <= 0:
		return fmt.Errorf("config: gamma must be > 0, got %f", h.Gamma)
	case h.Eta < 0 || h.Eta > 1:
		return fmt.Errorf("config: eta must be in [0,1], got %f", h.Eta)
	case h.Lb >= h.Ub:
		return fmt.Errorf("config: lb must be < ub, got lb=%f ub=%f", h.Lb, h.Ub)
	}
	return nil
}

// outerDoc mirrors the teacher's OuterConfig: a kind selector plus an
// opaque "def" block holding the kind-specific parameters.
type outerDoc struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// FromYAML loads Hyperparameters from a YAML file. There was no strong
// reason to reimplement what viper already does for locating and
// reading the file, so this follows the teacher's FromYaml almost
// exactly: viper reads the raw document, the "def" sub-document is
// re-marshaled and decoded into Hyperparameters with yaml.v3, so the
// strict hyperparameter schema doesn't have to know about the "kind"
// envelope.
func FromYAML(path string) (*Hyperparameters, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var doc outerDoc
	if err := vp.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("config: unmarshal outer doc: %w", err)
	}

	raw, err := yaml.Marshal(doc.Def)
	if err != nil {
		return nil, fmt.Errorf("config: remarshal def: %w", err)
	}

	hp := &Hyperparameters{}
	if err := yaml.Unmarshal(raw, hp); err != nil {
		return nil, fmt.Errorf("config: unmarshal hyperparameters: %w", err)
	}

	if err := hp.Validate(); err != nil {
		return nil, err
	}
	return hp, nil
}
