// Package config loads capacity-planning scenarios from YAML files and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/shardrisk/internal/risk"
	"github.com/dreamware/shardrisk/internal/sweep"
	"github.com/dreamware/shardrisk/internal/topology"
)

// ErrConflict is returned when two scenario settings disagree.
var ErrConflict = errors.New("conflicting scenario settings")

// Scenario is one capacity plan as written in a scenario file.
//
//	population: 2000
//	adversary_fraction: 0.25
//	shard_size: 117        # or shards: 17
//	threshold: 0.6667
//	precision: 6
//	layout:
//	  servers: 500
//	  nodes_per_server: 4
//	sweep:
//	  shards: [10, 17, 25]
//	budget: 0.000001
type Scenario struct {
	Population        int     `yaml:"population"`
	AdversaryFraction float64 `yaml:"adversary_fraction"`
	Shards            int     `yaml:"shards"`
	ShardSize         int     `yaml:"shard_size"`
	Threshold         float64 `yaml:"threshold"`
	Precision         int     `yaml:"precision"`

	// Layout, when present, supplies the population from a server layout.
	Layout *topology.Layout `yaml:"layout,omitempty"`

	// Sweep lists the axes to vary around the base plan.
	Sweep SweepAxes `yaml:"sweep,omitempty"`

	// Budget is the tolerated system failure probability used to pick the
	// largest safe shard count from a sweep. Zero disables the check.
	Budget float64 `yaml:"budget,omitempty"`
}

// SweepAxes are the optional grid axes of a scenario.
type SweepAxes struct {
	Shards     []int     `yaml:"shards,omitempty"`
	Fractions  []float64 `yaml:"fractions,omitempty"`
	Thresholds []float64 `yaml:"thresholds,omitempty"`
}

// Default returns the reference plan: 2000 nodes, a quarter adversarial,
// shards of 117 nodes and a 2/3 corruption threshold. Population stays zero
// so that a layout can supply it; Params falls back to 2000.
func Default() Scenario {
	return Scenario{
		AdversaryFraction: risk.DefaultAdversaryFraction,
		ShardSize:         risk.DefaultShardSize,
		Threshold:         risk.DefaultThreshold,
		Precision:         risk.DefaultPrecision,
	}
}

// Load reads a scenario file. Keys missing from the file keep their
// Default values; unknown keys are rejected.
func Load(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Decode parses a scenario document from r on top of Default.
func Decode(r io.Reader) (Scenario, error) {
	s := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Scenario{}, err
	}
	return s, nil
}

// Params resolves the scenario into validated model parameters.
//
// The population comes from Population, or from Layout when Population is
// zero, or else risk.DefaultPopulation; Population and Layout set to
// different values is a conflict. The shard count comes
// from Shards, or from Population div ShardSize when Shards is zero.
func (s Scenario) Params() (risk.Params, error) {
	population := s.Population
	if s.Layout != nil {
		if err := s.Layout.Validate(); err != nil {
			return risk.Params{}, err
		}
		switch {
		case population == 0:
			population = s.Layout.Population()
		case population != s.Layout.Population():
			return risk.Params{}, fmt.Errorf("%w: population %d but layout holds %d nodes",
				ErrConflict, population, s.Layout.Population())
		}
	}
	if population == 0 {
		population = risk.DefaultPopulation
	}

	shards := s.Shards
	if shards == 0 && s.ShardSize > 0 {
		n, err := risk.ShardsForSize(population, s.ShardSize)
		if err != nil {
			return risk.Params{}, err
		}
		shards = n
	}

	p := risk.Params{
		Population:        population,
		AdversaryFraction: s.AdversaryFraction,
		Shards:            shards,
		Threshold:         s.Threshold,
	}
	if err := p.Validate(); err != nil {
		return risk.Params{}, err
	}
	return p, nil
}

// Grid builds the sweep grid around the scenario's base plan.
func (s Scenario) Grid() (sweep.Grid, error) {
	base, err := s.Params()
	if err != nil {
		return sweep.Grid{}, err
	}
	return sweep.Grid{
		Base:       base,
		Shards:     s.Sweep.Shards,
		Fractions:  s.Sweep.Fractions,
		Thresholds: s.Sweep.Thresholds,
	}, nil
}

// Plan returns the shard placement the scenario implies, laid over the
// server layout when one is set.
func (s Scenario) Plan() (*topology.Plan, error) {
	p, err := s.Params()
	if err != nil {
		return nil, err
	}
	if s.Layout != nil {
		return topology.NewLayoutPlan(*s.Layout, p.Shards)
	}
	return topology.NewPlan(p.Population, p.Shards)
}
