package risk

import (
	"errors"
	"fmt"
	"math"
)

// Validation errors returned by Params.Validate and the aggregator.
// Callers match them with errors.Is; the returned error carries the offending value.
var (
	ErrInvalidPopulation  = errors.New("population must be positive")
	ErrInvalidFraction    = errors.New("adversary fraction must be in [0, 1)")
	ErrInvalidShards      = errors.New("shard count must be positive")
	ErrInvalidThreshold   = errors.New("corruption threshold must be in (0, 1]")
	ErrInvalidProbability = errors.New("probability must be in [0, 1]")
	ErrEmptyShard         = errors.New("shard count exceeds population")
)

// Params is the full input to a shard risk evaluation.
//
// Params is a plain value: every evaluation receives its own copy and
// nothing in this package keeps parameters between calls.
type Params struct {
	// Population is the total number of nodes (N_total).
	Population int `json:"population" yaml:"population"`

	// AdversaryFraction is the upper bound on the adversarial share of the
	// population (F). Deployments usually keep it below 1/3.
	AdversaryFraction float64 `json:"adversary_fraction" yaml:"adversary_fraction"`

	// Shards is the number of shards the population is split into (S).
	Shards int `json:"shards" yaml:"shards"`

	// Threshold is the share of a shard that must be adversarial for the
	// shard to count as corrupted, e.g. 2/3.
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// Default driver values: 2000 nodes, a quarter adversarial, 2/3 in-shard
// tolerance and shards of roughly 117 nodes.
const (
	DefaultPopulation        = 2000
	DefaultAdversaryFraction = 1.0 / 4
	DefaultThreshold         = 2.0 / 3
	DefaultShardSize         = 117
)

// DefaultParams returns the parameters of the reference capacity plan.
func DefaultParams() Params {
	return Params{
		Population:        DefaultPopulation,
		AdversaryFraction: DefaultAdversaryFraction,
		Shards:            DefaultPopulation / DefaultShardSize,
		Threshold:         DefaultThreshold,
	}
}

// Validate rejects parameters outside the model's domain.
// F = 0 is accepted and yields a zero corruption probability.
func (p Params) Validate() error {
	if p.Population <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPopulation, p.Population)
	}
	if math.IsNaN(p.AdversaryFraction) || p.AdversaryFraction < 0 || p.AdversaryFraction >= 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidFraction, p.AdversaryFraction)
	}
	if p.Shards <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidShards, p.Shards)
	}
	if math.IsNaN(p.Threshold) || p.Threshold <= 0 || p.Threshold > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, p.Threshold)
	}
	if p.Shards > p.Population {
		return fmt.Errorf("%w: %d shards for %d nodes", ErrEmptyShard, p.Shards, p.Population)
	}
	return nil
}

// ShardSize is the number of nodes per shard, Population div Shards.
// Nodes left over by the floor division are not placed in any shard.
func (p Params) ShardSize() int {
	if p.Shards <= 0 {
		return 0
	}
	return p.Population / p.Shards
}

// Remainder is the number of nodes the floor division leaves out.
func (p Params) Remainder() int {
	return p.Population - p.Shards*p.ShardSize()
}

// Adversaries is floor(F * Population), the adversarial node count (M).
func (p Params) Adversaries() int {
	return int(math.Floor(p.AdversaryFraction * float64(p.Population)))
}

// MinCorrupt is ceil(ShardSize * Threshold), the smallest adversarial count
// that corrupts a shard. When it exceeds MaxCorrupt no shard can be
// corrupted and the probability is exactly zero.
func (p Params) MinCorrupt() int {
	return int(math.Ceil(float64(p.ShardSize()) * p.Threshold))
}

// MaxCorrupt is the largest adversarial count a shard can hold.
func (p Params) MaxCorrupt() int {
	return min(p.ShardSize(), p.Adversaries())
}

// ShardsForSize returns how many shards of the given size fit in the
// population, using the same floor division as ShardSize.
func ShardsForSize(population, size int) (int, error) {
	if population <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidPopulation, population)
	}
	if size <= 0 {
		return 0, fmt.Errorf("%w: shard size %d", ErrInvalidShards, size)
	}
	shards := population / size
	if shards == 0 {
		return 0, fmt.Errorf("%w: shard size %d exceeds population %d", ErrInvalidShards, size, population)
	}
	return shards, nil
}
