package risk

import (
	"fmt"
	"math"
)

// ShardCorruptionProbability returns the probability that a uniformly random
// shard of p.ShardSize() nodes, drawn without replacement, holds at least
// p.MinCorrupt() adversarial nodes.
//
// Degenerate inputs are not errors: with no adversaries, or with a threshold
// no shard can reach, the result is exactly 0.
func ShardCorruptionProbability(p Params) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return TailProbability(p.Population, p.Adversaries(), p.ShardSize(), p.MinCorrupt(), p.MaxCorrupt()), nil
}

// SystemFailureProbability combines a per-shard corruption probability into
// the probability that at least one of shards independent shards fails.
//
// exact is 1 - (1-p)^shards. approx is the first-order union bound
// shards*p, which never falls below exact and may exceed 1 when p is not
// small. Zero shards yields (0, 0).
func SystemFailureProbability(p float64, shards int) (exact, approx float64, err error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, 0, fmt.Errorf("%w: got %v", ErrInvalidProbability, p)
	}
	if shards < 0 {
		return 0, 0, fmt.Errorf("%w: got %d", ErrInvalidShards, shards)
	}
	if shards == 0 || p == 0 {
		return 0, 0, nil
	}

	approx = float64(shards) * p
	if p == 1 {
		return 1, approx, nil
	}

	// -expm1(S*log1p(-p)) keeps precision when p is far below machine epsilon.
	exact = clampUnit(-math.Expm1(float64(shards) * math.Log1p(-p)))
	return math.Min(exact, approx), approx, nil
}
