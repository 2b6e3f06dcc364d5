package risk

import (
	"fmt"
	"io"
)

// DefaultPrecision is the number of mantissa digits used by Report.Format
// when the caller passes a negative precision.
const DefaultPrecision = 6

// Report is the outcome of one evaluation: the inputs, the derived shard
// quantities and both system-level estimates.
type Report struct {
	// ID is assigned by whoever persists the report; Evaluate leaves it empty.
	ID     string `json:"id,omitempty"`
	Params Params `json:"params"`

	ShardSize   int `json:"shard_size"`
	Remainder   int `json:"remainder"`
	Adversaries int `json:"adversaries"`
	MinCorrupt  int `json:"min_corrupt"`
	MaxCorrupt  int `json:"max_corrupt"`

	ShardProbability float64 `json:"shard_probability"`
	SystemExact      float64 `json:"system_exact"`
	SystemApprox     float64 `json:"system_approx"`

	// ApproxExceedsOne flags a first-order estimate outside [0, 1], which
	// means the per-shard probability is too large for the approximation.
	ApproxExceedsOne bool `json:"approx_exceeds_one"`
}

// Evaluate runs the estimator and the aggregator for p.
func Evaluate(p Params) (Report, error) {
	shardProb, err := ShardCorruptionProbability(p)
	if err != nil {
		return Report{}, err
	}
	exact, approx, err := SystemFailureProbability(shardProb, p.Shards)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Params:           p,
		ShardSize:        p.ShardSize(),
		Remainder:        p.Remainder(),
		Adversaries:      p.Adversaries(),
		MinCorrupt:       p.MinCorrupt(),
		MaxCorrupt:       p.MaxCorrupt(),
		ShardProbability: shardProb,
		SystemExact:      exact,
		SystemApprox:     approx,
		ApproxExceedsOne: approx > 1,
	}, nil
}

// Format writes the report as text, probabilities in scientific notation
// with precision digits after the decimal point.
func (r Report) Format(w io.Writer, precision int) error {
	if precision < 0 {
		precision = DefaultPrecision
	}

	lines := []string{
		fmt.Sprintf("population: %d, shards: %d, threshold: %.2f, shard size: %d",
			r.Params.Population, r.Params.Shards, r.Params.Threshold, r.ShardSize),
		fmt.Sprintf("adversaries: %d (fraction %.4f), corrupting range: [%d, %d]",
			r.Adversaries, r.Params.AdversaryFraction, r.MinCorrupt, r.MaxCorrupt),
	}
	if r.Remainder > 0 {
		lines = append(lines, fmt.Sprintf("unsharded remainder: %d nodes", r.Remainder))
	}
	lines = append(lines,
		fmt.Sprintf("shard failure probability: %.*e", precision, r.ShardProbability),
		fmt.Sprintf("system failure probability (exact): %.*e, (first-order): %.*e",
			precision, r.SystemExact, precision, r.SystemApprox),
	)
	if r.ApproxExceedsOne {
		lines = append(lines, "warning: first-order estimate exceeds 1; use the exact value")
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
