// Package risk estimates how likely a randomly sampled shard is to be
// corrupted by adversarial nodes, and how that per-shard risk adds up across
// all shards of a deployment.
//
// # Overview
//
// A population of Population nodes contains floor(F * Population) adversarial
// nodes. The population is split into Shards shards of Population div Shards
// nodes each. A shard is corrupted when at least ceil(ShardSize * Threshold)
// of its members are adversarial. The package answers two questions:
//
//   - What is the probability that one uniformly sampled shard is corrupted?
//   - What is the probability that at least one shard in the system is?
//
// # Model
//
//	Params ──► ShardCorruptionProbability ──► p ──► SystemFailureProbability ──► (exact, approx)
//	               (hypergeometric tail)              (1-(1-p)^S, S*p)
//
// Drawing a shard is sampling without replacement, so the adversarial count X
// in a shard is hypergeometric:
//
//	P(X = x) = C(M, x) · C(N-M, n-x) / C(N, n)
//
// and the shard corruption probability is the tail sum over
// x in [MinCorrupt, MaxCorrupt]. An empty range is a valid answer of 0.
//
// # Numerical Stability
//
// For populations in the thousands the binomial coefficients overflow any
// float long before the division, and the probabilities of interest are often
// far below machine epsilon. TailProbability therefore never forms a
// coefficient directly: the first term is computed from log-gamma values and
// each later term from the ratio of consecutive point masses, all in log
// space, then reduced with log-sum-exp. True probabilities smaller than the
// smallest positive float64 come back as 0, which is not an error.
//
// The exact system estimate is evaluated as -expm1(S * log1p(-p)) so that a
// per-shard probability of 1e-30 still produces a meaningful system value.
//
// # Independence
//
// The exact formula treats shards as independent. Real shards are disjoint
// samples of one finite population and are slightly negatively correlated;
// the formula is a modelling simplification. The first-order estimate S * p is
// a union bound: it is never below the exact value and is only useful while
// it stays well below 1.
//
// # Remainder Nodes
//
// Population div Shards drops up to Shards-1 nodes from the sizing. They are
// reported in Report.Remainder and otherwise ignored; no uneven placement
// policy is assumed.
//
// # Errors
//
// Inputs outside the domain fail fast with one of the Err* sentinels wrapped
// with the offending value. Degenerate inputs (no adversaries, unreachable
// threshold) return boundary probabilities instead.
//
// # Example
//
//	p := risk.Params{Population: 2000, AdversaryFraction: 0.25, Shards: 17, Threshold: 2.0 / 3}
//	report, err := risk.Evaluate(p)
//	if err != nil {
//	    return err
//	}
//	report.Format(os.Stdout, 6)
package risk
