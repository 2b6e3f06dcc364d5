package risk

import "math"

// LogChoose returns ln C(n, k). Coefficients outside 0 <= k <= n are zero,
// so their logarithm is -Inf.
func LogChoose(n, k int) float64 {
	if n < 0 || k < 0 || k > n {
		return math.Inf(-1)
	}
	if k == 0 || k == n {
		return 0
	}
	a, _ := math.Lgamma(float64(n) + 1)
	b, _ := math.Lgamma(float64(k) + 1)
	c, _ := math.Lgamma(float64(n-k) + 1)
	return a - b - c
}

// PointMass returns P(X = x) for X hypergeometric: draws taken without
// replacement from population items of which marked are adversarial.
func PointMass(population, marked, draws, x int) float64 {
	if !validUrn(population, marked, draws) {
		return 0
	}
	l := logPointMass(population, marked, draws, x)
	if math.IsInf(l, -1) {
		return 0
	}
	return math.Exp(l)
}

// TailProbability returns P(lo <= X <= hi) for the same hypergeometric
// variable as PointMass. An empty range yields exactly 0.
//
// The first in-support term comes from log-gamma coefficients; the rest
// follow from the ratio
//
//	P(x+1) / P(x) = (marked-x)(draws-x) / ((x+1)(population-marked-draws+x+1))
//
// accumulated in log space and reduced with a running log-sum-exp, so no
// factorial is formed and a tiny leading term cannot zero out the sum.
// Totals below the smallest positive float64 underflow to 0.
func TailProbability(population, marked, draws, lo, hi int) float64 {
	if !validUrn(population, marked, draws) {
		return 0
	}

	// Clamp to the support of X.
	lo = max(lo, 0, draws-(population-marked))
	hi = min(hi, marked, draws)
	if lo > hi {
		return 0
	}

	logP := logPointMass(population, marked, draws, lo)
	maxLog := logP
	sum := 1.0 // sum of exp(term - maxLog)

	for x := lo; x < hi; x++ {
		logP += math.Log(float64(marked-x)) + math.Log(float64(draws-x)) -
			math.Log(float64(x+1)) - math.Log(float64(population-marked-draws+x+1))
		if logP > maxLog {
			sum = sum*math.Exp(maxLog-logP) + 1
			maxLog = logP
		} else {
			sum += math.Exp(logP - maxLog)
		}
	}

	return clampUnit(math.Exp(maxLog + math.Log(sum)))
}

func logPointMass(population, marked, draws, x int) float64 {
	return LogChoose(marked, x) + LogChoose(population-marked, draws-x) - LogChoose(population, draws)
}

func validUrn(population, marked, draws int) bool {
	return population > 0 &&
		marked >= 0 && marked <= population &&
		draws >= 0 && draws <= population
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
