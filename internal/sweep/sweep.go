// Package sweep evaluates the risk model over a grid of parameters in
// parallel. Every grid point is independent, so points are fanned out to a
// bounded pool of workers and reassembled in a deterministic order.
package sweep

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/shardrisk/internal/risk"
)

// DefaultMaxPoints caps a sweep when Options.MaxPoints is zero.
const DefaultMaxPoints = 100000

// ErrGridTooLarge is returned by Run for a grid with more points than allowed.
var ErrGridTooLarge = errors.New("grid too large")

// Grid is a cartesian product of parameter axes around a base point.
// An empty axis keeps the base value for that parameter.
type Grid struct {
	Base       risk.Params `json:"base" yaml:"base"`
	Shards     []int       `json:"shards,omitempty" yaml:"shards,omitempty"`
	Fractions  []float64   `json:"fractions,omitempty" yaml:"fractions,omitempty"`
	Thresholds []float64   `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// Size is the number of points Points would return, computed without
// expanding the grid. It saturates at math.MaxInt.
func (g Grid) Size() int {
	n := 1
	for _, l := range []int{len(g.Shards), len(g.Fractions), len(g.Thresholds)} {
		l = max(l, 1)
		if n > math.MaxInt/l {
			return math.MaxInt
		}
		n *= l
	}
	return n
}

// Points expands the grid, shards outermost and thresholds innermost.
func (g Grid) Points() []risk.Params {
	shards := g.Shards
	if len(shards) == 0 {
		shards = []int{g.Base.Shards}
	}
	fractions := g.Fractions
	if len(fractions) == 0 {
		fractions = []float64{g.Base.AdversaryFraction}
	}
	thresholds := g.Thresholds
	if len(thresholds) == 0 {
		thresholds = []float64{g.Base.Threshold}
	}

	points := make([]risk.Params, 0, len(shards)*len(fractions)*len(thresholds))
	for _, s := range shards {
		for _, f := range fractions {
			for _, th := range thresholds {
				p := g.Base
				p.Shards = s
				p.AdversaryFraction = f
				p.Threshold = th
				points = append(points, p)
			}
		}
	}
	return points
}

// Options tunes a sweep run.
type Options struct {
	// Workers bounds concurrent evaluations. Zero means GOMAXPROCS.
	Workers int

	// Logger receives one debug entry per evaluated point. Nil disables logging.
	Logger *zap.Logger

	// MaxPoints rejects larger grids with ErrGridTooLarge before any work
	// is done. Zero means DefaultMaxPoints.
	MaxPoints int
}

// Run evaluates every grid point and returns the reports ordered by shard
// count, then adversary fraction, then threshold.
//
// The first invalid point cancels the remaining work and its error is
// returned. Cancelling ctx stops the sweep with ctx.Err().
func Run(ctx context.Context, grid Grid, opts Options) ([]risk.Report, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := opts.MaxPoints
	if limit <= 0 {
		limit = DefaultMaxPoints
	}
	if n := grid.Size(); n > limit {
		return nil, fmt.Errorf("%w: %d points, limit is %d", ErrGridTooLarge, n, limit)
	}

	points := grid.Points()
	reports := make([]risk.Report, len(points))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range points {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := risk.Evaluate(p)
			if err != nil {
				return fmt.Errorf("grid point %d (shards=%d fraction=%v threshold=%v): %w",
					i, p.Shards, p.AdversaryFraction, p.Threshold, err)
			}
			logger.Debug("evaluated grid point",
				zap.Int("index", i),
				zap.Int("shards", p.Shards),
				zap.Float64("fraction", p.AdversaryFraction),
				zap.Float64("threshold", p.Threshold),
				zap.Float64("shard_probability", report.ShardProbability))
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(reports, compareReports)
	return reports, nil
}

func compareReports(a, b risk.Report) int {
	if c := cmp.Compare(a.Params.Shards, b.Params.Shards); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Params.AdversaryFraction, b.Params.AdversaryFraction); c != 0 {
		return c
	}
	return cmp.Compare(a.Params.Threshold, b.Params.Threshold)
}

// MaxShardsWithin returns the report with the most shards whose exact
// system failure probability does not exceed budget. ok is false when no
// report fits.
func MaxShardsWithin(reports []risk.Report, budget float64) (best risk.Report, ok bool) {
	for _, r := range reports {
		if r.SystemExact > budget {
			continue
		}
		if !ok || r.Params.Shards > best.Params.Shards {
			best, ok = r, true
		}
	}
	return best, ok
}
