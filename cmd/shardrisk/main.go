package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dreamware/shardrisk/internal/api"
	"github.com/dreamware/shardrisk/internal/config"
	"github.com/dreamware/shardrisk/internal/logging"
	"github.com/dreamware/shardrisk/internal/risk"
	"github.com/dreamware/shardrisk/internal/sweep"
	"github.com/dreamware/shardrisk/internal/topology"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli holds the state shared by every subcommand.
type cli struct {
	out     io.Writer
	verbose bool
	logFile string
	logger  *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "shardrisk",
		Short: "Estimate the probability that a sharded system is corrupted",
		Long: `shardrisk estimates how likely a random shard assignment is to hand an
adversary a shard, and how likely that is to happen to any shard at all.

Nodes are split into equal shards by random sampling without replacement. A
shard is corrupted when its adversarial share reaches the threshold. The
per-shard probability is a hypergeometric tail; the system probability treats
shards as independent.

Run without flags to evaluate the reference plan: 2000 nodes, a quarter
adversarial, shards of 117 nodes and a 2/3 threshold.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if c.verbose {
				level = "debug"
			}
			logger, err := logging.New(logging.Options{
				Level:  level,
				File:   c.logFile,
				Fields: map[string]interface{}{"component": "shardrisk"},
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging on stderr")
	root.PersistentFlags().StringVar(&c.logFile, "log-file", "", "write logs to a rotating file instead of stderr")

	estimate := c.estimateCmd()
	root.AddCommand(estimate, c.sweepCmd(), c.aggregateCmd())
	root.RunE = estimate.RunE
	root.Flags().AddFlagSet(estimate.Flags())

	return root
}

func (c *cli) estimateCmd() *cobra.Command {
	var (
		remote string
		locate int
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Evaluate one sharding plan",
		Long: `Evaluates one plan and prints the shard and system failure probabilities.

Parameters come from --config, overridden by any flag given explicitly.
With --servers and --nodes-per-server the population is taken from the
layout and the report also shows how many servers each shard spans and
where the unsharded nodes live. --locate prints the shard of one node.

Example:
  shardrisk estimate -n 1000 -f 0.3 -s 10 -t 0.5`,
		Args: cobra.NoArgs,
	}
	flags := config.AddFlags(cmd.Flags())
	cmd.Flags().StringVar(&remote, "remote", "", "riskd base URL; evaluate and store the report there")
	cmd.Flags().IntVar(&locate, "locate", -1, "print the shard (and server, with a layout) of this node index")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		scenario, err := flags.Scenario()
		if err != nil {
			return err
		}
		params, err := scenario.Params()
		if err != nil {
			return err
		}

		var report risk.Report
		if remote != "" {
			report, err = api.NewClient(remote).Estimate(cmd.Context(), params)
		} else {
			report, err = risk.Evaluate(params)
		}
		if err != nil {
			return err
		}
		c.logger.Debug("evaluated plan",
			zap.Int("population", params.Population),
			zap.Int("shards", params.Shards),
			zap.Bool("remote", remote != ""))

		if err := report.Format(c.out, scenario.Precision); err != nil {
			return err
		}
		if report.ID != "" {
			fmt.Fprintf(c.out, "report id: %s\n", report.ID)
		}
		if scenario.Layout == nil && locate < 0 {
			return nil
		}
		plan, err := scenario.Plan()
		if err != nil {
			return err
		}
		if scenario.Layout != nil {
			if err := c.printSpread(plan, *scenario.Layout); err != nil {
				return err
			}
		}
		if locate >= 0 {
			return c.printLocation(plan, scenario.Layout, locate)
		}
		return nil
	}
	return cmd
}

// printSpread reports the fewest and most servers any shard spans, and the
// servers hosting nodes that belong to no shard.
func (c *cli) printSpread(plan *topology.Plan, layout topology.Layout) error {
	fewest, most := 0, 0
	for s := 0; s < plan.NumShards(); s++ {
		servers, err := plan.Servers(layout, s)
		if err != nil {
			return err
		}
		if s == 0 || len(servers) < fewest {
			fewest = len(servers)
		}
		most = max(most, len(servers))
	}
	fmt.Fprintf(c.out, "servers per shard: min %d, max %d (of %d servers)\n", fewest, most, layout.Servers)

	rest := plan.Remainder()
	if len(rest) == 0 {
		return nil
	}
	nodes := make([]string, 0, len(rest))
	for _, n := range rest {
		info, _ := layout.Node(n)
		nodes = append(nodes, fmt.Sprintf("%d (server %d)", n, info.Server))
	}
	_, err := fmt.Fprintf(c.out, "unsharded nodes: %s\n", strings.Join(nodes, ", "))
	return err
}

// printLocation reports which shard holds node, and its server when a layout is known.
func (c *cli) printLocation(plan *topology.Plan, layout *topology.Layout, node int) error {
	if node >= plan.Population() {
		return fmt.Errorf("node %d is outside the population of %d", node, plan.Population())
	}
	where := "unsharded"
	if shard, ok := plan.ShardOf(node); ok {
		where = fmt.Sprintf("shard %d", shard)
	}
	if layout != nil {
		if info, ok := layout.Node(node); ok {
			where += fmt.Sprintf(", server %d slot %d", info.Server, info.Slot)
		}
	}
	_, err := fmt.Fprintf(c.out, "node %d: %s\n", node, where)
	return err
}

func (c *cli) sweepCmd() *cobra.Command {
	var (
		remote  string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate a grid of plans",
		Long: `Evaluates every combination of --shards-list, --fractions and --thresholds
around the base plan and prints one line per point, ordered by shard count,
then fraction, then threshold.

With --budget the largest shard count whose exact system failure probability
stays within the budget is printed last.

Example:
  shardrisk sweep --shards-list 10,17,25,40 --budget 1e-9`,
		Args: cobra.NoArgs,
	}
	flags := config.AddFlags(cmd.Flags())
	cmd.Flags().StringVar(&remote, "remote", "", "riskd base URL; run the sweep there")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent evaluations (0 = GOMAXPROCS)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		scenario, err := flags.Scenario()
		if err != nil {
			return err
		}
		grid, err := scenario.Grid()
		if err != nil {
			return err
		}

		var reports []risk.Report
		if remote != "" {
			resp, err := api.NewClient(remote).Sweep(cmd.Context(), api.SweepRequest{Grid: grid})
			if err != nil {
				return err
			}
			reports = resp.Reports
		} else {
			reports, err = sweep.Run(cmd.Context(), grid, sweep.Options{Workers: workers, Logger: c.logger})
			if err != nil {
				return err
			}
		}

		prec := scenario.Precision
		if prec < 0 {
			prec = risk.DefaultPrecision
		}
		for _, r := range reports {
			fmt.Fprintf(c.out, "shards=%d size=%d fraction=%v threshold=%.4f shard=%.*e system=%.*e\n",
				r.Params.Shards, r.ShardSize, r.Params.AdversaryFraction, r.Params.Threshold,
				prec, r.ShardProbability, prec, r.SystemExact)
		}

		if scenario.Budget > 0 {
			best, ok := sweep.MaxShardsWithin(reports, scenario.Budget)
			if !ok {
				fmt.Fprintf(c.out, "no plan within budget %.*e\n", prec, scenario.Budget)
				return nil
			}
			fmt.Fprintf(c.out, "most shards within budget %.*e: %d (system=%.*e)\n",
				prec, scenario.Budget, best.Params.Shards, prec, best.SystemExact)
		}
		return nil
	}
	return cmd
}

func (c *cli) aggregateCmd() *cobra.Command {
	var (
		probability float64
		shards      int
		precision   int
		remote      string
	)

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Combine a known shard failure probability over many shards",
		Long: `Prints the exact system failure probability 1-(1-p)^S and the
first-order estimate S*p for a per-shard probability p.

Example:
  shardrisk aggregate --probability 1e-22 --shards 17`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.AggregateRequest{Probability: probability, Shards: shards}

			var resp api.AggregateResponse
			if remote != "" {
				var err error
				resp, err = api.NewClient(remote).Aggregate(cmd.Context(), req)
				if err != nil {
					return err
				}
			} else {
				exact, approx, err := risk.SystemFailureProbability(probability, shards)
				if err != nil {
					return err
				}
				resp = api.AggregateResponse{Exact: exact, Approx: approx, ApproxExceedsOne: approx > 1}
			}

			prec := precision
			if prec < 0 {
				prec = risk.DefaultPrecision
			}
			fmt.Fprintf(c.out, "system failure probability (exact): %.*e, (first-order): %.*e\n",
				prec, resp.Exact, prec, resp.Approx)
			if resp.ApproxExceedsOne {
				fmt.Fprintln(c.out, "warning: first-order estimate exceeds 1; use the exact value")
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&probability, "probability", 0, "per-shard failure probability")
	cmd.Flags().IntVarP(&shards, "shards", "s", risk.DefaultPopulation/risk.DefaultShardSize, "number of shards")
	cmd.Flags().IntVarP(&precision, "precision", "p", risk.DefaultPrecision, "digits after the decimal point")
	cmd.Flags().StringVar(&remote, "remote", "", "riskd base URL; aggregate there")
	return cmd
}
