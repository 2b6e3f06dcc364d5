package config

import (
	"github.com/spf13/pflag"

	"github.com/dreamware/shardrisk/internal/risk"
	"github.com/dreamware/shardrisk/internal/topology"
)

// Flags binds scenario settings to a flag set. Values from flags the user
// actually set override the scenario file; untouched flags never do.
type Flags struct {
	fs *pflag.FlagSet

	file           string
	population     int
	fraction       float64
	shards         int
	shardSize      int
	threshold      float64
	precision      int
	servers        int
	nodesPerServer int
	shardsList     []int
	fractions      []float64
	thresholds     []float64
	budget         float64
}

// AddFlags registers the scenario flags on fs.
func AddFlags(fs *pflag.FlagSet) *Flags {
	d := Default()
	f := &Flags{fs: fs}

	fs.StringVarP(&f.file, "config", "c", "", "scenario YAML file")
	fs.IntVarP(&f.population, "population", "n", risk.DefaultPopulation, "total number of nodes")
	fs.Float64VarP(&f.fraction, "fraction", "f", d.AdversaryFraction, "upper bound on the adversarial fraction")
	fs.IntVarP(&f.shards, "shards", "s", 0, "number of shards (overrides --shard-size)")
	fs.IntVar(&f.shardSize, "shard-size", d.ShardSize, "target shard size; shards = population div shard-size")
	fs.Float64VarP(&f.threshold, "threshold", "t", d.Threshold, "adversarial share of a shard that corrupts it")
	fs.IntVarP(&f.precision, "precision", "p", d.Precision, "digits after the decimal point in reports")
	fs.IntVar(&f.servers, "servers", 0, "servers in the deployment layout")
	fs.IntVar(&f.nodesPerServer, "nodes-per-server", 0, "nodes per server in the deployment layout")
	fs.IntSliceVar(&f.shardsList, "shards-list", nil, "shard counts to sweep")
	fs.Float64SliceVar(&f.fractions, "fractions", nil, "adversarial fractions to sweep")
	fs.Float64SliceVar(&f.thresholds, "thresholds", nil, "corruption thresholds to sweep")
	fs.Float64Var(&f.budget, "budget", 0, "tolerated system failure probability for sweeps")

	return f
}

// Scenario loads the --config file, if any, and applies changed flags.
func (f *Flags) Scenario() (Scenario, error) {
	s := Default()
	if f.file != "" {
		loaded, err := Load(f.file)
		if err != nil {
			return Scenario{}, err
		}
		s = loaded
	}

	if f.changed("population") {
		s.Population = f.population
	}
	if f.changed("fraction") {
		s.AdversaryFraction = f.fraction
	}
	if f.changed("shard-size") {
		s.ShardSize = f.shardSize
		s.Shards = 0
	}
	if f.changed("shards") {
		s.Shards = f.shards
	}
	if f.changed("threshold") {
		s.Threshold = f.threshold
	}
	if f.changed("precision") {
		s.Precision = f.precision
	}
	if f.changed("servers") || f.changed("nodes-per-server") {
		layout := topology.Layout{}
		if s.Layout != nil {
			layout = *s.Layout
		}
		if f.changed("servers") {
			layout.Servers = f.servers
		}
		if f.changed("nodes-per-server") {
			layout.NodesPerServer = f.nodesPerServer
		}
		s.Layout = &layout
		if !f.changed("population") {
			s.Population = 0
		}
	}
	if f.changed("shards-list") {
		s.Sweep.Shards = f.shardsList
	}
	if f.changed("fractions") {
		s.Sweep.Fractions = f.fractions
	}
	if f.changed("thresholds") {
		s.Sweep.Thresholds = f.thresholds
	}
	if f.changed("budget") {
		s.Budget = f.budget
	}
	return s, nil
}

func (f *Flags) changed(name string) bool {
	flag := f.fs.Lookup(name)
	return flag != nil && flag.Changed
}
