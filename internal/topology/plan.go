// Package topology maps a node population onto shards the same way the risk
// model sizes them. See doc.go for complete package documentation.
package topology

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

// ErrInvalidLayout is returned when a layout or plan cannot hold any node.
var ErrInvalidLayout = errors.New("invalid layout")

// Layout describes how nodes are packed onto servers: every server runs
// NodesPerServer nodes, and nodes are numbered server by server.
//
// Example:
//
//	layout := Layout{Servers: 25, NodesPerServer: 4}
//	layout.Population() // 100
//	layout.Node(5)      // NodeInfo{Index: 5, Server: 1, Slot: 1}
type Layout struct {
	// Servers is the number of machines in the deployment.
	Servers int `json:"servers" yaml:"servers"`

	// NodesPerServer is how many nodes each machine hosts.
	NodesPerServer int `json:"nodes_per_server" yaml:"nodes_per_server"`
}

// NodeInfo locates one node inside a Layout.
type NodeInfo struct {
	Index  int `json:"index"`  // Global node index in [0, Population)
	Server int `json:"server"` // Server hosting the node
	Slot   int `json:"slot"`   // Position of the node on its server
}

// Validate reports whether the layout can host at least one node.
func (l Layout) Validate() error {
	if l.Servers <= 0 || l.NodesPerServer <= 0 {
		return fmt.Errorf("%w: %d servers x %d nodes", ErrInvalidLayout, l.Servers, l.NodesPerServer)
	}
	return nil
}

// Population is the total node count of the layout.
func (l Layout) Population() int {
	return l.Servers * l.NodesPerServer
}

// Node returns the placement of node index i. Indices outside the layout
// report ok = false.
func (l Layout) Node(i int) (NodeInfo, bool) {
	if l.NodesPerServer <= 0 || i < 0 || i >= l.Population() {
		return NodeInfo{}, false
	}
	return NodeInfo{Index: i, Server: i / l.NodesPerServer, Slot: i % l.NodesPerServer}, true
}

// Plan is the shard placement of a population: shard k holds the nodes
// [k*ShardSize, (k+1)*ShardSize). Nodes past NumShards*ShardSize belong to
// no shard.
//
// A Plan is immutable after NewPlan returns and safe for concurrent use.
//
//	┌─────────────────────────────────────────────┐
//	│  Plan (population 10, 3 shards, size 3)     │
//	├─────────────────────────────────────────────┤
//	│  shard 0: 0 1 2                             │
//	│  shard 1: 3 4 5                             │
//	│  shard 2: 6 7 8                             │
//	│  remainder: 9                               │
//	└─────────────────────────────────────────────┘
type Plan struct {
	population int
	numShards  int
	shardSize  int
}

// NewPlan creates the placement of population nodes into numShards shards.
//
// Parameters:
//   - population: Total node count (must be > 0)
//   - numShards: Number of shards (must be in [1, population])
//
// Returns:
//   - The plan, or ErrInvalidLayout if no shard could hold a node
func NewPlan(population, numShards int) (*Plan, error) {
	if population <= 0 {
		return nil, fmt.Errorf("%w: population %d", ErrInvalidLayout, population)
	}
	if numShards <= 0 || numShards > population {
		return nil, fmt.Errorf("%w: %d shards for %d nodes", ErrInvalidLayout, numShards, population)
	}
	return &Plan{
		population: population,
		numShards:  numShards,
		shardSize:  population / numShards,
	}, nil
}

// NewLayoutPlan is NewPlan for the population of a server layout.
func NewLayoutPlan(layout Layout, numShards int) (*Plan, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return NewPlan(layout.Population(), numShards)
}

// Population returns the total node count the plan was built for.
func (p *Plan) Population() int { return p.population }

// NumShards returns the number of shards in the plan.
func (p *Plan) NumShards() int { return p.numShards }

// ShardSize returns the number of nodes in every shard.
func (p *Plan) ShardSize() int { return p.shardSize }

// ShardOf returns the shard that node belongs to. Remainder nodes and
// indices outside the population report ok = false.
func (p *Plan) ShardOf(node int) (shard int, ok bool) {
	if node < 0 || node >= p.numShards*p.shardSize {
		return 0, false
	}
	return node / p.shardSize, true
}

// Members returns the node indices of a shard in ascending order.
func (p *Plan) Members(shard int) ([]int, error) {
	if shard < 0 || shard >= p.numShards {
		return nil, fmt.Errorf("invalid shard ID %d, must be in range [0, %d)", shard, p.numShards)
	}
	members := make([]int, p.shardSize)
	for i := range members {
		members[i] = shard*p.shardSize + i
	}
	return members, nil
}

// Remainder returns the nodes left out of every shard by the floor division.
// The list is empty when the population divides evenly.
func (p *Plan) Remainder() []int {
	start := p.numShards * p.shardSize
	rest := make([]int, 0, p.population-start)
	for i := start; i < p.population; i++ {
		rest = append(rest, i)
	}
	return rest
}

// Servers returns the distinct servers that host members of shard under
// layout, sorted ascending. A shard spread over few servers shares fate
// with them, which the independent-sampling model does not capture.
func (p *Plan) Servers(layout Layout, shard int) ([]int, error) {
	members, err := p.Members(shard)
	if err != nil {
		return nil, err
	}

	servers := make([]int, 0, len(members))
	for _, m := range members {
		info, ok := layout.Node(m)
		if !ok {
			return nil, fmt.Errorf("%w: node %d outside layout of %d nodes", ErrInvalidLayout, m, layout.Population())
		}
		servers = append(servers, info.Server)
	}
	slices.Sort(servers)
	return slices.Compact(servers), nil
}
