// Package topology describes where nodes live and which shard each one
// lands in, so that a capacity plan can be checked against a concrete
// deployment.
//
// # Overview
//
// Deployments are described as a Layout: a number of servers, each running
// the same number of nodes. The population of the layout feeds the risk
// model, and a Plan shows the shard placement the model assumes.
//
//	Layout (servers x nodes/server) ──► Population ──► Plan (shards)
//	                                                    ├── Members(shard)
//	                                                    ├── ShardOf(node)
//	                                                    └── Remainder()
//
// # Shard Sizing
//
// Shard size is Population div NumShards. Nodes that do not fit are listed
// by Remainder and belong to no shard; the package does not spread them
// unevenly across shards because the risk model does not either.
//
// # Co-location
//
// Plan.Servers reports the distinct machines behind one shard. Nodes that
// share a machine fail together, so a shard packed onto few servers is
// riskier than the independent-sampling estimate suggests.
package topology
