package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLayout verifies population and node placement for a server layout.
func TestLayout(t *testing.T) {
	layout := Layout{Servers: 25, NodesPerServer: 4}
	require.NoError(t, layout.Validate())
	assert.Equal(t, 100, layout.Population())

	info, ok := layout.Node(5)
	require.True(t, ok)
	assert.Equal(t, NodeInfo{Index: 5, Server: 1, Slot: 1}, info)

	info, ok = layout.Node(99)
	require.True(t, ok)
	assert.Equal(t, NodeInfo{Index: 99, Server: 24, Slot: 3}, info)

	_, ok = layout.Node(100)
	assert.False(t, ok)
	_, ok = layout.Node(-1)
	assert.False(t, ok)
}

func TestLayoutValidate(t *testing.T) {
	tests := []Layout{
		{Servers: 0, NodesPerServer: 4},
		{Servers: 3, NodesPerServer: 0},
		{Servers: -1, NodesPerServer: -1},
	}
	for _, l := range tests {
		err := l.Validate()
		assert.True(t, errors.Is(err, ErrInvalidLayout), "layout %+v: %v", l, err)
	}
}

// TestNewPlan covers sizing and the remainder left by floor division.
func TestNewPlan(t *testing.T) {
	t.Run("even split", func(t *testing.T) {
		plan, err := NewPlan(12, 3)
		require.NoError(t, err)
		assert.Equal(t, 12, plan.Population())
		assert.Equal(t, 3, plan.NumShards())
		assert.Equal(t, 4, plan.ShardSize())
		assert.Empty(t, plan.Remainder())
	})

	t.Run("remainder nodes", func(t *testing.T) {
		plan, err := NewPlan(2000, 17)
		require.NoError(t, err)
		assert.Equal(t, 117, plan.ShardSize())
		rest := plan.Remainder()
		assert.Len(t, rest, 11)
		assert.Equal(t, 1989, rest[0])
		assert.Equal(t, 1999, rest[len(rest)-1])
	})

	t.Run("invalid", func(t *testing.T) {
		for _, c := range []struct{ population, shards int }{{0, 1}, {10, 0}, {10, 11}, {-3, 1}} {
			_, err := NewPlan(c.population, c.shards)
			assert.ErrorIs(t, err, ErrInvalidLayout, "population=%d shards=%d", c.population, c.shards)
		}
	})
}

func TestPlanShardOf(t *testing.T) {
	plan, err := NewPlan(10, 3)
	require.NoError(t, err)

	tests := []struct {
		node      int
		wantShard int
		wantOK    bool
	}{
		{0, 0, true},
		{2, 0, true},
		{3, 1, true},
		{8, 2, true},
		{9, 0, false}, // remainder
		{10, 0, false},
		{-1, 0, false},
	}
	for _, tt := range tests {
		shard, ok := plan.ShardOf(tt.node)
		assert.Equal(t, tt.wantOK, ok, "node %d", tt.node)
		if tt.wantOK {
			assert.Equal(t, tt.wantShard, shard, "node %d", tt.node)
		}
	}
}

// TestPlanMembers checks every assigned node appears in exactly one shard.
func TestPlanMembers(t *testing.T) {
	plan, err := NewPlan(10, 3)
	require.NoError(t, err)

	seen := make(map[int]int)
	for s := 0; s < plan.NumShards(); s++ {
		members, err := plan.Members(s)
		require.NoError(t, err)
		assert.Len(t, members, plan.ShardSize())
		for _, m := range members {
			seen[m]++
			shard, ok := plan.ShardOf(m)
			require.True(t, ok)
			assert.Equal(t, s, shard)
		}
	}
	assert.Len(t, seen, 9)
	for node, count := range seen {
		assert.Equal(t, 1, count, "node %d", node)
	}

	_, err = plan.Members(3)
	assert.Error(t, err)
	_, err = plan.Members(-1)
	assert.Error(t, err)
}

func TestPlanServers(t *testing.T) {
	layout := Layout{Servers: 6, NodesPerServer: 4}
	plan, err := NewLayoutPlan(layout, 4)
	require.NoError(t, err)
	require.Equal(t, 6, plan.ShardSize())

	// Shard 1 holds nodes 6..11: servers 1 (6,7) and 2 (8..11).
	servers, err := plan.Servers(layout, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, servers)

	servers, err = plan.Servers(layout, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, servers)

	_, err = plan.Servers(layout, 4)
	assert.Error(t, err)

	t.Run("layout smaller than plan", func(t *testing.T) {
		_, err := plan.Servers(Layout{Servers: 1, NodesPerServer: 4}, 1)
		assert.ErrorIs(t, err, ErrInvalidLayout)
	})

	t.Run("invalid layout", func(t *testing.T) {
		_, err := NewLayoutPlan(Layout{}, 2)
		assert.ErrorIs(t, err, ErrInvalidLayout)
	})
}
