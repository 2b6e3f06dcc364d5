package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/shardrisk/internal/api"
	"github.com/dreamware/shardrisk/internal/risk"
)

// run executes the CLI with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	if args == nil {
		args = []string{}
	}
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDefaultRunIsReferencePlan(t *testing.T) {
	for _, args := range [][]string{nil, {"estimate"}} {
		out, err := run(t, args...)
		require.NoError(t, err)
		assert.Contains(t, out, "population: 2000, shards: 17, threshold: 0.67, shard size: 117")
		assert.Contains(t, out, "unsharded remainder: 11 nodes")
		assert.Contains(t, out, "shard failure probability: 1.000349e-22")
		assert.NotContains(t, out, "report id")
	}
}

func TestEstimateFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr string
	}{
		{
			name: "small urn",
			args: []string{"estimate", "-n", "12", "-f", "0.34", "-s", "2", "-t", "0.5", "-p", "3"},
			want: []string{
				"shard size: 6",
				"corrupting range: [3, 4]",
				"shard failure probability: 2.727e-01",
				"(exact): 4.711e-01",
			},
		},
		{
			name: "shard size flag",
			args: []string{"estimate", "--shard-size", "200"},
			want: []string{"shards: 10", "shard size: 200"},
		},
		{
			name: "zero fraction",
			args: []string{"estimate", "-f", "0"},
			want: []string{"shard failure probability: 0.000000e+00"},
		},
		{
			name:    "fraction out of range",
			args:    []string{"estimate", "-f", "1.5"},
			wantErr: "adversary fraction",
		},
		{
			name:    "positional arguments rejected",
			args:    []string{"estimate", "extra"},
			wantErr: "unknown command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestEstimateLayout(t *testing.T) {
	out, err := run(t, "estimate", "--servers", "6", "--nodes-per-server", "2",
		"-f", "0.34", "-s", "2", "-t", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "population: 12")
	assert.Contains(t, out, "servers per shard: min 3, max 3 (of 6 servers)")
	assert.NotContains(t, out, "unsharded nodes")
}

func TestEstimatePlacement(t *testing.T) {
	out, err := run(t, "estimate", "--servers", "5", "--nodes-per-server", "3",
		"-f", "0.2", "-s", "2", "-t", "0.5", "--locate", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "population: 15")
	assert.Contains(t, out, "servers per shard: min 3, max 3 (of 5 servers)")
	assert.Contains(t, out, "unsharded nodes: 14 (server 4)")
	assert.Contains(t, out, "node 8: shard 1, server 2 slot 2")

	out, err = run(t, "estimate", "--servers", "5", "--nodes-per-server", "3",
		"-f", "0.2", "-s", "2", "-t", "0.5", "--locate", "14")
	require.NoError(t, err)
	assert.Contains(t, out, "node 14: unsharded, server 4 slot 2")

	out, err = run(t, "--locate", "1999")
	require.NoError(t, err)
	assert.Contains(t, out, "node 1999: unsharded")
	out, err = run(t, "--locate", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "node 0: shard 0")

	_, err = run(t, "estimate", "--locate", "2000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the population")
}

func TestSweepTooLarge(t *testing.T) {
	_, err := run(t, "sweep", "--shards-list", strings.Repeat("17,", 99)+"17",
		"--fractions", strings.Repeat("0.1,", 99)+"0.1",
		"--thresholds", strings.Repeat("0.5,", 99)+"0.5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grid too large")
}

func TestEstimateConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	doc := "population: 1000\nadversary_fraction: 0.3\nshards: 10\nthreshold: 0.5\nprecision: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out, err := run(t, "estimate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "population: 1000, shards: 10, threshold: 0.50, shard size: 100")
	assert.Contains(t, out, "shard failure probability: 7.587e-06")

	out, err = run(t, "estimate", "--config", path, "--shards", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "shards: 20")

	_, err = run(t, "estimate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEstimateRemote(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/estimate" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var p risk.Params
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("Bad estimate body: %v", err)
		}
		report, err := risk.Evaluate(p)
		if err != nil {
			t.Errorf("Evaluate: %v", err)
		}
		report.ID = "stored-1"
		json.NewEncoder(w).Encode(report)
	}))
	defer ts.Close()

	out, err := run(t, "estimate", "--remote", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "shard failure probability: 1.000349e-22")
	assert.Contains(t, out, "report id: stored-1")
}

func TestSweep(t *testing.T) {
	out, err := run(t, "sweep", "--shards-list", "10,17,40", "-w", "2", "-p", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "shards=10 size=200"))
	assert.True(t, strings.HasPrefix(lines[1], "shards=17 size=117"))
	assert.True(t, strings.HasPrefix(lines[2], "shards=40 size=50"))
	assert.Contains(t, lines[1], "shard=1.00e-22")
}

func TestSweepBudget(t *testing.T) {
	out, err := run(t, "sweep", "--shards-list", "10,17", "--budget", "0.000001")
	require.NoError(t, err)
	assert.Contains(t, out, "most shards within budget 1.000000e-06: 17")

	out, err = run(t, "sweep", "-n", "12", "-f", "0.34", "-t", "0.5", "-s", "2", "--shards-list", "2", "--budget", "0.01")
	require.NoError(t, err)
	assert.Contains(t, out, "no plan within budget")
}

func TestSweepInvalidPoint(t *testing.T) {
	_, err := run(t, "sweep", "--thresholds", "0.5,0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grid point")
}

func TestSweepRemote(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req api.SweepRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []int{10, 17}, req.Grid.Shards)
		json.NewEncoder(w).Encode(api.SweepResponse{Reports: []risk.Report{
			{Params: risk.Params{Shards: 10}, ShardSize: 200},
			{Params: risk.Params{Shards: 17}, ShardSize: 117},
		}})
	}))
	defer ts.Close()

	out, err := run(t, "sweep", "--shards-list", "10,17", "--remote", ts.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestAggregate(t *testing.T) {
	out, err := run(t, "aggregate", "--probability", "0.2727272727272727", "-s", "17", "-p", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "(first-order): 4.636e+00")
	assert.Contains(t, out, "warning: first-order estimate exceeds 1")

	out, err = run(t, "aggregate", "--probability", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "(exact): 0.000000e+00, (first-order): 0.000000e+00")

	_, err = run(t, "aggregate", "--probability", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probability")
}

func TestAggregateRemoteError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "shard count must be positive: got 0"})
	}))
	defer ts.Close()

	_, err := run(t, "aggregate", "--probability", "0.1", "-s", "0", "--remote", ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shard count must be positive")
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shardrisk.log")
	_, err := run(t, "-v", "--log-file", path, "sweep", "--shards-list", "17")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "evaluated grid point")
}
