package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "info", false},
		{"INFO", "info", false},
		{"debug", "debug", false},
		{" warn ", "warn", false},
		{"warning", "warn", false},
		{"error", "error", false},
		{"verbose", "", true},
	}
	for _, tt := range tests {
		level, err := ParseLevel(tt.name)
		if tt.wantErr {
			assert.Error(t, err, "level %q", tt.name)
			continue
		}
		require.NoError(t, err, "level %q", tt.name)
		assert.Equal(t, tt.want, level.String())
	}
}

func TestNewStderr(t *testing.T) {
	logger, err := New(Options{Level: "debug", Fields: map[string]interface{}{"component": "test"}})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = New(Options{Level: "loud"})
	assert.Error(t, err)
}

// TestNewFile verifies entries land in the configured file.
func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "riskd.log")

	logger, err := New(Options{Level: "info", File: path, Fields: map[string]interface{}{"component": "riskd"}})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))

	logger.Info("evaluated plan", zap.Int("shards", 17))
	logger.Debug("dropped")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "evaluated plan")
	assert.Contains(t, out, "riskd")
	assert.NotContains(t, out, "dropped")
}
