package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Multihop.MaxHops)
	assert.Equal(t, 24*time.Hour, cfg.Temporal.BucketSize)
	assert.Equal(t, HighestConfidence, cfg.Discovery.Dedup)
	assert.True(t, cfg.Discovery.EnableMultihop)
	assert.True(t, cfg.Discovery.EnableTemporal)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphscout.yaml")
	content := []byte(`
multihop:
  max_hops: 4
  min_path_strength: 0.3
temporal:
  bucket_size: 168h
  aggregation: mean
discovery:
  dedup: merge_evidence
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 4, cfg.Multihop.MaxHops)
	assert.InDelta(t, 0.3, cfg.Multihop.MinPathStrength, 1e-9)
	assert.Equal(t, 7*24*time.Hour, cfg.Temporal.BucketSize)
	assert.Equal(t, AggregateMean, cfg.Temporal.Aggregation)
	assert.Equal(t, MergeEvidence, cfg.Discovery.Dedup)

	// Untouched knobs keep their defaults.
	assert.Equal(t, 5, cfg.Multihop.MaxPathsPerPair)
	assert.Equal(t, 30, cfg.Temporal.MaxLag)
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("multihop: ["), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GRAPHSCOUT_MAX_HOPS", "5")
	t.Setenv("GRAPHSCOUT_MIN_PATH_STRENGTH", "0.25")
	t.Setenv("GRAPHSCOUT_DEDUP_STRATEGY", "merge_evidence")
	t.Setenv("GRAPHSCOUT_BATCH_SIZE", "not-a-number") // ignored

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Multihop.MaxHops)
	assert.InDelta(t, 0.25, cfg.Multihop.MinPathStrength, 1e-9)
	assert.Equal(t, MergeEvidence, cfg.Discovery.Dedup)
	assert.Equal(t, 100, cfg.Discovery.BatchSize, "unparseable override keeps the default")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"max_hops below 3", func(c *Config) { c.Multihop.MaxHops = 2 }},
		{"zero paths per pair", func(c *Config) { c.Multihop.MaxPathsPerPair = 0 }},
		{"strength above 1", func(c *Config) { c.Multihop.MinPathStrength = 1.5 }},
		{"zero bucket", func(c *Config) { c.Temporal.BucketSize = 0 }},
		{"zero lag step", func(c *Config) { c.Temporal.LagStep = 0 }},
		{"unknown aggregation", func(c *Config) { c.Temporal.Aggregation = "median" }},
		{"unknown gap fill", func(c *Config) { c.Temporal.GapFill = "spline" }},
		{"unknown dedup", func(c *Config) { c.Discovery.Dedup = "first_wins" }},
		{"zero batch", func(c *Config) { c.Discovery.BatchSize = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
