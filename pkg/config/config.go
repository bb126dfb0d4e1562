// Package config holds the GraphScout engine configuration.
//
// Configuration is an explicit struct populated at startup and immutable
// afterwards. It loads in three layers, each optional:
//
//  1. Built-in defaults (DefaultConfig), always present.
//  2. A YAML file (Load); a missing file means "use defaults", never an error.
//  3. GRAPHSCOUT_* environment variables overriding individual knobs.
//
// Example Usage:
//
//	cfg, err := config.Load("graphscout.yaml")
//	if err != nil {
//		log.Fatalf("config: %v", err) // malformed file, not a missing one
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("config: %v", err)
//	}
//
// Environment Variables:
//   - GRAPHSCOUT_MAX_HOPS=3
//   - GRAPHSCOUT_MAX_PATHS_PER_PAIR=5
//   - GRAPHSCOUT_MIN_PATH_STRENGTH=0.5
//   - GRAPHSCOUT_MIN_EVENTS_REQUIRED=10
//   - GRAPHSCOUT_CORRELATION_WINDOW_DAYS=90
//   - GRAPHSCOUT_MAX_LAG=30
//   - GRAPHSCOUT_BATCH_SIZE=100
//   - GRAPHSCOUT_DEDUP_STRATEGY=highest_confidence|merge_evidence
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DedupStrategy selects how colliding relationships are merged.
type DedupStrategy string

const (
	// HighestConfidence keeps the single highest-confidence relationship.
	HighestConfidence DedupStrategy = "highest_confidence"
	// MergeEvidence unions evidence lists and takes the max confidence.
	MergeEvidence DedupStrategy = "merge_evidence"
)

// MultihopConfig tunes the multi-hop path discoverer.
type MultihopConfig struct {
	// MaxHops bounds enumerated path length in edges.
	MaxHops int `yaml:"max_hops"`
	// MaxPathsPerPair bounds how many simple paths are scored per
	// (source, candidate) pair.
	MaxPathsPerPair int `yaml:"max_paths_per_pair"`
	// MinPathStrength drops paths scoring below it.
	MinPathStrength float64 `yaml:"min_path_strength"`
	// LengthPenalty is subtracted per hop beyond the second.
	LengthPenalty float64 `yaml:"length_penalty"`
	// CacheSize bounds the per-run path cache (entries).
	CacheSize int64 `yaml:"cache_size"`
}

// AggregationMethod selects how events in one bucket collapse to a sample.
type AggregationMethod string

const (
	AggregateSum   AggregationMethod = "sum"
	AggregateMean  AggregationMethod = "mean"
	AggregateCount AggregationMethod = "count"
)

// GapFillPolicy selects how empty buckets are filled.
type GapFillPolicy string

const (
	FillZero        GapFillPolicy = "zero"
	FillForward     GapFillPolicy = "forward"
	FillInterpolate GapFillPolicy = "interpolate"
)

// TemporalConfig tunes the temporal analyzer.
type TemporalConfig struct {
	// BucketSize is the fixed sampling frequency of constructed series.
	BucketSize time.Duration `yaml:"bucket_size"`
	// Aggregation collapses a bucket's events into one sample.
	Aggregation AggregationMethod `yaml:"aggregation"`
	// GapFill fills buckets with no events.
	GapFill GapFillPolicy `yaml:"gap_fill"`
	// MinEventsRequired excludes entities with fewer raw events.
	MinEventsRequired int `yaml:"min_events_required"`
	// CorrelationWindowDays caps the aligned range per pair.
	CorrelationWindowDays int `yaml:"correlation_window_days"`
	// MaxLag bounds the lag scan, in buckets, on both sides of zero.
	MaxLag int `yaml:"max_lag"`
	// LagStep is the lag scan increment, in buckets.
	LagStep int `yaml:"lag_step"`
	// CausalityThreshold is the IsCausal floor.
	CausalityThreshold float64 `yaml:"causality_threshold"`
	// SignificanceThreshold is the IsSignificant floor on |correlation|.
	SignificanceThreshold float64 `yaml:"significance_threshold"`
	// MinSamplesForGranger is the sample floor below which the statistical
	// causality test yields to the lag-correlation heuristic.
	MinSamplesForGranger int `yaml:"min_samples_for_granger"`
}

// PatternConfig tunes the pattern recognizer.
type PatternConfig struct {
	MinConnections      int     `yaml:"min_connections"`
	CentralityThreshold float64 `yaml:"centrality_threshold"`
	MinCommunitySize    int     `yaml:"min_community_size"`
	MinTriangleStrength float64 `yaml:"min_triangle_strength"`
	MinChainLength      int     `yaml:"min_chain_length"`
	MaxChainLength      int     `yaml:"max_chain_length"`
	MinSpokes           int     `yaml:"min_spokes"`
	// LeafRatio is the fraction of a star's neighbors that must be leaves.
	LeafRatio float64 `yaml:"leaf_ratio"`
}

// DiscoveryConfig tunes the orchestrator.
type DiscoveryConfig struct {
	// BatchSize shards entity work across internal workers.
	BatchSize int `yaml:"batch_size"`
	// Dedup selects the collision strategy at merge time.
	Dedup DedupStrategy `yaml:"dedup"`
	// EnableMultihop, EnableTemporal, and EnablePatterns gate the
	// concurrent discovery tasks.
	EnableMultihop bool `yaml:"enable_multihop"`
	EnableTemporal bool `yaml:"enable_temporal"`
	EnablePatterns bool `yaml:"enable_patterns"`
}

// Config is the complete engine configuration.
type Config struct {
	Multihop  MultihopConfig  `yaml:"multihop"`
	Temporal  TemporalConfig  `yaml:"temporal"`
	Pattern   PatternConfig   `yaml:"pattern"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// DefaultConfig returns the documented built-in defaults.
//
// Defaults:
//   - Multihop: max 3 hops, 5 paths per pair, min strength 0.5, penalty 0.1
//   - Temporal: daily buckets, sum aggregation, zero fill, 10 events minimum,
//     90 day window, ±30 lag scan with step 1, causality 0.7, significance 0.6
//   - Pattern: hubs need degree ≥ 5 and centrality ≥ 0.7, communities ≥ 3,
//     triangles ≥ 0.5, chains 3..10, stars ≥ 4 spokes with 70% leaves
//   - Discovery: batch 100, highest-confidence dedup, all tasks enabled
func DefaultConfig() *Config {
	return &Config{
		Multihop: MultihopConfig{
			MaxHops:         3,
			MaxPathsPerPair: 5,
			MinPathStrength: 0.5,
			LengthPenalty:   0.1,
			CacheSize:       10_000,
		},
		Temporal: TemporalConfig{
			BucketSize:            24 * time.Hour,
			Aggregation:           AggregateSum,
			GapFill:               FillZero,
			MinEventsRequired:     10,
			CorrelationWindowDays: 90,
			MaxLag:                30,
			LagStep:               1,
			CausalityThreshold:    0.7,
			SignificanceThreshold: 0.6,
			MinSamplesForGranger:  20,
		},
		Pattern: PatternConfig{
			MinConnections:      5,
			CentralityThreshold: 0.7,
			MinCommunitySize:    3,
			MinTriangleStrength: 0.5,
			MinChainLength:      3,
			MaxChainLength:      10,
			MinSpokes:           4,
			LeafRatio:           0.7,
		},
		Discovery: DiscoveryConfig{
			BatchSize:      100,
			Dedup:          HighestConfidence,
			EnableMultihop: true,
			EnableTemporal: true,
			EnablePatterns: true,
		},
	}
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. A missing file is not an error: the defaults are used. A file
// that exists but does not parse is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Absent config source falls back to defaults.
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides individual knobs from GRAPHSCOUT_* variables.
func (c *Config) applyEnv() {
	envInt("GRAPHSCOUT_MAX_HOPS", &c.Multihop.MaxHops)
	envInt("GRAPHSCOUT_MAX_PATHS_PER_PAIR", &c.Multihop.MaxPathsPerPair)
	envFloat("GRAPHSCOUT_MIN_PATH_STRENGTH", &c.Multihop.MinPathStrength)
	envInt("GRAPHSCOUT_MIN_EVENTS_REQUIRED", &c.Temporal.MinEventsRequired)
	envInt("GRAPHSCOUT_CORRELATION_WINDOW_DAYS", &c.Temporal.CorrelationWindowDays)
	envInt("GRAPHSCOUT_MAX_LAG", &c.Temporal.MaxLag)
	envInt("GRAPHSCOUT_BATCH_SIZE", &c.Discovery.BatchSize)
	if v := os.Getenv("GRAPHSCOUT_DEDUP_STRATEGY"); v != "" {
		c.Discovery.Dedup = DedupStrategy(v)
	}
}

// Validate checks cross-field invariants. It normalizes nothing; a bad
// value is reported, not repaired.
func (c *Config) Validate() error {
	if c.Multihop.MaxHops < 3 {
		return fmt.Errorf("config: multihop.max_hops must be >= 3 (got %d): paths of 2 hops or fewer are direct relationships", c.Multihop.MaxHops)
	}
	if c.Multihop.MaxPathsPerPair < 1 {
		return fmt.Errorf("config: multihop.max_paths_per_pair must be >= 1 (got %d)", c.Multihop.MaxPathsPerPair)
	}
	if c.Multihop.MinPathStrength < 0 || c.Multihop.MinPathStrength > 1 {
		return fmt.Errorf("config: multihop.min_path_strength must be in [0,1] (got %g)", c.Multihop.MinPathStrength)
	}
	if c.Temporal.BucketSize <= 0 {
		return fmt.Errorf("config: temporal.bucket_size must be positive (got %s)", c.Temporal.BucketSize)
	}
	if c.Temporal.LagStep < 1 {
		return fmt.Errorf("config: temporal.lag_step must be >= 1 (got %d)", c.Temporal.LagStep)
	}
	switch c.Temporal.Aggregation {
	case AggregateSum, AggregateMean, AggregateCount:
	default:
		return fmt.Errorf("config: unknown temporal.aggregation %q", c.Temporal.Aggregation)
	}
	switch c.Temporal.GapFill {
	case FillZero, FillForward, FillInterpolate:
	default:
		return fmt.Errorf("config: unknown temporal.gap_fill %q", c.Temporal.GapFill)
	}
	switch c.Discovery.Dedup {
	case HighestConfidence, MergeEvidence:
	default:
		return fmt.Errorf("config: unknown discovery.dedup %q", c.Discovery.Dedup)
	}
	if c.Discovery.BatchSize < 1 {
		return fmt.Errorf("config: discovery.batch_size must be >= 1 (got %d)", c.Discovery.BatchSize)
	}
	return nil
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(name string, dst *float64) {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
