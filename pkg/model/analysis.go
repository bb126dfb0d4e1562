package model

import "fmt"

// PathAnalysis is the ephemeral scoring record for one multi-hop path.
// It is produced and consumed inside a single discovery run and never
// persisted.
type PathAnalysis struct {
	// Path is the full entity sequence, source and target inclusive.
	Path []*Entity
	// Score is the composite path score, clipped to [0, 1].
	Score float64
	// Interpretation is a human-readable sentence describing the path.
	Interpretation string
	// ActionableInsight suggests what a consumer might do with the path.
	ActionableInsight string
	// EdgeStrengths holds the weight of each hop, in path order.
	EdgeStrengths []float64
	// Bottlenecks lists the entity pairs joined by unusually weak edges
	// (weight below 70% of the path average).
	Bottlenecks [][2]string
}

// Hops returns the number of edges in the path.
func (p *PathAnalysis) Hops() int {
	if len(p.Path) < 2 {
		return 0
	}
	return len(p.Path) - 1
}

// CausalityMethod records which test produced a causality score.
type CausalityMethod string

const (
	// MethodGranger is the statistical lag-predictability test, used when
	// enough aligned samples exist.
	MethodGranger CausalityMethod = "granger"
	// MethodLagCorrelation is the fallback heuristic based on the shape of
	// the lag-correlation curve.
	MethodLagCorrelation CausalityMethod = "lag_correlation"
)

// TemporalCorrelation is the ephemeral result of correlating two entities'
// event series.
type TemporalCorrelation struct {
	EntityA *Entity
	EntityB *Entity
	// Coefficient is the Pearson correlation at the optimal lag, in [-1, 1].
	Coefficient float64
	// OptimalLag is the signed lag (in bucket units) maximizing |correlation|.
	// Positive means A leads B.
	OptimalLag int
	// CausalityScore estimates how well A's past predicts B, in [0, 1].
	CausalityScore float64
	Confidence     float64
	WindowDays     int
	SampleCount    int
	// Method records which causality test produced CausalityScore.
	Method CausalityMethod

	causalThreshold      float64
	significanceLevel    float64
	thresholdsConfigured bool
}

// SetThresholds installs the configured causality and significance
// thresholds. When unset, IsCausal and IsSignificant fall back to the
// built-in defaults (0.7 and 0.6).
func (tc *TemporalCorrelation) SetThresholds(causal, significance float64) {
	tc.causalThreshold = causal
	tc.significanceLevel = significance
	tc.thresholdsConfigured = true
}

// IsCausal reports whether the causality score meets the configured
// threshold (default 0.7).
func (tc *TemporalCorrelation) IsCausal() bool {
	threshold := 0.7
	if tc.thresholdsConfigured {
		threshold = tc.causalThreshold
	}
	return tc.CausalityScore >= threshold
}

// IsSignificant reports whether |correlation| meets the configured
// significance threshold (default 0.6).
func (tc *TemporalCorrelation) IsSignificant() bool {
	threshold := 0.6
	if tc.thresholdsConfigured {
		threshold = tc.significanceLevel
	}
	coeff := tc.Coefficient
	if coeff < 0 {
		coeff = -coeff
	}
	return coeff >= threshold
}

// PatternType enumerates the structural motifs the pattern recognizer
// detects.
type PatternType string

const (
	PatternHub       PatternType = "hub"
	PatternCommunity PatternType = "community"
	PatternTriangle  PatternType = "triangle"
	PatternChain     PatternType = "chain"
	PatternStar      PatternType = "star"
)

// GraphPattern is one detected structural motif, with the entities
// involved, per-entity centrality, and free-form metadata (density,
// cohesion, entity-type histogram).
type GraphPattern struct {
	Type       PatternType
	Entities   []*Entity
	Centrality map[string]float64
	Metadata   map[string]float64
	// TypeHistogram counts entities per type inside the pattern.
	TypeHistogram map[EntityType]int
	// Importance is the composite ranking score.
	Importance float64
}

func (p *GraphPattern) String() string {
	return fmt.Sprintf("%s(%d entities, importance %.2f)", p.Type, len(p.Entities), p.Importance)
}

// CollaborationPattern extends GraphPattern with a collaboration score
// derived from the relationship kinds present among the pattern's edges.
type CollaborationPattern struct {
	GraphPattern
	CollaborationStrength float64
	CollaborationType     string
}
