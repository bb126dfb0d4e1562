// Package temporal correlates per-entity event streams and synthesizes
// precedence, influence, and correlation relationships from them.
//
// Each entity's events become a fixed-frequency time series. For every
// entity pair with enough data the analyzer aligns the two series over
// their overlapping range (padded by the lag bound so shifted patterns stay
// comparable), computes the Pearson correlation across a lag scan, and
// estimates causality, statistically when enough samples exist and
// otherwise via a lag-correlation heuristic. The method actually used is recorded on
// every result.
//
// Synthesis rules:
//   - causal and lag ≠ 0  → PRECEDES in the lag's direction,
//     plus INFLUENCES when the causality score exceeds 0.8
//   - otherwise significant |correlation| → bidirectional CORRELATES_WITH
//
// All temporal relationships carry the ongoing temporal aspect.
package temporal

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"github.com/orneryd/graphscout/pkg/config"
	"github.com/orneryd/graphscout/pkg/model"
)

// minAlignedSamples is the floor below which a lag position is not scored.
const minAlignedSamples = 3

// Analyzer computes temporal correlations between entity pairs. It is
// stateless apart from configuration and safe for concurrent use.
type Analyzer struct {
	cfg config.TemporalConfig
}

// New creates an Analyzer.
func New(cfg config.TemporalConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analysis bundles the synthesized relationships with the underlying
// correlations and any data-quality warnings.
type Analysis struct {
	Relationships []*model.Relationship
	Correlations  []*model.TemporalCorrelation
	Warnings      []model.Warning
}

// Analyze correlates every qualifying entity pair. Entities with fewer
// than the configured minimum of events are excluded (with a warning when
// they had any events at all). Pairs iterate in sorted entity-id order for
// deterministic output.
func (a *Analyzer) Analyze(ctx context.Context, entities []*model.Entity, events []model.Event) (*Analysis, error) {
	res := &Analysis{}
	grouped := groupEvents(events)

	index := make(map[string]*model.Entity, len(entities))
	var eligible []string
	for _, e := range entities {
		index[e.ID] = e
		n := len(grouped[e.ID])
		if n == 0 {
			// No activity to correlate, regardless of the configured minimum.
			continue
		}
		if n >= a.cfg.MinEventsRequired {
			eligible = append(eligible, e.ID)
		} else {
			res.Warnings = append(res.Warnings, model.Warning{
				Code:     model.WarnInsufficientEvents,
				EntityID: e.ID,
				Message:  fmt.Sprintf("%d events, need %d", n, a.cfg.MinEventsRequired),
			})
		}
	}
	sort.Strings(eligible)

	for i, aID := range eligible {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("temporal: %w", err)
		}
		for _, bID := range eligible[i+1:] {
			tc := a.correlatePair(index[aID], index[bID], grouped[aID], grouped[bID])
			if tc == nil {
				continue
			}
			res.Correlations = append(res.Correlations, tc)
			res.Relationships = append(res.Relationships, a.synthesize(tc)...)
		}
	}
	return res, nil
}

// correlatePair aligns two event streams and finds the lag maximizing
// |correlation|. Returns nil when the pair has no overlapping activity or
// no variance to correlate.
func (a *Analyzer) correlatePair(ea, eb *model.Entity, evA, evB []model.Event) *model.TemporalCorrelation {
	startA, endA := observedRange(evA)
	startB, endB := observedRange(evB)

	overlapStart := maxTime(startA, startB)
	overlapEnd := minTime(endA, endB).Add(a.cfg.BucketSize) // include the last bucket
	if !overlapStart.Before(overlapEnd) {
		return nil
	}

	// Cap the aligned range at the correlation window, keeping the most
	// recent span.
	window := time.Duration(a.cfg.CorrelationWindowDays) * 24 * time.Hour
	if window > 0 && overlapEnd.Sub(overlapStart) > window {
		overlapStart = overlapEnd.Add(-window)
	}

	// Buckets actually covered by both streams. The padded series below is
	// longer, but only this span carries evidence.
	observed := int(overlapEnd.Sub(overlapStart) / a.cfg.BucketSize)

	// Pad both sides by the lag bound so a shifted copy of the same signal
	// still aligns perfectly at its true lag.
	pad := time.Duration(a.cfg.MaxLag) * a.cfg.BucketSize
	start := overlapStart.Add(-pad)
	end := overlapEnd.Add(pad)

	sa := buildSeries(ea.ID, evA, a.cfg, start, end)
	sb := buildSeries(eb.ID, evB, a.cfg, start, end)

	bestLag, bestCorr, zeroCorr, ok := a.scanLags(sa.Values, sb.Values)
	if !ok {
		return nil
	}

	tc := &model.TemporalCorrelation{
		EntityA:     ea,
		EntityB:     eb,
		Coefficient: bestCorr,
		OptimalLag:  bestLag,
		WindowDays:  a.cfg.CorrelationWindowDays,
		SampleCount: observed,
	}
	tc.SetThresholds(a.cfg.CausalityThreshold, a.cfg.SignificanceThreshold)

	if observed >= a.cfg.MinSamplesForGranger {
		score, err := grangerScore(sa.Values, sb.Values, bestLag)
		if err == nil {
			tc.CausalityScore = score
			tc.Method = model.MethodGranger
		} else {
			// Statistical test unavailable for this data; fall back.
			tc.CausalityScore = lagCorrelationScore(bestCorr, zeroCorr, bestLag)
			tc.Method = model.MethodLagCorrelation
		}
	} else {
		tc.CausalityScore = lagCorrelationScore(bestCorr, zeroCorr, bestLag)
		tc.Method = model.MethodLagCorrelation
	}

	tc.Confidence = confidence(bestCorr, tc.CausalityScore, observed)
	return tc
}

// scanLags slides b against a across [-MaxLag, MaxLag] and returns the lag
// with the highest |correlation|. Positive lag means a leads b. Ties break
// toward the smaller |lag|, then the negative lag, so results are
// deterministic.
func (a *Analyzer) scanLags(va, vb []float64) (bestLag int, bestCorr, zeroCorr float64, ok bool) {
	found := false
	for lag := -a.cfg.MaxLag; lag <= a.cfg.MaxLag; lag += a.cfg.LagStep {
		corr, err := laggedPearson(va, vb, lag)
		if err != nil {
			continue
		}
		if lag == 0 {
			zeroCorr = corr
		}
		if !found || better(corr, lag, bestCorr, bestLag) {
			bestCorr, bestLag = corr, lag
			found = true
		}
	}
	return bestLag, bestCorr, zeroCorr, found
}

func better(corr float64, lag int, bestCorr float64, bestLag int) bool {
	ac, ab := math.Abs(corr), math.Abs(bestCorr)
	if ac != ab {
		return ac > ab
	}
	la, lb := abs(lag), abs(bestLag)
	if la != lb {
		return la < lb
	}
	return lag < bestLag
}

// laggedPearson correlates pairs (a[t], b[t+lag]).
func laggedPearson(va, vb []float64, lag int) (float64, error) {
	var xs, ys []float64
	for t := range va {
		u := t + lag
		if u < 0 || u >= len(vb) {
			continue
		}
		xs = append(xs, va[t])
		ys = append(ys, vb[u])
	}
	if len(xs) < minAlignedSamples {
		return 0, fmt.Errorf("temporal: %d aligned samples at lag %d, need %d", len(xs), lag, minAlignedSamples)
	}
	return stats.Pearson(xs, ys)
}

// grangerScore runs the lag-predictability test: does adding the leader's
// lagged values improve an AR(1) prediction of the follower? The returned
// score is the restricted-vs-unrestricted variance reduction, in [0, 1].
//
// A positive optimal lag tests a→b; a negative one tests b→a. Zero lag is
// tested at lag 1, the smallest history that is still "the past".
func grangerScore(va, vb []float64, lag int) (float64, error) {
	leader, follower := va, vb
	if lag < 0 {
		leader, follower = vb, va
	}
	k := abs(lag)
	if k == 0 {
		k = 1
	}

	var y, x1, x2 []float64
	for t := k; t < len(follower); t++ {
		if t-1 < 0 || t-k < 0 {
			continue
		}
		y = append(y, follower[t])
		x1 = append(x1, follower[t-1])
		x2 = append(x2, leader[t-k])
	}
	if len(y) < minAlignedSamples+2 {
		return 0, fmt.Errorf("temporal: %d samples for causality test, need %d", len(y), minAlignedSamples+2)
	}

	my, m1, m2 := mean(y), mean(x1), mean(x2)
	var syy, s11, s22, s12, s1y, s2y float64
	for i := range y {
		dy, d1, d2 := y[i]-my, x1[i]-m1, x2[i]-m2
		syy += dy * dy
		s11 += d1 * d1
		s22 += d2 * d2
		s12 += d1 * d2
		s1y += d1 * dy
		s2y += d2 * dy
	}
	if syy == 0 {
		return 0, fmt.Errorf("temporal: follower series has no variance")
	}

	// Restricted model: follower on its own past.
	rssRestricted := syy
	if s11 > 0 {
		beta := s1y / s11
		rssRestricted = syy - beta*s1y
	}
	if rssRestricted <= 0 {
		return 0, nil // AR(1) already perfect; the leader adds nothing
	}

	// Unrestricted model adds the leader's lagged values.
	det := s11*s22 - s12*s12
	var rssFull float64
	if det != 0 {
		b1 := (s22*s1y - s12*s2y) / det
		b2 := (s11*s2y - s12*s1y) / det
		rssFull = syy - b1*s1y - b2*s2y
	} else if s22 > 0 {
		beta := s2y / s22
		rssFull = syy - beta*s2y
	} else {
		return 0, fmt.Errorf("temporal: leader series has no variance")
	}
	if rssFull < 0 {
		rssFull = 0
	}

	score := (rssRestricted - rssFull) / rssRestricted
	return clamp01(score), nil
}

// lagCorrelationScore is the fallback heuristic: a nonzero optimal lag
// whose correlation beats the zero-lag correlation suggests precedence;
// otherwise the evidence is weak.
func lagCorrelationScore(bestCorr, zeroCorr float64, lag int) float64 {
	ab := math.Abs(bestCorr)
	if lag != 0 && ab > math.Abs(zeroCorr) {
		return clamp01(ab * 0.9)
	}
	return clamp01(ab * 0.4)
}

// confidence combines correlation magnitude, causality, and sample size,
// each factor bounded to [0, 1].
func confidence(corr, causality float64, samples int) float64 {
	causalityFactor := clamp01(0.5 + causality/2)
	sampleFactor := clamp01(float64(samples) / 30)
	return clamp01(math.Abs(corr) * causalityFactor * sampleFactor)
}

// synthesize emits relationships for one correlation per the synthesis
// rules. Both directions of a PRECEDES pair resolve from the lag sign.
func (a *Analyzer) synthesize(tc *model.TemporalCorrelation) []*model.Relationship {
	var out []*model.Relationship

	evidence := []string{
		fmt.Sprintf("correlation %.2f at lag %d (bucket %s)", tc.Coefficient, tc.OptimalLag, a.cfg.BucketSize),
		fmt.Sprintf("causality %.2f via %s over %d samples", tc.CausalityScore, tc.Method, tc.SampleCount),
	}

	if tc.IsCausal() && tc.OptimalLag != 0 {
		src, dst := tc.EntityA, tc.EntityB
		if tc.OptimalLag < 0 {
			src, dst = dst, src
		}
		out = append(out, a.temporalRelationship(src, dst, model.KindPrecedes, model.Unidirectional, tc, evidence))
		if tc.CausalityScore > 0.8 {
			out = append(out, a.temporalRelationship(src, dst, model.KindInfluences, model.Unidirectional, tc, evidence))
		}
		return out
	}

	if tc.IsSignificant() {
		out = append(out, a.temporalRelationship(tc.EntityA, tc.EntityB, model.KindCorrelatesWith, model.Bidirectional, tc, evidence))
	}
	return out
}

func (a *Analyzer) temporalRelationship(src, dst *model.Entity, kind model.RelationshipKind, dir model.Direction, tc *model.TemporalCorrelation, evidence []string) *model.Relationship {
	return &model.Relationship{
		ID:             uuid.NewString(),
		Source:         src,
		Target:         dst,
		Kind:           kind,
		Direction:      dir,
		Strength:       strengthFor(tc.Confidence),
		Confidence:     tc.Confidence,
		Evidence:       append([]string(nil), evidence...),
		TemporalAspect: model.AspectOngoing,
	}
}

func strengthFor(confidence float64) model.Strength {
	switch {
	case confidence >= 0.8:
		return model.Strong
	case confidence >= 0.5:
		return model.Moderate
	default:
		return model.Weak
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
