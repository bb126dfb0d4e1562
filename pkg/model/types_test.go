package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttributesGet(t *testing.T) {
	attrs := Attributes{
		{Key: "industry", Value: "logistics"},
		{Key: "region", Value: "emea"},
	}

	v, ok := attrs.Get("region")
	assert.True(t, ok)
	assert.Equal(t, "emea", v)

	_, ok = attrs.Get("missing")
	assert.False(t, ok)

	_, ok = Attributes(nil).Get("anything")
	assert.False(t, ok)
}

func TestPathLength(t *testing.T) {
	a := &Entity{ID: "a"}
	b := &Entity{ID: "b"}
	c := &Entity{ID: "c"}
	d := &Entity{ID: "d"}

	direct := &Relationship{Source: a, Target: b}
	assert.Equal(t, 0, direct.PathLength(), "direct relationships have no path")

	bridged := &Relationship{Source: a, Target: d, Path: []*Entity{a, b, c, d}}
	assert.Equal(t, 3, bridged.PathLength(), "four entities span three hops")
}

func TestDedupKeyIgnoresNonIdentityFields(t *testing.T) {
	a := &Entity{ID: "a"}
	b := &Entity{ID: "b"}

	r1 := &Relationship{ID: "x", Source: a, Target: b, Kind: KindHasRisk, Direction: Unidirectional, Confidence: 0.4}
	r2 := &Relationship{ID: "y", Source: a, Target: b, Kind: KindHasRisk, Direction: Unidirectional, Confidence: 0.9}
	assert.Equal(t, r1.Key(), r2.Key())

	r3 := &Relationship{ID: "z", Source: a, Target: b, Kind: KindHasRisk, Direction: Bidirectional}
	assert.NotEqual(t, r1.Key(), r3.Key())
}

func TestTimeRangeContains(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.AddDate(0, 1, 0)

	bounded := TimeRange{Start: t0, End: t1}
	assert.True(t, bounded.Contains(t0), "boundaries are inclusive")
	assert.True(t, bounded.Contains(t1))
	assert.False(t, bounded.Contains(t0.Add(-time.Second)))
	assert.False(t, bounded.Contains(t1.Add(time.Second)))

	openEnded := TimeRange{Start: t0}
	assert.True(t, openEnded.Contains(t1.AddDate(10, 0, 0)))

	unbounded := TimeRange{}
	assert.True(t, unbounded.Contains(time.Time{}))
}

func TestDiscoveryContextAllows(t *testing.T) {
	a := &Entity{ID: "a"}
	b := &Entity{ID: "b"}
	r := &Relationship{Source: a, Target: b, Kind: KindHasRisk, Confidence: 0.6}

	assert.True(t, DiscoveryContext{}.Allows(r), "empty context allows everything")
	assert.True(t, DiscoveryContext{MinConfidence: 0.6}.Allows(r), "floor is inclusive")
	assert.False(t, DiscoveryContext{MinConfidence: 0.7}.Allows(r))

	excluded := DiscoveryContext{ExcludedKinds: map[RelationshipKind]bool{KindHasRisk: true}}
	assert.False(t, excluded.Allows(r))

	focusHit := DiscoveryContext{FocusEntities: map[string]bool{"b": true}}
	assert.True(t, focusHit.Allows(r), "one endpoint in focus is enough")

	focusMiss := DiscoveryContext{FocusEntities: map[string]bool{"z": true}}
	assert.False(t, focusMiss.Allows(r))
}

func TestTemporalCorrelationThresholds(t *testing.T) {
	tc := &TemporalCorrelation{Coefficient: -0.65, CausalityScore: 0.75}
	assert.True(t, tc.IsCausal(), "default causal threshold is 0.7")
	assert.True(t, tc.IsSignificant(), "significance uses |correlation|")

	tc.SetThresholds(0.8, 0.7)
	assert.False(t, tc.IsCausal())
	assert.False(t, tc.IsSignificant())
}

func TestWarningString(t *testing.T) {
	w := Warning{Code: WarnUnresolvedTarget, EntityID: "acme", Message: "risk_id=missing"}
	assert.Equal(t, "[unresolved_target] acme: risk_id=missing", w.String())

	anon := Warning{Code: WarnTaskFailed, Message: "task semantic: boom"}
	assert.Equal(t, "[task_failed] task semantic: boom", anon.String())
}
