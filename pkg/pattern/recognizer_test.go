package pattern

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphscout/pkg/config"
	"github.com/orneryd/graphscout/pkg/graph"
	"github.com/orneryd/graphscout/pkg/model"
)

func patternModel(t *testing.T, entities []*model.Entity, edges [][2]string, conf float64, kind model.RelationshipKind) *graph.Model {
	t.Helper()
	byID := make(map[string]*model.Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}
	var rels []*model.Relationship
	for _, e := range edges {
		rels = append(rels, &model.Relationship{
			ID:         e[0] + "->" + e[1],
			Source:     byID[e[0]],
			Target:     byID[e[1]],
			Kind:       kind,
			Direction:  model.Unidirectional,
			Strength:   model.Moderate,
			Confidence: conf,
		})
	}
	m, err := graph.New(entities, rels, graph.WithPatternWeights())
	require.NoError(t, err)
	return m
}

func people(ids ...string) []*model.Entity {
	out := make([]*model.Entity, len(ids))
	for i, id := range ids {
		out[i] = &model.Entity{ID: id, Type: model.EntityPerson}
	}
	return out
}

// TestCompleteGraphPatterns covers the K4 scenario: a complete graph of 4
// nodes with edge weight 0.9 yields triangle patterns of strength 0.9, one
// community, and no hubs under the default degree floor of 5.
func TestCompleteGraphPatterns(t *testing.T) {
	entities := people("n1", "n2", "n3", "n4")
	edges := [][2]string{
		{"n1", "n2"}, {"n1", "n3"}, {"n1", "n4"},
		{"n2", "n3"}, {"n2", "n4"}, {"n3", "n4"},
	}
	// moderate strength × pattern mode multiplier 1.0 keeps weight at 0.9
	m := patternModel(t, entities, edges, 0.9, model.KindCollaboratesWith)

	r := New(config.DefaultConfig().Pattern)
	patterns, err := r.Detect(context.Background(), m)
	require.NoError(t, err)

	byType := make(map[model.PatternType][]model.GraphPattern)
	for _, p := range patterns {
		byType[p.Type] = append(byType[p.Type], p)
	}

	// K4 nodes have degree 3, below the default min_connections of 5.
	assert.Empty(t, byType[model.PatternHub])

	require.NotEmpty(t, byType[model.PatternTriangle])
	assert.Len(t, byType[model.PatternTriangle], 4)
	for _, tri := range byType[model.PatternTriangle] {
		assert.InDelta(t, 0.9, tri.Metadata["strength"], 1e-9)
		assert.InDelta(t, 1.0, tri.Metadata["density"], 1e-9)
		assert.InDelta(t, 1.0, tri.Metadata["collaboration_strength"], 1e-9)
	}

	require.Len(t, byType[model.PatternCommunity], 1)
	assert.Len(t, byType[model.PatternCommunity][0].Entities, 4)
	assert.Equal(t, 4, byType[model.PatternCommunity][0].TypeHistogram[model.EntityPerson])
}

// TestHubClassification builds a star with controlled degree and asserts
// the hub rule: degree ≥ min_connections AND combined centrality ≥
// threshold, both required.
func TestHubClassification(t *testing.T) {
	center := &model.Entity{ID: "hub", Type: model.EntityTeam}
	entities := []*model.Entity{center}
	var edges [][2]string
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("spoke-%d", i)
		entities = append(entities, &model.Entity{ID: id, Type: model.EntityPerson})
		edges = append(edges, [2]string{"hub", id})
	}
	m := patternModel(t, entities, edges, 0.9, model.KindWorksWith)

	r := New(config.DefaultConfig().Pattern)
	patterns, err := r.Detect(context.Background(), m)
	require.NoError(t, err)

	var hubs []model.GraphPattern
	for _, p := range patterns {
		if p.Type == model.PatternHub {
			hubs = append(hubs, p)
		}
	}
	require.Len(t, hubs, 1)
	assert.Equal(t, "hub", hubs[0].Entities[0].ID)
	assert.GreaterOrEqual(t, hubs[0].Metadata["hub_centrality"], 0.7)

	// Same topology but a degree floor above the star's degree: no hub.
	strict := config.DefaultConfig().Pattern
	strict.MinConnections = 10
	patterns, err = New(strict).Detect(context.Background(), m)
	require.NoError(t, err)
	for _, p := range patterns {
		assert.NotEqual(t, model.PatternHub, p.Type)
	}
}

func TestStarDetection(t *testing.T) {
	center := &model.Entity{ID: "hub", Type: model.EntityTeam}
	entities := []*model.Entity{center}
	var edges [][2]string
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("leaf-%d", i)
		entities = append(entities, &model.Entity{ID: id, Type: model.EntityPerson})
		edges = append(edges, [2]string{"hub", id})
	}
	m := patternModel(t, entities, edges, 0.9, model.KindWorksWith)

	patterns, err := New(config.DefaultConfig().Pattern).Detect(context.Background(), m)
	require.NoError(t, err)

	var star *model.GraphPattern
	for i := range patterns {
		if patterns[i].Type == model.PatternStar {
			star = &patterns[i]
		}
	}
	require.NotNil(t, star)
	assert.InDelta(t, 5, star.Metadata["spokes"], 1e-9)
	assert.InDelta(t, 1.0, star.Metadata["leaf_ratio"], 1e-9)
}

func TestChainDetection(t *testing.T) {
	entities := people("n0", "n1", "n2", "n3", "n4")
	edges := [][2]string{{"n0", "n1"}, {"n1", "n2"}, {"n2", "n3"}, {"n3", "n4"}}
	m := patternModel(t, entities, edges, 0.9, model.KindDependsOn)

	patterns, err := New(config.DefaultConfig().Pattern).Detect(context.Background(), m)
	require.NoError(t, err)

	var chains []model.GraphPattern
	for _, p := range patterns {
		if p.Type == model.PatternChain {
			chains = append(chains, p)
		}
	}
	require.Len(t, chains, 1)
	assert.Len(t, chains[0].Entities, 5)
	assert.InDelta(t, 5, chains[0].Metadata["length"], 1e-9)
}

func TestChainRespectsMaxLength(t *testing.T) {
	ids := make([]string, 12)
	var edges [][2]string
	for i := range ids {
		ids[i] = fmt.Sprintf("n%02d", i)
		if i > 0 {
			edges = append(edges, [2]string{ids[i-1], ids[i]})
		}
	}
	m := patternModel(t, people(ids...), edges, 0.9, model.KindDependsOn)

	cfg := config.DefaultConfig().Pattern
	cfg.MaxChainLength = 6
	patterns, err := New(cfg).Detect(context.Background(), m)
	require.NoError(t, err)

	for _, p := range patterns {
		if p.Type == model.PatternChain {
			assert.LessOrEqual(t, len(p.Entities), 6)
		}
	}
}

func TestTriangleCollaborationType(t *testing.T) {
	entities := people("a", "b", "c")
	edges := [][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}}
	m := patternModel(t, entities, edges, 0.9, model.KindWorksWith)

	collabs := New(config.DefaultConfig().Pattern).Triangles(m)
	require.Len(t, collabs, 1)
	assert.Equal(t, "teamwork", collabs[0].CollaborationType)
	assert.InDelta(t, 0.9, collabs[0].CollaborationStrength, 1e-9)
}

func TestDetectSortsByImportance(t *testing.T) {
	// A K4 plus a pendant chain hanging off it.
	entities := people("n1", "n2", "n3", "n4", "c1", "c2", "c3")
	edges := [][2]string{
		{"n1", "n2"}, {"n1", "n3"}, {"n1", "n4"},
		{"n2", "n3"}, {"n2", "n4"}, {"n3", "n4"},
		{"n4", "c1"}, {"c1", "c2"}, {"c2", "c3"},
	}
	m := patternModel(t, entities, edges, 0.9, model.KindCollaboratesWith)

	patterns, err := New(config.DefaultConfig().Pattern).Detect(context.Background(), m)
	require.NoError(t, err)
	require.NotEmpty(t, patterns)
	for i := 1; i < len(patterns); i++ {
		assert.GreaterOrEqual(t, patterns[i-1].Importance, patterns[i].Importance)
	}
}

func TestDetectCachesBySignature(t *testing.T) {
	entities := people("a", "b", "c")
	edges := [][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}}
	m := patternModel(t, entities, edges, 0.9, model.KindWorksWith)

	r := New(config.DefaultConfig().Pattern)
	first, err := r.Detect(context.Background(), m)
	require.NoError(t, err)
	second, err := r.Detect(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	r.Clear()
	third, err := r.Detect(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}
