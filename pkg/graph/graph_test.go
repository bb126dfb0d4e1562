package graph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphscout/pkg/model"
)

func entity(id string, t model.EntityType) *model.Entity {
	return &model.Entity{ID: id, Type: t}
}

func rel(src, dst *model.Entity, kind model.RelationshipKind, conf float64) *model.Relationship {
	return &model.Relationship{
		ID:         src.ID + "->" + dst.ID,
		Source:     src,
		Target:     dst,
		Kind:       kind,
		Direction:  model.Unidirectional,
		Strength:   model.Moderate,
		Confidence: conf,
	}
}

// lineGraph builds a -- b -- c -- d.
func lineGraph(t *testing.T) (*Model, []*model.Entity) {
	t.Helper()
	a := entity("a", model.EntityCustomer)
	b := entity("b", model.EntityRisk)
	c := entity("c", model.EntityProject)
	d := entity("d", model.EntityObjective)
	rels := []*model.Relationship{
		rel(a, b, model.KindHasRisk, 0.9),
		rel(b, c, model.KindThreatens, 0.8),
		rel(c, d, model.KindSupports, 0.7),
	}
	m, err := New([]*model.Entity{a, b, c, d}, rels)
	require.NoError(t, err)
	return m, []*model.Entity{a, b, c, d}
}

func TestNewRejectsUnknownEntity(t *testing.T) {
	a := entity("a", model.EntityCustomer)
	ghost := entity("ghost", model.EntityRisk)

	_, err := New([]*model.Entity{a}, []*model.Relationship{
		rel(a, ghost, model.KindHasRisk, 1.0),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownEntity))
}

func TestNewRejectsNilEndpoint(t *testing.T) {
	a := entity("a", model.EntityCustomer)
	_, err := New([]*model.Entity{a}, []*model.Relationship{
		{ID: "bad", Source: a, Target: nil, Confidence: 1.0},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNilEndpoint))
}

func TestNeighborsAndDegree(t *testing.T) {
	m, _ := lineGraph(t)

	assert.Equal(t, []string{"a", "c"}, m.Neighbors("b"))
	assert.Equal(t, 2, m.Degree("b"))
	assert.Equal(t, 1, m.Degree("a"))
	assert.Equal(t, 0, m.Degree("missing"))
	assert.True(t, m.HasEdge("a", "b"))
	assert.True(t, m.HasEdge("b", "a")) // undirected view
	assert.False(t, m.HasEdge("a", "d"))
}

func TestEdgeWeight(t *testing.T) {
	// moderate multiplier 0.85, pattern mode 1.0
	assert.InDelta(t, 0.765, EdgeWeight(model.Moderate, 0.9, false), 1e-9)
	assert.InDelta(t, 0.9, EdgeWeight(model.Moderate, 0.9, true), 1e-9)
	// strong weights are capped at 1
	assert.InDelta(t, 1.0, EdgeWeight(model.Strong, 1.0, false), 1e-9)
	assert.InDelta(t, 0.6, EdgeWeight(model.Weak, 1.0, false), 1e-9)
}

func TestSimplePathsBounded(t *testing.T) {
	m, _ := lineGraph(t)

	paths := m.SimplePaths("a", "d", 3, 5)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"a", "b", "c", "d"}, paths[0])

	// Cutoff below the only path's length yields no paths, not an error.
	assert.Empty(t, m.SimplePaths("a", "d", 2, 5))
}

func TestSimplePathsMaxPaths(t *testing.T) {
	// Diamond: a--b--d and a--c--d.
	a := entity("a", model.EntityCustomer)
	b := entity("b", model.EntityTeam)
	c := entity("c", model.EntityTeam)
	d := entity("d", model.EntityProduct)
	m, err := New([]*model.Entity{a, b, c, d}, []*model.Relationship{
		rel(a, b, model.KindWorksWith, 0.9),
		rel(b, d, model.KindWorksWith, 0.9),
		rel(a, c, model.KindWorksWith, 0.9),
		rel(c, d, model.KindWorksWith, 0.9),
	})
	require.NoError(t, err)

	assert.Len(t, m.SimplePaths("a", "d", 3, 5), 2)
	assert.Len(t, m.SimplePaths("a", "d", 3, 1), 1)
}

func TestTraversalFollowsEdgeDirection(t *testing.T) {
	// a → b ← c: both arcs point at b, so no traversal joins a and c.
	a := entity("a", model.EntityCustomer)
	b := entity("b", model.EntityRisk)
	c := entity("c", model.EntityProject)
	m, err := New([]*model.Entity{a, b, c}, []*model.Relationship{
		rel(a, b, model.KindHasRisk, 0.9),
		rel(c, b, model.KindThreatens, 0.9),
	})
	require.NoError(t, err)

	assert.Empty(t, m.SimplePaths("a", "c", 3, 5))
	assert.Empty(t, m.SimplePaths("b", "a", 3, 5), "unidirectional edges are never crossed backwards")
	_, _, found := m.ShortestPath("b", "a")
	assert.False(t, found)

	// The undirected views still see the connections.
	assert.True(t, m.HasEdge("b", "a"))
	assert.Equal(t, 2, m.Degree("b"))
}

func TestTraversalCrossesBidirectionalBothWays(t *testing.T) {
	a := entity("a", model.EntityPerson)
	b := entity("b", model.EntityPerson)
	both := rel(a, b, model.KindWorksWith, 0.9)
	both.Direction = model.Bidirectional
	m, err := New([]*model.Entity{a, b}, []*model.Relationship{both})
	require.NoError(t, err)

	require.Len(t, m.SimplePaths("a", "b", 3, 5), 1)
	require.Len(t, m.SimplePaths("b", "a", 3, 5), 1)
	p, _, found := m.ShortestPath("b", "a")
	require.True(t, found)
	assert.Equal(t, []string{"b", "a"}, p)
}

func TestShortestPathPrefersStrongEdges(t *testing.T) {
	// Two routes a→d: via b (strong) and via c (weak).
	a := entity("a", model.EntityCustomer)
	b := entity("b", model.EntityTeam)
	c := entity("c", model.EntityTeam)
	d := entity("d", model.EntityProduct)
	strong := func(src, dst *model.Entity) *model.Relationship {
		r := rel(src, dst, model.KindWorksWith, 1.0)
		r.Strength = model.Strong
		return r
	}
	weak := func(src, dst *model.Entity) *model.Relationship {
		r := rel(src, dst, model.KindWorksWith, 0.5)
		r.Strength = model.Weak
		return r
	}
	m, err := New([]*model.Entity{a, b, c, d}, []*model.Relationship{
		strong(a, b), strong(b, d),
		weak(a, c), weak(c, d),
	})
	require.NoError(t, err)

	p, _, found := m.ShortestPath("a", "d")
	require.True(t, found)
	assert.Equal(t, []string{"a", "b", "d"}, p)

	_, _, found = m.ShortestPath("a", "missing")
	assert.False(t, found)
}

func TestCentralityOnStar(t *testing.T) {
	center := entity("hub", model.EntityTeam)
	entities := []*model.Entity{center}
	var rels []*model.Relationship
	for i := 0; i < 6; i++ {
		spoke := entity(fmt.Sprintf("spoke-%d", i), model.EntityPerson)
		entities = append(entities, spoke)
		rels = append(rels, rel(center, spoke, model.KindWorksWith, 0.9))
	}
	m, err := New(entities, rels)
	require.NoError(t, err)

	deg := m.DegreeCentrality()
	assert.InDelta(t, 1.0, deg["hub"], 1e-9)
	between := m.Betweenness()
	assert.InDelta(t, 1.0, between["hub"], 1e-9)
	assert.InDelta(t, 0.0, between["spoke-0"], 1e-9)
	closeness := m.Closeness()
	assert.InDelta(t, 1.0, closeness["hub"], 1e-9)
	assert.Greater(t, closeness["hub"], closeness["spoke-0"])
}

func TestBetweennessMidlineNodes(t *testing.T) {
	// On the line a -- b -- c -- d, each middle node sits on two of the
	// six ordered endpoint pairs not involving itself: b carries (a,c),
	// (a,d) and their mirrors, so 4 / ((n-1)(n-2)) = 2/3.
	m, _ := lineGraph(t)
	between := m.Betweenness()
	assert.InDelta(t, 2.0/3.0, between["b"], 1e-9)
	assert.InDelta(t, 2.0/3.0, between["c"], 1e-9)
	assert.InDelta(t, 0.0, between["a"], 1e-9)
	assert.LessOrEqual(t, between["b"], 1.0)
}

func TestTriangles(t *testing.T) {
	a := entity("a", model.EntityPerson)
	b := entity("b", model.EntityPerson)
	c := entity("c", model.EntityPerson)
	d := entity("d", model.EntityPerson)
	m, err := New([]*model.Entity{a, b, c, d}, []*model.Relationship{
		rel(a, b, model.KindCollaboratesWith, 0.9),
		rel(b, c, model.KindCollaboratesWith, 0.9),
		rel(a, c, model.KindCollaboratesWith, 0.9),
		rel(c, d, model.KindCollaboratesWith, 0.9), // dangling edge, no triangle
	})
	require.NoError(t, err)

	tris := m.Triangles()
	require.Len(t, tris, 1)
	assert.Equal(t, [3]string{"a", "b", "c"}, tris[0])
}

func TestCommunitiesSplitsClusters(t *testing.T) {
	// Two 3-cliques joined by a single bridge edge.
	var entities []*model.Entity
	byID := map[string]*model.Entity{}
	for _, id := range []string{"a1", "a2", "a3", "b1", "b2", "b3"} {
		e := entity(id, model.EntityPerson)
		entities = append(entities, e)
		byID[id] = e
	}
	edges := [][2]string{
		{"a1", "a2"}, {"a2", "a3"}, {"a1", "a3"},
		{"b1", "b2"}, {"b2", "b3"}, {"b1", "b3"},
		{"a3", "b1"},
	}
	var rels []*model.Relationship
	for _, e := range edges {
		rels = append(rels, rel(byID[e[0]], byID[e[1]], model.KindWorksWith, 0.9))
	}
	m, err := New(entities, rels)
	require.NoError(t, err)

	comms := m.Communities()
	require.Len(t, comms, 2)
	assert.Len(t, comms[0], 3)
	assert.Len(t, comms[1], 3)
}

func TestSignatureChangesWithInputs(t *testing.T) {
	m1, ents := lineGraph(t)
	m2, _ := lineGraph(t)
	assert.Equal(t, m1.Signature(), m2.Signature())

	extra := entity("e", model.EntityTeam)
	m3, err := New(append([]*model.Entity{extra}, ents...), nil)
	require.NoError(t, err)
	assert.NotEqual(t, m1.Signature(), m3.Signature())
}
