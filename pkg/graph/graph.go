// Package graph builds the in-memory weighted graph the discovery engine
// traverses. It wraps gonum's graph types behind the small set of
// operations the engine actually needs (neighbors, degree, bounded simple
// paths, shortest weighted path, centrality, communities, triangles), so
// the algorithm choices can change without touching callers.
//
// Edge weight is confidence × a strength multiplier:
//
//	strong   1.1 (1.2 in pattern mode)
//	moderate 0.85 (1.0 in pattern mode)
//	weak     0.6 (0.7 in pattern mode)
//
// The model never mutates its inputs. Rebuilding is O(entities + edges).
package graph

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/orneryd/graphscout/pkg/model"
)

// ErrUnknownEntity marks a relationship that references an entity absent
// from the entity list. This breaks graph construction invariants and is
// fatal to the caller; downstream persistence would otherwise be wrong.
var ErrUnknownEntity = errors.New("graph: relationship references unknown entity")

// ErrNilEndpoint marks a relationship with a nil source or target.
var ErrNilEndpoint = errors.New("graph: relationship has nil endpoint")

// Option configures model construction.
type Option func(*buildOptions)

type buildOptions struct {
	patternMode bool
}

// WithPatternWeights applies the small upward strength adjustments used
// during pattern detection.
func WithPatternWeights() Option {
	return func(o *buildOptions) { o.patternMode = true }
}

// Model is the weighted graph over one discovery run's entities and
// relationships. It is immutable after New and safe for concurrent reads.
type Model struct {
	entities map[string]*model.Entity
	ids      map[string]int64 // entity id → dense node id
	byIndex  []string         // dense node id → entity id, sorted

	directed   *simple.WeightedDirectedGraph
	undirected *simple.WeightedUndirectedGraph

	// adj is the undirected adjacency with strength weights (not traversal
	// cost). Parallel relationships keep the max weight. It backs the
	// pattern-detection views (Neighbors, Degree, Triangles) and the
	// directly-connected check.
	adj map[int64]map[int64]float64

	// out is the directed adjacency, same weight semantics as adj.
	// Traversal (SimplePaths, ShortestPath) follows these arcs only, so
	// unidirectional relationships are never crossed against their
	// direction. Bidirectional relationships contribute both arcs.
	out map[int64]map[int64]float64

	// kinds remembers one relationship kind per undirected pair, for
	// collaboration scoring. Keyed with the smaller node id first.
	kinds map[[2]int64]model.RelationshipKind

	edgeCount int
	signature string
}

// New builds a model from entities and relationships.
//
// Node ids are assigned from the sorted entity id list, so two builds over
// the same inputs produce identical traversal order. A relationship whose
// endpoint is missing from entities returns an error wrapping
// ErrUnknownEntity.
func New(entities []*model.Entity, rels []*model.Relationship, opts ...Option) (*Model, error) {
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	m := &Model{
		entities:   make(map[string]*model.Entity, len(entities)),
		ids:        make(map[string]int64, len(entities)),
		directed:   simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		undirected: simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		adj:        make(map[int64]map[int64]float64),
		out:        make(map[int64]map[int64]float64),
		kinds:      make(map[[2]int64]model.RelationshipKind),
	}

	for _, e := range entities {
		if _, dup := m.entities[e.ID]; dup {
			continue
		}
		m.entities[e.ID] = e
		m.byIndex = append(m.byIndex, e.ID)
	}
	sort.Strings(m.byIndex)
	for i, id := range m.byIndex {
		m.ids[id] = int64(i)
		m.directed.AddNode(simple.Node(int64(i)))
		m.undirected.AddNode(simple.Node(int64(i)))
	}

	for _, r := range rels {
		if r.Source == nil || r.Target == nil {
			return nil, fmt.Errorf("%w: relationship %s", ErrNilEndpoint, r.ID)
		}
		sid, ok := m.ids[r.Source.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %s (source of %s)", ErrUnknownEntity, r.Source.ID, r.ID)
		}
		tid, ok := m.ids[r.Target.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %s (target of %s)", ErrUnknownEntity, r.Target.ID, r.ID)
		}
		if sid == tid {
			continue // self loops carry no structure
		}

		w := EdgeWeight(r.Strength, r.Confidence, bo.patternMode)
		m.addEdge(sid, tid, w, r.Kind, r.Direction == model.Bidirectional)
	}

	m.signature = m.computeSignature()
	return m, nil
}

// EdgeWeight is the edge weight for a relationship: confidence × strength
// multiplier, with pattern mode applying the upward adjustment.
func EdgeWeight(s model.Strength, confidence float64, patternMode bool) float64 {
	var mult float64
	switch s {
	case model.Strong:
		mult = 1.1
		if patternMode {
			mult = 1.2
		}
	case model.Weak:
		mult = 0.6
		if patternMode {
			mult = 0.7
		}
	default: // moderate
		mult = 0.85
		if patternMode {
			mult = 1.0
		}
	}
	w := confidence * mult
	if w > 1 {
		w = 1
	}
	if w < 0 {
		w = 0
	}
	return w
}

// cost converts a strength weight into a traversal cost so Dijkstra prefers
// strong edges. Clamped away from zero to keep path weights finite.
func cost(w float64) float64 {
	c := 1 - w
	if c < 0.05 {
		c = 0.05
	}
	return c
}

func (m *Model) addEdge(sid, tid int64, w float64, kind model.RelationshipKind, bidirectional bool) {
	m.addArc(sid, tid, w)
	if bidirectional {
		m.addArc(tid, sid, w)
	}

	if m.adj[sid] == nil {
		m.adj[sid] = make(map[int64]float64)
	}
	if m.adj[tid] == nil {
		m.adj[tid] = make(map[int64]float64)
	}
	if w > m.adj[sid][tid] {
		m.adj[sid][tid] = w
		m.adj[tid][sid] = w
		m.undirected.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(sid), T: simple.Node(tid), W: cost(w)})
	}

	key := pairKey(sid, tid)
	if _, seen := m.kinds[key]; !seen {
		m.kinds[key] = kind
		m.edgeCount++
	}
}

func (m *Model) addArc(sid, tid int64, w float64) {
	if m.out[sid] == nil {
		m.out[sid] = make(map[int64]float64)
	}
	if w > m.out[sid][tid] {
		m.out[sid][tid] = w
		m.directed.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(sid), T: simple.Node(tid), W: cost(w)})
	}
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

// Order returns the node count.
func (m *Model) Order() int { return len(m.byIndex) }

// Size returns the undirected edge count.
func (m *Model) Size() int { return m.edgeCount }

// Entity returns the entity for id, or nil.
func (m *Model) Entity(id string) *model.Entity { return m.entities[id] }

// EntityIDs returns all entity ids in sorted order.
func (m *Model) EntityIDs() []string {
	out := make([]string, len(m.byIndex))
	copy(out, m.byIndex)
	return out
}

// Neighbors returns the undirected neighbors of id, sorted.
func (m *Model) Neighbors(id string) []string {
	nid, ok := m.ids[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(m.adj[nid]))
	for other := range m.adj[nid] {
		out = append(out, m.byIndex[other])
	}
	sort.Strings(out)
	return out
}

// Degree returns the undirected degree of id.
func (m *Model) Degree(id string) int {
	nid, ok := m.ids[id]
	if !ok {
		return 0
	}
	return len(m.adj[nid])
}

// HasEdge reports whether a and b are directly connected (any direction).
func (m *Model) HasEdge(a, b string) bool {
	aid, ok := m.ids[a]
	if !ok {
		return false
	}
	bid, ok := m.ids[b]
	if !ok {
		return false
	}
	_, connected := m.adj[aid][bid]
	return connected
}

// Weight returns the strength weight of the edge between a and b, or 0.
func (m *Model) Weight(a, b string) float64 {
	aid, ok := m.ids[a]
	if !ok {
		return 0
	}
	bid, ok := m.ids[b]
	if !ok {
		return 0
	}
	return m.adj[aid][bid]
}

// Kind returns the relationship kind recorded for the edge between a and b.
func (m *Model) Kind(a, b string) (model.RelationshipKind, bool) {
	aid, aok := m.ids[a]
	bid, bok := m.ids[b]
	if !aok || !bok {
		return "", false
	}
	k, ok := m.kinds[pairKey(aid, bid)]
	return k, ok
}

// ShortestPath returns the lowest-cost path from one entity to another
// using Dijkstra over the directed graph, plus its total cost. The third
// return is false when no path exists; that is a valid empty result, not an error.
func (m *Model) ShortestPath(from, to string) ([]string, float64, bool) {
	fid, ok := m.ids[from]
	if !ok {
		return nil, 0, false
	}
	tid, ok := m.ids[to]
	if !ok {
		return nil, 0, false
	}

	shortest := path.DijkstraFrom(simple.Node(fid), m.directed)
	nodes, weight := shortest.To(tid)
	if len(nodes) == 0 || math.IsInf(weight, 1) {
		return nil, 0, false
	}
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = m.byIndex[n.ID()]
	}
	return out, weight, true
}

// DegreeCentrality returns degree/(n-1) per entity.
func (m *Model) DegreeCentrality() map[string]float64 {
	out := make(map[string]float64, len(m.byIndex))
	n := len(m.byIndex)
	for _, id := range m.byIndex {
		if n <= 1 {
			out[id] = 0
			continue
		}
		out[id] = float64(m.Degree(id)) / float64(n-1)
	}
	return out
}

// Betweenness returns normalized betweenness centrality per entity,
// computed by gonum over the undirected projection. gonum accumulates
// each unordered pair from both endpoints, so the normalizer is
// (n-1)(n-2) rather than the halved undirected form.
func (m *Model) Betweenness() map[string]float64 {
	raw := network.Betweenness(m.undirected)
	n := float64(len(m.byIndex))
	norm := (n - 1) * (n - 2)
	out := make(map[string]float64, len(m.byIndex))
	for _, id := range m.byIndex {
		v := 0.0
		if norm > 0 {
			v = raw[m.ids[id]] / norm
		}
		if v > 1 {
			v = 1
		}
		out[id] = v
	}
	return out
}

// Closeness returns normalized closeness centrality per entity over hop
// distances, with the Wasserman-Faust correction for disconnected graphs.
func (m *Model) Closeness() map[string]float64 {
	n := len(m.byIndex)
	out := make(map[string]float64, n)
	for _, id := range m.byIndex {
		dist := m.bfsDistances(m.ids[id])
		sum, reach := 0, 0
		for _, d := range dist {
			if d > 0 {
				sum += d
				reach++
			}
		}
		if sum == 0 || n <= 1 {
			out[id] = 0
			continue
		}
		frac := float64(reach) / float64(n-1)
		out[id] = frac * float64(reach) / float64(sum)
	}
	return out
}

func (m *Model) bfsDistances(start int64) map[int64]int {
	dist := map[int64]int{start: 0}
	queue := []int64{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range m.adj[cur] {
			if _, seen := dist[next]; !seen {
				dist[next] = dist[cur] + 1
				queue = append(queue, next)
			}
		}
	}
	return dist
}

// Communities partitions the undirected projection with gonum's Louvain
// modularization. A fixed random source keeps the partition deterministic
// across runs over identical inputs.
func (m *Model) Communities() [][]string {
	if len(m.byIndex) == 0 {
		return nil
	}
	reduced := community.Modularize(m.undirected, 1.0, rand.NewPCG(1, 9))
	groups := reduced.Communities()

	out := make([][]string, 0, len(groups))
	for _, g := range groups {
		ids := make([]string, 0, len(g))
		for _, n := range g {
			ids = append(ids, m.byIndex[n.ID()])
		}
		sort.Strings(ids)
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i][0] < out[j][0]
	})
	return out
}

// Triangles enumerates every 3-clique, each reported once with members in
// sorted order.
func (m *Model) Triangles() [][3]string {
	var out [][3]string
	n := int64(len(m.byIndex))
	for a := int64(0); a < n; a++ {
		for b := range m.adj[a] {
			if b <= a {
				continue
			}
			for c := range m.adj[b] {
				if c <= b {
					continue
				}
				if _, closes := m.adj[a][c]; closes {
					out = append(out, [3]string{m.byIndex[a], m.byIndex[b], m.byIndex[c]})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		if out[i][1] != out[j][1] {
			return out[i][1] < out[j][1]
		}
		return out[i][2] < out[j][2]
	})
	return out
}

// Signature is a stable fingerprint of the input entity/relationship set,
// used to key caches. Any change to the inputs changes the signature.
func (m *Model) Signature() string { return m.signature }

func (m *Model) computeSignature() string {
	h := fnv.New64a()
	for _, id := range m.byIndex {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	keys := make([][2]int64, 0, len(m.kinds))
	for k := range m.kinds {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	for _, k := range keys {
		fmt.Fprintf(h, "%d-%d:%.4f;", k[0], k[1], m.adj[k[0]][k[1]])
	}
	return fmt.Sprintf("%d-%d-%x", len(m.byIndex), m.edgeCount, h.Sum64())
}
