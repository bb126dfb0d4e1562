package pattern

import (
	"github.com/orneryd/graphscout/pkg/graph"
	"github.com/orneryd/graphscout/pkg/model"
)

// collaborationWeights scores relationship kinds by how strongly they
// indicate active collaboration. Kinds outside the table score 0.5.
var collaborationWeights = map[model.RelationshipKind]float64{
	model.KindCollaboratesWith: 1.0,
	model.KindWorksWith:        0.9,
	model.KindAssignedTo:       0.7,
	model.KindBelongsTo:        0.6,
}

// detectTriangles reports every 3-clique whose mean edge weight meets the
// strength floor, with a collaboration score derived from the kinds of the
// three edges, normalized by the maximum possible pair count.
func (r *Recognizer) detectTriangles(m *graph.Model, combined map[string]float64) []model.CollaborationPattern {
	var out []model.CollaborationPattern
	for _, tri := range m.Triangles() {
		ids := tri[:]
		edges := [3][2]string{{tri[0], tri[1]}, {tri[1], tri[2]}, {tri[0], tri[2]}}

		var weightSum, collabSum float64
		counts := make(map[model.RelationshipKind]int)
		for _, e := range edges {
			weightSum += m.Weight(e[0], e[1])
			kind, ok := m.Kind(e[0], e[1])
			w := 0.5
			if ok {
				if kw, known := collaborationWeights[kind]; known {
					w = kw
				}
				counts[kind]++
			}
			collabSum += w
		}
		strength := weightSum / 3
		if strength < r.cfg.MinTriangleStrength {
			continue
		}

		p := newPattern(m, model.PatternTriangle, ids, combined)
		collabStrength := collabSum / 3
		p.Metadata["strength"] = strength
		p.Metadata["collaboration_strength"] = collabStrength

		out = append(out, model.CollaborationPattern{
			GraphPattern:          p,
			CollaborationStrength: collabStrength,
			CollaborationType:     collaborationType(counts),
		})
	}
	return out
}

// Triangles exposes the full collaboration view of triangle detection for
// analytics consumers.
func (r *Recognizer) Triangles(m *graph.Model) []model.CollaborationPattern {
	return r.detectTriangles(m, r.combinedCentrality(m))
}

// collaborationType names the dominant kind among a triangle's edges.
func collaborationType(counts map[model.RelationshipKind]int) string {
	var dominant model.RelationshipKind
	best := 0
	for kind, n := range counts {
		if n > best || (n == best && kind < dominant) {
			dominant, best = kind, n
		}
	}
	switch dominant {
	case model.KindCollaboratesWith:
		return "collaboration"
	case model.KindWorksWith:
		return "teamwork"
	case model.KindAssignedTo:
		return "assignment"
	case model.KindBelongsTo:
		return "membership"
	default:
		return "mixed"
	}
}
