package pattern

import (
	"github.com/orneryd/graphscout/pkg/graph"
	"github.com/orneryd/graphscout/pkg/model"
)

// detectHubs classifies a node as a hub iff its degree meets the
// connection floor and its combined centrality meets the threshold. The
// hub pattern includes the hub and its immediate neighbors.
func (r *Recognizer) detectHubs(m *graph.Model, combined map[string]float64) []model.GraphPattern {
	var out []model.GraphPattern
	for _, id := range m.EntityIDs() {
		if m.Degree(id) < r.cfg.MinConnections {
			continue
		}
		if combined[id] < r.cfg.CentralityThreshold {
			continue
		}
		ids := append([]string{id}, m.Neighbors(id)...)
		p := newPattern(m, model.PatternHub, ids, combined)
		p.Metadata["hub_degree"] = float64(m.Degree(id))
		p.Metadata["hub_centrality"] = combined[id]
		out = append(out, p)
	}
	return out
}

// detectStars finds nodes with enough spokes where most neighbors are
// leaves (degree 1).
func (r *Recognizer) detectStars(m *graph.Model, combined map[string]float64) []model.GraphPattern {
	var out []model.GraphPattern
	for _, id := range m.EntityIDs() {
		neighbors := m.Neighbors(id)
		if len(neighbors) < r.cfg.MinSpokes {
			continue
		}
		leaves := 0
		for _, n := range neighbors {
			if m.Degree(n) == 1 {
				leaves++
			}
		}
		if float64(leaves) < r.cfg.LeafRatio*float64(len(neighbors)) {
			continue
		}
		p := newPattern(m, model.PatternStar, append([]string{id}, neighbors...), combined)
		p.Metadata["spokes"] = float64(len(neighbors))
		p.Metadata["leaf_ratio"] = float64(leaves) / float64(len(neighbors))
		out = append(out, p)
	}
	return out
}
