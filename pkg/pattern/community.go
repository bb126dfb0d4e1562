package pattern

import (
	"github.com/orneryd/graphscout/pkg/graph"
	"github.com/orneryd/graphscout/pkg/model"
)

// detectCommunities partitions the graph by modularity and keeps
// communities meeting the size floor. Density and cohesion are recorded
// in the pattern metadata alongside the entity-type histogram.
func (r *Recognizer) detectCommunities(m *graph.Model, combined map[string]float64) []model.GraphPattern {
	var out []model.GraphPattern
	for _, members := range m.Communities() {
		if len(members) < r.cfg.MinCommunitySize {
			continue
		}
		p := newPattern(m, model.PatternCommunity, members, combined)
		p.Metadata["size"] = float64(len(members))
		p.Metadata["cohesion"] = cohesion(m, members)
		out = append(out, p)
	}
	return out
}

// cohesion is the mean weight of the community's internal edges.
func cohesion(m *graph.Model, ids []string) float64 {
	var sum float64
	edges := 0
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if w := m.Weight(ids[i], ids[j]); w > 0 {
				sum += w
				edges++
			}
		}
	}
	if edges == 0 {
		return 0
	}
	return sum / float64(edges)
}
