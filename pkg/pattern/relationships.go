package pattern

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/orneryd/graphscout/pkg/graph"
	"github.com/orneryd/graphscout/pkg/model"
)

// Relationships synthesizes SHARES_COMMUNITY relationships from detected
// patterns: one bidirectional relationship for every community member pair
// with no direct edge between them. Directly connected pairs are skipped
// since an explicit relationship already covers them.
//
// Confidence is the community's cohesion (mean internal edge weight), so a
// tightly knit community vouches harder for its unconnected members.
// Community members are sorted, so output order is deterministic.
func Relationships(m *graph.Model, patterns []model.GraphPattern) []*model.Relationship {
	var out []*model.Relationship
	for _, p := range patterns {
		if p.Type != model.PatternCommunity {
			continue
		}
		cohesion := p.Metadata["cohesion"]
		if cohesion <= 0 {
			continue
		}
		evidence := fmt.Sprintf("community of %d entities, cohesion %.2f",
			len(p.Entities), cohesion)

		for i := 0; i < len(p.Entities); i++ {
			for j := i + 1; j < len(p.Entities); j++ {
				a, b := p.Entities[i], p.Entities[j]
				if m.HasEdge(a.ID, b.ID) {
					continue
				}
				out = append(out, &model.Relationship{
					ID:         uuid.NewString(),
					Source:     a,
					Target:     b,
					Kind:       model.KindSharesCommunity,
					Direction:  model.Bidirectional,
					Strength:   strengthFor(cohesion),
					Confidence: cohesion,
					Evidence:   []string{evidence},
				})
			}
		}
	}
	return out
}

func strengthFor(cohesion float64) model.Strength {
	switch {
	case cohesion >= 0.8:
		return model.Strong
	case cohesion >= 0.6:
		return model.Moderate
	default:
		return model.Weak
	}
}
