package discovery

import (
	"sort"

	"github.com/orneryd/graphscout/pkg/config"
	"github.com/orneryd/graphscout/pkg/model"
)

// Deduplicate collapses relationships sharing (source id, target id, kind,
// direction) according to the configured strategy:
//
//   - HighestConfidence keeps the single best relationship per key.
//   - MergeEvidence keeps the best relationship but unions all evidence
//     (in first-seen order, without duplicates) and takes the max
//     confidence.
//
// The result is sorted by descending confidence, then source id, target
// id, and kind, so identical input sets always produce the same output.
// Deduplicating an already-deduplicated list is a no-op.
func Deduplicate(rels []*model.Relationship, strategy config.DedupStrategy) []*model.Relationship {
	byKey := make(map[model.DedupKey]*model.Relationship, len(rels))
	order := make([]model.DedupKey, 0, len(rels))

	for _, r := range rels {
		key := r.Key()
		existing, seen := byKey[key]
		if !seen {
			byKey[key] = r
			order = append(order, key)
			continue
		}

		switch strategy {
		case config.MergeEvidence:
			merged := *existing
			if r.Confidence > merged.Confidence {
				merged.Confidence = r.Confidence
				merged.Strength = r.Strength
				if len(r.Path) > 0 {
					merged.Path = r.Path
				}
			}
			merged.Evidence = unionEvidence(existing.Evidence, r.Evidence)
			byKey[key] = &merged
		default: // HighestConfidence
			if r.Confidence > existing.Confidence {
				byKey[key] = r
			}
		}
	}

	out := make([]*model.Relationship, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	sortRelationships(out)
	return out
}

func unionEvidence(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, lists := range [][]string{a, b} {
		for _, e := range lists {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

func sortRelationships(rels []*model.Relationship) {
	sort.SliceStable(rels, func(i, j int) bool {
		a, b := rels[i], rels[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Source.ID != b.Source.ID {
			return a.Source.ID < b.Source.ID
		}
		if a.Target.ID != b.Target.ID {
			return a.Target.ID < b.Target.ID
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Direction < b.Direction
	})
}
