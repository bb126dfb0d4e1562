package pattern

import (
	"github.com/orneryd/graphscout/pkg/graph"
	"github.com/orneryd/graphscout/pkg/model"
)

// detectChains walks outward from degree-2 nodes in both directions while
// neighbors remain unvisited with degree ≤ 2, bounded by the configured
// maximum length. A walk qualifies as a chain when it spans at least the
// minimum number of nodes. Each node belongs to at most one chain.
func (r *Recognizer) detectChains(m *graph.Model, combined map[string]float64) []model.GraphPattern {
	visited := make(map[string]bool)
	var out []model.GraphPattern

	for _, id := range m.EntityIDs() {
		if visited[id] || m.Degree(id) != 2 {
			continue
		}

		chain := []string{id}
		visited[id] = true
		neighbors := m.Neighbors(id)

		// Extend left, then right, keeping the chain ordered end to end.
		left := r.extend(m, neighbors[0], visited, r.cfg.MaxChainLength-len(chain))
		for i := len(left) - 1; i >= 0; i-- {
			chain = append([]string{left[i]}, chain...)
		}
		right := r.extend(m, neighbors[1], visited, r.cfg.MaxChainLength-len(chain))
		chain = append(chain, right...)

		if len(chain) < r.cfg.MinChainLength {
			continue
		}
		p := newPattern(m, model.PatternChain, chain, combined)
		p.Metadata["length"] = float64(len(chain))
		out = append(out, p)
	}
	return out
}

// extend follows a run of unvisited nodes with degree ≤ 2 starting at id,
// up to limit nodes, marking them visited.
func (r *Recognizer) extend(m *graph.Model, id string, visited map[string]bool, limit int) []string {
	var run []string
	for limit > 0 {
		if visited[id] || m.Degree(id) > 2 {
			break
		}
		visited[id] = true
		run = append(run, id)
		limit--

		next := ""
		for _, n := range m.Neighbors(id) {
			if !visited[n] {
				next = n
				break
			}
		}
		if next == "" {
			break
		}
		id = next
	}
	return run
}
