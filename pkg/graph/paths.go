package graph

import "sort"

// SimplePaths enumerates up to maxPaths simple paths from one entity to
// another with at most maxHops edges. Traversal follows relationship
// direction: a unidirectional edge is never crossed backwards, while a
// bidirectional edge is walkable both ways. Paths are found by
// depth-first search with successors visited in sorted id order, so
// enumeration order is deterministic. An empty result means no path,
// a valid outcome, not an error.
func (m *Model) SimplePaths(from, to string, maxHops, maxPaths int) [][]string {
	fid, ok := m.ids[from]
	if !ok {
		return nil
	}
	tid, ok := m.ids[to]
	if !ok {
		return nil
	}
	if maxHops < 1 || maxPaths < 1 {
		return nil
	}

	walker := &pathWalker{
		m:        m,
		target:   tid,
		maxHops:  maxHops,
		maxPaths: maxPaths,
		onPath:   map[int64]bool{fid: true},
	}
	walker.walk([]int64{fid})

	out := make([][]string, len(walker.found))
	for i, p := range walker.found {
		ids := make([]string, len(p))
		for j, nid := range p {
			ids[j] = m.byIndex[nid]
		}
		out[i] = ids
	}
	return out
}

type pathWalker struct {
	m        *Model
	target   int64
	maxHops  int
	maxPaths int
	onPath   map[int64]bool
	found    [][]int64
}

func (w *pathWalker) walk(stack []int64) {
	if len(w.found) >= w.maxPaths {
		return
	}
	cur := stack[len(stack)-1]
	if cur == w.target {
		p := make([]int64, len(stack))
		copy(p, stack)
		w.found = append(w.found, p)
		return
	}
	if len(stack)-1 >= w.maxHops {
		return
	}

	neighbors := make([]int64, 0, len(w.m.out[cur]))
	for next := range w.m.out[cur] {
		neighbors = append(neighbors, next)
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })

	for _, next := range neighbors {
		if w.onPath[next] {
			continue
		}
		w.onPath[next] = true
		w.walk(append(stack, next))
		w.onPath[next] = false
		if len(w.found) >= w.maxPaths {
			return
		}
	}
}

// PathWeights returns the strength weight of each hop along a path of
// entity ids. Missing edges report 0.
func (m *Model) PathWeights(ids []string) []float64 {
	if len(ids) < 2 {
		return nil
	}
	out := make([]float64, len(ids)-1)
	for i := 0; i < len(ids)-1; i++ {
		out[i] = m.Weight(ids[i], ids[i+1])
	}
	return out
}
