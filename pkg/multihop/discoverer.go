// Package multihop finds and scores indirect paths between entities that
// are not directly connected, synthesizing higher-order relationships from
// the surviving paths.
//
// For every candidate pair the discoverer enumerates bounded simple paths
// over the weighted graph, scores each path by average edge weight with a
// length penalty, flags bottleneck edges, and maps the endpoint and
// intervening entity types to a specific relationship kind. Paths of two
// hops or fewer are direct-relationship territory and are discarded here.
//
// Example Usage:
//
//	d, _ := multihop.New(cfg.Multihop, nil)
//	rels, err := d.Discover(ctx, graphModel)
package multihop

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/orneryd/graphscout/pkg/config"
	"github.com/orneryd/graphscout/pkg/graph"
	"github.com/orneryd/graphscout/pkg/model"
)

// businessAttributes are the attribute keys whose shared values make two
// same-typed entities candidates for indirect connection.
var businessAttributes = []string{"industry", "region", "team"}

// kindByEndpoints maps (source type, target type) to the synthesized
// relationship kind. Pairs absent from the table fall back to
// KindConnectedVia; paths passing through a Risk entity override to
// KindRiskLinked regardless of endpoints.
var kindByEndpoints = map[[2]model.EntityType]model.RelationshipKind{
	{model.EntityCustomer, model.EntityObjective}: model.KindExposedTo,
	{model.EntityCustomer, model.EntityProduct}:   model.KindUsesVia,
	{model.EntityTeam, model.EntityObjective}:     model.KindContributesTo,
	{model.EntityPerson, model.EntityProject}:     model.KindContributesTo,
	{model.EntityProject, model.EntityRisk}:       model.KindExposedTo,
}

// Discoverer enumerates and scores multi-hop paths. It is safe for
// concurrent use; per-run state lives in the graph model and the cache.
type Discoverer struct {
	cfg    config.MultihopConfig
	interp Interpreter
	cache  *PathCache
}

// New creates a Discoverer. A nil interpreter selects the deterministic
// rule-based one.
func New(cfg config.MultihopConfig, interp Interpreter) (*Discoverer, error) {
	if interp == nil {
		interp = RuleInterpreter{}
	}
	cache, err := NewPathCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Discoverer{cfg: cfg, interp: interp, cache: cache}, nil
}

// ClearCache drops all cached path analyses.
func (d *Discoverer) ClearCache() { d.cache.Clear() }

// Discover walks every candidate entity pair and synthesizes one
// relationship per surviving path. Candidates are pairs that are not
// directly connected and either differ in type or share a business
// attribute. Pairs iterate in sorted id order, so output is deterministic
// up to slice order.
func (d *Discoverer) Discover(ctx context.Context, m *graph.Model) ([]*model.Relationship, error) {
	return d.DiscoverBatched(ctx, m, 0)
}

// DiscoverBatched shards the source-entity space into batches of
// batchSize, analyzed across a small worker pool. Each batch writes its
// own slice; slices concatenate in batch order, so the result equals the
// sequential one. A batchSize ≤ 0 disables sharding.
func (d *Discoverer) DiscoverBatched(ctx context.Context, m *graph.Model, batchSize int) ([]*model.Relationship, error) {
	d.cache.Rebind(m.Signature())

	ids := m.EntityIDs()
	if batchSize <= 0 || batchSize >= len(ids) {
		out, err := d.discoverRange(ctx, m, ids, 0, len(ids))
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	numBatches := (len(ids) + batchSize - 1) / batchSize
	partials := make([][]*model.Relationship, numBatches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for b := 0; b < numBatches; b++ {
		lo, hi := b*batchSize, min((b+1)*batchSize, len(ids))
		g.Go(func() error {
			out, err := d.discoverRange(gctx, m, ids, lo, hi)
			if err != nil {
				return err
			}
			partials[b] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*model.Relationship
	for _, p := range partials {
		out = append(out, p...)
	}
	return out, nil
}

// discoverRange analyzes source ids[lo:hi] against every later entity.
func (d *Discoverer) discoverRange(ctx context.Context, m *graph.Model, ids []string, lo, hi int) ([]*model.Relationship, error) {
	var out []*model.Relationship
	for i := lo; i < hi; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("multihop: %w", err)
		}
		src := m.Entity(ids[i])
		for _, dstID := range ids[i+1:] {
			dst := m.Entity(dstID)
			if !d.isCandidate(m, src, dst) {
				continue
			}
			// Paths follow edge direction, so a pair reachable only the
			// other way round needs the reverse orientation tried too.
			analyses := d.analyzePair(ctx, m, src, dst)
			if len(analyses) == 0 {
				analyses = d.analyzePair(ctx, m, dst, src)
			}
			for k := range analyses {
				out = append(out, d.synthesize(m, &analyses[k]))
			}
		}
	}
	return out, nil
}

// AnalyzePair returns the scored path analyses between two entities,
// serving from the path cache when the inputs have not changed.
func (d *Discoverer) AnalyzePair(ctx context.Context, m *graph.Model, src, dst *model.Entity) []model.PathAnalysis {
	d.cache.Rebind(m.Signature())
	return d.analyzePair(ctx, m, src, dst)
}

func (d *Discoverer) analyzePair(ctx context.Context, m *graph.Model, src, dst *model.Entity) []model.PathAnalysis {
	if cached, ok := d.cache.Get(src.ID, dst.ID); ok {
		return cached
	}

	paths := m.SimplePaths(src.ID, dst.ID, d.cfg.MaxHops, d.cfg.MaxPathsPerPair)
	analyses := make([]model.PathAnalysis, 0, len(paths))
	for _, p := range paths {
		hops := len(p) - 1
		if hops <= 2 {
			// Short paths are the explicit builder's business.
			continue
		}
		pa := d.scorePath(m, p)
		if pa.Score < d.cfg.MinPathStrength {
			continue
		}
		entities := make([]*model.Entity, len(p))
		for i, id := range p {
			entities[i] = m.Entity(id)
		}
		pa.Path = entities
		pa.Interpretation, _ = d.interp.InterpretPath(ctx, entities)
		pa.ActionableInsight = insight(&pa)
		analyses = append(analyses, pa)
	}

	d.cache.Put(src.ID, dst.ID, analyses)
	return analyses
}

// scorePath computes the composite score and bottlenecks for one path:
// avg(edge weight) × 0.7 − length penalty × (hops − 2), clipped to [0, 1].
// Bottlenecks are edges weighing under 70% of the path average.
func (d *Discoverer) scorePath(m *graph.Model, ids []string) model.PathAnalysis {
	weights := m.PathWeights(ids)
	hops := len(weights)

	var sum float64
	for _, w := range weights {
		sum += w
	}
	avg := sum / float64(hops)

	score := avg*0.7 - d.cfg.LengthPenalty*float64(hops-2)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	var bottlenecks [][2]string
	for i, w := range weights {
		if w < 0.7*avg {
			bottlenecks = append(bottlenecks, [2]string{ids[i], ids[i+1]})
		}
	}

	return model.PathAnalysis{
		Score:         score,
		EdgeStrengths: weights,
		Bottlenecks:   bottlenecks,
	}
}

// synthesize turns one surviving path analysis into a relationship.
// Confidence is the path score; evidence records the hop sequence and any
// bottlenecks.
func (d *Discoverer) synthesize(m *graph.Model, pa *model.PathAnalysis) *model.Relationship {
	src := pa.Path[0]
	dst := pa.Path[len(pa.Path)-1]

	evidence := []string{
		fmt.Sprintf("path: %s (%d hops, score %.2f)", hopSequence(pa.Path), pa.Hops(), pa.Score),
	}
	if pa.Interpretation != "" {
		evidence = append(evidence, pa.Interpretation)
	}
	for _, b := range pa.Bottlenecks {
		evidence = append(evidence, fmt.Sprintf("bottleneck: %s -- %s (weight %.2f)", b[0], b[1], m.Weight(b[0], b[1])))
	}

	return &model.Relationship{
		ID:         uuid.NewString(),
		Source:     src,
		Target:     dst,
		Kind:       pathKind(src, dst, pa.Path),
		Direction:  model.Unidirectional,
		Strength:   strengthFor(pa.Score),
		Confidence: pa.Score,
		Evidence:   evidence,
		Path:       pa.Path,
	}
}

func (d *Discoverer) isCandidate(m *graph.Model, a, b *model.Entity) bool {
	if m.HasEdge(a.ID, b.ID) {
		return false
	}
	if a.Type != b.Type {
		return true
	}
	for _, key := range businessAttributes {
		av, aok := a.Attributes.Get(key)
		bv, bok := b.Attributes.Get(key)
		if aok && bok && av != "" && av == bv {
			return true
		}
	}
	return false
}

func pathKind(src, dst *model.Entity, path []*model.Entity) model.RelationshipKind {
	for _, e := range path[1 : len(path)-1] {
		if e.Type == model.EntityRisk {
			return model.KindRiskLinked
		}
	}
	if k, ok := kindByEndpoints[[2]model.EntityType{src.Type, dst.Type}]; ok {
		return k
	}
	if k, ok := kindByEndpoints[[2]model.EntityType{dst.Type, src.Type}]; ok {
		return k
	}
	return model.KindConnectedVia
}

func strengthFor(score float64) model.Strength {
	switch {
	case score >= 0.8:
		return model.Strong
	case score >= 0.6:
		return model.Moderate
	default:
		return model.Weak
	}
}

func hopSequence(path []*model.Entity) string {
	parts := make([]string, len(path))
	for i, e := range path {
		parts[i] = e.ID
	}
	return strings.Join(parts, " -> ")
}
