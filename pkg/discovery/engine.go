// Package discovery orchestrates the relationship-discovery pipeline.
//
// A discovery request runs the explicit rule builder synchronously, fans
// out the enabled discovery tasks (multi-hop, temporal, pattern
// recognition, and an optional external semantic miner) as independent
// concurrent tasks over the same read-only inputs, and merges their
// outputs: deduplicate, filter through the discovery context, and sort
// deterministically.
//
// Failure isolation: one task failing is recorded as a warning and its
// error is kept on the result; sibling tasks run to completion. Only
// malformed inputs that break graph construction (a relationship
// referencing a nonexistent entity) abort the request.
//
// Example Usage:
//
//	engine, err := discovery.NewEngine(cfg, rules.DefaultRules(), nil, nil)
//	if err != nil { ... }
//
//	result, err := engine.Discover(ctx, discovery.Input{
//		Entities:      entities,
//		Relationships: seeds,
//		Events:        events,
//	}, model.DiscoveryContext{MinConfidence: 0.5})
package discovery

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/orneryd/graphscout/pkg/config"
	"github.com/orneryd/graphscout/pkg/graph"
	"github.com/orneryd/graphscout/pkg/model"
	"github.com/orneryd/graphscout/pkg/multihop"
	"github.com/orneryd/graphscout/pkg/pattern"
	"github.com/orneryd/graphscout/pkg/rules"
	"github.com/orneryd/graphscout/pkg/temporal"
)

// SemanticMiner is the optional external relationship miner (e.g. an NLP
// service working over entity descriptions). The engine treats it as one
// more concurrent discovery task.
type SemanticMiner interface {
	Mine(ctx context.Context, entities []*model.Entity) ([]*model.Relationship, error)
}

// Input is the read-only material for one discovery request.
type Input struct {
	Entities      []*model.Entity
	Relationships []*model.Relationship
	Events        []model.Event
}

// Result is the merged output of one discovery request.
type Result struct {
	Relationships []*model.Relationship
	Correlations  []*model.TemporalCorrelation
	Patterns      []model.GraphPattern
	Warnings      []model.Warning
	// TaskErrors records per-task failures that were tolerated.
	TaskErrors map[string]error
}

// Engine is the discovery orchestrator. Rules and configuration load once
// at construction and are immutable afterwards; Engine is safe for
// concurrent use.
type Engine struct {
	cfg     *config.Config
	builder *rules.Builder
	miner   SemanticMiner

	multihop   *multihop.Discoverer
	temporal   *temporal.Analyzer
	recognizer *pattern.Recognizer
}

// NewEngine assembles an engine. A nil config selects the defaults; a nil
// interpreter selects the deterministic rule-based one; a nil miner
// disables semantic mining.
func NewEngine(cfg *config.Config, ruleSet []model.Rule, interp multihop.Interpreter, miner SemanticMiner) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(ruleSet) == 0 {
		ruleSet = rules.DefaultRules()
	}

	mh, err := multihop.New(cfg.Multihop, interp)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:        cfg,
		builder:    rules.NewBuilder(ruleSet),
		miner:      miner,
		multihop:   mh,
		temporal:   temporal.New(cfg.Temporal),
		recognizer: pattern.New(cfg.Pattern),
	}, nil
}

// ClearCaches drops the path and pattern caches. Required whenever the
// caller mutates the underlying entity or relationship data between
// requests with equal signatures.
func (e *Engine) ClearCaches() {
	e.multihop.ClearCache()
	e.recognizer.Clear()
}

// Discover runs one discovery request.
//
// The explicit builder runs first, synchronously; its output joins the
// seed relationships to form the graph every concurrent task reads. Task
// failures are tolerated and collected; graph construction failures are
// fatal and returned as typed errors.
func (e *Engine) Discover(ctx context.Context, in Input, dctx model.DiscoveryContext) (*Result, error) {
	res := &Result{TaskErrors: make(map[string]error)}

	// Explicit relationships (synchronous).
	built := e.builder.Build(in.Entities)
	res.Warnings = append(res.Warnings, built.Warnings...)

	base := make([]*model.Relationship, 0, len(in.Relationships)+len(built.Relationships))
	base = append(base, in.Relationships...)
	base = append(base, built.Relationships...)

	m, err := graph.New(in.Entities, base)
	if err != nil {
		return nil, err
	}

	events := filterEvents(in.Events, dctx.TimeRange)

	// Fan out the enabled discovery tasks. Each writes only its own slot;
	// a failing task records its error and never cancels siblings.
	type taskOutput struct {
		name string
		rels []*model.Relationship
		corr []*model.TemporalCorrelation
		pats []model.GraphPattern
		warn []model.Warning
		err  error
	}
	var (
		mu      sync.Mutex
		outputs []taskOutput
	)
	collect := func(out taskOutput) {
		mu.Lock()
		defer mu.Unlock()
		outputs = append(outputs, out)
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.Discovery.EnableMultihop {
		g.Go(func() error {
			rels, err := e.multihop.DiscoverBatched(gctx, m, e.cfg.Discovery.BatchSize)
			collect(taskOutput{name: "multihop", rels: rels, err: err})
			return nil
		})
	}
	if e.cfg.Discovery.EnableTemporal {
		g.Go(func() error {
			analysis, err := e.temporal.Analyze(gctx, in.Entities, events)
			out := taskOutput{name: "temporal", err: err}
			if analysis != nil {
				out.rels = analysis.Relationships
				out.corr = analysis.Correlations
				out.warn = analysis.Warnings
			}
			collect(out)
			return nil
		})
	}
	if e.cfg.Discovery.EnablePatterns {
		g.Go(func() error {
			out := taskOutput{name: "pattern"}
			// Pattern detection reads its own graph: same inputs, but
			// pattern-mode edge weights.
			pm, err := graph.New(in.Entities, base, graph.WithPatternWeights())
			if err == nil {
				out.pats, err = e.recognizer.Detect(gctx, pm)
				out.rels = pattern.Relationships(pm, out.pats)
			}
			out.err = err
			collect(out)
			return nil
		})
	}
	if e.miner != nil {
		g.Go(func() error {
			rels, err := e.miner.Mine(gctx, in.Entities)
			collect(taskOutput{name: "semantic", rels: rels, err: err})
			return nil
		})
	}
	// Tasks always return nil; Wait only propagates context cancellation
	// via gctx inside the tasks themselves.
	_ = g.Wait()

	merged := base
	for _, out := range outputs {
		if out.err != nil {
			log.Printf("discovery: task %s failed: %v", out.name, out.err)
			res.TaskErrors[out.name] = out.err
			res.Warnings = append(res.Warnings, model.Warning{
				Code:    model.WarnTaskFailed,
				Message: fmt.Sprintf("task %s: %v", out.name, out.err),
			})
			continue
		}
		merged = append(merged, out.rels...)
		res.Correlations = append(res.Correlations, out.corr...)
		res.Patterns = append(res.Patterns, out.pats...)
		res.Warnings = append(res.Warnings, out.warn...)
	}

	deduped := Deduplicate(merged, e.cfg.Discovery.Dedup)
	res.Relationships = filterContext(deduped, dctx)
	return res, nil
}

// DetectPatterns runs pattern recognition over the same inputs, using
// pattern-mode edge weights. Results are cached by input signature inside
// the recognizer.
func (e *Engine) DetectPatterns(ctx context.Context, in Input) ([]model.GraphPattern, error) {
	built := e.builder.Build(in.Entities)
	base := append(append([]*model.Relationship{}, in.Relationships...), built.Relationships...)

	m, err := graph.New(in.Entities, base, graph.WithPatternWeights())
	if err != nil {
		return nil, err
	}
	return e.recognizer.Detect(ctx, m)
}

func filterContext(rels []*model.Relationship, dctx model.DiscoveryContext) []*model.Relationship {
	out := make([]*model.Relationship, 0, len(rels))
	for _, r := range rels {
		if dctx.Allows(r) {
			out = append(out, r)
		}
	}
	return out
}

func filterEvents(events []model.Event, tr model.TimeRange) []model.Event {
	if tr.Start.IsZero() && tr.End.IsZero() {
		return events
	}
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if tr.Contains(ev.Timestamp) {
			out = append(out, ev)
		}
	}
	return out
}
