package rules

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/orneryd/graphscout/pkg/model"
)

// Builder applies a rule set to an entity list, emitting explicit
// relationships. A Builder is immutable after New and safe for concurrent
// use.
type Builder struct {
	rules []model.Rule
	// byField groups rules by source type for O(1) dispatch per entity.
	byType map[model.EntityType][]model.Rule
}

// NewBuilder creates a Builder over an immutable rule set.
func NewBuilder(ruleSet []model.Rule) *Builder {
	b := &Builder{
		rules:  ruleSet,
		byType: make(map[model.EntityType][]model.Rule),
	}
	for _, r := range ruleSet {
		b.byType[r.SourceType] = append(b.byType[r.SourceType], r)
	}
	return b
}

// Result carries the materialized relationships and any data-quality
// warnings observed while applying rules. Warnings never abort a build.
type Result struct {
	Relationships []*model.Relationship
	Warnings      []model.Warning
}

// Build applies every matching rule to every entity.
//
// For each entity and each rule whose source type and field match, the
// target is resolved by id against the entity index. On success a
// relationship with confidence 1.0 is emitted. A required rule whose
// target does not resolve produces an unresolved-target warning. A
// bidirectional rule also emits the reverse relationship using the
// reverse-kind table; a kind with no defined reverse produces a
// configuration-gap warning and the forward edge alone.
func (b *Builder) Build(entities []*model.Entity) *Result {
	index := make(map[string]*model.Entity, len(entities))
	for _, e := range entities {
		index[e.ID] = e
	}

	res := &Result{}
	for _, e := range entities {
		for _, rule := range b.byType[e.Type] {
			val, ok := e.Attributes.Get(rule.Field)
			if !ok || val == "" {
				if rule.Required {
					res.Warnings = append(res.Warnings, model.Warning{
						Code:     model.WarnUnresolvedTarget,
						EntityID: e.ID,
						Message:  fmt.Sprintf("required field %q is empty", rule.Field),
					})
				}
				continue
			}

			target, found := index[val]
			if !found || target.Type != rule.TargetType {
				if rule.Required {
					res.Warnings = append(res.Warnings, model.Warning{
						Code:     model.WarnUnresolvedTarget,
						EntityID: e.ID,
						Message:  fmt.Sprintf("field %q references %q but no %s entity resolves", rule.Field, val, rule.TargetType),
					})
				}
				continue
			}

			res.Relationships = append(res.Relationships, explicitRelationship(e, target, rule.Kind, rule.Field))

			if rule.Bidirectional {
				reverse, defined := ReverseKind(rule.Kind)
				if !defined {
					res.Warnings = append(res.Warnings, model.Warning{
						Code:     model.WarnMissingReverseKind,
						EntityID: e.ID,
						Message:  fmt.Sprintf("rule kind %s is bidirectional but has no reverse mapping", rule.Kind),
					})
					continue
				}
				res.Relationships = append(res.Relationships, explicitRelationship(target, e, reverse, rule.Field))
			}
		}
	}
	return res
}

func explicitRelationship(src, dst *model.Entity, kind model.RelationshipKind, field string) *model.Relationship {
	return &model.Relationship{
		ID:         uuid.NewString(),
		Source:     src,
		Target:     dst,
		Kind:       kind,
		Direction:  model.Unidirectional,
		Strength:   model.Strong,
		Confidence: 1.0,
		Evidence:   []string{fmt.Sprintf("explicit reference via field %s", field)},
	}
}
