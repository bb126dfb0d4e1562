// Package rules materializes explicit relationships from entity attributes.
//
// A Rule declares that an entity of one type carrying a particular
// attribute references an entity of another type, and what relationship
// kind that reference means. Rules load once from YAML (or the built-in
// defaults) and are immutable at runtime.
//
// Example rule file:
//
//	- source_type: Customer
//	  field: risk_id
//	  target_type: Risk
//	  kind: HAS_RISK
//	  bidirectional: false
//	  required: true
//	- source_type: Person
//	  field: team_id
//	  target_type: Team
//	  kind: BELONGS_TO
//	  bidirectional: true
package rules

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/graphscout/pkg/model"
)

// reverseKinds maps a relationship kind to its reverse for bidirectional
// rules. A kind absent from this table has no defined reverse; using it in
// a bidirectional rule is a configuration gap and is surfaced as a warning,
// never silently dropped.
var reverseKinds = map[model.RelationshipKind]model.RelationshipKind{
	model.KindParentOf:         model.KindChildOf,
	model.KindChildOf:          model.KindParentOf,
	model.KindOwns:             model.KindOwnedBy,
	model.KindOwnedBy:          model.KindOwns,
	model.KindBelongsTo:        model.KindContains,
	model.KindContains:         model.KindBelongsTo,
	model.KindHasRisk:          model.KindThreatens,
	model.KindThreatens:        model.KindHasRisk,
	model.KindAssignedTo:       model.KindResponsibleFor,
	model.KindResponsibleFor:   model.KindAssignedTo,
	model.KindWorksWith:        model.KindWorksWith,
	model.KindCollaboratesWith: model.KindCollaboratesWith,
}

// ReverseKind returns the reverse of kind and whether one is defined.
func ReverseKind(kind model.RelationshipKind) (model.RelationshipKind, bool) {
	r, ok := reverseKinds[kind]
	return r, ok
}

// DefaultRules returns the built-in rule set used when no rule file is
// supplied.
func DefaultRules() []model.Rule {
	return []model.Rule{
		{SourceType: model.EntityCustomer, Field: "risk_id", TargetType: model.EntityRisk, Kind: model.KindHasRisk, Required: true},
		{SourceType: model.EntityRisk, Field: "objective_id", TargetType: model.EntityObjective, Kind: model.KindAtRiskFrom},
		{SourceType: model.EntityCustomer, Field: "product_id", TargetType: model.EntityProduct, Kind: model.KindOwns, Bidirectional: true},
		{SourceType: model.EntityPerson, Field: "team_id", TargetType: model.EntityTeam, Kind: model.KindBelongsTo, Bidirectional: true},
		{SourceType: model.EntityTeam, Field: "project_id", TargetType: model.EntityProject, Kind: model.KindAssignedTo, Bidirectional: true},
		{SourceType: model.EntityProject, Field: "objective_id", TargetType: model.EntityObjective, Kind: model.KindSupports},
		{SourceType: model.EntityProject, Field: "depends_on", TargetType: model.EntityProject, Kind: model.KindDependsOn},
	}
}

// LoadFile reads rules from a YAML file. A missing file falls back to
// DefaultRules; a malformed file is an error.
func LoadFile(path string) ([]model.Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultRules(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}
	var loaded []model.Rule
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("rules: parse %s: %w", path, err)
	}
	if len(loaded) == 0 {
		return DefaultRules(), nil
	}
	return loaded, nil
}
