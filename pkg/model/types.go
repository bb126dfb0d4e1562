// Package model defines the core value types of the GraphScout
// relationship-discovery engine: entities, relationships, events, rules,
// and the discovery context that scopes a single discovery request.
//
// Entities and events are owned by the caller; the engine only reads them.
// Relationships are an independently lifetimed collection that reference
// entities by pointer but never own them. Everything else (path analyses,
// temporal correlations, graph patterns) is ephemeral per discovery run.
//
// Example Usage:
//
//	acme := &model.Entity{
//		ID:   "cust-001",
//		Type: model.EntityCustomer,
//		Attributes: model.Attributes{
//			{Key: "industry", Value: "logistics"},
//			{Key: "risk_id", Value: "risk-042"},
//		},
//	}
//
//	rel := &model.Relationship{
//		ID:         uuid.NewString(),
//		Source:     acme,
//		Target:     outage,
//		Kind:       model.KindHasRisk,
//		Direction:  model.Unidirectional,
//		Strength:   model.Strong,
//		Confidence: 1.0,
//		Evidence:   []string{"explicit reference via field risk_id"},
//	}
package model

import (
	"fmt"
	"time"
)

// EntityType enumerates the closed set of entity categories the engine
// understands. New variants are added here deliberately, never via ad-hoc
// strings at call sites.
type EntityType string

const (
	EntityCustomer  EntityType = "Customer"
	EntityProduct   EntityType = "Product"
	EntityTeam      EntityType = "Team"
	EntityRisk      EntityType = "Risk"
	EntityProject   EntityType = "Project"
	EntityObjective EntityType = "Objective"
	EntityPerson    EntityType = "Person"
	EntityDocument  EntityType = "Document"
)

// Attribute is a single key/value pair. Attributes preserve insertion order,
// which is why Entity does not use a plain map.
type Attribute struct {
	Key   string `yaml:"key" json:"key"`
	Value string `yaml:"value" json:"value"`
}

// Attributes is an ordered key→value collection.
type Attributes []Attribute

// Get returns the value for key and whether it was present.
func (a Attributes) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// Entity is a typed, identified node in the knowledge graph. The engine
// treats entities as read-only inputs.
type Entity struct {
	ID         string     `yaml:"id" json:"id"`
	Type       EntityType `yaml:"type" json:"type"`
	Attributes Attributes `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// RelationshipKind enumerates every relationship the engine can emit or
// consume, across explicit, inferred, multi-hop, semantic, and temporal
// categories.
type RelationshipKind string

const (
	// Explicit kinds, materialized from relationship rules.
	KindHasRisk          RelationshipKind = "HAS_RISK"
	KindAtRiskFrom       RelationshipKind = "AT_RISK_FROM"
	KindThreatens        RelationshipKind = "THREATENS"
	KindOwns             RelationshipKind = "OWNS"
	KindOwnedBy          RelationshipKind = "OWNED_BY"
	KindBelongsTo        RelationshipKind = "BELONGS_TO"
	KindContains         RelationshipKind = "CONTAINS"
	KindAssignedTo       RelationshipKind = "ASSIGNED_TO"
	KindResponsibleFor   RelationshipKind = "RESPONSIBLE_FOR"
	KindParentOf         RelationshipKind = "PARENT_OF"
	KindChildOf          RelationshipKind = "CHILD_OF"
	KindWorksWith        RelationshipKind = "WORKS_WITH"
	KindCollaboratesWith RelationshipKind = "COLLABORATES_WITH"
	KindDependsOn        RelationshipKind = "DEPENDS_ON"
	KindSupports         RelationshipKind = "SUPPORTS"

	// Multi-hop kinds, synthesized from indirect paths.
	KindConnectedVia  RelationshipKind = "CONNECTED_VIA"
	KindRiskLinked    RelationshipKind = "RISK_LINKED"
	KindContributesTo RelationshipKind = "CONTRIBUTES_TO"
	KindUsesVia       RelationshipKind = "USES_VIA"
	KindExposedTo     RelationshipKind = "EXPOSED_TO"

	// Temporal kinds, synthesized from event-stream analysis.
	KindPrecedes       RelationshipKind = "PRECEDES"
	KindInfluences     RelationshipKind = "INFLUENCES"
	KindCorrelatesWith RelationshipKind = "CORRELATES_WITH"

	// Semantic kind, produced by an external miner when one is wired in.
	KindSemanticallyRelated RelationshipKind = "SEMANTICALLY_RELATED"

	// Pattern kind, synthesized for community members that lack a direct
	// connection.
	KindSharesCommunity RelationshipKind = "SHARES_COMMUNITY"
)

// Direction says whether a relationship reads one way or both.
type Direction string

const (
	Unidirectional Direction = "uni"
	Bidirectional  Direction = "bi"
)

// Strength is a coarse label that, together with confidence, determines
// the weight of the relationship's edge in the graph model.
type Strength string

const (
	Strong   Strength = "strong"
	Moderate Strength = "moderate"
	Weak     Strength = "weak"
)

// TemporalAspect tags a relationship with the time frame it applies to.
type TemporalAspect string

const (
	AspectPast    TemporalAspect = "past"
	AspectPresent TemporalAspect = "present"
	AspectFuture  TemporalAspect = "future"
	AspectOngoing TemporalAspect = "ongoing"
)

// Relationship is a typed, directed-or-bidirectional, scored edge between
// two entities, with supporting evidence.
//
// For multi-hop relationships Path holds the full entity sequence from
// source to target inclusive, and PathLength reports the hop count.
type Relationship struct {
	ID             string           `json:"id"`
	Source         *Entity          `json:"-"`
	Target         *Entity          `json:"-"`
	Kind           RelationshipKind `json:"kind"`
	Direction      Direction        `json:"direction"`
	Strength       Strength         `json:"strength"`
	Confidence     float64          `json:"confidence"`
	Evidence       []string         `json:"evidence,omitempty"`
	TemporalAspect TemporalAspect   `json:"temporal_aspect,omitempty"`
	Path           []*Entity        `json:"-"`
}

// PathLength returns the number of hops in the relationship's path, or 0
// for direct relationships.
func (r *Relationship) PathLength() int {
	if len(r.Path) < 2 {
		return 0
	}
	return len(r.Path) - 1
}

// DedupKey identifies a relationship for deduplication purposes.
// Two relationships with equal keys describe the same edge.
type DedupKey struct {
	SourceID  string
	TargetID  string
	Kind      RelationshipKind
	Direction Direction
}

// Key returns the deduplication key (source id, target id, kind, direction).
func (r *Relationship) Key() DedupKey {
	return DedupKey{
		SourceID:  r.Source.ID,
		TargetID:  r.Target.ID,
		Kind:      r.Kind,
		Direction: r.Direction,
	}
}

func (r *Relationship) String() string {
	return fmt.Sprintf("%s -[%s %.2f]-> %s", r.Source.ID, r.Kind, r.Confidence, r.Target.ID)
}

// Event is a timestamped observation about an entity, fed in by an external
// change-detection pipeline. Value is optional; HasValue distinguishes a
// genuine zero from "no value supplied".
type Event struct {
	EntityID  string    `yaml:"entity_id" json:"entity_id"`
	EventType string    `yaml:"event_type" json:"event_type"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Value     float64   `yaml:"value,omitempty" json:"value,omitempty"`
	HasValue  bool      `yaml:"has_value,omitempty" json:"has_value,omitempty"`
}

// TimeRange bounds a discovery request in time. A zero bound means
// unbounded on that side.
type TimeRange struct {
	Start time.Time `yaml:"start" json:"start"`
	End   time.Time `yaml:"end" json:"end"`
}

// Contains reports whether t falls inside the range.
func (tr TimeRange) Contains(t time.Time) bool {
	if !tr.Start.IsZero() && t.Before(tr.Start) {
		return false
	}
	if !tr.End.IsZero() && t.After(tr.End) {
		return false
	}
	return true
}

// DiscoveryContext carries the per-request parameters constraining which
// relationships a discovery run returns. It is a value object: build it
// once per request and never mutate it concurrently.
type DiscoveryContext struct {
	TimeRange            TimeRange
	FocusEntities        map[string]bool
	ExcludedKinds        map[RelationshipKind]bool
	MinConfidence        float64
	EnableInterpretation bool
}

// Allows reports whether a relationship passes the context's filters:
// confidence floor, excluded kinds, and the focus-entity restriction
// (when FocusEntities is non-empty, at least one endpoint must be in it).
func (dc DiscoveryContext) Allows(r *Relationship) bool {
	if r.Confidence < dc.MinConfidence {
		return false
	}
	if dc.ExcludedKinds[r.Kind] {
		return false
	}
	if len(dc.FocusEntities) > 0 {
		if !dc.FocusEntities[r.Source.ID] && !dc.FocusEntities[r.Target.ID] {
			return false
		}
	}
	return true
}

// Rule declares how an entity attribute materializes into an explicit
// relationship: when an entity of SourceType carries attribute Field whose
// value is the id of an entity of TargetType, emit a relationship of Kind.
// Rules are loaded once at startup and immutable at runtime.
type Rule struct {
	SourceType    EntityType       `yaml:"source_type"`
	Field         string           `yaml:"field"`
	TargetType    EntityType       `yaml:"target_type"`
	Kind          RelationshipKind `yaml:"kind"`
	Bidirectional bool             `yaml:"bidirectional"`
	Required      bool             `yaml:"required"`
}

// WarningCode classifies a data-quality or configuration warning.
type WarningCode string

const (
	WarnUnresolvedTarget   WarningCode = "unresolved_target"
	WarnMissingReverseKind WarningCode = "missing_reverse_kind"
	WarnInsufficientEvents WarningCode = "insufficient_events"
	WarnTaskFailed         WarningCode = "task_failed"
)

// Warning is a non-fatal problem observed during discovery. Warnings are
// collected on the result and logged; they never abort a run.
type Warning struct {
	Code     WarningCode
	EntityID string
	Message  string
}

func (w Warning) String() string {
	if w.EntityID == "" {
		return fmt.Sprintf("[%s] %s", w.Code, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Code, w.EntityID, w.Message)
}
