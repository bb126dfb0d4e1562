package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphscout/pkg/model"
)

func TestBuildExplicitRelationship(t *testing.T) {
	acme := &model.Entity{
		ID:   "cust-1",
		Type: model.EntityCustomer,
		Attributes: model.Attributes{
			{Key: "risk_id", Value: "risk-1"},
		},
	}
	outage := &model.Entity{ID: "risk-1", Type: model.EntityRisk}

	b := NewBuilder(DefaultRules())
	res := b.Build([]*model.Entity{acme, outage})

	require.Len(t, res.Relationships, 1)
	r := res.Relationships[0]
	assert.Equal(t, "cust-1", r.Source.ID)
	assert.Equal(t, "risk-1", r.Target.ID)
	assert.Equal(t, model.KindHasRisk, r.Kind)
	assert.Equal(t, 1.0, r.Confidence)
	assert.Contains(t, r.Evidence[0], "explicit reference via field risk_id")
	assert.Empty(t, res.Warnings)
}

func TestBuildBidirectionalEmitsReverse(t *testing.T) {
	person := &model.Entity{
		ID:   "p-1",
		Type: model.EntityPerson,
		Attributes: model.Attributes{
			{Key: "team_id", Value: "team-1"},
		},
	}
	team := &model.Entity{ID: "team-1", Type: model.EntityTeam}

	res := NewBuilder(DefaultRules()).Build([]*model.Entity{person, team})

	require.Len(t, res.Relationships, 2)
	assert.Equal(t, model.KindBelongsTo, res.Relationships[0].Kind)
	assert.Equal(t, model.KindContains, res.Relationships[1].Kind)
	assert.Equal(t, "team-1", res.Relationships[1].Source.ID)
}

func TestBuildRequiredUnresolvedWarns(t *testing.T) {
	// risk_id points at an id that resolves to the wrong type.
	acme := &model.Entity{
		ID:   "cust-1",
		Type: model.EntityCustomer,
		Attributes: model.Attributes{
			{Key: "risk_id", Value: "team-1"},
		},
	}
	team := &model.Entity{ID: "team-1", Type: model.EntityTeam}

	res := NewBuilder(DefaultRules()).Build([]*model.Entity{acme, team})

	assert.Empty(t, res.Relationships)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, model.WarnUnresolvedTarget, res.Warnings[0].Code)
	assert.Equal(t, "cust-1", res.Warnings[0].EntityID)
}

func TestBuildMissingReverseKindWarns(t *testing.T) {
	ruleSet := []model.Rule{
		{
			SourceType:    model.EntityProject,
			Field:         "objective_id",
			TargetType:    model.EntityObjective,
			Kind:          model.KindSupports, // no reverse defined
			Bidirectional: true,
		},
	}
	project := &model.Entity{
		ID:   "proj-1",
		Type: model.EntityProject,
		Attributes: model.Attributes{
			{Key: "objective_id", Value: "obj-1"},
		},
	}
	objective := &model.Entity{ID: "obj-1", Type: model.EntityObjective}

	res := NewBuilder(ruleSet).Build([]*model.Entity{project, objective})

	// Forward edge still emitted; the gap is flagged, not silently dropped.
	require.Len(t, res.Relationships, 1)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, model.WarnMissingReverseKind, res.Warnings[0].Code)
}

func TestBuildOptionalMissingFieldIsSilent(t *testing.T) {
	risk := &model.Entity{ID: "risk-1", Type: model.EntityRisk}
	res := NewBuilder(DefaultRules()).Build([]*model.Entity{risk})
	assert.Empty(t, res.Relationships)
	assert.Empty(t, res.Warnings)
}

func TestReverseKind(t *testing.T) {
	r, ok := ReverseKind(model.KindParentOf)
	assert.True(t, ok)
	assert.Equal(t, model.KindChildOf, r)

	// Symmetric kinds reverse to themselves.
	r, ok = ReverseKind(model.KindWorksWith)
	assert.True(t, ok)
	assert.Equal(t, model.KindWorksWith, r)

	_, ok = ReverseKind(model.KindPrecedes)
	assert.False(t, ok)
}

func TestLoadFileMissingFallsBack(t *testing.T) {
	loaded, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), loaded)
}

func TestLoadFileParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := `
- source_type: Customer
  field: product_id
  target_type: Product
  kind: OWNS
  bidirectional: true
  required: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, model.EntityCustomer, loaded[0].SourceType)
	assert.Equal(t, model.KindOwns, loaded[0].Kind)
	assert.True(t, loaded[0].Bidirectional)
	assert.True(t, loaded[0].Required)
}

func TestLoadFileMalformedErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o644))
	_, err := LoadFile(path)
	assert.Error(t, err)
}
