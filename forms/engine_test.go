package forms_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/inspection-engine/forms"
	"github.com/warp/inspection-engine/forms/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T, policy forms.SubmitPolicy) (*forms.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	engine := forms.NewEngine(mem, mem, testCatalog(), policy)
	return engine, mem
}

// testCatalog is a small fixed catalog so tests do not depend on the
// shipped definitions.
func testCatalog() []forms.SystemTypeDef {
	return []forms.SystemTypeDef{
		{
			Code: "PSS",
			Name: "Pre-Action Sprinkler System",
			Entities: []forms.EntityInput{
				{
					Title:     "General Information",
					SortOrder: 0,
					Fields: []forms.FieldInput{
						{Label: "Building name", Type: forms.FieldText, Required: true},
					},
				},
				{
					Title:          "Head Check",
					SortOrder:      1,
					RepeatPerAsset: true,
					Fields: []forms.FieldInput{
						{Label: "Condition", Type: forms.FieldChoice, Required: true, Options: []string{"good", "damaged"}},
					},
				},
			},
		},
		{
			Code: "SDS",
			Name: "Smoke Detection System",
			Entities: []forms.EntityInput{
				{
					Title:     "Panel",
					SortOrder: 0,
					Fields: []forms.FieldInput{
						{Label: "Panel normal", Type: forms.FieldBoolean, Required: true},
					},
				},
			},
		},
	}
}

// publishedVersion builds a template with one published version holding a
// fixed entity pair: "General" (filled once) and "Damper Test"
// (repeated per asset).
func publishedVersion(t *testing.T, e *forms.Engine) (forms.Template, forms.Version) {
	t.Helper()
	ctx := context.Background()

	tpl, err := e.CreateTemplate(ctx, forms.TemplateInput{
		Name:         "Annual Damper Inspection",
		Organization: "acme",
	})
	require.NoError(t, err)

	v, err := e.CreateVersion(ctx, tpl.ID, forms.VersionInput{Title: "2026 revision"})
	require.NoError(t, err)

	_, err = e.AddEntity(ctx, v.ID, forms.EntityInput{
		Title:     "General",
		SortOrder: 0,
		Fields: []forms.FieldInput{
			{Label: "Technician name", Type: forms.FieldText, Required: true},
			{Label: "System accessible", Type: forms.FieldBoolean, Required: true},
		},
	})
	require.NoError(t, err)

	_, err = e.AddEntity(ctx, v.ID, forms.EntityInput{
		Title:          "Damper Test",
		SortOrder:      1,
		RepeatPerAsset: true,
		Fields: []forms.FieldInput{
			{Label: "Airflow (cfm)", Type: forms.FieldNumber, Required: true},
			{Label: "Result", Type: forms.FieldChoice, Required: true, Options: []string{"pass", "fail"}},
			{Label: "Notes", Type: forms.FieldText, Required: false},
		},
	})
	require.NoError(t, err)

	published, err := e.PublishVersion(ctx, v.ID)
	require.NoError(t, err)
	return tpl, published
}

// entityByTitle finds an entity on a version.
func entityByTitle(t *testing.T, v forms.Version, title string) forms.EntityTemplate {
	t.Helper()
	for _, entity := range v.Entities {
		if entity.Title == title {
			return entity
		}
	}
	t.Fatalf("version has no entity titled %q", title)
	return forms.EntityTemplate{}
}

// fieldID finds a field on an entity by label.
func fieldID(t *testing.T, entity forms.EntityTemplate, label string) string {
	t.Helper()
	for _, f := range entity.Fields {
		if f.Label == label {
			return string(f.ID)
		}
	}
	t.Fatalf("entity %q has no field labeled %q", entity.Title, label)
	return ""
}

// instanceFor finds the submission instance for an entity, optionally
// scoped to an asset.
func instanceFor(t *testing.T, sub forms.Submission, entityID forms.EntityID, assetID *string) forms.Instance {
	t.Helper()
	for _, inst := range sub.Instances {
		if inst.EntityID != entityID {
			continue
		}
		if assetID == nil && inst.AssetID == nil {
			return inst
		}
		if assetID != nil && inst.AssetID != nil && *inst.AssetID == *assetID {
			return inst
		}
	}
	t.Fatalf("submission has no instance for entity %s asset %v", entityID, assetID)
	return forms.Instance{}
}

func putJob(t *testing.T, mem *store.Memory, jobID string, assets ...forms.JobAsset) {
	t.Helper()
	require.NoError(t, mem.PutJob(context.Background(), jobID, jobID, assets))
}

func strPtr(s string) *string { return &s }

func daysFromNow(d int) time.Time {
	return time.Now().UTC().AddDate(0, 0, d)
}
