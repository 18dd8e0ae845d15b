package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/inspection-engine/forms"
)

// =============================================================================
// TRANSACTION SEMANTICS
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that inserts then fails
	// WHEN: WithTx returns the error
	// THEN: The insert is rolled back

	m := NewMemory()
	ctx := context.Background()

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(s forms.Store) error {
		require.NoError(t, s.InsertTemplate(ctx, forms.Template{
			ID:           "tpl-1",
			Name:         "Doomed",
			Organization: "acme",
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = m.GetTemplate(ctx, "tpl-1")
	assert.ErrorIs(t, err, forms.ErrTemplateNotFound)
}

func TestWithTx_CommitsOnNil(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.WithTx(ctx, func(s forms.Store) error {
		return s.InsertTemplate(ctx, forms.Template{
			ID:           "tpl-1",
			Name:         "Kept",
			Organization: "acme",
		})
	})
	require.NoError(t, err)

	tpl, err := m.GetTemplate(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "Kept", tpl.Name)
}

func TestWithTx_RollbackRestoresEveryTable(t *testing.T) {
	// A failing transaction touching several tables leaves none of them
	// changed.

	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.InsertSubmission(ctx, forms.Submission{
		ID:           "sub-1",
		VersionID:    "v-1",
		JobID:        "job-1",
		Organization: "acme",
		Status:       forms.StatusInProgress,
	}))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(s forms.Store) error {
		if err := s.InsertInstance(ctx, forms.Instance{
			ID:           "inst-1",
			SubmissionID: "sub-1",
			EntityID:     "ent-1",
		}); err != nil {
			return err
		}
		if err := s.UpsertSystemType(ctx, forms.SystemType{
			ID:           "st-1",
			Organization: "acme",
			Code:         "PSS",
			Name:         "Pre-Action",
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = m.GetInstance(ctx, "inst-1")
	assert.ErrorIs(t, err, forms.ErrInstanceNotFound)
	_, err = m.GetSystemType(ctx, "acme", "PSS")
	assert.ErrorIs(t, err, forms.ErrSystemTypeNotFound)
}

// =============================================================================
// INSTANCE UNIQUENESS
// =============================================================================

func TestInsertInstance_RejectsDuplicatePair(t *testing.T) {
	// The (submission, entity, asset) pair is unique. A second insert for
	// the same pair fails with ErrDuplicateInstance.

	m := NewMemory()
	ctx := context.Background()
	asset := "a1"

	require.NoError(t, m.InsertInstance(ctx, forms.Instance{
		ID:           "inst-1",
		SubmissionID: "sub-1",
		EntityID:     "ent-1",
		AssetID:      &asset,
	}))

	err := m.InsertInstance(ctx, forms.Instance{
		ID:           "inst-2",
		SubmissionID: "sub-1",
		EntityID:     "ent-1",
		AssetID:      &asset,
	})
	assert.ErrorIs(t, err, forms.ErrDuplicateInstance)
}

func TestInsertInstance_NilAssetIsItsOwnSlot(t *testing.T) {
	// One asset-less instance per entity; a second nil-asset insert for
	// the same entity collides, but an asset-scoped one does not.

	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.InsertInstance(ctx, forms.Instance{
		ID:           "inst-1",
		SubmissionID: "sub-1",
		EntityID:     "ent-1",
	}))

	err := m.InsertInstance(ctx, forms.Instance{
		ID:           "inst-2",
		SubmissionID: "sub-1",
		EntityID:     "ent-1",
	})
	assert.ErrorIs(t, err, forms.ErrDuplicateInstance)

	asset := "a1"
	assert.NoError(t, m.InsertInstance(ctx, forms.Instance{
		ID:           "inst-3",
		SubmissionID: "sub-1",
		EntityID:     "ent-1",
		AssetID:      &asset,
	}))
}

func TestInsertInstance_ScopedToSubmission(t *testing.T) {
	// The same (entity, asset) pair on a different submission is fine.

	m := NewMemory()
	ctx := context.Background()
	asset := "a1"

	require.NoError(t, m.InsertInstance(ctx, forms.Instance{
		ID:           "inst-1",
		SubmissionID: "sub-1",
		EntityID:     "ent-1",
		AssetID:      &asset,
	}))
	assert.NoError(t, m.InsertInstance(ctx, forms.Instance{
		ID:           "inst-2",
		SubmissionID: "sub-2",
		EntityID:     "ent-1",
		AssetID:      &asset,
	}))
}

// =============================================================================
// JOB DIRECTORY
// =============================================================================

func TestListJobAssets_UnknownJob(t *testing.T) {
	m := NewMemory()

	_, err := m.ListJobAssets(context.Background(), "nope")
	assert.ErrorIs(t, err, forms.ErrJobNotFound)
}

func TestPutJob_ReplacesAssetList(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.PutJob(ctx, "job-1", "Job 1", []forms.JobAsset{
		{ID: "a1", Label: "AHU-1"},
		{ID: "a2", Label: "AHU-2"},
	}))
	require.NoError(t, m.PutJob(ctx, "job-1", "Job 1", []forms.JobAsset{
		{ID: "a3", Label: "AHU-3"},
	}))

	assets, err := m.ListJobAssets(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "a3", assets[0].ID)
}

// =============================================================================
// ANSWER UPDATES
// =============================================================================

func TestUpdateInstanceAnswers_ReplacesMapAndTimestamp(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.InsertInstance(ctx, forms.Instance{
		ID:           "inst-1",
		SubmissionID: "sub-1",
		EntityID:     "ent-1",
		Answers:      map[forms.FieldID]any{"f1": "old"},
	}))

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, m.UpdateInstanceAnswers(ctx, "inst-1", map[forms.FieldID]any{"f2": "new"}, at))

	inst, err := m.GetInstance(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, map[forms.FieldID]any{"f2": "new"}, inst.Answers)
	assert.Equal(t, at, inst.UpdatedAt)
	assert.NotContains(t, inst.Answers, forms.FieldID("f1"))
}
