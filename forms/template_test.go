package forms_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/inspection-engine/forms"
)

// =============================================================================
// VERSION NUMBERING TESTS
// =============================================================================

func TestCreateVersion_DenseNumbering(t *testing.T) {
	// GIVEN: A template
	// WHEN: Creating three versions in sequence
	// THEN: They carry numbers 1, 2, 3 with no gaps

	e, _ := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()

	tpl, err := e.CreateTemplate(ctx, forms.TemplateInput{Name: "T", Organization: "acme"})
	require.NoError(t, err)

	for want := 1; want <= 3; want++ {
		v, err := e.CreateVersion(ctx, tpl.ID, forms.VersionInput{})
		require.NoError(t, err)
		assert.Equal(t, want, v.Number)
		assert.Equal(t, forms.VersionDraft, v.Status)
	}

	versions, err := e.ListVersions(ctx, tpl.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	for i, v := range versions {
		assert.Equal(t, i+1, v.Number)
	}
}

func TestCreateVersion_TemplateNotFound(t *testing.T) {
	e, _ := newTestEngine(t, forms.SubmitPolicy{})

	_, err := e.CreateVersion(context.Background(), "missing", forms.VersionInput{})
	assert.True(t, forms.IsNotFound(err), "expected not-found, got %v", err)
}

// =============================================================================
// IMMUTABILITY TESTS
// =============================================================================

func TestAddEntity_PublishedVersionRejected(t *testing.T) {
	// GIVEN: A published version
	// WHEN: Adding an entity
	// THEN: Rejected with a state error; the entity set is unchanged

	e, _ := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	_, v := publishedVersion(t, e)

	_, err := e.AddEntity(ctx, v.ID, forms.EntityInput{Title: "Late addition"})
	assert.ErrorIs(t, err, forms.ErrVersionPublished)
	assert.True(t, forms.IsStateError(err))

	after, err := e.GetVersion(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, after.Entities, len(v.Entities))
}

func TestAddEntity_DraftAccumulatesInSortOrder(t *testing.T) {
	// GIVEN: A draft version with entities added out of sort order
	// WHEN: Reading the version back
	// THEN: Entities come back ordered by SortOrder

	e, _ := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()

	tpl, err := e.CreateTemplate(ctx, forms.TemplateInput{Name: "T", Organization: "acme"})
	require.NoError(t, err)
	v, err := e.CreateVersion(ctx, tpl.ID, forms.VersionInput{})
	require.NoError(t, err)

	_, err = e.AddEntity(ctx, v.ID, forms.EntityInput{Title: "Second", SortOrder: 2})
	require.NoError(t, err)
	_, err = e.AddEntity(ctx, v.ID, forms.EntityInput{Title: "First", SortOrder: 1})
	require.NoError(t, err)

	got, err := e.GetVersion(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, got.Entities, 2)
	assert.Equal(t, "First", got.Entities[0].Title)
	assert.Equal(t, "Second", got.Entities[1].Title)
}

// =============================================================================
// PUBLISH TESTS
// =============================================================================

func TestPublishVersion_Idempotent(t *testing.T) {
	// GIVEN: A published version
	// WHEN: Publishing it again
	// THEN: No error, status stays published, PublishedAt is preserved

	e, _ := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	_, v := publishedVersion(t, e)
	require.NotNil(t, v.PublishedAt)

	again, err := e.PublishVersion(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, forms.VersionPublished, again.Status)
	require.NotNil(t, again.PublishedAt)
	assert.Equal(t, v.PublishedAt.Unix(), again.PublishedAt.Unix())
}

func TestPublishVersion_NotFound(t *testing.T) {
	e, _ := newTestEngine(t, forms.SubmitPolicy{})

	_, err := e.PublishVersion(context.Background(), "missing")
	assert.True(t, forms.IsNotFound(err))
}
