package forms_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/inspection-engine/forms"
	"github.com/warp/inspection-engine/forms/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// inProgressSubmission builds a submission for a two-asset job,
// instantiated and reloaded.
func inProgressSubmission(t *testing.T, e *forms.Engine, mem *store.Memory) (forms.Version, forms.Submission) {
	t.Helper()
	ctx := context.Background()
	_, v := publishedVersion(t, e)
	putJob(t, mem, "job-1",
		forms.JobAsset{ID: "a1", Label: "AHU-1"},
		forms.JobAsset{ID: "a2", Label: "AHU-2"},
	)

	sub, err := e.CreateSubmission(ctx, v.ID, "job-1", "acme")
	require.NoError(t, err)
	_, err = e.InstantiateForAssets(ctx, sub.ID)
	require.NoError(t, err)
	sub, err = e.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	return v, sub
}

// answerAsset fills the per-asset damper instance for one asset.
func answerAsset(t *testing.T, e *forms.Engine, v forms.Version, sub forms.Submission, assetID string) {
	t.Helper()
	damper := entityByTitle(t, v, "Damper Test")
	inst := instanceFor(t, sub, damper.ID, strPtr(assetID))
	_, err := e.SaveAnswers(context.Background(), sub.ID, inst.ID, map[string]any{
		fieldID(t, damper, "Airflow (cfm)"): 412.5,
		fieldID(t, damper, "Result"):        "pass",
	}, "user-1")
	require.NoError(t, err)
}

// =============================================================================
// SUBMIT TESTS
// =============================================================================

func TestSubmit_AllAssetsTested_NoWarnings(t *testing.T) {
	// GIVEN: Every (repeatable entity, asset) pair answered
	// WHEN: Submitting
	// THEN: Terminal state, no warnings, all instances submitted

	e, mem := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	v, sub := inProgressSubmission(t, e, mem)
	answerAsset(t, e, v, sub, "a1")
	answerAsset(t, e, v, sub, "a2")

	submitted, warnings, err := e.Submit(ctx, sub.ID, "user-1")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, forms.StatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)
	for _, inst := range submitted.Instances {
		assert.Equal(t, forms.StatusSubmitted, inst.Status)
	}
}

func TestSubmit_UntestedAssetsWarn(t *testing.T) {
	// GIVEN: One asset answered, one not; block policy OFF
	// WHEN: Submitting
	// THEN: Succeeds with a single warning naming the untested asset

	e, mem := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	v, sub := inProgressSubmission(t, e, mem)
	answerAsset(t, e, v, sub, "a1")

	submitted, warnings, err := e.Submit(ctx, sub.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, forms.StatusSubmitted, submitted.Status)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Untested assets: AHU-2", warnings[0])
}

func TestSubmit_UntestedAssetsBlock(t *testing.T) {
	// GIVEN: An untested asset; block-untested-assets ON
	// WHEN: Submitting
	// THEN: Policy block, submission stays in progress

	e, mem := newTestEngine(t, forms.SubmitPolicy{BlockUntestedAssets: true})
	ctx := context.Background()
	v, sub := inProgressSubmission(t, e, mem)
	answerAsset(t, e, v, sub, "a1")

	_, _, err := e.Submit(ctx, sub.ID, "user-1")
	require.Error(t, err)
	assert.True(t, forms.IsPolicyBlock(err))

	var perr *forms.PolicyBlockError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "block_untested_assets", perr.Policy)
	require.Len(t, perr.Warnings, 1)
	assert.Contains(t, perr.Warnings[0], "AHU-2")

	reloaded, err := e.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, forms.StatusInProgress, reloaded.Status)
	assert.Nil(t, reloaded.SubmittedAt)
}

func TestSubmit_BlockedSubmitKeepsInstantiation(t *testing.T) {
	// GIVEN: An asset added after the last instantiation; block policy ON
	// WHEN: Submit runs and is blocked
	// THEN: The new asset's instance exists anyway, ready to fill in

	e, mem := newTestEngine(t, forms.SubmitPolicy{BlockUntestedAssets: true})
	ctx := context.Background()
	v, sub := inProgressSubmission(t, e, mem)
	answerAsset(t, e, v, sub, "a1")
	answerAsset(t, e, v, sub, "a2")

	putJob(t, mem, "job-1",
		forms.JobAsset{ID: "a1", Label: "AHU-1"},
		forms.JobAsset{ID: "a2", Label: "AHU-2"},
		forms.JobAsset{ID: "a3", Label: "Stair B"},
	)

	_, _, err := e.Submit(ctx, sub.ID, "user-1")
	require.Error(t, err)
	assert.True(t, forms.IsPolicyBlock(err))

	reloaded, err := e.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, forms.StatusInProgress, reloaded.Status)
	damper := entityByTitle(t, v, "Damper Test")
	inst := instanceFor(t, reloaded, damper.ID, strPtr("a3"))
	assert.Empty(t, inst.Answers)
}

func TestSubmit_SweepsNewAssetsBeforeJudging(t *testing.T) {
	// GIVEN: An asset added after instantiation, never answered; block OFF
	// WHEN: Submitting
	// THEN: The sweep creates its instance and the warning names it

	e, mem := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	v, sub := inProgressSubmission(t, e, mem)
	answerAsset(t, e, v, sub, "a1")
	answerAsset(t, e, v, sub, "a2")

	putJob(t, mem, "job-1",
		forms.JobAsset{ID: "a1", Label: "AHU-1"},
		forms.JobAsset{ID: "a2", Label: "AHU-2"},
		forms.JobAsset{ID: "a3", Label: "Stair B"},
	)

	submitted, warnings, err := e.Submit(ctx, sub.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Untested assets: Stair B", warnings[0])

	damper := entityByTitle(t, v, "Damper Test")
	inst := instanceFor(t, submitted, damper.ID, strPtr("a3"))
	assert.Equal(t, forms.StatusSubmitted, inst.Status)
}

func TestSubmit_ExpiredCalibrationWarnsAtSubmitTime(t *testing.T) {
	// GIVEN: A reading recorded against a calibration that is expired;
	//        block policies OFF
	// WHEN: Submitting
	// THEN: The calibration warning is recomputed and returned

	e, mem := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	v, sub := inProgressSubmission(t, e, mem)
	answerAsset(t, e, v, sub, "a1")
	answerAsset(t, e, v, sub, "a2")

	m, err := e.CreateMeter(ctx, forms.MeterInput{Organization: "acme", Name: "Manometer 2"})
	require.NoError(t, err)
	cal, err := e.AddCalibration(ctx, m.ID, forms.CalibrationInput{
		CalibratedAt: daysFromNow(-400),
		ExpiresAt:    daysFromNow(-35),
	})
	require.NoError(t, err)

	damper := entityByTitle(t, v, "Damper Test")
	inst := instanceFor(t, sub, damper.ID, strPtr("a1"))
	_, _, err = e.RecordReading(ctx, inst.ID, forms.ReadingInput{
		MeterID:       m.ID,
		CalibrationID: cal.ID,
		Reading:       map[string]any{"inwc": 0.48},
	}, "user-1")
	require.NoError(t, err)

	submitted, warnings, err := e.Submit(ctx, sub.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, forms.StatusSubmitted, submitted.Status)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Calibration expired for meter Manometer 2")
}

func TestSubmit_ExpiredCalibrationBlocks(t *testing.T) {
	// Same arrangement, but the finalizing engine runs with
	// block-expired-calibration ON: the submit is rejected. The gate
	// judges expiry at submit time, not record time.

	e, mem := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	v, sub := inProgressSubmission(t, e, mem)
	answerAsset(t, e, v, sub, "a1")
	answerAsset(t, e, v, sub, "a2")

	m, err := e.CreateMeter(ctx, forms.MeterInput{Organization: "acme", Name: "Manometer 2"})
	require.NoError(t, err)
	cal, err := e.AddCalibration(ctx, m.ID, forms.CalibrationInput{
		CalibratedAt: daysFromNow(-400),
		ExpiresAt:    daysFromNow(-35),
	})
	require.NoError(t, err)

	damper := entityByTitle(t, v, "Damper Test")
	inst := instanceFor(t, sub, damper.ID, strPtr("a1"))
	_, _, err = e.RecordReading(ctx, inst.ID, forms.ReadingInput{
		MeterID:       m.ID,
		CalibrationID: cal.ID,
		Reading:       map[string]any{"inwc": 0.48},
	}, "user-1")
	require.NoError(t, err)

	// A second engine over the same store, stricter policy.
	strict := forms.NewEngine(mem, mem, testCatalog(), forms.SubmitPolicy{BlockExpiredCalibration: true})
	_, _, err = strict.Submit(ctx, sub.ID, "user-1")
	require.Error(t, err)
	assert.True(t, forms.IsPolicyBlock(err))

	var perr *forms.PolicyBlockError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "block_expired_calibration", perr.Policy)
}

func TestSubmit_Idempotent(t *testing.T) {
	// GIVEN: A submitted submission
	// WHEN: Submitting again
	// THEN: No-op success, no warnings, timestamps unchanged

	e, mem := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	v, sub := inProgressSubmission(t, e, mem)
	answerAsset(t, e, v, sub, "a1")
	answerAsset(t, e, v, sub, "a2")

	first, _, err := e.Submit(ctx, sub.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, first.SubmittedAt)

	second, warnings, err := e.Submit(ctx, sub.ID, "user-1")
	require.NoError(t, err)
	assert.Nil(t, warnings)
	assert.Equal(t, forms.StatusSubmitted, second.Status)
	require.NotNil(t, second.SubmittedAt)
	assert.Equal(t, first.SubmittedAt.Unix(), second.SubmittedAt.Unix())
}

func TestSubmit_SubmissionNotFound(t *testing.T) {
	e, _ := newTestEngine(t, forms.SubmitPolicy{})

	_, _, err := e.Submit(context.Background(), "missing", "user-1")
	assert.True(t, forms.IsNotFound(err))
}
