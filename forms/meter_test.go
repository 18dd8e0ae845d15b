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

// readingTarget builds a submission with one instantiated asset instance
// to record readings against.
func readingTarget(t *testing.T, e *forms.Engine, mem *store.Memory) (forms.Submission, forms.Instance) {
	t.Helper()
	ctx := context.Background()
	_, v := publishedVersion(t, e)
	putJob(t, mem, "job-1", forms.JobAsset{ID: "a1", Label: "AHU-1"})

	sub, err := e.CreateSubmission(ctx, v.ID, "job-1", "acme")
	require.NoError(t, err)
	_, err = e.InstantiateForAssets(ctx, sub.ID)
	require.NoError(t, err)

	sub, err = e.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	damper := entityByTitle(t, v, "Damper Test")
	return sub, instanceFor(t, sub, damper.ID, strPtr("a1"))
}

// =============================================================================
// ACTIVE METER TESTS
// =============================================================================

func TestListActiveMeters_PicksLatestUnexpiredCalibration(t *testing.T) {
	// GIVEN: A meter with an old valid, a newer valid, and an expired
	//        calibration
	// WHEN: Listing active meters
	// THEN: The newer valid calibration wins; expiry is judged now

	e, _ := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()

	m, err := e.CreateMeter(ctx, forms.MeterInput{Organization: "acme", Name: "Airflow Hood 1"})
	require.NoError(t, err)

	older, err := e.AddCalibration(ctx, m.ID, forms.CalibrationInput{
		CalibratedAt: daysFromNow(-200),
		ExpiresAt:    daysFromNow(165),
	})
	require.NoError(t, err)
	newer, err := e.AddCalibration(ctx, m.ID, forms.CalibrationInput{
		CalibratedAt: daysFromNow(-30),
		ExpiresAt:    daysFromNow(335),
	})
	require.NoError(t, err)
	_, err = e.AddCalibration(ctx, m.ID, forms.CalibrationInput{
		CalibratedAt: daysFromNow(-400),
		ExpiresAt:    daysFromNow(-35),
	})
	require.NoError(t, err)

	meters, err := e.ListActiveMeters(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, meters, 1)
	require.NotNil(t, meters[0].ActiveCalibration)
	assert.Equal(t, newer.ID, meters[0].ActiveCalibration.ID)
	assert.NotEqual(t, older.ID, meters[0].ActiveCalibration.ID)
}

func TestListActiveMeters_AllExpiredMeansNone(t *testing.T) {
	e, _ := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()

	m, err := e.CreateMeter(ctx, forms.MeterInput{Organization: "acme", Name: "Manometer 2"})
	require.NoError(t, err)
	_, err = e.AddCalibration(ctx, m.ID, forms.CalibrationInput{
		CalibratedAt: daysFromNow(-400),
		ExpiresAt:    daysFromNow(-35),
	})
	require.NoError(t, err)

	meters, err := e.ListActiveMeters(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, meters, 1)
	assert.Nil(t, meters[0].ActiveCalibration)
}

func TestAddCalibration_MeterNotFound(t *testing.T) {
	e, _ := newTestEngine(t, forms.SubmitPolicy{})

	_, err := e.AddCalibration(context.Background(), "missing", forms.CalibrationInput{
		CalibratedAt: daysFromNow(-1),
		ExpiresAt:    daysFromNow(364),
	})
	assert.True(t, forms.IsNotFound(err))
}

// =============================================================================
// READING TESTS
// =============================================================================

func TestRecordReading_CalibrationMustBelongToMeter(t *testing.T) {
	// GIVEN: A calibration issued for meter B
	// WHEN: Recording a reading claiming it for meter A
	// THEN: Rejected with a state error, nothing persisted

	e, mem := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	sub, inst := readingTarget(t, e, mem)

	meterA, err := e.CreateMeter(ctx, forms.MeterInput{Organization: "acme", Name: "Hood A"})
	require.NoError(t, err)
	meterB, err := e.CreateMeter(ctx, forms.MeterInput{Organization: "acme", Name: "Hood B"})
	require.NoError(t, err)
	calB, err := e.AddCalibration(ctx, meterB.ID, forms.CalibrationInput{
		CalibratedAt: daysFromNow(-1),
		ExpiresAt:    daysFromNow(364),
	})
	require.NoError(t, err)

	_, _, err = e.RecordReading(ctx, inst.ID, forms.ReadingInput{
		MeterID:       meterA.ID,
		CalibrationID: calB.ID,
		Reading:       map[string]any{"cfm": 410},
	}, "user-1")
	assert.ErrorIs(t, err, forms.ErrCalibrationMismatch)
	assert.True(t, forms.IsStateError(err))

	reloaded, err := e.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Readings)
}

func TestRecordReading_ValidCalibrationNoWarnings(t *testing.T) {
	e, mem := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	sub, inst := readingTarget(t, e, mem)

	m, err := e.CreateMeter(ctx, forms.MeterInput{Organization: "acme", Name: "Hood A"})
	require.NoError(t, err)
	cal, err := e.AddCalibration(ctx, m.ID, forms.CalibrationInput{
		CalibratedAt: daysFromNow(-1),
		ExpiresAt:    daysFromNow(364),
	})
	require.NoError(t, err)

	reading, warnings, err := e.RecordReading(ctx, inst.ID, forms.ReadingInput{
		MeterID:       m.ID,
		CalibrationID: cal.ID,
		Reading:       map[string]any{"cfm": 410.5},
	}, "user-1")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, inst.ID, reading.InstanceID)

	reloaded, err := e.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Readings, 1)
	assert.Equal(t, reading.ID, reloaded.Readings[0].ID)
}

func TestRecordReading_ExpiredCalibrationWarns(t *testing.T) {
	// GIVEN: The block-expired-calibration policy is OFF
	// WHEN: Recording against an expired calibration
	// THEN: The reading persists with a warning

	e, mem := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	sub, inst := readingTarget(t, e, mem)

	m, err := e.CreateMeter(ctx, forms.MeterInput{Organization: "acme", Name: "Manometer 2"})
	require.NoError(t, err)
	cal, err := e.AddCalibration(ctx, m.ID, forms.CalibrationInput{
		CalibratedAt: daysFromNow(-400),
		ExpiresAt:    daysFromNow(-35),
	})
	require.NoError(t, err)

	_, warnings, err := e.RecordReading(ctx, inst.ID, forms.ReadingInput{
		MeterID:       m.ID,
		CalibrationID: cal.ID,
		Reading:       map[string]any{"inwc": 0.48},
	}, "user-1")
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Calibration expired for meter Manometer 2")

	reloaded, err := e.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Readings, 1)
}

func TestRecordReading_ExpiredCalibrationBlocks(t *testing.T) {
	// GIVEN: The block-expired-calibration policy is ON
	// WHEN: Recording against an expired calibration
	// THEN: Rejected with a policy block, nothing persisted

	e, mem := newTestEngine(t, forms.SubmitPolicy{BlockExpiredCalibration: true})
	ctx := context.Background()
	sub, inst := readingTarget(t, e, mem)

	m, err := e.CreateMeter(ctx, forms.MeterInput{Organization: "acme", Name: "Manometer 2"})
	require.NoError(t, err)
	cal, err := e.AddCalibration(ctx, m.ID, forms.CalibrationInput{
		CalibratedAt: daysFromNow(-400),
		ExpiresAt:    daysFromNow(-35),
	})
	require.NoError(t, err)

	_, _, err = e.RecordReading(ctx, inst.ID, forms.ReadingInput{
		MeterID:       m.ID,
		CalibrationID: cal.ID,
		Reading:       map[string]any{"inwc": 0.48},
	}, "user-1")
	require.Error(t, err)
	assert.True(t, forms.IsPolicyBlock(err))

	var perr *forms.PolicyBlockError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "block_expired_calibration", perr.Policy)

	reloaded, err := e.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Readings)
}

func TestRecordReading_MissingMeterOrCalibration(t *testing.T) {
	e, mem := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	_, inst := readingTarget(t, e, mem)

	m, err := e.CreateMeter(ctx, forms.MeterInput{Organization: "acme", Name: "Hood A"})
	require.NoError(t, err)

	_, _, err = e.RecordReading(ctx, inst.ID, forms.ReadingInput{
		MeterID:       "missing",
		CalibrationID: "also-missing",
		Reading:       map[string]any{"cfm": 1},
	}, "user-1")
	assert.True(t, forms.IsNotFound(err))

	_, _, err = e.RecordReading(ctx, inst.ID, forms.ReadingInput{
		MeterID:       m.ID,
		CalibrationID: "missing",
		Reading:       map[string]any{"cfm": 1},
	}, "user-1")
	assert.True(t, forms.IsNotFound(err))
}
