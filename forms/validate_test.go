package forms_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/inspection-engine/forms"
)

// =============================================================================
// VALIDATION CONTRACT TESTS
// =============================================================================

func TestValidateAnswers_AggregatesAllViolations(t *testing.T) {
	// GIVEN: A payload violating three fields at once
	// WHEN: Validating
	// THEN: All three violations come back in one error

	fields := []forms.Field{
		{ID: "f-name", Label: "Technician name", Type: forms.FieldText, Required: true},
		{ID: "f-flow", Label: "Airflow", Type: forms.FieldNumber, Required: true},
		{ID: "f-result", Label: "Result", Type: forms.FieldChoice, Required: true, Options: []string{"pass", "fail"}},
	}

	_, err := forms.ValidateAnswers(fields, map[string]any{
		"f-flow":   "not a number",
		"f-result": "maybe",
	})
	require.Error(t, err)
	assert.True(t, forms.IsValidation(err))

	var verr *forms.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 3)
	assert.Contains(t, verr.Violations[0], "Technician name is required")
	assert.Contains(t, verr.Violations[1], "Airflow must be a number")
	assert.Contains(t, verr.Violations[2], "Result must be one of: pass, fail")
}

func TestValidateAnswers_DropsUnknownKeys(t *testing.T) {
	// GIVEN: A payload carrying a key no field declares
	// WHEN: Validating
	// THEN: The key is silently dropped, not an error

	fields := []forms.Field{
		{ID: "f-name", Label: "Name", Type: forms.FieldText, Required: false},
	}

	sanitized, err := forms.ValidateAnswers(fields, map[string]any{
		"f-name":  "Dana",
		"stowaway": "ignored",
	})
	require.NoError(t, err)
	assert.Len(t, sanitized, 1)
	assert.Equal(t, "Dana", sanitized["f-name"])
}

func TestValidateAnswers_FalseAndZeroAreAnswers(t *testing.T) {
	// GIVEN: Required boolean and number fields answered false and 0
	// WHEN: Validating
	// THEN: Both count as answered

	fields := []forms.Field{
		{ID: "f-ok", Label: "Accessible", Type: forms.FieldBoolean, Required: true},
		{ID: "f-flow", Label: "Airflow", Type: forms.FieldNumber, Required: true},
	}

	sanitized, err := forms.ValidateAnswers(fields, map[string]any{
		"f-ok":   false,
		"f-flow": float64(0),
	})
	require.NoError(t, err)
	assert.Equal(t, false, sanitized["f-ok"])
}

func TestValidateAnswers_EmptyStringIsMissing(t *testing.T) {
	fields := []forms.Field{
		{ID: "f-name", Label: "Name", Type: forms.FieldText, Required: true},
	}

	_, err := forms.ValidateAnswers(fields, map[string]any{"f-name": ""})
	var verr *forms.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations[0], "Name is required")
}

func TestValidateAnswers_NormalizesNumbers(t *testing.T) {
	// Numbers arrive as float64 from JSON decoding and should land as
	// decimals.
	fields := []forms.Field{
		{ID: "f-flow", Label: "Airflow", Type: forms.FieldNumber, Required: true},
	}

	sanitized, err := forms.ValidateAnswers(fields, map[string]any{"f-flow": 412.5})
	require.NoError(t, err)

	d, ok := sanitized["f-flow"].(decimal.Decimal)
	require.True(t, ok, "expected decimal, got %T", sanitized["f-flow"])
	assert.True(t, d.Equal(decimal.NewFromFloat(412.5)))
}

func TestValidateAnswers_UnsupportedStoredTypeIsViolation(t *testing.T) {
	// A field whose stored type the validator does not know is itself a
	// violation rather than a silent pass.
	fields := []forms.Field{
		{ID: "f-when", Label: "Inspected on", Type: forms.FieldType("date"), Required: false},
	}

	_, err := forms.ValidateAnswers(fields, map[string]any{"f-when": "2026-08-29"})
	var verr *forms.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations[0], `unsupported type "date"`)
}

// =============================================================================
// SAVE ANSWERS TESTS
// =============================================================================

func TestSaveAnswers_PersistsSanitizedAnswers(t *testing.T) {
	e, _ := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	_, v := publishedVersion(t, e)

	sub, err := e.CreateSubmission(ctx, v.ID, "job-1", "acme")
	require.NoError(t, err)

	general := entityByTitle(t, v, "General")
	inst := instanceFor(t, sub, general.ID, nil)

	updated, err := e.SaveAnswers(ctx, sub.ID, inst.ID, map[string]any{
		fieldID(t, general, "Technician name"):  "Dana",
		fieldID(t, general, "System accessible"): true,
		"unknown-key":                            "dropped",
	}, "user-1")
	require.NoError(t, err)
	assert.Len(t, updated.Answers, 2)

	reloaded, err := e.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	saved := instanceFor(t, reloaded, general.ID, nil)
	assert.Equal(t, "Dana", saved.Answers[forms.FieldID(fieldID(t, general, "Technician name"))])
}

func TestSaveAnswers_ValidationFailureMutatesNothing(t *testing.T) {
	// GIVEN: An instance with saved answers
	// WHEN: A later save fails validation
	// THEN: The stored answers are unchanged

	e, _ := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	_, v := publishedVersion(t, e)

	sub, err := e.CreateSubmission(ctx, v.ID, "job-1", "acme")
	require.NoError(t, err)
	general := entityByTitle(t, v, "General")
	inst := instanceFor(t, sub, general.ID, nil)

	_, err = e.SaveAnswers(ctx, sub.ID, inst.ID, map[string]any{
		fieldID(t, general, "Technician name"):  "Dana",
		fieldID(t, general, "System accessible"): true,
	}, "user-1")
	require.NoError(t, err)

	_, err = e.SaveAnswers(ctx, sub.ID, inst.ID, map[string]any{
		fieldID(t, general, "Technician name"):  "",
		fieldID(t, general, "System accessible"): "yes",
	}, "user-1")
	require.Error(t, err)
	assert.True(t, forms.IsValidation(err))

	reloaded, err := e.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	saved := instanceFor(t, reloaded, general.ID, nil)
	assert.Equal(t, "Dana", saved.Answers[forms.FieldID(fieldID(t, general, "Technician name"))])
}

func TestSaveAnswers_SubmittedSubmissionRejected(t *testing.T) {
	e, mem := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	_, v := publishedVersion(t, e)
	putJob(t, mem, "job-1")

	sub, err := e.CreateSubmission(ctx, v.ID, "job-1", "acme")
	require.NoError(t, err)
	_, _, err = e.Submit(ctx, sub.ID, "user-1")
	require.NoError(t, err)

	general := entityByTitle(t, v, "General")
	inst := instanceFor(t, sub, general.ID, nil)

	_, err = e.SaveAnswers(ctx, sub.ID, inst.ID, map[string]any{
		fieldID(t, general, "Technician name"): "Dana",
	}, "user-1")
	assert.ErrorIs(t, err, forms.ErrSubmissionFinal)
	assert.True(t, forms.IsStateError(err))
}

func TestSaveAnswers_InstanceMustBelongToSubmission(t *testing.T) {
	// GIVEN: Two submissions against the same version
	// WHEN: Saving answers with a mismatched submission/instance pair
	// THEN: Treated as not found

	e, _ := newTestEngine(t, forms.SubmitPolicy{})
	ctx := context.Background()
	_, v := publishedVersion(t, e)

	sub1, err := e.CreateSubmission(ctx, v.ID, "job-1", "acme")
	require.NoError(t, err)
	sub2, err := e.CreateSubmission(ctx, v.ID, "job-2", "acme")
	require.NoError(t, err)

	general := entityByTitle(t, v, "General")
	foreign := instanceFor(t, sub2, general.ID, nil)

	_, err = e.SaveAnswers(ctx, sub1.ID, foreign.ID, map[string]any{
		fieldID(t, general, "Technician name"): "Dana",
	}, "user-1")
	assert.True(t, forms.IsNotFound(err))
}
