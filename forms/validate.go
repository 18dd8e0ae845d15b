/*
validate.go - Field-schema answer validation

PURPOSE:
  Validates a free-form answer payload against an entity's field schema
  and persists sanitized answers on an instance.

VALIDATION CONTRACT:
  - Violations from ALL fields are aggregated; validation never stops at
    the first failure
  - A required field that is missing, nil, or "" is a violation; type
    checks are skipped for that field
  - Unknown payload keys are dropped silently, not errors
  - An unrecognized field type on a stored definition is itself a
    violation ("unsupported type")
  - Numeric values are normalized to decimal.Decimal

SEE ALSO:
  - types.go: FieldType enum
  - finalize.go: Uses answer presence for completeness warnings
*/
package forms

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidateAnswers checks payload against fields, in field order. On
// success it returns a sanitized map holding only the fields that passed;
// on failure it returns a ValidationError carrying every violation.
func ValidateAnswers(fields []Field, payload map[string]any) (map[FieldID]any, error) {
	sanitized := make(map[FieldID]any)
	var violations []string

	for _, f := range fields {
		value, present := payload[string(f.ID)]
		if !present || isEmptyAnswer(value) {
			if f.Required {
				violations = append(violations, fmt.Sprintf("%s is required", f.Label))
			}
			continue
		}

		switch f.Type {
		case FieldText:
			s, ok := value.(string)
			if !ok {
				violations = append(violations, fmt.Sprintf("%s must be text", f.Label))
				continue
			}
			sanitized[f.ID] = s

		case FieldNumber:
			d, ok := toDecimal(value)
			if !ok {
				violations = append(violations, fmt.Sprintf("%s must be a number", f.Label))
				continue
			}
			sanitized[f.ID] = d

		case FieldBoolean:
			b, ok := value.(bool)
			if !ok {
				violations = append(violations, fmt.Sprintf("%s must be true or false", f.Label))
				continue
			}
			sanitized[f.ID] = b

		case FieldChoice:
			s, ok := value.(string)
			if !ok {
				violations = append(violations, fmt.Sprintf("%s must be a choice value", f.Label))
				continue
			}
			if len(f.Options) > 0 && !containsOption(f.Options, s) {
				violations = append(violations, fmt.Sprintf("%s must be one of: %s", f.Label, strings.Join(f.Options, ", ")))
				continue
			}
			sanitized[f.ID] = s

		default:
			violations = append(violations, fmt.Sprintf("%s has unsupported type %q", f.Label, string(f.Type)))
		}
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return sanitized, nil
}

// SaveAnswers validates and persists answers on an instance. Fails with
// ErrSubmissionFinal once the submission has been submitted. Saving
// answers keeps (or puts back) the submission in progress.
func (e *Engine) SaveAnswers(ctx context.Context, submissionID SubmissionID, instanceID InstanceID, answers map[string]any, userID string) (Instance, error) {
	_ = userID // audit identity stays at the boundary; nothing on the record carries it

	var updated Instance
	err := e.store.WithTx(ctx, func(s Store) error {
		sub, err := s.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if sub.Status == StatusSubmitted {
			return ErrSubmissionFinal
		}

		inst, err := s.GetInstance(ctx, instanceID)
		if err != nil {
			return err
		}
		if inst.SubmissionID != submissionID {
			return ErrInstanceNotFound
		}

		entity, err := s.GetEntity(ctx, inst.EntityID)
		if err != nil {
			return err
		}

		sanitized, err := ValidateAnswers(entity.Fields, answers)
		if err != nil {
			return err
		}

		at := now()
		if err := s.UpdateInstanceAnswers(ctx, instanceID, sanitized, at); err != nil {
			return err
		}
		if err := s.TouchSubmission(ctx, submissionID, StatusInProgress, at, nil); err != nil {
			return err
		}

		inst.Answers = sanitized
		inst.UpdatedAt = at
		updated = inst
		return nil
	})
	if err != nil {
		return Instance{}, err
	}
	return updated, nil
}

// isEmptyAnswer treats nil and the empty string as "no answer". Explicit
// false and zero are answers.
func isEmptyAnswer(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func containsOption(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

// toDecimal normalizes the numeric representations a JSON payload can
// carry. Strings are not numbers.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}
