/*
finalize.go - Submit finalizer

PURPOSE:
  Transitions a submission to its terminal submitted state. Before
  judging completeness the finalizer runs per-asset instantiation, so
  assets added to the job since the last save still get their instances.

WARNINGS:
  - Asset completeness: for every repeatable entity x job asset, the
    asset is untested if no matching instance exists or the instance has
    no answers; all untested asset labels are folded into one message
  - Calibration: recomputed against current time for every reading, never
    reused from record time

POLICY GATES:
  block-untested-assets and block-expired-calibration each turn their
  warning class into a PolicyBlockError that leaves the submission
  untouched. With both off, the warnings ride along on the successful
  submit.

SEE ALSO:
  - submission.go: The shared instantiation sweep
  - meter.go: Record-time half of the calibration policy
*/
package forms

import (
	"context"
	"fmt"
	"strings"
)

// Submit finalizes a submission: instantiates outstanding per-asset
// instances, recomputes completeness and calibration warnings, applies
// the blocking policy, and transitions the submission and all of its
// instances to submitted. Submitting a submitted submission is a no-op
// returning the record unchanged with no warnings.
func (e *Engine) Submit(ctx context.Context, submissionID SubmissionID, userID string) (Submission, []string, error) {
	_ = userID

	sub, err := e.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return Submission{}, nil, err
	}
	if sub.Status == StatusSubmitted {
		return sub, nil, nil
	}
	assets, err := e.jobs.ListJobAssets(ctx, sub.JobID)
	if err != nil {
		return Submission{}, nil, err
	}

	// Instantiation commits on its own so a blocked submit still leaves
	// the instance set complete for the caller to fill in.
	err = e.store.WithTx(ctx, func(s Store) error {
		var err error
		sub, err = s.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if sub.Status == StatusSubmitted {
			return nil
		}
		v, err := s.GetVersion(ctx, sub.VersionID)
		if err != nil {
			return err
		}
		_, err = e.instantiate(ctx, s, sub, v, assets)
		return err
	})
	if err != nil {
		return Submission{}, nil, err
	}
	if sub.Status == StatusSubmitted {
		return sub, nil, nil
	}

	var warnings []string
	err = e.store.WithTx(ctx, func(s Store) error {
		sub, err = s.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if sub.Status == StatusSubmitted {
			return nil
		}
		v, err := s.GetVersion(ctx, sub.VersionID)
		if err != nil {
			return err
		}

		completeness := completenessWarnings(v, sub, assets)
		calibration, err := e.calibrationWarnings(ctx, s, sub)
		if err != nil {
			return err
		}

		if len(completeness) > 0 && e.policy.BlockUntestedAssets {
			return &PolicyBlockError{Policy: "block_untested_assets", Warnings: completeness}
		}
		if len(calibration) > 0 && e.policy.BlockExpiredCalibration {
			return &PolicyBlockError{Policy: "block_expired_calibration", Warnings: calibration}
		}

		at := now()
		if err := s.TouchSubmission(ctx, submissionID, StatusSubmitted, at, &at); err != nil {
			return err
		}
		if err := s.SetInstancesStatus(ctx, submissionID, StatusSubmitted); err != nil {
			return err
		}

		sub.Status = StatusSubmitted
		sub.UpdatedAt = at
		sub.SubmittedAt = &at
		for i := range sub.Instances {
			sub.Instances[i].Status = StatusSubmitted
		}
		warnings = append(completeness, calibration...)
		return nil
	})
	if err != nil {
		return Submission{}, nil, err
	}
	return sub, warnings, nil
}

// completenessWarnings folds every untested (repeatable entity, asset)
// pair into one message naming the untested asset labels.
func completenessWarnings(v Version, sub Submission, assets []JobAsset) []string {
	byKey := make(map[instanceKey]Instance)
	for _, inst := range sub.Instances {
		if inst.AssetID != nil {
			byKey[instanceKey{inst.EntityID, *inst.AssetID}] = inst
		}
	}

	var untested []string
	seen := make(map[string]bool)
	for _, entity := range v.Entities {
		if !entity.RepeatPerAsset {
			continue
		}
		for _, asset := range assets {
			inst, ok := byKey[instanceKey{entity.ID, asset.ID}]
			if ok && hasAnswers(inst) {
				continue
			}
			if !seen[asset.Label] {
				seen[asset.Label] = true
				untested = append(untested, asset.Label)
			}
		}
	}
	if len(untested) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("Untested assets: %s", strings.Join(untested, ", "))}
}

// calibrationWarnings re-evaluates expiry for every reading against
// current time.
func (e *Engine) calibrationWarnings(ctx context.Context, s Store, sub Submission) ([]string, error) {
	at := now()
	var warnings []string
	for _, r := range sub.Readings {
		cal, err := s.GetCalibration(ctx, r.CalibrationID)
		if err != nil {
			return nil, err
		}
		if !cal.ExpiredAt(at) {
			continue
		}
		meter, err := s.GetMeter(ctx, r.MeterID)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, expiredCalibrationWarning(meter))
	}
	return warnings, nil
}

// hasAnswers reports whether an instance carries at least one answer.
// Explicit false and zero count as answers; nil and "" do not.
func hasAnswers(inst Instance) bool {
	for _, v := range inst.Answers {
		if !isEmptyAnswer(v) {
			return true
		}
	}
	return false
}
