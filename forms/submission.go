/*
submission.go - Submission creation and per-asset instantiation

PURPOSE:
  Creates submissions against published versions, seeds one instance per
  template entity, and idempotently instantiates additional instances for
  repeat-per-asset entities against the job's asset list.

IDEMPOTENCE:
  At most one instance exists per (entity, asset) pair within a
  submission. The existence check and the insert run inside one WithTx
  call, with the store's uniqueness constraint as backstop; repeated or
  concurrent instantiation converges on the same instance set.

SEE ALSO:
  - finalize.go: Runs instantiation before judging completeness
  - store.go: InsertInstance uniqueness contract
*/
package forms

import (
	"context"
	"errors"
)

// CreateSubmission creates an in-progress submission against a published
// version and seeds one instance (asset-less, empty answers) per entity
// on the version. The version is in use from this point on and can never
// be edited again.
func (e *Engine) CreateSubmission(ctx context.Context, versionID VersionID, jobID, organization string) (Submission, error) {
	var sub Submission
	err := e.store.WithTx(ctx, func(s Store) error {
		v, err := s.GetVersion(ctx, versionID)
		if err != nil {
			return err
		}
		if v.Status != VersionPublished {
			return ErrVersionNotPublished
		}

		at := now()
		sub = Submission{
			ID:           SubmissionID(newID()),
			VersionID:    versionID,
			JobID:        jobID,
			Organization: organization,
			Status:       StatusInProgress,
			CreatedAt:    at,
			UpdatedAt:    at,
		}
		if err := s.InsertSubmission(ctx, sub); err != nil {
			return err
		}

		for _, entity := range v.Entities {
			inst := Instance{
				ID:           InstanceID(newID()),
				SubmissionID: sub.ID,
				EntityID:     entity.ID,
				Answers:      map[FieldID]any{},
				Status:       StatusInProgress,
				UpdatedAt:    at,
			}
			if err := s.InsertInstance(ctx, inst); err != nil {
				return err
			}
			sub.Instances = append(sub.Instances, inst)
		}
		return nil
	})
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// GetSubmission returns the submission aggregate with its instances and
// readings.
func (e *Engine) GetSubmission(ctx context.Context, id SubmissionID) (Submission, error) {
	return e.store.GetSubmission(ctx, id)
}

// InstantiateForAssets creates one instance per (job asset x
// repeat-per-asset entity) pair that does not already have one. Safe
// under repeated or concurrent invocation. The asset list is fetched
// from the directory collaborator up front; the existence check and
// insert then run as one atomic unit.
func (e *Engine) InstantiateForAssets(ctx context.Context, submissionID SubmissionID) (InstantiationResult, error) {
	sub, err := e.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return InstantiationResult{}, err
	}
	assets, err := e.jobs.ListJobAssets(ctx, sub.JobID)
	if err != nil {
		return InstantiationResult{}, err
	}

	var result InstantiationResult
	err = e.store.WithTx(ctx, func(s Store) error {
		sub, err := s.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		v, err := s.GetVersion(ctx, sub.VersionID)
		if err != nil {
			return err
		}
		result, err = e.instantiate(ctx, s, sub, v, assets)
		return err
	})
	if err != nil {
		return InstantiationResult{}, err
	}
	return result, nil
}

// instantiate does the (asset x repeatable entity) sweep. Callers must
// hold a transaction; the loaded instance set is authoritative inside it.
func (e *Engine) instantiate(ctx context.Context, s Store, sub Submission, v Version, assets []JobAsset) (InstantiationResult, error) {
	existing := make(map[instanceKey]bool, len(sub.Instances))
	for _, inst := range sub.Instances {
		if inst.AssetID != nil {
			existing[instanceKey{inst.EntityID, *inst.AssetID}] = true
		}
	}

	result := InstantiationResult{Assets: assets}
	at := now()
	for _, entity := range v.Entities {
		if !entity.RepeatPerAsset {
			continue
		}
		for _, asset := range assets {
			if existing[instanceKey{entity.ID, asset.ID}] {
				result.Skipped++
				continue
			}
			assetID := asset.ID
			inst := Instance{
				ID:           InstanceID(newID()),
				SubmissionID: sub.ID,
				EntityID:     entity.ID,
				AssetID:      &assetID,
				Answers:      map[FieldID]any{},
				Status:       StatusInProgress,
				UpdatedAt:    at,
			}
			if loc := asset.Location; loc != "" {
				inst.Location = &loc
			}
			if err := s.InsertInstance(ctx, inst); err != nil {
				if errors.Is(err, ErrDuplicateInstance) {
					result.Skipped++
					continue
				}
				return InstantiationResult{}, err
			}
			result.Created++
		}
	}
	return result, nil
}

type instanceKey struct {
	entityID EntityID
	assetID  string
}
