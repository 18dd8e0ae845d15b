/*
store.go - Persistence and collaborator interfaces for the forms engine

PURPOSE:
  Defines the contract between the engine and the database, plus the
  narrow interface to the external job/asset directory. Different
  implementations can use SQLite, PostgreSQL, or in-memory storage; the
  engine never branches on which one it got.

KEY INTERFACES:
  TemplateStore:   Templates, versions, entities
  SubmissionStore: Submissions, instances, readings
  MeterStore:      Meters and calibrations
  CatalogStore:    Organization-scoped system type registry
  Store:           All of the above
  TxStore:         Store plus transactional execution
  JobDirectory:    External collaborator listing a job's assets

ATOMICITY CONTRACT:
  Every invariant-guarded mutation (version numbering, the in-use check,
  per-asset instantiation, the submit transition) runs inside a single
  WithTx call. Implementations must make WithTx atomic: either every
  write inside fn lands or none do, and no other writer interleaves.

UNIQUENESS BACKSTOP:
  InsertInstance must reject a second instance for the same
  (submission, entity, asset) triple with ErrDuplicateInstance, via a
  unique constraint or equivalent - never an unguarded read-then-write.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - forms/store/memory.go:  In-memory for testing

SEE ALSO:
  - engine.go: Engine construction over these interfaces
*/
package forms

import (
	"context"
	"time"
)

// =============================================================================
// TEMPLATE STORE
// =============================================================================

// TemplateStore persists templates, versions, and entity definitions.
type TemplateStore interface {
	InsertTemplate(ctx context.Context, t Template) error
	GetTemplate(ctx context.Context, id TemplateID) (Template, error)
	ListTemplates(ctx context.Context, organization string) ([]Template, error)

	InsertVersion(ctx context.Context, v Version) error

	// GetVersion returns the version with its entities ordered by SortOrder.
	GetVersion(ctx context.Context, id VersionID) (Version, error)
	ListVersions(ctx context.Context, templateID TemplateID) ([]Version, error)

	// MaxVersionNumber returns the highest version number for a template,
	// or 0 if the template has no versions.
	MaxVersionNumber(ctx context.Context, templateID TemplateID) (int, error)

	SetVersionStatus(ctx context.Context, id VersionID, status VersionStatus, publishedAt *time.Time) error

	InsertEntity(ctx context.Context, e EntityTemplate) error
	GetEntity(ctx context.Context, id EntityID) (EntityTemplate, error)
}

// =============================================================================
// SUBMISSION STORE
// =============================================================================

// SubmissionStore persists submissions, instances, and readings.
type SubmissionStore interface {
	InsertSubmission(ctx context.Context, s Submission) error

	// GetSubmission returns the submission aggregate: instances and
	// readings included.
	GetSubmission(ctx context.Context, id SubmissionID) (Submission, error)

	// CountSubmissionsForVersion backs the "version in use" guard. It must
	// be called inside the same transaction as the edit it guards.
	CountSubmissionsForVersion(ctx context.Context, id VersionID) (int, error)

	// TouchSubmission updates a submission's status and timestamps.
	TouchSubmission(ctx context.Context, id SubmissionID, status RecordStatus, updatedAt time.Time, submittedAt *time.Time) error

	// InsertInstance rejects a duplicate (submission, entity, asset) triple
	// with ErrDuplicateInstance.
	InsertInstance(ctx context.Context, in Instance) error
	GetInstance(ctx context.Context, id InstanceID) (Instance, error)
	UpdateInstanceAnswers(ctx context.Context, id InstanceID, answers map[FieldID]any, updatedAt time.Time) error

	// SetInstancesStatus updates the status of every instance of a submission.
	SetInstancesStatus(ctx context.Context, submissionID SubmissionID, status RecordStatus) error

	InsertReading(ctx context.Context, r Reading) error
}

// =============================================================================
// METER STORE
// =============================================================================

// MeterStore persists meters and their calibration certificates.
type MeterStore interface {
	InsertMeter(ctx context.Context, m Meter) error
	GetMeter(ctx context.Context, id MeterID) (Meter, error)
	ListMeters(ctx context.Context, organization string) ([]Meter, error)

	InsertCalibration(ctx context.Context, c Calibration) error
	GetCalibration(ctx context.Context, id CalibrationID) (Calibration, error)
	ListCalibrations(ctx context.Context, meterID MeterID) ([]Calibration, error)
}

// =============================================================================
// CATALOG STORE
// =============================================================================

// CatalogStore holds the organization-scoped system type registry.
type CatalogStore interface {
	// UpsertSystemType inserts or refreshes a system type keyed by
	// (organization, code). Idempotent: concurrent first-use seeding must
	// not produce duplicates.
	UpsertSystemType(ctx context.Context, st SystemType) error
	GetSystemType(ctx context.Context, organization, code string) (SystemType, error)
	ListSystemTypes(ctx context.Context, organization string) ([]SystemType, error)
}

// =============================================================================
// COMBINED / TRANSACTIONAL STORE
// =============================================================================

// Store is the full persistence contract of the engine.
type Store interface {
	TemplateStore
	SubmissionStore
	MeterStore
	CatalogStore
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn atomically. If fn returns an error, every write it
	// performed is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// JOB / ASSET DIRECTORY - External collaborator
// =============================================================================

// JobDirectory lists the assets of a job. Ordering is irrelevant and no
// pagination is assumed.
type JobDirectory interface {
	ListJobAssets(ctx context.Context, jobID string) ([]JobAsset, error)
}
