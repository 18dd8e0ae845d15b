/*
Package forms provides the inspection form template and submission engine.

PURPOSE:
  This package contains the domain types and lifecycle logic for versioned
  inspection/test form templates, per-asset entity instantiation, answer
  validation, meter-calibration-aware readings, and submission finalization.

KEY CONCEPTS IN THIS FILE (types.go):
  - Template/Version/EntityTemplate/Field: the versioned form definition
  - Submission/Instance: one job's answers against a published version
  - Meter/Calibration/Reading: instrument readings with expiry tracking
  - JobAsset: a physical item a repeatable entity is tested against

DESIGN PRINCIPLES:
  1. Immutability: a published version referenced by any submission is
     never edited again; corrections go into a new version
  2. Idempotence: instantiation and submit are safe to repeat
  3. Type Safety: strong typing for IDs prevents mixing aggregate IDs
  4. Precision: numeric answers normalize to decimal.Decimal, never float

USAGE:
  engine := forms.NewEngine(store, jobs, forms.SubmitPolicy{})
  tpl, err := engine.CreateTemplate(ctx, forms.TemplateInput{
      Name:         "Damper Drop Test",
      Organization: "org-1",
  })

SEE ALSO:
  - store.go: Persistence and collaborator interfaces
  - errors.go: Error taxonomy
  - validate.go: Field-schema answer validation
*/
package forms

import (
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TemplateID string
type VersionID string
type EntityID string
type FieldID string
type SubmissionID string
type InstanceID string
type MeterID string
type CalibrationID string
type ReadingID string

// =============================================================================
// STATUS ENUMS
// =============================================================================

// VersionStatus tracks the draft-then-published lifecycle of a version.
type VersionStatus string

const (
	VersionDraft     VersionStatus = "draft"
	VersionPublished VersionStatus = "published"
)

// RecordStatus tracks the in-progress-to-submitted lifecycle shared by
// submissions and their instances.
type RecordStatus string

const (
	StatusInProgress RecordStatus = "in_progress"
	StatusSubmitted  RecordStatus = "submitted"
)

// FieldType is the closed set of supported field types. The validator
// switches exhaustively over these; adding a type is a compile-visible
// change, not a stringly-typed one.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldChoice  FieldType = "choice"
)

// =============================================================================
// TEMPLATE / VERSION / ENTITY / FIELD
// =============================================================================

// Template is a named container for versions of an inspection form.
type Template struct {
	ID           TemplateID
	Name         string
	Description  string
	Organization string
	CreatedAt    time.Time
}

// Version is one revision of a template's entity set. Versions are numbered
// densely per template starting at 1 and become permanently immutable once
// any submission references them.
type Version struct {
	ID             VersionID
	TemplateID     TemplateID
	Number         int
	Title          string
	Notes          string
	Status         VersionStatus
	SystemTypeCode string
	Entities       []EntityTemplate // ordered by SortOrder
	PublishedAt    *time.Time
}

// EntityTemplate is a named group of fields within a version
// (e.g., "Fan Run Verification").
type EntityTemplate struct {
	ID             EntityID
	VersionID      VersionID
	Title          string
	Description    string
	SortOrder      int
	Fields         []Field
	RepeatPerAsset bool
}

// Field is one typed, optionally-required input within an entity.
// Options is only meaningful for FieldChoice.
type Field struct {
	ID       FieldID
	Label    string
	Type     FieldType
	Required bool
	Options  []string
}

// =============================================================================
// SUBMISSION / INSTANCE
// =============================================================================

// Submission is one in-progress-to-submitted record of answers for a job
// against a published version.
type Submission struct {
	ID           SubmissionID
	VersionID    VersionID
	JobID        string
	Organization string
	Status       RecordStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	SubmittedAt  *time.Time
	Instances    []Instance
	Readings     []Reading
}

// Instance is a per-submission occurrence of an entity, optionally scoped
// to one asset. AssetID is nil for non-repeated entities.
type Instance struct {
	ID           InstanceID
	SubmissionID SubmissionID
	EntityID     EntityID
	AssetID      *string
	Location     *string
	Answers      map[FieldID]any
	Status       RecordStatus
	UpdatedAt    time.Time
}

// InstantiationResult reports what per-asset instantiation did.
type InstantiationResult struct {
	Created int
	Skipped int
	Assets  []JobAsset
}

// =============================================================================
// METER / CALIBRATION / READING
// =============================================================================

// Meter is a measuring instrument belonging to an organization.
type Meter struct {
	ID           MeterID
	Organization string
	Name         string
	SerialNumber string
	Model        string
}

// Calibration is one time-bounded certification of a meter.
type Calibration struct {
	ID             CalibrationID
	MeterID        MeterID
	CalibratedAt   time.Time
	ExpiresAt      time.Time
	CertificateURL string
}

// ExpiredAt reports whether the calibration has expired as of now.
// Expiry is always evaluated against current time, never cached.
func (c Calibration) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}

// MeterWithCalibration pairs a meter with its most recent unexpired
// calibration, or nil if none.
type MeterWithCalibration struct {
	Meter
	ActiveCalibration *Calibration
}

// Reading is a recorded measurement tied to an instance, meter, and
// calibration.
type Reading struct {
	ID            ReadingID
	InstanceID    InstanceID
	MeterID       MeterID
	CalibrationID CalibrationID
	Payload       map[string]any
	RecordedBy    string
	CreatedAt     time.Time
}

// =============================================================================
// JOB / ASSET DIRECTORY
// =============================================================================

// JobAsset is a physical item (e.g., a damper) tested by repeatable entities.
type JobAsset struct {
	ID       string
	Label    string
	Location string
}

// =============================================================================
// SYSTEM TYPE CATALOG
// =============================================================================

// SystemType is an organization-scoped registry entry seeded from the
// shared catalog (see the catalog package).
type SystemType struct {
	ID           string
	Organization string
	Code         string
	Name         string
}

// SystemTypeDef is one shared-catalog system type with its ordered
// required-entity definitions.
type SystemTypeDef struct {
	Code     string
	Name     string
	Entities []EntityInput
}

// =============================================================================
// OPERATION INPUTS
// =============================================================================

// TemplateInput creates a template.
type TemplateInput struct {
	Name         string
	Description  string
	Organization string
}

// VersionInput creates a draft version.
type VersionInput struct {
	Title          string
	Notes          string
	SystemTypeCode string
}

// EntityInput adds an entity to a draft version. SortOrder is
// caller-provided and not reassigned.
type EntityInput struct {
	Title          string
	Description    string
	SortOrder      int
	RepeatPerAsset bool
	Fields         []FieldInput
}

// FieldInput defines one field of an entity.
type FieldInput struct {
	Label    string
	Type     FieldType
	Required bool
	Options  []string
}

// MeterInput creates a meter.
type MeterInput struct {
	Organization string
	Name         string
	SerialNumber string
	Model        string
}

// CalibrationInput adds a calibration to a meter.
type CalibrationInput struct {
	CalibratedAt   time.Time
	ExpiresAt      time.Time
	CertificateURL string
}

// ReadingInput records a reading against an instance.
type ReadingInput struct {
	MeterID       MeterID
	CalibrationID CalibrationID
	Reading       map[string]any
}
