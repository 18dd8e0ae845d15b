/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - forms/types.go: Domain records these map from
*/
package api

import (
	"time"

	"github.com/warp/inspection-engine/forms"
)

// =============================================================================
// TEMPLATE / VERSION / ENTITY
// =============================================================================

// TemplateDTO represents a form template in API responses.
type TemplateDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Organization string `json:"organization"`
	CreatedAt    string `json:"created_at"`
}

// CreateTemplateRequest creates a template.
type CreateTemplateRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Organization string `json:"organization"`
}

// VersionDTO represents a form version with its entity set.
type VersionDTO struct {
	ID             string      `json:"id"`
	TemplateID     string      `json:"template_id"`
	Number         int         `json:"number"`
	Title          string      `json:"title,omitempty"`
	Notes          string      `json:"notes,omitempty"`
	Status         string      `json:"status"`
	SystemTypeCode string      `json:"system_type_code,omitempty"`
	Entities       []EntityDTO `json:"entities"`
	PublishedAt    *string     `json:"published_at,omitempty"`
}

// CreateVersionRequest creates a draft version.
type CreateVersionRequest struct {
	Title          string `json:"title"`
	Notes          string `json:"notes"`
	SystemTypeCode string `json:"system_type_code"`
}

// EntityDTO represents an entity template.
type EntityDTO struct {
	ID             string     `json:"id"`
	VersionID      string     `json:"version_id,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	SortOrder      int        `json:"sort_order"`
	RepeatPerAsset bool       `json:"repeat_per_asset"`
	Fields         []FieldDTO `json:"fields"`
}

// FieldDTO represents one field of an entity.
type FieldDTO struct {
	ID       string   `json:"id,omitempty"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// AddEntityRequest adds an entity to a draft version.
type AddEntityRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	SortOrder      int        `json:"sort_order"`
	RepeatPerAsset bool       `json:"repeat_per_asset"`
	Fields         []FieldDTO `json:"fields"`
}

// =============================================================================
// SYSTEM TYPES
// =============================================================================

// SystemTypeDTO represents a catalog system type.
type SystemTypeDTO struct {
	ID           string `json:"id"`
	Organization string `json:"organization"`
	Code         string `json:"code"`
	Name         string `json:"name"`
}

// GenerateTemplateRequest generates a template from a system type.
type GenerateTemplateRequest struct {
	SystemTypeCode string `json:"system_type_code"`
	TemplateName   string `json:"template_name"`
	Organization   string `json:"organization"`
}

// GenerateTemplateResponse returns the generated template and its
// initial draft version.
type GenerateTemplateResponse struct {
	Template TemplateDTO `json:"template"`
	Version  VersionDTO  `json:"version"`
}

// =============================================================================
// SUBMISSION / INSTANCE
// =============================================================================

// SubmissionDTO represents a submission with its instances and readings.
type SubmissionDTO struct {
	ID           string        `json:"id"`
	VersionID    string        `json:"version_id"`
	JobID        string        `json:"job_id"`
	Organization string        `json:"organization"`
	Status       string        `json:"status"`
	CreatedAt    string        `json:"created_at"`
	UpdatedAt    string        `json:"updated_at"`
	SubmittedAt  *string       `json:"submitted_at,omitempty"`
	Instances    []InstanceDTO `json:"instances"`
	Readings     []ReadingDTO  `json:"readings"`
}

// CreateSubmissionRequest starts a submission for a job.
type CreateSubmissionRequest struct {
	VersionID    string `json:"version_id"`
	JobID        string `json:"job_id"`
	Organization string `json:"organization"`
}

// InstanceDTO represents one entity instance within a submission.
type InstanceDTO struct {
	ID           string         `json:"id"`
	SubmissionID string         `json:"submission_id"`
	EntityID     string         `json:"entity_id"`
	AssetID      *string        `json:"asset_id,omitempty"`
	Location     *string        `json:"location,omitempty"`
	Answers      map[string]any `json:"answers"`
	Status       string         `json:"status"`
	UpdatedAt    string         `json:"updated_at"`
}

// InstantiationResultDTO reports what per-asset instantiation did.
type InstantiationResultDTO struct {
	Created int           `json:"created"`
	Skipped int           `json:"skipped"`
	Assets  []JobAssetDTO `json:"assets"`
}

// JobAssetDTO represents one asset on a job.
type JobAssetDTO struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Location string `json:"location,omitempty"`
}

// SaveAnswersRequest saves answers for an instance.
type SaveAnswersRequest struct {
	Answers map[string]any `json:"answers"`
	UserID  string         `json:"user_id"`
}

// SubmitRequest finalizes a submission.
type SubmitRequest struct {
	UserID string `json:"user_id"`
}

// SubmissionResponse wraps a submission with any soft warnings.
type SubmissionResponse struct {
	Submission SubmissionDTO `json:"submission"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// =============================================================================
// METER / CALIBRATION / READING
// =============================================================================

// MeterDTO represents a meter, optionally with its active calibration.
type MeterDTO struct {
	ID                string          `json:"id"`
	Organization      string          `json:"organization"`
	Name              string          `json:"name"`
	SerialNumber      string          `json:"serial_number,omitempty"`
	Model             string          `json:"model,omitempty"`
	ActiveCalibration *CalibrationDTO `json:"active_calibration,omitempty"`
}

// CreateMeterRequest creates a meter.
type CreateMeterRequest struct {
	Organization string `json:"organization"`
	Name         string `json:"name"`
	SerialNumber string `json:"serial_number"`
	Model        string `json:"model"`
}

// CalibrationDTO represents one calibration certificate.
type CalibrationDTO struct {
	ID             string `json:"id"`
	MeterID        string `json:"meter_id"`
	CalibratedAt   string `json:"calibrated_at"`
	ExpiresAt      string `json:"expires_at"`
	CertificateURL string `json:"certificate_url,omitempty"`
}

// AddCalibrationRequest adds a calibration to a meter.
type AddCalibrationRequest struct {
	CalibratedAt   string `json:"calibrated_at"`
	ExpiresAt      string `json:"expires_at"`
	CertificateURL string `json:"certificate_url"`
}

// ReadingDTO represents a recorded measurement.
type ReadingDTO struct {
	ID            string         `json:"id"`
	InstanceID    string         `json:"instance_id"`
	MeterID       string         `json:"meter_id"`
	CalibrationID string         `json:"calibration_id"`
	Payload       map[string]any `json:"payload"`
	RecordedBy    string         `json:"recorded_by,omitempty"`
	CreatedAt     string         `json:"created_at"`
}

// RecordReadingRequest records a reading against an instance.
type RecordReadingRequest struct {
	MeterID       string         `json:"meter_id"`
	CalibrationID string         `json:"calibration_id"`
	Reading       map[string]any `json:"reading"`
	UserID        string         `json:"user_id"`
}

// ReadingResponse wraps a reading with any soft warnings.
type ReadingResponse struct {
	Reading  ReadingDTO `json:"reading"`
	Warnings []string   `json:"warnings,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error      string   `json:"error"`
	Details    string   `json:"details,omitempty"`
	Violations []string `json:"violations,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toTemplateDTO(t forms.Template) TemplateDTO {
	return TemplateDTO{
		ID:           string(t.ID),
		Name:         t.Name,
		Description:  t.Description,
		Organization: t.Organization,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}
}

func toVersionDTO(v forms.Version) VersionDTO {
	dto := VersionDTO{
		ID:             string(v.ID),
		TemplateID:     string(v.TemplateID),
		Number:         v.Number,
		Title:          v.Title,
		Notes:          v.Notes,
		Status:         string(v.Status),
		SystemTypeCode: v.SystemTypeCode,
		Entities:       make([]EntityDTO, len(v.Entities)),
		PublishedAt:    formatTimePtr(v.PublishedAt),
	}
	for i, e := range v.Entities {
		dto.Entities[i] = toEntityDTO(e)
	}
	return dto
}

func toEntityDTO(e forms.EntityTemplate) EntityDTO {
	dto := EntityDTO{
		ID:             string(e.ID),
		VersionID:      string(e.VersionID),
		Title:          e.Title,
		Description:    e.Description,
		SortOrder:      e.SortOrder,
		RepeatPerAsset: e.RepeatPerAsset,
		Fields:         make([]FieldDTO, len(e.Fields)),
	}
	for i, f := range e.Fields {
		dto.Fields[i] = FieldDTO{
			ID:       string(f.ID),
			Label:    f.Label,
			Type:     string(f.Type),
			Required: f.Required,
			Options:  f.Options,
		}
	}
	return dto
}

func toSubmissionDTO(sub forms.Submission) SubmissionDTO {
	dto := SubmissionDTO{
		ID:           string(sub.ID),
		VersionID:    string(sub.VersionID),
		JobID:        sub.JobID,
		Organization: sub.Organization,
		Status:       string(sub.Status),
		CreatedAt:    sub.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    sub.UpdatedAt.Format(time.RFC3339),
		SubmittedAt:  formatTimePtr(sub.SubmittedAt),
		Instances:    make([]InstanceDTO, len(sub.Instances)),
		Readings:     make([]ReadingDTO, len(sub.Readings)),
	}
	for i, in := range sub.Instances {
		dto.Instances[i] = toInstanceDTO(in)
	}
	for i, r := range sub.Readings {
		dto.Readings[i] = toReadingDTO(r)
	}
	return dto
}

func toInstanceDTO(in forms.Instance) InstanceDTO {
	answers := make(map[string]any, len(in.Answers))
	for k, v := range in.Answers {
		answers[string(k)] = v
	}
	return InstanceDTO{
		ID:           string(in.ID),
		SubmissionID: string(in.SubmissionID),
		EntityID:     string(in.EntityID),
		AssetID:      in.AssetID,
		Location:     in.Location,
		Answers:      answers,
		Status:       string(in.Status),
		UpdatedAt:    in.UpdatedAt.Format(time.RFC3339),
	}
}

func toMeterDTO(m forms.Meter, active *forms.Calibration) MeterDTO {
	dto := MeterDTO{
		ID:           string(m.ID),
		Organization: m.Organization,
		Name:         m.Name,
		SerialNumber: m.SerialNumber,
		Model:        m.Model,
	}
	if active != nil {
		c := toCalibrationDTO(*active)
		dto.ActiveCalibration = &c
	}
	return dto
}

func toCalibrationDTO(c forms.Calibration) CalibrationDTO {
	return CalibrationDTO{
		ID:             string(c.ID),
		MeterID:        string(c.MeterID),
		CalibratedAt:   c.CalibratedAt.Format(time.RFC3339),
		ExpiresAt:      c.ExpiresAt.Format(time.RFC3339),
		CertificateURL: c.CertificateURL,
	}
}

func toReadingDTO(r forms.Reading) ReadingDTO {
	return ReadingDTO{
		ID:            string(r.ID),
		InstanceID:    string(r.InstanceID),
		MeterID:       string(r.MeterID),
		CalibrationID: string(r.CalibrationID),
		Payload:       r.Payload,
		RecordedBy:    r.RecordedBy,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
