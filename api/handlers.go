/*
handlers.go - HTTP API handlers for the inspection form engine

PURPOSE:
  Exposes the form template and submission engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain
  logic.

ENDPOINTS:
  Templates:
    GET    /api/templates                  List templates (org query param)
    POST   /api/templates                  Create template
    GET    /api/templates/{id}             Get template
    GET    /api/templates/{id}/versions    List versions
    POST   /api/templates/{id}/versions    Create draft version
    POST   /api/templates/generate         Generate from system type

  Versions:
    GET    /api/versions/{id}              Get version with entities
    POST   /api/versions/{id}/entities     Add entity to draft
    POST   /api/versions/{id}/publish      Publish version

  System types:
    GET    /api/system-types               List catalog system types
    GET    /api/system-types/{code}/entities  Required entity definitions

  Submissions:
    POST   /api/submissions                Create submission
    GET    /api/submissions/{id}           Get submission
    POST   /api/submissions/{id}/instantiate  Instantiate per-asset entities
    PUT    /api/submissions/{id}/instances/{instanceID}/answers  Save answers
    POST   /api/submissions/{id}/submit    Finalize

  Meters:
    GET    /api/meters                     List active meters (org query param)
    POST   /api/meters                     Create meter
    POST   /api/meters/{id}/calibrations   Add calibration
    POST   /api/instances/{id}/readings    Record reading

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input (with violations array)
  - 404: Record not found
  - 409: State conflicts (published version edits, finalized submissions)
  - 422: Policy blocks (with warnings array)
  - 500: Internal errors

  Soft warnings on successful operations ride alongside the payload in a
  warnings array with a 2xx status.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - demo.go: Demo data seeding
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/inspection-engine/forms"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *forms.Engine
	Seeder DemoSeeder // optional, enables POST /api/demo/seed
	Log    zerolog.Logger
}

// NewHandler creates a new handler around the engine.
func NewHandler(engine *forms.Engine, seeder DemoSeeder, log zerolog.Logger) *Handler {
	return &Handler{Engine: engine, Seeder: seeder, Log: log}
}

// =============================================================================
// TEMPLATE HANDLERS
// =============================================================================

// ListTemplates returns all templates for an organization.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("organization")
	if org == "" {
		writeError(w, http.StatusBadRequest, "organization query parameter is required", nil)
		return
	}

	templates, err := h.Engine.ListTemplates(r.Context(), org)
	if err != nil {
		h.writeEngineError(w, "Failed to list templates", err)
		return
	}

	dtos := make([]TemplateDTO, len(templates))
	for i, t := range templates {
		dtos[i] = toTemplateDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTemplate creates a new template.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.Organization == "" {
		writeError(w, http.StatusBadRequest, "name and organization are required", nil)
		return
	}

	t, err := h.Engine.CreateTemplate(r.Context(), forms.TemplateInput{
		Name:         req.Name,
		Description:  req.Description,
		Organization: req.Organization,
	})
	if err != nil {
		h.writeEngineError(w, "Failed to create template", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateDTO(t))
}

// GetTemplate returns one template.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id := forms.TemplateID(chi.URLParam(r, "id"))

	t, err := h.Engine.GetTemplate(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "Failed to get template", err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(t))
}

// ListVersions returns all versions of a template in numbering order.
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id := forms.TemplateID(chi.URLParam(r, "id"))

	versions, err := h.Engine.ListVersions(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "Failed to list versions", err)
		return
	}

	dtos := make([]VersionDTO, len(versions))
	for i, v := range versions {
		dtos[i] = toVersionDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateVersion creates a new draft version of a template.
func (h *Handler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	id := forms.TemplateID(chi.URLParam(r, "id"))

	var req CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	v, err := h.Engine.CreateVersion(r.Context(), id, forms.VersionInput{
		Title:          req.Title,
		Notes:          req.Notes,
		SystemTypeCode: req.SystemTypeCode,
	})
	if err != nil {
		h.writeEngineError(w, "Failed to create version", err)
		return
	}
	writeJSON(w, http.StatusCreated, toVersionDTO(v))
}

// GetVersion returns one version with its ordered entity set.
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id := forms.VersionID(chi.URLParam(r, "id"))

	v, err := h.Engine.GetVersion(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "Failed to get version", err)
		return
	}
	writeJSON(w, http.StatusOK, toVersionDTO(v))
}

// AddEntity appends an entity to a draft version.
func (h *Handler) AddEntity(w http.ResponseWriter, r *http.Request) {
	id := forms.VersionID(chi.URLParam(r, "id"))

	var req AddEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required", nil)
		return
	}

	in := forms.EntityInput{
		Title:          req.Title,
		Description:    req.Description,
		SortOrder:      req.SortOrder,
		RepeatPerAsset: req.RepeatPerAsset,
		Fields:         make([]forms.FieldInput, len(req.Fields)),
	}
	for i, f := range req.Fields {
		in.Fields[i] = forms.FieldInput{
			Label:    f.Label,
			Type:     forms.FieldType(f.Type),
			Required: f.Required,
			Options:  f.Options,
		}
	}

	e, err := h.Engine.AddEntity(r.Context(), id, in)
	if err != nil {
		h.writeEngineError(w, "Failed to add entity", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntityDTO(e))
}

// PublishVersion publishes a draft version. Idempotent.
func (h *Handler) PublishVersion(w http.ResponseWriter, r *http.Request) {
	id := forms.VersionID(chi.URLParam(r, "id"))

	v, err := h.Engine.PublishVersion(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "Failed to publish version", err)
		return
	}
	writeJSON(w, http.StatusOK, toVersionDTO(v))
}

// =============================================================================
// SYSTEM TYPE HANDLERS
// =============================================================================

// ListSystemTypes returns the catalog system types for an organization,
// seeding them on first use.
func (h *Handler) ListSystemTypes(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("organization")
	if org == "" {
		writeError(w, http.StatusBadRequest, "organization query parameter is required", nil)
		return
	}

	types, err := h.Engine.ListSystemTypes(r.Context(), org)
	if err != nil {
		h.writeEngineError(w, "Failed to list system types", err)
		return
	}

	dtos := make([]SystemTypeDTO, len(types))
	for i, st := range types {
		dtos[i] = SystemTypeDTO{
			ID:           st.ID,
			Organization: st.Organization,
			Code:         st.Code,
			Name:         st.Name,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListSystemTypeEntities returns the required entity definitions for
// one system type code.
func (h *Handler) ListSystemTypeEntities(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	entities, err := h.Engine.ListSystemTypeEntities(r.Context(), code)
	if err != nil {
		h.writeEngineError(w, "Failed to list system type entities", err)
		return
	}

	dtos := make([]EntityDTO, len(entities))
	for i, e := range entities {
		dto := EntityDTO{
			Title:          e.Title,
			Description:    e.Description,
			SortOrder:      e.SortOrder,
			RepeatPerAsset: e.RepeatPerAsset,
			Fields:         make([]FieldDTO, len(e.Fields)),
		}
		for j, f := range e.Fields {
			dto.Fields[j] = FieldDTO{
				Label:    f.Label,
				Type:     string(f.Type),
				Required: f.Required,
				Options:  f.Options,
			}
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GenerateTemplate generates a draft template from a system type.
func (h *Handler) GenerateTemplate(w http.ResponseWriter, r *http.Request) {
	var req GenerateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.SystemTypeCode == "" || req.Organization == "" {
		writeError(w, http.StatusBadRequest, "system_type_code and organization are required", nil)
		return
	}

	t, v, err := h.Engine.GenerateFromSystemType(r.Context(), req.SystemTypeCode, req.TemplateName, req.Organization)
	if err != nil {
		h.writeEngineError(w, "Failed to generate template", err)
		return
	}
	writeJSON(w, http.StatusCreated, GenerateTemplateResponse{
		Template: toTemplateDTO(t),
		Version:  toVersionDTO(v),
	})
}

// =============================================================================
// SUBMISSION HANDLERS
// =============================================================================

// CreateSubmission starts a submission against a published version.
func (h *Handler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.VersionID == "" || req.JobID == "" || req.Organization == "" {
		writeError(w, http.StatusBadRequest, "version_id, job_id and organization are required", nil)
		return
	}

	sub, err := h.Engine.CreateSubmission(r.Context(), forms.VersionID(req.VersionID), req.JobID, req.Organization)
	if err != nil {
		h.writeEngineError(w, "Failed to create submission", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubmissionDTO(sub))
}

// GetSubmission returns a submission with instances and readings.
func (h *Handler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id := forms.SubmissionID(chi.URLParam(r, "id"))

	sub, err := h.Engine.GetSubmission(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "Failed to get submission", err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionDTO(sub))
}

// InstantiateForAssets materializes per-asset instances for every
// repeatable entity. Idempotent.
func (h *Handler) InstantiateForAssets(w http.ResponseWriter, r *http.Request) {
	id := forms.SubmissionID(chi.URLParam(r, "id"))

	result, err := h.Engine.InstantiateForAssets(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, "Failed to instantiate assets", err)
		return
	}

	dto := InstantiationResultDTO{
		Created: result.Created,
		Skipped: result.Skipped,
		Assets:  make([]JobAssetDTO, len(result.Assets)),
	}
	for i, a := range result.Assets {
		dto.Assets[i] = JobAssetDTO{ID: a.ID, Label: a.Label, Location: a.Location}
	}
	writeJSON(w, http.StatusOK, dto)
}

// SaveAnswers validates and saves answers for one instance.
func (h *Handler) SaveAnswers(w http.ResponseWriter, r *http.Request) {
	submissionID := forms.SubmissionID(chi.URLParam(r, "id"))
	instanceID := forms.InstanceID(chi.URLParam(r, "instanceID"))

	var req SaveAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	instance, err := h.Engine.SaveAnswers(r.Context(), submissionID, instanceID, req.Answers, req.UserID)
	if err != nil {
		h.writeEngineError(w, "Failed to save answers", err)
		return
	}
	writeJSON(w, http.StatusOK, toInstanceDTO(instance))
}

// Submit finalizes a submission, enforcing configured policy gates.
// Soft warnings are returned alongside the submission.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id := forms.SubmissionID(chi.URLParam(r, "id"))

	var req SubmitRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	sub, warnings, err := h.Engine.Submit(r.Context(), id, req.UserID)
	if err != nil {
		h.writeEngineError(w, "Failed to submit", err)
		return
	}
	writeJSON(w, http.StatusOK, SubmissionResponse{
		Submission: toSubmissionDTO(sub),
		Warnings:   warnings,
	})
}

// =============================================================================
// METER HANDLERS
// =============================================================================

// ListMeters returns an organization's meters with their active
// calibrations. Expiry is evaluated against current time on every call.
func (h *Handler) ListMeters(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("organization")
	if org == "" {
		writeError(w, http.StatusBadRequest, "organization query parameter is required", nil)
		return
	}

	meters, err := h.Engine.ListActiveMeters(r.Context(), org)
	if err != nil {
		h.writeEngineError(w, "Failed to list meters", err)
		return
	}

	dtos := make([]MeterDTO, len(meters))
	for i, m := range meters {
		dtos[i] = toMeterDTO(m.Meter, m.ActiveCalibration)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMeter creates a meter.
func (h *Handler) CreateMeter(w http.ResponseWriter, r *http.Request) {
	var req CreateMeterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.Organization == "" {
		writeError(w, http.StatusBadRequest, "name and organization are required", nil)
		return
	}

	m, err := h.Engine.CreateMeter(r.Context(), forms.MeterInput{
		Organization: req.Organization,
		Name:         req.Name,
		SerialNumber: req.SerialNumber,
		Model:        req.Model,
	})
	if err != nil {
		h.writeEngineError(w, "Failed to create meter", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMeterDTO(m, nil))
}

// AddCalibration adds a calibration certificate to a meter.
func (h *Handler) AddCalibration(w http.ResponseWriter, r *http.Request) {
	id := forms.MeterID(chi.URLParam(r, "id"))

	var req AddCalibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	calibratedAt, err := time.Parse(time.RFC3339, req.CalibratedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid calibrated_at (use RFC3339)", err)
		return
	}
	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid expires_at (use RFC3339)", err)
		return
	}

	c, err := h.Engine.AddCalibration(r.Context(), id, forms.CalibrationInput{
		CalibratedAt:   calibratedAt,
		ExpiresAt:      expiresAt,
		CertificateURL: req.CertificateURL,
	})
	if err != nil {
		h.writeEngineError(w, "Failed to add calibration", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCalibrationDTO(c))
}

// RecordReading records a measurement against an instance. Readings
// taken with an expired calibration warn or block per configured
// policy.
func (h *Handler) RecordReading(w http.ResponseWriter, r *http.Request) {
	id := forms.InstanceID(chi.URLParam(r, "id"))

	var req RecordReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.MeterID == "" || req.CalibrationID == "" {
		writeError(w, http.StatusBadRequest, "meter_id and calibration_id are required", nil)
		return
	}

	reading, warnings, err := h.Engine.RecordReading(r.Context(), id, forms.ReadingInput{
		MeterID:       forms.MeterID(req.MeterID),
		CalibrationID: forms.CalibrationID(req.CalibrationID),
		Reading:       req.Reading,
	}, req.UserID)
	if err != nil {
		h.writeEngineError(w, "Failed to record reading", err)
		return
	}
	writeJSON(w, http.StatusCreated, ReadingResponse{
		Reading:  toReadingDTO(reading),
		Warnings: warnings,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// writeEngineError maps engine errors onto HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case forms.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case forms.IsValidation(err):
		var verr *forms.ValidationError
		errors.As(err, &verr)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:      message,
			Details:    err.Error(),
			Violations: verr.Violations,
		})
	case forms.IsStateError(err):
		writeError(w, http.StatusConflict, message, err)
	case forms.IsPolicyBlock(err):
		var perr *forms.PolicyBlockError
		errors.As(err, &perr)
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:    message,
			Details:  err.Error(),
			Warnings: perr.Warnings,
		})
	default:
		h.Log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
