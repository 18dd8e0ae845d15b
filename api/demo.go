/*
demo.go - Demo data seeding

PURPOSE:
  Loads a self-contained demo scenario so the API can be explored
  without any prior setup: one organization, a generated and published
  PSS template, a job with assets, a submission with per-asset
  instances, and meters with both valid and expired calibrations.

SCENARIO: "demo-org"
  - Template generated from the PSS system type, version 1 published
  - Job "demo-job" with three damper assets
  - Submission created and instantiated for those assets
  - Meter "Airflow Hood 1" with a calibration valid for a year
  - Meter "Manometer 2" with a calibration that expired last month

  The expired calibration makes the warning path observable: record a
  reading against Manometer 2 and the response carries a warning (or a
  422 if the server runs with -block-expired-calibration).

IDEMPOTENCY:
  Seeding is NOT idempotent - it creates fresh records on every call.
  Intended for empty dev databases.

SEE ALSO:
  - handlers.go: Error envelope and JSON helpers
  - catalog/catalog.go: PSS definition used for generation
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/warp/inspection-engine/forms"
)

// DemoSeeder registers jobs and their assets. Both store adapters
// implement it.
type DemoSeeder interface {
	PutJob(ctx context.Context, jobID, name string, assets []forms.JobAsset) error
}

// SeedDemoResponse summarizes what seeding created.
type SeedDemoResponse struct {
	Organization string `json:"organization"`
	TemplateID   string `json:"template_id"`
	VersionID    string `json:"version_id"`
	JobID        string `json:"job_id"`
	SubmissionID string `json:"submission_id"`
	Meters       []MeterDTO `json:"meters"`
}

// SeedDemo loads the demo scenario.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	if h.Seeder == nil {
		writeError(w, http.StatusNotFound, "Demo seeding is not enabled", nil)
		return
	}
	ctx := r.Context()
	const org = "demo-org"
	const jobID = "demo-job"

	tpl, version, err := h.Engine.GenerateFromSystemType(ctx, "PSS", "Pre-Action Sprinkler Inspection", org)
	if err != nil {
		h.writeEngineError(w, "Failed to generate demo template", err)
		return
	}
	if _, err := h.Engine.PublishVersion(ctx, version.ID); err != nil {
		h.writeEngineError(w, "Failed to publish demo version", err)
		return
	}

	assets := []forms.JobAsset{
		{ID: "asset-ahu-1", Label: "AHU-1 Damper", Location: "Roof"},
		{ID: "asset-ahu-2", Label: "AHU-2 Damper", Location: "Penthouse"},
		{ID: "asset-stair-b", Label: "Stair B Damper", Location: "Level 2"},
	}
	if err := h.Seeder.PutJob(ctx, jobID, "Demo Building Annual", assets); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to register demo job", err)
		return
	}

	sub, err := h.Engine.CreateSubmission(ctx, version.ID, jobID, org)
	if err != nil {
		h.writeEngineError(w, "Failed to create demo submission", err)
		return
	}
	if _, err := h.Engine.InstantiateForAssets(ctx, sub.ID); err != nil {
		h.writeEngineError(w, "Failed to instantiate demo submission", err)
		return
	}

	now := time.Now().UTC()
	meters := make([]MeterDTO, 0, 2)

	hood, err := h.Engine.CreateMeter(ctx, forms.MeterInput{
		Organization: org,
		Name:         "Airflow Hood 1",
		SerialNumber: "AH-2041",
		Model:        "FlowPro 620",
	})
	if err != nil {
		h.writeEngineError(w, "Failed to create demo meter", err)
		return
	}
	hoodCal, err := h.Engine.AddCalibration(ctx, hood.ID, forms.CalibrationInput{
		CalibratedAt: now.AddDate(0, -1, 0),
		ExpiresAt:    now.AddDate(1, 0, 0),
	})
	if err != nil {
		h.writeEngineError(w, "Failed to calibrate demo meter", err)
		return
	}
	meters = append(meters, toMeterDTO(hood, &hoodCal))

	manometer, err := h.Engine.CreateMeter(ctx, forms.MeterInput{
		Organization: org,
		Name:         "Manometer 2",
		SerialNumber: "MN-0117",
		Model:        "DropGauge 8",
	})
	if err != nil {
		h.writeEngineError(w, "Failed to create demo meter", err)
		return
	}
	// Expired on purpose: exercises the calibration warning path.
	expiredCal, err := h.Engine.AddCalibration(ctx, manometer.ID, forms.CalibrationInput{
		CalibratedAt: now.AddDate(-1, -1, 0),
		ExpiresAt:    now.AddDate(0, -1, 0),
	})
	if err != nil {
		h.writeEngineError(w, "Failed to calibrate demo meter", err)
		return
	}
	meters = append(meters, toMeterDTO(manometer, &expiredCal))

	writeJSON(w, http.StatusCreated, SeedDemoResponse{
		Organization: org,
		TemplateID:   string(tpl.ID),
		VersionID:    string(version.ID),
		JobID:        jobID,
		SubmissionID: string(sub.ID),
		Meters:       meters,
	})
}
