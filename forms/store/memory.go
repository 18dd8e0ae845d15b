// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/inspection-engine/forms"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements forms.TxStore and forms.JobDirectory with maps.
// WithTx is simulated with a snapshot + rollback on error, so engine
// invariant checks behave the same as against the SQLite store.
type Memory struct {
	mu sync.RWMutex

	templates     map[forms.TemplateID]forms.Template
	versions      map[forms.VersionID]forms.Version
	entities      map[forms.EntityID]forms.EntityTemplate
	entityOrder   map[forms.VersionID][]forms.EntityID
	submissions   map[forms.SubmissionID]forms.Submission
	instances     map[forms.InstanceID]forms.Instance
	instanceOrder map[forms.SubmissionID][]forms.InstanceID
	meters        map[forms.MeterID]forms.Meter
	calibrations  map[forms.CalibrationID]forms.Calibration
	calOrder      map[forms.MeterID][]forms.CalibrationID
	readings      map[forms.SubmissionID][]forms.Reading
	systemTypes   map[systemTypeKey]forms.SystemType
	jobs          map[string][]forms.JobAsset
}

type systemTypeKey struct {
	Organization string
	Code         string
}

type pairKey struct {
	EntityID forms.EntityID
	AssetID  string // "" for asset-less instances
}

func NewMemory() *Memory {
	return &Memory{
		templates:     make(map[forms.TemplateID]forms.Template),
		versions:      make(map[forms.VersionID]forms.Version),
		entities:      make(map[forms.EntityID]forms.EntityTemplate),
		entityOrder:   make(map[forms.VersionID][]forms.EntityID),
		submissions:   make(map[forms.SubmissionID]forms.Submission),
		instances:     make(map[forms.InstanceID]forms.Instance),
		instanceOrder: make(map[forms.SubmissionID][]forms.InstanceID),
		meters:        make(map[forms.MeterID]forms.Meter),
		calibrations:  make(map[forms.CalibrationID]forms.Calibration),
		calOrder:      make(map[forms.MeterID][]forms.CalibrationID),
		readings:      make(map[forms.SubmissionID][]forms.Reading),
		systemTypes:   make(map[systemTypeKey]forms.SystemType),
		jobs:          make(map[string][]forms.JobAsset),
	}
}

// =============================================================================
// JOB DIRECTORY
// =============================================================================

// PutJob sets a job's asset list. Test/demo arrangement helper.
func (m *Memory) PutJob(_ context.Context, jobID, _ string, assets []forms.JobAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[jobID] = append([]forms.JobAsset{}, assets...)
	return nil
}

func (m *Memory) ListJobAssets(_ context.Context, jobID string) ([]forms.JobAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	assets, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", forms.ErrJobNotFound, jobID)
	}
	return append([]forms.JobAsset{}, assets...), nil
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

func (m *Memory) InsertTemplate(_ context.Context, t forms.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertTemplateLocked(t)
}

func (m *Memory) insertTemplateLocked(t forms.Template) error {
	m.templates[t.ID] = t
	return nil
}

func (m *Memory) GetTemplate(_ context.Context, id forms.TemplateID) (forms.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getTemplateLocked(id)
}

func (m *Memory) getTemplateLocked(id forms.TemplateID) (forms.Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return forms.Template{}, fmt.Errorf("%w: %s", forms.ErrTemplateNotFound, id)
	}
	return t, nil
}

func (m *Memory) ListTemplates(_ context.Context, organization string) ([]forms.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listTemplatesLocked(organization)
}

func (m *Memory) listTemplatesLocked(organization string) ([]forms.Template, error) {
	var out []forms.Template
	for _, t := range m.templates {
		if t.Organization == organization {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) InsertVersion(_ context.Context, v forms.Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertVersionLocked(v)
}

func (m *Memory) insertVersionLocked(v forms.Version) error {
	v.Entities = nil // entities live in their own map
	m.versions[v.ID] = v
	return nil
}

func (m *Memory) GetVersion(_ context.Context, id forms.VersionID) (forms.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getVersionLocked(id)
}

func (m *Memory) getVersionLocked(id forms.VersionID) (forms.Version, error) {
	v, ok := m.versions[id]
	if !ok {
		return forms.Version{}, fmt.Errorf("%w: %s", forms.ErrVersionNotFound, id)
	}
	for _, entityID := range m.entityOrder[id] {
		v.Entities = append(v.Entities, m.entities[entityID])
	}
	sort.SliceStable(v.Entities, func(i, j int) bool {
		return v.Entities[i].SortOrder < v.Entities[j].SortOrder
	})
	return v, nil
}

func (m *Memory) ListVersions(_ context.Context, templateID forms.TemplateID) ([]forms.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listVersionsLocked(templateID)
}

func (m *Memory) listVersionsLocked(templateID forms.TemplateID) ([]forms.Version, error) {
	var out []forms.Version
	for id, v := range m.versions {
		if v.TemplateID == templateID {
			full, _ := m.getVersionLocked(id)
			out = append(out, full)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *Memory) MaxVersionNumber(_ context.Context, templateID forms.TemplateID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxVersionNumberLocked(templateID)
}

func (m *Memory) maxVersionNumberLocked(templateID forms.TemplateID) (int, error) {
	max := 0
	for _, v := range m.versions {
		if v.TemplateID == templateID && v.Number > max {
			max = v.Number
		}
	}
	return max, nil
}

func (m *Memory) SetVersionStatus(_ context.Context, id forms.VersionID, status forms.VersionStatus, publishedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setVersionStatusLocked(id, status, publishedAt)
}

func (m *Memory) setVersionStatusLocked(id forms.VersionID, status forms.VersionStatus, publishedAt *time.Time) error {
	v, ok := m.versions[id]
	if !ok {
		return fmt.Errorf("%w: %s", forms.ErrVersionNotFound, id)
	}
	v.Status = status
	v.PublishedAt = publishedAt
	m.versions[id] = v
	return nil
}

func (m *Memory) InsertEntity(_ context.Context, e forms.EntityTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertEntityLocked(e)
}

func (m *Memory) insertEntityLocked(e forms.EntityTemplate) error {
	m.entities[e.ID] = e
	m.entityOrder[e.VersionID] = append(m.entityOrder[e.VersionID], e.ID)
	return nil
}

func (m *Memory) GetEntity(_ context.Context, id forms.EntityID) (forms.EntityTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEntityLocked(id)
}

func (m *Memory) getEntityLocked(id forms.EntityID) (forms.EntityTemplate, error) {
	e, ok := m.entities[id]
	if !ok {
		return forms.EntityTemplate{}, fmt.Errorf("%w: %s", forms.ErrEntityNotFound, id)
	}
	return e, nil
}

// =============================================================================
// SUBMISSION STORE
// =============================================================================

func (m *Memory) InsertSubmission(_ context.Context, s forms.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertSubmissionLocked(s)
}

func (m *Memory) insertSubmissionLocked(s forms.Submission) error {
	s.Instances = nil
	s.Readings = nil
	m.submissions[s.ID] = s
	return nil
}

func (m *Memory) GetSubmission(_ context.Context, id forms.SubmissionID) (forms.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSubmissionLocked(id)
}

func (m *Memory) getSubmissionLocked(id forms.SubmissionID) (forms.Submission, error) {
	s, ok := m.submissions[id]
	if !ok {
		return forms.Submission{}, fmt.Errorf("%w: %s", forms.ErrSubmissionNotFound, id)
	}
	for _, instID := range m.instanceOrder[id] {
		s.Instances = append(s.Instances, m.instances[instID])
	}
	s.Readings = append(s.Readings, m.readings[id]...)
	return s, nil
}

func (m *Memory) CountSubmissionsForVersion(_ context.Context, id forms.VersionID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countSubmissionsForVersionLocked(id)
}

func (m *Memory) countSubmissionsForVersionLocked(id forms.VersionID) (int, error) {
	n := 0
	for _, s := range m.submissions {
		if s.VersionID == id {
			n++
		}
	}
	return n, nil
}

func (m *Memory) TouchSubmission(_ context.Context, id forms.SubmissionID, status forms.RecordStatus, updatedAt time.Time, submittedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.touchSubmissionLocked(id, status, updatedAt, submittedAt)
}

func (m *Memory) touchSubmissionLocked(id forms.SubmissionID, status forms.RecordStatus, updatedAt time.Time, submittedAt *time.Time) error {
	s, ok := m.submissions[id]
	if !ok {
		return fmt.Errorf("%w: %s", forms.ErrSubmissionNotFound, id)
	}
	s.Status = status
	s.UpdatedAt = updatedAt
	if submittedAt != nil {
		s.SubmittedAt = submittedAt
	}
	m.submissions[id] = s
	return nil
}

func (m *Memory) InsertInstance(_ context.Context, in forms.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertInstanceLocked(in)
}

func (m *Memory) insertInstanceLocked(in forms.Instance) error {
	key := instancePairKey(in)
	for _, existingID := range m.instanceOrder[in.SubmissionID] {
		if instancePairKey(m.instances[existingID]) == key {
			return forms.ErrDuplicateInstance
		}
	}
	m.instances[in.ID] = in
	m.instanceOrder[in.SubmissionID] = append(m.instanceOrder[in.SubmissionID], in.ID)
	return nil
}

func instancePairKey(in forms.Instance) pairKey {
	k := pairKey{EntityID: in.EntityID}
	if in.AssetID != nil {
		k.AssetID = *in.AssetID
	}
	return k
}

func (m *Memory) GetInstance(_ context.Context, id forms.InstanceID) (forms.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getInstanceLocked(id)
}

func (m *Memory) getInstanceLocked(id forms.InstanceID) (forms.Instance, error) {
	in, ok := m.instances[id]
	if !ok {
		return forms.Instance{}, fmt.Errorf("%w: %s", forms.ErrInstanceNotFound, id)
	}
	return in, nil
}

func (m *Memory) UpdateInstanceAnswers(_ context.Context, id forms.InstanceID, answers map[forms.FieldID]any, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateInstanceAnswersLocked(id, answers, updatedAt)
}

func (m *Memory) updateInstanceAnswersLocked(id forms.InstanceID, answers map[forms.FieldID]any, updatedAt time.Time) error {
	in, ok := m.instances[id]
	if !ok {
		return fmt.Errorf("%w: %s", forms.ErrInstanceNotFound, id)
	}
	copied := make(map[forms.FieldID]any, len(answers))
	for k, v := range answers {
		copied[k] = v
	}
	in.Answers = copied
	in.UpdatedAt = updatedAt
	m.instances[id] = in
	return nil
}

func (m *Memory) SetInstancesStatus(_ context.Context, submissionID forms.SubmissionID, status forms.RecordStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setInstancesStatusLocked(submissionID, status)
}

func (m *Memory) setInstancesStatusLocked(submissionID forms.SubmissionID, status forms.RecordStatus) error {
	for _, id := range m.instanceOrder[submissionID] {
		in := m.instances[id]
		in.Status = status
		m.instances[id] = in
	}
	return nil
}

func (m *Memory) InsertReading(_ context.Context, r forms.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertReadingLocked(r)
}

func (m *Memory) insertReadingLocked(r forms.Reading) error {
	in, ok := m.instances[r.InstanceID]
	if !ok {
		return fmt.Errorf("%w: %s", forms.ErrInstanceNotFound, r.InstanceID)
	}
	m.readings[in.SubmissionID] = append(m.readings[in.SubmissionID], r)
	return nil
}

// =============================================================================
// METER STORE
// =============================================================================

func (m *Memory) InsertMeter(_ context.Context, meter forms.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertMeterLocked(meter)
}

func (m *Memory) insertMeterLocked(meter forms.Meter) error {
	m.meters[meter.ID] = meter
	return nil
}

func (m *Memory) GetMeter(_ context.Context, id forms.MeterID) (forms.Meter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getMeterLocked(id)
}

func (m *Memory) getMeterLocked(id forms.MeterID) (forms.Meter, error) {
	meter, ok := m.meters[id]
	if !ok {
		return forms.Meter{}, fmt.Errorf("%w: %s", forms.ErrMeterNotFound, id)
	}
	return meter, nil
}

func (m *Memory) ListMeters(_ context.Context, organization string) ([]forms.Meter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listMetersLocked(organization)
}

func (m *Memory) listMetersLocked(organization string) ([]forms.Meter, error) {
	var out []forms.Meter
	for _, meter := range m.meters {
		if meter.Organization == organization {
			out = append(out, meter)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) InsertCalibration(_ context.Context, c forms.Calibration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertCalibrationLocked(c)
}

func (m *Memory) insertCalibrationLocked(c forms.Calibration) error {
	m.calibrations[c.ID] = c
	m.calOrder[c.MeterID] = append(m.calOrder[c.MeterID], c.ID)
	return nil
}

func (m *Memory) GetCalibration(_ context.Context, id forms.CalibrationID) (forms.Calibration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getCalibrationLocked(id)
}

func (m *Memory) getCalibrationLocked(id forms.CalibrationID) (forms.Calibration, error) {
	c, ok := m.calibrations[id]
	if !ok {
		return forms.Calibration{}, fmt.Errorf("%w: %s", forms.ErrCalibrationNotFound, id)
	}
	return c, nil
}

func (m *Memory) ListCalibrations(_ context.Context, meterID forms.MeterID) ([]forms.Calibration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCalibrationsLocked(meterID)
}

func (m *Memory) listCalibrationsLocked(meterID forms.MeterID) ([]forms.Calibration, error) {
	ids := m.calOrder[meterID]
	out := make([]forms.Calibration, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.calibrations[id])
	}
	return out, nil
}

// =============================================================================
// CATALOG STORE
// =============================================================================

func (m *Memory) UpsertSystemType(_ context.Context, st forms.SystemType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertSystemTypeLocked(st)
}

func (m *Memory) upsertSystemTypeLocked(st forms.SystemType) error {
	key := systemTypeKey{Organization: st.Organization, Code: st.Code}
	if existing, ok := m.systemTypes[key]; ok {
		existing.Name = st.Name
		m.systemTypes[key] = existing
		return nil
	}
	m.systemTypes[key] = st
	return nil
}

func (m *Memory) GetSystemType(_ context.Context, organization, code string) (forms.SystemType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSystemTypeLocked(organization, code)
}

func (m *Memory) getSystemTypeLocked(organization, code string) (forms.SystemType, error) {
	st, ok := m.systemTypes[systemTypeKey{Organization: organization, Code: code}]
	if !ok {
		return forms.SystemType{}, fmt.Errorf("%w: %s", forms.ErrSystemTypeNotFound, code)
	}
	return st, nil
}

func (m *Memory) ListSystemTypes(_ context.Context, organization string) ([]forms.SystemType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listSystemTypesLocked(organization)
}

func (m *Memory) listSystemTypesLocked(organization string) ([]forms.SystemType, error) {
	var out []forms.SystemType
	for key, st := range m.systemTypes {
		if key.Organization == organization {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes fn within a transaction. For the memory store this is
// simulated with a snapshot + rollback on error; the mutex is held for
// the whole call, so fn runs with exclusive access.
func (m *Memory) WithTx(_ context.Context, fn func(forms.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	templates     map[forms.TemplateID]forms.Template
	versions      map[forms.VersionID]forms.Version
	entities      map[forms.EntityID]forms.EntityTemplate
	entityOrder   map[forms.VersionID][]forms.EntityID
	submissions   map[forms.SubmissionID]forms.Submission
	instances     map[forms.InstanceID]forms.Instance
	instanceOrder map[forms.SubmissionID][]forms.InstanceID
	meters        map[forms.MeterID]forms.Meter
	calibrations  map[forms.CalibrationID]forms.Calibration
	calOrder      map[forms.MeterID][]forms.CalibrationID
	readings      map[forms.SubmissionID][]forms.Reading
	systemTypes   map[systemTypeKey]forms.SystemType
}

func (m *Memory) snapshot() memorySnapshot {
	return memorySnapshot{
		templates:     copyMap(m.templates),
		versions:      copyMap(m.versions),
		entities:      copyMap(m.entities),
		entityOrder:   copySliceMap(m.entityOrder),
		submissions:   copyMap(m.submissions),
		instances:     copyMap(m.instances),
		instanceOrder: copySliceMap(m.instanceOrder),
		meters:        copyMap(m.meters),
		calibrations:  copyMap(m.calibrations),
		calOrder:      copySliceMap(m.calOrder),
		readings:      copySliceMap(m.readings),
		systemTypes:   copyMap(m.systemTypes),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.templates = s.templates
	m.versions = s.versions
	m.entities = s.entities
	m.entityOrder = s.entityOrder
	m.submissions = s.submissions
	m.instances = s.instances
	m.instanceOrder = s.instanceOrder
	m.meters = s.meters
	m.calibrations = s.calibrations
	m.calOrder = s.calOrder
	m.readings = s.readings
	m.systemTypes = s.systemTypes
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copySliceMap[K comparable, V any](src map[K][]V) map[K][]V {
	dst := make(map[K][]V, len(src))
	for k, v := range src {
		dst[k] = append([]V{}, v...)
	}
	return dst
}

// txView funnels calls through the unlocked internals; the parent holds
// the mutex for the duration of WithTx.
type txView struct {
	m *Memory
}

func (tv *txView) InsertTemplate(_ context.Context, t forms.Template) error {
	return tv.m.insertTemplateLocked(t)
}
func (tv *txView) GetTemplate(_ context.Context, id forms.TemplateID) (forms.Template, error) {
	return tv.m.getTemplateLocked(id)
}
func (tv *txView) ListTemplates(_ context.Context, organization string) ([]forms.Template, error) {
	return tv.m.listTemplatesLocked(organization)
}
func (tv *txView) InsertVersion(_ context.Context, v forms.Version) error {
	return tv.m.insertVersionLocked(v)
}
func (tv *txView) GetVersion(_ context.Context, id forms.VersionID) (forms.Version, error) {
	return tv.m.getVersionLocked(id)
}
func (tv *txView) ListVersions(_ context.Context, templateID forms.TemplateID) ([]forms.Version, error) {
	return tv.m.listVersionsLocked(templateID)
}
func (tv *txView) MaxVersionNumber(_ context.Context, templateID forms.TemplateID) (int, error) {
	return tv.m.maxVersionNumberLocked(templateID)
}
func (tv *txView) SetVersionStatus(_ context.Context, id forms.VersionID, status forms.VersionStatus, publishedAt *time.Time) error {
	return tv.m.setVersionStatusLocked(id, status, publishedAt)
}
func (tv *txView) InsertEntity(_ context.Context, e forms.EntityTemplate) error {
	return tv.m.insertEntityLocked(e)
}
func (tv *txView) GetEntity(_ context.Context, id forms.EntityID) (forms.EntityTemplate, error) {
	return tv.m.getEntityLocked(id)
}
func (tv *txView) InsertSubmission(_ context.Context, s forms.Submission) error {
	return tv.m.insertSubmissionLocked(s)
}
func (tv *txView) GetSubmission(_ context.Context, id forms.SubmissionID) (forms.Submission, error) {
	return tv.m.getSubmissionLocked(id)
}
func (tv *txView) CountSubmissionsForVersion(_ context.Context, id forms.VersionID) (int, error) {
	return tv.m.countSubmissionsForVersionLocked(id)
}
func (tv *txView) TouchSubmission(_ context.Context, id forms.SubmissionID, status forms.RecordStatus, updatedAt time.Time, submittedAt *time.Time) error {
	return tv.m.touchSubmissionLocked(id, status, updatedAt, submittedAt)
}
func (tv *txView) InsertInstance(_ context.Context, in forms.Instance) error {
	return tv.m.insertInstanceLocked(in)
}
func (tv *txView) GetInstance(_ context.Context, id forms.InstanceID) (forms.Instance, error) {
	return tv.m.getInstanceLocked(id)
}
func (tv *txView) UpdateInstanceAnswers(_ context.Context, id forms.InstanceID, answers map[forms.FieldID]any, updatedAt time.Time) error {
	return tv.m.updateInstanceAnswersLocked(id, answers, updatedAt)
}
func (tv *txView) SetInstancesStatus(_ context.Context, submissionID forms.SubmissionID, status forms.RecordStatus) error {
	return tv.m.setInstancesStatusLocked(submissionID, status)
}
func (tv *txView) InsertReading(_ context.Context, r forms.Reading) error {
	return tv.m.insertReadingLocked(r)
}
func (tv *txView) InsertMeter(_ context.Context, meter forms.Meter) error {
	return tv.m.insertMeterLocked(meter)
}
func (tv *txView) GetMeter(_ context.Context, id forms.MeterID) (forms.Meter, error) {
	return tv.m.getMeterLocked(id)
}
func (tv *txView) ListMeters(_ context.Context, organization string) ([]forms.Meter, error) {
	return tv.m.listMetersLocked(organization)
}
func (tv *txView) InsertCalibration(_ context.Context, c forms.Calibration) error {
	return tv.m.insertCalibrationLocked(c)
}
func (tv *txView) GetCalibration(_ context.Context, id forms.CalibrationID) (forms.Calibration, error) {
	return tv.m.getCalibrationLocked(id)
}
func (tv *txView) ListCalibrations(_ context.Context, meterID forms.MeterID) ([]forms.Calibration, error) {
	return tv.m.listCalibrationsLocked(meterID)
}
func (tv *txView) UpsertSystemType(_ context.Context, st forms.SystemType) error {
	return tv.m.upsertSystemTypeLocked(st)
}
func (tv *txView) GetSystemType(_ context.Context, organization, code string) (forms.SystemType, error) {
	return tv.m.getSystemTypeLocked(organization, code)
}
func (tv *txView) ListSystemTypes(_ context.Context, organization string) ([]forms.SystemType, error) {
	return tv.m.listSystemTypesLocked(organization)
}
