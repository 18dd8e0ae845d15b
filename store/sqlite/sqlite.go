/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements forms.TxStore and forms.JobDirectory using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  templates:        Form templates
  form_versions:    Versioned entity sets, dense numbering per template
  entity_templates: Entity definitions, field schema as JSON
  submissions:      One per job x version
  instances:        Per-entity (optionally per-asset) answer records
  meters:           Measuring instruments
  calibrations:     Time-bounded certificates
  readings:         Recorded measurements
  system_types:     Organization-scoped catalog registry
  jobs/job_assets:  Job directory backing (demo and self-contained deploys)

UNIQUENESS BACKSTOPS:
  - idx_instances_unique: at most one instance per
    (submission, entity, asset) triple; violations surface as
    forms.ErrDuplicateInstance
  - idx_versions_template_number: dense version numbering can never
    silently double-assign
  - idx_system_types_org_code: concurrent first-use catalog seeding
    upserts instead of duplicating

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and WAL mode for better reader
  concurrency. WithTx wraps fn in a database transaction while holding
  the write lock, so invariant checks inside fn cannot interleave with
  other writers.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/inspections.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := forms.NewEngine(store, store, catalog.BuiltIn(), policy)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - forms/store.go: Interface definitions
  - forms/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/inspection-engine/forms"
)

// Store implements forms.TxStore and forms.JobDirectory using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		organization TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_templates_organization
		ON templates(organization);

	CREATE TABLE IF NOT EXISTS form_versions (
		id TEXT PRIMARY KEY,
		template_id TEXT NOT NULL,
		version_number INTEGER NOT NULL,
		title TEXT,
		notes TEXT,
		status TEXT NOT NULL,
		system_type_code TEXT,
		published_at TEXT
	);

	-- Dense numbering backstop: a version number is assigned once per template
	CREATE UNIQUE INDEX IF NOT EXISTS idx_versions_template_number
		ON form_versions(template_id, version_number);

	CREATE TABLE IF NOT EXISTS entity_templates (
		id TEXT PRIMARY KEY,
		version_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		sort_order INTEGER NOT NULL DEFAULT 0,
		repeat_per_asset BOOLEAN NOT NULL DEFAULT FALSE,
		fields_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entities_version
		ON entity_templates(version_id);

	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		version_id TEXT NOT NULL,
		job_id TEXT NOT NULL,
		organization TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		submitted_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_version
		ON submissions(version_id);

	CREATE TABLE IF NOT EXISTS instances (
		id TEXT PRIMARY KEY,
		submission_id TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		asset_id TEXT,
		location TEXT,
		answers_json TEXT NOT NULL,
		status TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: at most one instance per (submission, entity, asset)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_instances_unique
		ON instances(submission_id, entity_id, IFNULL(asset_id, ''));

	CREATE INDEX IF NOT EXISTS idx_instances_submission
		ON instances(submission_id);

	CREATE TABLE IF NOT EXISTS meters (
		id TEXT PRIMARY KEY,
		organization TEXT NOT NULL,
		name TEXT NOT NULL,
		serial_number TEXT,
		model TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_meters_organization
		ON meters(organization);

	CREATE TABLE IF NOT EXISTS calibrations (
		id TEXT PRIMARY KEY,
		meter_id TEXT NOT NULL,
		calibrated_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		certificate_url TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_calibrations_meter
		ON calibrations(meter_id, calibrated_at DESC);

	CREATE TABLE IF NOT EXISTS readings (
		id TEXT PRIMARY KEY,
		instance_id TEXT NOT NULL,
		submission_id TEXT NOT NULL,
		meter_id TEXT NOT NULL,
		calibration_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		recorded_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_readings_submission
		ON readings(submission_id);

	CREATE TABLE IF NOT EXISTS system_types (
		id TEXT PRIMARY KEY,
		organization TEXT NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL
	);

	-- Catalog seeding upserts against this, never duplicates
	CREATE UNIQUE INDEX IF NOT EXISTS idx_system_types_org_code
		ON system_types(organization, code);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		name TEXT
	);

	CREATE TABLE IF NOT EXISTS job_assets (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		label TEXT NOT NULL,
		location TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_job_assets_job
		ON job_assets(job_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx abstracts *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONAL STORE (forms.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(forms.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

func (s *Store) InsertTemplate(ctx context.Context, t forms.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertTemplate(ctx, s.db, t)
}

func (s *Store) GetTemplate(ctx context.Context, id forms.TemplateID) (forms.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTemplate(ctx, s.db, id)
}

func (s *Store) ListTemplates(ctx context.Context, organization string) ([]forms.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTemplates(ctx, s.db, organization)
}

func (s *Store) InsertVersion(ctx context.Context, v forms.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertVersion(ctx, s.db, v)
}

func (s *Store) GetVersion(ctx context.Context, id forms.VersionID) (forms.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getVersion(ctx, s.db, id)
}

func (s *Store) ListVersions(ctx context.Context, templateID forms.TemplateID) ([]forms.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listVersions(ctx, s.db, templateID)
}

func (s *Store) MaxVersionNumber(ctx context.Context, templateID forms.TemplateID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maxVersionNumber(ctx, s.db, templateID)
}

func (s *Store) SetVersionStatus(ctx context.Context, id forms.VersionID, status forms.VersionStatus, publishedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setVersionStatus(ctx, s.db, id, status, publishedAt)
}

func (s *Store) InsertEntity(ctx context.Context, e forms.EntityTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertEntity(ctx, s.db, e)
}

func (s *Store) GetEntity(ctx context.Context, id forms.EntityID) (forms.EntityTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEntity(ctx, s.db, id)
}

// =============================================================================
// SUBMISSION STORE
// =============================================================================

func (s *Store) InsertSubmission(ctx context.Context, sub forms.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertSubmission(ctx, s.db, sub)
}

func (s *Store) GetSubmission(ctx context.Context, id forms.SubmissionID) (forms.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSubmission(ctx, s.db, id)
}

func (s *Store) CountSubmissionsForVersion(ctx context.Context, id forms.VersionID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countSubmissionsForVersion(ctx, s.db, id)
}

func (s *Store) TouchSubmission(ctx context.Context, id forms.SubmissionID, status forms.RecordStatus, updatedAt time.Time, submittedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return touchSubmission(ctx, s.db, id, status, updatedAt, submittedAt)
}

func (s *Store) InsertInstance(ctx context.Context, in forms.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertInstance(ctx, s.db, in)
}

func (s *Store) GetInstance(ctx context.Context, id forms.InstanceID) (forms.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getInstance(ctx, s.db, id)
}

func (s *Store) UpdateInstanceAnswers(ctx context.Context, id forms.InstanceID, answers map[forms.FieldID]any, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateInstanceAnswers(ctx, s.db, id, answers, updatedAt)
}

func (s *Store) SetInstancesStatus(ctx context.Context, submissionID forms.SubmissionID, status forms.RecordStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setInstancesStatus(ctx, s.db, submissionID, status)
}

func (s *Store) InsertReading(ctx context.Context, r forms.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertReading(ctx, s.db, r)
}

// =============================================================================
// METER STORE
// =============================================================================

func (s *Store) InsertMeter(ctx context.Context, m forms.Meter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertMeter(ctx, s.db, m)
}

func (s *Store) GetMeter(ctx context.Context, id forms.MeterID) (forms.Meter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getMeter(ctx, s.db, id)
}

func (s *Store) ListMeters(ctx context.Context, organization string) ([]forms.Meter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listMeters(ctx, s.db, organization)
}

func (s *Store) InsertCalibration(ctx context.Context, c forms.Calibration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertCalibration(ctx, s.db, c)
}

func (s *Store) GetCalibration(ctx context.Context, id forms.CalibrationID) (forms.Calibration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCalibration(ctx, s.db, id)
}

func (s *Store) ListCalibrations(ctx context.Context, meterID forms.MeterID) ([]forms.Calibration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCalibrations(ctx, s.db, meterID)
}

// =============================================================================
// CATALOG STORE
// =============================================================================

func (s *Store) UpsertSystemType(ctx context.Context, st forms.SystemType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertSystemType(ctx, s.db, st)
}

func (s *Store) GetSystemType(ctx context.Context, organization, code string) (forms.SystemType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSystemType(ctx, s.db, organization, code)
}

func (s *Store) ListSystemTypes(ctx context.Context, organization string) ([]forms.SystemType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listSystemTypes(ctx, s.db, organization)
}

// =============================================================================
// JOB DIRECTORY (forms.JobDirectory interface)
// =============================================================================

// PutJob registers a job and replaces its asset list. Used by demo
// seeding and tests; in a full deployment the directory is fed by the
// scheduling system.
func (s *Store) PutJob(ctx context.Context, jobID, name string, assets []forms.JobAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO jobs (id, name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		jobID, name); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM job_assets WHERE job_id = ?", jobID); err != nil {
		return fmt.Errorf("failed to clear job assets: %w", err)
	}
	for _, a := range assets {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO job_assets (id, job_id, label, location) VALUES (?, ?, ?, ?)",
			a.ID, jobID, a.Label, nullString(a.Location)); err != nil {
			return fmt.Errorf("failed to save job asset: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) ListJobAssets(ctx context.Context, jobID string) ([]forms.JobAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs WHERE id = ?", jobID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up job: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", forms.ErrJobNotFound, jobID)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, label, location FROM job_assets WHERE job_id = ? ORDER BY rowid", jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query job assets: %w", err)
	}
	defer rows.Close()

	var assets []forms.JobAsset
	for rows.Next() {
		var (
			a        forms.JobAsset
			location sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Label, &location); err != nil {
			return nil, fmt.Errorf("failed to scan job asset: %w", err)
		}
		a.Location = location.String
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// =============================================================================
// TX VIEW - forms.Store over an open *sql.Tx
// =============================================================================

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) InsertTemplate(ctx context.Context, tpl forms.Template) error {
	return insertTemplate(ctx, t.tx, tpl)
}
func (t *txStore) GetTemplate(ctx context.Context, id forms.TemplateID) (forms.Template, error) {
	return getTemplate(ctx, t.tx, id)
}
func (t *txStore) ListTemplates(ctx context.Context, organization string) ([]forms.Template, error) {
	return listTemplates(ctx, t.tx, organization)
}
func (t *txStore) InsertVersion(ctx context.Context, v forms.Version) error {
	return insertVersion(ctx, t.tx, v)
}
func (t *txStore) GetVersion(ctx context.Context, id forms.VersionID) (forms.Version, error) {
	return getVersion(ctx, t.tx, id)
}
func (t *txStore) ListVersions(ctx context.Context, templateID forms.TemplateID) ([]forms.Version, error) {
	return listVersions(ctx, t.tx, templateID)
}
func (t *txStore) MaxVersionNumber(ctx context.Context, templateID forms.TemplateID) (int, error) {
	return maxVersionNumber(ctx, t.tx, templateID)
}
func (t *txStore) SetVersionStatus(ctx context.Context, id forms.VersionID, status forms.VersionStatus, publishedAt *time.Time) error {
	return setVersionStatus(ctx, t.tx, id, status, publishedAt)
}
func (t *txStore) InsertEntity(ctx context.Context, e forms.EntityTemplate) error {
	return insertEntity(ctx, t.tx, e)
}
func (t *txStore) GetEntity(ctx context.Context, id forms.EntityID) (forms.EntityTemplate, error) {
	return getEntity(ctx, t.tx, id)
}
func (t *txStore) InsertSubmission(ctx context.Context, sub forms.Submission) error {
	return insertSubmission(ctx, t.tx, sub)
}
func (t *txStore) GetSubmission(ctx context.Context, id forms.SubmissionID) (forms.Submission, error) {
	return getSubmission(ctx, t.tx, id)
}
func (t *txStore) CountSubmissionsForVersion(ctx context.Context, id forms.VersionID) (int, error) {
	return countSubmissionsForVersion(ctx, t.tx, id)
}
func (t *txStore) TouchSubmission(ctx context.Context, id forms.SubmissionID, status forms.RecordStatus, updatedAt time.Time, submittedAt *time.Time) error {
	return touchSubmission(ctx, t.tx, id, status, updatedAt, submittedAt)
}
func (t *txStore) InsertInstance(ctx context.Context, in forms.Instance) error {
	return insertInstance(ctx, t.tx, in)
}
func (t *txStore) GetInstance(ctx context.Context, id forms.InstanceID) (forms.Instance, error) {
	return getInstance(ctx, t.tx, id)
}
func (t *txStore) UpdateInstanceAnswers(ctx context.Context, id forms.InstanceID, answers map[forms.FieldID]any, updatedAt time.Time) error {
	return updateInstanceAnswers(ctx, t.tx, id, answers, updatedAt)
}
func (t *txStore) SetInstancesStatus(ctx context.Context, submissionID forms.SubmissionID, status forms.RecordStatus) error {
	return setInstancesStatus(ctx, t.tx, submissionID, status)
}
func (t *txStore) InsertReading(ctx context.Context, r forms.Reading) error {
	return insertReading(ctx, t.tx, r)
}
func (t *txStore) InsertMeter(ctx context.Context, m forms.Meter) error {
	return insertMeter(ctx, t.tx, m)
}
func (t *txStore) GetMeter(ctx context.Context, id forms.MeterID) (forms.Meter, error) {
	return getMeter(ctx, t.tx, id)
}
func (t *txStore) ListMeters(ctx context.Context, organization string) ([]forms.Meter, error) {
	return listMeters(ctx, t.tx, organization)
}
func (t *txStore) InsertCalibration(ctx context.Context, c forms.Calibration) error {
	return insertCalibration(ctx, t.tx, c)
}
func (t *txStore) GetCalibration(ctx context.Context, id forms.CalibrationID) (forms.Calibration, error) {
	return getCalibration(ctx, t.tx, id)
}
func (t *txStore) ListCalibrations(ctx context.Context, meterID forms.MeterID) ([]forms.Calibration, error) {
	return listCalibrations(ctx, t.tx, meterID)
}
func (t *txStore) UpsertSystemType(ctx context.Context, st forms.SystemType) error {
	return upsertSystemType(ctx, t.tx, st)
}
func (t *txStore) GetSystemType(ctx context.Context, organization, code string) (forms.SystemType, error) {
	return getSystemType(ctx, t.tx, organization, code)
}
func (t *txStore) ListSystemTypes(ctx context.Context, organization string) ([]forms.SystemType, error) {
	return listSystemTypes(ctx, t.tx, organization)
}

// =============================================================================
// QUERIES - shared between Store and txStore
// =============================================================================

func insertTemplate(ctx context.Context, db dbtx, t forms.Template) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO templates (id, name, description, organization, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, nullString(t.Description), t.Organization, formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}
	return nil
}

func getTemplate(ctx context.Context, db dbtx, id forms.TemplateID) (forms.Template, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, name, description, organization, created_at
		FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return forms.Template{}, fmt.Errorf("%w: %s", forms.ErrTemplateNotFound, id)
	}
	return t, err
}

func listTemplates(ctx context.Context, db dbtx, organization string) ([]forms.Template, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, description, organization, created_at
		FROM templates WHERE organization = ?
		ORDER BY created_at ASC, name ASC`, organization)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var out []forms.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (forms.Template, error) {
	var (
		t           forms.Template
		description sql.NullString
		createdAt   string
	)
	if err := row.Scan(&t.ID, &t.Name, &description, &t.Organization, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return t, err
		}
		return t, fmt.Errorf("failed to scan template: %w", err)
	}
	t.Description = description.String
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

func insertVersion(ctx context.Context, db dbtx, v forms.Version) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO form_versions
		(id, template_id, version_number, title, notes, status, system_type_code, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.TemplateID, v.Number, nullString(v.Title), nullString(v.Notes),
		v.Status, nullString(v.SystemTypeCode), nullTime(v.PublishedAt))
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}
	return nil
}

func getVersion(ctx context.Context, db dbtx, id forms.VersionID) (forms.Version, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, template_id, version_number, title, notes, status, system_type_code, published_at
		FROM form_versions WHERE id = ?`, id)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return forms.Version{}, fmt.Errorf("%w: %s", forms.ErrVersionNotFound, id)
	}
	if err != nil {
		return forms.Version{}, err
	}
	v.Entities, err = listEntities(ctx, db, id)
	return v, err
}

func listVersions(ctx context.Context, db dbtx, templateID forms.TemplateID) ([]forms.Version, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, template_id, version_number, title, notes, status, system_type_code, published_at
		FROM form_versions WHERE template_id = ?
		ORDER BY version_number ASC`, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	var out []forms.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Entities, err = listEntities(ctx, db, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanVersion(row rowScanner) (forms.Version, error) {
	var (
		v              forms.Version
		title          sql.NullString
		notes          sql.NullString
		systemTypeCode sql.NullString
		publishedAt    sql.NullString
	)
	if err := row.Scan(&v.ID, &v.TemplateID, &v.Number, &title, &notes, &v.Status, &systemTypeCode, &publishedAt); err != nil {
		if err == sql.ErrNoRows {
			return v, err
		}
		return v, fmt.Errorf("failed to scan version: %w", err)
	}
	v.Title = title.String
	v.Notes = notes.String
	v.SystemTypeCode = systemTypeCode.String
	if publishedAt.Valid {
		t := parseTime(publishedAt.String)
		v.PublishedAt = &t
	}
	return v, nil
}

func maxVersionNumber(ctx context.Context, db dbtx, templateID forms.TemplateID) (int, error) {
	var max int
	err := db.QueryRowContext(ctx,
		"SELECT IFNULL(MAX(version_number), 0) FROM form_versions WHERE template_id = ?",
		templateID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query max version number: %w", err)
	}
	return max, nil
}

func setVersionStatus(ctx context.Context, db dbtx, id forms.VersionID, status forms.VersionStatus, publishedAt *time.Time) error {
	res, err := db.ExecContext(ctx,
		"UPDATE form_versions SET status = ?, published_at = ? WHERE id = ?",
		status, nullTime(publishedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update version status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", forms.ErrVersionNotFound, id)
	}
	return nil
}

func insertEntity(ctx context.Context, db dbtx, e forms.EntityTemplate) error {
	fieldsJSON, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO entity_templates
		(id, version_id, title, description, sort_order, repeat_per_asset, fields_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.VersionID, e.Title, nullString(e.Description), e.SortOrder, e.RepeatPerAsset, string(fieldsJSON))
	if err != nil {
		return fmt.Errorf("failed to insert entity: %w", err)
	}
	return nil
}

func getEntity(ctx context.Context, db dbtx, id forms.EntityID) (forms.EntityTemplate, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, version_id, title, description, sort_order, repeat_per_asset, fields_json
		FROM entity_templates WHERE id = ?`, id)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return forms.EntityTemplate{}, fmt.Errorf("%w: %s", forms.ErrEntityNotFound, id)
	}
	return e, err
}

func listEntities(ctx context.Context, db dbtx, versionID forms.VersionID) ([]forms.EntityTemplate, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, version_id, title, description, sort_order, repeat_per_asset, fields_json
		FROM entity_templates WHERE version_id = ?
		ORDER BY sort_order ASC, rowid ASC`, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var out []forms.EntityTemplate
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntity(row rowScanner) (forms.EntityTemplate, error) {
	var (
		e           forms.EntityTemplate
		description sql.NullString
		fieldsJSON  string
	)
	if err := row.Scan(&e.ID, &e.VersionID, &e.Title, &description, &e.SortOrder, &e.RepeatPerAsset, &fieldsJSON); err != nil {
		if err == sql.ErrNoRows {
			return e, err
		}
		return e, fmt.Errorf("failed to scan entity: %w", err)
	}
	e.Description = description.String
	if err := json.Unmarshal([]byte(fieldsJSON), &e.Fields); err != nil {
		return e, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	return e, nil
}

func insertSubmission(ctx context.Context, db dbtx, sub forms.Submission) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO submissions
		(id, version_id, job_id, organization, status, created_at, updated_at, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.VersionID, sub.JobID, sub.Organization, sub.Status,
		formatTime(sub.CreatedAt), formatTime(sub.UpdatedAt), nullTime(sub.SubmittedAt))
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func getSubmission(ctx context.Context, db dbtx, id forms.SubmissionID) (forms.Submission, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, version_id, job_id, organization, status, created_at, updated_at, submitted_at
		FROM submissions WHERE id = ?`, id)

	var (
		sub         forms.Submission
		createdAt   string
		updatedAt   string
		submittedAt sql.NullString
	)
	err := row.Scan(&sub.ID, &sub.VersionID, &sub.JobID, &sub.Organization, &sub.Status,
		&createdAt, &updatedAt, &submittedAt)
	if err == sql.ErrNoRows {
		return forms.Submission{}, fmt.Errorf("%w: %s", forms.ErrSubmissionNotFound, id)
	}
	if err != nil {
		return forms.Submission{}, fmt.Errorf("failed to scan submission: %w", err)
	}
	sub.CreatedAt = parseTime(createdAt)
	sub.UpdatedAt = parseTime(updatedAt)
	if submittedAt.Valid {
		t := parseTime(submittedAt.String)
		sub.SubmittedAt = &t
	}

	if sub.Instances, err = listInstances(ctx, db, id); err != nil {
		return forms.Submission{}, err
	}
	if sub.Readings, err = listReadings(ctx, db, id); err != nil {
		return forms.Submission{}, err
	}
	return sub, nil
}

func countSubmissionsForVersion(ctx context.Context, db dbtx, id forms.VersionID) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM submissions WHERE version_id = ?", id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return n, nil
}

func touchSubmission(ctx context.Context, db dbtx, id forms.SubmissionID, status forms.RecordStatus, updatedAt time.Time, submittedAt *time.Time) error {
	var (
		res sql.Result
		err error
	)
	if submittedAt != nil {
		res, err = db.ExecContext(ctx,
			"UPDATE submissions SET status = ?, updated_at = ?, submitted_at = ? WHERE id = ?",
			status, formatTime(updatedAt), formatTime(*submittedAt), id)
	} else {
		res, err = db.ExecContext(ctx,
			"UPDATE submissions SET status = ?, updated_at = ? WHERE id = ?",
			status, formatTime(updatedAt), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", forms.ErrSubmissionNotFound, id)
	}
	return nil
}

func insertInstance(ctx context.Context, db dbtx, in forms.Instance) error {
	answersJSON, err := json.Marshal(in.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO instances
		(id, submission_id, entity_id, asset_id, location, answers_json, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.SubmissionID, in.EntityID, nullStringPtr(in.AssetID), nullStringPtr(in.Location),
		string(answersJSON), in.Status, formatTime(in.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return forms.ErrDuplicateInstance
		}
		return fmt.Errorf("failed to insert instance: %w", err)
	}
	return nil
}

func getInstance(ctx context.Context, db dbtx, id forms.InstanceID) (forms.Instance, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, submission_id, entity_id, asset_id, location, answers_json, status, updated_at
		FROM instances WHERE id = ?`, id)
	in, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return forms.Instance{}, fmt.Errorf("%w: %s", forms.ErrInstanceNotFound, id)
	}
	return in, err
}

func listInstances(ctx context.Context, db dbtx, submissionID forms.SubmissionID) ([]forms.Instance, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, submission_id, entity_id, asset_id, location, answers_json, status, updated_at
		FROM instances WHERE submission_id = ?
		ORDER BY rowid ASC`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	defer rows.Close()

	var out []forms.Instance
	for rows.Next() {
		in, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func scanInstance(row rowScanner) (forms.Instance, error) {
	var (
		in          forms.Instance
		assetID     sql.NullString
		location    sql.NullString
		answersJSON string
		updatedAt   string
	)
	if err := row.Scan(&in.ID, &in.SubmissionID, &in.EntityID, &assetID, &location, &answersJSON, &in.Status, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return in, err
		}
		return in, fmt.Errorf("failed to scan instance: %w", err)
	}
	if assetID.Valid {
		in.AssetID = &assetID.String
	}
	if location.Valid {
		in.Location = &location.String
	}
	if err := json.Unmarshal([]byte(answersJSON), &in.Answers); err != nil {
		return in, fmt.Errorf("failed to unmarshal answers: %w", err)
	}
	in.UpdatedAt = parseTime(updatedAt)
	return in, nil
}

func updateInstanceAnswers(ctx context.Context, db dbtx, id forms.InstanceID, answers map[forms.FieldID]any, updatedAt time.Time) error {
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	res, err := db.ExecContext(ctx,
		"UPDATE instances SET answers_json = ?, updated_at = ? WHERE id = ?",
		string(answersJSON), formatTime(updatedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update instance answers: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", forms.ErrInstanceNotFound, id)
	}
	return nil
}

func setInstancesStatus(ctx context.Context, db dbtx, submissionID forms.SubmissionID, status forms.RecordStatus) error {
	_, err := db.ExecContext(ctx,
		"UPDATE instances SET status = ? WHERE submission_id = ?", status, submissionID)
	if err != nil {
		return fmt.Errorf("failed to update instance status: %w", err)
	}
	return nil
}

func insertReading(ctx context.Context, db dbtx, r forms.Reading) error {
	var submissionID forms.SubmissionID
	err := db.QueryRowContext(ctx,
		"SELECT submission_id FROM instances WHERE id = ?", r.InstanceID).Scan(&submissionID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", forms.ErrInstanceNotFound, r.InstanceID)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve reading instance: %w", err)
	}

	payloadJSON, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal reading payload: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO readings
		(id, instance_id, submission_id, meter_id, calibration_id, payload_json, recorded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.InstanceID, submissionID, r.MeterID, r.CalibrationID,
		string(payloadJSON), nullString(r.RecordedBy), formatTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

func listReadings(ctx context.Context, db dbtx, submissionID forms.SubmissionID) ([]forms.Reading, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, instance_id, meter_id, calibration_id, payload_json, recorded_by, created_at
		FROM readings WHERE submission_id = ?
		ORDER BY created_at ASC, rowid ASC`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var out []forms.Reading
	for rows.Next() {
		var (
			r           forms.Reading
			payloadJSON string
			recordedBy  sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&r.ID, &r.InstanceID, &r.MeterID, &r.CalibrationID, &payloadJSON, &recordedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		if err := json.Unmarshal([]byte(payloadJSON), &r.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reading payload: %w", err)
		}
		r.RecordedBy = recordedBy.String
		r.CreatedAt = parseTime(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func insertMeter(ctx context.Context, db dbtx, m forms.Meter) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO meters (id, organization, name, serial_number, model)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Organization, m.Name, nullString(m.SerialNumber), nullString(m.Model))
	if err != nil {
		return fmt.Errorf("failed to insert meter: %w", err)
	}
	return nil
}

func getMeter(ctx context.Context, db dbtx, id forms.MeterID) (forms.Meter, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, organization, name, serial_number, model FROM meters WHERE id = ?", id)

	var (
		m            forms.Meter
		serialNumber sql.NullString
		model        sql.NullString
	)
	err := row.Scan(&m.ID, &m.Organization, &m.Name, &serialNumber, &model)
	if err == sql.ErrNoRows {
		return forms.Meter{}, fmt.Errorf("%w: %s", forms.ErrMeterNotFound, id)
	}
	if err != nil {
		return forms.Meter{}, fmt.Errorf("failed to scan meter: %w", err)
	}
	m.SerialNumber = serialNumber.String
	m.Model = model.String
	return m, nil
}

func listMeters(ctx context.Context, db dbtx, organization string) ([]forms.Meter, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, organization, name, serial_number, model
		FROM meters WHERE organization = ? ORDER BY name ASC`, organization)
	if err != nil {
		return nil, fmt.Errorf("failed to query meters: %w", err)
	}
	defer rows.Close()

	var out []forms.Meter
	for rows.Next() {
		var (
			m            forms.Meter
			serialNumber sql.NullString
			model        sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Organization, &m.Name, &serialNumber, &model); err != nil {
			return nil, fmt.Errorf("failed to scan meter: %w", err)
		}
		m.SerialNumber = serialNumber.String
		m.Model = model.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func insertCalibration(ctx context.Context, db dbtx, c forms.Calibration) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO calibrations (id, meter_id, calibrated_at, expires_at, certificate_url)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.MeterID, formatTime(c.CalibratedAt), formatTime(c.ExpiresAt), nullString(c.CertificateURL))
	if err != nil {
		return fmt.Errorf("failed to insert calibration: %w", err)
	}
	return nil
}

func getCalibration(ctx context.Context, db dbtx, id forms.CalibrationID) (forms.Calibration, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, meter_id, calibrated_at, expires_at, certificate_url
		FROM calibrations WHERE id = ?`, id)
	c, err := scanCalibration(row)
	if err == sql.ErrNoRows {
		return forms.Calibration{}, fmt.Errorf("%w: %s", forms.ErrCalibrationNotFound, id)
	}
	return c, err
}

func listCalibrations(ctx context.Context, db dbtx, meterID forms.MeterID) ([]forms.Calibration, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, meter_id, calibrated_at, expires_at, certificate_url
		FROM calibrations WHERE meter_id = ?
		ORDER BY calibrated_at ASC`, meterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibrations: %w", err)
	}
	defer rows.Close()

	var out []forms.Calibration
	for rows.Next() {
		c, err := scanCalibration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCalibration(row rowScanner) (forms.Calibration, error) {
	var (
		c              forms.Calibration
		calibratedAt   string
		expiresAt      string
		certificateURL sql.NullString
	)
	if err := row.Scan(&c.ID, &c.MeterID, &calibratedAt, &expiresAt, &certificateURL); err != nil {
		if err == sql.ErrNoRows {
			return c, err
		}
		return c, fmt.Errorf("failed to scan calibration: %w", err)
	}
	c.CalibratedAt = parseTime(calibratedAt)
	c.ExpiresAt = parseTime(expiresAt)
	c.CertificateURL = certificateURL.String
	return c, nil
}

func upsertSystemType(ctx context.Context, db dbtx, st forms.SystemType) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO system_types (id, organization, code, name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(organization, code) DO UPDATE SET name = excluded.name`,
		st.ID, st.Organization, st.Code, st.Name)
	if err != nil {
		return fmt.Errorf("failed to upsert system type: %w", err)
	}
	return nil
}

func getSystemType(ctx context.Context, db dbtx, organization, code string) (forms.SystemType, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, organization, code, name
		FROM system_types WHERE organization = ? AND code = ?`, organization, code)

	var st forms.SystemType
	err := row.Scan(&st.ID, &st.Organization, &st.Code, &st.Name)
	if err == sql.ErrNoRows {
		return forms.SystemType{}, fmt.Errorf("%w: %s", forms.ErrSystemTypeNotFound, code)
	}
	if err != nil {
		return forms.SystemType{}, fmt.Errorf("failed to scan system type: %w", err)
	}
	return st, nil
}

func listSystemTypes(ctx context.Context, db dbtx, organization string) ([]forms.SystemType, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, organization, code, name
		FROM system_types WHERE organization = ? ORDER BY code ASC`, organization)
	if err != nil {
		return nil, fmt.Errorf("failed to query system types: %w", err)
	}
	defer rows.Close()

	var out []forms.SystemType
	for rows.Next() {
		var st forms.SystemType
		if err := rows.Scan(&st.ID, &st.Organization, &st.Code, &st.Name); err != nil {
			return nil, fmt.Errorf("failed to scan system type: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullStringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
