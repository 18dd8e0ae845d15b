/*
engine.go - Engine construction and policy configuration

PURPOSE:
  The Engine ties the persistence contract, the job/asset directory, the
  shared system-type catalog, and the submit policy together. All
  lifecycle operations hang off it.

POLICY:
  SubmitPolicy is an explicit value handed in at construction. There is
  no process-wide flag state; two engines in one process can run with
  different policies, which keeps tests deterministic.

SEE ALSO:
  - template.go: Template and version lifecycle
  - submission.go: Submission creation and instantiation
  - finalize.go: Submit finalizer
*/
package forms

import (
	"time"

	"github.com/google/uuid"
)

// SubmitPolicy holds the two independent blocking policies. Both default
// to false: the corresponding conditions then surface as soft warnings.
type SubmitPolicy struct {
	BlockUntestedAssets     bool
	BlockExpiredCalibration bool
}

// Engine implements the form template and submission lifecycle.
type Engine struct {
	store   TxStore
	jobs    JobDirectory
	catalog map[string]SystemTypeDef // shared catalog, keyed by code
	policy  SubmitPolicy
}

// NewEngine creates an engine over the given store and job directory.
// catalog is the shared system-type catalog (usually catalog.BuiltIn());
// it is seeded per organization on first use.
func NewEngine(store TxStore, jobs JobDirectory, catalog []SystemTypeDef, policy SubmitPolicy) *Engine {
	byCode := make(map[string]SystemTypeDef, len(catalog))
	for _, def := range catalog {
		byCode[def.Code] = def
	}
	return &Engine{
		store:   store,
		jobs:    jobs,
		catalog: byCode,
		policy:  policy,
	}
}

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}
