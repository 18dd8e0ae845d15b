/*
errors.go - Centralized error types for the forms engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The HTTP boundary maps these onto status codes; the engine itself only
  ever returns them.

ERROR CATEGORIES:
  1. Not-found errors - A referenced record does not exist
  2. State errors - A lifecycle rule rejected the mutation
  3. ValidationError - Malformed answer payload (carries every violation)
  4. PolicyBlockError - A configured blocking policy fired

CONTRACT:
  Every operation is all-or-nothing with respect to the aggregate it
  touches. An error return means nothing was persisted.

USAGE:
  if forms.IsNotFound(err) {
      // 404
  }

SEE ALSO:
  - store.go: Stores return the not-found sentinels
  - finalize.go: Returns PolicyBlockError when a gate is on
*/
package forms

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

// Not-found sentinels. Stores wrap these with the missing ID.
var (
	ErrTemplateNotFound    = errors.New("template not found")
	ErrVersionNotFound     = errors.New("form version not found")
	ErrEntityNotFound      = errors.New("entity template not found")
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrInstanceNotFound    = errors.New("instance not found")
	ErrMeterNotFound       = errors.New("meter not found")
	ErrCalibrationNotFound = errors.New("calibration not found")
	ErrSystemTypeNotFound  = errors.New("system type not found")
	ErrJobNotFound         = errors.New("job not found")
)

// State sentinels. Lifecycle rules that reject a mutation outright.
var (
	// ErrVersionPublished is returned when editing a published version.
	ErrVersionPublished = errors.New("version is published and cannot be edited")

	// ErrVersionInUse is returned when editing a version that already has
	// submissions. The check runs inside the same transaction as the edit.
	ErrVersionInUse = errors.New("version is in use by submissions and cannot be edited")

	// ErrVersionNotPublished is returned when creating a submission against
	// a draft version.
	ErrVersionNotPublished = errors.New("version is not published")

	// ErrSubmissionFinal is returned when mutating answers on a submitted
	// submission.
	ErrSubmissionFinal = errors.New("submission has been submitted and is read-only")

	// ErrCalibrationMismatch is returned when a reading references a
	// calibration owned by a different meter.
	ErrCalibrationMismatch = errors.New("calibration does not belong to meter")

	// ErrDuplicateInstance is returned by stores when an instance already
	// exists for an (entity, asset) pair. The engine treats it as a skip.
	ErrDuplicateInstance = errors.New("instance already exists for entity and asset")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports every field-level violation of an answer payload.
// Validation never short-circuits after the first failure.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("answer validation failed: %s", strings.Join(e.Violations, "; "))
}

// PolicyBlockError rejects a submit or reading because a configured
// blocking policy fired. No state was mutated.
type PolicyBlockError struct {
	Policy   string // "block_untested_assets" or "block_expired_calibration"
	Warnings []string
}

func (e *PolicyBlockError) Error() string {
	return fmt.Sprintf("blocked by policy %s: %s", e.Policy, strings.Join(e.Warnings, "; "))
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrVersionNotFound) ||
		errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrInstanceNotFound) ||
		errors.Is(err, ErrMeterNotFound) ||
		errors.Is(err, ErrCalibrationNotFound) ||
		errors.Is(err, ErrSystemTypeNotFound) ||
		errors.Is(err, ErrJobNotFound)
}

// IsStateError returns true if a lifecycle rule rejected the operation.
func IsStateError(err error) bool {
	return errors.Is(err, ErrVersionPublished) ||
		errors.Is(err, ErrVersionInUse) ||
		errors.Is(err, ErrVersionNotPublished) ||
		errors.Is(err, ErrSubmissionFinal) ||
		errors.Is(err, ErrCalibrationMismatch)
}

// IsValidation returns true if the error is an answer validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPolicyBlock returns true if a configured blocking policy fired.
func IsPolicyBlock(err error) bool {
	var pe *PolicyBlockError
	return errors.As(err, &pe)
}
