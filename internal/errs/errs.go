// Package errs defines the error kinds the report pipeline distinguishes.
// Callers classify with errors.Is; messages stay human-readable because a
// failed task surfaces its error string directly to the polling client.
package errs

import "errors"

var (
	// ErrValidation marks a malformed or incomplete request.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an unknown task id or cache key.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamQuery marks a telemetry source failure.
	ErrUpstreamQuery = errors.New("upstream query error")

	// ErrGeneration marks an engine call failure or engine output that does
	// not conform to the report schema.
	ErrGeneration = errors.New("generation error")

	// ErrPersistence marks a document store read/write failure.
	ErrPersistence = errors.New("persistence error")

	// ErrScheduling marks a failure to register or reconstruct a recurring job.
	ErrScheduling = errors.New("scheduling error")
)
