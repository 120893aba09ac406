package domain

import "errors"

// Domain errors represent collection-engine failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source kind.
	ErrUnsupportedType = errors.New("unsupported source kind")

	// ErrRunInProgress indicates a collection run is already running for
	// the scope. One concurrent run per scope.
	ErrRunInProgress = errors.New("collection run in progress")

	// ErrAdapterFailure indicates the source itself is unreachable or
	// unreadable. Fatal for the run: nothing is processed and no fence
	// is advanced.
	ErrAdapterFailure = errors.New("source adapter failure")

	// ErrRecordUnresolvable indicates one record could not be resolved or
	// parsed. The record is counted and skipped; the run continues.
	ErrRecordUnresolvable = errors.New("record unresolvable")

	// ErrSubmissionFailed indicates the ingestion boundary rejected a
	// record permanently, or retries were exhausted.
	ErrSubmissionFailed = errors.New("submission failed")

	// ErrTransient marks a submission failure worth retrying (network
	// error, 5xx). Ingest clients wrap such failures with it.
	ErrTransient = errors.New("transient submission failure")

	// ErrQueueClosed indicates the enrichment queue no longer accepts work.
	ErrQueueClosed = errors.New("enrichment queue closed")
)
