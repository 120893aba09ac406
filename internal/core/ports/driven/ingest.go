package driven

import (
	"context"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
)

// PerRecordOutcome reports the ingestion boundary's verdict for one record.
type PerRecordOutcome struct {
	// Key identifies the record this outcome belongs to.
	Key domain.CandidateKey

	// Success means the record was durably accepted.
	Success bool

	// Retryable marks a failed record as worth retrying (throttling,
	// transient backend error). Ignored when Success is true.
	Retryable bool

	// ErrorMessage describes the failure, empty on success.
	ErrorMessage string
}

// IngestClient submits enriched records to the ingestion boundary.
// The wire protocol behind it is not this repository's concern; callers
// plug in their own client. A transport-level transient failure should be
// wrapped with domain.ErrTransient so the submitter retries it.
type IngestClient interface {
	// SubmitBatch submits records together and reports one outcome per
	// record, in input order.
	SubmitBatch(ctx context.Context, recs []domain.EnrichedRecord) ([]PerRecordOutcome, error)

	// Submit submits a single record for non-batch mode.
	Submit(ctx context.Context, rec domain.EnrichedRecord) (PerRecordOutcome, error)
}
