package driven

import (
	"context"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
)

// Enricher is the enrichment boundary (OCR, entity extraction). A failed
// enrichment degrades to submitting the unenriched record; it never fails
// the run.
type Enricher interface {
	Enrich(ctx context.Context, rec domain.CandidateRecord) (*domain.EnrichedRecord, error)
}

// PassthroughEnricher returns records unchanged. Used when enrichment is
// disabled for a run.
type PassthroughEnricher struct{}

// Enrich wraps the record without adding enrichment output.
func (PassthroughEnricher) Enrich(_ context.Context, rec domain.CandidateRecord) (*domain.EnrichedRecord, error) {
	return &domain.EnrichedRecord{CandidateRecord: rec}, nil
}
