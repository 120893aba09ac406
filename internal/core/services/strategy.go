package services

import (
	"context"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
)

// enrichStrategy decides how a record reaches enrichment. It is chosen once
// per run instead of being re-decided per record.
//
// dispatch returns either an inline result (deferred == false) or promises
// that the result will arrive asynchronously on the run's completions
// channel (deferred == true).
type enrichStrategy interface {
	dispatch(ctx context.Context, rec domain.CandidateRecord) (enriched *domain.EnrichedRecord, deferred bool)
}

// queuedStrategy enqueues records for asynchronous enrichment and falls
// back to synchronous enrichment when the queue cannot accept more work.
type queuedStrategy struct {
	queue    *EnrichmentQueue
	enricher driven.Enricher
	deliver  func(domain.EnrichedRecord)
	onQueued func()
}

func (s *queuedStrategy) dispatch(ctx context.Context, rec domain.CandidateRecord) (*domain.EnrichedRecord, bool) {
	if s.queue.Enqueue(rec, s.deliver) {
		if s.onQueued != nil {
			s.onQueued()
		}
		return nil, true
	}
	return enrichInline(ctx, s.enricher, rec), false
}

// syncStrategy enriches every record inline.
type syncStrategy struct {
	enricher driven.Enricher
}

func (s *syncStrategy) dispatch(ctx context.Context, rec domain.CandidateRecord) (*domain.EnrichedRecord, bool) {
	return enrichInline(ctx, s.enricher, rec), false
}

// disabledStrategy submits records unenriched.
type disabledStrategy struct{}

func (disabledStrategy) dispatch(_ context.Context, rec domain.CandidateRecord) (*domain.EnrichedRecord, bool) {
	return &domain.EnrichedRecord{CandidateRecord: rec}, false
}

// enrichInline enriches synchronously, degrading to the unenriched record
// on failure.
func enrichInline(ctx context.Context, enricher driven.Enricher, rec domain.CandidateRecord) *domain.EnrichedRecord {
	enriched, err := enricher.Enrich(ctx, rec)
	if err != nil || enriched == nil {
		return &domain.EnrichedRecord{CandidateRecord: rec}
	}
	return enriched
}
