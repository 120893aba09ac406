package services

import (
	"context"
	"sync"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
	"github.com/ChrisPatten/haven-sub000/internal/logger"
)

// enrichJob pairs a record with its completion callback.
type enrichJob struct {
	rec      domain.CandidateRecord
	complete func(domain.EnrichedRecord)
}

// EnrichmentQueue is a bounded asynchronous enrichment pipeline. It decouples
// record extraction from enrichment latency: the extraction loop keeps going
// while workers enrich at their own pace, and completions arrive out of order.
//
// A queue instance serves one run. Enqueue and Close are called from the
// run's owner goroutine only; completions fire on worker goroutines, so
// callbacks must hand results back to the owner (typically via a channel)
// rather than mutate run state directly.
type EnrichmentQueue struct {
	enricher driven.Enricher
	jobs     chan enrichJob
	wg       sync.WaitGroup
	closed   bool
}

// NewEnrichmentQueue creates a queue with the given worker count and
// buffered capacity and starts its workers. Close must be called to release
// them.
func NewEnrichmentQueue(ctx context.Context, enricher driven.Enricher, workers, capacity int) *EnrichmentQueue {
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = workers
	}

	q := &EnrichmentQueue{
		enricher: enricher,
		jobs:     make(chan enrichJob, capacity),
	}

	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker(ctx)
	}
	return q
}

// Enqueue submits a record for asynchronous enrichment. It never blocks:
// false means the queue is full or closed and the caller must fall back to
// synchronous enrichment. When true is returned, the completion callback is
// guaranteed to fire exactly once, even if enrichment itself fails (the
// record is then delivered unenriched).
func (q *EnrichmentQueue) Enqueue(rec domain.CandidateRecord, complete func(domain.EnrichedRecord)) bool {
	if q.closed {
		return false
	}
	select {
	case q.jobs <- enrichJob{rec: rec, complete: complete}:
		return true
	default:
		return false
	}
}

// Close stops accepting work and waits for in-flight enrichments to finish.
// Callers must have drained their completions first; a completion callback
// blocked on an unread channel would deadlock this wait.
func (q *EnrichmentQueue) Close() {
	if q.closed {
		return
	}
	q.closed = true
	close(q.jobs)
	q.wg.Wait()
}

// worker enriches jobs until the queue closes. Enrichment failure degrades
// to delivering the record unenriched; the completion always fires.
func (q *EnrichmentQueue) worker(ctx context.Context) {
	defer q.wg.Done()

	for job := range q.jobs {
		enriched, err := q.enricher.Enrich(ctx, job.rec)
		if err != nil || enriched == nil {
			if err != nil {
				logger.Debug("enrichment failed for %s, submitting unenriched: %v", job.rec.Key.Ref, err)
			}
			enriched = &domain.EnrichedRecord{CandidateRecord: job.rec}
		}
		job.complete(*enriched)
	}
}
