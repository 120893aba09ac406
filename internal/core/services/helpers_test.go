package services

import (
	"context"
	"sync"
	"time"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
)

// ts builds a test timestamp at the given offset in minutes.
func ts(min int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(min) * time.Minute)
}

func tsp(min int) *time.Time {
	t := ts(min)
	return &t
}

// enrichedAt builds a minimal enriched record with the given timestamp
// offset.
func enrichedAt(min int) domain.EnrichedRecord {
	rec := recordWithKey("rec", int64(min))
	return domain.EnrichedRecord{CandidateRecord: rec}
}

// scriptedIngest implements driven.IngestClient with per-call scripting.
// The default behavior accepts everything.
type scriptedIngest struct {
	mu sync.Mutex

	// script returns the outcomes (or error) for one submission; when nil
	// or exhausted, everything succeeds.
	script []func(recs []domain.EnrichedRecord) ([]driven.PerRecordOutcome, error)

	calls   [][]domain.EnrichedRecord
	singles int
}

var _ driven.IngestClient = (*scriptedIngest)(nil)

func acceptAll(recs []domain.EnrichedRecord) ([]driven.PerRecordOutcome, error) {
	outcomes := make([]driven.PerRecordOutcome, len(recs))
	for i, rec := range recs {
		outcomes[i] = driven.PerRecordOutcome{Key: rec.Key, Success: true}
	}
	return outcomes, nil
}

func (c *scriptedIngest) SubmitBatch(_ context.Context, recs []domain.EnrichedRecord) ([]driven.PerRecordOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := append([]domain.EnrichedRecord(nil), recs...)
	c.calls = append(c.calls, copied)

	if len(c.script) > 0 {
		fn := c.script[0]
		c.script = c.script[1:]
		return fn(recs)
	}
	return acceptAll(recs)
}

func (c *scriptedIngest) Submit(ctx context.Context, rec domain.EnrichedRecord) (driven.PerRecordOutcome, error) {
	c.mu.Lock()
	c.singles++
	c.mu.Unlock()

	outcomes, err := c.SubmitBatch(ctx, []domain.EnrichedRecord{rec})
	if err != nil {
		return driven.PerRecordOutcome{}, err
	}
	return outcomes[0], nil
}

func (c *scriptedIngest) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// submittedRefs flattens the refs of every record across all calls.
func (c *scriptedIngest) submittedRefs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var refs []string
	for _, call := range c.calls {
		for _, rec := range call {
			refs = append(refs, rec.Key.Ref)
		}
	}
	return refs
}

// noSleep replaces backoff sleeps in tests.
func noSleep(_ context.Context, _ time.Duration) error { return nil }
