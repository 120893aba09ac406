package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
	"github.com/ChrisPatten/haven-sub000/internal/logger"
)

// BatchSubmitter accumulates enriched records and submits them in batches
// to the ingestion boundary. It retries transient failures with backoff,
// tracks per-record outcomes, and reports the timestamps of the succeeded
// subset so the caller can extend fences for exactly what was submitted.
//
// A submitter serves one run and is driven entirely from the run's owner
// goroutine.
type BatchSubmitter struct {
	client  driven.IngestClient
	limiter *rate.Limiter
	stats   *domain.RunStats

	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	batch domain.Batch

	// onFlushed receives the canonical timestamps of the records a flush
	// actually submitted, possibly none. Called after every completed
	// flush of a non-empty batch, and on a cancelled flush that managed
	// partial successes, so the succeeded subset is always fenced.
	onFlushed func(submitted []time.Time)

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewBatchSubmitter creates a submitter for one run. stats is mutated in
// place as outcomes arrive; onFlushed may be nil.
func NewBatchSubmitter(
	client driven.IngestClient,
	cfg domain.EngineConfig,
	stats *domain.RunStats,
	onFlushed func(submitted []time.Time),
) *BatchSubmitter {
	def := domain.DefaultEngineConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxSubmitAttempts <= 0 {
		cfg.MaxSubmitAttempts = def.MaxSubmitAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = def.RetryBaseDelay
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = def.RetryMaxDelay
	}

	var limiter *rate.Limiter
	if cfg.SubmitRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SubmitRatePerSec), 1)
	}

	return &BatchSubmitter{
		client:      client,
		limiter:     limiter,
		stats:       stats,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxSubmitAttempts,
		baseDelay:   cfg.RetryBaseDelay,
		maxDelay:    cfg.RetryMaxDelay,
		onFlushed:   onFlushed,
		sleep:       sleepCtx,
	}
}

// Submit appends a record to the current batch, flushing when the batch
// reaches the configured threshold.
func (b *BatchSubmitter) Submit(ctx context.Context, rec domain.EnrichedRecord) error {
	b.batch.Append(rec)
	if b.batch.Len() >= b.batchSize {
		return b.Flush(ctx)
	}
	return nil
}

// Len returns the number of records buffered and not yet flushed.
func (b *BatchSubmitter) Len() int {
	return b.batch.Len()
}

// Truncate drops buffered records beyond n. Used to honor a submission
// limit mid-batch before the final flush.
func (b *BatchSubmitter) Truncate(n int) {
	b.batch.Truncate(n)
}

// Finish flushes any remainder. The run's aggregate stats live in the
// RunStats passed at construction.
func (b *BatchSubmitter) Finish(ctx context.Context) error {
	return b.Flush(ctx)
}

// Flush submits the current batch. Per-record failures marked retryable by
// the boundary, and transport-level transient errors, are retried with
// exponential backoff (base delay times attempt number, capped); exhausted
// retries and permanent failures are counted as errors without aborting the
// run. Only cancellation returns an error; records still pending at that
// point are neither submitted nor counted, so the next run retries them.
func (b *BatchSubmitter) Flush(ctx context.Context) error {
	if b.batch.Len() == 0 {
		return nil
	}

	pending := b.batch.Records
	b.batch.Reset()

	var submitted []time.Time
	flushErr := b.flush(ctx, pending, &submitted)

	// The callback fires even with zero successes so the caller sees
	// error counts promptly, and fires on cancellation whenever part of
	// the batch did land.
	if b.onFlushed != nil && (flushErr == nil || len(submitted) > 0) {
		b.onFlushed(submitted)
	}
	return flushErr
}

// flush drives the retry loop for one drained batch, appending the
// succeeded timestamps to submitted as they land.
func (b *BatchSubmitter) flush(ctx context.Context, pending []domain.EnrichedRecord, submitted *[]time.Time) error {
	for attempt := 1; len(pending) > 0; attempt++ {
		if err := b.await(ctx); err != nil {
			return err
		}

		outcomes, err := b.submitOnce(ctx, pending)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, domain.ErrTransient) {
				logger.Warn("batch of %d rejected permanently: %v", len(pending), err)
				b.stats.Errors += len(pending)
				pending = nil
				break
			}
			logger.Debug("transient submission failure (attempt %d/%d): %v", attempt, b.maxAttempts, err)
		} else {
			var retry []domain.EnrichedRecord
			for i, rec := range pending {
				if i >= len(outcomes) {
					// Boundary under-reported; treat the tail as retryable.
					retry = append(retry, rec)
					continue
				}
				out := outcomes[i]
				switch {
				case out.Success:
					b.stats.NoteSubmitted(rec.Timestamp)
					*submitted = append(*submitted, rec.Timestamp)
				case out.Retryable:
					retry = append(retry, rec)
				default:
					logger.Debug("record %s rejected: %s", rec.Key.Ref, out.ErrorMessage)
					b.stats.Errors++
				}
			}
			pending = retry
		}

		if len(pending) == 0 {
			break
		}
		if attempt >= b.maxAttempts {
			logger.Warn("retries exhausted, %d records errored", len(pending))
			b.stats.Errors += len(pending)
			pending = nil
			break
		}
		if err := b.backoff(ctx, attempt); err != nil {
			return err
		}
	}
	return nil
}

// submitOnce sends the records, using single-record mode for a batch of one.
func (b *BatchSubmitter) submitOnce(ctx context.Context, recs []domain.EnrichedRecord) ([]driven.PerRecordOutcome, error) {
	if len(recs) == 1 {
		out, err := b.client.Submit(ctx, recs[0])
		if err != nil {
			return nil, err
		}
		return []driven.PerRecordOutcome{out}, nil
	}
	return b.client.SubmitBatch(ctx, recs)
}

// await honors the submission rate limit.
func (b *BatchSubmitter) await(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

// backoff sleeps base*attempt capped at the configured maximum.
func (b *BatchSubmitter) backoff(ctx context.Context, attempt int) error {
	delay := b.baseDelay * time.Duration(attempt)
	if delay > b.maxDelay {
		delay = b.maxDelay
	}
	return b.sleep(ctx, delay)
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
