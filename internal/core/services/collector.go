package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driving"
	"github.com/ChrisPatten/haven-sub000/internal/logger"
)

// Ensure Collector implements the interface.
var _ driving.Collector = (*Collector)(nil)

// Collector coordinates collection runs. Each scope gets exactly one owner
// goroutine per run; all fence and batch mutation happens there, so no
// fine-grained locking guards run state. Independent scopes run concurrently.
type Collector struct {
	scopes   driven.ScopeStore
	factory  driven.AdapterFactory
	states   driven.FenceStateStore
	enricher driven.Enricher
	ingest   driven.IngestClient
	history  driven.RunHistoryStore
	config   domain.EngineConfig

	// Status tracking
	mu     sync.RWMutex
	active map[string]driving.RunStatus
}

// NewCollector creates a collector. enricher may be nil to disable
// enrichment entirely; history may be nil to skip run history.
func NewCollector(
	scopes driven.ScopeStore,
	factory driven.AdapterFactory,
	states driven.FenceStateStore,
	enricher driven.Enricher,
	ingest driven.IngestClient,
	history driven.RunHistoryStore,
	config domain.EngineConfig,
) *Collector {
	return &Collector{
		scopes:   scopes,
		factory:  factory,
		states:   states,
		enricher: enricher,
		ingest:   ingest,
		history:  history,
		config:   config,
		active:   make(map[string]driving.RunStatus),
	}
}

// Run executes one collection run for a scope.
func (c *Collector) Run(ctx context.Context, opts driving.RunOptions) (*domain.RunStats, error) {
	if opts.ScopeKey == "" {
		return nil, fmt.Errorf("%w: scope key required", domain.ErrInvalidInput)
	}
	if !c.claim(opts.ScopeKey) {
		return nil, fmt.Errorf("%w: scope %s", domain.ErrRunInProgress, opts.ScopeKey)
	}
	defer c.release(opts.ScopeKey)

	cfg, err := c.scopes.Get(ctx, opts.ScopeKey)
	if err != nil {
		return nil, fmt.Errorf("get scope %s: %w", opts.ScopeKey, err)
	}

	adapter, err := c.factory.Create(ctx, *cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create adapter for %s: %v", domain.ErrAdapterFailure, opts.ScopeKey, err)
	}
	defer adapter.Close()

	r := &run{
		c:       c,
		cfg:     cfg,
		adapter: adapter,
		opts:    opts,
		engine:  mergeEngineConfig(c.config, cfg),
	}
	return r.execute(ctx)
}

// Status returns the live status for a scope.
func (c *Collector) Status(_ context.Context, scopeKey string) (*driving.RunStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if status, ok := c.active[scopeKey]; ok {
		return &status, nil
	}
	return &driving.RunStatus{ScopeKey: scopeKey, Running: false}, nil
}

// claim marks a scope as running; false means a run is already in flight.
func (c *Collector) claim(scopeKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if status, ok := c.active[scopeKey]; ok && status.Running {
		return false
	}
	c.active[scopeKey] = driving.RunStatus{ScopeKey: scopeKey, Running: true}
	return true
}

// release clears the running flag for a scope.
func (c *Collector) release(scopeKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, scopeKey)
}

// updateStatus refreshes the status snapshot for a scope. Called from the
// owner goroutine at progress points.
func (c *Collector) updateStatus(scopeKey string, stats domain.RunStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[scopeKey] = driving.RunStatus{ScopeKey: scopeKey, Running: true, Stats: stats}
}

// mergeEngineConfig applies per-scope overrides onto the engine defaults.
func mergeEngineConfig(base domain.EngineConfig, cfg *domain.ScopeConfig) domain.EngineConfig {
	out := base
	if cfg.BatchSize > 0 {
		out.BatchSize = cfg.BatchSize
	}
	if cfg.SaveInterval > 0 {
		out.SaveInterval = cfg.SaveInterval
	}
	def := domain.DefaultEngineConfig()
	if out.BatchSize <= 0 {
		out.BatchSize = def.BatchSize
	}
	if out.SaveInterval <= 0 {
		out.SaveInterval = def.SaveInterval
	}
	if out.EnrichWorkers < 0 {
		out.EnrichWorkers = 0
	}
	if out.EnrichQueueDepth <= 0 {
		out.EnrichQueueDepth = def.EnrichQueueDepth
	}
	return out
}

// run holds the mutable state of one collection run. All fields are owned
// by the run's goroutine; enrichment workers only touch the completions
// channel.
type run struct {
	c       *Collector
	cfg     *domain.ScopeConfig
	adapter driven.SourceAdapter
	opts    driving.RunOptions
	engine  domain.EngineConfig

	direction domain.Direction
	state     domain.ScopeState
	stats     domain.RunStats
	startedAt time.Time
	total     int

	// priorFences holds the pre-reset coverage. It stays authoritative on
	// disk until the first successful flush of the reset run; a reset run
	// that fails or is cancelled before then must not wipe it.
	priorFences domain.FenceSet
	flushed     bool

	strategy     enrichStrategy
	queue        *EnrichmentQueue
	completions  chan domain.EnrichedRecord
	pendingAsync int
	accepted     int

	submitter *BatchSubmitter
	lastSave  time.Time
}

// execute drives the run to a terminal status.
func (r *run) execute(ctx context.Context) (*domain.RunStats, error) {
	r.startedAt = time.Now()
	r.lastSave = r.startedAt
	r.direction = r.opts.Direction
	if r.direction == "" {
		r.direction = r.cfg.Direction
	}
	if r.direction == "" {
		r.direction = domain.DirectionDescending
	}

	state, err := r.c.states.Load(ctx, r.opts.ScopeKey)
	if err != nil {
		// Unreadable state means nothing covered yet, never a dead run.
		logger.Warn("loading state for %s: %v", r.opts.ScopeKey, err)
		state = domain.ScopeState{Version: domain.ScopeStateVersion}
	}
	r.state = state
	if r.opts.Reset {
		logger.Info("reset requested for %s, ignoring %d persisted fences", r.opts.ScopeKey, len(r.state.Fences))
		r.priorFences = r.state.Fences
		r.state.Fences = nil
	}

	keys, err := r.listCandidates(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return r.finishCancelled(ctx)
		}
		return r.finishFailed(ctx, fmt.Errorf("%w: list candidates for %s: %v", domain.ErrAdapterFailure, r.opts.ScopeKey, err))
	}

	keys = domain.ComposeOrder(keys, r.state.Fences, r.direction, r.opts.Since)
	r.stats.Found = len(keys)
	r.total = len(keys)
	logger.Info("scope %s: %d candidates across %d fences", r.opts.ScopeKey, len(keys), len(r.state.Fences))
	r.progress()

	r.setupPipeline(ctx)

	if err := r.iterate(ctx, keys); err != nil {
		return r.finishCancelled(ctx)
	}
	if err := r.drainAll(ctx); err != nil {
		return r.finishCancelled(ctx)
	}
	r.shutdownQueue()

	if r.opts.Limit > 0 {
		allowed := r.opts.Limit - r.stats.Submitted
		if allowed < 0 {
			allowed = 0
		}
		if r.submitter.Len() > allowed {
			r.submitter.Truncate(allowed)
		}
	}
	if err := r.submitter.Finish(ctx); err != nil {
		return r.finishCancelled(ctx)
	}

	return r.finish(ctx)
}

// listCandidates unions candidate keys across every gap in the requested
// window. Interrupted runs leave interior gaps; listing per gap is what
// makes them self-heal.
func (r *run) listCandidates(ctx context.Context) ([]domain.CandidateKey, error) {
	gaps := r.state.Fences.Gaps(r.opts.Since, r.opts.Until, time.Now())

	var keys []domain.CandidateKey
	for _, gap := range gaps {
		ks, err := r.adapter.ListCandidateKeys(ctx, gap)
		if err != nil {
			return nil, err
		}
		keys = append(keys, ks...)
	}
	return keys, nil
}

// setupPipeline picks the enrichment strategy for the run and builds the
// batch submitter.
func (r *run) setupPipeline(ctx context.Context) {
	switch {
	case r.c.enricher == nil:
		r.strategy = disabledStrategy{}
	case r.engine.EnrichWorkers == 0:
		r.strategy = &syncStrategy{enricher: r.c.enricher}
	default:
		r.queue = NewEnrichmentQueue(ctx, r.c.enricher, r.engine.EnrichWorkers, r.engine.EnrichQueueDepth)
		r.completions = make(chan domain.EnrichedRecord, r.engine.EnrichQueueDepth+r.engine.EnrichWorkers)
		completions := r.completions
		r.strategy = &queuedStrategy{
			queue:    r.queue,
			enricher: r.c.enricher,
			deliver:  func(er domain.EnrichedRecord) { completions <- er },
			onQueued: func() { r.stats.Queued++ },
		}
	}

	r.submitter = NewBatchSubmitter(r.c.ingest, r.engine, &r.stats, func(submitted []time.Time) {
		r.flushCompleted(ctx, submitted)
	})
}

// iterate walks the composed key order, resolving and dispatching records.
// A non-nil return always means cancellation.
func (r *run) iterate(ctx context.Context, keys []domain.CandidateKey) error {
	it := newResolveIter(ctx, r.adapter, keys, r.cfg.ResolveConcurrency)
	defer it.stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.drainReady(ctx); err != nil {
			return err
		}
		if r.opts.Limit > 0 && r.accepted >= r.opts.Limit {
			return nil
		}

		res, ok := it.next(ctx)
		if !ok {
			return nil
		}
		if res.err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Debug("resolving %s: %v", res.key.Ref, res.err)
			r.stats.Errors++
			continue
		}
		r.stats.Scanned++

		stop, err := r.handleRecord(ctx, res.rec)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}

		if time.Since(r.lastSave) >= r.engine.SaveInterval {
			r.persist(ctx, domain.RunStatusRunning, time.Time{})
		}
	}
}

// handleRecord applies duplicate and window checks to one resolved record
// and dispatches it. stop means the chronological bound was crossed and
// iteration can end early.
func (r *run) handleRecord(ctx context.Context, rec *domain.CandidateRecord) (stop bool, err error) {
	ts := rec.Timestamp

	// Fences are checked per record, independent of gap computation: gaps
	// are coarse and a key at the edge may still be covered.
	if r.state.Fences.Covers(ts) {
		r.stats.Skipped++
		return false, nil
	}

	if r.direction == domain.DirectionDescending {
		if r.opts.Until != nil && ts.After(*r.opts.Until) {
			r.stats.Skipped++
			return false, nil
		}
		if r.opts.Since != nil && ts.Before(*r.opts.Since) {
			// Keys arrive newest-first: everything after this is older.
			return true, nil
		}
	} else {
		if r.opts.Since != nil && ts.Before(*r.opts.Since) {
			r.stats.Skipped++
			return false, nil
		}
		if r.opts.Until != nil && ts.After(*r.opts.Until) {
			return true, nil
		}
	}
	r.stats.Matched++

	enriched, deferred := r.strategy.dispatch(ctx, *rec)
	r.accepted++
	if deferred {
		r.pendingAsync++
		return false, nil
	}
	if _, disabled := r.strategy.(disabledStrategy); !disabled {
		r.stats.Enriched++
	}
	return false, r.submitter.Submit(ctx, *enriched)
}

// drainReady folds any completed enrichments into the batch without
// blocking, in the order they completed.
func (r *run) drainReady(ctx context.Context) error {
	for {
		select {
		case er := <-r.completions:
			r.pendingAsync--
			r.stats.Enriched++
			if err := r.submitter.Submit(ctx, er); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// drainAll blocks until every accepted enrichment has completed. There is
// no timeout: correctness over liveness at run end. Only cancellation can
// interrupt the wait.
func (r *run) drainAll(ctx context.Context) error {
	for r.pendingAsync > 0 {
		select {
		case er := <-r.completions:
			r.pendingAsync--
			r.stats.Enriched++
			if err := r.submitter.Submit(ctx, er); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// shutdownQueue closes the enrichment queue, draining stray completions
// concurrently so blocked workers can exit.
func (r *run) shutdownQueue() {
	if r.queue == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		r.queue.Close()
		close(done)
	}()
	for {
		select {
		case <-r.completions:
			r.pendingAsync--
		case <-done:
			r.queue = nil
			return
		}
	}
}

// flushCompleted runs after every batch flush. When anything was
// submitted it covers exactly the submitted subset's timestamp span and
// persists; either way the caller gets a progress snapshot, so a flush of
// all-failing records still surfaces its error counts.
func (r *run) flushCompleted(ctx context.Context, submitted []time.Time) {
	if len(submitted) > 0 {
		lo, hi := submitted[0], submitted[0]
		for _, ts := range submitted[1:] {
			if ts.Before(lo) {
				lo = ts
			}
			if ts.After(hi) {
				hi = ts
			}
		}
		r.state.Fences = r.state.Fences.Insert(domain.Fence{Earliest: lo, Latest: hi})
		r.flushed = true
		r.persist(ctx, domain.RunStatusRunning, time.Time{})
	} else if time.Since(r.lastSave) >= r.engine.SaveInterval {
		r.persist(ctx, domain.RunStatusRunning, time.Time{})
	}
	r.progress()
}

// persist writes the scope state. Persistence failures are logged, never
// fatal; the fences in memory remain authoritative for this run.
//
// A reset run replaces the on-disk fence set only once something new has
// landed or the run ends successfully. Until then the prior coverage is
// what gets written, so a reset run that dies early leaves it intact.
func (r *run) persist(ctx context.Context, status domain.RunStatus, endedAt time.Time) {
	state := r.state
	state.Version = domain.ScopeStateVersion
	if r.opts.Reset && !r.flushed && status != domain.RunStatusOK && status != domain.RunStatusPartial {
		state.Fences = r.priorFences
	}
	state.LastRun = &domain.RunSummary{
		Status:    status,
		StartedAt: r.startedAt,
		EndedAt:   endedAt,
		Stats:     r.stats,
	}
	if err := r.c.states.Save(context.WithoutCancel(ctx), r.opts.ScopeKey, state); err != nil {
		logger.Warn("persisting state for %s: %v", r.opts.ScopeKey, err)
		return
	}
	r.lastSave = time.Now()
}

// progress emits a snapshot to the caller and refreshes the status map.
func (r *run) progress() {
	r.c.updateStatus(r.opts.ScopeKey, r.stats)
	if r.opts.Progress == nil {
		return
	}
	total := r.total
	r.opts.Progress(driving.Progress{
		Scanned:   r.stats.Scanned,
		Matched:   r.stats.Matched,
		Submitted: r.stats.Submitted,
		Skipped:   r.stats.Skipped,
		Total:     &total,
		Found:     r.stats.Found,
		Queued:    r.stats.Queued,
		Enriched:  r.stats.Enriched,
	})
}

// finish persists the terminal state and derives the run outcome.
func (r *run) finish(ctx context.Context) (*domain.RunStats, error) {
	status := r.stats.TerminalStatus()
	ended := time.Now()
	r.persist(ctx, status, ended)
	r.recordHistory(ctx, status, ended, "")
	r.progress()
	logger.Info("scope %s finished %s: %d submitted, %d skipped, %d errors",
		r.opts.ScopeKey, status, r.stats.Submitted, r.stats.Skipped, r.stats.Errors)

	if status == domain.RunStatusFailed {
		return &r.stats, fmt.Errorf("%w: %d errors, nothing submitted", domain.ErrSubmissionFailed, r.stats.Errors)
	}
	return &r.stats, nil
}

// finishCancelled persists best-effort state with status cancelled and
// re-raises the cancellation so callers can tell "stopped" from "finished".
// The unflushed remainder stays unfenced; the next run picks it up.
func (r *run) finishCancelled(ctx context.Context) (*domain.RunStats, error) {
	r.shutdownQueue()
	err := ctx.Err()
	if err == nil {
		err = context.Canceled
	}
	ended := time.Now()
	r.persist(ctx, domain.RunStatusCancelled, ended)
	r.recordHistory(ctx, domain.RunStatusCancelled, ended, err.Error())
	logger.Info("scope %s cancelled: %d submitted, fences preserved", r.opts.ScopeKey, r.stats.Submitted)
	return &r.stats, err
}

// finishFailed handles a fatal adapter failure: nothing processed, no
// fence advanced.
func (r *run) finishFailed(ctx context.Context, err error) (*domain.RunStats, error) {
	ended := time.Now()
	r.persist(ctx, domain.RunStatusFailed, ended)
	r.recordHistory(ctx, domain.RunStatusFailed, ended, err.Error())
	return &r.stats, err
}

// recordHistory appends one run record; best effort.
func (r *run) recordHistory(ctx context.Context, status domain.RunStatus, ended time.Time, errMsg string) {
	if r.c.history == nil {
		return
	}
	rec := &domain.RunRecord{
		ID:        uuid.NewString(),
		ScopeKey:  r.opts.ScopeKey,
		Status:    status,
		StartedAt: r.startedAt,
		EndedAt:   ended,
		Stats:     r.stats,
		Error:     errMsg,
	}
	if err := r.c.history.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("recording run history for %s: %v", r.opts.ScopeKey, err)
	}
}
