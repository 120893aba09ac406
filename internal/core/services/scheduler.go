package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driving"
	"github.com/ChrisPatten/haven-sub000/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler runs background collection for every configured scope on an
// interval. Task state is persisted so intervals survive restarts.
type Scheduler struct {
	config    domain.SchedulerConfig
	store     driven.SchedulerStore
	scopes    driven.ScopeStore
	collector driving.Collector
	history   driven.RunHistoryStore

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. history may be nil.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	scopes driven.ScopeStore,
	collector driving.Collector,
	history driven.RunHistoryStore,
) *Scheduler {
	return &Scheduler{
		config:    config,
		store:     store,
		scopes:    scopes,
		collector: collector,
		history:   history,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: initialising tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler and waits for in-flight runs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// initialiseTasks ensures every configured scope has a scheduled task.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	scopes, err := s.scopes.List(ctx)
	if err != nil {
		return err
	}

	for _, scope := range scopes {
		if err := s.ensureTask(ctx, scope.ID); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or refreshes the task for a scope.
func (s *Scheduler) ensureTask(ctx context.Context, scopeKey string) error {
	id := domain.TaskIDForScope(scopeKey)
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			ScopeKey: scopeKey,
			Interval: s.config.Interval,
			Enabled:  true,
			NextRun:  time.Now().Add(s.config.Interval),
		}
	} else if task.Interval != s.config.Interval {
		task.Interval = s.config.Interval
		task.NextRun = time.Now().Add(s.config.Interval)
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: listing tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes one collection run for a task's scope.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		started := time.Now()
		_, err := s.collector.Run(ctx, driving.RunOptions{ScopeKey: task.ScopeKey})

		task.LastRun = started
		task.NextRun = time.Now().Add(task.Interval)
		switch {
		case err == nil:
			task.LastError = ""
			task.LastSuccess = time.Now()
		case errors.Is(err, domain.ErrRunInProgress):
			// A manual run beat us to it; try again next interval.
			logger.Debug("scheduler: scope %s already running", task.ScopeKey)
		default:
			task.LastError = err.Error()
			logger.Warn("scheduler: collecting %s: %v", task.ScopeKey, err)
		}

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Warn("scheduler: saving task %s: %v", task.ID, saveErr)
		}

		if s.history != nil && s.config.HistoryKeep > 0 {
			if pruneErr := s.history.Prune(ctx, s.config.HistoryKeep); pruneErr != nil {
				logger.Warn("scheduler: pruning history: %v", pruneErr)
			}
		}
	}()
}
