package cli

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ChrisPatten/haven-sub000/internal/adapters/driven/storage/memory"
	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driving"
)

// mockCollector implements driving.Collector for testing.
type mockCollector struct {
	mu     sync.Mutex
	runs   []driving.RunOptions
	stats  domain.RunStats
	err    error
	status *driving.RunStatus
}

func (m *mockCollector) Run(_ context.Context, opts driving.RunOptions) (*domain.RunStats, error) {
	m.mu.Lock()
	m.runs = append(m.runs, opts)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	stats := m.stats
	return &stats, nil
}

func (m *mockCollector) Status(_ context.Context, scopeKey string) (*driving.RunStatus, error) {
	if m.status != nil {
		return m.status, nil
	}
	return &driving.RunStatus{ScopeKey: scopeKey}, nil
}

func (m *mockCollector) recordedRuns() []driving.RunOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driving.RunOptions(nil), m.runs...)
}

// mockScopeStore implements driven.ScopeStore for testing.
type mockScopeStore struct {
	scopes []domain.ScopeConfig
}

func (m *mockScopeStore) Get(_ context.Context, scopeKey string) (*domain.ScopeConfig, error) {
	for i := range m.scopes {
		if m.scopes[i].ID == scopeKey {
			cfg := m.scopes[i]
			return &cfg, nil
		}
	}
	return nil, fmt.Errorf("%w: scope %s", domain.ErrNotFound, scopeKey)
}

func (m *mockScopeStore) List(_ context.Context) ([]domain.ScopeConfig, error) {
	return append([]domain.ScopeConfig(nil), m.scopes...), nil
}

func testScope(id string) domain.ScopeConfig {
	return domain.ScopeConfig{
		ID:         id,
		Kind:       domain.ScopeKindFilesystem,
		Filesystem: &domain.FilesystemOptions{Root: "/tmp/haven-cli-test"},
	}
}

// setupCLITest swaps every package-level service for mocks and restores
// them (and flag state) when the test finishes.
func setupCLITest(t *testing.T, scopes ...domain.ScopeConfig) (*mockCollector, *mockScopeStore) {
	t.Helper()

	collector := &mockCollector{}
	scopeMock := &mockScopeStore{scopes: scopes}

	oldWired := servicesWired
	oldScopes := scopeStore
	oldStates := stateStore
	oldHistory := historyStore
	oldSchedStore := schedulerStore
	oldFactory := adapterFactory
	oldCollector := collectorService
	oldScheduler := schedulerService
	oldEngineCfg := engineCfg
	oldSchedulerCfg := schedulerCfg

	servicesWired = true
	scopeStore = scopeMock
	stateStore = memory.NewFenceStateStore()
	historyStore = memory.NewRunHistoryStore()
	schedulerStore = memory.NewSchedulerStore()
	adapterFactory = nil
	collectorService = collector
	schedulerService = nil
	engineCfg = domain.DefaultEngineConfig()
	schedulerCfg = domain.DefaultSchedulerConfig()

	t.Cleanup(func() {
		servicesWired = oldWired
		scopeStore = oldScopes
		stateStore = oldStates
		historyStore = oldHistory
		schedulerStore = oldSchedStore
		adapterFactory = oldFactory
		collectorService = oldCollector
		schedulerService = oldScheduler
		engineCfg = oldEngineCfg
		schedulerCfg = oldSchedulerCfg

		configPath = ""
		verbose = false
		runSince, runUntil, runDirection = "", "", ""
		runLimit = 0
		runReset, runWatch = false, false
		historyLimit = 20
	})

	return collector, scopeMock
}

// executeCommand runs the root command with args and captures its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
