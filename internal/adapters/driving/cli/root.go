// Package cli implements the cobra command surface. Commands talk to the
// engine through package-level service variables so tests can swap in mocks.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisPatten/haven-sub000/internal/adapters/driven/config/file"
	"github.com/ChrisPatten/haven-sub000/internal/adapters/driven/ingest/spool"
	"github.com/ChrisPatten/haven-sub000/internal/adapters/driven/statefile"
	"github.com/ChrisPatten/haven-sub000/internal/adapters/driven/storage/sqlite"
	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driven"
	"github.com/ChrisPatten/haven-sub000/internal/core/ports/driving"
	"github.com/ChrisPatten/haven-sub000/internal/core/services"
	"github.com/ChrisPatten/haven-sub000/internal/logger"
	"github.com/ChrisPatten/haven-sub000/internal/sources"
)

// version is stamped by Execute.
var version = "dev"

var (
	configPath string
	verbose    bool
)

// Package-level services, wired by initServices on first command run.
// Tests replace these and set servicesWired to bypass real wiring.
var (
	servicesWired bool

	scopeStore       driven.ScopeStore
	stateStore       driven.FenceStateStore
	historyStore     driven.RunHistoryStore
	schedulerStore   driven.SchedulerStore
	adapterFactory   driven.AdapterFactory
	collectorService driving.Collector
	schedulerService driving.Scheduler

	engineCfg    = domain.DefaultEngineConfig()
	schedulerCfg = domain.DefaultSchedulerConfig()

	// db is kept so Execute can close it on exit.
	db *sqlite.Store
)

var rootCmd = &cobra.Command{
	Use:   "haven",
	Short: "Incremental personal-data collection engine",
	Long: `Haven collects records from configured scopes (watched directory
trees, maildirs), tracks covered time ranges as fences, and on each run
fetches only what the fences do not yet cover. Accepted records land in a
local JSONL outbox for downstream delivery.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if servicesWired {
			return nil
		}
		return initServices()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file path (default ~/.haven/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose logging")
}

// Execute wires the real services and runs the root command.
func Execute(ver string) error {
	version = ver
	defer func() {
		if db != nil {
			if err := db.Close(); err != nil {
				logger.Warn("failed to close database: %v", err)
			}
		}
	}()
	return rootCmd.Execute()
}

// initServices builds the production dependency graph: TOML scope config,
// JSON fence state files, sqlite run history and scheduler state, and the
// spool outbox as the ingest client.
func initServices() error {
	path := configPath
	if path == "" {
		var err error
		path, err = file.DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
	}

	configStore, err := file.NewConfigStore(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	scopeStore = configStore
	engineCfg = configStore.Engine()
	schedulerCfg = configStore.Scheduler()

	stateDir, err := statefile.DefaultDir()
	if err != nil {
		return fmt.Errorf("failed to resolve state directory: %w", err)
	}
	stateStore = statefile.New(stateDir)

	db, err = sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	historyStore = db.RunHistoryStore()
	schedulerStore = db.SchedulerStore()

	outboxDir, err := spool.DefaultDir()
	if err != nil {
		return fmt.Errorf("failed to resolve outbox directory: %w", err)
	}

	adapterFactory = sources.NewFactory()
	collectorService = services.NewCollector(
		scopeStore,
		adapterFactory,
		stateStore,
		driven.PassthroughEnricher{},
		spool.New(outboxDir),
		historyStore,
		engineCfg,
	)
	schedulerService = services.NewScheduler(
		schedulerCfg,
		schedulerStore,
		scopeStore,
		collectorService,
		historyStore,
	)

	servicesWired = true
	return nil
}
