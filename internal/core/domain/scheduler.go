package domain

import "time"

// ScheduledTask represents a recurring background collection run for one
// scope. Task state outlives the process so intervals survive restarts.
type ScheduledTask struct {
	// ID is the unique task identifier ("collect:" + scope key).
	ID string

	// ScopeKey is the scope this task collects.
	ScopeKey string

	// Interval defines how often the scope should be collected.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// TaskIDForScope builds the scheduled-task ID for a scope.
func TaskIDForScope(scopeKey string) string {
	return "collect:" + scopeKey
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool `toml:"enabled"`

	// Interval is the default collection interval for every scope.
	Interval time.Duration `toml:"interval"`

	// HistoryKeep bounds retained run-history records per scope.
	HistoryKeep int `toml:"history_keep"`
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:     false,
		Interval:    30 * time.Minute,
		HistoryKeep: 100,
	}
}
