package driving

import (
	"context"
	"time"

	"github.com/ChrisPatten/haven-sub000/internal/core/domain"
)

// Progress is a point-in-time snapshot of a run, delivered at run start
// and after every batch flush.
type Progress struct {
	Scanned   int
	Matched   int
	Submitted int
	Skipped   int

	// Total is the number of candidate keys to process, nil until known.
	Total *int

	Found    int
	Queued   int
	Enriched int
}

// ProgressFunc receives progress snapshots. Implementations must be fast;
// they run on the scope's owner goroutine.
type ProgressFunc func(Progress)

// RunOptions parameterises one collection run.
type RunOptions struct {
	// ScopeKey selects the scope to collect.
	ScopeKey string

	// Since and Until bound the requested window. Nil ends default to
	// "from the latest fence" and "now" respectively.
	Since *time.Time
	Until *time.Time

	// Direction overrides the scope's configured processing order.
	Direction domain.Direction

	// Limit caps the number of submitted (not scanned) records.
	// Zero means unlimited.
	Limit int

	// Reset clears the fence set in memory before the run. The persisted
	// fences are only replaced once the run flushes new coverage or ends
	// successfully; a failed or cancelled reset run leaves them intact.
	Reset bool

	// Progress, when set, receives run snapshots.
	Progress ProgressFunc
}

// RunStatus reports whether a scope is currently running and its counters.
type RunStatus struct {
	ScopeKey string
	Running  bool
	Stats    domain.RunStats
}

// Collector coordinates collection runs. One run per scope at a time;
// independent scopes may run concurrently.
type Collector interface {
	// Run executes one collection run to completion. It returns the final
	// stats together with a nil error for ok and partial outcomes, the
	// context error for cancellation, and a wrapped domain error when the
	// run failed outright.
	Run(ctx context.Context, opts RunOptions) (*domain.RunStats, error)

	// Status returns the live status for a scope.
	Status(ctx context.Context, scopeKey string) (*RunStatus, error)
}
