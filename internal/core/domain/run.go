package domain

import "time"

// RunStatus describes where a collection run is in its lifecycle.
type RunStatus string

const (
	RunStatusIdle      RunStatus = "idle"
	RunStatusRunning   RunStatus = "running"
	RunStatusOK        RunStatus = "ok"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunStats counts what one run did. Counters are cumulative over the run.
type RunStats struct {
	// Found is the number of candidate keys the composed order contained.
	Found int `json:"found"`

	// Scanned counts records successfully resolved.
	Scanned int `json:"scanned"`

	// Matched counts records that passed the window and duplicate checks.
	Matched int `json:"matched"`

	// Submitted counts records durably accepted by the boundary.
	Submitted int `json:"submitted"`

	// Skipped counts records dropped as already covered or out of window.
	Skipped int `json:"skipped"`

	// Errors counts records lost to resolution failures, permanent
	// rejections and exhausted retries.
	Errors int `json:"errors"`

	// Queued counts records handed to the async enrichment queue.
	Queued int `json:"queued"`

	// Enriched counts records that went through enrichment, queued or
	// inline.
	Enriched int `json:"enriched"`

	// EarliestSubmitted and LatestSubmitted bound the canonical
	// timestamps of everything submitted this run.
	EarliestSubmitted time.Time `json:"earliest_submitted,omitzero"`
	LatestSubmitted   time.Time `json:"latest_submitted,omitzero"`
}

// NoteSubmitted records one successful submission at the given canonical
// timestamp.
func (s *RunStats) NoteSubmitted(ts time.Time) {
	s.Submitted++
	if s.EarliestSubmitted.IsZero() || ts.Before(s.EarliestSubmitted) {
		s.EarliestSubmitted = ts
	}
	if ts.After(s.LatestSubmitted) {
		s.LatestSubmitted = ts
	}
}

// TerminalStatus derives the run outcome from the counters: a clean run is
// OK, errors alongside submissions are partial, errors with nothing
// submitted mean the run failed.
func (s *RunStats) TerminalStatus() RunStatus {
	switch {
	case s.Errors == 0:
		return RunStatusOK
	case s.Submitted > 0:
		return RunStatusPartial
	default:
		return RunStatusFailed
	}
}

// RunSummary is the last-run digest persisted with a scope's state.
type RunSummary struct {
	Status    RunStatus `json:"status"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
	Stats     RunStats  `json:"stats"`
}

// ScopeStateVersion is the current persisted state schema version.
const ScopeStateVersion = 1

// ScopeState is everything persisted per scope between runs.
type ScopeState struct {
	Version int         `json:"version"`
	Fences  FenceSet    `json:"fences,omitempty"`
	LastRun *RunSummary `json:"last_run,omitempty"`
}

// RunRecord is one run's outcome as stored in run history.
type RunRecord struct {
	ID        string
	ScopeKey  string
	Status    RunStatus
	StartedAt time.Time
	EndedAt   time.Time
	Stats     RunStats
	Error     string
}
