package domain

import "time"

// EngineConfig holds engine-wide tuning defaults. Individual scopes may
// override batch size, direction and save interval via ScopeConfig.
type EngineConfig struct {
	// BatchSize is the submission batch threshold.
	BatchSize int `toml:"batch_size"`

	// EnrichWorkers is the enrichment queue's worker pool size.
	EnrichWorkers int `toml:"enrich_workers"`

	// EnrichQueueDepth is the enrichment queue's buffered capacity.
	EnrichQueueDepth int `toml:"enrich_queue_depth"`

	// MaxSubmitAttempts bounds retries for a transiently failing batch.
	MaxSubmitAttempts int `toml:"max_submit_attempts"`

	// RetryBaseDelay is the backoff unit: delay = base * attempt, capped
	// at RetryMaxDelay.
	RetryBaseDelay time.Duration `toml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `toml:"retry_max_delay"`

	// SubmitRatePerSec throttles batch submissions. Zero disables the
	// limiter.
	SubmitRatePerSec float64 `toml:"submit_rate_per_sec"`

	// SaveInterval bounds how long a run may go without persisting state.
	SaveInterval time.Duration `toml:"save_interval"`
}

// DefaultEngineConfig returns the engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BatchSize:         50,
		EnrichWorkers:     4,
		EnrichQueueDepth:  64,
		MaxSubmitAttempts: 5,
		RetryBaseDelay:    time.Second,
		RetryMaxDelay:     30 * time.Second,
		SaveInterval:      30 * time.Second,
	}
}
