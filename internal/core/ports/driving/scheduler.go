package driving

import "context"

// Scheduler runs background collection on an interval.
type Scheduler interface {
	// Start begins the scheduler loop and blocks until Stop is called or
	// ctx ends.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the scheduler, waiting for in-flight
	// runs to finish.
	Stop() error
}
