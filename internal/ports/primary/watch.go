package primary

import "context"

// WatchService manages watch targets.
type WatchService interface {
	// Add registers a watch target, due immediately.
	Add(ctx context.Context, req AddWatchRequest) (*WatchTarget, error)

	// List returns the project's watch targets.
	List(ctx context.Context, projectID string) ([]*WatchTarget, error)

	// Disable stops a target from being scheduled.
	Disable(ctx context.Context, targetID string) error
}

// WatchdogService runs scheduler passes over due watch targets.
type WatchdogService interface {
	// RunOnce evaluates due targets, claims each by CAS, re-ingests, and
	// reschedules. Lost claims are skips, per-target failures never abort
	// the pass.
	RunOnce(ctx context.Context, req WatchdogRequest) (*BatchSummary, error)
}

// AddWatchRequest contains parameters for registering a watch.
type AddWatchRequest struct {
	ProjectID       string
	Branch          string // empty = main
	Type            string // url or query
	Target          string
	IntervalSeconds int64
	Tags            []string
}

// WatchdogRequest bounds one scheduler pass.
type WatchdogRequest struct {
	ProjectID string // empty = all projects
	Limit     int
	DryRun    bool
}

// WatchTarget represents a watch target at the port boundary.
type WatchTarget struct {
	ID              string
	ProjectID       string
	Branch          string
	Type            string
	Target          string
	IntervalSeconds int64
	Tags            []string
	Status          string
	LastCheckedAt   string
	NextDueAt       string
}
