package primary

import "context"

// VerifyService plans and executes verification missions against
// low-confidence findings.
type VerifyService interface {
	// Plan creates missions for unverified low-confidence findings.
	Plan(ctx context.Context, req VerifyPlanRequest) (*VerifyPlanResponse, error)

	// Run executes up to limit open/blocked missions.
	Run(ctx context.Context, req VerifyRunRequest) (*BatchSummary, error)

	// Complete is the manual override: applies a legal transition directly.
	Complete(ctx context.Context, req VerifyCompleteRequest) error

	// List returns missions, optionally filtered by status.
	List(ctx context.Context, projectID, status string) ([]*Mission, error)
}

// VerifyPlanRequest bounds a planning pass.
type VerifyPlanRequest struct {
	ProjectID string
	Threshold float64 // findings below this confidence are candidates
	Max       int     // maximum missions to create
}

// VerifyPlanResponse reports planned missions.
type VerifyPlanResponse struct {
	Missions []*Mission
}

// VerifyRunRequest bounds an execution pass.
type VerifyRunRequest struct {
	ProjectID string
	Limit     int
}

// VerifyCompleteRequest is the trusted human-review path.
type VerifyCompleteRequest struct {
	MissionID string
	Status    string // done or cancelled (or blocked from open)
	Note      string
}

// Mission represents a verification mission at the port boundary.
type Mission struct {
	ID          string
	ProjectID   string
	FindingID   string
	Type        string
	Status      string
	Note        string
	CreatedAt   string
	CompletedAt string
}

// BatchSummary is the uniform result shape for batch operations: watchdog
// passes, verify runs, synthesis sweeps.
type BatchSummary struct {
	Processed int
	Skipped   int
	Failed    int
	Errors    []BatchError
}

// BatchError records one per-item failure inside a batch.
type BatchError struct {
	ItemID string
	Reason string
}
