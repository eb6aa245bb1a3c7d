// Package primary defines the primary ports (driving interfaces) for the
// engine: the contracts the CLI and the external HTTP boundary call.
package primary

import "context"

// ProjectService defines the primary port for project lifecycle operations.
type ProjectService interface {
	// Init creates a project with its main branch, idempotently.
	Init(ctx context.Context, req InitProjectRequest) (*Project, error)

	// Update changes project status and/or priority.
	Update(ctx context.Context, req UpdateProjectRequest) error

	// Status returns the project with its recent findings.
	Status(ctx context.Context, req StatusRequest) (*ProjectStatus, error)

	// Summary returns aggregate counts across the project's ledger.
	Summary(ctx context.Context, projectID string) (*ProjectSummary, error)

	// List returns all projects, highest priority first.
	List(ctx context.Context) ([]*Project, error)
}

// InitProjectRequest contains parameters for creating a project.
type InitProjectRequest struct {
	ID        string
	Name      string
	Objective string
	Priority  int
}

// UpdateProjectRequest contains the fields to change; empty/nil fields are
// left untouched.
type UpdateProjectRequest struct {
	ID       string
	Status   string
	Priority *int
}

// StatusRequest scopes a status read.
type StatusRequest struct {
	ProjectID string
	Branch    string // empty = main
	Tag       string
	Limit     int
}

// Project represents a project at the port boundary.
type Project struct {
	ID        string
	Name      string
	Objective string
	Status    string
	Priority  int
	CreatedAt string
}

// ProjectStatus is a project plus its recent findings.
type ProjectStatus struct {
	Project        *Project
	RecentFindings []*Finding
}

// ProjectSummary aggregates ledger counts for one project.
type ProjectSummary struct {
	Project         *Project
	Branches        int
	Findings        int
	Artifacts       int
	Hypotheses      int
	Links           int
	OpenMissions    int
	BlockedMissions int
	WatchTargets    int
}
