package primary

import "context"

// LedgerService covers the raw event/evidence surface: log appends, curated
// insights, branches, hypotheses, and artifacts.
type LedgerService interface {
	// Log appends a raw typed event row to a branch.
	Log(ctx context.Context, req LogRequest) (*Finding, error)

	// AddInsight records a curated finding (type INSIGHT, source manual).
	AddInsight(ctx context.Context, req AddInsightRequest) (*Finding, error)

	// ListFindings lists findings on a branch, optionally filtered by tag.
	ListFindings(ctx context.Context, req ListFindingsRequest) ([]*Finding, error)

	// CreateBranch creates a named branch, optionally forked from a parent.
	CreateBranch(ctx context.Context, req CreateBranchRequest) (*Branch, error)

	// ListBranches lists the project's branches, oldest first.
	ListBranches(ctx context.Context, projectID string) ([]*Branch, error)

	// AddHypothesis records a hypothesis on a branch.
	AddHypothesis(ctx context.Context, req AddHypothesisRequest) (*Hypothesis, error)

	// ListHypotheses lists hypotheses for a project or branch.
	ListHypotheses(ctx context.Context, projectID, branch string) ([]*Hypothesis, error)

	// UpdateHypothesis moves a hypothesis to a new status.
	UpdateHypothesis(ctx context.Context, projectID, id, status string) error

	// AddArtifact registers an external file reference.
	AddArtifact(ctx context.Context, req AddArtifactRequest) (*Artifact, error)

	// ListArtifacts lists a branch's artifacts.
	ListArtifacts(ctx context.Context, projectID, branch string) ([]*Artifact, error)
}

// LogRequest contains parameters for a raw event append.
type LogRequest struct {
	ProjectID  string
	Branch     string // empty = main
	Type       string // NOTE/FINDING/SCUTTLE/ERROR/...
	Step       int
	Payload    map[string]any
	Confidence float64
	Source     string
	Tags       []string
}

// AddInsightRequest contains parameters for a curated insight.
type AddInsightRequest struct {
	ProjectID  string
	Branch     string
	Title      string
	Content    string
	SourceURL  string
	Tags       []string
	Confidence float64
}

// ListFindingsRequest scopes a findings listing.
type ListFindingsRequest struct {
	ProjectID string
	Branch    string
	Type      string
	Tag       string
	Limit     int
}

// CreateBranchRequest contains parameters for branch creation.
type CreateBranchRequest struct {
	ProjectID  string
	Name       string
	Parent     string // branch name, empty = root
	Hypothesis string
}

// AddHypothesisRequest contains parameters for recording a hypothesis.
type AddHypothesisRequest struct {
	ProjectID  string
	Branch     string
	Statement  string
	Rationale  string
	Confidence float64
}

// AddArtifactRequest contains parameters for registering an artifact.
type AddArtifactRequest struct {
	ProjectID string
	Branch    string
	Path      string
	Type      string
	Metadata  map[string]any
}

// Finding represents a finding at the port boundary.
type Finding struct {
	ID         string
	ProjectID  string
	Branch     string
	Type       string
	Step       int
	Title      string
	Content    string
	Payload    string
	Confidence float64
	Source     string
	Tags       []string
	CreatedAt  string
}

// Branch represents a branch at the port boundary.
type Branch struct {
	ID         string
	ProjectID  string
	Name       string
	Parent     string
	Hypothesis string
	CreatedAt  string
}

// Hypothesis represents a hypothesis at the port boundary.
type Hypothesis struct {
	ID         string
	Branch     string
	Statement  string
	Rationale  string
	Confidence float64
	Status     string
	CreatedAt  string
}

// Artifact represents an artifact at the port boundary.
type Artifact struct {
	ID        string
	ProjectID string
	Branch    string
	Path      string
	Type      string
	Metadata  string
	CreatedAt string
}
