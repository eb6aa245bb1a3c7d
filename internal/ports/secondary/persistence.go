// Package secondary defines the secondary ports (driven adapters): the
// transactional ledger repositories and the external capabilities the engine
// depends on. Records are plain structs; adapters own all SQL.
package secondary

import (
	"context"
	"errors"
	"time"
)

// Storage error sentinels. Adapters wrap these with %w so services and the
// CLI can branch with errors.Is.
var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidProject is returned when an operation references a project
	// that does not exist.
	ErrInvalidProject = errors.New("invalid project")
	// ErrInvalidBranch is returned when an operation references a branch that
	// does not exist or belongs to another project.
	ErrInvalidBranch = errors.New("invalid branch")
	// ErrAlreadyExists is returned on unique-constraint violations such as a
	// duplicate branch name within a project.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict is returned when an optimistic-concurrency write loses its
	// race. Callers treat it as "already handled elsewhere", not a failure.
	ErrConflict = errors.New("storage conflict")
)

// ProjectRecord represents a project row.
type ProjectRecord struct {
	ID        string
	Name      string
	Objective string
	Status    string
	Priority  int
	CreatedAt time.Time
}

// BranchRecord represents a branch row. ParentBranchID is empty for roots and
// immutable after creation, which keeps lineage acyclic by construction.
type BranchRecord struct {
	ID             string
	ProjectID      string
	Name           string
	ParentBranchID string
	Hypothesis     string
	CreatedAt      time.Time
}

// HypothesisRecord represents a hypothesis row.
type HypothesisRecord struct {
	ID         string
	BranchID   string
	Statement  string
	Rationale  string
	Confidence float64
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FindingRecord represents a finding row: an append-only evidence/event
// entry. Only confidence and tags ever change after creation, and only
// through verification.
type FindingRecord struct {
	ID         string
	ProjectID  string
	BranchID   string
	Type       string
	Step       int
	Title      string
	Content    string
	Payload    string // JSON blob
	Confidence float64
	Source     string
	Tags       []string
	CreatedAt  time.Time
}

// ArtifactRecord represents a registered external file reference.
type ArtifactRecord struct {
	ID        string
	ProjectID string
	BranchID  string
	Path      string
	Type      string
	Metadata  string // JSON blob
	CreatedAt time.Time
}

// LinkRecord represents an undirected synthesis link; FromID < ToID always.
type LinkRecord struct {
	ID        string
	ProjectID string
	BranchID  string
	FromID    string
	ToID      string
	Kind      string
	Score     float64
	CreatedAt time.Time
}

// MissionRecord represents a verification mission row.
type MissionRecord struct {
	ID          string
	ProjectID   string
	FindingID   string
	Type        string
	Status      string
	Note        string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// WatchTargetRecord represents a scheduled watch. Due times are unix seconds;
// NextDueAt doubles as the optimistic-concurrency token for pass claims.
type WatchTargetRecord struct {
	ID              string
	ProjectID       string
	BranchID        string
	Type            string
	Target          string
	IntervalSeconds int64
	Tags            []string
	Status          string
	LastCheckedAt   int64 // 0 = never checked
	NextDueAt       int64
	CreatedAt       time.Time
}

// EventRecord is one durable telemetry entry; the integer id is the stream
// resume cursor for the external SSE boundary.
type EventRecord struct {
	ID        int64
	ProjectID string
	Kind      string
	Data      string // JSON blob
	CreatedAt time.Time
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	// Create inserts the project and its main branch in one transaction.
	Create(ctx context.Context, project *ProjectRecord, mainBranch *BranchRecord) error
	Get(ctx context.Context, id string) (*ProjectRecord, error)
	List(ctx context.Context) ([]*ProjectRecord, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdatePriority(ctx context.Context, id string, priority int) error
}

// BranchRepository persists branches.
type BranchRepository interface {
	// Create validates the project and optional parent and rejects duplicate
	// names within the project with ErrAlreadyExists.
	Create(ctx context.Context, branch *BranchRecord) error
	Get(ctx context.Context, id string) (*BranchRecord, error)
	GetByName(ctx context.Context, projectID, name string) (*BranchRecord, error)
	List(ctx context.Context, projectID string) ([]*BranchRecord, error)
}

// FindingFilters narrows finding listings.
type FindingFilters struct {
	BranchID string
	Type     string
	Tag      string
	Limit    int
}

// FindingRepository persists findings.
type FindingRepository interface {
	Create(ctx context.Context, finding *FindingRecord) error
	Get(ctx context.Context, id string) (*FindingRecord, error)
	List(ctx context.Context, projectID string, filters FindingFilters) ([]*FindingRecord, error)
	// ListVerifiable returns findings below the confidence threshold that do
	// not carry the verified tag and have no open or blocked mission, ordered
	// by confidence ascending then created_at ascending.
	ListVerifiable(ctx context.Context, projectID string, threshold float64, limit int) ([]*FindingRecord, error)
	UpdateConfidence(ctx context.Context, id string, confidence float64) error
	AddTags(ctx context.Context, id string, tags []string) error
	Count(ctx context.Context, projectID string) (int, error)
	CountLowConfidenceUnqueued(ctx context.Context, projectID string, threshold float64) (int, error)
}

// ArtifactRepository persists artifacts.
type ArtifactRepository interface {
	Create(ctx context.Context, artifact *ArtifactRecord) error
	List(ctx context.Context, projectID, branchID string) ([]*ArtifactRecord, error)
}

// HypothesisRepository persists hypotheses.
type HypothesisRepository interface {
	Create(ctx context.Context, hypothesis *HypothesisRecord) error
	List(ctx context.Context, projectID, branchID string) ([]*HypothesisRecord, error)
	UpdateStatus(ctx context.Context, id, status string) error
	CountStaleOpen(ctx context.Context, projectID string, before time.Time) (int, error)
}

// LinkPair is a canonical (from, to) id pair used for dedup checks.
type LinkPair struct {
	FromID string
	ToID   string
}

// LinkRepository persists synthesis links.
type LinkRepository interface {
	// Create inserts a link; an existing canonical pair on the branch yields
	// ErrAlreadyExists.
	Create(ctx context.Context, link *LinkRecord) error
	List(ctx context.Context, projectID, branchID string) ([]*LinkRecord, error)
	ListPairs(ctx context.Context, branchID, kind string) ([]LinkPair, error)
	Count(ctx context.Context, projectID string) (int, error)
}

// MissionRepository persists verification missions.
type MissionRepository interface {
	// Create validates the finding reference (same project) with
	// ErrNotFound/ErrInvalidProject.
	Create(ctx context.Context, mission *MissionRecord) error
	Get(ctx context.Context, id string) (*MissionRecord, error)
	List(ctx context.Context, projectID, status string) ([]*MissionRecord, error)
	// ListRunnable returns open and blocked missions, oldest first.
	ListRunnable(ctx context.Context, projectID string, limit int) ([]*MissionRecord, error)
	// Transition applies from -> to guarded by the expected current status;
	// a lost race yields ErrConflict. Legality is the caller's concern.
	Transition(ctx context.Context, id, from, to, note string, completedAt *time.Time) error
	CountActive(ctx context.Context, projectID string) (open, blocked int, err error)
}

// WatchTargetRepository persists watch targets and their claim state.
type WatchTargetRepository interface {
	Create(ctx context.Context, target *WatchTargetRecord) error
	Get(ctx context.Context, id string) (*WatchTargetRecord, error)
	List(ctx context.Context, projectID string) ([]*WatchTargetRecord, error)
	// ListDue returns active targets with next_due_at <= now. Empty projectID
	// means all projects.
	ListDue(ctx context.Context, projectID string, now int64, limit int) ([]*WatchTargetRecord, error)
	// Claim reschedules the target iff next_due_at still equals expected.
	// A lost race yields ErrConflict: another pass owns this due window.
	Claim(ctx context.Context, id string, expectedNextDue, lastChecked, nextDue int64) error
	Disable(ctx context.Context, id string) error
	CountOverdue(ctx context.Context, projectID string, now int64) (int, error)
	// Seen reports whether a content hash was already ingested for the target.
	Seen(ctx context.Context, targetID, contentHash string) (bool, error)
	MarkSeen(ctx context.Context, targetID, contentHash string) error
}

// EventRepository persists the telemetry stream.
type EventRepository interface {
	Append(ctx context.Context, event *EventRecord) error
	ListRecent(ctx context.Context, projectID string, limit int) ([]*EventRecord, error)
	ListAfter(ctx context.Context, afterID int64, limit int) ([]*EventRecord, error)
}

// SearchCacheRepository caches provider responses keyed by query hash.
type SearchCacheRepository interface {
	// Get returns the cached raw result for a hash if stored at or after
	// notBefore.
	Get(ctx context.Context, queryHash string, notBefore time.Time) (string, bool, error)
	Put(ctx context.Context, queryHash, query, result string) error
}
