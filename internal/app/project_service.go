package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/rvault/internal/core/ids"
	"github.com/example/rvault/internal/logging"
	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/ports/secondary"
)

// ProjectServiceImpl implements the ProjectService interface.
type ProjectServiceImpl struct {
	projectRepo  secondary.ProjectRepository
	branchRepo   secondary.BranchRepository
	findingRepo  secondary.FindingRepository
	artifactRepo secondary.ArtifactRepository
	hypoRepo     secondary.HypothesisRepository
	linkRepo     secondary.LinkRepository
	missionRepo  secondary.MissionRepository
	watchRepo    secondary.WatchTargetRepository
	sink         secondary.EventSink
	log          *slog.Logger
}

// NewProjectService creates a new ProjectService with injected dependencies.
func NewProjectService(
	projectRepo secondary.ProjectRepository,
	branchRepo secondary.BranchRepository,
	findingRepo secondary.FindingRepository,
	artifactRepo secondary.ArtifactRepository,
	hypoRepo secondary.HypothesisRepository,
	linkRepo secondary.LinkRepository,
	missionRepo secondary.MissionRepository,
	watchRepo secondary.WatchTargetRepository,
	sink secondary.EventSink,
) *ProjectServiceImpl {
	return &ProjectServiceImpl{
		projectRepo:  projectRepo,
		branchRepo:   branchRepo,
		findingRepo:  findingRepo,
		artifactRepo: artifactRepo,
		hypoRepo:     hypoRepo,
		linkRepo:     linkRepo,
		missionRepo:  missionRepo,
		watchRepo:    watchRepo,
		sink:         sink,
		log:          logging.New("project"),
	}
}

// Init creates a project with its main branch. Re-running init for an
// existing project is a no-op returning the stored state.
func (s *ProjectServiceImpl) Init(ctx context.Context, req primary.InitProjectRequest) (*primary.Project, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	name := req.Name
	if name == "" {
		name = req.ID
	}

	record := &secondary.ProjectRecord{
		ID:        req.ID,
		Name:      name,
		Objective: req.Objective,
		Status:    "active",
		Priority:  req.Priority,
	}
	main := &secondary.BranchRecord{
		ID:        ids.BranchID(req.ID, MainBranch),
		ProjectID: req.ID,
		Name:      MainBranch,
	}
	if err := s.projectRepo.Create(ctx, record, main); err != nil {
		return nil, fmt.Errorf("failed to init project: %w", err)
	}

	stored, err := s.projectRepo.Get(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back project: %w", err)
	}

	s.log.Info("project initialized", "project", req.ID, "priority", stored.Priority)
	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "log",
		ProjectID: req.ID,
		Data:      map[string]any{"op": "project_init", "name": stored.Name},
	})
	return projectToDTO(stored), nil
}

// Update changes status and/or priority. Empty fields are left untouched.
func (s *ProjectServiceImpl) Update(ctx context.Context, req primary.UpdateProjectRequest) error {
	if req.Status == "" && req.Priority == nil {
		return fmt.Errorf("nothing to update")
	}

	if req.Status != "" {
		if !validProjectStatus(req.Status) {
			return fmt.Errorf("invalid project status %q", req.Status)
		}
		if err := s.projectRepo.UpdateStatus(ctx, req.ID, req.Status); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
	}
	if req.Priority != nil {
		if err := s.projectRepo.UpdatePriority(ctx, req.ID, *req.Priority); err != nil {
			return fmt.Errorf("failed to update priority: %w", err)
		}
	}

	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "log",
		ProjectID: req.ID,
		Data:      map[string]any{"op": "project_update", "status": req.Status},
	})
	return nil
}

// Status returns the project with its recent findings on one branch.
func (s *ProjectServiceImpl) Status(ctx context.Context, req primary.StatusRequest) (*primary.ProjectStatus, error) {
	project, err := s.projectRepo.Get(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	branch, err := resolveBranch(ctx, s.branchRepo, req.ProjectID, req.Branch)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	findings, err := s.findingRepo.List(ctx, req.ProjectID, secondary.FindingFilters{
		BranchID: branch.ID,
		Tag:      req.Tag,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}

	status := &primary.ProjectStatus{Project: projectToDTO(project)}
	for _, f := range findings {
		status.RecentFindings = append(status.RecentFindings, findingToDTO(f))
	}
	return status, nil
}

// Summary aggregates counts across the project's ledger.
func (s *ProjectServiceImpl) Summary(ctx context.Context, projectID string) (*primary.ProjectSummary, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	summary := &primary.ProjectSummary{Project: projectToDTO(project)}

	branches, err := s.branchRepo.List(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	summary.Branches = len(branches)

	if summary.Findings, err = s.findingRepo.Count(ctx, projectID); err != nil {
		return nil, fmt.Errorf("failed to count findings: %w", err)
	}

	artifacts, err := s.artifactRepo.List(ctx, projectID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	summary.Artifacts = len(artifacts)

	hypotheses, err := s.hypoRepo.List(ctx, projectID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list hypotheses: %w", err)
	}
	summary.Hypotheses = len(hypotheses)

	if summary.Links, err = s.linkRepo.Count(ctx, projectID); err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}

	if summary.OpenMissions, summary.BlockedMissions, err = s.missionRepo.CountActive(ctx, projectID); err != nil {
		return nil, fmt.Errorf("failed to count missions: %w", err)
	}

	targets, err := s.watchRepo.List(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch targets: %w", err)
	}
	summary.WatchTargets = len(targets)

	return summary, nil
}

// List returns all projects, highest priority first.
func (s *ProjectServiceImpl) List(ctx context.Context) ([]*primary.Project, error) {
	records, err := s.projectRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	projects := make([]*primary.Project, 0, len(records))
	for _, r := range records {
		projects = append(projects, projectToDTO(r))
	}
	return projects, nil
}

func validProjectStatus(status string) bool {
	switch status {
	case "active", "paused", "completed", "failed":
		return true
	}
	return false
}
