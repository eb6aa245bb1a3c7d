package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/example/rvault/internal/core/ids"
	"github.com/example/rvault/internal/core/trust"
	"github.com/example/rvault/internal/logging"
	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/ports/secondary"
)

// LedgerServiceImpl implements the LedgerService interface.
type LedgerServiceImpl struct {
	findingRepo  secondary.FindingRepository
	branchRepo   secondary.BranchRepository
	hypoRepo     secondary.HypothesisRepository
	artifactRepo secondary.ArtifactRepository
	sink         secondary.EventSink
	log          *slog.Logger
}

// NewLedgerService creates a new LedgerService with injected dependencies.
func NewLedgerService(
	findingRepo secondary.FindingRepository,
	branchRepo secondary.BranchRepository,
	hypoRepo secondary.HypothesisRepository,
	artifactRepo secondary.ArtifactRepository,
	sink secondary.EventSink,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		findingRepo:  findingRepo,
		branchRepo:   branchRepo,
		hypoRepo:     hypoRepo,
		artifactRepo: artifactRepo,
		sink:         sink,
		log:          logging.New("ledger"),
	}
}

// Log appends a raw typed event row to a branch.
func (s *LedgerServiceImpl) Log(ctx context.Context, req primary.LogRequest) (*primary.Finding, error) {
	if req.Type == "" {
		return nil, fmt.Errorf("event type is required")
	}
	branch, err := resolveBranch(ctx, s.branchRepo, req.ProjectID, req.Branch)
	if err != nil {
		return nil, err
	}

	payload := "{}"
	if req.Payload != nil {
		raw, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		payload = string(raw)
	}

	source := req.Source
	if source == "" {
		source = "unknown"
	}

	record := &secondary.FindingRecord{
		ID:         ids.NewFindingID(),
		ProjectID:  req.ProjectID,
		BranchID:   branch.ID,
		Type:       req.Type,
		Step:       req.Step,
		Payload:    payload,
		Confidence: trust.Clamp(req.Confidence),
		Source:     source,
		Tags:       req.Tags,
	}
	if err := s.findingRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to log event: %w", err)
	}

	stored, err := s.findingRepo.Get(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back finding: %w", err)
	}

	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "log",
		ProjectID: req.ProjectID,
		Data:      map[string]any{"op": "log", "finding": stored.ID, "type": req.Type},
	})
	return findingToDTO(stored), nil
}

// AddInsight records a curated finding. Insights are human judgement: type
// INSIGHT, source manual, full confidence unless stated.
func (s *LedgerServiceImpl) AddInsight(ctx context.Context, req primary.AddInsightRequest) (*primary.Finding, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("insight title is required")
	}
	branch, err := resolveBranch(ctx, s.branchRepo, req.ProjectID, req.Branch)
	if err != nil {
		return nil, err
	}

	confidence := req.Confidence
	if confidence == 0 {
		confidence = 1.0
	}

	payload := "{}"
	if req.SourceURL != "" {
		raw, _ := json.Marshal(map[string]string{"source_url": req.SourceURL})
		payload = string(raw)
	}

	record := &secondary.FindingRecord{
		ID:         ids.NewFindingID(),
		ProjectID:  req.ProjectID,
		BranchID:   branch.ID,
		Type:       "INSIGHT",
		Title:      req.Title,
		Content:    req.Content,
		Payload:    payload,
		Confidence: trust.Clamp(confidence),
		Source:     "manual",
		Tags:       append([]string{"insight"}, req.Tags...),
	}
	if err := s.findingRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to add insight: %w", err)
	}

	stored, err := s.findingRepo.Get(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back finding: %w", err)
	}

	s.log.Info("insight recorded", "project", req.ProjectID, "finding", stored.ID)
	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "graph_update",
		ProjectID: req.ProjectID,
		Data:      map[string]any{"op": "insight", "finding": stored.ID},
	})
	return findingToDTO(stored), nil
}

// ListFindings lists findings on a branch, optionally filtered.
func (s *LedgerServiceImpl) ListFindings(ctx context.Context, req primary.ListFindingsRequest) ([]*primary.Finding, error) {
	branch, err := resolveBranch(ctx, s.branchRepo, req.ProjectID, req.Branch)
	if err != nil {
		return nil, err
	}

	records, err := s.findingRepo.List(ctx, req.ProjectID, secondary.FindingFilters{
		BranchID: branch.ID,
		Type:     req.Type,
		Tag:      req.Tag,
		Limit:    req.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}

	findings := make([]*primary.Finding, 0, len(records))
	for _, r := range records {
		findings = append(findings, findingToDTO(r))
	}
	return findings, nil
}

// CreateBranch creates a named branch, optionally forked from a parent
// branch (by name).
func (s *LedgerServiceImpl) CreateBranch(ctx context.Context, req primary.CreateBranchRequest) (*primary.Branch, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("branch name is required")
	}

	var parentID string
	if req.Parent != "" {
		parent, err := s.branchRepo.GetByName(ctx, req.ProjectID, req.Parent)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve parent branch %q: %w", req.Parent, err)
		}
		parentID = parent.ID
	}

	record := &secondary.BranchRecord{
		ID:             ids.BranchID(req.ProjectID, req.Name),
		ProjectID:      req.ProjectID,
		Name:           req.Name,
		ParentBranchID: parentID,
		Hypothesis:     req.Hypothesis,
	}
	if err := s.branchRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create branch: %w", err)
	}

	stored, err := s.branchRepo.Get(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back branch: %w", err)
	}

	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "log",
		ProjectID: req.ProjectID,
		Data:      map[string]any{"op": "branch_create", "branch": stored.Name},
	})
	return branchToDTO(stored), nil
}

// ListBranches lists the project's branches, oldest first.
func (s *LedgerServiceImpl) ListBranches(ctx context.Context, projectID string) ([]*primary.Branch, error) {
	records, err := s.branchRepo.List(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	branches := make([]*primary.Branch, 0, len(records))
	for _, r := range records {
		branches = append(branches, branchToDTO(r))
	}
	return branches, nil
}

// AddHypothesis records a hypothesis on a branch.
func (s *LedgerServiceImpl) AddHypothesis(ctx context.Context, req primary.AddHypothesisRequest) (*primary.Hypothesis, error) {
	if req.Statement == "" {
		return nil, fmt.Errorf("hypothesis statement is required")
	}
	branch, err := resolveBranch(ctx, s.branchRepo, req.ProjectID, req.Branch)
	if err != nil {
		return nil, err
	}

	confidence := req.Confidence
	if confidence == 0 {
		confidence = 0.5
	}

	record := &secondary.HypothesisRecord{
		ID:         ids.NewHypothesisID(),
		BranchID:   branch.ID,
		Statement:  req.Statement,
		Rationale:  req.Rationale,
		Confidence: trust.Clamp(confidence),
		Status:     "open",
	}
	if err := s.hypoRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to add hypothesis: %w", err)
	}

	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "log",
		ProjectID: req.ProjectID,
		Data:      map[string]any{"op": "hypothesis_add", "hypothesis": record.ID},
	})
	return &primary.Hypothesis{
		ID:         record.ID,
		Branch:     branch.Name,
		Statement:  record.Statement,
		Rationale:  record.Rationale,
		Confidence: record.Confidence,
		Status:     record.Status,
	}, nil
}

// ListHypotheses lists hypotheses for a project or one branch.
func (s *LedgerServiceImpl) ListHypotheses(ctx context.Context, projectID, branchName string) ([]*primary.Hypothesis, error) {
	var branchID string
	if branchName != "" {
		branch, err := resolveBranch(ctx, s.branchRepo, projectID, branchName)
		if err != nil {
			return nil, err
		}
		branchID = branch.ID
	}

	records, err := s.hypoRepo.List(ctx, projectID, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hypotheses: %w", err)
	}

	hypotheses := make([]*primary.Hypothesis, 0, len(records))
	for _, r := range records {
		hypotheses = append(hypotheses, &primary.Hypothesis{
			ID:         r.ID,
			Branch:     r.BranchID,
			Statement:  r.Statement,
			Rationale:  r.Rationale,
			Confidence: r.Confidence,
			Status:     r.Status,
			CreatedAt:  formatTime(r.CreatedAt),
		})
	}
	return hypotheses, nil
}

var hypothesisStatuses = map[string]bool{
	"open": true, "accepted": true, "rejected": true, "archived": true,
}

// UpdateHypothesis moves a hypothesis to a new status.
func (s *LedgerServiceImpl) UpdateHypothesis(ctx context.Context, projectID, id, status string) error {
	if !hypothesisStatuses[status] {
		return fmt.Errorf("invalid hypothesis status: %s", status)
	}
	if err := s.hypoRepo.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update hypothesis: %w", err)
	}

	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "log",
		ProjectID: projectID,
		Data:      map[string]any{"op": "hypothesis_update", "hypothesis": id, "status": status},
	})
	return nil
}

// AddArtifact registers an external file reference.
func (s *LedgerServiceImpl) AddArtifact(ctx context.Context, req primary.AddArtifactRequest) (*primary.Artifact, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("artifact path is required")
	}
	branch, err := resolveBranch(ctx, s.branchRepo, req.ProjectID, req.Branch)
	if err != nil {
		return nil, err
	}

	metadata := "{}"
	if req.Metadata != nil {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
		metadata = string(raw)
	}

	artifactType := req.Type
	if artifactType == "" {
		artifactType = "file"
	}

	record := &secondary.ArtifactRecord{
		ID:        ids.NewArtifactID(),
		ProjectID: req.ProjectID,
		BranchID:  branch.ID,
		Path:      req.Path,
		Type:      artifactType,
		Metadata:  metadata,
	}
	if err := s.artifactRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to add artifact: %w", err)
	}

	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "graph_update",
		ProjectID: req.ProjectID,
		Data:      map[string]any{"op": "artifact_add", "artifact": record.ID},
	})
	return &primary.Artifact{
		ID:        record.ID,
		ProjectID: record.ProjectID,
		Branch:    branch.Name,
		Path:      record.Path,
		Type:      record.Type,
		Metadata:  record.Metadata,
	}, nil
}

// ListArtifacts lists a branch's artifacts; empty branch means all branches.
func (s *LedgerServiceImpl) ListArtifacts(ctx context.Context, projectID, branchName string) ([]*primary.Artifact, error) {
	var branchID string
	if branchName != "" {
		branch, err := resolveBranch(ctx, s.branchRepo, projectID, branchName)
		if err != nil {
			return nil, err
		}
		branchID = branch.ID
	}

	records, err := s.artifactRepo.List(ctx, projectID, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	artifacts := make([]*primary.Artifact, 0, len(records))
	for _, r := range records {
		artifacts = append(artifacts, &primary.Artifact{
			ID:        r.ID,
			ProjectID: r.ProjectID,
			Branch:    r.BranchID,
			Path:      r.Path,
			Type:      r.Type,
			Metadata:  r.Metadata,
			CreatedAt: formatTime(r.CreatedAt),
		})
	}
	return artifacts, nil
}
