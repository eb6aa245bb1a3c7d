package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/ports/secondary"
)

// ExportServiceImpl implements the ExportService interface: read-only
// projections for the CLI and the dashboard boundary.
type ExportServiceImpl struct {
	projectRepo  secondary.ProjectRepository
	branchRepo   secondary.BranchRepository
	findingRepo  secondary.FindingRepository
	artifactRepo secondary.ArtifactRepository
	hypoRepo     secondary.HypothesisRepository
	linkRepo     secondary.LinkRepository
	missionRepo  secondary.MissionRepository
	eventRepo    secondary.EventRepository
}

// NewExportService creates a new ExportService with injected dependencies.
func NewExportService(
	projectRepo secondary.ProjectRepository,
	branchRepo secondary.BranchRepository,
	findingRepo secondary.FindingRepository,
	artifactRepo secondary.ArtifactRepository,
	hypoRepo secondary.HypothesisRepository,
	linkRepo secondary.LinkRepository,
	missionRepo secondary.MissionRepository,
	eventRepo secondary.EventRepository,
) *ExportServiceImpl {
	return &ExportServiceImpl{
		projectRepo:  projectRepo,
		branchRepo:   branchRepo,
		findingRepo:  findingRepo,
		artifactRepo: artifactRepo,
		hypoRepo:     hypoRepo,
		linkRepo:     linkRepo,
		missionRepo:  missionRepo,
		eventRepo:    eventRepo,
	}
}

// projection is the full export shape.
type projection struct {
	Project    *primary.Project      `json:"project"`
	Branches   []*primary.Branch     `json:"branches"`
	Findings   []*primary.Finding    `json:"findings"`
	Artifacts  []*primary.Artifact   `json:"artifacts"`
	Hypotheses []*primary.Hypothesis `json:"hypotheses"`
	Links      []*linkExport         `json:"links"`
	Missions   []*primary.Mission    `json:"missions"`
}

type linkExport struct {
	ID     string  `json:"id"`
	FromID string  `json:"from_id"`
	ToID   string  `json:"to_id"`
	Kind   string  `json:"kind"`
	Score  float64 `json:"score"`
}

func (s *ExportServiceImpl) project(ctx context.Context, projectID string) (*projection, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	p := &projection{Project: projectToDTO(project)}

	branches, err := s.branchRepo.List(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	for _, b := range branches {
		p.Branches = append(p.Branches, branchToDTO(b))
	}

	findings, err := s.findingRepo.List(ctx, projectID, secondary.FindingFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	for _, f := range findings {
		p.Findings = append(p.Findings, findingToDTO(f))
	}

	artifacts, err := s.artifactRepo.List(ctx, projectID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	for _, a := range artifacts {
		p.Artifacts = append(p.Artifacts, &primary.Artifact{
			ID: a.ID, ProjectID: a.ProjectID, Branch: a.BranchID,
			Path: a.Path, Type: a.Type, Metadata: a.Metadata,
			CreatedAt: formatTime(a.CreatedAt),
		})
	}

	hypotheses, err := s.hypoRepo.List(ctx, projectID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list hypotheses: %w", err)
	}
	for _, h := range hypotheses {
		p.Hypotheses = append(p.Hypotheses, &primary.Hypothesis{
			ID: h.ID, Branch: h.BranchID, Statement: h.Statement,
			Rationale: h.Rationale, Confidence: h.Confidence,
			Status: h.Status, CreatedAt: formatTime(h.CreatedAt),
		})
	}

	links, err := s.linkRepo.List(ctx, projectID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	for _, l := range links {
		p.Links = append(p.Links, &linkExport{
			ID: l.ID, FromID: l.FromID, ToID: l.ToID, Kind: l.Kind, Score: l.Score,
		})
	}

	missions, err := s.missionRepo.List(ctx, projectID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	for _, m := range missions {
		p.Missions = append(p.Missions, missionToDTO(m))
	}

	return p, nil
}

// ExportJSON renders the full project projection as indented JSON.
func (s *ExportServiceImpl) ExportJSON(ctx context.Context, projectID string) ([]byte, error) {
	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode projection: %w", err)
	}
	return out, nil
}

// ExportMarkdown renders a human-readable report.
func (s *ExportServiceImpl) ExportMarkdown(ctx context.Context, projectID string) ([]byte, error) {
	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Project.Name)
	if p.Project.Objective != "" {
		fmt.Fprintf(&b, "**Objective:** %s\n\n", p.Project.Objective)
	}
	fmt.Fprintf(&b, "Status: %s · Priority: %d\n\n", p.Project.Status, p.Project.Priority)

	if len(p.Hypotheses) > 0 {
		b.WriteString("## Hypotheses\n\n")
		for _, h := range p.Hypotheses {
			fmt.Fprintf(&b, "- [%s] %s (confidence %.2f)\n", h.Status, h.Statement, h.Confidence)
		}
		b.WriteString("\n")
	}

	if len(p.Findings) > 0 {
		b.WriteString("## Findings\n\n")
		for _, f := range p.Findings {
			title := f.Title
			if title == "" {
				title = f.Type
			}
			fmt.Fprintf(&b, "### %s\n\n", title)
			fmt.Fprintf(&b, "`%s` · source %s · confidence %.2f", f.ID, f.Source, f.Confidence)
			if len(f.Tags) > 0 {
				fmt.Fprintf(&b, " · tags: %s", strings.Join(f.Tags, ", "))
			}
			b.WriteString("\n\n")
			if f.Content != "" {
				fmt.Fprintf(&b, "%s\n\n", f.Content)
			}
		}
	}

	if len(p.Links) > 0 {
		b.WriteString("## Links\n\n")
		for _, l := range p.Links {
			fmt.Fprintf(&b, "- %s ↔ %s (%.2f)\n", l.FromID, l.ToID, l.Score)
		}
		b.WriteString("\n")
	}

	if len(p.Missions) > 0 {
		b.WriteString("## Verification Missions\n\n")
		for _, m := range p.Missions {
			fmt.Fprintf(&b, "- [%s] %s %s on %s", m.Status, m.ID, m.Type, m.FindingID)
			if m.Note != "" {
				fmt.Fprintf(&b, " — %s", m.Note)
			}
			b.WriteString("\n")
		}
	}

	return []byte(b.String()), nil
}

// Graph returns the force-graph projection: findings and artifacts as nodes,
// synthesis links as edges. Edges with a missing endpoint are dropped.
func (s *ExportServiceImpl) Graph(ctx context.Context, projectID string) (*primary.GraphProjection, error) {
	findings, err := s.findingRepo.List(ctx, projectID, secondary.FindingFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	artifacts, err := s.artifactRepo.List(ctx, projectID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	links, err := s.linkRepo.List(ctx, projectID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	graph := &primary.GraphProjection{
		Nodes: []primary.GraphNode{},
		Links: []primary.GraphLink{},
	}
	present := make(map[string]struct{})

	for _, f := range findings {
		label := f.Title
		if label == "" {
			label = f.Type
		}
		graph.Nodes = append(graph.Nodes, primary.GraphNode{
			ID:        f.ID,
			Label:     label,
			Group:     "finding",
			Val:       f.Confidence * 10,
			Tags:      f.Tags,
			ProjectID: f.ProjectID,
		})
		present[f.ID] = struct{}{}
	}
	for _, a := range artifacts {
		graph.Nodes = append(graph.Nodes, primary.GraphNode{
			ID:        a.ID,
			Label:     a.Path,
			Group:     "artifact",
			Val:       10,
			ProjectID: a.ProjectID,
		})
		present[a.ID] = struct{}{}
	}

	for _, l := range links {
		if _, ok := present[l.FromID]; !ok {
			continue
		}
		if _, ok := present[l.ToID]; !ok {
			continue
		}
		graph.Links = append(graph.Links, primary.GraphLink{
			Source: l.FromID,
			Target: l.ToID,
			Kind:   l.Kind,
			Score:  l.Score,
		})
	}

	return graph, nil
}

// Events returns telemetry entries after the cursor, oldest first.
func (s *ExportServiceImpl) Events(ctx context.Context, afterID int64, limit int) ([]*primary.TelemetryEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	records, err := s.eventRepo.ListAfter(ctx, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return eventRecordsToDTOs(records), nil
}

// RecentEvents returns a project's newest telemetry entries, newest first.
func (s *ExportServiceImpl) RecentEvents(ctx context.Context, projectID string, limit int) ([]*primary.TelemetryEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	records, err := s.eventRepo.ListRecent(ctx, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent events: %w", err)
	}
	return eventRecordsToDTOs(records), nil
}

func eventRecordsToDTOs(records []*secondary.EventRecord) []*primary.TelemetryEvent {
	events := make([]*primary.TelemetryEvent, 0, len(records))
	for _, r := range records {
		data := map[string]any{}
		if err := json.Unmarshal([]byte(r.Data), &data); err != nil {
			data = map[string]any{"raw": r.Data}
		}
		events = append(events, &primary.TelemetryEvent{
			ID:        r.ID,
			ProjectID: r.ProjectID,
			Kind:      r.Kind,
			Data:      data,
			CreatedAt: formatTime(r.CreatedAt),
		})
	}
	return events
}
