package app

// Shared map-backed mocks for the service tests. Each mock implements just
// enough of its secondary port; error fields force failure paths.

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/ports/secondary"
)

// ---------------------------------------------------------------------------
// repositories

type mockProjectRepo struct {
	projects map[string]*secondary.ProjectRecord
}

func newMockProjectRepo() *mockProjectRepo {
	return &mockProjectRepo{projects: map[string]*secondary.ProjectRecord{}}
}

func (m *mockProjectRepo) Create(ctx context.Context, project *secondary.ProjectRecord, main *secondary.BranchRecord) error {
	if _, ok := m.projects[project.ID]; ok {
		return nil // idempotent init
	}
	clone := *project
	clone.CreatedAt = time.Now()
	m.projects[project.ID] = &clone
	return nil
}

func (m *mockProjectRepo) Get(ctx context.Context, id string) (*secondary.ProjectRecord, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, secondary.ErrNotFound)
	}
	return p, nil
}

func (m *mockProjectRepo) List(ctx context.Context) ([]*secondary.ProjectRecord, error) {
	var out []*secondary.ProjectRecord
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (m *mockProjectRepo) UpdateStatus(ctx context.Context, id, status string) error {
	p, ok := m.projects[id]
	if !ok {
		return secondary.ErrNotFound
	}
	p.Status = status
	return nil
}

func (m *mockProjectRepo) UpdatePriority(ctx context.Context, id string, priority int) error {
	p, ok := m.projects[id]
	if !ok {
		return secondary.ErrNotFound
	}
	p.Priority = priority
	return nil
}

type mockBranchRepo struct {
	branches map[string]*secondary.BranchRecord
}

func newMockBranchRepo() *mockBranchRepo {
	return &mockBranchRepo{branches: map[string]*secondary.BranchRecord{}}
}

func (m *mockBranchRepo) seed(projectID, name string) *secondary.BranchRecord {
	b := &secondary.BranchRecord{
		ID:        "br_" + projectID + "_" + name,
		ProjectID: projectID,
		Name:      name,
		CreatedAt: time.Now(),
	}
	m.branches[b.ID] = b
	return b
}

func (m *mockBranchRepo) Create(ctx context.Context, branch *secondary.BranchRecord) error {
	for _, b := range m.branches {
		if b.ProjectID == branch.ProjectID && b.Name == branch.Name {
			return secondary.ErrAlreadyExists
		}
	}
	clone := *branch
	clone.CreatedAt = time.Now()
	m.branches[branch.ID] = &clone
	return nil
}

func (m *mockBranchRepo) Get(ctx context.Context, id string) (*secondary.BranchRecord, error) {
	b, ok := m.branches[id]
	if !ok {
		return nil, secondary.ErrNotFound
	}
	return b, nil
}

func (m *mockBranchRepo) GetByName(ctx context.Context, projectID, name string) (*secondary.BranchRecord, error) {
	for _, b := range m.branches {
		if b.ProjectID == projectID && b.Name == name {
			return b, nil
		}
	}
	return nil, secondary.ErrNotFound
}

func (m *mockBranchRepo) List(ctx context.Context, projectID string) ([]*secondary.BranchRecord, error) {
	var out []*secondary.BranchRecord
	for _, b := range m.branches {
		if b.ProjectID == projectID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockFindingRepo struct {
	findings  map[string]*secondary.FindingRecord
	createErr error
}

func newMockFindingRepo() *mockFindingRepo {
	return &mockFindingRepo{findings: map[string]*secondary.FindingRecord{}}
}

func (m *mockFindingRepo) Create(ctx context.Context, finding *secondary.FindingRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	clone := *finding
	clone.CreatedAt = time.Now()
	if clone.Payload == "" {
		clone.Payload = "{}"
	}
	m.findings[finding.ID] = &clone
	return nil
}

func (m *mockFindingRepo) Get(ctx context.Context, id string) (*secondary.FindingRecord, error) {
	f, ok := m.findings[id]
	if !ok {
		return nil, secondary.ErrNotFound
	}
	return f, nil
}

func (m *mockFindingRepo) List(ctx context.Context, projectID string, filters secondary.FindingFilters) ([]*secondary.FindingRecord, error) {
	var out []*secondary.FindingRecord
	for _, f := range m.findings {
		if f.ProjectID != projectID {
			continue
		}
		if filters.BranchID != "" && f.BranchID != filters.BranchID {
			continue
		}
		if filters.Type != "" && f.Type != filters.Type {
			continue
		}
		if filters.Tag != "" && !hasTag(f.Tags, filters.Tag) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (m *mockFindingRepo) ListVerifiable(ctx context.Context, projectID string, threshold float64, limit int) ([]*secondary.FindingRecord, error) {
	var out []*secondary.FindingRecord
	for _, f := range m.findings {
		if f.ProjectID == projectID && f.Confidence < threshold && !hasTag(f.Tags, "verified") {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence < out[j].Confidence })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockFindingRepo) UpdateConfidence(ctx context.Context, id string, confidence float64) error {
	f, ok := m.findings[id]
	if !ok {
		return secondary.ErrNotFound
	}
	f.Confidence = confidence
	return nil
}

func (m *mockFindingRepo) AddTags(ctx context.Context, id string, tags []string) error {
	f, ok := m.findings[id]
	if !ok {
		return secondary.ErrNotFound
	}
	for _, t := range tags {
		if !hasTag(f.Tags, t) {
			f.Tags = append(f.Tags, t)
		}
	}
	return nil
}

func (m *mockFindingRepo) Count(ctx context.Context, projectID string) (int, error) {
	n := 0
	for _, f := range m.findings {
		if f.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (m *mockFindingRepo) CountLowConfidenceUnqueued(ctx context.Context, projectID string, threshold float64) (int, error) {
	n := 0
	for _, f := range m.findings {
		if f.ProjectID == projectID && f.Confidence < threshold {
			n++
		}
	}
	return n, nil
}

type mockArtifactRepo struct {
	artifacts map[string]*secondary.ArtifactRecord
}

func newMockArtifactRepo() *mockArtifactRepo {
	return &mockArtifactRepo{artifacts: map[string]*secondary.ArtifactRecord{}}
}

func (m *mockArtifactRepo) Create(ctx context.Context, artifact *secondary.ArtifactRecord) error {
	clone := *artifact
	clone.CreatedAt = time.Now()
	m.artifacts[artifact.ID] = &clone
	return nil
}

func (m *mockArtifactRepo) List(ctx context.Context, projectID, branchID string) ([]*secondary.ArtifactRecord, error) {
	var out []*secondary.ArtifactRecord
	for _, a := range m.artifacts {
		if a.ProjectID != projectID {
			continue
		}
		if branchID != "" && a.BranchID != branchID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

type mockHypothesisRepo struct {
	hypotheses map[string]*secondary.HypothesisRecord
	staleOpen  int
}

func newMockHypothesisRepo() *mockHypothesisRepo {
	return &mockHypothesisRepo{hypotheses: map[string]*secondary.HypothesisRecord{}}
}

func (m *mockHypothesisRepo) Create(ctx context.Context, h *secondary.HypothesisRecord) error {
	clone := *h
	clone.CreatedAt = time.Now()
	m.hypotheses[h.ID] = &clone
	return nil
}

func (m *mockHypothesisRepo) List(ctx context.Context, projectID, branchID string) ([]*secondary.HypothesisRecord, error) {
	var out []*secondary.HypothesisRecord
	for _, h := range m.hypotheses {
		if branchID != "" && h.BranchID != branchID {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (m *mockHypothesisRepo) UpdateStatus(ctx context.Context, id, status string) error {
	h, ok := m.hypotheses[id]
	if !ok {
		return secondary.ErrNotFound
	}
	h.Status = status
	return nil
}

func (m *mockHypothesisRepo) CountStaleOpen(ctx context.Context, projectID string, before time.Time) (int, error) {
	return m.staleOpen, nil
}

type mockLinkRepo struct {
	links map[string]*secondary.LinkRecord
}

func newMockLinkRepo() *mockLinkRepo {
	return &mockLinkRepo{links: map[string]*secondary.LinkRecord{}}
}

func (m *mockLinkRepo) Create(ctx context.Context, link *secondary.LinkRecord) error {
	for _, l := range m.links {
		if l.BranchID == link.BranchID && l.FromID == link.FromID && l.ToID == link.ToID {
			return secondary.ErrAlreadyExists
		}
	}
	clone := *link
	m.links[link.ID] = &clone
	return nil
}

func (m *mockLinkRepo) List(ctx context.Context, projectID, branchID string) ([]*secondary.LinkRecord, error) {
	var out []*secondary.LinkRecord
	for _, l := range m.links {
		if l.ProjectID != projectID {
			continue
		}
		if branchID != "" && l.BranchID != branchID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *mockLinkRepo) ListPairs(ctx context.Context, branchID, kind string) ([]secondary.LinkPair, error) {
	var out []secondary.LinkPair
	for _, l := range m.links {
		if l.BranchID == branchID && l.Kind == kind {
			out = append(out, secondary.LinkPair{FromID: l.FromID, ToID: l.ToID})
		}
	}
	return out, nil
}

func (m *mockLinkRepo) Count(ctx context.Context, projectID string) (int, error) {
	n := 0
	for _, l := range m.links {
		if l.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

type mockMissionRepo struct {
	missions map[string]*secondary.MissionRecord
}

func newMockMissionRepo() *mockMissionRepo {
	return &mockMissionRepo{missions: map[string]*secondary.MissionRecord{}}
}

func (m *mockMissionRepo) Create(ctx context.Context, mission *secondary.MissionRecord) error {
	clone := *mission
	clone.CreatedAt = time.Now()
	m.missions[mission.ID] = &clone
	return nil
}

func (m *mockMissionRepo) Get(ctx context.Context, id string) (*secondary.MissionRecord, error) {
	mi, ok := m.missions[id]
	if !ok {
		return nil, secondary.ErrNotFound
	}
	return mi, nil
}

func (m *mockMissionRepo) List(ctx context.Context, projectID, status string) ([]*secondary.MissionRecord, error) {
	var out []*secondary.MissionRecord
	for _, mi := range m.missions {
		if mi.ProjectID != projectID {
			continue
		}
		if status != "" && mi.Status != status {
			continue
		}
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockMissionRepo) ListRunnable(ctx context.Context, projectID string, limit int) ([]*secondary.MissionRecord, error) {
	var out []*secondary.MissionRecord
	for _, mi := range m.missions {
		if mi.ProjectID == projectID && (mi.Status == "open" || mi.Status == "blocked") {
			out = append(out, mi)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockMissionRepo) Transition(ctx context.Context, id, from, to, note string, completedAt *time.Time) error {
	mi, ok := m.missions[id]
	if !ok {
		return secondary.ErrNotFound
	}
	if mi.Status != from {
		return secondary.ErrConflict
	}
	mi.Status = to
	mi.Note = note
	mi.CompletedAt = completedAt
	return nil
}

func (m *mockMissionRepo) CountActive(ctx context.Context, projectID string) (int, int, error) {
	open, blocked := 0, 0
	for _, mi := range m.missions {
		if mi.ProjectID != projectID {
			continue
		}
		switch mi.Status {
		case "open":
			open++
		case "blocked":
			blocked++
		}
	}
	return open, blocked, nil
}

type mockWatchRepo struct {
	targets   map[string]*secondary.WatchTargetRecord
	seen      map[string]bool
	overdue   int
	claimErrs map[string]error
}

func newMockWatchRepo() *mockWatchRepo {
	return &mockWatchRepo{
		targets:   map[string]*secondary.WatchTargetRecord{},
		seen:      map[string]bool{},
		claimErrs: map[string]error{},
	}
}

func (m *mockWatchRepo) Create(ctx context.Context, target *secondary.WatchTargetRecord) error {
	clone := *target
	clone.CreatedAt = time.Now()
	m.targets[target.ID] = &clone
	return nil
}

func (m *mockWatchRepo) Get(ctx context.Context, id string) (*secondary.WatchTargetRecord, error) {
	t, ok := m.targets[id]
	if !ok {
		return nil, secondary.ErrNotFound
	}
	return t, nil
}

func (m *mockWatchRepo) List(ctx context.Context, projectID string) ([]*secondary.WatchTargetRecord, error) {
	var out []*secondary.WatchTargetRecord
	for _, t := range m.targets {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockWatchRepo) ListDue(ctx context.Context, projectID string, now int64, limit int) ([]*secondary.WatchTargetRecord, error) {
	var out []*secondary.WatchTargetRecord
	for _, t := range m.targets {
		if projectID != "" && t.ProjectID != projectID {
			continue
		}
		if t.Status == "active" && t.NextDueAt <= now {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockWatchRepo) Claim(ctx context.Context, id string, expectedNextDue, lastChecked, nextDue int64) error {
	if err, ok := m.claimErrs[id]; ok {
		return err
	}
	t, ok := m.targets[id]
	if !ok || t.NextDueAt != expectedNextDue || t.Status != "active" {
		return secondary.ErrConflict
	}
	t.LastCheckedAt = lastChecked
	t.NextDueAt = nextDue
	return nil
}

func (m *mockWatchRepo) Disable(ctx context.Context, id string) error {
	t, ok := m.targets[id]
	if !ok {
		return secondary.ErrNotFound
	}
	t.Status = "disabled"
	return nil
}

func (m *mockWatchRepo) CountOverdue(ctx context.Context, projectID string, now int64) (int, error) {
	return m.overdue, nil
}

func (m *mockWatchRepo) Seen(ctx context.Context, targetID, contentHash string) (bool, error) {
	return m.seen[targetID+"|"+contentHash], nil
}

func (m *mockWatchRepo) MarkSeen(ctx context.Context, targetID, contentHash string) error {
	m.seen[targetID+"|"+contentHash] = true
	return nil
}

type mockEventRepo struct {
	events []*secondary.EventRecord
	nextID int64
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{}
}

func (m *mockEventRepo) Append(ctx context.Context, event *secondary.EventRecord) error {
	m.nextID++
	clone := *event
	clone.ID = m.nextID
	clone.CreatedAt = time.Now()
	m.events = append(m.events, &clone)
	event.ID = clone.ID
	return nil
}

func (m *mockEventRepo) ListRecent(ctx context.Context, projectID string, limit int) ([]*secondary.EventRecord, error) {
	var out []*secondary.EventRecord
	for i := len(m.events) - 1; i >= 0; i-- {
		if projectID != "" && m.events[i].ProjectID != projectID {
			continue
		}
		out = append(out, m.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockEventRepo) ListAfter(ctx context.Context, afterID int64, limit int) ([]*secondary.EventRecord, error) {
	var out []*secondary.EventRecord
	for _, e := range m.events {
		if e.ID <= afterID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// capabilities

type mockFetcher struct {
	result *secondary.FetchResult
	err    error
	urls   []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (*secondary.FetchResult, error) {
	m.urls = append(m.urls, url)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockSearchProvider struct {
	results []secondary.SearchResult
	err     error
	queries []string
}

func (m *mockSearchProvider) Search(ctx context.Context, query string, limit int) ([]secondary.SearchResult, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.results) > limit {
		return m.results[:limit], nil
	}
	return m.results, nil
}

type mockSink struct {
	events []secondary.BusEvent
}

func (m *mockSink) Emit(ctx context.Context, event secondary.BusEvent) {
	m.events = append(m.events, event)
}

// mockIngest records IngestPayload calls without hitting a real gateway.
type mockIngest struct {
	payloads []primary.IngestPayloadRequest
	scuttles []primary.ScuttleRequest
	err      error
}

func (m *mockIngest) Scuttle(ctx context.Context, req primary.ScuttleRequest) (*primary.ScuttleResponse, error) {
	m.scuttles = append(m.scuttles, req)
	if m.err != nil {
		return nil, m.err
	}
	return &primary.ScuttleResponse{Finding: &primary.Finding{ID: "fnd_mock"}}, nil
}

func (m *mockIngest) IngestPayload(ctx context.Context, req primary.IngestPayloadRequest) (*primary.Finding, error) {
	m.payloads = append(m.payloads, req)
	if m.err != nil {
		return nil, m.err
	}
	return &primary.Finding{ID: fmt.Sprintf("fnd_mock_%d", len(m.payloads))}, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
