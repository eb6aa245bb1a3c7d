package app

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/example/rvault/internal/ports/secondary"
)

type exportFixture struct {
	svc      *ExportServiceImpl
	projects *mockProjectRepo
	findings *mockFindingRepo
	links    *mockLinkRepo
	events   *mockEventRepo
}

func newExportFixture() *exportFixture {
	f := &exportFixture{
		projects: newMockProjectRepo(),
		findings: newMockFindingRepo(),
		links:    newMockLinkRepo(),
		events:   newMockEventRepo(),
	}
	branches := newMockBranchRepo()
	branches.seed("quantum", "main")
	f.projects.projects["quantum"] = &secondary.ProjectRecord{
		ID: "quantum", Name: "Quantum Survey", Objective: "map the solver landscape",
	}
	f.svc = NewExportService(
		f.projects, branches, f.findings, newMockArtifactRepo(),
		newMockHypothesisRepo(), f.links, newMockMissionRepo(), f.events,
	)
	return f
}

func (f *exportFixture) addFinding(t *testing.T, id, title string, confidence float64) {
	t.Helper()
	err := f.findings.Create(context.Background(), &secondary.FindingRecord{
		ID: id, ProjectID: "quantum", BranchID: "br_quantum_main",
		Type: "SCUTTLE_WEB", Title: title, Confidence: confidence,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestExportJSON(t *testing.T) {
	f := newExportFixture()
	f.addFinding(t, "fnd_a", "annealing benchmark", 0.8)

	raw, err := f.svc.ExportJSON(context.Background(), "quantum")
	if err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	project, _ := decoded["project"].(map[string]any)
	if project["ID"] != "quantum" {
		t.Errorf("project = %v", project)
	}
	if findings, _ := decoded["findings"].([]any); len(findings) != 1 {
		t.Errorf("findings = %v", decoded["findings"])
	}
}

func TestExportMarkdown(t *testing.T) {
	f := newExportFixture()
	f.addFinding(t, "fnd_a", "annealing benchmark", 0.8)

	raw, err := f.svc.ExportMarkdown(context.Background(), "quantum")
	if err != nil {
		t.Fatalf("ExportMarkdown() error = %v", err)
	}
	report := string(raw)
	if !strings.Contains(report, "# Quantum Survey") {
		t.Errorf("report missing project heading:\n%s", report)
	}
	if !strings.Contains(report, "annealing benchmark") {
		t.Error("report missing the finding")
	}
	if !strings.Contains(report, "map the solver landscape") {
		t.Error("report missing the objective")
	}
}

func TestGraphDropsDanglingLinks(t *testing.T) {
	f := newExportFixture()
	f.addFinding(t, "fnd_a", "annealing benchmark", 0.8)
	f.addFinding(t, "fnd_b", "annealing results", 0.6)
	f.links.links["lnk_ok"] = &secondary.LinkRecord{
		ID: "lnk_ok", ProjectID: "quantum", BranchID: "br_quantum_main",
		FromID: "fnd_a", ToID: "fnd_b", Kind: "finding", Score: 0.7,
	}
	f.links.links["lnk_dangling"] = &secondary.LinkRecord{
		ID: "lnk_dangling", ProjectID: "quantum", BranchID: "br_quantum_main",
		FromID: "fnd_a", ToID: "fnd_gone", Kind: "finding", Score: 0.5,
	}

	graph, err := f.svc.Graph(context.Background(), "quantum")
	if err != nil {
		t.Fatalf("Graph() error = %v", err)
	}
	if len(graph.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(graph.Nodes))
	}
	if len(graph.Links) != 1 {
		t.Fatalf("links = %d, want the dangling edge dropped", len(graph.Links))
	}
	if graph.Links[0].Source != "fnd_a" || graph.Links[0].Target != "fnd_b" {
		t.Errorf("link = %+v", graph.Links[0])
	}

	for _, n := range graph.Nodes {
		if n.ID == "fnd_a" && n.Val != 8 {
			t.Errorf("node val = %v, want confidence * 10", n.Val)
		}
	}
}

func TestEventsResumeAfterCursor(t *testing.T) {
	f := newExportFixture()
	for _, kind := range []string{"log", "graph_update", "heartbeat"} {
		err := f.events.Append(context.Background(), &secondary.EventRecord{
			ProjectID: "quantum", Kind: kind, Data: `{"op":"test"}`,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	events, err := f.svc.Events(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want the two after the cursor", len(events))
	}
	if events[0].ID != 2 || events[1].ID != 3 {
		t.Errorf("ids = %d, %d, want ascending from cursor", events[0].ID, events[1].ID)
	}
	if events[0].Data["op"] != "test" {
		t.Errorf("data = %v", events[0].Data)
	}
}

func TestRecentEventsNewestFirst(t *testing.T) {
	f := newExportFixture()
	for _, kind := range []string{"log", "graph_update", "heartbeat"} {
		err := f.events.Append(context.Background(), &secondary.EventRecord{
			ProjectID: "quantum", Kind: kind, Data: `{"op":"test"}`,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	events, err := f.svc.RecentEvents(context.Background(), "quantum", 2)
	if err != nil {
		t.Fatalf("RecentEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want the limit applied", len(events))
	}
	if events[0].ID != 3 || events[1].ID != 2 {
		t.Errorf("ids = %d, %d, want newest first", events[0].ID, events[1].ID)
	}
}
