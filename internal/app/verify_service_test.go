package app

import (
	"context"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/ports/secondary"
)

type verifyFixture struct {
	svc      *VerifyServiceImpl
	missions *mockMissionRepo
	findings *mockFindingRepo
	links    *mockLinkRepo
	provider *mockSearchProvider
	ingest   *mockIngest
}

func newVerifyFixture() *verifyFixture {
	f := &verifyFixture{
		missions: newMockMissionRepo(),
		findings: newMockFindingRepo(),
		links:    newMockLinkRepo(),
		provider: &mockSearchProvider{},
		ingest:   &mockIngest{},
	}
	f.svc = NewVerifyService(f.missions, f.findings, f.links, f.provider, f.ingest, &mockSink{}, 3)
	return f
}

func seedVerifyFinding(t *testing.T, findings *mockFindingRepo, id string, confidence float64, tags ...string) {
	t.Helper()
	err := findings.Create(context.Background(), &secondary.FindingRecord{
		ID:         id,
		ProjectID:  "quantum",
		BranchID:   "br_quantum_main",
		Type:       "SCUTTLE_WEB",
		Title:      "quantum annealing convergence results",
		Content:    "the solver converged on the benchmark set",
		Confidence: confidence,
		Source:     "web",
		Tags:       tags,
	})
	if err != nil {
		t.Fatalf("seed finding: %v", err)
	}
}

func TestVerifyPlanAssignsMissionTypes(t *testing.T) {
	f := newVerifyFixture()
	seedVerifyFinding(t, f.findings, "fnd_low", 0.4)
	seedVerifyFinding(t, f.findings, "fnd_suspect", 0.3, "unverified")
	seedVerifyFinding(t, f.findings, "fnd_high", 0.95)

	resp, err := f.svc.Plan(context.Background(), primary.VerifyPlanRequest{ProjectID: "quantum"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(resp.Missions) != 2 {
		t.Fatalf("planned %d missions, want 2", len(resp.Missions))
	}

	types := map[string]string{}
	for _, m := range f.missions.missions {
		types[m.FindingID] = m.Type
		if m.Status != "open" {
			t.Errorf("mission for %s status = %q, want open", m.FindingID, m.Status)
		}
	}
	if types["fnd_low"] != "SEARCH" {
		t.Errorf("plain finding got type %q, want SEARCH", types["fnd_low"])
	}
	if types["fnd_suspect"] != "REFUTE" {
		t.Errorf("unverified finding got type %q, want REFUTE", types["fnd_suspect"])
	}
}

func TestVerifyRunCorroboration(t *testing.T) {
	f := newVerifyFixture()
	seedVerifyFinding(t, f.findings, "fnd_1", 0.5)
	f.missions.missions["msn_1"] = &secondary.MissionRecord{
		ID: "msn_1", ProjectID: "quantum", FindingID: "fnd_1",
		Type: "SEARCH", Status: "open",
	}
	f.provider.results = []secondary.SearchResult{
		{Title: "quantum annealing convergence confirmed", URL: "https://example.com/a",
			Snippet: "independent benchmark results show the solver converged"},
	}

	summary, err := f.svc.Run(context.Background(), primary.VerifyRunRequest{ProjectID: "quantum"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want one processed", summary)
	}

	fnd := f.findings.findings["fnd_1"]
	if math.Abs(fnd.Confidence-0.65) > 1e-9 {
		t.Errorf("confidence = %v, want 0.5 + 0.15", fnd.Confidence)
	}
	if !hasTag(fnd.Tags, "verified") {
		t.Errorf("tags = %v, want verified", fnd.Tags)
	}

	m := f.missions.missions["msn_1"]
	if m.Status != "done" {
		t.Errorf("mission status = %q, want done", m.Status)
	}
	if m.Note != "corroborated by external evidence" {
		t.Errorf("mission note = %q", m.Note)
	}
	if m.CompletedAt == nil {
		t.Error("mission has no completion timestamp")
	}
	if len(f.ingest.payloads) != 1 || f.ingest.payloads[0].Type != "VERIFY_EVIDENCE" {
		t.Errorf("evidence payloads = %+v, want one VERIFY_EVIDENCE", f.ingest.payloads)
	}
}

func TestVerifyRunLinksCorroboratingEvidence(t *testing.T) {
	f := newVerifyFixture()
	seedVerifyFinding(t, f.findings, "fnd_1", 0.5)
	f.missions.missions["msn_1"] = &secondary.MissionRecord{
		ID: "msn_1", ProjectID: "quantum", FindingID: "fnd_1",
		Type: "SEARCH", Status: "open",
	}
	f.provider.results = []secondary.SearchResult{
		{Title: "quantum annealing convergence confirmed", URL: "https://example.com/a",
			Snippet: "independent benchmark results show the solver converged"},
		{Title: "unrelated cooking recipe", URL: "https://example.com/b",
			Snippet: "preheat the oven"},
	}

	if _, err := f.svc.Run(context.Background(), primary.VerifyRunRequest{ProjectID: "quantum"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(f.links.links) != 1 {
		t.Fatalf("links = %d, want one edge for the corroborating hit only", len(f.links.links))
	}
	for _, l := range f.links.links {
		if l.FromID != "fnd_1" || l.ToID != "fnd_mock_1" {
			t.Errorf("link = %s -> %s, want fnd_1 -> fnd_mock_1", l.FromID, l.ToID)
		}
		if l.Kind != "finding" {
			t.Errorf("link kind = %q, want finding", l.Kind)
		}
		if l.Score < corroborateThreshold {
			t.Errorf("link score = %v, want >= %v", l.Score, corroborateThreshold)
		}
		if l.BranchID != "br_quantum_main" {
			t.Errorf("link branch = %q, want the finding's branch", l.BranchID)
		}
	}
}

func TestVerifyRunQueryTruncatesOnRuneBoundary(t *testing.T) {
	f := newVerifyFixture()
	err := f.findings.Create(context.Background(), &secondary.FindingRecord{
		ID:        "fnd_long",
		ProjectID: "quantum",
		BranchID:  "br_quantum_main",
		Type:      "SCUTTLE_WEB",
		Title:     strings.Repeat("量子退火", 80),
		Source:    "web",
	})
	if err != nil {
		t.Fatalf("seed finding: %v", err)
	}
	f.missions.missions["msn_1"] = &secondary.MissionRecord{
		ID: "msn_1", ProjectID: "quantum", FindingID: "fnd_long",
		Type: "SEARCH", Status: "open",
	}

	if _, err := f.svc.Run(context.Background(), primary.VerifyRunRequest{ProjectID: "quantum"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(f.provider.queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(f.provider.queries))
	}
	q := f.provider.queries[0]
	if !utf8.ValidString(q) {
		t.Errorf("query is not valid UTF-8: %q", q)
	}
	if got := utf8.RuneCountInString(q); got != 200 {
		t.Errorf("query runes = %d, want truncated to 200", got)
	}
}

func TestVerifyRunNoCorroboration(t *testing.T) {
	f := newVerifyFixture()
	seedVerifyFinding(t, f.findings, "fnd_1", 0.5)
	f.missions.missions["msn_1"] = &secondary.MissionRecord{
		ID: "msn_1", ProjectID: "quantum", FindingID: "fnd_1",
		Type: "SEARCH", Status: "open",
	}
	f.provider.results = []secondary.SearchResult{
		{Title: "unrelated cooking recipe", URL: "https://example.com/b", Snippet: "preheat the oven"},
	}

	if _, err := f.svc.Run(context.Background(), primary.VerifyRunRequest{ProjectID: "quantum"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	fnd := f.findings.findings["fnd_1"]
	if fnd.Confidence != 0.5 {
		t.Errorf("confidence = %v, want unchanged 0.5", fnd.Confidence)
	}
	if hasTag(fnd.Tags, "verified") {
		t.Error("finding was tagged verified without corroboration")
	}
	if len(f.links.links) != 0 {
		t.Errorf("links = %d, non-corroborating evidence must not be linked", len(f.links.links))
	}
	if got := f.missions.missions["msn_1"].Note; got != "no corroboration" {
		t.Errorf("mission note = %q", got)
	}
}

func TestVerifyRunRefuteContested(t *testing.T) {
	f := newVerifyFixture()
	seedVerifyFinding(t, f.findings, "fnd_1", 0.5, "unverified")
	f.missions.missions["msn_1"] = &secondary.MissionRecord{
		ID: "msn_1", ProjectID: "quantum", FindingID: "fnd_1",
		Type: "REFUTE", Status: "open",
	}
	f.provider.results = []secondary.SearchResult{
		{Title: "quantum annealing convergence results disputed", URL: "https://example.com/c",
			Snippet: "the solver converged only on trivial instances"},
	}

	if _, err := f.svc.Run(context.Background(), primary.VerifyRunRequest{ProjectID: "quantum"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	fnd := f.findings.findings["fnd_1"]
	if math.Abs(fnd.Confidence-0.35) > 1e-9 {
		t.Errorf("confidence = %v, want 0.5 - 0.15", fnd.Confidence)
	}
	if !hasTag(fnd.Tags, "disputed") {
		t.Errorf("tags = %v, want disputed", fnd.Tags)
	}
	if got := f.missions.missions["msn_1"].Note; got != "contested by external evidence" {
		t.Errorf("mission note = %q", got)
	}
}

func TestVerifyRunProviderUnavailableBlocks(t *testing.T) {
	f := newVerifyFixture()
	seedVerifyFinding(t, f.findings, "fnd_1", 0.5)
	f.missions.missions["msn_1"] = &secondary.MissionRecord{
		ID: "msn_1", ProjectID: "quantum", FindingID: "fnd_1",
		Type: "SEARCH", Status: "open",
	}
	f.provider.err = secondary.ErrProviderUnavailable

	summary, err := f.svc.Run(context.Background(), primary.VerifyRunRequest{ProjectID: "quantum"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Skipped != 1 || summary.Processed != 0 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want one skipped", summary)
	}
	if got := f.missions.missions["msn_1"].Status; got != "blocked" {
		t.Errorf("mission status = %q, want blocked", got)
	}
}

func TestVerifyRunIsolatesFailures(t *testing.T) {
	f := newVerifyFixture()
	seedVerifyFinding(t, f.findings, "fnd_ok", 0.5)
	f.missions.missions["msn_a"] = &secondary.MissionRecord{
		ID: "msn_a", ProjectID: "quantum", FindingID: "fnd_missing",
		Type: "SEARCH", Status: "open",
	}
	f.missions.missions["msn_b"] = &secondary.MissionRecord{
		ID: "msn_b", ProjectID: "quantum", FindingID: "fnd_ok",
		Type: "SEARCH", Status: "open",
	}
	f.provider.results = []secondary.SearchResult{
		{Title: "quantum annealing convergence", URL: "https://example.com/d",
			Snippet: "solver converged on the benchmark"},
	}

	summary, err := f.svc.Run(context.Background(), primary.VerifyRunRequest{ProjectID: "quantum"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want one processed and one failed", summary)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].ItemID != "msn_a" {
		t.Errorf("errors = %+v, want msn_a recorded", summary.Errors)
	}
}

func TestVerifyCompleteManualOverride(t *testing.T) {
	f := newVerifyFixture()
	f.missions.missions["msn_1"] = &secondary.MissionRecord{
		ID: "msn_1", ProjectID: "quantum", FindingID: "fnd_1",
		Type: "SEARCH", Status: "open",
	}

	err := f.svc.Complete(context.Background(), primary.VerifyCompleteRequest{
		MissionID: "msn_1", Status: "cancelled", Note: "superseded",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	m := f.missions.missions["msn_1"]
	if m.Status != "cancelled" || m.Note != "superseded" {
		t.Errorf("mission = %+v, want cancelled/superseded", m)
	}
	if m.CompletedAt == nil {
		t.Error("terminal transition should set completion time")
	}
}

func TestVerifyCompleteRejectsIllegalTransition(t *testing.T) {
	f := newVerifyFixture()
	f.missions.missions["msn_1"] = &secondary.MissionRecord{
		ID: "msn_1", ProjectID: "quantum", FindingID: "fnd_1",
		Type: "SEARCH", Status: "done",
	}

	err := f.svc.Complete(context.Background(), primary.VerifyCompleteRequest{
		MissionID: "msn_1", Status: "open",
	})
	if err == nil {
		t.Fatal("expected an error reopening a done mission")
	}
	if got := f.missions.missions["msn_1"].Status; got != "done" {
		t.Errorf("status = %q, terminal state must not change", got)
	}
}

func TestVerifyListRejectsUnknownStatus(t *testing.T) {
	f := newVerifyFixture()
	if _, err := f.svc.List(context.Background(), "quantum", "bogus"); err == nil {
		t.Fatal("expected an error for an unknown status filter")
	}
}
