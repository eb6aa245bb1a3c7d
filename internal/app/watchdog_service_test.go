package app

import (
	"context"
	"testing"
	"time"

	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/ports/secondary"
)

func newWatchdogFixture() (*WatchdogServiceImpl, *mockWatchRepo, *mockFetcher, *mockIngest, *mockSearchProvider) {
	watches := newMockWatchRepo()
	branches := newMockBranchRepo()
	branches.seed("quantum", "main")
	fetcher := &mockFetcher{result: &secondary.FetchResult{Source: "web", Type: "SCUTTLE_WEB"}}
	ingest := &mockIngest{}
	provider := &mockSearchProvider{}
	svc := NewWatchdogService(watches, branches, ingest, fetcher, provider, &mockSink{}, 3)
	svc.now = func() time.Time { return time.Unix(1_000_000, 0) }
	return svc, watches, fetcher, ingest, provider
}

func seedWatchTarget(watches *mockWatchRepo, id, typ, target string, nextDue int64) *secondary.WatchTargetRecord {
	rec := &secondary.WatchTargetRecord{
		ID:              id,
		ProjectID:       "quantum",
		BranchID:        "br_quantum_main",
		Type:            typ,
		Target:          target,
		IntervalSeconds: 3600,
		Status:          "active",
		NextDueAt:       nextDue,
	}
	watches.targets[id] = rec
	return rec
}

func TestWatchdogProcessesDueURLTarget(t *testing.T) {
	svc, watches, _, ingest, _ := newWatchdogFixture()
	seedWatchTarget(watches, "wt_1", "url", "https://example.com/feed", 999_000)

	summary, err := svc.RunOnce(context.Background(), primary.WatchdogRequest{})
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("summary = %+v, want one processed", summary)
	}
	if len(ingest.scuttles) != 1 {
		t.Fatalf("scuttle calls = %d, want 1", len(ingest.scuttles))
	}
	req := ingest.scuttles[0]
	if req.URL != "https://example.com/feed" || req.Branch != "main" {
		t.Errorf("scuttle request = %+v", req)
	}
	if !hasTag(req.Tags, "watch") {
		t.Errorf("tags = %v, want watch", req.Tags)
	}

	rec := watches.targets["wt_1"]
	if rec.NextDueAt != 1_000_000+3600 {
		t.Errorf("next_due_at = %d, want rescheduled by interval", rec.NextDueAt)
	}
	if rec.LastCheckedAt != 1_000_000 {
		t.Errorf("last_checked_at = %d, want pass time", rec.LastCheckedAt)
	}
}

func TestWatchdogSkipsFutureTargets(t *testing.T) {
	svc, watches, _, ingest, _ := newWatchdogFixture()
	seedWatchTarget(watches, "wt_future", "url", "https://example.com", 2_000_000)

	summary, err := svc.RunOnce(context.Background(), primary.WatchdogRequest{})
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if summary.Processed != 0 || len(ingest.scuttles) != 0 {
		t.Errorf("future target was processed: %+v", summary)
	}
}

func TestWatchdogLostClaimIsSkip(t *testing.T) {
	svc, watches, _, ingest, _ := newWatchdogFixture()
	seedWatchTarget(watches, "wt_1", "url", "https://example.com", 999_000)
	watches.claimErrs["wt_1"] = secondary.ErrConflict

	summary, err := svc.RunOnce(context.Background(), primary.WatchdogRequest{})
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if summary.Skipped != 1 || summary.Processed != 0 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want one skipped", summary)
	}
	if len(ingest.scuttles) != 0 {
		t.Error("lost claim must not fetch")
	}
}

func TestWatchdogQueryTargetDedup(t *testing.T) {
	svc, watches, _, ingest, provider := newWatchdogFixture()
	target := seedWatchTarget(watches, "wt_q", "query", "quantum annealing", 999_000)
	provider.results = []secondary.SearchResult{
		{Title: "Result A", URL: "https://example.com/a", Snippet: "alpha"},
		{Title: "Result B", URL: "https://example.com/b", Snippet: "beta"},
	}
	watches.seen[target.ID+"|"+resultHash("https://example.com/a", "Result A")] = true

	summary, err := svc.RunOnce(context.Background(), primary.WatchdogRequest{})
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(ingest.payloads) != 1 {
		t.Fatalf("ingested %d results, want 1 after dedup", len(ingest.payloads))
	}
	p := ingest.payloads[0]
	if p.Title != "Result B" || p.Type != "WATCH_RESULT" || p.Branch != "main" {
		t.Errorf("payload = %+v", p)
	}
	if !watches.seen[target.ID+"|"+resultHash("https://example.com/b", "Result B")] {
		t.Error("new result was not marked seen")
	}
}

func TestWatchdogDryRunNeverWrites(t *testing.T) {
	svc, watches, fetcher, ingest, provider := newWatchdogFixture()
	seedWatchTarget(watches, "wt_u", "url", "https://example.com", 999_000)
	seedWatchTarget(watches, "wt_q", "query", "quantum", 999_100)
	provider.results = []secondary.SearchResult{
		{Title: "hit", URL: "https://example.com/hit", Snippet: "snippet"},
	}

	summary, err := svc.RunOnce(context.Background(), primary.WatchdogRequest{DryRun: true})
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("summary = %+v, want two processed", summary)
	}
	if len(ingest.scuttles) != 0 || len(ingest.payloads) != 0 {
		t.Error("dry run must not ingest")
	}
	if len(watches.seen) != 0 {
		t.Error("dry run must not mark results seen")
	}
	if watches.targets["wt_u"].NextDueAt != 999_000 {
		t.Error("dry run must not claim or reschedule")
	}
	// Both target types still exercise their read path so the operator can
	// see what a real pass would do.
	if len(provider.queries) != 1 {
		t.Errorf("provider calls = %d, want 1", len(provider.queries))
	}
	if len(fetcher.urls) != 1 || fetcher.urls[0] != "https://example.com" {
		t.Errorf("fetch previews = %v, want the url target fetched once", fetcher.urls)
	}
}

func TestWatchdogIsolatesTargetFailures(t *testing.T) {
	svc, watches, _, ingest, _ := newWatchdogFixture()
	seedWatchTarget(watches, "wt_bad", "bogus", "whatever", 999_000)
	seedWatchTarget(watches, "wt_ok", "url", "https://example.com", 999_100)

	summary, err := svc.RunOnce(context.Background(), primary.WatchdogRequest{})
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want one processed and one failed", summary)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].ItemID != "wt_bad" {
		t.Errorf("errors = %+v", summary.Errors)
	}
	if len(ingest.scuttles) != 1 {
		t.Errorf("good target was not processed")
	}
}

func TestResultHashNormalizes(t *testing.T) {
	a := resultHash("https://Example.com/A ", "Some Title")
	b := resultHash("https://example.com/a", "some title")
	if a != b {
		t.Error("hash must be case and whitespace insensitive")
	}
	if a == resultHash("https://example.com/a", "other title") {
		t.Error("different titles must hash differently")
	}
}
