package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/rvault/internal/ports/secondary"
)

func TestQueryHash_Canonical(t *testing.T) {
	a := QueryHash("Quantum Error Correction")
	b := QueryHash("  quantum error correction  ")
	if a != b {
		t.Error("expected casing and padding to hash identically")
	}
	if a == QueryHash("something else") {
		t.Error("expected distinct queries to hash differently")
	}
}

func TestBraveProvider_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "test-key" {
			t.Errorf("expected subscription token header, got %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "decoherence" {
			t.Errorf("expected query 'decoherence', got %q", got)
		}
		resp := map[string]any{
			"web": map[string]any{
				"results": []map[string]string{
					{"title": "A", "url": "https://a.example", "description": "first"},
					{"title": "B", "url": "https://b.example", "description": "second"},
					{"title": "C", "url": "https://c.example", "description": "third"},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewBraveProvider("test-key", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	results, err := p.Search(context.Background(), "decoherence", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(results))
	}
	if results[0].Title != "A" || results[0].Snippet != "first" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
}

func TestBraveProvider_Search_NoKey(t *testing.T) {
	p := NewBraveProvider("")
	_, err := p.Search(context.Background(), "x", 5)
	if !errors.Is(err, secondary.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestBraveProvider_Search_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewBraveProvider("test-key", WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	_, err := p.Search(context.Background(), "x", 5)
	if !errors.Is(err, secondary.ErrFetchFailed) {
		t.Errorf("expected ErrFetchFailed, got %v", err)
	}
}

// fakeCache is an in-memory SearchCacheRepository.
type fakeCache struct {
	entries map[string]fakeCacheEntry
}

type fakeCacheEntry struct {
	result string
	stored time.Time
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]fakeCacheEntry{}}
}

func (c *fakeCache) Get(ctx context.Context, queryHash string, notBefore time.Time) (string, bool, error) {
	entry, ok := c.entries[queryHash]
	if !ok || entry.stored.Before(notBefore) {
		return "", false, nil
	}
	return entry.result, true, nil
}

func (c *fakeCache) Put(ctx context.Context, queryHash, query, result string) error {
	c.entries[queryHash] = fakeCacheEntry{result: result, stored: time.Now()}
	return nil
}

// countingProvider counts upstream calls.
type countingProvider struct {
	calls   int
	results []secondary.SearchResult
	err     error
}

func (p *countingProvider) Search(ctx context.Context, query string, limit int) ([]secondary.SearchResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.results, nil
}

func TestCachedProvider_ReadThrough(t *testing.T) {
	upstream := &countingProvider{results: []secondary.SearchResult{{Title: "hit", URL: "https://x"}}}
	cached := NewCachedProvider(upstream, newFakeCache(), time.Hour)
	ctx := context.Background()

	first, err := cached.Search(ctx, "quantum", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	second, err := cached.Search(ctx, "Quantum", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if upstream.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", upstream.calls)
	}
	if len(first) != 1 || len(second) != 1 || second[0].Title != "hit" {
		t.Errorf("unexpected results: %v / %v", first, second)
	}
}

func TestCachedProvider_ExpiredEntryRefetches(t *testing.T) {
	cache := newFakeCache()
	upstream := &countingProvider{results: []secondary.SearchResult{{Title: "fresh"}}}
	cached := NewCachedProvider(upstream, cache, time.Hour)

	// Pre-populate with an entry stored outside the TTL window.
	cache.entries[QueryHash("quantum")] = fakeCacheEntry{
		result: `[{"Title":"stale"}]`,
		stored: time.Now().Add(-2 * time.Hour),
	}

	results, err := cached.Search(context.Background(), "quantum", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if upstream.calls != 1 {
		t.Errorf("expected upstream call for expired entry, got %d", upstream.calls)
	}
	if results[0].Title != "fresh" {
		t.Errorf("expected fresh result, got %s", results[0].Title)
	}
}

func TestCachedProvider_ProviderErrorNotCached(t *testing.T) {
	upstream := &countingProvider{err: secondary.ErrProviderUnavailable}
	cached := NewCachedProvider(upstream, newFakeCache(), time.Hour)

	_, err := cached.Search(context.Background(), "quantum", 5)
	if !errors.Is(err, secondary.ErrProviderUnavailable) {
		t.Errorf("expected provider error to pass through, got %v", err)
	}
}
