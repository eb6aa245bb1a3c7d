package secondary

import (
	"context"
	"errors"
)

// External capability errors.
var (
	// ErrFetchTimeout is returned when a fetch exceeds its per-call budget.
	// Retryable by re-invoking the operation later; never retried silently.
	ErrFetchTimeout = errors.New("fetch timeout")
	// ErrFetchFailed is returned for other transient network failures.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrProviderUnavailable is returned when no search provider is
	// configured. Degrades a mission to blocked, not fatal.
	ErrProviderUnavailable = errors.New("search provider unavailable")
)

// FetchResult is the normalized content a connector produced for one target.
type FetchResult struct {
	Source     string // e.g. "reddit/r/golang", "web"
	Type       string // finding type, e.g. "SCUTTLE_WEB"
	Title      string
	Content    string
	Confidence float64 // connector's own estimate, before trust weighting
	Tags       []string
}

// Fetcher obtains normalized content for a URL. Implementations own the
// source-specific parsing; the gateway owns policy and persistence.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// SearchResult is one hit from the external search provider.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// SearchProvider runs web searches for verification and query watches.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// BusEvent is one telemetry emission: persisted for replay and fanned out to
// live stream subscribers.
type BusEvent struct {
	Kind      string // "log", "graph_update", "heartbeat"
	ProjectID string
	Data      map[string]any
}

// EventSink receives operation telemetry from services. Emissions are
// best-effort observability; failures must not fail the operation.
type EventSink interface {
	Emit(ctx context.Context, event BusEvent)
}
