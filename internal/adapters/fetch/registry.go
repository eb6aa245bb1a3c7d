// Package fetch implements the Fetcher capability: source-specific connectors
// that turn a URL into normalized content. Connectors own parsing; policy
// (SSRF checks, trust weighting, persistence) lives with the caller.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/example/rvault/internal/ports/secondary"
)

const userAgent = "rvault/1.0"

// connector is one source-specific fetcher plus its URL match rule.
type connector interface {
	secondary.Fetcher
	CanHandle(url string) bool
}

// Registry selects a connector per URL and falls back to the generic web
// fetcher. It implements secondary.Fetcher itself so callers never see the
// dispatch.
type Registry struct {
	connectors []connector
	fallback   connector
}

// NewRegistry builds the default connector set sharing one HTTP client with
// the given per-call timeout.
func NewRegistry(timeout time.Duration) *Registry {
	client := &http.Client{Timeout: timeout}
	return &Registry{
		connectors: []connector{NewRedditFetcher(client)},
		fallback:   NewWebFetcher(client),
	}
}

// Fetch dispatches to the first connector claiming the URL.
func (r *Registry) Fetch(ctx context.Context, url string) (*secondary.FetchResult, error) {
	for _, c := range r.connectors {
		if c.CanHandle(url) {
			return c.Fetch(ctx, url)
		}
	}
	return r.fallback.Fetch(ctx, url)
}

// classifyErr maps transport failures onto the capability sentinels. Timeouts
// are distinguished so callers can surface "try again later" rather than a
// generic failure.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", secondary.ErrFetchTimeout, err)
	}
	return fmt.Errorf("%w: %v", secondary.ErrFetchFailed, err)
}
