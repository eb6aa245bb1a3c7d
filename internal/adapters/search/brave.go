// Package search implements the SearchProvider capability against the Brave
// Search API, with an optional cache layer backed by the ledger.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/example/rvault/internal/ports/secondary"
)

const (
	braveEndpoint = "https://api.search.brave.com/res/v1/web/search"
	maxBodyBytes  = 2 << 20
)

// BraveProvider calls the Brave web search API. A missing API key is
// ErrProviderUnavailable, which callers treat as "degrade, don't fail".
type BraveProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// BraveOption customizes a BraveProvider.
type BraveOption func(*BraveProvider)

// WithEndpoint overrides the API endpoint. Tests use this.
func WithEndpoint(endpoint string) BraveOption {
	return func(p *BraveProvider) { p.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) BraveOption {
	return func(p *BraveProvider) { p.client = client }
}

// NewBraveProvider creates a Brave search provider. An empty apiKey is
// allowed; Search then returns ErrProviderUnavailable.
func NewBraveProvider(apiKey string, opts ...BraveOption) *BraveProvider {
	p := &BraveProvider{
		apiKey:   apiKey,
		endpoint: braveEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search runs a web search and returns up to limit hits.
func (p *BraveProvider) Search(ctx context.Context, query string, limit int) ([]secondary.SearchResult, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", secondary.ErrProviderUnavailable)
	}

	params := url.Values{"q": []string{query}}
	if limit > 0 {
		params.Set("count", strconv.Itoa(limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("X-Subscription-Token", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", secondary.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: search status %d", secondary.ErrFetchFailed, resp.StatusCode)
	}

	var parsed braveResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", secondary.ErrFetchFailed, err)
	}

	results := make([]secondary.SearchResult, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		results = append(results, secondary.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Description,
		})
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}
