package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/example/rvault/internal/logging"
	"github.com/example/rvault/internal/ports/secondary"
)

// CachedProvider wraps a SearchProvider with a TTL read-through cache so
// retried watch passes and verification runs don't burn API quota on the same
// query. Cache keys are sha256 of the lowercased, trimmed query, so casing
// and padding don't fragment the cache.
type CachedProvider struct {
	inner secondary.SearchProvider
	cache secondary.SearchCacheRepository
	ttl   time.Duration
	now   func() time.Time
	log   *slog.Logger
}

// NewCachedProvider wraps inner with a cache of the given TTL.
func NewCachedProvider(inner secondary.SearchProvider, cache secondary.SearchCacheRepository, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
		log:   logging.New("search"),
	}
}

// QueryHash returns the canonical cache key for a query.
func QueryHash(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:])
}

// Search consults the cache before the provider. Cache failures fall through
// to the provider; a provider error is never masked by the cache layer.
func (p *CachedProvider) Search(ctx context.Context, query string, limit int) ([]secondary.SearchResult, error) {
	hash := QueryHash(query)

	if raw, ok, err := p.cache.Get(ctx, hash, p.now().Add(-p.ttl)); err == nil && ok {
		var results []secondary.SearchResult
		if err := json.Unmarshal([]byte(raw), &results); err == nil {
			p.log.Debug("search cache hit", "query", query)
			return capResults(results, limit), nil
		}
	} else if err != nil {
		p.log.Warn("search cache read failed", "error", err)
	}

	results, err := p.inner.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(results); err == nil {
		if err := p.cache.Put(ctx, hash, query, string(raw)); err != nil {
			p.log.Warn("search cache write failed", "error", err)
		}
	}
	return results, nil
}

func capResults(results []secondary.SearchResult, limit int) []secondary.SearchResult {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
