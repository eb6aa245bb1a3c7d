package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SearchCacheRepository implements secondary.SearchCacheRepository with
// SQLite. TTL is the reader's concern: stale rows stay on disk and get
// overwritten by the next Put for the same hash.
type SearchCacheRepository struct {
	db *sql.DB
}

// NewSearchCacheRepository creates a new SQLite search cache repository.
func NewSearchCacheRepository(db *sql.DB) *SearchCacheRepository {
	return &SearchCacheRepository{db: db}
}

// Get returns the cached raw result for a hash if it was stored at or after
// notBefore.
func (r *SearchCacheRepository) Get(ctx context.Context, queryHash string, notBefore time.Time) (string, bool, error) {
	var result string
	err := r.db.QueryRowContext(ctx,
		"SELECT result FROM search_cache WHERE query_hash = ? AND created_at >= ?",
		queryHash, notBefore.UTC(),
	).Scan(&result)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read search cache: %w", err)
	}
	return result, true, nil
}

// Put stores or refreshes a cached result.
func (r *SearchCacheRepository) Put(ctx context.Context, queryHash, query, result string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO search_cache (query_hash, query, result, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP) ON CONFLICT(query_hash) DO UPDATE SET query = excluded.query, result = excluded.result, created_at = excluded.created_at",
		queryHash, query, result,
	)
	if err != nil {
		return fmt.Errorf("failed to write search cache: %w", err)
	}
	return nil
}
