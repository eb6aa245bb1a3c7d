package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/rvault/internal/ports/secondary"
)

// LinkRepository implements secondary.LinkRepository with SQLite.
type LinkRepository struct {
	db *sql.DB
}

// NewLinkRepository creates a new SQLite synthesis link repository.
func NewLinkRepository(db *sql.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Create inserts a link. The UNIQUE(branch_id, from_id, to_id) constraint is
// the dedup backstop: racing passes that select the same canonical pair
// surface ErrAlreadyExists instead of writing a duplicate.
func (r *LinkRepository) Create(ctx context.Context, link *secondary.LinkRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO synthesis_links (id, project_id, branch_id, from_id, to_id, kind, score) VALUES (?, ?, ?, ?, ?, ?, ?)",
		link.ID, link.ProjectID, link.BranchID, link.FromID, link.ToID, link.Kind, link.Score,
	)
	if err != nil {
		if mapped := constraintErr(err); mapped == secondary.ErrAlreadyExists {
			return fmt.Errorf("link %s-%s: %w", link.FromID, link.ToID, secondary.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

// List returns links for a project, optionally scoped to a branch.
func (r *LinkRepository) List(ctx context.Context, projectID, branchID string) ([]*secondary.LinkRecord, error) {
	query := "SELECT id, project_id, branch_id, from_id, to_id, kind, score, created_at FROM synthesis_links WHERE project_id = ?"
	args := []any{projectID}
	if branchID != "" {
		query += " AND branch_id = ?"
		args = append(args, branchID)
	}
	query += " ORDER BY score DESC, from_id ASC, to_id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []*secondary.LinkRecord
	for rows.Next() {
		record := &secondary.LinkRecord{}
		if err := rows.Scan(&record.ID, &record.ProjectID, &record.BranchID, &record.FromID,
			&record.ToID, &record.Kind, &record.Score, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, record)
	}
	return links, rows.Err()
}

// ListPairs returns the existing canonical pairs on a branch for one kind.
func (r *LinkRepository) ListPairs(ctx context.Context, branchID, kind string) ([]secondary.LinkPair, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT from_id, to_id FROM synthesis_links WHERE branch_id = ? AND kind = ?",
		branchID, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list link pairs: %w", err)
	}
	defer rows.Close()

	var pairs []secondary.LinkPair
	for rows.Next() {
		var p secondary.LinkPair
		if err := rows.Scan(&p.FromID, &p.ToID); err != nil {
			return nil, fmt.Errorf("failed to scan link pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// Count returns the number of links in a project.
func (r *LinkRepository) Count(ctx context.Context, projectID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM synthesis_links WHERE project_id = ?", projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return n, nil
}
