package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/rvault/internal/ports/secondary"
)

// HypothesisRepository implements secondary.HypothesisRepository with SQLite.
type HypothesisRepository struct {
	db *sql.DB
}

// NewHypothesisRepository creates a new SQLite hypothesis repository.
func NewHypothesisRepository(db *sql.DB) *HypothesisRepository {
	return &HypothesisRepository{db: db}
}

// Create inserts a hypothesis; the branch must exist.
func (r *HypothesisRepository) Create(ctx context.Context, hypothesis *secondary.HypothesisRecord) error {
	var exists int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM branches WHERE id = ?", hypothesis.BranchID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check branch: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("branch %s: %w", hypothesis.BranchID, secondary.ErrInvalidBranch)
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO hypotheses (id, branch_id, statement, rationale, confidence, status) VALUES (?, ?, ?, ?, ?, ?)",
		hypothesis.ID, hypothesis.BranchID, hypothesis.Statement, hypothesis.Rationale,
		clamp01(hypothesis.Confidence), hypothesis.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create hypothesis: %w", err)
	}
	return nil
}

// List returns hypotheses for a project, optionally scoped to one branch,
// newest first.
func (r *HypothesisRepository) List(ctx context.Context, projectID, branchID string) ([]*secondary.HypothesisRecord, error) {
	query := `SELECT h.id, h.branch_id, h.statement, h.rationale, h.confidence, h.status, h.created_at, h.updated_at
		FROM hypotheses h
		JOIN branches b ON b.id = h.branch_id
		WHERE b.project_id = ?`
	args := []any{projectID}
	if branchID != "" {
		query += " AND h.branch_id = ?"
		args = append(args, branchID)
	}
	query += " ORDER BY h.created_at DESC, h.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list hypotheses: %w", err)
	}
	defer rows.Close()

	var hypotheses []*secondary.HypothesisRecord
	for rows.Next() {
		record := &secondary.HypothesisRecord{}
		if err := rows.Scan(&record.ID, &record.BranchID, &record.Statement, &record.Rationale,
			&record.Confidence, &record.Status, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hypothesis: %w", err)
		}
		hypotheses = append(hypotheses, record)
	}
	return hypotheses, rows.Err()
}

// UpdateStatus transitions a hypothesis's status.
func (r *HypothesisRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE hypotheses SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update hypothesis status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("hypothesis %s: %w", id, secondary.ErrNotFound)
	}
	return nil
}

// CountStaleOpen counts open hypotheses not touched since before.
func (r *HypothesisRepository) CountStaleOpen(ctx context.Context, projectID string, before time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)
		FROM hypotheses h
		JOIN branches b ON b.id = h.branch_id
		WHERE b.project_id = ? AND h.status = 'open' AND h.updated_at < ?`,
		projectID, before,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count stale hypotheses: %w", err)
	}
	return n, nil
}
