package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/rvault/internal/ports/secondary"
)

// BranchRepository implements secondary.BranchRepository with SQLite.
type BranchRepository struct {
	db *sql.DB
}

// NewBranchRepository creates a new SQLite branch repository.
func NewBranchRepository(db *sql.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

// Create inserts a branch after validating its references. Duplicate names
// within a project surface as ErrAlreadyExists; the parent, when set, must
// already exist (parents are fixed at creation, never changed).
func (r *BranchRepository) Create(ctx context.Context, branch *secondary.BranchRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects WHERE id = ?", branch.ProjectID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("project %s: %w", branch.ProjectID, secondary.ErrInvalidProject)
	}

	var parent any
	if branch.ParentBranchID != "" {
		var parentProject string
		err := tx.QueryRowContext(ctx, "SELECT project_id FROM branches WHERE id = ?", branch.ParentBranchID).Scan(&parentProject)
		if err == sql.ErrNoRows {
			return fmt.Errorf("parent branch %s: %w", branch.ParentBranchID, secondary.ErrInvalidBranch)
		}
		if err != nil {
			return fmt.Errorf("failed to check parent branch: %w", err)
		}
		if parentProject != branch.ProjectID {
			return fmt.Errorf("parent branch %s belongs to another project: %w", branch.ParentBranchID, secondary.ErrInvalidBranch)
		}
		parent = branch.ParentBranchID
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO branches (id, project_id, name, parent_branch_id, hypothesis) VALUES (?, ?, ?, ?, ?)",
		branch.ID, branch.ProjectID, branch.Name, parent, branch.Hypothesis,
	)
	if err != nil {
		if mapped := constraintErr(err); mapped == secondary.ErrAlreadyExists {
			return fmt.Errorf("branch %q in project %s: %w", branch.Name, branch.ProjectID, secondary.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create branch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit branch creation: %w", err)
	}
	return nil
}

// Get retrieves a branch by id.
func (r *BranchRepository) Get(ctx context.Context, id string) (*secondary.BranchRecord, error) {
	return r.scanOne(ctx, "SELECT id, project_id, name, parent_branch_id, hypothesis, created_at FROM branches WHERE id = ?", id)
}

// GetByName retrieves a branch by project and name.
func (r *BranchRepository) GetByName(ctx context.Context, projectID, name string) (*secondary.BranchRecord, error) {
	return r.scanOne(ctx,
		"SELECT id, project_id, name, parent_branch_id, hypothesis, created_at FROM branches WHERE project_id = ? AND name = ?",
		projectID, name,
	)
}

func (r *BranchRepository) scanOne(ctx context.Context, query string, args ...any) (*secondary.BranchRecord, error) {
	var parent sql.NullString
	record := &secondary.BranchRecord{}
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&record.ID, &record.ProjectID, &record.Name, &parent, &record.Hypothesis, &record.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("branch: %w", secondary.ErrInvalidBranch)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	record.ParentBranchID = parent.String
	return record, nil
}

// List returns a project's branches, oldest first.
func (r *BranchRepository) List(ctx context.Context, projectID string) ([]*secondary.BranchRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, project_id, name, parent_branch_id, hypothesis, created_at FROM branches WHERE project_id = ? ORDER BY created_at ASC, id ASC",
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	defer rows.Close()

	var branches []*secondary.BranchRecord
	for rows.Next() {
		var parent sql.NullString
		record := &secondary.BranchRecord{}
		if err := rows.Scan(&record.ID, &record.ProjectID, &record.Name, &parent, &record.Hypothesis, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		record.ParentBranchID = parent.String
		branches = append(branches, record)
	}
	return branches, rows.Err()
}
