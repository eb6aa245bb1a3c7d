package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/rvault/internal/ports/secondary"
)

// ProjectRepository implements secondary.ProjectRepository with SQLite.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new SQLite project repository.
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts the project and its main branch in one transaction.
// Idempotent: an existing project (and branch) is left untouched so a re-run
// of init converges instead of failing.
func (r *ProjectRepository) Create(ctx context.Context, project *secondary.ProjectRecord, mainBranch *secondary.BranchRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO projects (id, name, objective, status, priority) VALUES (?, ?, ?, ?, ?)",
		project.ID, project.Name, project.Objective, project.Status, project.Priority,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO branches (id, project_id, name, hypothesis) VALUES (?, ?, ?, ?)",
		mainBranch.ID, project.ID, mainBranch.Name, mainBranch.Hypothesis,
	)
	if err != nil {
		return fmt.Errorf("failed to create main branch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project creation: %w", err)
	}
	return nil
}

// Get retrieves a project by id.
func (r *ProjectRepository) Get(ctx context.Context, id string) (*secondary.ProjectRecord, error) {
	record := &secondary.ProjectRecord{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, objective, status, priority, created_at FROM projects WHERE id = ?",
		id,
	).Scan(&record.ID, &record.Name, &record.Objective, &record.Status, &record.Priority, &record.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return record, nil
}

// List returns all projects, highest priority first, newest first within.
func (r *ProjectRepository) List(ctx context.Context) ([]*secondary.ProjectRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, objective, status, priority, created_at FROM projects ORDER BY priority DESC, created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*secondary.ProjectRecord
	for rows.Next() {
		record := &secondary.ProjectRecord{}
		if err := rows.Scan(&record.ID, &record.Name, &record.Objective, &record.Status, &record.Priority, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, record)
	}
	return projects, rows.Err()
}

// UpdateStatus transitions a project's status.
func (r *ProjectRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE projects SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}
	return requireRow(res, id)
}

// UpdatePriority changes a project's priority.
func (r *ProjectRepository) UpdatePriority(ctx context.Context, id string, priority int) error {
	res, err := r.db.ExecContext(ctx, "UPDATE projects SET priority = ? WHERE id = ?", priority, id)
	if err != nil {
		return fmt.Errorf("failed to update project priority: %w", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("project %s: %w", id, secondary.ErrNotFound)
	}
	return nil
}
