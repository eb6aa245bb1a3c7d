package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/rvault/internal/ports/secondary"
)

// ArtifactRepository implements secondary.ArtifactRepository with SQLite.
type ArtifactRepository struct {
	db *sql.DB
}

// NewArtifactRepository creates a new SQLite artifact repository.
func NewArtifactRepository(db *sql.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Create inserts an artifact after validating its branch reference.
func (r *ArtifactRepository) Create(ctx context.Context, artifact *secondary.ArtifactRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := validateBranchRef(ctx, tx, artifact.ProjectID, artifact.BranchID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO artifacts (id, project_id, branch_id, path, type, metadata) VALUES (?, ?, ?, ?, ?, ?)",
		artifact.ID, artifact.ProjectID, artifact.BranchID, artifact.Path, artifact.Type, orEmptyJSON(artifact.Metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit artifact: %w", err)
	}
	return nil
}

// List returns artifacts for a project, optionally scoped to a branch,
// newest first.
func (r *ArtifactRepository) List(ctx context.Context, projectID, branchID string) ([]*secondary.ArtifactRecord, error) {
	query := "SELECT id, project_id, branch_id, path, type, metadata, created_at FROM artifacts WHERE project_id = ?"
	args := []any{projectID}
	if branchID != "" {
		query += " AND branch_id = ?"
		args = append(args, branchID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*secondary.ArtifactRecord
	for rows.Next() {
		record := &secondary.ArtifactRecord{}
		if err := rows.Scan(&record.ID, &record.ProjectID, &record.BranchID, &record.Path, &record.Type, &record.Metadata, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, record)
	}
	return artifacts, rows.Err()
}
