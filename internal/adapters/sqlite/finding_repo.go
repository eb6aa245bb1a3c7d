package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/rvault/internal/ports/secondary"
)

const findingColumns = "id, project_id, branch_id, type, step, title, content, payload, confidence, source, tags, created_at"

// FindingRepository implements secondary.FindingRepository with SQLite.
type FindingRepository struct {
	db *sql.DB
}

// NewFindingRepository creates a new SQLite finding repository.
func NewFindingRepository(db *sql.DB) *FindingRepository {
	return &FindingRepository{db: db}
}

// Create inserts a finding after validating that its branch exists and
// belongs to the same project.
func (r *FindingRepository) Create(ctx context.Context, finding *secondary.FindingRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := validateBranchRef(ctx, tx, finding.ProjectID, finding.BranchID); err != nil {
		return err
	}

	confidence := clamp01(finding.Confidence)
	_, err = tx.ExecContext(ctx,
		"INSERT INTO findings (id, project_id, branch_id, type, step, title, content, payload, confidence, source, tags) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		finding.ID, finding.ProjectID, finding.BranchID, finding.Type, finding.Step,
		finding.Title, finding.Content, orEmptyJSON(finding.Payload), confidence, finding.Source, joinTags(finding.Tags),
	)
	if err != nil {
		return fmt.Errorf("failed to create finding: %w", err)
	}
	finding.Confidence = confidence

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit finding: %w", err)
	}
	return nil
}

// Get retrieves a finding by id.
func (r *FindingRepository) Get(ctx context.Context, id string) (*secondary.FindingRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+findingColumns+" FROM findings WHERE id = ?", id)
	record, err := scanFinding(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("finding %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get finding: %w", err)
	}
	return record, nil
}

// List returns findings for a project with optional filters, newest first.
func (r *FindingRepository) List(ctx context.Context, projectID string, filters secondary.FindingFilters) ([]*secondary.FindingRecord, error) {
	query := "SELECT " + findingColumns + " FROM findings WHERE project_id = ?"
	args := []any{projectID}

	if filters.BranchID != "" {
		query += " AND branch_id = ?"
		args = append(args, filters.BranchID)
	}
	if filters.Type != "" {
		query += " AND type = ?"
		args = append(args, filters.Type)
	}
	if filters.Tag != "" {
		query += " AND (',' || tags || ',') LIKE ?"
		args = append(args, "%,"+filters.Tag+",%")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	return r.queryFindings(ctx, query, args...)
}

// ListVerifiable returns findings below the confidence threshold that do not
// carry the verified tag and have no open or blocked mission, ordered by
// confidence ascending then age ascending (most suspect first).
func (r *FindingRepository) ListVerifiable(ctx context.Context, projectID string, threshold float64, limit int) ([]*secondary.FindingRecord, error) {
	query := `SELECT ` + findingColumns + ` FROM findings f
		WHERE f.project_id = ?
		  AND f.confidence < ?
		  AND (',' || f.tags || ',') NOT LIKE '%,verified,%'
		  AND NOT EXISTS (
			SELECT 1 FROM verification_missions m
			WHERE m.finding_id = f.id AND m.status IN ('open', 'blocked')
		  )
		ORDER BY f.confidence ASC, f.created_at ASC, f.id ASC`
	args := []any{projectID, threshold}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.queryFindings(ctx, query, args...)
}

// UpdateConfidence sets a finding's confidence, clamped to [0,1]. This and
// AddTags are the only mutation paths; findings are otherwise append-only.
func (r *FindingRepository) UpdateConfidence(ctx context.Context, id string, confidence float64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE findings SET confidence = ? WHERE id = ?",
		clamp01(confidence), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update finding confidence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finding %s: %w", id, secondary.ErrNotFound)
	}
	return nil
}

// AddTags unions tags into a finding's tag set in one transaction.
func (r *FindingRepository) AddTags(ctx context.Context, id string, tags []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT tags FROM findings WHERE id = ?", id).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("finding %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read finding tags: %w", err)
	}

	merged := joinTags(mergeTags(splitTags(current), tags))
	if _, err := tx.ExecContext(ctx, "UPDATE findings SET tags = ? WHERE id = ?", merged, id); err != nil {
		return fmt.Errorf("failed to update finding tags: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tag update: %w", err)
	}
	return nil
}

// Count returns the number of findings in a project.
func (r *FindingRepository) Count(ctx context.Context, projectID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM findings WHERE project_id = ?", projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count findings: %w", err)
	}
	return n, nil
}

// CountLowConfidenceUnqueued counts verifiable findings for the strategy
// snapshot.
func (r *FindingRepository) CountLowConfidenceUnqueued(ctx context.Context, projectID string, threshold float64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM findings f
		WHERE f.project_id = ?
		  AND f.confidence < ?
		  AND (',' || f.tags || ',') NOT LIKE '%,verified,%'
		  AND NOT EXISTS (
			SELECT 1 FROM verification_missions m
			WHERE m.finding_id = f.id AND m.status IN ('open', 'blocked')
		  )`, projectID, threshold).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count verifiable findings: %w", err)
	}
	return n, nil
}

func (r *FindingRepository) queryFindings(ctx context.Context, query string, args ...any) ([]*secondary.FindingRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	defer rows.Close()

	var findings []*secondary.FindingRecord
	for rows.Next() {
		record, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		findings = append(findings, record)
	}
	return findings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFinding(row rowScanner) (*secondary.FindingRecord, error) {
	var tags string
	record := &secondary.FindingRecord{}
	err := row.Scan(&record.ID, &record.ProjectID, &record.BranchID, &record.Type, &record.Step,
		&record.Title, &record.Content, &record.Payload, &record.Confidence, &record.Source, &tags, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	record.Tags = splitTags(tags)
	return record, nil
}

// validateBranchRef checks that a branch exists and belongs to the project.
func validateBranchRef(ctx context.Context, tx *sql.Tx, projectID, branchID string) error {
	var branchProject string
	err := tx.QueryRowContext(ctx, "SELECT project_id FROM branches WHERE id = ?", branchID).Scan(&branchProject)
	if err == sql.ErrNoRows {
		return fmt.Errorf("branch %s: %w", branchID, secondary.ErrInvalidBranch)
	}
	if err != nil {
		return fmt.Errorf("failed to check branch: %w", err)
	}
	if branchProject != projectID {
		return fmt.Errorf("branch %s belongs to another project: %w", branchID, secondary.ErrInvalidBranch)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func orEmptyJSON(s string) string {
	if s == "" {
		return "{}"
	}
	return s
}
