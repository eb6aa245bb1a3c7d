package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/rvault/internal/ports/secondary"
)

const missionColumns = "id, project_id, finding_id, mission_type, status, note, created_at, completed_at"

// MissionRepository implements secondary.MissionRepository with SQLite.
type MissionRepository struct {
	db *sql.DB
}

// NewMissionRepository creates a new SQLite verification mission repository.
func NewMissionRepository(db *sql.DB) *MissionRepository {
	return &MissionRepository{db: db}
}

// Create inserts a mission after validating that the finding exists and
// belongs to the mission's project.
func (r *MissionRepository) Create(ctx context.Context, mission *secondary.MissionRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var findingProject string
	err = tx.QueryRowContext(ctx, "SELECT project_id FROM findings WHERE id = ?", mission.FindingID).Scan(&findingProject)
	if err == sql.ErrNoRows {
		return fmt.Errorf("finding %s: %w", mission.FindingID, secondary.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check finding: %w", err)
	}
	if findingProject != mission.ProjectID {
		return fmt.Errorf("finding %s belongs to another project: %w", mission.FindingID, secondary.ErrInvalidProject)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO verification_missions (id, project_id, finding_id, mission_type, status, note) VALUES (?, ?, ?, ?, ?, ?)",
		mission.ID, mission.ProjectID, mission.FindingID, mission.Type, mission.Status, mission.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to create mission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mission: %w", err)
	}
	return nil
}

// Get retrieves a mission by id.
func (r *MissionRepository) Get(ctx context.Context, id string) (*secondary.MissionRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+missionColumns+" FROM verification_missions WHERE id = ?", id)
	record, err := scanMission(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("mission %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}
	return record, nil
}

// List returns a project's missions, optionally filtered by status, newest
// first.
func (r *MissionRepository) List(ctx context.Context, projectID, status string) ([]*secondary.MissionRecord, error) {
	query := "SELECT " + missionColumns + " FROM verification_missions WHERE project_id = ?"
	args := []any{projectID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC, id DESC"
	return r.queryMissions(ctx, query, args...)
}

// ListRunnable returns open and blocked missions, oldest first so stalled
// work is retried before fresh work.
func (r *MissionRepository) ListRunnable(ctx context.Context, projectID string, limit int) ([]*secondary.MissionRecord, error) {
	query := "SELECT " + missionColumns + ` FROM verification_missions
		WHERE project_id = ? AND status IN ('open', 'blocked')
		ORDER BY created_at ASC, id ASC`
	args := []any{projectID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.queryMissions(ctx, query, args...)
}

// Transition applies from -> to guarded by the expected current status.
// Zero rows affected means another caller moved the mission first; that is
// reported as ErrConflict and treated upstream as already handled.
func (r *MissionRepository) Transition(ctx context.Context, id, from, to, note string, completedAt *time.Time) error {
	var completed any
	if completedAt != nil {
		completed = *completedAt
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE verification_missions SET status = ?, note = ?, completed_at = ? WHERE id = ? AND status = ?",
		to, note, completed, id, from,
	)
	if err != nil {
		return fmt.Errorf("failed to transition mission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing mission from a lost race.
		var exists int
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM verification_missions WHERE id = ?", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check mission: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("mission %s: %w", id, secondary.ErrNotFound)
		}
		return fmt.Errorf("mission %s no longer %s: %w", id, from, secondary.ErrConflict)
	}
	return nil
}

// CountActive returns open and blocked mission counts for the strategy
// snapshot.
func (r *MissionRepository) CountActive(ctx context.Context, projectID string) (int, int, error) {
	var open, blocked int
	err := r.db.QueryRowContext(ctx, `SELECT
			COUNT(CASE WHEN status = 'open' THEN 1 END),
			COUNT(CASE WHEN status = 'blocked' THEN 1 END)
		FROM verification_missions WHERE project_id = ?`, projectID).Scan(&open, &blocked)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count missions: %w", err)
	}
	return open, blocked, nil
}

func (r *MissionRepository) queryMissions(ctx context.Context, query string, args ...any) ([]*secondary.MissionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	defer rows.Close()

	var missions []*secondary.MissionRecord
	for rows.Next() {
		record, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mission: %w", err)
		}
		missions = append(missions, record)
	}
	return missions, rows.Err()
}

func scanMission(row rowScanner) (*secondary.MissionRecord, error) {
	var completedAt sql.NullTime
	record := &secondary.MissionRecord{}
	err := row.Scan(&record.ID, &record.ProjectID, &record.FindingID, &record.Type,
		&record.Status, &record.Note, &record.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		record.CompletedAt = &t
	}
	return record, nil
}
