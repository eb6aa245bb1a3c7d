package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/rvault/internal/ports/secondary"
)

const watchColumns = "id, project_id, branch_id, type, target, interval_seconds, tags, status, last_checked_at, next_due_at, created_at"

// WatchTargetRepository implements secondary.WatchTargetRepository with
// SQLite. The conditional write in Claim is the whole concurrency story for
// the watchdog: no locks, just a compare-and-swap on next_due_at.
type WatchTargetRepository struct {
	db *sql.DB
}

// NewWatchTargetRepository creates a new SQLite watch target repository.
func NewWatchTargetRepository(db *sql.DB) *WatchTargetRepository {
	return &WatchTargetRepository{db: db}
}

// Create inserts a watch target after validating its branch reference.
func (r *WatchTargetRepository) Create(ctx context.Context, target *secondary.WatchTargetRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := validateBranchRef(ctx, tx, target.ProjectID, target.BranchID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO watch_targets (id, project_id, branch_id, type, target, interval_seconds, tags, status, last_checked_at, next_due_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		target.ID, target.ProjectID, target.BranchID, target.Type, target.Target,
		target.IntervalSeconds, joinTags(target.Tags), target.Status, nullableUnix(target.LastCheckedAt), target.NextDueAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create watch target: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit watch target: %w", err)
	}
	return nil
}

// Get retrieves a watch target by id.
func (r *WatchTargetRepository) Get(ctx context.Context, id string) (*secondary.WatchTargetRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+watchColumns+" FROM watch_targets WHERE id = ?", id)
	record, err := scanWatchTarget(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("watch target %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watch target: %w", err)
	}
	return record, nil
}

// List returns a project's watch targets, oldest first.
func (r *WatchTargetRepository) List(ctx context.Context, projectID string) ([]*secondary.WatchTargetRecord, error) {
	return r.queryTargets(ctx,
		"SELECT "+watchColumns+" FROM watch_targets WHERE project_id = ? ORDER BY created_at ASC, id ASC",
		projectID,
	)
}

// ListDue returns active targets whose due time has passed, most overdue
// first. Empty projectID means all projects.
func (r *WatchTargetRepository) ListDue(ctx context.Context, projectID string, now int64, limit int) ([]*secondary.WatchTargetRecord, error) {
	query := "SELECT " + watchColumns + " FROM watch_targets WHERE status = 'active' AND next_due_at <= ?"
	args := []any{now}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY next_due_at ASC, id ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.queryTargets(ctx, query, args...)
}

// Claim reschedules the target iff next_due_at still equals expected. A lost
// race means another pass already owns this due window: ErrConflict, caller
// skips.
func (r *WatchTargetRepository) Claim(ctx context.Context, id string, expectedNextDue, lastChecked, nextDue int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE watch_targets SET last_checked_at = ?, next_due_at = ? WHERE id = ? AND status = 'active' AND next_due_at = ?",
		lastChecked, nextDue, id, expectedNextDue,
	)
	if err != nil {
		return fmt.Errorf("failed to claim watch target: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("watch target %s already claimed: %w", id, secondary.ErrConflict)
	}
	return nil
}

// Disable stops a target from being scheduled.
func (r *WatchTargetRepository) Disable(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE watch_targets SET status = 'disabled' WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to disable watch target: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("watch target %s: %w", id, secondary.ErrNotFound)
	}
	return nil
}

// CountOverdue counts active targets past due for the strategy snapshot.
func (r *WatchTargetRepository) CountOverdue(ctx context.Context, projectID string, now int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM watch_targets WHERE project_id = ? AND status = 'active' AND next_due_at <= ?",
		projectID, now,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue targets: %w", err)
	}
	return n, nil
}

// Seen reports whether a content hash was already ingested for the target.
func (r *WatchTargetRepository) Seen(ctx context.Context, targetID, contentHash string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM watch_seen WHERE target_id = ? AND content_hash = ?",
		targetID, contentHash,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check watch dedup: %w", err)
	}
	return n > 0, nil
}

// MarkSeen records a content hash for the target. Re-marking is a no-op.
func (r *WatchTargetRepository) MarkSeen(ctx context.Context, targetID, contentHash string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO watch_seen (target_id, content_hash) VALUES (?, ?)",
		targetID, contentHash,
	)
	if err != nil {
		return fmt.Errorf("failed to record watch dedup: %w", err)
	}
	return nil
}

func (r *WatchTargetRepository) queryTargets(ctx context.Context, query string, args ...any) ([]*secondary.WatchTargetRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch targets: %w", err)
	}
	defer rows.Close()

	var targets []*secondary.WatchTargetRecord
	for rows.Next() {
		record, err := scanWatchTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch target: %w", err)
		}
		targets = append(targets, record)
	}
	return targets, rows.Err()
}

func scanWatchTarget(row rowScanner) (*secondary.WatchTargetRecord, error) {
	var (
		tags        string
		lastChecked sql.NullInt64
	)
	record := &secondary.WatchTargetRecord{}
	err := row.Scan(&record.ID, &record.ProjectID, &record.BranchID, &record.Type, &record.Target,
		&record.IntervalSeconds, &tags, &record.Status, &lastChecked, &record.NextDueAt, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	record.Tags = splitTags(tags)
	record.LastCheckedAt = lastChecked.Int64
	return record, nil
}

func nullableUnix(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
