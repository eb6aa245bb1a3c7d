package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/rvault/internal/ports/secondary"
)

// EventRepository implements secondary.EventRepository with SQLite. The stream
// is append-only; rows are never updated or deleted.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append writes one telemetry entry and backfills the assigned cursor id.
func (r *EventRepository) Append(ctx context.Context, event *secondary.EventRecord) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO events (project_id, kind, data) VALUES (?, ?, ?)",
		event.ProjectID, event.Kind, orEmptyJSON(event.Data),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read event id: %w", err)
	}
	event.ID = id
	return nil
}

// ListRecent returns the newest events for a project, newest first. Empty
// projectID means all projects.
func (r *EventRepository) ListRecent(ctx context.Context, projectID string, limit int) ([]*secondary.EventRecord, error) {
	query := "SELECT id, project_id, kind, data, created_at FROM events"
	args := []any{}
	if projectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.queryEvents(ctx, query, args...)
}

// ListAfter returns events with id > afterID in ascending order, which is the
// resume path for stream consumers.
func (r *EventRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]*secondary.EventRecord, error) {
	query := "SELECT id, project_id, kind, data, created_at FROM events WHERE id > ? ORDER BY id ASC"
	args := []any{afterID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.queryEvents(ctx, query, args...)
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*secondary.EventRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*secondary.EventRecord
	for rows.Next() {
		record := &secondary.EventRecord{}
		if err := rows.Scan(&record.ID, &record.ProjectID, &record.Kind, &record.Data, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, record)
	}
	return events, rows.Err()
}
