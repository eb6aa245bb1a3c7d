package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.DB) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "add_watch_seen_table",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_search_cache_table",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "add_findings_confidence_index",
		Up:      migrationV3,
	},
}

// RunMigrations applies any migrations newer than the recorded schema version.
// Versions are tracked in schema_migrations; each applied migration is recorded
// in the same transaction scope it runs in.
func RunMigrations(conn *sql.DB) error {
	_, err := conn.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := m.Up(conn); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if _, err := conn.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// migrationV1 adds the per-target dedup table for watchdog ingests.
// IF NOT EXISTS keeps it a no-op on fresh installs that already carry it.
func migrationV1(conn *sql.DB) error {
	_, err := conn.Exec(`CREATE TABLE IF NOT EXISTS watch_seen (
		target_id TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (target_id, content_hash),
		FOREIGN KEY (target_id) REFERENCES watch_targets(id)
	)`)
	return err
}

// migrationV2 adds the search cache.
func migrationV2(conn *sql.DB) error {
	_, err := conn.Exec(`CREATE TABLE IF NOT EXISTS search_cache (
		query_hash TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		result TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

// migrationV3 adds the index verification planning scans on.
func migrationV3(conn *sql.DB) error {
	_, err := conn.Exec("CREATE INDEX IF NOT EXISTS idx_findings_confidence ON findings(confidence)")
	return err
}
