// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() so tests run against the
// authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers.
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/rvault/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// This is the single shared test database setup function for all repository
// tests.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	// Use the authoritative schema from schema.go
	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedProject inserts a test project and returns its ID.
func seedProject(t *testing.T, db *sql.DB, id, name string) string {
	t.Helper()
	if id == "" {
		id = "quantum"
	}
	if name == "" {
		name = "Quantum"
	}
	_, err := db.Exec("INSERT INTO projects (id, name, objective, status) VALUES (?, ?, 'study decoherence', 'active')", id, name)
	if err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
	return id
}

// seedBranch inserts a test branch and returns its ID.
func seedBranch(t *testing.T, db *sql.DB, id, projectID, name string) string {
	t.Helper()
	if id == "" {
		id = "br_quantum_main"
	}
	if projectID == "" {
		projectID = "quantum"
	}
	if name == "" {
		name = "main"
	}
	_, err := db.Exec("INSERT INTO branches (id, project_id, name) VALUES (?, ?, ?)", id, projectID, name)
	if err != nil {
		t.Fatalf("failed to seed branch: %v", err)
	}
	return id
}

// seedFinding inserts a test finding and returns its ID.
func seedFinding(t *testing.T, db *sql.DB, id, projectID, branchID string, confidence float64, tags string) string {
	t.Helper()
	if id == "" {
		id = "fnd_00000001"
	}
	if projectID == "" {
		projectID = "quantum"
	}
	if branchID == "" {
		branchID = "br_quantum_main"
	}
	_, err := db.Exec(
		"INSERT INTO findings (id, project_id, branch_id, type, title, content, confidence, source, tags) VALUES (?, ?, ?, 'SCUTTLE_RESULT', 'Seed finding', 'seed content', ?, 'web', ?)",
		id, projectID, branchID, confidence, tags,
	)
	if err != nil {
		t.Fatalf("failed to seed finding: %v", err)
	}
	return id
}

// seedVault seeds a project with its main branch, the minimum fixture most
// repository tests need.
func seedVault(t *testing.T, db *sql.DB) (projectID, branchID string) {
	t.Helper()
	projectID = seedProject(t, db, "", "")
	branchID = seedBranch(t, db, "", projectID, "")
	return projectID, branchID
}
