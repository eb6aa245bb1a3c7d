// +build ignore

package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Finding represents a finding record from the database
type Finding struct {
	ID         string
	ProjectID  string
	Source     string
	Confidence float64
	Tags       string
}

// Trust caps by source pattern, matching the seeded defaults.
// Findings ingested before source trust existed may carry raw
// confidence above their source's cap.
var sourceCaps = map[string]struct {
	Cap float64
	Tag string
}{
	"reddit":   {1.0, ""},
	"moltbook": {0.55, "unverified"},
	"blogspot": {0.55, "unverified"},
	"web":      {0.7, ""},
}

func main() {
	dryRun := flag.Bool("dry-run", false, "Preview backfill without executing")
	flag.Parse()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting home dir: %v\n", err)
		os.Exit(1)
	}
	dbPath := filepath.Join(homeDir, ".rvault", "rvault.db")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	findings, err := findOverCapFindings(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error finding records: %v\n", err)
		os.Exit(1)
	}

	if len(findings) == 0 {
		fmt.Println("No findings need backfilling")
		return
	}

	fmt.Printf("Found %d finding(s) above their source cap:\n\n", len(findings))

	for _, f := range findings {
		cap, tag := capForSource(f.Source)
		fmt.Printf("  %s (%s): %.2f -> %.2f\n", f.ID, f.Source, f.Confidence, cap)
		if tag != "" && !hasTag(f.Tags, tag) {
			fmt.Printf("    -> add tag: %s\n", tag)
		}
	}
	fmt.Println()

	if *dryRun {
		fmt.Println("=== DRY RUN - No changes made ===")
		return
	}

	fmt.Println("=== Executing backfill ===")
	fmt.Println()

	updated := 0
	for _, f := range findings {
		if err := applyCap(db, f); err != nil {
			fmt.Fprintf(os.Stderr, "Error updating %s: %v\n", f.ID, err)
			continue
		}
		fmt.Printf("✓ Capped %s\n", f.ID)
		updated++
	}

	fmt.Printf("\n=== Backfill complete: %d/%d findings updated ===\n", updated, len(findings))
}

func findOverCapFindings(db *sql.DB) ([]Finding, error) {
	rows, err := db.Query(`
		SELECT id, project_id, source, confidence, tags
		FROM findings
		ORDER BY project_id, created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Source, &f.Confidence, &f.Tags); err != nil {
			return nil, err
		}

		cap, tag := capForSource(f.Source)
		if f.Confidence > cap || (tag != "" && !hasTag(f.Tags, tag)) {
			findings = append(findings, f)
		}
	}

	return findings, rows.Err()
}

func capForSource(source string) (float64, string) {
	s := strings.ToLower(source)
	for pattern, entry := range sourceCaps {
		if strings.Contains(s, pattern) {
			return entry.Cap, entry.Tag
		}
	}
	return 0.7, "" // neutral cap for unknown sources
}

func hasTag(tags, tag string) bool {
	for _, t := range strings.Split(tags, ",") {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

func applyCap(db *sql.DB, f Finding) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cap, tag := capForSource(f.Source)

	conf := f.Confidence
	if conf > cap {
		conf = cap
	}

	tags := f.Tags
	if tag != "" && !hasTag(tags, tag) {
		if tags == "" {
			tags = tag
		} else {
			tags = tags + "," + tag
		}
	}

	_, err = tx.Exec("UPDATE findings SET confidence = ?, tags = ? WHERE id = ?", conf, tags, f.ID)
	if err != nil {
		return fmt.Errorf("failed to update finding: %w", err)
	}

	return tx.Commit()
}
