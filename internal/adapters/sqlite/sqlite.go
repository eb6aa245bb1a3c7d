// Package sqlite contains SQLite implementations of the ledger repository
// interfaces. Every mutating operation runs in a single implicit or explicit
// transaction; optimistic-concurrency writes report lost races as
// secondary.ErrConflict.
package sqlite

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/example/rvault/internal/ports/secondary"
)

// joinTags serializes a tag set for storage. Tags are comma-joined; empty
// tags are dropped.
func joinTags(tags []string) string {
	var kept []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, ",")
}

// splitTags parses a stored tag string back into a set, preserving order and
// dropping duplicates.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}

// mergeTags unions two tag lists, preserving first-seen order.
func mergeTags(a, b []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range append(append([]string{}, a...), b...) {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// constraintErr maps a sqlite unique/foreign-key violation to the port
// sentinel, passing other errors through.
func constraintErr(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return secondary.ErrAlreadyExists
	}
	return err
}
