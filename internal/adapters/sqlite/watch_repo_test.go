package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/rvault/internal/adapters/sqlite"
	"github.com/example/rvault/internal/ports/secondary"
)

func newWatchTarget(projectID, branchID, id string, nextDue int64) *secondary.WatchTargetRecord {
	return &secondary.WatchTargetRecord{
		ID:              id,
		ProjectID:       projectID,
		BranchID:        branchID,
		Type:            "query",
		Target:          "quantum error correction",
		IntervalSeconds: 3600,
		Tags:            []string{"physics"},
		Status:          "active",
		NextDueAt:       nextDue,
	}
}

func TestWatchTargetRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewWatchTargetRepository(db)
	ctx := context.Background()

	projectID, branchID := seedVault(t, db)
	due := time.Now().Unix()

	if err := repo.Create(ctx, newWatchTarget(projectID, branchID, "wt_00000001", due)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.Get(ctx, "wt_00000001")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.NextDueAt != due {
		t.Errorf("expected next_due_at %d, got %d", due, got.NextDueAt)
	}
	if got.LastCheckedAt != 0 {
		t.Errorf("expected zero LastCheckedAt for a fresh target, got %d", got.LastCheckedAt)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "physics" {
		t.Errorf("unexpected tags: %v", got.Tags)
	}
}

func TestWatchTargetRepository_ListDue(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewWatchTargetRepository(db)
	ctx := context.Background()

	projectID, branchID := seedVault(t, db)
	now := time.Now().Unix()

	overdue := newWatchTarget(projectID, branchID, "wt_overdue", now-600)
	fresh := newWatchTarget(projectID, branchID, "wt_fresh", now+600)
	disabled := newWatchTarget(projectID, branchID, "wt_disabled", now-600)
	disabled.Status = "disabled"

	for _, target := range []*secondary.WatchTargetRecord{overdue, fresh, disabled} {
		if err := repo.Create(ctx, target); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	due, err := repo.ListDue(ctx, projectID, now, 10)
	if err != nil {
		t.Fatalf("ListDue failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due target, got %d", len(due))
	}
	if due[0].ID != "wt_overdue" {
		t.Errorf("expected wt_overdue, got %s", due[0].ID)
	}
}

func TestWatchTargetRepository_Claim(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewWatchTargetRepository(db)
	ctx := context.Background()

	projectID, branchID := seedVault(t, db)
	now := time.Now().Unix()
	due := now - 60

	if err := repo.Create(ctx, newWatchTarget(projectID, branchID, "wt_claim", due)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.Claim(ctx, "wt_claim", due, now, now+3600); err != nil {
		t.Fatalf("first Claim failed: %v", err)
	}

	// A second pass still holding the old due token must lose the race.
	err := repo.Claim(ctx, "wt_claim", due, now, now+3600)
	if !errors.Is(err, secondary.ErrConflict) {
		t.Errorf("expected ErrConflict on stale claim, got %v", err)
	}

	got, err := repo.Get(ctx, "wt_claim")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.NextDueAt != now+3600 {
		t.Errorf("expected rescheduled next_due_at %d, got %d", now+3600, got.NextDueAt)
	}
	if got.LastCheckedAt != now {
		t.Errorf("expected last_checked_at %d, got %d", now, got.LastCheckedAt)
	}
}

func TestWatchTargetRepository_Claim_Disabled(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewWatchTargetRepository(db)
	ctx := context.Background()

	projectID, branchID := seedVault(t, db)
	due := time.Now().Unix() - 60

	if err := repo.Create(ctx, newWatchTarget(projectID, branchID, "wt_off", due)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Disable(ctx, "wt_off"); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}

	err := repo.Claim(ctx, "wt_off", due, due+60, due+3660)
	if !errors.Is(err, secondary.ErrConflict) {
		t.Errorf("expected ErrConflict for disabled target, got %v", err)
	}
}

func TestWatchTargetRepository_Disable_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewWatchTargetRepository(db)

	err := repo.Disable(context.Background(), "wt_ghost")
	if !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWatchTargetRepository_SeenMarkSeen(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewWatchTargetRepository(db)
	ctx := context.Background()

	projectID, branchID := seedVault(t, db)
	if err := repo.Create(ctx, newWatchTarget(projectID, branchID, "wt_seen", time.Now().Unix())); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	hash := "a3f1c2"
	seen, err := repo.Seen(ctx, "wt_seen", hash)
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if seen {
		t.Error("expected fresh hash to be unseen")
	}

	if err := repo.MarkSeen(ctx, "wt_seen", hash); err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	// Marking twice is a no-op, not an error.
	if err := repo.MarkSeen(ctx, "wt_seen", hash); err != nil {
		t.Fatalf("repeat MarkSeen failed: %v", err)
	}

	seen, err = repo.Seen(ctx, "wt_seen", hash)
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if !seen {
		t.Error("expected hash to be seen after MarkSeen")
	}
}

func TestWatchTargetRepository_CountOverdue(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewWatchTargetRepository(db)
	ctx := context.Background()

	projectID, branchID := seedVault(t, db)
	now := time.Now().Unix()

	if err := repo.Create(ctx, newWatchTarget(projectID, branchID, "wt_o1", now-10)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(ctx, newWatchTarget(projectID, branchID, "wt_o2", now+500)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	n, err := repo.CountOverdue(ctx, projectID, now)
	if err != nil {
		t.Fatalf("CountOverdue failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 overdue target, got %d", n)
	}
}
