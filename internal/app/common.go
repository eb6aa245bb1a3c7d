// Package app implements the primary-port services: the use-case layer
// between the CLI/HTTP boundary and the repositories, connectors, and core
// rules.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/ports/secondary"
)

// MainBranch is the branch every project starts with and the default scope
// for branch-less requests.
const MainBranch = "main"

// resolveBranch maps a branch name (empty = main) to its record.
func resolveBranch(ctx context.Context, repo secondary.BranchRepository, projectID, name string) (*secondary.BranchRecord, error) {
	if name == "" {
		name = MainBranch
	}
	branch, err := repo.GetByName(ctx, projectID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve branch %q: %w", name, err)
	}
	return branch, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func findingToDTO(record *secondary.FindingRecord) *primary.Finding {
	return &primary.Finding{
		ID:         record.ID,
		ProjectID:  record.ProjectID,
		Branch:     record.BranchID,
		Type:       record.Type,
		Step:       record.Step,
		Title:      record.Title,
		Content:    record.Content,
		Payload:    record.Payload,
		Confidence: record.Confidence,
		Source:     record.Source,
		Tags:       record.Tags,
		CreatedAt:  formatTime(record.CreatedAt),
	}
}

func branchToDTO(record *secondary.BranchRecord) *primary.Branch {
	return &primary.Branch{
		ID:         record.ID,
		ProjectID:  record.ProjectID,
		Name:       record.Name,
		Parent:     record.ParentBranchID,
		Hypothesis: record.Hypothesis,
		CreatedAt:  formatTime(record.CreatedAt),
	}
}

func missionToDTO(record *secondary.MissionRecord) *primary.Mission {
	m := &primary.Mission{
		ID:        record.ID,
		ProjectID: record.ProjectID,
		FindingID: record.FindingID,
		Type:      record.Type,
		Status:    record.Status,
		Note:      record.Note,
		CreatedAt: formatTime(record.CreatedAt),
	}
	if record.CompletedAt != nil {
		m.CompletedAt = formatTime(*record.CompletedAt)
	}
	return m
}

func projectToDTO(record *secondary.ProjectRecord) *primary.Project {
	return &primary.Project{
		ID:        record.ID,
		Name:      record.Name,
		Objective: record.Objective,
		Status:    record.Status,
		Priority:  record.Priority,
		CreatedAt: formatTime(record.CreatedAt),
	}
}

func watchTargetToDTO(record *secondary.WatchTargetRecord) *primary.WatchTarget {
	target := &primary.WatchTarget{
		ID:              record.ID,
		ProjectID:       record.ProjectID,
		Branch:          record.BranchID,
		Type:            record.Type,
		Target:          record.Target,
		IntervalSeconds: record.IntervalSeconds,
		Tags:            record.Tags,
		Status:          record.Status,
		NextDueAt:       formatTime(time.Unix(record.NextDueAt, 0)),
	}
	if record.LastCheckedAt > 0 {
		target.LastCheckedAt = formatTime(time.Unix(record.LastCheckedAt, 0))
	}
	return target
}
