package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/rvault/internal/core/strategy"
	"github.com/example/rvault/internal/logging"
	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/ports/secondary"
)

// staleAfter is how long an open hypothesis or branch can sit untouched
// before the planner flags it for review.
const staleAfter = 7 * 24 * time.Hour

// StrategyServiceImpl implements the StrategyService interface. The ranking
// logic is pure (core/strategy); this service assembles the snapshot and
// optionally carries out the top action.
type StrategyServiceImpl struct {
	projectRepo secondary.ProjectRepository
	branchRepo  secondary.BranchRepository
	findingRepo secondary.FindingRepository
	missionRepo secondary.MissionRepository
	linkRepo    secondary.LinkRepository
	watchRepo   secondary.WatchTargetRepository
	hypoRepo    secondary.HypothesisRepository
	verify      primary.VerifyService
	synthesis   primary.SynthesisService
	watchdog    primary.WatchdogService
	sink        secondary.EventSink
	log         *slog.Logger
	now         func() time.Time
}

// NewStrategyService creates a new StrategyService with injected
// dependencies.
func NewStrategyService(
	projectRepo secondary.ProjectRepository,
	branchRepo secondary.BranchRepository,
	findingRepo secondary.FindingRepository,
	missionRepo secondary.MissionRepository,
	linkRepo secondary.LinkRepository,
	watchRepo secondary.WatchTargetRepository,
	hypoRepo secondary.HypothesisRepository,
	verify primary.VerifyService,
	synthesis primary.SynthesisService,
	watchdog primary.WatchdogService,
	sink secondary.EventSink,
) *StrategyServiceImpl {
	return &StrategyServiceImpl{
		projectRepo: projectRepo,
		branchRepo:  branchRepo,
		findingRepo: findingRepo,
		missionRepo: missionRepo,
		linkRepo:    linkRepo,
		watchRepo:   watchRepo,
		hypoRepo:    hypoRepo,
		verify:      verify,
		synthesis:   synthesis,
		watchdog:    watchdog,
		sink:        sink,
		log:         logging.New("strategy"),
		now:         time.Now,
	}
}

// Strategize analyzes the project's ledger and returns ranked
// recommendations, executing the top one when requested.
func (s *StrategyServiceImpl) Strategize(ctx context.Context, req primary.StrategizeRequest) (*primary.StrategizeResponse, error) {
	if _, err := s.projectRepo.Get(ctx, req.ProjectID); err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	snapshot, err := s.snapshot(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	ranked := strategy.Analyze(snapshot)
	resp := &primary.StrategizeResponse{}
	for _, r := range ranked {
		resp.Recommendations = append(resp.Recommendations, &primary.Recommendation{
			Action:    string(r.Action),
			Rationale: r.Rationale,
			Weight:    r.Weight,
		})
	}

	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "log",
		ProjectID: req.ProjectID,
		Data:      map[string]any{"op": "strategize", "top": resp.Recommendations[0].Action},
	})

	if req.Execute {
		resp.Execution = s.execute(ctx, req.ProjectID, ranked[0])
	}
	return resp, nil
}

func (s *StrategyServiceImpl) snapshot(ctx context.Context, projectID string) (strategy.Snapshot, error) {
	snapshot := strategy.Snapshot{ProjectID: projectID}
	var err error

	if snapshot.Findings, err = s.findingRepo.Count(ctx, projectID); err != nil {
		return snapshot, fmt.Errorf("failed to count findings: %w", err)
	}
	if snapshot.LowConfidenceUnqueued, err = s.findingRepo.CountLowConfidenceUnqueued(ctx, projectID, DefaultVerifyThreshold); err != nil {
		return snapshot, fmt.Errorf("failed to count low-confidence findings: %w", err)
	}
	if snapshot.OpenMissions, snapshot.BlockedMissions, err = s.missionRepo.CountActive(ctx, projectID); err != nil {
		return snapshot, fmt.Errorf("failed to count missions: %w", err)
	}
	if snapshot.Links, err = s.linkRepo.Count(ctx, projectID); err != nil {
		return snapshot, fmt.Errorf("failed to count links: %w", err)
	}
	if snapshot.OverdueWatchTargets, err = s.watchRepo.CountOverdue(ctx, projectID, s.now().Unix()); err != nil {
		return snapshot, fmt.Errorf("failed to count overdue watches: %w", err)
	}
	if snapshot.StaleOpenHypotheses, err = s.hypoRepo.CountStaleOpen(ctx, projectID, s.now().Add(-staleAfter)); err != nil {
		return snapshot, fmt.Errorf("failed to count stale hypotheses: %w", err)
	}
	if snapshot.StaleBranches, err = s.countStaleBranches(ctx, projectID); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

// countStaleBranches counts branches past the stale window with no findings
// at all: lines of inquiry that were opened and then abandoned.
func (s *StrategyServiceImpl) countStaleBranches(ctx context.Context, projectID string) (int, error) {
	branches, err := s.branchRepo.List(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to list branches: %w", err)
	}
	cutoff := s.now().Add(-staleAfter)

	stale := 0
	for _, branch := range branches {
		if branch.CreatedAt.After(cutoff) {
			continue
		}
		findings, err := s.findingRepo.List(ctx, projectID, secondary.FindingFilters{BranchID: branch.ID, Limit: 1})
		if err != nil {
			return 0, fmt.Errorf("failed to probe branch activity: %w", err)
		}
		if len(findings) == 0 {
			stale++
		}
	}
	return stale, nil
}

// execute carries out the top recommendation. Failures are reported in the
// result, not returned: the ranked list is still useful.
func (s *StrategyServiceImpl) execute(ctx context.Context, projectID string, top strategy.Recommendation) *primary.ExecutionResult {
	result := &primary.ExecutionResult{Action: string(top.Action), Details: map[string]any{}}

	switch top.Action {
	case strategy.ActionVerifyPlan:
		planned, err := s.verify.Plan(ctx, primary.VerifyPlanRequest{ProjectID: projectID})
		if err != nil {
			result.Details["error"] = err.Error()
			return result
		}
		result.OK = true
		result.Details["missions"] = len(planned.Missions)

	case strategy.ActionVerifyRun:
		summary, err := s.verify.Run(ctx, primary.VerifyRunRequest{ProjectID: projectID})
		if err != nil {
			result.Details["error"] = err.Error()
			return result
		}
		result.OK = true
		result.Details["processed"] = summary.Processed
		result.Details["skipped"] = summary.Skipped
		result.Details["failed"] = summary.Failed

	case strategy.ActionSynthesize:
		resp, err := s.synthesis.Synthesize(ctx, primary.SynthesizeRequest{
			ProjectID: projectID,
			Threshold: 0.2,
			TopK:      3,
		})
		if err != nil {
			result.Details["error"] = err.Error()
			return result
		}
		result.OK = true
		result.Details["created"] = resp.Created

	case strategy.ActionWatchdogRun:
		summary, err := s.watchdog.RunOnce(ctx, primary.WatchdogRequest{ProjectID: projectID})
		if err != nil {
			result.Details["error"] = err.Error()
			return result
		}
		result.OK = true
		result.Details["processed"] = summary.Processed

	default:
		// SCUTTLE and the review actions need a human: there is nothing
		// mechanical to run.
		result.OK = true
		result.Details["note"] = "manual action; nothing to execute"
	}

	s.log.Info("strategy executed", "project", projectID, "action", result.Action, "ok", result.OK)
	return result
}
