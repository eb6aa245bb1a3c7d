package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/rvault/internal/core/ids"
	"github.com/example/rvault/internal/logging"
	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/ports/secondary"
)

// MinWatchInterval is the floor for re-poll intervals so a misconfigured
// target can't hammer a source.
const MinWatchInterval = 60 * time.Second

// WatchServiceImpl implements the WatchService interface.
type WatchServiceImpl struct {
	watchRepo  secondary.WatchTargetRepository
	branchRepo secondary.BranchRepository
	sink       secondary.EventSink
	log        *slog.Logger
	now        func() time.Time
}

// NewWatchService creates a new WatchService with injected dependencies.
func NewWatchService(
	watchRepo secondary.WatchTargetRepository,
	branchRepo secondary.BranchRepository,
	sink secondary.EventSink,
) *WatchServiceImpl {
	return &WatchServiceImpl{
		watchRepo:  watchRepo,
		branchRepo: branchRepo,
		sink:       sink,
		log:        logging.New("watch"),
		now:        time.Now,
	}
}

// Add registers a watch target due immediately, so the first pass picks it
// up without waiting one interval.
func (s *WatchServiceImpl) Add(ctx context.Context, req primary.AddWatchRequest) (*primary.WatchTarget, error) {
	if req.Target == "" {
		return nil, fmt.Errorf("watch target is required")
	}
	if req.Type != "url" && req.Type != "query" {
		return nil, fmt.Errorf("watch type must be url or query, got %q", req.Type)
	}

	branch, err := resolveBranch(ctx, s.branchRepo, req.ProjectID, req.Branch)
	if err != nil {
		return nil, err
	}

	interval := req.IntervalSeconds
	if interval < int64(MinWatchInterval.Seconds()) {
		interval = int64(MinWatchInterval.Seconds())
	}

	record := &secondary.WatchTargetRecord{
		ID:              ids.NewWatchTargetID(),
		ProjectID:       req.ProjectID,
		BranchID:        branch.ID,
		Type:            req.Type,
		Target:          req.Target,
		IntervalSeconds: interval,
		Tags:            req.Tags,
		Status:          "active",
		NextDueAt:       s.now().Unix(),
	}
	if err := s.watchRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to add watch target: %w", err)
	}

	s.log.Info("watch target added", "project", req.ProjectID, "target", req.Target, "interval", interval)
	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "log",
		ProjectID: req.ProjectID,
		Data:      map[string]any{"op": "watch_add", "watch": record.ID, "type": req.Type},
	})
	return watchTargetToDTO(record), nil
}

// List returns the project's watch targets.
func (s *WatchServiceImpl) List(ctx context.Context, projectID string) ([]*primary.WatchTarget, error) {
	records, err := s.watchRepo.List(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch targets: %w", err)
	}
	targets := make([]*primary.WatchTarget, 0, len(records))
	for _, r := range records {
		targets = append(targets, watchTargetToDTO(r))
	}
	return targets, nil
}

// Disable stops a target from being scheduled. The target and its dedup
// history stay in the ledger.
func (s *WatchServiceImpl) Disable(ctx context.Context, targetID string) error {
	if err := s.watchRepo.Disable(ctx, targetID); err != nil {
		return fmt.Errorf("failed to disable watch target: %w", err)
	}
	return nil
}
