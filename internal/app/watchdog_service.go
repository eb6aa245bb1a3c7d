package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/rvault/internal/logging"
	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/ports/secondary"
)

// watchdogConcurrency bounds how many targets one pass works in parallel.
const watchdogConcurrency = 4

// WatchdogServiceImpl implements the WatchdogService interface: the
// scheduler pass over due watch targets. Claims go through the repository's
// compare-and-swap, so concurrent passes never double-process a target.
type WatchdogServiceImpl struct {
	watchRepo  secondary.WatchTargetRepository
	branchRepo secondary.BranchRepository
	ingest     primary.IngestService
	fetcher    secondary.Fetcher
	provider   secondary.SearchProvider
	sink       secondary.EventSink
	topN       int
	log        *slog.Logger
	now        func() time.Time
}

// NewWatchdogService creates a new WatchdogService with injected
// dependencies.
func NewWatchdogService(
	watchRepo secondary.WatchTargetRepository,
	branchRepo secondary.BranchRepository,
	ingest primary.IngestService,
	fetcher secondary.Fetcher,
	provider secondary.SearchProvider,
	sink secondary.EventSink,
	topN int,
) *WatchdogServiceImpl {
	if topN <= 0 {
		topN = 3
	}
	return &WatchdogServiceImpl{
		watchRepo:  watchRepo,
		branchRepo: branchRepo,
		ingest:     ingest,
		fetcher:    fetcher,
		provider:   provider,
		sink:       sink,
		topN:       topN,
		log:        logging.New("watchdog"),
		now:        time.Now,
	}
}

// branchName resolves the target's pinned branch id back to the name the
// ingestion gateway expects.
func (s *WatchdogServiceImpl) branchName(ctx context.Context, branchID string) (string, error) {
	branch, err := s.branchRepo.Get(ctx, branchID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve watch branch: %w", err)
	}
	return branch.Name, nil
}

// RunOnce evaluates due targets, claims each by CAS, re-ingests, and
// reschedules. Per-target failures never abort the pass.
func (s *WatchdogServiceImpl) RunOnce(ctx context.Context, req primary.WatchdogRequest) (*primary.BatchSummary, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	now := s.now().Unix()

	due, err := s.watchRepo.ListDue(ctx, req.ProjectID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due targets: %w", err)
	}

	summary := &primary.BatchSummary{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(watchdogConcurrency)
	for _, target := range due {
		g.Go(func() error {
			err := s.runTarget(gctx, target, now, req.DryRun)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Processed++
			case errors.Is(err, secondary.ErrConflict):
				// Another pass claimed this due window first.
				summary.Skipped++
			default:
				summary.Failed++
				summary.Errors = append(summary.Errors, primary.BatchError{
					ItemID: target.ID,
					Reason: err.Error(),
				})
				s.log.Warn("watch target failed", "watch", target.ID, "error", err)
				s.sink.Emit(gctx, secondary.BusEvent{
					Kind:      "log",
					ProjectID: target.ProjectID,
					Data:      map[string]any{"op": "watchdog_error", "watch": target.ID, "error": err.Error()},
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Info("watchdog pass complete", "processed", summary.Processed,
		"skipped", summary.Skipped, "failed", summary.Failed, "dry_run", req.DryRun)
	return summary, nil
}

func (s *WatchdogServiceImpl) runTarget(ctx context.Context, target *secondary.WatchTargetRecord, now int64, dryRun bool) error {
	if !dryRun {
		// Claim before fetching; losing the race means nothing was wasted.
		nextDue := now + target.IntervalSeconds
		if err := s.watchRepo.Claim(ctx, target.ID, target.NextDueAt, now, nextDue); err != nil {
			return err
		}
	}

	switch target.Type {
	case "url":
		return s.runURLTarget(ctx, target, dryRun)
	case "query":
		return s.runQueryTarget(ctx, target, dryRun)
	default:
		return fmt.Errorf("unknown watch type %q", target.Type)
	}
}

func (s *WatchdogServiceImpl) runURLTarget(ctx context.Context, target *secondary.WatchTargetRecord, dryRun bool) error {
	if dryRun {
		// Preview the fetch without the gateway so nothing reaches the
		// ledger; the result is discarded.
		if _, err := s.fetcher.Fetch(ctx, target.Target); err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}
		return nil
	}
	branch, err := s.branchName(ctx, target.BranchID)
	if err != nil {
		return err
	}
	_, err = s.ingest.Scuttle(ctx, primary.ScuttleRequest{
		ProjectID: target.ProjectID,
		Branch:    branch,
		URL:       target.Target,
		Tags:      append([]string{"watch"}, target.Tags...),
	})
	if err != nil {
		return fmt.Errorf("scuttle failed: %w", err)
	}
	return nil
}

func (s *WatchdogServiceImpl) runQueryTarget(ctx context.Context, target *secondary.WatchTargetRecord, dryRun bool) error {
	results, err := s.provider.Search(ctx, target.Target, s.topN)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if dryRun {
		return nil
	}
	branch, err := s.branchName(ctx, target.BranchID)
	if err != nil {
		return err
	}

	for _, result := range results {
		hash := resultHash(result.URL, result.Title)
		seen, err := s.watchRepo.Seen(ctx, target.ID, hash)
		if err != nil {
			return fmt.Errorf("dedup check failed: %w", err)
		}
		if seen {
			continue
		}

		if _, err := s.ingest.IngestPayload(ctx, primary.IngestPayloadRequest{
			ProjectID:  target.ProjectID,
			Branch:     branch,
			Type:       "WATCH_RESULT",
			Title:      result.Title,
			Content:    result.Snippet,
			SourceURL:  result.URL,
			Source:     "web:" + result.URL,
			Confidence: 0.7,
			Tags:       append([]string{"watch"}, target.Tags...),
		}); err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		if err := s.watchRepo.MarkSeen(ctx, target.ID, hash); err != nil {
			return fmt.Errorf("dedup record failed: %w", err)
		}
	}
	return nil
}

// resultHash is the dedup key: sha256 of the normalized URL|title pair.
func resultHash(url, title string) string {
	normalized := strings.ToLower(strings.TrimSpace(url)) + "|" + strings.ToLower(strings.TrimSpace(title))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
