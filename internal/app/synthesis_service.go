package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/rvault/internal/core/ids"
	"github.com/example/rvault/internal/core/synth"
	"github.com/example/rvault/internal/logging"
	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/ports/secondary"
)

// SynthesisServiceImpl implements the SynthesisService interface. The scoring
// and selection rules live in core/synth; this service feeds them ledger
// state and persists the outcome.
type SynthesisServiceImpl struct {
	findingRepo secondary.FindingRepository
	branchRepo  secondary.BranchRepository
	linkRepo    secondary.LinkRepository
	sink        secondary.EventSink
	log         *slog.Logger
}

// NewSynthesisService creates a new SynthesisService with injected
// dependencies.
func NewSynthesisService(
	findingRepo secondary.FindingRepository,
	branchRepo secondary.BranchRepository,
	linkRepo secondary.LinkRepository,
	sink secondary.EventSink,
) *SynthesisServiceImpl {
	return &SynthesisServiceImpl{
		findingRepo: findingRepo,
		branchRepo:  branchRepo,
		linkRepo:    linkRepo,
		sink:        sink,
		log:         logging.New("synthesis"),
	}
}

// Synthesize runs one capped, deduplicated link-discovery pass over a
// branch's findings. Re-running with unchanged inputs creates zero links.
func (s *SynthesisServiceImpl) Synthesize(ctx context.Context, req primary.SynthesizeRequest) (*primary.SynthesizeResponse, error) {
	branch, err := resolveBranch(ctx, s.branchRepo, req.ProjectID, req.Branch)
	if err != nil {
		return nil, err
	}

	findings, err := s.findingRepo.List(ctx, req.ProjectID, secondary.FindingFilters{BranchID: branch.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}

	nodes := make([]synth.Node, 0, len(findings))
	for _, f := range findings {
		tokens := synth.Tokenize(f.Title + " " + f.Content)
		if len(tokens) == 0 {
			continue
		}
		nodes = append(nodes, synth.Node{ID: f.ID, Tokens: tokens})
	}

	pairs, err := s.linkRepo.ListPairs(ctx, branch.ID, "finding")
	if err != nil {
		return nil, fmt.Errorf("failed to list existing links: %w", err)
	}
	existing := make([]synth.Pair, 0, len(pairs))
	for _, p := range pairs {
		existing = append(existing, synth.Pair{From: p.FromID, To: p.ToID})
	}

	result, err := synth.Select(nodes, existing, synth.Params{
		Threshold: req.Threshold,
		TopK:      req.TopK,
		MaxLinks:  req.MaxLinks,
	}, synth.Jaccard)
	if err != nil {
		return nil, fmt.Errorf("synthesis pass failed: %w", err)
	}

	resp := &primary.SynthesizeResponse{
		Candidates:      result.Candidates,
		SkippedExisting: result.SkippedExisting,
		DryRun:          req.DryRun,
	}

	for _, candidate := range result.Selected {
		link := &secondary.LinkRecord{
			ID:        ids.NewLinkID(),
			ProjectID: req.ProjectID,
			BranchID:  branch.ID,
			FromID:    candidate.From,
			ToID:      candidate.To,
			Kind:      "finding",
			Score:     candidate.Score,
		}
		if !req.DryRun {
			if err := s.linkRepo.Create(ctx, link); err != nil {
				// A concurrent pass beat us to this pair. Count it, move on.
				if errors.Is(err, secondary.ErrAlreadyExists) {
					resp.SkippedExisting++
					continue
				}
				return nil, fmt.Errorf("failed to create link: %w", err)
			}
		}
		resp.Created++
		resp.Links = append(resp.Links, &primary.SynthesisLink{
			ID:     link.ID,
			FromID: link.FromID,
			ToID:   link.ToID,
			Kind:   link.Kind,
			Score:  link.Score,
		})
	}

	s.log.Info("synthesis pass complete", "project", req.ProjectID, "branch", branch.Name,
		"candidates", resp.Candidates, "created", resp.Created, "dry_run", req.DryRun)
	if !req.DryRun && resp.Created > 0 {
		s.sink.Emit(ctx, secondary.BusEvent{
			Kind:      "graph_update",
			ProjectID: req.ProjectID,
			Data:      map[string]any{"op": "synthesize", "created": resp.Created},
		})
	}
	return resp, nil
}
