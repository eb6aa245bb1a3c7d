package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/rvault/internal/core/ids"
	"github.com/example/rvault/internal/core/mission"
	"github.com/example/rvault/internal/core/synth"
	"github.com/example/rvault/internal/core/trust"
	"github.com/example/rvault/internal/logging"
	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/ports/secondary"
)

// DefaultVerifyThreshold is the confidence line under which findings are
// verification candidates.
const DefaultVerifyThreshold = 0.8

// corroborateThreshold is the token-overlap score at which an external search
// hit counts as corroboration (or, for REFUTE missions, as contest).
const corroborateThreshold = 0.2

// confidenceDelta is how much one verification outcome moves a finding.
const confidenceDelta = 0.15

// VerifyServiceImpl implements the VerifyService interface.
type VerifyServiceImpl struct {
	missionRepo secondary.MissionRepository
	findingRepo secondary.FindingRepository
	linkRepo    secondary.LinkRepository
	provider    secondary.SearchProvider
	ingest      primary.IngestService
	sink        secondary.EventSink
	ingestTopN  int
	log         *slog.Logger
}

// NewVerifyService creates a new VerifyService with injected dependencies.
func NewVerifyService(
	missionRepo secondary.MissionRepository,
	findingRepo secondary.FindingRepository,
	linkRepo secondary.LinkRepository,
	provider secondary.SearchProvider,
	ingest primary.IngestService,
	sink secondary.EventSink,
	ingestTopN int,
) *VerifyServiceImpl {
	if ingestTopN <= 0 {
		ingestTopN = 3
	}
	return &VerifyServiceImpl{
		missionRepo: missionRepo,
		findingRepo: findingRepo,
		linkRepo:    linkRepo,
		provider:    provider,
		ingest:      ingest,
		sink:        sink,
		ingestTopN:  ingestTopN,
		log:         logging.New("verify"),
	}
}

// Plan creates missions for unverified low-confidence findings. Findings
// already queued are excluded by the repository query, so planning twice
// never doubles the queue.
func (s *VerifyServiceImpl) Plan(ctx context.Context, req primary.VerifyPlanRequest) (*primary.VerifyPlanResponse, error) {
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = DefaultVerifyThreshold
	}
	max := req.Max
	if max <= 0 {
		max = 10
	}

	candidates, err := s.findingRepo.ListVerifiable(ctx, req.ProjectID, threshold, max)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifiable findings: %w", err)
	}

	resp := &primary.VerifyPlanResponse{}
	for _, finding := range candidates {
		record := &secondary.MissionRecord{
			ID:        ids.NewMissionID(),
			ProjectID: req.ProjectID,
			FindingID: finding.ID,
			Type:      string(mission.TypeForFinding(finding.Tags)),
			Status:    string(mission.InitialStatus()),
			Note:      fmt.Sprintf("confidence %.2f below %.2f", finding.Confidence, threshold),
		}
		if err := s.missionRepo.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to create mission: %w", err)
		}
		resp.Missions = append(resp.Missions, missionToDTO(record))
	}

	s.log.Info("verification planned", "project", req.ProjectID, "missions", len(resp.Missions))
	if len(resp.Missions) > 0 {
		s.sink.Emit(ctx, secondary.BusEvent{
			Kind:      "log",
			ProjectID: req.ProjectID,
			Data:      map[string]any{"op": "verify_plan", "missions": len(resp.Missions)},
		})
	}
	return resp, nil
}

// Run executes up to limit open/blocked missions. Per-mission failures are
// recorded in the summary; the pass never aborts.
func (s *VerifyServiceImpl) Run(ctx context.Context, req primary.VerifyRunRequest) (*primary.BatchSummary, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}

	missions, err := s.missionRepo.ListRunnable(ctx, req.ProjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runnable missions: %w", err)
	}

	summary := &primary.BatchSummary{}
	for _, m := range missions {
		if err := s.runOne(ctx, m); err != nil {
			switch {
			case errors.Is(err, secondary.ErrProviderUnavailable):
				// Not a failure: the mission waits in blocked until a
				// provider is configured.
				summary.Skipped++
			case errors.Is(err, secondary.ErrConflict):
				summary.Skipped++
			default:
				summary.Failed++
				summary.Errors = append(summary.Errors, primary.BatchError{
					ItemID: m.ID,
					Reason: err.Error(),
				})
				s.log.Warn("mission failed", "mission", m.ID, "error", err)
			}
			continue
		}
		summary.Processed++
	}

	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "log",
		ProjectID: req.ProjectID,
		Data: map[string]any{
			"op": "verify_run", "processed": summary.Processed,
			"skipped": summary.Skipped, "failed": summary.Failed,
		},
	})
	return summary, nil
}

func (s *VerifyServiceImpl) runOne(ctx context.Context, m *secondary.MissionRecord) error {
	finding, err := s.findingRepo.Get(ctx, m.FindingID)
	if err != nil {
		return fmt.Errorf("failed to load finding: %w", err)
	}

	query := finding.Title
	if query == "" {
		query = finding.Content
	}
	if runes := []rune(query); len(runes) > 200 {
		query = string(runes[:200])
	}

	results, err := s.provider.Search(ctx, query, s.ingestTopN)
	if err != nil {
		if errors.Is(err, secondary.ErrProviderUnavailable) {
			if m.Status == string(mission.StatusOpen) {
				if terr := s.transition(ctx, m, mission.StatusBlocked, "search provider unavailable", nil); terr != nil {
					return terr
				}
			}
			return err
		}
		return fmt.Errorf("search failed: %w", err)
	}

	findingTokens := synth.Tokenize(finding.Title + " " + finding.Content)
	matched := false
	for _, result := range results {
		score := synth.Jaccard(findingTokens, synth.Tokenize(result.Title+" "+result.Snippet))
		if score >= corroborateThreshold {
			matched = true
		}
		// Evidence gathered during verification enters through the gateway
		// like everything else.
		evidence, err := s.ingest.IngestPayload(ctx, primary.IngestPayloadRequest{
			ProjectID:  m.ProjectID,
			Type:       "VERIFY_EVIDENCE",
			Title:      result.Title,
			Content:    result.Snippet,
			SourceURL:  result.URL,
			Source:     "web:" + result.URL,
			Confidence: trust.NeutralCap,
			Tags:       []string{"verify", m.Type},
		})
		if err != nil {
			s.log.Warn("failed to ingest verification evidence", "mission", m.ID, "error", err)
			continue
		}
		if score >= corroborateThreshold {
			s.linkEvidence(ctx, finding, evidence.ID, score)
		}
	}

	var note string
	switch m.Type {
	case string(mission.TypeRefute):
		if matched {
			// Independent sources contest the claim.
			note = "contested by external evidence"
			if err := s.findingRepo.UpdateConfidence(ctx, finding.ID, trust.Clamp(finding.Confidence-confidenceDelta)); err != nil {
				return fmt.Errorf("failed to lower confidence: %w", err)
			}
			if err := s.findingRepo.AddTags(ctx, finding.ID, []string{"disputed"}); err != nil {
				return fmt.Errorf("failed to tag finding: %w", err)
			}
		} else {
			note = "no contradiction found"
		}
	default:
		if matched {
			note = "corroborated by external evidence"
			if err := s.findingRepo.UpdateConfidence(ctx, finding.ID, trust.Clamp(finding.Confidence+confidenceDelta)); err != nil {
				return fmt.Errorf("failed to raise confidence: %w", err)
			}
			if err := s.findingRepo.AddTags(ctx, finding.ID, []string{"verified"}); err != nil {
				return fmt.Errorf("failed to tag finding: %w", err)
			}
		} else {
			note = "no corroboration"
		}
	}

	now := time.Now().UTC()
	return s.transition(ctx, m, mission.StatusDone, note, &now)
}

// linkEvidence records a synthesis link between the finding under
// verification and an evidence finding that cleared the overlap threshold.
// Link failures degrade to a warning: the verdict stands without the edge.
func (s *VerifyServiceImpl) linkEvidence(ctx context.Context, finding *secondary.FindingRecord, evidenceID string, score float64) {
	pair := synth.Canonical(finding.ID, evidenceID)
	err := s.linkRepo.Create(ctx, &secondary.LinkRecord{
		ID:        ids.NewLinkID(),
		ProjectID: finding.ProjectID,
		BranchID:  finding.BranchID,
		FromID:    pair.From,
		ToID:      pair.To,
		Kind:      "finding",
		Score:     score,
	})
	if err != nil && !errors.Is(err, secondary.ErrAlreadyExists) {
		s.log.Warn("failed to link verification evidence", "finding", finding.ID, "evidence", evidenceID, "error", err)
	}
}

// transition applies a status change with central legality checking.
func (s *VerifyServiceImpl) transition(ctx context.Context, m *secondary.MissionRecord, to mission.Status, note string, completedAt *time.Time) error {
	from := mission.Status(m.Status)
	if err := mission.ValidateTransition(from, to); err != nil {
		return err
	}
	if err := s.missionRepo.Transition(ctx, m.ID, string(from), string(to), note, completedAt); err != nil {
		return fmt.Errorf("failed to transition mission: %w", err)
	}
	m.Status = string(to)
	return nil
}

// Complete is the manual override path for human review.
func (s *VerifyServiceImpl) Complete(ctx context.Context, req primary.VerifyCompleteRequest) error {
	to := mission.Status(req.Status)
	if !mission.ValidStatus(to) {
		return fmt.Errorf("invalid mission status %q", req.Status)
	}

	m, err := s.missionRepo.Get(ctx, req.MissionID)
	if err != nil {
		return fmt.Errorf("failed to load mission: %w", err)
	}

	var completedAt *time.Time
	if mission.Terminal(to) {
		now := time.Now().UTC()
		completedAt = &now
	}
	if err := s.transition(ctx, m, to, req.Note, completedAt); err != nil {
		return err
	}

	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "log",
		ProjectID: m.ProjectID,
		Data:      map[string]any{"op": "verify_complete", "mission": m.ID, "status": req.Status},
	})
	return nil
}

// List returns missions, optionally filtered by status.
func (s *VerifyServiceImpl) List(ctx context.Context, projectID, status string) ([]*primary.Mission, error) {
	if status != "" && !mission.ValidStatus(mission.Status(status)) {
		return nil, fmt.Errorf("invalid mission status %q", status)
	}
	records, err := s.missionRepo.List(ctx, projectID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	missions := make([]*primary.Mission, 0, len(records))
	for _, r := range records {
		missions = append(missions, missionToDTO(r))
	}
	return missions, nil
}
