package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/example/rvault/internal/core/ids"
	"github.com/example/rvault/internal/core/netguard"
	"github.com/example/rvault/internal/core/trust"
	"github.com/example/rvault/internal/logging"
	"github.com/example/rvault/internal/ports/primary"
	"github.com/example/rvault/internal/ports/secondary"
)

// IngestServiceImpl implements the IngestService interface: the single path
// by which external content becomes findings. Order is fixed: network guard,
// fetch, trust weighting, persist.
type IngestServiceImpl struct {
	findingRepo secondary.FindingRepository
	branchRepo  secondary.BranchRepository
	fetcher     secondary.Fetcher
	guard       *netguard.Guard
	trustTable  trust.Table
	sink        secondary.EventSink
	log         *slog.Logger
}

// NewIngestService creates a new IngestService with injected dependencies.
func NewIngestService(
	findingRepo secondary.FindingRepository,
	branchRepo secondary.BranchRepository,
	fetcher secondary.Fetcher,
	guard *netguard.Guard,
	trustTable trust.Table,
	sink secondary.EventSink,
) *IngestServiceImpl {
	return &IngestServiceImpl{
		findingRepo: findingRepo,
		branchRepo:  branchRepo,
		fetcher:     fetcher,
		guard:       guard,
		trustTable:  trustTable,
		sink:        sink,
		log:         logging.New("ingest"),
	}
}

// Scuttle fetches a URL through the gateway and records the result.
func (s *IngestServiceImpl) Scuttle(ctx context.Context, req primary.ScuttleRequest) (*primary.ScuttleResponse, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	branch, err := resolveBranch(ctx, s.branchRepo, req.ProjectID, req.Branch)
	if err != nil {
		return nil, err
	}

	// The guard runs before any bytes move. Private, loopback, and
	// link-local destinations never get fetched.
	if err := s.guard.Check(ctx, req.URL); err != nil {
		return nil, fmt.Errorf("refusing to fetch %s: %w", req.URL, err)
	}

	result, err := s.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch failed for %s: %w", req.URL, err)
	}

	prior := s.trustTable.Evaluate(result.Source)
	confidence := prior.Apply(result.Confidence)

	tags := mergeTagSets(result.Tags, prior.Tags, req.Tags)

	payload, _ := json.Marshal(map[string]string{"source_url": req.URL})
	record := &secondary.FindingRecord{
		ID:         ids.NewFindingID(),
		ProjectID:  req.ProjectID,
		BranchID:   branch.ID,
		Type:       result.Type,
		Title:      result.Title,
		Content:    result.Content,
		Payload:    string(payload),
		Confidence: confidence,
		Source:     result.Source,
		Tags:       tags,
	}
	if err := s.findingRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record finding: %w", err)
	}

	stored, err := s.findingRepo.Get(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back finding: %w", err)
	}

	s.log.Info("scuttled", "project", req.ProjectID, "url", req.URL,
		"source", result.Source, "confidence", confidence)
	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "graph_update",
		ProjectID: req.ProjectID,
		Data:      map[string]any{"op": "ingest", "finding": stored.ID, "source": result.Source},
	})

	return &primary.ScuttleResponse{
		Finding:    findingToDTO(stored),
		Source:     result.Source,
		Confidence: confidence,
	}, nil
}

// IngestPayload records pre-fetched content. The trust table still applies;
// the network guard does not, since nothing is fetched.
func (s *IngestServiceImpl) IngestPayload(ctx context.Context, req primary.IngestPayloadRequest) (*primary.Finding, error) {
	if req.Title == "" && req.Content == "" {
		return nil, fmt.Errorf("payload needs a title or content")
	}
	branch, err := resolveBranch(ctx, s.branchRepo, req.ProjectID, req.Branch)
	if err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = "web"
	}
	findingType := req.Type
	if findingType == "" {
		findingType = "SCUTTLE_RESULT"
	}

	prior := s.trustTable.Evaluate(source)
	confidence := prior.Apply(req.Confidence)
	tags := mergeTagSets(req.Tags, prior.Tags, nil)

	payload := "{}"
	if req.SourceURL != "" {
		raw, _ := json.Marshal(map[string]string{"source_url": req.SourceURL})
		payload = string(raw)
	}

	record := &secondary.FindingRecord{
		ID:         ids.NewFindingID(),
		ProjectID:  req.ProjectID,
		BranchID:   branch.ID,
		Type:       findingType,
		Title:      req.Title,
		Content:    req.Content,
		Payload:    payload,
		Confidence: confidence,
		Source:     source,
		Tags:       tags,
	}
	if err := s.findingRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record finding: %w", err)
	}

	stored, err := s.findingRepo.Get(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back finding: %w", err)
	}

	s.sink.Emit(ctx, secondary.BusEvent{
		Kind:      "graph_update",
		ProjectID: req.ProjectID,
		Data:      map[string]any{"op": "ingest", "finding": stored.ID, "source": source},
	})
	return findingToDTO(stored), nil
}

// mergeTagSets unions tag slices preserving first-seen order.
func mergeTagSets(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, set := range sets {
		for _, tag := range set {
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
	}
	return merged
}
