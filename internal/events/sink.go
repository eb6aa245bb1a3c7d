package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/example/rvault/internal/logging"
	"github.com/example/rvault/internal/ports/secondary"
)

// LedgerSink implements secondary.EventSink: every emission is appended to
// the durable events table and fanned out to live subscribers. Persistence
// failures are logged, never propagated; telemetry must not fail operations.
type LedgerSink struct {
	repo secondary.EventRepository
	bus  Publisher
	log  *slog.Logger
}

// NewLedgerSink creates a sink writing through repo and publishing on bus.
func NewLedgerSink(repo secondary.EventRepository, bus Publisher) *LedgerSink {
	return &LedgerSink{repo: repo, bus: bus, log: logging.New("events")}
}

// Emit records and publishes one telemetry event.
func (s *LedgerSink) Emit(ctx context.Context, event secondary.BusEvent) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		data = []byte("{}")
	}

	if err := s.repo.Append(ctx, &secondary.EventRecord{
		ProjectID: event.ProjectID,
		Kind:      event.Kind,
		Data:      string(data),
	}); err != nil {
		s.log.Warn("failed to persist telemetry event", "kind", event.Kind, "error", err)
	}

	s.bus.Publish(NewEvent(Kind(event.Kind), event.ProjectID, event.Data))
}
