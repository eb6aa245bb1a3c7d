package primary

import "context"

// IngestService is the ingestion gateway: the only path by which external
// content becomes findings.
type IngestService interface {
	// Scuttle validates the URL against the network-boundary policy, fetches
	// it, applies the trust table, and writes a finding.
	Scuttle(ctx context.Context, req ScuttleRequest) (*ScuttleResponse, error)

	// IngestPayload writes a finding from pre-fetched content (watch results,
	// search hits). Trust weighting still applies; the network guard does
	// not, since nothing is fetched.
	IngestPayload(ctx context.Context, req IngestPayloadRequest) (*Finding, error)
}

// ScuttleRequest contains parameters for a URL ingestion.
type ScuttleRequest struct {
	ProjectID string
	Branch    string // empty = main
	URL       string
	Tags      []string // extra tags merged with connector + trust tags
}

// ScuttleResponse reports what was ingested.
type ScuttleResponse struct {
	Finding    *Finding
	Source     string
	Confidence float64
}

// IngestPayloadRequest contains pre-fetched content to record.
type IngestPayloadRequest struct {
	ProjectID  string
	Branch     string
	Type       string
	Title      string
	Content    string
	SourceURL  string
	Source     string
	Confidence float64
	Tags       []string
}
