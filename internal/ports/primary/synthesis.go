package primary

import "context"

// SynthesisService discovers similarity links between findings and artifacts
// on a branch.
type SynthesisService interface {
	// Synthesize runs one capped, deduplicated link-discovery pass.
	// Re-running with unchanged inputs creates zero new links.
	Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesizeResponse, error)
}

// SynthesizeRequest bounds one synthesis pass.
type SynthesizeRequest struct {
	ProjectID string
	Branch    string  // empty = main
	Threshold float64 // τ in [0,1]
	TopK      int     // per-node neighbor cap; <= 0 = unlimited
	MaxLinks  int     // global new-link cap; <= 0 = unlimited
	DryRun    bool
}

// SynthesizeResponse summarizes a pass.
type SynthesizeResponse struct {
	Candidates      int
	Created         int
	SkippedExisting int
	DryRun          bool
	Links           []*SynthesisLink
}

// SynthesisLink represents a link at the port boundary.
type SynthesisLink struct {
	ID        string
	FromID    string
	ToID      string
	Kind      string
	Score     float64
	CreatedAt string
}
