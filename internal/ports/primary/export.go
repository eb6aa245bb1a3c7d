package primary

import "context"

// ExportService produces read-only projections of a project's ledger for the
// CLI and the external dashboard.
type ExportService interface {
	// ExportJSON renders the full project projection as JSON.
	ExportJSON(ctx context.Context, projectID string) ([]byte, error)

	// ExportMarkdown renders a human-readable report.
	ExportMarkdown(ctx context.Context, projectID string) ([]byte, error)

	// Graph returns the {nodes, links} projection the dashboard renders.
	Graph(ctx context.Context, projectID string) (*GraphProjection, error)

	// Events returns telemetry entries after the cursor, for stream resume.
	Events(ctx context.Context, afterID int64, limit int) ([]*TelemetryEvent, error)

	// RecentEvents returns a project's newest telemetry entries, newest first.
	RecentEvents(ctx context.Context, projectID string, limit int) ([]*TelemetryEvent, error)
}

// GraphProjection is the force-graph shape: findings/artifacts as nodes,
// synthesis links as edges (edges whose endpoints are absent are dropped).
type GraphProjection struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// GraphNode is one graph vertex.
type GraphNode struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Group     string   `json:"group"` // finding or artifact
	Val       float64  `json:"val"`   // confidence * 10, sizes the node
	Tags      []string `json:"tags"`
	ProjectID string   `json:"project_id"`
}

// GraphLink is one graph edge.
type GraphLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Kind   string  `json:"type"`
	Score  float64 `json:"score"`
}

// TelemetryEvent is one event-bus entry at the port boundary.
type TelemetryEvent struct {
	ID        int64          `json:"id"`
	ProjectID string         `json:"project_id"`
	Kind      string         `json:"kind"`
	Data      map[string]any `json:"data"`
	CreatedAt string         `json:"created_at"`
}
