package primary

import "context"

// StrategyService ranks next-best actions from the project's ledger state.
type StrategyService interface {
	// Strategize analyzes a snapshot and returns ranked recommendations.
	// With Execute set, the top recommendation is also carried out.
	Strategize(ctx context.Context, req StrategizeRequest) (*StrategizeResponse, error)
}

// StrategizeRequest scopes a strategy pass.
type StrategizeRequest struct {
	ProjectID string
	Execute   bool
}

// StrategizeResponse holds the ranked list and, when executed, the outcome
// of the top action.
type StrategizeResponse struct {
	Recommendations []*Recommendation
	Execution       *ExecutionResult
}

// Recommendation is one ranked next action.
type Recommendation struct {
	Action    string
	Rationale string
	Weight    int
}

// ExecutionResult reports an executed top recommendation.
type ExecutionResult struct {
	Action  string
	OK      bool
	Details map[string]any
}
