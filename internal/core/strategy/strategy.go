// Package strategy derives ranked next-best-action recommendations from a
// point-in-time snapshot of a project's ledger. Pure and deterministic:
// identical snapshots always yield identical rankings.
package strategy

import "fmt"

// Action identifies a recommended operation.
type Action string

const (
	ActionScuttle          Action = "SCUTTLE"
	ActionVerifyPlan       Action = "VERIFY_PLAN"
	ActionVerifyRun        Action = "VERIFY_RUN"
	ActionSynthesize       Action = "SYNTHESIZE"
	ActionWatchdogRun      Action = "WATCHDOG_RUN"
	ActionReviewHypotheses Action = "REVIEW_HYPOTHESES"
	ActionReviewBranches   Action = "REVIEW_BRANCHES"
)

// Snapshot is the aggregate ledger state the planner reasons over.
type Snapshot struct {
	ProjectID             string
	Findings              int
	LowConfidenceUnqueued int // confidence below threshold, no open/blocked mission
	OpenMissions          int
	BlockedMissions       int
	Links                 int
	OverdueWatchTargets   int
	StaleOpenHypotheses   int
	StaleBranches         int
}

// Recommendation is one ranked action with its rationale.
type Recommendation struct {
	Action    Action
	Rationale string
	Weight    int
}

// thinEvidence is the finding count under which gathering more evidence
// outranks everything structural.
const thinEvidence = 3

// denseEvidence is the finding count above which link discovery pays off.
const denseEvidence = 6

// Analyze produces the ranked recommendation list for a snapshot. The first
// entry is the next best action. The list is never empty.
func Analyze(s Snapshot) []Recommendation {
	var recs []Recommendation

	if s.OpenMissions+s.BlockedMissions > 0 {
		recs = append(recs, Recommendation{
			Action:    ActionVerifyRun,
			Weight:    85,
			Rationale: fmt.Sprintf("%d verification missions queued; run them before planning more work", s.OpenMissions+s.BlockedMissions),
		})
	}

	if s.LowConfidenceUnqueued > 0 {
		recs = append(recs, Recommendation{
			Action:    ActionVerifyPlan,
			Weight:    80,
			Rationale: fmt.Sprintf("%d low-confidence findings have no verification mission", s.LowConfidenceUnqueued),
		})
	}

	if s.OverdueWatchTargets > 0 {
		recs = append(recs, Recommendation{
			Action:    ActionWatchdogRun,
			Weight:    70,
			Rationale: fmt.Sprintf("%d watch targets are past due", s.OverdueWatchTargets),
		})
	}

	if s.Findings >= denseEvidence && s.Links*2 < s.Findings {
		recs = append(recs, Recommendation{
			Action:    ActionSynthesize,
			Weight:    60,
			Rationale: fmt.Sprintf("%d findings but only %d links; similarity discovery is behind", s.Findings, s.Links),
		})
	}

	if s.StaleOpenHypotheses > 0 {
		recs = append(recs, Recommendation{
			Action:    ActionReviewHypotheses,
			Weight:    40,
			Rationale: fmt.Sprintf("%d open hypotheses have gone stale; accept, reject, or archive them", s.StaleOpenHypotheses),
		})
	}

	if s.StaleBranches > 0 {
		recs = append(recs, Recommendation{
			Action:    ActionReviewBranches,
			Weight:    35,
			Rationale: fmt.Sprintf("%d branches have seen no activity recently", s.StaleBranches),
		})
	}

	if s.Findings < thinEvidence {
		recs = append(recs, Recommendation{
			Action:    ActionScuttle,
			Weight:    75,
			Rationale: fmt.Sprintf("only %d findings on record; the evidence base is thin", s.Findings),
		})
	}

	if len(recs) == 0 {
		recs = append(recs, Recommendation{
			Action:    ActionScuttle,
			Weight:    20,
			Rationale: "no structural work pending; keep gathering evidence",
		})
	}

	sortRecommendations(recs)
	return recs
}

// sortRecommendations orders by weight descending with action name as the
// deterministic tie-breaker.
func sortRecommendations(recs []Recommendation) {
	for i := 0; i < len(recs); i++ {
		for j := i + 1; j < len(recs); j++ {
			a, b := recs[i], recs[j]
			if b.Weight > a.Weight || (b.Weight == a.Weight && b.Action < a.Action) {
				recs[i], recs[j] = recs[j], recs[i]
			}
		}
	}
}
