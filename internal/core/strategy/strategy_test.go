package strategy

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func top(s Snapshot) Action {
	return Analyze(s)[0].Action
}

func TestAnalyze_VerifyPlanWhenLowConfidenceAndNoQueue(t *testing.T) {
	s := Snapshot{ProjectID: "p1", Findings: 1, LowConfidenceUnqueued: 1}
	if got := top(s); got != ActionVerifyPlan {
		t.Errorf("top action = %s, want VERIFY_PLAN", got)
	}
}

func TestAnalyze_VerifyRunWhenQueueExists(t *testing.T) {
	s := Snapshot{ProjectID: "p1", Findings: 1, OpenMissions: 1}
	if got := top(s); got != ActionVerifyRun {
		t.Errorf("top action = %s, want VERIFY_RUN", got)
	}
}

func TestAnalyze_BlockedMissionsAlsoCountAsQueue(t *testing.T) {
	s := Snapshot{ProjectID: "p1", Findings: 5, BlockedMissions: 2}
	if got := top(s); got != ActionVerifyRun {
		t.Errorf("top action = %s, want VERIFY_RUN", got)
	}
}

func TestAnalyze_SynthesizeWhenDensityHigh(t *testing.T) {
	s := Snapshot{ProjectID: "p1", Findings: 8}
	if got := top(s); got != ActionSynthesize {
		t.Errorf("top action = %s, want SYNTHESIZE", got)
	}
}

func TestAnalyze_ScuttleWhenEvidenceThin(t *testing.T) {
	s := Snapshot{ProjectID: "p1"}
	if got := top(s); got != ActionScuttle {
		t.Errorf("top action = %s, want SCUTTLE", got)
	}
}

func TestAnalyze_WatchdogBeatsSynthesize(t *testing.T) {
	s := Snapshot{ProjectID: "p1", Findings: 10, OverdueWatchTargets: 2}
	if got := top(s); got != ActionWatchdogRun {
		t.Errorf("top action = %s, want WATCHDOG_RUN", got)
	}
}

func TestAnalyze_NeverEmpty(t *testing.T) {
	s := Snapshot{ProjectID: "p1", Findings: 4, Links: 9}
	recs := Analyze(s)
	if len(recs) == 0 {
		t.Fatal("Analyze returned no recommendations")
	}
	if recs[0].Rationale == "" {
		t.Error("recommendation missing rationale")
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	s := Snapshot{
		ProjectID:             "p1",
		Findings:              9,
		LowConfidenceUnqueued: 2,
		OpenMissions:          1,
		OverdueWatchTargets:   1,
		StaleOpenHypotheses:   1,
		StaleBranches:         1,
	}

	if diff := cmp.Diff(Analyze(s), Analyze(s)); diff != "" {
		t.Errorf("Analyze not deterministic:\n%s", diff)
	}

	recs := Analyze(s)
	for i := 1; i < len(recs); i++ {
		if recs[i].Weight > recs[i-1].Weight {
			t.Errorf("recommendations not sorted: %v before %v", recs[i-1], recs[i])
		}
	}
}
