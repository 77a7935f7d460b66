package nexus

import (
	"testing"

	"github.com/m-mizutani/gt"
)

// These tests exercise the reducer directly, so they live inside the package.

func TestApplyAppendsAccumulators(t *testing.T) {
	s := newRunState("r1", "q", 8)

	s.apply(&StateDelta{
		ThinkingLog:       []ThinkingStep{{StepID: 1, Type: StepPlan}},
		ConfidenceHistory: []float64{60},
		SearchQueriesUsed: []string{"first query"},
		AllSearchResults:  []SearchResult{{URL: "https://a"}},
	})
	s.apply(&StateDelta{
		ThinkingLog:       []ThinkingStep{{StepID: 2, Type: StepSearchInitial}},
		ConfidenceHistory: []float64{90},
		SearchQueriesUsed: []string{"second query"},
		AllSearchResults:  []SearchResult{{URL: "https://b"}},
	})

	gt.A(t, s.ThinkingLog).Length(2)
	gt.Equal(t, []float64{60, 90}, s.ConfidenceHistory)
	gt.Equal(t, []string{"first query", "second query"}, s.SearchQueriesUsed)
	gt.A(t, s.AllSearchResults).Length(2)
}

func TestApplyGapSetUnion(t *testing.T) {
	s := newRunState("r1", "q", 8)

	s.apply(&StateDelta{InformationGaps: []string{"pricing data", "2025 figures"}})
	s.apply(&StateDelta{InformationGaps: []string{"2025 figures", "sources in EU"}})

	gt.Equal(t, []string{"pricing data", "2025 figures", "sources in EU"}, s.InformationGaps)
}

func TestApplyOverwriteOnlyWhenSet(t *testing.T) {
	s := newRunState("r1", "original query", 8)

	s.apply(&StateDelta{CurrentQuery: ptr("refined query"), CurrentIteration: ptr(1)})
	gt.Equal(t, "refined query", s.CurrentQuery)
	gt.Equal(t, 1, s.CurrentIteration)

	// nil fields leave the previous values untouched
	s.apply(&StateDelta{ConfidenceHistory: []float64{50}})
	gt.Equal(t, "refined query", s.CurrentQuery)
	gt.Equal(t, 1, s.CurrentIteration)

	s.apply(&StateDelta{ShouldStop: ptr(true)})
	gt.True(t, s.ShouldStop)
}

func TestApplyToolUsageCounter(t *testing.T) {
	s := newRunState("r1", "q", 8)

	s.apply(&StateDelta{ToolUsage: map[ToolKind]int{ToolWebSearch: 1}})
	s.apply(&StateDelta{ToolUsage: map[ToolKind]int{ToolWebSearch: 1, ToolNewsSearch: 1}})

	gt.Equal(t, 2, s.ToolUsage[ToolWebSearch])
	gt.Equal(t, 1, s.ToolUsage[ToolNewsSearch])
}

func TestApplyFillReformulatedQuery(t *testing.T) {
	t.Run("patches the newest blank retry event", func(t *testing.T) {
		s := newRunState("r1", "q", 8)
		s.apply(&StateDelta{RetryEvents: []RetryEvent{{
			Iteration:     1,
			OriginalQuery: "q",
		}}})
		gt.Equal(t, "", s.RetryEvents[0].ReformulatedQuery)

		s.apply(&StateDelta{FillReformulatedQuery: ptr("q refined")})
		gt.Equal(t, "q refined", s.RetryEvents[0].ReformulatedQuery)
	})

	t.Run("never overwrites an already filled event", func(t *testing.T) {
		s := newRunState("r1", "q", 8)
		s.apply(&StateDelta{RetryEvents: []RetryEvent{{
			Iteration:         1,
			ReformulatedQuery: "already set",
		}}})

		s.apply(&StateDelta{FillReformulatedQuery: ptr("other")})
		gt.Equal(t, "already set", s.RetryEvents[0].ReformulatedQuery)
	})

	t.Run("no retry events is a no-op", func(t *testing.T) {
		s := newRunState("r1", "q", 8)
		s.apply(&StateDelta{FillReformulatedQuery: ptr("x")})
		gt.A(t, s.RetryEvents).Length(0)
	})

	t.Run("fill applies before same-delta appends", func(t *testing.T) {
		s := newRunState("r1", "q", 8)
		s.apply(&StateDelta{RetryEvents: []RetryEvent{{Iteration: 1}}})

		// A delta carrying both a fill and a new blank retry event must patch
		// the pre-existing event, not the one it appends.
		s.apply(&StateDelta{
			FillReformulatedQuery: ptr("patched"),
			RetryEvents:           []RetryEvent{{Iteration: 2}},
		})
		gt.Equal(t, "patched", s.RetryEvents[0].ReformulatedQuery)
		gt.Equal(t, "", s.RetryEvents[1].ReformulatedQuery)
	})
}

func TestApplyNilDelta(t *testing.T) {
	s := newRunState("r1", "q", 8)
	s.apply(nil)
	gt.Equal(t, "q", s.Query)
}

func TestNextStage(t *testing.T) {
	t.Run("no evaluation yet keeps searching", func(t *testing.T) {
		s := newRunState("r1", "q", 8)
		gt.Equal(t, stageSearch, nextStage(s))
	})

	t.Run("threshold met goes to synthesize", func(t *testing.T) {
		s := newRunState("r1", "q", 8)
		s.LatestEvaluation = &EvaluationRecord{ThresholdMet: true, Decision: DecisionSufficient}
		gt.Equal(t, stageSynthesize, nextStage(s))
	})

	t.Run("below threshold with budget left retries", func(t *testing.T) {
		s := newRunState("r1", "q", 8)
		s.CurrentIteration = 3
		s.LatestEvaluation = &EvaluationRecord{ThresholdMet: false, Decision: DecisionRetry}
		gt.Equal(t, stageSearch, nextStage(s))
	})

	t.Run("exhausted budget forces synthesis", func(t *testing.T) {
		s := newRunState("r1", "q", 3)
		s.CurrentIteration = 3
		s.LatestEvaluation = &EvaluationRecord{ThresholdMet: false, Decision: DecisionRetry}
		gt.Equal(t, stageForceSynthesize, nextStage(s))
	})

	t.Run("force decision wins regardless of budget", func(t *testing.T) {
		s := newRunState("r1", "q", 8)
		s.CurrentIteration = 1
		s.LatestEvaluation = &EvaluationRecord{ThresholdMet: false, Decision: DecisionForceSynthesize}
		gt.Equal(t, stageForceSynthesize, nextStage(s))
	})
}
