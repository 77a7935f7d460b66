package nexus

// stageName identifies a node of the pipeline state machine.
type stageName string

const (
	stagePlan            stageName = "plan"
	stageSearch          stageName = "search"
	stageEvaluate        stageName = "evaluate"
	stageSynthesize      stageName = "synthesize"
	stageForceSynthesize stageName = "force_synthesize"
)

// nextStage is the branch decision after evaluate: retry the search,
// synthesize, or force-synthesize on an exhausted budget. Pure function of
// run state.
func nextStage(s *RunState) stageName {
	if s.ShouldStop {
		return stageSynthesize
	}

	if s.LatestEvaluation == nil {
		return stageSearch
	}

	if s.LatestEvaluation.ThresholdMet {
		return stageSynthesize
	}

	if s.LatestEvaluation.Decision == DecisionForceSynthesize || s.CurrentIteration >= s.MaxIterations {
		return stageForceSynthesize
	}

	return stageSearch
}
