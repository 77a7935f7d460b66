package nexus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
)

// evaluatePromptResultLimit caps how many of the current batch's results are
// sent to the evaluator model.
const evaluatePromptResultLimit = 6

type evaluateData struct {
	Confidence            float64            `json:"confidence"`
	SourcesFound          int                `json:"sources_found"`
	AvgReliability        float64            `json:"avg_reliability"`
	ThresholdMet          bool               `json:"threshold_met"`
	GapsIdentified        []string           `json:"gaps_identified"`
	ReformulationHint     string             `json:"reformulation_hint"`
	ReformulationStrategy string             `json:"reformulation_strategy"`
	Scores                map[string]float64 `json:"scores"`
}

// evaluateStage is the self-correction core. It scores the current result
// batch against the research query and decides retry, sufficient, or
// force_synthesize. A retry decision produces a RetryEvent whose
// ReformulatedQuery stays blank until the next search stage fills it. On
// failure it forces termination rather than risking an unbounded retry loop.
func (x *Agent) evaluateStage(ctx context.Context, s *RunState, rc *runConfig) *StateDelta {
	start := time.Now()
	stepID := s.nextStepID()
	logger := ctxlog.From(ctx)

	batch := s.CurrentSearchResults
	if len(batch) > evaluatePromptResultLimit {
		batch = batch[:evaluatePromptResultLimit]
	}

	logger.Info("evaluate stage started",
		"iteration", s.CurrentIteration,
		"results", len(s.CurrentSearchResults))

	resp, err := x.llmFast.Invoke(ctx, x.systemPrompt(rc.threshold, rc.maxIterations), buildEvaluatorPrompt(s, rc.threshold, mustJSON(batch)))
	if err != nil {
		return x.evaluateFailure(ctx, s, stepID, start, err)
	}

	env, err := extractEnvelope(resp.Text, evaluateSchema)
	if err != nil {
		return x.evaluateFailure(ctx, s, stepID, start, err)
	}

	var data evaluateData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return x.evaluateFailure(ctx, s, stepID, start, err)
	}

	// Independently computed source quality corroborates the model's
	// self-assessment; both go into the trace.
	aggregate := AggregateConfidence(s.CurrentSearchResults, data.Confidence, x.minSources, x.targetSources)

	gaps := data.GapsIdentified
	if gaps == nil {
		gaps = []string{}
	}
	isRetryMoment := !data.ThresholdMet && s.CurrentIteration < s.MaxIterations

	decision := DecisionForceSynthesize
	switch {
	case isRetryMoment:
		decision = DecisionRetry
	case data.ThresholdMet:
		decision = DecisionSufficient
	}

	var thinking, action string
	var stepType StepType
	var retryEvents []RetryEvent

	if isRetryMoment {
		stepType = StepEvaluateRetry
		missing := "insufficient coverage"
		if len(gaps) > 0 {
			missing = strings.Join(gaps[:min(len(gaps), 2)], ", ")
		}
		thinking = fmt.Sprintf(
			"I've analyzed %d sources from my search for %q. My confidence is only %.0f%%, "+
				"below the %.0f%% threshold. I'm missing critical information: %s. "+
				"I cannot give a reliable answer yet. I need to search again with a different strategy: %s.",
			data.SourcesFound, s.CurrentQuery, data.Confidence, rc.threshold, missing, data.ReformulationHint)
		action = fmt.Sprintf("Confidence %.0f%% insufficient. Triggering self-correction; reformulating search strategy.", data.Confidence)

		retryEvents = []RetryEvent{{
			Iteration:             s.CurrentIteration,
			TriggerConfidence:     data.Confidence,
			TriggerGaps:           gaps,
			OriginalQuery:         s.CurrentQuery,
			ReformulatedQuery:     "", // filled by the next search stage
			ReformulationStrategy: data.ReformulationHint,
			Timestamp:             time.Now().UTC(),
		}}

		logger.Warn("retry triggered",
			"iteration", s.CurrentIteration,
			"confidence", data.Confidence,
			"threshold", rc.threshold,
			"gaps", gaps)
	} else {
		stepType = StepEvaluatePass
		thinking = fmt.Sprintf(
			"Search results are sufficient. Found %d relevant sources. Confidence %.0f%% exceeds the %.0f%% threshold. Proceeding to synthesis.",
			data.SourcesFound, data.Confidence, rc.threshold)
		action = fmt.Sprintf("Confidence threshold met at %.0f%%. Synthesizing.", data.Confidence)

		if decision == DecisionForceSynthesize {
			thinking = fmt.Sprintf(
				"Confidence %.0f%% is still below the %.0f%% threshold, but the iteration budget (%d) is exhausted. Synthesizing from what was gathered.",
				data.Confidence, rc.threshold, s.MaxIterations)
			action = "Iteration budget exhausted. Forcing synthesis."
		}

		logger.Info("evaluation decided",
			"decision", string(decision),
			"confidence", data.Confidence,
			"iteration", s.CurrentIteration)
	}

	step := ThinkingStep{
		StepID:     stepID,
		Type:       stepType,
		Timestamp:  time.Now().UTC(),
		DurationMS: durationMS(start),
		Thinking:   thinking,
		Action:     action,
		Data: map[string]any{
			"confidence":             data.Confidence,
			"aggregate_confidence":   aggregate,
			"sources_found":          data.SourcesFound,
			"avg_reliability":        data.AvgReliability,
			"computed_reliability":   SourceReliability(s.CurrentSearchResults),
			"threshold_met":          data.ThresholdMet,
			"scores":                 data.Scores,
			"gaps_identified":        gaps,
			"decision":               decision,
			"is_retry_moment":        isRetryMoment,
			"query_evaluated":        s.CurrentQuery,
			"iteration":              s.CurrentIteration,
			"previous_confidence":    s.previousConfidence(),
			"confidence_delta":       data.Confidence - s.previousConfidence(),
			"threshold":              rc.threshold,
			"reformulation_hint":     data.ReformulationHint,
			"reformulation_strategy": data.ReformulationStrategy,
		},
		TokensUsed: resp.TotalTokens,
	}

	lastRetryReason := ""
	if isRetryMoment {
		lastRetryReason = data.ReformulationHint
	}

	return &StateDelta{
		LatestEvaluation: &EvaluationRecord{
			Confidence:        data.Confidence,
			SourcesFound:      data.SourcesFound,
			AvgReliability:    data.AvgReliability,
			ThresholdMet:      data.ThresholdMet,
			Gaps:              gaps,
			Decision:          decision,
			ReformulationHint: data.ReformulationHint,
		},
		ConfidenceHistory: []float64{data.Confidence},
		InformationGaps:   gaps,
		LastRetryReason:   ptr(lastRetryReason),
		ThinkingLog:       []ThinkingStep{step},
		RetryEvents:       retryEvents,
	}
}

// evaluateFailure fails toward termination: confidence 0 and a
// force_synthesize decision, never an unbounded retry.
func (x *Agent) evaluateFailure(ctx context.Context, s *RunState, stepID int, start time.Time, cause error) *StateDelta {
	ctxlog.From(ctx).Error("evaluate stage failed", "error", cause)

	step := ThinkingStep{
		StepID:     stepID,
		Type:       StepEvaluateRetry,
		Timestamp:  time.Now().UTC(),
		DurationMS: durationMS(start),
		Thinking:   "Evaluation error: " + cause.Error(),
		Action:     "Evaluation failed; defaulting to force_synthesize",
		Data:       map[string]any{"error": cause.Error()},
	}

	return &StateDelta{
		LatestEvaluation: &EvaluationRecord{
			Confidence:     0,
			SourcesFound:   len(s.AllSearchResults),
			AvgReliability: 0,
			ThresholdMet:   false,
			Gaps:           []string{"Evaluation failed"},
			Decision:       DecisionForceSynthesize,
		},
		ConfidenceHistory: []float64{0},
		ThinkingLog:       []ThinkingStep{step},
		Err:               ptr(cause.Error()),
	}
}
