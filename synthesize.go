package nexus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
)

type synthesizeData struct {
	Answer          string  `json:"answer"`
	FinalConfidence float64 `json:"final_confidence"`
	Contradictions  []struct {
		ClaimA        string `json:"claim_a"`
		ClaimB        string `json:"claim_b"`
		Resolution    string `json:"resolution"`
		WeightedClaim string `json:"weighted_claim"`
	} `json:"contradictions"`
	Caveats     []string `json:"caveats"`
	SourcesUsed int      `json:"sources_used"`
}

// synthesizeStage composes the final answer from every result gathered across
// all iterations, after dedup and reliability ranking. It is the only stage
// routed to the pro model. Forced synthesis on an exhausted budget adds an
// explicit caveat so the caller can tell a confident answer from a best-effort
// one. This stage always sets ShouldStop, including on failure.
func (x *Agent) synthesizeStage(ctx context.Context, s *RunState, rc *runConfig) *StateDelta {
	start := time.Now()
	stepID := s.nextStepID()
	logger := ctxlog.From(ctx)

	forced := s.LatestEvaluation == nil || !s.LatestEvaluation.ThresholdMet

	top, citations := PrepareSources(s.AllSearchResults, x.maxCitationSources)

	logger.Info("synthesize stage started",
		"forced", forced,
		"total_results", len(s.AllSearchResults),
		"cited_sources", len(top))

	resp, err := x.llmPro.Invoke(ctx, x.systemPrompt(rc.threshold, rc.maxIterations), buildSynthesizerPrompt(s, top))
	if err != nil {
		return x.synthesizeFailure(ctx, s, stepID, start, citations, err)
	}

	env, err := extractEnvelope(resp.Text, synthesizeSchema)
	if err != nil {
		return x.synthesizeFailure(ctx, s, stepID, start, citations, err)
	}

	var data synthesizeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return x.synthesizeFailure(ctx, s, stepID, start, citations, err)
	}

	contradictions := make([]string, 0, len(data.Contradictions))
	for _, c := range data.Contradictions {
		contradictions = append(contradictions, fmt.Sprintf("%s vs %s", c.ClaimA, c.ClaimB))
	}

	caveats := data.Caveats
	if caveats == nil {
		caveats = []string{}
	}
	if forced {
		caveats = append(caveats, fmt.Sprintf(
			"Research ended after %d iterations without reaching the %.0f%% confidence threshold; treat this answer as best effort.",
			s.CurrentIteration, rc.threshold))
	}

	stepType := StepSynthesize
	if forced {
		stepType = StepForceSynthesize
	}

	step := ThinkingStep{
		StepID:     stepID,
		Type:       stepType,
		Timestamp:  time.Now().UTC(),
		DurationMS: durationMS(start),
		Thinking:   env.Thinking,
		Action:     env.Action,
		Data: map[string]any{
			"final_confidence":   data.FinalConfidence,
			"answer_length":      len(data.Answer),
			"cited_sources":      len(citations),
			"total_results":      len(s.AllSearchResults),
			"contradictions":     contradictions,
			"caveats":            caveats,
			"sources_used":       data.SourcesUsed,
			"forced":             forced,
			"iterations_used":    s.CurrentIteration,
			"confidence_history": s.ConfidenceHistory,
		},
		TokensUsed: resp.TotalTokens,
	}

	logger.Info("synthesize stage complete",
		"final_confidence", data.FinalConfidence,
		"citations", len(citations),
		"contradictions", len(contradictions),
		"duration_ms", step.DurationMS)

	return &StateDelta{
		FinalAnswer:         ptr(data.Answer),
		FinalConfidence:     ptr(data.FinalConfidence),
		Citations:           citations,
		Caveats:             caveats,
		ContradictionsFound: contradictions,
		ShouldStop:          ptr(true),
		ThinkingLog:         []ThinkingStep{step},
	}
}

// synthesizeFailure still produces an answer: a plain listing of the gathered
// result titles. The run terminates either way.
func (x *Agent) synthesizeFailure(ctx context.Context, s *RunState, stepID int, start time.Time, citations []Citation, cause error) *StateDelta {
	ctxlog.From(ctx).Error("synthesize stage failed", "error", cause)

	var b strings.Builder
	b.WriteString("Synthesis was not completed. Raw findings for the query ")
	fmt.Fprintf(&b, "%q:\n", s.Query)
	count := 0
	for _, r := range DeduplicateSources(s.AllSearchResults) {
		if r.Title == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s)\n", r.Title, r.URL)
		count++
		if count == 10 {
			break
		}
	}
	if count == 0 {
		b.WriteString("(no usable results were gathered)\n")
	}

	step := ThinkingStep{
		StepID:     stepID,
		Type:       StepForceSynthesize,
		Timestamp:  time.Now().UTC(),
		DurationMS: durationMS(start),
		Thinking:   "Synthesis error: " + cause.Error(),
		Action:     "Synthesis failed; returning raw results",
		Data:       map[string]any{"error": cause.Error(), "raw_results": count},
	}

	return &StateDelta{
		FinalAnswer:     ptr(b.String()),
		FinalConfidence: ptr(0.0),
		Citations:       citations,
		Caveats:         []string{"Synthesis failed; raw results returned"},
		ShouldStop:      ptr(true),
		ThinkingLog:     []ThinkingStep{step},
		Err:             ptr(cause.Error()),
	}
}
