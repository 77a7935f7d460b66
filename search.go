package nexus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

type searchData struct {
	Query                 string `json:"query"`
	Tool                  string `json:"tool"`
	ReformulationStrategy string `json:"reformulation_strategy"`
	TargetsGap            string `json:"targets_gap"`
}

// searchStage asks the model for the next search query, runs the chosen tool,
// and advances the iteration counter. On a retry it steers the query by the
// evaluator's reformulation hint and retroactively fills the pending
// RetryEvent with the reformulated query. The iteration counter advances even
// when the stage fails, so the budget always makes progress toward
// termination.
func (x *Agent) searchStage(ctx context.Context, s *RunState, rc *runConfig) *StateDelta {
	start := time.Now()
	stepID := s.nextStepID()
	logger := ctxlog.From(ctx)

	isRetry := s.CurrentIteration > 0
	hint := ""
	if isRetry && s.LatestEvaluation != nil {
		hint = s.LatestEvaluation.ReformulationHint
	}

	logger.Info("search stage started",
		"iteration", s.CurrentIteration,
		"is_retry", isRetry)

	resp, err := x.llmFast.Invoke(ctx, x.systemPrompt(rc.threshold, rc.maxIterations), buildSearchDecisionPrompt(s, isRetry, hint))
	if err != nil {
		return x.searchFailure(ctx, s, stepID, start, err)
	}

	env, err := extractEnvelope(resp.Text, searchSchema)
	if err != nil {
		return x.searchFailure(ctx, s, stepID, start, err)
	}

	var data searchData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return x.searchFailure(ctx, s, stepID, start, err)
	}

	kind := ParseToolKind(data.Tool)
	query := ensureDistinctQuery(data.Query, s.SearchQueriesUsed)

	tool := x.tools.Resolve(kind)
	if tool == nil {
		return x.searchFailure(ctx, s, stepID, start,
			goerr.New("no search tool registered",
				goerr.V("kind", string(kind)),
				goerr.Tag(ErrTagExternalCall)))
	}

	logger.Info("running search tool", "tool", string(kind), "query", query)
	results := tool.Search(ctx, query)
	if results == nil {
		results = []SearchResult{}
	}

	stepType := StepSearchInitial
	thinking := env.Thinking
	if isRetry {
		stepType = StepSearchRetry
		thinking = fmt.Sprintf(
			"Previous search failed the confidence check. Reformulation strategy: %s. "+
				"New query %q targets specifically: %s. This is iteration %d. "+
				"Switching to %s for better coverage.",
			orDefault(data.ReformulationStrategy, "narrowing scope"),
			query,
			orDefault(data.TargetsGap, "identified gaps"),
			s.CurrentIteration+1,
			kind,
		)
	}

	sources := make([]map[string]any, 0, 10)
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		sources = append(sources, map[string]any{
			"url":         r.URL,
			"title":       r.Title,
			"source_type": r.SourceType,
			"score":       r.Score,
		})
		if len(sources) == 10 {
			break
		}
	}

	step := ThinkingStep{
		StepID:     stepID,
		Type:       stepType,
		Timestamp:  time.Now().UTC(),
		DurationMS: durationMS(start),
		Thinking:   thinking,
		Action:     env.Action,
		Data: map[string]any{
			"query":                   query,
			"tool":                    kind,
			"results_count":           len(results),
			"is_retry":                isRetry,
			"iteration":               s.CurrentIteration + 1,
			"previous_confidence":     s.previousConfidence(),
			"reformulation_hint_used": hint,
			"reformulation_strategy":  data.ReformulationStrategy,
			"targets_gap":             data.TargetsGap,
			"sources":                 sources,
		},
		TokensUsed: resp.TotalTokens,
	}

	logger.Info("search stage complete",
		"tool", string(kind),
		"results", len(results),
		"duration_ms", step.DurationMS)

	delta := &StateDelta{
		CurrentSearchResults: results,
		AllSearchResults:     results,
		SearchQueriesUsed:    []string{query},
		CurrentQuery:         ptr(query),
		CurrentIteration:     ptr(s.CurrentIteration + 1),
		ThinkingLog:          []ThinkingStep{step},
		ToolUsage:            map[ToolKind]int{kind: 1},
	}
	if isRetry {
		delta.QueryReformulationCount = ptr(s.QueryReformulationCount + 1)
		delta.FillReformulatedQuery = ptr(query)
	}
	return delta
}

func (x *Agent) searchFailure(ctx context.Context, s *RunState, stepID int, start time.Time, cause error) *StateDelta {
	ctxlog.From(ctx).Error("search stage failed", "error", cause)

	step := ThinkingStep{
		StepID:     stepID,
		Type:       StepSearchInitial,
		Timestamp:  time.Now().UTC(),
		DurationMS: durationMS(start),
		Thinking:   "Search execution error: " + cause.Error(),
		Action:     "Search failed; will evaluate available results",
		Data:       map[string]any{"error": cause.Error()},
	}

	// The budget must advance even on failure to guarantee termination.
	return &StateDelta{
		CurrentSearchResults: []SearchResult{},
		CurrentIteration:     ptr(s.CurrentIteration + 1),
		ThinkingLog:          []ThinkingStep{step},
		Err:                  ptr(cause.Error()),
	}
}

// ensureDistinctQuery guarantees the chosen query differs from every query
// already used in this run.
func ensureDistinctQuery(query string, used []string) string {
	seen := make(map[string]struct{}, len(used))
	for _, q := range used {
		seen[q] = struct{}{}
	}
	if _, ok := seen[query]; !ok {
		return query
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (take %d)", query, i)
		if _, ok := seen[candidate]; !ok {
			return candidate
		}
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
