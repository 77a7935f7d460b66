package nexus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/ctxlog"
)

type planData struct {
	Strategy string `json:"strategy"`
	Subtasks []struct {
		ID       string `json:"id"`
		Task     string `json:"task"`
		Priority string `json:"priority"`
		Tool     string `json:"tool"`
	} `json:"subtasks"`
}

// planStage decomposes the research query into 3-5 searchable subtasks. A
// model or extraction failure falls back to a single subtask routing the raw
// query to the web tool; planning never aborts the run.
func (x *Agent) planStage(ctx context.Context, s *RunState, rc *runConfig) *StateDelta {
	start := time.Now()
	stepID := s.nextStepID()
	logger := ctxlog.From(ctx)
	logger.Info("plan stage started", "query", s.Query)

	resp, err := x.llmFast.Invoke(ctx, x.systemPrompt(rc.threshold, rc.maxIterations), buildPlannerPrompt(s.Query))
	if err != nil {
		return x.planFailure(ctx, s, stepID, start, err)
	}

	env, err := extractEnvelope(resp.Text, planSchema)
	if err != nil {
		return x.planFailure(ctx, s, stepID, start, err)
	}

	var data planData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return x.planFailure(ctx, s, stepID, start, err)
	}

	subtasks := make([]SubTask, 0, len(data.Subtasks))
	for _, t := range data.Subtasks {
		subtasks = append(subtasks, SubTask{
			ID:       t.ID,
			Task:     t.Task,
			Priority: parsePriority(t.Priority),
			Status:   SubTaskPending,
			Tool:     ParseToolKind(t.Tool),
		})
	}

	step := ThinkingStep{
		StepID:     stepID,
		Type:       StepPlan,
		Timestamp:  time.Now().UTC(),
		DurationMS: durationMS(start),
		Thinking:   env.Thinking,
		Action:     env.Action,
		Data: map[string]any{
			"strategy":      data.Strategy,
			"subtasks":      subtasks,
			"subtask_count": len(subtasks),
		},
		TokensUsed: resp.TotalTokens,
	}

	logger.Info("plan stage complete",
		"subtasks", len(subtasks),
		"duration_ms", step.DurationMS)

	return &StateDelta{
		Subtasks:         subtasks,
		ResearchStrategy: ptr(data.Strategy),
		CurrentQuery:     ptr(s.Query),
		ThinkingLog:      []ThinkingStep{step},
	}
}

func (x *Agent) planFailure(ctx context.Context, s *RunState, stepID int, start time.Time, cause error) *StateDelta {
	ctxlog.From(ctx).Error("plan stage failed", "error", cause)

	step := ThinkingStep{
		StepID:     stepID,
		Type:       StepPlan,
		Timestamp:  time.Now().UTC(),
		DurationMS: durationMS(start),
		Thinking:   "Error during planning: " + cause.Error(),
		Action:     "Planning failed; will attempt a basic search",
		Data:       map[string]any{"error": cause.Error()},
	}

	fallback := SubTask{
		ID:       "T-01",
		Task:     s.Query,
		Priority: PriorityHigh,
		Status:   SubTaskPending,
		Tool:     ToolWebSearch,
	}

	return &StateDelta{
		Subtasks:         []SubTask{fallback},
		ResearchStrategy: ptr("Fallback: direct search due to planning error"),
		CurrentQuery:     ptr(s.Query),
		ThinkingLog:      []ThinkingStep{step},
		Err:              ptr(cause.Error()),
	}
}

func parsePriority(p string) Priority {
	switch Priority(p) {
	case PriorityHigh, PriorityMed, PriorityLow:
		return Priority(p)
	default:
		return PriorityMed
	}
}

func durationMS(start time.Time) float64 {
	return round2(float64(time.Since(start).Microseconds()) / 1000.0)
}
