package nexus

import (
	"time"
)

// SourceType classifies where a search result came from, ordered by
// trustworthiness for scoring and ranking.
type SourceType string

const (
	SourceAcademic SourceType = "academic"
	SourceOfficial SourceType = "official"
	SourceNews     SourceType = "news"
	SourceWeb      SourceType = "web"
	SourceBlog     SourceType = "blog"
)

// Priority of a planned subtask.
type Priority string

const (
	PriorityHigh Priority = "HIGH"
	PriorityMed  Priority = "MED"
	PriorityLow  Priority = "LOW"
)

// SubTaskStatus is the lifecycle state of a planned subtask.
type SubTaskStatus string

const (
	SubTaskPending  SubTaskStatus = "pending"
	SubTaskActive   SubTaskStatus = "active"
	SubTaskComplete SubTaskStatus = "complete"
	SubTaskRetrying SubTaskStatus = "retrying"
)

// SubTask is a single decomposed research subtask produced by the plan stage.
type SubTask struct {
	ID       string        `json:"id"`
	Task     string        `json:"task"`
	Priority Priority      `json:"priority"`
	Status   SubTaskStatus `json:"status"`
	Tool     ToolKind      `json:"tool"`
}

// SearchResult is a single result returned by a search tool. Immutable once
// produced. Error is set only on the error-flagged placeholder entry a tool
// returns when its backend call failed.
type SearchResult struct {
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Score         float64    `json:"score"`
	SourceType    SourceType `json:"source_type"`
	PublishedDate string     `json:"published_date,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Decision is the outcome of one evaluate stage.
type Decision string

const (
	DecisionSufficient      Decision = "sufficient"
	DecisionRetry           Decision = "retry"
	DecisionForceSynthesize Decision = "force_synthesize"
)

// EvaluationRecord is the output of one evaluate stage: the confidence score
// and coverage analysis that drives the retry/terminate branch.
type EvaluationRecord struct {
	Confidence        float64  `json:"confidence"`
	SourcesFound      int      `json:"sources_found"`
	AvgReliability    float64  `json:"avg_reliability"`
	ThresholdMet      bool     `json:"threshold_met"`
	Gaps              []string `json:"gaps"`
	Decision          Decision `json:"decision"`
	ReformulationHint string   `json:"reformulation_hint"`
}

// StepType tags a ThinkingStep with the stage variant that produced it.
type StepType string

const (
	StepPlan            StepType = "plan"
	StepSearchInitial   StepType = "search_initial"
	StepSearchRetry     StepType = "search_retry"
	StepEvaluateRetry   StepType = "evaluate_retry"
	StepEvaluatePass    StepType = "evaluate_pass"
	StepSynthesize      StepType = "synthesize"
	StepForceSynthesize StepType = "force_synthesize"
)

// ThinkingStep is one immutable entry of the run's reasoning trace. StepID is
// sequential and 1-based within a run.
type ThinkingStep struct {
	StepID     int            `json:"step_id"`
	Type       StepType       `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	DurationMS float64        `json:"duration_ms"`
	Thinking   string         `json:"thinking"`
	Action     string         `json:"action"`
	Data       map[string]any `json:"data"`
	TokensUsed int            `json:"tokens_used"`
}

// RetryEvent is the formal record of a self-correction moment. It is created
// when the evaluate stage decides to retry; ReformulatedQuery stays blank
// until the following search stage fills it in. If the run terminates before
// another search happens, it remains blank permanently.
type RetryEvent struct {
	Iteration             int       `json:"iteration"`
	TriggerConfidence     float64   `json:"trigger_confidence"`
	TriggerGaps           []string  `json:"trigger_gaps"`
	OriginalQuery         string    `json:"original_query"`
	ReformulatedQuery     string    `json:"reformulated_query"`
	ReformulationStrategy string    `json:"reformulation_strategy"`
	Timestamp             time.Time `json:"timestamp"`
}

// Reliability labels attached to citations.
const (
	ReliabilityHigh   = "HIGH"
	ReliabilityMedium = "MEDIUM"
	ReliabilityLow    = "LOW"
)

// Citation points a claim in the final answer back to a ranked source.
type Citation struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	SourceType  SourceType `json:"source_type"`
	Reliability string     `json:"reliability"`
}

// RunState is the single mutable record threaded through the pipeline for one
// research run. Stages never mutate it directly; they return a StateDelta that
// the orchestrator applies between stage calls.
type RunState struct {
	// Input
	Query string `json:"query"`
	RunID string `json:"run_id"`

	// Planning
	Subtasks         []SubTask `json:"subtasks"`
	ResearchStrategy string    `json:"research_strategy"`

	// Execution tracking
	CurrentIteration int `json:"current_iteration"`
	MaxIterations    int `json:"max_iterations"`

	// Search state
	AllSearchResults     []SearchResult `json:"all_search_results"`
	CurrentSearchResults []SearchResult `json:"current_search_results"`
	SearchQueriesUsed    []string       `json:"search_queries_used"`
	CurrentQuery         string         `json:"current_query"`

	// Evaluation
	LatestEvaluation  *EvaluationRecord `json:"latest_evaluation,omitempty"`
	ConfidenceHistory []float64         `json:"confidence_history"`

	// Retry / self-correction tracking
	RetryEvents             []RetryEvent `json:"retry_events"`
	QueryReformulationCount int          `json:"query_reformulation_count"`
	LastRetryReason         string       `json:"last_retry_reason,omitempty"`
	InformationGaps         []string     `json:"information_gaps"`

	// Synthesis output
	FinalAnswer         string     `json:"final_answer,omitempty"`
	FinalConfidence     float64    `json:"final_confidence"`
	Citations           []Citation `json:"citations"`
	Caveats             []string   `json:"caveats"`
	ContradictionsFound []string   `json:"contradictions_found"`

	// Trace
	ThinkingLog []ThinkingStep   `json:"thinking_log"`
	ToolUsage   map[ToolKind]int `json:"tool_usage"`
	StartTime   time.Time        `json:"-"`

	// Control flow
	ShouldStop bool   `json:"should_stop"`
	Err        string `json:"error,omitempty"`
}

func newRunState(runID, query string, maxIterations int) *RunState {
	return &RunState{
		Query:             query,
		RunID:             runID,
		CurrentQuery:      query,
		MaxIterations:     maxIterations,
		ConfidenceHistory: []float64{},
		InformationGaps:   []string{},
		ToolUsage:         map[ToolKind]int{},
		StartTime:         time.Now(),
	}
}

// nextStepID returns the 1-based step ID for the next trace entry.
func (s *RunState) nextStepID() int {
	return len(s.ThinkingLog) + 1
}

// previousConfidence returns the last recorded confidence score, or 0 before
// the first evaluation.
func (s *RunState) previousConfidence() float64 {
	if len(s.ConfidenceHistory) == 0 {
		return 0
	}
	return s.ConfidenceHistory[len(s.ConfidenceHistory)-1]
}

// Result is the terminal outcome of a run, assembled from the final RunState.
type Result struct {
	RunID               string           `json:"run_id"`
	Query               string           `json:"query"`
	Status              string           `json:"status"`
	FinalAnswer         string           `json:"final_answer"`
	Confidence          float64          `json:"confidence"`
	Citations           []Citation       `json:"citations"`
	Caveats             []string         `json:"caveats"`
	ContradictionsFound []string         `json:"contradictions_found"`
	ThinkingLog         []ThinkingStep   `json:"thinking_log"`
	RetryEvents         []RetryEvent     `json:"retry_events"`
	ConfidenceHistory   []float64        `json:"confidence_history"`
	InformationGaps     []string         `json:"information_gaps"`
	ToolUsage           map[ToolKind]int `json:"tool_usage"`
	TotalIterations     int              `json:"total_iterations"`
	TotalDurationMS     float64          `json:"total_duration_ms"`
}

func (s *RunState) result() *Result {
	return &Result{
		RunID:               s.RunID,
		Query:               s.Query,
		Status:              "success",
		FinalAnswer:         s.FinalAnswer,
		Confidence:          s.FinalConfidence,
		Citations:           s.Citations,
		Caveats:             s.Caveats,
		ContradictionsFound: s.ContradictionsFound,
		ThinkingLog:         s.ThinkingLog,
		RetryEvents:         s.RetryEvents,
		ConfidenceHistory:   s.ConfidenceHistory,
		InformationGaps:     s.InformationGaps,
		ToolUsage:           s.ToolUsage,
		TotalIterations:     s.CurrentIteration,
		TotalDurationMS:     float64(time.Since(s.StartTime).Microseconds()) / 1000.0,
	}
}
