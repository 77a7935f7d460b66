package nexus

// StateDelta is the partial state update one stage returns. The orchestrator
// applies deltas through apply, which is the single place that decides merge
// semantics per field:
//
//   - ThinkingLog, AllSearchResults, RetryEvents, ConfidenceHistory,
//     SearchQueriesUsed: append, preserving production order
//   - InformationGaps: set union, duplicates across iterations collapse
//   - ToolUsage: per-kind counter add
//   - everything else: overwrite, nil pointer / nil slice means untouched
//
// FillReformulatedQuery is a deliberate exception to the append-only
// discipline: a retry-aware search stage patches the blank ReformulatedQuery
// of the most recent RetryEvent retroactively. No other accumulator entry is
// ever modified after it is appended.
type StateDelta struct {
	// Append-only accumulators
	ThinkingLog       []ThinkingStep
	AllSearchResults  []SearchResult
	RetryEvents       []RetryEvent
	ConfidenceHistory []float64
	SearchQueriesUsed []string

	// Set union
	InformationGaps []string

	// Counter merge
	ToolUsage map[ToolKind]int

	// Overwrite when set
	Subtasks                []SubTask
	ResearchStrategy        *string
	CurrentSearchResults    []SearchResult
	CurrentQuery            *string
	CurrentIteration        *int
	QueryReformulationCount *int
	LatestEvaluation        *EvaluationRecord
	LastRetryReason         *string
	FinalAnswer             *string
	FinalConfidence         *float64
	Citations               []Citation
	Caveats                 []string
	ContradictionsFound     []string
	ShouldStop              *bool
	Err                     *string

	// Retroactive patch of the newest RetryEvent (see doc comment)
	FillReformulatedQuery *string
}

// apply merges one stage's delta into the run state. Called by the
// orchestrator between stage calls, never concurrently for the same run.
func (s *RunState) apply(d *StateDelta) {
	if d == nil {
		return
	}

	s.ThinkingLog = append(s.ThinkingLog, d.ThinkingLog...)
	s.AllSearchResults = append(s.AllSearchResults, d.AllSearchResults...)
	s.ConfidenceHistory = append(s.ConfidenceHistory, d.ConfidenceHistory...)
	s.SearchQueriesUsed = append(s.SearchQueriesUsed, d.SearchQueriesUsed...)

	if d.FillReformulatedQuery != nil && len(s.RetryEvents) > 0 {
		last := &s.RetryEvents[len(s.RetryEvents)-1]
		if last.ReformulatedQuery == "" {
			last.ReformulatedQuery = *d.FillReformulatedQuery
		}
	}
	s.RetryEvents = append(s.RetryEvents, d.RetryEvents...)

	if len(d.InformationGaps) > 0 {
		known := make(map[string]struct{}, len(s.InformationGaps))
		for _, g := range s.InformationGaps {
			known[g] = struct{}{}
		}
		for _, g := range d.InformationGaps {
			if _, ok := known[g]; ok {
				continue
			}
			known[g] = struct{}{}
			s.InformationGaps = append(s.InformationGaps, g)
		}
	}

	for kind, n := range d.ToolUsage {
		if s.ToolUsage == nil {
			s.ToolUsage = map[ToolKind]int{}
		}
		s.ToolUsage[kind] += n
	}

	if d.Subtasks != nil {
		s.Subtasks = d.Subtasks
	}
	if d.ResearchStrategy != nil {
		s.ResearchStrategy = *d.ResearchStrategy
	}
	if d.CurrentSearchResults != nil {
		s.CurrentSearchResults = d.CurrentSearchResults
	}
	if d.CurrentQuery != nil {
		s.CurrentQuery = *d.CurrentQuery
	}
	if d.CurrentIteration != nil {
		s.CurrentIteration = *d.CurrentIteration
	}
	if d.QueryReformulationCount != nil {
		s.QueryReformulationCount = *d.QueryReformulationCount
	}
	if d.LatestEvaluation != nil {
		s.LatestEvaluation = d.LatestEvaluation
	}
	if d.LastRetryReason != nil {
		s.LastRetryReason = *d.LastRetryReason
	}
	if d.FinalAnswer != nil {
		s.FinalAnswer = *d.FinalAnswer
	}
	if d.FinalConfidence != nil {
		s.FinalConfidence = *d.FinalConfidence
	}
	if d.Citations != nil {
		s.Citations = d.Citations
	}
	if d.Caveats != nil {
		s.Caveats = d.Caveats
	}
	if d.ContradictionsFound != nil {
		s.ContradictionsFound = d.ContradictionsFound
	}
	if d.ShouldStop != nil {
		s.ShouldStop = *d.ShouldStop
	}
	if d.Err != nil {
		s.Err = *d.Err
	}
}

func ptr[T any](v T) *T {
	return &v
}
