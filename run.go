package nexus

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

type runConfig struct {
	maxIterations int
	threshold     float64
	sink          EventSink
}

// RunOption overrides Agent defaults for a single run. Overrides bind at
// run-start and never affect runs already in flight.
type RunOption func(*runConfig)

// WithRunMaxIterations overrides the search iteration budget for this run.
func WithRunMaxIterations(n int) RunOption {
	return func(rc *runConfig) {
		rc.maxIterations = n
	}
}

// WithRunConfidenceThreshold overrides the acceptance threshold for this run.
func WithRunConfidenceThreshold(v float64) RunOption {
	return func(rc *runConfig) {
		rc.threshold = v
	}
}

// WithRunEventSink attaches a sink receiving this run's trace events in
// stage-completion order.
func WithRunEventSink(sink EventSink) RunOption {
	return func(rc *runConfig) {
		if sink != nil {
			rc.sink = sink
		}
	}
}

// Research executes one full run: plan, then search/evaluate until the
// confidence threshold is met or the iteration budget is exhausted, then
// synthesize. Stage failures never abort the run; the worst case is a
// degraded, explicitly caveated answer. The returned error is non-nil only
// for invalid input or cancellation between stages.
func (x *Agent) Research(ctx context.Context, query string, options ...RunOption) (*Result, error) {
	rc := &runConfig{
		maxIterations: x.maxIterations,
		threshold:     x.confidenceThreshold,
		sink:          x.sink,
	}
	for _, opt := range options {
		opt(rc)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "query must not be empty",
			goerr.Tag(ErrTagValidation))
	}
	if rc.maxIterations < 1 {
		return nil, goerr.Wrap(ErrInvalidInput, "max iterations must be at least 1",
			goerr.V("max_iterations", rc.maxIterations),
			goerr.Tag(ErrTagValidation))
	}
	if rc.threshold < 0 || rc.threshold > 100 {
		return nil, goerr.Wrap(ErrInvalidInput, "confidence threshold must be within [0,100]",
			goerr.V("threshold", rc.threshold),
			goerr.Tag(ErrTagValidation))
	}

	runID := uuid.NewString()[:8]
	state := newRunState(runID, query, rc.maxIterations)

	logger := x.logger.With("run_id", runID)
	ctx = ctxlog.With(ctx, logger)
	logger.Info("research run started",
		"query", query,
		"max_iterations", rc.maxIterations,
		"threshold", rc.threshold)

	stage := stagePlan
	for {
		// Abort point between stages. In-flight external calls are opaque
		// and blocking, so cancellation only takes effect here.
		select {
		case <-ctx.Done():
			detached := context.WithoutCancel(ctx)
			_ = rc.sink.Publish(detached, Event{
				RunID: runID,
				Kind:  EventError,
				Data:  ErrorData{Message: ctx.Err().Error()},
			})
			return nil, goerr.Wrap(ErrRunAborted, "context cancelled between stages",
				goerr.V("run_id", runID),
				goerr.V("stage", string(stage)))
		default:
		}

		var delta *StateDelta
		switch stage {
		case stagePlan:
			delta = x.planStage(ctx, state, rc)
		case stageSearch:
			delta = x.searchStage(ctx, state, rc)
		case stageEvaluate:
			delta = x.evaluateStage(ctx, state, rc)
		case stageSynthesize, stageForceSynthesize:
			delta = x.synthesizeStage(ctx, state, rc)
		}

		state.apply(delta)
		x.publishStageEvents(ctx, rc, state, delta)

		switch stage {
		case stagePlan:
			stage = stageSearch
		case stageSearch:
			stage = stageEvaluate
		case stageEvaluate:
			stage = nextStage(state)
		case stageSynthesize, stageForceSynthesize:
			result := state.result()
			if err := rc.sink.Publish(ctx, Event{RunID: runID, Kind: EventComplete, Data: result}); err != nil {
				logger.Warn("failed to publish complete event", "error", err)
			}
			logger.Info("research run complete",
				"iterations", result.TotalIterations,
				"confidence", result.Confidence,
				"retries", len(result.RetryEvents))
			return result, nil
		}
	}
}

// publishStageEvents emits the observable events for one completed stage, in
// the fixed order retry_triggered, step, confidence_update, gaps_updated.
func (x *Agent) publishStageEvents(ctx context.Context, rc *runConfig, s *RunState, d *StateDelta) {
	if d == nil {
		return
	}
	logger := ctxlog.From(ctx)
	publish := func(kind EventKind, data any) {
		if err := rc.sink.Publish(ctx, Event{RunID: s.RunID, Kind: kind, Data: data}); err != nil {
			logger.Warn("failed to publish run event", "kind", string(kind), "error", err)
		}
	}

	for _, retry := range d.RetryEvents {
		publish(EventRetryTriggered, RetryTriggeredData{
			Iteration:   retry.Iteration,
			Confidence:  retry.TriggerConfidence,
			Gaps:        retry.TriggerGaps,
			FailedQuery: retry.OriginalQuery,
			Strategy:    retry.ReformulationStrategy,
			Timestamp:   retry.Timestamp,
		})
	}

	for _, step := range d.ThinkingLog {
		publish(EventStep, step)
	}

	if len(d.ConfidenceHistory) > 0 && len(s.ConfidenceHistory) > 0 {
		current := s.ConfidenceHistory[len(s.ConfidenceHistory)-1]
		publish(EventConfidenceUpdate, ConfidenceUpdateData{
			Current:   current,
			History:   s.ConfidenceHistory,
			Threshold: rc.threshold,
			Passed:    current >= rc.threshold,
		})
	}

	if len(d.InformationGaps) > 0 && len(s.InformationGaps) > 0 {
		publish(EventGapsUpdated, GapsUpdatedData{Gaps: s.InformationGaps})
	}
}
