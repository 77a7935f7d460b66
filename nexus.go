package nexus

import (
	"log/slog"
)

// Defaults for the research loop. Overridable per Agent and per run.
const (
	DefaultMaxIterations       = 8
	DefaultConfidenceThreshold = 85.0
	DefaultMinSources          = 3
	DefaultTargetSources       = 8
	DefaultMaxCitationSources  = 15
)

// Agent runs the research pipeline: plan, then a confidence-gated
// search/evaluate loop, then synthesis. One Agent may serve many concurrent
// runs; each run owns its own RunState exclusively.
type Agent struct {
	llmFast LLMClient
	llmPro  LLMClient
	tools   *ToolRegistry

	nexusConfig
}

type nexusConfig struct {
	maxIterations       int
	confidenceThreshold float64
	minSources          int
	targetSources       int
	maxCitationSources  int
	logger              *slog.Logger
	sink                EventSink
}

// Option configures an Agent.
type Option func(*Agent)

// WithProClient sets a separate higher-capacity client used only by the
// synthesize stage. Without it the fast client serves every stage.
func WithProClient(client LLMClient) Option {
	return func(x *Agent) {
		x.llmPro = client
	}
}

// WithTools sets the search tool registry.
func WithTools(registry *ToolRegistry) Option {
	return func(x *Agent) {
		x.tools = registry
	}
}

// WithMaxIterations sets the default search iteration budget (minimum 1).
func WithMaxIterations(n int) Option {
	return func(x *Agent) {
		if n >= 1 {
			x.maxIterations = n
		}
	}
}

// WithConfidenceThreshold sets the default acceptance threshold in [0,100].
func WithConfidenceThreshold(v float64) Option {
	return func(x *Agent) {
		if v >= 0 && v <= 100 {
			x.confidenceThreshold = v
		}
	}
}

// WithMinSources sets the source count below which coverage scores under 0.5.
func WithMinSources(n int) Option {
	return func(x *Agent) {
		if n >= 1 {
			x.minSources = n
		}
	}
}

// WithTargetSources sets the source count that earns full coverage.
func WithTargetSources(n int) Option {
	return func(x *Agent) {
		if n >= 1 {
			x.targetSources = n
		}
	}
}

// WithMaxCitationSources caps how many ranked sources reach synthesis.
func WithMaxCitationSources(n int) Option {
	return func(x *Agent) {
		if n >= 1 {
			x.maxCitationSources = n
		}
	}
}

// WithLogger sets the structured logger. Default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Agent) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// WithEventSink sets the default sink for run-trace events. Default discards.
// A per-run sink can be attached with WithRunEventSink.
func WithEventSink(sink EventSink) Option {
	return func(x *Agent) {
		if sink != nil {
			x.sink = sink
		}
	}
}

// New creates a research agent around the given model client.
func New(llmClient LLMClient, options ...Option) *Agent {
	x := &Agent{
		llmFast: llmClient,
		tools:   NewToolRegistry(),
		nexusConfig: nexusConfig{
			maxIterations:       DefaultMaxIterations,
			confidenceThreshold: DefaultConfidenceThreshold,
			minSources:          DefaultMinSources,
			targetSources:       DefaultTargetSources,
			maxCitationSources:  DefaultMaxCitationSources,
			logger:              slog.New(slog.DiscardHandler),
			sink:                nopSink{},
		},
	}

	for _, opt := range options {
		opt(x)
	}

	if x.llmPro == nil {
		x.llmPro = x.llmFast
	}
	return x
}
