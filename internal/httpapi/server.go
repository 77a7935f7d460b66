// Package httpapi exposes the research agent over HTTP: a synchronous
// endpoint, two SSE streaming endpoints, and health/config introspection.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/nexus-research/nexus"
)

// Config carries the server-facing settings the handlers report and apply.
type Config struct {
	MaxIterations       int
	ConfidenceThreshold float64
	MinSources          int
	ModelFast           string
	ModelPro            string
	StreamDelay         time.Duration
	SearchConnected     bool
	AllowedOrigins      []string
}

// Server wires the research agent to HTTP handlers.
type Server struct {
	agent *nexus.Agent
	cfg   Config
}

// New creates the HTTP server facade around an agent.
func New(agent *nexus.Agent, cfg Config) *Server {
	return &Server{agent: agent, cfg: cfg}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/research", s.handleResearch)
	mux.HandleFunc("POST /api/research/stream", s.handleResearchStream)
	mux.HandleFunc("POST /api/research/demo", s.handleResearchDemo)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/agent/config", s.handleAgentConfig)
	return s.cors(mux)
}

// cors allows browser access from the configured origins. Requests from
// other origins pass through without CORS headers and get blocked by the
// browser, not the server.
func (s *Server) cors(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(s.cfg.AllowedOrigins))
	for _, origin := range s.cfg.AllowedOrigins {
		allowed[origin] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// researchRequest is the request body shared by the research endpoints.
type researchRequest struct {
	Query               string   `json:"query"`
	MaxIterations       *int     `json:"max_iterations,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
}

func (r *researchRequest) validate() error {
	if len(r.Query) < 10 || len(r.Query) > 500 {
		return errors.New("query must be between 10 and 500 characters")
	}
	if r.MaxIterations != nil && (*r.MaxIterations < 1 || *r.MaxIterations > 15) {
		return errors.New("max_iterations must be between 1 and 15")
	}
	if r.ConfidenceThreshold != nil && (*r.ConfidenceThreshold < 50 || *r.ConfidenceThreshold > 99) {
		return errors.New("confidence_threshold must be between 50 and 99")
	}
	return nil
}

// runOptions converts request overrides to per-run options.
func (r *researchRequest) runOptions() []nexus.RunOption {
	var opts []nexus.RunOption
	if r.MaxIterations != nil {
		opts = append(opts, nexus.WithRunMaxIterations(*r.MaxIterations))
	}
	if r.ConfidenceThreshold != nil {
		opts = append(opts, nexus.WithRunConfidenceThreshold(*r.ConfidenceThreshold))
	}
	return opts
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeResearchRequest(w http.ResponseWriter, r *http.Request) (*researchRequest, bool) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return nil, false
	}
	if err := req.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}
	return &req, true
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeResearchRequest(w, r)
	if !ok {
		return
	}

	result, err := s.agent.Research(r.Context(), req.Query, req.runOptions()...)
	if err != nil {
		if errors.Is(err, nexus.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		ctxlog.From(r.Context()).Error("research run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "research agent error"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResearchStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeResearchRequest(w, r)
	if !ok {
		return
	}
	s.stream(w, r, req.Query, req.runOptions()...)
}

// handleResearchDemo streams a run tuned to show at least one
// self-correction: the query is reframed to demand evidence a single broad
// search cannot cover, with a fixed budget of 4 iterations.
func (s *Server) handleResearchDemo(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeResearchRequest(w, r)
	if !ok {
		return
	}

	demoQuery := fmt.Sprintf(
		"%s; provide sector-specific data, primary source citations, year-by-year statistics, and expert consensus with contradicting viewpoints.",
		req.Query)
	s.stream(w, r, demoQuery, nexus.WithRunMaxIterations(4))
}

// stream runs one research call and relays its events as SSE frames. Step
// events are paced by the configured delay so a UI can animate the trace.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, query string, options ...nexus.RunOption) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sink := newChannelSink(64)
	options = append(options, nexus.WithRunEventSink(sink))

	done := make(chan error, 1)
	go func() {
		defer sink.Close()
		_, err := s.agent.Research(r.Context(), query, options...)
		done <- err
	}()

	for event := range sink.Events() {
		frame, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", frame)
		flusher.Flush()

		if event.Kind == nexus.EventStep && s.cfg.StreamDelay > 0 {
			time.Sleep(s.cfg.StreamDelay)
		}
	}

	if err := <-done; err != nil && !errors.Is(err, nexus.ErrRunAborted) {
		// Validation failures happen before any event is published, so the
		// stream is still empty and the client gets exactly one error frame.
		frame, _ := json.Marshal(nexus.Event{
			Kind: nexus.EventError,
			Data: nexus.ErrorData{Message: err.Error()},
		})
		fmt.Fprintf(w, "data: %s\n\n", frame)
		flusher.Flush()
	}
}

type healthResponse struct {
	Status          string `json:"status"`
	ModelFast       string `json:"model_fast"`
	ModelPro        string `json:"model_pro"`
	TavilyConnected bool   `json:"tavily_connected"`
	Timestamp       string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "healthy",
		ModelFast:       s.cfg.ModelFast,
		ModelPro:        s.cfg.ModelPro,
		TavilyConnected: s.cfg.SearchConnected,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	})
}

type agentConfigResponse struct {
	MaxIterations       int     `json:"max_iterations"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	MinSourcesRequired  int     `json:"min_sources_required"`
	ModelFast           string  `json:"model_fast"`
	ModelPro            string  `json:"model_pro"`
	StreamDelayMS       int     `json:"stream_delay_ms"`
}

func (s *Server) handleAgentConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, agentConfigResponse{
		MaxIterations:       s.cfg.MaxIterations,
		ConfidenceThreshold: s.cfg.ConfidenceThreshold,
		MinSourcesRequired:  s.cfg.MinSources,
		ModelFast:           s.cfg.ModelFast,
		ModelPro:            s.cfg.ModelPro,
		StreamDelayMS:       int(s.cfg.StreamDelay / time.Millisecond),
	})
}

// channelSink adapts the EventSink interface to a buffered channel for SSE
// relaying. Publish blocks when the buffer is full, which backpressures the
// run instead of dropping events.
type channelSink struct {
	ch chan nexus.Event
}

func newChannelSink(buffer int) *channelSink {
	return &channelSink{ch: make(chan nexus.Event, buffer)}
}

func (s *channelSink) Publish(ctx context.Context, event nexus.Event) error {
	select {
	case s.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *channelSink) Events() <-chan nexus.Event {
	return s.ch
}

func (s *channelSink) Close() {
	close(s.ch)
}
