package nexus

import (
	"context"
	"sync"
	"time"
)

// EventKind identifies a run-trace event.
type EventKind string

const (
	EventStep             EventKind = "step"
	EventRetryTriggered   EventKind = "retry_triggered"
	EventConfidenceUpdate EventKind = "confidence_update"
	EventGapsUpdated      EventKind = "gaps_updated"
	EventComplete         EventKind = "complete"
	EventError            EventKind = "error"
)

// Event is one run-trace record published after a stage completes. Events of
// one run are published in stage-completion order; a complete event is always
// last on success, an error event terminates the stream without one.
type Event struct {
	RunID string    `json:"run_id"`
	Kind  EventKind `json:"event_type"`
	Data  any       `json:"data"`
}

// RetryTriggeredData is the payload of a retry_triggered event.
type RetryTriggeredData struct {
	Iteration   int       `json:"iteration"`
	Confidence  float64   `json:"confidence"`
	Gaps        []string  `json:"gaps"`
	FailedQuery string    `json:"failed_query"`
	Strategy    string    `json:"strategy"`
	Timestamp   time.Time `json:"timestamp"`
}

// ConfidenceUpdateData is the payload of a confidence_update event.
type ConfidenceUpdateData struct {
	Current   float64   `json:"current"`
	History   []float64 `json:"history"`
	Threshold float64   `json:"threshold"`
	Passed    bool      `json:"passed"`
}

// GapsUpdatedData is the payload of a gaps_updated event.
type GapsUpdatedData struct {
	Gaps []string `json:"gaps"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Message string `json:"message"`
}

// EventSink receives run-trace events. Publish is called sequentially per
// run; implementations only need to be safe across runs.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

type nopSink struct{}

func (nopSink) Publish(ctx context.Context, event Event) error {
	return nil
}

// CollectorSink captures events in memory in publish order.
type CollectorSink struct {
	mu     sync.RWMutex
	events []Event
}

func NewCollectorSink() *CollectorSink {
	return &CollectorSink{events: make([]Event, 0)}
}

func (s *CollectorSink) Publish(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything published so far.
func (s *CollectorSink) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
