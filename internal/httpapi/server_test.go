package httpapi_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/nexus-research/nexus"
	"github.com/nexus-research/nexus/internal/httpapi"
)

// stageLLM returns canned responses for the plan, search, evaluate and
// synthesize calls in order.
type stageLLM struct {
	responses []string
	calls     int
}

func (m *stageLLM) Invoke(ctx context.Context, systemPrompt, userPrompt string) (*nexus.ModelResponse, error) {
	idx := m.calls
	m.calls++
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return &nexus.ModelResponse{Text: m.responses[idx], TotalTokens: 10}, nil
}

type stubTool struct{}

func (stubTool) Kind() nexus.ToolKind { return nexus.ToolWebSearch }

func (stubTool) Search(ctx context.Context, query string) []nexus.SearchResult {
	return []nexus.SearchResult{
		{URL: "https://example.com/a", Title: "A", Content: "x", Score: 0.8, SourceType: nexus.SourceWeb},
		{URL: "https://example.com/b", Title: "B", Content: "y", Score: 0.6, SourceType: nexus.SourceNews},
	}
}

func happyPathResponses() []string {
	return []string{
		`{"thinking": "t", "action": "a", "data": {"strategy": "s", "subtasks": [{"id": "T-01", "task": "x", "priority": "HIGH", "tool": "web_search"}]}}`,
		`{"thinking": "t", "action": "a", "data": {"query": "refined question", "tool": "web_search"}}`,
		`{"thinking": "t", "action": "a", "data": {"confidence": 92, "sources_found": 2, "avg_reliability": 0.7, "threshold_met": true, "gaps_identified": [], "scores": {}}}`,
		`{"thinking": "t", "action": "a", "data": {"answer": "Final answer [SOURCE_1].", "final_confidence": 92, "caveats": [], "contradictions": [], "sources_used": 2}}`,
	}
}

func newTestServer(responses []string) *httptest.Server {
	agent := nexus.New(&stageLLM{responses: responses},
		nexus.WithTools(nexus.NewToolRegistry(stubTool{})))
	srv := httpapi.New(agent, httpapi.Config{
		MaxIterations:       8,
		ConfidenceThreshold: 85,
		MinSources:          3,
		ModelFast:           "gemini-2.0-flash",
		ModelPro:            "gemini-1.5-pro",
		StreamDelay:         0,
		SearchConnected:     true,
		AllowedOrigins:      []string{"http://localhost:3000"},
	})
	return httptest.NewServer(srv.Handler())
}

func TestResearchEndpoint(t *testing.T) {
	srv := newTestServer(happyPathResponses())
	defer srv.Close()

	body := `{"query": "what is the state of fusion energy"}`
	resp, err := http.Post(srv.URL+"/api/research", "application/json", strings.NewReader(body))
	gt.NoError(t, err)
	defer resp.Body.Close()
	gt.Equal(t, http.StatusOK, resp.StatusCode)

	var result nexus.Result
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	gt.Equal(t, "Final answer [SOURCE_1].", result.FinalAnswer)
	gt.Equal(t, 92.0, result.Confidence)
	gt.Equal(t, 1, result.TotalIterations)
	gt.A(t, result.Citations).Length(2)
}

func TestResearchEndpointValidation(t *testing.T) {
	srv := newTestServer(happyPathResponses())
	defer srv.Close()

	cases := map[string]string{
		"query too short":    `{"query": "short"}`,
		"bad max iterations": `{"query": "a sufficiently long query", "max_iterations": 99}`,
		"bad threshold":      `{"query": "a sufficiently long query", "confidence_threshold": 10}`,
		"broken body":        `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/research", "application/json", strings.NewReader(body))
			gt.NoError(t, err)
			defer resp.Body.Close()
			gt.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func readSSEEvents(t *testing.T, resp *http.Response) []nexus.Event {
	t.Helper()
	var events []nexus.Event
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var e nexus.Event
		gt.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
		events = append(events, e)
	}
	return events
}

func TestResearchStreamEndpoint(t *testing.T) {
	srv := newTestServer(happyPathResponses())
	defer srv.Close()

	body := `{"query": "what is the state of fusion energy"}`
	resp, err := http.Post(srv.URL+"/api/research/stream", "application/json", strings.NewReader(body))
	gt.NoError(t, err)
	defer resp.Body.Close()

	gt.Equal(t, http.StatusOK, resp.StatusCode)
	gt.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	gt.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	gt.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

	events := readSSEEvents(t, resp)
	gt.True(t, len(events) >= 4)
	gt.Equal(t, nexus.EventStep, events[0].Kind)
	gt.Equal(t, nexus.EventComplete, events[len(events)-1].Kind)
}

func TestResearchDemoEndpoint(t *testing.T) {
	// The demo wraps the query and caps the budget at 4, so even a model
	// that never passes the threshold terminates with a forced synthesis.
	low := `{"thinking": "t", "action": "a", "data": {"confidence": 40, "sources_found": 2, "avg_reliability": 0.5, "threshold_met": false, "gaps_identified": ["more data"], "reformulation_hint": "narrow down", "scores": {}}}`
	responses := []string{
		happyPathResponses()[0],
		`{"thinking": "t", "action": "a", "data": {"query": "q1", "tool": "web_search"}}`,
		low,
		`{"thinking": "t", "action": "a", "data": {"query": "q2", "tool": "web_search"}}`,
		low,
		`{"thinking": "t", "action": "a", "data": {"query": "q3", "tool": "web_search"}}`,
		low,
		`{"thinking": "t", "action": "a", "data": {"query": "q4", "tool": "web_search"}}`,
		low,
		happyPathResponses()[3],
	}
	srv := newTestServer(responses)
	defer srv.Close()

	body := `{"query": "impact of remote work"}`
	resp, err := http.Post(srv.URL+"/api/research/demo", "application/json", strings.NewReader(body))
	gt.NoError(t, err)
	defer resp.Body.Close()

	events := readSSEEvents(t, resp)
	retries := 0
	for _, e := range events {
		if e.Kind == nexus.EventRetryTriggered {
			retries++
		}
	}
	gt.True(t, retries >= 1)
	gt.Equal(t, nexus.EventComplete, events[len(events)-1].Kind)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(happyPathResponses())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	gt.NoError(t, err)
	defer resp.Body.Close()
	gt.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	gt.Equal(t, "healthy", health["status"].(string))
	gt.Equal(t, "gemini-2.0-flash", health["model_fast"].(string))
	gt.True(t, health["tavily_connected"].(bool))

	_, err = time.Parse(time.RFC3339, health["timestamp"].(string))
	gt.NoError(t, err)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(happyPathResponses())
	defer srv.Close()

	t.Run("allowed origin is echoed", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		resp, err := http.DefaultClient.Do(req)
		gt.NoError(t, err)
		defer resp.Body.Close()
		gt.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin gets no header", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		resp, err := http.DefaultClient.Do(req)
		gt.NoError(t, err)
		defer resp.Body.Close()
		gt.Equal(t, "", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/research", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		resp, err := http.DefaultClient.Do(req)
		gt.NoError(t, err)
		defer resp.Body.Close()
		gt.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}

func TestAgentConfigEndpoint(t *testing.T) {
	srv := newTestServer(happyPathResponses())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/agent/config")
	gt.NoError(t, err)
	defer resp.Body.Close()

	var cfg map[string]any
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	gt.Equal(t, 8.0, cfg["max_iterations"].(float64))
	gt.Equal(t, 85.0, cfg["confidence_threshold"].(float64))
	gt.Equal(t, 3.0, cfg["min_sources_required"].(float64))
}
