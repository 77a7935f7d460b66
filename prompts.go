package nexus

import (
	"encoding/json"
	"fmt"
)

const masterSystemPromptTemplate = `You are NEXUS, an iterative research agent. You decompose questions, search
external sources, judge the quality of what you found, and only answer once
the evidence is good enough.

Ground rules:
- Confidence is a 0-100 score of how well the gathered sources answer the
  original question. The acceptance threshold is %.1f.
- You get at most %d search iterations. Spend them on the biggest gaps first.
- Always respond with a single JSON object of the form
  {"thinking": "...", "action": "...", "data": {...}}
  and nothing else. No prose outside the JSON.`

const plannerPromptTemplate = `Decompose the following research query into 3-5 concrete, searchable subtasks.
Tag each subtask with the best tool ("web_search", "scholar_search" or
"news_search") and a priority ("HIGH", "MED" or "LOW").

Research query: %s

Respond with JSON:
{
  "thinking": "your reasoning about how to break the query down",
  "action": "short description of the plan",
  "data": {
    "strategy": "one-sentence research strategy",
    "subtasks": [
      {"id": "T-01", "task": "...", "priority": "HIGH", "tool": "web_search"}
    ]
  }
}`

const searchDecisionPromptTemplate = `Decide the next search query for this research run.

Original query: %s
Iteration: %d of %d
Queries already used: %s
Known information gaps: %s
Previous confidence: %.1f
Is retry: %t
Reformulation hint from the evaluator: %s

Rules:
- The query MUST be different from every query already used.
- On a retry, target the listed gaps and follow the reformulation hint; do
  not repeat a failed strategy.
- Pick the tool best suited to the query: "web_search", "scholar_search" or
  "news_search".

Respond with JSON:
{
  "thinking": "why this query and tool",
  "action": "short description of the search",
  "data": {
    "query": "the search query to run",
    "tool": "web_search",
    "reformulation_strategy": "how and why the query changed (retries only)",
    "targets_gap": "which gap this query targets (retries only)"
  }
}`

const evaluatorPromptTemplate = `Evaluate whether the search results below are sufficient to answer the
research query with high confidence.

Research query: %s
Iteration: %d of %d
Previous confidence: %.1f
Acceptance threshold: %.1f
Queries used so far: %s
Cumulative known gaps: %s

Search results:
%s

Score the evidence honestly. Decompose your confidence into coverage,
reliability, recency and consistency sub-scores. If confidence is below the
threshold, name the SPECIFIC missing information and propose how the next
query should differ.

Respond with JSON:
{
  "thinking": "your analysis of the evidence",
  "action": "short statement of the decision",
  "data": {
    "confidence": 0,
    "sources_found": 0,
    "avg_reliability": 0.0,
    "threshold_met": false,
    "scores": {"coverage": 0, "reliability": 0, "recency": 0, "consistency": 0},
    "gaps_identified": ["specific missing information"],
    "reformulation_hint": "how the next query should differ (only when below threshold)",
    "reformulation_strategy": "strategy tag, e.g. narrow_scope / switch_tool / add_recency"
  }
}`

const synthesizerPromptTemplate = `Merge the research sources below into one comprehensive, cited answer.

Research query: %s
Iterations used: %d
Confidence history: %s
Sources (%d, deduplicated and ranked by reliability; cite as [SOURCE_n] by
their position, 1-based):
%s

Requirements:
- Weave inline citation markers [SOURCE_n] into the answer.
- List contradictions you found between sources, how you resolved each one,
  and which claim you weighted higher.
- Assign a final 0-100 confidence and list caveats the reader should know.

Respond with JSON:
{
  "thinking": "how you merged the sources",
  "action": "short description of the synthesis",
  "data": {
    "answer": "the final answer with [SOURCE_n] markers",
    "final_confidence": 0,
    "contradictions": [
      {"claim_a": "...", "claim_b": "...", "resolution": "...", "weighted_claim": "..."}
    ],
    "caveats": ["..."],
    "sources_used": 0
  }
}`

func (x *Agent) systemPrompt(threshold float64, maxIterations int) string {
	return fmt.Sprintf(masterSystemPromptTemplate, threshold, maxIterations)
}

func buildPlannerPrompt(query string) string {
	return fmt.Sprintf(plannerPromptTemplate, query)
}

func buildSearchDecisionPrompt(s *RunState, isRetry bool, hint string) string {
	return fmt.Sprintf(searchDecisionPromptTemplate,
		s.Query,
		s.CurrentIteration, s.MaxIterations,
		mustJSON(s.SearchQueriesUsed),
		mustJSON(s.InformationGaps),
		s.previousConfidence(),
		isRetry,
		hint,
	)
}

func buildEvaluatorPrompt(s *RunState, threshold float64, resultsJSON string) string {
	return fmt.Sprintf(evaluatorPromptTemplate,
		s.Query,
		s.CurrentIteration, s.MaxIterations,
		s.previousConfidence(),
		threshold,
		mustJSON(s.SearchQueriesUsed),
		mustJSON(s.InformationGaps),
		resultsJSON,
	)
}

func buildSynthesizerPrompt(s *RunState, sources []SearchResult) string {
	return fmt.Sprintf(synthesizerPromptTemplate,
		s.Query,
		s.CurrentIteration,
		mustJSON(s.ConfidenceHistory),
		len(sources),
		mustJSON(sources),
	)
}

// mustJSON renders prompt context values. Falls back to an empty array on the
// (unreachable for these types) marshal failure.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
