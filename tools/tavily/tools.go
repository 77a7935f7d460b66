package tavily

import (
	"context"
	"fmt"

	"github.com/m-mizutani/ctxlog"
	"github.com/nexus-research/nexus"
)

// Default result limits per tool variant.
const (
	defaultWebResults     = 8
	defaultScholarResults = 5
	defaultNewsResults    = 6
	defaultNewsDaysBack   = 90
)

// WebTool is the general web search variant using advanced search depth.
// Like every tool here it never returns an error: a backend failure yields a
// single error-flagged placeholder result so the caller always receives a
// valid batch.
type WebTool struct {
	client     *Client
	maxResults int
}

// NewWebTool creates the general web search tool.
func NewWebTool(client *Client) *WebTool {
	return &WebTool{client: client, maxResults: defaultWebResults}
}

var _ nexus.SearchTool = (*WebTool)(nil)

func (t *WebTool) Kind() nexus.ToolKind {
	return nexus.ToolWebSearch
}

func (t *WebTool) Search(ctx context.Context, query string) []nexus.SearchResult {
	logger := ctxlog.From(ctx)
	logger.Info("web search started", "query", query)

	resp, err := t.client.search(ctx, searchRequest{
		Query:         query,
		SearchDepth:   "advanced",
		MaxResults:    t.maxResults,
		IncludeAnswer: true,
	})
	if err != nil {
		logger.Error("web search failed", "error", err)
		return errorBatch(err, nexus.SourceWeb)
	}

	results := make([]nexus.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, nexus.SearchResult{
			URL:        r.URL,
			Title:      r.Title,
			Content:    r.Content,
			Score:      r.Score,
			SourceType: ClassifySourceType(r.URL),
		})
	}
	logger.Info("web search complete", "results", len(results))
	return results
}

// ScholarTool scopes queries to academic sites for higher precision on
// scholarly content.
type ScholarTool struct {
	client     *Client
	maxResults int
}

// NewScholarTool creates the academic search tool.
func NewScholarTool(client *Client) *ScholarTool {
	return &ScholarTool{client: client, maxResults: defaultScholarResults}
}

var _ nexus.SearchTool = (*ScholarTool)(nil)

func (t *ScholarTool) Kind() nexus.ToolKind {
	return nexus.ToolScholarSearch
}

func (t *ScholarTool) Search(ctx context.Context, query string) []nexus.SearchResult {
	logger := ctxlog.From(ctx)

	scoped := fmt.Sprintf(
		"%s site:scholar.google.com OR site:arxiv.org OR site:pubmed.ncbi.nlm.nih.gov OR site:jstor.org OR site:semanticscholar.org",
		query)
	logger.Info("scholar search started", "query", scoped)

	resp, err := t.client.search(ctx, searchRequest{
		Query:       scoped,
		SearchDepth: "advanced",
		MaxResults:  t.maxResults,
	})
	if err != nil {
		logger.Error("scholar search failed", "error", err)
		return errorBatch(err, nexus.SourceAcademic)
	}

	results := make([]nexus.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, nexus.SearchResult{
			URL:        r.URL,
			Title:      r.Title,
			Content:    r.Content,
			Score:      r.Score,
			SourceType: nexus.SourceAcademic,
		})
	}
	logger.Info("scholar search complete", "results", len(results))
	return results
}

// NewsTool searches recent news via Tavily's news topic with a recency
// window.
type NewsTool struct {
	client     *Client
	maxResults int
	daysBack   int
}

// NewNewsTool creates the news search tool.
func NewNewsTool(client *Client) *NewsTool {
	return &NewsTool{
		client:     client,
		maxResults: defaultNewsResults,
		daysBack:   defaultNewsDaysBack,
	}
}

var _ nexus.SearchTool = (*NewsTool)(nil)

func (t *NewsTool) Kind() nexus.ToolKind {
	return nexus.ToolNewsSearch
}

func (t *NewsTool) Search(ctx context.Context, query string) []nexus.SearchResult {
	logger := ctxlog.From(ctx)
	logger.Info("news search started", "query", query, "days_back", t.daysBack)

	resp, err := t.client.search(ctx, searchRequest{
		Query:      query,
		Topic:      "news",
		Days:       t.daysBack,
		MaxResults: t.maxResults,
	})
	if err != nil {
		logger.Error("news search failed", "error", err)
		return errorBatch(err, nexus.SourceNews)
	}

	results := make([]nexus.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, nexus.SearchResult{
			URL:           r.URL,
			Title:         r.Title,
			Content:       r.Content,
			Score:         r.Score,
			SourceType:    nexus.SourceNews,
			PublishedDate: r.PublishedDate,
		})
	}
	logger.Info("news search complete", "results", len(results))
	return results
}

// NewTools creates all three search tools sharing one API client, ready for
// nexus.NewToolRegistry.
func NewTools(client *Client) []nexus.SearchTool {
	return []nexus.SearchTool{
		NewWebTool(client),
		NewScholarTool(client),
		NewNewsTool(client),
	}
}

// errorBatch is the placeholder batch returned when a backend call fails. The
// entry has no URL, so downstream dedup and citation never pick it up.
func errorBatch(err error, sourceType nexus.SourceType) []nexus.SearchResult {
	return []nexus.SearchResult{{
		SourceType: sourceType,
		Error:      err.Error(),
	}}
}
