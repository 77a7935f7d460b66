package nexus

import (
	"context"
)

// ToolKind is the closed set of search tool variants. Tool selection coming
// back from a model is free text, so ParseToolKind maps anything unknown to
// the general web variant.
type ToolKind string

const (
	ToolWebSearch     ToolKind = "web_search"
	ToolScholarSearch ToolKind = "scholar_search"
	ToolNewsSearch    ToolKind = "news_search"
)

// ParseToolKind resolves a tool name reported by the model. Unknown names fall
// back to ToolWebSearch.
func ParseToolKind(name string) ToolKind {
	switch ToolKind(name) {
	case ToolWebSearch, ToolScholarSearch, ToolNewsSearch:
		return ToolKind(name)
	default:
		return ToolWebSearch
	}
}

// SearchTool executes one search variant. Implementations must never let a
// backend failure escape: on internal error they return an empty or
// error-flagged result list so the search stage always receives a valid batch.
type SearchTool interface {
	Kind() ToolKind
	Search(ctx context.Context, query string) []SearchResult
}

// ToolRegistry resolves a ToolKind to its SearchTool, falling back to the
// general web tool for kinds that were never registered.
type ToolRegistry struct {
	tools map[ToolKind]SearchTool
}

// NewToolRegistry builds a registry from the given tools. Later entries with
// the same kind override earlier ones.
func NewToolRegistry(tools ...SearchTool) *ToolRegistry {
	r := &ToolRegistry{tools: make(map[ToolKind]SearchTool, len(tools))}
	for _, t := range tools {
		r.tools[t.Kind()] = t
	}
	return r
}

// Resolve returns the tool registered for kind, the web tool when kind is
// unregistered, or nil when the registry has no web tool either.
func (r *ToolRegistry) Resolve(kind ToolKind) SearchTool {
	if t, ok := r.tools[kind]; ok {
		return t
	}
	return r.tools[ToolWebSearch]
}
