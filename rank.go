package nexus

import (
	"fmt"
	"sort"
)

// reliabilityOrder is the sort tier per source type, ascending = more
// reliable. Unknown types sort last.
var reliabilityOrder = map[SourceType]int{
	SourceAcademic: 0,
	SourceOfficial: 1,
	SourceNews:     2,
	SourceWeb:      3,
	SourceBlog:     4,
}

const unknownReliabilityTier = 5

// DeduplicateSources removes duplicate results by URL, keeping the first
// occurrence of each. Results arrive pre-sorted by relevance, so first-seen is
// the highest scored. Entries without a URL are never treated as duplicates of
// each other.
func DeduplicateSources(sources []SearchResult) []SearchResult {
	seen := make(map[string]struct{}, len(sources))
	unique := make([]SearchResult, 0, len(sources))
	for _, s := range sources {
		if s.URL == "" {
			unique = append(unique, s)
			continue
		}
		if _, ok := seen[s.URL]; ok {
			continue
		}
		seen[s.URL] = struct{}{}
		unique = append(unique, s)
	}
	return unique
}

// RankSourcesByReliability sorts sources by reliability tier (academic first),
// tie-broken by descending relevance score. The input slice is not modified.
func RankSourcesByReliability(sources []SearchResult) []SearchResult {
	ranked := make([]SearchResult, len(sources))
	copy(ranked, sources)
	sort.SliceStable(ranked, func(i, j int) bool {
		ti, tj := reliabilityTier(ranked[i].SourceType), reliabilityTier(ranked[j].SourceType)
		if ti != tj {
			return ti < tj
		}
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func reliabilityTier(t SourceType) int {
	if tier, ok := reliabilityOrder[t]; ok {
		return tier
	}
	return unknownReliabilityTier
}

// FormatCitation turns a ranked source into a citation object for the final
// answer. Academic and official sources label HIGH, news MEDIUM, the rest LOW.
func FormatCitation(source SearchResult, citationID int) Citation {
	title := source.Title
	if title == "" {
		title = "Untitled"
	}

	label := ReliabilityLow
	switch source.SourceType {
	case SourceAcademic, SourceOfficial:
		label = ReliabilityHigh
	case SourceNews:
		label = ReliabilityMedium
	}

	return Citation{
		ID:          fmt.Sprintf("SOURCE_%d", citationID),
		URL:         source.URL,
		Title:       title,
		SourceType:  source.SourceType,
		Reliability: label,
	}
}

// PrepareSources readies the accumulated result set for synthesis:
// deduplicate by URL, rank by reliability, truncate to maxSources, and assign
// sequential citations to the survivors.
func PrepareSources(allResults []SearchResult, maxSources int) ([]SearchResult, []Citation) {
	unique := DeduplicateSources(allResults)
	ranked := RankSourcesByReliability(unique)
	if maxSources > 0 && len(ranked) > maxSources {
		ranked = ranked[:maxSources]
	}

	citations := make([]Citation, 0, len(ranked))
	for i, source := range ranked {
		citations = append(citations, FormatCitation(source, i+1))
	}
	return ranked, citations
}
