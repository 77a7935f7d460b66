package tavily

import (
	"strings"

	"github.com/nexus-research/nexus"
)

// Domain fragments per source category, checked in reliability order.
var (
	academicDomains = []string{
		"arxiv", "pubmed", "scholar", "jstor", "semantic",
		"researchgate", "springer", "nature", "science",
		"ieee", "acm.org", "doi.org",
	}
	officialDomains = []string{
		"gov", "who.int", "un.org", "worldbank", "imf.org",
		"oecd.org", "wef.org", "europa.eu", "cdc.gov",
	}
	newsDomains = []string{
		"reuters", "bbc", "nytimes", "guardian", "wsj",
		"bloomberg", "apnews", "cnbc", "economist",
	}
)

// ClassifySourceType maps a URL to a source category for reliability scoring.
// Matching is a substring check against known domain fragments, from the most
// to the least reliable category. Anything unmatched is general web.
func ClassifySourceType(url string) nexus.SourceType {
	lower := strings.ToLower(url)

	for _, d := range academicDomains {
		if strings.Contains(lower, d) {
			return nexus.SourceAcademic
		}
	}
	for _, d := range officialDomains {
		if strings.Contains(lower, d) {
			return nexus.SourceOfficial
		}
	}
	for _, d := range newsDomains {
		if strings.Contains(lower, d) {
			return nexus.SourceNews
		}
	}
	return nexus.SourceWeb
}
