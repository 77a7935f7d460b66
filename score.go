package nexus

import (
	"math"
)

// sourceReliabilityWeights assigns a fixed trust weight per source type.
// Unknown types score as blogs.
var sourceReliabilityWeights = map[SourceType]float64{
	SourceAcademic: 1.0,
	SourceOfficial: 0.9,
	SourceNews:     0.7,
	SourceWeb:      0.4,
	SourceBlog:     0.3,
}

const unknownSourceWeight = 0.3

// SourceReliability returns the mean reliability weight of a result batch in
// [0,1], or 0 for an empty batch.
func SourceReliability(sources []SearchResult) float64 {
	if len(sources) == 0 {
		return 0.0
	}
	total := 0.0
	for _, s := range sources {
		w, ok := sourceReliabilityWeights[s.SourceType]
		if !ok {
			w = unknownSourceWeight
		}
		total += w
	}
	return round3(total / float64(len(sources)))
}

// CoverageScore scores how many sources were found against a minimum and a
// target: below minSources it ramps linearly from 0 to 0.5, at minSources it
// is 0.5, and it reaches 1.0 at targetSources or beyond.
func CoverageScore(sources []SearchResult, minSources, targetSources int) float64 {
	count := len(sources)
	if count < minSources {
		return round3(float64(count) / float64(minSources) * 0.5)
	}
	if count >= targetSources {
		return 1.0
	}
	return round3(0.5 + 0.5*float64(count-minSources)/float64(targetSources-minSources))
}

// DiversityScore is the fraction of known source-type categories present in
// the batch. Sourcing from multiple categories reduces bias risk.
func DiversityScore(sources []SearchResult) float64 {
	if len(sources) == 0 {
		return 0.0
	}
	seen := map[SourceType]struct{}{}
	for _, s := range sources {
		seen[s.SourceType] = struct{}{}
	}
	return round3(float64(len(seen)) / float64(len(sourceReliabilityWeights)))
}

// AggregateConfidence blends the model's self-assessed confidence (0-100)
// with independently computed source quality signals, so a single model's
// self-report cannot alone pass the threshold:
//
//	model confidence 50%, reliability 20%, coverage 20%, diversity 10%
//
// The result is clamped to [0,100] and rounded to 2 decimals.
func AggregateConfidence(sources []SearchResult, llmConfidence float64, minSources, targetSources int) float64 {
	reliability := SourceReliability(sources)
	coverage := CoverageScore(sources, minSources, targetSources)
	diversity := DiversityScore(sources)

	aggregate := llmConfidence*0.5 +
		reliability*100*0.2 +
		coverage*100*0.2 +
		diversity*100*0.1

	return round2(math.Min(math.Max(aggregate, 0.0), 100.0))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
