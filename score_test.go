package nexus_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/nexus-research/nexus"
)

func results(types ...nexus.SourceType) []nexus.SearchResult {
	out := make([]nexus.SearchResult, 0, len(types))
	for i, t := range types {
		out = append(out, nexus.SearchResult{
			URL:        "https://example.com/" + string(t) + string(rune('a'+i)),
			Title:      "result",
			SourceType: t,
			Score:      0.5,
		})
	}
	return out
}

func TestSourceReliability(t *testing.T) {
	t.Run("empty batch scores zero", func(t *testing.T) {
		gt.Equal(t, 0.0, nexus.SourceReliability(nil))
	})

	t.Run("single academic source", func(t *testing.T) {
		gt.Equal(t, 1.0, nexus.SourceReliability(results(nexus.SourceAcademic)))
	})

	t.Run("mean of mixed batch", func(t *testing.T) {
		// (1.0 + 0.4 + 0.3) / 3
		got := nexus.SourceReliability(results(nexus.SourceAcademic, nexus.SourceWeb, nexus.SourceBlog))
		gt.Equal(t, 0.567, got)
	})

	t.Run("unknown type scores as blog", func(t *testing.T) {
		batch := []nexus.SearchResult{{URL: "https://example.com/x", SourceType: "podcast"}}
		gt.Equal(t, 0.3, nexus.SourceReliability(batch))
	})
}

func TestCoverageScore(t *testing.T) {
	const minSources, targetSources = 3, 8

	t.Run("zero sources", func(t *testing.T) {
		gt.Equal(t, 0.0, nexus.CoverageScore(nil, minSources, targetSources))
	})

	t.Run("below minimum ramps to 0.5", func(t *testing.T) {
		one := results(nexus.SourceWeb)
		gt.Equal(t, 0.167, nexus.CoverageScore(one, minSources, targetSources))
	})

	t.Run("exactly minimum is 0.5", func(t *testing.T) {
		three := results(nexus.SourceWeb, nexus.SourceWeb, nexus.SourceWeb)
		gt.Equal(t, 0.5, nexus.CoverageScore(three, minSources, targetSources))
	})

	t.Run("at or beyond target is 1.0", func(t *testing.T) {
		eight := make([]nexus.SearchResult, 8)
		gt.Equal(t, 1.0, nexus.CoverageScore(eight, minSources, targetSources))

		twelve := make([]nexus.SearchResult, 12)
		gt.Equal(t, 1.0, nexus.CoverageScore(twelve, minSources, targetSources))
	})

	t.Run("monotonic in source count", func(t *testing.T) {
		prev := -1.0
		for n := 0; n <= 12; n++ {
			batch := make([]nexus.SearchResult, n)
			score := nexus.CoverageScore(batch, minSources, targetSources)
			gt.True(t, score >= prev)
			prev = score
		}
	})
}

func TestDiversityScore(t *testing.T) {
	t.Run("empty batch scores zero", func(t *testing.T) {
		gt.Equal(t, 0.0, nexus.DiversityScore(nil))
	})

	t.Run("one category of five", func(t *testing.T) {
		gt.Equal(t, 0.2, nexus.DiversityScore(results(nexus.SourceWeb, nexus.SourceWeb)))
	})

	t.Run("all five categories", func(t *testing.T) {
		all := results(nexus.SourceAcademic, nexus.SourceOfficial, nexus.SourceNews, nexus.SourceWeb, nexus.SourceBlog)
		gt.Equal(t, 1.0, nexus.DiversityScore(all))
	})
}

func TestAggregateConfidence(t *testing.T) {
	const minSources, targetSources = 3, 8

	t.Run("empty sources halve the model confidence", func(t *testing.T) {
		gt.Equal(t, 40.0, nexus.AggregateConfidence(nil, 80, minSources, targetSources))
	})

	t.Run("strong diverse sources add to the blend", func(t *testing.T) {
		batch := results(
			nexus.SourceAcademic, nexus.SourceAcademic, nexus.SourceOfficial,
			nexus.SourceNews, nexus.SourceWeb, nexus.SourceWeb,
			nexus.SourceBlog, nexus.SourceAcademic,
		)
		// 90*0.5 + 0.713*20 + 1.0*20 + 1.0*10
		got := nexus.AggregateConfidence(batch, 90, minSources, targetSources)
		gt.Equal(t, 89.26, got)
	})

	t.Run("clamped to bounds", func(t *testing.T) {
		gt.Equal(t, 0.0, nexus.AggregateConfidence(nil, 0, minSources, targetSources))

		all := make([]nexus.SearchResult, 0, 10)
		for i := 0; i < 10; i++ {
			all = append(all, nexus.SearchResult{SourceType: nexus.SourceAcademic})
		}
		got := nexus.AggregateConfidence(all, 100, minSources, targetSources)
		gt.True(t, got <= 100)
	})

	t.Run("monotonic in model confidence", func(t *testing.T) {
		batch := results(nexus.SourceWeb, nexus.SourceNews)
		prev := -1.0
		for c := 0.0; c <= 100; c += 10 {
			got := nexus.AggregateConfidence(batch, c, minSources, targetSources)
			gt.True(t, got >= prev)
			prev = got
		}
	})
}
