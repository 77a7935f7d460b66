package nexus_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/nexus-research/nexus"
)

func TestDeduplicateSources(t *testing.T) {
	t.Run("keeps first occurrence per URL", func(t *testing.T) {
		in := []nexus.SearchResult{
			{URL: "https://a.example.com", Title: "first"},
			{URL: "https://b.example.com", Title: "second"},
			{URL: "https://a.example.com", Title: "different title, same url"},
		}
		out := nexus.DeduplicateSources(in)
		gt.A(t, out).Length(2)
		gt.Equal(t, "first", out[0].Title)
		gt.Equal(t, "second", out[1].Title)
	})

	t.Run("empty URLs are never duplicates", func(t *testing.T) {
		in := []nexus.SearchResult{
			{URL: "", Title: "x"},
			{URL: "", Title: "y"},
		}
		gt.A(t, nexus.DeduplicateSources(in)).Length(2)
	})

	t.Run("idempotent", func(t *testing.T) {
		in := []nexus.SearchResult{
			{URL: "https://a.example.com"},
			{URL: "https://a.example.com"},
			{URL: "https://b.example.com"},
		}
		once := nexus.DeduplicateSources(in)
		twice := nexus.DeduplicateSources(once)
		gt.Equal(t, once, twice)
	})
}

func TestRankSourcesByReliability(t *testing.T) {
	t.Run("tier order with score tiebreak", func(t *testing.T) {
		in := []nexus.SearchResult{
			{URL: "https://blog.example.com", SourceType: nexus.SourceBlog, Score: 0.99},
			{URL: "https://news.example.com", SourceType: nexus.SourceNews, Score: 0.5},
			{URL: "https://arxiv.org/abs/1", SourceType: nexus.SourceAcademic, Score: 0.3},
			{URL: "https://arxiv.org/abs/2", SourceType: nexus.SourceAcademic, Score: 0.8},
			{URL: "https://gov.example.com", SourceType: nexus.SourceOfficial, Score: 0.6},
		}
		out := nexus.RankSourcesByReliability(in)

		gt.Equal(t, "https://arxiv.org/abs/2", out[0].URL)
		gt.Equal(t, "https://arxiv.org/abs/1", out[1].URL)
		gt.Equal(t, "https://gov.example.com", out[2].URL)
		gt.Equal(t, "https://news.example.com", out[3].URL)
		gt.Equal(t, "https://blog.example.com", out[4].URL)
	})

	t.Run("input is not modified", func(t *testing.T) {
		in := []nexus.SearchResult{
			{URL: "https://blog.example.com", SourceType: nexus.SourceBlog},
			{URL: "https://arxiv.org/abs/1", SourceType: nexus.SourceAcademic},
		}
		_ = nexus.RankSourcesByReliability(in)
		gt.Equal(t, "https://blog.example.com", in[0].URL)
	})

	t.Run("unknown type sorts last", func(t *testing.T) {
		in := []nexus.SearchResult{
			{URL: "https://x.example.com", SourceType: "podcast"},
			{URL: "https://blog.example.com", SourceType: nexus.SourceBlog},
		}
		out := nexus.RankSourcesByReliability(in)
		gt.Equal(t, "https://blog.example.com", out[0].URL)
	})
}

func TestFormatCitation(t *testing.T) {
	t.Run("labels follow source type", func(t *testing.T) {
		cases := map[nexus.SourceType]string{
			nexus.SourceAcademic: nexus.ReliabilityHigh,
			nexus.SourceOfficial: nexus.ReliabilityHigh,
			nexus.SourceNews:     nexus.ReliabilityMedium,
			nexus.SourceWeb:      nexus.ReliabilityLow,
			nexus.SourceBlog:     nexus.ReliabilityLow,
		}
		for srcType, label := range cases {
			c := nexus.FormatCitation(nexus.SearchResult{URL: "https://x", Title: "t", SourceType: srcType}, 1)
			gt.Equal(t, label, c.Reliability)
		}
	})

	t.Run("sequential IDs and title fallback", func(t *testing.T) {
		c := nexus.FormatCitation(nexus.SearchResult{URL: "https://x", SourceType: nexus.SourceWeb}, 3)
		gt.Equal(t, "SOURCE_3", c.ID)
		gt.Equal(t, "Untitled", c.Title)
	})
}

func TestPrepareSources(t *testing.T) {
	t.Run("dedup, rank, truncate, cite", func(t *testing.T) {
		in := []nexus.SearchResult{
			{URL: "https://blog.example.com", SourceType: nexus.SourceBlog, Score: 0.9},
			{URL: "https://arxiv.org/abs/1", SourceType: nexus.SourceAcademic, Score: 0.7},
			{URL: "https://arxiv.org/abs/1", SourceType: nexus.SourceAcademic, Score: 0.7},
			{URL: "https://news.example.com", SourceType: nexus.SourceNews, Score: 0.8},
		}
		top, citations := nexus.PrepareSources(in, 2)

		gt.A(t, top).Length(2)
		gt.A(t, citations).Length(2)
		gt.Equal(t, "https://arxiv.org/abs/1", top[0].URL)
		gt.Equal(t, "https://news.example.com", top[1].URL)
		gt.Equal(t, "SOURCE_1", citations[0].ID)
		gt.Equal(t, "SOURCE_2", citations[1].ID)
	})

	t.Run("empty input yields empty slices", func(t *testing.T) {
		top, citations := nexus.PrepareSources(nil, 15)
		gt.A(t, top).Length(0)
		gt.A(t, citations).Length(0)
	})
}
