package nexus_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/nexus-research/nexus"
)

func TestEnsureDistinctQuery(t *testing.T) {
	t.Run("fresh query passes through", func(t *testing.T) {
		got := nexus.TestEnsureDistinctQuery("new query", []string{"old query"})
		gt.Equal(t, "new query", got)
	})

	t.Run("duplicate gets a suffix", func(t *testing.T) {
		got := nexus.TestEnsureDistinctQuery("q", []string{"q"})
		gt.Equal(t, "q (take 2)", got)
	})

	t.Run("suffix itself collides", func(t *testing.T) {
		got := nexus.TestEnsureDistinctQuery("q", []string{"q", "q (take 2)"})
		gt.Equal(t, "q (take 3)", got)
	})
}
