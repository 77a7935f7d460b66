package nexus_test

import (
	"encoding/json"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/nexus-research/nexus"
)

func TestExtractJSON(t *testing.T) {
	t.Run("clean object passes through", func(t *testing.T) {
		raw, err := nexus.ExtractJSON(`{"thinking": "t", "action": "a", "data": {}}`)
		gt.NoError(t, err)
		gt.True(t, json.Valid(raw))
	})

	t.Run("strips markdown fence with language tag", func(t *testing.T) {
		input := "```json\n{\"confidence\": 85}\n```"
		raw, err := nexus.ExtractJSON(input)
		gt.NoError(t, err)

		var obj map[string]float64
		gt.NoError(t, json.Unmarshal(raw, &obj))
		gt.Equal(t, 85.0, obj["confidence"])
	})

	t.Run("strips bare fence", func(t *testing.T) {
		input := "```\n{\"ok\": true}\n```"
		raw, err := nexus.ExtractJSON(input)
		gt.NoError(t, err)
		gt.True(t, json.Valid(raw))
	})

	t.Run("recovers object embedded in prose", func(t *testing.T) {
		input := `Sure, here is my evaluation:

{"confidence": 60, "threshold_met": false}

Let me know if you need more detail.`
		raw, err := nexus.ExtractJSON(input)
		gt.NoError(t, err)

		var obj map[string]any
		gt.NoError(t, json.Unmarshal(raw, &obj))
		gt.Equal(t, 60.0, obj["confidence"])
	})

	t.Run("braces inside strings do not break the scan", func(t *testing.T) {
		input := `prefix {"answer": "use {braces} and \"escapes\" freely", "n": 1} suffix`
		raw, err := nexus.ExtractJSON(input)
		gt.NoError(t, err)

		var obj map[string]any
		gt.NoError(t, json.Unmarshal(raw, &obj))
		gt.Equal(t, `use {braces} and "escapes" freely`, obj["answer"].(string))
	})

	t.Run("nested objects resolve to the outermost", func(t *testing.T) {
		input := `noise {"a": {"b": {"c": 1}}, "d": 2} more noise`
		raw, err := nexus.ExtractJSON(input)
		gt.NoError(t, err)

		var obj map[string]any
		gt.NoError(t, json.Unmarshal(raw, &obj))
		gt.Equal(t, 2.0, obj["d"])
	})

	t.Run("no object at all fails with tagged error", func(t *testing.T) {
		_, err := nexus.ExtractJSON("I could not produce a result, sorry.")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, nexus.ErrTagMalformedOutput))
	})

	t.Run("unbalanced braces fail with tagged error", func(t *testing.T) {
		_, err := nexus.ExtractJSON(`{"confidence": 60, "gaps": [`)
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, nexus.ErrTagMalformedOutput))
	})

	t.Run("empty input fails", func(t *testing.T) {
		_, err := nexus.ExtractJSON("")
		gt.Error(t, err)
	})
}

func TestStripCodeFence(t *testing.T) {
	gt.Equal(t, `{"a":1}`, nexus.TestStripCodeFence("```json\n{\"a\":1}\n```"))
	gt.Equal(t, `{"a":1}`, nexus.TestStripCodeFence("```\n{\"a\":1}\n```"))
	gt.Equal(t, `{"a":1}`, nexus.TestStripCodeFence(`{"a":1}`))
}
