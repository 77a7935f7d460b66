package nexus

// Stage payload schemas. Each stage asks the model for a {thinking, action,
// data} envelope; the data shape differs per stage. Validation happens after
// extraction and before unmarshal, so a malformed payload takes the stage's
// failure path instead of producing a half-filled record.

const planSchemaJSON = `{
  "type": "object",
  "required": ["thinking", "action", "data"],
  "properties": {
    "thinking": {"type": "string"},
    "action": {"type": "string"},
    "data": {
      "type": "object",
      "required": ["strategy", "subtasks"],
      "properties": {
        "strategy": {"type": "string"},
        "subtasks": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["id", "task", "priority", "tool"],
            "properties": {
              "id": {"type": "string"},
              "task": {"type": "string"},
              "priority": {"type": "string"},
              "tool": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

const searchSchemaJSON = `{
  "type": "object",
  "required": ["thinking", "action", "data"],
  "properties": {
    "thinking": {"type": "string"},
    "action": {"type": "string"},
    "data": {
      "type": "object",
      "required": ["query"],
      "properties": {
        "query": {"type": "string", "minLength": 1},
        "tool": {"type": "string"},
        "reformulation_strategy": {"type": "string"},
        "targets_gap": {"type": "string"}
      }
    }
  }
}`

const evaluateSchemaJSON = `{
  "type": "object",
  "required": ["thinking", "action", "data"],
  "properties": {
    "thinking": {"type": "string"},
    "action": {"type": "string"},
    "data": {
      "type": "object",
      "required": ["confidence", "threshold_met"],
      "properties": {
        "confidence": {"type": "number", "minimum": 0, "maximum": 100},
        "sources_found": {"type": "integer"},
        "avg_reliability": {"type": "number"},
        "threshold_met": {"type": "boolean"},
        "gaps_identified": {"type": "array", "items": {"type": "string"}},
        "reformulation_hint": {"type": "string"},
        "reformulation_strategy": {"type": "string"},
        "scores": {
          "type": "object",
          "properties": {
            "coverage": {"type": "number"},
            "reliability": {"type": "number"},
            "recency": {"type": "number"},
            "consistency": {"type": "number"}
          }
        }
      }
    }
  }
}`

const synthesizeSchemaJSON = `{
  "type": "object",
  "required": ["thinking", "action", "data"],
  "properties": {
    "thinking": {"type": "string"},
    "action": {"type": "string"},
    "data": {
      "type": "object",
      "required": ["answer", "final_confidence"],
      "properties": {
        "answer": {"type": "string", "minLength": 1},
        "final_confidence": {"type": "number", "minimum": 0, "maximum": 100},
        "caveats": {"type": "array", "items": {"type": "string"}},
        "contradictions": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["claim_a", "claim_b"],
            "properties": {
              "claim_a": {"type": "string"},
              "claim_b": {"type": "string"},
              "resolution": {"type": "string"},
              "weighted_claim": {"type": "string"}
            }
          }
        },
        "sources_used": {"type": "integer"}
      }
    }
  }
}`

var (
	planSchema       = mustSchema("nexus://schema/plan.json", planSchemaJSON)
	searchSchema     = mustSchema("nexus://schema/search.json", searchSchemaJSON)
	evaluateSchema   = mustSchema("nexus://schema/evaluate.json", evaluateSchemaJSON)
	synthesizeSchema = mustSchema("nexus://schema/synthesize.json", synthesizeSchemaJSON)
)
