package nexus

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// extractDiagnosticLimit bounds how much raw model output is attached to a
// MalformedOutput error.
const extractDiagnosticLimit = 200

var greedyObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON recovers a JSON object from free-form model output. Model text
// is not guaranteed to be well-formed or fence-free, so recovery is layered,
// first success wins:
//
//  1. strip a single surrounding markdown code fence
//  2. parse the whole text directly
//  3. scan from the first opening brace, tracking nesting depth and skipping
//     braces inside quoted strings, to the brace that balances it
//  4. if nesting never balances, greedily match the outermost brace pair
//
// When everything fails the error is tagged ErrTagMalformedOutput and carries
// the first 200 characters of the input.
func ExtractJSON(raw string) (json.RawMessage, error) {
	text := stripCodeFence(strings.TrimSpace(raw))

	if trimmed := strings.TrimSpace(text); strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, goerr.New("no JSON object found in model response",
			goerr.V("head", diagnosticHead(raw)),
			goerr.Tag(ErrTagMalformedOutput))
	}

	depth := 0
	inString := false
	escaped := false
scan:
	for i := start; i < len(text); i++ {
		switch c := text[i]; {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				span := text[start : i+1]
				if json.Valid([]byte(span)) {
					return json.RawMessage(span), nil
				}
				break scan
			}
		}
	}

	// Balanced scan failed or never closed; try the greedy outermost match.
	if m := greedyObjectPattern.FindString(text); m != "" && json.Valid([]byte(m)) {
		return json.RawMessage(m), nil
	}

	return nil, goerr.New("unbalanced JSON in model response",
		goerr.V("head", diagnosticHead(raw)),
		goerr.Tag(ErrTagMalformedOutput))
}

// stripCodeFence removes one leading/trailing markdown code fence, including a
// language tag on the opening fence.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[idx+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimRight(text, " \t\n")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimRight(text, " \t\n")
}

func diagnosticHead(s string) string {
	if len(s) > extractDiagnosticLimit {
		return s[:extractDiagnosticLimit]
	}
	return s
}

// modelEnvelope is the common {thinking, action, data} wrapper every stage
// prompt requests from the model.
type modelEnvelope struct {
	Thinking string          `json:"thinking"`
	Action   string          `json:"action"`
	Data     json.RawMessage `json:"data"`
}

// extractEnvelope recovers the stage envelope from raw model output and
// validates it against the stage's JSON schema before unmarshaling.
func extractEnvelope(raw string, schema *jsonschema.Schema) (*modelEnvelope, error) {
	obj, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	if schema != nil {
		inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(obj))
		if err != nil {
			return nil, goerr.Wrap(err, "extracted object is not decodable",
				goerr.V("head", diagnosticHead(raw)),
				goerr.Tag(ErrTagMalformedOutput))
		}
		if err := schema.Validate(inst); err != nil {
			return nil, goerr.Wrap(err, "model payload failed schema validation",
				goerr.V("head", diagnosticHead(raw)),
				goerr.Tag(ErrTagMalformedOutput))
		}
	}

	var env modelEnvelope
	if err := json.Unmarshal(obj, &env); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal model envelope",
			goerr.V("head", diagnosticHead(raw)),
			goerr.Tag(ErrTagMalformedOutput))
	}
	return &env, nil
}

// mustSchema compiles an embedded stage schema at init time.
func mustSchema(name, text string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(err)
	}
	schema, err := c.Compile(name)
	if err != nil {
		panic(err)
	}
	return schema
}
