package nexus

import (
	"context"
)

// LLMClient is the capability handle for model inference consumed by every
// stage: one system prompt and one user prompt in, free-form text out. Stages
// are responsible for recovering structure from Text via ExtractJSON.
//
// Implementations live under llm/ (openai, claude, gemini). A client bound to
// an Agent or a run is captured at stage start; swapping clients affects only
// stages that have not yet begun.
type LLMClient interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string) (*ModelResponse, error)
}

// ModelResponse is the raw outcome of one model call.
type ModelResponse struct {
	// Text is the full response text from the model.
	Text string

	// TotalTokens is the token usage reported by the provider, or a local
	// estimate when the provider omits usage. Zero when unknown.
	TotalTokens int
}
