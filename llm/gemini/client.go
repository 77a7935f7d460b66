package gemini

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexus-research/nexus"
	genai "google.golang.org/genai"
)

// DefaultModel is the model used for content generation unless overridden.
const DefaultModel = "gemini-2.0-flash"

// Client is a client for the Gemini API.
// It provides methods to interact with Google's Gemini models.
type Client struct {
	// client is the underlying Gemini client.
	client *genai.Client

	// model is the model to use for content generation.
	// It can be overridden using WithModel option.
	model string

	// temperature controls randomness in the output.
	temperature float32
}

var _ nexus.LLMClient = (*Client)(nil)

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model to use for content generation.
// See default model in [DefaultModel].
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.model = modelName
	}
}

// WithTemperature sets the temperature parameter for content generation.
// Range: 0.0 to 2.0. Default: 0.2
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.temperature = temp
	}
}

// New creates a new client for the Gemini API.
// It requires an API key and can be configured with additional options.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("api key is required")
	}

	client := &Client{
		model:       DefaultModel,
		temperature: 0.2,
	}

	for _, option := range options {
		option(client)
	}

	newClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}
	client.client = newClient

	return client, nil
}

// Invoke sends one system/user prompt pair and returns the response text.
func (c *Client) Invoke(ctx context.Context, systemPrompt, userPrompt string) (*nexus.ModelResponse, error) {
	temp := c.temperature
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Role: "system",
			Parts: []*genai.Part{
				{Text: systemPrompt},
			},
		}
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: userPrompt},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content",
			goerr.V("model", c.model),
			goerr.Tag(nexus.ErrTagExternalCall))
	}

	var texts []string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
	}
	if len(texts) == 0 {
		return nil, goerr.New("model returned no text content",
			goerr.V("model", c.model),
			goerr.Tag(nexus.ErrTagExternalCall))
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &nexus.ModelResponse{
		Text:        strings.Join(texts, "\n"),
		TotalTokens: tokens,
	}, nil
}
