package claude

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexus-research/nexus"
)

// generationParameters represents the parameters for text generation.
type generationParameters struct {
	// Temperature controls randomness in the output.
	Temperature float64

	// MaxTokens limits the number of tokens to generate.
	MaxTokens int64
}

// Client is a client for the Claude API.
// It provides methods to interact with Anthropic's Claude models.
type Client struct {
	// client is the underlying Claude client.
	client *anthropic.Client

	// model is the model to use for chat completions.
	// It can be overridden using WithModel option.
	model string

	// generation parameters
	params generationParameters
}

var _ nexus.LLMClient = (*Client)(nil)

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model to use for chat completions.
// Default: anthropic.ModelClaude3_5SonnetLatest
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.model = modelName
	}
}

// WithTemperature sets the temperature parameter for text generation.
// Range: 0.0 to 1.0. Default: 0.2
func WithTemperature(temp float64) Option {
	return func(c *Client) {
		c.params.Temperature = temp
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
// Default: 4096
func WithMaxTokens(maxTokens int64) Option {
	return func(c *Client) {
		c.params.MaxTokens = maxTokens
	}
}

// New creates a new client for the Claude API.
// It requires an API key and can be configured with additional options.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("api key is required")
	}

	client := &Client{
		model: anthropic.ModelClaude3_5SonnetLatest,
		params: generationParameters{
			Temperature: 0.2,
			MaxTokens:   4096,
		},
	}

	for _, option := range options {
		option(client)
	}

	newClient := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	client.client = &newClient

	return client, nil
}

// Invoke sends one system/user prompt pair and returns the response text.
func (c *Client) Invoke(ctx context.Context, systemPrompt, userPrompt string) (*nexus.ModelResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.params.MaxTokens,
		Temperature: anthropic.Float(c.params.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create message",
			goerr.V("model", c.model),
			goerr.Tag(nexus.ErrTagExternalCall))
	}

	var texts []string
	for _, content := range resp.Content {
		textBlock := content.AsResponseTextBlock()
		if textBlock.Type == "text" {
			texts = append(texts, textBlock.Text)
		}
	}

	return &nexus.ModelResponse{
		Text:        strings.Join(texts, "\n"),
		TotalTokens: int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}, nil
}
