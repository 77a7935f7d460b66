package openai

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexus-research/nexus"
	"github.com/pkoukk/tiktoken-go"
	"github.com/sashabaranov/go-openai"
)

const (
	// DefaultModel is the model used for chat completions unless overridden.
	DefaultModel = "gpt-4o-mini"

	// GroqBaseURL is the OpenAI-compatible endpoint of the Groq API. Pass it
	// to WithBaseURL together with a Groq API key and model.
	GroqBaseURL = "https://api.groq.com/openai/v1"
)

// generationParameters represents the parameters for text generation.
type generationParameters struct {
	// Temperature controls randomness in the output.
	Temperature float32

	// MaxTokens limits the number of tokens to generate.
	MaxTokens int
}

// Client is a client for the OpenAI chat completion API and any
// OpenAI-compatible endpoint such as Groq.
type Client struct {
	// client is the underlying OpenAI client.
	client *openai.Client

	// model is the model to use for chat completions.
	// It can be overridden using WithModel option.
	model string

	// baseURL is the custom base URL for the API.
	// If empty, uses the default OpenAI API endpoints.
	baseURL string

	// generation parameters
	params generationParameters
}

var _ nexus.LLMClient = (*Client)(nil)

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model to use for chat completions.
// See default model in [DefaultModel].
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.model = modelName
	}
}

// WithBaseURL sets a custom base URL for the API. Allows usage with
// compatible endpoints such as Groq ([GroqBaseURL]), proxies, or self-hosted
// instances.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTemperature sets the temperature parameter for text generation.
// Range: 0.0 to 2.0. Default: 0.2
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.params.Temperature = temp
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		c.params.MaxTokens = maxTokens
	}
}

// New creates a new client for the OpenAI API.
// It requires an API key and can be configured with additional options.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("api key is required")
	}

	client := &Client{
		model: DefaultModel,
		params: generationParameters{
			Temperature: 0.2,
		},
	}

	for _, option := range options {
		option(client)
	}

	config := openai.DefaultConfig(apiKey)
	if client.baseURL != "" {
		config.BaseURL = client.baseURL
	}
	client.client = openai.NewClientWithConfig(config)

	return client, nil
}

// Invoke sends one system/user prompt pair and returns the response text.
func (c *Client) Invoke(ctx context.Context, systemPrompt, userPrompt string) (*nexus.ModelResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.params.Temperature,
		MaxTokens:   c.params.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create chat completion",
			goerr.V("model", c.model),
			goerr.Tag(nexus.ErrTagExternalCall))
	}
	if len(resp.Choices) == 0 {
		return nil, goerr.New("chat completion returned no choices",
			goerr.V("model", c.model),
			goerr.Tag(nexus.ErrTagExternalCall))
	}

	text := resp.Choices[0].Message.Content
	tokens := resp.Usage.TotalTokens
	if tokens == 0 {
		// Some compatible endpoints omit usage.
		tokens = estimateTokens(c.model, systemPrompt+userPrompt+text)
	}

	return &nexus.ModelResponse{
		Text:        text,
		TotalTokens: tokens,
	}, nil
}

// estimateTokens counts tokens locally with tiktoken, falling back to the
// cl100k_base encoding for models tiktoken does not know.
func estimateTokens(model, text string) int {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0
		}
	}
	return len(encoding.Encode(text, nil, nil))
}
