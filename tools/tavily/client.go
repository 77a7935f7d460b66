package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexus-research/nexus"
)

// DefaultBaseURL is the Tavily search API endpoint.
const DefaultBaseURL = "https://api.tavily.com"

// Client is a thin HTTP client for the Tavily search API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom API endpoint, e.g. a proxy or a test server.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// New creates a new Tavily API client.
// It requires an API key and can be configured with additional options.
func New(apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("api key is required")
	}

	client := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, option := range options {
		option(client)
	}
	return client, nil
}

// searchRequest is the Tavily /search request body.
type searchRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth,omitempty"`
	Topic             string `json:"topic,omitempty"`
	Days              int    `json:"days,omitempty"`
	MaxResults        int    `json:"max_results,omitempty"`
	IncludeAnswer     bool   `json:"include_answer,omitempty"`
	IncludeRawContent bool   `json:"include_raw_content,omitempty"`
}

// searchResponse is the Tavily /search response body, reduced to the fields
// the tools consume.
type searchResponse struct {
	Results []struct {
		URL           string  `json:"url"`
		Title         string  `json:"title"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

func (c *Client) search(ctx context.Context, req searchRequest) (*searchResponse, error) {
	req.APIKey = c.apiKey

	body, err := json.Marshal(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal search request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build search request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, goerr.Wrap(err, "search request failed",
			goerr.V("query", req.Query),
			goerr.Tag(nexus.ErrTagExternalCall))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		return nil, goerr.New("search API returned non-OK status",
			goerr.V("status", httpResp.StatusCode),
			goerr.V("body", string(data)),
			goerr.Tag(nexus.ErrTagExternalCall))
	}

	var resp searchResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, goerr.Wrap(err, "failed to decode search response",
			goerr.Tag(nexus.ErrTagExternalCall))
	}
	return &resp, nil
}
