// smartscrape/services/llm/ollama.go
package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	httputils "smartscrape/smartscrape/utils/http"
	"smartscrape/smartscrape/utils/logging"
)

const (
	DefaultTemperature = 0.1
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 1024

	probeTimeout = 3 * time.Second
)

// OllamaClient talks to a local Ollama-compatible inference endpoint.
// Client is exported so tests can swap the transport.
type OllamaClient struct {
	baseURL string
	model   string
	Client  *http.Client
}

// NewOllamaClient returns a client for the endpoint rooted at baseURL
// (e.g. http://localhost:11434). timeout bounds every generate call.
func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		Client:  &http.Client{Timeout: timeout},
	}
}

type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

type GenerateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options GenerateOptions `json:"options"`
}

// GenerateResponse accepts both response shapes the endpoint is known to
// emit: a "response" field (Ollama) or a "text" field.
type GenerateResponse struct {
	Response string `json:"response"`
	Text     string `json:"text"`
	Done     bool   `json:"done"`
}

// Generate runs a single non-streaming completion and returns the raw
// model output text.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	defer logging.LogDuration(ctx, "llm_generate")()

	req := GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: GenerateOptions{
			Temperature: DefaultTemperature,
			TopP:        DefaultTopP,
			MaxTokens:   DefaultMaxTokens,
		},
	}
	var resp GenerateResponse
	if err := httputils.PostJSON(ctx, c.Client, c.baseURL+"/api/generate", req, &resp); err != nil {
		return "", err
	}
	if resp.Response != "" {
		return resp.Response, nil
	}
	return resp.Text, nil
}

// Ping reports whether the inference endpoint answers at all. It never
// returns an error: connectivity is a status flag, not a failure.
func (c *OllamaClient) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return httputils.GetJSON(ctx, c.Client, c.baseURL+"/api/tags", nil) == nil
}

// Model returns the configured model identifier.
func (c *OllamaClient) Model() string {
	return c.model
}
