package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartscrape/smartscrape/utils/logging"
)

func newTestClient(t *testing.T) *OllamaClient {
	t.Helper()
	logging.InitTestLogger()
	c := NewOllamaClient("http://localhost:11434", "gemma3:4b", 5*time.Second)
	httpmock.ActivateNonDefault(c.Client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestGenerateUsesResponseField(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, "http://localhost:11434/api/generate",
		func(req *http.Request) (*http.Response, error) {
			var body GenerateRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "gemma3:4b", body.Model)
			assert.False(t, body.Stream)
			assert.Equal(t, DefaultTemperature, body.Options.Temperature)
			return httpmock.NewJsonResponse(200, map[string]any{
				"response": `{"website":"amazon"}`,
				"done":     true,
			})
		})

	out, err := c.Generate(context.Background(), "analyze this")
	require.NoError(t, err)
	assert.Equal(t, `{"website":"amazon"}`, out)
}

func TestGenerateFallsBackToTextField(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, "http://localhost:11434/api/generate",
		httpmock.NewJsonResponderOrPanic(200, map[string]any{"text": "hello"}))

	out, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestGenerateBadStatus(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodPost, "http://localhost:11434/api/generate",
		httpmock.NewStringResponder(500, "boom"))

	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestPing(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, "http://localhost:11434/api/tags",
		httpmock.NewJsonResponderOrPanic(200, map[string]any{"models": []any{}}))
	assert.True(t, c.Ping(context.Background()))

	httpmock.RegisterResponder(http.MethodGet, "http://localhost:11434/api/tags",
		httpmock.NewErrorResponder(context.DeadlineExceeded))
	assert.False(t, c.Ping(context.Background()))
}
