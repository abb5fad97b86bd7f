package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartscrape/smartscrape/controllers"
	"smartscrape/smartscrape/services/pipeline"
	"smartscrape/smartscrape/utils/logging"
	"smartscrape/smartscrape/utils/types"
)

func TestMain(m *testing.M) {
	logging.InitTestLogger()
	os.Exit(m.Run())
}

type fakePipeline struct {
	res     *types.ExtractedResult
	err     error
	status  types.PipelineStatus
	cleared bool
	block   chan struct{}
}

func (f *fakePipeline) ProcessQuery(_ context.Context, query string) (*types.ExtractedResult, error) {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func (f *fakePipeline) Status(context.Context) types.PipelineStatus {
	return f.status
}

func (f *fakePipeline) ClearCache() {
	f.cleared = true
}

func sampleResult() *types.ExtractedResult {
	return &types.ExtractedResult{
		Success:      true,
		Source:       types.SourceDirectScraping,
		URL:          "https://www.amazon.in/s?k=laptop",
		Strategy:     types.StrategyEcommerceSearch,
		TotalResults: 1,
		ExtractedData: []types.RawItem{
			{Title: "Acer Aspire 5", Price: "52,990", Link: "https://www.amazon.in/x", Description: "laptop", Rating: "4.2"},
		},
		Timestamp: time.Now().UnixMilli(),
	}
}

func newAPIServer(fp *fakePipeline) *httptest.Server {
	r := chi.NewRouter()
	r.Mount("/api", ScrapeRoutes(controllers.NewQueryController(fp)))
	return httptest.NewServer(r)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func TestPostQuery(t *testing.T) {
	srv := newAPIServer(&fakePipeline{res: sampleResult()})
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/query", types.QueryRequest{Query: "gaming laptop"})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out types.QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	require.NotNil(t, out.Data)
	assert.Equal(t, types.SourceDirectScraping, out.Data.Source)
	assert.Equal(t, 1, out.Data.TotalResults)
}

func TestPostQueryErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"empty query", pipeline.ErrEmptyQuery, http.StatusBadRequest},
		{"rate limited", &pipeline.RateLimitError{RetryAfter: time.Second}, http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newAPIServer(&fakePipeline{err: tc.err})
			defer srv.Close()

			resp := postJSON(t, srv.URL+"/api/query", types.QueryRequest{Query: "q"})
			defer resp.Body.Close()

			assert.Equal(t, tc.want, resp.StatusCode)

			var out types.QueryResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.False(t, out.Success)
			assert.NotEmpty(t, out.Error)
		})
	}
}

func TestPostQueryMalformedBody(t *testing.T) {
	srv := newAPIServer(&fakePipeline{res: sampleResult()})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/query", "application/json", bytes.NewReader([]byte(`{"query":`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetStatus(t *testing.T) {
	srv := newAPIServer(&fakePipeline{status: types.PipelineStatus{
		ActiveRequests: 1,
		CacheSize:      3,
		GemmaConnected: true,
		Model:          "gemma3:4b",
		UptimeSeconds:  42,
	}})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out types.StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	assert.Equal(t, 3, out.Status.CacheSize)
	assert.True(t, out.Status.GemmaConnected)
	assert.Equal(t, int64(42), out.Status.UptimeSeconds)
}

func TestPostCacheClear(t *testing.T) {
	fp := &fakePipeline{}
	srv := newAPIServer(fp)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/cache/clear", struct{}{})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out types.ClearCacheResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	assert.Equal(t, "Cache cleared", out.Message)
	assert.True(t, fp.cleared)
}
