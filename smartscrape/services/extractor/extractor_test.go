package extractor

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartscrape/smartscrape/utils/logging"
	"smartscrape/smartscrape/utils/types"
)

func TestMain(m *testing.M) {
	logging.InitTestLogger()
	os.Exit(m.Run())
}

type fakeGenerator struct {
	resp    string
	err     error
	calls   int
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.resp, nil
}

type fakeCounter struct {
	stages []string
}

func (f *fakeCounter) IncDegraded(stage string) {
	f.stages = append(f.stages, stage)
}

func scrapedWithItems() *types.ScrapingResult {
	return &types.ScrapingResult{
		URL:      "https://www.amazon.in/s?k=laptop",
		Strategy: types.StrategyEcommerceSearch,
		HTML:     "<html><body>markup</body></html>",
		Data: []types.RawItem{
			{Title: "Acer Aspire 5", Price: "52,990", Link: "https://www.amazon.in/x", Description: "laptop", Rating: "4.2"},
		},
	}
}

func scrapedWithoutItems() *types.ScrapingResult {
	return &types.ScrapingResult{
		URL:      "https://www.amazon.in/s?k=laptop",
		Strategy: types.StrategyEcommerceSearch,
		HTML:     "<html><body><div>Acer Aspire 5 at 52,990</div></body></html>",
		Data:     []types.RawItem{},
		Error:    "primary selector matched nothing",
	}
}

func TestExtractDirectPathSkipsModel(t *testing.T) {
	gen := &fakeGenerator{resp: `{"items":[{"title":"should not be used"}]}`}
	e := New(gen, nil, 20)

	res := e.Extract(context.Background(), "gaming laptop", scrapedWithItems())
	require.NotNil(t, res)

	assert.True(t, res.Success)
	assert.Equal(t, types.SourceDirectScraping, res.Source)
	assert.Equal(t, 1, res.TotalResults)
	assert.Equal(t, "Acer Aspire 5", res.ExtractedData[0].Title)
	assert.NotZero(t, res.Timestamp)
	assert.Zero(t, gen.calls, "direct path must not call the model")
}

func TestExtractModelPath(t *testing.T) {
	gen := &fakeGenerator{resp: "Here you go:\n```json\n{\"items\":[{\"title\":\"Acer Aspire 5\",\"price\":\"52,990\"}]}\n```"}
	e := New(gen, nil, 20)

	res := e.Extract(context.Background(), "gaming laptop", scrapedWithoutItems())
	require.NotNil(t, res)

	assert.True(t, res.Success)
	assert.Equal(t, types.SourceGemmaExtraction, res.Source)
	require.Equal(t, 1, res.TotalResults)
	assert.Equal(t, "Acer Aspire 5", res.ExtractedData[0].Title)
	assert.Equal(t, "52,990", res.ExtractedData[0].Price)
	assert.Equal(t, types.NotFound, res.ExtractedData[0].Link)
	assert.Equal(t, types.NotFound, res.ExtractedData[0].Rating)
	assert.Equal(t, 1, gen.calls)
}

func TestExtractPromptCarriesQueryAndMarkup(t *testing.T) {
	gen := &fakeGenerator{resp: `{"items":[{"title":"x"}]}`}
	e := New(gen, nil, 20)

	e.Extract(context.Background(), "gaming laptop under 80000", scrapedWithoutItems())
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "gaming laptop under 80000")
	assert.Contains(t, gen.prompts[0], "Acer Aspire 5 at 52,990")
	assert.Contains(t, gen.prompts[0], "https://www.amazon.in/s?k=laptop")
}

func TestExtractCapsModelItems(t *testing.T) {
	gen := &fakeGenerator{resp: `{"items":[{"title":"a"},{"title":"b"},{"title":"c"},{"title":"d"}]}`}
	e := New(gen, nil, 2)

	res := e.Extract(context.Background(), "q", scrapedWithoutItems())
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.TotalResults)
	assert.Len(t, res.ExtractedData, 2)
}

func TestExtractDegradesOnModelFailure(t *testing.T) {
	for name, gen := range map[string]*fakeGenerator{
		"model error":   {err: errors.New("connection refused")},
		"no json":       {resp: "I could not find anything."},
		"malformed":     {resp: `{"items": [}`},
		"empty items":   {resp: `{"items": []}`},
		"missing items": {resp: `{"results": [{"title":"x"}]}`},
	} {
		t.Run(name, func(t *testing.T) {
			counter := &fakeCounter{}
			e := New(gen, counter, 20)

			res := e.Extract(context.Background(), "q", scrapedWithoutItems())
			require.NotNil(t, res)

			assert.False(t, res.Success)
			assert.Equal(t, types.SourceFallback, res.Source)
			assert.NotNil(t, res.ExtractedData)
			assert.Empty(t, res.ExtractedData)
			assert.Zero(t, res.TotalResults)
			assert.NotEmpty(t, res.Error)
			assert.Equal(t, []string{"extraction"}, counter.stages)
			assert.Equal(t, "https://www.amazon.in/s?k=laptop", res.URL)
			assert.NotZero(t, res.Timestamp)
		})
	}
}

func TestExtractDegradedKeepsScrapeError(t *testing.T) {
	e := New(&fakeGenerator{resp: "nope"}, nil, 20)

	res := e.Extract(context.Background(), "q", scrapedWithoutItems())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "primary selector matched nothing")
}

func TestExtractNoModelConfigured(t *testing.T) {
	counter := &fakeCounter{}
	e := New(nil, counter, 20)

	res := e.Extract(context.Background(), "q", scrapedWithoutItems())
	assert.False(t, res.Success)
	assert.Equal(t, types.SourceFallback, res.Source)
	assert.Contains(t, res.Error, "no model configured")
}

func TestExtractNilScrape(t *testing.T) {
	e := New(nil, nil, 20)

	res := e.Extract(context.Background(), "q", nil)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, types.SourceFallback, res.Source)
	assert.Contains(t, res.Error, "no scrape result")
}

func TestExtractEmptyHTMLDegradesWithoutModelCall(t *testing.T) {
	gen := &fakeGenerator{resp: `{"items":[{"title":"x"}]}`}
	e := New(gen, nil, 20)

	scraped := scrapedWithoutItems()
	scraped.HTML = ""

	res := e.Extract(context.Background(), "q", scraped)
	assert.False(t, res.Success)
	assert.Zero(t, gen.calls)
	assert.Contains(t, res.Error, "no page content captured")
}
