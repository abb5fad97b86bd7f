// smartscrape/services/extractor/extractor.go
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"go.uber.org/zap"

	"smartscrape/smartscrape/services/browser"
	"smartscrape/smartscrape/utils/jsonutils"
	"smartscrape/smartscrape/utils/logging"
	"smartscrape/smartscrape/utils/types"
)

// promptHTMLChars caps the markup slice embedded in the extraction prompt.
const promptHTMLChars = 10_000

// extractionPromptTmpl asks the model to restructure page content into the
// item shape. It may only restructure what is on the page, never invent.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`You are the data restructuring stage of a web scraping assistant. The page below was scraped for the user's query but the CSS selectors found nothing usable. Read the page content and pull out the relevant items yourself.

Rules:
- Only restructure what is actually in the page content. Never invent titles, prices, links, descriptions or ratings.
- Use "Not found" for any field the content does not contain.
- At most {{.MaxItems}} items.

Respond with exactly one JSON object and nothing else:
{"items": [{"title": "...", "price": "...", "link": "...", "description": "...", "rating": "..."}]}

User query: {{.Query}}
Page URL: {{.URL}}

Page content (truncated):
{{.HTML}}
`))

// Generator is the slice of the LLM client the extractor needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DegradeCounter receives a tick whenever a stage silently degrades.
type DegradeCounter interface {
	IncDegraded(stage string)
}

// Extractor turns a raw scrape into the final result unit. When the
// selector walk already produced items it passes them through untouched;
// otherwise it asks the model to restructure the captured markup. Both
// paths degrade instead of failing: Extract always returns a result.
type Extractor struct {
	llm      Generator
	metrics  DegradeCounter
	maxItems int
}

func New(llm Generator, metrics DegradeCounter, maxItems int) *Extractor {
	if maxItems <= 0 {
		maxItems = 20
	}
	return &Extractor{llm: llm, metrics: metrics, maxItems: maxItems}
}

// Extract produces the final ExtractedResult for a scrape. It never
// returns an error; failures degrade to a stamped fallback result with
// Success=false and the reason in Error.
func (e *Extractor) Extract(ctx context.Context, query string, scraped *types.ScrapingResult) *types.ExtractedResult {
	defer logging.LogDuration(ctx, "extract_data")()

	if scraped == nil {
		return e.degraded(&types.ScrapingResult{}, "no scrape result to extract from")
	}

	if len(scraped.Data) > 0 {
		return &types.ExtractedResult{
			Success:       true,
			Source:        types.SourceDirectScraping,
			URL:           scraped.URL,
			Strategy:      scraped.Strategy,
			ExtractedData: scraped.Data,
			TotalResults:  len(scraped.Data),
			Timestamp:     time.Now().UnixMilli(),
		}
	}

	items, err := e.restructure(ctx, query, scraped)
	if err != nil {
		logging.AppLogger.Info("extraction degraded to fallback",
			zap.String("url", scraped.URL),
			zap.Error(err),
		)
		if e.metrics != nil {
			e.metrics.IncDegraded("extraction")
		}
		reason := err.Error()
		if scraped.Error != "" {
			reason = scraped.Error + "; " + reason
		}
		return e.degraded(scraped, reason)
	}

	return &types.ExtractedResult{
		Success:       true,
		Source:        types.SourceGemmaExtraction,
		URL:           scraped.URL,
		Strategy:      scraped.Strategy,
		ExtractedData: items,
		TotalResults:  len(items),
		Timestamp:     time.Now().UnixMilli(),
	}
}

// restructure runs the model over the captured markup and parses the item
// list out of its response.
func (e *Extractor) restructure(ctx context.Context, query string, scraped *types.ScrapingResult) ([]types.RawItem, error) {
	if e.llm == nil {
		return nil, fmt.Errorf("no model configured")
	}
	if scraped.HTML == "" {
		return nil, fmt.Errorf("no page content captured")
	}

	var prompt bytes.Buffer
	err := extractionPromptTmpl.Execute(&prompt, struct {
		Query    string
		URL      string
		HTML     string
		MaxItems int
	}{
		Query:    query,
		URL:      scraped.URL,
		HTML:     browser.TruncateHTML(scraped.HTML, promptHTMLChars),
		MaxItems: e.maxItems,
	})
	if err != nil {
		return nil, fmt.Errorf("render extraction prompt: %w", err)
	}

	raw, err := e.llm.Generate(ctx, prompt.String())
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}

	extracted := jsonutils.ExtractJSON(raw)
	if extracted == "" {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var parsed struct {
		Items []types.RawItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(extracted), &parsed); err != nil {
		return nil, fmt.Errorf("parse extraction: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, fmt.Errorf("model returned no items")
	}

	if len(parsed.Items) > e.maxItems {
		parsed.Items = parsed.Items[:e.maxItems]
	}
	for i := range parsed.Items {
		fillSentinels(&parsed.Items[i])
	}
	return parsed.Items, nil
}

// fillSentinels normalizes blank fields to the NotFound sentinel so model
// output carries the same guarantees as the selector walk.
func fillSentinels(it *types.RawItem) {
	if it.Title == "" {
		it.Title = types.NotFound
	}
	if it.Price == "" {
		it.Price = types.NotFound
	}
	if it.Link == "" {
		it.Link = types.NotFound
	}
	if it.Description == "" {
		it.Description = types.NotFound
	}
	if it.Rating == "" {
		it.Rating = types.NotFound
	}
}

// degraded stamps a failed extraction. Success is false and the caller
// decides whether the result is still worth returning or caching.
func (e *Extractor) degraded(scraped *types.ScrapingResult, reason string) *types.ExtractedResult {
	return &types.ExtractedResult{
		Success:       false,
		Source:        types.SourceFallback,
		URL:           scraped.URL,
		Strategy:      scraped.Strategy,
		ExtractedData: []types.RawItem{},
		TotalResults:  0,
		Timestamp:     time.Now().UnixMilli(),
		Error:         reason,
	}
}
