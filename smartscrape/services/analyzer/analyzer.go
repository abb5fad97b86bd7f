// smartscrape/services/analyzer/analyzer.go
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"text/template"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"

	"smartscrape/smartscrape/utils/jsonutils"
	"smartscrape/smartscrape/utils/logging"
	"smartscrape/smartscrape/utils/types"
)

// analysisPromptTmpl asks the model to pick a target, never to invent data.
// The response contract is a single JSON object in the AnalysisResult shape.
var analysisPromptTmpl = template.Must(template.New("analysis").Parse(`You are the target analyst of a web scraping assistant. Given a user query, decide which live website to scrape and which CSS selectors to use there.

Rules:
- You only decide WHERE to look. Never invent titles, prices, ratings or any other data values.
- "url" must be a complete, fetchable https address with the query already encoded into it.
- "selectors.primary" must match the repeated result containers on that page; "selectors.secondary" must match the price-like field inside a container.
- "scraping_strategy" is one of: ecommerce_search, flight_search, tracking_info, restaurant_search, web_search.

Respond with exactly one JSON object and nothing else:
{"website": "...", "url": "...", "scraping_strategy": "...", "selectors": {"primary": "...", "secondary": "..."}}

User query: {{.Query}}
`))

// Generator is the slice of the LLM client the analyzer needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DegradeCounter receives a tick whenever a stage silently degrades.
type DegradeCounter interface {
	IncDegraded(stage string)
}

// Analyzer resolves a query to a scraping target. The model path is
// best-effort; every failure falls through to the deterministic table, so
// Analyze never fails outward.
type Analyzer struct {
	llm      Generator
	fallback *Fallback
	metrics  DegradeCounter
}

func New(llm Generator, fallback *Fallback, metrics DegradeCounter) *Analyzer {
	if fallback == nil {
		fallback = NewFallback(nil)
	}
	return &Analyzer{llm: llm, fallback: fallback, metrics: metrics}
}

// Analyze resolves the target website, URL, strategy and selectors for a
// query. AI failures are logged and recovered, never surfaced.
func (a *Analyzer) Analyze(ctx context.Context, query string) types.AnalysisResult {
	defer logging.LogDuration(ctx, "analyze_query")()

	res, err := a.analyzeWithModel(ctx, query)
	if err != nil {
		logging.AppLogger.Info("analysis degraded to fallback",
			zap.String("query", query),
			zap.Error(err),
		)
		if a.metrics != nil {
			a.metrics.IncDegraded("analysis")
		}
		return a.fallback.Analyze(query)
	}
	return res
}

func (a *Analyzer) analyzeWithModel(ctx context.Context, query string) (types.AnalysisResult, error) {
	var zero types.AnalysisResult
	if a.llm == nil {
		return zero, fmt.Errorf("no model configured")
	}

	var prompt bytes.Buffer
	if err := analysisPromptTmpl.Execute(&prompt, struct{ Query string }{Query: query}); err != nil {
		return zero, fmt.Errorf("render analysis prompt: %w", err)
	}

	raw, err := a.llm.Generate(ctx, prompt.String())
	if err != nil {
		return zero, fmt.Errorf("model call: %w", err)
	}

	extracted := jsonutils.ExtractJSON(raw)
	if extracted == "" {
		return zero, fmt.Errorf("no JSON object in model response")
	}

	var res types.AnalysisResult
	if err := json.Unmarshal([]byte(extracted), &res); err != nil {
		return zero, fmt.Errorf("parse analysis: %w", err)
	}
	if err := validateAnalysis(res); err != nil {
		return zero, fmt.Errorf("invalid analysis: %w", err)
	}
	return res, nil
}

// validateAnalysis enforces the AnalysisResult invariants: a fetchable
// absolute http(s) URL and a compilable primary selector.
func validateAnalysis(res types.AnalysisResult) error {
	if res.Website == "" || res.ScrapingStrategy == "" {
		return fmt.Errorf("website and scraping_strategy are required")
	}
	u, err := url.Parse(res.URL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be absolute http(s): %q", res.URL)
	}
	if res.Selectors.Primary == "" {
		return fmt.Errorf("primary selector is required")
	}
	if _, err := cascadia.Parse(res.Selectors.Primary); err != nil {
		return fmt.Errorf("primary selector: %w", err)
	}
	return nil
}
