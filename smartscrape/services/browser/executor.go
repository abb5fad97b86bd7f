package browser

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"smartscrape/smartscrape/utils/logging"
	"smartscrape/smartscrape/utils/types"
)

// page is the slice of playwright.Page the executor drives. Keeping it
// narrow lets tests substitute a fake tab.
type page interface {
	Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error)
	WaitForTimeout(timeout float64)
	Content() (string, error)
	Close(options ...playwright.PageCloseOptions) error
}

// Executor runs the scrape stage of the pipeline: open one tab, load the
// analyzed URL, wait for dynamic content to settle, capture the DOM and
// pull items out with the analysis selectors. The tab is closed on every
// path, including failures.
type Executor struct {
	open       func() (page, error)
	settle     time.Duration
	navTimeout time.Duration
	maxItems   int
}

// NewExecutor builds an Executor that opens tabs in the given browser.
func NewExecutor(b *Browser, settle, navTimeout time.Duration, maxItems int) *Executor {
	return &Executor{
		open: func() (page, error) {
			return b.NewPage()
		},
		settle:     settle,
		navTimeout: navTimeout,
		maxItems:   maxItems,
	}
}

// Scrape loads analysis.URL in a fresh tab and returns the captured page
// plus whatever the selectors matched. Selector failures are soft: they
// come back inside the result with empty data. Tab failures (open,
// navigate, read) return a *ScrapeError and no result.
func (e *Executor) Scrape(ctx context.Context, analysis *types.AnalysisResult) (*types.ScrapingResult, error) {
	defer logging.LogDuration(ctx, "Executor.Scrape")()

	if err := ctx.Err(); err != nil {
		return nil, &ScrapeError{URL: analysis.URL, Err: err}
	}

	p, err := e.open()
	if err != nil {
		return nil, &ScrapeError{URL: analysis.URL, Err: err}
	}
	defer p.Close()

	if _, err := p.Goto(analysis.URL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(e.navTimeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		logging.ErrorLogger.Error("navigation failed",
			zap.String("url", analysis.URL), zap.Error(err))
		return nil, &ScrapeError{URL: analysis.URL, Err: err}
	}

	// Let client-side rendering finish before reading the DOM.
	if e.settle > 0 {
		p.WaitForTimeout(float64(e.settle.Milliseconds()))
	}

	content, err := p.Content()
	if err != nil {
		return nil, &ScrapeError{URL: analysis.URL, Err: err}
	}

	result := &types.ScrapingResult{
		URL:      analysis.URL,
		Strategy: analysis.ScrapingStrategy,
		HTML:     TruncateHTML(content, maxHTMLChars),
		Data:     []types.RawItem{},
	}

	items, err := ExtractItems(content, analysis.Selectors, analysis.URL, e.maxItems)
	if err != nil {
		logging.AppLogger.Warn("selector extraction failed",
			zap.String("url", analysis.URL), zap.Error(err))
		result.Error = err.Error()
		return result, nil
	}
	result.Data = items

	logging.AppLogger.Info("scraped page",
		zap.String("url", analysis.URL),
		zap.String("strategy", string(analysis.ScrapingStrategy)),
		zap.Int("items", len(items)))
	return result, nil
}
