package browser

import "fmt"

// ScrapeError wraps a tab-level failure: the tab could not be opened,
// navigated, or read. Selector-level failures never produce it; they
// degrade inside the ScrapingResult instead.
type ScrapeError struct {
	URL string
	Err error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s: %v", e.URL, e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}
