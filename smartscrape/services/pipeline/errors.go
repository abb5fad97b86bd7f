// smartscrape/services/pipeline/errors.go
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"smartscrape/smartscrape/services/browser"
)

// ErrEmptyQuery is returned when a request carries no query text.
var ErrEmptyQuery = errors.New("query must not be empty")

// RateLimitError rejects a query inside the cooldown window. RetryAfter
// is how long the caller has to wait; hammering resets the window.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry in %s", e.RetryAfter.Round(time.Millisecond))
}

// outcomeLabel buckets a pipeline error for the queries counter.
func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, ErrEmptyQuery) {
		return "empty_query"
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return "rate_limited"
	}
	var se *browser.ScrapeError
	if errors.As(err, &se) {
		return "scrape_failed"
	}
	return "error"
}
