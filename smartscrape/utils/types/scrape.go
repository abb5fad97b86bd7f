// smartscrape/utils/types/scrape.go
package types

import "encoding/json"

// Website identifies the site family an analysis resolved to.
type Website string

const (
	WebsiteAmazon        Website = "amazon"
	WebsiteGoogleFlights Website = "google_flights"
	WebsiteGoogle        Website = "google"
	WebsiteZomato        Website = "zomato"
)

// Strategy names the scraping approach tied to a website family.
type Strategy string

const (
	StrategyEcommerceSearch  Strategy = "ecommerce_search"
	StrategyFlightSearch     Strategy = "flight_search"
	StrategyTrackingInfo     Strategy = "tracking_info"
	StrategyRestaurantSearch Strategy = "restaurant_search"
	StrategyWebSearch        Strategy = "web_search"
)

// Source tags how an ExtractedResult was produced.
type Source string

const (
	SourceDirectScraping  Source = "direct_scraping"
	SourceGemmaExtraction Source = "gemma_extraction"
	SourceFallback        Source = "fallback"
)

// NotFound is the sentinel for a field the selectors could not resolve.
// Item fields carry it instead of failing the whole extraction.
const NotFound = "Not found"

// Selectors is the CSS selector pair an analysis picked for a page:
// primary walks result containers, secondary resolves the price field.
type Selectors struct {
	Primary   string `json:"primary" yaml:"primary"`
	Secondary string `json:"secondary" yaml:"secondary"`
}

// AnalysisResult is the analyzer's decision for a query: which site to load
// and what to select once there. Immutable once produced.
type AnalysisResult struct {
	Website          Website   `json:"website"`
	URL              string    `json:"url"`
	ScrapingStrategy Strategy  `json:"scraping_strategy"`
	Selectors        Selectors `json:"selectors"`
}

// RawItem is one element pulled out of the page by the selector walk.
// Every field may independently be the NotFound sentinel.
type RawItem struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Rating      string `json:"rating"`
}

// ScrapingResult is the raw outcome of one tab scrape. HTML is the page
// markup truncated tag-safe; Error carries an in-page extraction failure
// without failing the scrape itself.
type ScrapingResult struct {
	URL      string    `json:"url"`
	Strategy Strategy  `json:"strategy"`
	HTML     string    `json:"html"`
	Data     []RawItem `json:"data"`
	Error    string    `json:"error,omitempty"`
}

// ExtractedResult is the final, cacheable unit returned to callers.
// Timestamp is ms since epoch, matching what the extension UI consumes.
type ExtractedResult struct {
	Success       bool      `json:"success"`
	Source        Source    `json:"source"`
	URL           string    `json:"url"`
	Strategy      Strategy  `json:"strategy"`
	ExtractedData []RawItem `json:"extracted_data"`
	TotalResults  int       `json:"total_results"`
	Timestamp     int64     `json:"timestamp"`
	Error         string    `json:"error,omitempty"`
}

// PipelineStatus is the orchestrator's live status snapshot.
type PipelineStatus struct {
	ActiveRequests int    `json:"activeRequests"`
	CacheSize      int    `json:"cacheSize"`
	GemmaConnected bool   `json:"gemmaConnected"`
	Model          string `json:"model"`
	UptimeSeconds  int64  `json:"uptimeSeconds"`
}

// --- RPC envelopes ---

// RPC actions understood by both the websocket channel and the REST routes.
const (
	ActionScrapeQuery = "scrapeQuery"
	ActionGetStatus   = "getStatus"
	ActionClearCache  = "clearCache"
)

type QueryRequest struct {
	Query string `json:"query"`
}

type QueryResponse struct {
	Success bool             `json:"success"`
	Data    *ExtractedResult `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type StatusResponse struct {
	Success bool           `json:"success"`
	Status  PipelineStatus `json:"status"`
}

type ClearCacheResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Message is one request frame on the websocket channel.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Reply is one response frame on the websocket channel; exactly one of
// Data/Status/Message is populated depending on the action.
type Reply struct {
	ID      string           `json:"id,omitempty"`
	Success bool             `json:"success"`
	Data    *ExtractedResult `json:"data,omitempty"`
	Status  *PipelineStatus  `json:"status,omitempty"`
	Message string           `json:"message,omitempty"`
	Error   string           `json:"error,omitempty"`
}
