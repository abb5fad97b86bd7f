// smartscrape/services/pipeline/orchestrator.go
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"smartscrape/smartscrape/utils/logging"
	"smartscrape/smartscrape/utils/types"
)

// Analyzer resolves a query to a scraping target.
type Analyzer interface {
	Analyze(ctx context.Context, query string) types.AnalysisResult
}

// Scraper loads the analyzed target and returns the captured page.
type Scraper interface {
	Scrape(ctx context.Context, analysis *types.AnalysisResult) (*types.ScrapingResult, error)
}

// Extractor turns a raw scrape into the final result unit.
type Extractor interface {
	Extract(ctx context.Context, query string, scraped *types.ScrapingResult) *types.ExtractedResult
}

// Prober reports inference backend reachability for status snapshots.
type Prober interface {
	Ping(ctx context.Context) bool
	Model() string
}

// Options wires an Orchestrator. Cache, Limiter and Metrics may be nil;
// sensible defaults are installed.
type Options struct {
	Analyzer  Analyzer
	Scraper   Scraper
	Extractor Extractor
	Prober    Prober
	Cache     *Cache
	Limiter   *Limiter
	Metrics   *Metrics
}

// Orchestrator runs the full query pipeline: rate limit, cache, analyze,
// scrape, extract, cache. Identical concurrent queries collapse into one
// pipeline run; every run is tracked while it executes.
type Orchestrator struct {
	analyzer  Analyzer
	scraper   Scraper
	extractor Extractor
	prober    Prober
	cache     *Cache
	limiter   *Limiter
	metrics   *Metrics

	group singleflight.Group

	mu       sync.Mutex
	inflight map[string]inflightRun

	started time.Time
}

// inflightRun records one executing pipeline run for status snapshots.
type inflightRun struct {
	Query   string
	Started time.Time
}

func New(opts Options) *Orchestrator {
	if opts.Cache == nil {
		opts.Cache = NewCache(128, 15*time.Minute, true)
	}
	if opts.Limiter == nil {
		opts.Limiter = NewLimiter(2 * time.Second)
	}
	return &Orchestrator{
		analyzer:  opts.Analyzer,
		scraper:   opts.Scraper,
		extractor: opts.Extractor,
		prober:    opts.Prober,
		cache:     opts.Cache,
		limiter:   opts.Limiter,
		metrics:   opts.Metrics,
		inflight:  make(map[string]inflightRun),
		started:   time.Now(),
	}
}

// normalizeQuery produces the cache and collapse key for a query.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// ProcessQuery runs one query through the pipeline. The error is nil even
// for degraded results; only validation, rate limiting and tab-level
// scrape failures surface as errors.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query string) (*types.ExtractedResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		o.metrics.IncQuery("empty_query")
		return nil, ErrEmptyQuery
	}

	if ok, wait := o.limiter.Allow(query); !ok {
		o.metrics.IncQuery("rate_limited")
		logging.AppLogger.Warn("query rate limited",
			zap.String("query", query), zap.Duration("retry_after", wait))
		return nil, &RateLimitError{RetryAfter: wait}
	}

	key := normalizeQuery(query)
	if cached, ok := o.cache.Get(key); ok {
		o.metrics.IncCacheHit()
		o.metrics.IncQuery("cache_hit")
		logging.AppLogger.Info("cache hit", zap.String("query", query))
		return cached, nil
	}
	o.metrics.IncCacheMiss()

	v, err, _ := o.group.Do(key, func() (interface{}, error) {
		// A result may have landed while this caller was queueing.
		if cached, ok := o.cache.Get(key); ok {
			return cached, nil
		}
		return o.run(ctx, query, key)
	})
	if err != nil {
		o.metrics.IncQuery(outcomeLabel(err))
		return nil, err
	}

	result := v.(*types.ExtractedResult)
	o.metrics.IncQuery(string(result.Source))
	return result, nil
}

// run executes the analyze/scrape/extract stages for one query.
func (o *Orchestrator) run(ctx context.Context, query, key string) (*types.ExtractedResult, error) {
	id, done := o.track(query)
	defer done()

	ctx = logging.WithTraceID(ctx, id)
	defer logging.LogDuration(ctx, "process_query")()
	logging.RequestLogger.Info("processing query",
		zap.String("trace_id", id), zap.String("query", query))

	start := time.Now()
	analysis := o.analyzer.Analyze(ctx, query)
	o.metrics.ObserveStage("analysis", time.Since(start))

	start = time.Now()
	scraped, err := o.scraper.Scrape(ctx, &analysis)
	o.metrics.ObserveStage("scrape", time.Since(start))
	if err != nil {
		logging.ErrorLogger.Error("scrape failed",
			zap.String("trace_id", id), zap.String("query", query), zap.Error(err))
		return nil, err
	}

	start = time.Now()
	result := o.extractor.Extract(ctx, query, scraped)
	o.metrics.ObserveStage("extraction", time.Since(start))

	// Degraded results stay out of the cache so a transient failure
	// cannot stick for a full TTL.
	if result.Success {
		o.cache.Add(key, result)
	}
	return result, nil
}

// track registers a pipeline run and returns its id plus a release func.
func (o *Orchestrator) track(query string) (string, func()) {
	id := uuid.NewString()
	o.mu.Lock()
	o.inflight[id] = inflightRun{Query: query, Started: time.Now()}
	o.mu.Unlock()
	o.metrics.AddInFlight(1)

	return id, func() {
		o.mu.Lock()
		delete(o.inflight, id)
		o.mu.Unlock()
		o.metrics.AddInFlight(-1)
	}
}

// Status returns a live snapshot of the pipeline.
func (o *Orchestrator) Status(ctx context.Context) types.PipelineStatus {
	o.mu.Lock()
	active := len(o.inflight)
	o.mu.Unlock()

	st := types.PipelineStatus{
		ActiveRequests: active,
		CacheSize:      o.cache.Len(),
		UptimeSeconds:  int64(time.Since(o.started).Seconds()),
	}
	if o.prober != nil {
		st.GemmaConnected = o.prober.Ping(ctx)
		st.Model = o.prober.Model()
	}
	return st
}

// ClearCache drops every cached result.
func (o *Orchestrator) ClearCache() {
	dropped := o.cache.Len()
	o.cache.Purge()
	logging.AppLogger.Info("cache cleared", zap.Int("entries", dropped))
}
