package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"smartscrape/smartscrape/config"
	"smartscrape/smartscrape/controllers"
	"smartscrape/smartscrape/middlewares"
	"smartscrape/smartscrape/routes"
	"smartscrape/smartscrape/services/analyzer"
	"smartscrape/smartscrape/services/browser"
	"smartscrape/smartscrape/services/extractor"
	"smartscrape/smartscrape/services/llm"
	"smartscrape/smartscrape/services/pipeline"
	"smartscrape/smartscrape/utils/logging"
)

func main() {
	cfg := config.LoadConfig()
	logging.InitLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logging.ErrorLogger.Error("invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	b, err := browser.NewBrowser()
	if err != nil {
		logging.ErrorLogger.Error("browser launch error", zap.Error(err))
		os.Exit(1)
	}
	defer b.Close()

	llmClient := llm.NewOllamaClient(cfg.OllamaURL, cfg.Model, cfg.LLMTimeout)

	rules := analyzer.DefaultRules()
	if cfg.RulesFile != "" {
		loaded, err := analyzer.LoadRules(cfg.RulesFile)
		if err != nil {
			logging.ErrorLogger.Error("analyzer rules file rejected, using built-in table",
				zap.String("path", cfg.RulesFile), zap.Error(err))
		} else {
			rules = loaded
		}
	}

	metrics := pipeline.NewMetrics()
	orch := pipeline.New(pipeline.Options{
		Analyzer:  analyzer.New(llmClient, analyzer.NewFallback(rules), metrics),
		Scraper:   browser.NewExecutor(b, cfg.SettleDelay, cfg.NavTimeout, cfg.MaxResults),
		Extractor: extractor.New(llmClient, metrics, cfg.MaxResults),
		Prober:    llmClient,
		Cache:     pipeline.NewCache(cfg.CacheSize, cfg.CacheTTL, cfg.CacheEnabled),
		Limiter:   pipeline.NewLimiter(cfg.Cooldown),
		Metrics:   metrics,
	})

	queryCtrl := controllers.NewQueryController(orch)
	healthCtrl := controllers.NewHealthController()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.RequestLogger)
	r.Use(middleware.Recoverer)

	// The websocket channel stays outside the timeout group: its
	// connections are long-lived.
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.Timeout(180 * time.Second))
		gr.Mount("/api", routes.ScrapeRoutes(queryCtrl))
	})
	r.Mount("/healthz", routes.HealthRoutes(healthCtrl))
	r.HandleFunc("/ws", routes.WSHandler(queryCtrl))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}
	go func() {
		logging.AppLogger.Info("server listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("model", cfg.Model),
			zap.String("ollama_url", cfg.OllamaURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}
