// Command-line interface for running scrape queries without the server
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"smartscrape/smartscrape/config"
	"smartscrape/smartscrape/services/analyzer"
	"smartscrape/smartscrape/services/browser"
	"smartscrape/smartscrape/services/extractor"
	"smartscrape/smartscrape/services/llm"
	"smartscrape/smartscrape/services/pipeline"
	"smartscrape/smartscrape/utils/color"
	"smartscrape/smartscrape/utils/jsonutils"
	"smartscrape/smartscrape/utils/logging"
)

const queryTimeout = 3 * time.Minute

func main() {
	cfg := config.LoadConfig()
	logging.InitLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	args := os.Args[1:]
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "query":
		if len(args) < 2 {
			usage()
			os.Exit(1)
		}
		orch, cleanup := buildPipeline(cfg)
		defer cleanup()
		runQuery(orch, strings.Join(args[1:], " "))

	case "repl":
		orch, cleanup := buildPipeline(cfg)
		defer cleanup()
		runREPL(orch)

	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  smartscrape query <text...>   run one query and print the result
  smartscrape repl              interactive query loop`)
}

func buildPipeline(cfg config.Config) (*pipeline.Orchestrator, func()) {
	b, err := browser.NewBrowser()
	if err != nil {
		logging.ErrorLogger.Error("browser launch error", zap.Error(err))
		fmt.Fprintln(os.Stderr, "browser launch error:", err)
		os.Exit(1)
	}

	llmClient := llm.NewOllamaClient(cfg.OllamaURL, cfg.Model, cfg.LLMTimeout)

	rules := analyzer.DefaultRules()
	if cfg.RulesFile != "" {
		loaded, err := analyzer.LoadRules(cfg.RulesFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "analyzer rules file rejected, using built-in table:", err)
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
	return orch, b.Close
}

func runQuery(orch *pipeline.Orchestrator, query string) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	res, err := orch.ProcessQuery(ctx, query)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query failed:", err)
		os.Exit(1)
	}
	fmt.Println(jsonutils.ToJSON(res))
}

func runREPL(orch *pipeline.Orchestrator) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println(color.ColorInfo(`Type a query, or "exit" to quit.`))

	for {
		fmt.Print(color.ColorPrompt("scrape> "))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		res, err := orch.ProcessQuery(ctx, line)
		cancel()
		if err != nil {
			fmt.Println(color.ColorError("error: " + err.Error()))
			continue
		}
		if !res.Success {
			fmt.Println(color.ColorError("degraded: " + res.Error))
		} else {
			fmt.Println(color.ColorSuccess(fmt.Sprintf("%d results via %s", res.TotalResults, res.Source)))
		}
		fmt.Println(jsonutils.ToJSON(res))
	}
}
