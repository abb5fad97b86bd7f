package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable the orchestration core accepts. Values come
// from the environment (optionally a .env file) so the settings UI remains
// an external collaborator that only exports variables.
type Config struct {
	ListenAddr string

	OllamaURL  string
	Model      string
	LLMTimeout time.Duration

	MaxResults  int
	SettleDelay time.Duration
	NavTimeout  time.Duration

	CacheEnabled bool
	CacheSize    int
	CacheTTL     time.Duration

	Cooldown time.Duration

	RulesFile string
	LogLevel  string
}

func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		ListenAddr:   getEnv("LISTEN_ADDR", ":8000"),
		OllamaURL:    getEnv("OLLAMA_URL", "http://localhost:11434"),
		Model:        getEnv("OLLAMA_MODEL", "gemma3:4b"),
		LLMTimeout:   getEnvMillis("LLM_TIMEOUT_MS", 60_000),
		MaxResults:   getEnvInt("MAX_RESULTS", 20),
		SettleDelay:  getEnvMillis("SETTLE_DELAY_MS", 2_000),
		NavTimeout:   getEnvMillis("NAV_TIMEOUT_MS", 30_000),
		CacheEnabled: getEnvBool("CACHE_ENABLED", true),
		CacheSize:    getEnvInt("CACHE_SIZE", 128),
		CacheTTL:     getEnvMillis("CACHE_TTL_MS", 15*60*1000),
		Cooldown:     getEnvMillis("RATE_COOLDOWN_MS", 2_000),
		RulesFile:    getEnv("ANALYZER_RULES", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

// Validate ensures the loaded values are coherent before anything is wired.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	parsed, err := url.Parse(c.OllamaURL)
	if err != nil {
		return fmt.Errorf("invalid ollama url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("ollama url must include scheme and host")
	}
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("llm timeout must be positive")
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}
	if c.NavTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("rate limit cooldown cannot be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Millisecond
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
