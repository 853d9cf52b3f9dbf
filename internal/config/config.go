// Package config collects every knob of the generation pipeline into one
// explicit struct loaded from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Generation modes. Auto picks a strategy from the configured credentials,
// the rest force one regardless.
const (
	ModeAuto      = "auto"
	ModeReal      = "real"
	ModeSynthetic = "synthetic"
	ModeMock      = "mock"
)

type Config struct {
	// News search settings
	NewsAPIKey      string
	NewsAPIURL      string
	SearchLanguage  string
	SearchSortBy    string
	SearchPageSize  int
	ExcludedDomains string

	// AI settings
	AIProvider       string // "openai" or "gemini"
	OpenAIKey        string
	OpenAIURL        string
	OpenAIModel      string
	GeminiAPIKey     string
	GeminiModel      string
	AITemperature    float32
	MaxAICallsPerRun int

	// Strategy selection
	GenerationMode string

	// Extraction settings
	ExtractTimeout  time.Duration
	ExtractMaxChars int

	// Synthesis thresholds
	MinArticleChars int // comprehensive path re-asks below this
	MinArticleWords int

	// Curated feeds (optional search enrichment)
	FeedsConfigPath string

	// Persistence (empty = in-memory store)
	DatabaseURL string

	// Editor notification (optional)
	TelegramToken  string
	TelegramChatID string

	// App settings
	Port           string
	Debug          bool
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		NewsAPIURL:       "https://newsapi.org/v2/everything",
		SearchLanguage:   "es",
		SearchSortBy:     "publishedAt",
		SearchPageSize:   10,
		ExcludedDomains:  "youtube.com,facebook.com,twitter.com,instagram.com",
		AIProvider:       "openai",
		OpenAIURL:        "https://api.openai.com/v1/chat/completions",
		OpenAIModel:      "gpt-4o-mini",
		GeminiModel:      "gemini-1.5-flash",
		AITemperature:    0.7,
		MaxAICallsPerRun: 12,
		GenerationMode:   ModeAuto,
		ExtractTimeout:   15 * time.Second,
		ExtractMaxChars:  2000,
		MinArticleChars:  2000,
		MinArticleWords:  800,
		Port:             "8080",
		RequestTimeout:   30 * time.Second,
		RetryAttempts:    2,
		RetryDelay:       2 * time.Second,
	}

	// Load from environment
	cfg.NewsAPIKey = os.Getenv("NEWS_API_KEY")
	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.FeedsConfigPath = os.Getenv("FEEDS_CONFIG_PATH")

	cfg.NewsAPIURL = getEnvOrDefault("NEWS_API_URL", cfg.NewsAPIURL)
	cfg.OpenAIURL = getEnvOrDefault("OPENAI_API_URL", cfg.OpenAIURL)
	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.AIProvider = getEnvOrDefault("AI_PROVIDER", cfg.AIProvider)
	cfg.GenerationMode = getEnvOrDefault("GENERATION_MODE", cfg.GenerationMode)
	cfg.SearchLanguage = getEnvOrDefault("SEARCH_LANGUAGE", cfg.SearchLanguage)
	cfg.SearchSortBy = getEnvOrDefault("SEARCH_SORT_BY", cfg.SearchSortBy)
	cfg.ExcludedDomains = getEnvOrDefault("SEARCH_EXCLUDED_DOMAINS", cfg.ExcludedDomains)
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)

	cfg.SearchPageSize = getEnvIntOrDefault("SEARCH_PAGE_SIZE", cfg.SearchPageSize)
	cfg.ExtractMaxChars = getEnvIntOrDefault("EXTRACT_MAX_CHARS", cfg.ExtractMaxChars)
	cfg.MinArticleChars = getEnvIntOrDefault("MIN_ARTICLE_CHARS", cfg.MinArticleChars)
	cfg.MinArticleWords = getEnvIntOrDefault("MIN_ARTICLE_WORDS", cfg.MinArticleWords)
	cfg.MaxAICallsPerRun = getEnvIntOrDefault("MAX_AI_CALLS_PER_RUN", cfg.MaxAICallsPerRun)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)

	if v := os.Getenv("EXTRACT_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.ExtractTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RequestTimeout = time.Duration(val) * time.Second
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	switch c.GenerationMode {
	case ModeAuto, ModeReal, ModeSynthetic, ModeMock:
	default:
		return fmt.Errorf("GENERATION_MODE must be one of auto, real, synthetic, mock (got %q)", c.GenerationMode)
	}
	if c.AIProvider != "openai" && c.AIProvider != "gemini" {
		return fmt.Errorf("AI_PROVIDER must be 'openai' or 'gemini' (got %q)", c.AIProvider)
	}
	if c.SearchPageSize < 1 || c.SearchPageSize > 100 {
		return fmt.Errorf("SEARCH_PAGE_SIZE must be between 1 and 100")
	}
	return nil
}

// AIKey returns the credential for the selected AI provider.
func (c *Config) AIKey() string {
	if c.AIProvider == "gemini" {
		return c.GeminiAPIKey
	}
	return c.OpenAIKey
}
