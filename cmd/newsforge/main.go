package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"newsforge/internal/ai"
	"newsforge/internal/config"
	"newsforge/internal/extract"
	"newsforge/internal/generation"
	"newsforge/internal/logger"
	"newsforge/internal/newsapi"
	"newsforge/internal/notify"
	"newsforge/internal/pipeline"
	"newsforge/internal/ratelimit"
	"newsforge/internal/rssfeed"
	"newsforge/internal/server"
	"newsforge/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	completer, cleanup, err := buildCompleter(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize AI client", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	budget := ratelimit.NewAIBudget(cfg.MaxAICallsPerRun)
	synth := buildSynthesizer(cfg, completer, budget)

	var search *newsapi.Client
	if cfg.NewsAPIKey != "" {
		search = newsapi.NewClient(cfg.NewsAPIURL, cfg.NewsAPIKey, newsapi.Options{
			Language:        cfg.SearchLanguage,
			SortBy:          cfg.SearchSortBy,
			PageSize:        cfg.SearchPageSize,
			ExcludedDomains: cfg.ExcludedDomains,
			Timeout:         cfg.RequestTimeout,
		})
	}

	extractor := extract.New(cfg.ExtractTimeout, cfg.ExtractMaxChars)

	var feeds []string
	if cfg.FeedsConfigPath != "" {
		feeds, err = rssfeed.LoadFeeds(cfg.FeedsConfigPath)
		if err != nil {
			logger.Warn("failed to load curated feeds, continuing without", "error", err)
		} else {
			logger.Info("curated feeds loaded", "count", len(feeds))
		}
	}

	requests, posts, closeStore, err := buildStores(cfg)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	if closeStore != nil {
		defer closeStore()
	}

	var notifier pipeline.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notifier = notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		logger.Info("telegram notifications enabled")
	}

	factory := generation.NewStrategyFactory(cfg, synth, search, extractor, feeds)
	service := pipeline.NewService(requests, posts, factory, notifier)

	srv := server.New(service)
	go func() {
		logger.Info("admin API listening", "port", cfg.Port)
		if err := srv.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func buildCompleter(ctx context.Context, cfg *config.Config) (ai.Completer, func(), error) {
	if cfg.AIKey() == "" {
		logger.Warn("no AI credentials configured, generation falls back to mock mode")
		return nil, nil, nil
	}

	if cfg.AIProvider == "gemini" {
		client, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	}

	client := ai.NewOpenAIClient(cfg.OpenAIURL, cfg.OpenAIModel, cfg.OpenAIKey, cfg.RequestTimeout)
	return client, nil, nil
}

func buildSynthesizer(cfg *config.Config, completer ai.Completer, budget *ratelimit.AIBudget) *generation.Synthesizer {
	model := cfg.OpenAIModel
	if cfg.AIProvider == "gemini" {
		model = cfg.GeminiModel
	}
	return generation.NewSynthesizer(completer, budget, model,
		cfg.AITemperature, cfg.MinArticleChars, cfg.MinArticleWords)
}

func buildStores(cfg *config.Config) (storage.RequestStore, storage.PostStore, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory storage")
		mem := storage.NewMemoryStore()
		return mem, mem.Posts(), nil, nil
	}

	pg, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	return pg, pg.Posts(), func() { pg.Close() }, nil
}
