package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"shoplist/internal/cache"
	"shoplist/internal/config"
	"shoplist/internal/generator"
	"shoplist/internal/llm"
	"shoplist/internal/logger"
	"shoplist/internal/queue"
	"shoplist/internal/store"
)

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config    config.Config
	Log       *slog.Logger
	Store     store.Store
	Queue     queue.Queue // nil when QUEUE_PROVIDER=none
	LLM       llm.Client
	Cache     cache.Cache
	Generator *generator.Generator
}

// Build loads env, config, and shared components for the named service.
func Build(service string) (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, service)

	st, err := buildStore(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	q, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	llmClient, err := buildLLM(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	c := buildCache(cfg, log)

	gen := generator.New(llmClient, st,
		generator.WithLogger(log),
		generator.WithCache(c, cfg.LLMModel, cfg.CacheDuration()),
	)
	return Deps{
		Config:    cfg,
		Log:       log,
		Store:     st,
		Queue:     q,
		LLM:       llmClient,
		Cache:     c,
		Generator: gen,
	}, nil
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "memory":
		log.Info("using in-memory store")
		return store.NewMemory(), nil
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when STORE_PROVIDER=redis")
		}
		client, err := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		log.Info("using Redis store", "key", cfg.RedisListKey)
		return store.NewRedis(client, cfg.RedisListKey), nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: memory, postgres, redis)", cfg.StoreProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "", "none":
		log.Info("queue disabled; async generation unavailable")
		return nil, nil
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: none, nats)", cfg.QueueProvider)
	}
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY or LLM_API_KEY_FILE is required")
	}
	opts := llm.Options{
		APIKey:      apiKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	}
	switch cfg.LLMProvider {
	case "openai":
		client, err := llm.NewOpenAIClient(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using openai-go LLM client", "model", cfg.LLMModel, "base_url", cfg.LLMBaseURL)
		return client, nil
	case "compat":
		client, err := llm.NewCompatClient(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize compat client: %w", err)
		}
		log.Info("using go-openai LLM client", "model", cfg.LLMModel, "base_url", cfg.LLMBaseURL)
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: openai, compat)", cfg.LLMProvider)
	}
}

// buildCache never fails: without Redis the generator simply always calls the API.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	if cfg.CacheTTL <= 0 {
		return cache.NewNoOpCache()
	}
	if cfg.RedisAddr == "" {
		log.Warn("CACHE_TTL set without REDIS_ADDR; reply cache disabled")
		return cache.NewNoOpCache()
	}
	c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn("redis unavailable; reply cache disabled", "err", err)
		return cache.NewNoOpCache()
	}
	log.Info("reply cache enabled", "ttl_seconds", cfg.CacheTTL)
	return c
}
