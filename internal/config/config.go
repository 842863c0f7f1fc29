package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds minimal runtime configuration. Extend as needed.
type Config struct {
	// Server
	Port       int    `env:"PORT" envDefault:"8080"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8081"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"memory"` // "memory", "postgres" or "redis"
	DBURL         string `env:"DB_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisListKey  string `env:"REDIS_LIST_KEY" envDefault:"shoplist:items"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"none"` // "none" or "nats" (async generation)
	QueueURL      string `env:"QUEUE_URL"`

	// LLM
	LLMProvider    string        `env:"LLM_PROVIDER" envDefault:"openai"` // "openai" (openai-go) or "compat" (go-openai)
	LLMAPIKey      string        `env:"LLM_API_KEY"`
	LLMAPIKeyFile  string        `env:"LLM_API_KEY_FILE,file"` // contents of the secret file, not the path
	LLMBaseURL     string        `env:"LLM_BASE_URL" envDefault:"https://api.deepseek.com"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"deepseek-chat"`
	LLMTemperature float64       `env:"LLM_TEMPERATURE" envDefault:"0.3"`
	LLMMaxTokens   int           `env:"LLM_MAX_TOKENS" envDefault:"2048"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`

	// Reply cache, in seconds. 0 disables it.
	CacheTTL int `env:"CACHE_TTL" envDefault:"0"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

// APIKey returns the completion API credential. LLM_API_KEY wins over the secret file.
func (c Config) APIKey() string {
	if c.LLMAPIKey != "" {
		return c.LLMAPIKey
	}
	return strings.TrimSpace(c.LLMAPIKeyFile)
}

// CacheDuration converts CacheTTL to a duration.
func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}
