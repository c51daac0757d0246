package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingToken    = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrUnknownProvider = errors.New("unknown LLM provider")
	ErrInvalidTimeout  = errors.New("LLM timeout must be positive")
	ErrInvalidRate     = errors.New("rate limit must be positive")
)

const (
	ProviderGemini     = "gemini"
	ProviderGenAI      = "genai"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// модель по умолчанию своя у каждого провайдера
var defaultModels = map[string]string{
	ProviderGemini:     "gemini-2.5-flash",
	ProviderGenAI:      "gemini-2.5-flash",
	ProviderOpenRouter: "deepseek/deepseek-chat",
	ProviderMock:       "gemini-2.5-flash",
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	History   HistoryConfig   `yaml:"history"`
	Log       LogConfig       `yaml:"log"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	HTTP      HTTPConfig      `yaml:"http"`
}

type LLMConfig struct {
	Provider          string `yaml:"provider"`
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	GeminiBaseURL     string `yaml:"gemini_base_url"`
	OpenRouterBaseURL string `yaml:"openrouter_base_url"`
	TimeoutSec        int    `yaml:"timeout_sec"`
}

// ModelOrDefault returns the configured model or the provider's default.
func (c LLMConfig) ModelOrDefault() string {
	if c.Model != "" {
		return c.Model
	}
	return defaultModels[c.Provider]
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

type TelegramConfig struct {
	Token string `yaml:"token"`
}

// HistoryConfig - пустой DSN выключает историю
type HistoryConfig struct {
	DSN string `yaml:"dsn"`
}

// Driver picks the storage backend from the DSN scheme.
func (c HistoryConfig) Driver() string {
	switch {
	case c.DSN == "":
		return ""
	case strings.HasPrefix(c.DSN, "postgres://"), strings.HasPrefix(c.DSN, "postgresql://"):
		return DriverPostgres
	default:
		return DriverSQLite
	}
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type SessionConfig struct {
	TTLSec int `yaml:"ttl_sec"`
}

func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

type RateLimitConfig struct {
	CallsPerMinute int `yaml:"calls_per_minute"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          ProviderGemini,
			GeminiBaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			OpenRouterBaseURL: "https://openrouter.ai/api/v1",
			TimeoutSec:        120,
		},
		Log:       LogConfig{Level: "info"},
		Session:   SessionConfig{TTLSec: 86400},
		RateLimit: RateLimitConfig{CallsPerMinute: 30},
		HTTP:      HTTPConfig{Addr: ":8080"},
	}
}

// Load: дефолты, поверх них YAML из CONFIG_FILE (если задан), поверх - переменные окружения.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile is Load with an explicit config file; empty path means env only.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.LLM.Model = cfg.LLM.ModelOrDefault()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LLM.Provider = getEnvOrDefault("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.APIKey = getEnvOrDefault("GEMINI_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnvOrDefault("GEMINI_MODEL", c.LLM.Model)
	c.LLM.GeminiBaseURL = getEnvOrDefault("GEMINI_BASE_URL", c.LLM.GeminiBaseURL)
	c.LLM.OpenRouterBaseURL = getEnvOrDefault("OPENROUTER_BASE_URL", c.LLM.OpenRouterBaseURL)
	c.LLM.TimeoutSec = getEnvIntOrDefault("LLM_TIMEOUT_SEC", c.LLM.TimeoutSec)

	c.Telegram.Token = getEnvOrDefault("TELEGRAM_BOT_TOKEN", c.Telegram.Token)
	c.History.DSN = getEnvOrDefault("HISTORY_DSN", c.History.DSN)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("LOG_FORMAT", c.Log.Format)
	c.Session.TTLSec = getEnvIntOrDefault("SESSION_TTL_SEC", c.Session.TTLSec)
	c.RateLimit.CallsPerMinute = getEnvIntOrDefault("RATE_LIMIT_CALLS_PER_MINUTE", c.RateLimit.CallsPerMinute)
	c.HTTP.Addr = getEnvOrDefault("HTTP_ADDR", c.HTTP.Addr)
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderGenAI, ProviderOpenRouter, ProviderMock:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.LLM.Provider)
	}
	if c.LLM.TimeoutSec <= 0 {
		return ErrInvalidTimeout
	}
	if c.RateLimit.CallsPerMinute <= 0 {
		return ErrInvalidRate
	}
	if _, err := resolveLogFormat(c.Log.Format, parseLogLevel(c.Log.Level)); err != nil {
		return err
	}
	return nil
}

// ValidateBot - дополнительные требования для запуска telegram-бота
func (c *Config) ValidateBot() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
