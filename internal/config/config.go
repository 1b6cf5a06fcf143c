// Package config loads aibridge settings from YAML files and .env files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/leofalp/aibridge/core/cache"
	"github.com/leofalp/aibridge/providers/memory/ledger"
	"github.com/leofalp/aibridge/providers/transport"
)

// Integration styles accepted in ProviderConfig.Style.
const (
	StyleHTTP = "http"
	StyleSDK  = "sdk"
)

// Dialects accepted in ProviderConfig.Dialect.
const (
	DialectOpenAI    = "openai"
	DialectOllama    = "ollama"
	DialectAnthropic = "anthropic"
)

// Config holds all aibridge configuration.
type Config struct {
	Provider    ProviderConfig   `yaml:"provider"`
	Transport   transport.Config `yaml:"transport"`
	Retry       RetryConfig      `yaml:"retry"`
	Cache       cache.Options    `yaml:"cache"`
	HistorySize int              `yaml:"history_size"`
	Log         LogConfig        `yaml:"log"`
}

// ProviderConfig selects and configures the backend.
// Style is "http" (default) or "sdk"; Dialect is "openai" (default), "ollama"
// or "anthropic". The anthropic dialect is reached through the sdk style.
type ProviderConfig struct {
	Name        string   `yaml:"name"`
	Style       string   `yaml:"style"`
	Dialect     string   `yaml:"dialect"`
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`
}

// RetryConfig controls the retry policy of HTTP providers.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

// LogConfig controls the CLI log handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Style:   StyleHTTP,
			Dialect: DialectOpenAI,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
		},
		Cache: cache.Options{
			MaxSize:         cache.DefaultMaxSize,
			TTL:             5 * time.Minute,
			CleanupInterval: cache.DefaultCleanupInterval,
		},
		HistorySize: ledger.DefaultMaxSize,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data on top of Default, expanding ${VAR}
// references first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Provider.Style = strings.ToLower(strings.TrimSpace(cfg.Provider.Style))
	cfg.Provider.Dialect = strings.ToLower(strings.TrimSpace(cfg.Provider.Dialect))
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = os.Getenv(apiKeyEnv(cfg.Provider.Dialect))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads the given .env files into the process environment without
// overriding variables that are already set. A missing default ".env" file is
// not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// Validate reports inconsistent settings.
func (c *Config) Validate() error {
	switch c.Provider.Style {
	case StyleHTTP:
		if c.Provider.Dialect != DialectOpenAI && c.Provider.Dialect != DialectOllama {
			return fmt.Errorf("config: dialect %q is not available over http", c.Provider.Dialect)
		}
	case StyleSDK:
		if c.Provider.Dialect != DialectAnthropic {
			return fmt.Errorf("config: dialect %q is not available as sdk", c.Provider.Dialect)
		}
	default:
		return fmt.Errorf("config: unknown provider style %q", c.Provider.Style)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config: retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 {
		return errors.New("config: retry.base_delay must not be negative")
	}
	if c.HistorySize < 0 {
		return errors.New("config: history_size must not be negative")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if f := strings.ToLower(c.Log.Format); f != "" && f != "text" && f != "json" {
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", level)
	}
}

func apiKeyEnv(dialect string) string {
	switch dialect {
	case DialectAnthropic:
		return "ANTHROPIC_API_KEY"
	case DialectOllama:
		return "OLLAMA_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
