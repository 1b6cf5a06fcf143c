package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, StyleHTTP, cfg.Provider.Style)
	assert.Equal(t, DialectOpenAI, cfg.Provider.Dialect)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 100, cfg.HistorySize)
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_AIBRIDGE_KEY", "sk-from-env")
	path := filepath.Join(t.TempDir(), "aibridge.yaml")
	data := `
provider:
  style: HTTP
  dialect: ollama
  base_url: http://localhost:11434
  api_key: ${TEST_AIBRIDGE_KEY}
  model: llama3
  temperature: 0.2
transport:
  timeout: 30s
retry:
  max_attempts: 5
  base_delay: 250ms
cache:
  max_size: 10
  ttl: 1m
history_size: 20
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StyleHTTP, cfg.Provider.Style)
	assert.Equal(t, DialectOllama, cfg.Provider.Dialect)
	assert.Equal(t, "sk-from-env", cfg.Provider.APIKey)
	assert.Equal(t, "llama3", cfg.Provider.Model)
	require.NotNil(t, cfg.Provider.Temperature)
	assert.InDelta(t, 0.2, *cfg.Provider.Temperature, 1e-9)
	assert.Nil(t, cfg.Provider.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 10, cfg.Cache.MaxSize)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 20, cfg.HistorySize)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_APIKeyFromDialectEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	cfg, err := Parse([]byte("provider:\n  style: sdk\n  dialect: anthropic\n"))
	require.NoError(t, err)
	assert.Equal(t, "sk-ant", cfg.Provider.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad yaml", "provider: [", "parse config"},
		{"unknown style", "provider:\n  style: grpc\n", "unknown provider style"},
		{"anthropic over http", "provider:\n  dialect: anthropic\n", "not available over http"},
		{"openai as sdk", "provider:\n  style: sdk\n", "not available as sdk"},
		{"zero attempts", "retry:\n  max_attempts: 0\n", "max_attempts"},
		{"bad level", "log:\n  level: loud\n", "unknown log level"},
		{"bad format", "log:\n  format: xml\n", "unknown log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("AIBRIDGE_DOTENV_TEST=loaded\n"), 0o600))
	t.Setenv("AIBRIDGE_DOTENV_TEST", "")
	require.NoError(t, os.Unsetenv("AIBRIDGE_DOTENV_TEST"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("AIBRIDGE_DOTENV_TEST"))

	assert.Error(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}
