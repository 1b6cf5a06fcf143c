package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/leofalp/aibridge/core/cache"
	"github.com/leofalp/aibridge/core/client"
	"github.com/leofalp/aibridge/core/client/middleware"
	"github.com/leofalp/aibridge/core/reconstruct"
	"github.com/leofalp/aibridge/internal/config"
	"github.com/leofalp/aibridge/providers/ai"
	"github.com/leofalp/aibridge/providers/ai/anthropic"
	"github.com/leofalp/aibridge/providers/ai/httpstyle"
	"github.com/leofalp/aibridge/providers/ai/ollama"
	"github.com/leofalp/aibridge/providers/ai/openai"
	"github.com/leofalp/aibridge/providers/ai/sdkstyle"
	"github.com/leofalp/aibridge/providers/memory/ledger"
	"github.com/leofalp/aibridge/providers/transport"
)

type globalFlags struct {
	configPath string
	envFiles   []string
	logLevel   string
	verbose    bool
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *cache.Store
	client *client.Client
}

// newApp loads configuration and builds the client. The cache janitor runs
// until ctx is done.
func newApp(ctx context.Context, flags *globalFlags, stderr io.Writer) (*app, error) {
	if err := config.LoadDotEnv(flags.envFiles...); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return nil, err
	}

	store := cache.NewStore()
	go store.Run(ctx, cfg.Cache.CleanupInterval)

	tr := transport.NewHTTP(cfg.Transport, transport.WithLogger(logger))
	provider, err := newProvider(cfg, tr, store, logger)
	if err != nil {
		return nil, err
	}

	logLevel := middleware.LogLevelStandard
	if flags.verbose {
		logLevel = middleware.LogLevelVerbose
	}
	c, err := client.New(provider,
		client.WithDefaults(ai.Options{
			Model:       cfg.Provider.Model,
			Temperature: cfg.Provider.Temperature,
			MaxTokens:   cfg.Provider.MaxTokens,
		}),
		client.WithMemory(ledger.New(cfg.HistorySize, ledger.WithLogger(logger))),
		client.WithLogger(logger),
		client.WithMiddleware(middleware.NewLoggingMiddleware(logger, logLevel)),
	)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, store: store, client: c}, nil
}

// newProvider picks the integration strategy named by the config.
func newProvider(cfg *config.Config, tr transport.Transport, store *cache.Store, logger *slog.Logger) (ai.Provider, error) {
	p := cfg.Provider

	switch p.Style {
	case config.StyleHTTP:
		var dialect httpstyle.Dialect
		switch p.Dialect {
		case config.DialectOpenAI:
			dialect = openai.NewDialect(p.BaseURL)
		case config.DialectOllama:
			dialect = ollama.Dialect{}
		default:
			return nil, fmt.Errorf("unsupported http dialect %q", p.Dialect)
		}

		opts := []httpstyle.Option{
			httpstyle.WithAPIKey(p.APIKey),
			httpstyle.WithRetry(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay),
			httpstyle.WithLogger(logger),
			httpstyle.WithReconstructor(reconstruct.New(store,
				reconstruct.WithCacheOptions(cfg.Cache),
				reconstruct.WithRepair(),
				reconstruct.WithLogger(logger),
			)),
		}
		if p.BaseURL != "" {
			opts = append(opts, httpstyle.WithBaseURL(p.BaseURL))
		}
		if p.Name != "" {
			opts = append(opts, httpstyle.WithName(p.Name))
		}
		return httpstyle.New(dialect, tr, store, opts...), nil

	case config.StyleSDK:
		if p.Dialect != config.DialectAnthropic {
			return nil, fmt.Errorf("unsupported sdk dialect %q", p.Dialect)
		}
		clientOpts := []anthropic.ClientOption{anthropic.WithAPIKey(p.APIKey)}
		if p.BaseURL != "" {
			clientOpts = append(clientOpts, anthropic.WithBaseURL(p.BaseURL))
		}
		opts := []sdkstyle.Option{sdkstyle.WithStore(store), sdkstyle.WithLogger(logger)}
		if p.Name != "" {
			opts = append(opts, sdkstyle.WithName(p.Name))
		}
		return anthropic.New(anthropic.NewClient(tr, clientOpts...), opts...), nil

	default:
		return nil, fmt.Errorf("unsupported provider style %q", p.Style)
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}
