// Package bootstrap wires config, logging, metrics, the model provider and
// history storage into the runtime the CLI commands use.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/efmnb-optimizer/internal/cache/memory"
	"github.com/kitbuilder587/efmnb-optimizer/internal/cli"
	"github.com/kitbuilder587/efmnb-optimizer/internal/config"
	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/kitbuilder587/efmnb-optimizer/internal/httpapi"
	"github.com/kitbuilder587/efmnb-optimizer/internal/llm"
	"github.com/kitbuilder587/efmnb-optimizer/internal/llm/gemini"
	"github.com/kitbuilder587/efmnb-optimizer/internal/llm/genai"
	llmMock "github.com/kitbuilder587/efmnb-optimizer/internal/llm/mock"
	"github.com/kitbuilder587/efmnb-optimizer/internal/llm/openrouter"
	"github.com/kitbuilder587/efmnb-optimizer/internal/metrics"
	"github.com/kitbuilder587/efmnb-optimizer/internal/repository"
	pgRepo "github.com/kitbuilder587/efmnb-optimizer/internal/repository/postgres"
	sqliteRepo "github.com/kitbuilder587/efmnb-optimizer/internal/repository/sqlite"
	"github.com/kitbuilder587/efmnb-optimizer/internal/service"
	"github.com/kitbuilder587/efmnb-optimizer/internal/telegram"
)

// NewLLMClient builds the configured provider wrapped with metrics and call logging.
func NewLLMClient(cfg config.LLMConfig, logger *zap.Logger, m *metrics.Metrics) (llm.Client, error) {
	var client llm.Client
	switch cfg.Provider {
	case config.ProviderGemini:
		client = gemini.New(gemini.Config{BaseURL: cfg.GeminiBaseURL, Timeout: cfg.Timeout()}, logger)
	case config.ProviderGenAI:
		// SDK сам добавляет версию API к адресу
		base := strings.TrimSuffix(strings.TrimRight(cfg.GeminiBaseURL, "/"), "/v1beta")
		client = genai.New(genai.Config{BaseURL: base, Timeout: cfg.Timeout()}, logger)
	case config.ProviderOpenRouter:
		client = openrouter.New(openrouter.Config{BaseURL: cfg.OpenRouterBaseURL, Timeout: cfg.Timeout()}, logger)
	case config.ProviderMock:
		client = llmMock.New()
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
	}

	var recorder llm.Recorder
	if m != nil {
		recorder = m
	}
	return llm.Instrument(client, cfg.Provider, recorder, logger), nil
}

// OpenHistory opens the history backend chosen by the DSN. An empty DSN
// returns a nil repository: history is off.
func OpenHistory(ctx context.Context, cfg config.HistoryConfig, logger *zap.Logger) (repository.HistoryRepository, func(), error) {
	switch cfg.Driver() {
	case "":
		return nil, func() {}, nil
	case config.DriverPostgres:
		db, err := pgRepo.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info("history enabled", zap.String("driver", config.DriverPostgres))
		return pgRepo.NewHistoryRepo(db), db.Close, nil
	default:
		db, err := sqliteRepo.OpenDB(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("history enabled", zap.String("driver", config.DriverSQLite), zap.String("path", cfg.DSN))
		return sqliteRepo.NewHistoryRepo(db), func() {
			if err := db.Close(); err != nil {
				logger.Warn("failed to close sqlite", zap.Error(err))
			}
		}, nil
	}
}

// NewMetrics registers the application metrics and the Go runtime collectors
// in a fresh registry.
func NewMetrics() *metrics.Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.New(reg)
}

// Load реализует cli.App.Load
func Load(ctx context.Context, opts cli.Options) (*cli.Runtime, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFile(opts.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return Build(ctx, cfg, opts, logger, NewMetrics())
}

// Build wires every service from an already loaded config.
func Build(ctx context.Context, cfg *config.Config, opts cli.Options, logger *zap.Logger, m *metrics.Metrics) (*cli.Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := NewLLMClient(cfg.LLM, logger, m)
	if err != nil {
		return nil, err
	}

	repo, closeRepo, err := OpenHistory(ctx, cfg.History, logger)
	if err != nil {
		return nil, err
	}

	apiKey := cfg.LLM.APIKey
	if opts.APIKey != "" {
		apiKey = opts.APIKey
	}
	model := cfg.LLM.ModelOrDefault()
	if opts.Model != "" {
		model = opts.Model
	}

	analyzer := service.NewAnalyzer(client, logger, m)
	refiner := service.NewRefiner(client, logger, m)
	batch := service.NewBatchAnalyzer(analyzer, logger, m)
	history := service.NewHistoryService(repo, logger)

	rt := &cli.Runtime{
		Analyzer: analyzer,
		Refiner:  refiner,
		Batch:    batch,
		History:  history,
		APIKey:   apiKey,
		Model:    model,
		Close: func() {
			closeRepo()
			_ = logger.Sync()
		},
	}

	rt.RunBot = func(ctx context.Context) error {
		if err := cfg.ValidateBot(); err != nil {
			return err
		}

		c := memory.New[int64, domain.Session]()
		defer c.Stop()

		bot, err := telegram.New(telegram.BotConfig{
			Token:          cfg.Telegram.Token,
			Debug:          cfg.Log.Level == "debug",
			CallsPerMinute: cfg.RateLimit.CallsPerMinute,
			DefaultAPIKey:  apiKey,
			DefaultModel:   model,
		}, telegram.Services{
			Analyzer: analyzer,
			Refiner:  refiner,
			Batch:    batch,
			Sessions: service.NewSessionStore(c, cfg.Session.TTL(), logger, m),
			History:  history,
		}, logger, m)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return bot.Run(gctx)
		})
		g.Go(func() error {
			srv := httpapi.NewServer(cfg.HTTP.Addr, httpapi.NewMetricsRouter(m))
			return httpapi.Serve(gctx, srv, logger)
		})
		return ignoreCanceled(g.Wait())
	}

	rt.Serve = func(ctx context.Context) error {
		router := httpapi.NewRouter(&httpapi.Container{
			Analyzer:      analyzer,
			Refiner:       refiner,
			Batch:         batch,
			DefaultAPIKey: apiKey,
			DefaultModel:  model,
			Metrics:       m,
			Logger:        logger,
		})
		return httpapi.Serve(ctx, httpapi.NewServer(cfg.HTTP.Addr, router), logger)
	}

	logger.Info("runtime ready",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", model),
		zap.Bool("history", history.Enabled()),
	)
	return rt, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
