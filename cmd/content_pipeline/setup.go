package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/content-pipeline/internal/config"
	"github.com/jonathan/content-pipeline/internal/db"
	"github.com/jonathan/content-pipeline/internal/history"
	"github.com/jonathan/content-pipeline/internal/llm"
	"github.com/jonathan/content-pipeline/internal/logging"
	"github.com/jonathan/content-pipeline/internal/metrics"
	"github.com/jonathan/content-pipeline/internal/pipeline"
	"github.com/jonathan/content-pipeline/internal/publish"
	"github.com/jonathan/content-pipeline/internal/transform"
)

// runtime bundles what every command needs after startup.
type runtime struct {
	cfg    *config.Config
	env    *config.Env
	logger *zap.Logger
}

// bootstrap reads the environment, loads the config document and builds the
// logger. The config is loaded with a provisional logger so fallbacks to
// defaults are still reported.
func bootstrap(configPath, outputRoot string, verbose bool) (*runtime, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	bootLogger, err := logging.New(logging.Config{Level: env.LogLevel, Encoding: "console"})
	if err != nil {
		return nil, err
	}
	cfg := config.Load(configPath, bootLogger)
	_ = bootLogger.Sync()

	cfg.ApplyEnv(env)
	if outputRoot != "" {
		cfg.Pipeline.OutputRoot = outputRoot
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Encoding:   cfg.Logging.Encoding,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, env: env, logger: logger}, nil
}

// openHistory opens the configured history backend. The returned close
// function is always safe to call.
func openHistory(ctx context.Context, rt *runtime) (history.Store, func(), error) {
	noop := func() {}
	switch rt.cfg.History.Backend {
	case config.HistoryBackendPostgres:
		if rt.env.DatabaseURL == "" {
			return nil, noop, fmt.Errorf("DATABASE_URL environment variable is required for the postgres history backend")
		}
		database, err := db.Connect(ctx, rt.env.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to database: %w", err)
		}
		store, err := history.NewPostgresStore(ctx, database, rt.cfg.History.MaxEntries)
		if err != nil {
			database.Close()
			return nil, noop, err
		}
		rt.logger.Debug("Using postgres publish history")
		return store, database.Close, nil
	default:
		store, err := history.OpenFile(rt.cfg.HistoryPath(),
			history.WithMaxEntries(rt.cfg.History.MaxEntries),
			history.WithLogger(rt.logger),
		)
		if err != nil {
			return nil, noop, err
		}
		rt.logger.Debug("Using file publish history", zap.String("path", store.Path()))
		return store, noop, nil
	}
}

// newEngine builds the transform engine, attaching an LLM section writer
// when one is configured. A client that cannot be built is logged and the
// engine keeps its template text.
func newEngine(ctx context.Context, rt *runtime) (*transform.Engine, func()) {
	opts := []transform.Option{transform.WithLogger(rt.logger)}
	closeFn := func() {}

	llmCfg := rt.cfg.Modules.Writer.LLM
	if llmCfg != nil && llmCfg.Enabled {
		baseURL := llmCfg.BaseURL
		if baseURL == "" {
			baseURL = rt.env.AIBaseURL
		}
		modelCfg := llm.ConfigFor(llmCfg.Provider, llmCfg.Model, baseURL)

		apiKey := rt.env.AIAPIKey
		if modelCfg.Provider == llm.ProviderGemini {
			apiKey = rt.env.GeminiAPIKey
		}

		client, err := llm.NewClient(ctx, modelCfg, apiKey)
		if err != nil {
			rt.logger.Warn("LLM client unavailable, using template sections",
				zap.String("provider", string(modelCfg.Provider)), zap.Error(err))
		} else {
			rt.logger.Info("Section expansion enabled",
				zap.String("provider", string(modelCfg.Provider)),
				zap.String("model", client.GetModel(llm.TierStandard)))
			opts = append(opts, transform.WithExpander(llm.NewSectionWriter(client)))
			closeFn = func() { _ = client.Close() }
		}
	}
	return transform.NewEngine(opts...), closeFn
}

// service is a fully wired orchestrator plus the collaborators the status
// surfaces read from.
type service struct {
	orchestrator *pipeline.Orchestrator
	store        history.Store
	registry     *publish.Registry
	closers      []func()
}

func (s *service) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newService wires history, registry, dispatcher and transform engine into
// an orchestrator as configured by rt.
func newService(ctx context.Context, rt *runtime, recorder *metrics.Recorder, onProgress pipeline.ProgressCallback) (*service, error) {
	store, closeStore, err := openHistory(ctx, rt)
	if err != nil {
		return nil, fmt.Errorf("failed to open publish history: %w", err)
	}
	svc := &service{store: store, closers: []func(){closeStore}}

	svc.registry = publish.NewRegistryFromConfig(rt.cfg, rt.logger)
	dispatcher := publish.NewDispatcher(svc.registry, store, rt.cfg.Pipeline.OutputRoot,
		publish.WithTimeout(time.Duration(rt.cfg.Pipeline.PublishTimeoutSeconds)*time.Second),
		publish.WithDispatcherLogger(rt.logger),
		publish.WithMetrics(recorder),
	)

	engine, closeEngine := newEngine(ctx, rt)
	svc.closers = append(svc.closers, closeEngine)

	svc.orchestrator, err = pipeline.New(pipeline.Options{
		Config:     rt.cfg,
		Transform:  engine,
		Dispatcher: dispatcher,
		Logger:     rt.logger,
		Metrics:    recorder,
		OnProgress: onProgress,
	})
	if err != nil {
		svc.close()
		return nil, err
	}
	return svc, nil
}
