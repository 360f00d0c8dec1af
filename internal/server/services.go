package server

import (
	"errors"
	"log/slog"

	"github.com/copyforge/copyforge/internal/config"
	"github.com/copyforge/copyforge/internal/home"
	"github.com/copyforge/copyforge/internal/invoke"
	"github.com/copyforge/copyforge/internal/llmcall"
	"github.com/copyforge/copyforge/internal/marketing"
	"github.com/copyforge/copyforge/internal/pipeline"
	"github.com/copyforge/copyforge/internal/providers"
	"github.com/copyforge/copyforge/internal/svcctx"
)

// ServicesConfig describes how to assemble the generation stack.
type ServicesConfig struct {
	// ConfigManager supplies settings and hot reload. Config is used when nil.
	ConfigManager *config.Manager
	Config        *config.Config

	// Registry overrides the config-built provider registry. A caller-supplied
	// registry is not reloaded on config changes.
	Registry        *providers.Registry
	DefaultProvider string

	Home   *home.Dir
	Logger *slog.Logger
}

// BuildServices wires providers, call recording, the orchestrator, the
// pipeline and the marketing service from configuration.
func BuildServices(cfg ServicesConfig) (*svcctx.Services, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conf := cfg.Config
	if cfg.ConfigManager != nil {
		conf = cfg.ConfigManager.Get()
	}
	if conf == nil {
		return nil, errors.New("no configuration provided")
	}

	registry := cfg.Registry
	ownRegistry := registry == nil
	if ownRegistry {
		registry = providers.NewRegistryFromConfig(conf.ToProviderRegistryConfig(), logger)
	}
	defaultProvider := cfg.DefaultProvider
	if defaultProvider == "" {
		defaultProvider = conf.Defaults.LLMProvider
	}

	store := llmcall.NewStore(conf.Defaults.CallHistory)
	caller := providers.NewCaller(providers.CallerConfig{
		Registry:        registry,
		DefaultProvider: defaultProvider,
		Recorder:        llmcall.NewRecorder(store, logger),
		Logger:          logger,
	})

	orch := invoke.New(caller, conf.OrchestratorOptions(logger))
	gen := pipeline.NewGenerator(pipeline.Config{Orchestrator: orch, Logger: logger})
	svc := marketing.NewService(marketing.Config{
		Generator:   gen,
		Variants:    conf.Pipeline.Variants,
		MaxAttempts: conf.Pipeline.MaxAttempts,
		Windows:     conf.Pipeline.Windows,
		Language:    conf.Pipeline.Language,
		Logger:      logger,
	})

	if cfg.ConfigManager != nil && ownRegistry {
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
			caller.SetDefaultProvider(c.Defaults.LLMProvider)
			logger.Info("provider registry reloaded from config", "providers", registry.List())
		})
	}

	logger.Info("generation services ready",
		"providers", registry.List(),
		"default_provider", defaultProvider,
		"language", conf.Pipeline.Language)

	return &svcctx.Services{
		Registry:      registry,
		Marketing:     svc,
		ConfigManager: cfg.ConfigManager,
		Logger:        logger,
		Home:          cfg.Home,
		LLMCallStore:  store,
	}, nil
}
