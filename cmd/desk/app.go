package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"StrategyDesk/internal/account"
	"StrategyDesk/internal/config"
	"StrategyDesk/internal/persist"
	"StrategyDesk/internal/remote"
	"StrategyDesk/internal/store"
)

// app is one CLI session: config, logger, persistence and the stores.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	backend persist.Backend
	user    *account.UserStore
	strats  *account.StrategiesStore

	closers []func() error
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = "configs/config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func openBackend(cfg *config.Config, logger *zap.Logger) (persist.Backend, func() error, error) {
	switch cfg.Persistence.Backend {
	case "memory":
		return persist.NewMemory(), nil, nil
	case "sqlite":
		s, err := persist.OpenSQLite(cfg.Persistence.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return persist.NewFile(cfg.Persistence.Path, logger), nil, nil
	}
}

func newApp(cfgPath string) (*app, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, log: logger}
	backend, closeBackend, err := openBackend(cfg, logger)
	if err != nil {
		logger.Warn("init persistence backend failed, state will not survive restarts", zap.Error(err))
	} else {
		a.backend = backend
		if closeBackend != nil {
			a.closers = append(a.closers, closeBackend)
		}
	}

	var client remote.Client = remote.NewHTTPClient(cfg.API.Timeout, cfg.Proxy)
	if cfg.API.DedupeRequests {
		client = remote.Dedupe(client)
	}

	env := persist.ParseEnvironment(cfg.Persistence.Env)
	reg := store.NewRegistry(
		store.WithEnvironment(func() persist.Environment { return env }),
		store.WithLogger(logger),
	)
	deps := account.Deps{Client: client, BaseURL: cfg.API.BaseURL, Logger: logger, Backend: a.backend}

	uh, err := account.DefineUserStore(reg, deps)
	if err != nil {
		return nil, err
	}
	sh, err := account.DefineStrategiesStore(reg, deps)
	if err != nil {
		return nil, err
	}
	a.user = uh.Use()
	a.strats = sh.Use()

	logger.Debug("session ready",
		zap.String("base_url", cfg.API.BaseURL),
		zap.Stringer("env", env),
		zap.String("backend", cfg.Persistence.Backend))
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn("close", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
