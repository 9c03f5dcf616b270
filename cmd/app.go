package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skanda/assessly/internal/config"
	"github.com/skanda/assessly/internal/llm"
	"github.com/skanda/assessly/internal/progress"
	"github.com/skanda/assessly/internal/store"
)

// app bundles everything a command needs. Built once per invocation.
type app struct {
	cfg    config.Config
	store  *store.Store
	log    *zap.Logger
	client *redis.Client
}

func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &app{cfg: cfg, store: s, log: log}
	if cfg.Redis.Addr != "" {
		a.client = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return a, nil
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
	}
	a.store.Close()
	_ = a.log.Sync()
}

// provider builds the model client with its decorator chain and the given
// concurrency bound.
func (a *app) provider(ctx context.Context, pool int64) (llm.Provider, error) {
	p, err := llm.NewProvider(ctx, a.cfg.LLM, a.store.Events())
	if err != nil {
		return nil, err
	}
	return llm.WithLimit(p, pool), nil
}

// tracker returns the progress tracker, a noop when Redis is not configured.
func (a *app) tracker() progress.Tracker {
	if a.client == nil {
		return progress.Noop{}
	}
	return progress.NewRedisTracker(a.client)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}

// resolveDBPath returns the database path using the --db flag (highest
// priority), then the config file, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}
