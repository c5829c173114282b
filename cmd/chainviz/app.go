package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dd0wney/cluso-chainviz/pkg/config"
	"github.com/dd0wney/cluso-chainviz/pkg/expansion"
	"github.com/dd0wney/cluso-chainviz/pkg/health"
	"github.com/dd0wney/cluso-chainviz/pkg/logging"
	"github.com/dd0wney/cluso-chainviz/pkg/metrics"
	"github.com/dd0wney/cluso-chainviz/pkg/session"
)

// app holds what every subcommand builds from the config
type app struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Registry
	health  *health.HealthChecker
	table   *expansion.Table
	loader  expansion.Loader

	closers []io.Closer
}

// newApp loads the config and builds the logger, key table and loader.
// Logs go to logFile when set, then to the configured file, then to
// stderr.
func newApp(opts *rootOptions, stderr io.Writer, logFile string) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}

	a := &app{
		cfg:     cfg,
		metrics: metrics.NewRegistry(),
		health:  health.NewHealthChecker(),
	}

	if cfg.Log.File != "" {
		l, closer, err := logging.OpenFile(cfg.Log.File, cfg.LogLevel())
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.logger = l
		a.closers = append(a.closers, closer)
	} else {
		a.logger = logging.NewJSONLogger(stderr, cfg.LogLevel())
	}

	a.table, err = a.loadTable()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.loader, err = a.buildLoader()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.health.RegisterCheck("memory", health.MemoryCheck(health.RuntimeMemory))
	return a, nil
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadTable reads the configured key table, or the built-in one
func (a *app) loadTable() (*expansion.Table, error) {
	if a.cfg.Expansion.KeyTable == "" {
		return expansion.DefaultTable(), nil
	}
	t, err := expansion.LoadTable(a.cfg.Expansion.KeyTable)
	if err != nil {
		return nil, fmt.Errorf("load key table: %w", err)
	}
	return t, nil
}

// buildLoader picks the file or HTTP loader and puts the Redis cache in
// front of it when enabled
func (a *app) buildLoader() (expansion.Loader, error) {
	var base expansion.Loader
	switch a.cfg.Expansion.Loader {
	case "http":
		l, err := expansion.NewHTTPLoader(a.cfg.Expansion.BaseURL,
			expansion.WithRateLimit(a.cfg.Expansion.RateLimit, a.cfg.Expansion.Burst))
		if err != nil {
			return nil, err
		}
		base = l
	default:
		base = expansion.NewFileLoader(a.cfg.Expansion.Root)
	}

	if !a.cfg.Cache.Enabled {
		return base, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: a.cfg.Cache.Addr,
		DB:   a.cfg.Cache.DB,
	})
	a.closers = append(a.closers, client)
	a.health.RegisterReadinessCheck("cache", health.CacheCheck(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}))

	a.logger.Info("payload cache enabled",
		logging.String("addr", a.cfg.Cache.Addr),
		logging.Duration("ttl", a.cfg.Cache.TTL),
	)
	return expansion.NewCachingLoader(base, client,
		expansion.WithTTL(a.cfg.Cache.TTL),
		expansion.WithPrefix(a.cfg.Cache.Prefix),
		expansion.WithCacheLogger(a.logger),
	), nil
}

// newSession builds a session over the app's table and loader.
// tick overrides the configured interval when positive.
func (a *app) newSession(tick time.Duration) (*session.Session, error) {
	if tick <= 0 {
		tick = a.cfg.Session.TickInterval
	}
	return session.New(session.Options{
		Layout:       a.cfg.Layout,
		TickInterval: tick,
		FetchTimeout: a.cfg.Session.FetchTimeout,
		Table:        a.table,
		Loader:       a.loader,
		Logger:       a.logger,
		Metrics:      a.metrics,
	})
}

// Close releases the log file and cache client
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
