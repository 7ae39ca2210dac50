package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	do "github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/goliatone/go-forum-cache/cache"
	"github.com/goliatone/go-forum-cache/internal/auth"
	"github.com/goliatone/go-forum-cache/internal/cacheinfra"
	"github.com/goliatone/go-forum-cache/internal/config"
	"github.com/goliatone/go-forum-cache/internal/httpapi"
	"github.com/goliatone/go-forum-cache/internal/logging"
	"github.com/goliatone/go-forum-cache/pkg/di"
	"github.com/goliatone/go-forum-cache/store"
)

const metricsNamespace = "forum"

// Package registers every provider the commands need.
var Package = do.Package(
	do.Lazy[*config.Config](NewConfig),
	do.Lazy[*zap.Logger](NewLogger),
	do.Lazy[*bun.DB](NewDB),
	do.Lazy[*prometheus.Registry](NewRegistry),
	do.Lazy[*di.Container](NewContainer),
	do.Lazy[*auth.TokenManager](NewTokenManager),
	do.Lazy[auth.Blocklist](NewBlocklist),
	do.Lazy[*httpapi.Server](NewHTTPServer),
	do.Lazy[*cobra.Command](Command),
)

// NewConfig loads .env and the environment.
func NewConfig(_ do.Injector) (*config.Config, error) {
	return config.Load()
}

func NewLogger(i do.Injector) (*zap.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return logging.New(cfg.LogLevel, cfg.LogFormat)
}

// NewDB opens the relational store. Callers own closing it.
func NewDB(i do.Injector) (*bun.DB, error) {
	cfg := do.MustInvoke[*config.Config](i)
	db, err := store.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func NewRegistry(_ do.Injector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, nil
}

// NewContainer wires the store, the cached views and the forum service.
func NewContainer(i do.Injector) (*di.Container, error) {
	cfg := do.MustInvoke[*config.Config](i)
	db := do.MustInvoke[*bun.DB](i)
	logger := do.MustInvoke[*zap.Logger](i)
	reg := do.MustInvoke[*prometheus.Registry](i)

	container, err := di.NewContainer(db, cfg.Cache(),
		di.WithLogger(logger),
		di.WithRegisterer(metricsNamespace, reg),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build container: %w", err)
	}
	return container, nil
}

func NewTokenManager(i do.Injector) (*auth.TokenManager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL()), nil
}

// NewBlocklist shares revocations through redis when the view cache does,
// and keeps them in process otherwise.
func NewBlocklist(i do.Injector) (auth.Blocklist, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if cfg.CacheType != cache.BackendRedis {
		return auth.NewMemoryBlocklist(), nil
	}

	client, err := cacheinfra.NewRedisClient(cacheinfra.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create blocklist client: %w", err)
	}
	return auth.NewRedisBlocklist(client), nil
}

func NewHTTPServer(i do.Injector) (*httpapi.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	container := do.MustInvoke[*di.Container](i)

	return httpapi.NewServer(httpapi.Deps{
		Views:          container.Views(),
		Forum:          container.Forum(),
		Tokens:         do.MustInvoke[*auth.TokenManager](i),
		Blocklist:      do.MustInvoke[auth.Blocklist](i),
		Logger:         do.MustInvoke[*zap.Logger](i).Named("http"),
		Gatherer:       do.MustInvoke[*prometheus.Registry](i),
		AllowedOrigins: cfg.AllowedOrigins(),
	}), nil
}
