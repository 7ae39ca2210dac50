package di

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/goliatone/go-forum-cache/cache"
	"github.com/goliatone/go-forum-cache/internal/auth"
	"github.com/goliatone/go-forum-cache/service"
	"github.com/goliatone/go-forum-cache/store"
	"github.com/goliatone/go-forum-cache/viewcache"
	"github.com/goliatone/go-forum-cache/views"
)

// Container wires the forum core: entity store, view builder, view cache,
// invalidator and write service. Every getter returns the same instance.
type Container struct {
	config       cache.Config
	cacheService *cache.Service
	metrics      *viewcache.Metrics
	store        *store.Store
	builder      *views.Builder
	views        *viewcache.CachedViews
	invalidator  *viewcache.Invalidator
	forum        *service.Forum
}

type options struct {
	logger     *zap.Logger
	registerer prometheus.Registerer
	namespace  string
	hasher     service.PasswordHasher
}

// Option customises NewContainer.
type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers the view cache metrics with reg under namespace.
func WithRegisterer(namespace string, reg prometheus.Registerer) Option {
	return func(o *options) {
		o.namespace = namespace
		o.registerer = reg
	}
}

func WithHasher(hasher service.PasswordHasher) Option {
	return func(o *options) { o.hasher = hasher }
}

// NewContainer builds the forum over db using the given cache configuration.
func NewContainer(db *bun.DB, config cache.Config, opts ...Option) (*Container, error) {
	o := options{logger: zap.NewNop(), namespace: "forum"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.hasher == nil {
		o.hasher = auth.NewHasher()
	}

	metrics := viewcache.NewMetrics(o.namespace, o.registerer)
	cacheService, err := cache.NewServiceFromConfig(config,
		cache.WithLogger(o.logger.Named("cache")),
		cache.WithObserver(metrics),
	)
	if err != nil {
		return nil, err
	}

	st := store.New(db)
	builder := views.NewBuilder(st)
	invalidator := viewcache.NewInvalidator(cacheService, o.logger.Named("invalidator"), metrics)

	return &Container{
		config:       config,
		cacheService: cacheService,
		metrics:      metrics,
		store:        st,
		builder:      builder,
		views:        viewcache.New(builder, cacheService),
		invalidator:  invalidator,
		forum: service.New(service.Deps{
			Store:       st,
			Builder:     builder,
			Invalidator: invalidator,
			Hasher:      o.hasher,
			Logger:      o.logger.Named("forum"),
		}),
	}, nil
}

// NewContainerWithDefaults builds the forum over db with the in-memory cache
// and its default settings.
func NewContainerWithDefaults(db *bun.DB, opts ...Option) (*Container, error) {
	return NewContainer(db, cache.DefaultConfig(), opts...)
}

func (c *Container) CacheService() *cache.Service { return c.cacheService }

func (c *Container) Metrics() *viewcache.Metrics { return c.metrics }

func (c *Container) Store() *store.Store { return c.store }

// Builder returns the uncached view builder.
func (c *Container) Builder() *views.Builder { return c.builder }

// Views returns the read-through cached views.
func (c *Container) Views() *viewcache.CachedViews { return c.views }

func (c *Container) Invalidator() *viewcache.Invalidator { return c.invalidator }

func (c *Container) Forum() *service.Forum { return c.forum }

// Config returns the cache configuration the container was built with.
func (c *Container) Config() cache.Config { return c.config }
