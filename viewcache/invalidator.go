package viewcache

import (
	"context"

	"go.uber.org/zap"

	"github.com/goliatone/go-forum-cache/cache"
)

// Invalidator deletes the cached views a committed write made stale.
// It never fails the write: backend errors are logged and counted.
type Invalidator struct {
	cache   *cache.Service
	logger  *zap.Logger
	metrics *Metrics
}

// NewInvalidator returns an Invalidator over cacheService. logger and metrics
// may be nil.
func NewInvalidator(cacheService *cache.Service, logger *zap.Logger, metrics *Metrics) *Invalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{cache: cacheService, logger: logger, metrics: metrics}
}

// Invalidate removes every key derived from m and returns the keys it asked
// the backend to delete.
func (i *Invalidator) Invalidate(ctx context.Context, m Mutation) []string {
	keys := KeysFor(i.cache.Keys(), m)
	if len(keys) == 0 {
		return nil
	}

	i.metrics.observeInvalidation(m.Kind, len(keys))
	if err := i.cache.Invalidate(ctx, keys...); err != nil {
		i.logger.Error("cache invalidation failed, views may be stale until TTL",
			zap.Stringer("mutation", m.Kind),
			zap.Strings("keys", keys),
			zap.Duration("ttl", i.cache.TTL()),
			zap.Error(err),
		)
		return keys
	}

	i.logger.Debug("cache invalidated", zap.Stringer("mutation", m.Kind), zap.Strings("keys", keys))
	return keys
}

// Prime stores a freshly built single-entity view so the first read after a
// create is a hit.
func (i *Invalidator) Prime(ctx context.Context, kind cache.ViewKind, discriminator any, view any) {
	key := i.cache.Keys().KeyFor(kind, discriminator)
	i.cache.Store(ctx, key, view)
}
