package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Backend is the byte-oriented key/value store the view layer caches into.
// Deleting a key that does not exist is a no-op, never an error.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys ...string) error
}

// FetchFn is the function signature GetOrFetch expects when building from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Observer receives cache outcomes. All methods must be safe for concurrent use.
type Observer interface {
	Hit(kind ViewKind)
	Miss(kind ViewKind)
	Failure(op string)
}

type nopObserver struct{}

func (nopObserver) Hit(ViewKind)   {}
func (nopObserver) Miss(ViewKind)  {}
func (nopObserver) Failure(string) {}

// Service bundles a backend with the codec, key registry and default TTL
// shared by every cached view.
type Service struct {
	backend  Backend
	codec    Codec
	keys     KeyRegistry
	ttl      time.Duration
	logger   *zap.Logger
	observer Observer
}

// Option configures a Service.
type Option func(*Service)

// WithCodec replaces the default JSON codec. A nil codec is ignored.
func WithCodec(codec Codec) Option {
	return func(s *Service) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithKeyRegistry sets the registry used to build every key, e.g. one with a namespace.
func WithKeyRegistry(keys KeyRegistry) Option {
	return func(s *Service) { s.keys = keys }
}

// WithLogger sets the logger for backend and codec failures. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver sets the receiver of hit, miss and failure events. A nil observer is ignored.
func WithObserver(observer Observer) Option {
	return func(s *Service) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// NewService wraps backend. ttl is the lifetime given to every stored view.
func NewService(backend Backend, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		backend:  backend,
		codec:    JSONCodec{},
		ttl:      ttl,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the wrapped backend.
func (s *Service) Backend() Backend { return s.backend }

// Keys returns the key registry every view key is built with.
func (s *Service) Keys() KeyRegistry { return s.keys }

// TTL returns the lifetime given to stored views.
func (s *Service) TTL() time.Duration { return s.ttl }

// lookup decodes the cached value for key into dst. Backend and decode
// failures are logged and reported as a miss.
func (s *Service) lookup(ctx context.Context, key string, dst any) bool {
	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.observer.Failure("get")
		s.logger.Warn("cache get failed, treating as miss", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := s.codec.Unmarshal(data, dst); err != nil {
		s.observer.Failure("decode")
		s.logger.Warn("cache entry undecodable, rebuilding", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Store encodes value and writes it under key with the default TTL.
// Failures are logged and otherwise ignored.
func (s *Service) Store(ctx context.Context, key string, value any) {
	data, err := s.codec.Marshal(value)
	if err != nil {
		s.observer.Failure("encode")
		s.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.backend.Set(ctx, key, data, s.ttl); err != nil {
		s.observer.Failure("set")
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate deletes keys in one backend call and returns the backend error,
// if any, so callers can decide how loudly to report it.
func (s *Service) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.backend.DeleteMany(ctx, keys...); err != nil {
		s.observer.Failure("delete")
		return err
	}
	return nil
}

// GetOrFetch returns the cached view for (kind, discriminator) or builds it
// with fetchFn and stores the result. Errors from fetchFn are returned
// unchanged and never cached. Times in a fresh view are converted to UTC so
// it reads the same as its cached copy under every codec.
func GetOrFetch[T any](ctx context.Context, s *Service, kind ViewKind, discriminator any, fetchFn FetchFn[T]) (T, error) {
	key := s.keys.KeyFor(kind, discriminator)

	var cached T
	if s.lookup(ctx, key, &cached) {
		s.observer.Hit(kind)
		s.logger.Debug("cache hit", zap.String("key", key))
		return cached, nil
	}
	s.observer.Miss(kind)
	s.logger.Debug("cache miss", zap.String("key", key))

	fresh, err := fetchFn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	normalizeTimes(&fresh)
	s.Store(ctx, key, fresh)
	return fresh, nil
}
