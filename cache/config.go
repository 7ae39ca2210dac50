package cache

import (
	"fmt"
	"time"

	"github.com/goliatone/go-forum-cache/internal/cacheinfra"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	// Type selects the backend: "memory" (default) or "redis".
	Type string
	// TTL is the lifetime of every stored view.
	TTL time.Duration
	// Codec names the value encoding: "json" (default) or "msgpack".
	Codec string
	// Namespace prefixes every key when several deployments share one cache.
	Namespace string

	Capacity           int
	NumShards          int
	EvictionPercentage int
	EvictionInterval   time.Duration

	Redis RedisConfig
}

// RedisConfig mirrors the redis backend connection settings.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if _, err := CodecByName(c.Codec); err != nil {
		return &cacheinfra.ConfigError{Field: "Codec", Message: "must be json or msgpack"}
	}
	switch c.Type {
	case "", BackendMemory:
		return c.toInternal().Validate()
	case BackendRedis:
		if c.TTL <= 0 {
			return &cacheinfra.ConfigError{Field: "TTL", Message: "must be greater than 0"}
		}
		return c.redisInternal().Validate()
	default:
		return &cacheinfra.ConfigError{Field: "Type", Message: "must be memory or redis"}
	}
}

// NewBackend constructs the configured backend. Backends that hold
// connections also implement io.Closer.
func NewBackend(cfg Config) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case BackendRedis:
		client, err := cacheinfra.NewRedisClient(cfg.redisInternal())
		if err != nil {
			return nil, fmt.Errorf("cache: redis backend: %w", err)
		}
		return cacheinfra.NewRedisBackend(client), nil
	default:
		backend, err := cacheinfra.NewMemoryBackend(cfg.toInternal())
		if err != nil {
			return nil, err
		}
		return backend, nil
	}
}

// NewServiceFromConfig builds the backend and wraps it in a Service using
// the configured TTL, codec and namespace.
func NewServiceFromConfig(cfg Config, opts ...Option) (*Service, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	codec, err := CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	base := []Option{WithCodec(codec), WithKeyRegistry(NewKeyRegistry(cfg.Namespace))}
	return NewService(backend, cfg.TTL, append(base, opts...)...), nil
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func (c Config) redisInternal() cacheinfra.RedisConfig {
	return cacheinfra.RedisConfig{
		Addr:        c.Redis.Addr,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		DialTimeout: c.Redis.DialTimeout,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Type:               BackendMemory,
		TTL:                cfg.TTL,
		Codec:              CodecJSON,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
