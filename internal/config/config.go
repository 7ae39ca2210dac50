// Package config loads process settings from the environment and an optional
// .env file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/goliatone/go-forum-cache/cache"
	"github.com/goliatone/go-forum-cache/internal/cacheinfra"
	"github.com/goliatone/go-forum-cache/store"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

type Config struct {
	EnvState string `mapstructure:"-"`

	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	DBDriver string `mapstructure:"DB_DRIVER"`
	DBDSN    string `mapstructure:"DB_DSN"`

	CacheType    string `mapstructure:"CACHE_TYPE"`
	CacheTimeout int    `mapstructure:"CACHE_DEFAULT_TIMEOUT"` // seconds
	CacheCodec   string `mapstructure:"CACHE_CODEC"`
	CacheNS      string `mapstructure:"CACHE_NAMESPACE"`
	CacheCap     int    `mapstructure:"CACHE_CAPACITY"`
	CacheShards  int    `mapstructure:"CACHE_SHARDS"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	JWTSecret  string `mapstructure:"JWT_SECRET"`
	JWTIssuer  string `mapstructure:"JWT_ISSUER"`
	JWTExpires int    `mapstructure:"JWT_ACCESS_TOKEN_EXPIRES"` // seconds

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

var defaults = map[string]any{
	"HTTP_ADDR":                ":8080",
	"DB_DRIVER":                store.DriverSQLite,
	"DB_DSN":                   "file:forum.db?cache=shared",
	"CACHE_TYPE":               cache.BackendMemory,
	"CACHE_DEFAULT_TIMEOUT":    300,
	"CACHE_CODEC":              cache.CodecJSON,
	"CACHE_NAMESPACE":          "",
	"CACHE_CAPACITY":           cacheinfra.DefaultConfig().Capacity,
	"CACHE_SHARDS":             cacheinfra.DefaultConfig().NumShards,
	"REDIS_ADDR":               "localhost:6379",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"JWT_SECRET":               "",
	"JWT_ISSUER":               "forum",
	"JWT_ACCESS_TOKEN_EXPIRES": 3600,
	"LOG_LEVEL":                "info",
	"LOG_FORMAT":               "json",
	"CORS_ALLOWED_ORIGINS":     "*",
}

// Load reads .env when present and then the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is ignored.
// Variables already set in the environment win over the file.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	state := strings.ToLower(strings.TrimSpace(os.Getenv("ENV_STATE")))
	prefix := ""
	switch state {
	case EnvDev:
		prefix = "DEV_"
	case EnvProd:
		prefix = "PROD_"
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key, prefix+key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.EnvState = state

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting as a *cacheinfra.ConfigError.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.DBDriver, validation.Required, validation.In(store.DriverSQLite, store.DriverPostgres)),
		validation.Field(&c.DBDSN, validation.Required),
		validation.Field(&c.CacheType, validation.Required, validation.In(cache.BackendMemory, cache.BackendRedis)),
		validation.Field(&c.CacheTimeout, validation.Min(1)),
		validation.Field(&c.CacheCodec, validation.In(cache.CodecJSON, cache.CodecMsgpack)),
		validation.Field(&c.JWTSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.JWTExpires, validation.Min(60)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("json", "console")),
	)
	if err != nil {
		return firstConfigError(err)
	}
	return c.Cache().Validate()
}

func firstConfigError(err error) error {
	errs, ok := err.(validation.Errors)
	if !ok {
		return err
	}
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	// deterministic pick
	first := fields[0]
	for _, f := range fields[1:] {
		if f < first {
			first = f
		}
	}
	return &cacheinfra.ConfigError{Field: first, Message: errs[first].Error()}
}

// Cache maps the cache settings onto cache.Config.
func (c *Config) Cache() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.Type = c.CacheType
	cfg.TTL = time.Duration(c.CacheTimeout) * time.Second
	cfg.Codec = c.CacheCodec
	cfg.Namespace = c.CacheNS
	if c.CacheCap > 0 {
		cfg.Capacity = c.CacheCap
	}
	if c.CacheShards > 0 {
		cfg.NumShards = c.CacheShards
	}
	cfg.Redis = cache.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
	return cfg
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWTExpires) * time.Second
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// String masks secrets.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  EnvState: %s\n", c.EnvState)
	fmt.Fprintf(&sb, "  HTTPAddr: %s\n", c.HTTPAddr)
	fmt.Fprintf(&sb, "  DBDriver: %s\n", c.DBDriver)
	fmt.Fprintf(&sb, "  CacheType: %s\n", c.CacheType)
	fmt.Fprintf(&sb, "  CacheTimeout: %ds\n", c.CacheTimeout)
	fmt.Fprintf(&sb, "  CacheCodec: %s\n", c.CacheCodec)
	fmt.Fprintf(&sb, "  RedisAddr: %s\n", c.RedisAddr)
	fmt.Fprintf(&sb, "  JWTSecret: %s\n", mask(c.JWTSecret))
	fmt.Fprintf(&sb, "  RedisPassword: %s\n", mask(c.RedisPassword))
	fmt.Fprintf(&sb, "  LogLevel: %s\n", c.LogLevel)
	return sb.String()
}

func mask(s string) string {
	if s == "" {
		return "(empty)"
	}
	return "********"
}
