package cacheinfra

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}

	if cfg.TTL != 5*time.Minute {
		t.Errorf("expected TTL to be 5 minutes, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if len(cfg.ToSturdycOptions()) != 0 {
		t.Error("expected no optional sturdyc options by default")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid default config",
			cfg:       DefaultConfig(),
			wantError: false,
		},
		{
			name:      "invalid capacity - zero",
			cfg:       Config{Capacity: 0, NumShards: 256, TTL: time.Minute, EvictionPercentage: 10},
			wantError: true,
			errorMsg:  "must be greater than 0",
		},
		{
			name:      "invalid num shards - zero",
			cfg:       Config{Capacity: 1000, NumShards: 0, TTL: time.Minute, EvictionPercentage: 10},
			wantError: true,
			errorMsg:  "must be greater than 0",
		},
		{
			name:      "invalid TTL - zero",
			cfg:       Config{Capacity: 1000, NumShards: 256, TTL: 0, EvictionPercentage: 10},
			wantError: true,
			errorMsg:  "must be greater than 0",
		},
		{
			name:      "invalid eviction percentage - too low",
			cfg:       Config{Capacity: 1000, NumShards: 256, TTL: time.Minute, EvictionPercentage: 0},
			wantError: true,
			errorMsg:  "must be between 1 and 100",
		},
		{
			name:      "invalid eviction percentage - too high",
			cfg:       Config{Capacity: 1000, NumShards: 256, TTL: time.Minute, EvictionPercentage: 101},
			wantError: true,
			errorMsg:  "must be between 1 and 100",
		},
		{
			name:      "invalid eviction interval - negative",
			cfg:       Config{Capacity: 1000, NumShards: 256, TTL: time.Minute, EvictionPercentage: 10, EvictionInterval: -time.Second},
			wantError: true,
			errorMsg:  "must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()

			if tt.wantError {
				if err == nil {
					t.Error("expected error but got none")
					return
				}

				var configErr *ConfigError
				if !errors.As(err, &configErr) {
					t.Errorf("expected ConfigError, got %T", err)
					return
				}

				if configErr.Message != tt.errorMsg {
					t.Errorf("expected error message %q, got %q", tt.errorMsg, configErr.Message)
				}
			} else if err != nil {
				t.Errorf("expected no error but got: %v", err)
			}
		})
	}
}

func TestRedisConfig_Validate(t *testing.T) {
	if err := (RedisConfig{}).Validate(); err == nil {
		t.Error("expected empty addr to be rejected")
	}
	if err := (RedisConfig{Addr: "localhost:6379", DB: -1}).Validate(); err == nil {
		t.Error("expected negative db to be rejected")
	}
	if err := (RedisConfig{Addr: "localhost:6379"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	want := "config error in field TTL: must be greater than 0"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func newTestMemoryBackend(t *testing.T) *MemoryBackend {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Capacity = 100
	cfg.NumShards = 4
	backend, err := NewMemoryBackend(cfg)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	return backend
}

func TestNewMemoryBackend_InvalidConfig(t *testing.T) {
	_, err := NewMemoryBackend(Config{})
	if err == nil {
		t.Fatal("expected error for zero config")
	}
}

func TestMemoryBackend_SetGet(t *testing.T) {
	backend := newTestMemoryBackend(t)
	ctx := context.Background()

	if _, ok, err := backend.Get(ctx, "post:1"); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	value := []byte(`{"id":1}`)
	if err := backend.Set(ctx, "post:1", value, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value[0] = 'X'

	got, ok, err := backend.Get(ctx, "post:1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != `{"id":1}` {
		t.Errorf("stored value must not alias caller buffer, got %q", got)
	}
}

func TestMemoryBackend_PerCallTTL(t *testing.T) {
	backend := newTestMemoryBackend(t)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }

	if err := backend.Set(ctx, "short", []byte("a"), 10*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := backend.Set(ctx, "clamped", []byte("b"), time.Hour); err != nil {
		t.Fatal(err)
	}

	now = now.Add(11 * time.Second)
	if _, ok, _ := backend.Get(ctx, "short"); ok {
		t.Error("expected short entry to expire")
	}
	if _, ok, _ := backend.Get(ctx, "clamped"); !ok {
		t.Error("expected clamped entry to still be live")
	}

	now = now.Add(5 * time.Minute)
	if _, ok, _ := backend.Get(ctx, "clamped"); ok {
		t.Error("expected entry beyond client TTL to expire")
	}
}

func TestMemoryBackend_DeleteMany(t *testing.T) {
	backend := newTestMemoryBackend(t)
	ctx := context.Background()

	for _, key := range []string{"post:1", "posts:all", "profile:alice"} {
		if err := backend.Set(ctx, key, []byte("v"), time.Minute); err != nil {
			t.Fatal(err)
		}
	}

	if err := backend.DeleteMany(ctx, "post:1", "posts:all", "never-set"); err != nil {
		t.Fatalf("delete of missing key must be a no-op, got %v", err)
	}
	if err := backend.Delete(ctx, "also-missing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok, _ := backend.Get(ctx, "post:1"); ok {
		t.Error("post:1 should be gone")
	}
	if _, ok, _ := backend.Get(ctx, "profile:alice"); !ok {
		t.Error("profile:alice should survive")
	}
	if keys := backend.Keys(); len(keys) != 1 || keys[0] != "profile:alice" {
		t.Errorf("unexpected remaining keys %v", keys)
	}
	if backend.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", backend.Len())
	}
}

func TestMemoryBackend_CanceledContext(t *testing.T) {
	backend := newTestMemoryBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := backend.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled from Get, got %v", err)
	}
	if err := backend.Set(ctx, "k", nil, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled from Set, got %v", err)
	}
	if err := backend.DeleteMany(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled from DeleteMany, got %v", err)
	}
}
