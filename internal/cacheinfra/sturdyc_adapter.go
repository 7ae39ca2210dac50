package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// entry is what the sturdyc client stores. sturdyc applies one TTL to the
// whole client, so the per-call expiry travels with the value.
type entry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryBackend is an in-process cache backend on top of a sturdyc client.
type MemoryBackend struct {
	client *sturdyc.Client[entry]
	maxTTL time.Duration
	now    func() time.Time
}

// NewMemoryBackend validates cfg and builds the sturdyc client.
//
// Version compatibility note: This implementation assumes sturdyc v1.x API.
func NewMemoryBackend(cfg Config) (*MemoryBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &MemoryBackend{client: client, maxTTL: cfg.TTL, now: time.Now}, nil
}

// Get returns the stored bytes for key. Entries past their own expiry are
// dropped and reported as missing.
func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	e, ok := m.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		m.client.Delete(key)
		return nil, false, nil
	}
	return e.data, true, nil
}

// Set stores a private copy of value for ttl, clamped to the client TTL.
// A non-positive ttl uses the client TTL.
func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 || ttl > m.maxTTL {
		ttl = m.maxTTL
	}

	data := make([]byte, len(value))
	copy(data, value)
	m.client.Set(key, entry{data: data, expiresAt: m.now().Add(ttl)})
	return nil
}

// Delete removes key. Missing keys are ignored.
func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	return m.DeleteMany(ctx, key)
}

// DeleteMany removes every key. Missing keys are ignored.
func (m *MemoryBackend) DeleteMany(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, key := range keys {
		m.client.Delete(key)
	}
	return nil
}

// Keys lists the keys currently held, including ones past their own expiry
// that have not been read since.
func (m *MemoryBackend) Keys() []string {
	return m.client.ScanKeys()
}

// Len reports the live entry count as seen by sturdyc.
func (m *MemoryBackend) Len() int {
	return m.client.Size()
}

// Close is a no-op; the sturdyc client has no resources to release.
func (m *MemoryBackend) Close() error {
	return nil
}
