package auth

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/redis/go-redis/v9"
)

// Blocklist remembers revoked token ids until the token would have expired.
type Blocklist interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const blocklistPrefix = "jti:"

// minRevokeTTL covers tokens whose expiry is already in the past.
const minRevokeTTL = time.Minute

// MemoryBlocklist keeps revoked ids in process.
type MemoryBlocklist struct {
	entries *xsync.MapOf[string, time.Time]
	now     func() time.Time
}

func NewMemoryBlocklist() *MemoryBlocklist {
	return &MemoryBlocklist{entries: xsync.NewMapOf[string, time.Time](), now: time.Now}
}

func (b *MemoryBlocklist) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	until := expiresAt
	if floor := b.now().Add(minRevokeTTL); until.Before(floor) {
		until = floor
	}
	b.entries.Store(jti, until)
	return nil
}

func (b *MemoryBlocklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	until, ok := b.entries.Load(jti)
	if !ok {
		return false, nil
	}
	if !b.now().Before(until) {
		b.entries.Delete(jti)
		return false, nil
	}
	return true, nil
}

// Sweep drops entries whose token has expired. Call it periodically in long
// running processes.
func (b *MemoryBlocklist) Sweep() int {
	now := b.now()
	removed := 0
	b.entries.Range(func(jti string, until time.Time) bool {
		if !now.Before(until) {
			b.entries.Delete(jti)
			removed++
		}
		return true
	})
	return removed
}

// RedisBlocklist shares revocations across processes.
type RedisBlocklist struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisBlocklist(client redis.UniversalClient) *RedisBlocklist {
	return &RedisBlocklist{client: client, now: time.Now}
}

func (b *RedisBlocklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.now())
	if ttl < minRevokeTTL {
		ttl = minRevokeTTL
	}
	return b.client.SetNX(ctx, blocklistPrefix+jti, "1", ttl).Err()
}

func (b *RedisBlocklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blocklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
