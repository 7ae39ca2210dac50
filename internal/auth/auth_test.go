package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cheapHasher() *Hasher {
	params := *argon2id.DefaultParams
	params.Memory = 8 * 1024
	params.Iterations = 1
	return NewHasherWithParams(&params)
}

func TestHasher_HashVerify(t *testing.T) {
	h := cheapHasher()

	encoded, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.Contains(t, encoded, "$argon2id$")

	ok, err := h.Verify("correct horse", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("battery staple", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_NilParams(t *testing.T) {
	_, err := NewHasherWithParams(nil).Hash("x")
	assert.Error(t, err)
}

func TestTokenManager_IssueParse(t *testing.T) {
	m := NewTokenManager("secret", "forum", time.Hour)

	raw, issued, err := m.Issue(7, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.JTI)

	claims, err := m.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, issued.JTI, claims.JTI)
	assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt, time.Second)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager("secret", "forum", time.Hour)
	raw, _, err := m.Issue(1, "alice")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenManager("other", "forum", time.Hour).Parse(raw)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := NewTokenManager("secret", "elsewhere", time.Hour).Parse(raw)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenManager("secret", "forum", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(raw)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.Error(t, err)
	})
}

func TestMemoryBlocklist(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewMemoryBlocklist()
	b.now = func() time.Time { return now }

	revoked, err := b.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, b.Revoke(ctx, "a", now.Add(time.Hour)))
	revoked, err = b.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	// already expired tokens stay blocked for the minimum window
	require.NoError(t, b.Revoke(ctx, "b", now.Add(-time.Hour)))
	revoked, _ = b.IsRevoked(ctx, "b")
	assert.True(t, revoked)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, b.Sweep())
	revoked, _ = b.IsRevoked(ctx, "a")
	assert.False(t, revoked)
}
