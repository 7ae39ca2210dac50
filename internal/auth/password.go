package auth

import (
	"errors"

	"github.com/alexedwards/argon2id"
)

// Hasher hashes and verifies passwords with argon2id.
type Hasher struct {
	params *argon2id.Params
}

// NewHasher uses argon2id.DefaultParams.
func NewHasher() *Hasher {
	return &Hasher{params: argon2id.DefaultParams}
}

// NewHasherWithParams is mostly useful to make tests cheap.
func NewHasherWithParams(p *argon2id.Params) *Hasher {
	return &Hasher{params: p}
}

// Hash returns the encoded $argon2id$v=19$m=... string stored in the users table.
func (h *Hasher) Hash(plain string) (string, error) {
	if h == nil || h.params == nil {
		return "", errors.New("argon2id params not set")
	}
	return argon2id.CreateHash(plain, h.params)
}

// Verify compares plain against an encoded hash.
func (h *Hasher) Verify(plain, encoded string) (bool, error) {
	return argon2id.ComparePasswordAndHash(plain, encoded)
}
