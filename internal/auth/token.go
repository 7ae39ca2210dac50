package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is what handlers need to know about the caller.
type Claims struct {
	JTI       string
	UserID    int64
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenManager issues and parses HS256 access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

type jwtClaims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TTL is the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Issue signs a new token for the user.
func (m *TokenManager) Issue(userID int64, username string) (string, Claims, error) {
	now := m.now().UTC()
	jti := uuid.NewString()

	cl := jwtClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(m.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, toClaims(cl), nil
}

// Parse validates signature, issuer and expiry.
func (m *TokenManager) Parse(raw string) (Claims, error) {
	var out jwtClaims
	tkn, err := jwt.ParseWithClaims(raw, &out, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Claims{}, err
	}
	if !tkn.Valid {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}
	if out.ID == "" || out.Username == "" {
		return Claims{}, errors.New("token is missing required claims")
	}
	return toClaims(out), nil
}

func toClaims(cl jwtClaims) Claims {
	c := Claims{JTI: cl.ID, UserID: cl.UserID, Username: cl.Username}
	if cl.IssuedAt != nil {
		c.IssuedAt = cl.IssuedAt.Time
	}
	if cl.ExpiresAt != nil {
		c.ExpiresAt = cl.ExpiresAt.Time
	}
	return c
}
