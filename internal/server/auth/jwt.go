// Package auth holds the stateless pieces of authentication: the access token
// codec, the role permission table, the fixed-credential Basic verifier and
// password hashing.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAccessTokenTTL is used when a codec is built with a zero TTL.
const DefaultAccessTokenTTL = 3600 * time.Second

// Claims is the validated content of an access token.
type Claims struct {
	UserID    uuid.UUID
	Role      models.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the JWT wire form: sub carries the user id.
type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenCodec mints and validates HS256 access tokens. It is safe for
// concurrent use; the key never changes after construction.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    timex.Clock
}

func NewTokenCodec(secret []byte, ttl time.Duration, clock timex.Clock) *TokenCodec {
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	if clock == nil {
		clock = timex.SystemClock
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenCodec{secret: key, ttl: ttl, now: clock}
}

// TTL is the lifetime of minted tokens.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Mint signs a token for userID and role valid from now until now+TTL.
func (c *TokenCodec) Mint(userID uuid.UUID, role models.Role) (string, error) {
	if !role.Valid() {
		return "", fmt.Errorf("mint: unknown role %q", role)
	}

	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Role: role.String(),
	})

	return token.SignedString(c.secret)
}

// Validate checks structure, signature and expiry. A token is expired once
// the clock reaches its exp claim. Errors are common.ErrMalformed,
// common.ErrSignatureInvalid or common.ErrTokenExpired.
func (c *TokenCodec) Validate(tokenString string) (*Claims, error) {
	tc := &tokenClaims{}

	_, err := jwt.ParseWithClaims(tokenString, tc,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	userID, err := uuid.Parse(tc.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject", common.ErrMalformed)
	}
	role, err := models.ParseRole(tc.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformed, err)
	}

	claims := &Claims{UserID: userID, Role: role, ExpiresAt: tc.ExpiresAt.Time}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time
	}
	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return common.ErrSignatureInvalid
	default:
		return fmt.Errorf("%w: %v", common.ErrMalformed, err)
	}
}
