// Package auth issues and verifies the bearer tokens that protect the API,
// and provides the Echo middleware that resolves a token back to a live user
// record. Tokens carry only the user ID; the admin flag is re-read from the
// store on every request so revoking admin access takes effect immediately.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the JWT payload. Only the registered subject (user ID) is used.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens with a shared secret.
type TokenIssuer struct {
	secret   []byte
	validity time.Duration
}

func NewTokenIssuer(secret []byte, validity time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, validity: validity}
}

// Issue creates a signed token for the given user ID.
func (t *TokenIssuer) Issue(userID uuid.UUID) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.validity)),
		},
	})
	return token.SignedString(t.secret)
}

// Verify parses a token string and returns the user ID it was issued for.
// Malformed, expired, and badly signed tokens all return ErrInvalidToken.
func (t *TokenIssuer) Verify(tokenStr string) (uuid.UUID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
