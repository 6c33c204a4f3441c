package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const identityKey contextKey = "auth_identity"

// Identity is the authenticated caller attached to the request context. It is
// loaded from the store on every request rather than trusted from the token.
type Identity struct {
	ID      uuid.UUID
	Email   string
	IsAdmin bool
}

// IdentitySource resolves a user ID from a verified token into a live
// identity. It returns an error when the user no longer exists.
type IdentitySource interface {
	Identity(ctx context.Context, id uuid.UUID) (Identity, error)
}

// RequireAuth verifies the bearer token and loads the caller's identity from
// the store. Missing, malformed, expired, or orphaned tokens are 401.
func RequireAuth(issuer *TokenIssuer, src IdentitySource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
			}

			userID, err := issuer.Verify(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			ident, err := src.Identity(c.Request().Context(), userID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			ctx := context.WithValue(c.Request().Context(), identityKey, ident)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireAdmin rejects authenticated callers whose live record lacks the
// admin flag. Must run after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := IdentityFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}
			if !ident.IsAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
			}
			return next(c)
		}
	}
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	return ident, ok
}

// UserIDFromContext returns the authenticated user's ID, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	ident, _ := ctx.Value(identityKey).(Identity)
	return ident.ID
}

// WithIdentity returns a context carrying the given identity. Intended for
// tests that exercise handlers without the middleware stack.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}
