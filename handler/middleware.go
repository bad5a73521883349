// ABOUTME: Echo middleware enforcing application access tokens on protected
// ABOUTME: routes, and helpers to read the authenticated user from context
package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"xmarks/service"
	apperrors "xmarks/utils/errors"
)

const (
	contextKeyUserID = "xmarks.user_id"
	contextKeyXID    = "xmarks.x_id"
)

// AppTokenVerifier verifies application tokens.
type AppTokenVerifier interface {
	Verify(ctx context.Context, tokenString string, wantRefresh bool) (*service.AppClaims, error)
}

// RateLimiter gates requests per client IP.
type RateLimiter interface {
	Allow(clientIP string) bool
}

// RateLimit rejects requests from clients over their rate limit.
func RateLimit(limiter RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow(c.RealIP()) {
				return respondWithAppError(c, apperrors.New(apperrors.ErrCodeRateLimitExceeded, "rate limit exceeded"))
			}
			return next(c)
		}
	}
}

// RequireAuth rejects requests without a valid access token and places the
// caller's identity in the echo context.
func RequireAuth(verifier AppTokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c)
			if token == "" {
				return respondWithAppError(c, apperrors.New(apperrors.ErrCodeUnauthorized, "Authorization header with Bearer token is required"))
			}

			claims, err := verifier.Verify(c.Request().Context(), token, false)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrExpiredAppToken):
					return respondWithAppError(c, apperrors.ErrTokenExpired)
				case errors.Is(err, service.ErrRevokedAppToken):
					return respondWithAppError(c, apperrors.ErrTokenRevoked)
				default:
					return respondWithAppError(c, apperrors.ErrInvalidToken)
				}
			}

			userID, err := claims.UserID()
			if err != nil {
				return respondWithAppError(c, apperrors.ErrInvalidToken)
			}

			c.Set(contextKeyUserID, userID)
			c.Set(contextKeyXID, claims.XID)
			return next(c)
		}
	}
}

// CurrentUserID returns the authenticated user's id set by RequireAuth.
func CurrentUserID(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(contextKeyUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("no authenticated user in context")
	}
	return id, nil
}

func extractBearerToken(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return parts[1]
}
