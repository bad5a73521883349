// ABOUTME: OAuth2 login and callback endpoints for the X authorization flow
// ABOUTME: plus application token rotation for logged-in sessions
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"xmarks/metrics"
	"xmarks/models"
	"xmarks/service"
	apperrors "xmarks/utils/errors"
	"xmarks/utils/validator"
)

// Authorizer runs the provider-side OAuth2 flow.
type Authorizer interface {
	BeginAuthorization(ctx context.Context) (string, error)
	CompleteAuthorization(ctx context.Context, state, code string) (*service.AuthResult, error)
}

// TokenRotator rotates application refresh tokens.
type TokenRotator interface {
	Rotate(ctx context.Context, refreshToken string, fetchUser func(ctx context.Context, id uuid.UUID) (*models.User, error)) (*service.TokenPair, error)
}

// UserFetcher loads users for token rotation.
type UserFetcher interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuthHandler handles the OAuth2 endpoints under /v1/auth.
type AuthHandler struct {
	authorizer  Authorizer
	rotator     TokenRotator
	users       UserFetcher
	validator   *validator.Validator
	frontendURL string
	logger      *slog.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(
	authorizer Authorizer,
	rotator TokenRotator,
	users UserFetcher,
	frontendURL string,
	logger *slog.Logger,
) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authorizer:  authorizer,
		rotator:     rotator,
		users:       users,
		validator:   validator.New(),
		frontendURL: frontendURL,
		logger:      logger.With("component", "auth_handler"),
	}
}

// LoginResponse carries the provider authorization URL.
type LoginResponse struct {
	URL string `json:"url"`
}

// HandleLogin starts an authorization flow and returns the URL the frontend
// should send the browser to.
func (h *AuthHandler) HandleLogin(c echo.Context) error {
	authURL, err := h.authorizer.BeginAuthorization(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to begin authorization", "error", err)
		metrics.AuthFlowTotal.WithLabelValues("begin_failed").Inc()
		return respondWithAppError(c, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to start authorization", err))
	}

	metrics.AuthFlowTotal.WithLabelValues("started").Inc()
	return c.JSON(http.StatusOK, LoginResponse{URL: authURL})
}

// HandleCallback completes the authorization flow. The browser always gets
// redirected back to the frontend; failures are reported there as a query
// parameter rather than an error page.
func (h *AuthHandler) HandleCallback(c echo.Context) error {
	ctx := c.Request().Context()

	if reason := c.QueryParam("error"); reason != "" {
		h.logger.Warn("Provider denied authorization", "reason", reason)
		metrics.AuthFlowTotal.WithLabelValues("denied").Inc()
		return h.redirectWithError(c, reason)
	}

	state := c.QueryParam("state")
	code := c.QueryParam("code")
	if state == "" || code == "" {
		metrics.AuthFlowTotal.WithLabelValues("missing_params").Inc()
		return h.redirectWithError(c, "missing_params")
	}

	result, err := h.authorizer.CompleteAuthorization(ctx, state, code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAuthState) {
			metrics.AuthFlowTotal.WithLabelValues("invalid_state").Inc()
			return h.redirectWithError(c, "invalid_state")
		}
		h.logger.Error("Authorization completion failed", "error", err)
		metrics.AuthFlowTotal.WithLabelValues("failed").Inc()
		return h.redirectWithError(c, "auth_failed")
	}

	metrics.AuthFlowTotal.WithLabelValues("completed").Inc()

	target, err := url.Parse(h.frontendURL)
	if err != nil {
		return respondWithAppError(c, apperrors.Wrap(apperrors.ErrCodeInternalError, "invalid frontend url", err))
	}
	target = target.JoinPath("dashboard")
	q := target.Query()
	q.Set("access-token", result.Tokens.AccessToken)
	q.Set("refresh-token", result.Tokens.RefreshToken)
	target.RawQuery = q.Encode()

	return c.Redirect(http.StatusFound, target.String())
}

// RefreshTokenRequest is the body of POST /v1/auth/refresh-token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,min=20"`
}

// HandleRefreshToken rotates an application refresh token into a fresh pair.
// The token comes from the Authorization header when present, otherwise from
// the JSON body.
func (h *AuthHandler) HandleRefreshToken(c echo.Context) error {
	refreshToken := extractBearerToken(c)
	if refreshToken == "" {
		var req RefreshTokenRequest
		if err := c.Bind(&req); err != nil {
			return respondWithAppError(c, apperrors.New(apperrors.ErrCodeBadRequest, "invalid JSON in request body"))
		}
		if err := h.validator.Validate(&req); err != nil {
			return respondWithAppError(c, apperrors.NewValidationError(err.Error()))
		}
		refreshToken = req.RefreshToken
	}

	pair, err := h.rotator.Rotate(c.Request().Context(), refreshToken, h.users.GetByID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExpiredAppToken):
			return respondWithAppError(c, apperrors.New(apperrors.ErrCodeTokenExpired, "refresh token has expired"))
		case errors.Is(err, service.ErrRevokedAppToken):
			return respondWithAppError(c, apperrors.New(apperrors.ErrCodeTokenRevoked, "refresh token has been revoked"))
		case errors.Is(err, service.ErrInvalidAppToken), errors.Is(err, service.ErrWrongTokenKind):
			return respondWithAppError(c, apperrors.New(apperrors.ErrCodeInvalidToken, "invalid refresh token"))
		default:
			h.logger.Error("Token rotation failed", "error", err)
			return respondWithAppError(c, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to rotate token", err))
		}
	}

	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) redirectWithError(c echo.Context, reason string) error {
	target, err := url.Parse(h.frontendURL)
	if err != nil {
		return respondWithAppError(c, apperrors.Wrap(apperrors.ErrCodeInternalError, "invalid frontend url", err))
	}
	target = target.JoinPath("login")
	q := target.Query()
	q.Set("error", reason)
	target.RawQuery = q.Encode()
	return c.Redirect(http.StatusFound, target.String())
}
