package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"xmarks/repository"
	apperrors "xmarks/utils/errors"
)

// UserHandler serves GET /v1/users/me.
type UserHandler struct {
	users  UserFetcher
	logger *slog.Logger
}

// NewUserHandler creates a user handler.
func NewUserHandler(users UserFetcher, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		users:  users,
		logger: logger.With("component", "user_handler"),
	}
}

// HandleMe returns the authenticated user's profile.
func (h *UserHandler) HandleMe(c echo.Context) error {
	userID, err := CurrentUserID(c)
	if err != nil {
		return respondWithAppError(c, apperrors.ErrUnauthorized)
	}

	user, err := h.users.GetByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return respondWithAppError(c, apperrors.ErrUserNotFound)
		}
		h.logger.Error("Failed to load user", "error", err, "user_id", userID)
		return respondWithAppError(c, apperrors.NewDatabaseError(err))
	}

	return c.JSON(http.StatusOK, user)
}
