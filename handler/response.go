package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	apperrors "xmarks/utils/errors"
)

// ErrorResponse is the JSON shape of every error this API returns.
type ErrorResponse struct {
	Status    string    `json:"status"`
	ErrorCode string    `json:"error_code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func respondWithAppError(c echo.Context, appErr *apperrors.AppError) error {
	return c.JSON(apperrors.GetHTTPStatusCode(appErr), ErrorResponse{
		Status:    "error",
		ErrorCode: string(appErr.Code),
		Message:   appErr.Message,
		Details:   appErr.Details,
		Timestamp: time.Now().UTC(),
	})
}
