// ABOUTME: Bookmark read API, both the live provider fetch and the synced
// ABOUTME: listing from storage
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"xmarks/models"
	"xmarks/service"
	apperrors "xmarks/utils/errors"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
	maxFetchResults  = 400
)

// BookmarkReader serves bookmark reads for the API.
type BookmarkReader interface {
	FetchPage(ctx context.Context, userID uuid.UUID, maxResults int, paginationToken string) (*models.BookmarkPage, error)
	ListSynced(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BookmarkEntry, error)
}

// BookmarkHandler serves the /v1/bookmarks endpoints.
type BookmarkHandler struct {
	reader BookmarkReader
	logger *slog.Logger
}

// NewBookmarkHandler creates a bookmark handler.
func NewBookmarkHandler(reader BookmarkReader, logger *slog.Logger) *BookmarkHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookmarkHandler{
		reader: reader,
		logger: logger.With("component", "bookmark_handler"),
	}
}

// HandleFetch returns one live page of the caller's bookmarks from the
// provider. A user without a stored provider token gets a 404.
func (h *BookmarkHandler) HandleFetch(c echo.Context) error {
	userID, err := CurrentUserID(c)
	if err != nil {
		return respondWithAppError(c, apperrors.ErrUnauthorized)
	}

	// Zero means "not specified": the service picks its configured page size
	maxResults := 0
	if raw := c.QueryParam("max_results"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxFetchResults {
			return respondWithAppError(c, apperrors.NewValidationError("max_results must be an integer between 1 and 400"))
		}
		maxResults = parsed
	}

	page, err := h.reader.FetchPage(c.Request().Context(), userID, maxResults, c.QueryParam("pagination_token"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoTokenFound):
			return respondWithAppError(c, apperrors.New(apperrors.ErrCodeNoProviderToken, "no provider token stored, authorization required"))
		case errors.Is(err, service.ErrRefreshFailed):
			return respondWithAppError(c, apperrors.New(apperrors.ErrCodeAuthFailed, "provider authorization expired, re-login required"))
		default:
			h.logger.Error("Failed to fetch bookmarks", "error", err, "user_id", userID)
			return respondWithAppError(c, apperrors.NewProviderError(err))
		}
	}

	return c.JSON(http.StatusOK, page)
}

// BookmarkListResponse is the JSON shape of a synced bookmark listing.
type BookmarkListResponse struct {
	Bookmarks []models.BookmarkEntry `json:"bookmarks"`
	Count     int                    `json:"count"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
}

// HandleListSynced returns the caller's stored bookmarks, newest first.
func (h *BookmarkHandler) HandleListSynced(c echo.Context) error {
	userID, err := CurrentUserID(c)
	if err != nil {
		return respondWithAppError(c, apperrors.ErrUnauthorized)
	}

	limit, err := queryInt(c, "limit", defaultPageLimit)
	if err != nil || limit < 1 || limit > maxPageLimit {
		return respondWithAppError(c, apperrors.NewValidationError("limit must be an integer between 1 and 200"))
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		return respondWithAppError(c, apperrors.NewValidationError("offset must be a non-negative integer"))
	}

	entries, err := h.reader.ListSynced(c.Request().Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list bookmarks", "error", err, "user_id", userID)
		return respondWithAppError(c, apperrors.NewDatabaseError(err))
	}

	if entries == nil {
		entries = []models.BookmarkEntry{}
	}

	return c.JSON(http.StatusOK, BookmarkListResponse{
		Bookmarks: entries,
		Count:     len(entries),
		Limit:     limit,
		Offset:    offset,
	})
}

func queryInt(c echo.Context, name string, defaultValue int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}
