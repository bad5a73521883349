package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"xmarks/models"
	"xmarks/service"
)

func newAuthedContext(t *testing.T, target string, userID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(contextKeyUserID, userID)
	return c, rec
}

func sampleEntries() []models.BookmarkEntry {
	return []models.BookmarkEntry{
		{
			Post: models.Post{
				ID:       uuid.New(),
				XPostID:  "111",
				Text:     "a bookmarked post",
				PostedAt: time.Now().UTC(),
			},
			Author: models.Author{ID: uuid.New(), XAuthorID: "222", Username: "writer"},
		},
	}
}

func TestBookmarkHandler_HandleFetch(t *testing.T) {
	userID := uuid.New()

	page := &models.BookmarkPage{
		Entries: sampleEntries(),
		Meta:    models.BookmarkMeta{ResultCount: 1, NextToken: "next-page"},
	}

	tests := map[string]struct {
		target     string
		setupMock  func(m *MockBookmarkReader)
		wantStatus int
		wantInBody string
	}{
		"default_page": {
			target: "/v1/bookmarks",
			setupMock: func(m *MockBookmarkReader) {
				m.On("FetchPage", mock.Anything, userID, 0, "").
					Return(page, nil)
			},
			wantStatus: http.StatusOK,
			wantInBody: `"next_token":"next-page"`,
		},
		"explicit_max_results_and_token": {
			target: "/v1/bookmarks?max_results=25&pagination_token=abc123",
			setupMock: func(m *MockBookmarkReader) {
				m.On("FetchPage", mock.Anything, userID, 25, "abc123").
					Return(page, nil)
			},
			wantStatus: http.StatusOK,
			wantInBody: `"result_count":1`,
		},
		"max_results_above_limit_is_rejected": {
			target:     "/v1/bookmarks?max_results=1000",
			setupMock:  func(m *MockBookmarkReader) {},
			wantStatus: http.StatusBadRequest,
			wantInBody: "VALIDATION_FAILED",
		},
		"max_results_zero_is_rejected": {
			target:     "/v1/bookmarks?max_results=0",
			setupMock:  func(m *MockBookmarkReader) {},
			wantStatus: http.StatusBadRequest,
			wantInBody: "VALIDATION_FAILED",
		},
		"non_numeric_max_results_is_rejected": {
			target:     "/v1/bookmarks?max_results=lots",
			setupMock:  func(m *MockBookmarkReader) {},
			wantStatus: http.StatusBadRequest,
			wantInBody: "VALIDATION_FAILED",
		},
		"no_provider_token_is_not_found": {
			target: "/v1/bookmarks",
			setupMock: func(m *MockBookmarkReader) {
				m.On("FetchPage", mock.Anything, userID, 0, "").
					Return(nil, service.ErrNoTokenFound)
			},
			wantStatus: http.StatusNotFound,
			wantInBody: "NO_PROVIDER_TOKEN",
		},
		"refresh_failure_requires_relogin": {
			target: "/v1/bookmarks",
			setupMock: func(m *MockBookmarkReader) {
				m.On("FetchPage", mock.Anything, userID, 0, "").
					Return(nil, service.ErrRefreshFailed)
			},
			wantStatus: http.StatusUnauthorized,
			wantInBody: "AUTH_FAILED",
		},
		"provider_failure_is_unavailable": {
			target: "/v1/bookmarks",
			setupMock: func(m *MockBookmarkReader) {
				m.On("FetchPage", mock.Anything, userID, 0, "").
					Return(nil, errors.New("connection reset"))
			},
			wantStatus: http.StatusServiceUnavailable,
			wantInBody: "PROVIDER_ERROR",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			reader := new(MockBookmarkReader)
			tc.setupMock(reader)

			h := NewBookmarkHandler(reader, nil)

			c, rec := newAuthedContext(t, tc.target, userID)
			require.NoError(t, h.HandleFetch(c))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantInBody)
			reader.AssertExpectations(t)
		})
	}
}

func TestBookmarkHandler_HandleFetch_NoIdentity(t *testing.T) {
	h := NewBookmarkHandler(new(MockBookmarkReader), nil)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/bookmarks", nil), httptest.NewRecorder())

	require.NoError(t, h.HandleFetch(c))
	assert.Equal(t, http.StatusUnauthorized, c.Response().Status)
}

func TestBookmarkHandler_HandleListSynced(t *testing.T) {
	userID := uuid.New()

	tests := map[string]struct {
		target     string
		setupMock  func(m *MockBookmarkReader)
		wantStatus int
		wantInBody string
	}{
		"default_pagination": {
			target: "/v1/bookmarks/synced",
			setupMock: func(m *MockBookmarkReader) {
				m.On("ListSynced", mock.Anything, userID, defaultPageLimit, 0).
					Return(sampleEntries(), nil)
			},
			wantStatus: http.StatusOK,
			wantInBody: `"count":1`,
		},
		"explicit_limit_and_offset": {
			target: "/v1/bookmarks/synced?limit=10&offset=20",
			setupMock: func(m *MockBookmarkReader) {
				m.On("ListSynced", mock.Anything, userID, 10, 20).
					Return([]models.BookmarkEntry{}, nil)
			},
			wantStatus: http.StatusOK,
			wantInBody: `"bookmarks":[]`,
		},
		"limit_above_maximum_is_rejected": {
			target:     "/v1/bookmarks/synced?limit=500",
			setupMock:  func(m *MockBookmarkReader) {},
			wantStatus: http.StatusBadRequest,
			wantInBody: "VALIDATION_FAILED",
		},
		"non_numeric_limit_is_rejected": {
			target:     "/v1/bookmarks/synced?limit=many",
			setupMock:  func(m *MockBookmarkReader) {},
			wantStatus: http.StatusBadRequest,
			wantInBody: "VALIDATION_FAILED",
		},
		"negative_offset_is_rejected": {
			target:     "/v1/bookmarks/synced?offset=-1",
			setupMock:  func(m *MockBookmarkReader) {},
			wantStatus: http.StatusBadRequest,
			wantInBody: "VALIDATION_FAILED",
		},
		"storage_failure_is_internal_error": {
			target: "/v1/bookmarks/synced",
			setupMock: func(m *MockBookmarkReader) {
				m.On("ListSynced", mock.Anything, userID, defaultPageLimit, 0).
					Return(nil, errors.New("connection refused"))
			},
			wantStatus: http.StatusInternalServerError,
			wantInBody: "DATABASE_ERROR",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			reader := new(MockBookmarkReader)
			tc.setupMock(reader)

			h := NewBookmarkHandler(reader, nil)

			c, rec := newAuthedContext(t, tc.target, userID)
			require.NoError(t, h.HandleListSynced(c))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantInBody)
			reader.AssertExpectations(t)
		})
	}
}

func TestBookmarkHandler_HandleListSynced_NoIdentity(t *testing.T) {
	h := NewBookmarkHandler(new(MockBookmarkReader), nil)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/bookmarks/synced", nil), httptest.NewRecorder())

	require.NoError(t, h.HandleListSynced(c))
	assert.Equal(t, http.StatusUnauthorized, c.Response().Status)
}
