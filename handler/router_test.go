package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestRouter(verifier AppTokenVerifier) http.Handler {
	return NewRouter(RouterDeps{
		Auth:      NewAuthHandler(new(MockAuthorizer), new(MockTokenRotator), new(MockUserFetcher), testFrontendURL, nil),
		Bookmarks: NewBookmarkHandler(new(MockBookmarkReader), nil),
		Users:     NewUserHandler(new(MockUserFetcher), nil),
		Health: NewHealthHandler(map[string]HealthChecker{
			"database": func(ctx context.Context) error { return nil },
		}),
		Verifier: verifier,
	})
}

func TestRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	verifier := new(MockVerifier)
	router := newTestRouter(verifier)

	for _, path := range []string{"/v1/bookmarks", "/v1/bookmarks/synced", "/v1/users/me"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_HealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(new(MockVerifier))

	for _, path := range []string{"/v1/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(new(MockVerifier))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
