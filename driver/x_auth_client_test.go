package driver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewXAuthClient(t *testing.T) {
	client := NewXAuthClient("test_client_id", "test_client_secret", "https://app.example.com/callback", "https://api.example.com/2", nil)

	assert.Equal(t, "test_client_id", client.clientID)
	assert.Equal(t, "test_client_secret", client.clientSecret)
	assert.Equal(t, "https://app.example.com/callback", client.redirectURI)
	assert.Equal(t, "https://api.example.com/2", client.apiBaseURL)
	assert.NotNil(t, client.httpClient)
}

func TestXAuthClient_ExchangeCode(t *testing.T) {
	tests := map[string]struct {
		code         string
		codeVerifier string
		mockResponse func(t *testing.T) *httptest.Server
		expectError  error
		expectToken  string
	}{
		"successful_exchange": {
			code:         "auth_code_abc",
			codeVerifier: "verifier_xyz",
			mockResponse: func(t *testing.T) *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					assert.Equal(t, http.MethodPost, r.Method)
					assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

					user, _, ok := r.BasicAuth()
					require.True(t, ok, "expected HTTP basic credentials")
					assert.Equal(t, "test_client_id", user)

					err := r.ParseForm()
					require.NoError(t, err)
					assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
					assert.Equal(t, "auth_code_abc", r.Form.Get("code"))
					assert.Equal(t, "verifier_xyz", r.Form.Get("code_verifier"))
					assert.Equal(t, "https://app.example.com/callback", r.Form.Get("redirect_uri"))

					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(map[string]interface{}{
						"access_token":  "provider_access_token",
						"token_type":    "bearer",
						"expires_in":    7200,
						"refresh_token": "provider_refresh_token",
						"scope":         "tweet.read users.read bookmark.read offline.access",
					})
				}))
			},
			expectToken: "provider_access_token",
		},
		"invalid_code": {
			code:         "expired_code",
			codeVerifier: "verifier_xyz",
			mockResponse: func(t *testing.T) *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusBadRequest)
					json.NewEncoder(w).Encode(map[string]interface{}{
						"error":             "invalid_grant",
						"error_description": "Value passed for the authorization code was invalid",
					})
				}))
			},
			expectError: ErrInvalidGrant,
		},
		"rate_limited": {
			code:         "auth_code_abc",
			codeVerifier: "verifier_xyz",
			mockResponse: func(t *testing.T) *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Retry-After", "60")
					w.WriteHeader(http.StatusTooManyRequests)
				}))
			},
			expectError: ErrRateLimited,
		},
		"provider_outage": {
			code:         "auth_code_abc",
			codeVerifier: "verifier_xyz",
			mockResponse: func(t *testing.T) *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusServiceUnavailable)
				}))
			},
			expectError: ErrProviderUnavailable,
		},
		"missing_access_token": {
			code:         "auth_code_abc",
			codeVerifier: "verifier_xyz",
			mockResponse: func(t *testing.T) *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(map[string]interface{}{"token_type": "bearer"})
				}))
			},
			expectError: assert.AnError, // any error
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			server := tc.mockResponse(t)
			defer server.Close()

			client := NewXAuthClient("test_client_id", "test_client_secret", "https://app.example.com/callback", server.URL, nil)
			client.httpClient.Timeout = 2 * time.Second

			resp, err := client.ExchangeCode(context.Background(), tc.code, tc.codeVerifier)

			if tc.expectError != nil {
				require.Error(t, err)
				if tc.expectError != assert.AnError {
					assert.ErrorIs(t, err, tc.expectError)
				}
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tc.expectToken, resp.AccessToken)
			assert.Equal(t, 7200, resp.ExpiresIn)
			assert.Equal(t, "provider_refresh_token", resp.RefreshToken)
		})
	}
}

func TestXAuthClient_Refresh(t *testing.T) {
	tests := map[string]struct {
		refreshToken string
		mockResponse func(t *testing.T) *httptest.Server
		expectError  error
		expectToken  string
		expectRotate string
	}{
		"refresh_with_rotation": {
			refreshToken: "old_refresh_token",
			mockResponse: func(t *testing.T) *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					err := r.ParseForm()
					require.NoError(t, err)
					assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
					assert.Equal(t, "old_refresh_token", r.Form.Get("refresh_token"))

					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(map[string]interface{}{
						"access_token":  "refreshed_access_token",
						"token_type":    "bearer",
						"expires_in":    7200,
						"refresh_token": "rotated_refresh_token",
					})
				}))
			},
			expectToken:  "refreshed_access_token",
			expectRotate: "rotated_refresh_token",
		},
		"refresh_without_rotation": {
			refreshToken: "old_refresh_token",
			mockResponse: func(t *testing.T) *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(map[string]interface{}{
						"access_token": "refreshed_access_token",
						"token_type":   "bearer",
						"expires_in":   7200,
					})
				}))
			},
			expectToken:  "refreshed_access_token",
			expectRotate: "",
		},
		"revoked_refresh_token": {
			refreshToken: "revoked_token",
			mockResponse: func(t *testing.T) *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusForbidden)
				}))
			},
			expectError: ErrTokenRevoked,
		},
		"invalid_refresh_token": {
			refreshToken: "bad_token",
			mockResponse: func(t *testing.T) *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					json.NewEncoder(w).Encode(map[string]interface{}{
						"error": "invalid_grant",
					})
				}))
			},
			expectError: ErrInvalidGrant,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			server := tc.mockResponse(t)
			defer server.Close()

			client := NewXAuthClient("test_client_id", "test_client_secret", "https://app.example.com/callback", server.URL, nil)
			client.httpClient.Timeout = 2 * time.Second

			resp, err := client.Refresh(context.Background(), tc.refreshToken)

			if tc.expectError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectError)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tc.expectToken, resp.AccessToken)
			assert.Equal(t, tc.expectRotate, resp.RefreshToken)
		})
	}
}

func TestXAuthClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // closed immediately to simulate a connection failure

	client := NewXAuthClient("test_client_id", "test_client_secret", "https://app.example.com/callback", server.URL, nil)
	client.httpClient.Timeout = 1 * time.Second

	_, err := client.Refresh(context.Background(), "some_token")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnreachable)
}
