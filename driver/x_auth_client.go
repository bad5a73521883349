// ABOUTME: This file implements the OAuth2 token endpoint client for the X API
// ABOUTME: Handles PKCE code exchange and refresh token grants with error mapping

package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"xmarks/models"
)

// OAuth2 specific error types for better error handling
var (
	ErrInvalidGrant        = errors.New("invalid grant type or parameters")
	ErrTokenRevoked        = errors.New("refresh token has been revoked")
	ErrRateLimited         = errors.New("provider API rate limit exceeded")
	ErrProviderUnavailable = errors.New("temporary provider failure")
	ErrProviderUnreachable = errors.New("provider could not be reached")
)

// XAuthClient talks to the X OAuth2 token endpoint. It performs the two
// grants the authorization code flow needs and nothing else.
type XAuthClient struct {
	clientID     string
	clientSecret string
	redirectURI  string
	apiBaseURL   string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewXAuthClient creates a token endpoint client. apiBaseURL is the API base
// (https://api.x.com/2 in production, a test server URL in tests).
func NewXAuthClient(clientID, clientSecret, redirectURI, apiBaseURL string, logger *slog.Logger) *XAuthClient {
	if logger == nil {
		logger = slog.Default()
	}

	return &XAuthClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		apiBaseURL:   strings.TrimSuffix(apiBaseURL, "/"),
		logger:       logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 20 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConns:          10,
				MaxIdleConnsPerHost:   2,
			},
		},
	}
}

// ExchangeCode exchanges an authorization code plus its PKCE verifier for a
// token response. The confidential client authenticates with HTTP Basic.
func (c *XAuthClient) ExchangeCode(ctx context.Context, code, codeVerifier string) (*models.ProviderTokenResponse, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.redirectURI},
		"code_verifier": {codeVerifier},
		"client_id":     {c.clientID},
	}

	return c.requestToken(ctx, data)
}

// Refresh exchanges a refresh token for a new token response. The provider
// may rotate the refresh token or omit it entirely.
func (c *XAuthClient) Refresh(ctx context.Context, refreshToken string) (*models.ProviderTokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
	}

	return c.requestToken(ctx, data)
}

func (c *XAuthClient) requestToken(ctx context.Context, data url.Values) (*models.ProviderTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+"/oauth2/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "xmarks/1.0")
	req.SetBasicAuth(url.QueryEscape(c.clientID), url.QueryEscape(c.clientSecret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	// Check for HTTP errors before parsing JSON
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		bodyStr := string(body)

		c.logger.Error("OAuth2 token request failed",
			"status_code", resp.StatusCode,
			"grant_type", data.Get("grant_type"),
			"response_body", bodyStr)

		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized:
			var oauthErr XErrorResponse
			if err := json.Unmarshal(body, &oauthErr); err == nil && oauthErr.Error != "" {
				return nil, fmt.Errorf("%w: %s (%s)", ErrInvalidGrant, oauthErr.Error, oauthErr.ErrorDescription)
			}
			return nil, fmt.Errorf("%w: %s", ErrInvalidGrant, bodyStr)

		case http.StatusForbidden:
			return nil, fmt.Errorf("%w: %s", ErrTokenRevoked, bodyStr)

		case http.StatusTooManyRequests:
			retryAfter := resp.Header.Get("Retry-After")
			c.logger.Warn("OAuth2 token endpoint rate limited", "retry_after", retryAfter)
			return nil, fmt.Errorf("%w: retry after %s", ErrRateLimited, retryAfter)

		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return nil, fmt.Errorf("%w: HTTP %d", ErrProviderUnavailable, resp.StatusCode)

		default:
			return nil, fmt.Errorf("OAuth2 token request failed with status %d: %s", resp.StatusCode, bodyStr)
		}
	}

	var raw XTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	if raw.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	c.logger.Info("OAuth2 token request successful",
		"grant_type", data.Get("grant_type"),
		"expires_in_seconds", raw.ExpiresIn,
		"has_refresh_token", raw.RefreshToken != "")

	return raw.ToTokenResponse(), nil
}

// SetHTTPClient allows injecting a custom HTTP client for testing.
func (c *XAuthClient) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
