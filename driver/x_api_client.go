// ABOUTME: This file implements the authenticated X API client
// ABOUTME: Covers the users/me profile lookup and the paged bookmarks endpoint

package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Errors returned by authenticated API calls.
var (
	ErrUnauthorizedRequest = fmt.Errorf("authentication failed: token may be expired or invalid")
)

// XAPIClient makes authenticated requests against the X API v2.
type XAPIClient struct {
	apiBaseURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewXAPIClient creates an API client for the given base URL.
func NewXAPIClient(apiBaseURL string, logger *slog.Logger) *XAPIClient {
	if logger == nil {
		logger = slog.Default()
	}

	return &XAPIClient{
		apiBaseURL: strings.TrimSuffix(apiBaseURL, "/"),
		logger:     logger,
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

// GetMe fetches the authenticated user's profile.
func (c *XAPIClient) GetMe(ctx context.Context, accessToken string) (*XUserData, error) {
	params := url.Values{
		"user.fields": {"id,name,username,profile_image_url"},
	}

	body, err := c.get(ctx, accessToken, "/users/me", params)
	if err != nil {
		return nil, err
	}

	var userResp XUserResponse
	if err := json.Unmarshal(body, &userResp); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}

	if userResp.Data.ID == "" {
		return nil, fmt.Errorf("user response missing id")
	}

	return &userResp.Data, nil
}

// GetBookmarks fetches one page of the user's bookmarks. xid is the provider
// account id, not the application user id. paginationToken may be empty for
// the first page.
func (c *XAPIClient) GetBookmarks(ctx context.Context, accessToken, xid string, maxResults int, paginationToken string) (*XBookmarksResponse, error) {
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > 400 {
		maxResults = 400
	}

	params := url.Values{
		"max_results":  {strconv.Itoa(maxResults)},
		"tweet.fields": {"id,text,author_id,created_at,lang,possibly_sensitive"},
		"expansions":   {"author_id"},
		"user.fields":  {"id,name,username,profile_image_url"},
	}
	if paginationToken != "" {
		params.Set("pagination_token", paginationToken)
	}

	body, err := c.get(ctx, accessToken, "/users/"+url.PathEscape(xid)+"/bookmarks", params)
	if err != nil {
		return nil, err
	}

	var bookmarksResp XBookmarksResponse
	if err := json.Unmarshal(body, &bookmarksResp); err != nil {
		return nil, fmt.Errorf("failed to decode bookmarks response: %w", err)
	}

	c.logger.Info("Fetched bookmarks page",
		"xid", xid,
		"result_count", bookmarksResp.Meta.ResultCount,
		"has_next_token", bookmarksResp.Meta.NextToken != "")

	return &bookmarksResp, nil
}

func (c *XAPIClient) get(ctx context.Context, accessToken, endpoint string, params url.Values) ([]byte, error) {
	reqURL := c.apiBaseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create API request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", "xmarks/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read API response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorizedRequest
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		c.logger.Warn("X API rate limited", "endpoint", endpoint, "retry_after", retryAfter)
		return nil, fmt.Errorf("%w: retry after %s", ErrRateLimited, retryAfter)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: HTTP %d", ErrProviderUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
}

// SetHTTPClient allows injecting a custom HTTP client for testing.
func (c *XAPIClient) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
