// ABOUTME: This file manages the provider token lifecycle per user
// ABOUTME: GetValidToken refreshes transparently, deduplicated with per-user singleflight

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"xmarks/driver"
	"xmarks/metrics"
	"xmarks/models"
	"xmarks/repository"
)

// Token lifecycle errors.
var (
	ErrNoTokenFound  = errors.New("no provider token stored for user")
	ErrRefreshFailed = errors.New("provider token refresh failed")
)

// TokenLifecycleService hands out provider access tokens that are valid at
// call time. Expired tokens are refreshed in place; a failed refresh is an
// error, never a fallback to the stale token.
type TokenLifecycleService struct {
	tokens           repository.TokenRepository
	users            repository.UserRepository
	refresher        TokenRefresher
	logger           *slog.Logger
	refreshBuffer    time.Duration
	maxRetryAttempts int
	retryBaseDelay   time.Duration

	// Deduplicates concurrent refreshes per user
	refreshGroup singleflight.Group
}

// NewTokenLifecycleService creates a token lifecycle service.
func NewTokenLifecycleService(
	tokens repository.TokenRepository,
	users repository.UserRepository,
	refresher TokenRefresher,
	logger *slog.Logger,
) *TokenLifecycleService {
	if logger == nil {
		logger = slog.Default()
	}

	return &TokenLifecycleService{
		tokens:           tokens,
		users:            users,
		refresher:        refresher,
		logger:           logger.With("component", "token_lifecycle"),
		refreshBuffer:    5 * time.Minute,
		maxRetryAttempts: 3,
		retryBaseDelay:   2 * time.Second,
	}
}

// GetValidToken returns a provider access token guaranteed valid right now.
func (s *TokenLifecycleService) GetValidToken(ctx context.Context, userID uuid.UUID) (*models.ValidToken, error) {
	token, err := s.tokens.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrNoTokenFound
		}
		return nil, fmt.Errorf("token storage access failed: %w", err)
	}

	if s.needsRefresh(token) {
		s.logger.Info("Provider token needs refresh",
			"user_id", userID,
			"expires_at", token.ExpiresAt,
			"time_until_expiry", token.TimeUntilExpiry())

		token, err = s.refreshWithDedup(ctx, userID, token)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	if !token.IsValid(now) {
		return nil, fmt.Errorf("%w: token invalid after refresh", ErrRefreshFailed)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user for token: %w", err)
	}

	return &models.ValidToken{
		AccessToken: token.AccessToken,
		UserID:      userID,
		XID:         user.XID,
	}, nil
}

func (s *TokenLifecycleService) needsRefresh(token *models.ProviderToken) bool {
	return token.ExpiresAt.IsZero() || time.Until(token.ExpiresAt) < s.refreshBuffer
}

// refreshWithDedup runs the refresh under singleflight keyed by user, so
// concurrent callers for the same user share one provider round trip.
func (s *TokenLifecycleService) refreshWithDedup(ctx context.Context, userID uuid.UUID, stale *models.ProviderToken) (*models.ProviderToken, error) {
	result, err, shared := s.refreshGroup.Do(userID.String(), func() (interface{}, error) {
		// Another caller may have refreshed while we waited on the group
		current, err := s.tokens.GetByUserID(ctx, userID)
		if err == nil && !s.needsRefresh(current) {
			s.logger.Info("Token already refreshed by concurrent caller", "user_id", userID)
			return current, nil
		}
		if err != nil {
			current = stale
		}

		return s.refreshWithRetry(ctx, userID, current)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		s.logger.Info("Refresh result shared from concurrent operation", "user_id", userID)
	}

	return result.(*models.ProviderToken), nil
}

func (s *TokenLifecycleService) refreshWithRetry(ctx context.Context, userID uuid.UUID, token *models.ProviderToken) (*models.ProviderToken, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxRetryAttempts; attempt++ {
		refreshed, err := s.performRefresh(ctx, userID, token)
		if err == nil {
			s.logger.Info("Provider token refreshed", "user_id", userID, "attempt", attempt)
			metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
			return refreshed, nil
		}

		lastErr = err
		s.logger.Warn("Token refresh attempt failed", "user_id", userID, "attempt", attempt, "error", err)

		if errors.Is(err, driver.ErrInvalidGrant) || errors.Is(err, driver.ErrTokenRevoked) {
			metrics.TokenRefreshTotal.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
		}

		if attempt < s.maxRetryAttempts {
			backoff := time.Duration(attempt) * s.retryBaseDelay
			if errors.Is(err, driver.ErrRateLimited) {
				backoff = time.Duration(attempt) * 15 * s.retryBaseDelay
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	metrics.TokenRefreshTotal.WithLabelValues("exhausted").Inc()
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRefreshFailed, s.maxRetryAttempts, lastErr)
}

func (s *TokenLifecycleService) performRefresh(ctx context.Context, userID uuid.UUID, token *models.ProviderToken) (*models.ProviderToken, error) {
	resp, err := s.refresher.Refresh(ctx, token.RefreshToken)
	if err != nil {
		return nil, err
	}

	refreshed := models.NewProviderToken(resp, token.RefreshToken)
	refreshed.UserID = userID

	if resp.RefreshToken != "" && resp.RefreshToken != token.RefreshToken {
		s.logger.Info("Refresh token rotation detected", "user_id", userID)
	}

	if err := s.tokens.Upsert(ctx, refreshed); err != nil {
		// A rotated refresh token that never reaches storage is unrecoverable
		return nil, fmt.Errorf("failed to store refreshed token: %w", err)
	}

	return refreshed, nil
}
