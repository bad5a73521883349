// ABOUTME: This file defines the driver-facing interfaces the services depend on
// ABOUTME: Narrow interfaces keep services mockable and break dependency cycles

package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"xmarks/driver"
	"xmarks/models"
)

// AuthDriver is the OAuth2 token endpoint surface used by the auth flow.
type AuthDriver interface {
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*models.ProviderTokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.ProviderTokenResponse, error)
}

// TokenRefresher is the single operation the token lifecycle needs from the
// auth driver. Kept separate from AuthDriver so the lifecycle service can be
// wired without pulling in the code exchange path.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*models.ProviderTokenResponse, error)
}

// APIDriver is the authenticated provider API surface.
type APIDriver interface {
	GetMe(ctx context.Context, accessToken string) (*driver.XUserData, error)
	GetBookmarks(ctx context.Context, accessToken, xid string, maxResults int, paginationToken string) (*driver.XBookmarksResponse, error)
}

// TokenSource yields provider access tokens that are valid right now,
// refreshing behind the scenes when needed.
type TokenSource interface {
	GetValidToken(ctx context.Context, userID uuid.UUID) (*models.ValidToken, error)
}

// JobQueue is the sync job queue surface used by the sync orchestrator.
type JobQueue interface {
	EnsureGroup(ctx context.Context) error
	Enqueue(ctx context.Context, job *models.SyncJob) (string, error)
	EnqueueBatch(ctx context.Context, jobs []*models.SyncJob) ([]string, error)
	Read(ctx context.Context, consumer string, count int, block time.Duration) ([]driver.QueueMessage, error)
	Ack(ctx context.Context, messageID string) error
}

// BookmarkSyncer performs one full bookmark sync for a user.
type BookmarkSyncer interface {
	SyncUser(ctx context.Context, userID uuid.UUID) (int, error)
}
