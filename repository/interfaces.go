// ABOUTME: This file defines repository interfaces for persistence operations
// ABOUTME: Services depend on these interfaces, never on concrete stores

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"xmarks/models"
)

// Sentinel errors shared by repository implementations.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrTokenNotFound   = errors.New("provider token not found")
	ErrSessionNotFound = errors.New("oauth session not found or already consumed")
)

// UserRepository manages user accounts.
type UserRepository interface {
	CreateOrFetch(ctx context.Context, profile *models.XProfile) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

// TokenRepository manages provider token records. Implementations encrypt
// token material before it reaches storage.
type TokenRepository interface {
	Upsert(ctx context.Context, token *models.ProviderToken) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ProviderToken, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// BookmarkRepository persists synced bookmark pages and serves reads.
type BookmarkRepository interface {
	UpsertPage(ctx context.Context, userID uuid.UUID, entries []models.BookmarkEntry) (int, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BookmarkEntry, error)
}

// SessionRepository holds short-lived OAuth authorization sessions keyed by
// state. Consume must be atomic so a state can only ever be redeemed once.
type SessionRepository interface {
	Save(ctx context.Context, state string, session *models.OAuthSession, ttl time.Duration) error
	Consume(ctx context.Context, state string) (*models.OAuthSession, error)
}

// RevocationRepository tracks revoked application token ids. Revoke reports
// whether this call performed the revocation, so concurrent rotations of the
// same token resolve to exactly one winner.
type RevocationRepository interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
