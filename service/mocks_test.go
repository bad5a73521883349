package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"xmarks/driver"
	"xmarks/models"
)

// MockTokenRepository is a mock implementation of repository.TokenRepository
type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) Upsert(ctx context.Context, token *models.ProviderToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ProviderToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderToken), args.Error(1)
}

func (m *MockTokenRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateOrFetch(ctx context.Context, profile *models.XProfile) (*models.User, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockBookmarkRepository is a mock implementation of repository.BookmarkRepository
type MockBookmarkRepository struct {
	mock.Mock
}

func (m *MockBookmarkRepository) UpsertPage(ctx context.Context, userID uuid.UUID, entries []models.BookmarkEntry) (int, error) {
	args := m.Called(ctx, userID, entries)
	return args.Int(0), args.Error(1)
}

func (m *MockBookmarkRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BookmarkEntry, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookmarkEntry), args.Error(1)
}

// MockSessionRepository is a mock implementation of repository.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Save(ctx context.Context, state string, session *models.OAuthSession, ttl time.Duration) error {
	args := m.Called(ctx, state, session, ttl)
	return args.Error(0)
}

func (m *MockSessionRepository) Consume(ctx context.Context, state string) (*models.OAuthSession, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OAuthSession), args.Error(1)
}

// MockAuthDriver is a mock implementation of AuthDriver
type MockAuthDriver struct {
	mock.Mock
}

func (m *MockAuthDriver) ExchangeCode(ctx context.Context, code, codeVerifier string) (*models.ProviderTokenResponse, error) {
	args := m.Called(ctx, code, codeVerifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderTokenResponse), args.Error(1)
}

func (m *MockAuthDriver) Refresh(ctx context.Context, refreshToken string) (*models.ProviderTokenResponse, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderTokenResponse), args.Error(1)
}

// MockAPIDriver is a mock implementation of APIDriver
type MockAPIDriver struct {
	mock.Mock
}

func (m *MockAPIDriver) GetMe(ctx context.Context, accessToken string) (*driver.XUserData, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*driver.XUserData), args.Error(1)
}

func (m *MockAPIDriver) GetBookmarks(ctx context.Context, accessToken, xid string, maxResults int, paginationToken string) (*driver.XBookmarksResponse, error) {
	args := m.Called(ctx, accessToken, xid, maxResults, paginationToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*driver.XBookmarksResponse), args.Error(1)
}

// MockTokenSource is a mock implementation of TokenSource
type MockTokenSource struct {
	mock.Mock
}

func (m *MockTokenSource) GetValidToken(ctx context.Context, userID uuid.UUID) (*models.ValidToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ValidToken), args.Error(1)
}

// MockSyncer is a mock implementation of BookmarkSyncer
type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) SyncUser(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// fakeRevocationRepo is an in-memory revocation store for token tests.
type fakeRevocationRepo struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newFakeRevocationRepo() *fakeRevocationRepo {
	return &fakeRevocationRepo{revoked: make(map[string]time.Time)}
}

func (f *fakeRevocationRepo) Revoke(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ttl <= 0 {
		return true, nil
	}
	if until, ok := f.revoked[jti]; ok && time.Now().Before(until) {
		return false, nil
	}
	f.revoked[jti] = time.Now().Add(ttl)
	return true, nil
}

func (f *fakeRevocationRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	until, ok := f.revoked[jti]
	return ok && time.Now().Before(until), nil
}
