package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"xmarks/models"
	"xmarks/service"
)

// MockAuthorizer is a mock implementation of Authorizer
type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) BeginAuthorization(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockAuthorizer) CompleteAuthorization(ctx context.Context, state, code string) (*service.AuthResult, error) {
	args := m.Called(ctx, state, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

// MockTokenRotator is a mock implementation of TokenRotator
type MockTokenRotator struct {
	mock.Mock
}

func (m *MockTokenRotator) Rotate(ctx context.Context, refreshToken string, fetchUser func(ctx context.Context, id uuid.UUID) (*models.User, error)) (*service.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TokenPair), args.Error(1)
}

// MockUserFetcher is a mock implementation of UserFetcher
type MockUserFetcher struct {
	mock.Mock
}

func (m *MockUserFetcher) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockVerifier is a mock implementation of AppTokenVerifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, tokenString string, wantRefresh bool) (*service.AppClaims, error) {
	args := m.Called(ctx, tokenString, wantRefresh)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AppClaims), args.Error(1)
}

// MockBookmarkReader is a mock implementation of BookmarkReader
type MockBookmarkReader struct {
	mock.Mock
}

func (m *MockBookmarkReader) FetchPage(ctx context.Context, userID uuid.UUID, maxResults int, paginationToken string) (*models.BookmarkPage, error) {
	args := m.Called(ctx, userID, maxResults, paginationToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookmarkPage), args.Error(1)
}

func (m *MockBookmarkReader) ListSynced(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BookmarkEntry, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookmarkEntry), args.Error(1)
}
