// ABOUTME: This file issues and verifies the application's own JWT pairs
// ABOUTME: Refresh rotation revokes the consumed token id for its remaining lifetime

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"xmarks/models"
	"xmarks/repository"
)

// Application token errors.
var (
	ErrInvalidAppToken = errors.New("application token is invalid")
	ErrExpiredAppToken = errors.New("application token has expired")
	ErrRevokedAppToken = errors.New("application token has been revoked")
	ErrWrongTokenKind  = errors.New("token kind does not match the operation")
)

// AppTokenConfig holds JWT generation configuration.
type AppTokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AppClaims are the claims carried by application tokens. Refresh
// distinguishes refresh tokens from access tokens so neither can stand in
// for the other.
type AppClaims struct {
	XID     string `json:"xid"`
	Refresh bool   `json:"refresh"`
	jwt.RegisteredClaims
}

// UserID returns the subject parsed as the internal user id.
func (c *AppClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenPair is an access token and its companion refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AppTokenService issues, verifies and rotates application JWTs.
type AppTokenService struct {
	cfg        AppTokenConfig
	revocation repository.RevocationRepository
	logger     *slog.Logger
}

// NewAppTokenService creates an application token service.
func NewAppTokenService(cfg AppTokenConfig, revocation repository.RevocationRepository, logger *slog.Logger) *AppTokenService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AppTokenService{
		cfg:        cfg,
		revocation: revocation,
		logger:     logger.With("component", "app_token_service"),
	}
}

// Issue creates a fresh access and refresh token pair for a user.
func (s *AppTokenService) Issue(user *models.User) (*TokenPair, error) {
	access, err := s.sign(user, false, s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := s.sign(user, true, s.cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	s.logger.Info("Issued application token pair", "user_id", user.ID)
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify parses and validates a token string. wantRefresh selects which kind
// the caller expects; a mismatch is rejected, so an access token can never
// drive the refresh endpoint and vice versa.
func (s *AppTokenService) Verify(ctx context.Context, tokenString string, wantRefresh bool) (*AppClaims, error) {
	claims := &AppClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredAppToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidAppToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidAppToken
	}

	if claims.Refresh != wantRefresh {
		return nil, ErrWrongTokenKind
	}

	if claims.ID == "" {
		return nil, ErrInvalidAppToken
	}

	revoked, err := s.revocation.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevokedAppToken
	}

	return claims, nil
}

// Rotate consumes a refresh token and issues a new pair. The consumed
// token's id is revoked for its remaining lifetime so it cannot be replayed.
func (s *AppTokenService) Rotate(ctx context.Context, refreshToken string, fetchUser func(ctx context.Context, id uuid.UUID) (*models.User, error)) (*TokenPair, error) {
	claims, err := s.Verify(ctx, refreshToken, true)
	if err != nil {
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidAppToken)
	}

	user, err := fetchUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user for rotation: %w", err)
	}

	// First rotation to claim the jti wins; a concurrent replay of the same
	// refresh token loses here even though both passed verification.
	remaining := time.Until(claims.ExpiresAt.Time)
	first, err := s.revocation.Revoke(ctx, claims.ID, remaining)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke rotated token: %w", err)
	}
	if !first {
		return nil, ErrRevokedAppToken
	}

	pair, err := s.Issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Rotated refresh token", "user_id", userID, "old_jti", claims.ID)
	return pair, nil
}

func (s *AppTokenService) sign(user *models.User, refresh bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AppClaims{
		XID:     user.XID,
		Refresh: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}
