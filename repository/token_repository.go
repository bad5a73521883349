// ABOUTME: This file persists provider OAuth2 tokens in PostgreSQL
// ABOUTME: Access and refresh tokens are encrypted with the vault before storage

package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"xmarks/models"
	"xmarks/security"
)

// PostgresTokenRepository implements TokenRepository on PostgreSQL. Token
// material never reaches the database in plaintext.
type PostgresTokenRepository struct {
	db     DatabaseIface
	vault  *security.Vault
	logger *slog.Logger
}

// NewPostgresTokenRepository creates a PostgreSQL token repository.
func NewPostgresTokenRepository(db DatabaseIface, vault *security.Vault, logger *slog.Logger) *PostgresTokenRepository {
	return &PostgresTokenRepository{
		db:     db,
		vault:  vault,
		logger: logger.With("component", "token_repository"),
	}
}

// Upsert stores the token record for a user, replacing any previous one.
// Each user holds at most one provider token row.
func (r *PostgresTokenRepository) Upsert(ctx context.Context, token *models.ProviderToken) error {
	encAccess, err := r.vault.Encrypt(token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	encRefresh, err := r.vault.Encrypt(token.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	query := `
		INSERT INTO provider_tokens (user_id, access_token, refresh_token, token_type, scope, expires_at, issued_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			expires_at = EXCLUDED.expires_at,
			issued_at = EXCLUDED.issued_at,
			updated_at = NOW()`

	_, err = r.db.Exec(ctx, query,
		token.UserID,
		encAccess,
		encRefresh,
		token.TokenType,
		token.Scope,
		token.ExpiresAt,
		token.IssuedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert provider token", "user_id", token.UserID, "error", err)
		return fmt.Errorf("failed to upsert provider token: %w", err)
	}

	r.logger.Info("Provider token stored", "user_id", token.UserID, "expires_at", token.ExpiresAt)
	return nil
}

// GetByUserID fetches and decrypts the token record for a user.
func (r *PostgresTokenRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ProviderToken, error) {
	query := `
		SELECT user_id, access_token, refresh_token, token_type, scope, expires_at, issued_at
		FROM provider_tokens
		WHERE user_id = $1`

	token := &models.ProviderToken{}
	var encAccess, encRefresh string

	err := r.db.QueryRow(ctx, query, userID).Scan(
		&token.UserID,
		&encAccess,
		&encRefresh,
		&token.TokenType,
		&token.Scope,
		&token.ExpiresAt,
		&token.IssuedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTokenNotFound
		}
		r.logger.Error("Failed to get provider token", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get provider token: %w", err)
	}

	if token.AccessToken, err = r.vault.Decrypt(encAccess); err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	if token.RefreshToken, err = r.vault.Decrypt(encRefresh); err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	return token, nil
}

// Delete removes the token record for a user.
func (r *PostgresTokenRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM provider_tokens WHERE user_id = $1`, userID)
	if err != nil {
		r.logger.Error("Failed to delete provider token", "user_id", userID, "error", err)
		return fmt.Errorf("failed to delete provider token: %w", err)
	}
	return nil
}
