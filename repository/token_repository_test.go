package repository

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xmarks/models"
	"xmarks/security"
)

func newTestVault(t *testing.T) *security.Vault {
	t.Helper()

	vault, err := security.NewVault(strings.Repeat("ab", 32))
	require.NoError(t, err)

	return vault
}

func TestPostgresTokenRepository_Upsert(t *testing.T) {
	mock := newTestDB(t)
	vault := newTestVault(t)
	repo := NewPostgresTokenRepository(mock, vault, slog.Default())

	userID := uuid.New()
	now := time.Now().UTC()

	token := &models.ProviderToken{
		UserID:       userID,
		AccessToken:  "provider_access_token",
		RefreshToken: "provider_refresh_token",
		TokenType:    "bearer",
		Scope:        "tweet.read bookmark.read",
		ExpiresAt:    now.Add(2 * time.Hour),
		IssuedAt:     now,
	}

	// Encrypted values are nondeterministic, match them loosely
	mock.ExpectExec("INSERT INTO provider_tokens").
		WithArgs(userID, pgxmock.AnyArg(), pgxmock.AnyArg(), "bearer", "tweet.read bookmark.read", token.ExpiresAt, token.IssuedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Upsert(context.Background(), token)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTokenRepository_GetByUserID(t *testing.T) {
	mock := newTestDB(t)
	vault := newTestVault(t)
	repo := NewPostgresTokenRepository(mock, vault, slog.Default())

	userID := uuid.New()
	now := time.Now().UTC()

	t.Run("decrypts_stored_tokens", func(t *testing.T) {
		encAccess, err := vault.Encrypt("provider_access_token")
		require.NoError(t, err)
		encRefresh, err := vault.Encrypt("provider_refresh_token")
		require.NoError(t, err)

		rows := pgxmock.NewRows([]string{"user_id", "access_token", "refresh_token", "token_type", "scope", "expires_at", "issued_at"}).
			AddRow(userID, encAccess, encRefresh, "bearer", "tweet.read", now.Add(time.Hour), now)

		mock.ExpectQuery("SELECT (.+) FROM provider_tokens").
			WithArgs(userID).
			WillReturnRows(rows)

		token, err := repo.GetByUserID(context.Background(), userID)
		require.NoError(t, err)

		assert.Equal(t, "provider_access_token", token.AccessToken)
		assert.Equal(t, "provider_refresh_token", token.RefreshToken)
		assert.Equal(t, userID, token.UserID)
		assert.False(t, token.IsExpired(now))
	})

	t.Run("not_found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM provider_tokens").
			WithArgs(userID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByUserID(context.Background(), userID)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("corrupt_ciphertext", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"user_id", "access_token", "refresh_token", "token_type", "scope", "expires_at", "issued_at"}).
			AddRow(userID, "not-encrypted", "not-encrypted", "bearer", "tweet.read", now.Add(time.Hour), now)

		mock.ExpectQuery("SELECT (.+) FROM provider_tokens").
			WithArgs(userID).
			WillReturnRows(rows)

		_, err := repo.GetByUserID(context.Background(), userID)
		require.Error(t, err)
	})
}

func TestPostgresTokenRepository_Delete(t *testing.T) {
	mock := newTestDB(t)
	repo := NewPostgresTokenRepository(mock, newTestVault(t), slog.Default())

	userID := uuid.New()

	mock.ExpectExec("DELETE FROM provider_tokens").
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), userID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
