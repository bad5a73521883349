package repository

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRevocationRepository_RevokeAndCheck(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRedisRevocationRepository(client, slog.Default())
	ctx := context.Background()

	revoked, err := repo.IsRevoked(ctx, "jti_1")
	require.NoError(t, err)
	assert.False(t, revoked)

	first, err := repo.Revoke(ctx, "jti_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	revoked, err = repo.IsRevoked(ctx, "jti_1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRedisRevocationRepository_SecondRevokeLoses(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRedisRevocationRepository(client, slog.Default())
	ctx := context.Background()

	first, err := repo.Revoke(ctx, "jti_contested", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = repo.Revoke(ctx, "jti_contested", time.Hour)
	require.NoError(t, err)
	assert.False(t, first)
}

func TestRedisRevocationRepository_EntryExpiresWithToken(t *testing.T) {
	client, mr := newTestRedis(t)
	repo := NewRedisRevocationRepository(client, slog.Default())
	ctx := context.Background()

	first, err := repo.Revoke(ctx, "jti_short", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	mr.FastForward(2 * time.Minute)

	revoked, err := repo.IsRevoked(ctx, "jti_short")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevocationRepository_ExpiredTokenIsNoop(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRedisRevocationRepository(client, slog.Default())
	ctx := context.Background()

	// Nothing to blacklist when the token already expired
	first, err := repo.Revoke(ctx, "jti_expired", -time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	revoked, err := repo.IsRevoked(ctx, "jti_expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}
