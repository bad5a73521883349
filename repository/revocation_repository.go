package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "jwt:revoked:"

// RedisRevocationRepository tracks revoked application token ids in Redis.
// Entries expire with the token itself so the set stays bounded.
type RedisRevocationRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisRevocationRepository creates a Redis revocation repository.
func NewRedisRevocationRepository(client *redis.Client, logger *slog.Logger) *RedisRevocationRepository {
	return &RedisRevocationRepository{
		client: client,
		logger: logger.With("component", "revocation_repository"),
	}
}

// Revoke marks a token id as revoked for the token's remaining lifetime.
// SETNX makes the first caller the only one to observe true, so concurrent
// revocations of the same id cannot both claim it.
func (r *RedisRevocationRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		// Token already expired, nothing to blacklist
		return true, nil
	}

	first, err := r.client.SetNX(ctx, revokedKeyPrefix+jti, "1", ttl).Result()
	if err != nil {
		r.logger.Error("Failed to revoke token", "jti", jti, "error", err)
		return false, fmt.Errorf("failed to revoke token: %w", err)
	}

	if first {
		r.logger.Info("Token revoked", "jti", jti, "ttl", ttl)
	}
	return first, nil
}

// IsRevoked reports whether a token id has been revoked.
func (r *RedisRevocationRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	count, err := r.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return count > 0, nil
}
