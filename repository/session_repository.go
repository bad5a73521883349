// ABOUTME: This file stores short-lived OAuth authorization sessions in Redis
// ABOUTME: Consume uses GETDEL so a state parameter can only be redeemed once

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"xmarks/models"
)

const sessionKeyPrefix = "oauth:session:"

// RedisSessionRepository implements SessionRepository on Redis.
type RedisSessionRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisSessionRepository creates a Redis session repository.
func NewRedisSessionRepository(client *redis.Client, logger *slog.Logger) *RedisSessionRepository {
	return &RedisSessionRepository{
		client: client,
		logger: logger.With("component", "session_repository"),
	}
}

// Save stores the session under its state with the given TTL.
func (r *RedisSessionRepository) Save(ctx context.Context, state string, session *models.OAuthSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal oauth session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKeyPrefix+state, payload, ttl).Err(); err != nil {
		r.logger.Error("Failed to save oauth session", "error", err)
		return fmt.Errorf("failed to save oauth session: %w", err)
	}

	r.logger.Info("OAuth session saved", "state_prefix", prefix(state), "ttl", ttl)
	return nil
}

// Consume atomically fetches and deletes the session for a state. A state
// that is unknown, expired or already consumed yields ErrSessionNotFound.
func (r *RedisSessionRepository) Consume(ctx context.Context, state string) (*models.OAuthSession, error) {
	payload, err := r.client.GetDel(ctx, sessionKeyPrefix+state).Result()
	if err == redis.Nil {
		r.logger.Warn("OAuth session missing or already consumed", "state_prefix", prefix(state))
		return nil, ErrSessionNotFound
	}
	if err != nil {
		r.logger.Error("Failed to consume oauth session", "error", err)
		return nil, fmt.Errorf("failed to consume oauth session: %w", err)
	}

	session := &models.OAuthSession{}
	if err := json.Unmarshal([]byte(payload), session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oauth session: %w", err)
	}

	return session, nil
}

func prefix(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:8]
}
