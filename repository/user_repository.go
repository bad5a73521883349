package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"xmarks/models"
)

// PostgresUserRepository implements UserRepository on PostgreSQL.
type PostgresUserRepository struct {
	db     DatabaseIface
	logger *slog.Logger
}

// NewPostgresUserRepository creates a PostgreSQL user repository.
func NewPostgresUserRepository(db DatabaseIface, logger *slog.Logger) *PostgresUserRepository {
	return &PostgresUserRepository{
		db:     db,
		logger: logger.With("component", "user_repository"),
	}
}

// CreateOrFetch inserts a user for the given provider profile, or returns the
// existing row when the account is already registered. An existing user's
// profile is left untouched.
func (r *PostgresUserRepository) CreateOrFetch(ctx context.Context, profile *models.XProfile) (*models.User, error) {
	query := `
		INSERT INTO users (id, x_id, username, name, profile_image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (x_id) DO UPDATE SET x_id = EXCLUDED.x_id
		RETURNING id, x_id, username, name, profile_image_url, created_at, updated_at`

	user := &models.User{}
	err := r.db.QueryRow(ctx, query,
		uuid.New(),
		profile.XID,
		profile.Username,
		profile.Name,
		profile.ProfileImageURL,
	).Scan(
		&user.ID,
		&user.XID,
		&user.Username,
		&user.Name,
		&user.ProfileImageURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create or fetch user", "x_id", profile.XID, "error", err)
		return nil, fmt.Errorf("failed to create or fetch user: %w", err)
	}

	r.logger.Info("User resolved", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// GetByID fetches an active user by internal id.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, x_id, username, name, profile_image_url, created_at, updated_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`

	user := &models.User{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.XID,
		&user.Username,
		&user.Name,
		&user.ProfileImageURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		r.logger.Error("Failed to get user", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ListActiveIDs returns the ids of all users eligible for bookmark sync.
func (r *PostgresUserRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT id FROM users WHERE deleted_at IS NULL ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list user ids", "error", err)
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user ids: %w", err)
	}

	return ids, nil
}
