// ABOUTME: This file persists synced bookmarks in PostgreSQL
// ABOUTME: Authors, posts and bookmark links are upserted in one transaction per page

package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"xmarks/models"
)

// upsertEntryCTE chains the author upsert, post upsert and bookmark link into
// a single statement. Conflicts on the stable X ids refresh mutable fields so
// repeated syncs of the same page are no-ops.
const upsertEntryCTE = `
	WITH a AS (
		INSERT INTO authors (id, x_author_id, username, name, profile_image_url)
		VALUES ($1::uuid, $2, $3, $4, $5)
		ON CONFLICT (x_author_id) DO UPDATE SET
			username = EXCLUDED.username,
			name = EXCLUDED.name,
			profile_image_url = EXCLUDED.profile_image_url
		RETURNING id
	), p AS (
		INSERT INTO posts (id, x_post_id, text, lang, possibly_sensitive, posted_at, author_id)
		SELECT $6::uuid, $7, $8, $9, $10, $11, a.id FROM a
		ON CONFLICT (x_post_id) DO UPDATE SET
			text = EXCLUDED.text,
			lang = EXCLUDED.lang,
			possibly_sensitive = EXCLUDED.possibly_sensitive
		RETURNING id
	)
	INSERT INTO bookmarks (user_id, post_id, created_at)
	SELECT $12::uuid, p.id, NOW() FROM p
	ON CONFLICT (user_id, post_id) DO NOTHING
`

// PostgresBookmarkRepository implements BookmarkRepository on PostgreSQL.
type PostgresBookmarkRepository struct {
	db     DatabaseIface
	logger *slog.Logger
}

// NewPostgresBookmarkRepository creates a PostgreSQL bookmark repository.
func NewPostgresBookmarkRepository(db DatabaseIface, logger *slog.Logger) *PostgresBookmarkRepository {
	return &PostgresBookmarkRepository{
		db:     db,
		logger: logger.With("component", "bookmark_repository"),
	}
}

// UpsertPage stores one page of parsed bookmarks for a user. The whole page
// commits or rolls back together. Returns the number of entries processed.
func (r *PostgresBookmarkRepository) UpsertPage(ctx context.Context, userID uuid.UUID, entries []models.BookmarkEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, entry := range entries {
		batch.Queue(upsertEntryCTE,
			uuid.New(),
			entry.Author.XAuthorID,
			entry.Author.Username,
			entry.Author.Name,
			entry.Author.ProfileImageURL,
			uuid.New(),
			entry.Post.XPostID,
			entry.Post.Text,
			entry.Post.Lang,
			entry.Post.PossiblySensitive,
			entry.Post.PostedAt,
			userID,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range entries {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("upsert bookmark %q: %w", entries[i].Post.XPostID, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	r.logger.Info("Bookmark page stored", "user_id", userID, "entries", len(entries))
	return len(entries), nil
}

// ListByUserID returns the user's bookmarks newest first, joined with their
// posts and authors.
func (r *PostgresBookmarkRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BookmarkEntry, error) {
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT p.id, p.x_post_id, p.text, p.lang, p.possibly_sensitive, p.posted_at,
		       a.id, a.x_author_id, a.username, a.name, a.profile_image_url
		FROM bookmarks b
		JOIN posts p ON p.id = b.post_id
		JOIN authors a ON a.id = p.author_id
		WHERE b.user_id = $1
		ORDER BY p.posted_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list bookmarks", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	var entries []models.BookmarkEntry
	for rows.Next() {
		var entry models.BookmarkEntry
		err := rows.Scan(
			&entry.Post.ID,
			&entry.Post.XPostID,
			&entry.Post.Text,
			&entry.Post.Lang,
			&entry.Post.PossiblySensitive,
			&entry.Post.PostedAt,
			&entry.Author.ID,
			&entry.Author.XAuthorID,
			&entry.Author.Username,
			&entry.Author.Name,
			&entry.Author.ProfileImageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmark row: %w", err)
		}
		entry.Post.AuthorID = entry.Author.ID
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmark rows: %w", err)
	}

	return entries, nil
}
