// ABOUTME: This file fetches, parses and persists bookmark pages from the provider
// ABOUTME: SyncUser walks the pagination chain and upserts every page transactionally

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"xmarks/driver"
	"xmarks/models"
	"xmarks/repository"
	"xmarks/utils"
)

// BookmarkService serves bookmark reads and performs per-user syncs.
type BookmarkService struct {
	tokenSource TokenSource
	apiDriver   APIDriver
	bookmarks   repository.BookmarkRepository
	sanitizer   *utils.Sanitizer
	logger      *slog.Logger
	maxResults  int
}

// NewBookmarkService creates a bookmark service. maxResults bounds the page
// size requested from the provider.
func NewBookmarkService(
	tokenSource TokenSource,
	apiDriver APIDriver,
	bookmarks repository.BookmarkRepository,
	logger *slog.Logger,
	maxResults int,
) *BookmarkService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxResults < 1 {
		maxResults = 100
	}

	return &BookmarkService{
		tokenSource: tokenSource,
		apiDriver:   apiDriver,
		bookmarks:   bookmarks,
		sanitizer:   utils.NewSanitizer(),
		logger:      logger.With("component", "bookmark_service"),
		maxResults:  maxResults,
	}
}

// FetchPage retrieves one live page of bookmarks from the provider for a
// user. paginationToken may be empty for the first page; maxResults at or
// below zero falls back to the configured page size.
func (s *BookmarkService) FetchPage(ctx context.Context, userID uuid.UUID, maxResults int, paginationToken string) (*models.BookmarkPage, error) {
	if maxResults < 1 {
		maxResults = s.maxResults
	}

	token, err := s.tokenSource.GetValidToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp, err := s.apiDriver.GetBookmarks(ctx, token.AccessToken, token.XID, maxResults, paginationToken)
	if err != nil {
		return nil, fmt.Errorf("bookmark fetch failed: %w", err)
	}

	return s.parsePage(resp), nil
}

// ListSynced returns the user's stored bookmarks, newest first.
func (s *BookmarkService) ListSynced(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.BookmarkEntry, error) {
	return s.bookmarks.ListByUserID(ctx, userID, limit, offset)
}

// SyncUser fetches the user's complete bookmark set page by page and upserts
// each page in its own transaction. Re-running over the same set is a no-op.
// Returns the number of entries processed.
func (s *BookmarkService) SyncUser(ctx context.Context, userID uuid.UUID) (int, error) {
	total := 0
	paginationToken := ""

	for {
		page, err := s.FetchPage(ctx, userID, s.maxResults, paginationToken)
		if err != nil {
			return total, err
		}

		count, err := s.bookmarks.UpsertPage(ctx, userID, page.Entries)
		if err != nil {
			return total, fmt.Errorf("failed to store bookmark page: %w", err)
		}
		total += count

		if page.Meta.NextToken == "" {
			break
		}
		paginationToken = page.Meta.NextToken
	}

	s.logger.Info("Bookmark sync completed", "user_id", userID, "entries", total)
	return total, nil
}

// parsePage joins the post list with the expanded author objects. Posts whose
// author is missing from includes are dropped rather than stored half-formed.
func (s *BookmarkService) parsePage(resp *driver.XBookmarksResponse) *models.BookmarkPage {
	authors := make(map[string]driver.XUserData, len(resp.Includes.Users))
	for _, u := range resp.Includes.Users {
		authors[u.ID] = u
	}

	entries := make([]models.BookmarkEntry, 0, len(resp.Data))
	for _, post := range resp.Data {
		author, ok := authors[post.AuthorID]
		if !ok {
			s.logger.Warn("Bookmarked post has no expanded author, skipping", "x_post_id", post.ID)
			continue
		}

		postedAt, err := time.Parse(time.RFC3339, post.CreatedAt)
		if err != nil {
			postedAt = time.Time{}
		}

		entries = append(entries, models.BookmarkEntry{
			Post: models.Post{
				XPostID:           post.ID,
				Text:              s.sanitizer.Clean(post.Text),
				Lang:              post.Lang,
				PossiblySensitive: post.PossiblySensitive,
				PostedAt:          postedAt,
			},
			Author: models.Author{
				XAuthorID:       author.ID,
				Username:        author.Username,
				Name:            s.sanitizer.Clean(author.Name),
				ProfileImageURL: author.ProfileImageURL,
			},
		})
	}

	return &models.BookmarkPage{
		Entries: entries,
		Meta: models.BookmarkMeta{
			ResultCount: resp.Meta.ResultCount,
			NextToken:   resp.Meta.NextToken,
		},
	}
}
