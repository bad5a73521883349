// ABOUTME: This file defines domain models for synced bookmarks
// ABOUTME: Authors and posts are keyed by their stable X ids so sync upserts stay idempotent

package models

import (
	"time"

	"github.com/google/uuid"
)

// Author is the writer of a bookmarked post, deduplicated by XAuthorID.
type Author struct {
	ID              uuid.UUID `json:"id"`
	XAuthorID       string    `json:"x_author_id"`
	Username        string    `json:"username"`
	Name            string    `json:"name"`
	ProfileImageURL string    `json:"profile_image_url"`
}

// Post is a bookmarked post, deduplicated by XPostID.
type Post struct {
	ID                uuid.UUID `json:"id"`
	XPostID           string    `json:"x_post_id"`
	Text              string    `json:"text"`
	Lang              string    `json:"lang"`
	PossiblySensitive bool      `json:"possibly_sensitive"`
	PostedAt          time.Time `json:"posted_at"`
	AuthorID          uuid.UUID `json:"author_id"`
}

// Bookmark joins a user to a post they bookmarked.
type Bookmark struct {
	UserID    uuid.UUID `json:"user_id"`
	PostID    uuid.UUID `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BookmarkEntry is one parsed bookmark from a provider page: the post plus
// its author, before either has been assigned internal ids.
type BookmarkEntry struct {
	Post   Post   `json:"post"`
	Author Author `json:"author"`
}

// BookmarkPage is a parsed page of bookmarks from the provider API.
type BookmarkPage struct {
	Entries []BookmarkEntry `json:"bookmarks"`
	Meta    BookmarkMeta    `json:"meta"`
}

// BookmarkMeta carries provider pagination metadata.
type BookmarkMeta struct {
	ResultCount int    `json:"result_count"`
	NextToken   string `json:"next_token,omitempty"`
}
