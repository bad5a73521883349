package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account, keyed internally by UUID and externally by
// the X account id. Created lazily on the first successful OAuth callback.
type User struct {
	ID              uuid.UUID  `json:"id"`
	XID             string     `json:"x_id"`
	Username        string     `json:"username"`
	Name            string     `json:"name"`
	ProfileImageURL string     `json:"profile_image_url"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// XProfile is the provider-side profile of the authenticated account, as
// returned by the users/me endpoint.
type XProfile struct {
	XID             string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
}
