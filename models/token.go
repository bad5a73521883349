// ABOUTME: This file defines domain models for provider OAuth2 token management
// ABOUTME: Converts relative expires_in responses into absolute expires_at records

package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderTokenResponse is the raw OAuth2 token payload returned by the X
// token endpoint. ExpiresIn is always relative seconds; this type is never
// persisted.
type ProviderTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"` // May be absent on refresh responses
	Scope        string `json:"scope"`
}

// ProviderToken is the persisted token record for a linked account.
// ExpiresAt is always an absolute UTC timestamp; the conversion from the
// provider's relative expiry happens in NewProviderToken and nowhere else.
type ProviderToken struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope"`
	ExpiresAt    time.Time `json:"expires_at"`
	IssuedAt     time.Time `json:"issued_at"`
}

// NewProviderToken builds a persisted token record from a provider response.
// Some providers omit the refresh token when it is not rotated; the existing
// refresh token is kept in that case.
func NewProviderToken(resp *ProviderTokenResponse, existingRefreshToken string) *ProviderToken {
	now := time.Now().UTC()

	refreshToken := resp.RefreshToken
	if refreshToken == "" {
		refreshToken = existingRefreshToken
	}

	return &ProviderToken{
		AccessToken:  resp.AccessToken,
		RefreshToken: refreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
		ExpiresAt:    now.Add(time.Duration(resp.ExpiresIn) * time.Second),
		IssuedAt:     now,
	}
}

// IsExpired reports whether the token is expired at the given instant.
// A zero ExpiresAt is treated as already expired.
func (t *ProviderToken) IsExpired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.After(t.ExpiresAt)
}

// IsValid reports whether the token carries an access token that has not expired.
func (t *ProviderToken) IsValid(now time.Time) bool {
	return t.AccessToken != "" && !t.IsExpired(now)
}

// TimeUntilExpiry returns the duration until token expiry.
func (t *ProviderToken) TimeUntilExpiry() time.Duration {
	return time.Until(t.ExpiresAt)
}

// ValidToken is what callers of the token lifecycle service receive: a
// decrypted, currently valid provider access token plus the identities it
// belongs to.
type ValidToken struct {
	AccessToken string
	UserID      uuid.UUID
	XID         string
}
