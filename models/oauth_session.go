package models

import "time"

// OAuthSession is the ephemeral PKCE state stored between /auth/login and
// /auth/callback. Keyed by the state parameter; consumable exactly once.
type OAuthSession struct {
	CodeVerifier string    `json:"code_verifier"`
	CreatedAt    time.Time `json:"created_at"`
}
