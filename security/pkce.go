// ABOUTME: This file generates PKCE material for the OAuth2 authorization code flow
// ABOUTME: State and verifier are crypto-random and base64url encoded without padding

package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	stateByteLen    = 32
	verifierByteLen = 48
)

// GenerateState returns a random state parameter for CSRF binding.
func GenerateState() (string, error) {
	return randomURLSafe(stateByteLen)
}

// GenerateCodeVerifier returns a PKCE code verifier. 48 random bytes encode
// to 64 characters, inside the 43..128 range RFC 7636 requires.
func GenerateCodeVerifier() (string, error) {
	return randomURLSafe(verifierByteLen)
}

// ChallengeS256 derives the S256 code challenge from a verifier.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomURLSafe(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
