// ABOUTME: This file implements encryption at rest for provider tokens
// ABOUTME: AES-256-GCM with a random nonce prepended to the ciphertext

package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Vault encrypts and decrypts provider tokens before they touch persistence.
// Plaintext tokens never reach the database.
type Vault struct {
	aead cipher.AEAD
}

// NewVault creates a Vault from a hex-encoded 32-byte key.
func NewVault(keyHex string) (*Vault, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("invalid key length: must be 32 bytes for AES-256")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher block: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt encrypts a token. Output is base64(nonce + ciphertext + tag).
func (v *Vault) Encrypt(plainText string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	cipherText := v.aead.Seal(nonce, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(cipherText), nil
}

// Decrypt reverses Encrypt. Fails if the ciphertext was produced under a
// different key or has been tampered with.
func (v *Vault) Decrypt(cipherTextBase64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(cipherTextBase64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 ciphertext: %w", err)
	}

	nonceSize := v.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short to contain nonce")
	}

	nonce, cipherText := data[:nonceSize], data[nonceSize:]
	plainText, err := v.aead.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plainText), nil
}
