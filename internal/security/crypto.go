// Package security provides encryption-at-rest for stored OAuth tokens.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// encryptedPrefix marks values produced by Encrypt. Values without the prefix
// are treated as legacy plaintext and pass through Decrypt unchanged.
const encryptedPrefix = "enc:"

const (
	keyIterations = 100_000
	keyLength     = 32
)

var keySalt = []byte("advicly-calendar-sync-token-store")

// ErrEncryptionDisabled is returned when Decrypt meets an encrypted value but
// no key is configured.
var ErrEncryptionDisabled = errors.New("security: encryption key not configured")

// TokenEncryptor encrypts and decrypts OAuth token material with AES-256-GCM.
// A nil or zero-secret encryptor degrades to passthrough, which keeps local
// development and staged key rollout working.
type TokenEncryptor struct {
	derivedKey []byte
}

// NewTokenEncryptor derives an encryption key from the configured secret. An
// empty secret disables encryption.
func NewTokenEncryptor(secret string) *TokenEncryptor {
	if strings.TrimSpace(secret) == "" {
		return &TokenEncryptor{}
	}
	return &TokenEncryptor{
		derivedKey: pbkdf2.Key([]byte(secret), keySalt, keyIterations, keyLength, sha256.New),
	}
}

// Enabled reports whether a key is configured.
func (te *TokenEncryptor) Enabled() bool {
	return te != nil && len(te.derivedKey) > 0
}

// Encrypt seals plaintext and returns "enc:" + base64(nonce || ciphertext).
// With encryption disabled the plaintext is returned unchanged.
func (te *TokenEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || !te.Enabled() {
		return plaintext, nil
	}

	gcm, err := te.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("security: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Values without the "enc:" prefix
// are returned as-is.
func (te *TokenEncryptor) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, encryptedPrefix) {
		return value, nil
	}
	if !te.Enabled() {
		return "", ErrEncryptionDisabled
	}

	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("security: invalid base64 encoding: %w", err)
	}

	gcm, err := te.aead()
	if err != nil {
		return "", err
	}

	if len(sealed) < gcm.NonceSize() {
		return "", errors.New("security: ciphertext too short")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("security: decrypt: %w", err)
	}

	return string(plaintext), nil
}

func (te *TokenEncryptor) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(te.derivedKey)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: create GCM: %w", err)
	}
	return gcm, nil
}
