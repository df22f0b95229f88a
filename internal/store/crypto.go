// File: internal/store/crypto.go
package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Encryptor provides AES-256-GCM encryption for message and artifact content
// at rest. Values are stored as base64(nonce || ciphertext).
type Encryptor struct {
	aead   cipher.AEAD
	logger *zap.Logger
}

// NewEncryptor builds an encryptor from a hex-encoded 32-byte key. An empty
// key generates an ephemeral one and warns: data written under it is
// unreadable after restart, so operators should set
// SAGE_DATABASE_ENCRYPTION_KEY in anything but throwaway runs.
func NewEncryptor(keyHex string, logger *zap.Logger) (*Encryptor, error) {
	logger = logger.Named("store.crypto")

	var key []byte
	if keyHex == "" {
		key = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("failed to generate encryption key: %w", err)
		}
		logger.Warn("No encryption key configured; generated an ephemeral key. Set SAGE_DATABASE_ENCRYPTION_KEY to keep data readable across restarts.")
	} else {
		var err error
		key, err = hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
		}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &Encryptor{aead: aead, logger: logger}, nil
}

// Encrypt seals plaintext. Empty input stays empty.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a stored value. Anything that fails to decode or open is
// returned verbatim: pre-encryption rows are legacy plaintext, not errors.
func (e *Encryptor) Decrypt(stored string) string {
	if stored == "" {
		return ""
	}

	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil || len(raw) <= e.aead.NonceSize() {
		return stored
	}

	nonce, ciphertext := raw[:e.aead.NonceSize()], raw[e.aead.NonceSize():]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return stored
	}
	return string(plaintext)
}
