// internal/vault/vault.go

// Package vault seals and opens provider credentials at rest using
// AES-256-GCM. A sealed blob is three dot-separated base64 segments:
// iv.ciphertext.tag.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"campaign-engine/internal/common/errors"
)

const (
	keySize   = 32 // AES-256
	nonceSize = 12 // GCM standard 96-bit IV
	tagSize   = 16 // GCM 128-bit authentication tag
)

// Vault encrypts and decrypts secrets with a process-wide key.
type Vault struct {
	aead cipher.AEAD
}

// New derives the AES key from the configured secret: a 32-byte secret is
// used directly, anything else is hashed to 32 bytes with SHA-256. An empty
// secret is a startup error.
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, fmt.Errorf("vault: secret is not configured")
	}

	key := []byte(secret)
	if len(key) != keySize {
		sum := sha256.Sum256(key)
		key = sum[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithTagSize(block, tagSize)
	if err != nil {
		return nil, fmt.Errorf("vault: create GCM: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext into an iv.ciphertext.tag blob. The IV is random
// per call, so output differs between calls for the same input.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, nonceSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("vault: generate iv: %w", err)
	}

	sealed := v.aead.Seal(nil, iv, []byte(plaintext), nil)

	// Seal appends the tag to the ciphertext; split them for the wire format.
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(ciphertext),
		base64.StdEncoding.EncodeToString(tag),
	}, "."), nil
}

// IsSealed reports whether value already has the shape of an Encrypt output:
// three base64 segments with a 12-byte IV and a 16-byte tag. Callers use it
// to avoid sealing a blob a client echoed back unchanged.
func IsSealed(value string) bool {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return false
	}
	segments := make([][]byte, 3)
	for i, part := range parts {
		decoded, err := base64.StdEncoding.DecodeString(part)
		if err != nil {
			return false
		}
		segments[i] = decoded
	}
	return len(segments[0]) == nonceSize && len(segments[2]) == tagSize
}

// Decrypt opens a sealed blob. It returns a CRYPTO_FAILED error when the
// segment count is wrong, a segment is not valid base64, or the
// authentication tag does not verify (tampering or wrong key).
func (v *Vault) Decrypt(sealed string) (string, error) {
	parts := strings.Split(sealed, ".")
	if len(parts) != 3 {
		return "", errors.NewCryptoError(fmt.Sprintf("expected 3 segments, got %d", len(parts)))
	}

	segments := make([][]byte, 3)
	for i, part := range parts {
		decoded, err := base64.StdEncoding.DecodeString(part)
		if err != nil {
			return "", errors.NewCryptoError(fmt.Sprintf("segment %d is not valid base64", i))
		}
		segments[i] = decoded
	}

	iv, ciphertext, tag := segments[0], segments[1], segments[2]
	if len(iv) != nonceSize {
		return "", errors.NewCryptoError("invalid iv length")
	}

	plaintext, err := v.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", errors.NewCryptoError("authentication failed")
	}

	return string(plaintext), nil
}
