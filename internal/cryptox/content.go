// Package cryptox encrypts journal text at rest with a key derived per user.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// Prefix marks values written by ContentCipher.
const Prefix = "enc:v1:"

var (
	ErrNotEncrypted = errors.New("value is not encrypted")
	ErrMalformed    = errors.New("malformed ciphertext")
	ErrEmptyUser    = errors.New("user id is required")
)

// ContentCipher seals free-text fields with AES-256-GCM. Each user gets a
// key derived from the master secret with HKDF-SHA256, so ciphertext of one
// user never opens under another user's key.
type ContentCipher struct {
	master []byte
}

func NewContentCipher(masterSecret string) (*ContentCipher, error) {
	if masterSecret == "" {
		return nil, errors.New("content encryption key is empty")
	}
	return &ContentCipher{master: []byte(masterSecret)}, nil
}

// DeriveUserKey returns the 32-byte key for userID.
func (c *ContentCipher) DeriveUserKey(userID string) ([]byte, error) {
	if userID == "" {
		return nil, ErrEmptyUser
	}
	h := hkdf.New(sha256.New, c.master, nil, []byte("journal-entry:"+userID))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (c *ContentCipher) gcm(userID string) (cipher.AEAD, error) {
	key, err := c.DeriveUserKey(userID)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt returns Prefix + base64(nonce||ciphertext). The empty string is
// returned unchanged.
func (c *ContentCipher) Encrypt(plaintext, userID string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	aesgcm, err := c.gcm(userID)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aesgcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt for the same user.
func (c *ContentCipher) Decrypt(ciphertext, userID string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	if !strings.HasPrefix(ciphertext, Prefix) {
		return "", ErrNotEncrypted
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, Prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	aesgcm, err := c.gcm(userID)
	if err != nil {
		return "", err
	}
	if len(raw) < aesgcm.NonceSize()+aesgcm.Overhead() {
		return "", ErrMalformed
	}

	nonce, sealed := raw[:aesgcm.NonceSize()], raw[aesgcm.NonceSize():]
	plaintext, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return string(plaintext), nil
}

// Decrypted is the outcome of DecryptWithFallback. When FellBack is set,
// Value holds the stored value as-is and Reason explains the failure.
type Decrypted struct {
	Value    string
	FellBack bool
	Reason   error
}

// DecryptWithFallback never fails: values that do not open are treated as
// legacy plaintext.
func (c *ContentCipher) DecryptWithFallback(stored, userID string) Decrypted {
	plain, err := c.Decrypt(stored, userID)
	if err != nil {
		return Decrypted{Value: stored, FellBack: true, Reason: err}
	}
	return Decrypted{Value: plain}
}
