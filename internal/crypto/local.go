package crypto

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNoSessionKey is returned by NewLocalService for an empty key.
var ErrNoSessionKey = errors.New("session key is empty")

// LocalService seals credential blobs with XChaCha20-Poly1305 under a key
// derived from a shared secret. It serves deployments without KMS.
type LocalService struct {
	aead cipher.AEAD
	ad   []byte
}

func NewLocalService(secret string) (*LocalService, error) {
	if secret == "" {
		return nil, ErrNoSessionKey
	}
	key := sha256.Sum256([]byte(secret))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("init session cipher: %w", err)
	}
	return &LocalService{aead: aead, ad: []byte(encryptionContext["purpose"])}, nil
}

// Encrypt returns base64(nonce || ciphertext).
func (s *LocalService) Encrypt(_ context.Context, plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("session cipher nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), s.ad)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *LocalService) Decrypt(_ context.Context, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 ciphertext: %w", err)
	}
	if len(raw) < s.aead.NonceSize() {
		return "", errors.New("session ciphertext too short")
	}
	nonce, body := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, body, s.ad)
	if err != nil {
		return "", fmt.Errorf("session cipher open: %w", err)
	}
	return string(plain), nil
}
