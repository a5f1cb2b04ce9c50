package cache

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN   = 32768
	scryptR   = 8
	scryptP   = 1
	keyLength = 32
	nonceSize = 12
)

// security holds the AES-256-GCM cipher derived from a passphrase, used by
// Disk (and Hybrid, via Disk) for optional at-rest encryption.
type security struct {
	gcm cipher.AEAD
}

func newSecurity(passphrase string) (*security, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("cache: encryption passphrase cannot be empty")
	}
	salt := sha256.Sum256([]byte("netkit-cache-salt-v1"))
	key, err := scrypt.Key([]byte(passphrase), salt[:], scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to create GCM: %w", err)
	}
	return &security{gcm: gcm}, nil
}

func (s *security) encrypt(data []byte) ([]byte, error) {
	if s == nil || s.gcm == nil {
		return data, nil
	}
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cache: failed to generate nonce: %w", err)
	}
	return s.gcm.Seal(nonce, nonce, data, nil), nil
}

func (s *security) decrypt(data []byte) ([]byte, error) {
	if s == nil || s.gcm == nil {
		return data, nil
	}
	if len(data) < nonceSize {
		return nil, fmt.Errorf("cache: ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to decrypt: %w", err)
	}
	return plaintext, nil
}
