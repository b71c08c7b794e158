package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// Sealer protects values written to the device store. label binds a
// ciphertext to the key it was stored under so values cannot be swapped.
type Sealer interface {
	Seal(plaintext []byte, label string) (string, error)
	Open(sealed, label string) ([]byte, error)
}

const (
	// Versioned prefix to allow future key/algorithm rotations without data migrations.
	sealedPrefixV1 = "v1:"
	plainPrefix    = "plain:"
	keySize        = 32
	hkdfInfo       = "nutrinom store v1"
)

// ErrUnsealed is returned by AESGCMSealer.Open for values written without encryption.
var ErrUnsealed = errors.New("value was stored without encryption")

// AESGCMSealer implements Sealer using AES-256-GCM.
type AESGCMSealer struct {
	aead cipher.AEAD
}

// NewAESGCMSealer constructs a sealer from a 32-byte key.
func NewAESGCMSealer(key []byte) (*AESGCMSealer, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("aes-gcm key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCMSealer{aead: aead}, nil
}

// ParseKey accepts a 32-byte key as hex, base64 or raw text. Any other
// non-empty secret is stretched to 32 bytes with HKDF-SHA256.
func ParseKey(secret string) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("encryption key is empty")
	}
	if b, err := hex.DecodeString(secret); err == nil && len(b) == keySize {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(secret); err == nil && len(b) == keySize {
		return b, nil
	}
	if len(secret) == keySize {
		return []byte(secret), nil
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// NewSealer returns an AES-GCM sealer for secret, or a PlainSealer when secret is empty.
func NewSealer(secret string) (Sealer, error) { //nolint:ireturn
	if strings.TrimSpace(secret) == "" {
		return PlainSealer{}, nil
	}
	key, err := ParseKey(secret)
	if err != nil {
		return nil, err
	}
	s, err := NewAESGCMSealer(key)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Seal encrypts plaintext with a random nonce and returns a versioned base64 string.
func (s *AESGCMSealer) Seal(plaintext []byte, label string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := s.aead.Seal(nil, nonce, plaintext, []byte(label))
	// Store nonce||ciphertext
	buf := make([]byte, 0, len(nonce)+len(ct))
	buf = append(buf, nonce...)
	buf = append(buf, ct...)
	return sealedPrefixV1 + base64.StdEncoding.EncodeToString(buf), nil
}

// Open decrypts a value created by Seal under the same label. Values written
// by PlainSealer are rejected with ErrUnsealed.
func (s *AESGCMSealer) Open(sealed, label string) ([]byte, error) {
	if strings.HasPrefix(sealed, plainPrefix) {
		return nil, ErrUnsealed
	}
	if !strings.HasPrefix(sealed, sealedPrefixV1) {
		return nil, fmt.Errorf("unknown sealed value version (prefix: %s)", shortPrefix(sealed))
	}
	data, err := base64.StdEncoding.DecodeString(sealed[len(sealedPrefixV1):])
	if err != nil {
		return nil, fmt.Errorf("decode sealed value: %w", err)
	}
	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ct := data[:nonceSize], data[nonceSize:]
	pt, err := s.aead.Open(nil, nonce, ct, []byte(label))
	if err != nil {
		return nil, fmt.Errorf("open sealed value: %w", err)
	}
	return pt, nil
}

// PlainSealer stores values unencrypted behind a prefix marker. It is used
// when no encryption key is configured.
type PlainSealer struct{}

func (PlainSealer) Seal(plaintext []byte, _ string) (string, error) {
	return plainPrefix + base64.StdEncoding.EncodeToString(plaintext), nil
}

func (PlainSealer) Open(sealed, _ string) ([]byte, error) {
	if strings.HasPrefix(sealed, sealedPrefixV1) {
		return nil, errors.New("value is encrypted but no encryption key is configured")
	}
	if !strings.HasPrefix(sealed, plainPrefix) {
		return nil, fmt.Errorf("unknown sealed value version (prefix: %s)", shortPrefix(sealed))
	}
	return base64.StdEncoding.DecodeString(sealed[len(plainPrefix):])
}

func shortPrefix(s string) string {
	if len(s) > 6 {
		return s[:6]
	}
	return s
}
