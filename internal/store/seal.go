package store

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed artifact layout: magic, sha256 of the plaintext, XChaCha20 nonce,
// then the AEAD ciphertext. Blobs without the magic are treated as legacy
// plaintext artifacts written before encryption was turned on.
const sealMagic = "PDMODEL1"

// SealedStore wraps an artifact store with encryption at rest and checksum
// verification on read.
type SealedStore struct {
	inner Store
	aead  interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
	}
}

// NewSealedStore builds the encrypting decorator. A nil key yields a
// passthrough store that still rejects sealed blobs it cannot open.
func NewSealedStore(inner Store, key []byte) (*SealedStore, error) {
	s := &SealedStore{inner: inner}
	if len(key) == 0 {
		return s, nil
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init artifact cipher: %w", err)
	}
	s.aead = aead
	return s, nil
}

func (s *SealedStore) Fetch(ctx context.Context, path string) ([]byte, error) {
	blob, err := s.inner.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(blob, []byte(sealMagic)) {
		// Legacy plaintext artifact.
		return blob, nil
	}
	if s.aead == nil {
		return nil, ErrIntegrity(path, "sealed artifact but no key configured")
	}
	rest := blob[len(sealMagic):]
	headerLen := sha256.Size + s.aead.NonceSize()
	if len(rest) < headerLen {
		return nil, ErrIntegrity(path, "truncated envelope")
	}
	sum := rest[:sha256.Size]
	nonce := rest[sha256.Size:headerLen]
	plain, err := s.aead.Open(nil, nonce, rest[headerLen:], nil)
	if err != nil {
		return nil, ErrIntegrity(path, "decrypt failed")
	}
	if got := sha256.Sum256(plain); !bytes.Equal(got[:], sum) {
		return nil, ErrIntegrity(path, "checksum mismatch")
	}
	return plain, nil
}

func (s *SealedStore) Put(ctx context.Context, path string, data []byte) error {
	if s.aead == nil {
		return s.inner.Put(ctx, path, data)
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("artifact nonce: %w", err)
	}
	sum := sha256.Sum256(data)
	blob := make([]byte, 0, len(sealMagic)+len(sum)+len(nonce)+len(data)+16)
	blob = append(blob, sealMagic...)
	blob = append(blob, sum[:]...)
	blob = append(blob, nonce...)
	blob = s.aead.Seal(blob, nonce, data, nil)
	return s.inner.Put(ctx, path, blob)
}

// LoadKey reads a hex-encoded 32-byte key from a file.
func LoadKey(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, fmt.Errorf("decode key file: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return key, nil
}
