package store

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/chacha20poly1305"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, chacha20poly1305.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func newSealedFS(t *testing.T, key []byte) (*SealedStore, *FSStore) {
	t.Helper()
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new fs store: %v", err)
	}
	s, err := NewSealedStore(fs, key)
	if err != nil {
		t.Fatalf("new sealed store: %v", err)
	}
	return s, fs
}

func TestSealedRoundTrip(t *testing.T) {
	s, fs := newSealedFS(t, testKey(t))
	ctx := context.Background()
	plain := []byte(`{"weights":[0.1,0.2]}`)

	if err := s.Put(ctx, "org/v1/model.json", plain); err != nil {
		t.Fatalf("put: %v", err)
	}
	// On disk the artifact is an envelope, not the plaintext.
	raw, err := fs.Fetch(ctx, "org/v1/model.json")
	if err != nil {
		t.Fatalf("raw fetch: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte(sealMagic)) || bytes.Contains(raw, plain) {
		t.Fatalf("artifact not sealed on disk")
	}

	got, err := s.Fetch(ctx, "org/v1/model.json")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestSealedLegacyPlaintextFallback(t *testing.T) {
	s, fs := newSealedFS(t, testKey(t))
	ctx := context.Background()
	plain := []byte(`{"legacy":true}`)

	// Artifact written before encryption was enabled.
	if err := fs.Put(ctx, "org/v0/model.json", plain); err != nil {
		t.Fatalf("raw put: %v", err)
	}
	got, err := s.Fetch(ctx, "org/v0/model.json")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("legacy fallback mismatch: %q", got)
	}
}

func TestSealedTamperDetected(t *testing.T) {
	s, fs := newSealedFS(t, testKey(t))
	ctx := context.Background()

	if err := s.Put(ctx, "org/v1/model.json", []byte("payload")); err != nil {
		t.Fatalf("put: %v", err)
	}
	raw, err := fs.Fetch(ctx, "org/v1/model.json")
	if err != nil {
		t.Fatalf("raw fetch: %v", err)
	}
	raw[len(raw)-1] ^= 0xff
	if err := fs.Put(ctx, "org/v1/model.json", raw); err != nil {
		t.Fatalf("raw put: %v", err)
	}

	_, err = s.Fetch(ctx, "org/v1/model.json")
	if !IsIntegrity(err) {
		t.Fatalf("expected integrity error, got %v", err)
	}
}

func TestSealedTruncatedEnvelope(t *testing.T) {
	s, fs := newSealedFS(t, testKey(t))
	ctx := context.Background()
	if err := fs.Put(ctx, "org/bad", []byte(sealMagic+"short")); err != nil {
		t.Fatalf("raw put: %v", err)
	}
	if _, err := s.Fetch(ctx, "org/bad"); !IsIntegrity(err) {
		t.Fatalf("expected integrity error, got %v", err)
	}
}

func TestSealedWithoutKey(t *testing.T) {
	s, fs := newSealedFS(t, nil)
	ctx := context.Background()

	// Passthrough writes stay plaintext.
	if err := s.Put(ctx, "org/plain", []byte("p")); err != nil {
		t.Fatalf("put: %v", err)
	}
	raw, _ := fs.Fetch(ctx, "org/plain")
	if string(raw) != "p" {
		t.Fatalf("expected plaintext passthrough, got %q", raw)
	}

	// Sealed blobs cannot be opened without the key.
	if err := fs.Put(ctx, "org/sealed", append([]byte(sealMagic), make([]byte, 80)...)); err != nil {
		t.Fatalf("raw put: %v", err)
	}
	if _, err := s.Fetch(ctx, "org/sealed"); !IsIntegrity(err) {
		t.Fatalf("expected integrity error, got %v", err)
	}
}

func TestLoadKey(t *testing.T) {
	d := t.TempDir()
	keyPath := filepath.Join(d, "key.hex")
	key := testKey(t)
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)+"\n"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	got, err := LoadKey(keyPath)
	if err != nil {
		t.Fatalf("load key: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatalf("key mismatch")
	}

	if _, err := LoadKey(filepath.Join(d, "missing")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	short := filepath.Join(d, "short.hex")
	_ = os.WriteFile(short, []byte("abcd"), 0o600)
	if _, err := LoadKey(short); err == nil {
		t.Fatalf("expected error for short key")
	}
	bad := filepath.Join(d, "bad.hex")
	_ = os.WriteFile(bad, []byte("zz"), 0o600)
	if _, err := LoadKey(bad); err == nil {
		t.Fatalf("expected error for non-hex key")
	}
}
