package config

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// blobVersion is the version byte prefixed to every encrypted blob so
	// the format can evolve without breaking stored configs.
	blobVersion = 0x01
)

// ErrInvalidBlob is returned when an encrypted blob is structurally broken.
var ErrInvalidBlob = errors.New("invalid config blob")

// secretBox seals and opens JSON-marshalled values with ChaCha20-Poly1305.
// Blob format: version(1) || nonce(24) || ciphertext.
type secretBox struct {
	aead cipher.AEAD
}

func newSecretBox(key []byte) (*secretBox, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return &secretBox{aead: aead}, nil
}

func (b *secretBox) seal(value any) ([]byte, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshalling value: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := b.aead.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 1+len(nonce)+len(ciphertext))
	blob[0] = blobVersion
	copy(blob[1:1+len(nonce)], nonce)
	copy(blob[1+len(nonce):], ciphertext)
	return blob, nil
}

func (b *secretBox) open(blob []byte, value any) error {
	if len(blob) < 1+chacha20poly1305.NonceSizeX {
		return fmt.Errorf("%w: too short", ErrInvalidBlob)
	}
	if blob[0] != blobVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidBlob, blob[0])
	}

	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	ciphertext := blob[1+chacha20poly1305.NonceSizeX:]

	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrDecryptFailed
	}
	if err := json.Unmarshal(plaintext, value); err != nil {
		return fmt.Errorf("unmarshalling config: %w", err)
	}
	return nil
}

// loadOrCreateKey reads the encryption key file, generating a fresh random
// key on first run.
func loadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("key file %s has wrong size (delete it to reset, stored credentials will be lost)", path)
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	// Atomic write: temp file then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, key, 0o600); err != nil {
		return nil, fmt.Errorf("writing key file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("saving key file: %w", err)
	}
	return key, nil
}
