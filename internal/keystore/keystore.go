// Package keystore manages the per-column secret keys used to encrypt
// mapping values and cipher pseudonyms.
//
// A key is 32 random bytes stored as lowercase hex text in the artifact
// "secure_key_<name>.txt" of the injected storage backend. Keys are never
// rotated: Generate overwrites any existing key for the same name, which
// makes values encrypted under the previous key unreadable.
package keystore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/pseudokit/internal/storage"
)

// KeySize is the key length in bytes (AES-256).
const KeySize = 32

// TagPrefix marks pseudonym columns; it is ignored when resolving key names.
const TagPrefix = "Index_"

var (
	// ErrKeyNotFound is returned when no key exists for a column or category.
	ErrKeyNotFound = errors.New("secret key not found")

	// ErrInvalidKey is returned when a stored key is not KeySize bytes of hex.
	ErrInvalidKey = errors.New("invalid secret key")
)

// FileName returns the artifact name of the key for a column or category.
func FileName(name string) string {
	return "secure_key_" + strings.TrimPrefix(name, TagPrefix) + ".txt"
}

// KeyStore generates and looks up secret keys.
type KeyStore struct {
	storage storage.Storage
}

// New returns a KeyStore over s.
func New(s storage.Storage) *KeyStore {
	return &KeyStore{storage: s}
}

// Generate creates a fresh key for name, persists it and returns it.
func (k *KeyStore) Generate(ctx context.Context, name string) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to read random key bytes: %w", err)
	}
	if err := k.storage.Write(ctx, FileName(name), []byte(hex.EncodeToString(key))); err != nil {
		return nil, fmt.Errorf("failed to store key for %s: %w", name, err)
	}
	return key, nil
}

// Get returns the key for name. A leading "Index_" is ignored.
func (k *KeyStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := k.storage.Read(ctx, FileName(name))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, strings.TrimPrefix(name, TagPrefix))
	}
	if err != nil {
		return nil, err
	}

	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidKey, name, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: %s: got %d bytes, want %d", ErrInvalidKey, name, len(key), KeySize)
	}
	return key, nil
}

// Location returns where the key for name is stored.
func (k *KeyStore) Location(name string) string {
	return k.storage.Location(FileName(name))
}
