package mapping

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/pseudokit/internal/keystore"
	"github.com/nao1215/pseudokit/internal/storage"
	"github.com/nao1215/pseudokit/internal/table"
)

// Store persists mapping tables and encrypts values with per-column keys.
type Store struct {
	storage storage.Storage
	keys    *keystore.KeyStore
	logger  *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithKeyStore overrides the key store, which otherwise shares the mapping storage.
func WithKeyStore(ks *keystore.KeyStore) StoreOption {
	return func(s *Store) {
		s.keys = ks
	}
}

// NewStore returns a Store writing to s.
func NewStore(s storage.Storage, opts ...StoreOption) *Store {
	st := &Store{
		storage: s,
		keys:    keystore.New(s),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Save writes the mapping of m.Column and returns its location.
func (s *Store) Save(ctx context.Context, m *Table) (string, error) {
	var buf bytes.Buffer
	if err := table.Write(&buf, m.ToTable(), ','); err != nil {
		return "", fmt.Errorf("failed to encode mapping %s: %w", m.Column, err)
	}
	name := FileName(m.Column)
	if err := s.storage.Write(ctx, name, buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to save mapping %s: %w", m.Column, err)
	}
	s.logger.Debug("mapping saved", "column", m.Column, "records", m.Len(), "location", s.storage.Location(name))
	return s.storage.Location(name), nil
}

// Load reads the mapping of column.
func (s *Store) Load(ctx context.Context, column string) (*Table, error) {
	data, err := s.storage.Read(ctx, FileName(column))
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping %s: %w", column, err)
	}
	t, err := table.Read(bytes.NewReader(data), ',')
	if err != nil {
		return nil, fmt.Errorf("failed to decode mapping %s: %w", column, err)
	}
	return FromTable(t, column)
}

// Location returns where the mapping of column is stored.
func (s *Store) Location(column string) string {
	return s.storage.Location(FileName(column))
}

// KeyLocation returns where the key of column is stored.
func (s *Store) KeyLocation(column string) string {
	return s.keys.Location(column)
}

// GenerateKey creates a new key for name, replacing any previous one.
func (s *Store) GenerateKey(ctx context.Context, name string) error {
	if _, err := s.keys.Generate(ctx, name); err != nil {
		return err
	}
	s.logger.Debug("secret key generated", "name", name, "location", s.keys.Location(name))
	return nil
}

// Encrypt encrypts plaintext with the key of name.
func (s *Store) Encrypt(ctx context.Context, name, plaintext string) (string, error) {
	c, err := s.Cipher(ctx, name)
	if err != nil {
		return "", err
	}
	return c.Encrypt(plaintext)
}

// Decrypt decrypts ciphertext with the key of name.
func (s *Store) Decrypt(ctx context.Context, name, ciphertext string) (string, error) {
	c, err := s.Cipher(ctx, name)
	if err != nil {
		return "", err
	}
	return c.Decrypt(ciphertext)
}

// Cipher loads the key of name once and returns a value cipher bound to it.
func (s *Store) Cipher(ctx context.Context, name string) (*Cipher, error) {
	key, err := s.keys.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Cipher{key: key}, nil
}

// EncryptOriginals returns a copy of m whose original side is encrypted
// with the key of m.Column. Null originals stay null.
func (s *Store) EncryptOriginals(ctx context.Context, m *Table) (*Table, error) {
	c, err := s.Cipher(ctx, m.Column)
	if err != nil {
		return nil, err
	}
	out := &Table{Column: m.Column, Records: make([]Record, len(m.Records)), Encrypted: true}
	for i, r := range m.Records {
		out.Records[i] = r
		if table.IsNull(r.Original) {
			continue
		}
		if out.Records[i].Original, err = c.Encrypt(r.Original); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DecryptOriginals reverses EncryptOriginals.
func (s *Store) DecryptOriginals(ctx context.Context, m *Table) (*Table, error) {
	c, err := s.Cipher(ctx, m.Column)
	if err != nil {
		return nil, err
	}
	out := &Table{Column: m.Column, Records: make([]Record, len(m.Records))}
	for i, r := range m.Records {
		out.Records[i] = r
		if table.IsNull(r.Original) {
			continue
		}
		if out.Records[i].Original, err = c.Decrypt(r.Original); err != nil {
			return nil, fmt.Errorf("mapping %s record %d: %w", m.Column, i, err)
		}
	}
	return out, nil
}

// Cipher encrypts and decrypts values under one key.
type Cipher struct {
	key []byte
}

// NewCipher returns a cipher for a raw key.
func NewCipher(key []byte) *Cipher {
	return &Cipher{key: key}
}

// Encrypt implements strategy.Encrypter.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	return EncryptECB(c.key, plaintext)
}

// Decrypt decrypts one value.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	return DecryptECB(c.key, ciphertext)
}
