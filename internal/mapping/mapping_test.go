package mapping

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/pseudokit/internal/keystore"
	"github.com/nao1215/pseudokit/internal/storage"
	"github.com/nao1215/pseudokit/internal/table"
)

func TestCipher(t *testing.T) {
	t.Parallel()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	t.Run("AES-256 ECB known answer with a full padding block", func(t *testing.T) {
		t.Parallel()
		pt, err := hex.DecodeString("00112233445566778899aabbccddeeff")
		require.NoError(t, err)

		ct, err := EncryptECB(key, string(pt))
		require.NoError(t, err)
		raw, err := base64.StdEncoding.DecodeString(ct)
		require.NoError(t, err)
		require.Len(t, raw, 32)
		assert.Equal(t, "8ea2b7ca516745bfeafc49904b496089", hex.EncodeToString(raw[:16]))
	})

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		for _, v := range []string{"", "a", "Alice Müller", "0123456789abcdef", "東京都 🗼", strings.Repeat("x", 100)} {
			ct, err := EncryptECB(key, v)
			require.NoError(t, err)
			got, err := DecryptECB(key, ct)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		}
	})

	t.Run("equal plaintexts give equal ciphertexts", func(t *testing.T) {
		t.Parallel()
		a, err := EncryptECB(key, "same")
		require.NoError(t, err)
		b, err := EncryptECB(key, "same")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("failures", func(t *testing.T) {
		t.Parallel()
		other := make([]byte, 32)
		ct, err := EncryptECB(key, "secret")
		require.NoError(t, err)

		for name, fn := range map[string]func() error{
			"short key":       func() error { _, err := EncryptECB([]byte("short"), "x"); return err },
			"invalid base64":  func() error { _, err := DecryptECB(key, "%%%"); return err },
			"truncated block": func() error { _, err := DecryptECB(key, base64.StdEncoding.EncodeToString([]byte("abc"))); return err },
			"wrong key":       func() error { _, err := DecryptECB(other, ct); return err },
		} {
			assert.ErrorIs(t, fn(), ErrCipherFailure, name)
		}
	})
}

func TestTable(t *testing.T) {
	t.Parallel()

	m, err := New("name", []string{"Alice", "Bob"}, []string{"0", "1"})
	require.NoError(t, err)

	t.Run("rendered table puts pseudonyms first", func(t *testing.T) {
		t.Parallel()
		tbl := m.ToTable()
		assert.Equal(t, []string{"Index_name", "name"}, tbl.Columns())
		assert.Equal(t, []string{"1", "Bob"}, tbl.Row(1))
	})

	t.Run("parsed back from a table", func(t *testing.T) {
		t.Parallel()
		got, err := FromTable(m.ToTable(), "name")
		require.NoError(t, err)
		assert.Equal(t, m, got)
	})

	t.Run("missing tag column", func(t *testing.T) {
		t.Parallel()
		_, err := FromTable(table.MustNew([]string{"name"}, nil), "name")
		assert.ErrorIs(t, err, table.ErrColumnNotFound)
	})

	t.Run("filter keeps order", func(t *testing.T) {
		t.Parallel()
		got := m.Filter(map[string]struct{}{"1": {}})
		assert.Equal(t, []string{"Bob"}, got.Originals())
	})

	t.Run("length mismatch", func(t *testing.T) {
		t.Parallel()
		_, err := New("name", []string{"a"}, nil)
		assert.Error(t, err)
	})
}

func TestStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("save writes the mapping file by convention", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		s := NewStore(storage.NewDir(dir))
		m, err := New("city", []string{"Berlin", "Warsaw"}, []string{"5", "6"})
		require.NoError(t, err)

		loc, err := s.Save(ctx, m)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "mapping_output_city.csv"), loc)

		data, err := os.ReadFile(loc)
		require.NoError(t, err)
		assert.Equal(t, "Index_city,city\n5,Berlin\n6,Warsaw\n", string(data))

		got, err := s.Load(ctx, "city")
		require.NoError(t, err)
		assert.Equal(t, m.Records, got.Records)
	})

	t.Run("encrypt and decrypt through generated key", func(t *testing.T) {
		t.Parallel()
		s := NewStore(storage.NewMemory())
		require.NoError(t, s.GenerateKey(ctx, "name"))

		ct, err := s.Encrypt(ctx, "name", "Alice")
		require.NoError(t, err)
		assert.NotEqual(t, "Alice", ct)

		pt, err := s.Decrypt(ctx, "Index_name", ct)
		require.NoError(t, err)
		assert.Equal(t, "Alice", pt)
	})

	t.Run("originals round trip and nulls stay null", func(t *testing.T) {
		t.Parallel()
		s := NewStore(storage.NewMemory())
		require.NoError(t, s.GenerateKey(ctx, "name"))
		m, err := New("name", []string{"Alice", ""}, []string{"0", "1"})
		require.NoError(t, err)

		enc, err := s.EncryptOriginals(ctx, m)
		require.NoError(t, err)
		assert.True(t, enc.Encrypted)
		assert.NotEqual(t, "Alice", enc.Records[0].Original)
		assert.Empty(t, enc.Records[1].Original)
		assert.Equal(t, "Alice", m.Records[0].Original)

		dec, err := s.DecryptOriginals(ctx, enc)
		require.NoError(t, err)
		assert.Equal(t, m.Records, dec.Records)
		assert.False(t, dec.Encrypted)
	})

	t.Run("decrypt without key", func(t *testing.T) {
		t.Parallel()
		s := NewStore(storage.NewMemory())
		_, err := s.Decrypt(ctx, "name", "abc")
		assert.ErrorIs(t, err, keystore.ErrKeyNotFound)
	})

	t.Run("separate key store", func(t *testing.T) {
		t.Parallel()
		keys := storage.NewMemory()
		s := NewStore(storage.NewMemory(), WithKeyStore(keystore.New(keys)))
		require.NoError(t, s.GenerateKey(ctx, "name"))
		assert.Equal(t, []string{"secure_key_name.txt"}, keys.Names())
	})

	t.Run("load of missing mapping", func(t *testing.T) {
		t.Parallel()
		_, err := NewStore(storage.NewMemory()).Load(ctx, "name")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
