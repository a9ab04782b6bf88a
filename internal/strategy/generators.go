package strategy

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/nao1215/pseudokit/internal/merkle"
)

func counter(in Input) []string {
	out := make([]string, len(in.Values))
	for i := range in.Values {
		out[i] = strconv.FormatInt(in.Start+int64(i), 10)
	}
	return out
}

func hashValue(v string) (string, error) {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:]), nil
}

// saltedHash prefixes the value with a fresh random UUID in hex form.
func saltedHash(v string) (string, error) {
	salt, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hashValue(strings.ReplaceAll(salt.String(), "-", "") + v)
}

// seededReader returns a deterministic byte stream for seed.
func seededReader(seed uint64) io.Reader {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	return rand.NewChaCha8(key)
}

// seededUUID reads 128 bits from r and stamps the RFC 4122 variant and the
// given version on them.
func seededUUID(r io.Reader, version byte) (uuid.UUID, error) {
	var u uuid.UUID
	if _, err := io.ReadFull(r, u[:]); err != nil {
		return uuid.Nil, err
	}
	u[6] = (u[6] & 0x0f) | version<<4
	u[8] = (u[8] & 0x3f) | 0x80
	return u, nil
}

func randomIDs(in Input, version byte) ([]string, error) {
	var next func() (uuid.UUID, error)
	switch {
	case in.Seed != nil:
		r := seededReader(*in.Seed)
		next = func() (uuid.UUID, error) { return seededUUID(r, version) }
	case version == 1:
		next = uuid.NewUUID
	default:
		next = uuid.NewRandom
	}

	return perValue(in.Values, func(string) (string, error) {
		u, err := next()
		if err != nil {
			return "", fmt.Errorf("failed to generate uuid v%d: %w", version, err)
		}
		return u.String(), nil
	})
}

func rowHashes(in Input) ([]string, error) {
	out := make([]string, len(in.Values))
	for i, v := range in.Values {
		row := []string{v}
		if in.Rows != nil {
			row = in.Rows[i]
		}
		fields := make([]string, 0, len(row))
		for _, f := range row {
			if f != "" {
				fields = append(fields, f)
			}
		}
		if len(fields) == 0 {
			continue
		}
		root, err := merkle.Root(fields)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = root
	}
	return out, nil
}

func synthetic(s Strategy, in Input) ([]string, error) {
	var seed uint64
	if in.Seed != nil {
		seed = *in.Seed
	}
	// gofakeit treats seed 0 as "pick a random seed".
	f := gofakeit.New(seed)

	var gen func() string
	switch s {
	case SyntheticName:
		gen = f.Name
	case SyntheticLocation:
		gen = f.City
	case SyntheticEmail:
		gen = f.Email
	case SyntheticPhone:
		gen = func() string { return "+49 " + f.Phone() }
	case SyntheticOrg:
		gen = f.Company
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, s)
	}
	return perValue(in.Values, func(string) (string, error) { return gen(), nil })
}
