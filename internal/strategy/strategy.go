package strategy

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStrategy is returned for a method name or category with no generator.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrCipherRequired is returned when the cipher method runs without an Encrypter.
	ErrCipherRequired = errors.New("cipher strategy requires an encrypter")
)

// Strategy identifies one pseudonym generation method.
type Strategy int

// Known strategies.
const (
	Counter Strategy = iota + 1
	Hash
	SaltedHash
	RandomV1
	RandomV4
	Cipher
	MerkleRow
	Synthetic
	SyntheticName
	SyntheticLocation
	SyntheticEmail
	SyntheticPhone
	SyntheticOrg
)

var names = map[Strategy]string{
	Counter:           "counter",
	Hash:              "hash",
	SaltedHash:        "hash-salt",
	RandomV1:          "random1",
	RandomV4:          "random4",
	Cipher:            "encrypt",
	MerkleRow:         "merkle-tree",
	Synthetic:         "faker",
	SyntheticName:     "faker-name",
	SyntheticLocation: "faker-loc",
	SyntheticEmail:    "faker-email",
	SyntheticPhone:    "faker-phone",
	SyntheticOrg:      "faker-org",
}

// All returns every strategy in declaration order.
func All() []Strategy {
	out := make([]Strategy, 0, len(names))
	for s := Counter; s <= SyntheticOrg; s++ {
		out = append(out, s)
	}
	return out
}

// Parse resolves a method name such as "counter" or "faker-email".
func Parse(name string) (Strategy, error) {
	for s, n := range names {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// String returns the method name.
func (s Strategy) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Sequential reports whether the method emits numbers that chain across
// columns and categories.
func (s Strategy) Sequential() bool {
	return s == Counter
}

// IsSynthetic reports whether s belongs to the fake value family.
func (s Strategy) IsSynthetic() bool {
	return s >= Synthetic && s <= SyntheticOrg
}

// Encrypter turns a plaintext into an opaque reversible token.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// Input is everything a method may need to produce one pseudonym per value.
type Input struct {
	// Values holds the text of the target column or the spans of a category.
	Values []string
	// Rows holds the full rows aligned with Values; only MerkleRow reads it.
	// When nil each value is treated as a single-field row.
	Rows [][]string
	// Start is the first number emitted by Counter.
	Start int64
	// Seed makes RandomV1, RandomV4 and the synthetic methods reproducible.
	Seed *uint64
	// Category resolves the generic Synthetic method.
	Category Category
	// Cipher is required by the Cipher method.
	Cipher Encrypter
}

// Generate returns one pseudonym per input value.
func (s Strategy) Generate(in Input) ([]string, error) {
	switch s {
	case Counter:
		return counter(in), nil
	case Hash:
		return perValue(in.Values, hashValue)
	case SaltedHash:
		return perValue(in.Values, saltedHash)
	case RandomV1:
		return randomIDs(in, 1)
	case RandomV4:
		return randomIDs(in, 4)
	case Cipher:
		if in.Cipher == nil {
			return nil, ErrCipherRequired
		}
		return perValue(in.Values, in.Cipher.Encrypt)
	case MerkleRow:
		return rowHashes(in)
	case Synthetic:
		resolved, err := ForCategory(in.Category)
		if err != nil {
			return nil, err
		}
		return resolved.Generate(in)
	case SyntheticName, SyntheticLocation, SyntheticEmail, SyntheticPhone, SyntheticOrg:
		return synthetic(s, in)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, s)
	}
}

func perValue(values []string, fn func(string) (string, error)) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}
		p, err := fn(v)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
