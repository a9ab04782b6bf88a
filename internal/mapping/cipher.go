package mapping

import (
	"bytes"
	"crypto/aes"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrCipherFailure is returned when a value cannot be encrypted or decrypted.
var ErrCipherFailure = errors.New("cipher failure")

// EncryptECB encrypts plaintext with key and returns the base64 text.
func EncryptECB(key []byte, plaintext string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCipherFailure, err)
	}
	bs := block.BlockSize()
	data := pad([]byte(plaintext), bs)
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += bs {
		block.Encrypt(out[i:i+bs], data[i:i+bs])
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptECB reverses EncryptECB.
func DecryptECB(key []byte, ciphertext string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCipherFailure, err)
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %w", ErrCipherFailure, err)
	}
	bs := block.BlockSize()
	if len(data) == 0 || len(data)%bs != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a multiple of %d", ErrCipherFailure, len(data), bs)
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += bs {
		block.Decrypt(out[i:i+bs], data[i:i+bs])
	}
	plain, err := unpad(out, bs)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrCipherFailure)
	}
	return string(plain), nil
}

func pad(data []byte, bs int) []byte {
	n := bs - len(data)%bs
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, bs int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > bs || n > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", ErrCipherFailure)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: invalid padding", ErrCipherFailure)
		}
	}
	return data[:len(data)-n], nil
}
