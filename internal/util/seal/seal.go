// Package seal encrypts short secrets, such as scoped access tokens, before
// they are written into checkpoint records.
//
// Sealed values are prefixed with "sealed:v1:" followed by the base64 of a
// 24-byte nonce and a NaCl secretbox ciphertext.
package seal

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	prefix    = "sealed:v1:"
	keySize   = 32
	nonceSize = 24
)

var (
	// ErrInvalidKey is returned when a key is not 32 bytes of hex or base64.
	ErrInvalidKey = errors.New("seal key must be 32 bytes, hex or base64 encoded")
	// ErrNotSealed is returned when opening a value without the sealed prefix.
	ErrNotSealed = errors.New("value is not sealed")
	// ErrDecrypt is returned when the ciphertext fails authentication.
	ErrDecrypt = errors.New("sealed value could not be decrypted")
)

// Sealer seals and opens values with a fixed key.
type Sealer struct {
	key [keySize]byte
}

// ParseKey decodes a 32-byte key given as hex or standard base64.
func ParseKey(s string) (*Sealer, error) {
	s = strings.TrimSpace(s)
	var raw []byte
	if b, err := hex.DecodeString(s); err == nil && len(b) == keySize {
		raw = b
	} else if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == keySize {
		raw = b
	} else {
		return nil, ErrInvalidKey
	}

	sl := &Sealer{}
	copy(sl.key[:], raw)
	return sl, nil
}

// Seal encrypts plaintext with a fresh random nonce.
func (s *Sealer) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return prefix + base64.StdEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return "", ErrNotSealed
	}
	box, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, prefix))
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", ErrDecrypt
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

// IsSealed reports whether v carries the sealed prefix.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, prefix)
}
