package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the AES-256 key length.
const KeySize = 32

// minSecretLen is the shortest passphrase accepted for key derivation.
const minSecretLen = 16

var (
	// ErrInvalidKey is returned when a zero or otherwise unusable key is used.
	ErrInvalidKey = errors.New("session: invalid key")
	// ErrWeakSecret is returned when a passphrase is too short to derive a key from.
	ErrWeakSecret = errors.New("session: secret too short")
	// ErrKeyLength is returned for hex secrets that are not exactly KeySize bytes.
	ErrKeyLength = errors.New("session: hex key must be 64 characters")
)

// hkdfInfo binds derived keys to their use.
var hkdfInfo = []byte("auth-bff session cookie v1")

// Key is an AES-256 session key.
type Key [KeySize]byte

// Valid reports whether k is non-zero.
func (k Key) Valid() bool {
	return k != Key{}
}

// String never reveals key material.
func (k Key) String() string {
	return "session.Key(redacted)"
}

// ParseKey turns a configured secret into a Key.
// A 64 character hex string is used as raw key bytes. Other hex strings are
// rejected rather than silently stretched, since they are almost always
// AES-128 or AES-192 keys. Anything else is treated as a passphrase and
// stretched with HKDF-SHA256.
func ParseKey(secret string) (Key, error) {
	var k Key
	secret = strings.TrimSpace(secret)
	if raw, err := hex.DecodeString(secret); err == nil && len(raw) > 0 {
		if len(raw) != KeySize {
			return Key{}, fmt.Errorf("%w: got %d", ErrKeyLength, len(secret))
		}
		copy(k[:], raw)
		if !k.Valid() {
			return Key{}, ErrInvalidKey
		}
		return k, nil
	}
	if len(secret) < minSecretLen {
		return Key{}, fmt.Errorf("%w: need at least %d characters", ErrWeakSecret, minSecretLen)
	}
	r := hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo)
	if _, err := io.ReadFull(r, k[:]); err != nil {
		return Key{}, fmt.Errorf("derive session key: %w", err)
	}
	return k, nil
}

// GenerateKey returns a random key.
func GenerateKey() (Key, error) {
	var k Key
	if _, err := io.ReadFull(rand.Reader, k[:]); err != nil {
		return Key{}, fmt.Errorf("generate session key: %w", err)
	}
	return k, nil
}

// Hex encodes k as the 64 character form accepted by ParseKey.
func (k Key) Hex() string {
	return hex.EncodeToString(k[:])
}
