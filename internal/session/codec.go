// Package session encrypts and decrypts the browser-held session record.
//
// The wire form is base64(nonce || ciphertext) produced by AES-256-GCM with a
// fresh 12-byte nonce per call. The codec keeps no key state; callers pass the
// key on every call so the key can be resolved per request.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/target/auth-bff/internal/domain/auth"
)

// NonceSize is the AES-GCM nonce length prepended to every ciphertext.
const NonceSize = 12

// ErrUndecryptable is returned by Open for any input that is not a session
// sealed under the given key.
var ErrUndecryptable = errors.New("session: undecryptable")

// Encrypt seals s under key and returns the base64 text suitable for a cookie value.
func Encrypt(s auth.SessionData, key Key) (string, error) {
	plaintext, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	// nonce||ciphertext+tag
	buf := make([]byte, 0, NonceSize+len(plaintext)+gcm.Overhead())
	buf = append(buf, nonce...)
	buf = gcm.Seal(buf, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt returns the session sealed in blob, or false when blob cannot be
// opened under key for any reason. It never returns partial data.
func Decrypt(blob string, key Key) (auth.SessionData, bool) {
	s, err := Open(blob, key)
	return s, err == nil
}

// Open is Decrypt with the failure cause preserved for logging.
// Every failure wraps ErrUndecryptable.
func Open(blob string, key Key) (auth.SessionData, error) {
	var s auth.SessionData

	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return s, fmt.Errorf("%w: decode: %v", ErrUndecryptable, err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return s, fmt.Errorf("%w: %v", ErrUndecryptable, err)
	}
	if len(data) < NonceSize+gcm.Overhead() {
		return s, fmt.Errorf("%w: ciphertext too short", ErrUndecryptable)
	}
	nonce, ct := data[:NonceSize], data[NonceSize:]
	pt, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return s, fmt.Errorf("%w: %v", ErrUndecryptable, err)
	}
	if err := json.Unmarshal(pt, &s); err != nil {
		return auth.SessionData{}, fmt.Errorf("%w: unmarshal: %v", ErrUndecryptable, err)
	}
	return s, nil
}

func newGCM(key Key) (cipher.AEAD, error) {
	if !key.Valid() {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, NonceSize)
}
