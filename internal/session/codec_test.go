package session

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/auth-bff/internal/domain/auth"
)

func testKey(t *testing.T) Key {
	t.Helper()
	k, err := GenerateKey()
	require.NoError(t, err)
	return k
}

func sampleSession() auth.SessionData {
	return auth.SessionData{
		AccessToken:  "access",
		RefreshToken: "refresh",
		CSRFToken:    "csrf-1",
		User:         auth.Claims{"email": "a@example.com", "sub": "u1"},
		IssuedAt:     1700000000,
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey(t)
	in := sampleSession()

	blob, err := Encrypt(in, key)
	require.NoError(t, err)

	out, ok := Decrypt(blob, key)
	require.True(t, ok)
	assert.Equal(t, in.AccessToken, out.AccessToken)
	assert.Equal(t, in.RefreshToken, out.RefreshToken)
	assert.Equal(t, in.CSRFToken, out.CSRFToken)
	assert.Equal(t, "a@example.com", out.User["email"])
	assert.Equal(t, in.IssuedAt, out.IssuedAt)
}

func TestEncrypt_FreshNonce(t *testing.T) {
	key := testKey(t)
	a, err := Encrypt(sampleSession(), key)
	require.NoError(t, err)
	b, err := Encrypt(sampleSession(), key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	rawA, _ := base64.StdEncoding.DecodeString(a)
	rawB, _ := base64.StdEncoding.DecodeString(b)
	assert.NotEqual(t, rawA[:NonceSize], rawB[:NonceSize])
}

func TestDecrypt_Failures(t *testing.T) {
	key := testKey(t)
	other := testKey(t)
	blob, err := Encrypt(sampleSession(), key)
	require.NoError(t, err)

	raw, _ := base64.StdEncoding.DecodeString(blob)
	flipped := append([]byte(nil), raw...)
	flipped[len(flipped)-1] ^= 0x01

	tests := []struct {
		name string
		blob string
		key  Key
	}{
		{name: "wrong key", blob: blob, key: other},
		{name: "tampered tag", blob: base64.StdEncoding.EncodeToString(flipped), key: key},
		{name: "not base64", blob: "%%%not-base64%%%", key: key},
		{name: "shorter than nonce", blob: base64.StdEncoding.EncodeToString([]byte("short")), key: key},
		{name: "empty", blob: "", key: key},
		{name: "zero key", blob: blob, key: Key{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := Decrypt(tt.blob, tt.key)
			assert.False(t, ok)
			assert.Equal(t, auth.SessionData{}, s)

			_, err := Open(tt.blob, tt.key)
			assert.ErrorIs(t, err, ErrUndecryptable)
		})
	}
}

func TestDecrypt_NonJSONPlaintext(t *testing.T) {
	key := testKey(t)
	gcm, err := newGCM(key)
	require.NoError(t, err)
	nonce := make([]byte, NonceSize)
	sealed := gcm.Seal(append([]byte(nil), nonce...), nonce, []byte("not json"), nil)

	_, ok := Decrypt(base64.StdEncoding.EncodeToString(sealed), key)
	assert.False(t, ok)
}

func TestEncrypt_ZeroKeyRejected(t *testing.T) {
	_, err := Encrypt(sampleSession(), Key{})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestParseKey(t *testing.T) {
	hexKey := strings.Repeat("ab", KeySize)
	k, err := ParseKey(hexKey)
	require.NoError(t, err)
	assert.Equal(t, hexKey, k.Hex())

	p1, err := ParseKey("correct horse battery staple")
	require.NoError(t, err)
	p2, err := ParseKey("correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.True(t, p1.Valid())

	_, err = ParseKey("short")
	assert.ErrorIs(t, err, ErrWeakSecret)

	_, err = ParseKey(strings.Repeat("0", 2*KeySize))
	assert.ErrorIs(t, err, ErrInvalidKey)

	// AES-128 and AES-192 sized hex keys are refused, not used as passphrases.
	for _, n := range []int{16, 24} {
		_, err = ParseKey(strings.Repeat("ab", n))
		assert.ErrorIs(t, err, ErrKeyLength, "bytes=%d", n)
	}

	assert.NotContains(t, p1.String(), p1.Hex())
}
