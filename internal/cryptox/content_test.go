package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCipher(t *testing.T) *ContentCipher {
	t.Helper()
	c, err := NewContentCipher("test-master-secret")
	require.NoError(t, err)
	return c
}

func TestNewContentCipher_EmptySecret(t *testing.T) {
	_, err := NewContentCipher("")
	assert.Error(t, err)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := newCipher(t)

	for _, s := range []string{"a", "Dear diary", "многобайтовый текст ✓", strings.Repeat("x", 10000)} {
		enc, err := c.Encrypt(s, "user-1")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(enc, Prefix))
		assert.NotContains(t, enc, s)

		dec, err := c.Decrypt(enc, "user-1")
		require.NoError(t, err)
		assert.Equal(t, s, dec)
	}
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	c := newCipher(t)
	a, err := c.Encrypt("same", "user-1")
	require.NoError(t, err)
	b, err := c.Encrypt("same", "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncrypt_EmptyPassesThrough(t *testing.T) {
	c := newCipher(t)
	enc, err := c.Encrypt("", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "", enc)

	dec, err := c.Decrypt("", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "", dec)
}

func TestDecrypt_OtherUserKeyFails(t *testing.T) {
	c := newCipher(t)
	enc, err := c.Encrypt("private", "user-1")
	require.NoError(t, err)

	_, err = c.Decrypt(enc, "user-2")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDeriveUserKey_ScopedPerUser(t *testing.T) {
	c := newCipher(t)
	k1, err := c.DeriveUserKey("user-1")
	require.NoError(t, err)
	k1again, err := c.DeriveUserKey("user-1")
	require.NoError(t, err)
	k2, err := c.DeriveUserKey("user-2")
	require.NoError(t, err)

	assert.Len(t, k1, 32)
	assert.Equal(t, k1, k1again)
	assert.NotEqual(t, k1, k2)

	_, err = c.DeriveUserKey("")
	assert.ErrorIs(t, err, ErrEmptyUser)
}

func TestDecryptWithFallback_Plaintext(t *testing.T) {
	c := newCipher(t)

	for _, raw := range []string{"written before encryption", "enc:v1:not-base64!!", Prefix + "AAAA"} {
		res := c.DecryptWithFallback(raw, "user-1")
		assert.True(t, res.FellBack, raw)
		assert.Equal(t, raw, res.Value)
		assert.Error(t, res.Reason)
	}
}

func TestDecryptWithFallback_Encrypted(t *testing.T) {
	c := newCipher(t)
	enc, err := c.Encrypt("hello", "user-1")
	require.NoError(t, err)

	res := c.DecryptWithFallback(enc, "user-1")
	assert.False(t, res.FellBack)
	assert.Equal(t, "hello", res.Value)
	assert.NoError(t, res.Reason)
}

func TestDecrypt_TamperedPayload(t *testing.T) {
	c := newCipher(t)
	enc, err := c.Encrypt("hello", "user-1")
	require.NoError(t, err)

	tampered := enc[:len(enc)-4] + "AAAA"
	if tampered == enc {
		tampered = enc[:len(enc)-4] + "BBBB"
	}
	_, err = c.Decrypt(tampered, "user-1")
	assert.Error(t, err)
}
