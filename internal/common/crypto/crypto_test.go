// Package crypto 加密工具单元测试
package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNewAES_KeySize(t *testing.T) {
	for _, key := range []string{"0123456789abcdef", "0123456789abcdef01234567", testKey} {
		_, err := NewAES(key)
		assert.NoError(t, err, len(key))
	}
	for _, key := range []string{"", "short", "0123456789abcdef0"} {
		_, err := NewAES(key)
		assert.Equal(t, ErrInvalidKeySize, err)
	}
}

func TestAES_RoundTrip(t *testing.T) {
	a, err := NewAES(testKey)
	require.NoError(t, err)

	plain := `{"token":"eyJhbGci","refresh_token":"r-1"}`
	first, err := a.Encrypt(plain)
	require.NoError(t, err)
	second, err := a.Encrypt(plain)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err := a.Decrypt(first)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestAES_DecryptFailures(t *testing.T) {
	a, err := NewAES(testKey)
	require.NoError(t, err)

	_, err = a.Decrypt("%%%not-base64")
	assert.Error(t, err)

	_, err = a.Decrypt("AAAA")
	assert.Equal(t, ErrCiphertextShort, err)

	sealed, err := a.Encrypt("secret")
	require.NoError(t, err)
	other, err := NewAES("fedcba9876543210fedcba9876543210")
	require.NoError(t, err)
	_, err = other.Decrypt(sealed)
	assert.Equal(t, ErrDecryptionFailed, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("metrics-pass")
	require.NoError(t, err)

	assert.True(t, VerifyPassword("metrics-pass", hash))
	assert.False(t, VerifyPassword("wrong", hash))
	assert.False(t, VerifyPassword("metrics-pass", "not-a-hash"))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "co***@agence.fr", MaskEmail("contact@agence.fr"))
	assert.Equal(t, "ab@x.fr", MaskEmail("ab@x.fr"))
	assert.Equal(t, "no-at", MaskEmail("no-at"))
}
