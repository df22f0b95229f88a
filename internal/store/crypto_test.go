package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	enc, err := NewEncryptor(testKeyHex, zaptest.NewLogger(t))
	require.NoError(t, err)
	return enc
}

func TestNewEncryptor_KeyValidation(t *testing.T) {
	t.Run("rejects non-hex key", func(t *testing.T) {
		_, err := NewEncryptor("not hex at all", zaptest.NewLogger(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hex")
	})

	t.Run("rejects short key", func(t *testing.T) {
		_, err := NewEncryptor("0badc0de", zaptest.NewLogger(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "32 bytes")
	})

	t.Run("generates ephemeral key when empty", func(t *testing.T) {
		enc, err := NewEncryptor("", zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, enc)
	})
}

func TestEncryptor_RoundTrip(t *testing.T) {
	enc := testEncryptor(t)

	plaintext := "病人的隐私信息 with mixed content"
	sealed, err := enc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)
	assert.NotContains(t, sealed, "隐私")

	assert.Equal(t, plaintext, enc.Decrypt(sealed))
}

func TestEncryptor_EmptyStringPassthrough(t *testing.T) {
	enc := testEncryptor(t)

	sealed, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, sealed)
	assert.Empty(t, enc.Decrypt(""))
}

func TestEncryptor_NoncesAreUnique(t *testing.T) {
	enc := testEncryptor(t)

	first, err := enc.Encrypt("same input")
	require.NoError(t, err)
	second, err := enc.Encrypt("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "each sealing uses a fresh nonce")
	assert.Equal(t, enc.Decrypt(first), enc.Decrypt(second))
}

func TestEncryptor_LegacyPlaintextPassesThrough(t *testing.T) {
	enc := testEncryptor(t)

	// Rows written before encryption was enabled.
	legacy := "an old unencrypted message"
	assert.Equal(t, legacy, enc.Decrypt(legacy))

	// Valid base64 but not a sealed payload.
	assert.Equal(t, "aGVsbG8=", enc.Decrypt("aGVsbG8="))
}

func TestEncryptor_WrongKeyFallsBackToStored(t *testing.T) {
	enc := testEncryptor(t)
	other, err := NewEncryptor(strings.Repeat("ff", 32), zaptest.NewLogger(t))
	require.NoError(t, err)

	sealed, err := enc.Encrypt("secret")
	require.NoError(t, err)

	// A different key cannot open it; the stored value comes back verbatim.
	assert.Equal(t, sealed, other.Decrypt(sealed))
}
