package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mrinallcx/payagent-core/auth"
)

const testKey = "1111111111111111111111111111111111111111111111111111111111111111"

func newCipher(t *testing.T) *auth.Cipher {
	t.Helper()
	keys, err := auth.NewStaticKeyProvider(testKey)
	require.NoError(t, err)
	return auth.NewCipher(keys)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	cipher := newCipher(t)

	stored, err := cipher.Encrypt("whsec_4a1f90bd2ec84cd0a3f1")
	require.NoError(t, err)
	require.Len(t, strings.Split(stored, ":"), 3)

	plaintext, err := cipher.Decrypt(stored)
	require.NoError(t, err)
	require.Equal(t, "whsec_4a1f90bd2ec84cd0a3f1", plaintext)
}

func TestEncryptProducesFreshIV(t *testing.T) {
	cipher := newCipher(t)

	a, err := cipher.Encrypt("secret")
	require.NoError(t, err)
	b, err := cipher.Encrypt("secret")
	require.NoError(t, err)
	require.NotEqual(t, a, b, "same plaintext must never produce the same stored form")
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	cipher := newCipher(t)

	stored, err := cipher.Encrypt("secret")
	require.NoError(t, err)

	parts := strings.Split(stored, ":")
	// flip one hex digit of the ciphertext
	ct := []byte(parts[1])
	if ct[0] == 'a' {
		ct[0] = 'b'
	} else {
		ct[0] = 'a'
	}
	parts[1] = string(ct)

	_, err = cipher.Decrypt(strings.Join(parts, ":"))
	require.Error(t, err)
}

func TestDecryptMalformedInput(t *testing.T) {
	cipher := newCipher(t)

	for _, stored := range []string{"", "deadbeef", "a:b", "zz:zz:zz", "a:b:c:d"} {
		_, err := cipher.Decrypt(stored)
		require.Error(t, err, "input %q must fail closed", stored)
	}
}

func TestStaticKeyProviderValidation(t *testing.T) {
	_, err := auth.NewStaticKeyProvider("not hex")
	require.Error(t, err)

	_, err = auth.NewStaticKeyProvider("deadbeef")
	require.Error(t, err, "short keys must be rejected")
}
