package crypto

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // legacy RAOP artifact, matching production code under test
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRAOPKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestRAOPAuthDecryptAESKeyRoundTrip(t *testing.T) {
	key := testRAOPKey(t)
	auth := NewRAOPAuth(key)

	aesKey := make([]byte, 16)
	for i := range aesKey {
		aesKey[i] = byte(i)
	}
	wrapped, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, &key.PublicKey, aesKey, nil)
	require.NoError(t, err)

	unwrapped, err := auth.DecryptAESKey(wrapped)
	require.NoError(t, err)
	assert.Equal(t, aesKey, unwrapped)
}

func TestRAOPAuthDecryptAESKeyRejectsGarbage(t *testing.T) {
	auth := NewRAOPAuth(testRAOPKey(t))
	_, err := auth.DecryptAESKey(make([]byte, 256))
	assert.Error(t, err)
}

func TestRAOPAuthSignAppleResponseVerifiable(t *testing.T) {
	key := testRAOPKey(t)
	auth := NewRAOPAuth(key)

	challenge := []byte("sixteen-byte-ch!")
	sig, err := auth.SignAppleResponse(challenge)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	digest := sha1.Sum(challenge)
	require.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, stdcrypto.SHA1, digest[:], sig))
}
