package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestX25519DiffieHellmanAgreement(t *testing.T) {
	alice, err := GenerateX25519()
	require.NoError(t, err)
	bob, err := GenerateX25519()
	require.NoError(t, err)

	aliceShared, err := alice.DiffieHellman(bob.PublicKey())
	require.NoError(t, err)
	bobShared, err := bob.DiffieHellman(alice.PublicKey())
	require.NoError(t, err)

	assert.Equal(t, aliceShared, bobShared)
	assert.Len(t, aliceShared, X25519SharedSecretLen)
}

func TestX25519RejectsWrongPeerKeyLength(t *testing.T) {
	kp, err := GenerateX25519()
	require.NoError(t, err)

	_, err = kp.DiffieHellman(make([]byte, 10))
	require.Error(t, err)
	assert.Equal(t, KindInvalidKeyLength, err.(*Error).Kind)
}

func TestX25519Zeroize(t *testing.T) {
	kp, err := GenerateX25519()
	require.NoError(t, err)
	kp.Zeroize()
	for _, b := range kp.secret {
		assert.Equal(t, byte(0), b)
	}
}
