package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEd25519SignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateEd25519()
	require.NoError(t, err)

	msg := []byte("pair-verify transcript")
	sig := kp.Sign(msg)
	assert.Len(t, sig, 64)

	require.NoError(t, Ed25519Verify(kp.PublicKey(), msg, sig))
}

func TestEd25519VerifyRejectsTamperedMessage(t *testing.T) {
	kp, err := GenerateEd25519()
	require.NoError(t, err)

	sig := kp.Sign([]byte("original"))
	err = Ed25519Verify(kp.PublicKey(), []byte("tampered"), sig)
	assert.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindInvalidSignature, cerr.Kind)
}

func TestEd25519FromSeedDeterministic(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	kp1, err := Ed25519FromSeed(seed)
	require.NoError(t, err)
	kp2, err := Ed25519FromSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, kp1.PublicKey(), kp2.PublicKey())
}

func TestEd25519FromSeedRejectsWrongLength(t *testing.T) {
	_, err := Ed25519FromSeed(make([]byte, 16))
	require.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindInvalidKeyLength, cerr.Kind)
}

func TestEd25519VerifyRejectsBadLengths(t *testing.T) {
	err := Ed25519Verify(make([]byte, 10), []byte("m"), make([]byte, 64))
	require.Error(t, err)
	assert.Equal(t, KindInvalidKeyLength, err.(*Error).Kind)

	err = Ed25519Verify(make([]byte, 32), []byte("m"), make([]byte, 10))
	require.Error(t, err)
	assert.Equal(t, KindInvalidKeyLength, err.(*Error).Kind)
}
