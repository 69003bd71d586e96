package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHKDFSha512DeterministicAndSaltInfoSensitive(t *testing.T) {
	ikm := []byte("shared-secret-from-x25519")

	a, err := HKDFSha512([]byte("Pair-Verify-Encrypt-Salt"), ikm, []byte("Pair-Verify-Encrypt-Info"), 32)
	require.NoError(t, err)
	b, err := HKDFSha512([]byte("Pair-Verify-Encrypt-Salt"), ikm, []byte("Pair-Verify-Encrypt-Info"), 32)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := HKDFSha512([]byte("Pair-Setup-Encrypt-Salt"), ikm, []byte("Pair-Setup-Encrypt-Info"), 32)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestHKDFSha512VariableLength(t *testing.T) {
	out, err := HKDFSha512([]byte("salt"), []byte("ikm"), []byte("info"), 64)
	require.NoError(t, err)
	assert.Len(t, out, 64)
}

func TestHKDFSha512Fixed32(t *testing.T) {
	out, err := HKDFSha512Fixed32([]byte("Control-Salt"), []byte("ikm"), []byte("Control-Write-Encryption-Key"))
	require.NoError(t, err)
	assert.Len(t, out, 32)

	full, err := HKDFSha512([]byte("Control-Salt"), []byte("ikm"), []byte("Control-Write-Encryption-Key"), 32)
	require.NoError(t, err)
	assert.Equal(t, full, out[:])
}
