package crypto

import (
	"bytes"
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSRPMatchingPasswordsDeriveSameKey(t *testing.T) {
	username := []byte("Pair-Setup")
	password := []byte("3939")
	salt := []byte{0x12, 0x34, 0x56, 0x78}

	verifier := SRPVerifier(username, password, salt)

	bPriv := make([]byte, 32)
	for i := range bPriv {
		bPriv[i] = 0x07
	}
	server := NewSRPServer(verifier, bPriv)

	client, err := NewSRPClient()
	require.NoError(t, err)

	require.NoError(t, client.ProcessChallenge(username, password, salt, server.PublicKey()))
	m1 := client.ClientProof()
	require.Len(t, m1, 64)

	m2, err := server.VerifyClient(client.PublicKey(), m1)
	require.NoError(t, err)

	clientKey, err := client.VerifyServer(m2)
	require.NoError(t, err)
	assert.Equal(t, server.SessionKey(), clientKey)
	assert.Len(t, clientKey, 64)
}

func TestSRPMismatchedPasswordFails(t *testing.T) {
	username := []byte("Pair-Setup")
	salt := []byte("some-salt")

	verifier := SRPVerifier(username, []byte("wrong-password"), salt)
	bPriv := make([]byte, 32)
	for i := range bPriv {
		bPriv[i] = 0x09
	}
	server := NewSRPServer(verifier, bPriv)

	client, err := NewSRPClient()
	require.NoError(t, err)
	require.NoError(t, client.ProcessChallenge(username, []byte("correct-password"), salt, server.PublicKey()))

	_, err = server.VerifyClient(client.PublicKey(), client.ClientProof())
	assert.Error(t, err)
}

// TestS1SRPHandshakeFixture mirrors spec.md S1: username "Pair-Setup",
// password "3939", salt [0x12,0x34,0x56,0x78], server B a 384-byte run of
// 0x01. The client's M1 must be a 64-byte SHA-512 output, must change
// when any input byte changes, and must be computed over the *minimal*
// (unpadded) big-endian encoding of A, not a 384-byte zero-padded form.
func TestS1SRPHandshakeFixture(t *testing.T) {
	username := []byte("Pair-Setup")
	password := []byte("3939")
	salt := []byte{0x12, 0x34, 0x56, 0x78}
	serverB := bytes.Repeat([]byte{0x01}, 384)

	// This private key yields an A whose top byte is zero, so its minimal
	// encoding (383 bytes) differs from the 384-byte zero-padded form.
	privateKey := append(bytes.Repeat([]byte{0x2a}, 30), 0x00, 0x15)
	client := SRPClientWithPrivateKey(privateKey)
	require.NoError(t, client.ProcessChallenge(username, password, salt, serverB))
	m1 := client.ClientProof()
	require.Len(t, m1, sha512.Size)

	// A must be minimally encoded: re-deriving M1 with a zero-padded A
	// must NOT match what ProcessChallenge computed (minimal encoding is
	// what interoperates with Python receivers, per spec.md §9).
	minimalA := client.PublicKey()
	paddedA := leftPad(minimalA, 384)
	assert.NotEqual(t, minimalA, paddedA)
	assert.Equal(t, srpProof(minimalA, serverB, client.sharedK), m1)
	assert.NotEqual(t, srpProof(paddedA, serverB, client.sharedK), m1)

	// Changing any input byte must change M1.
	clientMutated := SRPClientWithPrivateKey(privateKey)
	mutatedSalt := append([]byte{}, salt...)
	mutatedSalt[0] ^= 0xFF
	require.NoError(t, clientMutated.ProcessChallenge(username, password, mutatedSalt, serverB))
	assert.NotEqual(t, m1, clientMutated.ClientProof())
}

func TestSRPDegenerateServerPublicRejected(t *testing.T) {
	client, err := NewSRPClient()
	require.NoError(t, err)
	err = client.ProcessChallenge([]byte("u"), []byte("p"), []byte("s"), srpN.Bytes())
	assert.Error(t, err)
}
