package pairing

import (
	"testing"

	"github.com/raopx/raopx/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateIdentity(t *testing.T, identifier string) LongTermIdentity {
	t.Helper()
	kp, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	return LongTermIdentity{Identifier: []byte(identifier), Keys: kp}
}

func TestPairSetupFullHandshake(t *testing.T) {
	clientIdentity := generateIdentity(t, "controller-1")
	serverIdentity := generateIdentity(t, "accessory-1")

	client := NewSetupClient(clientIdentity)
	server := NewSetupServer(serverIdentity)

	username := []byte("Pair-Setup")
	password := []byte("3939")

	m1 := client.BuildM1()
	m2, err := server.ProcessM1AndBuildM2(m1, username, password)
	require.NoError(t, err)

	m3, err := client.ProcessM2AndBuildM3(m2, username, password)
	require.NoError(t, err)

	m4, err := server.ProcessM3AndBuildM4(m3)
	require.NoError(t, err)

	m5, err := client.ProcessM4AndBuildM5(m4)
	require.NoError(t, err)

	m6, err := server.ProcessM5AndBuildM6(m5)
	require.NoError(t, err)

	require.NoError(t, client.ProcessM6(m6))

	assert.Equal(t, StateComplete, client.State())
	assert.Equal(t, StateComplete, server.State())

	peerID, peerLTPK := server.PeerIdentity()
	assert.Equal(t, clientIdentity.Identifier, peerID)
	assert.Equal(t, clientIdentity.Keys.PublicKey(), peerLTPK)
}

func TestPairSetupWrongPasswordFailsAtM3(t *testing.T) {
	clientIdentity := generateIdentity(t, "controller-1")
	serverIdentity := generateIdentity(t, "accessory-1")

	client := NewSetupClient(clientIdentity)
	server := NewSetupServer(serverIdentity)

	username := []byte("Pair-Setup")

	m1 := client.BuildM1()
	m2, err := server.ProcessM1AndBuildM2(m1, username, []byte("3939"))
	require.NoError(t, err)

	m3, err := client.ProcessM2AndBuildM3(m2, username, []byte("0000"))
	require.NoError(t, err)

	_, err = server.ProcessM3AndBuildM4(m3)
	require.Error(t, err)
	assert.Equal(t, StateFailed, server.State())
}
