package pairing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairVerifyFullHandshake(t *testing.T) {
	clientIdentity := generateIdentity(t, "controller-1")
	serverIdentity := generateIdentity(t, "accessory-1")

	lookupServerSide := func(id []byte) ([]byte, bool) {
		if string(id) == string(clientIdentity.Identifier) {
			return clientIdentity.Keys.PublicKey(), true
		}
		return nil, false
	}
	lookupClientSide := func(id []byte) ([]byte, bool) {
		if string(id) == string(serverIdentity.Identifier) {
			return serverIdentity.Keys.PublicKey(), true
		}
		return nil, false
	}

	client, err := NewVerifyClient(clientIdentity)
	require.NoError(t, err)
	server, err := NewVerifyServer(serverIdentity)
	require.NoError(t, err)

	m1 := client.BuildM1()
	m2, err := server.ProcessM1AndBuildM2(m1)
	require.NoError(t, err)

	m3, err := client.ProcessM2AndBuildM3(m2, lookupClientSide)
	require.NoError(t, err)

	m4, err := server.ProcessM3AndBuildM4(m3, lookupServerSide)
	require.NoError(t, err)

	require.NoError(t, client.ProcessM4(m4))

	assert.Equal(t, StateComplete, client.State())
	assert.Equal(t, StateComplete, server.State())

	cw, cr := client.Keys()
	sw, sr := server.Keys()
	assert.Equal(t, cw, sr)
	assert.Equal(t, cr, sw)
}

func TestPairVerifyUnknownPeerRejected(t *testing.T) {
	clientIdentity := generateIdentity(t, "controller-1")
	serverIdentity := generateIdentity(t, "accessory-1")

	neverFound := func([]byte) ([]byte, bool) { return nil, false }

	client, err := NewVerifyClient(clientIdentity)
	require.NoError(t, err)
	server, err := NewVerifyServer(serverIdentity)
	require.NoError(t, err)

	m1 := client.BuildM1()
	m2, err := server.ProcessM1AndBuildM2(m1)
	require.NoError(t, err)

	_, err = client.ProcessM2AndBuildM3(m2, neverFound)
	require.Error(t, err)
	assert.Equal(t, StateFailed, client.State())
}

func TestPairVerifySignatureMismatchRejected(t *testing.T) {
	clientIdentity := generateIdentity(t, "controller-1")
	serverIdentity := generateIdentity(t, "accessory-1")
	wrongIdentity := generateIdentity(t, "controller-1")

	// Lookup resolves the right identifier but to the *wrong* public key,
	// simulating a spoofed or corrupted trust store entry.
	lookupWrongKey := func(id []byte) ([]byte, bool) {
		if string(id) == string(clientIdentity.Identifier) {
			return wrongIdentity.Keys.PublicKey(), true
		}
		return nil, false
	}

	client, err := NewVerifyClient(clientIdentity)
	require.NoError(t, err)
	server, err := NewVerifyServer(serverIdentity)
	require.NoError(t, err)

	m1 := client.BuildM1()
	m2, err := server.ProcessM1AndBuildM2(m1)
	require.NoError(t, err)

	lookupClientSide := func(id []byte) ([]byte, bool) {
		if string(id) == string(serverIdentity.Identifier) {
			return serverIdentity.Keys.PublicKey(), true
		}
		return nil, false
	}
	m3, err := client.ProcessM2AndBuildM3(m2, lookupClientSide)
	require.NoError(t, err)

	_, err = server.ProcessM3AndBuildM4(m3, lookupWrongKey)
	require.Error(t, err)
	assert.Equal(t, StateFailed, server.State())
}
