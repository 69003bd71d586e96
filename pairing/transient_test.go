package pairing

import (
	"testing"

	"github.com/raopx/raopx/tlv8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransientPairingFullHandshake(t *testing.T) {
	client, err := NewTransientClient([]byte("controller-1"))
	require.NoError(t, err)
	server, err := NewTransientServer()
	require.NoError(t, err)

	m1 := client.BuildM1()
	m2, err := server.ProcessM1AndBuildM2(m1)
	require.NoError(t, err)

	m3, err := client.ProcessM2AndBuildM3(m2)
	require.NoError(t, err)

	m4, err := server.ProcessM3AndBuildM4(m3)
	require.NoError(t, err)
	require.NoError(t, client.ProcessM4(m4))

	assert.Equal(t, StateComplete, client.State())
	assert.Equal(t, StateComplete, server.State())

	cw, cr := client.Keys()
	sw, sr := server.Keys()
	assert.Equal(t, cw, sr)
	assert.Equal(t, cr, sw)
}

func TestTransientPairingTamperedCiphertextFailsAndFailsMachine(t *testing.T) {
	client, err := NewTransientClient([]byte("controller-1"))
	require.NoError(t, err)
	server, err := NewTransientServer()
	require.NoError(t, err)

	m1 := client.BuildM1()
	m2, err := server.ProcessM1AndBuildM2(m1)
	require.NoError(t, err)

	m3, err := client.ProcessM2AndBuildM3(m2)
	require.NoError(t, err)

	for i := range m3 {
		if m3[i].Tag == tlv8.TagEncryptedData {
			m3[i].Value[0] ^= 0xFF
		}
	}

	_, err = server.ProcessM3AndBuildM4(m3)
	require.Error(t, err)
	assert.Equal(t, StateFailed, server.State())
}
