package pairing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthSetupRequestRoundTrip(t *testing.T) {
	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i)
	}
	body := AuthSetupRequest(pub)
	assert.Equal(t, byte(0x01), body[0])

	parsed, err := ParseAuthSetupRequest(body)
	require.NoError(t, err)
	assert.Equal(t, pub, parsed)
}

func TestAuthSetupRequestRejectsBadMethod(t *testing.T) {
	_, err := ParseAuthSetupRequest([]byte{0x02, 0x01, 0x02})
	assert.Error(t, err)
}

func TestAuthSetupRequestRejectsEmptyBody(t *testing.T) {
	_, err := ParseAuthSetupRequest(nil)
	assert.Error(t, err)
}
