package rtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderMarshalParseRoundTrip(t *testing.T) {
	h := Header{
		Marker:         true,
		PayloadType:    PayloadTypeRealtimeAudio,
		SequenceNumber: 4242,
		Timestamp:      123456,
		SSRC:           0xdeadbeef,
	}
	buf := h.Marshal()
	require.Len(t, buf, HeaderLen)
	assert.Equal(t, byte(0x80), buf[0])

	got, err := ParseHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestHeaderMarkerBitClear(t *testing.T) {
	h := Header{PayloadType: PayloadTypeBufferedAudio}
	buf := h.Marshal()
	got, err := ParseHeader(buf)
	require.NoError(t, err)
	assert.False(t, got.Marker)
	assert.Equal(t, byte(PayloadTypeBufferedAudio), got.PayloadType)
}

func TestParseHeaderTooShort(t *testing.T) {
	_, err := ParseHeader(make([]byte, 4))
	assert.Error(t, err)
}
