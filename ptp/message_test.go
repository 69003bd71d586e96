package ptp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderMarshalParseRoundTrip(t *testing.T) {
	h := Header{
		MessageType:        MessageAnnounce,
		Flags:              0x0008,
		CorrectionField:    12345,
		SourcePortIdentity: PortIdentity{ClockIdentity: 0x1122334455667788, PortNumber: 1},
		SequenceID:         99,
		ControlField:       5,
		LogMessageInterval: 1,
	}
	buf := h.Marshal()
	require.Len(t, buf, HeaderLen)

	got, err := ParseHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestAnnounceBodyRoundTrip(t *testing.T) {
	b := AnnounceBody{
		OriginTimestamp:     Timestamp{Seconds: 1, Nanoseconds: 2},
		GrandmasterIdentity: 0xaabbccddeeff0011,
		Priority1:           64,
		Priority2:           128,
	}
	buf := b.Marshal()
	require.Len(t, buf, 20)

	got, err := ParseAnnounceBody(buf)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestDelayRespBodyRoundTrip(t *testing.T) {
	b := DelayRespBody{
		ReceiveTimestamp:       Timestamp{Seconds: 5, Nanoseconds: 6},
		RequestingPortIdentity: PortIdentity{ClockIdentity: 7, PortNumber: 2},
	}
	buf := b.Marshal()
	require.Len(t, buf, 20)

	got, err := ParseDelayRespBody(buf)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestCompactMessageRoundTrip(t *testing.T) {
	m := CompactMessage{MessageType: MessageSync, SequenceID: 3, Timestamp: 0x1122334455}
	buf := m.Marshal()
	require.Len(t, buf, CompactMessageLen)

	got, err := ParseCompactMessage(buf)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "sync", MessageSync.String())
	assert.Equal(t, "announce", MessageAnnounce.String())
	assert.Contains(t, MessageType(0x7F).String(), "unknown")
}
