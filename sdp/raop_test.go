package sdp

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCodecHeuristics(t *testing.T) {
	assert.Equal(t, CodecALAC, DetectCodec("96 AppleLossless"))
	assert.Equal(t, CodecAACELD, DetectCodec("96 mpeg4-generic/ELD"))
	assert.Equal(t, CodecAACLC, DetectCodec("96 mpeg4-generic"))
	assert.Equal(t, CodecAACLC, DetectCodec("96 MP4A-LATM"))
	assert.Equal(t, CodecPCM, DetectCodec("96 L16/44100/2"))
	assert.Equal(t, CodecUnknown, DetectCodec("96 unknown-thing"))
}

func TestParseFmtpALACWithPayloadTypePrefix(t *testing.T) {
	alac, err := ParseFmtpALAC("96 352 0 16 40 10 14 2 255 0 0 44100", 0)
	require.NoError(t, err)
	assert.Equal(t, 96, alac.PayloadType)
	assert.Equal(t, 352, alac.FramesPerPacket)
	assert.Equal(t, 44100, alac.SampleRate)
}

func TestParseFmtpALACWithoutPayloadTypePrefix(t *testing.T) {
	alac, err := ParseFmtpALAC("352 0 16 40 10 14 2 255 0 0 44100", 96)
	require.NoError(t, err)
	assert.Equal(t, 96, alac.PayloadType)
	assert.Equal(t, 44100, alac.SampleRate)
}

func TestParseFmtpALACWrongFieldCountFails(t *testing.T) {
	_, err := ParseFmtpALAC("1 2 3", 96)
	assert.Error(t, err)
}

func TestParseRTPMap(t *testing.T) {
	entry, err := ParseRTPMap("96 AppleLossless")
	require.NoError(t, err)
	assert.Equal(t, 96, entry.PayloadType)
	assert.Equal(t, "AppleLossless", entry.Encoding)
}

func TestParseRAOPAnnounceExtractsRSAAESKeyAndIV(t *testing.T) {
	key := make([]byte, 16)
	iv := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}
	for i := range iv {
		iv[i] = byte(i + 1)
	}

	body := "v=0\r\n" +
		"m=audio 0 RTP/AVP 96\r\n" +
		"a=rtpmap:96 AppleLossless\r\n" +
		"a=fmtp:96 352 0 16 40 10 14 2 255 0 0 44100\r\n" +
		"a=rsaaeskey:" + base64.StdEncoding.EncodeToString(key) + "\r\n" +
		"a=aesiv:" + base64.StdEncoding.EncodeToString(iv) + "\r\n" +
		"a=min-latency:11025\r\n"

	sd := SessionDescription{}
	require.NoError(t, Unmarshal([]byte(body), &sd))

	params, err := ParseRAOPAnnounce(sd)
	require.NoError(t, err)
	assert.Equal(t, key, params.RSAAESKey)
	assert.Equal(t, iv, params.AESIV)
	assert.True(t, params.HasMinLat)
	assert.Equal(t, 11025, params.MinLatency)
}

func TestBuildRAOPAnnounceRoundTrips(t *testing.T) {
	alac := ALACFormat{
		PayloadType: 96, FramesPerPacket: 352, CompatibleVer: 0, BitDepth: 16,
		Pb: 40, Mb: 10, Kb: 14, Channels: 2, MaxRun: 255,
		MaxFrameBytes: 0, AvgBitRate: 0, SampleRate: 44100,
	}
	body := BuildRAOPAnnounce(12345, "10.0.0.2", "10.0.0.1", alac)

	sd := SessionDescription{}
	require.NoError(t, Unmarshal(body, &sd))
	params, err := ParseRAOPAnnounce(sd)
	require.NoError(t, err)
	assert.Equal(t, alac, params.ALAC)
	assert.Equal(t, CodecALAC, params.Codec)
}
