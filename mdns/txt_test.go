package mdns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeaturesRoundTrip(t *testing.T) {
	f := Features(0x1234_5678_9ABC_DEF0)
	s := f.String()
	assert.Equal(t, "0x9ABCDEF0,0x12345678", s)

	parsed, err := ParseFeatures(s)
	require.NoError(t, err)
	assert.Equal(t, f, parsed)
}

func TestParseFeaturesRejectsMalformed(t *testing.T) {
	_, err := ParseFeatures("not-a-features-field")
	assert.Error(t, err)
}

func TestRAOPTxtToMapSkipsEmptyFields(t *testing.T) {
	txt := RAOPTxt{
		CommonTxt: CommonTxt{DeviceID: "AA:BB:CC:DD:EE:FF", Model: "raopx,1"},
		TxtVers:   "1",
		Transport: "UDP",
	}
	m := txt.ToMap()
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", m["deviceid"])
	assert.Equal(t, "raopx,1", m["model"])
	assert.Equal(t, "1", m["txtvers"])
	assert.Equal(t, "UDP", m["tp"])
	_, hasManufacturer := m["manufacturer"]
	assert.False(t, hasManufacturer)
}

func TestDecodeRAOPTxt(t *testing.T) {
	raw := map[string]string{
		"deviceid": "AA:BB:CC:DD:EE:FF",
		"txtvers":  "1",
		"ch":       "2",
		"cn":       "0,1",
		"tp":       "UDP",
	}
	txt, err := DecodeRAOPTxt(raw)
	require.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", txt.DeviceID)
	assert.Equal(t, "1", txt.TxtVers)
	assert.Equal(t, "2", txt.Channels)
	assert.Equal(t, "0,1", txt.Codecs)
	assert.Equal(t, "UDP", txt.Transport)
}

func TestDecodeAirPlayTxt(t *testing.T) {
	raw := map[string]string{
		"deviceid": "11:22:33:44:55:66",
		"features": "0x445F8A00,0x1C340",
		"vv":       "2",
	}
	txt, err := DecodeAirPlayTxt(raw)
	require.NoError(t, err)
	assert.Equal(t, "11:22:33:44:55:66", txt.DeviceID)
	assert.Equal(t, "0x445F8A00,0x1C340", txt.Features)
	assert.Equal(t, "2", txt.VoiceVers)
}
