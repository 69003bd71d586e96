package rtsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys() (write, read [32]byte) {
	for i := range write {
		write[i] = byte(i)
	}
	for i := range read {
		read[i] = byte(i + 1)
	}
	return
}

func TestHAPFrameRoundTrip(t *testing.T) {
	writeKey, readKey := testKeys()
	client, err := NewHAPCodec(writeKey, readKey)
	require.NoError(t, err)
	server, err := NewHAPCodec(readKey, writeKey)
	require.NoError(t, err)

	frame, err := client.EncryptFrame([]byte("ANNOUNCE rtsp://..."))
	require.NoError(t, err)

	plain, consumed, err := server.DecryptFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), consumed)
	assert.Equal(t, "ANNOUNCE rtsp://...", string(plain))
}

func TestHAPFrameIncompleteReturnsZeroConsumed(t *testing.T) {
	writeKey, readKey := testKeys()
	client, err := NewHAPCodec(writeKey, readKey)
	require.NoError(t, err)
	server, err := NewHAPCodec(readKey, writeKey)
	require.NoError(t, err)

	frame, err := client.EncryptFrame([]byte("hello"))
	require.NoError(t, err)

	plain, consumed, err := server.DecryptFrame(frame[:len(frame)-1])
	require.NoError(t, err)
	assert.Nil(t, plain)
	assert.Equal(t, 0, consumed)
}

func TestHAPFrameTamperFailsAndCounterDoesNotAdvance(t *testing.T) {
	writeKey, readKey := testKeys()
	client, err := NewHAPCodec(writeKey, readKey)
	require.NoError(t, err)
	server, err := NewHAPCodec(readKey, writeKey)
	require.NoError(t, err)

	frame, err := client.EncryptFrame([]byte("hello"))
	require.NoError(t, err)
	frame[len(frame)-1] ^= 0xFF

	_, _, err = server.DecryptFrame(frame)
	require.Error(t, err)
	assert.Equal(t, uint64(0), server.readCounter)
}

func TestHAPFrameSequenceOfFramesAdvancesCounter(t *testing.T) {
	writeKey, readKey := testKeys()
	client, err := NewHAPCodec(writeKey, readKey)
	require.NoError(t, err)
	server, err := NewHAPCodec(readKey, writeKey)
	require.NoError(t, err)

	var stream []byte
	for i := 0; i < 3; i++ {
		frame, err := client.EncryptFrame([]byte("msg"))
		require.NoError(t, err)
		stream = append(stream, frame...)
	}

	count := 0
	for len(stream) > 0 {
		plain, consumed, err := server.DecryptFrame(stream)
		require.NoError(t, err)
		require.NotZero(t, consumed)
		assert.Equal(t, "msg", string(plain))
		stream = stream[consumed:]
		count++
	}
	assert.Equal(t, 3, count)
	assert.Equal(t, uint64(3), server.readCounter)
}

func TestHAPFrameRejectsOversizedPlaintext(t *testing.T) {
	writeKey, readKey := testKeys()
	client, err := NewHAPCodec(writeKey, readKey)
	require.NoError(t, err)
	_, err = client.EncryptFrame(make([]byte, MaxFrameLength+1))
	assert.Error(t, err)
}
