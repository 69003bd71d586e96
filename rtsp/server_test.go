package rtsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMethodAllowedFollowsNegotiationOrder(t *testing.T) {
	assert.True(t, MethodAllowed(StateConnected, "OPTIONS"))
	assert.False(t, MethodAllowed(StateConnected, "RECORD"))

	assert.True(t, MethodAllowed(StatePaired, "ANNOUNCE"))
	assert.False(t, MethodAllowed(StatePaired, "RECORD"))

	assert.True(t, MethodAllowed(StateAnnounced, "SETUP"))
	assert.False(t, MethodAllowed(StateAnnounced, "RECORD"))

	assert.True(t, MethodAllowed(StateSetup, "RECORD"))
	assert.True(t, MethodAllowed(StateStreaming, "PAUSE"))
	assert.True(t, MethodAllowed(StatePaused, "RECORD"))
}

func TestTeardownAlwaysAllowedExceptFromTeardown(t *testing.T) {
	assert.True(t, MethodAllowed(StateStreaming, "TEARDOWN"))
	assert.True(t, MethodAllowed(StateConnected, "TEARDOWN"))
	assert.False(t, MethodAllowed(StateTeardown, "TEARDOWN"))
}

func TestCheckMethodRejectsOutOfOrder(t *testing.T) {
	msg := NewRequest("RECORD", "rtsp://10.0.0.1/1")
	err := CheckMethod(StateConnected, msg)
	var notValid *ErrMethodNotValidInState
	assert.ErrorAs(t, err, &notValid)
	assert.Equal(t, "RECORD", notValid.Method)
}

func TestCheckMethodAcceptsInOrder(t *testing.T) {
	msg := NewRequest("ANNOUNCE", "rtsp://10.0.0.1/1")
	err := CheckMethod(StatePaired, msg)
	assert.NoError(t, err)
}

func TestCheckMethodRejectsResponse(t *testing.T) {
	resp := NewResponse(200, "OK")
	err := CheckMethod(StateConnected, resp)
	assert.Error(t, err)
}
