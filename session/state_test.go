package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAP1LegalTransitions(t *testing.T) {
	cases := []struct {
		from, to AP1State
		ok       bool
	}{
		{AP1Connected, AP1Announced, true},
		{AP1Announced, AP1Setup, true},
		{AP1Setup, AP1Announced, true},
		{AP1Setup, AP1Streaming, true},
		{AP1Paused, AP1Streaming, true},
		{AP1Streaming, AP1Paused, true},
		{AP1Streaming, AP1Teardown, true},
		{AP1Paused, AP1Teardown, true},
		{AP1Teardown, AP1Closed, true},
		{AP1Connected, AP1Streaming, false},
		{AP1Closed, AP1Teardown, false},
		{AP1Closed, AP1Connected, false},
		{AP1Announced, AP1Paused, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestAP1IsActiveAndValid(t *testing.T) {
	assert.True(t, AP1Streaming.IsActive())
	assert.True(t, AP1Paused.IsActive())
	assert.False(t, AP1Setup.IsActive())

	assert.True(t, AP1Setup.IsValid())
	assert.False(t, AP1Teardown.IsValid())
	assert.False(t, AP1Closed.IsValid())
}

func TestAP2PairingStepProgression(t *testing.T) {
	s := AP2State{Phase: AP2PairingSetup, Step: 1}
	assert.True(t, s.CanTransitionTo(AP2State{Phase: AP2PairingSetup, Step: 2}))
	assert.False(t, s.CanTransitionTo(AP2State{Phase: AP2PairingSetup, Step: 3}))
	assert.False(t, s.CanTransitionTo(AP2State{Phase: AP2PairingSetup, Step: 1}))

	s4 := AP2State{Phase: AP2PairingSetup, Step: 4}
	assert.True(t, s4.CanTransitionTo(AP2State{Phase: AP2PairingVerify, Step: 1}))

	v4 := AP2State{Phase: AP2PairingVerify, Step: 4}
	assert.True(t, v4.CanTransitionTo(AP2State{Phase: AP2Paired}))
}

func TestAP2FullHappyPath(t *testing.T) {
	s := AP2State{Phase: AP2Connected}
	steps := []AP2State{
		{Phase: AP2InfoExchanged},
		{Phase: AP2PairingSetup, Step: 1},
		{Phase: AP2PairingSetup, Step: 2},
		{Phase: AP2PairingSetup, Step: 3},
		{Phase: AP2PairingSetup, Step: 4},
		{Phase: AP2PairingVerify, Step: 1},
		{Phase: AP2PairingVerify, Step: 2},
		{Phase: AP2PairingVerify, Step: 3},
		{Phase: AP2PairingVerify, Step: 4},
		{Phase: AP2Paired},
		{Phase: AP2SetupPhase1},
		{Phase: AP2SetupPhase2},
		{Phase: AP2Streaming},
		{Phase: AP2Paused},
		{Phase: AP2Streaming},
	}
	for _, next := range steps {
		assert.True(t, s.CanTransitionTo(next), "%s -> %s", s, next)
		s = next
	}
}

func TestAP2ErrorReachableFromAnywhere(t *testing.T) {
	for _, phase := range []AP2Phase{AP2Connected, AP2PairingSetup, AP2Streaming, AP2Paused, AP2Teardown} {
		s := AP2State{Phase: phase, Step: 2}
		assert.True(t, s.CanTransitionTo(AP2State{Phase: AP2Error, ErrorCode: 1, ErrorMessage: "boom"}))
	}
}

func TestAP2TeardownUnreachableFromConnectedAndError(t *testing.T) {
	assert.False(t, (AP2State{Phase: AP2Connected}).CanTransitionTo(AP2State{Phase: AP2Teardown}))
	assert.False(t, (AP2State{Phase: AP2Error}).CanTransitionTo(AP2State{Phase: AP2Teardown}))
	assert.True(t, (AP2State{Phase: AP2Streaming}).CanTransitionTo(AP2State{Phase: AP2Teardown}))
}

func TestAP2AllowsMethod(t *testing.T) {
	assert.True(t, (AP2State{Phase: AP2Connected}).AllowsMethod("GET"))
	assert.False(t, (AP2State{Phase: AP2Connected}).AllowsMethod("SETUP"))

	assert.True(t, (AP2State{Phase: AP2SetupPhase1}).AllowsMethod("SETUP"))
	assert.False(t, (AP2State{Phase: AP2SetupPhase1}).AllowsMethod("RECORD"))

	assert.True(t, (AP2State{Phase: AP2Streaming}).AllowsMethod("FLUSH"))
	assert.False(t, (AP2State{Phase: AP2Error}).AllowsMethod("OPTIONS"))
}

func TestAP2IsAuthenticated(t *testing.T) {
	assert.False(t, (AP2State{Phase: AP2PairingVerify, Step: 2}).IsAuthenticated())
	assert.True(t, (AP2State{Phase: AP2Paired}).IsAuthenticated())
	assert.True(t, (AP2State{Phase: AP2Streaming}).IsAuthenticated())
}

func TestAP2StateString(t *testing.T) {
	assert.Equal(t, "pairing_setup[2]", (AP2State{Phase: AP2PairingSetup, Step: 2}).String())
	assert.Equal(t, "error[5: bad auth]", (AP2State{Phase: AP2Error, ErrorCode: 5, ErrorMessage: "bad auth"}).String())
	assert.Equal(t, "streaming", (AP2State{Phase: AP2Streaming}).String())
}
