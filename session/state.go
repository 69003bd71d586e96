// Package session implements the receiver-side session lifecycle: the
// AirPlay 1 and AirPlay 2 state machines, the single-active-session
// manager with preemption and idle/max-duration timeouts, the
// reconnection supervisor, and the multi-room leader/follower
// coordinator.
package session

import "fmt"

// AP1State is the AirPlay 1 (RAOP) receiver session state. Transitions
// are exactly the set Connected/Announced/Setup->Announced,
// Announced/Setup->Setup, Setup/Paused->Streaming, Streaming->Paused,
// any non-Closed->Teardown, Teardown->Closed.
type AP1State int

const (
	AP1Connected AP1State = iota
	AP1Announced
	AP1Setup
	AP1Streaming
	AP1Paused
	AP1Teardown
	AP1Closed
)

func (s AP1State) String() string {
	switch s {
	case AP1Connected:
		return "connected"
	case AP1Announced:
		return "announced"
	case AP1Setup:
		return "setup"
	case AP1Streaming:
		return "streaming"
	case AP1Paused:
		return "paused"
	case AP1Teardown:
		return "teardown"
	case AP1Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// CanTransitionTo reports whether the AP1 state machine allows from->to.
func (s AP1State) CanTransitionTo(to AP1State) bool {
	switch {
	case (s == AP1Connected || s == AP1Announced || s == AP1Setup) && to == AP1Announced:
		return true
	case (s == AP1Announced || s == AP1Setup) && to == AP1Setup:
		return true
	case (s == AP1Setup || s == AP1Paused) && to == AP1Streaming:
		return true
	case s == AP1Streaming && to == AP1Paused:
		return true
	case to == AP1Teardown && s != AP1Closed:
		return true
	case s == AP1Teardown && to == AP1Closed:
		return true
	default:
		return false
	}
}

// IsActive reports whether the session is currently sending audio or
// holding a paused stream open.
func (s AP1State) IsActive() bool {
	return s == AP1Streaming || s == AP1Paused
}

// IsValid reports whether the session is still usable (not torn down).
func (s AP1State) IsValid() bool {
	return s != AP1Teardown && s != AP1Closed
}

// AP2Phase is the coarse position of an AirPlay 2 receiver session.
// PairingSetup and PairingVerify carry a sub-step (1..4); Error carries
// a code and message. All other phases are singletons.
type AP2Phase int

const (
	AP2Connected AP2Phase = iota
	AP2InfoExchanged
	AP2PairingSetup
	AP2PairingVerify
	AP2Paired
	AP2SetupPhase1
	AP2SetupPhase2
	AP2Streaming
	AP2Paused
	AP2Teardown
	AP2Error
)

func (p AP2Phase) String() string {
	switch p {
	case AP2Connected:
		return "connected"
	case AP2InfoExchanged:
		return "info_exchanged"
	case AP2PairingSetup:
		return "pairing_setup"
	case AP2PairingVerify:
		return "pairing_verify"
	case AP2Paired:
		return "paired"
	case AP2SetupPhase1:
		return "setup_phase1"
	case AP2SetupPhase2:
		return "setup_phase2"
	case AP2Streaming:
		return "streaming"
	case AP2Paused:
		return "paused"
	case AP2Teardown:
		return "teardown"
	case AP2Error:
		return "error"
	default:
		return "unknown"
	}
}

// AP2State is a full AirPlay 2 receiver session state: a phase plus,
// for the multi-step pairing phases, which step (1..4) it is on, and
// for the error phase, the code/message that put it there.
type AP2State struct {
	Phase        AP2Phase
	Step         int // only meaningful for PairingSetup/PairingVerify
	ErrorCode    uint32
	ErrorMessage string
}

func (s AP2State) String() string {
	switch s.Phase {
	case AP2PairingSetup, AP2PairingVerify:
		return fmt.Sprintf("%s[%d]", s.Phase, s.Step)
	case AP2Error:
		return fmt.Sprintf("error[%d: %s]", s.ErrorCode, s.ErrorMessage)
	default:
		return s.Phase.String()
	}
}

// AllowsMethod reports whether an RTSP method is valid to receive while
// in this state; mirrors the state-indexed allowed-method table.
func (s AP2State) AllowsMethod(method string) bool {
	allowed := func(methods ...string) bool {
		for _, m := range methods {
			if m == method {
				return true
			}
		}
		return false
	}

	switch s.Phase {
	case AP2Connected, AP2InfoExchanged:
		return allowed("OPTIONS", "GET", "POST")
	case AP2PairingSetup, AP2PairingVerify:
		return allowed("OPTIONS", "POST")
	case AP2Paired:
		return allowed("OPTIONS", "GET", "POST", "SETUP", "GET_PARAMETER", "SET_PARAMETER")
	case AP2SetupPhase1:
		return allowed("OPTIONS", "SETUP", "GET_PARAMETER", "SET_PARAMETER", "TEARDOWN")
	case AP2SetupPhase2:
		return allowed("OPTIONS", "RECORD", "GET_PARAMETER", "SET_PARAMETER", "TEARDOWN")
	case AP2Streaming:
		return allowed("OPTIONS", "GET_PARAMETER", "SET_PARAMETER", "FLUSH", "TEARDOWN", "POST")
	case AP2Paused:
		return allowed("OPTIONS", "RECORD", "GET_PARAMETER", "SET_PARAMETER", "TEARDOWN")
	case AP2Teardown:
		return allowed("OPTIONS")
	default: // AP2Error
		return false
	}
}

// IsAuthenticated reports whether pairing has completed and the control
// channel is therefore HAP-encrypted.
func (s AP2State) IsAuthenticated() bool {
	switch s.Phase {
	case AP2Paired, AP2SetupPhase1, AP2SetupPhase2, AP2Streaming, AP2Paused:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the AP2 state machine allows from->to.
// Error is reachable unconditionally from any state; Teardown is
// reachable from anything except Connected and Error.
func (s AP2State) CanTransitionTo(to AP2State) bool {
	if to.Phase == AP2Error {
		return true
	}
	if to.Phase == AP2Teardown {
		return s.Phase != AP2Connected && s.Phase != AP2Error
	}

	switch {
	case s.Phase == AP2Connected && to.Phase == AP2InfoExchanged:
		return true
	case s.Phase == AP2Connected && to.Phase == AP2PairingSetup && to.Step == 1:
		return true
	case s.Phase == AP2InfoExchanged && to.Phase == AP2PairingSetup && to.Step == 1:
		return true
	case s.Phase == AP2PairingSetup && to.Phase == AP2PairingSetup && to.Step == s.Step+1 && s.Step >= 1 && s.Step <= 3:
		return true
	case s.Phase == AP2PairingSetup && s.Step == 4 && to.Phase == AP2PairingVerify && to.Step == 1:
		return true
	case s.Phase == AP2PairingVerify && to.Phase == AP2PairingVerify && to.Step == s.Step+1 && s.Step >= 1 && s.Step <= 3:
		return true
	case s.Phase == AP2PairingVerify && s.Step == 4 && to.Phase == AP2Paired:
		return true
	case s.Phase == AP2Paired && to.Phase == AP2SetupPhase1:
		return true
	case s.Phase == AP2SetupPhase1 && to.Phase == AP2SetupPhase2:
		return true
	case s.Phase == AP2SetupPhase2 && to.Phase == AP2Streaming:
		return true
	case s.Phase == AP2Streaming && to.Phase == AP2Paused:
		return true
	case s.Phase == AP2Paused && to.Phase == AP2Streaming:
		return true
	default:
		return false
	}
}

// ErrorKind classifies a session-layer failure. This is the taxonomy
// session.Error carries; package raopx converts it to KindState at its
// boundary.
type ErrorKind int

const (
	ErrInvalidTransition ErrorKind = iota
	ErrNotFound
	ErrBusy
	ErrTimeout
)

// Error is the single error type session operations return.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("session: %s", e.Msg)
}

func errInvalidTransition(from, to fmt.Stringer) *Error {
	return &Error{Kind: ErrInvalidTransition, Msg: fmt.Sprintf("invalid transition from %s to %s", from, to)}
}
