package rtsp

import "fmt"

// SessionState names the position in the receiver-side session state
// machine the allowed-method table is indexed by. The concrete state
// machines (AP1 and AP2) live in package session; this is the subset
// of state names the RTSP layer needs to decide "is this method valid
// right now".
type SessionState int

const (
	StateConnected SessionState = iota
	StateInfoExchanged
	StatePairingSetup
	StatePairingVerify
	StatePaired
	StateAnnounced
	StateSetup
	StateStreaming
	StatePaused
	StateTeardown
)

var methodTable = map[SessionState]map[string]bool{
	StateConnected: {
		"OPTIONS": true, "POST": true, "GET": true,
	},
	StateInfoExchanged: {
		"OPTIONS": true, "POST": true, "GET": true,
	},
	StatePairingSetup: {
		"OPTIONS": true, "POST": true, "GET": true,
	},
	StatePairingVerify: {
		"OPTIONS": true, "POST": true, "GET": true,
	},
	StatePaired: {
		"OPTIONS": true, "ANNOUNCE": true, "POST": true, "GET": true,
		"SET_PARAMETER": true, "GET_PARAMETER": true,
	},
	StateAnnounced: {
		"OPTIONS": true, "SETUP": true, "TEARDOWN": true,
		"GET_PARAMETER": true, "SET_PARAMETER": true,
	},
	StateSetup: {
		"OPTIONS": true, "RECORD": true, "SETUP": true, "TEARDOWN": true,
		"GET_PARAMETER": true, "SET_PARAMETER": true,
	},
	StateStreaming: {
		"OPTIONS": true, "PAUSE": true, "FLUSH": true, "TEARDOWN": true,
		"GET_PARAMETER": true, "SET_PARAMETER": true, "RECORD": true,
	},
	StatePaused: {
		"OPTIONS": true, "RECORD": true, "FLUSH": true, "TEARDOWN": true,
		"GET_PARAMETER": true, "SET_PARAMETER": true,
	},
	StateTeardown: {
		"OPTIONS": true,
	},
}

// MethodAllowed reports whether method is valid to receive while the
// session is in state. TEARDOWN and OPTIONS are always reachable from
// any non-terminal state as an implementation-wide escape hatch;
// everything else goes through the table above.
func MethodAllowed(state SessionState, method string) bool {
	if method == "TEARDOWN" {
		return state != StateTeardown
	}
	allowed, ok := methodTable[state]
	if !ok {
		return false
	}
	return allowed[method]
}

// AllMethods lists every RTSP method this receiver implements, used
// to answer OPTIONS with a full `Public:` header regardless of state.
var AllMethods = []string{
	"ANNOUNCE", "SETUP", "RECORD", "PAUSE", "FLUSH", "TEARDOWN",
	"OPTIONS", "GET_PARAMETER", "SET_PARAMETER", "POST", "GET",
}

// ErrMethodNotValidInState is returned by dispatch helpers when
// MethodAllowed rejects a request; callers translate it to a 455
// response.
type ErrMethodNotValidInState struct {
	Method string
	State  SessionState
}

func (e *ErrMethodNotValidInState) Error() string {
	return fmt.Sprintf("rtsp: method %s not valid in state %d", e.Method, e.State)
}

// CheckMethod validates a request against the allowed-method table,
// returning *ErrMethodNotValidInState on rejection.
func CheckMethod(state SessionState, msg *Message) error {
	if !msg.IsRequest {
		return fmt.Errorf("rtsp: CheckMethod called on a response")
	}
	if !MethodAllowed(state, msg.Method) {
		return &ErrMethodNotValidInState{Method: msg.Method, State: state}
	}
	return nil
}
