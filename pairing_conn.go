package raopx

import (
	"bytes"
	"time"

	"github.com/raopx/raopx/keystore"
	"github.com/raopx/raopx/pairing"
)

// pairingMaxFailures is the number of consecutive pairing failures on
// one connection before it is locked out.
const pairingMaxFailures = 5

// pairingLockout is how long a connection stays locked out once it
// crosses pairingMaxFailures.
const pairingLockout = 60 * time.Second

// pairingConn is the per-connection pairing state a Receiver tracks
// before any streaming session exists: the in-progress SRP pair-setup
// or pair-verify exchange, the control keys pair-verify negotiates,
// and a failed-attempts lockout independent of session.Manager (which
// has no notion of a connection that never reaches a session at all).
type pairingConn struct {
	identity pairing.LongTermIdentity
	store    *keystore.Store

	setupServer  *pairing.SetupServer
	verifyServer *pairing.VerifyServer

	// justPaired holds the identity pair-setup's M5/M6 exchange just
	// established, bridging to an immediately-following pair-verify on
	// the same connection without requiring a disk round trip.
	justPairedID   []byte
	justPairedLTPK []byte

	verified bool
	audioKey [32]byte

	failures    int
	lockedUntil time.Time
}

func newPairingConn(identity pairing.LongTermIdentity, store *keystore.Store) *pairingConn {
	return &pairingConn{identity: identity, store: store}
}

// locked reports whether this connection is presently locked out from
// further pairing attempts, and if so for how much longer. A lockout
// that has already expired is cleared as a side effect.
func (pc *pairingConn) locked() (bool, time.Duration) {
	if pc.lockedUntil.IsZero() {
		return false, 0
	}
	remaining := time.Until(pc.lockedUntil)
	if remaining <= 0 {
		pc.lockedUntil = time.Time{}
		pc.failures = 0
		return false, 0
	}
	return true, remaining
}

// recordFailure counts one failed pairing attempt, locking the
// connection out once pairingMaxFailures is reached.
func (pc *pairingConn) recordFailure() {
	pc.failures++
	if pc.failures >= pairingMaxFailures {
		pc.lockedUntil = time.Now().Add(pairingLockout)
	}
}

// peerLookup resolves a claimed identifier to its stored long-term
// public key, first checking this connection's own just-completed
// pair-setup, then falling back to the on-disk keystore.
func (pc *pairingConn) peerLookup(identifier []byte) (ltpk []byte, ok bool) {
	if pc.justPairedID != nil && bytes.Equal(identifier, pc.justPairedID) {
		return pc.justPairedLTPK, true
	}
	if pc.store == nil {
		return nil, false
	}
	keys, err := pc.store.Load(string(identifier))
	if err != nil {
		return nil, false
	}
	return keys.DevicePublicKey, true
}
