// Package raopx ties the protocol packages (tlv8, crypto, pairing, sdp,
// rtsp, rtp, jitter, ptp, session, mdns) into a sender/receiver for
// AirPlay 1 (RAOP) and AirPlay 2 audio streaming.
//
// This file is the ambient error taxonomy every other package's
// internal error type converts into at its public boundary.
package raopx

import (
	"errors"
	"fmt"

	"github.com/raopx/raopx/crypto"
	"github.com/raopx/raopx/pairing"
	"github.com/raopx/raopx/session"
)

// Kind is the small, stable set of failure classes callers are expected
// to branch on. Every internal module error converts into one of these
// at the point it crosses a package boundary into caller-facing code.
type Kind int

const (
	KindConnection Kind = iota
	KindProtocol
	KindAuthentication
	KindCrypto
	KindState
	KindTiming
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindProtocol:
		return "protocol"
	case KindAuthentication:
		return "authentication"
	case KindCrypto:
		return "crypto"
	case KindState:
		return "state"
	case KindTiming:
		return "timing"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is the single error type raopx's public API returns. Op names
// the operation that failed (e.g. "connect", "pair-verify", "setup");
// Err is the underlying cause, which may itself be a module-specific
// error type (crypto.Error, pairing.Error, session.Error, ...).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("raopx: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("raopx: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error directly, for callers that already know the kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap classifies err into the ambient taxonomy by inspecting the
// module-specific error types the internal packages raise, falling back
// to KindIO for anything unrecognized (a transient socket error, a
// context deadline, etc). Op should name the caller-visible operation
// ("connect", "set_volume", "pair_setup", ...).
func Wrap(op string, err error) *Error {
	if err == nil {
		return nil
	}

	var already *Error
	if errors.As(err, &already) {
		return already
	}

	var cryptoErr *crypto.Error
	if errors.As(err, &cryptoErr) {
		return New(KindCrypto, op, err)
	}

	var pairingErr *pairing.Error
	if errors.As(err, &pairingErr) {
		switch pairingErr.Kind {
		case pairing.ErrDecryptFailed, pairing.ErrSignatureMismatch:
			return New(KindCrypto, op, err)
		case pairing.ErrSrpFailed:
			return New(KindAuthentication, op, err)
		default:
			return New(KindProtocol, op, err)
		}
	}

	var sessionErr *session.Error
	if errors.As(err, &sessionErr) {
		return New(KindState, op, err)
	}

	return New(KindIO, op, err)
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
