// Package crypto implements the cryptographic primitives AirPlay pairing
// and streaming rely on: Ed25519, X25519, AES-128-CTR/GCM,
// ChaCha20-Poly1305, HKDF-SHA512, SRP-6a, and the legacy RAOP RSA
// capability.
package crypto

import "fmt"

// Kind identifies the class of failure for a crypto operation. Every
// operation in this package fails with exactly one Kind.
type Kind int

const (
	KindInvalidKeyLength Kind = iota
	KindInvalidSignature
	KindDecryptionFailed
	KindEncryptionFailed
	KindKeyDerivationFailed
	KindSrpError
	KindInvalidPublicKey
	KindRngError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidKeyLength:
		return "invalid_key_length"
	case KindInvalidSignature:
		return "invalid_signature"
	case KindDecryptionFailed:
		return "decryption_failed"
	case KindEncryptionFailed:
		return "encryption_failed"
	case KindKeyDerivationFailed:
		return "key_derivation_failed"
	case KindSrpError:
		return "srp_error"
	case KindInvalidPublicKey:
		return "invalid_public_key"
	case KindRngError:
		return "rng_error"
	default:
		return "unknown"
	}
}

// Error is the single error type every crypto operation returns.
type Error struct {
	Kind     Kind
	Expected int
	Actual   int
	Msg      string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidKeyLength:
		return fmt.Sprintf("crypto: invalid key length: expected %d, got %d", e.Expected, e.Actual)
	default:
		if e.Msg != "" {
			return fmt.Sprintf("crypto: %s: %s", e.Kind, e.Msg)
		}
		return fmt.Sprintf("crypto: %s", e.Kind)
	}
}

func errInvalidKeyLength(expected, actual int) error {
	return &Error{Kind: KindInvalidKeyLength, Expected: expected, Actual: actual}
}

func errMsg(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}
