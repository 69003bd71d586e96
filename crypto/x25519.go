package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"
)

// X25519KeyPair is an ephemeral Diffie-Hellman identity used during
// pairing/pair-verify.
type X25519KeyPair struct {
	secret [32]byte
	public [32]byte
}

// GenerateX25519 creates a new random X25519 keypair.
func GenerateX25519() (*X25519KeyPair, error) {
	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return nil, errMsg(KindRngError, err.Error())
	}
	return x25519FromSecret(secret)
}

func x25519FromSecret(secret [32]byte) (*X25519KeyPair, error) {
	pub, err := curve25519.X25519(secret[:], curve25519.Basepoint)
	if err != nil {
		return nil, errMsg(KindInvalidPublicKey, err.Error())
	}
	kp := &X25519KeyPair{secret: secret}
	copy(kp.public[:], pub)
	return kp, nil
}

// PublicKey returns the 32-byte public key.
func (kp *X25519KeyPair) PublicKey() []byte {
	out := make([]byte, 32)
	copy(out, kp.public[:])
	return out
}

// DiffieHellman computes the 32-byte shared secret with a peer's public key.
func (kp *X25519KeyPair) DiffieHellman(peerPublic []byte) ([]byte, error) {
	if len(peerPublic) != X25519PublicKeyLen {
		return nil, errInvalidKeyLength(X25519PublicKeyLen, len(peerPublic))
	}
	shared, err := curve25519.X25519(kp.secret[:], peerPublic)
	if err != nil {
		return nil, errMsg(KindInvalidPublicKey, err.Error())
	}
	return shared, nil
}

// Zeroize overwrites the secret scalar. Call this once the keypair is no
// longer needed (e.g. after pairing completes and session keys have been
// derived).
func (kp *X25519KeyPair) Zeroize() {
	for i := range kp.secret {
		kp.secret[i] = 0
	}
}
