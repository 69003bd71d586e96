package crypto

import (
	"crypto/rand"

	"golang.org/x/crypto/ed25519"
)

// Ed25519KeyPair is a signing identity: a 64-byte secret key (32-byte
// seed followed by the public key) and its corresponding 32-byte public
// key.
type Ed25519KeyPair struct {
	public ed25519.PublicKey
	secret ed25519.PrivateKey
}

// GenerateEd25519 creates a new random Ed25519 identity.
func GenerateEd25519() (*Ed25519KeyPair, error) {
	pub, sec, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errMsg(KindRngError, err.Error())
	}
	return &Ed25519KeyPair{public: pub, secret: sec}, nil
}

// Ed25519FromSeed deterministically derives a keypair from a 32-byte seed.
func Ed25519FromSeed(seed []byte) (*Ed25519KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errInvalidKeyLength(ed25519.SeedSize, len(seed))
	}
	sec := ed25519.NewKeyFromSeed(seed)
	return &Ed25519KeyPair{public: sec.Public().(ed25519.PublicKey), secret: sec}, nil
}

// Ed25519FromPrivateKeyBytes reconstructs a keypair from a 64-byte
// Ed25519 private key (seed||public, as persisted by keystore.Store and
// keystore.LoadOrCreateSelfIdentity).
func Ed25519FromPrivateKeyBytes(secret []byte) (*Ed25519KeyPair, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return nil, errInvalidKeyLength(ed25519.PrivateKeySize, len(secret))
	}
	sec := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(sec, secret)
	return &Ed25519KeyPair{public: sec.Public().(ed25519.PublicKey), secret: sec}, nil
}

// PublicKey returns the 32-byte public key.
func (kp *Ed25519KeyPair) PublicKey() []byte {
	out := make([]byte, len(kp.public))
	copy(out, kp.public)
	return out
}

// PrivateKeyBytes returns the raw 64-byte private key (seed||public),
// suitable for persistence via keystore.
func (kp *Ed25519KeyPair) PrivateKeyBytes() []byte {
	out := make([]byte, len(kp.secret))
	copy(out, kp.secret)
	return out
}

// Sign produces a 64-byte signature over msg using the secret key.
// ed25519.Sign runs in constant time with respect to the secret key.
func (kp *Ed25519KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(kp.secret, msg)
}

// Ed25519Verify checks a 64-byte signature against a 32-byte public key.
func Ed25519Verify(pub, msg, sig []byte) error {
	if len(pub) != ed25519.PublicKeySize {
		return errInvalidKeyLength(ed25519.PublicKeySize, len(pub))
	}
	if len(sig) != ed25519.SignatureSize {
		return errInvalidKeyLength(ed25519.SignatureSize, len(sig))
	}
	if !ed25519.Verify(pub, msg, sig) {
		return &Error{Kind: KindInvalidSignature}
	}
	return nil
}
