package pairing

import (
	"github.com/raopx/raopx/crypto"
	"github.com/raopx/raopx/tlv8"
)

var (
	transientVerifySalt = []byte("Pair-Verify-Encrypt-Salt")
	transientVerifyInfo = []byte("Pair-Verify-Encrypt-Info")
	controlSalt         = []byte("Control-Salt")
	controlWriteInfo    = []byte("Control-Write-Encryption-Key")
	controlReadInfo     = []byte("Control-Read-Encryption-Key")
)

var zeroNonce = crypto.ChaChaNonceFromCounter(0)

// TransientClient drives the initiating side of a transient pairing:
// a single round trip with no persisted state on either end.
type TransientClient struct {
	machine
	identifier []byte
	signing    *crypto.Ed25519KeyPair
	dh         *crypto.X25519KeyPair
	peerPublic []byte
	sessionKey [32]byte
	writeKey   [32]byte
	readKey    [32]byte
}

// NewTransientClient generates a fresh ephemeral signing identity and
// DH keypair for one pairing attempt.
func NewTransientClient(identifier []byte) (*TransientClient, error) {
	signing, err := crypto.GenerateEd25519()
	if err != nil {
		return nil, err
	}
	dh, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	return &TransientClient{identifier: identifier, signing: signing, dh: dh}, nil
}

// BuildM1 produces the initial TLV8 request: state=1, method=0, our
// X25519 public key.
func (c *TransientClient) BuildM1() tlv8.Container {
	var m tlv8.Container
	m.AddByte(tlv8.TagState, 1)
	m.AddByte(tlv8.TagMethod, 0)
	m.Add(tlv8.TagPublicKey, c.dh.PublicKey())
	c.transition(StateWaitingResponse)
	return m
}

// ProcessM2AndBuildM3 consumes the server's M2 (state=2, PublicKey)
// and returns the encrypted M3 request.
func (c *TransientClient) ProcessM2AndBuildM3(m2 tlv8.Container) (tlv8.Container, error) {
	state, ok := m2.GetByte(tlv8.TagState)
	if !ok {
		return nil, c.fail(newError(ErrMalformedMessage, "m2 missing state"))
	}
	if err := c.expect(state, 2); err != nil {
		return nil, err
	}

	peerPublic, ok := m2.Get(tlv8.TagPublicKey)
	if !ok || len(peerPublic) != crypto.X25519PublicKeyLen {
		return nil, c.fail(newError(ErrMalformedMessage, "m2 missing or malformed public key"))
	}
	c.peerPublic = peerPublic

	shared, err := c.dh.DiffieHellman(peerPublic)
	if err != nil {
		return nil, c.fail(newError(ErrMalformedMessage, "dh failed: %v", err))
	}
	c.sessionKey, err = crypto.HKDFSha512Fixed32(transientVerifySalt, shared, transientVerifyInfo)
	if err != nil {
		return nil, c.fail(newError(ErrMalformedMessage, "hkdf failed: %v", err))
	}

	transcript := append(append([]byte{}, c.dh.PublicKey()...), peerPublic...)
	sig := c.signing.Sign(transcript)

	var sub tlv8.Container
	sub.Add(tlv8.TagIdentifier, c.identifier)
	sub.Add(tlv8.TagPublicKey, c.signing.PublicKey())
	sub.Add(tlv8.TagSignature, sig)

	cipher, err := crypto.NewChaCha20Poly1305(c.sessionKey[:])
	if err != nil {
		return nil, c.fail(newError(ErrMalformedMessage, "cipher init failed: %v", err))
	}
	encrypted := cipher.Encrypt(zeroNonce, tlv8.Encode(sub))

	var m3 tlv8.Container
	m3.AddByte(tlv8.TagState, 3)
	m3.Add(tlv8.TagEncryptedData, encrypted)
	c.transition(StateKeyExchange)
	return m3, nil
}

// ProcessM4 consumes the server's M4 (state=4, no error) and derives
// the final control-channel AEAD keys.
func (c *TransientClient) ProcessM4(m4 tlv8.Container) error {
	state, ok := m4.GetByte(tlv8.TagState)
	if !ok {
		return c.fail(newError(ErrMalformedMessage, "m4 missing state"))
	}
	if err := c.expect(state, 4); err != nil {
		return err
	}
	if _, hasError := m4.Get(tlv8.TagError); hasError {
		return c.fail(newError(ErrUnexpectedState, "m4 carries an error tlv"))
	}

	var err error
	c.writeKey, err = crypto.HKDFSha512Fixed32(controlSalt, c.sessionKey[:], controlWriteInfo)
	if err != nil {
		return c.fail(newError(ErrMalformedMessage, "write key derivation failed: %v", err))
	}
	c.readKey, err = crypto.HKDFSha512Fixed32(controlSalt, c.sessionKey[:], controlReadInfo)
	if err != nil {
		return c.fail(newError(ErrMalformedMessage, "read key derivation failed: %v", err))
	}
	c.transition(StateComplete)
	return nil
}

// Keys returns the control-channel write/read AEAD keys, valid only
// after ProcessM4 succeeds.
func (c *TransientClient) Keys() (write, read [32]byte) {
	return c.writeKey, c.readKey
}

// TransientServer drives the responding side of a transient pairing.
type TransientServer struct {
	machine
	dh         *crypto.X25519KeyPair
	peerPublic []byte
	sessionKey [32]byte
	writeKey   [32]byte
	readKey    [32]byte
}

// NewTransientServer generates a fresh ephemeral DH keypair.
func NewTransientServer() (*TransientServer, error) {
	dh, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	return &TransientServer{dh: dh}, nil
}

// ProcessM1AndBuildM2 consumes the client's M1 and returns M2.
func (s *TransientServer) ProcessM1AndBuildM2(m1 tlv8.Container) (tlv8.Container, error) {
	state, ok := m1.GetByte(tlv8.TagState)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m1 missing state"))
	}
	if err := s.expect(state, 1); err != nil {
		return nil, err
	}

	peerPublic, ok := m1.Get(tlv8.TagPublicKey)
	if !ok || len(peerPublic) != crypto.X25519PublicKeyLen {
		return nil, s.fail(newError(ErrMalformedMessage, "m1 missing or malformed public key"))
	}
	s.peerPublic = peerPublic

	var m2 tlv8.Container
	m2.AddByte(tlv8.TagState, 2)
	m2.Add(tlv8.TagPublicKey, s.dh.PublicKey())
	s.transition(StateWaitingResponse)
	return m2, nil
}

// ProcessM3AndBuildM4 consumes the client's encrypted M3, verifies the
// embedded signature, and returns M4.
func (s *TransientServer) ProcessM3AndBuildM4(m3 tlv8.Container) (tlv8.Container, error) {
	state, ok := m3.GetByte(tlv8.TagState)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m3 missing state"))
	}
	if err := s.expect(state, 3); err != nil {
		return nil, err
	}

	encrypted, ok := m3.Get(tlv8.TagEncryptedData)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m3 missing encrypted data"))
	}

	shared, err := s.dh.DiffieHellman(s.peerPublic)
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "dh failed: %v", err))
	}
	s.sessionKey, err = crypto.HKDFSha512Fixed32(transientVerifySalt, shared, transientVerifyInfo)
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "hkdf failed: %v", err))
	}

	cipher, err := crypto.NewChaCha20Poly1305(s.sessionKey[:])
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "cipher init failed: %v", err))
	}
	plain, err := cipher.Decrypt(zeroNonce, encrypted)
	if err != nil {
		return nil, s.fail(newError(ErrDecryptFailed, "m3 decrypt failed: %v", err))
	}

	sub, err := tlv8.Decode(plain)
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "m3 sub-tlv malformed: %v", err))
	}
	signingPub, ok := sub.Get(tlv8.TagPublicKey)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m3 sub-tlv missing signing key"))
	}
	sig, ok := sub.Get(tlv8.TagSignature)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m3 sub-tlv missing signature"))
	}

	transcript := append(append([]byte{}, s.peerPublic...), s.dh.PublicKey()...)
	if err := crypto.Ed25519Verify(signingPub, transcript, sig); err != nil {
		return nil, s.fail(newError(ErrSignatureMismatch, "m3 signature verification failed: %v", err))
	}

	var err2 error
	s.writeKey, err2 = crypto.HKDFSha512Fixed32(controlSalt, s.sessionKey[:], controlReadInfo)
	if err2 != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "write key derivation failed: %v", err2))
	}
	s.readKey, err2 = crypto.HKDFSha512Fixed32(controlSalt, s.sessionKey[:], controlWriteInfo)
	if err2 != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "read key derivation failed: %v", err2))
	}

	var m4 tlv8.Container
	m4.AddByte(tlv8.TagState, 4)
	s.transition(StateComplete)
	return m4, nil
}

// Keys returns the control-channel write/read AEAD keys from the
// server's perspective (mirrored relative to TransientClient.Keys),
// valid only after ProcessM3AndBuildM4 succeeds.
func (s *TransientServer) Keys() (write, read [32]byte) {
	return s.writeKey, s.readKey
}
