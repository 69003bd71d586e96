package pairing

import (
	"github.com/raopx/raopx/crypto"
	"github.com/raopx/raopx/tlv8"
)

// verifyNonce is the fixed nonce pair-verify's encrypted M2/M3
// payloads use: 12 bytes, all zero except the last byte set to 0x01 —
// deliberately distinct from the all-zero nonce transient/setup use,
// per spec.md §4.3.
var verifyNonce = func() crypto.ChaChaNonce {
	var n crypto.ChaChaNonce
	n[len(n)-1] = 0x01
	return n
}()

// PeerLookup resolves a previously-paired controller's identifier to
// its stored long-term public key. Returns ok=false for an unknown
// identifier.
type PeerLookup func(identifier []byte) (ltpk []byte, ok bool)

// VerifyClient drives the controller side of pair-verify against an
// accessory it has already completed pair-setup with.
type VerifyClient struct {
	machine
	identity   LongTermIdentity
	dh         *crypto.X25519KeyPair
	peerDHPub  []byte
	sessionKey [32]byte
	writeKey   [32]byte
	readKey    [32]byte
}

// NewVerifyClient starts a pair-verify using the controller's persisted identity.
func NewVerifyClient(identity LongTermIdentity) (*VerifyClient, error) {
	dh, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	return &VerifyClient{identity: identity, dh: dh}, nil
}

// BuildM1 produces the initial pair-verify request.
func (c *VerifyClient) BuildM1() tlv8.Container {
	var m tlv8.Container
	m.AddByte(tlv8.TagState, 1)
	m.Add(tlv8.TagPublicKey, c.dh.PublicKey())
	c.transition(StateWaitingResponse)
	return m
}

// ProcessM2AndBuildM3 verifies the accessory's signed ephemeral
// (looked up via lookupPeer by its claimed identifier) and, on
// success, returns the client's own signed ephemeral as M3.
func (c *VerifyClient) ProcessM2AndBuildM3(m2 tlv8.Container, lookupPeer PeerLookup) (tlv8.Container, error) {
	state, ok := m2.GetByte(tlv8.TagState)
	if !ok {
		return nil, c.fail(newError(ErrMalformedMessage, "m2 missing state"))
	}
	if err := c.expect(state, 2); err != nil {
		return nil, err
	}

	peerDHPub, ok := m2.Get(tlv8.TagPublicKey)
	if !ok || len(peerDHPub) != crypto.X25519PublicKeyLen {
		return nil, c.fail(newError(ErrMalformedMessage, "m2 missing or malformed public key"))
	}
	c.peerDHPub = peerDHPub

	encrypted, ok := m2.Get(tlv8.TagEncryptedData)
	if !ok {
		return nil, c.fail(newError(ErrMalformedMessage, "m2 missing encrypted data"))
	}

	shared, err := c.dh.DiffieHellman(peerDHPub)
	if err != nil {
		return nil, c.fail(newError(ErrMalformedMessage, "dh failed: %v", err))
	}
	c.sessionKey, err = crypto.HKDFSha512Fixed32(transientVerifySalt, shared, transientVerifyInfo)
	if err != nil {
		return nil, c.fail(newError(ErrMalformedMessage, "hkdf failed: %v", err))
	}

	cipher, err := crypto.NewChaCha20Poly1305(c.sessionKey[:])
	if err != nil {
		return nil, c.fail(newError(ErrMalformedMessage, "cipher init failed: %v", err))
	}
	plain, err := cipher.Decrypt(verifyNonce, encrypted)
	if err != nil {
		return nil, c.fail(newError(ErrDecryptFailed, "m2 decrypt failed: %v", err))
	}

	sub, err := tlv8.Decode(plain)
	if err != nil {
		return nil, c.fail(newError(ErrMalformedMessage, "m2 sub-tlv malformed: %v", err))
	}
	peerID, ok := sub.Get(tlv8.TagIdentifier)
	if !ok {
		return nil, c.fail(newError(ErrMalformedMessage, "m2 sub-tlv missing identifier"))
	}
	peerSig, ok := sub.Get(tlv8.TagSignature)
	if !ok {
		return nil, c.fail(newError(ErrMalformedMessage, "m2 sub-tlv missing signature"))
	}

	peerLTPK, found := lookupPeer(peerID)
	if !found {
		return nil, c.fail(newError(ErrUnknownPeer, "no stored ltpk for identifier"))
	}

	transcript := append(append([]byte{}, peerDHPub...), c.dh.PublicKey()...)
	if err := crypto.Ed25519Verify(peerLTPK, transcript, peerSig); err != nil {
		return nil, c.fail(newError(ErrSignatureMismatch, "m2 signature verification failed: %v", err))
	}

	ownTranscript := append(append([]byte{}, c.dh.PublicKey()...), peerDHPub...)
	ownSig := c.identity.Keys.Sign(ownTranscript)

	var ownSub tlv8.Container
	ownSub.Add(tlv8.TagIdentifier, c.identity.Identifier)
	ownSub.Add(tlv8.TagSignature, ownSig)
	ownEncrypted := cipher.Encrypt(verifyNonce, tlv8.Encode(ownSub))

	var m3 tlv8.Container
	m3.AddByte(tlv8.TagState, 3)
	m3.Add(tlv8.TagEncryptedData, ownEncrypted)
	c.transition(StateVerifying)
	return m3, nil
}

// ProcessM4 consumes the accessory's acknowledgement and derives the
// control-channel AEAD keys.
func (c *VerifyClient) ProcessM4(m4 tlv8.Container) error {
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

// Keys returns the control-channel write/read AEAD keys.
func (c *VerifyClient) Keys() (write, read [32]byte) {
	return c.writeKey, c.readKey
}

// VerifyServer drives the accessory side of pair-verify, trusting
// previously stored controller LTPKs via lookupPeer.
type VerifyServer struct {
	machine
	identity   LongTermIdentity
	dh         *crypto.X25519KeyPair
	peerDHPub  []byte
	sessionKey [32]byte
	writeKey   [32]byte
	readKey    [32]byte
}

// NewVerifyServer starts a pair-verify responder using the accessory's persisted identity.
func NewVerifyServer(identity LongTermIdentity) (*VerifyServer, error) {
	dh, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	return &VerifyServer{identity: identity, dh: dh}, nil
}

// ProcessM1AndBuildM2 consumes the controller's M1 and returns a
// signed, encrypted M2.
func (s *VerifyServer) ProcessM1AndBuildM2(m1 tlv8.Container) (tlv8.Container, error) {
	state, ok := m1.GetByte(tlv8.TagState)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m1 missing state"))
	}
	if err := s.expect(state, 1); err != nil {
		return nil, err
	}

	peerDHPub, ok := m1.Get(tlv8.TagPublicKey)
	if !ok || len(peerDHPub) != crypto.X25519PublicKeyLen {
		return nil, s.fail(newError(ErrMalformedMessage, "m1 missing or malformed public key"))
	}
	s.peerDHPub = peerDHPub

	shared, err := s.dh.DiffieHellman(peerDHPub)
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "dh failed: %v", err))
	}
	s.sessionKey, err = crypto.HKDFSha512Fixed32(transientVerifySalt, shared, transientVerifyInfo)
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "hkdf failed: %v", err))
	}

	transcript := append(append([]byte{}, s.dh.PublicKey()...), peerDHPub...)
	sig := s.identity.Keys.Sign(transcript)

	var sub tlv8.Container
	sub.Add(tlv8.TagIdentifier, s.identity.Identifier)
	sub.Add(tlv8.TagSignature, sig)

	cipher, err := crypto.NewChaCha20Poly1305(s.sessionKey[:])
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "cipher init failed: %v", err))
	}
	encrypted := cipher.Encrypt(verifyNonce, tlv8.Encode(sub))

	var m2 tlv8.Container
	m2.AddByte(tlv8.TagState, 2)
	m2.Add(tlv8.TagPublicKey, s.dh.PublicKey())
	m2.Add(tlv8.TagEncryptedData, encrypted)
	s.transition(StateVerifying)
	return m2, nil
}

// ProcessM3AndBuildM4 verifies the controller's signed ephemeral
// (resolving its stored LTPK via lookupPeer) and returns M4.
func (s *VerifyServer) ProcessM3AndBuildM4(m3 tlv8.Container, lookupPeer PeerLookup) (tlv8.Container, error) {
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

	cipher, err := crypto.NewChaCha20Poly1305(s.sessionKey[:])
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "cipher init failed: %v", err))
	}
	plain, err := cipher.Decrypt(verifyNonce, encrypted)
	if err != nil {
		return nil, s.fail(newError(ErrDecryptFailed, "m3 decrypt failed: %v", err))
	}

	sub, err := tlv8.Decode(plain)
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "m3 sub-tlv malformed: %v", err))
	}
	peerID, ok := sub.Get(tlv8.TagIdentifier)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m3 sub-tlv missing identifier"))
	}
	peerSig, ok := sub.Get(tlv8.TagSignature)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m3 sub-tlv missing signature"))
	}

	peerLTPK, found := lookupPeer(peerID)
	if !found {
		return nil, s.fail(newError(ErrUnknownPeer, "no stored ltpk for identifier"))
	}

	transcript := append(append([]byte{}, s.peerDHPub...), s.dh.PublicKey()...)
	if err := crypto.Ed25519Verify(peerLTPK, transcript, peerSig); err != nil {
		return nil, s.fail(newError(ErrSignatureMismatch, "m3 signature verification failed: %v", err))
	}

	s.writeKey, err = crypto.HKDFSha512Fixed32(controlSalt, s.sessionKey[:], controlReadInfo)
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "write key derivation failed: %v", err))
	}
	s.readKey, err = crypto.HKDFSha512Fixed32(controlSalt, s.sessionKey[:], controlWriteInfo)
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "read key derivation failed: %v", err))
	}

	var m4 tlv8.Container
	m4.AddByte(tlv8.TagState, 4)
	s.transition(StateComplete)
	return m4, nil
}

// Keys returns the control-channel write/read AEAD keys.
func (s *VerifyServer) Keys() (write, read [32]byte) {
	return s.writeKey, s.readKey
}
