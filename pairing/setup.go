package pairing

import (
	"crypto/rand"

	"github.com/raopx/raopx/crypto"
	"github.com/raopx/raopx/tlv8"
)

var (
	setupEncryptSalt = []byte("Pair-Setup-Encrypt-Salt")
	setupEncryptInfo = []byte("Pair-Setup-Encrypt-Info")
)

// LongTermIdentity is a persisted Ed25519 signing identity (LTSK/LTPK
// pair), the thing pair-setup ultimately exchanges and pair-verify
// later trusts.
type LongTermIdentity struct {
	Identifier []byte
	Keys       *crypto.Ed25519KeyPair
}

// SetupClient drives the controller side of SRP pair-setup (M1-M6).
type SetupClient struct {
	machine
	identity  LongTermIdentity
	srp       *crypto.SRPClient
	sessionK  []byte
	salt      []byte
	serverPub []byte
	peerLTPK  []byte
	peerID    []byte
}

// NewSetupClient creates a client bound to a persisted long-term
// identity. identity.Keys is generated once at first pairing and
// reused for every subsequent pair-verify against this controller.
func NewSetupClient(identity LongTermIdentity) *SetupClient {
	return &SetupClient{identity: identity}
}

// BuildM1 produces the initial pair-setup request.
func (c *SetupClient) BuildM1() tlv8.Container {
	var m tlv8.Container
	m.AddByte(tlv8.TagState, 1)
	m.AddByte(tlv8.TagMethod, 0)
	c.transition(StateWaitingResponse)
	return m
}

// ProcessM2AndBuildM3 consumes the server's (salt, B) and the
// username/password shared out of band, producing the SRP client
// proof M3.
func (c *SetupClient) ProcessM2AndBuildM3(m2 tlv8.Container, username, password []byte) (tlv8.Container, error) {
	state, ok := m2.GetByte(tlv8.TagState)
	if !ok {
		return nil, c.fail(newError(ErrMalformedMessage, "m2 missing state"))
	}
	if err := c.expect(state, 2); err != nil {
		return nil, err
	}

	salt, ok := m2.Get(tlv8.TagSalt)
	if !ok {
		return nil, c.fail(newError(ErrMalformedMessage, "m2 missing salt"))
	}
	serverPub, ok := m2.Get(tlv8.TagPublicKey)
	if !ok {
		return nil, c.fail(newError(ErrMalformedMessage, "m2 missing public key"))
	}
	c.salt = salt
	c.serverPub = serverPub

	srpClient, err := crypto.NewSRPClient()
	if err != nil {
		return nil, c.fail(newError(ErrSrpFailed, "srp client init failed: %v", err))
	}
	c.srp = srpClient
	if err := c.srp.ProcessChallenge(username, password, salt, serverPub); err != nil {
		return nil, c.fail(newError(ErrSrpFailed, "srp challenge failed: %v", err))
	}

	var m3 tlv8.Container
	m3.AddByte(tlv8.TagState, 3)
	m3.Add(tlv8.TagPublicKey, c.srp.PublicKey())
	m3.Add(tlv8.TagProof, c.srp.ClientProof())
	c.transition(StateSrpExchange)
	return m3, nil
}

// ProcessM4AndBuildM5 verifies the server's SRP proof M2 (carried in
// m4's Proof tag) and returns the client's encrypted long-term
// identity as M5.
func (c *SetupClient) ProcessM4AndBuildM5(m4 tlv8.Container) (tlv8.Container, error) {
	state, ok := m4.GetByte(tlv8.TagState)
	if !ok {
		return nil, c.fail(newError(ErrMalformedMessage, "m4 missing state"))
	}
	if err := c.expect(state, 4); err != nil {
		return nil, err
	}

	serverProof, ok := m4.Get(tlv8.TagProof)
	if !ok {
		return nil, c.fail(newError(ErrMalformedMessage, "m4 missing proof"))
	}
	sessionK, err := c.srp.VerifyServer(serverProof)
	if err != nil {
		return nil, c.fail(newError(ErrSrpFailed, "server proof verification failed: %v", err))
	}
	c.sessionK = sessionK

	transcript := append(append([]byte{}, c.srp.PublicKey()...), c.identity.Keys.PublicKey()...)
	sig := c.identity.Keys.Sign(transcript)

	var sub tlv8.Container
	sub.Add(tlv8.TagIdentifier, c.identity.Identifier)
	sub.Add(tlv8.TagPublicKey, c.identity.Keys.PublicKey())
	sub.Add(tlv8.TagSignature, sig)

	encKey, err := crypto.HKDFSha512Fixed32(setupEncryptSalt, c.sessionK, setupEncryptInfo)
	if err != nil {
		return nil, c.fail(newError(ErrMalformedMessage, "encrypt key derivation failed: %v", err))
	}
	cipher, err := crypto.NewChaCha20Poly1305(encKey[:])
	if err != nil {
		return nil, c.fail(newError(ErrMalformedMessage, "cipher init failed: %v", err))
	}
	encrypted := cipher.Encrypt(zeroNonce, tlv8.Encode(sub))

	var m5 tlv8.Container
	m5.AddByte(tlv8.TagState, 5)
	m5.Add(tlv8.TagEncryptedData, encrypted)
	c.transition(StateKeyExchange)
	return m5, nil
}

// ProcessM6 decrypts the server's identity/signature bundle, verifies
// the signature, and stores the now-persisted peer LTPK, completing
// the handshake.
func (c *SetupClient) ProcessM6(m6 tlv8.Container) error {
	state, ok := m6.GetByte(tlv8.TagState)
	if !ok {
		return c.fail(newError(ErrMalformedMessage, "m6 missing state"))
	}
	if err := c.expect(state, 6); err != nil {
		return err
	}
	if _, hasError := m6.Get(tlv8.TagError); hasError {
		return c.fail(newError(ErrUnexpectedState, "m6 carries an error tlv"))
	}

	encrypted, ok := m6.Get(tlv8.TagEncryptedData)
	if !ok {
		return c.fail(newError(ErrMalformedMessage, "m6 missing encrypted data"))
	}

	encKey, err := crypto.HKDFSha512Fixed32(setupEncryptSalt, c.sessionK, setupEncryptInfo)
	if err != nil {
		return c.fail(newError(ErrMalformedMessage, "encrypt key derivation failed: %v", err))
	}
	cipher, err := crypto.NewChaCha20Poly1305(encKey[:])
	if err != nil {
		return c.fail(newError(ErrMalformedMessage, "cipher init failed: %v", err))
	}
	plain, err := cipher.Decrypt(zeroNonce, encrypted)
	if err != nil {
		return c.fail(newError(ErrDecryptFailed, "m6 decrypt failed: %v", err))
	}

	sub, err := tlv8.Decode(plain)
	if err != nil {
		return c.fail(newError(ErrMalformedMessage, "m6 sub-tlv malformed: %v", err))
	}
	peerID, ok := sub.Get(tlv8.TagIdentifier)
	if !ok {
		return c.fail(newError(ErrMalformedMessage, "m6 sub-tlv missing identifier"))
	}
	peerLTPK, ok := sub.Get(tlv8.TagPublicKey)
	if !ok {
		return c.fail(newError(ErrMalformedMessage, "m6 sub-tlv missing public key"))
	}
	sig, ok := sub.Get(tlv8.TagSignature)
	if !ok {
		return c.fail(newError(ErrMalformedMessage, "m6 sub-tlv missing signature"))
	}

	transcript := append(append([]byte{}, c.serverPub...), peerLTPK...)
	if err := crypto.Ed25519Verify(peerLTPK, transcript, sig); err != nil {
		return c.fail(newError(ErrSignatureMismatch, "m6 signature verification failed: %v", err))
	}
	c.peerID = peerID
	c.peerLTPK = peerLTPK

	c.transition(StateComplete)
	return nil
}

// PeerIdentity returns the just-paired accessory's identifier and
// long-term public key, valid only after ProcessM6 succeeds.
func (c *SetupClient) PeerIdentity() (identifier, ltpk []byte) {
	return c.peerID, c.peerLTPK
}

// SetupServer drives the accessory side of SRP pair-setup.
type SetupServer struct {
	machine
	identity  LongTermIdentity
	srp       *crypto.SRPServer
	sessionK  []byte
	clientPub []byte
	peerLTPK  []byte
	peerID    []byte
}

// NewSetupServer creates a server bound to its own persisted identity.
// The SRP verifier for the pairing PIN is derived later, in
// ProcessM1AndBuildM2.
func NewSetupServer(identity LongTermIdentity) *SetupServer {
	return &SetupServer{identity: identity}
}

// ProcessM1AndBuildM2 consumes the client's M1 and, given the
// accessory's setup code (username/password, normally a fixed
// "Pair-Setup"/PIN pair), generates a random salt and returns M2.
func (s *SetupServer) ProcessM1AndBuildM2(m1 tlv8.Container, username, password []byte) (tlv8.Container, error) {
	state, ok := m1.GetByte(tlv8.TagState)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m1 missing state"))
	}
	if err := s.expect(state, 1); err != nil {
		return nil, err
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, s.fail(newError(ErrSrpFailed, "salt generation failed: %v", err))
	}
	verifier := crypto.SRPVerifier(username, password, salt)

	privB := make([]byte, 32)
	if _, err := rand.Read(privB); err != nil {
		return nil, s.fail(newError(ErrSrpFailed, "server ephemeral generation failed: %v", err))
	}
	s.srp = crypto.NewSRPServer(verifier, privB)

	var m2 tlv8.Container
	m2.AddByte(tlv8.TagState, 2)
	m2.Add(tlv8.TagSalt, salt)
	m2.Add(tlv8.TagPublicKey, s.srp.PublicKey())
	s.transition(StateSrpExchange)
	return m2, nil
}

// ProcessM3AndBuildM4 verifies the client's SRP proof and returns M4
// carrying the server's counter-proof.
func (s *SetupServer) ProcessM3AndBuildM4(m3 tlv8.Container) (tlv8.Container, error) {
	state, ok := m3.GetByte(tlv8.TagState)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m3 missing state"))
	}
	if err := s.expect(state, 3); err != nil {
		return nil, err
	}

	clientPub, ok := m3.Get(tlv8.TagPublicKey)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m3 missing public key"))
	}
	clientProof, ok := m3.Get(tlv8.TagProof)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m3 missing proof"))
	}
	s.clientPub = clientPub

	serverProof, err := s.srp.VerifyClient(clientPub, clientProof)
	if err != nil {
		return nil, s.fail(newError(ErrSrpFailed, "client proof verification failed: %v", err))
	}
	s.sessionK = s.srp.SessionKey()

	var m4 tlv8.Container
	m4.AddByte(tlv8.TagState, 4)
	m4.Add(tlv8.TagProof, serverProof)
	s.transition(StateKeyExchange)
	return m4, nil
}

// ProcessM5AndBuildM6 decrypts the client's identity/signature bundle,
// verifies the signature, records the peer LTPK (see PeerIdentity; it
// is not written to disk here), and returns the server's own encrypted
// identity bundle as M6.
func (s *SetupServer) ProcessM5AndBuildM6(m5 tlv8.Container) (tlv8.Container, error) {
	state, ok := m5.GetByte(tlv8.TagState)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m5 missing state"))
	}
	if err := s.expect(state, 5); err != nil {
		return nil, err
	}

	encrypted, ok := m5.Get(tlv8.TagEncryptedData)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m5 missing encrypted data"))
	}

	encKey, err := crypto.HKDFSha512Fixed32(setupEncryptSalt, s.sessionK, setupEncryptInfo)
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "encrypt key derivation failed: %v", err))
	}
	cipher, err := crypto.NewChaCha20Poly1305(encKey[:])
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "cipher init failed: %v", err))
	}
	plain, err := cipher.Decrypt(zeroNonce, encrypted)
	if err != nil {
		return nil, s.fail(newError(ErrDecryptFailed, "m5 decrypt failed: %v", err))
	}

	sub, err := tlv8.Decode(plain)
	if err != nil {
		return nil, s.fail(newError(ErrMalformedMessage, "m5 sub-tlv malformed: %v", err))
	}
	peerID, ok := sub.Get(tlv8.TagIdentifier)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m5 sub-tlv missing identifier"))
	}
	peerLTPK, ok := sub.Get(tlv8.TagPublicKey)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m5 sub-tlv missing public key"))
	}
	sig, ok := sub.Get(tlv8.TagSignature)
	if !ok {
		return nil, s.fail(newError(ErrMalformedMessage, "m5 sub-tlv missing signature"))
	}

	transcript := append(append([]byte{}, s.clientPub...), peerLTPK...)
	if err := crypto.Ed25519Verify(peerLTPK, transcript, sig); err != nil {
		return nil, s.fail(newError(ErrSignatureMismatch, "m5 signature verification failed: %v", err))
	}
	s.peerID = peerID
	s.peerLTPK = peerLTPK

	ownTranscript := append(append([]byte{}, s.srp.PublicKey()...), s.identity.Keys.PublicKey()...)
	ownSig := s.identity.Keys.Sign(ownTranscript)

	var ownSub tlv8.Container
	ownSub.Add(tlv8.TagIdentifier, s.identity.Identifier)
	ownSub.Add(tlv8.TagPublicKey, s.identity.Keys.PublicKey())
	ownSub.Add(tlv8.TagSignature, ownSig)
	ownEncrypted := cipher.Encrypt(zeroNonce, tlv8.Encode(ownSub))

	var m6 tlv8.Container
	m6.AddByte(tlv8.TagState, 6)
	m6.Add(tlv8.TagEncryptedData, ownEncrypted)
	s.transition(StateComplete)
	return m6, nil
}

// PeerIdentity returns the just-paired controller's identifier and
// long-term public key, valid only after ProcessM5AndBuildM6 succeeds.
func (s *SetupServer) PeerIdentity() (identifier, ltpk []byte) {
	return s.peerID, s.peerLTPK
}
