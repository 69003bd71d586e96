package raopx

import (
	"fmt"

	"github.com/raopx/raopx/crypto"
	"github.com/raopx/raopx/keystore"
	"github.com/raopx/raopx/pairing"
	"github.com/raopx/raopx/rtsp"
	"github.com/raopx/raopx/tlv8"
)

// pairingContentType is the MIME type RAOP/AirPlay 2 use for every
// TLV8-bodied pairing request and response.
const pairingContentType = "application/octet-stream"

var (
	audioKeySalt = []byte("Audio-Salt")
	audioKeyInfo = []byte("Audio-Write-Encryption-Key")
)

// tlvRequest builds an RTSP request carrying body as a TLV8-encoded
// octet-stream, the shape every pair-setup/pair-verify/auth-setup POST
// takes.
func tlvRequest(uri string, body tlv8.Container) *rtsp.Message {
	req := rtsp.NewRequest("POST", uri)
	req.Set("Content-Type", pairingContentType)
	req.Body = tlv8.Encode(body)
	return req
}

// decodeTLVBody parses msg's body as a TLV8 container, the shape every
// pair-setup/pair-verify response and POST request body takes.
func decodeTLVBody(msg *rtsp.Message) (tlv8.Container, error) {
	c, err := tlv8.Decode(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("raopx: malformed tlv8 body: %w", err)
	}
	return c, nil
}

// buildPairingIdentity loads or creates the long-term Ed25519 identity
// a controller or accessory presents during pair-setup/pair-verify,
// persisted under dir.
func buildPairingIdentity(dir string) (pairing.LongTermIdentity, error) {
	id, keys, err := keystore.LoadOrCreateSelfIdentity(dir)
	if err != nil {
		return pairing.LongTermIdentity{}, err
	}
	return pairing.LongTermIdentity{Identifier: []byte(id), Keys: keys}, nil
}

// deriveAudioKey derives the RTP payload encryption key from a
// pair-verify control-channel write key. The control handshake only
// specifies keys for the HAP control channel itself; AirPlay 2 derives
// a distinct audio key from the same session material rather than
// reusing the control key directly, following the control channel's
// own HKDF-over-a-fixed-info convention.
func deriveAudioKey(writeKey [32]byte) ([32]byte, error) {
	return crypto.HKDFSha512Fixed32(audioKeySalt, writeKey[:], audioKeyInfo)
}
