package pairing

import "github.com/raopx/raopx/tlv8"

// AuthSetupRequest builds the single-shot legacy `/auth-setup` POST
// body: a 0x01 method byte followed by the sender's raw Curve25519
// public key. AirPlay 1 receivers never challenge this further, and
// this package does not attempt to verify anything against it — the
// legacy flow predates per-device trust and spec.md's non-goals
// exclude adding any.
func AuthSetupRequest(x25519Public []byte) []byte {
	return append([]byte{0x01}, x25519Public...)
}

// ParseAuthSetupRequest is the receiver-side counterpart: it only
// checks the method byte and length, and returns the sender's public
// key unchecked.
func ParseAuthSetupRequest(body []byte) ([]byte, error) {
	if len(body) < 1 || body[0] != 0x01 {
		return nil, newError(ErrMalformedMessage, "auth-setup body missing method byte")
	}
	return body[1:], nil
}

// AuthSetupResponseTLV wraps the receiver's own public key in a
// minimal TLV8 container for receivers that prefer the HAP shape over
// the raw legacy byte layout.
func AuthSetupResponseTLV(x25519Public []byte) []byte {
	var c tlv8.Container
	c.Add(tlv8.TagPublicKey, x25519Public)
	return tlv8.Encode(c)
}
