package rtp

import (
	"encoding/binary"
	"fmt"

	"github.com/raopx/raopx/crypto"
)

// EncryptionMode selects how audio payload bytes are protected on the
// wire, negotiated during pairing/setup.
type EncryptionMode int

const (
	EncryptionNone EncryptionMode = iota
	EncryptionAESCTR
	EncryptionChaCha20Poly1305
)

// ChaChaNonceTagLen is the trailing per-packet nonce counter AirPlay 2
// appends after the Poly1305 tag on ChaCha20-protected audio packets.
const ChaChaNonceTagLen = 8

// Encryptor protects and recovers RTP audio payloads under one of the
// negotiated encryption modes. AAD, when used, covers RTP header bytes
// 4..12 (timestamp + SSRC) per spec.
type Encryptor struct {
	mode  EncryptionMode
	ctr   *crypto.AES128CTR
	aead  *crypto.ChaCha20Poly1305

	payloadBytes uint64 // fixed per-packet payload size, for AES-CTR seeking
	counter      uint64 // per-packet nonce counter for ChaCha20
}

// NewAESCTREncryptor builds an encryptor that seeks its keystream to
// seq*payloadBytes before processing each packet, so packets may be
// encrypted or decrypted out of order.
func NewAESCTREncryptor(key, iv []byte, payloadBytes uint64) (*Encryptor, error) {
	ctr, err := crypto.NewAES128CTR(key, iv)
	if err != nil {
		return nil, err
	}
	return &Encryptor{mode: EncryptionAESCTR, ctr: ctr, payloadBytes: payloadBytes}, nil
}

// NewChaCha20Encryptor builds an encryptor using a monotonic 8-byte
// per-packet nonce counter appended after the auth tag.
func NewChaCha20Encryptor(key []byte) (*Encryptor, error) {
	aead, err := crypto.NewChaCha20Poly1305(key)
	if err != nil {
		return nil, err
	}
	return &Encryptor{mode: EncryptionChaCha20Poly1305, aead: aead}, nil
}

// NewNoneEncryptor returns an encryptor that passes payloads through
// unmodified, for legacy unencrypted RAOP sessions.
func NewNoneEncryptor() *Encryptor {
	return &Encryptor{mode: EncryptionNone}
}

// Protect encrypts a payload for the packet with the given sequence
// number and RTP header (used for AAD under ChaCha20). It returns a
// new slice; header is unmodified.
func (e *Encryptor) Protect(seq uint16, header []byte, payload []byte) ([]byte, error) {
	switch e.mode {
	case EncryptionNone:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil

	case EncryptionAESCTR:
		e.ctr.Seek(uint64(seq) * e.payloadBytes)
		return e.ctr.Process(payload), nil

	case EncryptionChaCha20Poly1305:
		if len(header) < HeaderLen {
			return nil, fmt.Errorf("rtp: short header for AAD, got %d bytes", len(header))
		}
		nonce := crypto.ChaChaNonceFromCounter(e.counter)
		aad := header[4:HeaderLen]
		ciphertext := e.aead.EncryptWithAAD(nonce, aad, payload)
		out := make([]byte, len(ciphertext)+ChaChaNonceTagLen)
		copy(out, ciphertext)
		binary.BigEndian.PutUint64(out[len(ciphertext):], e.counter)
		e.counter++
		return out, nil

	default:
		return nil, fmt.Errorf("rtp: unknown encryption mode %d", e.mode)
	}
}

// Unprotect decrypts a received payload, given the sequence number and
// raw RTP header bytes.
func (e *Encryptor) Unprotect(seq uint16, header []byte, payload []byte) ([]byte, error) {
	switch e.mode {
	case EncryptionNone:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil

	case EncryptionAESCTR:
		e.ctr.Seek(uint64(seq) * e.payloadBytes)
		return e.ctr.Process(payload), nil

	case EncryptionChaCha20Poly1305:
		if len(header) < HeaderLen {
			return nil, fmt.Errorf("rtp: short header for AAD, got %d bytes", len(header))
		}
		if len(payload) < ChaChaNonceTagLen {
			return nil, fmt.Errorf("rtp: payload too short for nonce trailer, got %d bytes", len(payload))
		}
		ciphertext := payload[:len(payload)-ChaChaNonceTagLen]
		counter := binary.BigEndian.Uint64(payload[len(payload)-ChaChaNonceTagLen:])
		nonce := crypto.ChaChaNonceFromCounter(counter)
		aad := header[4:HeaderLen]
		return e.aead.DecryptWithAAD(nonce, aad, ciphertext)

	default:
		return nil, fmt.Errorf("rtp: unknown encryption mode %d", e.mode)
	}
}
