package rtsp

import (
	"encoding/binary"
	"fmt"

	"github.com/raopx/raopx/crypto"
)

// MaxFrameLength is the largest plaintext payload a single HAP frame
// may carry.
const MaxFrameLength = 65535

// HAPCodec encrypts/decrypts the control channel after pairing
// completes: each frame is a 2-byte little-endian plaintext length L,
// an L-byte ChaCha20-Poly1305 ciphertext, and a 16-byte tag (L+18
// bytes on the wire). The nonce is "0000 0000 ctr" with a per-direction
// monotonic 64-bit little-endian counter starting at zero; the
// counter only advances once a frame successfully authenticates.
type HAPCodec struct {
	writeCipher  *crypto.ChaCha20Poly1305
	readCipher   *crypto.ChaCha20Poly1305
	writeCounter uint64
	readCounter  uint64
}

// NewHAPCodec builds a codec from the session's write/read keys
// (derived by the pairing package).
func NewHAPCodec(writeKey, readKey [32]byte) (*HAPCodec, error) {
	w, err := crypto.NewChaCha20Poly1305(writeKey[:])
	if err != nil {
		return nil, err
	}
	r, err := crypto.NewChaCha20Poly1305(readKey[:])
	if err != nil {
		return nil, err
	}
	return &HAPCodec{writeCipher: w, readCipher: r}, nil
}

// EncryptFrame wraps plaintext as a single HAP frame, advancing the
// write counter.
func (c *HAPCodec) EncryptFrame(plaintext []byte) ([]byte, error) {
	if len(plaintext) > MaxFrameLength {
		return nil, fmt.Errorf("rtsp: hap frame plaintext too long: %d bytes", len(plaintext))
	}
	var lengthPrefix [2]byte
	binary.LittleEndian.PutUint16(lengthPrefix[:], uint16(len(plaintext)))

	nonce := crypto.ChaChaNonceFromCounter(c.writeCounter)
	ciphertext := c.writeCipher.EncryptWithAAD(nonce, lengthPrefix[:], plaintext)
	c.writeCounter++

	out := make([]byte, 0, 2+len(ciphertext))
	out = append(out, lengthPrefix[:]...)
	out = append(out, ciphertext...)
	return out, nil
}

// DecryptFrame reads exactly one frame from buf, returning the
// plaintext and the number of bytes consumed. Returns
// (nil, 0, nil) if buf doesn't yet contain a complete frame.
// The read counter never advances on a failed decryption, per
// spec.md §4.4 — any decryption failure is fatal for the session.
func (c *HAPCodec) DecryptFrame(buf []byte) (plaintext []byte, consumed int, err error) {
	if len(buf) < 2 {
		return nil, 0, nil
	}
	length := int(binary.LittleEndian.Uint16(buf[:2]))
	frameLen := 2 + length + 16
	if len(buf) < frameLen {
		return nil, 0, nil
	}

	nonce := crypto.ChaChaNonceFromCounter(c.readCounter)
	plain, err := c.readCipher.DecryptWithAAD(nonce, buf[:2], buf[2:frameLen])
	if err != nil {
		return nil, 0, fmt.Errorf("rtsp: hap frame decryption failed: %w", err)
	}
	c.readCounter++
	return plain, frameLen, nil
}
