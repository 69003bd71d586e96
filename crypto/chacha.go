package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"
)

// ChaChaNonce is the 12-byte nonce ChaCha20-Poly1305 uses throughout
// pairing and AirPlay 2 RTP encryption.
type ChaChaNonce [ChaChaNonceLen]byte

// ChaChaNonceFromBytes validates and wraps an existing 12-byte nonce.
func ChaChaNonceFromBytes(b []byte) (ChaChaNonce, error) {
	var n ChaChaNonce
	if len(b) != ChaChaNonceLen {
		return n, errInvalidKeyLength(ChaChaNonceLen, len(b))
	}
	copy(n[:], b)
	return n, nil
}

// ChaChaNonceFromCounter builds the "0000 0000 ctr" nonce shape used by
// pairing and RTP: an 8-byte little-endian counter left-padded with four
// zero bytes.
func ChaChaNonceFromCounter(counter uint64) ChaChaNonce {
	var n ChaChaNonce
	binary.LittleEndian.PutUint64(n[4:], counter)
	return n
}

// Counter reads the 8-byte little-endian counter tail of the nonce.
func (n ChaChaNonce) Counter() uint64 {
	return binary.LittleEndian.Uint64(n[4:])
}

// ChaCha20Poly1305 is a 32-byte-key AEAD cipher.
type ChaCha20Poly1305 struct {
	aead chacha20poly1305.AEAD
}

// NewChaCha20Poly1305 builds the cipher from a 32-byte key.
func NewChaCha20Poly1305(key []byte) (*ChaCha20Poly1305, error) {
	if len(key) != ChaChaKeyLen {
		return nil, errInvalidKeyLength(ChaChaKeyLen, len(key))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errMsg(KindInvalidKeyLength, err.Error())
	}
	return &ChaCha20Poly1305{aead: aead}, nil
}

// Encrypt returns ciphertext||16-byte tag.
func (c *ChaCha20Poly1305) Encrypt(nonce ChaChaNonce, plaintext []byte) []byte {
	return c.aead.Seal(nil, nonce[:], plaintext, nil)
}

// EncryptWithAAD is Encrypt with associated authenticated data.
func (c *ChaCha20Poly1305) EncryptWithAAD(nonce ChaChaNonce, aad, plaintext []byte) []byte {
	return c.aead.Seal(nil, nonce[:], plaintext, aad)
}

// Decrypt authenticates and decrypts ciphertext||tag.
func (c *ChaCha20Poly1305) Decrypt(nonce ChaChaNonce, ciphertext []byte) ([]byte, error) {
	plain, err := c.aead.Open(nil, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, errMsg(KindDecryptionFailed, err.Error())
	}
	return plain, nil
}

// DecryptWithAAD is Decrypt with associated authenticated data.
func (c *ChaCha20Poly1305) DecryptWithAAD(nonce ChaChaNonce, aad, ciphertext []byte) ([]byte, error) {
	plain, err := c.aead.Open(nil, nonce[:], ciphertext, aad)
	if err != nil {
		return nil, errMsg(KindDecryptionFailed, err.Error())
	}
	return plain, nil
}
