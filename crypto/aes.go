package crypto

import (
	"crypto/aes"
	"crypto/cipher"
)

// AES128CTR is a seekable AES-128-CTR stream cipher used to encrypt legacy
// RAOP audio. Seeking lets the decryptor jump straight to the keystream
// position for an arbitrary packet without processing every packet before
// it.
type AES128CTR struct {
	block cipher.Block
	iv    [aes.BlockSize]byte
	// position is the current byte offset into the keystream.
	position uint64
}

// NewAES128CTR builds a cipher from a 16-byte key and 16-byte IV.
func NewAES128CTR(key, iv []byte) (*AES128CTR, error) {
	if len(key) != AES128KeyLen {
		return nil, errInvalidKeyLength(AES128KeyLen, len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, errInvalidKeyLength(aes.BlockSize, len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errMsg(KindInvalidKeyLength, err.Error())
	}
	c := &AES128CTR{block: block}
	copy(c.iv[:], iv)
	return c, nil
}

// Seek repositions the keystream to start at the given byte offset.
func (c *AES128CTR) Seek(position uint64) {
	c.position = position
}

// XORKeyStream encrypts or decrypts data in place at the current position,
// advancing the position by len(data).
func (c *AES128CTR) XORKeyStream(data []byte) {
	streamCipher := newCTRAt(c.block, c.iv, c.position)
	streamCipher.XORKeyStream(data, data)
	c.position += uint64(len(data))
}

// Process returns a new buffer containing data encrypted/decrypted at the
// current position without mutating the caller's slice.
func (c *AES128CTR) Process(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	c.XORKeyStream(out)
	return out
}

// newCTRAt builds a CTR stream positioned at byteOffset into the
// keystream, honoring the AES-CTR 128-bit big-endian counter convention
// (the counter increments once per 16-byte block; a non-block-aligned
// offset is handled by discarding the leading bytes of that block).
func newCTRAt(block cipher.Block, iv [aes.BlockSize]byte, byteOffset uint64) cipher.Stream {
	blockOffset := byteOffset / aes.BlockSize
	withinBlock := byteOffset % aes.BlockSize

	counterIV := addCounter(iv, blockOffset)
	stream := cipher.NewCTR(block, counterIV[:])
	if withinBlock > 0 {
		discard := make([]byte, withinBlock)
		stream.XORKeyStream(discard, discard)
	}
	return stream
}

// addCounter adds n to the big-endian 128-bit counter represented by iv,
// matching AES-CTR's counter-increment-per-block semantics.
func addCounter(iv [aes.BlockSize]byte, n uint64) [aes.BlockSize]byte {
	out := iv
	carry := n
	for i := len(out) - 1; i >= 0 && carry > 0; i-- {
		sum := uint64(out[i]) + carry
		out[i] = byte(sum)
		carry = sum >> 8
	}
	return out
}

// AES128GCM is AES-128 in GCM mode with a 12-byte nonce.
type AES128GCM struct {
	aead cipher.AEAD
}

// NewAES128GCM builds a GCM cipher from a 16-byte key.
func NewAES128GCM(key []byte) (*AES128GCM, error) {
	if len(key) != AES128KeyLen {
		return nil, errInvalidKeyLength(AES128KeyLen, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errMsg(KindInvalidKeyLength, err.Error())
	}
	aead, err := cipher.NewGCMWithNonceSize(block, AESGCMNonceLen)
	if err != nil {
		return nil, errMsg(KindEncryptionFailed, err.Error())
	}
	return &AES128GCM{aead: aead}, nil
}

// Encrypt returns ciphertext||tag for the given 12-byte nonce.
func (g *AES128GCM) Encrypt(nonce, plaintext []byte) ([]byte, error) {
	if len(nonce) != AESGCMNonceLen {
		return nil, errInvalidKeyLength(AESGCMNonceLen, len(nonce))
	}
	return g.aead.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt authenticates and decrypts ciphertext||tag.
func (g *AES128GCM) Decrypt(nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != AESGCMNonceLen {
		return nil, errInvalidKeyLength(AESGCMNonceLen, len(nonce))
	}
	plain, err := g.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errMsg(KindDecryptionFailed, err.Error())
	}
	return plain, nil
}
