package crypto

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChaChaRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = 0x42
	}
	c, err := NewChaCha20Poly1305(key)
	require.NoError(t, err)

	nonce := ChaChaNonceFromCounter(1)
	plaintext := []byte("Hello, AirPlay!")
	ct := c.Encrypt(nonce, plaintext)
	assert.Len(t, ct, len(plaintext)+ChaChaTagLen)

	pt, err := c.Decrypt(nonce, ct)
	require.NoError(t, err)
	assert.Equal(t, plaintext, pt)
}

func TestChaChaTamperFails(t *testing.T) {
	key := make([]byte, 32)
	c, err := NewChaCha20Poly1305(key)
	require.NoError(t, err)

	nonce := ChaChaNonceFromCounter(0)
	ct := c.Encrypt(nonce, []byte("secret"))
	ct[0] ^= 1

	_, err = c.Decrypt(nonce, ct)
	require.Error(t, err)
	cerr := err.(*Error)
	assert.Equal(t, KindDecryptionFailed, cerr.Kind)
}

func TestChaChaAAD(t *testing.T) {
	key := make([]byte, 32)
	c, err := NewChaCha20Poly1305(key)
	require.NoError(t, err)
	nonce := ChaChaNonceFromCounter(1)

	ct := c.EncryptWithAAD(nonce, []byte("header"), []byte("body"))
	pt, err := c.DecryptWithAAD(nonce, []byte("header"), ct)
	require.NoError(t, err)
	assert.Equal(t, "body", string(pt))

	_, err = c.DecryptWithAAD(nonce, []byte("wrong-header"), ct)
	assert.Error(t, err)
}

// TestS3ChaChaRTPFixture mirrors spec.md S3: a 32-byte key of 0x42, a
// sequence counter of 0 used as the nonce, and two 16-bit LE PCM samples
// (16384, -16384) round-tripping through encrypt/decrypt.
func TestS3ChaChaRTPFixture(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = 0x42
	}
	c, err := NewChaCha20Poly1305(key)
	require.NoError(t, err)

	plaintext := []byte{0x00, 0x40, 0x00, 0xC0} // 16384, -16384 as int16 LE
	nonce := ChaChaNonceFromCounter(0)
	assert.Equal(t, uint64(0), nonce.Counter())

	ciphertext := c.Encrypt(nonce, plaintext)
	require.Len(t, ciphertext, len(plaintext)+16)

	decrypted, err := c.Decrypt(nonce, ciphertext)
	require.NoError(t, err)
	require.Len(t, decrypted, 4)

	s0 := int16(binary.LittleEndian.Uint16(decrypted[0:2]))
	s1 := int16(binary.LittleEndian.Uint16(decrypted[2:4]))
	assert.Equal(t, int16(16384), s0)
	assert.Equal(t, int16(-16384), s1)
}
